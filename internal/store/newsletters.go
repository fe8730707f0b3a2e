package store

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dmitrymomot/briefly/internal/newsletter"
)

// NewsletterRepository persists newsletters and their components.
type NewsletterRepository struct {
	pool *pgxpool.Pool
}

const newsletterColumns = `id, user_id, title, interval, time_of_day, active, token, created_at`

func scanNewsletter(row pgx.Row) (*newsletter.Newsletter, error) {
	var n newsletter.Newsletter
	err := row.Scan(
		&n.ID, &n.UserID, &n.Title, &n.Interval, &n.TimeOfDay,
		&n.Active, &n.Token, &n.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &n, nil
}

// Create inserts a newsletter with its components in one transaction. Each
// component's position is taken from the struct; the caller assigns input
// order. Every component is validated before anything is written.
func (r *NewsletterRepository) Create(ctx context.Context, n *newsletter.Newsletter) (*newsletter.Newsletter, error) {
	if !n.Interval.Valid() {
		return nil, newsletter.ErrInvalidInterval
	}
	for _, c := range n.Components {
		if err := c.Validate(); err != nil {
			return nil, err
		}
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx) //nolint:errcheck // no-op after commit

	created, err := scanNewsletter(tx.QueryRow(ctx, `
		INSERT INTO newsletters (user_id, title, interval, time_of_day, active)
		VALUES ($1, $2, $3, $4, TRUE)
		RETURNING `+newsletterColumns,
		n.UserID, n.Title, n.Interval, n.TimeOfDay,
	))
	if err != nil {
		return nil, err
	}

	for _, c := range n.Components {
		city, symbols, quoteText, quoteAuthor := componentColumns(c)
		var id string
		err := tx.QueryRow(ctx, `
			INSERT INTO components (newsletter_id, kind, position, city, symbols, quote_text, quote_author)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			RETURNING id`,
			created.ID, c.Kind, c.Position, city, symbols, quoteText, quoteAuthor,
		).Scan(&id)
		if err != nil {
			return nil, err
		}
		c.ID = id
		created.Components = append(created.Components, c)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return created, nil
}

// GetByID returns a newsletter with its components ordered by position. The
// lookup is scoped to the owning user.
func (r *NewsletterRepository) GetByID(ctx context.Context, userID, id string) (*newsletter.Newsletter, error) {
	n, err := scanNewsletter(r.pool.QueryRow(ctx, `
		SELECT `+newsletterColumns+` FROM newsletters WHERE id = $1 AND user_id = $2`,
		id, userID,
	))
	if err != nil {
		return nil, err
	}

	n.Components, err = r.componentsFor(ctx, n.ID)
	if err != nil {
		return nil, err
	}
	return n, nil
}

// ListByUser returns all of a user's newsletters with components, newest
// first.
func (r *NewsletterRepository) ListByUser(ctx context.Context, userID string) ([]*newsletter.Newsletter, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+newsletterColumns+` FROM newsletters
		WHERE user_id = $1
		ORDER BY created_at DESC`,
		userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	newsletters := []*newsletter.Newsletter{}
	for rows.Next() {
		n, err := scanNewsletter(rows)
		if err != nil {
			return nil, err
		}
		newsletters = append(newsletters, n)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, n := range newsletters {
		n.Components, err = r.componentsFor(ctx, n.ID)
		if err != nil {
			return nil, err
		}
	}
	return newsletters, nil
}

// GetByToken returns a newsletter by its unsubscribe token regardless of
// owner. Inactive newsletters return ErrNotActive.
func (r *NewsletterRepository) GetByToken(ctx context.Context, token string) (*newsletter.Newsletter, error) {
	n, err := scanNewsletter(r.pool.QueryRow(ctx, `
		SELECT `+newsletterColumns+` FROM newsletters WHERE token = $1`,
		token,
	))
	if err != nil {
		return nil, err
	}
	if !n.Active {
		return nil, ErrNotActive
	}
	return n, nil
}

// SetActive toggles delivery for a newsletter, scoped to the owning user.
func (r *NewsletterRepository) SetActive(ctx context.Context, userID, id string, active bool) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE newsletters SET active = $3 WHERE id = $1 AND user_id = $2`,
		id, userID, active,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes a newsletter and, via cascade, its components. Scoped to the
// owning user.
func (r *NewsletterRepository) Delete(ctx context.Context, userID, id string) error {
	tag, err := r.pool.Exec(ctx, `
		DELETE FROM newsletters WHERE id = $1 AND user_id = $2`,
		id, userID,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Unsubscribe deactivates the newsletter behind the token and appends an
// unsubscribe record, atomically. The token must belong to an active
// newsletter.
func (r *NewsletterRepository) Unsubscribe(ctx context.Context, token, reason, feedback string) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) //nolint:errcheck // no-op after commit

	var newsletterID, userID string
	var active bool
	err = tx.QueryRow(ctx, `
		SELECT id, user_id, active FROM newsletters WHERE token = $1 FOR UPDATE`,
		token,
	).Scan(&newsletterID, &userID, &active)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	if !active {
		return ErrNotActive
	}

	if _, err := tx.Exec(ctx, `
		UPDATE newsletters SET active = FALSE WHERE id = $1`,
		newsletterID,
	); err != nil {
		return err
	}

	if _, err := tx.Exec(ctx, `
		INSERT INTO unsubscribes (newsletter_id, user_id, reason, feedback)
		VALUES ($1, $2, $3, $4)`,
		newsletterID, userID, reason, feedback,
	); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// componentsFor loads a newsletter's components ordered by position.
func (r *NewsletterRepository) componentsFor(ctx context.Context, newsletterID string) ([]newsletter.Component, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, kind, position, city, symbols, quote_text, quote_author
		FROM components
		WHERE newsletter_id = $1
		ORDER BY position ASC`,
		newsletterID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	components := []newsletter.Component{}
	for rows.Next() {
		var (
			c                                    newsletter.Component
			city, symbols, quoteText, quoteAuth *string
		)
		if err := rows.Scan(&c.ID, &c.Kind, &c.Position, &city, &symbols, &quoteText, &quoteAuth); err != nil {
			return nil, err
		}

		switch c.Kind {
		case newsletter.KindWeather:
			if city != nil {
				c.Weather = &newsletter.WeatherParams{City: *city}
			}
		case newsletter.KindCrypto:
			if symbols != nil {
				c.Crypto = &newsletter.CryptoParams{Symbols: splitSymbols(*symbols)}
			}
		case newsletter.KindQuote:
			if quoteText != nil {
				q := &newsletter.QuoteParams{Text: *quoteText}
				if quoteAuth != nil {
					q.Author = *quoteAuth
				}
				c.Quote = q
			}
		}

		// A row whose payload column is missing surfaces as a corrupt
		// component here rather than as a silent empty section later.
		if err := c.Validate(); err != nil {
			return nil, err
		}
		components = append(components, c)
	}
	return components, rows.Err()
}

// componentColumns maps a component payload onto its nullable table columns.
// Symbols are stored uppercased and comma-joined.
func componentColumns(c newsletter.Component) (city, symbols, quoteText, quoteAuthor *string) {
	switch c.Kind {
	case newsletter.KindWeather:
		city = &c.Weather.City
	case newsletter.KindCrypto:
		joined := strings.ToUpper(strings.Join(c.Crypto.Symbols, ","))
		symbols = &joined
	case newsletter.KindQuote:
		quoteText = &c.Quote.Text
		quoteAuthor = &c.Quote.Author
	}
	return city, symbols, quoteText, quoteAuthor
}

func splitSymbols(joined string) []string {
	if joined == "" {
		return []string{}
	}
	parts := strings.Split(joined, ",")
	symbols := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			symbols = append(symbols, p)
		}
	}
	return symbols
}
