package store

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Unsubscribe is an append-only record of a reader opting out. Records are
// kept even after the newsletter itself is deleted.
type Unsubscribe struct {
	CreatedAt    time.Time `json:"created_at"`
	ID           string    `json:"id"`
	NewsletterID string    `json:"newsletter_id"`
	UserID       string    `json:"user_id"`
	Reason       string    `json:"reason"`
	Feedback     string    `json:"feedback"`
}

// UnsubscribeRepository reads the unsubscribe log.
type UnsubscribeRepository struct {
	pool *pgxpool.Pool
}

// ListByUser returns the unsubscribe records across all of a user's
// newsletters, newest first.
func (r *UnsubscribeRepository) ListByUser(ctx context.Context, userID string) ([]Unsubscribe, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, newsletter_id, user_id, reason, feedback, created_at
		FROM unsubscribes
		WHERE user_id = $1
		ORDER BY created_at DESC`,
		userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := []Unsubscribe{}
	for rows.Next() {
		var u Unsubscribe
		if err := rows.Scan(&u.ID, &u.NewsletterID, &u.UserID, &u.Reason, &u.Feedback, &u.CreatedAt); err != nil {
			return nil, err
		}
		records = append(records, u)
	}
	return records, rows.Err()
}
