package store

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// User is an account row. Code fields are nil when no verification or reset
// flow is pending.
type User struct {
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
	ID                string    `json:"id"`
	Name              string    `json:"name"`
	Email             string    `json:"email"`
	PasswordHash      string    `json:"-"`
	AvatarURL         string    `json:"avatar_url"`
	VerificationCode  *int      `json:"-"`
	PasswordResetCode *int      `json:"-"`
	Verified          bool      `json:"verified"`
}

// UserRepository persists accounts.
type UserRepository struct {
	pool *pgxpool.Pool
}

const userColumns = `id, name, email, password_hash, verified, verification_code, password_reset_code, avatar_url, created_at, updated_at`

func scanUser(row pgx.Row) (*User, error) {
	var u User
	err := row.Scan(
		&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.Verified,
		&u.VerificationCode, &u.PasswordResetCode, &u.AvatarURL,
		&u.CreatedAt, &u.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// CreateParams holds the fields for a new account. VerificationCode is nil
// for accounts created pre-verified (OAuth signups).
type CreateParams struct {
	Name             string
	Email            string
	PasswordHash     string
	AvatarURL        string
	VerificationCode *int
	Verified         bool
}

// Create inserts a new account. A duplicate email returns ErrEmailTaken.
func (r *UserRepository) Create(ctx context.Context, params CreateParams) (*User, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO users (name, email, password_hash, verified, verification_code, avatar_url)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING `+userColumns,
		params.Name, params.Email, params.PasswordHash, params.Verified,
		params.VerificationCode, params.AvatarURL,
	)

	user, err := scanUser(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return nil, ErrEmailTaken
		}
		return nil, err
	}
	return user, nil
}

// GetByID returns the account with the given ID.
func (r *UserRepository) GetByID(ctx context.Context, id string) (*User, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	return scanUser(row)
}

// GetByEmail returns the account with the given email, case-insensitively.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*User, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE lower(email) = lower($1)`, email)
	return scanUser(row)
}

// SetVerificationCode stores a fresh email-verification code, replacing any
// previous one.
func (r *UserRepository) SetVerificationCode(ctx context.Context, email string, code int) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE users SET verification_code = $2, updated_at = now()
		WHERE lower(email) = lower($1)`,
		email, code,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Verify marks the account verified if the code matches the stored one, and
// clears the code. A non-matching code returns ErrInvalidCode.
func (r *UserRepository) Verify(ctx context.Context, email string, code int) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE users
		SET verified = TRUE, verification_code = NULL, updated_at = now()
		WHERE lower(email) = lower($1) AND verification_code = $2`,
		email, code,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrInvalidCode
	}
	return nil
}

// SetPasswordResetCode stores a fresh password-reset code for the account.
func (r *UserRepository) SetPasswordResetCode(ctx context.Context, email string, code int) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE users SET password_reset_code = $2, updated_at = now()
		WHERE lower(email) = lower($1)`,
		email, code,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// CheckPasswordResetCode reports whether the given code matches the pending
// reset code for the account, without consuming it.
func (r *UserRepository) CheckPasswordResetCode(ctx context.Context, email string, code int) error {
	var n int
	err := r.pool.QueryRow(ctx, `
		SELECT count(*) FROM users
		WHERE lower(email) = lower($1) AND password_reset_code = $2`,
		email, code,
	).Scan(&n)
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrInvalidCode
	}
	return nil
}

// ResetPassword replaces the password hash if the reset code matches, and
// consumes the code.
func (r *UserRepository) ResetPassword(ctx context.Context, email string, code int, passwordHash string) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE users
		SET password_hash = $3, password_reset_code = NULL, updated_at = now()
		WHERE lower(email) = lower($1) AND password_reset_code = $2`,
		email, code, passwordHash,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrInvalidCode
	}
	return nil
}

// UpdateName renames the account.
func (r *UserRepository) UpdateName(ctx context.Context, id, name string) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE users SET name = $2, updated_at = now() WHERE id = $1`,
		id, name,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateAvatar stores the account's avatar URL.
func (r *UserRepository) UpdateAvatar(ctx context.Context, id, avatarURL string) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE users SET avatar_url = $2, updated_at = now() WHERE id = $1`,
		id, avatarURL,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdatePassword replaces the password hash for an authenticated change.
func (r *UserRepository) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE users SET password_hash = $2, updated_at = now() WHERE id = $1`,
		id, passwordHash,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes the account. Newsletters and their components cascade.
func (r *UserRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
