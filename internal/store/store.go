// Package store implements PostgreSQL persistence for users, newsletters and
// unsubscribe records on top of pgx.
package store

import (
	"embed"
	"errors"

	"github.com/jackc/pgx/v5/pgxpool"
)

//go:embed migrations/*.sql
var Migrations embed.FS

var (
	ErrNotFound    = errors.New("store: not found")
	ErrEmailTaken  = errors.New("store: email already taken")
	ErrNotActive   = errors.New("store: newsletter is not active")
	ErrInvalidCode = errors.New("store: invalid code")
)

// uniqueViolation is the PostgreSQL error code for unique constraint breaks.
const uniqueViolation = "23505"

// Store bundles the repositories over a shared connection pool.
type Store struct {
	Users        *UserRepository
	Newsletters  *NewsletterRepository
	Unsubscribes *UnsubscribeRepository
}

// New creates the repositories over the given pool.
func New(pool *pgxpool.Pool) *Store {
	return &Store{
		Users:        &UserRepository{pool: pool},
		Newsletters:  &NewsletterRepository{pool: pool},
		Unsubscribes: &UnsubscribeRepository{pool: pool},
	}
}
