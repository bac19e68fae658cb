// Package repository reads the item catalog and user behavior events from
// PostgreSQL.
package repository

import (
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository implements interactions.Source on top of a pgx pool.
type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// limitArg turns a non-positive limit into NULL, which postgres reads as
// LIMIT ALL.
func limitArg(limit int) any {
	if limit <= 0 {
		return nil
	}
	return limit
}
