// Package store provides the data access layer over PostgreSQL. All queries
// are single-record reads and writes against the api_keys table, executed on
// a shared pgxpool. The dynamic list filter is built with squirrel.
package store

import (
	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5/pgxpool"
)

// psql builds queries with $n placeholders for the pgx driver.
var psql = squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)

// Store is the central data access object. One Store is created at startup
// and shared across all request handlers; the pool handles concurrency.
type Store struct {
	pool *pgxpool.Pool
}

// New creates a Store backed by pool.
func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Pool returns the underlying pgxpool for callers that need direct access
// (e.g., the healthz ping).
func (s *Store) Pool() *pgxpool.Pool { return s.pool }
