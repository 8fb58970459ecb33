// ABOUTME: Store methods for the API key lifecycle: create, get, revoke, list.
// ABOUTME: Each method touches exactly one table; Postgres guarantees row atomicity.
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/scarson/keyward/internal/keys"
)

const apiKeyColumns = "id, owner_id, label, key_digest, status, created_at, last_used_at"

func scanAPIKey(row pgx.Row) (*keys.APIKey, error) {
	var k keys.APIKey
	err := row.Scan(&k.ID, &k.OwnerID, &k.Label, &k.KeyDigest, &k.Status, &k.CreatedAt, &k.LastUsedAt)
	if err != nil {
		return nil, err
	}
	return &k, nil
}

// CreateAPIKey inserts a new active key record and returns it with the
// store-assigned id and creation timestamp. keyDigest is sha256(raw key).
func (s *Store) CreateAPIKey(ctx context.Context, ownerID, label, keyDigest string) (*keys.APIKey, error) {
	row := s.pool.QueryRow(ctx,
		`INSERT INTO api_keys (owner_id, label, key_digest)
		 VALUES ($1, $2, $3)
		 RETURNING `+apiKeyColumns,
		ownerID, label, keyDigest,
	)
	k, err := scanAPIKey(row)
	if err != nil {
		return nil, fmt.Errorf("create api key: %w", err)
	}
	return k, nil
}

// GetAPIKey returns the key record for id, or (nil, nil) if none exists.
func (s *Store) GetAPIKey(ctx context.Context, id uuid.UUID) (*keys.APIKey, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+apiKeyColumns+` FROM api_keys WHERE id = $1`, id)
	k, err := scanAPIKey(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get api key: %w", err)
	}
	return k, nil
}

// RevokeAPIKey marks the key as revoked. The update is idempotent: revoking
// an already-revoked key rewrites the same value, and no path ever sets the
// status back to active.
func (s *Store) RevokeAPIKey(ctx context.Context, id uuid.UUID) error {
	if _, err := s.pool.Exec(ctx,
		`UPDATE api_keys SET status = 'revoked' WHERE id = $1`, id); err != nil {
		return fmt.Errorf("revoke api key: %w", err)
	}
	return nil
}

// ListOwnerAPIKeys returns the owner's keys ordered by creation time
// descending, optionally filtered by status. key_digest is excluded from the
// result — digests never leave the store layer on the list path.
func (s *Store) ListOwnerAPIKeys(ctx context.Context, ownerID string, status keys.Status) ([]keys.APIKey, error) {
	q := psql.
		Select("id", "owner_id", "label", "status", "created_at", "last_used_at").
		From("api_keys").
		Where(squirrel.Eq{"owner_id": ownerID}).
		OrderBy("created_at DESC", "id")
	if status != "" {
		q = q.Where(squirrel.Eq{"status": status})
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list query: %w", err)
	}

	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("list api keys: %w", err)
	}
	defer rows.Close()

	var out []keys.APIKey
	for rows.Next() {
		var k keys.APIKey
		if err := rows.Scan(&k.ID, &k.OwnerID, &k.Label, &k.Status, &k.CreatedAt, &k.LastUsedAt); err != nil {
			return nil, fmt.Errorf("scan api key: %w", err)
		}
		out = append(out, k)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list api keys: %w", err)
	}
	return out, nil
}
