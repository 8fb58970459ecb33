// Package keys implements the API key lifecycle: issuance of a new bearer
// credential and owner-checked revocation. Both components are stateless and
// hold only a Store; all record state lives in the database.
package keys

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// Status is the lifecycle state of an API key. The only transition is
// active → revoked; a revoked key never becomes active again.
type Status string

const (
	StatusActive  Status = "active"
	StatusRevoked Status = "revoked"
)

// APIKey is one issued credential record. KeyDigest is the sha256 hex of the
// plaintext — the plaintext itself is never stored and never appears here.
type APIKey struct {
	ID         uuid.UUID
	OwnerID    string
	Label      string
	KeyDigest  string
	Status     Status
	CreatedAt  time.Time
	LastUsedAt sql.NullTime // reserved for verification tracking; never written here
}

// Store is the persistence surface the issuer and revoker depend on.
// Implemented by internal/store; tests substitute an in-memory fake.
// GetAPIKey returns (nil, nil) when no record exists.
type Store interface {
	CreateAPIKey(ctx context.Context, ownerID, label, keyDigest string) (*APIKey, error)
	GetAPIKey(ctx context.Context, id uuid.UUID) (*APIKey, error)
	RevokeAPIKey(ctx context.Context, id uuid.UUID) error
}
