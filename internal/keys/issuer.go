package keys

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/scarson/keyward/internal/auth"
)

// Issuer creates new API keys. The plaintext is returned exactly once and is
// never persisted or logged; only the sha256 digest reaches the store.
type Issuer struct {
	store Store
}

// NewIssuer returns an Issuer backed by store.
func NewIssuer(store Store) *Issuer {
	return &Issuer{store: store}
}

// Issue generates a fresh key for ownerID, persists its record, and returns
// the plaintext together with the stored record. Both inputs are required;
// validation failures are reported before the store is touched.
func (iss *Issuer) Issue(ctx context.Context, ownerID, label string) (string, *APIKey, error) {
	if ownerID == "" {
		return "", nil, &ValidationError{Field: "owner_id"}
	}
	if label == "" {
		return "", nil, &ValidationError{Field: "label"}
	}

	rawKey, keyDigest, err := auth.GenerateAPIKey()
	if err != nil {
		return "", nil, err
	}

	key, err := iss.store.CreateAPIKey(ctx, ownerID, label, keyDigest)
	if err != nil {
		return "", nil, fmt.Errorf("create api key: %w", err)
	}

	// Label only — never the plaintext or digest.
	slog.InfoContext(ctx, "api key issued", "label", label)

	return rawKey, key, nil
}
