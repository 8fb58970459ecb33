package keys

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
)

// Revoker marks issued API keys as revoked on behalf of their owner.
type Revoker struct {
	store Store
}

// NewRevoker returns a Revoker backed by store.
func NewRevoker(store Store) *Revoker {
	return &Revoker{store: store}
}

// Revoke flips the key's status to revoked after verifying that
// requestingOwnerID matches the record's owner. The ownership check runs
// regardless of current status, so a non-owner always gets ErrNotOwner.
// Revoking an already-revoked key is a no-op success: the status update is
// monotonic and the caller's intent is already satisfied.
func (rv *Revoker) Revoke(ctx context.Context, id uuid.UUID, requestingOwnerID string) error {
	if id == uuid.Nil {
		return &ValidationError{Field: "key id"}
	}
	if requestingOwnerID == "" {
		return &ValidationError{Field: "owner_id"}
	}

	key, err := rv.store.GetAPIKey(ctx, id)
	if err != nil {
		return fmt.Errorf("get api key: %w", err)
	}
	if key == nil {
		return ErrNotFound
	}
	if key.OwnerID != requestingOwnerID {
		return ErrNotOwner
	}

	if err := rv.store.RevokeAPIKey(ctx, id); err != nil {
		return fmt.Errorf("revoke api key: %w", err)
	}

	slog.InfoContext(ctx, "api key revoked", "id", id)
	return nil
}
