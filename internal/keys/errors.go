package keys

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when no record exists for the given id.
var ErrNotFound = errors.New("api key not found")

// ErrNotOwner is returned when the requester is not the key's owner.
// Ownership is checked before revoked state, so a non-owner learns nothing
// about whether the key is already revoked.
var ErrNotOwner = errors.New("requester does not own this api key")

// ValidationError reports a missing required input. Raised before any store
// access — a request that fails validation never touches persistence.
type ValidationError struct {
	Field string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s is required", e.Field)
}
