// ABOUTME: HTTP handlers for API key management: issue, list, revoke.
// ABOUTME: Maps keys package errors onto 400/403/404; everything else is a generic 500.
package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/scarson/keyward/internal/keys"
)

// createAPIKeyBody is the JSON request body for POST /api/v1/keys.
type createAPIKeyBody struct {
	OwnerID string `json:"owner_id"`
	Label   string `json:"label"`
}

// createAPIKeyResponse is the JSON response body for POST /api/v1/keys.
// api_key is shown exactly once — it cannot be retrieved again.
type createAPIKeyResponse struct {
	ID        string `json:"id"`
	OwnerID   string `json:"owner_id"`
	Label     string `json:"label"`
	APIKey    string `json:"api_key"` // shown exactly once; store securely
	CreatedAt string `json:"created_at"`
	Message   string `json:"message"`
}

// apiKeyEntry is one row in the GET /api/v1/keys response.
// Never contains api_key or key_digest.
type apiKeyEntry struct {
	ID         string `json:"id"`
	OwnerID    string `json:"owner_id"`
	Label      string `json:"label"`
	Status     string `json:"status"`
	CreatedAt  string `json:"created_at"`
	LastUsedAt string `json:"last_used_at,omitempty"`
}

// revokeAPIKeyBody is the JSON request body for POST /api/v1/keys/{id}/revoke.
type revokeAPIKeyBody struct {
	OwnerID string `json:"owner_id"`
}

// messageResponse is a plain confirmation body.
type messageResponse struct {
	Message string `json:"message"`
}

// createAPIKeyHandler handles POST /api/v1/keys.
// The plaintext key is returned exactly once in the response.
func (srv *Server) createAPIKeyHandler(w http.ResponseWriter, r *http.Request) {
	var req createAPIKeyBody
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	rawKey, key, err := srv.issuer.Issue(r.Context(), req.OwnerID, req.Label)
	if err != nil {
		var verr *keys.ValidationError
		if errors.As(err, &verr) {
			http.Error(w, verr.Error(), http.StatusBadRequest)
			return
		}
		slog.ErrorContext(r.Context(), "issue api key", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	keysIssued.Inc()
	writeJSON(w, http.StatusCreated, createAPIKeyResponse{
		ID:        key.ID.String(),
		OwnerID:   key.OwnerID,
		Label:     key.Label,
		APIKey:    rawKey,
		CreatedAt: key.CreatedAt.Format(time.RFC3339),
		Message:   "this key is shown only once; store it securely",
	})
}

// listAPIKeysHandler handles GET /api/v1/keys?owner_id=&status=.
// Never returns key_digest or plaintext keys.
func (srv *Server) listAPIKeysHandler(w http.ResponseWriter, r *http.Request) {
	ownerID := r.URL.Query().Get("owner_id")
	if ownerID == "" {
		http.Error(w, "owner_id is required", http.StatusBadRequest)
		return
	}
	status := keys.Status(r.URL.Query().Get("status"))
	if status != "" && status != keys.StatusActive && status != keys.StatusRevoked {
		http.Error(w, "status must be active or revoked", http.StatusBadRequest)
		return
	}

	rows, err := srv.store.ListOwnerAPIKeys(r.Context(), ownerID, status)
	if err != nil {
		slog.ErrorContext(r.Context(), "list api keys", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	entries := make([]apiKeyEntry, 0, len(rows))
	for _, k := range rows {
		entry := apiKeyEntry{
			ID:        k.ID.String(),
			OwnerID:   k.OwnerID,
			Label:     k.Label,
			Status:    string(k.Status),
			CreatedAt: k.CreatedAt.Format(time.RFC3339),
		}
		if k.LastUsedAt.Valid {
			entry.LastUsedAt = k.LastUsedAt.Time.Format(time.RFC3339)
		}
		entries = append(entries, entry)
	}
	writeJSON(w, http.StatusOK, entries)
}

// revokeAPIKeyHandler handles POST /api/v1/keys/{id}/revoke.
// Only the key's owner may revoke it; re-revocation is a no-op success.
func (srv *Server) revokeAPIKeyHandler(w http.ResponseWriter, r *http.Request) {
	keyID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid key id", http.StatusBadRequest)
		return
	}

	var req revokeAPIKeyBody
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	if err := srv.revoker.Revoke(r.Context(), keyID, req.OwnerID); err != nil {
		var verr *keys.ValidationError
		switch {
		case errors.As(err, &verr):
			http.Error(w, verr.Error(), http.StatusBadRequest)
		case errors.Is(err, keys.ErrNotFound):
			http.Error(w, "api key not found", http.StatusNotFound)
		case errors.Is(err, keys.ErrNotOwner):
			http.Error(w, "forbidden", http.StatusForbidden)
		default:
			slog.ErrorContext(r.Context(), "revoke api key", "error", err)
			http.Error(w, "internal error", http.StatusInternalServerError)
		}
		return
	}

	keysRevoked.Inc()
	writeJSON(w, http.StatusOK, messageResponse{Message: "api key revoked"})
}
