// ABOUTME: HTTP server struct, constructor, and handler wiring for keyward.
// ABOUTME: Holds the store and the issuer/revoker components used by handlers.
package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/scarson/keyward/internal/keys"
	"github.com/scarson/keyward/internal/store"
)

// Server holds the dependencies for the HTTP layer.
type Server struct {
	store   *store.Store
	issuer  *keys.Issuer
	revoker *keys.Revoker
}

// NewServer creates a Server wired to s.
func NewServer(s *store.Store) *Server {
	return &Server{
		store:   s,
		issuer:  keys.NewIssuer(s),
		revoker: keys.NewRevoker(s),
	}
}

// Handler builds and returns the http.Handler.
func (srv *Server) Handler() http.Handler {
	var db *pgxpool.Pool
	if srv.store != nil {
		db = srv.store.Pool()
	}
	r := chi.NewRouter()

	// Security headers first so they appear on every response including errors.
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			w.Header().Set("X-Frame-Options", "DENY")
			w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
			next.ServeHTTP(w, r)
		})
	})

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	// 64 KB body limit — the largest legitimate request here is a short JSON
	// object, and unbounded bodies are an OOM vector.
	r.Use(middleware.RequestSize(64 << 10))
	r.Use(middleware.Recoverer)

	// ── Infrastructure endpoints ──────────────────────────────────────────────
	r.Get("/healthz", healthzHandler(db))
	r.Handle("/metrics", promhttp.Handler())

	// ── API v1 ────────────────────────────────────────────────────────────────
	r.Route("/api/v1/keys", func(r chi.Router) {
		r.Post("/", srv.createAPIKeyHandler)
		r.Get("/", srv.listAPIKeysHandler)
		r.Post("/{id}/revoke", srv.revokeAPIKeyHandler)
	})

	return r
}

// writeJSON writes v as the JSON response body with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("writeJSON: encode failed", "error", err)
	}
}

// healthResponse is the JSON body for /healthz.
type healthResponse struct {
	Status string `json:"status"`
	DB     string `json:"db,omitempty"`
}

// healthzHandler returns 200 {"status":"ok"} when the DB is reachable,
// or 503 {"status":"degraded","db":"unavailable"} when it is not.
func healthzHandler(db *pgxpool.Pool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := healthResponse{Status: "ok"}
		statusCode := http.StatusOK

		if db == nil {
			resp.Status = "degraded"
			resp.DB = "unavailable"
			statusCode = http.StatusServiceUnavailable
		} else if err := db.Ping(r.Context()); err != nil {
			slog.WarnContext(r.Context(), "healthz: db ping failed", "error", err)
			resp.Status = "degraded"
			resp.DB = "unavailable"
			statusCode = http.StatusServiceUnavailable
		}

		writeJSON(w, statusCode, resp)
	}
}
