package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"

	"github.com/nkapur/syncbridge/internal/auth"
	"github.com/nkapur/syncbridge/internal/metrics"
	"github.com/nkapur/syncbridge/internal/region"
)

// Server holds dependencies for the read API backed by the metrics store.
type Server struct {
	DB      *pgxpool.Pool
	Metrics *metrics.Store
	Local   region.Region
	Peer    region.Region
	// JWTSecret guards /api when non-empty.
	JWTSecret string
}

// writeJSON writes a JSON response with the given status code
func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("failed to encode json response")
	}
}

// errorResponse is the standardized error body with correlation ID.
type errorResponse struct {
	Error         string `json:"error"`
	CorrelationID string `json:"correlation_id"`
}

func writeError(w http.ResponseWriter, r *http.Request, code int, message string) {
	writeJSON(w, code, errorResponse{
		Error:         message,
		CorrelationID: GetCorrelationID(r.Context()),
	})
}

// Routes builds the router for the observability endpoints.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(CorrelationMiddleware)

	r.Get("/healthz", s.handleHealthz)

	r.Route("/api", func(r chi.Router) {
		r.Use(auth.Middleware(s.JWTSecret))
		r.Get("/stats/sync", s.handleSyncStats)
		r.Get("/stats/sync/record", s.handleRecordSyncTime)
	})

	return r
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	if s.DB != nil {
		if err := s.DB.Ping(r.Context()); err != nil {
			writeError(w, r, http.StatusServiceUnavailable, "sink unreachable")
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "region": string(s.Local)})
}
