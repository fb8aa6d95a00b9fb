// Package api exposes the relay over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/okian/pixelrelay/internal/dispatch"
	"github.com/okian/pixelrelay/internal/domain/analytics"
	"github.com/okian/pixelrelay/internal/domain/storefront"
)

// maxBodyBytes bounds inbound payloads.
const maxBodyBytes = 1 << 20

// Dependencies required by the handlers.
type Dependencies interface {
	SeenAndRecord(ctx context.Context, id string) bool
	Unrecord(ctx context.Context, id string)
	Dispatch(ctx context.Context, e *storefront.Event) (dispatch.Outcome, error)
	UpdateConsent(ctx context.Context, state analytics.ConsentState) (analytics.ConsentSignals, error)
}

// Server wires HTTP routes for the relay.
type Server struct {
	healthHandler  *HealthHandler
	statsHandler   *StatsHandler
	eventsHandler  *EventsHandler
	consentHandler *ConsentHandler
}

// NewServer creates a server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider) *Server {
	return &Server{
		healthHandler:  NewHealthHandler(),
		statsHandler:   NewStatsHandler(statsProvider),
		eventsHandler:  NewEventsHandler(deps),
		consentHandler: NewConsentHandler(deps),
	}
}

// Register attaches all routes to mux.
func (s *Server) Register(mux *http.ServeMux) {
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("/events", TraceMiddleware(MetricsMiddleware(s.eventsHandler.HandlePostEvent, "events"), "events"))
	mux.HandleFunc("/consent", TraceMiddleware(MetricsMiddleware(s.consentHandler.HandlePostConsent, "consent"), "consent"))
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// readBody reads at most maxBodyBytes of the request body. On failure it
// writes the error response (413 when the limit was hit) and returns false.
func readBody(w http.ResponseWriter, r *http.Request, op string) ([]byte, bool) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err == nil {
		return body, true
	}
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		writeError(w, http.StatusRequestEntityTooLarge, "too_large", WrapKind(op, ErrTooLarge, err))
		return nil, false
	}
	writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
	return nil, false
}
