package matchhandlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	matchservice "github.com/scuffedaim/matchview/app/modules/match/application"
	matchdomain "github.com/scuffedaim/matchview/app/modules/match/domain"
	matchclient "github.com/scuffedaim/matchview/app/modules/match/infrastructure/client"
	"github.com/scuffedaim/matchview/app/observability/attr"
	"go.opentelemetry.io/otel/trace"
)

// MatchHandlers implements the Handlers interface.
type MatchHandlers struct {
	service  matchservice.Service
	logger   *slog.Logger
	tracer   trace.Tracer
	upgrader websocket.Upgrader
	now      func() time.Time
}

// NewMatchHandlers creates a new MatchHandlers instance. allowedOrigins lists
// the cross-origin pages that may open the live stream.
func NewMatchHandlers(
	service matchservice.Service,
	allowedOrigins []string,
	logger *slog.Logger,
	tracer trace.Tracer,
) Handlers {
	return &MatchHandlers{
		service: service,
		logger:  logger,
		tracer:  tracer,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     checkOrigin(allowedOrigins),
		},
		now: time.Now,
	}
}

func matchIDParam(r *http.Request) matchdomain.MatchID {
	return matchdomain.MatchID(chi.URLParam(r, "id"))
}

// viewFilter reads the optional ?since= query parameter.
func (h *MatchHandlers) viewFilter(r *http.Request) (matchservice.ViewFilter, error) {
	since, err := matchservice.ParseSince(r.URL.Query().Get("since"), h.now())
	if err != nil {
		return matchservice.ViewFilter{}, err
	}
	return matchservice.ViewFilter{Since: since}, nil
}

// statusFor maps service errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, matchservice.ErrInvalidMatchID), errors.Is(err, matchservice.ErrInvalidSince):
		return http.StatusBadRequest
	case errors.Is(err, matchservice.ErrRoundNotFound), errors.Is(err, matchclient.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, matchservice.ErrNoSnapshot), errors.Is(err, matchservice.ErrRegistryClosed):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// publicMessage is the error text shown to clients.
func publicMessage(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "invalid request"
	case http.StatusNotFound:
		return "match not found"
	case http.StatusServiceUnavailable:
		return "match data is not available yet, try again shortly"
	default:
		return http.StatusText(status)
	}
}

// logFailure logs a failed request and returns the status it maps to.
func (h *MatchHandlers) logFailure(r *http.Request, err error) int {
	status := statusFor(err)
	level := slog.LevelWarn
	if status >= http.StatusInternalServerError && status != http.StatusServiceUnavailable {
		level = slog.LevelError
	}
	h.logger.LogAttrs(r.Context(), level, "Match request failed",
		attr.String("path", r.URL.Path),
		attr.Int("status", status),
		attr.Error(err),
	)
	return status
}

func (h *MatchHandlers) writeJSONError(w http.ResponseWriter, r *http.Request, err error) {
	status := h.logFailure(r, err)
	writeJSON(w, status, map[string]string{"error": publicMessage(status)})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
