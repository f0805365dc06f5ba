package matchhandlers

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	matchservice "github.com/scuffedaim/matchview/app/modules/match/application"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// startSpan opens a span for an HTTP handler and returns the request bound to it.
func (h *MatchHandlers) startSpan(r *http.Request, name string) (*http.Request, trace.Span) {
	attrs := []attribute.KeyValue{attribute.String("match_id", chi.URLParam(r, "id"))}
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		attrs = append(attrs, attribute.String("http.route", rctx.RoutePattern()))
	}
	ctx, span := h.tracer.Start(r.Context(), name, trace.WithAttributes(attrs...))
	return r.WithContext(ctx), span
}

func (h *MatchHandlers) HandleRounds(w http.ResponseWriter, r *http.Request) {
	r, span := h.startSpan(r, "HandleRounds")
	defer span.End()

	filter, err := h.viewFilter(r)
	if err != nil {
		h.writeJSONError(w, r, err)
		return
	}

	view, err := h.service.GetMatchView(r.Context(), matchIDParam(r), filter)
	if err != nil {
		span.RecordError(err)
		h.writeJSONError(w, r, err)
		return
	}

	w.Header().Set("Cache-Control", "no-store")
	writeJSON(w, http.StatusOK, view)
}

func (h *MatchHandlers) HandleRoundChart(w http.ResponseWriter, r *http.Request) {
	r, span := h.startSpan(r, "HandleRoundChart")
	defer span.End()

	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		h.writeJSONError(w, r, fmt.Errorf("%w: %q", matchservice.ErrRoundNotFound, chi.URLParam(r, "index")))
		return
	}

	png, err := h.service.RoundChart(r.Context(), matchIDParam(r), index)
	if err != nil {
		span.RecordError(err)
		h.writeJSONError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Content-Length", strconv.Itoa(len(png)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(png)
}

func (h *MatchHandlers) HandleExport(w http.ResponseWriter, r *http.Request) {
	r, span := h.startSpan(r, "HandleExport")
	defer span.End()

	filter, err := h.viewFilter(r)
	if err != nil {
		h.writeJSONError(w, r, err)
		return
	}

	matchID := matchIDParam(r)
	data, err := h.service.ExportMatch(r.Context(), matchID, filter)
	if err != nil {
		span.RecordError(err)
		h.writeJSONError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="match-%s.xlsx"`, matchID))
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
