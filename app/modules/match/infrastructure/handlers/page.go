package matchhandlers

import (
	"bytes"
	"embed"
	"html/template"
	"net/http"

	matchservice "github.com/scuffedaim/matchview/app/modules/match/application"
	"github.com/scuffedaim/matchview/app/observability/attr"
)

//go:embed templates/*.html
var templateFS embed.FS

var pageTemplates = template.Must(template.New("").ParseFS(templateFS, "templates/*.html"))

type pageData struct {
	MatchID string
	View    *matchservice.MatchView
	Since   string
	// SinceMillis is the resolved filter instant; 0 keeps every round.
	SinceMillis int64
}

type errorPageData struct {
	MatchID string
	Status  int
	Message string
}

func (h *MatchHandlers) HandlePage(w http.ResponseWriter, r *http.Request) {
	r, span := h.startSpan(r, "HandlePage")
	defer span.End()

	matchID := matchIDParam(r)
	filter, err := h.viewFilter(r)
	if err != nil {
		h.renderError(w, r, err)
		return
	}

	view, err := h.service.GetMatchView(r.Context(), matchID, filter)
	if err != nil {
		span.RecordError(err)
		h.renderError(w, r, err)
		return
	}

	data := pageData{
		MatchID: matchID.String(),
		View:    view,
		Since:   r.URL.Query().Get("since"),
	}
	if !filter.Since.IsZero() {
		data.SinceMillis = filter.Since.UnixMilli()
	}
	h.render(w, r, http.StatusOK, "match.html", data)
}

func (h *MatchHandlers) renderError(w http.ResponseWriter, r *http.Request, err error) {
	status := h.logFailure(r, err)
	h.render(w, r, status, "error.html", errorPageData{
		MatchID: matchIDParam(r).String(),
		Status:  status,
		Message: publicMessage(status),
	})
}

// render executes a template into a buffer so a failing template never
// leaves a half-written page.
func (h *MatchHandlers) render(w http.ResponseWriter, r *http.Request, status int, name string, data any) {
	var buf bytes.Buffer
	if err := pageTemplates.ExecuteTemplate(&buf, name, data); err != nil {
		h.logger.ErrorContext(r.Context(), "Failed to render page",
			attr.String("template", name),
			attr.Error(err),
		)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}
