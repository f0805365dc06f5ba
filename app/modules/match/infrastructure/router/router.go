package matchrouter

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	matchhandlers "github.com/scuffedaim/matchview/app/modules/match/infrastructure/handlers"
	"golang.org/x/time/rate"
)

const (
	PagePattern      = "/match/{id}"
	StreamPattern    = "/match/{id}/ws"
	ChartPattern     = "/match/{id}/rounds/{index}/chart.png"
	ExportPattern    = "/match/{id}/export.xlsx"
	RoundsAPIPattern = "/api/match/{id}/rounds"
	// ShortPagePattern keeps the bare /{id} links of the old page working.
	// Upstream match ids are numeric, so other top-level paths stay free.
	ShortPagePattern = "/{id:[0-9]+}"
)

// Config controls the middleware in front of the match routes.
type Config struct {
	AllowedOrigins []string
	RateLimit      rate.Limit
	RateBurst      int
}

// RegisterRoutes mounts the match module's HTTP routes on r.
func RegisterRoutes(r chi.Router, handlers matchhandlers.Handlers, cfg Config) {
	limiter := matchhandlers.NewIPRateLimiter(cfg.RateLimit, cfg.RateBurst)

	r.Group(func(r chi.Router) {
		r.Use(matchhandlers.CORSMiddleware(cfg.AllowedOrigins))
		r.Use(matchhandlers.RateLimitMiddleware(limiter))

		r.Get(PagePattern, handlers.HandlePage)
		r.Get(StreamPattern, handlers.HandleWebSocket)
		r.Get(ChartPattern, handlers.HandleRoundChart)
		r.Get(ExportPattern, handlers.HandleExport)
		r.Get(RoundsAPIPattern, handlers.HandleRounds)
		r.Get(ShortPagePattern, redirectToPage)
	})
}

func redirectToPage(w http.ResponseWriter, r *http.Request) {
	target := "/match/" + chi.URLParam(r, "id")
	if r.URL.RawQuery != "" {
		target += "?" + r.URL.RawQuery
	}
	http.Redirect(w, r, target, http.StatusFound)
}
