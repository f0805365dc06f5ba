package app

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/scuffedaim/matchview/app/observability/attr"
)

// newHTTPRouter builds the root router with the process-wide routes. Modules
// mount their own routes on it.
func (app *App) newHTTPRouter() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	if app.Config.HTTP.TrustProxy {
		r.Use(middleware.RealIP)
	}
	r.Use(requestLogger(app.Observability.Provider.Logger))
	r.Use(middleware.Recoverer)

	r.Get("/healthz", app.handleHealth)
	if app.Config.Observability.MetricsAddress == "" {
		r.Handle("/metrics", app.metricsHandler())
	}
	return r
}

func (app *App) metricsHandler() http.Handler {
	return promhttp.HandlerFor(app.Observability.Registry.Prometheus, promhttp.HandlerOpts{})
}

type healthResponse struct {
	Status         string `json:"status"`
	Database       string `json:"database"`
	ActiveWatchers int    `json:"active_watchers"`
}

func (app *App) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{Status: "ok", Database: "disabled"}
	status := http.StatusOK

	if app.DB != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := app.DB.PingContext(ctx); err != nil {
			app.Observability.Provider.Logger.WarnContext(r.Context(), "Health check database ping failed", attr.Error(err))
			resp.Status = "degraded"
			resp.Database = "unreachable"
			status = http.StatusServiceUnavailable
		} else {
			resp.Database = "ok"
		}
	}
	if app.MatchModule != nil {
		resp.ActiveWatchers = app.MatchModule.GetService().ActiveWatchers()
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}

// requestLogger logs one line per request with the chi request id.
func requestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			defer func() {
				logger.LogAttrs(r.Context(), slog.LevelDebug, "HTTP request",
					attr.String("method", r.Method),
					attr.String("path", r.URL.Path),
					attr.Int("status", ww.Status()),
					attr.Int("bytes", ww.BytesWritten()),
					attr.Duration("duration", time.Since(start)),
					attr.String("request_id", middleware.GetReqID(r.Context())),
					attr.String("remote_ip", r.RemoteAddr),
				)
			}()
			next.ServeHTTP(ww, r)
		})
	}
}
