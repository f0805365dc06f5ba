// app/start.go

package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/scuffedaim/matchview/app/observability/attr"
)

const shutdownTimeout = 10 * time.Second

// Start serves HTTP until ctx is cancelled, then shuts down gracefully.
func (app *App) Start(ctx context.Context) error {
	logger := app.Observability.Provider.Logger

	app.wg.Add(1)
	go app.MatchModule.Run(ctx, &app.wg)

	servers := []*http.Server{app.newServer(app.Config.HTTP.Address, app.Router)}
	if addr := app.Config.Observability.MetricsAddress; addr != "" {
		metrics := chi.NewRouter()
		metrics.Handle("/metrics", app.metricsHandler())
		servers = append(servers, app.newServer(addr, metrics))
	}

	errCh := make(chan error, len(servers))
	for _, srv := range servers {
		logger.InfoContext(ctx, "Starting HTTP server", attr.String("address", srv.Addr))
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- fmt.Errorf("server %s: %w", srv.Addr, err)
			}
		}()
	}

	var serveErr error
	select {
	case <-ctx.Done():
	case serveErr = <-errCh:
		logger.ErrorContext(ctx, "HTTP server failed", attr.Error(serveErr))
	}

	if err := app.WaitForShutdown(servers...); err != nil && serveErr == nil {
		serveErr = err
	}
	return serveErr
}

func (app *App) newServer(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
}
