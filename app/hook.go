package app

import (
	"context"
	"net/http"

	"github.com/scuffedaim/matchview/app/observability/attr"
)

// WaitForShutdown stops the servers within shutdownTimeout and then releases
// the application's dependencies.
func (app *App) WaitForShutdown(servers ...*http.Server) error {
	logger := app.Observability.Provider.Logger
	logger.Info("Shutting down application")

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	var firstErr error
	for _, srv := range servers {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server forced to shutdown", attr.String("address", srv.Addr), attr.Error(err))
			if firstErr == nil {
				firstErr = err
			}
		}
	}

	if err := app.Close(); err != nil && firstErr == nil {
		firstErr = err
	}

	logger.Info("Application shut down gracefully")
	return firstErr
}
