package app

import (
	"context"
	"fmt"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/scuffedaim/matchview/app/eventbus"
	"github.com/scuffedaim/matchview/app/modules/match"
	"github.com/scuffedaim/matchview/app/observability"
	"github.com/scuffedaim/matchview/app/observability/attr"
	"github.com/scuffedaim/matchview/config"
	"github.com/scuffedaim/matchview/db/bundb"
	"github.com/uptrace/bun"
)

// App holds the process-wide dependencies and the modules built on them.
type App struct {
	Config        *config.Config
	Observability observability.Observability
	DB            *bun.DB
	EventBus      eventbus.EventBus
	Router        chi.Router
	MatchModule   *match.Module

	wg sync.WaitGroup
}

// NewApp initializes the application with the necessary services and configuration.
func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {
	obs, err := observability.Init(ctx, observability.Config{
		ServiceName:    "matchview",
		Environment:    cfg.Observability.Environment,
		Version:        cfg.Observability.Version,
		LogLevel:       cfg.Observability.LogLevel,
		MetricsAddress: cfg.Observability.MetricsAddress,

		TempoEndpoint:   cfg.Observability.TempoEndpoint,
		TempoInsecure:   cfg.Observability.TempoInsecure,
		TempoSampleRate: cfg.Observability.TempoSampleRate,
		OTLPEndpoint:    cfg.Observability.OTLPEndpoint,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize observability: %w", err)
	}
	app, err := newApp(ctx, cfg, obs)
	if err != nil {
		_ = obs.Shutdown(ctx)
		return nil, err
	}
	return app, nil
}

func newApp(ctx context.Context, cfg *config.Config, obs observability.Observability) (*App, error) {
	logger := obs.Provider.Logger
	app := &App{Config: cfg, Observability: obs}

	if cfg.Postgres.DSN != "" {
		db, err := bundb.NewBunDB(ctx, cfg.Postgres)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize database: %w", err)
		}
		app.DB = db
		logger.InfoContext(ctx, "Beatmap cache backed by Postgres")
	} else {
		logger.InfoContext(ctx, "No Postgres DSN configured, beatmap cache is in-memory only")
	}

	eventBus, err := eventbus.NewEventBus(cfg.NATS.URL, logger)
	if err != nil {
		app.closeDB()
		return nil, fmt.Errorf("failed to create event bus: %w", err)
	}
	app.EventBus = eventBus

	app.Router = app.newHTTPRouter()

	matchModule, err := match.NewMatchModule(ctx, cfg, obs, eventBus, app.Router, app.DB)
	if err != nil {
		_ = eventBus.Close()
		app.closeDB()
		return nil, fmt.Errorf("failed to initialize match module: %w", err)
	}
	app.MatchModule = matchModule

	logger.InfoContext(ctx, "Application initialized",
		attr.String("http_address", cfg.HTTP.Address),
		attr.String("api_base_url", cfg.API.BaseURL),
	)
	return app, nil
}

// Close releases every dependency in reverse order of creation.
func (app *App) Close() error {
	logger := app.Observability.Provider.Logger

	var firstErr error
	if app.MatchModule != nil {
		if err := app.MatchModule.Close(); err != nil {
			firstErr = err
		}
	}
	app.wg.Wait()

	if app.EventBus != nil {
		if err := app.EventBus.Close(); err != nil {
			logger.Error("Failed to close event bus", attr.Error(err))
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	if err := app.closeDB(); err != nil && firstErr == nil {
		firstErr = err
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := app.Observability.Shutdown(ctx); err != nil {
		logger.Error("Failed to flush traces", attr.Error(err))
		if firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (app *App) closeDB() error {
	if app.DB == nil {
		return nil
	}
	if err := app.DB.Close(); err != nil {
		app.Observability.Provider.Logger.Error("Error closing database connection", attr.Error(err))
		return err
	}
	return nil
}
