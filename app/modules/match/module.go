package match

import (
	"context"
	"log/slog"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/scuffedaim/matchview/app/eventbus"
	matchservice "github.com/scuffedaim/matchview/app/modules/match/application"
	matchclient "github.com/scuffedaim/matchview/app/modules/match/infrastructure/client"
	matchhandlers "github.com/scuffedaim/matchview/app/modules/match/infrastructure/handlers"
	matchdb "github.com/scuffedaim/matchview/app/modules/match/infrastructure/repositories"
	matchrouter "github.com/scuffedaim/matchview/app/modules/match/infrastructure/router"
	"github.com/scuffedaim/matchview/app/observability"
	"github.com/scuffedaim/matchview/config"
	"github.com/uptrace/bun"
	"golang.org/x/time/rate"
)

// Module represents the match module.
type Module struct {
	config        *config.Config
	observability observability.Observability
	service       *matchservice.MatchService
	handlers      matchhandlers.Handlers
	logger        *slog.Logger

	mu         sync.Mutex
	cancelFunc context.CancelFunc
}

// NewMatchModule creates the match module and mounts its routes on httpRouter.
// db may be nil, in which case beatmap metadata is only cached in memory.
func NewMatchModule(
	ctx context.Context,
	cfg *config.Config,
	obs observability.Observability,
	eventBus eventbus.EventBus,
	httpRouter chi.Router,
	db *bun.DB,
) (*Module, error) {
	logger := obs.Provider.Logger
	tracer := obs.Registry.Tracer

	logger.InfoContext(ctx, "Initializing match module")

	client := matchclient.NewClient(matchclient.Config{
		BaseURL:           cfg.API.BaseURL,
		Timeout:           cfg.API.Timeout,
		RequestsPerSecond: cfg.API.RequestsPerSecond,
		Burst:             cfg.API.Burst,
		UserAgent:         "matchview/" + cfg.Observability.Version,
	}, logger, tracer)

	var store matchdb.Repository
	if db != nil {
		store = matchdb.NewRepository(db)
	}

	service := matchservice.NewMatchService(
		matchservice.Sources{Scores: client, Beatmaps: client, Players: client},
		store,
		eventBus,
		logger,
		obs.Registry.MatchMetrics,
		tracer,
		matchservice.RegistryConfig{IdleTimeout: cfg.Watcher.IdleTimeout},
	)

	handlers := matchhandlers.NewMatchHandlers(service, cfg.HTTP.AllowedOrigins, logger, tracer)

	if httpRouter != nil {
		matchrouter.RegisterRoutes(httpRouter, handlers, matchrouter.Config{
			AllowedOrigins: cfg.HTTP.AllowedOrigins,
			RateLimit:      rate.Limit(cfg.HTTP.RateLimit),
			RateBurst:      cfg.HTTP.RateBurst,
		})
	}

	return &Module{
		config:        cfg,
		observability: obs,
		service:       service,
		handlers:      handlers,
		logger:        logger,
	}, nil
}

// Run starts the idle watcher reaper and blocks until ctx is done.
func (m *Module) Run(ctx context.Context, wg *sync.WaitGroup) {
	m.logger.InfoContext(ctx, "Starting match module")

	ctx, cancel := context.WithCancel(ctx)
	m.mu.Lock()
	m.cancelFunc = cancel
	m.mu.Unlock()
	defer cancel()

	if wg != nil {
		defer wg.Done()
	}

	m.service.Registry().Run(ctx)
	m.logger.InfoContext(ctx, "Match module goroutine stopped")
}

// Close stops every watcher.
func (m *Module) Close() error {
	m.logger.Info("Stopping match module")

	m.mu.Lock()
	if m.cancelFunc != nil {
		m.cancelFunc()
	}
	m.mu.Unlock()
	m.service.Close()

	m.logger.Info("Match module stopped")
	return nil
}

// GetService returns the match service.
func (m *Module) GetService() matchservice.Service {
	return m.service
}
