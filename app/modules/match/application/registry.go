package matchservice

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	matchdomain "github.com/scuffedaim/matchview/app/modules/match/domain"
	matchclient "github.com/scuffedaim/matchview/app/modules/match/infrastructure/client"
	"github.com/scuffedaim/matchview/app/observability/attr"
	matchmetrics "github.com/scuffedaim/matchview/app/observability/metrics/match"
)

// RegistryConfig controls watcher lifetimes.
type RegistryConfig struct {
	IdleTimeout  time.Duration
	PollInterval time.Duration
}

// Registry owns one Watcher per match and reaps the ones nobody looks at.
type Registry struct {
	cfg       RegistryConfig
	refresher *Refresher
	onCommit  CommitFunc
	logger    *slog.Logger
	metrics   matchmetrics.MatchMetrics
	now       func() time.Time

	ctx    context.Context
	cancel context.CancelFunc

	mu       sync.Mutex
	watchers map[matchdomain.MatchID]*Watcher
	closed   bool
}

// NewRegistry creates a Registry. Watchers run until reaped or Close.
func NewRegistry(
	cfg RegistryConfig,
	refresher *Refresher,
	onCommit CommitFunc,
	logger *slog.Logger,
	metrics matchmetrics.MatchMetrics,
) *Registry {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = PollInterval
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Registry{
		cfg:       cfg,
		refresher: refresher,
		onCommit:  onCommit,
		logger:    logger,
		metrics:   metrics,
		now:       time.Now,
		ctx:       ctx,
		cancel:    cancel,
		watchers:  make(map[matchdomain.MatchID]*Watcher),
	}
}

// Get returns the watcher for matchID, starting it if needed, and marks it
// viewed. The first caller for a new watcher runs its initial cycle. A match
// upstream does not know is not watched: Get returns a nil watcher and the
// not-found error.
func (r *Registry) Get(ctx context.Context, matchID matchdomain.MatchID) (*Watcher, error) {
	w, err := r.watcher(matchID)
	if err != nil {
		return nil, err
	}
	w.touch()
	if err := w.Prime(ctx); err != nil {
		if r.dropUnknown(w, err, 0) {
			return nil, err
		}
		return w, err
	}
	return w, nil
}

// Acquire is Get for long-lived viewers. The watcher is not reaped until
// release is called.
func (r *Registry) Acquire(ctx context.Context, matchID matchdomain.MatchID) (*Watcher, func(), error) {
	w, err := r.watcher(matchID)
	if err != nil {
		return nil, nil, err
	}
	w.addViewer(1)

	var once sync.Once
	release := func() {
		once.Do(func() { w.addViewer(-1) })
	}

	if err := w.Prime(ctx); err != nil {
		if r.dropUnknown(w, err, 1) {
			release()
			return nil, nil, err
		}
		return w, release, err
	}
	return w, release, nil
}

// dropUnknown stops w when its first cycle found no such match upstream and
// no viewer besides the caller's own holds it. It reports whether w was
// stopped.
func (r *Registry) dropUnknown(w *Watcher, err error, own int) bool {
	if !errors.Is(err, matchclient.ErrNotFound) || w.Snapshot() != nil {
		return false
	}

	r.mu.Lock()
	if w.viewerCount() > own {
		r.mu.Unlock()
		return false
	}
	if current, ok := r.watchers[w.MatchID()]; ok && current == w {
		delete(r.watchers, w.MatchID())
		r.metrics.SetActiveWatchers(len(r.watchers))
	}
	r.mu.Unlock()

	w.Stop()
	r.logger.Info("Dropped watcher of unknown match", attr.MatchID("match_id", w.MatchID()))
	return true
}

func (r *Registry) watcher(matchID matchdomain.MatchID) (*Watcher, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil, ErrRegistryClosed
	}
	if w, ok := r.watchers[matchID]; ok {
		return w, nil
	}

	w := newWatcher(matchID, r.refresher, r.onCommit, r.logger, r.metrics, r.cfg.PollInterval, r.now)
	w.start(r.ctx)
	r.watchers[matchID] = w
	r.metrics.SetActiveWatchers(len(r.watchers))
	r.logger.Info("Started match watcher", attr.MatchID("match_id", matchID))
	return w, nil
}

// Run reaps idle watchers until ctx is cancelled.
func (r *Registry) Run(ctx context.Context) {
	every := r.cfg.IdleTimeout / 4
	if every < time.Second {
		every = time.Second
	}
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.Reap()
		}
	}
}

// Reap stops every watcher idle for at least the idle timeout and returns
// how many were stopped.
func (r *Registry) Reap() int {
	now := r.now()

	r.mu.Lock()
	var idle []*Watcher
	for id, w := range r.watchers {
		if w.idleSince(now, r.cfg.IdleTimeout) {
			idle = append(idle, w)
			delete(r.watchers, id)
		}
	}
	r.metrics.SetActiveWatchers(len(r.watchers))
	r.mu.Unlock()

	for _, w := range idle {
		w.Stop()
		r.logger.Info("Stopped idle match watcher", attr.MatchID("match_id", w.MatchID()))
	}
	return len(idle)
}

// Lookup returns the running watcher for matchID without starting one.
func (r *Registry) Lookup(matchID matchdomain.MatchID) (*Watcher, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	w, ok := r.watchers[matchID]
	return w, ok
}

// Active returns the number of running watchers.
func (r *Registry) Active() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.watchers)
}

// Close stops every watcher. Later Get and Acquire calls fail.
func (r *Registry) Close() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	watchers := make([]*Watcher, 0, len(r.watchers))
	for _, w := range r.watchers {
		watchers = append(watchers, w)
	}
	r.watchers = make(map[matchdomain.MatchID]*Watcher)
	r.metrics.SetActiveWatchers(0)
	r.mu.Unlock()

	r.cancel()
	for _, w := range watchers {
		w.Stop()
	}
}
