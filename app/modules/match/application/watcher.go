package matchservice

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	matchdomain "github.com/scuffedaim/matchview/app/modules/match/domain"
	"github.com/scuffedaim/matchview/app/observability/attr"
	matchmetrics "github.com/scuffedaim/matchview/app/observability/metrics/match"
)

// PollInterval is the fixed time between refresh ticks.
const PollInterval = 5 * time.Second

// Snapshot is the immutable result of a committed refresh cycle.
type Snapshot struct {
	MatchID     matchdomain.MatchID
	Scores      []matchdomain.Score
	Rounds      matchdomain.Rounds
	Beatmaps    map[matchdomain.BeatmapHash]matchdomain.BeatmapInfo
	Players     map[matchdomain.PlayerID]matchdomain.PlayerInfo
	RefreshedAt time.Time
	CycleID     string
}

// CommitFunc is called after a snapshot is published.
type CommitFunc func(ctx context.Context, snap *Snapshot)

// Watcher polls one match and keeps its latest snapshot.
//
// Ticks feed a queue holding at most one pending cycle, so cycles for a match
// never overlap; ticks arriving while the queue is full are dropped.
type Watcher struct {
	matchID   matchdomain.MatchID
	refresher *Refresher
	caches    *Caches
	onCommit  CommitFunc
	logger    *slog.Logger
	metrics   matchmetrics.MatchMetrics
	interval  time.Duration
	now       func() time.Time

	queue   chan struct{}
	alive   atomic.Bool
	cycleMu sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}

	mu       sync.RWMutex
	snapshot *Snapshot
	lastErr  error

	viewMu     sync.Mutex
	viewers    int
	lastViewed time.Time
}

func newWatcher(
	matchID matchdomain.MatchID,
	refresher *Refresher,
	onCommit CommitFunc,
	logger *slog.Logger,
	metrics matchmetrics.MatchMetrics,
	interval time.Duration,
	now func() time.Time,
) *Watcher {
	w := &Watcher{
		matchID:    matchID,
		refresher:  refresher,
		caches:     NewCaches(),
		onCommit:   onCommit,
		logger:     logger.With(attr.MatchID("match_id", matchID)),
		metrics:    metrics,
		interval:   interval,
		now:        now,
		queue:      make(chan struct{}, 1),
		done:       make(chan struct{}),
		lastViewed: now(),
	}
	w.alive.Store(true)
	return w
}

// MatchID returns the watched match.
func (w *Watcher) MatchID() matchdomain.MatchID { return w.matchID }

// start launches the ticker and worker goroutines.
func (w *Watcher) start(parent context.Context) {
	ctx, cancel := context.WithCancel(parent)
	w.cancel = cancel

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		w.tick(ctx)
	}()
	go func() {
		defer wg.Done()
		w.work(ctx)
	}()
	go func() {
		wg.Wait()
		close(w.done)
	}()
}

func (w *Watcher) tick(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.enqueue(ctx)
		}
	}
}

// enqueue schedules a cycle unless one is already pending.
func (w *Watcher) enqueue(ctx context.Context) bool {
	select {
	case w.queue <- struct{}{}:
		return true
	default:
		w.metrics.RecordSkippedTick(ctx)
		w.logger.DebugContext(ctx, "Refresh tick skipped, cycle still pending")
		return false
	}
}

func (w *Watcher) work(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.queue:
			_ = w.runCycle(ctx)
		}
	}
}

// Prime runs a cycle synchronously when no snapshot has been committed yet.
// Concurrent callers wait for the first one instead of fetching again.
func (w *Watcher) Prime(ctx context.Context) error {
	if w.Snapshot() != nil {
		return nil
	}
	w.cycleMu.Lock()
	defer w.cycleMu.Unlock()
	if w.Snapshot() != nil {
		return nil
	}
	return w.cycleLocked(ctx)
}

func (w *Watcher) runCycle(ctx context.Context) error {
	w.cycleMu.Lock()
	defer w.cycleMu.Unlock()
	return w.cycleLocked(ctx)
}

// cycleLocked fetches, merges and regroups. A cycle that finishes after the
// watcher stopped is discarded without touching the caches.
func (w *Watcher) cycleLocked(ctx context.Context) error {
	cycleID := uuid.NewString()
	ctx = attr.WithCorrelationID(ctx, cycleID)
	start := time.Now()

	delta, err := w.refresher.Fetch(ctx, w.matchID, w.caches)
	if err != nil {
		w.mu.Lock()
		w.lastErr = err
		w.mu.Unlock()

		w.metrics.RecordCycle(ctx, matchmetrics.OutcomeFailed, time.Since(start))
		w.logger.WarnContext(ctx, "Refresh cycle failed, keeping previous snapshot",
			attr.ExtractCorrelationID(ctx),
			attr.Error(err),
		)
		return err
	}

	// Stop takes mu, so a stopped watcher can never commit after the check
	w.mu.Lock()
	if !w.alive.Load() {
		w.mu.Unlock()
		w.metrics.RecordCycle(ctx, matchmetrics.OutcomeDiscarded, time.Since(start))
		w.logger.DebugContext(ctx, "Discarding refresh cycle of stopped watcher",
			attr.ExtractCorrelationID(ctx),
		)
		return nil
	}

	w.caches.Merge(delta.Beatmaps, delta.Players)
	snap := &Snapshot{
		MatchID:     w.matchID,
		Scores:      delta.Scores,
		Rounds:      matchdomain.Group(delta.Scores, w.caches.Durations()),
		Beatmaps:    w.caches.Beatmaps(),
		Players:     w.caches.Players(),
		RefreshedAt: w.now(),
		CycleID:     cycleID,
	}
	w.snapshot = snap
	w.lastErr = nil
	w.mu.Unlock()

	w.metrics.RecordCycle(ctx, matchmetrics.OutcomeCommitted, time.Since(start))
	w.logger.DebugContext(ctx, "Refresh cycle committed",
		attr.ExtractCorrelationID(ctx),
		attr.Int("scores", len(snap.Scores)),
		attr.Int("rounds", len(snap.Rounds)),
		attr.Duration("elapsed", time.Since(start)),
	)

	if w.onCommit != nil {
		w.onCommit(ctx, snap)
	}
	return nil
}

// Snapshot returns the last committed snapshot, or nil.
func (w *Watcher) Snapshot() *Snapshot {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.snapshot
}

// LastError returns the error of the most recent failed cycle, cleared by
// the next commit.
func (w *Watcher) LastError() error {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.lastErr
}

// touch records a view.
func (w *Watcher) touch() {
	w.viewMu.Lock()
	w.lastViewed = w.now()
	w.viewMu.Unlock()
}

func (w *Watcher) addViewer(delta int) {
	w.viewMu.Lock()
	w.viewers += delta
	if w.viewers < 0 {
		w.viewers = 0
	}
	w.lastViewed = w.now()
	w.viewMu.Unlock()
}

func (w *Watcher) viewerCount() int {
	w.viewMu.Lock()
	defer w.viewMu.Unlock()
	return w.viewers
}

// idleSince reports whether the watcher has no viewers and has not been
// viewed within timeout.
func (w *Watcher) idleSince(now time.Time, timeout time.Duration) bool {
	w.viewMu.Lock()
	defer w.viewMu.Unlock()
	return w.viewers == 0 && now.Sub(w.lastViewed) >= timeout
}

// Stop cancels polling and waits for the goroutines to exit. In-flight
// fetches are cancelled and their results discarded.
func (w *Watcher) Stop() {
	w.mu.Lock()
	w.alive.Store(false)
	w.mu.Unlock()
	if w.cancel != nil {
		w.cancel()
		<-w.done
	}
}
