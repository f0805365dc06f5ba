package matchservice

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	matchdomain "github.com/scuffedaim/matchview/app/modules/match/domain"
	matchclient "github.com/scuffedaim/matchview/app/modules/match/infrastructure/client"
	matchdb "github.com/scuffedaim/matchview/app/modules/match/infrastructure/repositories"
	matchmetrics "github.com/scuffedaim/matchview/app/observability/metrics/match"
	"github.com/uptrace/bun"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func noopTracer() trace.Tracer {
	return noop.NewTracerProvider().Tracer("test")
}

// ------------------------
// Fake upstream sources
// ------------------------

// FakeUpstream implements ScoreSource, BeatmapSource and PlayerSource. It is
// safe for the concurrent calls a refresh cycle makes.
type FakeUpstream struct {
	mu    sync.Mutex
	trace []string

	FetchMatchScoresFunc func(ctx context.Context, matchID matchdomain.MatchID) ([]matchdomain.Score, error)
	FetchBeatmapFunc     func(ctx context.Context, hash matchdomain.BeatmapHash) (*matchdomain.BeatmapInfo, error)
	FetchPlayerFunc      func(ctx context.Context, id matchdomain.PlayerID) (*matchdomain.PlayerInfo, error)

	scoreCalls   atomic.Int32
	beatmapCalls atomic.Int32
	playerCalls  atomic.Int32
}

func NewFakeUpstream() *FakeUpstream {
	return &FakeUpstream{trace: []string{}}
}

func (f *FakeUpstream) record(step string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.trace = append(f.trace, step)
}

// Trace returns the sequence of method calls made to the fake.
func (f *FakeUpstream) Trace() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.trace))
	copy(out, f.trace)
	return out
}

func (f *FakeUpstream) Sources() Sources {
	return Sources{Scores: f, Beatmaps: f, Players: f}
}

func (f *FakeUpstream) FetchMatchScores(ctx context.Context, matchID matchdomain.MatchID) ([]matchdomain.Score, error) {
	f.record("FetchMatchScores")
	f.scoreCalls.Add(1)
	if f.FetchMatchScoresFunc != nil {
		return f.FetchMatchScoresFunc(ctx, matchID)
	}
	return []matchdomain.Score{}, nil
}

func (f *FakeUpstream) FetchBeatmap(ctx context.Context, hash matchdomain.BeatmapHash) (*matchdomain.BeatmapInfo, error) {
	f.record("FetchBeatmap:" + hash.String())
	f.beatmapCalls.Add(1)
	if f.FetchBeatmapFunc != nil {
		return f.FetchBeatmapFunc(ctx, hash)
	}
	return nil, matchclient.ErrNotFound
}

func (f *FakeUpstream) FetchPlayer(ctx context.Context, id matchdomain.PlayerID) (*matchdomain.PlayerInfo, error) {
	f.record("FetchPlayer")
	f.playerCalls.Add(1)
	if f.FetchPlayerFunc != nil {
		return f.FetchPlayerFunc(ctx, id)
	}
	return nil, matchclient.ErrNotFound
}

var (
	_ ScoreSource   = (*FakeUpstream)(nil)
	_ BeatmapSource = (*FakeUpstream)(nil)
	_ PlayerSource  = (*FakeUpstream)(nil)
)

// ------------------------
// Fake beatmap store
// ------------------------

// FakeBeatmapRepository provides a programmable stub for matchdb.Repository.
type FakeBeatmapRepository struct {
	mu    sync.Mutex
	trace []string

	GetBeatmapsFunc  func(ctx context.Context, db bun.IDB, hashes []matchdomain.BeatmapHash) (map[matchdomain.BeatmapHash]matchdomain.BeatmapInfo, error)
	SaveBeatmapsFunc func(ctx context.Context, db bun.IDB, infos []matchdomain.BeatmapInfo) error

	Saved []matchdomain.BeatmapInfo
}

func NewFakeBeatmapRepository() *FakeBeatmapRepository {
	return &FakeBeatmapRepository{trace: []string{}}
}

func (f *FakeBeatmapRepository) record(step string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.trace = append(f.trace, step)
}

// Trace returns the sequence of method calls made to the fake.
func (f *FakeBeatmapRepository) Trace() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.trace))
	copy(out, f.trace)
	return out
}

func (f *FakeBeatmapRepository) GetBeatmaps(ctx context.Context, db bun.IDB, hashes []matchdomain.BeatmapHash) (map[matchdomain.BeatmapHash]matchdomain.BeatmapInfo, error) {
	f.record("GetBeatmaps")
	if f.GetBeatmapsFunc != nil {
		return f.GetBeatmapsFunc(ctx, db, hashes)
	}
	return map[matchdomain.BeatmapHash]matchdomain.BeatmapInfo{}, nil
}

func (f *FakeBeatmapRepository) SaveBeatmaps(ctx context.Context, db bun.IDB, infos []matchdomain.BeatmapInfo) error {
	f.record("SaveBeatmaps")
	f.mu.Lock()
	f.Saved = append(f.Saved, infos...)
	f.mu.Unlock()
	if f.SaveBeatmapsFunc != nil {
		return f.SaveBeatmapsFunc(ctx, db, infos)
	}
	return nil
}

// Ensure the fake actually satisfies the interface
var _ matchdb.Repository = (*FakeBeatmapRepository)(nil)

// ------------------------
// Recording metrics
// ------------------------

// fakeMetrics counts the match metrics the tests assert on.
type fakeMetrics struct {
	matchmetrics.NoOpMetrics

	mu       sync.Mutex
	cycles   map[string]int
	failures map[string]int
	skipped  atomic.Int32
	active   atomic.Int32
}

func newFakeMetrics() *fakeMetrics {
	return &fakeMetrics{cycles: map[string]int{}, failures: map[string]int{}}
}

func (m *fakeMetrics) RecordCycle(_ context.Context, outcome string, _ time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cycles[outcome]++
}

func (m *fakeMetrics) RecordFetchFailure(_ context.Context, kind string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures[kind]++
}

func (m *fakeMetrics) RecordSkippedTick(context.Context) { m.skipped.Add(1) }

func (m *fakeMetrics) SetActiveWatchers(n int) { m.active.Store(int32(n)) }

func (m *fakeMetrics) Cycles(outcome string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cycles[outcome]
}

func (m *fakeMetrics) Failures(kind string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.failures[kind]
}

var _ matchmetrics.MatchMetrics = (*fakeMetrics)(nil)

// ------------------------
// Fixtures
// ------------------------

// baseTime is 2026-03-14 18:00:00 UTC.
var baseTime = time.Date(2026, 3, 14, 18, 0, 0, 0, time.UTC)

func fixtureScore(id int64, hash string, offsetMs int64, player int64) matchdomain.Score {
	return matchdomain.Score{
		ID:         matchdomain.ScoreID(id),
		BeatmapMD5: matchdomain.BeatmapHash(hash),
		Score:      1_000_000 + id,
		Accuracy:   97.5,
		MaxCombo:   500,
		PlayTime:   baseTime.Add(time.Duration(offsetMs) * time.Millisecond),
		PlayerID:   matchdomain.PlayerID(player),
	}
}

func fixtureBeatmap(hash string, lengthSeconds int) *matchdomain.BeatmapInfo {
	return &matchdomain.BeatmapInfo{
		MD5:         matchdomain.BeatmapHash(hash),
		SetID:       100,
		Artist:      "Artist " + hash,
		Title:       "Title " + hash,
		Version:     "Insane",
		TotalLength: lengthSeconds,
	}
}
