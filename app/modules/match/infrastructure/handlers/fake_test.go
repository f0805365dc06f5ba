package matchhandlers

import (
	"context"
	"io"
	"log/slog"
	"sync"

	matchservice "github.com/scuffedaim/matchview/app/modules/match/application"
	matchdomain "github.com/scuffedaim/matchview/app/modules/match/domain"
	"go.opentelemetry.io/otel/trace/noop"
)

// ------------------------
// Fake Match Service
// ------------------------

type FakeService struct {
	mu    sync.Mutex
	trace []string

	GetMatchViewFunc   func(ctx context.Context, matchID matchdomain.MatchID, filter matchservice.ViewFilter) (*matchservice.MatchView, error)
	SubscribeFunc      func(ctx context.Context, matchID matchdomain.MatchID) (<-chan []byte, error)
	RoundChartFunc     func(ctx context.Context, matchID matchdomain.MatchID, index int) ([]byte, error)
	ExportMatchFunc    func(ctx context.Context, matchID matchdomain.MatchID, filter matchservice.ViewFilter) ([]byte, error)
	ActiveWatchersFunc func() int
}

func NewFakeService() *FakeService {
	return &FakeService{trace: []string{}}
}

func (f *FakeService) record(step string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.trace = append(f.trace, step)
}

// --- Service Interface Implementation ---

func (f *FakeService) GetMatchView(ctx context.Context, matchID matchdomain.MatchID, filter matchservice.ViewFilter) (*matchservice.MatchView, error) {
	f.record("GetMatchView")
	if f.GetMatchViewFunc != nil {
		return f.GetMatchViewFunc(ctx, matchID, filter)
	}
	return &matchservice.MatchView{MatchID: matchID.String()}, nil
}

func (f *FakeService) Subscribe(ctx context.Context, matchID matchdomain.MatchID) (<-chan []byte, error) {
	f.record("Subscribe")
	if f.SubscribeFunc != nil {
		return f.SubscribeFunc(ctx, matchID)
	}
	ch := make(chan []byte)
	close(ch)
	return ch, nil
}

func (f *FakeService) RoundChart(ctx context.Context, matchID matchdomain.MatchID, index int) ([]byte, error) {
	f.record("RoundChart")
	if f.RoundChartFunc != nil {
		return f.RoundChartFunc(ctx, matchID, index)
	}
	return nil, nil
}

func (f *FakeService) ExportMatch(ctx context.Context, matchID matchdomain.MatchID, filter matchservice.ViewFilter) ([]byte, error) {
	f.record("ExportMatch")
	if f.ExportMatchFunc != nil {
		return f.ExportMatchFunc(ctx, matchID, filter)
	}
	return nil, nil
}

func (f *FakeService) ActiveWatchers() int {
	if f.ActiveWatchersFunc != nil {
		return f.ActiveWatchersFunc()
	}
	return 0
}

func (f *FakeService) Close() { f.record("Close") }

// --- Accessors for assertions ---

func (f *FakeService) Trace() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.trace))
	copy(out, f.trace)
	return out
}

// Ensure the fake actually satisfies the interface
var _ matchservice.Service = (*FakeService)(nil)

func newTestHandlers(svc matchservice.Service, allowedOrigins ...string) *MatchHandlers {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	tracer := noop.NewTracerProvider().Tracer("test")
	return NewMatchHandlers(svc, allowedOrigins, logger, tracer).(*MatchHandlers)
}
