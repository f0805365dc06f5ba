package matchservice

import (
	"context"
	"errors"
	"sort"
	"sync/atomic"
	"testing"
	"time"

	matchdomain "github.com/scuffedaim/matchview/app/modules/match/domain"
	matchclient "github.com/scuffedaim/matchview/app/modules/match/infrastructure/client"
	matchmetrics "github.com/scuffedaim/matchview/app/observability/metrics/match"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
)

func newTestRefresher(up *FakeUpstream, store *FakeBeatmapRepository, m matchmetrics.MatchMetrics) *Refresher {
	if store == nil {
		return NewRefresher(up.Sources(), nil, discardLogger(), m, noopTracer())
	}
	return NewRefresher(up.Sources(), store, discardLogger(), m, noopTracer())
}

func TestRefresher_FetchesOnlyMissingMetadata(t *testing.T) {
	up := NewFakeUpstream()
	up.FetchMatchScoresFunc = func(context.Context, matchdomain.MatchID) ([]matchdomain.Score, error) {
		return []matchdomain.Score{
			fixtureScore(1, "A", 0, 1),
			fixtureScore(2, "A", 100, 2),
			fixtureScore(3, "B", 200, 1),
		}, nil
	}
	up.FetchBeatmapFunc = func(_ context.Context, h matchdomain.BeatmapHash) (*matchdomain.BeatmapInfo, error) {
		return fixtureBeatmap(h.String(), 30), nil
	}
	up.FetchPlayerFunc = func(_ context.Context, id matchdomain.PlayerID) (*matchdomain.PlayerInfo, error) {
		return &matchdomain.PlayerInfo{ID: id, Name: "p"}, nil
	}

	caches := NewCaches()
	caches.Merge([]matchdomain.BeatmapInfo{*fixtureBeatmap("A", 30)}, []matchdomain.PlayerInfo{{ID: 2}})

	delta, err := newTestRefresher(up, nil, matchmetrics.NoOpMetrics{}).Fetch(context.Background(), "7", caches)
	require.NoError(t, err)

	assert.Len(t, delta.Scores, 3)
	require.Len(t, delta.Beatmaps, 1)
	assert.Equal(t, matchdomain.BeatmapHash("B"), delta.Beatmaps[0].MD5)
	require.Len(t, delta.Players, 1)
	assert.Equal(t, matchdomain.PlayerID(1), delta.Players[0].ID)

	assert.Equal(t, int32(1), up.beatmapCalls.Load())
	assert.Equal(t, int32(1), up.playerCalls.Load())

	// Fetch never touches the caches it reads
	maps, players := caches.Len()
	assert.Equal(t, 1, maps)
	assert.Equal(t, 1, players)
}

func TestRefresher_NotFoundIsSkipped(t *testing.T) {
	up := NewFakeUpstream()
	up.FetchMatchScoresFunc = func(context.Context, matchdomain.MatchID) ([]matchdomain.Score, error) {
		return []matchdomain.Score{fixtureScore(1, "gone", 0, 9)}, nil
	}

	delta, err := newTestRefresher(up, nil, matchmetrics.NoOpMetrics{}).Fetch(context.Background(), "7", NewCaches())
	require.NoError(t, err)
	assert.Empty(t, delta.Beatmaps)
	assert.Empty(t, delta.Players)
}

func TestRefresher_FailuresAbortTheCycle(t *testing.T) {
	boom := errors.New("connection reset")
	scores := func(context.Context, matchdomain.MatchID) ([]matchdomain.Score, error) {
		return []matchdomain.Score{fixtureScore(1, "A", 0, 1), fixtureScore(2, "B", 0, 2)}, nil
	}

	tests := []struct {
		name    string
		setup   func(up *FakeUpstream)
		kind    string
		wantErr error
	}{
		{
			name: "scores",
			setup: func(up *FakeUpstream) {
				up.FetchMatchScoresFunc = func(context.Context, matchdomain.MatchID) ([]matchdomain.Score, error) {
					return nil, matchclient.ErrUpstreamStatus
				}
			},
			kind:    matchmetrics.FetchScores,
			wantErr: matchclient.ErrUpstreamStatus,
		},
		{
			name: "one beatmap",
			setup: func(up *FakeUpstream) {
				up.FetchMatchScoresFunc = scores
				up.FetchBeatmapFunc = func(_ context.Context, h matchdomain.BeatmapHash) (*matchdomain.BeatmapInfo, error) {
					if h == "B" {
						return nil, boom
					}
					return fixtureBeatmap(h.String(), 30), nil
				}
			},
			kind:    matchmetrics.FetchBeatmap,
			wantErr: boom,
		},
		{
			name: "one player",
			setup: func(up *FakeUpstream) {
				up.FetchMatchScoresFunc = scores
				up.FetchPlayerFunc = func(context.Context, matchdomain.PlayerID) (*matchdomain.PlayerInfo, error) {
					return nil, boom
				}
			},
			kind:    matchmetrics.FetchPlayer,
			wantErr: boom,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			up := NewFakeUpstream()
			tt.setup(up)
			m := newFakeMetrics()

			delta, err := newTestRefresher(up, nil, m).Fetch(context.Background(), "7", NewCaches())
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Nil(t, delta)
			assert.GreaterOrEqual(t, m.Failures(tt.kind), 1)
		})
	}
}

func TestRefresher_BatchesRunConcurrently(t *testing.T) {
	up := NewFakeUpstream()
	up.FetchMatchScoresFunc = func(context.Context, matchdomain.MatchID) ([]matchdomain.Score, error) {
		return []matchdomain.Score{
			fixtureScore(1, "A", 0, 1),
			fixtureScore(2, "B", 0, 2),
			fixtureScore(3, "C", 0, 3),
		}, nil
	}

	var inFlight, peak atomic.Int32
	track := func() func() {
		n := inFlight.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(20 * time.Millisecond)
		return func() { inFlight.Add(-1) }
	}
	up.FetchBeatmapFunc = func(_ context.Context, h matchdomain.BeatmapHash) (*matchdomain.BeatmapInfo, error) {
		defer track()()
		return fixtureBeatmap(h.String(), 30), nil
	}
	up.FetchPlayerFunc = func(_ context.Context, id matchdomain.PlayerID) (*matchdomain.PlayerInfo, error) {
		defer track()()
		return &matchdomain.PlayerInfo{ID: id}, nil
	}

	delta, err := newTestRefresher(up, nil, matchmetrics.NoOpMetrics{}).Fetch(context.Background(), "7", NewCaches())
	require.NoError(t, err)
	assert.Len(t, delta.Beatmaps, 3)
	assert.Len(t, delta.Players, 3)
	assert.Greater(t, peak.Load(), int32(1))
}

func TestRefresher_UsesBeatmapStore(t *testing.T) {
	up := NewFakeUpstream()
	up.FetchMatchScoresFunc = func(context.Context, matchdomain.MatchID) ([]matchdomain.Score, error) {
		return []matchdomain.Score{fixtureScore(1, "A", 0, 1), fixtureScore(2, "B", 0, 1)}, nil
	}
	up.FetchBeatmapFunc = func(_ context.Context, h matchdomain.BeatmapHash) (*matchdomain.BeatmapInfo, error) {
		return fixtureBeatmap(h.String(), 45), nil
	}

	store := NewFakeBeatmapRepository()
	store.GetBeatmapsFunc = func(_ context.Context, _ bun.IDB, hashes []matchdomain.BeatmapHash) (map[matchdomain.BeatmapHash]matchdomain.BeatmapInfo, error) {
		return map[matchdomain.BeatmapHash]matchdomain.BeatmapInfo{"A": *fixtureBeatmap("A", 45)}, nil
	}
	m := newFakeMetrics()

	delta, err := newTestRefresher(up, store, m).Fetch(context.Background(), "7", NewCaches())
	require.NoError(t, err)

	hashes := make([]string, 0, len(delta.Beatmaps))
	for _, b := range delta.Beatmaps {
		hashes = append(hashes, b.MD5.String())
	}
	sort.Strings(hashes)
	assert.Equal(t, []string{"A", "B"}, hashes)

	assert.Equal(t, []string{"FetchMatchScores", "FetchBeatmap:B"}, filterBeatmapTrace(up.Trace()))
	assert.Equal(t, []string{"GetBeatmaps", "SaveBeatmaps"}, store.Trace())
	require.Len(t, store.Saved, 1)
	assert.Equal(t, matchdomain.BeatmapHash("B"), store.Saved[0].MD5)
}

func TestRefresher_StoreErrorsDoNotFailTheCycle(t *testing.T) {
	up := NewFakeUpstream()
	up.FetchMatchScoresFunc = func(context.Context, matchdomain.MatchID) ([]matchdomain.Score, error) {
		return []matchdomain.Score{fixtureScore(1, "A", 0, 1)}, nil
	}
	up.FetchBeatmapFunc = func(_ context.Context, h matchdomain.BeatmapHash) (*matchdomain.BeatmapInfo, error) {
		return fixtureBeatmap(h.String(), 45), nil
	}

	store := NewFakeBeatmapRepository()
	store.GetBeatmapsFunc = func(context.Context, bun.IDB, []matchdomain.BeatmapHash) (map[matchdomain.BeatmapHash]matchdomain.BeatmapInfo, error) {
		return nil, errors.New("db down")
	}
	store.SaveBeatmapsFunc = func(context.Context, bun.IDB, []matchdomain.BeatmapInfo) error {
		return errors.New("db down")
	}

	delta, err := newTestRefresher(up, store, matchmetrics.NoOpMetrics{}).Fetch(context.Background(), "7", NewCaches())
	require.NoError(t, err)
	require.Len(t, delta.Beatmaps, 1)
	assert.Equal(t, int32(1), up.beatmapCalls.Load())
}

// filterBeatmapTrace drops player calls, whose position relative to beatmap
// calls is not deterministic.
func filterBeatmapTrace(trace []string) []string {
	out := make([]string, 0, len(trace))
	for _, step := range trace {
		if step != "FetchPlayer" {
			out = append(out, step)
		}
	}
	return out
}
