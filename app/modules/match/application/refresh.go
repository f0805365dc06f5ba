package matchservice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	matchdomain "github.com/scuffedaim/matchview/app/modules/match/domain"
	matchclient "github.com/scuffedaim/matchview/app/modules/match/infrastructure/client"
	matchdb "github.com/scuffedaim/matchview/app/modules/match/infrastructure/repositories"
	"github.com/scuffedaim/matchview/app/observability/attr"
	matchmetrics "github.com/scuffedaim/matchview/app/observability/metrics/match"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

// maxConcurrentFetches bounds the in-flight requests of one metadata batch.
const maxConcurrentFetches = 8

// Delta is what one refresh cycle read: the full score list plus the
// metadata that was missing from the session caches.
type Delta struct {
	Scores   []matchdomain.Score
	Beatmaps []matchdomain.BeatmapInfo
	Players  []matchdomain.PlayerInfo
}

// Refresher performs the fetch half of a refresh cycle. It never mutates the
// caches it reads from.
type Refresher struct {
	sources Sources
	store   matchdb.Repository
	logger  *slog.Logger
	metrics matchmetrics.MatchMetrics
	tracer  trace.Tracer
}

// NewRefresher creates a Refresher. store may be nil.
func NewRefresher(
	sources Sources,
	store matchdb.Repository,
	logger *slog.Logger,
	metrics matchmetrics.MatchMetrics,
	tracer trace.Tracer,
) *Refresher {
	return &Refresher{
		sources: sources,
		store:   store,
		logger:  logger,
		metrics: metrics,
		tracer:  tracer,
	}
}

// Fetch reads the match's scores and every beatmap and player the caches do
// not hold yet. Beatmaps and players are fetched concurrently; any failure
// other than a missing record fails the whole cycle.
func (r *Refresher) Fetch(ctx context.Context, matchID matchdomain.MatchID, caches *Caches) (*Delta, error) {
	ctx, span := r.tracer.Start(ctx, "MatchRefresher.Fetch", trace.WithAttributes(
		attribute.String("match_id", matchID.String()),
	))
	defer span.End()

	scores, err := r.sources.Scores.FetchMatchScores(ctx, matchID)
	if err != nil {
		r.metrics.RecordFetchFailure(ctx, matchmetrics.FetchScores)
		span.RecordError(err)
		return nil, fmt.Errorf("failed to fetch scores: %w", err)
	}
	r.metrics.RecordFetch(ctx, matchmetrics.FetchScores, 1)

	missingMaps := caches.MissingBeatmaps(scores)
	missingPlayers := caches.MissingPlayers(scores)
	span.SetAttributes(
		attribute.Int("score_count", len(scores)),
		attribute.Int("missing_beatmaps", len(missingMaps)),
		attribute.Int("missing_players", len(missingPlayers)),
	)

	var (
		stored, fetched []matchdomain.BeatmapInfo
		players         []matchdomain.PlayerInfo
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		stored, fetched, err = r.fetchBeatmaps(gctx, missingMaps)
		return err
	})
	g.Go(func() error {
		var err error
		players, err = r.fetchPlayers(gctx, missingPlayers)
		return err
	})
	if err := g.Wait(); err != nil {
		span.RecordError(err)
		return nil, err
	}

	r.persist(ctx, fetched)

	return &Delta{
		Scores:   scores,
		Beatmaps: append(stored, fetched...),
		Players:  players,
	}, nil
}

// fetchBeatmaps resolves hashes from the persistent store first and the
// remote source second. It returns store hits and remote results separately.
func (r *Refresher) fetchBeatmaps(ctx context.Context, hashes []matchdomain.BeatmapHash) (stored, fetched []matchdomain.BeatmapInfo, err error) {
	if len(hashes) == 0 {
		return nil, nil, nil
	}

	remaining := hashes
	if r.store != nil {
		hits, err := r.store.GetBeatmaps(ctx, nil, hashes)
		if err != nil {
			r.logger.WarnContext(ctx, "Beatmap store lookup failed, using remote source",
				attr.ExtractCorrelationID(ctx),
				attr.Error(err),
			)
		} else if len(hits) > 0 {
			remaining = make([]matchdomain.BeatmapHash, 0, len(hashes)-len(hits))
			for _, h := range hashes {
				if info, ok := hits[h]; ok {
					stored = append(stored, info)
					continue
				}
				remaining = append(remaining, h)
			}
			r.metrics.RecordFetch(ctx, matchmetrics.FetchStoreHit, len(stored))
		}
	}

	results := make([]*matchdomain.BeatmapInfo, len(remaining))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentFetches)
	for i, hash := range remaining {
		g.Go(func() error {
			info, err := r.sources.Beatmaps.FetchBeatmap(gctx, hash)
			switch {
			case errors.Is(err, matchclient.ErrNotFound):
				r.logger.DebugContext(gctx, "Beatmap not found upstream",
					attr.BeatmapHash("map_md5", hash),
					attr.ExtractCorrelationID(gctx),
				)
				return nil
			case err != nil:
				r.metrics.RecordFetchFailure(gctx, matchmetrics.FetchBeatmap)
				return fmt.Errorf("failed to fetch beatmap %s: %w", hash, err)
			}
			if info != nil {
				keyed := *info
				keyed.MD5 = hash
				results[i] = &keyed
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	for _, info := range results {
		if info != nil {
			fetched = append(fetched, *info)
		}
	}
	r.metrics.RecordFetch(ctx, matchmetrics.FetchBeatmap, len(remaining))
	return stored, fetched, nil
}

func (r *Refresher) fetchPlayers(ctx context.Context, ids []matchdomain.PlayerID) ([]matchdomain.PlayerInfo, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	results := make([]*matchdomain.PlayerInfo, len(ids))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentFetches)
	for i, id := range ids {
		g.Go(func() error {
			info, err := r.sources.Players.FetchPlayer(gctx, id)
			switch {
			case errors.Is(err, matchclient.ErrNotFound):
				r.logger.DebugContext(gctx, "Player not found upstream",
					attr.PlayerID("player_id", id),
					attr.ExtractCorrelationID(gctx),
				)
				return nil
			case err != nil:
				r.metrics.RecordFetchFailure(gctx, matchmetrics.FetchPlayer)
				return fmt.Errorf("failed to fetch player %d: %w", id, err)
			}
			results[i] = info
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	players := make([]matchdomain.PlayerInfo, 0, len(ids))
	for _, info := range results {
		if info != nil {
			players = append(players, *info)
		}
	}
	r.metrics.RecordFetch(ctx, matchmetrics.FetchPlayer, len(ids))
	return players, nil
}

// persist writes remotely fetched beatmaps to the store. Failures are logged
// and otherwise ignored.
func (r *Refresher) persist(ctx context.Context, beatmaps []matchdomain.BeatmapInfo) {
	if r.store == nil || len(beatmaps) == 0 {
		return
	}
	if err := r.store.SaveBeatmaps(ctx, nil, beatmaps); err != nil {
		r.logger.WarnContext(ctx, "Failed to persist beatmaps",
			attr.Int("count", len(beatmaps)),
			attr.ExtractCorrelationID(ctx),
			attr.Error(err),
		)
	}
}
