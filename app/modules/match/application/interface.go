package matchservice

import (
	"context"
	"time"

	matchdomain "github.com/scuffedaim/matchview/app/modules/match/domain"
)

// ScoreSource returns the full score list for a match.
type ScoreSource interface {
	FetchMatchScores(ctx context.Context, matchID matchdomain.MatchID) ([]matchdomain.Score, error)
}

// BeatmapSource returns beatmap metadata by content hash.
type BeatmapSource interface {
	FetchBeatmap(ctx context.Context, hash matchdomain.BeatmapHash) (*matchdomain.BeatmapInfo, error)
}

// PlayerSource returns player profiles by id.
type PlayerSource interface {
	FetchPlayer(ctx context.Context, id matchdomain.PlayerID) (*matchdomain.PlayerInfo, error)
}

// Sources groups the remote collaborators a refresh cycle reads from.
type Sources struct {
	Scores   ScoreSource
	Beatmaps BeatmapSource
	Players  PlayerSource
}

// ViewFilter narrows the rounds returned by view operations.
type ViewFilter struct {
	// Since drops rounds that started before it. Zero keeps every round.
	Since time.Time
}

// Service is the match module's application API.
type Service interface {
	// GetMatchView returns the latest grouped view of a match, starting a
	// watcher for it when none is running.
	GetMatchView(ctx context.Context, matchID matchdomain.MatchID, filter ViewFilter) (*MatchView, error)

	// Subscribe streams a JSON-encoded MatchView on every committed refresh.
	// The stream ends when ctx is cancelled.
	Subscribe(ctx context.Context, matchID matchdomain.MatchID) (<-chan []byte, error)

	// RoundChart renders a PNG bar chart of one round's scores. index is 1-based.
	RoundChart(ctx context.Context, matchID matchdomain.MatchID, index int) ([]byte, error)

	// ExportMatch renders the match as an XLSX workbook.
	ExportMatch(ctx context.Context, matchID matchdomain.MatchID, filter ViewFilter) ([]byte, error)

	// ActiveWatchers reports how many matches are being polled.
	ActiveWatchers() int

	Close()
}
