package matchdb

import (
	"context"

	matchdomain "github.com/scuffedaim/matchview/app/modules/match/domain"
	"github.com/uptrace/bun"
)

// Repository defines the contract for beatmap metadata persistence.
type Repository interface {
	// GetBeatmaps returns the stored beatmaps among hashes. Hashes with no row
	// are absent from the result.
	GetBeatmaps(ctx context.Context, db bun.IDB, hashes []matchdomain.BeatmapHash) (map[matchdomain.BeatmapHash]matchdomain.BeatmapInfo, error)

	// SaveBeatmaps stores beatmaps, leaving existing rows untouched.
	SaveBeatmaps(ctx context.Context, db bun.IDB, infos []matchdomain.BeatmapInfo) error
}
