package matchdb

import (
	"context"
	"fmt"

	matchdomain "github.com/scuffedaim/matchview/app/modules/match/domain"
	"github.com/uptrace/bun"
)

// Impl implements the Repository interface using Bun ORM.
type Impl struct {
	db bun.IDB
}

// NewRepository creates a new beatmap repository.
func NewRepository(db bun.IDB) Repository {
	return &Impl{db: db}
}

// resolveDB returns the provided db handle, falling back to the repository's
// default connection if db is nil.
func (r *Impl) resolveDB(db bun.IDB) bun.IDB {
	if db == nil {
		return r.db
	}
	return db
}

// GetBeatmaps loads every stored beatmap whose hash is in hashes.
func (r *Impl) GetBeatmaps(ctx context.Context, db bun.IDB, hashes []matchdomain.BeatmapHash) (map[matchdomain.BeatmapHash]matchdomain.BeatmapInfo, error) {
	out := make(map[matchdomain.BeatmapHash]matchdomain.BeatmapInfo, len(hashes))
	if len(hashes) == 0 {
		return out, nil
	}
	db = r.resolveDB(db)

	keys := make([]string, len(hashes))
	for i, h := range hashes {
		keys[i] = h.String()
	}

	var rows []Beatmap
	err := db.NewSelect().
		Model(&rows).
		Where("md5 IN (?)", bun.In(keys)).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrQueryFailed, err)
	}

	for i := range rows {
		info := rows[i].ToDomain()
		out[info.MD5] = info
	}
	return out, nil
}

// SaveBeatmaps inserts beatmaps; rows that already exist are kept as is.
func (r *Impl) SaveBeatmaps(ctx context.Context, db bun.IDB, infos []matchdomain.BeatmapInfo) error {
	if len(infos) == 0 {
		return nil
	}
	db = r.resolveDB(db)

	rows := make([]*Beatmap, 0, len(infos))
	for _, info := range infos {
		if info.MD5 == "" {
			return ErrMissingHash
		}
		rows = append(rows, BeatmapFromDomain(info))
	}

	_, err := db.NewInsert().
		Model(&rows).
		On("CONFLICT (md5) DO NOTHING").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInsertFailed, err)
	}
	return nil
}
