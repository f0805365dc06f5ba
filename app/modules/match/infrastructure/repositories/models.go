package matchdb

import (
	"time"

	matchdomain "github.com/scuffedaim/matchview/app/modules/match/domain"
	"github.com/uptrace/bun"
)

// Beatmap is the persisted form of beatmap metadata. Rows are keyed by the
// content hash and never updated once written.
type Beatmap struct {
	bun.BaseModel `bun:"table:beatmaps,alias:b"`

	MD5         string    `bun:"md5,pk"`
	BeatmapID   int64     `bun:"beatmap_id,notnull"`
	SetID       int64     `bun:"set_id,notnull"`
	Artist      string    `bun:"artist,notnull"`
	Title       string    `bun:"title,notnull"`
	Version     string    `bun:"version,notnull"`
	Creator     string    `bun:"creator,notnull"`
	LastUpdate  string    `bun:"last_update"`
	TotalLength int       `bun:"total_length,notnull"`
	MaxCombo    int       `bun:"max_combo,notnull"`
	Status      int       `bun:"status,notnull"`
	Mode        int       `bun:"mode,notnull"`
	BPM         float64   `bun:"bpm,notnull"`
	CS          float64   `bun:"cs,notnull"`
	OD          float64   `bun:"od,notnull"`
	AR          float64   `bun:"ar,notnull"`
	HP          float64   `bun:"hp,notnull"`
	Diff        float64   `bun:"diff,notnull"`
	FetchedAt   time.Time `bun:"fetched_at,nullzero,notnull,default:current_timestamp"`
}

// ToDomain converts the row to beatmap metadata.
func (b *Beatmap) ToDomain() matchdomain.BeatmapInfo {
	return matchdomain.BeatmapInfo{
		MD5:         matchdomain.BeatmapHash(b.MD5),
		ID:          b.BeatmapID,
		SetID:       b.SetID,
		Artist:      b.Artist,
		Title:       b.Title,
		Version:     b.Version,
		Creator:     b.Creator,
		LastUpdate:  b.LastUpdate,
		TotalLength: b.TotalLength,
		MaxCombo:    b.MaxCombo,
		Status:      b.Status,
		Mode:        b.Mode,
		BPM:         b.BPM,
		CS:          b.CS,
		OD:          b.OD,
		AR:          b.AR,
		HP:          b.HP,
		Diff:        b.Diff,
	}
}

// BeatmapFromDomain builds a row from beatmap metadata.
func BeatmapFromDomain(info matchdomain.BeatmapInfo) *Beatmap {
	return &Beatmap{
		MD5:         info.MD5.String(),
		BeatmapID:   info.ID,
		SetID:       info.SetID,
		Artist:      info.Artist,
		Title:       info.Title,
		Version:     info.Version,
		Creator:     info.Creator,
		LastUpdate:  info.LastUpdate,
		TotalLength: info.TotalLength,
		MaxCombo:    info.MaxCombo,
		Status:      info.Status,
		Mode:        info.Mode,
		BPM:         info.BPM,
		CS:          info.CS,
		OD:          info.OD,
		AR:          info.AR,
		HP:          info.HP,
		Diff:        info.Diff,
	}
}
