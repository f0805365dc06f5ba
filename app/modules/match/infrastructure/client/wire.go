package matchclient

import (
	"fmt"
	"strings"
	"time"

	matchdomain "github.com/scuffedaim/matchview/app/modules/match/domain"
)

// wireScore mirrors the upstream score record.
type wireScore struct {
	ID          int64   `json:"id"`
	MapMD5      string  `json:"map_md5"`
	Score       int64   `json:"score"`
	PP          float64 `json:"pp"`
	Acc         float64 `json:"acc"`
	MaxCombo    int     `json:"max_combo"`
	Mods        int     `json:"mods"`
	N300        int     `json:"n300"`
	N100        int     `json:"n100"`
	N50         int     `json:"n50"`
	NMiss       int     `json:"nmiss"`
	NGeki       int     `json:"ngeki"`
	NKatu       int     `json:"nkatu"`
	Grade       string  `json:"grade"`
	Status      int     `json:"status"`
	Mode        int     `json:"mode"`
	PlayTime    string  `json:"play_time"`
	TimeElapsed int     `json:"time_elapsed"`
	ClientFlags int     `json:"client_flags"`
	UserID      int64   `json:"userid"`
	Perfect     int     `json:"perfect"`
	MatchID     int64   `json:"match_id"`
}

// playTimeLayouts are tried in order; zone-less values are read as UTC.
var playTimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
}

func parsePlayTime(v string) (time.Time, error) {
	v = strings.TrimSpace(v)
	for _, layout := range playTimeLayouts {
		if t, err := time.ParseInLocation(layout, v, time.UTC); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: unparseable play_time %q", ErrMalformedResponse, v)
}

func (w wireScore) toDomain() (matchdomain.Score, error) {
	played, err := parsePlayTime(w.PlayTime)
	if err != nil {
		return matchdomain.Score{}, fmt.Errorf("score %d: %w", w.ID, err)
	}
	return matchdomain.Score{
		ID:          matchdomain.ScoreID(w.ID),
		BeatmapMD5:  matchdomain.BeatmapHash(w.MapMD5),
		Score:       w.Score,
		PP:          w.PP,
		Accuracy:    w.Acc,
		MaxCombo:    w.MaxCombo,
		Mods:        matchdomain.Mods(w.Mods),
		N300:        w.N300,
		N100:        w.N100,
		N50:         w.N50,
		NMiss:       w.NMiss,
		NGeki:       w.NGeki,
		NKatu:       w.NKatu,
		Grade:       w.Grade,
		Status:      w.Status,
		Mode:        w.Mode,
		PlayTime:    played,
		TimeElapsed: w.TimeElapsed,
		PlayerID:    matchdomain.PlayerID(w.UserID),
		Perfect:     w.Perfect != 0,
		MatchID:     w.MatchID,
	}, nil
}
