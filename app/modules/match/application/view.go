package matchservice

import (
	"fmt"
	"strconv"
	"time"

	matchdomain "github.com/scuffedaim/matchview/app/modules/match/domain"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

const (
	coverURLFormat   = "https://assets.ppy.sh/beatmaps/%d/covers/cover.jpg"
	coverRowHeight   = 80
	coverMinHeight   = 100
	coverMaxHeight   = 400
	unknownPlayer    = "Unknown Player"
	roundTimeLayout  = "15:04:05"
	matchTitleFormat = "Match data for match %s:"
)

var numberPrinter = message.NewPrinter(language.English)

// MatchView is the render model of a match.
type MatchView struct {
	MatchID     string      `json:"match_id"`
	Heading     string      `json:"heading"`
	RefreshedAt time.Time   `json:"refreshed_at"`
	ScoreCount  int         `json:"score_count"`
	Rounds      []RoundView `json:"rounds"`
}

// RoundView is one round as displayed.
type RoundView struct {
	Index       int         `json:"index"` // 1-based position among all rounds
	Key         string      `json:"key"`
	BeatmapMD5  string      `json:"map_md5"`
	BeatmapID   int64       `json:"beatmap_id,omitempty"`
	Title       string      `json:"title"`
	Known       bool        `json:"known"`
	StartedAt   time.Time   `json:"started_at"`
	StartedTime string      `json:"started_time"`
	CoverURL    string      `json:"cover_url,omitempty"`
	CoverHeight int         `json:"cover_height"`
	Scores      []ScoreView `json:"scores"`
}

// ScoreView is one score row as displayed.
type ScoreView struct {
	ID           int64     `json:"id"`
	PlayerID     int64     `json:"player_id"`
	PlayerName   string    `json:"player_name"`
	Country      string    `json:"country"`
	Flag         string    `json:"flag"`
	Mods         []string  `json:"mods"`
	Score        int64     `json:"score"`
	ScoreText    string    `json:"score_text"`
	Accuracy     float64   `json:"accuracy"`
	AccuracyText string    `json:"accuracy_text"`
	MaxCombo     int       `json:"max_combo"`
	ComboText    string    `json:"combo_text"`
	PP           float64   `json:"pp"`
	Grade        string    `json:"grade"`
	N300         int       `json:"n300"`
	N100         int       `json:"n100"`
	N50          int       `json:"n50"`
	NMiss        int       `json:"nmiss"`
	PlayedAt     time.Time `json:"played_at"`
}

// BuildView renders a snapshot. Rounds keep creation order and are indexed
// among all rounds, including those the filter drops.
func BuildView(snap *Snapshot, filter ViewFilter) *MatchView {
	view := &MatchView{
		MatchID:     snap.MatchID.String(),
		Heading:     fmt.Sprintf(matchTitleFormat, snap.MatchID),
		RefreshedAt: snap.RefreshedAt,
		Rounds:      make([]RoundView, 0, len(snap.Rounds)),
	}

	for i, round := range snap.Rounds {
		started := round.Key.StartedAt()
		if !filter.Since.IsZero() && started.Before(filter.Since) {
			continue
		}
		rv := buildRound(i+1, round, snap)
		view.ScoreCount += len(rv.Scores)
		view.Rounds = append(view.Rounds, rv)
	}
	return view
}

func buildRound(index int, round matchdomain.Round, snap *Snapshot) RoundView {
	started := round.Key.StartedAt()
	rv := RoundView{
		Index:       index,
		Key:         round.Key.String(),
		BeatmapMD5:  round.Key.BeatmapMD5.String(),
		Title:       "Map #" + strconv.Itoa(index),
		StartedAt:   started,
		StartedTime: started.Format(roundTimeLayout),
		CoverHeight: CoverHeight(len(round.Scores)),
		Scores:      make([]ScoreView, 0, len(round.Scores)),
	}

	if info, ok := snap.Beatmaps[round.Key.BeatmapMD5]; ok {
		rv.Known = true
		rv.BeatmapID = info.ID
		rv.Title = fmt.Sprintf("%s - %s [%s]", info.Artist, info.Title, info.Version)
		if info.SetID > 0 {
			rv.CoverURL = fmt.Sprintf(coverURLFormat, info.SetID)
		}
	}

	for _, s := range round.Scores {
		rv.Scores = append(rv.Scores, buildScore(s, snap.Players))
	}
	return rv
}

func buildScore(s matchdomain.Score, players map[matchdomain.PlayerID]matchdomain.PlayerInfo) ScoreView {
	sv := ScoreView{
		ID:           int64(s.ID),
		PlayerID:     int64(s.PlayerID),
		PlayerName:   unknownPlayer,
		Flag:         matchdomain.NoFlag,
		Mods:         s.Mods.Codes(),
		Score:        s.Score,
		ScoreText:    FormatScore(s.Score),
		Accuracy:     s.Accuracy,
		AccuracyText: FormatAccuracy(s.Accuracy),
		MaxCombo:     s.MaxCombo,
		ComboText:    strconv.Itoa(s.MaxCombo) + "x",
		PP:           s.PP,
		Grade:        s.Grade,
		N300:         s.N300,
		N100:         s.N100,
		N50:          s.N50,
		NMiss:        s.NMiss,
		PlayedAt:     s.PlayTime,
	}
	if p, ok := players[s.PlayerID]; ok {
		if p.Name != "" {
			sv.PlayerName = p.Name
		}
		sv.Country = p.Country
		sv.Flag = matchdomain.CountryFlag(p.Country)
	}
	return sv
}

// CoverHeight returns the cover art height in pixels for a round of n scores.
func CoverHeight(n int) int {
	return min(max(n*coverRowHeight, coverMinHeight), coverMaxHeight)
}

// FormatScore renders a score with thousands separators.
func FormatScore(v int64) string {
	return numberPrinter.Sprintf("%d", v)
}

// FormatAccuracy renders accuracy with two decimals and a percent sign.
func FormatAccuracy(acc float64) string {
	return strconv.FormatFloat(acc, 'f', 2, 64) + "%"
}
