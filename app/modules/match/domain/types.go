package matchdomain

import "time"

// MatchID identifies a multiplayer match on the remote server.
type MatchID string

func (id MatchID) String() string { return string(id) }

// BeatmapHash is the md5 content hash of a beatmap file version.
type BeatmapHash string

func (h BeatmapHash) String() string { return string(h) }

// PlayerID is the numeric id of a player profile.
type PlayerID int64

// ScoreID uniquely identifies a submitted score.
type ScoreID int64

// Score is one play result. Scores are never mutated once received.
type Score struct {
	ID          ScoreID     `json:"id"`
	BeatmapMD5  BeatmapHash `json:"map_md5"`
	Score       int64       `json:"score"`
	PP          float64     `json:"pp"`
	Accuracy    float64     `json:"acc"`
	MaxCombo    int         `json:"max_combo"`
	Mods        Mods        `json:"mods"`
	N300        int         `json:"n300"`
	N100        int         `json:"n100"`
	N50         int         `json:"n50"`
	NMiss       int         `json:"nmiss"`
	NGeki       int         `json:"ngeki"`
	NKatu       int         `json:"nkatu"`
	Grade       string      `json:"grade"`
	Status      int         `json:"status"`
	Mode        int         `json:"mode"`
	PlayTime    time.Time   `json:"play_time"`
	TimeElapsed int         `json:"time_elapsed"`
	PlayerID    PlayerID    `json:"userid"`
	Perfect     bool        `json:"perfect"`
	MatchID     int64       `json:"match_id"`
}

// PlayedAtMillis returns the play timestamp as epoch milliseconds.
func (s Score) PlayedAtMillis() int64 { return s.PlayTime.UnixMilli() }

// BeatmapInfo is beatmap metadata keyed by content hash.
type BeatmapInfo struct {
	MD5         BeatmapHash `json:"md5"`
	ID          int64       `json:"id"`
	SetID       int64       `json:"set_id"`
	Artist      string      `json:"artist"`
	Title       string      `json:"title"`
	Version     string      `json:"version"`
	Creator     string      `json:"creator"`
	LastUpdate  string      `json:"last_update"`
	TotalLength int         `json:"total_length"` // seconds
	MaxCombo    int         `json:"max_combo"`
	Status      int         `json:"status"`
	Plays       int         `json:"plays"`
	Passes      int         `json:"passes"`
	Mode        int         `json:"mode"`
	BPM         float64     `json:"bpm"`
	CS          float64     `json:"cs"`
	OD          float64     `json:"od"`
	AR          float64     `json:"ar"`
	HP          float64     `json:"hp"`
	Diff        float64     `json:"diff"`
}

// Length is the beatmap's total play duration.
func (b BeatmapInfo) Length() time.Duration {
	return time.Duration(b.TotalLength) * time.Second
}

// PlayerInfo is profile metadata keyed by player id.
type PlayerInfo struct {
	ID             PlayerID `json:"id"`
	Name           string   `json:"name"`
	SafeName       string   `json:"safe_name"`
	Priv           int      `json:"priv"`
	Country        string   `json:"country"`
	SilenceEnd     int64    `json:"silence_end"`
	DonorEnd       int64    `json:"donor_end"`
	CreationTime   int64    `json:"creation_time"`
	LatestActivity int64    `json:"latest_activity"`
	ClanID         int64    `json:"clan_id"`
	ClanPriv       int      `json:"clan_priv"`
	PreferredMode  int      `json:"preferred_mode"`
	PlayStyle      int      `json:"play_style"`
}
