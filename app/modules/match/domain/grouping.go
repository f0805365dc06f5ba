package matchdomain

import (
	"cmp"
	"slices"
	"strconv"
	"time"
)

const (
	// DefaultBeatmapLength is used when a beatmap's duration is unknown or zero.
	DefaultBeatmapLength = 5 * time.Second

	// RoundSlack is added to the beatmap duration to form the grouping window.
	RoundSlack = 2 * time.Second
)

// Durations maps a beatmap hash to its play length.
type Durations map[BeatmapHash]time.Duration

// RoundKey identifies a round by its beatmap and the play time of the score
// that opened it.
type RoundKey struct {
	BeatmapMD5  BeatmapHash
	FirstPlayed int64 // epoch milliseconds
}

// String renders the key as "<md5>_<epoch ms>".
func (k RoundKey) String() string {
	return string(k.BeatmapMD5) + "_" + strconv.FormatInt(k.FirstPlayed, 10)
}

// StartedAt returns the key timestamp as a UTC time.
func (k RoundKey) StartedAt() time.Time {
	return time.UnixMilli(k.FirstPlayed).UTC()
}

// Round is a group of scores on one beatmap played within one time window.
// Scores are ordered by ascending play time once grouping completes.
type Round struct {
	Key    RoundKey
	Scores []Score
}

// Rounds holds rounds in creation order.
type Rounds []Round

// ByKey returns the rounds as a key to members mapping.
func (rs Rounds) ByKey() map[RoundKey][]Score {
	out := make(map[RoundKey][]Score, len(rs))
	for _, r := range rs {
		out[r.Key] = r.Scores
	}
	return out
}

// Keys returns round keys in creation order.
func (rs Rounds) Keys() []RoundKey {
	keys := make([]RoundKey, len(rs))
	for i, r := range rs {
		keys[i] = r.Key
	}
	return keys
}

// Lookup finds a round by key.
func (rs Rounds) Lookup(key RoundKey) (Round, bool) {
	for _, r := range rs {
		if r.Key == key {
			return r, true
		}
	}
	return Round{}, false
}

// Threshold returns the grouping window for a beatmap of the given length.
func Threshold(length time.Duration) time.Duration {
	if length <= 0 {
		length = DefaultBeatmapLength
	}
	return length + RoundSlack
}

// Group partitions scores into rounds.
//
// Scores are visited in input order. A score joins the first existing round
// (in creation order) on the same beatmap whose opening score was played
// within the beatmap's threshold; otherwise it opens a new round keyed by its
// own play time. Members of every round are then sorted by play time.
// Repeated score ids keep their first occurrence.
func Group(scores []Score, durations Durations) Rounds {
	rounds := make(Rounds, 0)
	byHash := make(map[BeatmapHash][]int)
	seen := make(map[ScoreID]struct{}, len(scores))

	for _, s := range scores {
		if _, dup := seen[s.ID]; dup {
			continue
		}
		seen[s.ID] = struct{}{}

		window := Threshold(durations[s.BeatmapMD5]).Milliseconds()
		played := s.PlayedAtMillis()

		joined := false
		for _, idx := range byHash[s.BeatmapMD5] {
			if absDiff(played, rounds[idx].Key.FirstPlayed) <= window {
				rounds[idx].Scores = append(rounds[idx].Scores, s)
				joined = true
				break
			}
		}
		if joined {
			continue
		}

		byHash[s.BeatmapMD5] = append(byHash[s.BeatmapMD5], len(rounds))
		rounds = append(rounds, Round{
			Key:    RoundKey{BeatmapMD5: s.BeatmapMD5, FirstPlayed: played},
			Scores: []Score{s},
		})
	}

	for i := range rounds {
		slices.SortStableFunc(rounds[i].Scores, func(a, b Score) int {
			return cmp.Compare(a.PlayedAtMillis(), b.PlayedAtMillis())
		})
	}
	return rounds
}

func absDiff(a, b int64) int64 {
	if a > b {
		return a - b
	}
	return b - a
}
