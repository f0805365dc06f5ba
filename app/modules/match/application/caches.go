package matchservice

import (
	"maps"
	"sync"

	matchdomain "github.com/scuffedaim/matchview/app/modules/match/domain"
)

// Caches holds the beatmap and player metadata fetched for one match session.
// Entries are only ever added.
type Caches struct {
	mu       sync.RWMutex
	beatmaps map[matchdomain.BeatmapHash]matchdomain.BeatmapInfo
	players  map[matchdomain.PlayerID]matchdomain.PlayerInfo
}

// NewCaches creates empty session caches.
func NewCaches() *Caches {
	return &Caches{
		beatmaps: make(map[matchdomain.BeatmapHash]matchdomain.BeatmapInfo),
		players:  make(map[matchdomain.PlayerID]matchdomain.PlayerInfo),
	}
}

// MissingBeatmaps returns the distinct hashes referenced by scores that are
// not cached, in first-seen order.
func (c *Caches) MissingBeatmaps(scores []matchdomain.Score) []matchdomain.BeatmapHash {
	c.mu.RLock()
	defer c.mu.RUnlock()

	seen := make(map[matchdomain.BeatmapHash]struct{})
	var out []matchdomain.BeatmapHash
	for _, s := range scores {
		if _, ok := c.beatmaps[s.BeatmapMD5]; ok {
			continue
		}
		if _, ok := seen[s.BeatmapMD5]; ok {
			continue
		}
		seen[s.BeatmapMD5] = struct{}{}
		out = append(out, s.BeatmapMD5)
	}
	return out
}

// MissingPlayers returns the distinct player ids referenced by scores that are
// not cached, in first-seen order.
func (c *Caches) MissingPlayers(scores []matchdomain.Score) []matchdomain.PlayerID {
	c.mu.RLock()
	defer c.mu.RUnlock()

	seen := make(map[matchdomain.PlayerID]struct{})
	var out []matchdomain.PlayerID
	for _, s := range scores {
		if _, ok := c.players[s.PlayerID]; ok {
			continue
		}
		if _, ok := seen[s.PlayerID]; ok {
			continue
		}
		seen[s.PlayerID] = struct{}{}
		out = append(out, s.PlayerID)
	}
	return out
}

// Merge adds fetched records. Records already present are kept.
func (c *Caches) Merge(beatmaps []matchdomain.BeatmapInfo, players []matchdomain.PlayerInfo) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, b := range beatmaps {
		if _, ok := c.beatmaps[b.MD5]; !ok {
			c.beatmaps[b.MD5] = b
		}
	}
	for _, p := range players {
		if _, ok := c.players[p.ID]; !ok {
			c.players[p.ID] = p
		}
	}
}

// Durations returns the play length of every cached beatmap.
func (c *Caches) Durations() matchdomain.Durations {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make(matchdomain.Durations, len(c.beatmaps))
	for hash, b := range c.beatmaps {
		out[hash] = b.Length()
	}
	return out
}

// Beatmaps returns a copy of the beatmap cache.
func (c *Caches) Beatmaps() map[matchdomain.BeatmapHash]matchdomain.BeatmapInfo {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return maps.Clone(c.beatmaps)
}

// Players returns a copy of the player cache.
func (c *Caches) Players() map[matchdomain.PlayerID]matchdomain.PlayerInfo {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return maps.Clone(c.players)
}

// Len reports the number of cached beatmaps and players.
func (c *Caches) Len() (beatmaps, players int) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.beatmaps), len(c.players)
}
