package matchservice

import (
	"testing"
	"time"

	matchdomain "github.com/scuffedaim/matchview/app/modules/match/domain"
	"github.com/stretchr/testify/assert"
)

func TestCaches_MissingIsDistinctInFirstSeenOrder(t *testing.T) {
	c := NewCaches()
	c.Merge([]matchdomain.BeatmapInfo{*fixtureBeatmap("B", 60)}, []matchdomain.PlayerInfo{{ID: 2, Name: "two"}})

	scores := []matchdomain.Score{
		fixtureScore(1, "C", 0, 3),
		fixtureScore(2, "A", 10, 1),
		fixtureScore(3, "B", 20, 2),
		fixtureScore(4, "C", 30, 1),
		fixtureScore(5, "A", 40, 3),
	}

	assert.Equal(t, []matchdomain.BeatmapHash{"C", "A"}, c.MissingBeatmaps(scores))
	assert.Equal(t, []matchdomain.PlayerID{3, 1}, c.MissingPlayers(scores))
}

func TestCaches_MissingEmptyWhenAllCached(t *testing.T) {
	c := NewCaches()
	c.Merge([]matchdomain.BeatmapInfo{*fixtureBeatmap("A", 60)}, []matchdomain.PlayerInfo{{ID: 1}})

	scores := []matchdomain.Score{fixtureScore(1, "A", 0, 1)}
	assert.Empty(t, c.MissingBeatmaps(scores))
	assert.Empty(t, c.MissingPlayers(scores))
}

func TestCaches_MergeIsAppendOnly(t *testing.T) {
	c := NewCaches()
	c.Merge(nil, []matchdomain.PlayerInfo{{ID: 1, Name: "first"}})
	c.Merge(nil, []matchdomain.PlayerInfo{{ID: 1, Name: "second"}, {ID: 2, Name: "other"}})

	players := c.Players()
	assert.Equal(t, "first", players[1].Name)
	assert.Equal(t, "other", players[2].Name)

	_, n := c.Len()
	assert.Equal(t, 2, n)
}

func TestCaches_CopiesAreIndependent(t *testing.T) {
	c := NewCaches()
	c.Merge([]matchdomain.BeatmapInfo{*fixtureBeatmap("A", 90)}, nil)

	copied := c.Beatmaps()
	delete(copied, "A")

	maps, _ := c.Len()
	assert.Equal(t, 1, maps)
	assert.Equal(t, matchdomain.Durations{"A": 90 * time.Second}, c.Durations())
}
