package matchintegrationtests

import (
	"context"
	"testing"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	matchdomain "github.com/scuffedaim/matchview/app/modules/match/domain"
	matchdb "github.com/scuffedaim/matchview/app/modules/match/infrastructure/repositories"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fakeBeatmap(f *gofakeit.Faker) matchdomain.BeatmapInfo {
	return matchdomain.BeatmapInfo{
		MD5:         matchdomain.BeatmapHash(f.Regex("[0-9a-f]{32}")),
		ID:          f.Int64(),
		SetID:       int64(f.IntRange(1, 2_000_000)),
		Artist:      f.Name(),
		Title:       f.SongName(),
		Version:     f.RandomString([]string{"Easy", "Normal", "Hard", "Insane", "Extra"}),
		Creator:     f.Username(),
		TotalLength: f.IntRange(30, 600),
		MaxCombo:    f.IntRange(100, 3000),
		BPM:         float64(f.IntRange(120, 240)),
		CS:          4,
		OD:          8.5,
		AR:          9.3,
		HP:          5,
		Diff:        6.12,
	}
}

func TestBeatmapRepository_SaveThenGet(t *testing.T) {
	env := requireEnv(t)
	env.TruncateTables(t, "beatmaps")

	ctx := context.Background()
	repo := matchdb.NewRepository(env.DB)
	f := gofakeit.New(42)

	saved := []matchdomain.BeatmapInfo{fakeBeatmap(f), fakeBeatmap(f), fakeBeatmap(f)}
	require.NoError(t, repo.SaveBeatmaps(ctx, nil, saved))

	missing := matchdomain.BeatmapHash("ffffffffffffffffffffffffffffffff")
	got, err := repo.GetBeatmaps(ctx, nil, []matchdomain.BeatmapHash{saved[0].MD5, saved[2].MD5, missing})
	require.NoError(t, err)

	require.Len(t, got, 2)
	assert.NotContains(t, got, missing)
	for _, want := range []matchdomain.BeatmapInfo{saved[0], saved[2]} {
		if diff := cmp.Diff(want, got[want.MD5], cmpopts.EquateApprox(0, 1e-6)); diff != "" {
			t.Errorf("beatmap %s mismatch (-want +got):\n%s", want.MD5, diff)
		}
	}
}

func TestBeatmapRepository_SaveIsIdempotent(t *testing.T) {
	env := requireEnv(t)
	env.TruncateTables(t, "beatmaps")

	ctx := context.Background()
	repo := matchdb.NewRepository(env.DB)
	info := fakeBeatmap(gofakeit.New(7))

	require.NoError(t, repo.SaveBeatmaps(ctx, nil, []matchdomain.BeatmapInfo{info}))

	changed := info
	changed.Title = "renamed"
	require.NoError(t, repo.SaveBeatmaps(ctx, nil, []matchdomain.BeatmapInfo{changed}))

	got, err := repo.GetBeatmaps(ctx, nil, []matchdomain.BeatmapHash{info.MD5})
	require.NoError(t, err)
	assert.Equal(t, info.Title, got[info.MD5].Title, "first write wins")

	count, err := env.DB.NewSelect().Model((*matchdb.Beatmap)(nil)).Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestBeatmapRepository_InsideTransaction(t *testing.T) {
	env := requireEnv(t)
	env.TruncateTables(t, "beatmaps")

	ctx := context.Background()
	repo := matchdb.NewRepository(env.DB)
	info := fakeBeatmap(gofakeit.New(9))

	tx, err := env.DB.BeginTx(ctx, nil)
	require.NoError(t, err)
	require.NoError(t, repo.SaveBeatmaps(ctx, tx, []matchdomain.BeatmapInfo{info}))
	require.NoError(t, tx.Rollback())

	got, err := repo.GetBeatmaps(ctx, nil, []matchdomain.BeatmapHash{info.MD5})
	require.NoError(t, err)
	assert.Empty(t, got)
}
