package leaderboard

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rungate/internal/blobstore"
	"rungate/internal/database"
	"rungate/internal/gamemode"
	"rungate/models"
)

func newTestService(t *testing.T) (*Service, *database.DB, *blobstore.Store) {
	t.Helper()
	db, err := database.NewDB(database.Config{DatabasePath: filepath.Join(t.TempDir(), "test.db")})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	ctx := context.Background()
	for i := int64(1); i <= 5; i++ {
		require.NoError(t, db.Users.Create(ctx, &models.User{
			ID: i, SteamID: uint64(i), Alias: fmt.Sprintf("runner%d", i),
		}))
	}
	require.NoError(t, db.Maps.Create(ctx, &models.MapVersion{
		MapID: 10, Name: "bhop_stub", Hash: "f14b5f54fe4ebc7e03a4e9bb1ad4dbb5a1e4b8f2",
		ZonesJSON: []byte(`{}`), Tier: 3, Linear: true,
	}))

	blobs := blobstore.New(afero.NewMemMapFs(), "replays")
	return NewService(db, blobs, nil), db, blobs
}

func processedRun(userID int64, runTime float64) *models.ProcessedRun {
	return &models.ProcessedRun{
		UserID:     userID,
		MapID:      10,
		Gamemode:   gamemode.Bhop,
		TrackType:  gamemode.TrackMain,
		TrackNum:   1,
		Time:       runTime,
		Stats:      models.RunStats{TotalJumps: 40, TotalStrafes: 80},
		SplitsJSON: []byte(`{"segments":[]}`),
	}
}

func replayBytes(userID int64, runTime float64) []byte {
	return []byte(fmt.Sprintf("replay-%d-%v", userID, runTime))
}

func submit(t *testing.T, svc *Service, userID int64, runTime float64) *models.CompletedRun {
	t.Helper()
	res, err := svc.Submit(context.Background(), processedRun(userID, runTime), replayBytes(userID, runTime))
	require.NoError(t, err)
	return res
}

func mainKey() database.LeaderboardKey {
	return database.LeaderboardKey{
		MapID: 10, Gamemode: gamemode.Bhop,
		TrackType: gamemode.TrackMain, TrackNum: 1, Style: gamemode.StyleNone,
	}
}

func assertDenseRanks(t *testing.T, db *database.DB) []models.LeaderboardRun {
	t.Helper()
	runs, err := db.Leaderboard.ListRuns(context.Background(), mainKey())
	require.NoError(t, err)
	for i, run := range runs {
		assert.Equal(t, int32(i+1), run.Rank, "rank at position %d", i)
	}
	return runs
}

func TestFirstSubmissionIsWorldRecord(t *testing.T) {
	svc, db, blobs := newTestService(t)
	ctx := context.Background()

	res := submit(t, svc, 1, 60)
	assert.True(t, res.IsNewPersonalBest)
	assert.True(t, res.IsNewWorldRecord)
	require.NotNil(t, res.Run)
	assert.Equal(t, int32(1), res.Run.Rank)
	assert.Positive(t, res.XP.RankXP)
	assert.Positive(t, res.XP.CosXP)

	// Replay stored under its content hash.
	hash := blobstore.Hash(replayBytes(1, 60))
	assert.Equal(t, hash, res.Run.ReplayHash)
	_, err := blobs.Get(blobstore.Key(hash))
	assert.NoError(t, err)

	// One WR activity, one past run, updated aggregates.
	acts, err := db.Leaderboard.ListActivities(ctx, 1)
	require.NoError(t, err)
	require.Len(t, acts, 1)
	assert.Equal(t, models.ActivityWRAchieved, acts[0].Type)

	past, err := db.Leaderboard.ListPastRuns(ctx, 1, 10)
	require.NoError(t, err)
	require.Len(t, past, 1)
	assert.True(t, past[0].IsPB)
	assert.Equal(t, past[0].ID, res.Run.PastRunID)

	stats, err := db.Users.GetStats(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.RunsSubmitted)
	assert.Equal(t, int64(40), stats.TotalJumps)
	assert.Equal(t, int64(1), stats.MapsCompleted)
	assert.Equal(t, res.XP.CosXP, stats.CosXP)

	mapStats, err := db.Maps.GetStats(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(1), mapStats.Completions)
	assert.Equal(t, int64(1), mapStats.UniqueCompletions)
}

func TestSlowerRunIsPBNotWR(t *testing.T) {
	svc, db, _ := newTestService(t)

	submit(t, svc, 1, 60)
	res := submit(t, svc, 2, 70)
	assert.True(t, res.IsNewPersonalBest)
	assert.False(t, res.IsNewWorldRecord)
	assert.Equal(t, int32(2), res.Run.Rank)

	acts, err := db.Leaderboard.ListActivities(context.Background(), 2)
	require.NoError(t, err)
	require.Len(t, acts, 1)
	assert.Equal(t, models.ActivityPBAchieved, acts[0].Type)

	assertDenseRanks(t, db)
}

func TestImprovementShiftsRanks(t *testing.T) {
	svc, db, blobs := newTestService(t)
	ctx := context.Background()

	submit(t, svc, 1, 50)
	submit(t, svc, 2, 60)
	submit(t, svc, 3, 70)

	// User 3 improves from rank 3 to rank 2; user 2 slides down.
	res := submit(t, svc, 3, 55)
	assert.True(t, res.IsNewPersonalBest)
	assert.False(t, res.IsNewWorldRecord)
	assert.Equal(t, int32(2), res.Run.Rank)

	runs := assertDenseRanks(t, db)
	require.Len(t, runs, 3)
	assert.Equal(t, int64(1), runs[0].UserID)
	assert.Equal(t, int64(3), runs[1].UserID)
	assert.Equal(t, int64(2), runs[2].UserID)

	// Displaced rank XP recomputed: user 2 at rank 3 now earns less than
	// user 3 at rank 2.
	assert.Greater(t, runs[1].RankXP, runs[2].RankXP)

	// Old replay gone, new one stored.
	_, err := blobs.Get(blobstore.Key(blobstore.Hash(replayBytes(3, 70))))
	assert.Error(t, err)
	_, err = blobs.Get(blobstore.Key(blobstore.Hash(replayBytes(3, 55))))
	assert.NoError(t, err)

	past, err := db.Leaderboard.ListPastRuns(ctx, 3, 10)
	require.NoError(t, err)
	assert.Len(t, past, 2)
}

func TestNewWorldRecordShiftsEveryone(t *testing.T) {
	svc, db, _ := newTestService(t)

	submit(t, svc, 1, 50)
	submit(t, svc, 2, 60)
	submit(t, svc, 3, 70)

	res := submit(t, svc, 4, 40)
	assert.True(t, res.IsNewWorldRecord)
	assert.Equal(t, int32(1), res.Run.Rank)

	runs := assertDenseRanks(t, db)
	require.Len(t, runs, 4)
	assert.Equal(t, int64(4), runs[0].UserID)
	assert.Equal(t, int64(1), runs[1].UserID)
}

func TestEqualTimeIsNotPB(t *testing.T) {
	svc, db, blobs := newTestService(t)
	ctx := context.Background()

	first := submit(t, svc, 1, 60)
	again := submit(t, svc, 1, 60)

	assert.False(t, again.IsNewPersonalBest)
	assert.False(t, again.IsNewWorldRecord)
	// Rank, replay and row timestamp keep the original PB's values.
	require.NotNil(t, again.Run)
	assert.Equal(t, first.Run.Rank, again.Run.Rank)
	assert.Equal(t, first.Run.ReplayHash, again.Run.ReplayHash)
	_, err := blobs.Get(blobstore.Key(first.Run.ReplayHash))
	assert.NoError(t, err)

	// Aggregates and history still advance.
	stats, err := db.Users.GetStats(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.RunsSubmitted)
	past, err := db.Leaderboard.ListPastRuns(ctx, 1, 10)
	require.NoError(t, err)
	require.Len(t, past, 2)
	assert.False(t, past[0].IsPB) // newest first

	acts, err := db.Leaderboard.ListActivities(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, acts, 1)
}

func TestStorageFailureRollsBackMerge(t *testing.T) {
	svc, db, blobs := newTestService(t)
	ctx := context.Background()

	broken := NewService(db, blobstore.New(afero.NewReadOnlyFs(afero.NewMemMapFs()), "replays"), nil)
	_, err := broken.Submit(ctx, processedRun(1, 60), replayBytes(1, 60))
	require.Error(t, err)

	// Nothing committed: row, history and aggregates all rolled back, so no
	// leaderboard entry can ever point at a replay that was never stored.
	_, err = db.Leaderboard.GetRun(ctx, mainKey(), 1)
	assert.ErrorIs(t, err, database.ErrNotFound)
	past, err := db.Leaderboard.ListPastRuns(ctx, 1, 10)
	require.NoError(t, err)
	assert.Empty(t, past)
	stats, err := db.Users.GetStats(ctx, 1)
	require.NoError(t, err)
	assert.Zero(t, stats.RunsSubmitted)

	// Resubmitting the same completion against healthy storage restores the
	// whole merge, replay included.
	res := submit(t, svc, 1, 60)
	assert.True(t, res.IsNewPersonalBest)
	assert.True(t, res.IsNewWorldRecord)
	_, err = blobs.Get(blobstore.Key(res.Run.ReplayHash))
	assert.NoError(t, err)
}

func TestFailedMergeReclaimsStoredReplay(t *testing.T) {
	svc, _, blobs := newTestService(t)
	ctx := context.Background()

	// User 99 does not exist, so the transaction fails after the optimistic
	// replay write already started. The unreferenced blob must not survive.
	_, err := svc.Submit(ctx, processedRun(99, 60), replayBytes(99, 60))
	require.Error(t, err)

	_, err = blobs.Get(blobstore.Key(blobstore.Hash(replayBytes(99, 60))))
	assert.Error(t, err)
}

func TestTieRanksBelowIncumbent(t *testing.T) {
	svc, db, _ := newTestService(t)

	submit(t, svc, 1, 60)
	res := submit(t, svc, 2, 60)
	assert.True(t, res.IsNewPersonalBest)
	assert.False(t, res.IsNewWorldRecord)
	assert.Equal(t, int32(2), res.Run.Rank)
	assertDenseRanks(t, db)
}

func TestRankDensityUnderManySubmissions(t *testing.T) {
	svc, db, _ := newTestService(t)

	times := []struct {
		user int64
		time float64
	}{
		{1, 100}, {2, 90}, {3, 95}, {4, 80}, {5, 85},
		{1, 70}, {3, 60}, {2, 90}, {5, 65}, {4, 75},
	}
	for _, s := range times {
		submit(t, svc, s.user, s.time)
	}

	runs := assertDenseRanks(t, db)
	require.Len(t, runs, 5)
	// Final order by best times: 3 (60), 5 (65), 1 (70), 4 (75), 2 (90).
	want := []int64{3, 5, 1, 4, 2}
	for i, userID := range want {
		assert.Equal(t, userID, runs[i].UserID, "position %d", i+1)
	}
}

func TestStageRunSkipsMapStats(t *testing.T) {
	svc, db, _ := newTestService(t)
	ctx := context.Background()

	run := processedRun(1, 20)
	run.TrackType = gamemode.TrackStage
	run.TrackNum = 2
	_, err := svc.Submit(ctx, run, replayBytes(1, 20))
	require.NoError(t, err)

	mapStats, err := db.Maps.GetStats(ctx, 10)
	require.NoError(t, err)
	assert.Zero(t, mapStats.Completions)

	stats, err := db.Users.GetStats(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.RunsSubmitted)
	assert.Zero(t, stats.MapsCompleted)
}

func TestCosXPLevelUp(t *testing.T) {
	svc, db, _ := newTestService(t)
	ctx := context.Background()

	// Tier 3 linear unique main completion awards 2500 * 16 = 40000, enough
	// to clear level 1 (21000) and land in level 2.
	res := submit(t, svc, 1, 60)
	assert.Equal(t, int64(40000), res.XP.CosXP)
	assert.Equal(t, int32(1), res.XP.GainLevel)

	stats, err := db.Users.GetStats(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int32(2), stats.Level)
}
