// Package leaderboard merges validated runs into rank-ordered leaderboards:
// personal-best and world-record detection, cascading rank and XP
// recomputation, replay blob bookkeeping, and the append-only run history.
package leaderboard

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/sourcegraph/conc"

	"rungate/internal/blobstore"
	"rungate/internal/database"
	"rungate/internal/gamemode"
	"rungate/internal/metrics"
	"rungate/internal/xp"
	"rungate/models"
)

// Service is the leaderboard merge engine. Each submission runs inside one
// serializable transaction scoped to its leaderboard key, so concurrent
// submissions to the same leaderboard serialize and rank shifts never
// interleave.
type Service struct {
	db    *database.DB
	blobs *blobstore.Store
	xp    *xp.System
}

func NewService(db *database.DB, blobs *blobstore.Store, xpSys *xp.System) *Service {
	if xpSys == nil {
		xpSys = xp.New()
	}
	return &Service{db: db, blobs: blobs, xp: xpSys}
}

// Submit merges one trusted ProcessedRun. The run has already passed
// validation; nothing here re-checks it.
//
// The blob store and the database are separate systems with no shared
// transaction: when the run looks like a PB the replay write runs
// concurrently with the merge statements, but a PB transaction only commits
// once its replay is durably stored. A storage failure therefore rolls the
// merge back, so resubmitting the same completion restores the whole thing.
// A crash between the blob write and the commit can orphan a blob; a row
// without its replay cannot happen.
func (s *Service) Submit(ctx context.Context, run *models.ProcessedRun, replayBytes []byte) (*models.CompletedRun, error) {
	key := database.LeaderboardKey{
		MapID:     run.MapID,
		Gamemode:  run.Gamemode,
		TrackType: run.TrackType,
		TrackNum:  run.TrackNum,
		Style:     gamemode.StyleNone,
	}

	// Pre-read outside the transaction only to decide whether to start the
	// blob write; the transaction re-reads authoritatively.
	preExisting, err := s.db.Leaderboard.GetRun(ctx, key, run.UserID)
	if err != nil && !errors.Is(err, database.ErrNotFound) {
		return nil, err
	}
	likelyPB := preExisting == nil || preExisting.Time > run.Time

	var (
		wg         conc.WaitGroup
		blobbed    bool
		putErr     error
		replayHash = blobstore.Hash(replayBytes)
	)
	if likelyPB {
		blobbed = true
		wg.Go(func() {
			_, _, putErr = s.blobs.Put(replayBytes)
		})
	}

	var result *models.CompletedRun
	txErr := s.db.InTx(ctx, func(tx *sql.Tx) error {
		var err error
		result, err = s.merge(ctx, tx, key, run, replayHash)
		if err != nil || !result.IsNewPersonalBest {
			return err
		}
		if !blobbed {
			// The pre-read guessed wrong; store synchronously before commit.
			blobbed = true
			_, _, putErr = s.blobs.Put(replayBytes)
		} else {
			wg.Wait()
		}
		if putErr != nil {
			return fmt.Errorf("replay not stored: %w", putErr)
		}
		return nil
	})
	wg.Wait()

	if txErr != nil {
		if blobbed && putErr == nil {
			// The merge rolled back after the blob landed; nothing references
			// it, so reclaim it now rather than leaving an orphan.
			s.deleteBlob(replayHash)
		}
		return nil, txErr
	}
	if !result.IsNewPersonalBest {
		if blobbed && putErr == nil && (result.Run == nil || result.Run.ReplayHash != replayHash) {
			// A concurrent submission beat this run between the pre-read and
			// the transaction; the optimistic blob is unreferenced.
			s.deleteBlob(replayHash)
		}
		return result, nil
	}
	if preExisting != nil && preExisting.ReplayHash != replayHash {
		s.deleteBlob(preExisting.ReplayHash)
	}
	return result, nil
}

// deleteBlob drops a replay blob nothing references anymore. Failure is
// logged, not surfaced: a stale blob is wasted disk, not corruption.
func (s *Service) deleteBlob(hash string) {
	if err := s.blobs.Delete(blobstore.Key(hash)); err != nil {
		slog.Warn("leaderboard.stale_replay_delete_failed",
			"key", blobstore.Key(hash), "error", err)
	}
}

func (s *Service) merge(ctx context.Context, tx *sql.Tx, key database.LeaderboardKey, run *models.ProcessedRun, replayHash string) (*models.CompletedRun, error) {
	lb := s.db.Leaderboard.WithTx(tx)
	users := s.db.Users.WithTx(tx)
	maps := s.db.Maps.WithTx(tx)

	existing, err := lb.GetRun(ctx, key, run.UserID)
	if err != nil && !errors.Is(err, database.ErrNotFound) {
		return nil, err
	}

	// Strict improvement only. A tie keeps the old PB's rank and timestamp.
	isPB := existing == nil || existing.Time > run.Time
	firstCompletion := existing == nil

	// History first: every completed attempt leaves a PastRun row, PB or
	// not.
	pastRun := &models.PastRun{
		UserID:    run.UserID,
		MapID:     run.MapID,
		Gamemode:  run.Gamemode,
		TrackType: run.TrackType,
		TrackNum:  run.TrackNum,
		Style:     key.Style,
		Time:      run.Time,
		IsPB:      isPB,
	}
	if err := lb.CreatePastRun(ctx, pastRun); err != nil {
		return nil, err
	}

	gain, err := s.applyStats(ctx, users, maps, run, firstCompletion)
	if err != nil {
		return nil, err
	}

	result := &models.CompletedRun{XP: gain}
	if !isPB {
		result.Run = existing
		return result, nil
	}

	total, err := lb.CountRuns(ctx, key)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		total++
	}
	faster, err := lb.CountFaster(ctx, key, run.Time, run.UserID)
	if err != nil {
		return nil, err
	}
	newRank := int32(faster) + 1
	isWR := newRank == 1

	// Everyone between the new rank and the user's old position slides down
	// one, and their rank XP is recomputed against the new field size.
	shiftTo := int32(-1)
	if existing != nil {
		shiftTo = existing.Rank
	}
	shifted, err := lb.ShiftRanks(ctx, key, newRank, shiftTo, run.UserID)
	if err != nil {
		return nil, err
	}
	metrics.RankShiftWidth.Observe(float64(shifted))

	listTo := shiftTo
	if listTo >= 0 {
		listTo++ // shifted rows now occupy one rank lower
	}
	displaced, err := lb.ListRanksInRange(ctx, key, newRank+1, listTo, run.UserID)
	if err != nil {
		return nil, err
	}
	for _, row := range displaced {
		rankXP := s.xp.RankXPForRank(int(row.Rank), int(total)).RankXP
		if err := lb.UpdateRankXP(ctx, key, row.UserID, rankXP); err != nil {
			return nil, err
		}
	}

	gain.RankXP = s.xp.RankXPForRank(int(newRank), int(total)).RankXP
	result.XP = gain

	own := &models.LeaderboardRun{
		MapID:      run.MapID,
		Gamemode:   run.Gamemode,
		TrackType:  run.TrackType,
		TrackNum:   run.TrackNum,
		Style:      key.Style,
		UserID:     run.UserID,
		Time:       run.Time,
		Rank:       newRank,
		RankXP:     gain.RankXP,
		ReplayHash: replayHash,
		SplitsJSON: run.SplitsJSON,
		PastRunID:  pastRun.ID,
	}
	if err := lb.UpsertRun(ctx, own); err != nil {
		return nil, err
	}

	activityType := models.ActivityPBAchieved
	recordKind := "pb"
	if isWR {
		activityType = models.ActivityWRAchieved
		recordKind = "wr"
	}
	if err := lb.CreateActivity(ctx, &models.Activity{
		Type:   activityType,
		UserID: run.UserID,
		Data:   run.MapID,
	}); err != nil {
		return nil, err
	}
	metrics.PersonalBests.WithLabelValues(recordKind).Inc()
	slog.Info("leaderboard.pb",
		"user_id", run.UserID, "map_id", run.MapID,
		"gamemode", run.Gamemode.String(), "track_type", run.TrackType.String(),
		"track_num", run.TrackNum, "time", run.Time,
		"rank", newRank, "total", total, "wr", isWR)

	result.IsNewPersonalBest = true
	result.IsNewWorldRecord = isWR
	result.Run = own
	return result, nil
}

// applyStats folds the run into the user aggregates and, for main-track
// runs, the map completion counters. Cosmetic XP is awarded on every
// completion, scaled down for repeats, with level-ups computed against the
// level curve.
func (s *Service) applyStats(ctx context.Context, users *database.UserRepository, maps *database.MapRepository, run *models.ProcessedRun, firstCompletion bool) (models.XpGain, error) {
	var gain models.XpGain

	mv, err := maps.GetVersion(ctx, run.MapID)
	if err != nil {
		return gain, err
	}
	gain.CosXP = s.xp.CosXPForCompletion(mv.Tier, run.TrackType, mv.Linear, firstCompletion)

	stats, err := users.GetStats(ctx, run.UserID)
	if err != nil {
		return gain, err
	}
	level := stats.Level
	total := stats.CosXP + gain.CosXP
	for {
		need := s.xp.CosXPForLevel(int(level) + 1)
		if need < 0 || total < need {
			break
		}
		level++
	}
	gain.GainLevel = level - stats.Level

	mainTrack := run.TrackType == gamemode.TrackMain
	if err := users.ApplyRunStats(ctx, run.UserID, run.Stats, firstCompletion && mainTrack, gain.CosXP, gain.GainLevel); err != nil {
		return gain, err
	}
	if mainTrack {
		if err := maps.IncrementStats(ctx, run.MapID, firstCompletion); err != nil {
			return gain, err
		}
	}
	return gain, nil
}
