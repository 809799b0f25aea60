package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"rungate/internal/gamemode"
	"rungate/models"
)

// LeaderboardKey identifies one leaderboard: one map, mode, track and style.
type LeaderboardKey struct {
	MapID     int64
	Gamemode  gamemode.Gamemode
	TrackType gamemode.TrackType
	TrackNum  int32
	Style     int32
}

// LeaderboardRepository stores current-best runs, their historical record and
// the activities emitted for them. Mutating calls are expected to run inside
// a merge transaction via WithTx.
type LeaderboardRepository struct {
	q querier
}

func NewLeaderboardRepository(db *sql.DB) *LeaderboardRepository {
	return &LeaderboardRepository{q: db}
}

// WithTx returns a view of the repository scoped to a transaction.
func (r *LeaderboardRepository) WithTx(tx *sql.Tx) *LeaderboardRepository {
	return &LeaderboardRepository{q: tx}
}

const leaderboardRunCols = `map_id, gamemode, track_type, track_num, style, user_id,
	time, rank, rank_xp, replay_hash, splits, past_run_id, created_at`

func scanLeaderboardRun(row interface{ Scan(...any) error }) (*models.LeaderboardRun, error) {
	var (
		run    models.LeaderboardRun
		splits string
		ms     int64
	)
	err := row.Scan(&run.MapID, &run.Gamemode, &run.TrackType, &run.TrackNum, &run.Style, &run.UserID,
		&run.Time, &run.Rank, &run.RankXP, &run.ReplayHash, &splits, &run.PastRunID, &ms)
	if err != nil {
		return nil, err
	}
	run.SplitsJSON = []byte(splits)
	run.CreatedAt = fromMS(ms)
	return &run, nil
}

// GetRun returns one user's current best on a leaderboard, or ErrNotFound.
func (r *LeaderboardRepository) GetRun(ctx context.Context, key LeaderboardKey, userID int64) (*models.LeaderboardRun, error) {
	row := r.q.QueryRowContext(ctx,
		`SELECT `+leaderboardRunCols+` FROM leaderboard_runs
		 WHERE map_id = ? AND gamemode = ? AND track_type = ? AND track_num = ? AND style = ? AND user_id = ?`,
		key.MapID, key.Gamemode, key.TrackType, key.TrackNum, key.Style, userID)
	run, err := scanLeaderboardRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get leaderboard run: %w", err)
	}
	return run, nil
}

// CountRuns returns the number of runs on a leaderboard.
func (r *LeaderboardRepository) CountRuns(ctx context.Context, key LeaderboardKey) (int64, error) {
	var n int64
	err := r.q.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM leaderboard_runs
		 WHERE map_id = ? AND gamemode = ? AND track_type = ? AND track_num = ? AND style = ?`,
		key.MapID, key.Gamemode, key.TrackType, key.TrackNum, key.Style).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count leaderboard runs: %w", err)
	}
	return n, nil
}

// CountFaster returns how many other users hold an equal or faster time; a
// tie keeps the earlier submitter ahead. A new run enters at that count plus
// one.
func (r *LeaderboardRepository) CountFaster(ctx context.Context, key LeaderboardKey, t float64, userID int64) (int64, error) {
	var n int64
	err := r.q.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM leaderboard_runs
		 WHERE map_id = ? AND gamemode = ? AND track_type = ? AND track_num = ? AND style = ?
		   AND time <= ? AND user_id != ?`,
		key.MapID, key.Gamemode, key.TrackType, key.TrackNum, key.Style, t, userID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count faster runs: %w", err)
	}
	return n, nil
}

// ShiftRanks pushes every other user's run in [from, to) down one rank. A
// negative to is unbounded. The displaced runs keep dense 1-based ranks
// around the caller's own row, which must be written after the shift.
func (r *LeaderboardRepository) ShiftRanks(ctx context.Context, key LeaderboardKey, from, to int32, excludeUserID int64) (int64, error) {
	query := `UPDATE leaderboard_runs SET rank = rank + 1
		 WHERE map_id = ? AND gamemode = ? AND track_type = ? AND track_num = ? AND style = ?
		   AND user_id != ? AND rank >= ?`
	args := []any{key.MapID, key.Gamemode, key.TrackType, key.TrackNum, key.Style, excludeUserID, from}
	if to >= 0 {
		query += ` AND rank < ?`
		args = append(args, to)
	}
	res, err := r.q.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("shift ranks: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("shift ranks: %w", err)
	}
	return n, nil
}

// ListRanksInRange returns the runs whose ranks fall in [from, to), ordered
// by rank, excluding one user. Used to recompute rank XP after a shift.
func (r *LeaderboardRepository) ListRanksInRange(ctx context.Context, key LeaderboardKey, from, to int32, excludeUserID int64) ([]models.LeaderboardRun, error) {
	query := `SELECT ` + leaderboardRunCols + ` FROM leaderboard_runs
		 WHERE map_id = ? AND gamemode = ? AND track_type = ? AND track_num = ? AND style = ?
		   AND user_id != ? AND rank >= ?`
	args := []any{key.MapID, key.Gamemode, key.TrackType, key.TrackNum, key.Style, excludeUserID, from}
	if to >= 0 {
		query += ` AND rank < ?`
		args = append(args, to)
	}
	query += ` ORDER BY rank`
	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list ranks: %w", err)
	}
	defer rows.Close()
	return collectRuns(rows)
}

// UpdateRankXP rewrites one run's rank XP after its rank moved.
func (r *LeaderboardRepository) UpdateRankXP(ctx context.Context, key LeaderboardKey, userID int64, rankXP int64) error {
	_, err := r.q.ExecContext(ctx,
		`UPDATE leaderboard_runs SET rank_xp = ?
		 WHERE map_id = ? AND gamemode = ? AND track_type = ? AND track_num = ? AND style = ? AND user_id = ?`,
		rankXP, key.MapID, key.Gamemode, key.TrackType, key.TrackNum, key.Style, userID)
	if err != nil {
		return fmt.Errorf("update rank xp: %w", err)
	}
	return nil
}

// UpsertRun writes a user's current best, replacing any previous row so the
// one-row-per-user invariant holds.
func (r *LeaderboardRepository) UpsertRun(ctx context.Context, run *models.LeaderboardRun) error {
	now := toMS(time.Now())
	_, err := r.q.ExecContext(ctx,
		`INSERT INTO leaderboard_runs (`+leaderboardRunCols+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (map_id, gamemode, track_type, track_num, style, user_id) DO UPDATE SET
		   time = excluded.time,
		   rank = excluded.rank,
		   rank_xp = excluded.rank_xp,
		   replay_hash = excluded.replay_hash,
		   splits = excluded.splits,
		   past_run_id = excluded.past_run_id,
		   created_at = excluded.created_at`,
		run.MapID, run.Gamemode, run.TrackType, run.TrackNum, run.Style, run.UserID,
		run.Time, run.Rank, run.RankXP, run.ReplayHash, string(run.SplitsJSON), run.PastRunID, now)
	if err != nil {
		return fmt.Errorf("upsert leaderboard run: %w", err)
	}
	run.CreatedAt = fromMS(now)
	return nil
}

// CreatePastRun appends one row to the immutable run history.
func (r *LeaderboardRepository) CreatePastRun(ctx context.Context, pr *models.PastRun) error {
	now := toMS(time.Now())
	isPB := 0
	if pr.IsPB {
		isPB = 1
	}
	res, err := r.q.ExecContext(ctx,
		`INSERT INTO past_runs (user_id, map_id, gamemode, track_type, track_num, style, time, is_pb, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		pr.UserID, pr.MapID, pr.Gamemode, pr.TrackType, pr.TrackNum, pr.Style, pr.Time, isPB, now)
	if err != nil {
		return fmt.Errorf("create past run: %w", err)
	}
	pr.ID, err = res.LastInsertId()
	if err != nil {
		return fmt.Errorf("create past run: %w", err)
	}
	pr.CreatedAt = fromMS(now)
	return nil
}

// ListPastRuns returns a user's history on one map, newest first.
func (r *LeaderboardRepository) ListPastRuns(ctx context.Context, userID, mapID int64) ([]models.PastRun, error) {
	rows, err := r.q.QueryContext(ctx,
		`SELECT id, user_id, map_id, gamemode, track_type, track_num, style, time, is_pb, created_at
		 FROM past_runs WHERE user_id = ? AND map_id = ? ORDER BY id DESC`, userID, mapID)
	if err != nil {
		return nil, fmt.Errorf("list past runs: %w", err)
	}
	defer rows.Close()

	var out []models.PastRun
	for rows.Next() {
		var (
			pr   models.PastRun
			isPB int
			ms   int64
		)
		if err := rows.Scan(&pr.ID, &pr.UserID, &pr.MapID, &pr.Gamemode, &pr.TrackType, &pr.TrackNum,
			&pr.Style, &pr.Time, &isPB, &ms); err != nil {
			return nil, fmt.Errorf("scan past run: %w", err)
		}
		pr.IsPB = isPB != 0
		pr.CreatedAt = fromMS(ms)
		out = append(out, pr)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list past runs: %w", err)
	}
	return out, nil
}

// CreateActivity records a PB or WR event.
func (r *LeaderboardRepository) CreateActivity(ctx context.Context, a *models.Activity) error {
	now := toMS(time.Now())
	res, err := r.q.ExecContext(ctx,
		`INSERT INTO activities (type, user_id, data, created_at) VALUES (?, ?, ?, ?)`,
		a.Type, a.UserID, a.Data, now)
	if err != nil {
		return fmt.Errorf("create activity: %w", err)
	}
	a.ID, err = res.LastInsertId()
	if err != nil {
		return fmt.Errorf("create activity: %w", err)
	}
	a.CreatedAt = fromMS(now)
	return nil
}

// ListActivities returns a user's activities, newest first.
func (r *LeaderboardRepository) ListActivities(ctx context.Context, userID int64) ([]models.Activity, error) {
	rows, err := r.q.QueryContext(ctx,
		`SELECT id, type, user_id, data, created_at FROM activities WHERE user_id = ? ORDER BY id DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list activities: %w", err)
	}
	defer rows.Close()

	var out []models.Activity
	for rows.Next() {
		var (
			a  models.Activity
			ms int64
		)
		if err := rows.Scan(&a.ID, &a.Type, &a.UserID, &a.Data, &ms); err != nil {
			return nil, fmt.Errorf("scan activity: %w", err)
		}
		a.CreatedAt = fromMS(ms)
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list activities: %w", err)
	}
	return out, nil
}

// ListRuns returns a whole leaderboard in rank order.
func (r *LeaderboardRepository) ListRuns(ctx context.Context, key LeaderboardKey) ([]models.LeaderboardRun, error) {
	rows, err := r.q.QueryContext(ctx,
		`SELECT `+leaderboardRunCols+` FROM leaderboard_runs
		 WHERE map_id = ? AND gamemode = ? AND track_type = ? AND track_num = ? AND style = ?
		 ORDER BY rank`,
		key.MapID, key.Gamemode, key.TrackType, key.TrackNum, key.Style)
	if err != nil {
		return nil, fmt.Errorf("list leaderboard runs: %w", err)
	}
	defer rows.Close()
	return collectRuns(rows)
}

func collectRuns(rows *sql.Rows) ([]models.LeaderboardRun, error) {
	var out []models.LeaderboardRun
	for rows.Next() {
		run, err := scanLeaderboardRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan leaderboard run: %w", err)
		}
		out = append(out, *run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list leaderboard runs: %w", err)
	}
	return out, nil
}
