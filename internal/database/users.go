package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"rungate/models"
)

// UserRepository reads users and maintains their aggregate run stats.
type UserRepository struct {
	q querier
}

func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{q: db}
}

// WithTx returns a view of the repository scoped to a transaction.
func (r *UserRepository) WithTx(tx *sql.Tx) *UserRepository {
	return &UserRepository{q: tx}
}

func (r *UserRepository) Get(ctx context.Context, userID int64) (*models.User, error) {
	var (
		u  models.User
		ms int64
	)
	err := r.q.QueryRowContext(ctx,
		`SELECT id, steam_id, alias, bans, created_at FROM users WHERE id = ?`, userID,
	).Scan(&u.ID, &u.SteamID, &u.Alias, &u.Bans, &ms)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("user %d: %w", userID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	u.CreatedAt = fromMS(ms)
	return &u, nil
}

// Create inserts a user and seeds the stats row every completed run updates.
func (r *UserRepository) Create(ctx context.Context, u *models.User) error {
	now := toMS(time.Now())
	if _, err := r.q.ExecContext(ctx,
		`INSERT INTO users (id, steam_id, alias, bans, created_at) VALUES (?, ?, ?, ?, ?)`,
		u.ID, u.SteamID, u.Alias, u.Bans, now,
	); err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	if _, err := r.q.ExecContext(ctx,
		`INSERT INTO user_stats (user_id) VALUES (?)`, u.ID,
	); err != nil {
		return fmt.Errorf("create user stats: %w", err)
	}
	u.CreatedAt = fromMS(now)
	return nil
}

func (r *UserRepository) GetStats(ctx context.Context, userID int64) (*models.UserStats, error) {
	var s models.UserStats
	err := r.q.QueryRowContext(ctx,
		`SELECT user_id, total_jumps, total_strafes, runs_submitted, maps_completed, level, cos_xp
		 FROM user_stats WHERE user_id = ?`, userID,
	).Scan(&s.UserID, &s.TotalJumps, &s.TotalStrafes, &s.RunsSubmitted, &s.MapsCompleted, &s.Level, &s.CosXP)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("user stats %d: %w", userID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get user stats: %w", err)
	}
	return &s, nil
}

// ApplyRunStats folds one completed run into the user's aggregates:
// jump/strafe totals, submission count, first-completion count, and any
// cosmetic XP plus level-ups earned.
func (r *UserRepository) ApplyRunStats(ctx context.Context, userID int64, stats models.RunStats, firstCompletion bool, cosXP int64, gainLevel int32) error {
	completedInc := 0
	if firstCompletion {
		completedInc = 1
	}
	res, err := r.q.ExecContext(ctx,
		`UPDATE user_stats
		 SET total_jumps    = total_jumps + ?,
		     total_strafes  = total_strafes + ?,
		     runs_submitted = runs_submitted + 1,
		     maps_completed = maps_completed + ?,
		     cos_xp         = cos_xp + ?,
		     level          = level + ?
		 WHERE user_id = ?`,
		stats.TotalJumps, stats.TotalStrafes, completedInc, cosXP, gainLevel, userID)
	if err != nil {
		return fmt.Errorf("apply run stats: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("user stats %d: %w", userID, ErrNotFound)
	}
	return nil
}
