package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"rungate/models"
)

var ErrNotFound = errors.New("not found")

// MapRepository reads map versions and maintains per-map completion stats.
type MapRepository struct {
	q querier
}

func NewMapRepository(db *sql.DB) *MapRepository {
	return &MapRepository{q: db}
}

// WithTx returns a view of the repository scoped to a transaction.
func (r *MapRepository) WithTx(tx *sql.Tx) *MapRepository {
	return &MapRepository{q: tx}
}

// GetVersion returns the current version of a map: name, content hash and
// zones JSON.
func (r *MapRepository) GetVersion(ctx context.Context, mapID int64) (*models.MapVersion, error) {
	var (
		v      models.MapVersion
		zones  string
		linear int
	)
	err := r.q.QueryRowContext(ctx,
		`SELECT id, name, hash, zones, tier, linear FROM maps WHERE id = ?`, mapID,
	).Scan(&v.MapID, &v.Name, &v.Hash, &zones, &v.Tier, &linear)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("map %d: %w", mapID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get map version: %w", err)
	}
	v.ZonesJSON = []byte(zones)
	v.Linear = linear != 0
	return &v, nil
}

// Create inserts a map and seeds its stats row.
func (r *MapRepository) Create(ctx context.Context, v *models.MapVersion) error {
	now := toMS(time.Now())
	linear := 0
	if v.Linear {
		linear = 1
	}
	if _, err := r.q.ExecContext(ctx,
		`INSERT INTO maps (id, name, hash, zones, tier, linear, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		v.MapID, v.Name, v.Hash, string(v.ZonesJSON), v.Tier, linear, now,
	); err != nil {
		return fmt.Errorf("create map: %w", err)
	}
	if _, err := r.q.ExecContext(ctx,
		`INSERT INTO map_stats (map_id, updated_at) VALUES (?, ?)`, v.MapID, now,
	); err != nil {
		return fmt.Errorf("create map stats: %w", err)
	}
	return nil
}

// IncrementStats bumps a map's completion counters; uniqueCompletions only
// the first time this user ever completed the map.
func (r *MapRepository) IncrementStats(ctx context.Context, mapID int64, unique bool) error {
	uniqueInc := 0
	if unique {
		uniqueInc = 1
	}
	_, err := r.q.ExecContext(ctx,
		`UPDATE map_stats
		 SET completions = completions + 1,
		     unique_completions = unique_completions + ?,
		     updated_at = ?
		 WHERE map_id = ?`,
		uniqueInc, toMS(time.Now()), mapID)
	if err != nil {
		return fmt.Errorf("increment map stats: %w", err)
	}
	return nil
}

// GetStats returns a map's completion counters.
func (r *MapRepository) GetStats(ctx context.Context, mapID int64) (*models.MapStats, error) {
	var (
		s  models.MapStats
		ms int64
	)
	err := r.q.QueryRowContext(ctx,
		`SELECT map_id, completions, unique_completions, updated_at FROM map_stats WHERE map_id = ?`, mapID,
	).Scan(&s.MapID, &s.Completions, &s.UniqueCompletions, &ms)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("map stats %d: %w", mapID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get map stats: %w", err)
	}
	s.UpdatedAt = fromMS(ms)
	return &s, nil
}
