package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"rungate/models"
)

// SessionRepository stores in-progress run sessions and their checkpoint
// timestamps.
type SessionRepository struct {
	q querier
}

func NewSessionRepository(db *sql.DB) *SessionRepository {
	return &SessionRepository{q: db}
}

// WithTx returns a view of the repository scoped to a transaction.
func (r *SessionRepository) WithTx(tx *sql.Tx) *SessionRepository {
	return &SessionRepository{q: tx}
}

// Create opens a session and seeds its first timestamp. Any existing session
// for the same (user, map, gamemode, trackType, trackNum) is replaced, its
// timestamps cascading away with it.
func (r *SessionRepository) Create(ctx context.Context, s *models.RunSession, first models.SessionTimestamp) error {
	now := toMS(time.Now())
	if _, err := r.q.ExecContext(ctx,
		`DELETE FROM run_sessions WHERE user_id = ? AND map_id = ? AND gamemode = ? AND track_type = ? AND track_num = ?`,
		s.UserID, s.MapID, s.Gamemode, s.TrackType, s.TrackNum,
	); err != nil {
		return fmt.Errorf("replace session: %w", err)
	}
	if _, err := r.q.ExecContext(ctx,
		`INSERT INTO run_sessions (id, user_id, map_id, gamemode, track_type, track_num, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		s.ID.String(), s.UserID, s.MapID, s.Gamemode, s.TrackType, s.TrackNum, now,
	); err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	s.CreatedAt = fromMS(now)
	if _, err := r.AppendTimestamp(ctx, s.ID, first.MajorNum, first.MinorNum, first.Time); err != nil {
		return err
	}
	return nil
}

// AppendTimestamp records one checkpoint event, preserving arrival order.
func (r *SessionRepository) AppendTimestamp(ctx context.Context, sessionID uuid.UUID, majorNum, minorNum int32, t float64) (*models.SessionTimestamp, error) {
	now := toMS(time.Now())
	res, err := r.q.ExecContext(ctx,
		`INSERT INTO run_session_timestamps (session_id, major_num, minor_num, time, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		sessionID.String(), majorNum, minorNum, t, now)
	if err != nil {
		return nil, fmt.Errorf("append timestamp: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("append timestamp: %w", err)
	}
	return &models.SessionTimestamp{
		ID:        id,
		SessionID: sessionID,
		MajorNum:  majorNum,
		MinorNum:  minorNum,
		Time:      t,
		CreatedAt: fromMS(now),
	}, nil
}

func (r *SessionRepository) Get(ctx context.Context, sessionID uuid.UUID) (*models.RunSession, error) {
	var (
		s  models.RunSession
		id string
		ms int64
	)
	err := r.q.QueryRowContext(ctx,
		`SELECT id, user_id, map_id, gamemode, track_type, track_num, created_at
		 FROM run_sessions WHERE id = ?`, sessionID.String(),
	).Scan(&id, &s.UserID, &s.MapID, &s.Gamemode, &s.TrackType, &s.TrackNum, &ms)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("session %s: %w", sessionID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	s.ID, err = uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	s.CreatedAt = fromMS(ms)
	return &s, nil
}

// Timestamps returns a session's checkpoint events in arrival order.
func (r *SessionRepository) Timestamps(ctx context.Context, sessionID uuid.UUID) ([]models.SessionTimestamp, error) {
	rows, err := r.q.QueryContext(ctx,
		`SELECT id, major_num, minor_num, time, created_at
		 FROM run_session_timestamps WHERE session_id = ? ORDER BY id`, sessionID.String())
	if err != nil {
		return nil, fmt.Errorf("list timestamps: %w", err)
	}
	defer rows.Close()

	var out []models.SessionTimestamp
	for rows.Next() {
		var (
			ts models.SessionTimestamp
			ms int64
		)
		if err := rows.Scan(&ts.ID, &ts.MajorNum, &ts.MinorNum, &ts.Time, &ms); err != nil {
			return nil, fmt.Errorf("scan timestamp: %w", err)
		}
		ts.SessionID = sessionID
		ts.CreatedAt = fromMS(ms)
		out = append(out, ts)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list timestamps: %w", err)
	}
	return out, nil
}

func (r *SessionRepository) Delete(ctx context.Context, sessionID uuid.UUID) error {
	if _, err := r.q.ExecContext(ctx,
		`DELETE FROM run_sessions WHERE id = ?`, sessionID.String()); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// DeleteAllForUser drops every open session a user has, across all maps.
func (r *SessionRepository) DeleteAllForUser(ctx context.Context, userID int64) error {
	if _, err := r.q.ExecContext(ctx,
		`DELETE FROM run_sessions WHERE user_id = ?`, userID); err != nil {
		return fmt.Errorf("delete user sessions: %w", err)
	}
	return nil
}
