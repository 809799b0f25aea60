package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"rungate/internal/database"
	"rungate/internal/gamemode"
	"rungate/internal/metrics"
	"rungate/internal/zone"
	"rungate/models"
	"rungate/services/leaderboard"
)

var (
	ErrSessionNotFound = errors.New("run session not found")
	ErrUserNotFound    = errors.New("user not found")
	ErrMapNotFound     = errors.New("map not found")
)

// runMerger hands an accepted run to the leaderboard merge engine.
type runMerger interface {
	Submit(ctx context.Context, run *models.ProcessedRun, replayBytes []byte) (*models.CompletedRun, error)
}

var _ runMerger = (*leaderboard.Service)(nil)

// Service owns the run session lifecycle: open a session when a run starts,
// append checkpoint events while it is live, and on completion validate the
// replay against what was recorded before handing it to the merge engine.
type Service struct {
	db     *database.DB
	merger runMerger
	now    func() time.Time
}

// NewService wires the session service. now may be nil, defaulting to
// time.Now.
func NewService(db *database.DB, merger runMerger, now func() time.Time) *Service {
	if now == nil {
		now = time.Now
	}
	return &Service{db: db, merger: merger, now: now}
}

// CreateRequest identifies the track a run session is being opened on.
type CreateRequest struct {
	UserID    int64
	MapID     int64
	Gamemode  gamemode.Gamemode
	TrackType gamemode.TrackType
	TrackNum  int32
}

// Create opens a run session for a user on one track and seeds its start
// timestamp; any prior session with the same identity is replaced. The track
// is resolved up front so a session can never exist for a track the map does
// not have.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*models.RunSession, error) {
	user, err := s.db.Users.Get(ctx, req.UserID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	if user.HasBan(models.BanLeaderboards) {
		return nil, reject(RejectBanned, "banned")
	}

	mv, err := s.db.Maps.GetVersion(ctx, req.MapID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, ErrMapNotFound
		}
		return nil, err
	}
	zones, err := zone.Parse(mv.ZonesJSON)
	if err != nil {
		return nil, fmt.Errorf("map %d: %w", req.MapID, err)
	}
	if _, err := zones.Track(req.TrackType, int(req.TrackNum)); err != nil {
		return nil, reject(RejectBadTimestamps, "no_such_track")
	}

	sess := &models.RunSession{
		ID:        uuid.New(),
		UserID:    req.UserID,
		MapID:     req.MapID,
		Gamemode:  req.Gamemode,
		TrackType: req.TrackType,
		TrackNum:  req.TrackNum,
	}
	// The start checkpoint of the run's first (or only) segment fires as the
	// session opens.
	firstMajor := int32(1)
	if req.TrackType == gamemode.TrackStage {
		firstMajor = req.TrackNum
	}
	first := models.SessionTimestamp{MajorNum: firstMajor, MinorNum: 1, Time: 0}
	if err := s.db.Sessions.Create(ctx, sess, first); err != nil {
		return nil, err
	}
	slog.Debug("session.created",
		"session_id", sess.ID, "user_id", req.UserID, "map_id", req.MapID,
		"gamemode", req.Gamemode.String(), "track_type", req.TrackType.String(), "track_num", req.TrackNum)
	return sess, nil
}

// Update appends one checkpoint event to an open session.
func (s *Service) Update(ctx context.Context, sessionID uuid.UUID, userID int64, majorNum, minorNum int32, t float64) (*models.SessionTimestamp, error) {
	sess, err := s.ownedSession(ctx, sessionID, userID)
	if err != nil {
		return nil, err
	}
	return s.db.Sessions.AppendTimestamp(ctx, sess.ID, majorNum, minorNum, t)
}

// Invalidate unconditionally drops every open session the user has.
func (s *Service) Invalidate(ctx context.Context, userID int64) error {
	if err := s.db.Sessions.DeleteAllForUser(ctx, userID); err != nil {
		return err
	}
	slog.Debug("session.invalidated", "user_id", userID)
	return nil
}

// Complete validates the submitted replay against the session and, if it
// passes, merges it into the leaderboard. The session is consumed either
// way: a rejected run must start over.
func (s *Service) Complete(ctx context.Context, sessionID uuid.UUID, userID int64, replayBytes []byte) (*models.CompletedRun, error) {
	sess, err := s.ownedSession(ctx, sessionID, userID)
	if err != nil {
		return nil, err
	}

	user, err := s.db.Users.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user.HasBan(models.BanLeaderboards) {
		_ = s.db.Sessions.Delete(ctx, sessionID)
		return nil, reject(RejectBanned, "banned")
	}

	mv, err := s.db.Maps.GetVersion(ctx, sess.MapID)
	if err != nil {
		return nil, err
	}
	zones, err := zone.Parse(mv.ZonesJSON)
	if err != nil {
		return nil, fmt.Errorf("map %d: %w", sess.MapID, err)
	}
	timestamps, err := s.db.Sessions.Timestamps(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	processed, verr := s.validate(replayBytes, sess, timestamps, user, mv, zones)
	if verr != nil {
		metrics.RunsProcessed.WithLabelValues(verr.Kind.String()).Inc()
		_ = s.db.Sessions.Delete(ctx, sessionID)
		return nil, verr
	}
	metrics.RunsProcessed.WithLabelValues("accepted").Inc()

	completed, err := s.merger.Submit(ctx, processed, replayBytes)
	if err != nil {
		// Storage failure, not a rejection: keep the session so the client
		// can resubmit the same completion request.
		return nil, err
	}
	if err := s.db.Sessions.Delete(ctx, sessionID); err != nil {
		slog.Error("session.delete_failed", "session_id", sessionID, "error", err)
	}
	return completed, nil
}

func (s *Service) validate(
	replayBytes []byte,
	sess *models.RunSession,
	timestamps []models.SessionTimestamp,
	user *models.User,
	mv *models.MapVersion,
	zones *zone.Zones,
) (*models.ProcessedRun, *ValidationError) {
	p, verr := NewRunProcessor(replayBytes, sess, timestamps, user, mv, zones, s.now())
	if verr != nil {
		return nil, verr
	}
	return p.Process()
}

func (s *Service) ownedSession(ctx context.Context, sessionID uuid.UUID, userID int64) (*models.RunSession, error) {
	sess, err := s.db.Sessions.Get(ctx, sessionID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}
	if sess.UserID != userID {
		// Do not leak that another user's session exists.
		return nil, ErrSessionNotFound
	}
	return sess, nil
}
