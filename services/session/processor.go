package session

import (
	"log/slog"
	"time"

	"github.com/goccy/go-json"

	"rungate/internal/replay"
	"rungate/internal/zone"
	"rungate/models"
)

// Timing tolerances, all in milliseconds. These bound legitimate network and
// client-clock jitter without trusting the client clock outright.
const (
	// AllowedClockDrift is how far the client clock may run ahead of ours.
	AllowedClockDrift = 1000

	// Submission delay: how long after the replay's end timestamp the
	// completion request may arrive. Longer runs get more slack, capped.
	AllowedSubmitDelayBase      = 10000
	AllowedSubmitDelayIncrement = 1000 // per minute of run time
	AllowedSubmitDelayMax       = 30000

	// AllowedTimestampDelay is how long after the replay-derived wall time a
	// checkpoint event may have been recorded server-side.
	AllowedTimestampDelay = 5000
)

// RunProcessor turns an untrusted (session, replay buffer) pair into a
// trusted ProcessedRun. Validation is a linear pipeline with no branching
// once started: timestamps, then header, then splits. Check order is a
// compatibility surface, client-visible error codes depend on it.
type RunProcessor struct {
	session    *models.RunSession
	timestamps []models.SessionTimestamp
	user       *models.User
	mapVersion *models.MapVersion
	zones      *zone.Zones
	header     replay.Header
	splits     replay.Splits
	now        time.Time
	log        *slog.Logger
}

// NewRunProcessor decodes the replay buffer up front; a buffer that does not
// decode never reaches the validators.
func NewRunProcessor(
	buf []byte,
	sess *models.RunSession,
	timestamps []models.SessionTimestamp,
	user *models.User,
	mapVersion *models.MapVersion,
	zones *zone.Zones,
	now time.Time,
) (*RunProcessor, *ValidationError) {
	p := &RunProcessor{
		session:    sess,
		timestamps: timestamps,
		user:       user,
		mapVersion: mapVersion,
		zones:      zones,
		now:        now,
		log: slog.With(
			"session_id", sess.ID,
			"user_id", sess.UserID,
			"map_id", sess.MapID,
		),
	}

	header, splits, err := replay.Decode(buf)
	if err != nil {
		p.log.Info("runprocessor.rejected",
			"kind", RejectBadReplayFile.String(),
			"reason", "decode",
			"error", err,
			"buffer_len", len(buf))
		return nil, reject(RejectBadReplayFile, "decode")
	}
	p.header = *header
	p.splits = *splits
	return p, nil
}

// Process runs the full validation pipeline and builds the ProcessedRun.
func (p *RunProcessor) Process() (*models.ProcessedRun, *ValidationError) {
	if verr := p.validateSessionTimestamps(); verr != nil {
		return nil, verr
	}
	if verr := p.validateReplayHeader(); verr != nil {
		return nil, verr
	}
	if verr := p.validateRunSplits(); verr != nil {
		return nil, verr
	}
	return p.processed()
}

// Header returns the decoded replay header. Valid only after construction
// succeeded.
func (p *RunProcessor) Header() *replay.Header {
	return &p.header
}

func (p *RunProcessor) processed() (*models.ProcessedRun, *ValidationError) {
	splitsJSON, err := json.Marshal(&p.splits)
	if err != nil {
		// Splits came from our own decoder; failing to re-encode them is a
		// bug, not client input.
		p.log.Error("runprocessor.splits_marshal_failed", "error", err)
		return nil, reject(RejectFuckyBehaviour, "splits_marshal")
	}

	var stats models.RunStats
	for _, seg := range p.splits.Segments {
		for _, sub := range seg.Subsegments {
			stats.TotalJumps += int64(sub.Stats.Jumps)
			stats.TotalStrafes += int64(sub.Stats.Strafes)
		}
	}

	return &models.ProcessedRun{
		UserID:     p.session.UserID,
		MapID:      p.session.MapID,
		Gamemode:   p.session.Gamemode,
		TrackType:  p.session.TrackType,
		TrackNum:   p.session.TrackNum,
		Time:       p.header.RunTime,
		Flags:      p.header.RunFlags,
		Stats:      stats,
		SplitsJSON: splitsJSON,
	}, nil
}

// rejected logs the full rejection context and returns the classified error.
// The context never reaches the client.
func (p *RunProcessor) rejected(kind RejectionKind, reason string, extra ...any) *ValidationError {
	args := []any{
		"kind", kind.String(),
		"reason", reason,
		"gamemode", p.session.Gamemode.String(),
		"track_type", p.session.TrackType.String(),
		"track_num", p.session.TrackNum,
		"timestamp_count", len(p.timestamps),
		"header_map", p.header.MapName,
		"header_steam_id", p.header.PlayerSteamID,
		"header_run_time", p.header.RunTime,
		"header_timestamp", p.header.Timestamp,
	}
	args = append(args, extra...)
	p.log.Info("runprocessor.rejected", args...)
	return reject(kind, reason)
}

func (p *RunProcessor) track() (*zone.TrackView, *ValidationError) {
	track, err := p.zones.Track(p.session.TrackType, int(p.session.TrackNum))
	if err != nil {
		return nil, p.rejected(RejectBadTimestamps, "no_such_track", "error", err)
	}
	return track, nil
}
