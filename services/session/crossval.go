package session

import (
	"strings"

	"rungate/internal/gamemode"
	"rungate/models"
)

// validateReplayHeader checks the decoded header against the known map, user
// and session identity, and the submission timing tolerances.
func (p *RunProcessor) validateReplayHeader() *ValidationError {
	h := &p.header

	if !h.Gamemode.Valid() {
		return p.rejected(RejectUnsupportedMode, "unknown_gamemode",
			"header_gamemode", uint8(h.Gamemode))
	}
	if h.Gamemode != p.session.Gamemode {
		return p.rejected(RejectBadMeta, "gamemode_mismatch",
			"header_gamemode", h.Gamemode.String())
	}
	if h.TrackType != p.session.TrackType || int32(h.TrackNum) != p.session.TrackNum {
		return p.rejected(RejectBadMeta, "track_mismatch",
			"header_track_type", h.TrackType.String(), "header_track_num", h.TrackNum)
	}
	if !strings.EqualFold(h.MapHash, p.mapVersion.Hash) {
		return p.rejected(RejectBadMeta, "map_hash_mismatch",
			"header_map_hash", h.MapHash, "map_hash", p.mapVersion.Hash)
	}
	if h.MapName != p.mapVersion.Name {
		return p.rejected(RejectBadMeta, "map_name_mismatch",
			"header_map_name", h.MapName, "map_name", p.mapVersion.Name)
	}
	if h.PlayerSteamID != p.user.SteamID {
		return p.rejected(RejectBadMeta, "steam_id_mismatch",
			"header_steam_id", h.PlayerSteamID, "user_steam_id", p.user.SteamID)
	}
	// A wrong tick interval means a mismatched game build, not cheating.
	if h.TickInterval != gamemode.TickInterval(h.Gamemode) {
		return p.rejected(RejectOutOfSync, "tick_interval_mismatch",
			"header_tick_interval", h.TickInterval,
			"expected_tick_interval", gamemode.TickInterval(h.Gamemode))
	}

	runTimeMS := int64(h.RunTime * 1000)
	runStart := h.Timestamp - runTimeMS
	nowMS := p.now.UnixMilli()

	// How long after the run ended the completion request arrived. Longer
	// runs took longer to upload, so they get proportional slack.
	submitDelay := nowMS - h.Timestamp
	extra := AllowedSubmitDelayIncrement * runTimeMS / 60000
	if extra > AllowedSubmitDelayMax {
		extra = AllowedSubmitDelayMax
	}
	allowedSubmitDelay := int64(AllowedSubmitDelayBase+AllowedClockDrift) + extra
	if submitDelay < -AllowedClockDrift || submitDelay > allowedSubmitDelay {
		return p.rejected(RejectOutOfSync, "submit_delay",
			"submit_delay_ms", submitDelay, "allowed_ms", allowedSubmitDelay)
	}

	// The session was opened when the run started; the replay's claimed
	// start must agree with our bookkeeping.
	startDelay := p.session.CreatedAt.UnixMilli() - runStart
	if startDelay < -AllowedClockDrift || startDelay > AllowedTimestampDelay+AllowedClockDrift {
		return p.rejected(RejectOutOfSync, "start_delay",
			"start_delay_ms", startDelay)
	}
	return nil
}

// validateRunSplits checks the replay's splits correspond one-to-one with the
// session's timestamps, and that each checkpoint's replay-derived wall time
// agrees with when we actually received its event.
func (p *RunProcessor) validateRunSplits() *ValidationError {
	if p.splits.SubsegmentCount() != len(p.timestamps) {
		return p.rejected(RejectOutOfSync, "splits_count_mismatch",
			"subsegments", p.splits.SubsegmentCount())
	}

	byKey := make(map[[2]int32]*models.SessionTimestamp, len(p.timestamps))
	for i := range p.timestamps {
		ts := &p.timestamps[i]
		byKey[[2]int32{ts.MajorNum, ts.MinorNum}] = ts
	}

	runStart := p.header.Timestamp - int64(p.header.RunTime*1000)
	for i, seg := range p.splits.Segments {
		// Main-track splits carry one record per segment; single-segment
		// tracks match against whatever majorNum the session recorded.
		major := int32(i + 1)
		if p.session.TrackType != gamemode.TrackMain {
			major = p.timestamps[0].MajorNum
		}
		for _, sub := range seg.Subsegments {
			ts, ok := byKey[[2]int32{major, int32(sub.MinorNum)}]
			if !ok {
				return p.rejected(RejectOutOfSync, "split_without_timestamp",
					"major_num", major, "minor_num", sub.MinorNum)
			}
			reachedAt := runStart + int64(sub.TimeReached*1000)
			delay := ts.CreatedAt.UnixMilli() - reachedAt
			if delay < -AllowedClockDrift || delay > AllowedTimestampDelay+AllowedClockDrift {
				return p.rejected(RejectOutOfSync, "timestamp_delay",
					"major_num", major, "minor_num", sub.MinorNum, "delay_ms", delay)
			}
		}
	}
	return nil
}
