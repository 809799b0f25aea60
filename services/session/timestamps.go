package session

import (
	"rungate/internal/gamemode"
	"rungate/internal/zone"
	"rungate/models"
)

// validateSessionTimestamps checks the session's checkpoint events, in the
// order they arrived, against the zone model's ordering and requirement
// rules.
func (p *RunProcessor) validateSessionTimestamps() *ValidationError {
	if len(p.timestamps) == 0 {
		return p.rejected(RejectBadTimestamps, "no_timestamps")
	}

	track, verr := p.track()
	if verr != nil {
		return verr
	}

	seen := make(map[[2]int32]struct{}, len(p.timestamps))
	for _, ts := range p.timestamps {
		key := [2]int32{ts.MajorNum, ts.MinorNum}
		if _, dup := seen[key]; dup {
			return p.rejected(RejectBadTimestamps, "duplicate_timestamp",
				"major_num", ts.MajorNum, "minor_num", ts.MinorNum)
		}
		seen[key] = struct{}{}
	}

	if track.Type == gamemode.TrackMain {
		return p.validateMainTimestamps(track)
	}
	return p.validateSingleSegmentTimestamps(track)
}

// validateMainTimestamps walks the full timestamp list grouped by contiguous
// majorNum: segments must be visited 1..N in order, each exactly once.
func (p *RunProcessor) validateMainTimestamps(track *zone.TrackView) *ValidationError {
	last := len(track.Segments)
	if p.timestamps[0].MajorNum != 1 {
		return p.rejected(RejectBadTimestamps, "first_segment_not_start",
			"major_num", p.timestamps[0].MajorNum)
	}
	if p.timestamps[len(p.timestamps)-1].MajorNum != int32(last) {
		return p.rejected(RejectBadTimestamps, "last_segment_not_end",
			"major_num", p.timestamps[len(p.timestamps)-1].MajorNum, "segments", last)
	}

	visited := 0
	for start := 0; start < len(p.timestamps); {
		major := p.timestamps[start].MajorNum
		end := start
		for end < len(p.timestamps) && p.timestamps[end].MajorNum == major {
			end++
		}
		if major != int32(visited+1) {
			return p.rejected(RejectBadTimestamps, "segment_out_of_order",
				"major_num", major, "expected", visited+1)
		}
		if verr := p.validateSegmentSlice(track, &track.Segments[major-1], p.timestamps[start:end]); verr != nil {
			return verr
		}
		visited++
		start = end
	}
	if visited != last {
		return p.rejected(RejectBadTimestamps, "segments_missing",
			"visited", visited, "segments", last)
	}
	return nil
}

// validateSingleSegmentTimestamps handles stage and bonus tracks, whose runs
// cover exactly one segment.
func (p *RunProcessor) validateSingleSegmentTimestamps(track *zone.TrackView) *ValidationError {
	major := p.timestamps[0].MajorNum
	for _, ts := range p.timestamps {
		if ts.MajorNum != major {
			return p.rejected(RejectBadTimestamps, "segment_mismatch",
				"major_num", ts.MajorNum, "expected", major)
		}
	}
	return p.validateSegmentSlice(track, &track.Segments[0], p.timestamps)
}

// validateSegmentSlice applies the per-segment rules to the timestamps whose
// majorNum matches one segment.
func (p *RunProcessor) validateSegmentSlice(track *zone.TrackView, seg *zone.Segment, slice []models.SessionTimestamp) *ValidationError {
	// The start checkpoint is always mandatory, CheckpointsRequired or not.
	if slice[0].MinorNum != 1 {
		return p.rejected(RejectBadTimestamps, "missing_segment_start",
			"major_num", slice[0].MajorNum, "minor_num", slice[0].MinorNum)
	}

	checkpoints := len(seg.Checkpoints)
	for _, ts := range slice {
		if ts.MinorNum < 1 || ts.MinorNum > int32(checkpoints) {
			return p.rejected(RejectBadTimestamps, "checkpoint_out_of_range",
				"major_num", ts.MajorNum, "minor_num", ts.MinorNum, "checkpoints", checkpoints)
		}
	}

	if seg.CheckpointsOrdered {
		for i := 1; i < len(slice); i++ {
			if slice[i].MinorNum <= slice[i-1].MinorNum {
				return p.rejected(RejectBadTimestamps, "checkpoints_unordered",
					"major_num", slice[i].MajorNum, "minor_num", slice[i].MinorNum)
			}
		}
	}

	if seg.CheckpointsRequired {
		expected := checkpoints
		// A stage's final checkpoint is implicitly the next stage's start
		// and is never timestamped, unless stages end at stage starts or
		// this is the last stage.
		if track.Type == gamemode.TrackStage && !track.EndsAtStageStarts && !track.LastStage {
			expected = checkpoints - 1
		}
		if len(slice) != expected {
			return p.rejected(RejectBadTimestamps, "checkpoint_count",
				"major_num", slice[0].MajorNum, "got", len(slice), "expected", expected)
		}
	}
	return nil
}
