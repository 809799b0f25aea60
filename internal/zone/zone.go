// Package zone models the per-map zone hierarchy (tracks, segments,
// checkpoints) that run telemetry is validated against. Zone data is loaded
// from a map version's zones JSON and is immutable for the duration of a
// validation.
package zone

import (
	"errors"
	"fmt"

	"github.com/goccy/go-json"

	"rungate/internal/gamemode"
)

var (
	ErrNoMainTrack  = errors.New("zones: missing main track")
	ErrNoSuchTrack  = errors.New("zones: no track with this number")
	ErrEmptySegment = errors.New("zones: segment has no checkpoints")
)

// Zones is the decoded zones document for one map version.
type Zones struct {
	FormatVersion int    `json:"formatVersion"`
	DataTimestamp int64  `json:"dataTimestamp"`
	Tracks        Tracks `json:"tracks"`
}

type Tracks struct {
	Main    MainTrack    `json:"main"`
	Bonuses []BonusTrack `json:"bonuses,omitempty"`
}

// MainTrack is the single globally-ordered track; stage tracks address its
// segments by index.
type MainTrack struct {
	Zones                  TrackZones `json:"zones"`
	StagesEndAtStageStarts bool       `json:"stagesEndAtStageStarts"`
}

// BonusTrack is an independent single-segment track. A non-zero
// DefragModifiers means the bonus reuses the main track's segments with
// modified movement rules rather than carrying its own zones.
type BonusTrack struct {
	Zones           *TrackZones `json:"zones,omitempty"`
	DefragModifiers int         `json:"defragModifiers,omitempty"`
}

type TrackZones struct {
	Segments []Segment `json:"segments"`
	End      Zone      `json:"end"`
}

// Segment is one major unit of a run. Checkpoint index 0 is always the
// segment's start zone and is always mandatory regardless of
// CheckpointsRequired.
type Segment struct {
	Checkpoints           []Zone `json:"checkpoints"`
	Cancel                []Zone `json:"cancel,omitempty"`
	Name                  string `json:"name,omitempty"`
	LimitStartGroundSpeed bool   `json:"limitStartGroundSpeed"`
	CheckpointsRequired   bool   `json:"checkpointsRequired"`
	CheckpointsOrdered    bool   `json:"checkpointsOrdered"`
}

type Zone struct {
	Regions    []Region `json:"regions"`
	FilterName string   `json:"filtername,omitempty"`
}

type Region struct {
	Points            [][2]float64 `json:"points"`
	Bottom            float64      `json:"bottom"`
	Height            float64      `json:"height"`
	TeleDestPos       []float64    `json:"teleDestPos,omitempty"`
	TeleDestYaw       *float64     `json:"teleDestYaw,omitempty"`
	TeleDestTargetname string      `json:"teleDestTargetname,omitempty"`
	SafeHeight        float64      `json:"safeHeight,omitempty"`
}

// Parse decodes a zones JSON document. A document that decodes but has no
// main track segments is map data corruption, not a bad run, so it is still
// an error here.
func Parse(data []byte) (*Zones, error) {
	var z Zones
	if err := json.Unmarshal(data, &z); err != nil {
		return nil, fmt.Errorf("parse zones: %w", err)
	}
	if len(z.Tracks.Main.Zones.Segments) == 0 {
		return nil, ErrNoMainTrack
	}
	for i, seg := range z.Tracks.Main.Zones.Segments {
		if len(seg.Checkpoints) == 0 {
			return nil, fmt.Errorf("main segment %d: %w", i+1, ErrEmptySegment)
		}
	}
	return &z, nil
}

// TrackView is the resolved segment sequence a run on one track validates
// against. For main tracks it covers every segment; stage and bonus tracks
// resolve to a single segment.
type TrackView struct {
	Type     gamemode.TrackType
	Num      int
	Segments []Segment

	// Main-track stage layout, needed for the stage checkpoint-count rule:
	// unless the stage ends at the next stage's start (or is the last stage),
	// its final checkpoint is never timestamped.
	EndsAtStageStarts bool
	LastStage         bool
}

// Track resolves a (trackType, trackNum) pair against the zone model.
// Main-track runs always have num 1. Stage nums address main segments
// 1-based; bonus nums address the bonuses array 1-based.
func (z *Zones) Track(t gamemode.TrackType, num int) (*TrackView, error) {
	main := z.Tracks.Main
	switch t {
	case gamemode.TrackMain:
		if num != 1 {
			return nil, fmt.Errorf("main track num %d: %w", num, ErrNoSuchTrack)
		}
		return &TrackView{Type: t, Num: num, Segments: main.Zones.Segments}, nil

	case gamemode.TrackStage:
		if num < 1 || num > len(main.Zones.Segments) {
			return nil, fmt.Errorf("stage %d of %d: %w", num, len(main.Zones.Segments), ErrNoSuchTrack)
		}
		return &TrackView{
			Type:              t,
			Num:               num,
			Segments:          main.Zones.Segments[num-1 : num],
			EndsAtStageStarts: main.StagesEndAtStageStarts,
			LastStage:         num == len(main.Zones.Segments),
		}, nil

	case gamemode.TrackBonus:
		if num < 1 || num > len(z.Tracks.Bonuses) {
			return nil, fmt.Errorf("bonus %d of %d: %w", num, len(z.Tracks.Bonuses), ErrNoSuchTrack)
		}
		bonus := z.Tracks.Bonuses[num-1]
		if bonus.DefragModifiers != 0 {
			// Defrag bonuses replay the main track geometry under modified
			// movement rules, there is no separate bonus zone data.
			return &TrackView{Type: t, Num: num, Segments: main.Zones.Segments[:1]}, nil
		}
		if bonus.Zones == nil || len(bonus.Zones.Segments) == 0 {
			return nil, fmt.Errorf("bonus %d has no zones: %w", num, ErrNoSuchTrack)
		}
		return &TrackView{Type: t, Num: num, Segments: bonus.Zones.Segments[:1]}, nil

	default:
		return nil, fmt.Errorf("track type %d: %w", t, ErrNoSuchTrack)
	}
}
