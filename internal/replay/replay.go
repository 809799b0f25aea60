// Package replay implements the binary run replay format exchanged with the
// game client. The byte layout is a cross-system contract: little-endian,
// fixed-width header fields followed by variable-length, segment-delimited
// split records. Field order and width must never change without a format
// version bump.
package replay

import (
	"errors"

	"rungate/internal/gamemode"
)

const (
	// Magic is the format constant at the start of every replay file.
	Magic uint32 = 0x524D4F4D

	// FormatVersion is the only file version this build reads.
	FormatVersion uint8 = 1

	// maxStringLen bounds header strings so a corrupt length prefix or a
	// missing NUL cannot make the decoder walk the whole buffer.
	maxStringLen = 256
)

// ErrBadReplayFile classifies any structurally invalid replay buffer:
// truncation, wrong magic, unsupported version, or field-level corruption.
var ErrBadReplayFile = errors.New("bad replay file")

// Header is the fixed-format replay metadata block.
type Header struct {
	Magic         uint32
	FormatVersion uint8
	// Timestamp is the wall-clock unix-ms time at which the client finished
	// writing the replay, i.e. when the run ended.
	Timestamp     int64
	MapName       string
	MapHash       string
	PlayerName    string
	PlayerSteamID uint64
	Gamemode      gamemode.Gamemode
	TrackType     gamemode.TrackType
	TrackNum      uint8
	RunFlags      uint32
	TickInterval  float32
	// RunTime is the total run time in seconds.
	RunTime float64
}

// Splits is the variable-length portion of a replay: per-segment records of
// the in-replay elapsed time at which each checkpoint was reached.
type Splits struct {
	Segments []SplitSegment
}

type SplitSegment struct {
	Subsegments []Subsegment
}

// Subsegment records one checkpoint crossing. MinorNum is the 1-based
// checkpoint index within the segment; minor 1 is the segment start.
type Subsegment struct {
	MinorNum    uint8
	TimeReached float64
	Stats       SubsegmentStats
}

// SubsegmentStats is the per-checkpoint stats block the client accumulates
// between crossings.
type SubsegmentStats struct {
	Jumps   uint32
	Strafes uint32
	VelMax  float32
	VelAvg  float32
}

// SubsegmentCount returns the total number of subsegments across all
// segments.
func (s *Splits) SubsegmentCount() int {
	n := 0
	for _, seg := range s.Segments {
		n += len(seg.Subsegments)
	}
	return n
}
