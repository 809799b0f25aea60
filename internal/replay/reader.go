package replay

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"

	"rungate/internal/gamemode"
)

// decoder is a cursor over a replay buffer. The first failure sticks; every
// later read is a no-op returning zero values, so call sites only check err
// at the end of a block.
type decoder struct {
	buf []byte
	off int
	err error
}

func (d *decoder) fail(format string, args ...any) {
	if d.err == nil {
		d.err = fmt.Errorf("%w: "+format, append([]any{ErrBadReplayFile}, args...)...)
	}
}

func (d *decoder) take(n int) []byte {
	if d.err != nil {
		return nil
	}
	if d.off+n > len(d.buf) {
		d.fail("truncated at offset %d (want %d bytes, have %d)", d.off, n, len(d.buf)-d.off)
		return nil
	}
	b := d.buf[d.off : d.off+n]
	d.off += n
	return b
}

func (d *decoder) uint8() uint8 {
	b := d.take(1)
	if b == nil {
		return 0
	}
	return b[0]
}

func (d *decoder) uint32() uint32 {
	b := d.take(4)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint32(b)
}

func (d *decoder) uint64() uint64 {
	b := d.take(8)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint64(b)
}

func (d *decoder) int64() int64 {
	return int64(d.uint64())
}

func (d *decoder) float32() float32 {
	return math.Float32frombits(d.uint32())
}

func (d *decoder) float64() float64 {
	return math.Float64frombits(d.uint64())
}

// string reads a NUL-terminated string.
func (d *decoder) string() string {
	if d.err != nil {
		return ""
	}
	// Search at most maxStringLen+1 bytes for the terminator so a corrupt
	// buffer never costs a full-remainder scan per string field.
	window := d.buf[d.off:]
	if len(window) > maxStringLen+1 {
		window = window[:maxStringLen+1]
	}
	end := bytes.IndexByte(window, 0)
	if end < 0 {
		if len(d.buf)-d.off > maxStringLen {
			d.fail("string at offset %d exceeds %d bytes", d.off, maxStringLen)
		} else {
			d.fail("unterminated string at offset %d", d.off)
		}
		return ""
	}
	s := string(d.buf[d.off : d.off+end])
	d.off += end + 1
	return s
}

func (d *decoder) header() *Header {
	h := &Header{}
	h.Magic = d.uint32()
	if d.err == nil && h.Magic != Magic {
		d.fail("wrong magic 0x%08X", h.Magic)
	}
	h.FormatVersion = d.uint8()
	if d.err == nil && h.FormatVersion != FormatVersion {
		d.fail("unsupported format version %d", h.FormatVersion)
	}
	h.Timestamp = d.int64()
	h.MapName = d.string()
	h.MapHash = d.string()
	h.PlayerName = d.string()
	h.PlayerSteamID = d.uint64()
	h.Gamemode = gamemode.Gamemode(d.uint8())
	h.TrackType = gamemode.TrackType(d.uint8())
	h.TrackNum = d.uint8()
	h.RunFlags = d.uint32()
	h.TickInterval = d.float32()
	h.RunTime = d.float64()
	return h
}

func (d *decoder) splits() *Splits {
	s := &Splits{}
	numSegments := d.uint8()
	for i := 0; i < int(numSegments) && d.err == nil; i++ {
		seg := SplitSegment{}
		numSubsegs := d.uint8()
		for j := 0; j < int(numSubsegs) && d.err == nil; j++ {
			seg.Subsegments = append(seg.Subsegments, Subsegment{
				MinorNum:    d.uint8(),
				TimeReached: d.float64(),
				Stats: SubsegmentStats{
					Jumps:   d.uint32(),
					Strafes: d.uint32(),
					VelMax:  d.float32(),
					VelAvg:  d.float32(),
				},
			})
		}
		s.Segments = append(s.Segments, seg)
	}
	return s
}

// DecodeHeader parses the fixed header at the start of a replay buffer.
// Pure: no I/O, no mutation of data.
func DecodeHeader(data []byte) (*Header, error) {
	d := &decoder{buf: data}
	h := d.header()
	if d.err != nil {
		return nil, fmt.Errorf("decode header: %w", d.err)
	}
	return h, nil
}

// DecodeSplits parses the splits that follow the header in a replay buffer.
func DecodeSplits(data []byte) (*Splits, error) {
	d := &decoder{buf: data}
	d.header()
	s := d.splits()
	if d.err != nil {
		return nil, fmt.Errorf("decode splits: %w", d.err)
	}
	return s, nil
}

// Decode parses a whole replay buffer in one pass.
func Decode(data []byte) (*Header, *Splits, error) {
	d := &decoder{buf: data}
	h := d.header()
	s := d.splits()
	if d.err != nil {
		return nil, nil, fmt.Errorf("decode replay: %w", d.err)
	}
	return h, s, nil
}
