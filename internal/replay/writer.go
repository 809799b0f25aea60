package replay

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
	"strings"
)

// Writer encodes replay files. The game client is the canonical producer;
// this writer exists for the dump tool's round-trip check and for tests, and
// must stay bit-exact with the reader.
type Writer struct {
	buf bytes.Buffer
	err error
}

func (w *Writer) uint8(v uint8) {
	w.buf.WriteByte(v)
}

func (w *Writer) uint32(v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	w.buf.Write(b[:])
}

func (w *Writer) uint64(v uint64) {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	w.buf.Write(b[:])
}

func (w *Writer) float32(v float32) {
	w.uint32(math.Float32bits(v))
}

func (w *Writer) float64(v float64) {
	w.uint64(math.Float64bits(v))
}

func (w *Writer) string(s string) {
	if strings.IndexByte(s, 0) >= 0 {
		if w.err == nil {
			w.err = fmt.Errorf("string %q contains NUL", s)
		}
		return
	}
	w.buf.WriteString(s)
	w.buf.WriteByte(0)
}

// WriteHeader appends an encoded header. The header's own Magic and
// FormatVersion fields are written as-is so tests can produce invalid files.
func (w *Writer) WriteHeader(h *Header) {
	w.uint32(h.Magic)
	w.uint8(h.FormatVersion)
	w.uint64(uint64(h.Timestamp))
	w.string(h.MapName)
	w.string(h.MapHash)
	w.string(h.PlayerName)
	w.uint64(h.PlayerSteamID)
	w.uint8(uint8(h.Gamemode))
	w.uint8(uint8(h.TrackType))
	w.uint8(h.TrackNum)
	w.uint32(h.RunFlags)
	w.float32(h.TickInterval)
	w.float64(h.RunTime)
}

// WriteSplits appends encoded splits.
func (w *Writer) WriteSplits(s *Splits) {
	w.uint8(uint8(len(s.Segments)))
	for _, seg := range s.Segments {
		w.uint8(uint8(len(seg.Subsegments)))
		for _, sub := range seg.Subsegments {
			w.uint8(sub.MinorNum)
			w.float64(sub.TimeReached)
			w.uint32(sub.Stats.Jumps)
			w.uint32(sub.Stats.Strafes)
			w.float32(sub.Stats.VelMax)
			w.float32(sub.Stats.VelAvg)
		}
	}
}

// Bytes returns the encoded file, or an error if any written value was
// unencodable.
func (w *Writer) Bytes() ([]byte, error) {
	if w.err != nil {
		return nil, fmt.Errorf("encode replay: %w", w.err)
	}
	return w.buf.Bytes(), nil
}

// Encode is a convenience wrapper producing a complete replay file.
func Encode(h *Header, s *Splits) ([]byte, error) {
	w := &Writer{}
	w.WriteHeader(h)
	w.WriteSplits(s)
	return w.Bytes()
}
