package replay

import (
	"errors"
	"reflect"
	"testing"
)

func encodeStub(t *testing.T) []byte {
	t.Helper()
	data, err := Encode(HeaderStub(), SplitsStub())
	if err != nil {
		t.Fatalf("encode stub: %v", err)
	}
	return data
}

func TestRoundTrip(t *testing.T) {
	data := encodeStub(t)

	header, splits, err := Decode(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !reflect.DeepEqual(header, HeaderStub()) {
		t.Errorf("header mismatch:\n got %+v\nwant %+v", header, HeaderStub())
	}
	if !reflect.DeepEqual(splits, SplitsStub()) {
		t.Errorf("splits mismatch:\n got %+v\nwant %+v", splits, SplitsStub())
	}

	reencoded, err := Encode(header, splits)
	if err != nil {
		t.Fatalf("re-encode: %v", err)
	}
	if !reflect.DeepEqual(data, reencoded) {
		t.Error("re-encoded bytes differ from original")
	}
}

func TestDecodeHeaderOnly(t *testing.T) {
	header, err := DecodeHeader(encodeStub(t))
	if err != nil {
		t.Fatalf("decode header: %v", err)
	}
	if header.MapName != "bhop_stub" {
		t.Errorf("map name = %q", header.MapName)
	}
	if header.RunTime != StubRunTime {
		t.Errorf("run time = %v", header.RunTime)
	}
}

func TestDecodeSplitsOnly(t *testing.T) {
	splits, err := DecodeSplits(encodeStub(t))
	if err != nil {
		t.Fatalf("decode splits: %v", err)
	}
	if got := splits.SubsegmentCount(); got != 4 {
		t.Errorf("subsegment count = %d, want 4", got)
	}
}

func TestDecodeTruncated(t *testing.T) {
	data := encodeStub(t)
	for _, n := range []int{0, 3, 4, 10, len(data) / 2, len(data) - 1} {
		if _, _, err := Decode(data[:n]); !errors.Is(err, ErrBadReplayFile) {
			t.Errorf("truncated at %d: err = %v, want ErrBadReplayFile", n, err)
		}
	}
}

func TestDecodeWrongMagic(t *testing.T) {
	h := HeaderStub()
	h.Magic = 0xDEADBEEF
	data, err := Encode(h, SplitsStub())
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if _, _, err := Decode(data); !errors.Is(err, ErrBadReplayFile) {
		t.Errorf("err = %v, want ErrBadReplayFile", err)
	}
}

func TestDecodeUnsupportedVersion(t *testing.T) {
	h := HeaderStub()
	h.FormatVersion = 99
	data, err := Encode(h, SplitsStub())
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if _, _, err := Decode(data); !errors.Is(err, ErrBadReplayFile) {
		t.Errorf("err = %v, want ErrBadReplayFile", err)
	}
}

func TestDecodeUnterminatedString(t *testing.T) {
	data := encodeStub(t)
	// Strip the trailing NUL of every string by cutting the buffer right
	// after the header's first string begins.
	cut := 4 + 1 + 8 + 2 // magic, version, timestamp, two bytes of mapName
	mutated := make([]byte, cut)
	copy(mutated, data)
	for i := range mutated[13:] {
		if mutated[13+i] == 0 {
			mutated[13+i] = 'x'
		}
	}
	if _, err := DecodeHeader(mutated); !errors.Is(err, ErrBadReplayFile) {
		t.Errorf("err = %v, want ErrBadReplayFile", err)
	}
}

func TestDecodeOverlongString(t *testing.T) {
	data := encodeStub(t)
	// Replace the mapName field with a string longer than the cap. The
	// terminator sits past the search window, so this must fail without
	// scanning the rest of the buffer.
	headerPrefix := 4 + 1 + 8 // magic, version, timestamp
	mutated := append([]byte{}, data[:headerPrefix]...)
	for i := 0; i < maxStringLen+40; i++ {
		mutated = append(mutated, 'a')
	}
	mutated = append(mutated, 0)
	mutated = append(mutated, data[headerPrefix:]...)
	if _, err := DecodeHeader(mutated); !errors.Is(err, ErrBadReplayFile) {
		t.Errorf("err = %v, want ErrBadReplayFile", err)
	}
}

func TestEncodeRejectsEmbeddedNUL(t *testing.T) {
	h := HeaderStub()
	h.MapName = "bhop\x00stub"
	if _, err := Encode(h, SplitsStub()); err == nil {
		t.Error("expected error for embedded NUL")
	}
}
