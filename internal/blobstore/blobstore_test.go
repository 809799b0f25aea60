package blobstore

import (
	"bytes"
	"testing"

	"github.com/spf13/afero"
)

func TestPutGetDelete(t *testing.T) {
	s := New(afero.NewMemMapFs(), "data/replays")
	payload := []byte("replay bytes")

	key, hash, err := s.Put(payload)
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if hash != Hash(payload) {
		t.Errorf("hash = %q, want %q", hash, Hash(payload))
	}
	if key != Key(hash) {
		t.Errorf("key = %q, want %q", key, Key(hash))
	}

	got, err := s.Get(key)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !bytes.Equal(got, payload) {
		t.Errorf("get returned %q", got)
	}

	if err := s.Delete(key); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := s.Get(key); err == nil {
		t.Error("get after delete succeeded")
	}
}

func TestPutIdempotent(t *testing.T) {
	s := New(afero.NewMemMapFs(), "replays")
	payload := []byte("same bytes")

	key1, hash1, err := s.Put(payload)
	if err != nil {
		t.Fatalf("first put: %v", err)
	}
	key2, hash2, err := s.Put(payload)
	if err != nil {
		t.Fatalf("second put: %v", err)
	}
	if key1 != key2 || hash1 != hash2 {
		t.Errorf("keys differ: (%q,%q) vs (%q,%q)", key1, hash1, key2, hash2)
	}
}

func TestDeleteMissing(t *testing.T) {
	s := New(afero.NewMemMapFs(), "replays")
	if err := s.Delete(Key(Hash([]byte("never stored")))); err != nil {
		t.Errorf("delete missing: %v", err)
	}
}

func TestHashStable(t *testing.T) {
	// The hash doubles as LeaderboardRun.replayHash; it must be the
	// lowercase SHA-1 hex of the content.
	if got := Hash([]byte("abc")); got != "a9993e364706816aba3e25717850c26c9cd0d89d" {
		t.Errorf("hash = %q", got)
	}
}
