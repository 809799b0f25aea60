// Package blobstore persists replay files under content-hash-derived keys.
// The filesystem is abstracted behind afero so production uses the OS
// filesystem (or any mounted object store) and tests use memory.
//
// The store and the database are separate systems with no shared transaction;
// a crash between a blob write and the matching row commit can leave an
// orphaned blob. That is accepted, there is no compensating cleanup.
package blobstore

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"log/slog"
	"path"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/spf13/afero"
)

const (
	keyPrefix    = "runs"
	keySuffix    = ".mrf"
	writeRetries = 3
)

// Store writes replay blobs keyed by their SHA-1 content hash.
type Store struct {
	fs   afero.Fs
	root string
}

// New returns a store rooted at dir on the given filesystem.
func New(fs afero.Fs, root string) *Store {
	return &Store{fs: fs, root: root}
}

// Hash returns the lowercase SHA-1 hex digest of data, the same value stored
// as LeaderboardRun.replayHash.
func Hash(data []byte) string {
	sum := sha1.Sum(data)
	return hex.EncodeToString(sum[:])
}

// Key returns the blob key for a given content hash.
func Key(hash string) string {
	return path.Join(keyPrefix, hash+keySuffix)
}

// Put writes data under its content-hash key and returns (key, hash).
// Writes are retried; a write that keeps failing is the caller's one
// retryable condition, so the wrapped error is returned as-is.
func (s *Store) Put(data []byte) (string, string, error) {
	hash := Hash(data)
	key := Key(hash)
	full := path.Join(s.root, key)

	err := retry.Do(
		func() error {
			if err := s.fs.MkdirAll(path.Dir(full), 0o755); err != nil {
				return err
			}
			return afero.WriteFile(s.fs, full, data, 0o644)
		},
		retry.Attempts(writeRetries),
		retry.Delay(50*time.Millisecond),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		return "", "", fmt.Errorf("store replay blob %s: %w", key, err)
	}

	slog.Debug("blobstore.put", "key", key, "bytes", len(data))
	return key, hash, nil
}

// Delete removes a blob. Deleting a missing blob is not an error; the row
// referencing it is already gone or being replaced.
func (s *Store) Delete(key string) error {
	full := path.Join(s.root, key)
	if err := s.fs.Remove(full); err != nil {
		if exists, statErr := afero.Exists(s.fs, full); statErr == nil && !exists {
			return nil
		}
		return fmt.Errorf("delete replay blob %s: %w", key, err)
	}
	slog.Debug("blobstore.delete", "key", key)
	return nil
}

// Get reads a blob back. Used by tooling and tests; the serving path for
// replay downloads lives outside this core.
func (s *Store) Get(key string) ([]byte, error) {
	data, err := afero.ReadFile(s.fs, path.Join(s.root, key))
	if err != nil {
		return nil, fmt.Errorf("read replay blob %s: %w", key, err)
	}
	return data, nil
}
