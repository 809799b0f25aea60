// Package session owns the run session lifecycle: opening sessions, buffering
// checkpoint timestamps, and validating the submitted replay against them on
// completion.
package session

import "fmt"

// RejectionKind classifies why a run submission was refused. Values are the
// numeric error codes surfaced to clients, do not renumber.
type RejectionKind int

const (
	RejectBadTimestamps RejectionKind = iota
	RejectBadReplayFile
	RejectBadMeta
	RejectInvalidStats
	RejectOutOfSync
	RejectUnsupportedMode
	RejectFuckyBehaviour
	RejectBanned
)

func (k RejectionKind) String() string {
	switch k {
	case RejectBadTimestamps:
		return "bad_timestamps"
	case RejectBadReplayFile:
		return "bad_replay_file"
	case RejectBadMeta:
		return "bad_meta"
	case RejectInvalidStats:
		return "invalid_stats"
	case RejectOutOfSync:
		return "out_of_sync"
	case RejectUnsupportedMode:
		return "unsupported_mode"
	case RejectFuckyBehaviour:
		return "fucky_behaviour"
	case RejectBanned:
		return "banned"
	default:
		return "unknown"
	}
}

// ValidationError is a classified run rejection. Rejections are expected
// adversarial or laggy-client input, not bugs: Reason is an internal tag for
// logs only, the client sees just the generic message and numeric code.
type ValidationError struct {
	Kind   RejectionKind
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid run submission (code %d)", e.Kind)
}

func reject(kind RejectionKind, reason string) *ValidationError {
	return &ValidationError{Kind: kind, Reason: reason}
}
