package models

import (
	"time"

	"rungate/internal/gamemode"
)

// RunStats is the aggregate stats block extracted from a replay's splits.
type RunStats struct {
	TotalJumps   int64 `json:"totalJumps"`
	TotalStrafes int64 `json:"totalStrafes"`
}

// ProcessedRun is the trusted output of run validation. Produced only by a
// successful RunProcessor pass; immutable; the merge engine's sole input.
type ProcessedRun struct {
	UserID    int64              `json:"userID"`
	MapID     int64              `json:"mapID"`
	Gamemode  gamemode.Gamemode  `json:"gamemode"`
	TrackType gamemode.TrackType `json:"trackType"`
	TrackNum  int32              `json:"trackNum"`
	// Time is the validated run time in seconds, from the replay header.
	Time  float64  `json:"time"`
	Flags uint32   `json:"flags"`
	Stats RunStats `json:"stats"`
	// SplitsJSON is the decoded splits re-encoded for persistence alongside
	// the leaderboard row.
	SplitsJSON []byte `json:"-"`
}

// LeaderboardRun is one user's current best on one leaderboard. Exactly one
// row per (map, gamemode, trackType, trackNum, style, user); updated in
// place, never duplicated, on each new personal best.
type LeaderboardRun struct {
	MapID      int64              `json:"mapID"`
	Gamemode   gamemode.Gamemode  `json:"gamemode"`
	TrackType  gamemode.TrackType `json:"trackType"`
	TrackNum   int32              `json:"trackNum"`
	Style      int32              `json:"style"`
	UserID     int64              `json:"userID"`
	Time       float64            `json:"time"`
	Rank       int32              `json:"rank"`
	RankXP     int64              `json:"rankXP"`
	ReplayHash string             `json:"replayHash"`
	SplitsJSON []byte             `json:"-"`
	PastRunID  int64              `json:"pastRunID"`
	CreatedAt  time.Time          `json:"createdAt"`
}

// PastRun is the append-only historical record of one completed run attempt,
// PB or not. Never mutated after creation.
type PastRun struct {
	ID        int64              `json:"id"`
	UserID    int64              `json:"userID"`
	MapID     int64              `json:"mapID"`
	Gamemode  gamemode.Gamemode  `json:"gamemode"`
	TrackType gamemode.TrackType `json:"trackType"`
	TrackNum  int32              `json:"trackNum"`
	Style     int32              `json:"style"`
	Time      float64            `json:"time"`
	IsPB      bool               `json:"isPB"`
	CreatedAt time.Time          `json:"createdAt"`
}

// XpGain describes the XP awarded for one completed run.
type XpGain struct {
	RankXP    int64 `json:"rankXP"`
	CosXP     int64 `json:"cosXP"`
	GainLevel int32 `json:"gainLevel"`
}

// CompletedRun is the merge engine's result, returned to the submitting
// client.
type CompletedRun struct {
	IsNewPersonalBest bool            `json:"isNewPersonalBest"`
	IsNewWorldRecord  bool            `json:"isNewWorldRecord"`
	Run               *LeaderboardRun `json:"run"`
	XP                XpGain          `json:"xp"`
}
