package models

import (
	"time"

	"github.com/google/uuid"

	"rungate/internal/gamemode"
)

// RunSession accumulates live telemetry while a run is in progress. At most
// one open session exists per (user, map, gamemode, trackType, trackNum);
// starting a new one replaces any prior.
type RunSession struct {
	ID        uuid.UUID          `json:"id"`
	UserID    int64              `json:"userID"`
	MapID     int64              `json:"mapID"`
	Gamemode  gamemode.Gamemode  `json:"gamemode"`
	TrackType gamemode.TrackType `json:"trackType"`
	TrackNum  int32              `json:"trackNum"`
	CreatedAt time.Time          `json:"createdAt"`
}

// SessionTimestamp is one checkpoint event received while a session was open,
// in arrival order. MajorNum is the 1-based segment index, MinorNum the
// 1-based checkpoint index within it; minor 1 is the segment start.
type SessionTimestamp struct {
	ID        int64     `json:"id"`
	SessionID uuid.UUID `json:"sessionID"`
	MajorNum  int32     `json:"majorNum"`
	MinorNum  int32     `json:"minorNum"`
	// Time is the client-reported elapsed run time in seconds.
	Time      float64   `json:"time"`
	CreatedAt time.Time `json:"createdAt"`
}
