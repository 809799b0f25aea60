package models

import "time"

// MapVersion is the current version of a map: the zone document runs validate
// against and the content hash replays must match.
type MapVersion struct {
	MapID     int64  `json:"mapID"`
	Name      string `json:"name"`
	Hash      string `json:"hash"`
	ZonesJSON []byte `json:"-"`
	// Tier and Linear feed cosmetic XP for completions.
	Tier   int32 `json:"tier"`
	Linear bool  `json:"linear"`
}

// MapStats are per-map completion counters, updated for main-track runs.
type MapStats struct {
	MapID             int64     `json:"mapID"`
	Completions       int64     `json:"completions"`
	UniqueCompletions int64     `json:"uniqueCompletions"`
	UpdatedAt         time.Time `json:"updatedAt"`
}
