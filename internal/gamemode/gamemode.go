// Package gamemode holds the static gamemode and track identity tables shared
// by the replay format, the session validators and the leaderboard keys.
package gamemode

// Gamemode identifies a movement gamemode. Values are part of the replay wire
// format and the leaderboard key, do not renumber.
type Gamemode uint8

const (
	Ahop Gamemode = iota + 1
	Bhop
	BhopHL1
	ClimbMom
	ClimbKZT
	Climb16
	Conc
	DefragCPM
	DefragVQ3
	DefragVTG
	RJ
	SJ
	Surf
	Tricksurf
)

func (g Gamemode) String() string {
	if s, ok := names[g]; ok {
		return s
	}
	return "unknown"
}

// Valid reports whether g is a known gamemode.
func (g Gamemode) Valid() bool {
	_, ok := tickIntervals[g]
	return ok
}

var names = map[Gamemode]string{
	Ahop:      "ahop",
	Bhop:      "bhop",
	BhopHL1:   "bhop_hl1",
	ClimbMom:  "climb_mom",
	ClimbKZT:  "climb_kzt",
	Climb16:   "climb_16",
	Conc:      "conc",
	DefragCPM: "defrag_cpm",
	DefragVQ3: "defrag_vq3",
	DefragVTG: "defrag_vtg",
	RJ:        "rj",
	SJ:        "sj",
	Surf:      "surf",
	Tricksurf: "tricksurf",
}

// Tick intervals are fixed per gamemode; a replay recorded at any other
// interval came from a mismatched game build.
var tickIntervals = map[Gamemode]float32{
	Ahop:      0.015,
	Bhop:      0.01,
	BhopHL1:   0.004,
	ClimbMom:  0.0078125,
	ClimbKZT:  0.0078125,
	Climb16:   0.0078125,
	Conc:      0.01,
	DefragCPM: 0.008,
	DefragVQ3: 0.008,
	DefragVTG: 0.008,
	RJ:        0.015,
	SJ:        0.015,
	Surf:      0.015,
	Tricksurf: 0.015,
}

// TickInterval returns the fixed tick interval for a gamemode, or 0 for an
// unknown gamemode.
func TickInterval(g Gamemode) float32 {
	return tickIntervals[g]
}

// TrackType distinguishes the three leaderboard track families.
type TrackType uint8

const (
	TrackMain TrackType = iota
	TrackStage
	TrackBonus
)

func (t TrackType) String() string {
	switch t {
	case TrackMain:
		return "main"
	case TrackStage:
		return "stage"
	case TrackBonus:
		return "bonus"
	default:
		return "unknown"
	}
}

// StyleNone is the only style currently ranked. Style variants are a known
// future extension of the leaderboard key.
const StyleNone = 0
