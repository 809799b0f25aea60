package replay

import "rungate/internal/gamemode"

// Test fixtures shared by the session and leaderboard suites. The stub run
// matches zone.Stub: a main track of 2 segments with 2 checkpoints each,
// 10 seconds between checkpoints, 40 seconds total.

// StubBaseTime is the unix-ms wall-clock time at which stub runs start.
const StubBaseTime int64 = 1697451975000

// StubRunTime is the stub run's length in seconds.
const StubRunTime float64 = 40

// HeaderStub returns a header for a valid stub run, ending StubRunTime after
// StubBaseTime.
func HeaderStub() *Header {
	return &Header{
		Magic:         Magic,
		FormatVersion: FormatVersion,
		Timestamp:     StubBaseTime + int64(StubRunTime*1000),
		MapName:       "bhop_stub",
		MapHash:       "f14b5f54fe4ebc7e03a4e9bb1ad4dbb5a1e4b8f2",
		PlayerName:    "runner",
		PlayerSteamID: 1,
		Gamemode:      gamemode.Bhop,
		TrackType:     gamemode.TrackMain,
		TrackNum:      1,
		RunFlags:      0,
		TickInterval:  gamemode.TickInterval(gamemode.Bhop),
		RunTime:       StubRunTime,
	}
}

// SplitsStub returns splits matching HeaderStub and zone.Stub.
func SplitsStub() *Splits {
	sub := func(minor uint8, t float64) Subsegment {
		return Subsegment{
			MinorNum:    minor,
			TimeReached: t,
			Stats:       SubsegmentStats{Jumps: 10, Strafes: 20, VelMax: 800, VelAvg: 350},
		}
	}
	return &Splits{
		Segments: []SplitSegment{
			{Subsegments: []Subsegment{sub(1, 0), sub(2, 10)}},
			{Subsegments: []Subsegment{sub(1, 20), sub(2, 30)}},
		},
	}
}
