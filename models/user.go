package models

import "time"

// Ban flags restrict what a user may do; stored as a bitfield.
type Ban uint32

const (
	BanLeaderboards Ban = 1 << iota
	BanAlias
	BanAvatar
	BanBio
)

// User is the subset of a platform account this core needs: identity plus the
// Steam ID replays are signed with.
type User struct {
	ID        int64     `json:"id"`
	SteamID   uint64    `json:"steamID"`
	Alias     string    `json:"alias"`
	Bans      Ban       `json:"bans"`
	CreatedAt time.Time `json:"createdAt"`
}

// HasBan reports whether any of the given ban flags are set.
func (u *User) HasBan(b Ban) bool {
	return u.Bans&b != 0
}

// UserStats are the per-user aggregate counters updated on every completed
// run, PB or not.
type UserStats struct {
	UserID        int64 `json:"userID"`
	TotalJumps    int64 `json:"totalJumps"`
	TotalStrafes  int64 `json:"totalStrafes"`
	RunsSubmitted int64 `json:"runsSubmitted"`
	MapsCompleted int64 `json:"mapsCompleted"`
	Level         int32 `json:"level"`
	CosXP         int64 `json:"cosXP"`
}
