package models

import "time"

// ActivityType tags a domain event emitted on run completion.
type ActivityType int32

const (
	ActivityPBAchieved ActivityType = iota + 1
	ActivityWRAchieved
)

func (t ActivityType) String() string {
	switch t {
	case ActivityPBAchieved:
		return "pb_achieved"
	case ActivityWRAchieved:
		return "wr_achieved"
	default:
		return "unknown"
	}
}

// Activity is one domain event row. Data carries the subject ID, here always
// the map the run was on.
type Activity struct {
	ID        int64        `json:"id"`
	Type      ActivityType `json:"type"`
	UserID    int64        `json:"userID"`
	Data      int64        `json:"data"`
	CreatedAt time.Time    `json:"createdAt"`
}
