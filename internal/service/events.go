package service

// Event types pushed to connected mini-app clients.
const (
	EventLevelUp      = "level_up"
	EventRankUp       = "rank_up"
	EventPetLevelUp   = "pet_level_up"
	EventYieldClaimed = "yield_claimed"
)

type Event struct {
	Type   string `json:"type"`
	UserID int64  `json:"-"`
	Level  int    `json:"level,omitempty"`
	Rank   string `json:"rank,omitempty"`
	Reward int64  `json:"reward,omitempty"`
	Amount int64  `json:"amount,omitempty"`
}

// EventSink receives progression events after a successful commit.
// Publish must not block the calling operation.
type EventSink interface {
	Publish(Event)
}

type nopSink struct{}

func (nopSink) Publish(Event) {}
