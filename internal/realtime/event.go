package realtime

import (
	"time"

	"github.com/google/uuid"
)

type EventType string

const (
	EventFactCommitted        EventType = "fact.committed"
	EventFactDeactivated      EventType = "fact.deactivated"
	EventConfirmationEnqueued EventType = "confirmation.enqueued"
	EventConfirmationResolved EventType = "confirmation.resolved"
	EventConfirmationExpired  EventType = "confirmation.expired"
)

// Event is a profile-scoped notification. UIs subscribe to a profile channel
// instead of polling listPending.
type Event struct {
	Channel string         `json:"channel"`
	Type    EventType      `json:"event"`
	Data    map[string]any `json:"data,omitempty"`
	At      time.Time      `json:"at"`
}

func ProfileChannel(profileID uuid.UUID) string {
	return "profile:" + profileID.String()
}

func NewProfileEvent(profileID uuid.UUID, t EventType, data map[string]any) Event {
	return Event{
		Channel: ProfileChannel(profileID),
		Type:    t,
		Data:    data,
		At:      time.Now().UTC(),
	}
}
