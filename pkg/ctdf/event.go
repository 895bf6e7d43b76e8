package ctdf

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type Event struct {
	ID        string
	Type      EventType
	Timestamp time.Time
	Body      json.RawMessage
}

type EventType string

const (
	EventTypeDisruptionUpserted EventType = "DisruptionUpserted"
	EventTypeDisruptionDeleted  EventType = "DisruptionDeleted"
	EventTypeTripUpdated        EventType = "TripUpdated"
)

func NewEvent(eventType EventType, body any) (*Event, error) {
	encoded, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}

	return &Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		Timestamp: time.Now().UTC(),
		Body:      encoded,
	}, nil
}

// DisruptionDeletion is the body of a DisruptionDeleted event.
type DisruptionDeletion struct {
	ID string `json:"id"`
}
