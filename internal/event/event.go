package event

import (
	"time"

	"github.com/google/uuid"
)

// Event is a published notification.
type Event struct {
	// ID uniquely identifies this event instance.
	ID uuid.UUID

	// Topic is the hierarchical event type.
	Topic Topic

	// Source names the component that published the event.
	Source string

	// Timestamp is when the event was created.
	Timestamp time.Time

	// Payload carries the topic-specific data.
	Payload any
}

// New creates an event with a fresh ID and timestamp.
func New(t Topic, payload any, source string) Event {
	return Event{
		ID:        uuid.New(),
		Topic:     t,
		Source:    source,
		Timestamp: time.Now(),
		Payload:   payload,
	}
}
