package event

import (
	"time"

	"github.com/google/uuid"

	"github.com/dshills/sapphire/internal/event/topic"
)

// Event is the common interface of every notification.
type Event interface {
	// Topic returns the hierarchical event type.
	Topic() topic.Topic
}

// Base carries the fields shared by concrete events. Embed it.
type Base struct {
	topic topic.Topic
	id    string
	at    time.Time
}

// NewBase creates event metadata for topic t.
func NewBase(t topic.Topic) Base {
	return Base{
		topic: t,
		id:    uuid.NewString(),
		at:    time.Now(),
	}
}

// Topic returns the event topic.
func (b Base) Topic() topic.Topic {
	return b.topic
}

// ID returns the unique event identifier.
func (b Base) ID() string {
	return b.id
}

// Time returns when the event was created.
func (b Base) Time() time.Time {
	return b.at
}
