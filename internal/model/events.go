package model

import (
	"github.com/dshills/sapphire/internal/event"
	"github.com/dshills/sapphire/internal/event/topic"
)

// Event topics.
const (
	TopicPropertyContent    topic.Topic = "property.content"
	TopicPropertyValidation topic.Topic = "property.validation"
	TopicElementDisposed    topic.Topic = "element.disposed"
	TopicIndexChanged       topic.Topic = "index.changed"
)

// PropertyContentEvent reports a change in the content of a property.
// For value properties Before and After hold the persisted text; for list
// and element properties they are empty.
type PropertyContentEvent struct {
	event.Base
	Element  *Element
	Property PropertyDef
	Before   string
	After    string
}

func newContentEvent(e *Element, p PropertyDef, before, after string) *PropertyContentEvent {
	return &PropertyContentEvent{
		Base:     event.NewBase(TopicPropertyContent),
		Element:  e,
		Property: p,
		Before:   before,
		After:    after,
	}
}

// PropertyValidationEvent reports a change in the validation status of a
// value property.
type PropertyValidationEvent struct {
	event.Base
	Element  *Element
	Property PropertyDef
	Before   Status
	After    Status
}

// ElementDisposeEvent is broadcast to an element's listeners right before
// they are detached by Dispose.
type ElementDisposeEvent struct {
	event.Base
	Element *Element
}

// IndexEvent reports that the key-to-element mapping of an index changed.
type IndexEvent struct {
	event.Base
	Index *Index
}
