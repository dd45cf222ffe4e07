package event

import (
	"reflect"

	"github.com/dshills/sapphire/internal/event/topic"
)

// Listener receives events.
type Listener interface {
	Handle(ev Event)
}

// ListenerFunc is a function adapter for Listener.
//
// Function values are not comparable, so a ListenerFunc can only be
// detached through the Subscription returned by Attach.
type ListenerFunc func(ev Event)

// Handle implements Listener.
func (f ListenerFunc) Handle(ev Event) {
	f(ev)
}

// filtered delivers only events of type T.
type filtered[T Event] struct {
	fn func(T)
}

func (f *filtered[T]) Handle(ev Event) {
	if typed, ok := ev.(T); ok {
		f.fn(typed)
	}
}

// Filtered returns a listener that calls fn for events of type T and
// silently ignores everything else.
func Filtered[T Event](fn func(T)) Listener {
	return &filtered[T]{fn: fn}
}

// topicListener delivers only events whose topic matches a pattern.
type topicListener struct {
	pattern topic.Topic
	next    Listener
}

func (l *topicListener) Handle(ev Event) {
	if ev.Topic().Matches(l.pattern) {
		l.next.Handle(ev)
	}
}

// ForTopic returns a listener that forwards to next only events whose
// topic matches pattern.
func ForTopic(pattern topic.Topic, next Listener) Listener {
	return &topicListener{pattern: pattern, next: next}
}

// sameListener compares listeners by identity where the dynamic type
// allows it. Non-comparable listeners never compare equal.
func sameListener(a, b Listener) bool {
	ta := reflect.TypeOf(a)
	if ta != reflect.TypeOf(b) || !ta.Comparable() {
		return false
	}
	return a == b
}
