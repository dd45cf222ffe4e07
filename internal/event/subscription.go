package event

import (
	"sync/atomic"

	"github.com/google/uuid"
)

// Subscription is the handle returned by Attach. Releasing it detaches the
// listener; Release is idempotent.
type Subscription struct {
	id       string
	listener Listener
	owner    *Broadcaster
	released atomic.Bool
}

func newSubscription(l Listener, owner *Broadcaster) *Subscription {
	return &Subscription{
		id:       uuid.NewString(),
		listener: l,
		owner:    owner,
	}
}

// ID returns the unique subscription identifier.
func (s *Subscription) ID() string {
	return s.id
}

// Listener returns the attached listener.
func (s *Subscription) Listener() Listener {
	return s.listener
}

// Active reports whether the subscription still receives events.
func (s *Subscription) Active() bool {
	return !s.released.Load()
}

// Release detaches the listener from its owner.
func (s *Subscription) Release() {
	if s.released.Swap(true) {
		return
	}
	if s.owner != nil {
		s.owner.remove(s)
	}
}
