package event

import "sync"

// Broadcaster manages the listeners of a single owner (an element, a
// property, a service or an index).
type Broadcaster struct {
	mu    sync.Mutex
	subs  []*Subscription
	queue *Queue
	gate  *Gate
}

// NewBroadcaster creates a broadcaster that delivers through q. Jobs are
// held back while gate (which may be nil) or one of its ancestors is
// suspended.
func NewBroadcaster(q *Queue, gate *Gate) *Broadcaster {
	return &Broadcaster{queue: q, gate: gate}
}

// Attach registers l and returns its subscription handle.
func (b *Broadcaster) Attach(l Listener) (*Subscription, error) {
	if l == nil {
		return nil, ErrNilListener
	}
	sub := newSubscription(l, b)

	b.mu.Lock()
	b.subs = append(b.subs, sub)
	b.mu.Unlock()

	return sub, nil
}

// Detach removes every subscription of l. Detaching a listener that was
// never attached is not an error.
func (b *Broadcaster) Detach(l Listener) error {
	if l == nil {
		return ErrNilListener
	}

	b.mu.Lock()
	var matched []*Subscription
	for _, sub := range b.subs {
		if sameListener(sub.listener, l) {
			matched = append(matched, sub)
		}
	}
	b.mu.Unlock()

	for _, sub := range matched {
		sub.Release()
	}
	return nil
}

func (b *Broadcaster) remove(sub *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for i, s := range b.subs {
		if s == sub {
			b.subs = append(b.subs[:i:i], b.subs[i+1:]...)
			return
		}
	}
}

// Count returns the number of attached listeners.
func (b *Broadcaster) Count() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

// Broadcast enqueues ev for every currently attached listener. Nothing is
// delivered until the queue is drained.
func (b *Broadcaster) Broadcast(ev Event) {
	if ev == nil {
		return
	}

	b.mu.Lock()
	if len(b.subs) == 0 {
		b.mu.Unlock()
		return
	}
	subs := make([]*Subscription, len(b.subs))
	copy(subs, b.subs)
	b.mu.Unlock()

	j := job{event: ev, subs: subs}
	if holder := b.gate.holder(); holder != nil {
		holder.hold(j)
		return
	}
	b.queue.enqueue(j)
}

// Clear drops every listener. Jobs that were already broadcast are still
// delivered to the listeners they captured.
func (b *Broadcaster) Clear() {
	b.mu.Lock()
	b.subs = nil
	b.mu.Unlock()
}
