// Package event provides the listener and notification substrate used by
// elements, properties, services and indexes.
//
// # Delivery
//
// A Broadcaster holds the listeners attached to one owner. Broadcast never
// calls listeners directly: it snapshots the listener list and enqueues a
// delivery job on the owner's Queue. Callers drain the queue once they have
// released their own locks, so listeners are free to read or mutate the
// model they were notified about.
//
//	q := event.NewQueue(logger)
//	b := event.NewBroadcaster(q, nil)
//	sub, _ := b.Attach(event.ListenerFunc(func(ev event.Event) { ... }))
//	defer sub.Release()
//	b.Broadcast(ev)
//	q.Drain()
//
// Drain is not reentrant. A listener that causes further broadcasts has those
// jobs delivered after it returns, in enqueue order. A Drain on another
// goroutine waits for the running one, so every caller returns only after
// the jobs it enqueued were delivered.
//
// # Suspension
//
// A Gate is attached to every element and chained to its parent's gate.
// Suspending a gate buffers every job broadcast in that subtree; releasing
// the last suspension replays the buffered jobs in their original order.
//
// # Filtering
//
// Filtered wraps a typed callback and ignores events of other types. ForTopic
// ignores events whose topic does not match a wildcard pattern.
package event
