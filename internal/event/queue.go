package event

import (
	"runtime/debug"
	"sync"
	"sync/atomic"

	"github.com/petermattis/goid"

	"github.com/dshills/sapphire/internal/logging"
)

// job is one event bound to the subscriptions that were attached when it
// was broadcast.
type job struct {
	event Event
	subs  []*Subscription
}

// Queue delivers broadcast events in FIFO order. One queue is shared by
// every broadcaster of a model tree.
type Queue struct {
	mu    sync.Mutex
	idle  *sync.Cond
	jobs  []job
	owner int64 // goroutine running Drain, 0 when idle

	log *logging.Logger

	delivered atomic.Uint64
	panics    atomic.Uint64
}

// NewQueue creates an empty queue. A nil logger discards panic reports.
func NewQueue(log *logging.Logger) *Queue {
	q := &Queue{log: logging.OrNop(log).WithComponent("event")}
	q.idle = sync.NewCond(&q.mu)
	return q
}

func (q *Queue) enqueue(j job) {
	q.mu.Lock()
	q.jobs = append(q.jobs, j)
	q.mu.Unlock()
}

// Pending returns the number of jobs waiting for delivery.
func (q *Queue) Pending() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.jobs)
}

// Drain delivers queued jobs until the queue is empty. A call made from a
// listener of the running drain returns immediately and the running drain
// picks up the new jobs. A call from any other goroutine waits for the
// running drain to finish, so every job enqueued before Drain was called
// has been delivered when it returns.
func (q *Queue) Drain() {
	id := goid.Get()
	q.mu.Lock()
	for q.owner != 0 {
		if q.owner == id {
			q.mu.Unlock()
			return
		}
		q.idle.Wait()
	}
	q.owner = id

	for len(q.jobs) > 0 {
		j := q.jobs[0]
		q.jobs[0] = job{}
		q.jobs = q.jobs[1:]
		q.mu.Unlock()

		q.deliver(j)

		q.mu.Lock()
	}

	q.jobs = nil
	q.owner = 0
	q.idle.Broadcast()
	q.mu.Unlock()
}

func (q *Queue) deliver(j job) {
	for _, sub := range j.subs {
		if !sub.Active() {
			continue
		}
		q.invoke(sub.listener, j.event)
	}
}

// invoke calls a single listener, isolating panics.
func (q *Queue) invoke(l Listener, ev Event) {
	defer func() {
		if r := recover(); r != nil {
			q.panics.Add(1)
			perr := &PanicError{Topic: ev.Topic().String(), Value: r, Stack: string(debug.Stack())}
			q.log.Error("listener panicked", "topic", perr.Topic, "err", perr, "stack", perr.Stack)
		}
	}()
	l.Handle(ev)
	q.delivered.Add(1)
}

// Stats contains delivery statistics.
type Stats struct {
	// Delivered is the number of successful listener invocations.
	Delivered uint64

	// Panics is the number of listener invocations that panicked.
	Panics uint64

	// Pending is the current queue depth.
	Pending int
}

// Stats returns delivery statistics.
func (q *Queue) Stats() Stats {
	return Stats{
		Delivered: q.delivered.Load(),
		Panics:    q.panics.Load(),
		Pending:   q.Pending(),
	}
}
