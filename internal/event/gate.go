package event

import "sync"

// Gate controls event suspension for one element. Gates form a chain that
// mirrors the element tree.
type Gate struct {
	mu        sync.Mutex
	parent    *Gate
	queue     *Queue
	suspended int
	held      []job
}

// NewGate creates a gate below parent (which may be nil). Released jobs
// are handed to q.
func NewGate(parent *Gate, q *Queue) *Gate {
	return &Gate{parent: parent, queue: q}
}

// Suspend starts buffering events broadcast in this gate's subtree.
func (g *Gate) Suspend() *Suspension {
	g.mu.Lock()
	g.suspended++
	g.mu.Unlock()
	return &Suspension{gate: g}
}

// Suspended reports whether this gate or one of its ancestors is suspended.
func (g *Gate) Suspended() bool {
	return g.holder() != nil
}

// holder returns the outermost suspended gate on the chain, or nil.
func (g *Gate) holder() *Gate {
	var outer *Gate
	for cur := g; cur != nil; cur = cur.parent {
		cur.mu.Lock()
		if cur.suspended > 0 {
			outer = cur
		}
		cur.mu.Unlock()
	}
	return outer
}

func (g *Gate) hold(j job) {
	g.mu.Lock()
	g.held = append(g.held, j)
	g.mu.Unlock()
}

func (g *Gate) release() {
	g.mu.Lock()
	g.suspended--
	if g.suspended > 0 {
		g.mu.Unlock()
		return
	}
	held := g.held
	g.held = nil
	g.mu.Unlock()

	if len(held) == 0 {
		return
	}

	// An ancestor may have been suspended while this gate was.
	if outer := g.parent.holder(); outer != nil {
		for _, j := range held {
			outer.hold(j)
		}
		return
	}
	for _, j := range held {
		g.queue.enqueue(j)
	}
	g.queue.Drain()
}

// Suspension is the handle returned by Gate.Suspend.
type Suspension struct {
	gate *Gate
	once sync.Once
}

// Release ends the suspension. When the last suspension of the gate is
// released, buffered events are replayed in their original order.
func (s *Suspension) Release() {
	s.once.Do(s.gate.release)
}
