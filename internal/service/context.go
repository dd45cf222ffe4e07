package service

import (
	"fmt"
	"reflect"
	"sync"

	"github.com/dshills/sapphire/internal/event"
	"github.com/dshills/sapphire/internal/logging"
)

// Context is a hierarchical service scope.
type Context struct {
	kind     Kind
	subject  any
	parent   *Context
	registry *Registry
	local    []Descriptor

	lock  *sync.Mutex
	queue *event.Queue
	log   *logging.Logger

	mu       sync.Mutex
	proxies  []*proxy
	built    bool
	cache    map[reflect.Type]any
	disposed bool
}

// Option configures a Context.
type Option func(*Context)

// WithRegistry sets the registry consulted for extension services.
// Contexts inherit their parent's registry by default.
func WithRegistry(r *Registry) Option {
	return func(c *Context) {
		c.registry = r
	}
}

// WithLocal adds descriptors that apply only to this context.
func WithLocal(descs ...Descriptor) Option {
	return func(c *Context) {
		c.local = append(c.local, descs...)
	}
}

// WithLock overrides the inherited lock.
func WithLock(l *sync.Mutex) Option {
	return func(c *Context) {
		c.lock = l
	}
}

// WithQueue overrides the inherited event queue.
func WithQueue(q *event.Queue) Option {
	return func(c *Context) {
		c.queue = q
	}
}

// WithLogger overrides the inherited logger.
func WithLogger(l *logging.Logger) Option {
	return func(c *Context) {
		c.log = l
	}
}

// NewContext creates a context below parent (nil for a root). Lock, queue,
// logger and registry are inherited from the parent unless overridden; a
// root gets its own lock and queue.
func NewContext(kind Kind, subject any, parent *Context, opts ...Option) *Context {
	c := &Context{
		kind:    kind,
		subject: subject,
		parent:  parent,
		cache:   make(map[reflect.Type]any),
	}
	if parent != nil {
		c.registry = parent.registry
		c.lock = parent.lock
		c.queue = parent.queue
		c.log = parent.log
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.log == nil {
		c.log = logging.Nop()
	}
	if c.lock == nil {
		c.lock = &sync.Mutex{}
	}
	if c.queue == nil {
		c.queue = event.NewQueue(c.log)
	}
	return c
}

// Kind returns the context kind.
func (c *Context) Kind() Kind {
	return c.kind
}

// Subject returns the object the context is scoped to.
func (c *Context) Subject() any {
	return c.subject
}

// Parent returns the parent context, or nil for a root.
func (c *Context) Parent() *Context {
	return c.parent
}

// Registry returns the registry consulted for extension services.
func (c *Context) Registry() *Registry {
	return c.registry
}

// Lock returns the lock shared by the whole context tree.
func (c *Context) Lock() *sync.Mutex {
	return c.lock
}

// Queue returns the event queue shared by the whole context tree.
func (c *Context) Queue() *event.Queue {
	return c.queue
}

// Logger returns the context logger.
func (c *Context) Logger() *logging.Logger {
	return c.log
}

// Disposed reports whether Dispose has been called.
func (c *Context) Disposed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.disposed
}

// SubjectOf returns the subject of the nearest context (starting at c)
// whose subject has type T.
func SubjectOf[T any](c *Context) (T, bool) {
	for cur := c; cur != nil; cur = cur.parent {
		if s, ok := cur.subject.(T); ok {
			return s, true
		}
	}
	var zero T
	return zero, false
}

// All returns the services assignable to T in priority order. The result
// is cached: repeated calls return the same slice, which callers must not
// modify.
func All[T any](c *Context) ([]T, error) {
	key := reflect.TypeFor[T]()

	c.mu.Lock()
	if c.disposed {
		c.mu.Unlock()
		return nil, ErrDisposed
	}
	if cached, ok := c.cache[key]; ok {
		c.mu.Unlock()
		return cached.([]T), nil
	}
	c.mu.Unlock()

	matches := func(s Service) bool {
		_, ok := s.(T)
		return ok
	}

	candidates, err := c.candidates(matches, 0)
	if err != nil {
		return nil, err
	}
	var out []T
	for _, p := range order(candidates, c.log) {
		svc, err := p.get()
		if err != nil {
			c.log.Warn("service dropped", "id", p.desc.ID, "err", err)
			continue
		}
		out = append(out, svc.(T))
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.disposed {
		return nil, ErrDisposed
	}
	if cached, ok := c.cache[key]; ok {
		return cached.([]T), nil
	}
	c.cache[key] = out
	return out, nil
}

// First returns the highest-priority service assignable to T, or the zero
// value if there is none.
func First[T any](c *Context) (T, error) {
	all, err := All[T](c)
	if err != nil || len(all) == 0 {
		var zero T
		return zero, err
	}
	return all[0], nil
}

// Find returns the initialized service with the given ID from this context
// or its ancestors.
func (c *Context) Find(id string) (Service, error) {
	for cur := c; cur != nil; cur = cur.parent {
		proxies, err := cur.ensureProxies()
		if err != nil {
			return nil, err
		}
		for _, p := range proxies {
			if p.desc.ID == id {
				return p.get()
			}
		}
	}
	return nil, nil
}

// candidates collects the proxies of this context and its ancestors whose
// instance satisfies match, nearest context first. A disposed ancestor
// fails the lookup.
func (c *Context) candidates(match func(Service) bool, depth int) ([]candidate, error) {
	proxies, err := c.ensureProxies()
	if err != nil {
		return nil, err
	}
	var out []candidate
	for _, p := range proxies {
		if match(p.instance) {
			out = append(out, candidate{proxy: p, depth: depth})
		}
	}
	if c.parent != nil {
		inherited, err := c.parent.candidates(match, depth+1)
		if err != nil {
			return nil, fmt.Errorf("%s context: %w", c.parent.kind, err)
		}
		out = append(out, inherited...)
	}
	return out, nil
}

func (c *Context) ensureProxies() ([]*proxy, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.disposed {
		return nil, ErrDisposed
	}
	if !c.built {
		for _, d := range c.local {
			c.proxies = append(c.proxies, newProxy(c, d))
		}
		for _, d := range c.registry.applicable(c) {
			c.proxies = append(c.proxies, newProxy(c, d))
		}
		c.built = true
	}
	return c.proxies, nil
}

// Dispose disposes every service this context initialized. It may be
// called once; later calls return ErrDisposed.
func (c *Context) Dispose() error {
	c.mu.Lock()
	if c.disposed {
		c.mu.Unlock()
		return fmt.Errorf("dispose %s context: %w", c.kind, ErrDisposed)
	}
	c.disposed = true
	proxies := c.proxies
	c.proxies = nil
	c.cache = nil
	c.mu.Unlock()

	for _, p := range proxies {
		p.dispose()
	}
	return nil
}

// proxy lazily initializes one service for one context.
type proxy struct {
	owner    *Context
	desc     Descriptor
	instance Service

	mu       sync.Mutex
	ready    bool
	err      error
	disposed bool
}

func newProxy(owner *Context, d Descriptor) *proxy {
	return &proxy{owner: owner, desc: d, instance: d.Factory()}
}

func (p *proxy) get() (Service, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.disposed {
		return nil, ErrDisposed
	}
	if p.err != nil {
		return nil, p.err
	}
	if !p.ready {
		if err := Initialize(p.instance, p.owner, p.desc.ID, p.desc.Params); err != nil {
			p.err = err
			return nil, err
		}
		p.ready = true
	}
	return p.instance, nil
}

func (p *proxy) dispose() {
	p.mu.Lock()
	ready := p.ready && !p.disposed
	p.disposed = true
	p.mu.Unlock()

	if ready {
		p.instance.Dispose()
	}
}
