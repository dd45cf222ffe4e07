package model

import (
	"fmt"
	"sync"

	"github.com/dshills/sapphire/internal/event"
	"github.com/dshills/sapphire/internal/service"
)

// Element is a node of the model tree.
type Element struct {
	typ        *ElementType
	resource   Resource
	parent     *Element
	parentProp PropertyDef

	lock      *sync.Mutex
	queue     *event.Queue
	gate      *event.Gate
	listeners *event.Broadcaster

	fields  map[*ValueProperty]*ValueField
	lists   map[*ListProperty]*List
	handles map[*ElementProperty]*Handle

	ctx *service.Context

	disposed bool
}

func newRootElement(t *ElementType, r Resource) *Element {
	q := event.NewQueue(t.schema.log)
	return newElement(t, r, nil, nil, &sync.Mutex{}, q, event.NewGate(nil, q))
}

func newChildElement(parent *Element, p PropertyDef, t *ElementType, r Resource) *Element {
	e := newElement(t, r, parent, p, parent.lock, parent.queue, event.NewGate(parent.gate, parent.queue))
	r.Init(e)
	return e
}

func newElement(t *ElementType, r Resource, parent *Element, p PropertyDef, lock *sync.Mutex, q *event.Queue, gate *event.Gate) *Element {
	e := &Element{
		typ:        t,
		resource:   r,
		parent:     parent,
		parentProp: p,
		lock:       lock,
		queue:      q,
		gate:       gate,
		listeners:  event.NewBroadcaster(q, gate),
		fields:     make(map[*ValueProperty]*ValueField),
		lists:      make(map[*ListProperty]*List),
		handles:    make(map[*ElementProperty]*Handle),
	}
	e.ctx = service.NewContext(service.KindElementInstance, e, t.Context(),
		service.WithLock(lock),
		service.WithQueue(q),
	)
	return e
}

// Type returns the element type.
func (e *Element) Type() *ElementType {
	return e.typ
}

// Resource returns the resource backing the element. It never changes.
func (e *Element) Resource() Resource {
	return e.resource
}

// Parent returns the containing element, or nil for a root.
func (e *Element) Parent() *Element {
	return e.parent
}

// ParentProperty returns the list or element property holding e, or nil
// for a root.
func (e *Element) ParentProperty() PropertyDef {
	return e.parentProp
}

// Root returns the root of the tree.
func (e *Element) Root() *Element {
	cur := e
	for cur.parent != nil {
		cur = cur.parent
	}
	return cur
}

// Disposed reports whether the element was disposed.
func (e *Element) Disposed() bool {
	e.lock.Lock()
	defer e.lock.Unlock()
	return e.disposed
}

// Context returns the element instance service context. Its parent is the
// metamodel context of the element type.
func (e *Element) Context() *service.Context {
	return e.ctx
}

// checkOwner verifies that p is declared by the element's type. isNil
// reports a typed nil pointer, which the interface comparison misses.
func (e *Element) checkOwner(p PropertyDef, isNil bool) error {
	if p == nil || isNil {
		return fmt.Errorf("%w: nil property", ErrIllegalArgument)
	}
	if p.Owner() != e.typ {
		return fmt.Errorf("%w: %s on %s", ErrForeignProperty, p.Name(), e.typ.name)
	}
	return nil
}

// Property returns the instance of the named property: a *ValueField,
// *List or *Handle.
func (e *Element) Property(name string) (any, error) {
	p, ok := e.typ.Property(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s has no property %q", ErrIllegalArgument, e.typ.name, name)
	}
	switch p := p.(type) {
	case *ValueProperty:
		return e.Field(p)
	case *ListProperty:
		return e.List(p)
	case *ElementProperty:
		return e.Handle(p)
	}
	return nil, fmt.Errorf("%w: unsupported property %T", ErrIllegalArgument, p)
}

// Field returns the instance of a value property.
func (e *Element) Field(p *ValueProperty) (*ValueField, error) {
	if err := e.checkOwner(p, p == nil); err != nil {
		return nil, err
	}
	e.lock.Lock()
	defer e.lock.Unlock()
	if e.disposed {
		return nil, ErrDisposed
	}
	return e.fieldLocked(p), nil
}

func (e *Element) fieldLocked(p *ValueProperty) *ValueField {
	f, ok := e.fields[p]
	if !ok {
		f = &ValueField{e: e, p: p, listeners: event.NewBroadcaster(e.queue, e.gate)}
		f.ctx = service.NewContext(service.KindPropertyInstance, f, p.Context(),
			service.WithLock(e.lock),
			service.WithQueue(e.queue),
		)
		e.fields[p] = f
	}
	return f
}

// List returns the instance of a list property.
func (e *Element) List(p *ListProperty) (*List, error) {
	if err := e.checkOwner(p, p == nil); err != nil {
		return nil, err
	}
	e.lock.Lock()
	defer e.lock.Unlock()
	if e.disposed {
		return nil, ErrDisposed
	}
	return e.listLocked(p), nil
}

func (e *Element) listLocked(p *ListProperty) *List {
	l, ok := e.lists[p]
	if !ok {
		l = &List{
			e:         e,
			p:         p,
			byRes:     make(map[Resource]*Element),
			listeners: event.NewBroadcaster(e.queue, e.gate),
		}
		e.lists[p] = l
	}
	return l
}

// Handle returns the instance of an element property.
func (e *Element) Handle(p *ElementProperty) (*Handle, error) {
	if err := e.checkOwner(p, p == nil); err != nil {
		return nil, err
	}
	e.lock.Lock()
	defer e.lock.Unlock()
	if e.disposed {
		return nil, ErrDisposed
	}
	return e.handleLocked(p), nil
}

func (e *Element) handleLocked(p *ElementProperty) *Handle {
	h, ok := e.handles[p]
	if !ok {
		h = &Handle{e: e, p: p, listeners: event.NewBroadcaster(e.queue, e.gate)}
		e.handles[p] = h
	}
	return h
}

// Read returns the value of p.
func (e *Element) Read(p *ValueProperty) (Value, error) {
	f, err := e.Field(p)
	if err != nil {
		return Value{}, err
	}
	return f.Read()
}

// Text returns the effective text of p, or "" when the element is disposed
// or p is foreign.
func (e *Element) Text(p *ValueProperty) string {
	v, err := e.Read(p)
	if err != nil {
		return ""
	}
	return v.Text()
}

// Write stores text in p.
func (e *Element) Write(p *ValueProperty, text string) error {
	f, err := e.Field(p)
	if err != nil {
		return err
	}
	return f.Write(text)
}

// Attach registers a listener for events about the element and its
// properties.
func (e *Element) Attach(l event.Listener) (*event.Subscription, error) {
	if l == nil {
		return nil, ErrNilListener
	}
	e.lock.Lock()
	defer e.lock.Unlock()
	if e.disposed {
		return nil, ErrDisposed
	}
	return e.listeners.Attach(l)
}

// Detach removes a listener. Unknown listeners are ignored.
func (e *Element) Detach(l event.Listener) error {
	if l == nil {
		return ErrNilListener
	}
	return e.listeners.Detach(l)
}

// Suspend buffers every event broadcast in the element's subtree until the
// returned handle is released.
func (e *Element) Suspend() *event.Suspension {
	return e.gate.Suspend()
}

// Validation returns the aggregated status of the element's value
// properties, its child elements and its element validators.
func (e *Element) Validation() (Status, error) {
	if e.Disposed() {
		return Status{}, ErrDisposed
	}
	var statuses []Status
	for _, p := range e.typ.props {
		switch p := p.(type) {
		case *ValueProperty:
			f, err := e.Field(p)
			if err != nil {
				return Status{}, err
			}
			st, err := f.Validation()
			if err != nil {
				return Status{}, err
			}
			statuses = append(statuses, st)
		case *ListProperty:
			l, err := e.List(p)
			if err != nil {
				return Status{}, err
			}
			children, err := l.Elements()
			if err != nil {
				return Status{}, err
			}
			for _, child := range children {
				st, err := child.Validation()
				if err != nil {
					return Status{}, err
				}
				statuses = append(statuses, st)
			}
		case *ElementProperty:
			h, err := e.Handle(p)
			if err != nil {
				return Status{}, err
			}
			child, err := h.Element(false, nil)
			if err != nil {
				return Status{}, err
			}
			if child != nil {
				st, err := child.Validation()
				if err != nil {
					return Status{}, err
				}
				statuses = append(statuses, st)
			}
		}
	}
	validators, err := service.All[ElementValidator](e.Context())
	if err != nil {
		return Status{}, contextErr(err)
	}
	for _, v := range validators {
		statuses = append(statuses, v.ValidateElement(e))
	}
	return Worst(statuses...), nil
}

// Refresh re-reads the element's resource and broadcasts content events
// for every property whose persisted state changed. Child elements are
// refreshed recursively.
func (e *Element) Refresh() error {
	e.lock.Lock()
	err := e.refreshLocked()
	e.lock.Unlock()
	e.queue.Drain()
	return err
}

func (e *Element) refreshLocked() error {
	if e.disposed {
		return ErrDisposed
	}
	for _, p := range e.typ.props {
		var err error
		switch p := p.(type) {
		case *ValueProperty:
			err = e.fieldLocked(p).refreshLocked()
		case *ListProperty:
			l := e.listLocked(p)
			if err = l.refreshLocked(); err == nil {
				for _, child := range l.entries {
					if err = child.refreshLocked(); err != nil {
						break
					}
				}
			}
		case *ElementProperty:
			h := e.handleLocked(p)
			if err = h.refreshLocked(); err == nil && h.child != nil {
				err = h.child.refreshLocked()
			}
		}
		if err != nil {
			return fmt.Errorf("refresh %s.%s: %w", e.typ.name, p.Name(), err)
		}
	}
	return nil
}

// Dispose disposes the element and its subtree. Listeners receive an
// ElementDisposeEvent and are then detached. Disposing twice is a no-op.
func (e *Element) Dispose() {
	e.lock.Lock()
	e.disposeLocked()
	e.lock.Unlock()
	e.queue.Drain()
}

func (e *Element) disposeLocked() {
	if e.disposed {
		return
	}
	for _, l := range e.lists {
		l.disposeLocked()
	}
	for _, h := range e.handles {
		h.disposeLocked()
	}
	for _, f := range e.fields {
		f.disposeLocked()
	}
	if l := e.parentListLocked(); l != nil {
		l.untrackLocked(e)
	}
	e.disposed = true

	e.listeners.Broadcast(&ElementDisposeEvent{Base: event.NewBase(TopicElementDisposed), Element: e})
	e.listeners.Clear()

	if err := e.ctx.Dispose(); err != nil {
		e.typ.schema.log.Debug("element context already disposed", "type", e.typ.name, "err", err)
	}
	e.resource.Dispose()
}

// parentListLocked returns the list holding e, or nil when e is a root or
// the value of an element property.
func (e *Element) parentListLocked() *List {
	lp, ok := e.parentProp.(*ListProperty)
	if !ok || e.parent == nil {
		return nil
	}
	return e.parent.lists[lp]
}

// String returns the type name and, for children, the parent property.
func (e *Element) String() string {
	if e.parentProp == nil {
		return e.typ.name
	}
	return e.parentProp.Name() + ":" + e.typ.name
}
