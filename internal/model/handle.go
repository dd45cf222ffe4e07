package model

import (
	"fmt"

	"github.com/dshills/sapphire/internal/event"
)

// Handle is the instance of an element property on one element.
type Handle struct {
	e         *Element
	p         *ElementProperty
	binding   ElementBinding
	child     *Element
	listeners *event.Broadcaster
	synced    bool
}

// Owner returns the owning element.
func (h *Handle) Owner() *Element { return h.e }

// Property returns the property definition.
func (h *Handle) Property() *ElementProperty { return h.p }

func (h *Handle) bindingLocked() (ElementBinding, error) {
	if h.e.disposed {
		return nil, ErrDisposed
	}
	if h.binding == nil {
		b, err := h.e.resource.ElementBinding(h.p)
		if err != nil {
			return nil, err
		}
		h.binding = b
	}
	return h.binding, nil
}

func (h *Handle) refreshLocked() error {
	b, err := h.bindingLocked()
	if err != nil {
		return err
	}
	r, err := b.Read()
	if err != nil {
		return err
	}

	changed := false
	if h.child != nil && (r == nil || h.child.resource != r) {
		h.child.disposeLocked()
		h.child = nil
		changed = true
	}
	if r != nil && h.child == nil {
		t, err := b.Type(r)
		if err != nil {
			return err
		}
		h.child = newChildElement(h.e, h.p, t, r)
		changed = true
	}
	if changed && h.synced {
		ev := newContentEvent(h.e, h.p, "", "")
		h.listeners.Broadcast(ev)
		h.e.listeners.Broadcast(ev)
	}
	h.synced = true
	return nil
}

// Element returns the child element. When there is none and create is
// set, a child of type t is created; a nil t selects the only possible
// type. Without create a missing child yields nil. Implied properties
// always have a child.
func (h *Handle) Element(create bool, t *ElementType) (*Element, error) {
	h.e.lock.Lock()
	child, err := h.elementLocked(create, t)
	h.e.lock.Unlock()
	h.e.queue.Drain()
	return child, err
}

func (h *Handle) elementLocked(create bool, t *ElementType) (*Element, error) {
	if err := h.refreshLocked(); err != nil {
		return nil, err
	}
	if h.child != nil || !create {
		return h.child, nil
	}
	if t == nil {
		if len(h.p.types) != 1 {
			return nil, fmt.Errorf("%w: %s needs an explicit type", ErrTypeNotAllowed, h.p.name)
		}
		t = h.p.types[0]
	}
	if !h.p.Allows(t) {
		return nil, fmt.Errorf("%w: %s in %s", ErrTypeNotAllowed, t.name, h.p.name)
	}
	if _, err := h.binding.Create(t); err != nil {
		return nil, err
	}
	if err := h.refreshLocked(); err != nil {
		return nil, err
	}
	return h.child, nil
}

// Remove deletes the child element. For implied properties the child's
// content is cleared and a fresh child takes its place.
func (h *Handle) Remove() error {
	h.e.lock.Lock()
	err := h.removeLocked()
	h.e.lock.Unlock()
	h.e.queue.Drain()
	return err
}

func (h *Handle) removeLocked() error {
	if err := h.refreshLocked(); err != nil {
		return err
	}
	if h.child == nil {
		return nil
	}
	if err := h.binding.Remove(); err != nil {
		return err
	}
	if h.p.implied {
		// the resource may be reused for implied children
		h.child.disposeLocked()
		h.child = nil
	}
	return h.refreshLocked()
}

// Refresh re-reads the resource, notifying listeners if the child
// appeared, vanished or was replaced.
func (h *Handle) Refresh() error {
	h.e.lock.Lock()
	err := h.refreshLocked()
	h.e.lock.Unlock()
	h.e.queue.Drain()
	return err
}

// Attach registers a listener for changes of the child.
func (h *Handle) Attach(l event.Listener) (*event.Subscription, error) {
	if l == nil {
		return nil, ErrNilListener
	}
	h.e.lock.Lock()
	defer h.e.lock.Unlock()
	if h.e.disposed {
		return nil, ErrDisposed
	}
	return h.listeners.Attach(l)
}

// Detach removes a listener. Unknown listeners are ignored.
func (h *Handle) Detach(l event.Listener) error {
	if l == nil {
		return ErrNilListener
	}
	return h.listeners.Detach(l)
}

func (h *Handle) disposeLocked() {
	if h.child != nil {
		h.child.disposeLocked()
	}
	h.listeners.Clear()
}
