package model

import (
	"fmt"
	"reflect"
	"slices"
	"strings"

	"github.com/dshills/sapphire/internal/event"
)

// List is the instance of a list property on one element. Entries follow
// the persisted order of the resource.
type List struct {
	e         *Element
	p         *ListProperty
	binding   ListBinding
	entries   []*Element
	byRes     map[Resource]*Element
	listeners *event.Broadcaster
	indexes   map[indexID]*Index
	synced    bool
}

// Element returns the owning element.
func (l *List) Element() *Element { return l.e }

// Property returns the property definition.
func (l *List) Property() *ListProperty { return l.p }

func (l *List) bindingLocked() (ListBinding, error) {
	if l.e.disposed {
		return nil, ErrDisposed
	}
	if l.binding == nil {
		b, err := l.e.resource.ListBinding(l.p)
		if err != nil {
			return nil, err
		}
		l.binding = b
	}
	return l.binding, nil
}

// refreshLocked brings the element cache in line with the resource. It
// reports whether entries were added, removed or reordered.
func (l *List) refreshLocked() error {
	b, err := l.bindingLocked()
	if err != nil {
		return err
	}
	resources, err := b.Entries()
	if err != nil {
		return err
	}

	next := make([]*Element, 0, len(resources))
	keep := make(map[Resource]bool, len(resources))
	for _, r := range resources {
		child, ok := l.byRes[r]
		if !ok {
			t, err := b.Type(r)
			if err != nil {
				return err
			}
			child = newChildElement(l.e, l.p, t, r)
			l.byRes[r] = child
		}
		keep[r] = true
		next = append(next, child)
	}

	changed := !slices.Equal(l.entries, next)
	for r, child := range l.byRes {
		if !keep[r] {
			delete(l.byRes, r)
			child.disposeLocked()
		}
	}
	l.entries = next

	if changed {
		l.reindexLocked()
	}
	if changed && l.synced {
		l.broadcastLocked()
	}
	l.synced = true
	return nil
}

// reindexLocked brings the built indexes in line with the entries.
func (l *List) reindexLocked() {
	for _, ix := range l.indexes {
		if ix.live() && ix.rescanLocked() {
			ix.broadcastLocked()
		}
	}
}

// rekeyLocked moves e within the indexes keyed by p.
func (l *List) rekeyLocked(e *Element, p *ValueProperty) {
	for id, ix := range l.indexes {
		if id.prop == p && ix.live() && ix.rekeyLocked(e) {
			ix.broadcastLocked()
		}
	}
}

// untrackLocked drops e from every index.
func (l *List) untrackLocked(e *Element) {
	for _, ix := range l.indexes {
		if ix.live() && ix.untrackLocked(e) {
			ix.broadcastLocked()
		}
	}
}

func (l *List) broadcastLocked() {
	ev := newContentEvent(l.e, l.p, "", "")
	l.listeners.Broadcast(ev)
	l.e.listeners.Broadcast(ev)
}

// mutate runs fn with the lock held, resynchronizes and drains.
func (l *List) mutate(fn func(b ListBinding) error) error {
	l.e.lock.Lock()
	err := l.mutateLocked(fn)
	l.e.lock.Unlock()
	l.e.queue.Drain()
	return err
}

func (l *List) mutateLocked(fn func(b ListBinding) error) error {
	if err := l.refreshLocked(); err != nil {
		return err
	}
	if err := fn(l.binding); err != nil {
		return err
	}
	return l.refreshLocked()
}

// Elements returns the entries in persisted order.
func (l *List) Elements() ([]*Element, error) {
	l.e.lock.Lock()
	err := l.refreshLocked()
	out := slices.Clone(l.entries)
	l.e.lock.Unlock()
	l.e.queue.Drain()
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Len returns the number of entries.
func (l *List) Len() (int, error) {
	elems, err := l.Elements()
	return len(elems), err
}

func (l *List) resolveType(t *ElementType) (*ElementType, error) {
	if t == nil {
		if len(l.p.types) != 1 {
			return nil, fmt.Errorf("%w: %s needs an explicit type", ErrTypeNotAllowed, l.p.name)
		}
		return l.p.types[0], nil
	}
	if !l.p.Allows(t) {
		return nil, fmt.Errorf("%w: %s in %s", ErrTypeNotAllowed, t.name, l.p.name)
	}
	return t, nil
}

// Insert appends a new entry of type t. A nil type selects the only
// possible type.
func (l *List) Insert(t *ElementType) (*Element, error) {
	return l.InsertAt(t, -1)
}

// InsertAt inserts a new entry of type t at pos. A negative pos appends.
func (l *List) InsertAt(t *ElementType, pos int) (*Element, error) {
	t, err := l.resolveType(t)
	if err != nil {
		return nil, err
	}
	var created Resource
	err = l.mutate(func(b ListBinding) error {
		if pos < 0 {
			pos = len(l.entries)
		}
		if pos > len(l.entries) {
			return fmt.Errorf("%w: %d", ErrIndexOutOfRange, pos)
		}
		r, err := b.Insert(t, pos)
		created = r
		return err
	})
	if err != nil {
		return nil, err
	}
	l.e.lock.Lock()
	defer l.e.lock.Unlock()
	e, ok := l.byRes[created]
	if !ok {
		return nil, fmt.Errorf("%w: inserted entry not found", ErrIllegalState)
	}
	return e, nil
}

func (l *List) positionLocked(e *Element) (int, error) {
	if e == nil {
		return -1, fmt.Errorf("%w: nil element", ErrIllegalArgument)
	}
	i := slices.Index(l.entries, e)
	if i < 0 {
		return -1, ErrNotMember
	}
	return i, nil
}

// Remove deletes e from the list and disposes it.
func (l *List) Remove(e *Element) error {
	return l.mutate(func(b ListBinding) error {
		if _, err := l.positionLocked(e); err != nil {
			return err
		}
		return b.Remove(e.resource)
	})
}

// RemoveAt deletes the entry at pos.
func (l *List) RemoveAt(pos int) error {
	return l.mutate(func(b ListBinding) error {
		if pos < 0 || pos >= len(l.entries) {
			return fmt.Errorf("%w: %d", ErrIndexOutOfRange, pos)
		}
		return b.Remove(l.entries[pos].resource)
	})
}

// MoveUp swaps e with its predecessor. Moving the first entry does nothing.
func (l *List) MoveUp(e *Element) error {
	return l.move(e, -1)
}

// MoveDown swaps e with its successor. Moving the last entry does nothing.
func (l *List) MoveDown(e *Element) error {
	return l.move(e, 1)
}

func (l *List) move(e *Element, delta int) error {
	return l.mutate(func(b ListBinding) error {
		i, err := l.positionLocked(e)
		if err != nil {
			return err
		}
		j := i + delta
		if j < 0 || j >= len(l.entries) {
			return nil
		}
		return b.Move(e.resource, j)
	})
}

// Refresh re-reads the resource, notifying listeners if entries changed.
func (l *List) Refresh() error {
	l.e.lock.Lock()
	err := l.refreshLocked()
	l.e.lock.Unlock()
	l.e.queue.Drain()
	return err
}

// Attach registers a listener for structural changes of the list.
func (l *List) Attach(lis event.Listener) (*event.Subscription, error) {
	if lis == nil {
		return nil, ErrNilListener
	}
	l.e.lock.Lock()
	defer l.e.lock.Unlock()
	if l.e.disposed {
		return nil, ErrDisposed
	}
	return l.listeners.Attach(lis)
}

// Detach removes a listener. Unknown listeners are ignored.
func (l *List) Detach(lis event.Listener) error {
	if lis == nil {
		return ErrNilListener
	}
	return l.listeners.Detach(lis)
}

// Index returns the index of the entries keyed by p with the default
// comparator.
func (l *List) Index(p *ValueProperty) (*Index, error) {
	return l.IndexWith(p, nil)
}

// IndexNamed returns the default index keyed by the value property with the
// given name. Paths are rejected.
func (l *List) IndexNamed(name string) (*Index, error) {
	if strings.Contains(name, "/") {
		return nil, fmt.Errorf("%w: %q", ErrPathReference, name)
	}
	for _, t := range l.p.types {
		def, ok := t.Property(name)
		if !ok {
			continue
		}
		p, ok := def.(*ValueProperty)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrNotValueProperty, def)
		}
		return l.IndexWith(p, nil)
	}
	return nil, fmt.Errorf("%w: no entry type of %s has %q", ErrForeignProperty, l.p.name, name)
}

// IndexWith returns the index keyed by p using cmp to order and compare
// keys. The same index is returned for the same property and comparator;
// a nil comparator and an explicit one yield distinct indexes.
func (l *List) IndexWith(p *ValueProperty, cmp KeyComparator) (*Index, error) {
	if p == nil {
		return nil, fmt.Errorf("%w: nil property", ErrIllegalArgument)
	}
	if !slices.Contains(l.p.types, p.owner) {
		return nil, fmt.Errorf("%w: %s is not declared by an entry type of %s", ErrForeignProperty, p, l.p.name)
	}
	if cmp != nil && !reflect.TypeOf(cmp).Comparable() {
		return nil, fmt.Errorf("%w: %T", ErrComparator, cmp)
	}

	l.e.lock.Lock()
	defer l.e.lock.Unlock()
	if l.e.disposed {
		return nil, ErrDisposed
	}
	id := indexID{prop: p, cmp: cmp}
	if ix, ok := l.indexes[id]; ok {
		return ix, nil
	}
	if l.indexes == nil {
		l.indexes = make(map[indexID]*Index)
	}
	ix := newIndex(l, p, cmp)
	l.indexes[id] = ix
	return ix, nil
}

func (l *List) disposeLocked() {
	for _, ix := range l.indexes {
		ix.disposeLocked()
	}
	for _, child := range l.entries {
		child.disposeLocked()
	}
	l.listeners.Clear()
}
