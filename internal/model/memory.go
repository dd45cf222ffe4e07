package model

import (
	"fmt"
	"slices"
)

// MemoryResource keeps element data in memory. It backs elements that are
// instantiated without a persistent resource.
type MemoryResource struct {
	typ      *ElementType
	element  *Element
	values   map[string]string
	lists    map[string][]*MemoryResource
	children map[string]*MemoryResource
}

// NewMemoryResource creates an empty memory resource.
func NewMemoryResource() *MemoryResource {
	return &MemoryResource{
		values:   make(map[string]string),
		lists:    make(map[string][]*MemoryResource),
		children: make(map[string]*MemoryResource),
	}
}

func newTypedMemoryResource(t *ElementType) *MemoryResource {
	r := NewMemoryResource()
	r.typ = t
	return r
}

// Init records the owning element.
func (r *MemoryResource) Init(e *Element) {
	r.element = e
	if r.typ == nil {
		r.typ = e.Type()
	}
}

// Element returns the owning element.
func (r *MemoryResource) Element() *Element {
	return r.element
}

// Dispose does nothing; memory is reclaimed with the resource.
func (r *MemoryResource) Dispose() {}

// ValueBinding returns a binding over the value map.
func (r *MemoryResource) ValueBinding(p *ValueProperty) (ValueBinding, error) {
	return &memoryValue{r: r, name: p.Name()}, nil
}

// ListBinding returns a binding over the list map.
func (r *MemoryResource) ListBinding(p *ListProperty) (ListBinding, error) {
	return &memoryList{r: r, p: p}, nil
}

// ElementBinding returns a binding over the child map.
func (r *MemoryResource) ElementBinding(p *ElementProperty) (ElementBinding, error) {
	return &memoryElement{r: r, p: p}, nil
}

type memoryValue struct {
	r    *MemoryResource
	name string
}

func (b *memoryValue) Read() (string, bool) {
	v, ok := b.r.values[b.name]
	return v, ok
}

func (b *memoryValue) Write(text string, ok bool) error {
	if !ok {
		delete(b.r.values, b.name)
		return nil
	}
	b.r.values[b.name] = text
	return nil
}

type memoryList struct {
	r *MemoryResource
	p *ListProperty
}

func (b *memoryList) entries() []*MemoryResource {
	return b.r.lists[b.p.Name()]
}

func (b *memoryList) Entries() ([]Resource, error) {
	entries := b.entries()
	out := make([]Resource, len(entries))
	for i, e := range entries {
		out[i] = e
	}
	return out, nil
}

func (b *memoryList) Insert(t *ElementType, pos int) (Resource, error) {
	entries := b.entries()
	if pos < 0 || pos > len(entries) {
		return nil, ErrIndexOutOfRange
	}
	child := newTypedMemoryResource(t)
	b.r.lists[b.p.Name()] = slices.Insert(entries, pos, child)
	return child, nil
}

func (b *memoryList) find(r Resource) (int, error) {
	for i, e := range b.entries() {
		if Resource(e) == r {
			return i, nil
		}
	}
	return -1, ErrNotMember
}

func (b *memoryList) Remove(r Resource) error {
	i, err := b.find(r)
	if err != nil {
		return err
	}
	b.r.lists[b.p.Name()] = slices.Delete(b.entries(), i, i+1)
	return nil
}

func (b *memoryList) Move(r Resource, pos int) error {
	i, err := b.find(r)
	if err != nil {
		return err
	}
	entries := b.entries()
	if pos < 0 || pos >= len(entries) {
		return ErrIndexOutOfRange
	}
	entry := entries[i]
	entries = slices.Delete(entries, i, i+1)
	b.r.lists[b.p.Name()] = slices.Insert(entries, pos, entry)
	return nil
}

func (b *memoryList) Type(r Resource) (*ElementType, error) {
	m, ok := r.(*MemoryResource)
	if !ok || m.typ == nil {
		return nil, fmt.Errorf("%w: resource %T has no element type", ErrIllegalState, r)
	}
	return m.typ, nil
}

type memoryElement struct {
	r *MemoryResource
	p *ElementProperty
}

func (b *memoryElement) Read() (Resource, error) {
	child, ok := b.r.children[b.p.Name()]
	if !ok {
		if !b.p.implied {
			return nil, nil
		}
		child = newTypedMemoryResource(b.p.types[0])
		b.r.children[b.p.Name()] = child
	}
	return child, nil
}

func (b *memoryElement) Create(t *ElementType) (Resource, error) {
	child := newTypedMemoryResource(t)
	b.r.children[b.p.Name()] = child
	return child, nil
}

func (b *memoryElement) Remove() error {
	if b.p.implied {
		b.r.children[b.p.Name()] = newTypedMemoryResource(b.p.types[0])
		return nil
	}
	delete(b.r.children, b.p.Name())
	return nil
}

func (b *memoryElement) Type(r Resource) (*ElementType, error) {
	m, ok := r.(*MemoryResource)
	if !ok || m.typ == nil {
		return nil, fmt.Errorf("%w: resource %T has no element type", ErrIllegalState, r)
	}
	return m.typ, nil
}
