package service

import (
	"fmt"
	"slices"
	"sync"
)

// Descriptor declares a service implementation.
type Descriptor struct {
	// ID identifies the service. Required.
	ID string

	// Overrides lists IDs of services this one takes priority over.
	Overrides []string

	// Contexts restricts the kinds of context the service applies to.
	// Empty means every kind.
	Contexts []Kind

	// Condition further restricts applicability. Nil means always.
	Condition func(*Context) bool

	// Params are passed to the service on initialization.
	Params map[string]string

	// Factory creates a fresh, uninitialized instance. Required.
	Factory func() Service
}

func (d Descriptor) validate() error {
	if d.ID == "" {
		return fmt.Errorf("%w: empty id", ErrInvalidDescriptor)
	}
	if d.Factory == nil {
		return fmt.Errorf("%w: %s has no factory", ErrInvalidDescriptor, d.ID)
	}
	return nil
}

// appliesTo reports whether the descriptor is applicable to c.
func (d Descriptor) appliesTo(c *Context) bool {
	if len(d.Contexts) > 0 && !slices.Contains(d.Contexts, c.kind) {
		return false
	}
	return d.Condition == nil || d.Condition(c)
}

// Registry is the static table of service descriptors consulted by every
// context that references it. It replaces runtime discovery: everything a
// context can resolve beyond its local services is registered here at
// startup.
type Registry struct {
	mu    sync.RWMutex
	descs []Descriptor
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Register adds a descriptor. Duplicate IDs are accepted here and resolved
// by contexts, which keep the first.
func (r *Registry) Register(d Descriptor) error {
	if err := d.validate(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.descs = append(r.descs, d)
	return nil
}

// MustRegister registers a descriptor and panics on error.
// Useful for registering built-in services at init time.
func (r *Registry) MustRegister(d Descriptor) {
	if err := r.Register(d); err != nil {
		panic(err)
	}
}

// Descriptors returns a copy of the registered descriptors in
// registration order.
func (r *Registry) Descriptors() []Descriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.descs)
}

// Len returns the number of registered descriptors.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.descs)
}

func (r *Registry) applicable(c *Context) []Descriptor {
	if r == nil {
		return nil
	}
	var out []Descriptor
	for _, d := range r.Descriptors() {
		if d.appliesTo(c) {
			out = append(out, d)
		}
	}
	return out
}
