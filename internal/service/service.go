package service

import (
	"fmt"

	"github.com/dshills/sapphire/internal/event"
	"github.com/dshills/sapphire/internal/event/topic"
)

// TopicChanged is broadcast by services whose observable state changed.
const TopicChanged topic.Topic = "service.changed"

// Service is a context-scoped behavior. Implementations embed Base, which
// supplies the unexported method and default no-op Dispose.
type Service interface {
	// Dispose releases resources held by the service.
	Dispose()

	base() *Base
}

// Initializer is implemented by services that need setup after the
// context and parameters are bound. An error excludes the service from
// resolution.
type Initializer interface {
	Init() error
}

// Base carries the state shared by all services.
type Base struct {
	ctx         *Context
	id          string
	params      map[string]string
	initialized bool
	listeners   *event.Broadcaster
}

func (b *Base) base() *Base {
	return b
}

// Context returns the context the service was initialized in.
func (b *Base) Context() *Context {
	return b.ctx
}

// ID returns the descriptor ID the service was created from.
func (b *Base) ID() string {
	return b.id
}

// Param returns an initialization parameter, or "" if absent.
func (b *Base) Param(name string) string {
	return b.params[name]
}

// Params returns a copy of the initialization parameters.
func (b *Base) Params() map[string]string {
	out := make(map[string]string, len(b.params))
	for k, v := range b.params {
		out[k] = v
	}
	return out
}

// Dispose is a no-op. Override it to release resources.
func (b *Base) Dispose() {}

// Attach registers a listener for events broadcast by the service.
func (b *Base) Attach(l event.Listener) (*event.Subscription, error) {
	if b.listeners == nil {
		return nil, fmt.Errorf("attach to uninitialized service: %w", ErrDisposed)
	}
	return b.listeners.Attach(l)
}

// Detach removes a listener. Unknown listeners are ignored.
func (b *Base) Detach(l event.Listener) error {
	if b.listeners == nil {
		if l == nil {
			return event.ErrNilListener
		}
		return nil
	}
	return b.listeners.Detach(l)
}

// Broadcast notifies the service's listeners and drains the context queue.
func (b *Base) Broadcast(ev event.Event) {
	if b.listeners == nil {
		return
	}
	b.listeners.Broadcast(ev)
	b.ctx.Queue().Drain()
}

// Event reports a change in a service.
type Event struct {
	event.Base

	// Service is the service that changed.
	Service Service
}

// NewEvent creates a service.changed event for s.
func NewEvent(s Service) *Event {
	return &Event{Base: event.NewBase(TopicChanged), Service: s}
}

// Initialize binds s to ctx with the given parameters and runs its Init
// hook. Calling it again on an initialized service does nothing.
func Initialize(s Service, ctx *Context, id string, params map[string]string) error {
	b := s.base()
	if b.initialized {
		return nil
	}
	b.ctx = ctx
	b.id = id
	b.params = make(map[string]string, len(params))
	for k, v := range params {
		b.params[k] = v
	}
	b.listeners = event.NewBroadcaster(ctx.Queue(), nil)

	if init, ok := s.(Initializer); ok {
		if err := init.Init(); err != nil {
			b.listeners = nil
			return fmt.Errorf("%w: %s: %w", ErrInitFailed, id, err)
		}
	}
	b.initialized = true
	return nil
}
