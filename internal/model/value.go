package model

import (
	"github.com/dshills/sapphire/internal/event"
	"github.com/dshills/sapphire/internal/service"
)

// Value is a snapshot of a value property.
type Value struct {
	element   *Element
	prop      *ValueProperty
	text      string
	present   bool
	isDefault bool
	content   any
	malformed bool
}

// Element returns the element the value was read from.
func (v Value) Element() *Element { return v.element }

// Property returns the property the value was read from.
func (v Value) Property() *ValueProperty { return v.prop }

// Text returns the effective text: the persisted text, or the default when
// nothing is persisted.
func (v Value) Text() string { return v.text }

// Present reports whether text is persisted in the resource.
func (v Value) Present() bool { return v.present }

// Default reports whether Text came from a default value provider.
func (v Value) Default() bool { return v.isDefault }

// Content returns the decoded content, or nil when the value is empty or
// malformed.
func (v Value) Content() any { return v.content }

// Malformed reports whether the text failed to decode.
func (v Value) Malformed() bool { return v.malformed }

// Empty reports whether there is neither persisted nor default text.
func (v Value) Empty() bool { return v.text == "" }

// ContentAs returns the decoded content as T.
func ContentAs[T any](v Value) (T, bool) {
	c, ok := v.content.(T)
	return c, ok
}

// ValueField is the instance of a value property on one element.
type ValueField struct {
	e         *Element
	p         *ValueProperty
	binding   ValueBinding
	listeners *event.Broadcaster

	// last persisted state seen, used to suppress no-op events
	last    string
	present bool
	seen    bool

	status      Status
	statusValid bool

	ctx *service.Context
}

// Element returns the owning element.
func (f *ValueField) Element() *Element { return f.e }

// Property returns the property definition.
func (f *ValueField) Property() *ValueProperty { return f.p }

// Context returns the property instance service context. Its parent is the
// property metamodel context; lock and queue are the tree's.
func (f *ValueField) Context() *service.Context {
	return f.ctx
}

func (f *ValueField) bindingLocked() (ValueBinding, error) {
	if f.binding == nil {
		b, err := f.e.resource.ValueBinding(f.p)
		if err != nil {
			return nil, err
		}
		f.binding = b
	}
	return f.binding, nil
}

// readLocked returns the persisted text and records it as seen.
func (f *ValueField) readLocked() (string, bool, error) {
	if f.e.disposed {
		return "", false, ErrDisposed
	}
	b, err := f.bindingLocked()
	if err != nil {
		return "", false, err
	}
	text, ok := b.Read()
	if !f.seen {
		f.last, f.present, f.seen = text, ok, true
	}
	return text, ok, nil
}

// Read returns the current value. Text that fails to decode yields a
// malformed value, not an error.
func (f *ValueField) Read() (Value, error) {
	f.e.lock.Lock()
	text, ok, err := f.readLocked()
	f.e.lock.Unlock()
	if err != nil {
		return Value{}, err
	}

	v := Value{element: f.e, prop: f.p, text: text, present: ok}
	if !ok || text == "" {
		def, hasDef, err := f.defaultText()
		if err != nil {
			return Value{}, err
		}
		if hasDef {
			v.text = def
			v.isDefault = true
		}
	}
	if v.text == "" {
		return v, nil
	}

	content, err := f.decode(v.text)
	if err != nil {
		v.malformed = true
		return v, nil
	}
	v.content = content
	return v, nil
}

func (f *ValueField) defaultText() (string, bool, error) {
	providers, err := service.All[DefaultValueProvider](f.Context())
	if err != nil {
		return "", false, contextErr(err)
	}
	for _, p := range providers {
		if text, ok := p.DefaultValue(f.e); ok {
			return text, true, nil
		}
	}
	return "", false, nil
}

func (f *ValueField) decode(text string) (any, error) {
	s, err := service.First[Serializer](f.Context())
	if err != nil {
		return nil, contextErr(err)
	}
	if s == nil {
		return f.p.valueType.Decode(text)
	}
	return s.Decode(text)
}

// Persisted returns the text stored in the resource without consulting
// default value providers.
func (f *ValueField) Persisted() (string, bool, error) {
	f.e.lock.Lock()
	defer f.e.lock.Unlock()
	return f.readLocked()
}

// Text returns the effective text, or "" on error.
func (f *ValueField) Text() string {
	v, err := f.Read()
	if err != nil {
		return ""
	}
	return v.Text()
}

// Write stores text. Writing "" removes the value. Listeners are notified
// only when the persisted text changes.
func (f *ValueField) Write(text string) error {
	f.e.lock.Lock()
	err := f.writeLocked(text, text != "")
	f.e.lock.Unlock()
	if err != nil {
		return err
	}
	f.e.queue.Drain()
	return f.revalidate()
}

// Clear removes the value.
func (f *ValueField) Clear() error {
	return f.Write("")
}

func (f *ValueField) writeLocked(text string, ok bool) error {
	before, had, err := f.readLocked()
	if err != nil {
		return err
	}
	if had == ok && before == text {
		return nil
	}
	if err := f.binding.Write(text, ok); err != nil {
		return err
	}
	return f.refreshLocked()
}

// refreshLocked re-reads the binding and broadcasts when the persisted
// state differs from the last one seen.
func (f *ValueField) refreshLocked() error {
	if f.e.disposed {
		return ErrDisposed
	}
	b, err := f.bindingLocked()
	if err != nil {
		return err
	}
	after, has := b.Read()
	if !f.seen {
		f.last, f.present, f.seen = after, has, true
		return nil
	}
	before, had := f.last, f.present
	f.last, f.present = after, has
	if had == has && before == after {
		return nil
	}
	if l := f.e.parentListLocked(); l != nil {
		l.rekeyLocked(f.e, f.p)
	}
	f.broadcastLocked(newContentEvent(f.e, f.p, before, after))
	return nil
}

func (f *ValueField) broadcastLocked(ev event.Event) {
	f.listeners.Broadcast(ev)
	f.e.listeners.Broadcast(ev)
}

// Refresh re-reads the resource, notifying listeners if the persisted text
// changed behind the model's back.
func (f *ValueField) Refresh() error {
	f.e.lock.Lock()
	err := f.refreshLocked()
	f.e.lock.Unlock()
	if err != nil {
		return err
	}
	f.e.queue.Drain()
	return f.revalidate()
}

// Validation runs the validators of the property and returns the combined
// status.
func (f *ValueField) Validation() (Status, error) {
	v, err := f.Read()
	if err != nil {
		return Status{}, err
	}
	validators, err := service.All[Validator](f.Context())
	if err != nil {
		return Status{}, contextErr(err)
	}
	statuses := make([]Status, 0, len(validators))
	for _, val := range validators {
		statuses = append(statuses, val.Validate(v))
	}
	return Worst(statuses...), nil
}

// revalidate recomputes the status and broadcasts a validation event when
// it changed since the last computation.
func (f *ValueField) revalidate() error {
	st, err := f.Validation()
	if err != nil {
		return err
	}

	f.e.lock.Lock()
	if f.e.disposed {
		f.e.lock.Unlock()
		return nil
	}
	before, known := f.status, f.statusValid
	f.status, f.statusValid = st, true
	if known && !before.Equal(st) || !known && !st.IsOK() {
		f.broadcastLocked(&PropertyValidationEvent{
			Base:     event.NewBase(TopicPropertyValidation),
			Element:  f.e,
			Property: f.p,
			Before:   before,
			After:    st,
		})
	}
	f.e.lock.Unlock()
	f.e.queue.Drain()
	return nil
}

// Attach registers a listener for events about this property.
func (f *ValueField) Attach(l event.Listener) (*event.Subscription, error) {
	if l == nil {
		return nil, ErrNilListener
	}
	f.e.lock.Lock()
	defer f.e.lock.Unlock()
	if f.e.disposed {
		return nil, ErrDisposed
	}
	return f.listeners.Attach(l)
}

// Detach removes a listener. Unknown listeners are ignored.
func (f *ValueField) Detach(l event.Listener) error {
	if l == nil {
		return ErrNilListener
	}
	return f.listeners.Detach(l)
}

func (f *ValueField) disposeLocked() {
	f.listeners.Clear()
	_ = f.ctx.Dispose()
}
