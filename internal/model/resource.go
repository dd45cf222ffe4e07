package model

// Resource persists the data of one element.
type Resource interface {
	// Init is called once, when the element owning the resource is created.
	Init(e *Element)

	// Element returns the owning element, or nil before Init.
	Element() *Element

	// ValueBinding returns the binding for a value property.
	ValueBinding(p *ValueProperty) (ValueBinding, error)

	// ListBinding returns the binding for a list property.
	ListBinding(p *ListProperty) (ListBinding, error)

	// ElementBinding returns the binding for an element property.
	ElementBinding(p *ElementProperty) (ElementBinding, error)

	// Dispose is called when the owning element is disposed.
	Dispose()
}

// ValueBinding reads and writes the text of one value property.
type ValueBinding interface {
	// Read returns the persisted text and whether any is present.
	Read() (text string, ok bool)

	// Write stores text, or removes the value when ok is false.
	Write(text string, ok bool) error
}

// ListBinding maps a list property onto ordered child resources.
// Entries must return the same Resource value for the same persisted entry
// across calls.
type ListBinding interface {
	// Entries returns the child resources in persisted order.
	Entries() ([]Resource, error)

	// Insert creates a new entry of type t at position pos.
	Insert(t *ElementType, pos int) (Resource, error)

	// Remove deletes the entry backed by r.
	Remove(r Resource) error

	// Move relocates the entry backed by r to position pos.
	Move(r Resource, pos int) error

	// Type returns the element type of an entry.
	Type(r Resource) (*ElementType, error)
}

// ElementBinding maps an element property onto zero or one child resource.
type ElementBinding interface {
	// Read returns the child resource, or nil when there is none.
	Read() (Resource, error)

	// Create creates the child with type t, replacing any existing one.
	Create(t *ElementType) (Resource, error)

	// Remove deletes the child.
	Remove() error

	// Type returns the element type of the child resource.
	Type(r Resource) (*ElementType, error)
}
