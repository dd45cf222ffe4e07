package model

import (
	"slices"
	"sync"

	"github.com/dshills/sapphire/internal/service"
)

// PropertyDef is the type-level definition of a property.
type PropertyDef interface {
	// Name returns the property name, unique within its owner.
	Name() string

	// Owner returns the declaring element type.
	Owner() *ElementType

	// Label returns a human-readable label.
	Label() string

	// Annotations returns the annotations attached to the property.
	Annotations() []any

	// Context returns the property metamodel service context.
	Context() *service.Context

	base() *propertyBase
}

type propertyBase struct {
	name        string
	owner       *ElementType
	label       string
	annotations []any
	services    []service.Descriptor

	ctxOnce sync.Once
	ctx     *service.Context
}

func (p *propertyBase) base() *propertyBase { return p }

func (p *propertyBase) Name() string { return p.name }

func (p *propertyBase) Owner() *ElementType { return p.owner }

func (p *propertyBase) Annotations() []any { return p.annotations }

func (p *propertyBase) Label() string {
	if p.label != "" {
		return p.label
	}
	return p.name
}

func (p *propertyBase) String() string {
	return p.owner.name + "." + p.name
}

func (p *propertyBase) context(self PropertyDef) *service.Context {
	p.ctxOnce.Do(func() {
		p.ctx = service.NewContext(service.KindPropertyMetamodel, self, nil,
			service.WithRegistry(p.owner.schema.registry),
			service.WithLocal(p.services...),
			service.WithLogger(p.owner.schema.log),
		)
	})
	return p.ctx
}

// ValueProperty is a scalar, text-encoded property.
type ValueProperty struct {
	propertyBase
	valueType   ValueType
	required    bool
	defaultText string
	hasDefault  bool
	possible    []string
}

// Context returns the property metamodel service context.
func (p *ValueProperty) Context() *service.Context { return p.context(p) }

// Type returns the value type.
func (p *ValueProperty) Type() ValueType { return p.valueType }

// IsRequired reports whether the property was declared required.
func (p *ValueProperty) IsRequired() bool { return p.required }

// StaticDefault returns the declared default text.
func (p *ValueProperty) StaticDefault() (string, bool) { return p.defaultText, p.hasDefault }

// StaticPossibleValues returns the declared possible values.
func (p *ValueProperty) StaticPossibleValues() []string { return slices.Clone(p.possible) }

// ListProperty is an ordered sequence of child elements.
type ListProperty struct {
	propertyBase
	types []*ElementType
}

// Context returns the property metamodel service context.
func (p *ListProperty) Context() *service.Context { return p.context(p) }

// Types returns the possible entry types.
func (p *ListProperty) Types() []*ElementType { return slices.Clone(p.types) }

// Allows reports whether t is a possible entry type.
func (p *ListProperty) Allows(t *ElementType) bool { return slices.Contains(p.types, t) }

// ElementProperty holds zero or one child element, or exactly one when
// implied.
type ElementProperty struct {
	propertyBase
	types   []*ElementType
	implied bool
}

// Context returns the property metamodel service context.
func (p *ElementProperty) Context() *service.Context { return p.context(p) }

// Types returns the possible child types.
func (p *ElementProperty) Types() []*ElementType { return slices.Clone(p.types) }

// Allows reports whether t is a possible child type.
func (p *ElementProperty) Allows(t *ElementType) bool { return slices.Contains(p.types, t) }

// IsImplied reports whether the child always exists.
func (p *ElementProperty) IsImplied() bool { return p.implied }

// Annotated is implemented by types and properties.
type Annotated interface {
	Annotations() []any
}

// Annotation returns the first annotation of type T.
func Annotation[T any](a Annotated) (T, bool) {
	for _, an := range a.Annotations() {
		if v, ok := an.(T); ok {
			return v, true
		}
	}
	var zero T
	return zero, false
}
