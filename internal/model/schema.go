package model

import (
	"sort"
	"sync"

	"github.com/dshills/sapphire/internal/logging"
	"github.com/dshills/sapphire/internal/service"
)

// Schema is the registry of element types.
type Schema struct {
	mu       sync.RWMutex
	types    map[string]*ElementType
	order    []*ElementType
	registry *service.Registry
	log      *logging.Logger
}

// SchemaOption configures a Schema.
type SchemaOption func(*Schema)

// WithRegistry sets the service registry consulted by every metamodel and
// instance context of the schema.
func WithRegistry(r *service.Registry) SchemaOption {
	return func(s *Schema) {
		s.registry = r
	}
}

// WithLogger sets the logger used by the schema's contexts and queues.
func WithLogger(l *logging.Logger) SchemaOption {
	return func(s *Schema) {
		s.log = l
	}
}

// NewSchema creates an empty schema.
func NewSchema(opts ...SchemaOption) *Schema {
	s := &Schema{types: make(map[string]*ElementType)}
	for _, opt := range opts {
		opt(s)
	}
	s.log = logging.OrNop(s.log).WithComponent("model")
	return s
}

// Define declares a new element type, or returns the existing type with
// that name.
func (s *Schema) Define(name string, opts ...Option) *ElementType {
	s.mu.Lock()
	defer s.mu.Unlock()

	if t, ok := s.types[name]; ok {
		return t
	}
	o := collect(opts)
	t := &ElementType{
		schema:      s,
		name:        name,
		byName:      make(map[string]PropertyDef),
		annotations: o.annotations,
		services:    o.services,
	}
	s.types[name] = t
	s.order = append(s.order, t)
	return t
}

// Type returns the type with the given name.
func (s *Schema) Type(name string) (*ElementType, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.types[name]
	return t, ok
}

// Types returns all types in definition order.
func (s *Schema) Types() []*ElementType {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*ElementType, len(s.order))
	copy(out, s.order)
	return out
}

// Registry returns the service registry of the schema.
func (s *Schema) Registry() *service.Registry {
	return s.registry
}

// ElementType describes the properties of a kind of element.
type ElementType struct {
	schema      *Schema
	name        string
	props       []PropertyDef
	byName      map[string]PropertyDef
	annotations []any
	services    []service.Descriptor

	ctxOnce sync.Once
	ctx     *service.Context
}

// Name returns the type name.
func (t *ElementType) Name() string {
	return t.name
}

// String returns the type name.
func (t *ElementType) String() string {
	return t.name
}

// Schema returns the owning schema.
func (t *ElementType) Schema() *Schema {
	return t.schema
}

// Annotations returns the annotations attached to the type.
func (t *ElementType) Annotations() []any {
	return t.annotations
}

// Annotate attaches annotations to the type.
func (t *ElementType) Annotate(a ...any) *ElementType {
	t.annotations = append(t.annotations, a...)
	return t
}

// Value declares a value property.
func (t *ElementType) Value(name string, opts ...Option) *ValueProperty {
	o := collect(opts)
	p := &ValueProperty{
		propertyBase: t.newBase(name, o),
		valueType:    o.valueType,
		required:     o.required,
		defaultText:  o.defaultText,
		hasDefault:   o.hasDefault,
		possible:     o.possible,
	}
	if p.valueType == nil {
		p.valueType = String
	}
	t.add(p)
	return p
}

// List declares a list property whose entries are of the types given with Of.
func (t *ElementType) List(name string, opts ...Option) *ListProperty {
	o := collect(opts)
	p := &ListProperty{
		propertyBase: t.newBase(name, o),
		types:        o.types,
	}
	t.add(p)
	return p
}

// Element declares a property holding zero or one child element.
func (t *ElementType) Element(name string, opts ...Option) *ElementProperty {
	o := collect(opts)
	p := &ElementProperty{
		propertyBase: t.newBase(name, o),
		types:        o.types,
	}
	t.add(p)
	return p
}

// Implied declares an element property whose child always exists. The
// child's storage is created on first write.
func (t *ElementType) Implied(name string, opts ...Option) *ElementProperty {
	p := t.Element(name, opts...)
	p.implied = true
	return p
}

func (t *ElementType) newBase(name string, o options) propertyBase {
	return propertyBase{
		name:        name,
		owner:       t,
		label:       o.label,
		annotations: o.annotations,
		services:    o.services,
	}
}

func (t *ElementType) add(p PropertyDef) {
	if _, exists := t.byName[p.Name()]; exists {
		panic("model: duplicate property " + t.name + "." + p.Name())
	}
	t.props = append(t.props, p)
	t.byName[p.Name()] = p
}

// Property returns the property with the given name.
func (t *ElementType) Property(name string) (PropertyDef, bool) {
	p, ok := t.byName[name]
	return p, ok
}

// Properties returns the properties in declaration order.
func (t *ElementType) Properties() []PropertyDef {
	out := make([]PropertyDef, len(t.props))
	copy(out, t.props)
	return out
}

// PropertyNames returns the property names sorted alphabetically.
func (t *ElementType) PropertyNames() []string {
	names := make([]string, 0, len(t.props))
	for _, p := range t.props {
		names = append(names, p.Name())
	}
	sort.Strings(names)
	return names
}

// Context returns the element metamodel service context of the type.
func (t *ElementType) Context() *service.Context {
	t.ctxOnce.Do(func() {
		t.ctx = service.NewContext(service.KindElementMetamodel, t, nil,
			service.WithRegistry(t.schema.registry),
			service.WithLocal(t.services...),
			service.WithLogger(t.schema.log),
		)
	})
	return t.ctx
}

// Instantiate creates a root element backed by r. A nil resource selects
// a fresh memory resource.
func (t *ElementType) Instantiate(r Resource) *Element {
	if r == nil {
		r = NewMemoryResource()
	}
	e := newRootElement(t, r)
	r.Init(e)
	return e
}

// options collects settings for types and properties.
type options struct {
	valueType   ValueType
	required    bool
	defaultText string
	hasDefault  bool
	possible    []string
	types       []*ElementType
	annotations []any
	services    []service.Descriptor
	label       string
}

// Option configures a type or property declaration.
type Option func(*options)

func collect(opts []Option) options {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// OfType sets the value type of a value property.
func OfType(vt ValueType) Option {
	return func(o *options) {
		o.valueType = vt
	}
}

// Required marks a value property as required.
func Required() Option {
	return func(o *options) {
		o.required = true
	}
}

// Default sets the static default text of a value property.
func Default(text string) Option {
	return func(o *options) {
		o.defaultText = text
		o.hasDefault = true
	}
}

// PossibleValues restricts a value property to a static set of values.
func PossibleValues(values ...string) Option {
	return func(o *options) {
		o.possible = append(o.possible, values...)
	}
}

// Of sets the possible element types of a list or element property.
func Of(types ...*ElementType) Option {
	return func(o *options) {
		o.types = append(o.types, types...)
	}
}

// Annotate attaches annotations, such as persistence bindings.
func Annotate(a ...any) Option {
	return func(o *options) {
		o.annotations = append(o.annotations, a...)
	}
}

// WithService adds services local to the type or property.
func WithService(d ...service.Descriptor) Option {
	return func(o *options) {
		o.services = append(o.services, d...)
	}
}

// Label sets a human-readable label.
func Label(text string) Option {
	return func(o *options) {
		o.label = text
	}
}
