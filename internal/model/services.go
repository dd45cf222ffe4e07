package model

import (
	"slices"
	"strings"

	"github.com/dshills/sapphire/internal/service"
)

// Validator checks a value. Validators are resolved from the property
// instance context, so they apply per property.
type Validator interface {
	Validate(v Value) Status
}

// ElementValidator checks a whole element.
type ElementValidator interface {
	ValidateElement(e *Element) Status
}

// DefaultValueProvider supplies the text used when nothing is persisted.
type DefaultValueProvider interface {
	DefaultValue(e *Element) (string, bool)
}

// PossibleValuesProvider supplies the values a property may take.
type PossibleValuesProvider interface {
	PossibleValues(e *Element) []string
}

// Serializer converts between persisted text and content. It takes
// precedence over the property's value type.
type Serializer interface {
	Decode(text string) (any, error)
	Encode(v any) (string, error)
}

// IDs of the built-in services.
const (
	ServiceSerializer              = "core.value.serializer"
	ServiceRequiredValidator       = "core.validation.required"
	ServiceMalformedValidator      = "core.validation.malformed"
	ServicePossibleValuesValidator = "core.validation.possible-values"
	ServiceStaticDefault           = "core.default-value.static"
	ServiceStaticPossibleValues    = "core.possible-values.static"
)

// PossibleValuesOf returns the values offered by the first possible
// values provider of the field, or nil.
func PossibleValuesOf(f *ValueField) ([]string, error) {
	p, err := service.First[PossibleValuesProvider](f.Context())
	if err != nil || p == nil {
		return nil, contextErr(err)
	}
	return p.PossibleValues(f.e), nil
}

// valueProperty returns the value property the context is scoped to.
func valueProperty(c *service.Context) (*ValueProperty, bool) {
	return service.SubjectOf[*ValueProperty](c)
}

func metamodelOnly() []service.Kind {
	return []service.Kind{service.KindPropertyMetamodel}
}

// DefaultRegistry returns a registry holding the built-in services.
func DefaultRegistry() *service.Registry {
	r := service.NewRegistry()
	RegisterBuiltins(r)
	return r
}

// RegisterBuiltins adds the built-in services to r.
func RegisterBuiltins(r *service.Registry) {
	r.MustRegister(service.Descriptor{
		ID:       ServiceSerializer,
		Contexts: metamodelOnly(),
		Condition: func(c *service.Context) bool {
			_, ok := valueProperty(c)
			return ok
		},
		Factory: func() service.Service { return &typeSerializer{} },
	})
	r.MustRegister(service.Descriptor{
		ID:       ServiceRequiredValidator,
		Contexts: metamodelOnly(),
		Condition: func(c *service.Context) bool {
			p, ok := valueProperty(c)
			return ok && p.required
		},
		Factory: func() service.Service { return &requiredValidator{} },
	})
	r.MustRegister(service.Descriptor{
		ID:       ServiceMalformedValidator,
		Contexts: metamodelOnly(),
		Condition: func(c *service.Context) bool {
			_, ok := valueProperty(c)
			return ok
		},
		Factory: func() service.Service { return &malformedValidator{} },
	})
	r.MustRegister(service.Descriptor{
		ID:       ServicePossibleValuesValidator,
		Contexts: metamodelOnly(),
		Condition: func(c *service.Context) bool {
			p, ok := valueProperty(c)
			return ok && len(staticPossible(p)) > 0
		},
		Factory: func() service.Service { return &possibleValuesValidator{} },
	})
	r.MustRegister(service.Descriptor{
		ID:       ServiceStaticDefault,
		Contexts: metamodelOnly(),
		Condition: func(c *service.Context) bool {
			p, ok := valueProperty(c)
			return ok && p.hasDefault
		},
		Factory: func() service.Service { return &staticDefault{} },
	})
	r.MustRegister(service.Descriptor{
		ID:       ServiceStaticPossibleValues,
		Contexts: metamodelOnly(),
		Condition: func(c *service.Context) bool {
			p, ok := valueProperty(c)
			return ok && len(staticPossible(p)) > 0
		},
		Factory: func() service.Service { return &staticPossibleValues{} },
	})
}

// staticPossible returns the declared possible values, or the values of
// an enumeration type.
func staticPossible(p *ValueProperty) []string {
	if len(p.possible) > 0 {
		return p.possible
	}
	if e, ok := p.valueType.(*EnumType); ok {
		return e.values
	}
	return nil
}

type typeSerializer struct {
	service.Base
	prop *ValueProperty
}

func (s *typeSerializer) Init() error {
	s.prop, _ = valueProperty(s.Context())
	return nil
}

func (s *typeSerializer) Decode(text string) (any, error) { return s.prop.valueType.Decode(text) }

func (s *typeSerializer) Encode(v any) (string, error) { return s.prop.valueType.Encode(v) }

type requiredValidator struct {
	service.Base
}

func (*requiredValidator) Validate(v Value) Status {
	if v.Empty() {
		return Errorf("%s must be specified", v.prop.Label())
	}
	return OK
}

type malformedValidator struct {
	service.Base
}

func (*malformedValidator) Validate(v Value) Status {
	if v.Malformed() {
		return Errorf("%q is not a valid %s for %s", v.text, v.prop.valueType.Name(), v.prop.Label())
	}
	return OK
}

type possibleValuesValidator struct {
	service.Base
}

func (*possibleValuesValidator) Validate(v Value) Status {
	if v.Empty() {
		return OK
	}
	allowed := staticPossible(v.prop)
	if slices.ContainsFunc(allowed, func(a string) bool { return strings.EqualFold(a, v.text) }) {
		return OK
	}
	return Errorf("%q is not a possible value of %s", v.text, v.prop.Label())
}

type staticDefault struct {
	service.Base
	text string
}

func (s *staticDefault) Init() error {
	p, _ := valueProperty(s.Context())
	s.text = p.defaultText
	return nil
}

func (s *staticDefault) DefaultValue(*Element) (string, bool) { return s.text, true }

type staticPossibleValues struct {
	service.Base
}

func (s *staticPossibleValues) PossibleValues(*Element) []string {
	p, _ := valueProperty(s.Context())
	return slices.Clone(staticPossible(p))
}
