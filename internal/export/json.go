// Package export renders model element trees in other formats.
package export

import (
	"fmt"
	"strings"

	"github.com/tidwall/pretty"
	"github.com/tidwall/sjson"

	"github.com/dshills/sapphire/internal/model"
)

// Option configures JSON.
type Option func(*options)

type options struct {
	defaults bool
	typeKey  string
	indent   bool
}

// IncludeDefaults exports values that are not stored but provided by a
// default value service.
func IncludeDefaults() Option {
	return func(o *options) { o.defaults = true }
}

// WithTypeKey adds the element type name of every object under key.
func WithTypeKey(key string) Option {
	return func(o *options) { o.typeKey = key }
}

// Indent pretty-prints the result.
func Indent() Option {
	return func(o *options) { o.indent = true }
}

// JSON renders e as a JSON object. Values are strings keyed by property
// name, lists are arrays and child elements nested objects. Absent values
// and missing child elements are left out.
func JSON(e *model.Element, opts ...Option) ([]byte, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	out, err := o.element(e)
	if err != nil {
		return nil, err
	}
	if o.indent {
		out = pretty.Pretty(out)
	}
	return out, nil
}

func (o *options) element(e *model.Element) ([]byte, error) {
	out := []byte("{}")
	var err error
	if o.typeKey != "" {
		if out, err = sjson.SetBytes(out, escape(o.typeKey), e.Type().Name()); err != nil {
			return nil, err
		}
	}
	for _, p := range e.Type().Properties() {
		switch p := p.(type) {
		case *model.ValueProperty:
			out, err = o.value(out, e, p)
		case *model.ListProperty:
			out, err = o.list(out, e, p)
		case *model.ElementProperty:
			out, err = o.child(out, e, p)
		}
		if err != nil {
			return nil, fmt.Errorf("%s.%s: %w", e.Type().Name(), p.Name(), err)
		}
	}
	return out, nil
}

func (o *options) value(out []byte, e *model.Element, p *model.ValueProperty) ([]byte, error) {
	v, err := e.Read(p)
	if err != nil {
		return nil, err
	}
	if !v.Present() && !(o.defaults && v.Default()) {
		return out, nil
	}
	return sjson.SetBytes(out, escape(p.Name()), v.Text())
}

func (o *options) list(out []byte, e *model.Element, p *model.ListProperty) ([]byte, error) {
	l, err := e.List(p)
	if err != nil {
		return nil, err
	}
	elems, err := l.Elements()
	if err != nil {
		return nil, err
	}
	arr := []byte("[]")
	for _, child := range elems {
		raw, err := o.element(child)
		if err != nil {
			return nil, err
		}
		if arr, err = sjson.SetRawBytes(arr, "-1", raw); err != nil {
			return nil, err
		}
	}
	return sjson.SetRawBytes(out, escape(p.Name()), arr)
}

func (o *options) child(out []byte, e *model.Element, p *model.ElementProperty) ([]byte, error) {
	h, err := e.Handle(p)
	if err != nil {
		return nil, err
	}
	child, err := h.Element(false, nil)
	if err != nil || child == nil {
		return out, err
	}
	raw, err := o.element(child)
	if err != nil {
		return nil, err
	}
	return sjson.SetRawBytes(out, escape(p.Name()), raw)
}

// escape quotes the characters sjson treats as path syntax.
func escape(key string) string {
	if !strings.ContainsAny(key, `.*?|#@\:`) {
		return key
	}
	var b strings.Builder
	for _, r := range key {
		if strings.ContainsRune(`.*?|#@\:`, r) {
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}
