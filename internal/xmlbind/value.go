package xmlbind

import (
	"fmt"

	"github.com/dshills/sapphire/internal/model"
)

func newValueBinding(r Resource, p *model.ValueProperty) (model.ValueBinding, error) {
	if b, ok := model.Annotation[Binding](p); ok {
		path, err := ParsePath(b.Path)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", p, err)
		}
		return &textBinding{r: r, path: path, remove: true}, nil
	}
	if vb, ok := model.Annotation[ValueBinding](p); ok {
		path, err := ParsePath(vb.Path)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", p, err)
		}
		if vb.MapExistenceToValue == "" {
			return &textBinding{r: r, path: path, remove: !vb.KeepNodeOnClear}, nil
		}
		m, err := ParseExistenceMapping(vb.MapExistenceToValue)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", p, err)
		}
		if path.IsEmpty() {
			return nil, fmt.Errorf("%s: %w: existence mapping needs a path", p, ErrInvalidPath)
		}
		return &existenceBinding{r: r, path: path, m: m}, nil
	}
	// Unannotated values bind to the property name under the element naming rules.
	path, err := ParsePath(decapitalize(p.Name()))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", p, err)
	}
	return &textBinding{r: r, path: path, remove: true}, nil
}

// textBinding stores a value as element text or attribute value.
type textBinding struct {
	r      Resource
	path   Path
	remove bool
}

func (b *textBinding) Read() (string, bool) {
	el, err := b.r.XMLElement(false)
	if err != nil || el == nil {
		return "", false
	}
	return b.path.Read(el)
}

func (b *textBinding) Write(text string, ok bool) error {
	if ok {
		el, err := b.r.XMLElement(true)
		if err != nil {
			return err
		}
		b.path.Write(el, text)
		return nil
	}

	el, err := b.r.XMLElement(false)
	if err != nil || el == nil {
		return err
	}
	if _, exists := b.path.Read(el); !exists {
		return nil
	}
	if b.remove && !b.path.IsEmpty() {
		b.path.Remove(el)
	} else {
		b.path.Write(el, "")
	}
	b.r.changed()
	return nil
}

// existenceBinding maps the existence of a node to a value.
type existenceBinding struct {
	r    Resource
	path Path
	m    ExistenceMapping
}

func (b *existenceBinding) Read() (string, bool) {
	el, err := b.r.XMLElement(false)
	if err == nil && el != nil {
		if _, exists := b.path.Read(el); exists {
			return b.m.Present, true
		}
	}
	if b.m.HasAbsent {
		return b.m.Absent, true
	}
	return "", false
}

func (b *existenceBinding) Write(text string, ok bool) error {
	switch {
	case ok && text == b.m.Present:
		el, err := b.r.XMLElement(true)
		if err != nil {
			return err
		}
		if _, exists := b.path.Read(el); !exists {
			b.path.Write(el, "")
		}
		return nil
	case !ok || b.m.HasAbsent && text == b.m.Absent:
		el, err := b.r.XMLElement(false)
		if err != nil || el == nil {
			return err
		}
		if b.path.Remove(el) {
			b.r.changed()
		}
		return nil
	default:
		return fmt.Errorf("%w: %q (expected %q)", ErrUnmappedValue, text, b.m.String())
	}
}
