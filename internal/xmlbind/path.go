package xmlbind

import (
	"fmt"
	"strings"

	"github.com/beevik/etree"
)

// Path addresses an element or attribute relative to a base element:
// "a/b", "a/@attr", "@attr" or "prefix:name". Unprefixed element steps
// name elements in the namespace of the document element. The empty path
// addresses the base element itself.
type Path struct {
	steps []string
	attr  string
}

// ParsePath parses a binding path.
func ParsePath(s string) (Path, error) {
	var p Path
	if s == "" || s == "." {
		return p, nil
	}
	parts := strings.Split(s, "/")
	for i, part := range parts {
		switch {
		case part == "":
			return Path{}, fmt.Errorf("%w: empty step in %q", ErrInvalidPath, s)
		case part == ".":
			continue
		case strings.HasPrefix(part, "@"):
			if i != len(parts)-1 || len(part) == 1 {
				return Path{}, fmt.Errorf("%w: attribute must be the last step in %q", ErrInvalidPath, s)
			}
			p.attr = part[1:]
		default:
			if strings.Count(part, ":") > 1 || strings.HasPrefix(part, ":") || strings.HasSuffix(part, ":") {
				return Path{}, fmt.Errorf("%w: bad name %q", ErrInvalidPath, part)
			}
			p.steps = append(p.steps, part)
		}
	}
	return p, nil
}

// MustParsePath is ParsePath for constant paths. It panics on error.
func MustParsePath(s string) Path {
	p, err := ParsePath(s)
	if err != nil {
		panic(err)
	}
	return p
}

// String renders the path.
func (p Path) String() string {
	parts := append([]string(nil), p.steps...)
	if p.attr != "" {
		parts = append(parts, "@"+p.attr)
	}
	return strings.Join(parts, "/")
}

// IsAttribute reports whether the path ends in an attribute.
func (p Path) IsAttribute() bool {
	return p.attr != ""
}

// IsEmpty reports whether the path addresses the base element.
func (p Path) IsEmpty() bool {
	return len(p.steps) == 0 && p.attr == ""
}

// Element returns the path without its attribute step.
func (p Path) Element() Path {
	return Path{steps: p.steps}
}

// Last returns the final element step, or "".
func (p Path) Last() string {
	if len(p.steps) == 0 {
		return ""
	}
	return p.steps[len(p.steps)-1]
}

// Find returns the element addressed by the path's element steps, or nil.
func (p Path) Find(base *etree.Element) *etree.Element {
	cur := base
	for _, step := range p.steps {
		if cur == nil {
			return nil
		}
		cur = childByName(cur, step)
	}
	return cur
}

// Create returns the element addressed by the element steps, creating
// missing elements.
func (p Path) Create(base *etree.Element) *etree.Element {
	cur := base
	for _, step := range p.steps {
		next := childByName(cur, step)
		if next == nil {
			next = resolveStep(cur, step).newNode(cur)
			cur.AddChild(next)
		}
		cur = next
	}
	return cur
}

// Read returns the addressed text and whether the node exists.
func (p Path) Read(base *etree.Element) (string, bool) {
	el := p.Find(base)
	if el == nil {
		return "", false
	}
	if p.attr != "" {
		a := el.SelectAttr(p.attr)
		if a == nil {
			return "", false
		}
		return a.Value, true
	}
	return el.Text(), true
}

// Write stores text at the addressed node, creating it as needed.
func (p Path) Write(base *etree.Element, text string) {
	el := p.Create(base)
	if p.attr != "" {
		el.CreateAttr(p.attr, text)
		return
	}
	el.SetText(text)
}

// Remove deletes the addressed node and then every ancestor between it
// and base that became empty. It reports whether anything was removed.
func (p Path) Remove(base *etree.Element) bool {
	el := p.Find(base)
	if el == nil {
		return false
	}
	if p.attr != "" {
		if el.RemoveAttr(p.attr) == nil {
			return false
		}
	} else {
		if el == base {
			return false
		}
		parent := el.Parent()
		parent.RemoveChild(el)
		el = parent
	}
	pruneUpTo(el, base)
	return true
}

// pruneUpTo removes el and its ancestors while they are empty, stopping
// at stop, which is never removed.
func pruneUpTo(el, stop *etree.Element) {
	for el != nil && el != stop && isEmpty(el) {
		parent := el.Parent()
		if parent == nil {
			return
		}
		parent.RemoveChild(el)
		el = parent
	}
}

// isEmpty reports whether el has no attributes, no child elements and no
// text other than whitespace.
func isEmpty(el *etree.Element) bool {
	if len(el.Attr) > 0 {
		return false
	}
	for _, tok := range el.Child {
		switch t := tok.(type) {
		case *etree.Element:
			return false
		case *etree.CharData:
			if strings.TrimSpace(t.Data) != "" {
				return false
			}
		}
	}
	return true
}
