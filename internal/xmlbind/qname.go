package xmlbind

import (
	"strings"

	"github.com/beevik/etree"
)

// Element names in paths and mappings are qualified against the document.
// An unprefixed name belongs to the namespace of the document element. A
// prefixed name belongs to the namespace its prefix is bound to where the
// name is used; an unbound prefix is compared literally.

// qname is a step resolved in the scope of one element.
type qname struct {
	space string // namespace URI, or the literal prefix when unbound
	local string
	bound bool
}

func splitStep(step string) (prefix, local string) {
	if i := strings.IndexByte(step, ':'); i >= 0 {
		return step[:i], step[i+1:]
	}
	return "", step
}

// resolveStep qualifies step in the scope of ctx.
func resolveStep(ctx *etree.Element, step string) qname {
	prefix, local := splitStep(step)
	if prefix == "" {
		return qname{space: documentElement(ctx).NamespaceURI(), local: local, bound: true}
	}
	if uri, ok := lookupPrefix(ctx, prefix); ok {
		return qname{space: uri, local: local, bound: true}
	}
	return qname{space: prefix, local: local}
}

// matches reports whether el carries the name q.
func (q qname) matches(el *etree.Element) bool {
	if el.Tag != q.local {
		return false
	}
	if !q.bound {
		return el.Space == q.space
	}
	return el.NamespaceURI() == q.space
}

// newNode returns a detached element named q as it would be written
// inside parent, reusing a prefix in scope or declaring the namespace.
func (q qname) newNode(parent *etree.Element) *etree.Element {
	if !q.bound {
		return etree.NewElement(q.space + ":" + q.local)
	}
	if defaultNamespace(parent) == q.space {
		return etree.NewElement(q.local)
	}
	if prefix, ok := prefixFor(parent, q.space); ok {
		return etree.NewElement(prefix + ":" + q.local)
	}
	el := etree.NewElement(q.local)
	el.CreateAttr("xmlns", q.space)
	return el
}

// childByName returns the first child of parent named step.
func childByName(parent *etree.Element, step string) *etree.Element {
	q := resolveStep(parent, step)
	for _, child := range parent.ChildElements() {
		if q.matches(child) {
			return child
		}
	}
	return nil
}

// documentElement returns the topmost element above el.
func documentElement(el *etree.Element) *etree.Element {
	for p := el.Parent(); p != nil && p.Tag != ""; p = p.Parent() {
		el = p
	}
	return el
}

func defaultNamespace(el *etree.Element) string {
	for cur := el; cur != nil; cur = cur.Parent() {
		for _, a := range cur.Attr {
			if a.Space == "" && a.Key == "xmlns" {
				return a.Value
			}
		}
	}
	return ""
}

func lookupPrefix(el *etree.Element, prefix string) (string, bool) {
	for cur := el; cur != nil; cur = cur.Parent() {
		for _, a := range cur.Attr {
			if a.Space == "xmlns" && a.Key == prefix {
				return a.Value, true
			}
		}
	}
	return "", false
}

// prefixFor finds a prefix bound to uri in the scope of el that no inner
// declaration shadows.
func prefixFor(el *etree.Element, uri string) (string, bool) {
	for cur := el; cur != nil; cur = cur.Parent() {
		for _, a := range cur.Attr {
			if a.Space != "xmlns" || a.Value != uri {
				continue
			}
			if bound, _ := lookupPrefix(el, a.Key); bound == uri {
				return a.Key, true
			}
		}
	}
	return "", false
}
