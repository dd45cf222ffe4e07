package xmlbind

import (
	"fmt"
	"strings"
)

// ExistenceMapping maps the existence of a node to a value: the node's
// presence reads as Present and its absence as Absent.
type ExistenceMapping struct {
	Present   string
	Absent    string
	HasAbsent bool
}

// ParseExistenceMapping parses "present[;absent]". A backslash escapes the
// next character, so "\;" is a literal semicolon and "\\" a backslash.
func ParseExistenceMapping(s string) (ExistenceMapping, error) {
	var (
		parts   []string
		cur     strings.Builder
		escaped bool
	)
	for _, r := range s {
		switch {
		case escaped:
			cur.WriteRune(r)
			escaped = false
		case r == '\\':
			escaped = true
		case r == ';':
			parts = append(parts, cur.String())
			cur.Reset()
		default:
			cur.WriteRune(r)
		}
	}
	if escaped {
		return ExistenceMapping{}, fmt.Errorf("%w: trailing backslash in %q", ErrInvalidExistenceMapping, s)
	}
	parts = append(parts, cur.String())

	switch len(parts) {
	case 1:
		if parts[0] == "" {
			return ExistenceMapping{}, fmt.Errorf("%w: empty present value", ErrInvalidExistenceMapping)
		}
		return ExistenceMapping{Present: parts[0]}, nil
	case 2:
		if parts[0] == "" {
			return ExistenceMapping{}, fmt.Errorf("%w: empty present value in %q", ErrInvalidExistenceMapping, s)
		}
		if parts[0] == parts[1] {
			return ExistenceMapping{}, fmt.Errorf("%w: present and absent are both %q", ErrInvalidExistenceMapping, parts[0])
		}
		return ExistenceMapping{Present: parts[0], Absent: parts[1], HasAbsent: true}, nil
	default:
		return ExistenceMapping{}, fmt.Errorf("%w: more than two values in %q", ErrInvalidExistenceMapping, s)
	}
}

// String renders the mapping in directive syntax.
func (m ExistenceMapping) String() string {
	esc := strings.NewReplacer(`\`, `\\`, `;`, `\;`)
	if !m.HasAbsent {
		return esc.Replace(m.Present)
	}
	return esc.Replace(m.Present) + ";" + esc.Replace(m.Absent)
}
