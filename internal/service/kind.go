package service

import "fmt"

// Kind identifies the scope of a Context.
type Kind int

const (
	// KindElementInstance scopes services to one element instance.
	KindElementInstance Kind = iota
	// KindElementMetamodel scopes services to an element type.
	KindElementMetamodel
	// KindPropertyInstance scopes services to one property of one element.
	KindPropertyInstance
	// KindPropertyMetamodel scopes services to a property definition.
	KindPropertyMetamodel
	// KindPart scopes services to a presentation part.
	KindPart
)

var kindNames = map[Kind]string{
	KindElementInstance:   "element.instance",
	KindElementMetamodel:  "element.metamodel",
	KindPropertyInstance:  "property.instance",
	KindPropertyMetamodel: "property.metamodel",
	KindPart:              "part",
}

// String returns the kind name.
func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "unknown"
}

// ParseKind parses a kind name as produced by String.
func ParseKind(s string) (Kind, error) {
	for k, name := range kindNames {
		if name == s {
			return k, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownKind, s)
}
