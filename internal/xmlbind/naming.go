package xmlbind

import (
	"unicode"
	"unicode/utf8"

	"github.com/dshills/sapphire/internal/model"
)

// ElementName derives an XML element name from a type name: a leading
// "I" followed by an uppercase letter is dropped and the first letter is
// lowercased, so "IContact" becomes "contact".
func ElementName(typeName string) string {
	if len(typeName) > 1 && typeName[0] == 'I' {
		r, _ := utf8.DecodeRuneInString(typeName[1:])
		if unicode.IsUpper(r) {
			typeName = typeName[1:]
		}
	}
	return decapitalize(typeName)
}

// decapitalize lowercases the first letter unless the first two letters
// are both uppercase ("URL" stays "URL").
func decapitalize(s string) string {
	first, n := utf8.DecodeRuneInString(s)
	if n == 0 {
		return s
	}
	if second, _ := utf8.DecodeRuneInString(s[n:]); unicode.IsUpper(first) && unicode.IsUpper(second) {
		return s
	}
	return string(unicode.ToLower(first)) + s[n:]
}

// typeElementName returns the element name used for children of type t.
func typeElementName(t *model.ElementType) string {
	if r, ok := model.Annotation[Root](t); ok && r.Element != "" {
		return r.Element
	}
	return ElementName(t.Name())
}
