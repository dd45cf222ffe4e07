package xmlbind

import "github.com/dshills/sapphire/internal/model"

// Root declares the document element of a root type.
type Root struct {
	// Namespace is the namespace URI of the document element.
	Namespace string

	// SchemaLocation is written to xsi:schemaLocation. When empty the
	// schema registry is consulted.
	SchemaLocation string

	// Prefix is the namespace prefix. Empty selects the default namespace.
	Prefix string

	// Element is the local name. Empty derives it from the type name.
	Element string
}

// RootController supplies a custom root element controller for a type.
type RootController struct {
	Controller RootElementController
}

// Binding maps a value property to a path. Clearing the value removes the
// node.
type Binding struct {
	Path string
}

// ValueBinding maps a value property to a path with extra options.
type ValueBinding struct {
	Path string

	// MapExistenceToValue is a directive "present[;absent]": the node's
	// existence reads as the present text and its absence as the absent
	// text. Use \; and \\ to escape.
	MapExistenceToValue string

	// KeepNodeOnClear empties the node instead of removing it.
	KeepNodeOnClear bool
}

// Mapping pairs an XML element name with the model type it holds.
type Mapping struct {
	Element string
	Type    *model.ElementType
}

// ListBinding maps a list property. Path names the container element
// (empty for the resource element itself); Mappings select the entries.
// Without mappings entry names derive from the possible types.
type ListBinding struct {
	Path     string
	Mappings []Mapping
}

// ElementBinding maps an element property. For ordinary properties it is
// read like a list binding holding at most one entry. For implied
// properties Path addresses the child element directly.
type ElementBinding struct {
	Path     string
	Mappings []Mapping
}
