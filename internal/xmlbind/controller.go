package xmlbind

import (
	"github.com/beevik/etree"

	"github.com/dshills/sapphire/internal/model"
)

const xsiNamespace = "http://www.w3.org/2001/XMLSchema-instance"

// RootElementController creates and checks the document element.
type RootElementController interface {
	// CreateRootElement adds a fresh document element to doc, which has
	// no element children, and returns it.
	CreateRootElement(doc *etree.Document) *etree.Element

	// CheckRootElement reports whether root is acceptable.
	CheckRootElement(root *etree.Element) bool
}

// StandardController creates a root element with a fixed name, namespace
// and optional schema location.
type StandardController struct {
	Element        string
	Namespace      string
	Prefix         string
	SchemaLocation string
}

// CreateRootElement implements RootElementController.
func (c *StandardController) CreateRootElement(doc *etree.Document) *etree.Element {
	tag := c.Element
	if c.Prefix != "" {
		tag = c.Prefix + ":" + c.Element
	}
	root := doc.CreateElement(tag)
	if c.Namespace != "" {
		if c.Prefix != "" {
			root.CreateAttr("xmlns:"+c.Prefix, c.Namespace)
		} else {
			root.CreateAttr("xmlns", c.Namespace)
		}
		if c.SchemaLocation != "" {
			root.CreateAttr("xmlns:xsi", xsiNamespace)
			root.CreateAttr("xsi:schemaLocation", c.Namespace+" "+c.SchemaLocation)
		}
	}
	return root
}

// CheckRootElement accepts an element with the expected local name and,
// when a namespace is configured, the expected namespace.
func (c *StandardController) CheckRootElement(root *etree.Element) bool {
	if root.Tag != c.Element {
		return false
	}
	return c.Namespace == "" || root.NamespaceURI() == c.Namespace
}

// ControllerFor resolves the controller of a root type: a Root annotation
// first, then a RootController annotation, then a controller deriving the
// element name from the type name.
func ControllerFor(t *model.ElementType, schemas *SchemaRegistry) RootElementController {
	if r, ok := model.Annotation[Root](t); ok {
		c := &StandardController{
			Element:        r.Element,
			Namespace:      r.Namespace,
			Prefix:         r.Prefix,
			SchemaLocation: r.SchemaLocation,
		}
		if c.Element == "" {
			c.Element = ElementName(t.Name())
		}
		if c.SchemaLocation == "" && c.Namespace != "" {
			c.SchemaLocation, _ = schemas.Location(c.Namespace)
		}
		return c
	}
	if rc, ok := model.Annotation[RootController](t); ok && rc.Controller != nil {
		return rc.Controller
	}
	return &StandardController{Element: ElementName(t.Name())}
}
