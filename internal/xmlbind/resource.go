package xmlbind

import (
	"github.com/beevik/etree"

	"github.com/dshills/sapphire/internal/model"
)

// Resource is a model resource backed by a position in an XML document.
type Resource interface {
	model.Resource

	// Store returns the store owning the document.
	Store() *Store

	// XMLElement returns the backing DOM element. With create set, missing
	// elements are created; otherwise nil is returned for them.
	XMLElement(create bool) (*etree.Element, error)

	// Parent returns the parent resource, or nil for the root.
	Parent() Resource

	// changed is called after content below the resource was removed.
	changed()
}

// resource carries what every XML resource shares. self is the concrete
// resource, used when building bindings.
type resource struct {
	self    Resource
	store   *Store
	element *model.Element
}

// Element returns the model element the resource backs.
func (r *resource) Element() *model.Element { return r.element }

// Store returns the store owning the document.
func (r *resource) Store() *Store { return r.store }

// ValueBinding resolves the binding of a value property from its
// annotations.
func (r *resource) ValueBinding(p *model.ValueProperty) (model.ValueBinding, error) {
	return newValueBinding(r.self, p)
}

// ListBinding resolves the binding of a list property from its
// annotations.
func (r *resource) ListBinding(p *model.ListProperty) (model.ListBinding, error) {
	return newListBinding(r.self, p)
}

// ElementBinding resolves the binding of an element property from its
// annotations.
func (r *resource) ElementBinding(p *model.ElementProperty) (model.ElementBinding, error) {
	return newElementBinding(r.self, p)
}

// track moves the node registration of the model element from *last to
// node.
func (r *resource) track(last **etree.Element, node *etree.Element) {
	if *last == node {
		return
	}
	if *last != nil {
		r.store.UnregisterModelElement(*last, r.element)
	}
	if node != nil {
		r.store.RegisterModelElement(node, r.element)
	}
	*last = node
}

// RootResource backs a root element with the document element.
type RootResource struct {
	resource
	controller  RootElementController
	schemas     *SchemaRegistry
	repair      bool
	declaration bool
	last        *etree.Element
}

// RootOption configures a RootResource.
type RootOption func(*RootResource)

// WithController sets the root element controller. By default it is
// resolved from the annotations of the root type.
func WithController(c RootElementController) RootOption {
	return func(r *RootResource) {
		r.controller = c
	}
}

// WithRepair allows replacing a document element that fails the
// controller's check. Without it such documents are reported as corrupted.
func WithRepair(repair bool) RootOption {
	return func(r *RootResource) {
		r.repair = repair
	}
}

// WithDeclaration controls whether an XML declaration is written when the
// document element is created. It defaults to true.
func WithDeclaration(decl bool) RootOption {
	return func(r *RootResource) {
		r.declaration = decl
	}
}

// WithSchemas sets the registry consulted for schema locations.
func WithSchemas(s *SchemaRegistry) RootOption {
	return func(r *RootResource) {
		r.schemas = s
	}
}

// NewRootResource creates the root resource of store.
func NewRootResource(store *Store, opts ...RootOption) *RootResource {
	r := &RootResource{declaration: true}
	r.self = r
	r.store = store
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Init binds the resource to its element and resolves the controller.
func (r *RootResource) Init(e *model.Element) {
	r.element = e
	if r.controller == nil {
		r.controller = ControllerFor(e.Type(), r.schemas)
	}
}

// Controller returns the root element controller.
func (r *RootResource) Controller() RootElementController { return r.controller }

// Parent returns nil.
func (r *RootResource) Parent() Resource { return nil }

// XMLElement returns the document element. A missing one is created when
// create is set. An existing one that fails the controller's check is
// replaced if repair is allowed and reported as corrupted otherwise.
func (r *RootResource) XMLElement(create bool) (*etree.Element, error) {
	doc := r.store.Document()
	root := doc.Root()
	if root != nil && r.controller.CheckRootElement(root) {
		r.track(&r.last, root)
		return root, nil
	}
	if root != nil && !r.repair {
		return nil, &CorruptedResourceError{Found: root.FullTag(), Expected: r.expected()}
	}
	if !create {
		return nil, nil
	}

	for _, tok := range append([]etree.Token(nil), doc.Child...) {
		doc.RemoveChild(tok)
	}
	if r.declaration {
		doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)
	}
	root = r.controller.CreateRootElement(doc)
	r.track(&r.last, root)
	return root, nil
}

func (r *RootResource) expected() string {
	if c, ok := r.controller.(*StandardController); ok {
		return c.Element
	}
	return "?"
}

func (r *RootResource) changed() {}

// Dispose drops the node registration.
func (r *RootResource) Dispose() {
	r.track(&r.last, nil)
}

// ChildResource backs an element with an existing DOM element.
type ChildResource struct {
	resource
	parent Resource
	node   *etree.Element
}

// NewChildResource wraps node, which lies below parent's element.
func NewChildResource(parent Resource, node *etree.Element) *ChildResource {
	r := &ChildResource{parent: parent, node: node}
	r.self = r
	r.store = parent.Store()
	return r
}

// Init registers the node as backing e.
func (r *ChildResource) Init(e *model.Element) {
	r.element = e
	r.store.RegisterModelElement(r.node, e)
}

// Parent returns the parent resource.
func (r *ChildResource) Parent() Resource { return r.parent }

// Node returns the wrapped DOM element.
func (r *ChildResource) Node() *etree.Element { return r.node }

// XMLElement returns the wrapped node.
func (r *ChildResource) XMLElement(bool) (*etree.Element, error) {
	return r.node, nil
}

func (r *ChildResource) changed() {
	r.parent.changed()
}

// Dispose drops the node registration.
func (r *ChildResource) Dispose() {
	r.store.UnregisterModelElement(r.node, r.element)
}

// VirtualChildResource backs an element with a nested DOM element that is
// created on first write and removed again when it becomes empty.
type VirtualChildResource struct {
	resource
	parent Resource
	path   Path
	last   *etree.Element
}

// NewVirtualChildResource addresses the element at path below parent.
func NewVirtualChildResource(parent Resource, path Path) *VirtualChildResource {
	r := &VirtualChildResource{parent: parent, path: path.Element()}
	r.self = r
	r.store = parent.Store()
	return r
}

// Init binds the resource to its element.
func (r *VirtualChildResource) Init(e *model.Element) {
	r.element = e
}

// Parent returns the parent resource.
func (r *VirtualChildResource) Parent() Resource { return r.parent }

// Path returns the path below the parent's element.
func (r *VirtualChildResource) Path() Path { return r.path }

// XMLElement resolves the path below the parent's element, creating the
// elements on the way when create is set.
func (r *VirtualChildResource) XMLElement(create bool) (*etree.Element, error) {
	base, err := r.parent.XMLElement(create)
	if err != nil || base == nil {
		r.track(&r.last, nil)
		return nil, err
	}
	el := r.path.Find(base)
	if el == nil && create {
		el = r.path.Create(base)
	}
	r.track(&r.last, el)
	return el, nil
}

// changed removes the backing element once it is empty and passes the
// change up.
func (r *VirtualChildResource) changed() {
	base, err := r.parent.XMLElement(false)
	if err == nil && base != nil {
		if el := r.path.Find(base); el != nil && el != base && isEmpty(el) {
			r.path.Remove(base)
			r.track(&r.last, nil)
		}
	}
	r.parent.changed()
}

// Dispose drops the node registration.
func (r *VirtualChildResource) Dispose() {
	r.track(&r.last, nil)
}
