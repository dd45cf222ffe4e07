package xmlbind

import (
	"fmt"
	"strings"

	"github.com/beevik/etree"

	"github.com/dshills/sapphire/internal/model"
)

// mappingTable pairs element names with model types in both directions.
type mappingTable struct {
	byName map[string]mapped
	byType map[*model.ElementType]string
}

type mapped struct {
	name string
	typ  *model.ElementType
}

func newMappingTable(explicit []Mapping, types []*model.ElementType) (mappingTable, error) {
	m := mappingTable{
		byName: make(map[string]mapped),
		byType: make(map[*model.ElementType]string),
	}
	if len(explicit) == 0 {
		for _, t := range types {
			explicit = append(explicit, Mapping{Element: typeElementName(t), Type: t})
		}
	}
	for _, mp := range explicit {
		if mp.Element == "" || mp.Type == nil {
			return mappingTable{}, fmt.Errorf("%w: incomplete mapping %+v", model.ErrIllegalArgument, mp)
		}
		local := localName(mp.Element)
		if _, dup := m.byName[local]; dup {
			return mappingTable{}, fmt.Errorf("%w: element %q mapped twice", model.ErrIllegalArgument, local)
		}
		m.byName[local] = mapped{name: mp.Element, typ: mp.Type}
		if _, seen := m.byType[mp.Type]; !seen {
			m.byType[mp.Type] = mp.Element
		}
	}
	return m, nil
}

func localName(qualified string) string {
	if i := strings.IndexByte(qualified, ':'); i >= 0 {
		return qualified[i+1:]
	}
	return qualified
}

// lookup resolves the mapping by local name and then checks the
// namespace in the scope of the node's parent.
func (m mappingTable) lookup(node *etree.Element) (*model.ElementType, bool) {
	mp, ok := m.byName[node.Tag]
	if !ok {
		return nil, false
	}
	ctx := node.Parent()
	if ctx == nil {
		ctx = node
	}
	if !resolveStep(ctx, mp.name).matches(node) {
		return nil, false
	}
	return mp.typ, true
}

func (m mappingTable) matches(node *etree.Element) bool {
	_, ok := m.lookup(node)
	return ok
}

func (m mappingTable) typeOf(node *etree.Element) (*model.ElementType, error) {
	t, ok := m.lookup(node)
	if !ok {
		return nil, fmt.Errorf("%w: <%s>", ErrUnmappedElement, node.FullTag())
	}
	return t, nil
}

func (m mappingTable) nameOf(t *model.ElementType) (string, error) {
	name, ok := m.byType[t]
	if !ok {
		return "", fmt.Errorf("%w: no element name for %s", model.ErrTypeNotAllowed, t)
	}
	return name, nil
}

// entries returns the mapped child elements of container.
func (m mappingTable) entries(container *etree.Element) []*etree.Element {
	if container == nil {
		return nil
	}
	var out []*etree.Element
	for _, child := range container.ChildElements() {
		if m.matches(child) {
			out = append(out, child)
		}
	}
	return out
}

// children resolves a container path below a resource and caches child
// resources per node handle.
type children struct {
	r         Resource
	container Path
	table     mappingTable
	cache     map[NodeID]*ChildResource
}

func (c *children) containerEl(create bool) (*etree.Element, error) {
	el, err := c.r.XMLElement(create)
	if err != nil || el == nil {
		return nil, err
	}
	if create {
		return c.container.Create(el), nil
	}
	return c.container.Find(el), nil
}

// resources maps nodes to their child resources, forgetting nodes that
// are no longer listed.
func (c *children) resources(nodes []*etree.Element) []model.Resource {
	next := make(map[NodeID]*ChildResource, len(nodes))
	out := make([]model.Resource, 0, len(nodes))
	store := c.r.Store()
	for _, node := range nodes {
		id := store.Handle(node)
		res, ok := c.cache[id]
		if !ok {
			res = NewChildResource(c.r, node)
		}
		next[id] = res
		out = append(out, res)
	}
	c.cache = next
	return out
}

func (c *children) resource(node *etree.Element) *ChildResource {
	id := c.r.Store().Handle(node)
	res, ok := c.cache[id]
	if !ok {
		res = NewChildResource(c.r, node)
		if c.cache == nil {
			c.cache = make(map[NodeID]*ChildResource)
		}
		c.cache[id] = res
	}
	return res
}

func (c *children) node(r model.Resource) (*etree.Element, error) {
	cr, ok := r.(*ChildResource)
	if !ok || cr.parent != c.r {
		return nil, fmt.Errorf("%w: foreign resource %T", model.ErrNotMember, r)
	}
	return cr.node, nil
}

func (c *children) Type(r model.Resource) (*model.ElementType, error) {
	node, err := c.node(r)
	if err != nil {
		return nil, err
	}
	return c.table.typeOf(node)
}

// detach removes node and prunes the container if it became empty.
func (c *children) detach(node *etree.Element) {
	container := node.Parent()
	if container == nil {
		return
	}
	container.RemoveChild(node)
	delete(c.cache, c.r.Store().Handle(node))
	if base, err := c.r.XMLElement(false); err == nil && base != nil && !c.container.IsEmpty() {
		pruneUpTo(container, base)
	}
	c.r.changed()
}

// insertIndex returns the token index in container at which a node must
// be inserted to become entry pos.
func insertIndex(container *etree.Element, entries []*etree.Element, pos int) int {
	switch {
	case pos < len(entries):
		return entries[pos].Index()
	case len(entries) > 0:
		return entries[len(entries)-1].Index() + 1
	default:
		return len(container.Child)
	}
}

type listBinding struct {
	children
}

func newListBinding(r Resource, p *model.ListProperty) (model.ListBinding, error) {
	var ann ListBinding
	if a, ok := model.Annotation[ListBinding](p); ok {
		ann = a
	}
	path, err := ParsePath(ann.Path)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", p, err)
	}
	table, err := newMappingTable(ann.Mappings, p.Types())
	if err != nil {
		return nil, fmt.Errorf("%s: %w", p, err)
	}
	return &listBinding{children{r: r, container: path.Element(), table: table}}, nil
}

func (b *listBinding) Entries() ([]model.Resource, error) {
	container, err := b.containerEl(false)
	if err != nil {
		return nil, err
	}
	return b.resources(b.table.entries(container)), nil
}

func (b *listBinding) Insert(t *model.ElementType, pos int) (model.Resource, error) {
	name, err := b.table.nameOf(t)
	if err != nil {
		return nil, err
	}
	container, err := b.containerEl(true)
	if err != nil {
		return nil, err
	}
	entries := b.table.entries(container)
	if pos < 0 || pos > len(entries) {
		return nil, model.ErrIndexOutOfRange
	}
	node := resolveStep(container, name).newNode(container)
	container.InsertChildAt(insertIndex(container, entries, pos), node)
	return b.resource(node), nil
}

func (b *listBinding) Remove(r model.Resource) error {
	node, err := b.node(r)
	if err != nil {
		return err
	}
	b.detach(node)
	return nil
}

func (b *listBinding) Move(r model.Resource, pos int) error {
	node, err := b.node(r)
	if err != nil {
		return err
	}
	container := node.Parent()
	if container == nil {
		return model.ErrNotMember
	}
	container.RemoveChild(node)
	entries := b.table.entries(container)
	if pos < 0 || pos > len(entries) {
		pos = len(entries)
	}
	container.InsertChildAt(insertIndex(container, entries, pos), node)
	return nil
}

type elementBinding struct {
	children
}

func newElementBinding(r Resource, p *model.ElementProperty) (model.ElementBinding, error) {
	var ann ElementBinding
	a, annotated := model.Annotation[ElementBinding](p)
	if annotated {
		ann = a
	}
	if p.IsImplied() {
		return newImpliedBinding(r, p, ann, annotated)
	}
	path, err := ParsePath(ann.Path)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", p, err)
	}
	table, err := newMappingTable(ann.Mappings, p.Types())
	if err != nil {
		return nil, fmt.Errorf("%s: %w", p, err)
	}
	return &elementBinding{children{r: r, container: path.Element(), table: table}}, nil
}

func (b *elementBinding) Read() (model.Resource, error) {
	container, err := b.containerEl(false)
	if err != nil {
		return nil, err
	}
	entries := b.table.entries(container)
	if len(entries) == 0 {
		b.resources(nil)
		return nil, nil
	}
	return b.resources(entries[:1])[0], nil
}

func (b *elementBinding) Create(t *model.ElementType) (model.Resource, error) {
	name, err := b.table.nameOf(t)
	if err != nil {
		return nil, err
	}
	container, err := b.containerEl(true)
	if err != nil {
		return nil, err
	}
	for _, old := range b.table.entries(container) {
		container.RemoveChild(old)
	}
	node := resolveStep(container, name).newNode(container)
	container.AddChild(node)
	return b.resources([]*etree.Element{node})[0], nil
}

func (b *elementBinding) Remove() error {
	container, err := b.containerEl(false)
	if err != nil || container == nil {
		return err
	}
	entries := b.table.entries(container)
	for _, node := range entries {
		b.detach(node)
	}
	return nil
}

// impliedBinding always yields the same virtual child resource.
type impliedBinding struct {
	r     Resource
	t     *model.ElementType
	path  Path
	child *VirtualChildResource
}

func newImpliedBinding(r Resource, p *model.ElementProperty, ann ElementBinding, annotated bool) (model.ElementBinding, error) {
	types := p.Types()
	if len(types) != 1 {
		return nil, fmt.Errorf("%w: implied %s needs exactly one type", model.ErrIllegalArgument, p)
	}
	spec := decapitalize(p.Name())
	if annotated && ann.Path != "" {
		spec = ann.Path
	}
	path, err := ParsePath(spec)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", p, err)
	}
	if path.IsEmpty() || path.IsAttribute() {
		return nil, fmt.Errorf("%s: %w: implied element needs an element path", p, ErrInvalidPath)
	}
	return &impliedBinding{r: r, t: types[0], path: path, child: NewVirtualChildResource(r, path)}, nil
}

func (b *impliedBinding) Read() (model.Resource, error) {
	return b.child, nil
}

func (b *impliedBinding) Create(*model.ElementType) (model.Resource, error) {
	return b.child, nil
}

func (b *impliedBinding) Remove() error {
	base, err := b.r.XMLElement(false)
	if err != nil || base == nil {
		return err
	}
	if b.path.Remove(base) {
		b.r.changed()
	}
	return nil
}

func (b *impliedBinding) Type(model.Resource) (*model.ElementType, error) {
	return b.t, nil
}
