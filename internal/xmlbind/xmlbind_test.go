package xmlbind

import (
	"errors"
	"slices"
	"strings"
	"testing"

	"github.com/beevik/etree"

	"github.com/dshills/sapphire/internal/model"
)

const bookNS = "http://example.com/book"

type bookModel struct {
	book     *model.ElementType
	contact  *model.ElementType
	address  *model.ElementType
	name     *model.ValueProperty
	email    *model.ValueProperty
	primary  *model.ValueProperty
	nick     *model.ValueProperty
	street   *model.ValueProperty
	home     *model.ElementProperty
	contacts *model.ListProperty
}

func newBookModel(rootAnnotations ...any) *bookModel {
	s := model.NewSchema(model.WithRegistry(model.DefaultRegistry()))
	m := &bookModel{}
	m.address = s.Define("Address")
	m.street = m.address.Value("Street")
	m.contact = s.Define("IContact")
	m.name = m.contact.Value("Name")
	m.email = m.contact.Value("Email", model.Annotate(Binding{Path: "@email"}))
	m.primary = m.contact.Value("Primary", model.Annotate(ValueBinding{Path: "primary", MapExistenceToValue: "yes;no"}))
	m.nick = m.contact.Value("Nick", model.Annotate(ValueBinding{Path: "nick", KeepNodeOnClear: true}))
	m.home = m.contact.Implied("Home", model.Of(m.address), model.Annotate(ElementBinding{Path: "home-address"}))
	m.book = s.Define("IAddressBook", model.Annotate(rootAnnotations...))
	m.contacts = m.book.List("Contacts", model.Of(m.contact))
	return m
}

func (m *bookModel) open(t *testing.T, data string, opts ...RootOption) (*Store, *RootResource, *model.Element, *model.List) {
	t.Helper()
	st, err := Parse([]byte(data))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	root := NewRootResource(st, opts...)
	e := m.book.Instantiate(root)
	list, err := e.List(m.contacts)
	if err != nil {
		t.Fatal(err)
	}
	return st, root, e, list
}

func TestRoundTrip(t *testing.T) {
	m := newBookModel(Root{Namespace: bookNS})
	st, _, _, list := m.open(t, "")

	c, err := list.Insert(nil)
	if err != nil {
		t.Fatal(err)
	}
	for p, text := range map[*model.ValueProperty]string{m.name: "Ada", m.email: "ada@example.com", m.primary: "yes"} {
		if err := c.Write(p, text); err != nil {
			t.Fatalf("Write(%s) error = %v", p.Name(), err)
		}
	}

	data, err := st.Bytes()
	if err != nil {
		t.Fatal(err)
	}
	out := string(data)
	for _, want := range []string{
		`<?xml version="1.0" encoding="UTF-8"?>`,
		`<addressBook xmlns="` + bookNS + `">`,
		`<contact email="ada@example.com">`,
		`<name>Ada</name>`,
		`<primary/>`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("document missing %s:\n%s", want, out)
		}
	}

	_, _, _, reopened := m.open(t, out)
	elems, err := reopened.Elements()
	if err != nil || len(elems) != 1 {
		t.Fatalf("Elements() = %d, %v, want 1 entry", len(elems), err)
	}
	for p, want := range map[*model.ValueProperty]string{m.name: "Ada", m.email: "ada@example.com", m.primary: "yes"} {
		if got := elems[0].Text(p); got != want {
			t.Errorf("%s = %q, want %q", p.Name(), got, want)
		}
	}
}

func TestExistenceMappedValue(t *testing.T) {
	m := newBookModel()
	_, _, _, list := m.open(t, "")
	c, _ := list.Insert(nil)
	node := c.Resource().(*ChildResource).Node()

	v, _ := c.Read(m.primary)
	if v.Text() != "no" {
		t.Errorf("initial Primary = %q, want no", v.Text())
	}

	if err := c.Write(m.primary, "yes"); err != nil {
		t.Fatal(err)
	}
	if node.SelectElement("primary") == nil {
		t.Error("writing yes did not create <primary>")
	}
	if got := c.Text(m.primary); got != "yes" {
		t.Errorf("Primary = %q, want yes", got)
	}

	if err := c.Write(m.primary, "no"); err != nil {
		t.Fatal(err)
	}
	if node.SelectElement("primary") != nil {
		t.Error("writing no did not remove <primary>")
	}
	if got := c.Text(m.primary); got != "no" {
		t.Errorf("Primary = %q, want no", got)
	}

	if err := c.Write(m.primary, "maybe"); !errors.Is(err, ErrUnmappedValue) || !errors.Is(err, model.ErrIllegalArgument) {
		t.Errorf("Write(maybe) error = %v, want ErrUnmappedValue", err)
	}
}

func TestKeepNodeOnClear(t *testing.T) {
	m := newBookModel()
	_, _, _, list := m.open(t, "")
	c, _ := list.Insert(nil)
	node := c.Resource().(*ChildResource).Node()

	_ = c.Write(m.nick, "ada")
	_ = c.Write(m.nick, "")
	nick := node.SelectElement("nick")
	if nick == nil {
		t.Fatal("clearing removed <nick>")
	}
	if nick.Text() != "" {
		t.Errorf("<nick> text = %q, want empty", nick.Text())
	}

	_ = c.Write(m.name, "Ada")
	_ = c.Write(m.name, "")
	if node.SelectElement("name") != nil {
		t.Error("clearing Name kept <name>")
	}
}

func TestRootRepair(t *testing.T) {
	m := newBookModel(Root{Namespace: bookNS})
	st, root, _, list := m.open(t, `<?xml version="1.0"?><!-- old --><wrong/>`, WithRepair(true))

	first, err := root.XMLElement(true)
	if err != nil {
		t.Fatal(err)
	}
	second, err := root.XMLElement(true)
	if err != nil {
		t.Fatal(err)
	}
	if first != second {
		t.Error("second access repaired the document again")
	}
	if first.Tag != "addressBook" || st.Document().Root() != first {
		t.Errorf("root = <%s>, want <addressBook>", first.Tag)
	}
	if n := len(st.Document().ChildElements()); n != 1 {
		t.Errorf("document has %d elements, want 1", n)
	}
	if _, err := list.Insert(nil); err != nil {
		t.Errorf("Insert() after repair error = %v", err)
	}
}

func TestRootCorrupted(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"wrong name", `<wrong/>`},
		{"wrong namespace", `<addressBook xmlns="http://example.com/other"/>`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newBookModel(Root{Namespace: bookNS})
			_, root, e, list := m.open(t, tt.doc)

			_, err := root.XMLElement(false)
			var cerr *CorruptedResourceError
			if !errors.As(err, &cerr) || !errors.Is(err, ErrCorruptedResource) {
				t.Fatalf("XMLElement() error = %v, want CorruptedResourceError", err)
			}
			if cerr.Expected != "addressBook" {
				t.Errorf("Expected = %q, want addressBook", cerr.Expected)
			}
			if _, err := list.Elements(); !errors.Is(err, ErrCorruptedResource) {
				t.Errorf("Elements() error = %v, want ErrCorruptedResource", err)
			}
			if err := e.Refresh(); !errors.Is(err, ErrCorruptedResource) {
				t.Errorf("Refresh() error = %v, want ErrCorruptedResource", err)
			}
		})
	}
}

func TestRootElementCreation(t *testing.T) {
	schemas := NewSchemaRegistry()
	for _, v := range []struct{ version, loc string }{
		{"1.0.0", "book-1.0.xsd"},
		{"1.10.0", "book-1.10.xsd"},
		{"1.2.0", "book-1.2.xsd"},
	} {
		if err := schemas.Register(bookNS, v.version, v.loc); err != nil {
			t.Fatal(err)
		}
	}

	tests := []struct {
		name     string
		ann      []any
		wantTag  string
		wantAttr map[string]string
	}{
		{"derived name", nil, "addressBook", nil},
		{"prefixed", []any{Root{Namespace: bookNS, Prefix: "b"}}, "b:addressBook", map[string]string{
			"xmlns:b":            bookNS,
			"xsi:schemaLocation": bookNS + " book-1.10.xsd",
		}},
		{"explicit", []any{Root{Namespace: bookNS, Element: "book", SchemaLocation: "local.xsd"}}, "book", map[string]string{
			"xmlns":              bookNS,
			"xsi:schemaLocation": bookNS + " local.xsd",
		}},
		{"controller", []any{RootController{Controller: &StandardController{Element: "custom"}}}, "custom", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newBookModel(tt.ann...)
			_, root, _, _ := m.open(t, "", WithSchemas(schemas), WithDeclaration(false))
			el, err := root.XMLElement(true)
			if err != nil {
				t.Fatal(err)
			}
			if el.FullTag() != tt.wantTag {
				t.Errorf("root = %s, want %s", el.FullTag(), tt.wantTag)
			}
			for k, want := range tt.wantAttr {
				if got := el.SelectAttrValue(k, ""); got != want {
					t.Errorf("attribute %s = %q, want %q", k, got, want)
				}
			}
			if !root.Controller().CheckRootElement(el) {
				t.Error("created root fails its own check")
			}
		})
	}
}

func TestListBinding_Order(t *testing.T) {
	m := newBookModel()
	st, _, _, list := m.open(t, "")

	var elems []*model.Element
	for _, n := range []string{"a", "b", "c"} {
		c, err := list.Insert(nil)
		if err != nil {
			t.Fatal(err)
		}
		_ = c.Write(m.name, n)
		elems = append(elems, c)
	}
	_ = list.MoveUp(elems[2])
	z, _ := list.InsertAt(nil, 0)
	_ = z.Write(m.name, "z")
	_ = list.Remove(elems[0])

	var got []string
	for _, node := range st.Document().Root().ChildElements() {
		got = append(got, node.SelectElement("name").Text())
	}
	if want := []string{"z", "c", "b"}; !slices.Equal(got, want) {
		t.Errorf("document order = %v, want %v", got, want)
	}
}

func TestListBinding_Unmapped(t *testing.T) {
	m := newBookModel()
	st, root, _, list := m.open(t, `<addressBook><contact><name>a</name></contact><stranger/></addressBook>`)

	elems, err := list.Elements()
	if err != nil {
		t.Fatal(err)
	}
	if len(elems) != 1 {
		t.Errorf("Elements() = %d, want 1 mapped entry", len(elems))
	}

	b, err := root.ListBinding(m.contacts)
	if err != nil {
		t.Fatal(err)
	}
	stranger := st.Document().Root().SelectElement("stranger")
	_, err = b.Type(NewChildResource(root, stranger))
	if !errors.Is(err, ErrUnmappedElement) || !errors.Is(err, model.ErrIllegalState) {
		t.Errorf("Type(stranger) error = %v, want ErrUnmappedElement", err)
	}
}

func TestValueBinding_DefaultPath(t *testing.T) {
	s := model.NewSchema(model.WithRegistry(model.DefaultRegistry()))
	link := s.Define("Link")
	tests := []struct {
		prop *model.ValueProperty
		tag  string
	}{
		{link.Value("Title"), "title"},
		{link.Value("URL"), "URL"},
		{link.Value("x"), "x"},
	}

	st, err := Parse(nil)
	if err != nil {
		t.Fatal(err)
	}
	e := link.Instantiate(NewRootResource(st))
	for _, tt := range tests {
		if err := e.Write(tt.prop, "v"); err != nil {
			t.Fatalf("Write(%s) error = %v", tt.prop.Name(), err)
		}
		if st.Document().Root().SelectElement(tt.tag) == nil {
			t.Errorf("%s not stored in <%s>", tt.prop.Name(), tt.tag)
		}
	}
}

func TestNamespaces(t *testing.T) {
	t.Run("prefixed root qualifies created children", func(t *testing.T) {
		m := newBookModel(Root{Namespace: bookNS, Prefix: "b"})
		st, _, _, list := m.open(t, "", WithDeclaration(false))
		c, err := list.Insert(nil)
		if err != nil {
			t.Fatal(err)
		}
		_ = c.Write(m.name, "Ada")
		_ = c.Write(m.primary, "yes")
		h, _ := c.Handle(m.home)
		home, err := h.Element(false, nil)
		if err != nil {
			t.Fatal(err)
		}
		_ = home.Write(m.street, "Main")

		data, _ := st.Bytes()
		out := string(data)
		for _, want := range []string{`<b:contact>`, `<b:name>Ada</b:name>`, `<b:primary/>`, `<b:home-address>`, `<b:street>Main</b:street>`} {
			if !strings.Contains(out, want) {
				t.Errorf("document missing %s:\n%s", want, out)
			}
		}

		_, _, _, reopened := m.open(t, out)
		elems, _ := reopened.Elements()
		if len(elems) != 1 || elems[0].Text(m.name) != "Ada" {
			t.Errorf("reopened entries = %d, want Ada", len(elems))
		}
	})

	t.Run("foreign namespaces are skipped", func(t *testing.T) {
		m := newBookModel(Root{Namespace: bookNS})
		doc := `<x:addressBook xmlns:x="` + bookNS + `">` +
			`<x:contact><x:name>Ada</x:name><name>stray</name></x:contact>` +
			`<other:contact xmlns:other="urn:other"><other:name>Eve</other:name></other:contact>` +
			`<contact><name>Bob</name></contact>` +
			`</x:addressBook>`
		_, _, _, list := m.open(t, doc)
		elems, err := list.Elements()
		if err != nil {
			t.Fatal(err)
		}
		if len(elems) != 1 {
			t.Fatalf("Elements() = %d, want 1", len(elems))
		}
		if got := elems[0].Text(m.name); got != "Ada" {
			t.Errorf("Name = %q, want Ada", got)
		}
	})

	t.Run("default namespace", func(t *testing.T) {
		m := newBookModel(Root{Namespace: bookNS})
		doc := `<addressBook xmlns="` + bookNS + `"><contact><name>Ada</name></contact>` +
			`<contact xmlns="urn:other"><name>Eve</name></contact></addressBook>`
		st, _, _, list := m.open(t, doc)
		elems, _ := list.Elements()
		if len(elems) != 1 {
			t.Fatalf("Elements() = %d, want 1", len(elems))
		}
		c, _ := list.Insert(nil)
		_ = c.Write(m.name, "Grace")
		data, _ := st.Bytes()
		if !strings.Contains(string(data), `<contact><name>Grace</name></contact>`) {
			t.Errorf("inserted contact not in default namespace:\n%s", data)
		}
	})
}

func TestVirtualChild_Prune(t *testing.T) {
	m := newBookModel()
	_, _, _, list := m.open(t, "")
	c, _ := list.Insert(nil)
	node := c.Resource().(*ChildResource).Node()

	h, _ := c.Handle(m.home)
	home, err := h.Element(false, nil)
	if err != nil || home == nil {
		t.Fatalf("implied Element() = %v, %v", home, err)
	}
	if node.SelectElement("home-address") != nil {
		t.Fatal("reading the implied child created <home-address>")
	}

	_ = home.Write(m.street, "Main")
	if el := node.SelectElement("home-address"); el == nil || el.SelectElement("street").Text() != "Main" {
		t.Fatal("writing Street did not create <home-address><street>")
	}

	_ = home.Write(m.street, "")
	if node.SelectElement("home-address") != nil {
		t.Error("empty <home-address> was not pruned")
	}
}

func TestStore_Registry(t *testing.T) {
	m := newBookModel()
	st, root, book, list := m.open(t, "")
	c, _ := list.Insert(nil)
	h, _ := c.Handle(m.home)
	home, _ := h.Element(false, nil)
	_ = home.Write(m.street, "Main")

	rootNode, _ := root.XMLElement(false)
	contactNode := c.Resource().(*ChildResource).Node()
	streetNode := contactNode.SelectElement("home-address").SelectElement("street")

	tests := []struct {
		name string
		node *etree.Element
		want *model.Element
	}{
		{"root", rootNode, book},
		{"contact", contactNode, c},
		{"nested text", streetNode, home},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := st.ModelElements(tt.node)
			if len(got) != 1 || got[0] != tt.want {
				t.Errorf("ModelElements() = %v, want [%v]", got, tt.want)
			}
		})
	}

	id := st.Handle(contactNode)
	if st.Node(id) != contactNode {
		t.Error("Node(Handle(n)) != n")
	}
	if got := st.ModelElementsAt(id); len(got) != 1 || got[0] != c {
		t.Errorf("ModelElementsAt() = %v, want contact", got)
	}

	if err := list.Remove(c); err != nil {
		t.Fatal(err)
	}
	if got := st.ModelElements(contactNode); len(got) != 0 {
		t.Errorf("ModelElements(removed) = %v, want none", got)
	}
	if dropped := st.Sweep(); dropped == 0 {
		t.Error("Sweep() dropped nothing after removal")
	}
	if st.Node(id) != nil {
		t.Error("swept handle still resolves")
	}
}

func TestStore_ReplaceAndSweep(t *testing.T) {
	m := newBookModel()
	st, _, book, list := m.open(t, `<addressBook><contact><name>a</name></contact></addressBook>`)
	elems, _ := list.Elements()
	if len(elems) != 1 {
		t.Fatalf("Elements() = %d, want 1", len(elems))
	}

	if err := st.ReplaceBytes([]byte(`<addressBook><contact><name>x</name></contact><contact><name>y</name></contact></addressBook>`)); err != nil {
		t.Fatal(err)
	}
	if err := book.Refresh(); err != nil {
		t.Fatal(err)
	}
	if !elems[0].Disposed() {
		t.Error("entry of the replaced document not disposed")
	}
	st.Sweep()

	elems, _ = list.Elements()
	var got []string
	for _, e := range elems {
		got = append(got, e.Text(m.name))
	}
	if want := []string{"x", "y"}; !slices.Equal(got, want) {
		t.Errorf("names after reload = %v, want %v", got, want)
	}
	if n := st.Len(); n != 3 {
		t.Errorf("live handles = %d, want 3", n)
	}
}
