package contacts

import (
	"strings"
	"testing"

	"github.com/dshills/sapphire/internal/model"
	"github.com/dshills/sapphire/internal/xmlbind"
)

const book = `<?xml version="1.0" encoding="UTF-8"?>
<addressBook xmlns="http://sapphire.dev/ns/contacts" owner="ada">
  <contact email="grace@example.com" kind="work">
    <name>Grace</name>
    <primary/>
    <home city="Arlington"><street>Main St</street></home>
  </contact>
  <contact>
    <name>Alan</name>
  </contact>
</addressBook>
`

func open(t *testing.T, m *Model, data string) (*xmlbind.Store, *model.Element) {
	t.Helper()
	st, err := xmlbind.Parse([]byte(data))
	if err != nil {
		t.Fatal(err)
	}
	return st, m.AddressBook.Instantiate(xmlbind.NewRootResource(st))
}

func TestModel_Read(t *testing.T) {
	m := New()
	_, root := open(t, m, book)

	if got := root.Text(m.Owner); got != "ada" {
		t.Errorf("Owner = %q, want ada", got)
	}
	list, err := root.List(m.Contacts)
	if err != nil {
		t.Fatal(err)
	}
	elems, err := list.Elements()
	if err != nil || len(elems) != 2 {
		t.Fatalf("Elements() = %d, %v, want 2", len(elems), err)
	}

	grace, alan := elems[0], elems[1]
	tests := []struct {
		e    *model.Element
		p    *model.ValueProperty
		want string
	}{
		{grace, m.Name, "Grace"},
		{grace, m.Email, "grace@example.com"},
		{grace, m.Kind, "work"},
		{grace, m.Primary, "yes"},
		{alan, m.Kind, "personal"},
		{alan, m.Primary, "no"},
		{alan, m.Email, ""},
	}
	for _, tt := range tests {
		if got := tt.e.Text(tt.p); got != tt.want {
			t.Errorf("%s.%s = %q, want %q", tt.e.Text(m.Name), tt.p.Name(), got, tt.want)
		}
	}

	h, err := grace.Handle(m.Home)
	if err != nil {
		t.Fatal(err)
	}
	home, err := h.Element(false, nil)
	if err != nil || home == nil {
		t.Fatalf("Home = %v, %v", home, err)
	}
	if got := home.Text(m.City); got != "Arlington" {
		t.Errorf("City = %q, want Arlington", got)
	}
	if got := home.Text(m.Street); got != "Main St" {
		t.Errorf("Street = %q, want Main St", got)
	}
}

func TestModel_Validation(t *testing.T) {
	m := New()
	_, root := open(t, m, book)

	st, err := root.Validation()
	if err != nil {
		t.Fatal(err)
	}
	if !st.IsOK() {
		t.Errorf("Validation() = %v, want ok", st)
	}

	list, _ := root.List(m.Contacts)
	c, err := list.Insert(nil)
	if err != nil {
		t.Fatal(err)
	}
	st, _ = root.Validation()
	if st.Severity != model.SeverityError {
		t.Errorf("Validation() with unnamed contact = %v, want error", st)
	}

	if err := c.Write(m.Name, "Linus"); err != nil {
		t.Fatal(err)
	}
	if err := c.Write(m.Kind, "robot"); err != nil {
		t.Fatal(err)
	}
	st, _ = root.Validation()
	if st.Severity != model.SeverityError {
		t.Errorf("Validation() with kind robot = %v, want error", st)
	}

	if err := c.Write(m.Kind, "family"); err != nil {
		t.Fatal(err)
	}
	st, _ = root.Validation()
	if !st.IsOK() {
		t.Errorf("Validation() = %v, want ok", st)
	}
}

func TestModel_Write(t *testing.T) {
	m := New()
	st, root := open(t, m, "")

	list, _ := root.List(m.Contacts)
	c, err := list.Insert(nil)
	if err != nil {
		t.Fatal(err)
	}
	for p, text := range map[*model.ValueProperty]string{m.Name: "Ada", m.Kind: "work", m.Primary: "yes"} {
		if err := c.Write(p, text); err != nil {
			t.Fatalf("Write(%s) error = %v", p.Name(), err)
		}
	}
	data, err := st.Bytes()
	if err != nil {
		t.Fatal(err)
	}
	out := string(data)
	for _, want := range []string{`<addressBook xmlns="` + Namespace + `">`, `<contact kind="work">`, `<name>Ada</name>`, `<primary/>`} {
		if !strings.Contains(out, want) {
			t.Errorf("document missing %s:\n%s", want, out)
		}
	}
}

func TestModel_Property(t *testing.T) {
	m := New()
	if p, ok := m.Property("Email"); !ok || p != m.Email {
		t.Errorf("Property(Email) = %v, %v", p, ok)
	}
	if _, ok := m.Property("Home"); ok {
		t.Error("Property(Home) should not be a value property")
	}
	if _, ok := m.Property("Nope"); ok {
		t.Error("Property(Nope) should not exist")
	}
}
