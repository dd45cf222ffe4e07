package xmlbind

import (
	"errors"
	"testing"

	"github.com/beevik/etree"
)

func TestParsePath(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		attr    bool
		wantErr bool
	}{
		{"", "", false, false},
		{".", "", false, false},
		{"name", "name", false, false},
		{"a/b", "a/b", false, false},
		{"./a", "a", false, false},
		{"a/@id", "a/@id", true, false},
		{"@id", "@id", true, false},
		{"p:name", "p:name", false, false},
		{"a//b", "", false, true},
		{"@id/a", "", false, true},
		{"a/@", "", false, true},
		{"a:b:c", "", false, true},
		{":a", "", false, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			p, err := ParsePath(tt.in)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidPath) {
					t.Errorf("ParsePath(%q) error = %v, want ErrInvalidPath", tt.in, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParsePath(%q) error = %v", tt.in, err)
			}
			if p.String() != tt.want {
				t.Errorf("String() = %q, want %q", p.String(), tt.want)
			}
			if p.IsAttribute() != tt.attr {
				t.Errorf("IsAttribute() = %v, want %v", p.IsAttribute(), tt.attr)
			}
		})
	}
}

func TestPath_ReadWriteRemove(t *testing.T) {
	base := etree.NewElement("contact")
	keep := base.CreateElement("keep")

	attr := MustParsePath("address/@city")
	if _, ok := attr.Read(base); ok {
		t.Error("Read() on missing attribute reported a value")
	}
	attr.Write(base, "Paris")
	if got, ok := attr.Read(base); !ok || got != "Paris" {
		t.Errorf("Read() = %q, %v, want Paris", got, ok)
	}

	text := MustParsePath("address/street/name")
	text.Write(base, "Main")
	if got := base.SelectElement("address").SelectElement("street").SelectElement("name").Text(); got != "Main" {
		t.Errorf("nested text = %q, want Main", got)
	}

	if !text.Remove(base) {
		t.Error("Remove() = false for existing node")
	}
	if base.SelectElement("address").SelectElement("street") != nil {
		t.Error("empty <street> was not pruned")
	}
	if !attr.Remove(base) {
		t.Error("Remove() = false for existing attribute")
	}
	if base.SelectElement("address") != nil {
		t.Error("empty <address> was not pruned")
	}
	if base.SelectElement("keep") != keep {
		t.Error("unrelated sibling removed")
	}
	if attr.Remove(base) {
		t.Error("Remove() = true for missing node")
	}
}

func TestPath_Namespaces(t *testing.T) {
	doc := etree.NewDocument()
	if err := doc.ReadFromString(`<b:book xmlns:b="urn:book" xmlns:o="urn:other">` +
		`<o:title>foreign</o:title><b:title>own</b:title></b:book>`); err != nil {
		t.Fatal(err)
	}
	base := doc.Root()

	tests := []struct {
		path string
		want string
	}{
		{"title", "own"},
		{"b:title", "own"},
		{"o:title", "foreign"},
	}
	for _, tt := range tests {
		if got, _ := MustParsePath(tt.path).Read(base); got != tt.want {
			t.Errorf("Read(%q) = %q, want %q", tt.path, got, tt.want)
		}
	}

	MustParsePath("author/name").Write(base, "Ada")
	author := base.SelectElement("b:author")
	if author == nil || author.SelectElement("b:name") == nil {
		doc.Indent(2)
		s, _ := doc.WriteToString()
		t.Errorf("created steps not qualified with b:\n%s", s)
	}

	MustParsePath("o:note").Write(base, "x")
	if base.SelectElement("o:note") == nil {
		t.Error("o:note not created with its bound prefix")
	}

	MustParsePath("u:free").Write(base, "y")
	if base.SelectElement("u:free") == nil {
		t.Error("unbound prefix not kept literally")
	}
}

func TestParseExistenceMapping(t *testing.T) {
	tests := []struct {
		in      string
		want    ExistenceMapping
		wantErr bool
	}{
		{"yes;no", ExistenceMapping{Present: "yes", Absent: "no", HasAbsent: true}, false},
		{"true", ExistenceMapping{Present: "true"}, false},
		{`a\;b;c`, ExistenceMapping{Present: "a;b", Absent: "c", HasAbsent: true}, false},
		{`a\;b`, ExistenceMapping{Present: "a;b"}, false},
		{`a\\;b`, ExistenceMapping{Present: `a\`, Absent: "b", HasAbsent: true}, false},
		{"on;", ExistenceMapping{Present: "on", Absent: "", HasAbsent: true}, false},
		{"", ExistenceMapping{}, true},
		{";no", ExistenceMapping{}, true},
		{"x;x", ExistenceMapping{}, true},
		{"a;b;c", ExistenceMapping{}, true},
		{`a\`, ExistenceMapping{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseExistenceMapping(tt.in)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidExistenceMapping) {
					t.Errorf("ParseExistenceMapping(%q) error = %v, want ErrInvalidExistenceMapping", tt.in, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseExistenceMapping(%q) error = %v", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("ParseExistenceMapping(%q) = %+v, want %+v", tt.in, got, tt.want)
			}
			again, err := ParseExistenceMapping(got.String())
			if err != nil || again != got {
				t.Errorf("reparse of %q = %+v, %v", got.String(), again, err)
			}
		})
	}
}

func TestElementName(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"IContact", "contact"},
		{"IAddressBook", "addressBook"},
		{"Contact", "contact"},
		{"Item", "item"},
		{"URLList", "URLList"},
		{"I", "i"},
		{"x", "x"},
	}
	for _, tt := range tests {
		if got := ElementName(tt.in); got != tt.want {
			t.Errorf("ElementName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestSchemaRegistry(t *testing.T) {
	r := NewSchemaRegistry()
	for _, v := range []string{"1.0.0", "2.1.0", "1.9.3", "2.0.0"} {
		if err := r.Register(bookNS, v, "book-"+v+".xsd"); err != nil {
			t.Fatal(err)
		}
	}
	if err := r.Register(bookNS, "not-a-version", "x.xsd"); err == nil {
		t.Error("Register() accepted an invalid version")
	}

	if got, _ := r.Version(bookNS); got != "2.1.0" {
		t.Errorf("Version() = %q, want 2.1.0", got)
	}
	if got, _ := r.Location(bookNS); got != "book-2.1.0.xsd" {
		t.Errorf("Location() = %q, want book-2.1.0.xsd", got)
	}
	got, err := r.Constraint(bookNS, "^1.0")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0] != "book-1.9.3.xsd" || got[1] != "book-1.0.0.xsd" {
		t.Errorf("Constraint(^1.0) = %v, want [book-1.9.3.xsd book-1.0.0.xsd]", got)
	}
	if _, ok := r.Location("urn:unknown"); ok {
		t.Error("Location() found an unregistered namespace")
	}
}
