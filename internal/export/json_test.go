package export

import (
	"bytes"
	"testing"

	"github.com/tidwall/gjson"

	"github.com/dshills/sapphire/internal/model"
	"github.com/dshills/sapphire/internal/sample/contacts"
	"github.com/dshills/sapphire/internal/xmlbind"
)

const book = `<addressBook xmlns="http://sapphire.dev/ns/contacts" owner="ada">
  <contact email="grace@example.com" kind="work">
    <name>Grace</name>
    <home city="Arlington"><street>Main St</street></home>
  </contact>
  <contact>
    <name>Alan</name>
  </contact>
</addressBook>`

func root(t *testing.T, m *contacts.Model) *model.Element {
	t.Helper()
	st, err := xmlbind.Parse([]byte(book))
	if err != nil {
		t.Fatal(err)
	}
	return m.AddressBook.Instantiate(xmlbind.NewRootResource(st))
}

func TestJSON(t *testing.T) {
	m := contacts.New()
	data, err := JSON(root(t, m))
	if err != nil {
		t.Fatalf("JSON() error = %v", err)
	}
	if !gjson.ValidBytes(data) {
		t.Fatalf("JSON() is not valid JSON: %s", data)
	}

	tests := []struct {
		path string
		want string
	}{
		{"Owner", "ada"},
		{"Contacts.#", "2"},
		{"Contacts.0.Name", "Grace"},
		{"Contacts.0.Email", "grace@example.com"},
		{"Contacts.0.Kind", "work"},
		{"Contacts.0.Primary", "no"},
		{"Contacts.0.Home.City", "Arlington"},
		{"Contacts.0.Home.Street", "Main St"},
		{"Contacts.1.Name", "Alan"},
	}
	for _, tt := range tests {
		if got := gjson.GetBytes(data, tt.path).String(); got != tt.want {
			t.Errorf("%s = %q, want %q", tt.path, got, tt.want)
		}
	}

	for _, path := range []string{"Contacts.1.Kind", "Contacts.1.Email", "Contacts.1.Home", "Contacts.0.Phone"} {
		if gjson.GetBytes(data, path).Exists() {
			t.Errorf("%s exported, want absent", path)
		}
	}
}

func TestJSON_Options(t *testing.T) {
	m := contacts.New()
	data, err := JSON(root(t, m), IncludeDefaults(), WithTypeKey("@type"), Indent())
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		path string
		want string
	}{
		{`\@type`, "AddressBook"},
		{`Contacts.0.\@type`, "Contact"},
		{`Contacts.0.Home.\@type`, "Address"},
		{"Contacts.1.Kind", "personal"},
	}
	for _, tt := range tests {
		if got := gjson.GetBytes(data, tt.path).String(); got != tt.want {
			t.Errorf("%s = %q, want %q", tt.path, got, tt.want)
		}
	}
	if !bytes.Contains(data, []byte("\n  ")) {
		t.Errorf("Indent() output is not indented:\n%s", data)
	}
}

func TestJSON_EmptyList(t *testing.T) {
	m := contacts.New()
	st, _ := xmlbind.Parse(nil)
	data, err := JSON(m.AddressBook.Instantiate(xmlbind.NewRootResource(st)))
	if err != nil {
		t.Fatal(err)
	}
	if got := gjson.GetBytes(data, "Contacts").Raw; got != "[]" {
		t.Errorf("Contacts = %s, want []", got)
	}
}

func TestEscape(t *testing.T) {
	tests := []struct{ in, want string }{
		{"Name", "Name"},
		{"a.b", `a\.b`},
		{"@type", `\@type`},
		{`x\y`, `x\\y`},
	}
	for _, tt := range tests {
		if got := escape(tt.in); got != tt.want {
			t.Errorf("escape(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
