// Package contacts defines the address book schema used by the sapphire
// command and in tests.
package contacts

import (
	"github.com/dshills/sapphire/internal/model"
	"github.com/dshills/sapphire/internal/xmlbind"
)

// Namespace is the XML namespace of address book documents.
const Namespace = "http://sapphire.dev/ns/contacts"

// Kinds are the possible values of Contact.Kind.
var Kinds = []string{"personal", "work", "family"}

// Model holds the address book types and properties.
type Model struct {
	Schema *model.Schema

	AddressBook *model.ElementType
	Owner       *model.ValueProperty
	Contacts    *model.ListProperty

	Contact *model.ElementType
	Name    *model.ValueProperty
	Email   *model.ValueProperty
	Phone   *model.ValueProperty
	Kind    *model.ValueProperty
	Company *model.ValueProperty
	Primary *model.ValueProperty
	Home    *model.ElementProperty

	Address *model.ElementType
	Street  *model.ValueProperty
	City    *model.ValueProperty
	Zip     *model.ValueProperty
}

// New defines the address book schema. Without options the schema uses
// model.DefaultRegistry.
func New(opts ...model.SchemaOption) *Model {
	if len(opts) == 0 {
		opts = []model.SchemaOption{model.WithRegistry(model.DefaultRegistry())}
	}
	s := model.NewSchema(opts...)
	m := &Model{Schema: s}

	m.Address = s.Define("Address")
	m.Street = m.Address.Value("Street")
	m.City = m.Address.Value("City", model.Annotate(xmlbind.Binding{Path: "@city"}))
	m.Zip = m.Address.Value("Zip", model.Label("ZIP code"))

	m.Contact = s.Define("Contact")
	m.Name = m.Contact.Value("Name", model.Required())
	m.Email = m.Contact.Value("Email", model.Annotate(xmlbind.Binding{Path: "@email"}))
	m.Phone = m.Contact.Value("Phone")
	m.Kind = m.Contact.Value("Kind",
		model.OfType(model.Enum("kind", Kinds...)),
		model.Default("personal"),
		model.Annotate(xmlbind.Binding{Path: "@kind"}))
	m.Company = m.Contact.Value("Company")
	m.Primary = m.Contact.Value("Primary", model.Annotate(xmlbind.ValueBinding{
		Path:                "primary",
		MapExistenceToValue: "yes;no",
	}))
	m.Home = m.Contact.Implied("Home", model.Of(m.Address), model.Annotate(xmlbind.ElementBinding{Path: "home"}))

	m.AddressBook = s.Define("AddressBook", model.Annotate(xmlbind.Root{Namespace: Namespace}))
	m.Owner = m.AddressBook.Value("Owner", model.Annotate(xmlbind.Binding{Path: "@owner"}))
	m.Contacts = m.AddressBook.List("Contacts", model.Of(m.Contact))
	return m
}

// Property returns the contact value property with the given name.
func (m *Model) Property(name string) (*model.ValueProperty, bool) {
	p, ok := m.Contact.Property(name)
	if !ok {
		return nil, false
	}
	vp, ok := p.(*model.ValueProperty)
	return vp, ok
}
