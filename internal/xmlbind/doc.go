// Package xmlbind binds model elements to an XML document.
//
// A Store owns the DOM (an etree document) together with a table of stable
// node handles and the reverse registry from DOM nodes to the model
// elements they back. Resources wrap positions in that document:
//
//   - RootResource owns the document element, creating or repairing it
//     through a RootElementController.
//   - ChildResource wraps an existing element, typically a list entry.
//   - VirtualChildResource addresses a nested element by path and creates
//     it only when written, pruning it again once it is empty.
//
// Properties map onto the document through annotations attached to the
// model declarations:
//
//	contact.Value("Email", model.Annotate(xmlbind.Binding{Path: "email"}))
//	contact.Value("Primary", model.Annotate(xmlbind.ValueBinding{
//		Path:                "primary",
//		MapExistenceToValue: "yes;no",
//	}))
//	book.List("Contacts", model.Of(contact), model.Annotate(xmlbind.ListBinding{
//		Mappings: []xmlbind.Mapping{{Element: "contact", Type: contact}},
//	}))
//
// Without annotations a value property is stored in a child element named
// after the property with a lowercase first letter, and list or element
// properties store their children under names derived from the possible
// types.
package xmlbind
