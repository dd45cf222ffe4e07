// Package model implements typed, resource-backed model elements.
//
// A Schema holds ElementTypes. Each type declares value, list and element
// properties; declarations are plain values built at startup, not generated
// code:
//
//	schema := model.NewSchema(model.WithRegistry(model.DefaultRegistry()))
//	contact := schema.Define("Contact")
//	name := contact.Value("Name", model.Required())
//	book := schema.Define("AddressBook")
//	contacts := book.List("Contacts", model.Of(contact))
//
//	root := book.Instantiate(nil) // memory-backed
//	list, _ := root.List(contacts)
//	c, _ := list.Insert(nil)
//	_ = c.Write(name, "Ada")
//
// Every element owns a Resource that persists its data; the memory resource
// is used when none is supplied and the xmlbind package provides DOM-backed
// resources.
//
// # Concurrency
//
// All elements of a tree share one lock and one event queue. Public methods
// take the lock for the duration of the state change, release it and then
// drain the queue, so listeners run without the lock held and may call back
// into the model.
//
// # Errors
//
// Contract violations wrap ErrIllegalArgument. Operations on disposed
// elements return ErrDisposed, which wraps ErrIllegalState. Values that fail
// to decode are not errors: Value.Malformed reports them and validation
// carries the message.
package model
