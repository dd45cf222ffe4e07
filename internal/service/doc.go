// Package service implements pluggable, context-scoped behaviors.
//
// A Context is a node in a hierarchy of service scopes (element or property,
// instance or metamodel). Services come from three places: descriptors given
// to the context itself, descriptors in the static Registry whose kind and
// condition apply to the context, and services inherited from the parent
// context. Resolution for a requested type merges all three and orders the
// result so that a service comes before every service it overrides:
//
//	reg := service.NewRegistry()
//	reg.MustRegister(service.Descriptor{
//	    ID:        "contacts.strict-email",
//	    Overrides: []string{"core.email"},
//	    Contexts:  []service.Kind{service.KindPropertyMetamodel},
//	    Factory:   func() service.Service { return &StrictEmail{} },
//	})
//	ctx := service.NewContext(service.KindPropertyMetamodel, prop, nil, service.WithRegistry(reg))
//	validators, err := service.All[Validator](ctx)
//
// Services are created and initialized lazily, once per context. A service
// whose Init fails, whose ID collides with one already resolved, or whose
// overrides form a cycle is left out of the result and logged; resolution of
// the other services continues.
//
// Results are cached per requested type until the context is disposed.
package service
