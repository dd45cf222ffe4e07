package config

import (
	"errors"
	"fmt"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"

	"github.com/dshills/sapphire/internal/model"
	"github.com/dshills/sapphire/internal/service"
	"github.com/dshills/sapphire/internal/service/lua"
	"github.com/dshills/sapphire/internal/xmlbind"
)

// BuildOption configures Build.
type BuildOption func(*builder)

type builder struct {
	fs      billy.Filesystem
	schemas *xmlbind.SchemaRegistry
	state   []lua.StateOption
}

// WithFilesystem sets the filesystem scripts are read from. It defaults
// to the one the file was loaded from.
func WithFilesystem(fs billy.Filesystem) BuildOption {
	return func(b *builder) {
		b.fs = fs
	}
}

// WithSchemas receives the schema entries.
func WithSchemas(r *xmlbind.SchemaRegistry) BuildOption {
	return func(b *builder) {
		b.schemas = r
	}
}

// WithStateOptions configures the Lua states of scripted services.
func WithStateOptions(opts ...lua.StateOption) BuildOption {
	return func(b *builder) {
		b.state = append(b.state, opts...)
	}
}

// Build compiles the scripts of f and registers a descriptor per service
// in reg. Schema entries go to the registry set with WithSchemas. Every
// invalid entry is reported; valid ones are registered regardless.
func Build(reg *service.Registry, f *File, opts ...BuildOption) error {
	b := &builder{fs: f.fs}
	for _, opt := range opts {
		opt(b)
	}

	var errs []error
	if b.schemas != nil {
		for _, s := range f.Schemas {
			if err := b.schemas.Register(s.Namespace, s.Version, s.Location); err != nil {
				errs = append(errs, err)
			}
		}
	}
	for _, s := range f.Services {
		d, err := b.descriptor(s)
		if err == nil {
			err = reg.Register(d)
		}
		if err != nil {
			errs = append(errs, fmt.Errorf("service %q: %w", s.ID, err))
		}
	}
	return errors.Join(errs...)
}

func (b *builder) descriptor(s Service) (service.Descriptor, error) {
	if s.ID == "" {
		return service.Descriptor{}, fmt.Errorf("%w: missing id", ErrInvalidService)
	}
	role, err := lua.ParseRole(s.Kind)
	if err != nil {
		return service.Descriptor{}, fmt.Errorf("%w: %w", ErrInvalidService, err)
	}

	name, source := s.Script, s.Source
	switch {
	case s.Script != "":
		if b.fs == nil {
			return service.Descriptor{}, fmt.Errorf("%w: no filesystem for script %s", ErrInvalidService, s.Script)
		}
		data, err := util.ReadFile(b.fs, s.Script)
		if err != nil {
			return service.Descriptor{}, fmt.Errorf("reading script: %w", err)
		}
		source = string(data)
	case s.Source != "":
		name = s.ID
	default:
		return service.Descriptor{}, fmt.Errorf("%w: neither script nor source", ErrInvalidService)
	}
	chunk, err := lua.Compile(name, source)
	if err != nil {
		return service.Descriptor{}, err
	}
	factory, err := lua.Factory(role, chunk, b.state...)
	if err != nil {
		return service.Descriptor{}, err
	}

	contexts := []service.Kind{role.Context()}
	if len(s.Contexts) > 0 {
		contexts = contexts[:0]
		for _, c := range s.Contexts {
			k, err := service.ParseKind(c)
			if err != nil {
				return service.Descriptor{}, fmt.Errorf("%w: %w", ErrInvalidService, err)
			}
			contexts = append(contexts, k)
		}
	}

	return service.Descriptor{
		ID:        s.ID,
		Overrides: s.Overrides,
		Contexts:  contexts,
		Condition: s.When.condition(role),
		Params:    s.Params,
		Factory:   factory,
	}, nil
}

// condition matches the context subject against the type and property
// names. Property roles only apply to value properties.
func (w When) condition(role lua.Role) func(*service.Context) bool {
	return func(c *service.Context) bool {
		switch s := c.Subject().(type) {
		case *model.ValueProperty:
			return role.Context() == service.KindPropertyMetamodel &&
				(w.Type == "" || s.Owner().Name() == w.Type) &&
				(w.Property == "" || s.Name() == w.Property)
		case *model.ElementType:
			return role == lua.RoleElementValidator && w.Property == "" &&
				(w.Type == "" || s.Name() == w.Type)
		case *model.Element:
			return role == lua.RoleElementValidator && w.Property == "" &&
				(w.Type == "" || s.Type().Name() == w.Type)
		}
		return false
	}
}
