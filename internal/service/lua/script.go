package lua

import (
	"fmt"

	lua "github.com/yuin/gopher-lua"

	"github.com/dshills/sapphire/internal/logging"
	"github.com/dshills/sapphire/internal/model"
	"github.com/dshills/sapphire/internal/service"
)

// Role selects the function a script provides and the service interface
// it implements.
type Role string

// Script roles.
const (
	RoleValidator        Role = "validator"
	RoleElementValidator Role = "element-validator"
	RoleDefaultValue     Role = "default-value"
	RolePossibleValues   Role = "possible-values"
)

var roleFunctions = map[Role]string{
	RoleValidator:        "validate",
	RoleElementValidator: "validate_element",
	RoleDefaultValue:     "default",
	RolePossibleValues:   "possible_values",
}

// ParseRole parses a role name.
func ParseRole(s string) (Role, error) {
	r := Role(s)
	if _, ok := roleFunctions[r]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownRole, s)
	}
	return r, nil
}

// Function returns the global function a script in this role defines.
func (r Role) Function() string { return roleFunctions[r] }

// Context returns the context kind services in this role attach to.
func (r Role) Context() service.Kind {
	if r == RoleElementValidator {
		return service.KindElementMetamodel
	}
	return service.KindPropertyMetamodel
}

// Factory returns a service factory running chunk in the given role. Every
// service created by it loads the chunk into a state of its own.
func Factory(role Role, chunk *Chunk, opts ...StateOption) (func() service.Service, error) {
	base := func() script { return script{role: role, chunk: chunk, opts: opts} }
	switch role {
	case RoleValidator:
		return func() service.Service { return &Validator{script: base()} }, nil
	case RoleElementValidator:
		return func() service.Service { return &ElementValidator{script: base()} }, nil
	case RoleDefaultValue:
		return func() service.Service { return &DefaultValue{script: base()} }, nil
	case RolePossibleValues:
		return func() service.Service { return &PossibleValues{script: base()} }, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownRole, role)
}

// script is the state shared by the scripted services.
type script struct {
	service.Base
	role  Role
	chunk *Chunk
	opts  []StateOption
	state *State
	log   *logging.Logger
}

// Init creates the state, publishes the parameters and runs the chunk.
func (s *script) Init() error {
	s.log = logging.OrNop(s.Context().Logger()).WithComponent("lua").WithField("service", s.ID())
	s.state = NewState(append([]StateOption{WithLogger(s.log)}, s.opts...)...)

	params := s.state.L.NewTable()
	for k, v := range s.Params() {
		params.RawSetString(k, lua.LString(v))
	}
	s.state.SetGlobal("params", params)

	if err := s.state.Load(s.chunk); err != nil {
		s.state.Close()
		return err
	}
	if fn := s.role.Function(); !s.state.Has(fn) {
		s.state.Close()
		return fmt.Errorf("%w: %s must define %s()", ErrNoFunction, s.chunk.Name(), fn)
	}
	return nil
}

// Dispose closes the state.
func (s *script) Dispose() {
	if s.state != nil {
		s.state.Close()
	}
}

func (s *script) call(arg func(L *lua.LState) lua.LValue) ([]lua.LValue, error) {
	res, err := s.state.Call(s.role.Function(), func(L *lua.LState) []lua.LValue {
		return []lua.LValue{arg(L)}
	})
	if err != nil {
		s.log.Warn("script failed", "script", s.chunk.Name(), "error", err)
	}
	return res, err
}

// status converts validation results: nothing or nil is OK, otherwise a
// severity and a message. A single string is an error message.
func (s *script) status(res []lua.LValue, err error) model.Status {
	if err != nil {
		return model.Errorf("%s: %v", s.chunk.Name(), err)
	}
	if len(res) == 0 || res[0] == lua.LNil {
		return model.OK
	}
	if len(res) == 1 {
		return model.Errorf("%s", lua.LVAsString(res[0]))
	}
	msg := lua.LVAsString(res[1])
	switch lua.LVAsString(res[0]) {
	case "ok":
		return model.OK
	case "warning":
		return model.Warningf("%s", msg)
	default:
		return model.Errorf("%s", msg)
	}
}

// Validator is a scripted model.Validator.
type Validator struct {
	script
}

// Validate calls validate(value).
func (v *Validator) Validate(val model.Value) model.Status {
	return v.status(v.call(func(L *lua.LState) lua.LValue { return valueTable(L, val) }))
}

// ElementValidator is a scripted model.ElementValidator.
type ElementValidator struct {
	script
}

// ValidateElement calls validate_element(element).
func (v *ElementValidator) ValidateElement(e *model.Element) model.Status {
	return v.status(v.call(func(L *lua.LState) lua.LValue { return elementTable(L, e) }))
}

// DefaultValue is a scripted model.DefaultValueProvider.
type DefaultValue struct {
	script
}

// DefaultValue calls default(element). A nil result provides nothing.
func (d *DefaultValue) DefaultValue(e *model.Element) (string, bool) {
	res, err := d.call(func(L *lua.LState) lua.LValue { return elementTable(L, e) })
	if err != nil || len(res) == 0 {
		return "", false
	}
	switch v := res[0].(type) {
	case lua.LString:
		return string(v), true
	case lua.LNumber:
		return v.String(), true
	}
	return "", false
}

// PossibleValues is a scripted model.PossibleValuesProvider.
type PossibleValues struct {
	script
}

// PossibleValues calls possible_values(element) and returns the strings of
// the resulting list.
func (p *PossibleValues) PossibleValues(e *model.Element) []string {
	res, err := p.call(func(L *lua.LState) lua.LValue { return elementTable(L, e) })
	if err != nil || len(res) == 0 {
		return nil
	}
	tb, ok := res[0].(*lua.LTable)
	if !ok {
		return nil
	}
	out := make([]string, 0, tb.Len())
	for i := 1; i <= tb.Len(); i++ {
		if s := lua.LVAsString(tb.RawGetInt(i)); s != "" {
			out = append(out, s)
		}
	}
	return out
}
