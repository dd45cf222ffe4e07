package lua

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	lua "github.com/yuin/gopher-lua"
	"github.com/yuin/gopher-lua/parse"

	"github.com/dshills/sapphire/internal/logging"
)

// Default limits for a script state.
const (
	DefaultExecutionTimeout = time.Second
	DefaultCallStackSize    = 256
)

// Chunk is a compiled script. One chunk can be loaded into any number of
// states.
type Chunk struct {
	name  string
	proto *lua.FunctionProto
}

// Compile parses and compiles Lua source. Syntax errors are reported here,
// before any state runs the script.
func Compile(name, source string) (*Chunk, error) {
	stmts, err := parse.Parse(strings.NewReader(source), name)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrCompile, name, err)
	}
	proto, err := lua.Compile(stmts, name)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrCompile, name, err)
	}
	return &Chunk{name: name, proto: proto}, nil
}

// Name returns the chunk name used in error messages.
func (c *Chunk) Name() string { return c.name }

// State is a sandboxed Lua state.
//
// gopher-lua states are not goroutine-safe; State serializes every call
// through its mutex.
type State struct {
	L *lua.LState

	mu      sync.Mutex
	timeout time.Duration
	stack   int
	log     *logging.Logger
	closed  bool
}

// StateOption configures a State.
type StateOption func(*State)

// WithExecutionTimeout bounds each call into the state. Zero disables the
// bound.
func WithExecutionTimeout(d time.Duration) StateOption {
	return func(s *State) {
		s.timeout = d
	}
}

// WithCallStackSize sets the Lua call stack size.
func WithCallStackSize(n int) StateOption {
	return func(s *State) {
		s.stack = n
	}
}

// WithLogger receives output of the script's print function.
func WithLogger(l *logging.Logger) StateOption {
	return func(s *State) {
		s.log = l
	}
}

// NewState creates a sandboxed state.
func NewState(opts ...StateOption) *State {
	s := &State{
		timeout: DefaultExecutionTimeout,
		stack:   DefaultCallStackSize,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = logging.OrNop(s.log)

	s.L = lua.NewState(lua.Options{
		SkipOpenLibs:  true,
		CallStackSize: s.stack,
	})
	openSafeLibraries(s.L)
	sandbox(s.L, s.log)
	return s
}

// openSafeLibraries opens the libraries that cannot reach the host.
// io, os, debug and package are left out.
func openSafeLibraries(L *lua.LState) {
	lua.OpenBase(L)
	lua.OpenTable(L)
	lua.OpenString(L)
	lua.OpenMath(L)
}

// Load runs a chunk in the state, defining its globals.
func (s *State) Load(c *Chunk) error {
	return s.exec(func(L *lua.LState) error {
		L.Push(L.NewFunctionFromProto(c.proto))
		return L.PCall(0, lua.MultRet, nil)
	})
}

// DoString compiles and runs source.
func (s *State) DoString(source string) error {
	c, err := Compile("<string>", source)
	if err != nil {
		return err
	}
	return s.Load(c)
}

// Has reports whether a global function is defined.
func (s *State) Has(fn string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	return s.L.GetGlobal(fn).Type() == lua.LTFunction
}

// Call calls a global function and returns its results. build creates the
// arguments inside the state.
func (s *State) Call(fn string, build func(L *lua.LState) []lua.LValue) ([]lua.LValue, error) {
	var results []lua.LValue
	err := s.exec(func(L *lua.LState) error {
		f := L.GetGlobal(fn)
		if f.Type() != lua.LTFunction {
			return fmt.Errorf("%w: %s", ErrNoFunction, fn)
		}
		var args []lua.LValue
		if build != nil {
			args = build(L)
		}
		top := L.GetTop()
		L.Push(f)
		for _, a := range args {
			L.Push(a)
		}
		if err := L.PCall(len(args), lua.MultRet, nil); err != nil {
			return err
		}
		n := L.GetTop() - top
		results = make([]lua.LValue, n)
		for i := range n {
			results[i] = L.Get(top + i + 1)
		}
		L.Pop(n)
		return nil
	})
	return results, err
}

// exec runs fn under the lock with the execution timeout applied.
func (s *State) exec(fn func(L *lua.LState) error) (err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrStateClosed
	}

	ctx := context.Background()
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	s.L.SetContext(ctx)
	defer s.L.RemoveContext()

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("lua panic: %v", r)
		}
	}()
	err = fn(s.L)
	if err != nil && errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", ErrExecutionTimeout, err)
	}
	return err
}

// SetGlobal sets a global variable.
func (s *State) SetGlobal(name string, v lua.LValue) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.L.SetGlobal(name, v)
	}
}

// GetGlobal returns a global variable, or LNil once closed.
func (s *State) GetGlobal(name string) lua.LValue {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return lua.LNil
	}
	return s.L.GetGlobal(name)
}

// Closed reports whether Close has been called.
func (s *State) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Close releases the state. Further calls return ErrStateClosed.
func (s *State) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.L.Close()
	s.closed = true
}
