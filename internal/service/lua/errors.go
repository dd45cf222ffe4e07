package lua

import "errors"

// Errors for script states and scripted services.
var (
	// ErrStateClosed is returned when operating on a closed state.
	ErrStateClosed = errors.New("lua state is closed")

	// ErrExecutionTimeout is returned when a call exceeds the execution
	// timeout.
	ErrExecutionTimeout = errors.New("lua execution timeout")

	// ErrCompile is returned for scripts that fail to parse or compile.
	ErrCompile = errors.New("lua compile error")

	// ErrNoFunction is returned when a script lacks the function a call
	// or role needs.
	ErrNoFunction = errors.New("lua function not defined")

	// ErrUnknownRole is returned for role names that are not recognized.
	ErrUnknownRole = errors.New("unknown script role")
)
