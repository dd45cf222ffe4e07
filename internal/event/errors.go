package event

import "errors"

// Sentinel errors for the event substrate.
var (
	// ErrNilListener is returned when a nil listener is attached or detached.
	ErrNilListener = errors.New("listener cannot be nil")

	// ErrNilEvent is returned when a nil event is broadcast.
	ErrNilEvent = errors.New("event cannot be nil")
)

// PanicError wraps a value recovered from a listener.
type PanicError struct {
	// Topic is the topic of the event being delivered.
	Topic string

	// Value is the value passed to panic().
	Value any

	// Stack is the stack trace at the time of the panic.
	Stack string
}

// Error implements the error interface.
func (e *PanicError) Error() string {
	return "listener panic while delivering " + e.Topic
}
