package model

import (
	"errors"
	"fmt"

	"github.com/dshills/sapphire/internal/event"
	"github.com/dshills/sapphire/internal/service"
)

// Error classes.
var (
	// ErrIllegalArgument marks usage errors.
	ErrIllegalArgument = errors.New("illegal argument")

	// ErrIllegalState marks operations on objects in the wrong state.
	ErrIllegalState = errors.New("illegal state")
)

// Specific errors.
var (
	// ErrDisposed is returned by operations on a disposed element.
	ErrDisposed = fmt.Errorf("%w: element is disposed", ErrIllegalState)

	// ErrForeignProperty is returned when a property is used with an element
	// of another type.
	ErrForeignProperty = fmt.Errorf("%w: property does not belong to element type", ErrIllegalArgument)

	// ErrNotValueProperty is returned when an index is requested for a
	// property that is not a value property.
	ErrNotValueProperty = fmt.Errorf("%w: not a value property", ErrIllegalArgument)

	// ErrPathReference is returned when a path is given where a plain
	// property name is required.
	ErrPathReference = fmt.Errorf("%w: path given where a property name is required", ErrIllegalArgument)

	// ErrTypeNotAllowed is returned when an element type is not among a
	// property's possible types.
	ErrTypeNotAllowed = fmt.Errorf("%w: element type not allowed here", ErrIllegalArgument)

	// ErrNotMember is returned when an element is not an entry of the list.
	ErrNotMember = fmt.Errorf("%w: element is not in this list", ErrIllegalArgument)

	// ErrIndexOutOfRange is returned for positions outside a list.
	ErrIndexOutOfRange = fmt.Errorf("%w: index out of range", ErrIllegalArgument)

	// ErrNilListener is returned when a nil listener is attached or detached.
	ErrNilListener = fmt.Errorf("%w: %w", ErrIllegalArgument, event.ErrNilListener)

	// ErrComparator is returned for index comparators that cannot be cached.
	ErrComparator = fmt.Errorf("%w: comparator must be comparable", ErrIllegalArgument)
)

// contextErr maps service context failures onto the model's error classes.
func contextErr(err error) error {
	if errors.Is(err, service.ErrDisposed) {
		return fmt.Errorf("%w: %w", ErrDisposed, err)
	}
	return err
}
