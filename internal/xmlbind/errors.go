package xmlbind

import (
	"errors"
	"fmt"

	"github.com/dshills/sapphire/internal/model"
)

// Sentinel errors.
var (
	// ErrCorruptedResource is matched by every *CorruptedResourceError.
	ErrCorruptedResource = errors.New("corrupted resource")

	// ErrUnmappedElement is returned when a DOM element has no mapping to a
	// model type in the binding that reads it.
	ErrUnmappedElement = fmt.Errorf("%w: unmapped xml element", model.ErrIllegalState)

	// ErrInvalidPath is returned for malformed binding paths.
	ErrInvalidPath = fmt.Errorf("%w: invalid xml path", model.ErrIllegalArgument)

	// ErrInvalidExistenceMapping is returned for malformed existence
	// mapping directives.
	ErrInvalidExistenceMapping = fmt.Errorf("%w: invalid existence mapping", model.ErrIllegalArgument)

	// ErrUnmappedValue is returned when an existence-mapped property is
	// written with a value that is neither the present nor the absent text.
	ErrUnmappedValue = fmt.Errorf("%w: value has no existence mapping", model.ErrIllegalArgument)
)

// CorruptedResourceError reports a document whose root element fails the
// controller's check when repair is not allowed.
type CorruptedResourceError struct {
	// Found is the qualified name of the root element in the document.
	Found string

	// Expected is the local name the controller expects.
	Expected string
}

// Error implements the error interface.
func (e *CorruptedResourceError) Error() string {
	return fmt.Sprintf("corrupted resource: root element <%s>, expected <%s>", e.Found, e.Expected)
}

// Is matches ErrCorruptedResource.
func (e *CorruptedResourceError) Is(target error) bool {
	return target == ErrCorruptedResource
}
