package service

import "errors"

// Sentinel errors for the service framework.
var (
	// ErrDisposed is returned when a disposed context is used.
	ErrDisposed = errors.New("service context is disposed")

	// ErrInvalidDescriptor is returned when a descriptor lacks an ID or factory.
	ErrInvalidDescriptor = errors.New("invalid service descriptor")

	// ErrInitFailed wraps an error returned by a service's Init hook.
	ErrInitFailed = errors.New("service initialization failed")

	// ErrUnknownKind is returned by ParseKind for unrecognized names.
	ErrUnknownKind = errors.New("unknown context kind")
)
