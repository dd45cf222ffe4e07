package workspace

import "errors"

// Errors returned by workspace operations.
var (
	// ErrClosed is returned when operating on a closed workspace or
	// document.
	ErrClosed = errors.New("workspace closed")

	// ErrTypeMismatch is returned when a document is opened again with a
	// different root type.
	ErrTypeMismatch = errors.New("document open with another root type")

	// ErrNotWatchable is returned when the filesystem has no OS root to
	// watch.
	ErrNotWatchable = errors.New("filesystem cannot be watched")
)
