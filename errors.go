package coordination

import "errors"

// Sentinel errors for common coordination failure conditions.
// These errors can be used with errors.Is() for error checking.
var (
	// ErrStoreUnavailable indicates the coordination store could not be
	// reached during construction. The underlying error is wrapped.
	ErrStoreUnavailable = errors.New("coordination store unavailable")

	// ErrInvalidConfig indicates the provided configuration is invalid or
	// incomplete.
	ErrInvalidConfig = errors.New("invalid configuration")
)
