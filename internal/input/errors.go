package input

import "errors"

var (
	// ErrUnsupported is returned when input injection is not available on this platform
	ErrUnsupported = errors.New("input injection not supported on this platform")

	// ErrDisplayUnavailable is returned when the injection channel cannot be opened
	ErrDisplayUnavailable = errors.New("display unavailable")

	// ErrInvalidKey is returned when a key or modifier name cannot be resolved
	ErrInvalidKey = errors.New("invalid key")

	// ErrUnmappedSymbol is returned by a Session when no key produces a symbol
	ErrUnmappedSymbol = errors.New("symbol not mapped to any key")
)
