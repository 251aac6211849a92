package capture

import "errors"

var (
	// ErrUnsupported is returned on platforms without a frame grabber
	ErrUnsupported = errors.New("screen capture not supported on this platform")

	// ErrDisplayUnavailable is returned when no display context can be opened
	ErrDisplayUnavailable = errors.New("display unavailable")

	// ErrCaptureFailed is returned when a context was obtained but the grab or
	// the encoding did not produce an image
	ErrCaptureFailed = errors.New("capture failed")
)
