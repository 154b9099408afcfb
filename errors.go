package ponder

import "errors"

// Sentinel errors for common failure modes.
var (
	// ErrValidation indicates a request failed validation.
	ErrValidation = errors.New("validation error")

	// ErrOpen indicates the streaming connection could not be established.
	ErrOpen = errors.New("stream open failed")

	// ErrConnection indicates the connection dropped before the end event.
	ErrConnection = errors.New("connection lost")

	// ErrStreamClosed indicates an operation on a closed stream.
	ErrStreamClosed = errors.New("stream closed")

	// ErrBackend indicates the backend answered a side request with an error.
	ErrBackend = errors.New("backend error")
)
