package utils

import (
	"errors"
	"fmt"
)

var (
	// ErrTransport tags failures to reach the server or read its body.
	ErrTransport = errors.New("transport failure")
	// ErrDecode tags a 2xx body that could not be unmarshaled.
	ErrDecode = errors.New("decode failure")
	// ErrLineTooLong is returned when a stream line exceeds the decoder cap
	// without a newline.
	ErrLineTooLong = errors.New("stream line exceeds buffer limit")
	// ErrInvalidText is returned when a stream line is not valid UTF-8.
	ErrInvalidText = errors.New("stream line is not valid UTF-8 text")
)

// StatusError is returned when the server answered with a non-2xx status.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("non-2xx status %d", e.StatusCode)
	}
	return fmt.Sprintf("non-2xx status %d: %s", e.StatusCode, TruncateString(e.Body, 200))
}
