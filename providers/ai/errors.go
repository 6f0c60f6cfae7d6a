package ai

import (
	"errors"
	"fmt"
)

// ErrorKind classifies why a provider call failed. The kinds are stable
// strings so they can be returned to API clients as-is.
type ErrorKind string

const (
	// KindCredentialMissing means the resolved provider has no usable
	// credential. It is always reported before any network call.
	KindCredentialMissing ErrorKind = "credential_missing"
	// KindTransport covers DNS, connection, timeout and abort failures.
	KindTransport ErrorKind = "transport_failure"
	// KindHTTPStatus means a response arrived with a non-2xx status.
	KindHTTPStatus ErrorKind = "http_status_failure"
	// KindMalformedResponse means a 2xx body lacked choices, message or content.
	KindMalformedResponse ErrorKind = "malformed_response"
	// KindStreamDecode means a streamed line was not valid text or exceeded
	// the line buffer cap.
	KindStreamDecode ErrorKind = "stream_decode_failure"
	// KindCancelled means the caller cancelled the call's context.
	KindCancelled ErrorKind = "cancelled"
)

// Sentinels for errors.Is. Each matches any *Error of the same kind.
var (
	ErrCredentialMissing = &Error{Kind: KindCredentialMissing}
	ErrTransport         = &Error{Kind: KindTransport}
	ErrHTTPStatus        = &Error{Kind: KindHTTPStatus}
	ErrMalformedResponse = &Error{Kind: KindMalformedResponse}
	ErrStreamDecode      = &Error{Kind: KindStreamDecode}
	ErrCancelled         = &Error{Kind: KindCancelled}
)

// Error is the single error type returned by providers and the client.
type Error struct {
	Kind       ErrorKind
	Provider   string // logical provider name, when known
	StatusCode int    // HTTP status, for KindHTTPStatus
	Message    string // human readable reason
	Err        error  // underlying cause
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = string(e.Kind)
	}
	if e.Provider != "" {
		msg = e.Provider + ": " + msg
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is an *Error of the same kind.
func (e *Error) Is(target error) bool {
	var other *Error
	if !errors.As(target, &other) {
		return false
	}
	return other.Kind == e.Kind
}

// KindOf returns the ErrorKind carried by err, or "" when err is nil or not an *Error.
func KindOf(err error) ErrorKind {
	var providerErr *Error
	if errors.As(err, &providerErr) {
		return providerErr.Kind
	}
	return ""
}

// NewError builds an *Error of the given kind.
func NewError(kind ErrorKind, provider, message string, cause error) *Error {
	return &Error{Kind: kind, Provider: provider, Message: message, Err: cause}
}
