package ai

import (
	"context"
	"net/http"
)

// StreamProvider is an optional interface that providers implement to support
// incremental (line-oriented event stream) responses. Callers detect support
// via type assertion: provider.(StreamProvider). Without it, callers fall back
// to SendMessage wrapped in NewSingleEventStream.
type StreamProvider interface {
	Provider
	// StreamMessage sends a chat request and returns a ChatStream that yields
	// deltas as they arrive. Pre-stream errors (missing credential, status,
	// network) are returned directly. Mid-stream errors are yielded through
	// the iterator.
	StreamMessage(ctx context.Context, request ChatRequest) (*ChatStream, error)
}

// Provider is the interface every LLM backend implementation satisfies.
// A Provider performs exactly one attempt per call; it never retries and
// never falls back to another backend.
type Provider interface {
	// SendMessage sends a chat request and returns the completed response.
	// Errors are *Error values classified by ErrorKind.
	SendMessage(ctx context.Context, request ChatRequest) (*ChatResponse, error)

	// Name returns the logical provider name used in errors and telemetry.
	Name() string

	// WithAPIKey sets the API key used for authenticating requests.
	WithAPIKey(apiKey string) Provider

	// WithBaseURL overrides the base URL (or full chat completions URL).
	WithBaseURL(baseURL string) Provider

	// WithHttpClient sets the HTTP client used for outbound requests.
	WithHttpClient(httpClient *http.Client) Provider
}
