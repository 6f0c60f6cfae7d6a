package middleware

import (
	"context"
	"time"

	"github.com/leofalp/plantcare/core/client"
	"github.com/leofalp/plantcare/providers/ai"
)

// NewTimeoutMiddleware bounds every call with timeout. For streams the
// deadline covers the whole stream, not just the first byte: the context is
// released only when the iterator finishes, fails or is abandoned. A shorter
// deadline already on the caller's context still wins. A non-positive
// timeout disables the middleware.
func NewTimeoutMiddleware(timeout time.Duration) client.MiddlewareConfig {
	return client.MiddlewareConfig{
		Send:   sendTimeout(timeout),
		Stream: streamTimeout(timeout),
	}
}

func sendTimeout(timeout time.Duration) client.Middleware {
	return func(next client.SendFunc) client.SendFunc {
		if timeout <= 0 {
			return next
		}
		return func(ctx context.Context, request ai.ChatRequest) (*ai.ChatResponse, error) {
			ctx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()

			return next(ctx, request)
		}
	}
}

func streamTimeout(timeout time.Duration) client.StreamMiddleware {
	return func(next client.StreamFunc) client.StreamFunc {
		if timeout <= 0 {
			return next
		}
		return func(ctx context.Context, request ai.ChatRequest) (*ai.ChatStream, error) {
			ctx, cancel := context.WithTimeout(ctx, timeout)

			stream, err := next(ctx, request)
			if err != nil {
				cancel()
				return nil, err
			}

			iteratorFunc := func(yield func(ai.StreamEvent, error) bool) {
				defer cancel()
				for event, err := range stream.Iter() {
					if !yield(event, err) || err != nil {
						return
					}
				}
			}
			return ai.NewChatStream(iteratorFunc), nil
		}
	}
}
