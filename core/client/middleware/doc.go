// Package middleware provides opt-in caller-side policies for the plant-care
// client. Each constructor returns a [client.MiddlewareConfig] for
// [client.WithMiddleware].
//
//   - [NewTimeoutMiddleware] bounds each call, including the whole lifetime
//     of a stream.
//   - [NewLoggingMiddleware] writes slog entries before and after each call
//     at three verbosity levels.
//
// The client applies neither by default. Usage:
//
//	c, err := client.New(registry.Default(),
//	    client.WithMiddleware(
//	        middleware.NewTimeoutMiddleware(60*time.Second),
//	        middleware.NewLoggingMiddleware(slog.Default(), middleware.LogLevelStandard),
//	    ),
//	)
//
// The first entry is the outermost wrapper.
package middleware
