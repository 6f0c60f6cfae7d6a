package utils

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/leofalp/plantcare/providers/observability"
)

// DoPostStream performs a POST with a JSON body and returns the response with
// its body left open for line decoding. The caller closes the body. On every
// error path the body has already been drained and closed.
func DoPostStream(ctx context.Context, client *http.Client, url string, apiKey string, body any, headers ...HeaderOption) (*http.Response, error) {
	span := observability.SpanFromContext(ctx)

	headers = append([]HeaderOption{{Key: "Accept", Value: "text/event-stream"}}, headers...)
	req, size, err := newJSONRequest(ctx, url, apiKey, body, headers)
	if err != nil {
		return nil, err
	}

	if span != nil {
		span.AddEvent("http.stream_request.prepared",
			observability.String(observability.AttrHTTPMethod, http.MethodPost),
			observability.String(observability.AttrHTTPURL, url),
			observability.Int(observability.AttrHTTPRequestBodySize, size),
		)
	}

	timer := NewTimer()
	response, err := httpClientOrDefault(client).Do(req)
	if err != nil {
		if span != nil {
			span.AddEvent("http.stream_request.error",
				observability.Error(err),
				observability.Duration(observability.AttrHTTPDuration, timer.Elapsed()),
			)
		}
		return nil, fmt.Errorf("%w: %w", ErrTransport, err)
	}

	if response.StatusCode < 200 || response.StatusCode >= 300 {
		defer CloseWithLog(response.Body)
		errorBody, readErr := io.ReadAll(io.LimitReader(response.Body, maxResponseBodySize))
		if readErr != nil {
			return response, &StatusError{StatusCode: response.StatusCode}
		}
		return response, &StatusError{StatusCode: response.StatusCode, Body: string(errorBody)}
	}

	if span != nil {
		span.AddEvent("http.stream_response.started",
			observability.Int(observability.AttrHTTPStatusCode, response.StatusCode),
			observability.Duration(observability.AttrHTTPDuration, timer.Elapsed()),
		)
	}

	return response, nil
}
