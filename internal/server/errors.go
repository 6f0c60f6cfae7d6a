package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/leofalp/plantcare/core/recognition"
	"github.com/leofalp/plantcare/core/registry"
	"github.com/leofalp/plantcare/internal/utils"
	"github.com/leofalp/plantcare/providers/ai"
	"github.com/leofalp/plantcare/providers/careguide"
	"github.com/leofalp/plantcare/providers/memory"
)

// statusClientClosedRequest is the de facto status for a caller that went away.
const statusClientClosedRequest = 499

type errorBody struct {
	Kind     string `json:"kind"`
	Reason   string `json:"reason"`
	Provider string `json:"provider,omitempty"`
	Hint     string `json:"hint,omitempty"`
}

// failure maps err to an HTTP status and body. descriptor names the
// credential variable for credential_missing hints.
func failure(err error, descriptor registry.Descriptor) (int, errorBody) {
	body := errorBody{Reason: err.Error(), Provider: descriptor.LogicalName}

	switch kind := ai.KindOf(err); kind {
	case ai.KindCredentialMissing:
		body.Kind = string(kind)
		if descriptor.CredentialEnvKey != "" {
			body.Hint = "set " + descriptor.CredentialEnvKey + " in the environment or the env file"
		}
		return http.StatusServiceUnavailable, body
	case ai.KindHTTPStatus, ai.KindMalformedResponse, ai.KindStreamDecode:
		body.Kind = string(kind)
		return http.StatusBadGateway, body
	case ai.KindTransport:
		body.Kind = string(kind)
		return http.StatusGatewayTimeout, body
	case ai.KindCancelled:
		body.Kind = string(kind)
		return statusClientClosedRequest, body
	}

	switch {
	case errors.Is(err, recognition.ErrEmptyImage),
		errors.Is(err, careguide.ErrEmptyURL),
		errors.Is(err, memory.ErrInvalidConversation):
		body.Kind = "invalid_request"
		return http.StatusBadRequest, body
	case errors.Is(err, careguide.ErrBlockedAddress):
		body.Kind = "reference_blocked"
		return http.StatusForbidden, body
	case errors.Is(err, careguide.ErrTooLarge), errors.Is(err, utils.ErrDecode):
		body.Kind = "reference_failure"
		return http.StatusBadGateway, body
	case errors.Is(err, utils.ErrTransport):
		body.Kind = "reference_failure"
		return http.StatusGatewayTimeout, body
	}
	var statusErr *utils.StatusError
	if errors.As(err, &statusErr) {
		body.Kind = "reference_failure"
		return http.StatusBadGateway, body
	}

	body.Kind = "internal"
	return http.StatusInternalServerError, body
}

func abortWith(c *gin.Context, err error, descriptor registry.Descriptor) {
	status, body := failure(err, descriptor)
	c.AbortWithStatusJSON(status, body)
}

func badRequest(c *gin.Context, reason string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, errorBody{Kind: "invalid_request", Reason: reason})
}
