package openai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/leofalp/plantcare/internal/utils"
	"github.com/leofalp/plantcare/providers/ai"
	"github.com/leofalp/plantcare/providers/observability"
)

const (
	defaultBaseURL          = "https://api.openai.com/v1"
	defaultModel            = "gpt-4o-mini"
	defaultName             = "openai"
	chatCompletionsEndpoint = "/chat/completions"
)

// OpenAIProvider implements ai.Provider and ai.StreamProvider against an
// OpenAI-compatible chat completions endpoint. Each call is a single attempt.
type OpenAIProvider struct {
	name         string
	apiKey       string
	baseURL      string
	model        string
	client       *http.Client
	capabilities Capabilities
	capsOverride bool
	maxLineSize  int
}

var (
	_ ai.Provider       = (*OpenAIProvider)(nil)
	_ ai.StreamProvider = (*OpenAIProvider)(nil)
)

// New creates a provider for the public OpenAI API. The credential is never
// read from the environment here; pass it with WithAPIKey.
func New() *OpenAIProvider {
	return &OpenAIProvider{
		name:         defaultName,
		baseURL:      defaultBaseURL,
		model:        defaultModel,
		client:       &http.Client{},
		capabilities: detectCapabilities(defaultBaseURL),
	}
}

// WithName sets the logical name reported in errors and telemetry.
func (p *OpenAIProvider) WithName(name string) *OpenAIProvider {
	if name != "" {
		p.name = name
	}
	return p
}

// WithModel sets the wire model name used when a request carries none.
func (p *OpenAIProvider) WithModel(model string) *OpenAIProvider {
	if model != "" {
		p.model = model
	}
	return p
}

// WithMaxLineSize caps a single streamed line; <= 0 keeps the default.
func (p *OpenAIProvider) WithMaxLineSize(size int) *OpenAIProvider {
	p.maxLineSize = size
	return p
}

// WithCapabilities overrides URL-based capability detection.
func (p *OpenAIProvider) WithCapabilities(capabilities Capabilities) *OpenAIProvider {
	p.capabilities = capabilities
	p.capsOverride = true
	return p
}

func (p *OpenAIProvider) WithAPIKey(apiKey string) ai.Provider {
	p.apiKey = apiKey
	return p
}

func (p *OpenAIProvider) WithBaseURL(baseURL string) ai.Provider {
	p.baseURL = baseURL
	if !p.capsOverride {
		p.capabilities = detectCapabilities(baseURL)
	}
	return p
}

func (p *OpenAIProvider) WithHttpClient(httpClient *http.Client) ai.Provider {
	if httpClient != nil {
		p.client = httpClient
	}
	return p
}

func (p *OpenAIProvider) Name() string {
	return p.name
}

// Capabilities returns the effective capabilities for the configured endpoint.
func (p *OpenAIProvider) Capabilities() Capabilities {
	return p.capabilities
}

// Endpoint returns the chat completions URL requests are sent to.
func (p *OpenAIProvider) Endpoint() string {
	return NormalizeEndpoint(p.baseURL)
}

// NormalizeEndpoint turns an API root or a full chat completions URL into the
// chat completions URL.
func NormalizeEndpoint(baseURL string) string {
	trimmed := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if trimmed == "" {
		trimmed = defaultBaseURL
	}
	if strings.HasSuffix(trimmed, chatCompletionsEndpoint) {
		return trimmed
	}
	return trimmed + chatCompletionsEndpoint
}

// SendMessage performs a whole-response completion.
func (p *OpenAIProvider) SendMessage(ctx context.Context, request ai.ChatRequest) (*ai.ChatResponse, error) {
	span := observability.SpanFromContext(ctx)
	observer := observability.ObserverFromContext(ctx)
	p.annotate(ctx, span, observer, request, false)

	if p.apiKey == "" {
		return nil, ai.NewError(ai.KindCredentialMissing, p.name, "API key is not set", nil)
	}

	chatRequest := requestToChatCompletion(request, p.model, false)
	p.traceRequest(ctx, observer, chatRequest)
	_, resp, err := utils.DoPostSync[chatCompletionResponse](ctx, p.client, p.Endpoint(), p.apiKey, chatRequest)
	if err != nil {
		providerErr := p.classify(ctx, err)
		if observer != nil {
			observer.Debug(ctx, "chat completion request failed",
				observability.String(observability.AttrLLMProvider, p.name),
				observability.String(observability.AttrErrorKind, string(providerErr.Kind)),
				observability.Error(err),
			)
		}
		return nil, providerErr
	}

	if len(resp.Choices) == 0 {
		return nil, ai.NewError(ai.KindMalformedResponse, p.name, "response has no choices", nil)
	}
	choice := resp.Choices[0]
	if choice.Message == nil {
		return nil, ai.NewError(ai.KindMalformedResponse, p.name, "first choice has no message", nil)
	}
	if choice.Message.Content == nil || *choice.Message.Content == "" {
		return nil, ai.NewError(ai.KindMalformedResponse, p.name, "first choice has no content", nil)
	}

	response := &ai.ChatResponse{
		Id:           resp.ID,
		Model:        resp.Model,
		Content:      *choice.Message.Content,
		FinishReason: choice.FinishReason,
		Usage:        resp.Usage.toGeneric(),
	}

	if span != nil {
		span.AddEvent(observability.EventLLMRequestEnd,
			observability.String(observability.AttrLLMResponseID, response.Id),
			observability.String(observability.AttrLLMFinishReason, response.FinishReason),
		)
	}
	return response, nil
}

func (p *OpenAIProvider) traceRequest(ctx context.Context, observer observability.Provider, chatRequest chatCompletionRequest) {
	if observer == nil {
		return
	}
	observer.Trace(ctx, "chat completion request",
		observability.String(observability.AttrLLMEndpoint, p.Endpoint()),
		observability.String("request.body", utils.TruncateString(utils.JSONToString(chatRequest), 0)),
	)
}

func (p *OpenAIProvider) annotate(ctx context.Context, span observability.Span, observer observability.Provider, request ai.ChatRequest, streaming bool) {
	vision := hasImageContent(request)
	model := request.Model
	if model == "" {
		model = p.model
	}

	if span != nil {
		span.AddEvent(observability.EventLLMRequestStart)
		span.SetAttributes(
			observability.String(observability.AttrLLMProvider, p.name),
			observability.String(observability.AttrLLMEndpoint, p.Endpoint()),
			observability.String(observability.AttrLLMModel, model),
			observability.Bool(observability.AttrLLMStreaming, streaming),
			observability.Bool(observability.AttrLLMVision, vision),
		)
	}

	if observer == nil {
		return
	}
	observer.Trace(ctx, "preparing chat completion request",
		observability.String(observability.AttrLLMProvider, p.name),
		observability.String(observability.AttrLLMModel, model),
		observability.Int(observability.AttrRequestMessagesCount, len(request.Messages)),
		observability.Bool(observability.AttrLLMStreaming, streaming),
	)
	if vision && !p.capabilities.SupportsVision {
		observer.Warn(ctx, "sending image content to an endpoint not known to support vision",
			observability.String(observability.AttrLLMProvider, p.name),
			observability.String(observability.AttrLLMEndpoint, p.Endpoint()),
		)
	}
}

// classify maps transport-level errors onto ai error kinds.
func (p *OpenAIProvider) classify(ctx context.Context, err error) *ai.Error {
	var providerErr *ai.Error
	if errors.As(err, &providerErr) {
		return providerErr
	}
	if errors.Is(err, context.Canceled) || errors.Is(ctx.Err(), context.Canceled) {
		return ai.NewError(ai.KindCancelled, p.name, "request cancelled", err)
	}

	var statusErr *utils.StatusError
	switch {
	case errors.As(err, &statusErr):
		providerErr = ai.NewError(ai.KindHTTPStatus, p.name, fmt.Sprintf("status %d", statusErr.StatusCode), err)
		providerErr.StatusCode = statusErr.StatusCode
		return providerErr
	case errors.Is(err, utils.ErrDecode):
		return ai.NewError(ai.KindMalformedResponse, p.name, "response body is not valid JSON", err)
	case errors.Is(err, utils.ErrLineTooLong), errors.Is(err, utils.ErrInvalidText):
		return ai.NewError(ai.KindStreamDecode, p.name, "stream could not be decoded", err)
	default:
		return ai.NewError(ai.KindTransport, p.name, "request failed", err)
	}
}
