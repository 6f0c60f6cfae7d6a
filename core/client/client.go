package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/leofalp/plantcare/core/recognition"
	"github.com/leofalp/plantcare/core/registry"
	"github.com/leofalp/plantcare/providers/ai"
	"github.com/leofalp/plantcare/providers/ai/openai"
	"github.com/leofalp/plantcare/providers/observability"
)

// ProviderFactory builds the provider for one call from a descriptor and the
// credential resolved for it.
type ProviderFactory func(descriptor registry.Descriptor, credential string) ai.Provider

// Client dispatches calls to providers resolved through a registry. It holds
// no per-call state and is safe for concurrent use.
type Client struct {
	registry    *registry.Registry
	httpClient  *http.Client
	observer    observability.Provider
	middlewares []MiddlewareConfig
	factory     ProviderFactory
	maxLineSize int
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets the HTTP client handed to providers.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithObserver enables tracing, metrics and logs. The observability middleware
// is placed outermost so it sees the final outcome of every call.
func WithObserver(observer observability.Provider) Option {
	return func(c *Client) {
		c.observer = observer
	}
}

// WithMiddleware appends caller-side middlewares. The first one given is the
// outermost.
func WithMiddleware(middlewares ...MiddlewareConfig) Option {
	return func(c *Client) {
		c.middlewares = append(c.middlewares, middlewares...)
	}
}

// WithProviderFactory replaces the OpenAI-compatible provider.
func WithProviderFactory(factory ProviderFactory) Option {
	return func(c *Client) {
		c.factory = factory
	}
}

// WithMaxStreamLine caps a single streamed line in bytes.
func WithMaxStreamLine(size int) Option {
	return func(c *Client) {
		c.maxLineSize = size
	}
}

// New creates a Client over reg.
func New(reg *registry.Registry, opts ...Option) (*Client, error) {
	if reg == nil {
		return nil, errors.New("client: registry is required")
	}

	c := &Client{
		registry:   reg,
		httpClient: &http.Client{},
	}
	for _, opt := range opts {
		opt(c)
	}

	for i, middleware := range c.middlewares {
		if middleware.Send == nil {
			return nil, fmt.Errorf("client: middleware at index %d has a nil Send function", i)
		}
	}
	if c.factory == nil {
		c.factory = c.openAIProvider
	}
	return c, nil
}

// Registry returns the registry the client resolves providers with.
func (c *Client) Registry() *registry.Registry {
	return c.registry
}

func (c *Client) openAIProvider(descriptor registry.Descriptor, credential string) ai.Provider {
	return openai.New().
		WithName(descriptor.LogicalName).
		WithModel(descriptor.WireModelName).
		WithMaxLineSize(c.maxLineSize).
		WithAPIKey(credential).
		WithBaseURL(descriptor.EndpointURL).
		WithHttpClient(c.httpClient)
}

// Complete sends messages to the provider described by descriptor and waits
// for the whole answer. It panics if messages is empty.
func (c *Client) Complete(ctx context.Context, descriptor registry.Descriptor, messages []ai.Message) Result {
	if len(messages) == 0 {
		panic("client: Complete called with no messages")
	}

	provider, err := c.provider(ctx, descriptor)
	if err != nil {
		return failure(descriptor.LogicalName, err)
	}

	send := buildSendChain(provider, c.chain(descriptor))
	response, err := send(ctx, request(descriptor, messages))
	if err != nil {
		return failure(descriptor.LogicalName, normalize(ctx, descriptor, err))
	}
	return success(descriptor.LogicalName, response)
}

// StreamComplete sends messages with streaming enabled. onChunk is called
// synchronously, in wire order, for every non-empty content delta before the
// next read; it is never called concurrently with itself. The result carries
// the concatenation of all delivered chunks. After a failure or cancellation
// no further chunks are delivered, and chunks already delivered stand.
// It panics if messages is empty.
func (c *Client) StreamComplete(ctx context.Context, descriptor registry.Descriptor, messages []ai.Message, onChunk func(string)) Result {
	if len(messages) == 0 {
		panic("client: StreamComplete called with no messages")
	}
	if onChunk == nil {
		onChunk = func(string) {}
	}

	provider, err := c.provider(ctx, descriptor)
	if err != nil {
		return failure(descriptor.LogicalName, err)
	}

	stream, err := buildStreamChain(provider, c.chain(descriptor))(ctx, request(descriptor, messages))
	if err != nil {
		return failure(descriptor.LogicalName, normalize(ctx, descriptor, err))
	}

	var content strings.Builder
	response := &ai.ChatResponse{}
	for event, err := range stream.Iter() {
		if err != nil {
			return failure(descriptor.LogicalName, normalize(ctx, descriptor, err))
		}
		if ctx.Err() != nil {
			return failure(descriptor.LogicalName, normalize(ctx, descriptor, ctx.Err()))
		}

		switch event.Type {
		case ai.StreamEventContent:
			if event.Content == "" {
				continue
			}
			onChunk(event.Content)
			content.WriteString(event.Content)
		case ai.StreamEventUsage:
			response.Usage = event.Usage
		case ai.StreamEventDone:
			response.FinishReason = event.FinishReason
		}
	}

	response.Content = content.String()
	return success(descriptor.LogicalName, response)
}

// RecognitionRequest is one photo to send to the vision provider.
type RecognitionRequest struct {
	ImageData        string // base64, or a complete data URI
	MimeType         string // defaults to the data URI type, then image/jpeg
	PromptText       string // defaults to recognition.IdentifyPrompt
	PriorSymptomText string // appended to the prompt when set
}

// Recognize sends the image and instruction text to the registry's vision
// provider and returns its raw answer. Parsing the answer is the caller's job,
// see recognition.Interpret.
func (c *Client) Recognize(ctx context.Context, req RecognitionRequest) Result {
	descriptor, err := c.registry.ResolveVision()
	if err != nil {
		c.logCredentialMissing(ctx, descriptor, err)
		return failure(descriptor.LogicalName, err)
	}

	uriMime, data := recognition.SplitDataURI(req.ImageData)
	if data == "" {
		return failure(descriptor.LogicalName, recognition.ErrEmptyImage)
	}
	mimeType := req.MimeType
	if mimeType == "" {
		mimeType = uriMime
	}
	if mimeType == "" {
		mimeType = "image/jpeg"
	}

	instruction := req.PromptText
	if strings.TrimSpace(instruction) == "" {
		instruction = recognition.IdentifyPrompt
	}
	instruction = recognition.WithSymptoms(instruction, req.PriorSymptomText)

	messages := []ai.Message{
		ai.NewSystemMessage(recognition.SystemPrompt),
		{
			Role: ai.RoleUser,
			ContentParts: []ai.ContentPart{
				ai.NewImagePart(mimeType, data),
				ai.NewTextPart(instruction),
			},
		},
	}
	return c.Complete(ctx, descriptor, messages)
}

// provider resolves the credential and builds the provider for one call.
func (c *Client) provider(ctx context.Context, descriptor registry.Descriptor) (ai.Provider, error) {
	credential, err := c.registry.Credential(descriptor)
	if err != nil {
		c.logCredentialMissing(ctx, descriptor, err)
		return nil, err
	}
	return c.factory(descriptor, credential), nil
}

func (c *Client) chain(descriptor registry.Descriptor) []MiddlewareConfig {
	if c.observer == nil {
		return c.middlewares
	}
	chain := make([]MiddlewareConfig, 0, len(c.middlewares)+1)
	chain = append(chain, NewObservabilityMiddleware(c.observer, descriptor.LogicalName, descriptor.WireModelName))
	return append(chain, c.middlewares...)
}

func (c *Client) logCredentialMissing(ctx context.Context, descriptor registry.Descriptor, err error) {
	if c.observer == nil {
		return
	}
	c.observer.Warn(ctx, observability.EventCredentialMissing,
		observability.String(observability.AttrLLMProvider, descriptor.LogicalName),
		observability.String("credential_env", descriptor.CredentialEnvKey),
		observability.Error(err),
	)
}

func request(descriptor registry.Descriptor, messages []ai.Message) ai.ChatRequest {
	return ai.ChatRequest{Model: descriptor.WireModelName, Messages: messages}
}

// normalize makes sure every failure leaving the client is an *ai.Error.
// Middlewares may return plain context errors.
func normalize(ctx context.Context, descriptor registry.Descriptor, err error) error {
	var providerErr *ai.Error
	if errors.As(err, &providerErr) {
		return err
	}
	if errors.Is(err, context.Canceled) || errors.Is(ctx.Err(), context.Canceled) {
		return ai.NewError(ai.KindCancelled, descriptor.LogicalName, "request cancelled", err)
	}
	return ai.NewError(ai.KindTransport, descriptor.LogicalName, "request failed", err)
}
