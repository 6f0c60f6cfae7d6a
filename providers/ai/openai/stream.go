package openai

import (
	"context"
	"io"

	"github.com/tidwall/gjson"

	"github.com/leofalp/plantcare/internal/utils"
	"github.com/leofalp/plantcare/providers/ai"
	"github.com/leofalp/plantcare/providers/observability"
)

// StreamMessage sends the request with stream=true and returns a ChatStream
// of deltas. Failures before the first byte of the body (credential, status,
// network) are returned directly; later ones are yielded by the iterator.
//
// Only data lines whose JSON has a string at choices[0].delta.content produce
// content events. Other JSON payloads and non-JSON payloads are ignored. The
// stream ends with a done event at "data: [DONE]" or at end of body.
func (p *OpenAIProvider) StreamMessage(ctx context.Context, request ai.ChatRequest) (*ai.ChatStream, error) {
	span := observability.SpanFromContext(ctx)
	observer := observability.ObserverFromContext(ctx)
	p.annotate(ctx, span, observer, request, true)

	if p.apiKey == "" {
		return nil, ai.NewError(ai.KindCredentialMissing, p.name, "API key is not set", nil)
	}

	chatRequest := requestToChatCompletion(request, p.model, true)
	if p.capabilities.SupportsStreamUsage {
		chatRequest.StreamOptions = &streamOptions{IncludeUsage: true}
	}
	p.traceRequest(ctx, observer, chatRequest)

	httpResponse, err := utils.DoPostStream(ctx, p.client, p.Endpoint(), p.apiKey, chatRequest)
	if err != nil {
		providerErr := p.classify(ctx, err)
		if observer != nil {
			observer.Debug(ctx, "streaming request failed",
				observability.String(observability.AttrLLMProvider, p.name),
				observability.String(observability.AttrErrorKind, string(providerErr.Kind)),
				observability.Error(err),
			)
		}
		return nil, providerErr
	}

	if span != nil {
		span.AddEvent(observability.EventLLMStreamStarted)
	}

	scanner := utils.NewSSEScannerSize(httpResponse.Body, p.maxLineSize)

	iteratorFunc := func(yield func(ai.StreamEvent, error) bool) {
		defer utils.CloseWithLog(httpResponse.Body)

		var finishReason string
		for {
			if ctx.Err() != nil {
				yield(ai.StreamEvent{}, p.classify(ctx, ctx.Err()))
				return
			}

			payload, scanErr := scanner.Next()
			if scanErr == io.EOF {
				yield(ai.StreamEvent{Type: ai.StreamEventDone, FinishReason: finishReason}, nil)
				return
			}
			if scanErr != nil {
				yield(ai.StreamEvent{}, p.classify(ctx, scanErr))
				return
			}

			events, reason := payloadToStreamEvents(payload)
			if reason != "" {
				finishReason = reason
			}
			for _, event := range events {
				if !yield(event, nil) {
					return
				}
			}
		}
	}

	return ai.NewChatStream(iteratorFunc), nil
}

// payloadToStreamEvents extracts content and usage events from one data
// payload, plus the finish reason when the chunk carries one.
func payloadToStreamEvents(payload string) ([]ai.StreamEvent, string) {
	if !gjson.Valid(payload) {
		return nil, ""
	}

	var events []ai.StreamEvent
	chunk := gjson.Parse(payload)

	content := chunk.Get("choices.0.delta.content")
	if content.Type == gjson.String && content.Str != "" {
		events = append(events, ai.StreamEvent{Type: ai.StreamEventContent, Content: content.Str})
	}

	if usage := chunk.Get("usage"); usage.IsObject() {
		events = append(events, ai.StreamEvent{
			Type: ai.StreamEventUsage,
			Usage: &ai.Usage{
				PromptTokens:     int(usage.Get("prompt_tokens").Int()),
				CompletionTokens: int(usage.Get("completion_tokens").Int()),
				TotalTokens:      int(usage.Get("total_tokens").Int()),
			},
		})
	}

	finishReason := chunk.Get("choices.0.finish_reason")
	if finishReason.Type == gjson.String {
		return events, finishReason.Str
	}
	return events, ""
}
