package client

import (
	"context"

	"github.com/leofalp/plantcare/internal/utils"
	"github.com/leofalp/plantcare/providers/ai"
	"github.com/leofalp/plantcare/providers/observability"
)

// NewObservabilityMiddleware records a span, a request counter, a duration
// histogram and token counters for every call to providerName. The span and
// observer are put in the context so the provider can add events to them.
//
// For streams the outcome is recorded once the iterator finishes, fails or is
// abandoned by the caller. A caller that stops because its context ended is
// recorded as a cancelled failure.
func NewObservabilityMiddleware(observer observability.Provider, providerName, defaultModel string) MiddlewareConfig {
	labels := obsLabels{observer: observer, provider: providerName, defaultModel: defaultModel}
	return MiddlewareConfig{
		Send:   labels.send,
		Stream: labels.stream,
	}
}

type obsLabels struct {
	observer     observability.Provider
	provider     string
	defaultModel string
}

func (o obsLabels) model(request ai.ChatRequest) string {
	if request.Model != "" {
		return request.Model
	}
	return o.defaultModel
}

func (o obsLabels) attrs(model string, extra ...observability.Attribute) []observability.Attribute {
	return append([]observability.Attribute{
		observability.String(observability.AttrLLMProvider, o.provider),
		observability.String(observability.AttrLLMModel, model),
	}, extra...)
}

func (o obsLabels) start(ctx context.Context, spanName string, request ai.ChatRequest) (context.Context, observability.Span, string) {
	model := o.model(request)
	ctx, span := o.observer.StartSpan(ctx, spanName, o.attrs(model)...)
	ctx = observability.ContextWithSpan(ctx, span)
	ctx = observability.ContextWithObserver(ctx, o.observer)

	o.observer.Debug(ctx, "llm request",
		o.attrs(model, observability.Int(observability.AttrRequestMessagesCount, len(request.Messages)))...,
	)
	return ctx, span, model
}

func (o obsLabels) send(next SendFunc) SendFunc {
	return func(ctx context.Context, request ai.ChatRequest) (*ai.ChatResponse, error) {
		spanName := observability.SpanClientComplete
		if isVisionRequest(request) {
			spanName = observability.SpanClientRecognize
		}
		ctx, span, model := o.start(ctx, spanName, request)

		timer := utils.NewTimer()
		response, err := next(ctx, request)
		if err != nil {
			o.recordFailure(ctx, span, err, timer, model)
			return nil, err
		}

		o.recordSuccess(ctx, span, response, timer, model, -1)
		return response, nil
	}
}

func (o obsLabels) stream(next StreamFunc) StreamFunc {
	return func(ctx context.Context, request ai.ChatRequest) (*ai.ChatStream, error) {
		ctx, span, model := o.start(ctx, observability.SpanClientStreamComplete, request)

		timer := utils.NewTimer()
		stream, err := next(ctx, request)
		if err != nil {
			o.recordFailure(ctx, span, err, timer, model)
			return nil, err
		}

		iteratorFunc := func(yield func(ai.StreamEvent, error) bool) {
			response := &ai.ChatResponse{Model: model}
			chunks := 0

			for event, err := range stream.Iter() {
				if err != nil {
					o.recordFailure(ctx, span, err, timer, model)
					yield(event, err)
					return
				}

				switch event.Type {
				case ai.StreamEventContent:
					chunks++
				case ai.StreamEventUsage:
					response.Usage = event.Usage
				case ai.StreamEventDone:
					response.FinishReason = event.FinishReason
				}

				if !yield(event, nil) {
					if ctx.Err() != nil {
						o.recordFailure(ctx, span, ai.NewError(ai.KindCancelled, o.provider, "stream cancelled", ctx.Err()), timer, model)
						return
					}
					span.SetStatus(observability.StatusOK, "stream abandoned")
					span.End()
					o.observer.Info(ctx, "llm stream abandoned",
						o.attrs(model, observability.Duration(observability.AttrDuration, timer.Elapsed()))...,
					)
					return
				}
			}

			o.recordSuccess(ctx, span, response, timer, model, chunks)
		}
		return ai.NewChatStream(iteratorFunc), nil
	}
}

func (o obsLabels) recordFailure(ctx context.Context, span observability.Span, err error, timer *utils.Timer, model string) {
	kind := string(ai.KindOf(err))
	span.RecordError(err)
	span.SetAttributes(observability.String(observability.AttrErrorKind, kind))
	span.SetStatus(observability.StatusError, "llm request failed")
	span.End()

	o.observer.Error(ctx, "llm request failed", o.attrs(model,
		observability.String(observability.AttrErrorKind, kind),
		observability.Error(err),
		observability.Duration(observability.AttrDuration, timer.Elapsed()),
	)...)

	o.observer.Counter(observability.MetricClientRequestCount).Add(ctx, 1, o.attrs(model,
		observability.String(observability.AttrStatus, "error"),
		observability.String(observability.AttrErrorKind, kind),
	)...)
}

// recordSuccess writes the success metrics and ends the span. chunks < 0
// means the call was not streamed.
func (o obsLabels) recordSuccess(ctx context.Context, span observability.Span, response *ai.ChatResponse, timer *utils.Timer, model string, chunks int) {
	o.observer.Histogram(observability.MetricClientRequestDuration).Record(ctx, timer.Milliseconds(), o.attrs(model)...)
	o.observer.Counter(observability.MetricClientRequestCount).Add(ctx, 1,
		o.attrs(model, observability.String(observability.AttrStatus, "success"))...,
	)

	logAttrs := o.attrs(model,
		observability.String(observability.AttrLLMFinishReason, response.FinishReason),
		observability.Duration(observability.AttrDuration, timer.Elapsed()),
	)

	if chunks >= 0 {
		o.observer.Counter(observability.MetricClientStreamChunks).Add(ctx, int64(chunks), o.attrs(model)...)
		span.SetAttributes(observability.Int(observability.AttrStreamChunks, chunks))
		logAttrs = append(logAttrs, observability.Int(observability.AttrStreamChunks, chunks))
	}

	if usage := response.Usage; usage != nil {
		o.observer.Counter(observability.MetricClientTokensTotal).Add(ctx, int64(usage.TotalTokens), o.attrs(model)...)
		o.observer.Counter(observability.MetricClientTokensPrompt).Add(ctx, int64(usage.PromptTokens), o.attrs(model)...)
		o.observer.Counter(observability.MetricClientTokensCompletion).Add(ctx, int64(usage.CompletionTokens), o.attrs(model)...)

		tokenAttrs := []observability.Attribute{
			observability.Int(observability.AttrLLMTokensTotal, usage.TotalTokens),
			observability.Int(observability.AttrLLMTokensPrompt, usage.PromptTokens),
			observability.Int(observability.AttrLLMTokensCompletion, usage.CompletionTokens),
		}
		span.SetAttributes(tokenAttrs...)
		logAttrs = append(logAttrs, tokenAttrs...)
	}

	if response.Content != "" {
		logAttrs = append(logAttrs,
			observability.String(observability.AttrResponseContent, utils.TruncateString(response.Content, 100)),
		)
	}

	o.observer.Info(ctx, "llm request completed", logAttrs...)

	span.SetStatus(observability.StatusOK, "success")
	span.End()
}

func isVisionRequest(request ai.ChatRequest) bool {
	for _, message := range request.Messages {
		for _, part := range message.ContentParts {
			if part.Type == ai.ContentTypeImage {
				return true
			}
		}
	}
	return false
}
