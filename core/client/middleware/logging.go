package middleware

import (
	"context"
	"log/slog"
	"time"

	"github.com/leofalp/plantcare/core/client"
	"github.com/leofalp/plantcare/internal/utils"
	"github.com/leofalp/plantcare/providers/ai"
)

// LogLevel controls how much the logging middleware writes per call.
type LogLevel int

const (
	// LogLevelMinimal logs model, duration and token counts.
	LogLevelMinimal LogLevel = iota
	// LogLevelStandard adds message count and finish reason.
	LogLevelStandard
	// LogLevelVerbose adds the last user turn and the answer, truncated to 500
	// characters. Prompts may contain personal data; keep it out of production.
	LogLevelVerbose
)

const truncateLen = 500

// NewLoggingMiddleware logs every call on logger. Stream completion is logged
// once the iterator ends. Credentials never reach the log.
func NewLoggingMiddleware(logger *slog.Logger, level LogLevel) client.MiddlewareConfig {
	if logger == nil {
		logger = slog.Default()
	}
	l := requestLogger{logger: logger, level: level}
	return client.MiddlewareConfig{
		Send:   l.send,
		Stream: l.stream,
	}
}

type requestLogger struct {
	logger *slog.Logger
	level  LogLevel
}

func (l requestLogger) send(next client.SendFunc) client.SendFunc {
	return func(ctx context.Context, request ai.ChatRequest) (*ai.ChatResponse, error) {
		l.logger.InfoContext(ctx, "llm send", l.requestAttrs(request)...)

		start := time.Now()
		response, err := next(ctx, request)
		if err != nil {
			l.failed(ctx, "llm send failed", request.Model, start, err)
			return nil, err
		}

		attrs := l.completionAttrs(request.Model, start, response.FinishReason, response.Usage)
		if l.level >= LogLevelVerbose {
			attrs = append(attrs, slog.String("response_content", utils.TruncateString(response.Content, truncateLen)))
		}
		l.logger.InfoContext(ctx, "llm send completed", attrs...)
		return response, nil
	}
}

func (l requestLogger) stream(next client.StreamFunc) client.StreamFunc {
	return func(ctx context.Context, request ai.ChatRequest) (*ai.ChatStream, error) {
		l.logger.InfoContext(ctx, "llm stream", l.requestAttrs(request)...)

		start := time.Now()
		stream, err := next(ctx, request)
		if err != nil {
			l.failed(ctx, "llm stream failed", request.Model, start, err)
			return nil, err
		}

		iteratorFunc := func(yield func(ai.StreamEvent, error) bool) {
			var finishReason string
			var usage *ai.Usage

			for event, err := range stream.Iter() {
				if err != nil {
					l.failed(ctx, "llm stream failed", request.Model, start, err)
					yield(event, err)
					return
				}
				switch event.Type {
				case ai.StreamEventUsage:
					usage = event.Usage
				case ai.StreamEventDone:
					finishReason = event.FinishReason
				}
				if !yield(event, nil) {
					l.logger.InfoContext(ctx, "llm stream abandoned",
						slog.String("model", request.Model),
						slog.Duration("duration", time.Since(start)),
					)
					return
				}
			}

			l.logger.InfoContext(ctx, "llm stream completed", l.completionAttrs(request.Model, start, finishReason, usage)...)
		}
		return ai.NewChatStream(iteratorFunc), nil
	}
}

func (l requestLogger) failed(ctx context.Context, msg, model string, start time.Time, err error) {
	l.logger.ErrorContext(ctx, msg,
		slog.String("model", model),
		slog.Duration("duration", time.Since(start)),
		slog.String("kind", string(ai.KindOf(err))),
		slog.String("error", err.Error()),
	)
}

func (l requestLogger) requestAttrs(request ai.ChatRequest) []any {
	attrs := []any{slog.String("model", request.Model)}
	if l.level >= LogLevelStandard {
		attrs = append(attrs, slog.Int("message_count", len(request.Messages)))
	}
	if l.level >= LogLevelVerbose && len(request.Messages) > 0 {
		last := request.Messages[len(request.Messages)-1]
		content := last.Content
		if len(last.ContentParts) > 0 {
			content = "[multimodal]"
		}
		attrs = append(attrs,
			slog.String("last_message_role", string(last.Role)),
			slog.String("last_message_content", utils.TruncateString(content, truncateLen)),
		)
	}
	return attrs
}

func (l requestLogger) completionAttrs(model string, start time.Time, finishReason string, usage *ai.Usage) []any {
	attrs := []any{
		slog.String("model", model),
		slog.Duration("duration", time.Since(start)),
	}
	if usage != nil {
		attrs = append(attrs,
			slog.Int("prompt_tokens", usage.PromptTokens),
			slog.Int("completion_tokens", usage.CompletionTokens),
			slog.Int("total_tokens", usage.TotalTokens),
		)
	}
	if l.level >= LogLevelStandard && finishReason != "" {
		attrs = append(attrs, slog.String("finish_reason", finishReason))
	}
	return attrs
}
