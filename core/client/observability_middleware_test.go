package client

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"

	"github.com/leofalp/plantcare/core/registry"
	"github.com/leofalp/plantcare/providers/ai"
	"github.com/leofalp/plantcare/providers/observability"
	slogobs "github.com/leofalp/plantcare/providers/observability/slog"
)

func testObserver() (*slogobs.Observer, *bytes.Buffer) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	return slogobs.New(logger), &buf
}

func TestObservability_CompleteRecordsMetrics(t *testing.T) {
	server := completionServer(t, nil, succulentAnswer)
	defer server.Close()

	observer, buf := testObserver()
	c := testClient(t, server.URL, WithObserver(observer))

	if result := c.Complete(context.Background(), primary(t, c), []ai.Message{ai.NewUserMessage("hi")}); !result.OK() {
		t.Fatalf("unexpected failure: %v", result.Err)
	}

	if got := observer.CounterValue(observability.MetricClientRequestCount); got != 1 {
		t.Errorf("expected 1 request, got %d", got)
	}
	if got := observer.CounterValue(observability.MetricClientTokensTotal); got != 21 {
		t.Errorf("expected 21 tokens, got %d", got)
	}
	if got := observer.HistogramCount(observability.MetricClientRequestDuration); got != 1 {
		t.Errorf("expected one duration sample, got %d", got)
	}
	output := buf.String()
	if !strings.Contains(output, observability.SpanClientComplete) || !strings.Contains(output, "llm request completed") {
		t.Errorf("expected span and completion log, got: %s", output)
	}
	if strings.Contains(output, "sk-primary") {
		t.Error("credential leaked into the log")
	}
}

func TestObservability_StreamCountsChunks(t *testing.T) {
	server := streamServer(t, deltaLine("a"), deltaLine("b"), deltaLine("c"), "data: [DONE]\n")
	defer server.Close()

	observer, buf := testObserver()
	c := testClient(t, server.URL, WithObserver(observer))

	if result := c.StreamComplete(context.Background(), primary(t, c), []ai.Message{ai.NewUserMessage("hi")}, nil); !result.OK() {
		t.Fatalf("unexpected failure: %v", result.Err)
	}

	if got := observer.CounterValue(observability.MetricClientStreamChunks); got != 3 {
		t.Errorf("expected 3 chunks, got %d", got)
	}
	if !strings.Contains(buf.String(), observability.SpanClientStreamComplete) {
		t.Errorf("expected stream span, got: %s", buf.String())
	}
}

func TestObservability_RecognizeUsesVisionSpan(t *testing.T) {
	server := completionServer(t, nil, "Aloe vera")
	defer server.Close()

	observer, buf := testObserver()
	c := testClient(t, server.URL, WithObserver(observer))

	if result := c.Recognize(context.Background(), RecognitionRequest{ImageData: "QUJD"}); !result.OK() {
		t.Fatalf("unexpected failure: %v", result.Err)
	}
	if !strings.Contains(buf.String(), observability.SpanClientRecognize) {
		t.Errorf("expected recognize span, got: %s", buf.String())
	}
}

func TestObservability_FailureRecordsKind(t *testing.T) {
	observer, buf := testObserver()
	c := fakeClient(t, &fakeProvider{err: ai.NewError(ai.KindHTTPStatus, "primary", "status 500", nil)}, WithObserver(observer))

	result := c.Complete(context.Background(), primary(t, c), []ai.Message{ai.NewUserMessage("hi")})
	if result.OK() {
		t.Fatal("expected failure")
	}

	if got := observer.CounterValue(observability.MetricClientRequestCount); got != 1 {
		t.Errorf("expected failed request to be counted, got %d", got)
	}
	if !strings.Contains(buf.String(), string(ai.KindHTTPStatus)) {
		t.Errorf("expected error kind in log, got: %s", buf.String())
	}
}

func TestObservability_MissingCredentialIsLogged(t *testing.T) {
	observer, buf := testObserver()
	reg := testRegistry(t, "http://127.0.0.1:1", registry.MapSource{})
	c, err := New(reg, WithObserver(observer))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	c.Complete(context.Background(), primary(t, c), []ai.Message{ai.NewUserMessage("hi")})

	if !strings.Contains(buf.String(), observability.EventCredentialMissing) || !strings.Contains(buf.String(), "PRIMARY_KEY") {
		t.Errorf("expected credential warning, got: %s", buf.String())
	}
}

func twoChunkStream(context.Context, ai.ChatRequest) (*ai.ChatStream, error) {
	return ai.NewChatStream(func(yield func(ai.StreamEvent, error) bool) {
		for _, content := range []string{"first", "second"} {
			if !yield(ai.StreamEvent{Type: ai.StreamEventContent, Content: content}, nil) {
				return
			}
		}
		yield(ai.StreamEvent{Type: ai.StreamEventDone}, nil)
	}), nil
}

func TestObservability_CancelledStreamRecordsCancelled(t *testing.T) {
	observer, buf := testObserver()
	stream := NewObservabilityMiddleware(observer, "primary", "chat-model").Stream(twoChunkStream)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	chatStream, err := stream(ctx, ai.ChatRequest{Messages: []ai.Message{ai.NewUserMessage("hi")}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for range chatStream.Iter() {
		cancel()
		if ctx.Err() != nil {
			break
		}
	}

	output := buf.String()
	if !strings.Contains(output, observability.AttrErrorKind+"="+string(ai.KindCancelled)) {
		t.Errorf("expected cancelled error kind, got: %s", output)
	}
	if strings.Contains(output, "stream abandoned") {
		t.Errorf("cancelled stream should not be logged as abandoned: %s", output)
	}
	if got := observer.CounterValue(observability.MetricClientRequestCount); got != 1 {
		t.Errorf("expected the cancelled request to be counted, got %d", got)
	}
}

func TestObservability_AbandonedStreamIsNotAFailure(t *testing.T) {
	observer, buf := testObserver()
	stream := NewObservabilityMiddleware(observer, "primary", "chat-model").Stream(twoChunkStream)

	chatStream, err := stream(context.Background(), ai.ChatRequest{Messages: []ai.Message{ai.NewUserMessage("hi")}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for range chatStream.Iter() {
		break
	}

	output := buf.String()
	if !strings.Contains(output, "llm stream abandoned") {
		t.Errorf("expected abandoned log, got: %s", output)
	}
	if strings.Contains(output, "llm request failed") {
		t.Errorf("did not expect a failure record: %s", output)
	}
}
