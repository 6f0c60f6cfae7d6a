package openai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/leofalp/plantcare/internal/utils"
	"github.com/leofalp/plantcare/providers/ai"
)

// streamServer writes each chunk and flushes so the client sees separate reads.
func streamServer(t *testing.T, chunks ...string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		flusher, _ := w.(http.Flusher)
		for _, chunk := range chunks {
			fmt.Fprint(w, chunk)
			if flusher != nil {
				flusher.Flush()
			}
		}
	}))
}

// drain collects content deltas, the last finish reason and the terminal error.
func drain(stream *ai.ChatStream) (deltas []string, done bool, err error) {
	for event, iterErr := range stream.Iter() {
		if iterErr != nil {
			return deltas, done, iterErr
		}
		switch event.Type {
		case ai.StreamEventContent:
			deltas = append(deltas, event.Content)
		case ai.StreamEventDone:
			done = true
		}
	}
	return deltas, done, nil
}

func TestStreamMessage_HelloWorld(t *testing.T) {
	server := streamServer(t,
		"data: {\"choices\":[{\"delta\":{\"content\":\"Hello\"}}]}\n",
		"data: {\"choices\":[{\"delta\":{\"content\":\" world\"}}]}\n",
		"data: [DONE]\n",
	)
	defer server.Close()

	stream, err := newTestProvider(server, "").StreamMessage(context.Background(), ai.ChatRequest{Messages: []ai.Message{ai.NewUserMessage("hi")}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	deltas, done, err := drain(stream)
	if err != nil {
		t.Fatalf("unexpected stream error: %v", err)
	}
	if strings.Join(deltas, "|") != "Hello| world" {
		t.Errorf("unexpected deltas %q", deltas)
	}
	if !done {
		t.Error("expected a done event")
	}
}

func TestStreamMessage_LineSplitAcrossWrites(t *testing.T) {
	server := streamServer(t,
		"data: {\"choices\":[{\"del",
		"ta\":{\"content\":\"Fic\"}}]}\ndata: {\"choices\":[{\"delta\":{\"content\":\"us\"}}]",
		"}\n\ndata: [DO",
		"NE]\n",
	)
	defer server.Close()

	stream, err := newTestProvider(server, "").StreamMessage(context.Background(), ai.ChatRequest{Messages: []ai.Message{ai.NewUserMessage("hi")}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	response, err := stream.Collect()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if response.Content != "Ficus" {
		t.Errorf("expected Ficus, got %q", response.Content)
	}
}

func TestStreamMessage_IgnoresNonContentPayloads(t *testing.T) {
	server := streamServer(t,
		": comment\n",
		"data: {\"choices\":[{\"delta\":{\"role\":\"assistant\"}}]}\n",
		"data: not-json\n",
		"data: {\"choices\":[{\"delta\":{\"content\":\"\"}}]}\n",
		"data: {\"choices\":[{\"delta\":{\"content\":42}}]}\n",
		"data: {\"choices\":[{\"delta\":{\"content\":\"leaf\"},\"finish_reason\":\"stop\"}]}\n",
		"data: {\"choices\":[],\"usage\":{\"prompt_tokens\":4,\"completion_tokens\":1,\"total_tokens\":5}}\n",
	)
	defer server.Close()

	stream, err := newTestProvider(server, "").StreamMessage(context.Background(), ai.ChatRequest{Messages: []ai.Message{ai.NewUserMessage("hi")}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	response, err := stream.Collect()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if response.Content != "leaf" {
		t.Errorf("expected only the string delta, got %q", response.Content)
	}
	if response.FinishReason != "stop" {
		t.Errorf("expected finish reason stop, got %q", response.FinishReason)
	}
	if response.Usage == nil || response.Usage.TotalTokens != 5 {
		t.Errorf("expected usage to be reported, got %+v", response.Usage)
	}
}

func TestStreamMessage_StreamOptionsFollowCapabilities(t *testing.T) {
	var sawOptions []bool
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body := decodeRequest(t, r)
		if body["stream"] != true {
			t.Errorf("expected stream=true, got %v", body["stream"])
		}
		_, ok := body["stream_options"]
		sawOptions = append(sawOptions, ok)
		fmt.Fprint(w, "data: [DONE]\n")
	}))
	defer server.Close()

	request := ai.ChatRequest{Messages: []ai.Message{ai.NewUserMessage("hi")}}

	plain := newTestProvider(server, "")
	stream, err := plain.StreamMessage(context.Background(), request)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	_, _ = stream.Collect()

	withUsage := newTestProvider(server, "").WithCapabilities(Capabilities{SupportsStreamUsage: true})
	stream, err = withUsage.StreamMessage(context.Background(), request)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	_, _ = stream.Collect()

	if len(sawOptions) != 2 || sawOptions[0] || !sawOptions[1] {
		t.Errorf("expected stream_options only with usage capability, got %v", sawOptions)
	}
}

func TestStreamMessage_EndWithoutDoneSucceeds(t *testing.T) {
	server := streamServer(t, "data: {\"choices\":[{\"delta\":{\"content\":\"Pothos\"}}]}")
	defer server.Close()

	stream, err := newTestProvider(server, "").StreamMessage(context.Background(), ai.ChatRequest{Messages: []ai.Message{ai.NewUserMessage("hi")}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	deltas, done, err := drain(stream)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(deltas) != 1 || deltas[0] != "Pothos" || !done {
		t.Errorf("unexpected result deltas=%q done=%v", deltas, done)
	}
}

func TestStreamMessage_StatusFailureBeforeStream(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		fmt.Fprint(w, `{"error":"rate limited"}`)
	}))
	defer server.Close()

	_, err := newTestProvider(server, "").StreamMessage(context.Background(), ai.ChatRequest{Messages: []ai.Message{ai.NewUserMessage("hi")}})
	if !errors.Is(err, ai.ErrHTTPStatus) {
		t.Fatalf("expected http_status_failure, got %v", err)
	}
}

func TestStreamMessage_DecodeFailures(t *testing.T) {
	tests := []struct {
		name  string
		chunk string
	}{
		{"invalid utf8", "data: {\"choices\":[{\"delta\":{\"content\":\"ok\"}}]}\ndata: \xff\xfe\n"},
		{"line too long", "data: {\"choices\":[{\"delta\":{\"content\":\"ok\"}}]}\ndata: " + strings.Repeat("x", utils.MaxDataLineSize+1)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := streamServer(t, tt.chunk)
			defer server.Close()

			stream, err := newTestProvider(server, "").StreamMessage(context.Background(), ai.ChatRequest{Messages: []ai.Message{ai.NewUserMessage("hi")}})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			deltas, _, err := drain(stream)
			if !errors.Is(err, ai.ErrStreamDecode) {
				t.Fatalf("expected stream_decode_failure, got %v", err)
			}
			if len(deltas) != 1 || deltas[0] != "ok" {
				t.Errorf("expected the delta before the failure to survive, got %q", deltas)
			}
		})
	}
}

func TestStreamMessage_MissingAPIKey(t *testing.T) {
	provider := New()
	_, err := provider.StreamMessage(context.Background(), ai.ChatRequest{Messages: []ai.Message{ai.NewUserMessage("hi")}})
	if !errors.Is(err, ai.ErrCredentialMissing) {
		t.Fatalf("expected credential_missing, got %v", err)
	}
}

func TestPayloadToStreamEvents(t *testing.T) {
	events, reason := payloadToStreamEvents(`{"choices":[{"delta":{"content":"a"},"finish_reason":null}]}`)
	if len(events) != 1 || events[0].Content != "a" || reason != "" {
		t.Errorf("unexpected events %+v reason %q", events, reason)
	}

	events, reason = payloadToStreamEvents(`{"choices":[{"delta":{},"finish_reason":"length"}]}`)
	if len(events) != 0 || reason != "length" {
		t.Errorf("unexpected events %+v reason %q", events, reason)
	}

	events, _ = payloadToStreamEvents(`{"broken": `)
	if events != nil {
		t.Errorf("expected invalid JSON to be skipped, got %+v", events)
	}
}
