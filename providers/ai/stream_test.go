package ai

import (
	"errors"
	"iter"
	"testing"
)

// makeStream is a test helper that builds a ChatStream from a hand-crafted event
// slice. If midErr is non-nil and errAtIndex is a valid index, the error is
// yielded in place of that event and iteration stops.
func makeStream(events []StreamEvent, midErr error, errAtIndex int) *ChatStream {
	iteratorFunc := func(yield func(StreamEvent, error) bool) {
		for i, event := range events {
			if midErr != nil && i == errAtIndex {
				yield(StreamEvent{}, midErr)
				return
			}
			if !yield(event, nil) {
				return
			}
		}
	}
	return NewChatStream(iter.Seq2[StreamEvent, error](iteratorFunc))
}

// TestNewSingleEventStream_ContentOnly verifies that a response with only Content
// produces a content event followed by a done event.
func TestNewSingleEventStream_ContentOnly(t *testing.T) {
	response := &ChatResponse{Content: "water weekly", FinishReason: "stop"}
	stream := NewSingleEventStream(response)

	var collected []StreamEvent
	for event, err := range stream.Iter() {
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		collected = append(collected, event)
	}

	if len(collected) != 2 {
		t.Fatalf("expected 2 events (content + done), got %d", len(collected))
	}
	if collected[0].Type != StreamEventContent || collected[0].Content != "water weekly" {
		t.Errorf("unexpected first event: %+v", collected[0])
	}
	if collected[1].Type != StreamEventDone || collected[1].FinishReason != "stop" {
		t.Errorf("unexpected last event: %+v", collected[1])
	}
}

// TestNewSingleEventStream_WithUsage verifies the usage event sits between
// content and done.
func TestNewSingleEventStream_WithUsage(t *testing.T) {
	response := &ChatResponse{Content: "ok", Usage: &Usage{TotalTokens: 7}}

	var types []StreamEventType
	for event, err := range NewSingleEventStream(response).Iter() {
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		types = append(types, event.Type)
	}

	expected := []StreamEventType{StreamEventContent, StreamEventUsage, StreamEventDone}
	if len(types) != len(expected) {
		t.Fatalf("expected %v, got %v", expected, types)
	}
	for i := range expected {
		if types[i] != expected[i] {
			t.Errorf("event %d: expected %q, got %q", i, expected[i], types[i])
		}
	}
}

// TestChatStream_Collect_AccumulatesContent verifies deltas are concatenated in order.
func TestChatStream_Collect_AccumulatesContent(t *testing.T) {
	stream := makeStream([]StreamEvent{
		{Type: StreamEventContent, Content: "Hello"},
		{Type: StreamEventContent, Content: " world"},
		{Type: StreamEventUsage, Usage: &Usage{PromptTokens: 3, CompletionTokens: 2, TotalTokens: 5}},
		{Type: StreamEventDone, FinishReason: "stop"},
	}, nil, -1)

	response, err := stream.Collect()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if response.Content != "Hello world" {
		t.Errorf("expected %q, got %q", "Hello world", response.Content)
	}
	if response.Usage == nil || response.Usage.TotalTokens != 5 {
		t.Errorf("expected usage with 5 total tokens, got %+v", response.Usage)
	}
	if response.FinishReason != "stop" {
		t.Errorf("expected finish reason stop, got %q", response.FinishReason)
	}
}

// TestChatStream_Collect_MidStreamError verifies the partial content is kept
// alongside the error.
func TestChatStream_Collect_MidStreamError(t *testing.T) {
	boom := errors.New("connection reset")
	stream := makeStream([]StreamEvent{
		{Type: StreamEventContent, Content: "Part"},
		{Type: StreamEventContent, Content: "ial"},
		{Type: StreamEventContent, Content: "never"},
	}, boom, 2)

	response, err := stream.Collect()
	if !errors.Is(err, boom) {
		t.Fatalf("expected %v, got %v", boom, err)
	}
	if response.Content != "Partial" {
		t.Errorf("expected partial content %q, got %q", "Partial", response.Content)
	}
}

// TestChatStream_Iter_EarlyBreak verifies that breaking out of the loop stops
// the iterator without panicking.
func TestChatStream_Iter_EarlyBreak(t *testing.T) {
	stream := makeStream([]StreamEvent{
		{Type: StreamEventContent, Content: "a"},
		{Type: StreamEventContent, Content: "b"},
	}, nil, -1)

	count := 0
	for range stream.Iter() {
		count++
		break
	}
	if count != 1 {
		t.Errorf("expected 1 iteration, got %d", count)
	}
}
