package inmemory

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/leofalp/plantcare/providers/ai"
	"github.com/leofalp/plantcare/providers/memory"
)

func TestHistory_AppendAndAllMessages(t *testing.T) {
	ctx := context.Background()
	h := New()

	_ = h.AppendMessage(ctx, &ai.Message{Role: ai.RoleUser, Content: "hi"})
	_ = h.AppendMessage(ctx, &ai.Message{Role: ai.RoleAssistant, Content: "hello"})
	_ = h.AppendMessage(ctx, nil)

	if n, _ := h.Count(ctx); n != 2 {
		t.Fatalf("expected 2 messages, got %d", n)
	}

	all, _ := h.AllMessages(ctx)
	all[0].Content = "changed"
	again, _ := h.AllMessages(ctx)
	if again[0].Content != "hi" {
		t.Fatal("expected AllMessages to return a copy")
	}
}

func TestHistory_LastMessages(t *testing.T) {
	ctx := context.Background()
	h := New()
	for i := 0; i < 5; i++ {
		_ = h.AppendMessage(ctx, &ai.Message{Role: ai.RoleUser, Content: string(rune('a' + i))})
	}

	last, _ := h.LastMessages(ctx, 2)
	if len(last) != 2 || last[0].Content != "d" || last[1].Content != "e" {
		t.Fatalf("unexpected last messages: %v", last)
	}
	if none, _ := h.LastMessages(ctx, 0); none == nil || len(none) != 0 {
		t.Fatalf("expected empty non-nil slice, got %v", none)
	}
	if all, _ := h.LastMessages(ctx, 10); len(all) != 5 {
		t.Fatalf("expected all 5, got %d", len(all))
	}
}

func TestHistory_MaxMessagesDropsOldest(t *testing.T) {
	ctx := context.Background()
	h := New(WithMaxMessages(3))
	for i := 0; i < 5; i++ {
		_ = h.AppendMessage(ctx, &ai.Message{Role: ai.RoleUser, Content: fmt.Sprint(i)})
	}

	all, _ := h.AllMessages(ctx)
	if len(all) != 3 || all[0].Content != "2" || all[2].Content != "4" {
		t.Fatalf("expected the newest three, got %v", all)
	}
}

func TestHistory_DropsImageParts(t *testing.T) {
	ctx := context.Background()
	h := New()
	_ = h.AppendMessage(ctx, &ai.Message{Role: ai.RoleUser, ContentParts: []ai.ContentPart{
		ai.NewImagePart("image/png", "QUJD"),
		ai.NewTextPart("What plant is this?"),
	}})

	all, _ := h.AllMessages(ctx)
	if len(all[0].ContentParts) != 0 || all[0].Content != "What plant is this?" {
		t.Fatalf("expected text-only message, got %+v", all[0])
	}
}

func TestHistory_Clear(t *testing.T) {
	ctx := context.Background()
	h := New()
	_ = h.AppendMessage(ctx, &ai.Message{Role: ai.RoleUser, Content: "x"})

	if err := h.ClearMessages(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n, _ := h.Count(ctx); n != 0 {
		t.Fatalf("expected empty history, got %d", n)
	}
}

func TestHistory_ConcurrentAppend(t *testing.T) {
	ctx := context.Background()
	h := New()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = h.AppendMessage(ctx, &ai.Message{Role: ai.RoleUser, Content: "x"})
		}()
	}
	wg.Wait()

	if n, _ := h.Count(ctx); n != 50 {
		t.Fatalf("expected 50, got %d", n)
	}
}

func TestStore_ConversationsAreIsolated(t *testing.T) {
	ctx := context.Background()
	store := NewStore()

	a, _ := store.Conversation(ctx, "a")
	b, _ := store.Conversation(ctx, "b")
	_ = memory.AppendTurn(ctx, a, ai.NewUserMessage("q"), ai.NewAssistantMessage("r"))

	if n, _ := b.Count(ctx); n != 0 {
		t.Fatalf("expected conversation b to be empty, got %d", n)
	}
	again, _ := store.Conversation(ctx, "a")
	if n, _ := again.Count(ctx); n != 2 {
		t.Fatalf("expected the same conversation back, got %d messages", n)
	}

	if _, err := store.Conversation(ctx, ""); !errors.Is(err, memory.ErrInvalidConversation) {
		t.Fatalf("expected ErrInvalidConversation, got %v", err)
	}
}

func TestStore_ReadsDoNotAllocate(t *testing.T) {
	ctx := context.Background()
	store := NewStore()

	for i := 0; i < 100; i++ {
		history, err := store.Conversation(ctx, fmt.Sprintf("reader-%d", i))
		if err != nil {
			t.Fatalf("Conversation: %v", err)
		}
		if n, _ := history.Count(ctx); n != 0 {
			t.Fatalf("expected empty history, got %d", n)
		}
		if msgs, _ := history.AllMessages(ctx); msgs == nil || len(msgs) != 0 {
			t.Fatalf("expected empty non-nil slice, got %v", msgs)
		}
		if msgs, _ := history.LastMessages(ctx, 10); len(msgs) != 0 {
			t.Fatalf("expected no messages, got %v", msgs)
		}
	}

	if got := store.len(); got != 0 {
		t.Fatalf("expected no stored conversations after reads, got %d", got)
	}
}

func TestStore_AppendAllocatesAndClearReleases(t *testing.T) {
	ctx := context.Background()
	store := NewStore(WithMaxMessages(3))

	history, _ := store.Conversation(ctx, "fern")
	_ = memory.AppendTurn(ctx, history, ai.NewUserMessage("q1"), ai.NewAssistantMessage("a1"))
	_ = memory.AppendTurn(ctx, history, ai.NewUserMessage("q2"), ai.NewAssistantMessage("a2"))

	if got := store.len(); got != 1 {
		t.Fatalf("expected one stored conversation, got %d", got)
	}
	if n, _ := history.Count(ctx); n != 3 {
		t.Fatalf("expected store options to cap the history at 3, got %d", n)
	}

	if err := history.ClearMessages(ctx); err != nil {
		t.Fatalf("ClearMessages: %v", err)
	}
	if got := store.len(); got != 0 {
		t.Fatalf("expected the conversation to be released, got %d", got)
	}
	if n, _ := history.Count(ctx); n != 0 {
		t.Fatalf("expected empty history after clear, got %d", n)
	}
}
