package inmemory

import (
	"context"
	"sync"

	"github.com/leofalp/plantcare/providers/ai"
	"github.com/leofalp/plantcare/providers/memory"
	"github.com/leofalp/plantcare/providers/observability"
)

// History is a concurrency-safe, slice-backed conversation history.
type History struct {
	mu          sync.RWMutex
	messages    []ai.Message
	maxMessages int
}

var _ memory.Provider = (*History)(nil)

// Option configures a History.
type Option func(*History)

// WithMaxMessages caps the history; the oldest messages are dropped first.
// Zero or less means unbounded.
func WithMaxMessages(n int) Option {
	return func(h *History) {
		h.maxMessages = n
	}
}

// New returns an empty History.
func New(opts ...Option) *History {
	h := &History{messages: []ai.Message{}}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// AppendMessage stores the text of message. When a span is present in ctx an
// event with the role and length is recorded.
func (h *History) AppendMessage(ctx context.Context, message *ai.Message) error {
	if message == nil {
		return nil
	}
	stored := memory.TextOnly(*message)

	span := observability.SpanFromContext(ctx)
	if span != nil {
		span.AddEvent(observability.EventMemoryAppend,
			observability.String(observability.AttrMemoryMessageRole, string(stored.Role)),
			observability.Int(observability.AttrMemoryMessageLength, len(stored.Content)),
		)
	}

	h.mu.Lock()
	h.messages = append(h.messages, stored)
	if h.maxMessages > 0 && len(h.messages) > h.maxMessages {
		dropped := len(h.messages) - h.maxMessages
		h.messages = append(h.messages[:0], h.messages[dropped:]...)
	}
	total := len(h.messages)
	h.mu.Unlock()

	if span != nil {
		span.SetAttributes(observability.Int(observability.AttrMemoryTotalMessages, total))
	}
	return nil
}

func (h *History) Count(_ context.Context) (int, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.messages), nil
}

// AllMessages returns a copy of the history.
func (h *History) AllMessages(_ context.Context) ([]ai.Message, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]ai.Message, len(h.messages))
	copy(out, h.messages)
	return out, nil
}

// LastMessages returns a copy of up to the last n messages. It returns an
// empty, non-nil slice when n <= 0.
func (h *History) LastMessages(_ context.Context, n int) ([]ai.Message, error) {
	if n <= 0 {
		return []ai.Message{}, nil
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	if n > len(h.messages) {
		n = len(h.messages)
	}
	out := make([]ai.Message, n)
	copy(out, h.messages[len(h.messages)-n:])
	return out, nil
}

// ClearMessages empties the history and keeps its capacity.
func (h *History) ClearMessages(ctx context.Context) error {
	if span := observability.SpanFromContext(ctx); span != nil {
		span.AddEvent(observability.EventMemoryClear)
	}

	h.mu.Lock()
	h.messages = h.messages[:0]
	h.mu.Unlock()
	return nil
}

// Store keeps one History per conversation id.
type Store struct {
	mu            sync.Mutex
	conversations map[string]*History
	opts          []Option
}

var _ memory.Store = (*Store)(nil)

// NewStore returns an empty Store. opts apply to every conversation it creates.
func NewStore(opts ...Option) *Store {
	return &Store{conversations: make(map[string]*History), opts: opts}
}

// Conversation returns a handle on the history for id. The history is only
// allocated by the first append, so reads of unknown ids cost nothing, and
// ClearMessages releases it.
func (s *Store) Conversation(_ context.Context, id string) (memory.Provider, error) {
	if id == "" {
		return nil, memory.ErrInvalidConversation
	}
	return conversation{store: s, id: id}, nil
}

func (s *Store) lookup(id string) *History {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conversations[id]
}

func (s *Store) open(id string) *History {
	s.mu.Lock()
	defer s.mu.Unlock()
	history, ok := s.conversations[id]
	if !ok {
		history = New(s.opts...)
		s.conversations[id] = history
	}
	return history
}

// conversation resolves its History on every call.
type conversation struct {
	store *Store
	id    string
}

func (c conversation) AppendMessage(ctx context.Context, message *ai.Message) error {
	if message == nil {
		return nil
	}
	return c.store.open(c.id).AppendMessage(ctx, message)
}

func (c conversation) Count(ctx context.Context) (int, error) {
	if history := c.store.lookup(c.id); history != nil {
		return history.Count(ctx)
	}
	return 0, nil
}

func (c conversation) AllMessages(ctx context.Context) ([]ai.Message, error) {
	if history := c.store.lookup(c.id); history != nil {
		return history.AllMessages(ctx)
	}
	return []ai.Message{}, nil
}

func (c conversation) LastMessages(ctx context.Context, n int) ([]ai.Message, error) {
	if history := c.store.lookup(c.id); history != nil {
		return history.LastMessages(ctx, n)
	}
	return []ai.Message{}, nil
}

func (c conversation) ClearMessages(ctx context.Context) error {
	if span := observability.SpanFromContext(ctx); span != nil {
		span.AddEvent(observability.EventMemoryClear)
	}
	c.store.mu.Lock()
	delete(c.store.conversations, c.id)
	c.store.mu.Unlock()
	return nil
}

func (s *Store) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.conversations)
}
