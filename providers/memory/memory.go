package memory

import (
	"context"
	"errors"
	"strings"

	"github.com/leofalp/plantcare/providers/ai"
)

// ErrInvalidConversation is returned for an empty conversation id.
var ErrInvalidConversation = errors.New("memory: conversation id is required")

// Provider is the history of a single conversation.
type Provider interface {
	// AppendMessage stores a text copy of message at the end of the history.
	// Image parts are dropped. A nil message is a no-op.
	AppendMessage(ctx context.Context, message *ai.Message) error
	Count(ctx context.Context) (int, error)
	AllMessages(ctx context.Context) ([]ai.Message, error)
	// LastMessages returns up to n of the newest messages, oldest first.
	LastMessages(ctx context.Context, n int) ([]ai.Message, error)
	ClearMessages(ctx context.Context) error
}

// Store opens conversations by id.
type Store interface {
	Conversation(ctx context.Context, id string) (Provider, error)
}

// TextOnly returns the message reduced to its text. Text parts of a
// multimodal message are joined with a blank line.
func TextOnly(message ai.Message) ai.Message {
	if len(message.ContentParts) == 0 {
		return ai.Message{Role: message.Role, Content: message.Content}
	}
	texts := make([]string, 0, len(message.ContentParts)+1)
	if message.Content != "" {
		texts = append(texts, message.Content)
	}
	for _, part := range message.ContentParts {
		if part.Type == ai.ContentTypeText && part.Text != "" {
			texts = append(texts, part.Text)
		}
	}
	return ai.Message{Role: message.Role, Content: strings.Join(texts, "\n\n")}
}

// AppendTurn stores a completed exchange. Callers use it only after a
// successful completion so a failed call leaves no half turn behind.
func AppendTurn(ctx context.Context, p Provider, user, assistant ai.Message) error {
	if err := p.AppendMessage(ctx, &user); err != nil {
		return err
	}
	return p.AppendMessage(ctx, &assistant)
}
