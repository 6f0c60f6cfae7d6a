package prompt

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/leofalp/plantcare/providers/ai"
)

const (
	// DefaultWindow is the number of prior turns kept in a request.
	DefaultWindow = 10
	// MaxReferenceChars caps reference material folded into a user turn.
	MaxReferenceChars = 6000
)

// Build returns [system, last DefaultWindow prior turns..., user].
func Build(systemPrompt string, priorTurns []ai.Message, newUserText string) []ai.Message {
	return Builder{SystemPrompt: systemPrompt, Window: DefaultWindow}.Build(priorTurns, newUserText)
}

// Builder assembles request message sequences.
type Builder struct {
	SystemPrompt string
	Window       int // prior turns kept; <= 0 keeps none
}

// NewBuilder returns a Builder for systemPrompt with the default window.
func NewBuilder(systemPrompt string) Builder {
	return Builder{SystemPrompt: systemPrompt, Window: DefaultWindow}
}

// WithWindow returns a copy of b that keeps window prior turns.
func (b Builder) WithWindow(window int) Builder {
	b.Window = window
	return b
}

// Build prepends the system prompt, keeps the most recent Window entries of
// priorTurns in order, and appends newUserText as a user turn. priorTurns is
// never modified; callers are expected to pass only user and assistant turns.
func (b Builder) Build(priorTurns []ai.Message, newUserText string) []ai.Message {
	kept := Window(priorTurns, b.Window)

	messages := make([]ai.Message, 0, len(kept)+2)
	messages = append(messages, ai.NewSystemMessage(b.SystemPrompt))
	messages = append(messages, kept...)
	messages = append(messages, ai.NewUserMessage(newUserText))
	return messages
}

// Window returns the last n entries of turns (all of them when there are
// fewer), as a slice that does not alias turns.
func Window(turns []ai.Message, n int) []ai.Message {
	if n <= 0 || len(turns) == 0 {
		return nil
	}
	if len(turns) > n {
		turns = turns[len(turns)-n:]
	}
	return append([]ai.Message(nil), turns...)
}

// Reference is background material the user asked about, such as a care
// guide fetched from the web.
type Reference struct {
	Source string
	Title  string
	Body   string
}

// WithReference folds ref into the text of a user question. The material goes
// into the user turn, never the system slot.
func WithReference(question string, ref Reference) string {
	body := strings.TrimSpace(ref.Body)
	if body == "" {
		return question
	}
	body = truncateRunes(body, MaxReferenceChars)

	var sb strings.Builder
	sb.WriteString("Use the following reference material when answering.\n\n")
	if ref.Title != "" {
		fmt.Fprintf(&sb, "Title: %s\n", ref.Title)
	}
	if ref.Source != "" {
		fmt.Fprintf(&sb, "Source: %s\n", ref.Source)
	}
	sb.WriteString("---\n")
	sb.WriteString(body)
	sb.WriteString("\n---\n\nQuestion: ")
	sb.WriteString(question)
	return sb.String()
}

func truncateRunes(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	count := 0
	for i := range s {
		if count == max {
			return s[:i] + "\n[...]"
		}
		count++
	}
	return s
}
