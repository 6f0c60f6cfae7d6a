package client

import (
	"github.com/leofalp/plantcare/providers/ai"
)

// Result is the outcome of one call: either an assistant answer (Err == nil)
// or a failure. It is never both.
type Result struct {
	Role     ai.MessageRole
	Content  string
	Usage    *ai.Usage
	Provider string // logical provider name
	Err      error
}

// OK reports whether the call succeeded.
func (r Result) OK() bool {
	return r.Err == nil
}

// Kind returns the failure kind, or "" on success.
func (r Result) Kind() ai.ErrorKind {
	return ai.KindOf(r.Err)
}

// Reason returns the failure text, or "" on success.
func (r Result) Reason() string {
	if r.Err == nil {
		return ""
	}
	return r.Err.Error()
}

// Message returns the answer as an assistant message for the history.
func (r Result) Message() ai.Message {
	return ai.NewAssistantMessage(r.Content)
}

func success(provider string, response *ai.ChatResponse) Result {
	return Result{
		Role:     ai.RoleAssistant,
		Content:  response.Content,
		Usage:    response.Usage,
		Provider: provider,
	}
}

func failure(provider string, err error) Result {
	return Result{Provider: provider, Err: err}
}
