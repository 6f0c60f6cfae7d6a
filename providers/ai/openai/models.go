package openai

import (
	"github.com/leofalp/plantcare/providers/ai"
)

/*
	CHAT COMPLETIONS API - INPUT
*/

type chatCompletionRequest struct {
	Model         string         `json:"model"`
	Messages      []chatMessage  `json:"messages"`
	Stream        bool           `json:"stream"`
	StreamOptions *streamOptions `json:"stream_options,omitempty"`
	MaxTokens     *int           `json:"max_tokens,omitempty"`
	Temperature   *float32       `json:"temperature,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content any    `json:"content"` // string, or []contentPart for multimodal turns
}

// contentPart is one element of a multimodal message.
type contentPart struct {
	Type     string            `json:"type"` // "text" or "image_url"
	Text     string            `json:"text,omitempty"`
	ImageURL *contentPartImage `json:"image_url,omitempty"`
}

type contentPartImage struct {
	URL string `json:"url"`
}

type streamOptions struct {
	IncludeUsage bool `json:"include_usage"`
}

// buildDataURL formats base64 data as a data URI for image_url parts.
func buildDataURL(mimeType, data string) string {
	if mimeType == "" || data == "" {
		return ""
	}
	return "data:" + mimeType + ";base64," + data
}

func requestToChatCompletion(request ai.ChatRequest, model string, stream bool) chatCompletionRequest {
	if request.Model != "" {
		model = request.Model
	}
	out := chatCompletionRequest{
		Model:    model,
		Messages: make([]chatMessage, 0, len(request.Messages)),
		Stream:   stream,
	}

	if config := request.GenerationConfig; config != nil {
		if config.MaxTokens > 0 {
			maxTokens := config.MaxTokens
			out.MaxTokens = &maxTokens
		}
		if config.Temperature > 0 {
			temperature := config.Temperature
			out.Temperature = &temperature
		}
	}

	for _, message := range request.Messages {
		out.Messages = append(out.Messages, messageToChat(message))
	}
	return out
}

func messageToChat(message ai.Message) chatMessage {
	if len(message.ContentParts) == 0 {
		return chatMessage{Role: string(message.Role), Content: message.Content}
	}

	parts := make([]contentPart, 0, len(message.ContentParts))
	for _, part := range message.ContentParts {
		switch part.Type {
		case ai.ContentTypeImage:
			if part.Image == nil {
				continue
			}
			url := part.Image.URI
			if url == "" {
				url = buildDataURL(part.Image.MimeType, part.Image.Data)
			}
			if url == "" {
				continue
			}
			parts = append(parts, contentPart{Type: "image_url", ImageURL: &contentPartImage{URL: url}})
		default:
			parts = append(parts, contentPart{Type: "text", Text: part.Text})
		}
	}
	return chatMessage{Role: string(message.Role), Content: parts}
}

// hasImageContent reports whether any message carries an image part.
func hasImageContent(request ai.ChatRequest) bool {
	for _, message := range request.Messages {
		for _, part := range message.ContentParts {
			if part.Type == ai.ContentTypeImage {
				return true
			}
		}
	}
	return false
}

/*
	CHAT COMPLETIONS API - OUTPUT
*/

type chatCompletionResponse struct {
	ID      string       `json:"id"`
	Object  string       `json:"object"`
	Model   string       `json:"model"`
	Choices []chatChoice `json:"choices"`
	Usage   *chatUsage   `json:"usage,omitempty"`
}

type chatChoice struct {
	Index        int                  `json:"index"`
	Message      *chatResponseMessage `json:"message"`
	FinishReason string               `json:"finish_reason"`
}

type chatResponseMessage struct {
	Role    string  `json:"role"`
	Content *string `json:"content"` // nullable
}

type chatUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

func (u *chatUsage) toGeneric() *ai.Usage {
	if u == nil {
		return nil
	}
	return &ai.Usage{
		PromptTokens:     u.PromptTokens,
		CompletionTokens: u.CompletionTokens,
		TotalTokens:      u.TotalTokens,
	}
}
