// Package openai implements [ai.Provider] and [ai.StreamProvider] for any
// backend that speaks the OpenAI chat completions protocol (OpenAI, DeepSeek,
// OpenRouter, Azure OpenAI, Ollama and similar).
//
// The base URL may be given either as an API root ("https://api.openai.com/v1")
// or as the full chat completions URL; both resolve to the same endpoint.
// Streaming uses the line-oriented "data: " protocol terminated by
// "data: [DONE]".
package openai
