package openai

import "strings"

// Capabilities describes optional protocol features of an endpoint.
type Capabilities struct {
	SupportsVision      bool // accepts image_url content parts
	SupportsStreamUsage bool // accepts stream_options.include_usage
}

// detectCapabilities guesses capabilities from the endpoint host. Unknown
// hosts get the zero value, so no optional field is sent to them.
func detectCapabilities(baseURL string) Capabilities {
	baseURL = strings.ToLower(baseURL)

	switch {
	case strings.Contains(baseURL, "api.openai.com"),
		strings.Contains(baseURL, "azure.com"),
		strings.Contains(baseURL, "openrouter.ai"):
		return Capabilities{SupportsVision: true, SupportsStreamUsage: true}
	case strings.Contains(baseURL, "api.deepseek.com"):
		return Capabilities{SupportsVision: false, SupportsStreamUsage: true}
	case strings.Contains(baseURL, "localhost:11434"), strings.Contains(baseURL, "127.0.0.1:11434"):
		return Capabilities{SupportsVision: true, SupportsStreamUsage: false}
	default:
		return Capabilities{}
	}
}
