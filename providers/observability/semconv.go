package observability

// Semantic conventions for observability attributes, span, event and metric
// names. Use these constants instead of string literals.

// --- LLM Provider Attributes ---

const (
	// AttrLLMProvider is the logical provider name (e.g. "primary", "vision")
	AttrLLMProvider = "llm.provider"

	// AttrLLMModel is the wire model name
	AttrLLMModel = "llm.model"

	// AttrLLMEndpoint is the API endpoint URL
	AttrLLMEndpoint = "llm.endpoint"

	// AttrLLMResponseID is the response identifier from the provider
	AttrLLMResponseID = "llm.response.id"

	// AttrLLMFinishReason is the reason the generation finished
	AttrLLMFinishReason = "llm.finish_reason"

	// AttrLLMStreaming marks streamed requests
	AttrLLMStreaming = "llm.streaming"

	// AttrLLMVision marks requests carrying image content
	AttrLLMVision = "llm.vision"
)

// --- Token Usage Attributes ---

const (
	AttrLLMTokensPrompt     = "llm.tokens.prompt"     // #nosec G101 -- LLM tokens, not credentials
	AttrLLMTokensCompletion = "llm.tokens.completion" // #nosec G101 -- LLM tokens, not credentials
	AttrLLMTokensTotal      = "llm.tokens.total"      // #nosec G101 -- LLM tokens, not credentials
)

// --- Request/Response Attributes ---

const (
	// AttrRequestMessagesCount is the number of messages in the request
	AttrRequestMessagesCount = "request.messages_count"

	// AttrResponseContent is the (truncated) response content
	AttrResponseContent = "response.content"

	// AttrStreamChunks is the number of content chunks delivered by a stream
	AttrStreamChunks = "stream.chunks"

	// AttrErrorKind is the ai.ErrorKind of a failure
	AttrErrorKind = "error.kind"
)

// --- HTTP Attributes ---

const (
	AttrHTTPMethod           = "http.method"
	AttrHTTPStatusCode       = "http.status_code"
	AttrHTTPURL              = "http.url"
	AttrHTTPRequestBodySize  = "http.request.body.size"
	AttrHTTPResponseBodySize = "http.response.body.size"
	AttrHTTPDuration         = "http.request.duration"
)

// --- Memory Attributes ---

const (
	AttrMemoryConversationID = "memory.conversation_id"
	AttrMemoryMessageRole    = "memory.message.role"
	AttrMemoryMessageLength  = "memory.message.length"
	AttrMemoryTotalMessages  = "memory.total_messages"
)

// --- General ---

const (
	AttrError             = "error"
	AttrDuration          = "duration"
	AttrStatus            = "status"
	AttrStatusDescription = "status_description"
)

// --- Span Names ---

const (
	SpanClientComplete       = "client.complete"
	SpanClientStreamComplete = "client.stream_complete"
	SpanClientRecognize      = "client.recognize"
)

// --- Event Names ---

const (
	EventLLMRequestStart   = "llm.request.start"
	EventLLMRequestEnd     = "llm.request.end"
	EventLLMStreamStarted  = "llm.stream.started"
	EventCredentialMissing = "llm.credential.missing"
	EventMemoryAppend      = "memory.append"
	EventMemoryClear       = "memory.clear"
)

// --- Metric Names ---

const (
	MetricClientRequestCount     = "plantcare.client.request.count"
	MetricClientRequestDuration  = "plantcare.client.request.duration"
	MetricClientTokensTotal      = "plantcare.client.tokens.total"
	MetricClientTokensPrompt     = "plantcare.client.tokens.prompt"
	MetricClientTokensCompletion = "plantcare.client.tokens.completion"
	MetricClientStreamChunks     = "plantcare.client.stream.chunks"
)
