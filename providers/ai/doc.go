// Package ai defines the shared, provider-agnostic types and interfaces used
// by every LLM backend the plant-care assistant talks to. Each provider's
// conversion layer maps these types to its own wire format.
//
// The two central interfaces are [Provider] for whole-response completions
// and [StreamProvider] for incrementally streamed responses. Request data
// flows through [ChatRequest]; responses come back as [ChatResponse] or, when
// streaming, as a [ChatStream] of [StreamEvent] deltas. Failures are always
// *[Error] values tagged with an [ErrorKind].
package ai
