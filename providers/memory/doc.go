// Package memory defines how conversation history is kept between requests.
// A [Store] hands out one [Provider] per conversation id; the Provider holds
// the ordered text turns of that conversation. The system prompt is never
// stored, callers add it when building a request (see core/prompt).
//
// Implementations live in the sibling packages
// [github.com/leofalp/plantcare/providers/memory/inmemory] and
// [github.com/leofalp/plantcare/providers/memory/sqlmemory].
package memory
