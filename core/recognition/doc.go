// Package recognition holds the vision side of the assistant: the prompts
// sent with a plant photo, the JSON shapes those prompts ask for, and the
// parse-or-fallback step applied to whatever text comes back.
package recognition
