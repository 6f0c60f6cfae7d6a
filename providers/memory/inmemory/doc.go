// Package inmemory keeps conversation history in process memory. Everything
// is lost on restart. The main entry point is [NewStore].
package inmemory
