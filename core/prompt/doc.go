// Package prompt builds the message sequence sent to a provider: the domain
// system prompt first, then at most a fixed window of the most recent prior
// turns, then the new user turn.
//
// Building is a pure transformation; nothing here touches the network or the
// history store.
package prompt
