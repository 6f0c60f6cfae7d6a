// Package client is the entry point for talking to plant-care providers. A
// [Client] exposes three calls:
//
//   - [Client.Complete] sends a message sequence and returns the whole answer.
//   - [Client.StreamComplete] delivers the answer chunk by chunk to a callback
//     and returns the accumulated text.
//   - [Client.Recognize] sends a photo plus instructions to the vision
//     provider and returns its raw text answer.
//
// Every call returns a [Result] instead of panicking; the single exception is
// calling Complete or StreamComplete with no messages. Credentials are
// resolved through the registry immediately before each call, so a missing
// key fails with ai.ErrCredentialMissing without any network traffic.
//
// Caller-side policies such as timeouts or logging are added with
// [WithMiddleware]; see the middleware subpackage. The client itself has no
// timeout and never retries or falls back to another provider.
package client
