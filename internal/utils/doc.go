// Package utils provides the low-level plumbing shared by the provider
// implementations: JSON-over-HTTP helpers for whole and streamed responses,
// a line decoder for the "data: " event protocol, and small string and timing
// helpers.
//
// Errors returned here are not provider errors yet. They are tagged with
// [ErrTransport], [ErrDecode], [ErrLineTooLong], [ErrInvalidText] or carried
// as a *[StatusError] so the caller can classify them.
package utils
