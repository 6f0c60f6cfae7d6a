// Package registry maps logical provider names ("primary", "secondary",
// "vision", ...) to the endpoint, credential variable and wire model used to
// reach them.
//
// The descriptor table is immutable after construction and safe for
// concurrent reads. Credentials are looked up through a [CredentialSource]
// on every call and are never cached, so a key exported after start-up is
// picked up by the next request.
package registry
