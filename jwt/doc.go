// Package jwt decodes the payload segment of compact session tokens so the
// client can display who is signed in and when the token runs out.
//
// # Not a trust boundary
//
// Nothing here verifies signatures. Decoded [Claims] are a display and
// fallback convenience: they fill in a username or role when the profile
// endpoint is unavailable, and they let the client notice an expired token
// before the server does. Callers must not use them to authorize privileged
// actions; the backend stays the authority.
//
// # What this package must NOT do
//
//   - Panic on hostile input. Every malformed token yields [ErrMalformed].
//   - Import goSession, session, or gateway (no upward imports).
package jwt
