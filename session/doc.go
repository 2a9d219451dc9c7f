// Package session holds the in-memory authentication state of one client
// process: token, username, canonical role, profile, initialization flag and
// device location.
//
// # Architecture boundaries
//
// [State] is a plain value holder. It performs no I/O and makes no policy
// decisions; the lifecycle controller in the root package is its only writer.
// Readers take a [Snapshot], which is an immutable copy, so UI code and route
// guards never see a half-applied update.
//
// # What this package must NOT do
//
//   - Import goSession, gateway, or store (no upward imports).
//   - Reset fields one at a time. [State.Reset] clears every user-scoped field
//     inside a single critical section.
package session
