// Package audit delivers session lifecycle events to pluggable sinks off the
// caller's goroutine.
//
// # Components
//
//   - [Sink]: event consumer (channel, JSON lines, fan-out, no-op).
//   - [Dispatcher]: buffered relay with drop-if-full or block-if-full delivery.
//   - [Event]: one lifecycle record (login, logout, restore, renewal, ...).
//
// The controller decides which events exist; this package only buffers and
// delivers them.
//
// # What this package must NOT do
//
//   - Import goSession or any sibling internal package.
//   - Filter events.
package audit
