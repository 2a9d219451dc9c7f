// Package goSession provides the client-side session controller for the
// storefront: login, boot-time restore, token renewal, logout and route
// guarding over a single process-wide session.
//
// The package is designed for concurrent callers: [Controller] methods are
// safe to call from multiple goroutines after construction through
// [Builder.Build].
//
// # Architecture boundaries
//
// goSession is the public surface. It exposes [Controller], [Builder],
// [Config] and value types (LoginResult, LogoutEvent, MetricsSnapshot). Flow
// orchestration, audit dispatch and the logout event bus live under internal/
// and are never exported. Wire I/O lives in gateway, persistence in store.
//
// # What this package must NOT do
//
//   - Let a failed login, a late profile fetch or a stale renewal overwrite a
//     newer session. Every session write is keyed on the token it started
//     from.
//   - Return panics or transport errors to UI callers. Login, Register and
//     UpdateProfile always return a Result with a displayable Message.
//   - Import any sub-package that re-imports goSession (no import cycles).
//
// # Lifecycle contract
//
// Initialize runs once per process; concurrent callers share the attempt.
// Logout clears the credential store before resetting the session and
// notifies OnLogout subscribers synchronously before returning.
package goSession
