// Package internal holds the pieces of goSession that are private to the
// module.
//
// # Sub-packages
//
//   - audit: async lifecycle event dispatch (Dispatcher + Sink implementations)
//   - events: synchronous typed pub/sub used for the logout broadcast
//   - flows: stateless orchestrators for initialize, login, hydration and logout
//
// # What this package must NOT do
//
//   - Export types that appear in the public goSession API.
//   - Be imported by any package outside the goSession module.
package internal
