// Package role maps heterogeneous role claims onto the closed storefront role
// set {customer, merchant, admin}.
//
// # Architecture boundaries
//
// This package is pure: no I/O, no clocks, no globals that change after init.
// Identical claims always resolve to the identical [Role], so callers can test
// role-dependent behavior without mocking the network.
//
// # What this package must NOT do
//
//   - Return a value outside the closed set. Unknown claims resolve to
//     [Customer], never to a pass-through string that could satisfy a route
//     guard by accident.
//   - Import goSession, session, or gateway (no upward imports).
package role
