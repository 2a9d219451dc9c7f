// Package flows holds the session lifecycle orchestrators behind the
// Controller: initialize, login, profile hydration and logout.
//
// Each Run* function takes a typed dependency struct and reports what
// happened in an outcome value. Phase tracking, audit events, metrics and the
// logout broadcast stay with the Controller, which reads the outcome.
//
// # What this package must NOT do
//
//   - Hold state between calls.
//   - Import goSession (import cycle).
//   - Surface a decode failure or a missing profile as an error; both resolve
//     through the token fallback.
package flows
