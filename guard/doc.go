// Package guard decides whether a navigation may proceed given the session.
//
// [Decide] is pure: it sees a session snapshot, the result of the expiry
// check and the route metadata, and nothing else. [Guard] wraps it with the
// blocking steps that come first: waiting for the session to initialize and
// running the expiry check, which may log the session out.
//
// The authentication requirement is checked before the role requirement, so a
// logged-out visitor to a role-gated route is denied as not authenticated.
package guard
