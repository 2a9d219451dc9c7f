// Package eventsink forwards session lifecycle events to NATS so other
// processes (a BFF, an analytics consumer, sibling tabs behind a relay) can
// react to logins and logouts.
//
// [NATSSink] implements goSession.AuditSink and publishes each audit event as
// JSON on "<prefix>.<event type>". [ForwardLogouts] subscribes to a Controller
// and publishes every LogoutEvent on "<prefix>.logout.<reason>".
//
// # What this package must NOT do
//
//   - Block session operations on the broker. Audit events arrive on the
//     dispatcher goroutine; logout forwarding publishes without flushing.
//   - Read from NATS. Consumers live outside this module.
package eventsink
