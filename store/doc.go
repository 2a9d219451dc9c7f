// Package store persists session credentials across process restarts.
//
// A [Store] wraps one [Backend] and never surfaces backend errors to its
// caller: failures are logged and the operation becomes a no-op, so an
// unavailable disk or server degrades the session to memory-only for the rest
// of the run. [Store.Available] reports whether that has happened.
//
// Every backend stores the same three string keys ([KeyToken], [KeyUsername],
// [KeyRole]) and removes them together in one backend call.
package store
