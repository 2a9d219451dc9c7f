// Package middleware adapts [guard.Guard] to net/http.
//
// A denied request is redirected (302) to the guard's home path. An allowed
// request reaches the wrapped handler with the [guard.Decision] stored in its
// context.
//
// This package makes no decisions of its own; it only translates the
// guard's answer into HTTP.
package middleware
