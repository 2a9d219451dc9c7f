// Package events is a synchronous in-process publish/subscribe bus.
//
// Publish runs every handler on the caller's goroutine, in subscription
// order, before it returns. A panicking handler is recovered and reported so
// the remaining handlers still run.
package events
