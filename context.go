package goSession

import "context"

type controllerContextKey struct{}

// NewContext returns a copy of ctx carrying c.
func NewContext(ctx context.Context, c *Controller) context.Context {
	return context.WithValue(ctx, controllerContextKey{}, c)
}

// FromContext returns the Controller stored by [NewContext], or nil.
func FromContext(ctx context.Context) *Controller {
	if ctx == nil {
		return nil
	}
	c, _ := ctx.Value(controllerContextKey{}).(*Controller)
	return c
}
