package goSession

import (
	"context"

	"github.com/MrEthical07/goSession/guard"
	"go.uber.org/zap"
)

// NewGuard returns a route guard over this controller, redirecting denials
// to Config.Guard.HomePath and counting decisions.
func (c *Controller) NewGuard() *guard.Guard {
	return guard.New(c, guard.Options{
		HomePath: c.cfg.Guard.HomePath,
		Now:      c.now,
		OnDecision: func(_ context.Context, meta guard.RouteMeta, d guard.Decision) {
			if d.Allowed {
				c.metricInc(MetricGuardAllowed)
				return
			}
			c.metricInc(MetricGuardDenied)
			c.logger.Debug("navigation denied",
				zap.String("reason", string(d.Reason)),
				zap.Bool("requires_auth", meta.RequiresAuth),
				zap.Strings("requires_role", meta.RequiresRole),
			)
		},
	})
}
