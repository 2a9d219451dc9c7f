package middleware

import (
	"context"
	"net/http"

	"github.com/MrEthical07/goSession/guard"
)

type decisionContextKey struct{}

// DecisionFromContext returns the decision that admitted the request.
func DecisionFromContext(ctx context.Context) (guard.Decision, bool) {
	d, ok := ctx.Value(decisionContextKey{}).(guard.Decision)
	return d, ok
}

// Guard enforces meta on every request.
func Guard(g *guard.Guard, meta guard.RouteMeta) func(http.Handler) http.Handler {
	return Routes(g, func(*http.Request) guard.RouteMeta { return meta })
}

// RouteTable enforces the entry of routes matching the request path.
func RouteTable(g *guard.Guard, routes guard.Routes) func(http.Handler) http.Handler {
	return Routes(g, func(r *http.Request) guard.RouteMeta { return routes.Lookup(r.URL.Path) })
}

// Routes enforces the metadata chosen by lookup for each request.
func Routes(g *guard.Guard, lookup func(*http.Request) guard.RouteMeta) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if g == nil {
				http.Redirect(w, r, guard.DefaultHomePath, http.StatusFound)
				return
			}

			d := g.Check(r.Context(), lookup(r))
			if !d.Allowed {
				if d.Redirect == r.URL.Path {
					http.Error(w, "forbidden", http.StatusForbidden)
					return
				}
				http.Redirect(w, r, d.Redirect, http.StatusFound)
				return
			}

			ctx := context.WithValue(r.Context(), decisionContextKey{}, d)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAuth admits logged-in sessions only.
func RequireAuth(g *guard.Guard) func(http.Handler) http.Handler {
	return Guard(g, guard.RouteMeta{RequiresAuth: true})
}

// RequireRole admits logged-in sessions holding one of roles.
func RequireRole(g *guard.Guard, roles ...string) func(http.Handler) http.Handler {
	return Guard(g, guard.RouteMeta{RequiresAuth: true, RequiresRole: guard.Roles(roles)})
}
