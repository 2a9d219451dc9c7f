package guard

import (
	"context"
	"time"

	"github.com/MrEthical07/goSession/role"
	"github.com/MrEthical07/goSession/session"
)

// DefaultHomePath is the redirect target for denied navigations.
const DefaultHomePath = "/"

// Reason explains a [Decision].
type Reason string

const (
	ReasonAllowed          Reason = "allowed"
	ReasonTokenInvalid     Reason = "token_invalid"
	ReasonNotAuthenticated Reason = "not_authenticated"
	ReasonRoleForbidden    Reason = "role_forbidden"
	ReasonInitFailed       Reason = "init_failed"
)

// Decision is the outcome of one navigation check. Redirect is set on
// denials.
type Decision struct {
	Allowed  bool
	Reason   Reason
	Redirect string
}

// Decide applies the route rules to a settled session. A role requirement
// implies an authentication requirement.
func Decide(meta RouteMeta, snap session.Snapshot, tokenValid bool, now time.Time) Decision {
	if !tokenValid {
		return Decision{Reason: ReasonTokenInvalid}
	}
	needsAuth := meta.RequiresAuth || len(meta.RequiresRole) > 0
	if needsAuth && !snap.IsLoggedIn(now) {
		return Decision{Reason: ReasonNotAuthenticated}
	}
	if len(meta.RequiresRole) > 0 && !role.Allowed(snap.Role, meta.RequiresRole) {
		return Decision{Reason: ReasonRoleForbidden}
	}
	return Decision{Allowed: true, Reason: ReasonAllowed}
}

// Session is the part of the session controller a Guard needs.
type Session interface {
	Initialize(ctx context.Context) error
	CheckTokenValidity(ctx context.Context) bool
	Snapshot() session.Snapshot
}

// Options configures a [Guard].
type Options struct {
	// HomePath is the redirect target; empty means DefaultHomePath.
	HomePath string
	// Now overrides time.Now.
	Now func() time.Time
	// OnDecision observes every decision.
	OnDecision func(ctx context.Context, meta RouteMeta, d Decision)
}

// Guard checks navigations against a live session.
type Guard struct {
	session Session
	opts    Options
}

// New returns a Guard over s.
func New(s Session, opts Options) *Guard {
	if opts.HomePath == "" {
		opts.HomePath = DefaultHomePath
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Guard{session: s, opts: opts}
}

// HomePath returns the redirect target for denials.
func (g *Guard) HomePath() string {
	return g.opts.HomePath
}

// Check blocks until the session is initialized, runs the expiry check and
// decides. A ctx that ends while waiting for initialization denies with
// ReasonInitFailed.
func (g *Guard) Check(ctx context.Context, meta RouteMeta) Decision {
	d := g.check(ctx, meta)
	if !d.Allowed {
		d.Redirect = g.opts.HomePath
	}
	if g.opts.OnDecision != nil {
		g.opts.OnDecision(ctx, meta, d)
	}
	return d
}

func (g *Guard) check(ctx context.Context, meta RouteMeta) Decision {
	if g.session == nil {
		return Decision{Reason: ReasonInitFailed}
	}
	if !g.session.Snapshot().Initialized {
		if err := g.session.Initialize(ctx); err != nil {
			return Decision{Reason: ReasonInitFailed}
		}
	}
	valid := g.session.CheckTokenValidity(ctx)
	return Decide(meta, g.session.Snapshot(), valid, g.opts.Now())
}
