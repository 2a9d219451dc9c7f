package flows

import (
	"context"

	"github.com/MrEthical07/goSession/jwt"
	"github.com/MrEthical07/goSession/role"
	"go.uber.org/zap"
)

// InitOutcome reports what Initialize found in the credential store.
type InitOutcome struct {
	// Token is the stored token, "" when none was found.
	Token    string
	Username string
	// Expired is set when the stored token is past its exp. Nothing was
	// restored; the caller runs the logout.
	Expired bool
	// Restored is set when a usable token was loaded into the session.
	Restored bool
	Hydrate  HydrateOutcome
}

// RunInitialize restores a persisted session and hydrates its profile.
func RunInitialize(ctx context.Context, deps Deps) InitOutcome {
	creds := deps.Store.Load(ctx)
	if creds.Token == "" {
		return InitOutcome{}
	}

	out := InitOutcome{Token: creds.Token, Username: creds.Username}
	if jwt.IsExpired(creds.Token, deps.now()) {
		deps.logger().Info("stored session token expired")
		out.Expired = true
		return out
	}

	deps.locked(func() {
		deps.State.Restore(creds.Token, creds.Username, role.Normalize(creds.Role))
	})
	out.Restored = true
	out.Hydrate = RunHydrate(ctx, creds.Token, creds.Username, creds.Role, deps)
	if out.Hydrate.Unauthorized {
		deps.logger().Warn("stored session rejected by profile endpoint", zap.Error(out.Hydrate.ProfileErr))
	}
	return out
}
