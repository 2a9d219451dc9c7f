package flows

import (
	"context"

	"github.com/MrEthical07/goSession/role"
	"github.com/MrEthical07/goSession/store"
)

// LoginOutcome reports a login attempt. On Err nothing was changed.
type LoginOutcome struct {
	Token    string
	Username string
	Hydrate  HydrateOutcome
	Err      error
}

// RunLogin authenticates, persists the token and hydrates the profile.
func RunLogin(ctx context.Context, username, password string, deps Deps) LoginOutcome {
	resp, err := deps.Auth.Login(ctx, username, password)
	if err != nil {
		return LoginOutcome{Err: err}
	}

	hint := resp.Username
	if hint == "" {
		hint = username
	}
	roleHint := role.Normalize(resp.Role)

	deps.locked(func() {
		deps.Store.Save(ctx, store.Credentials{
			Token:    resp.Token,
			Username: hint,
			Role:     string(roleHint),
		})
		deps.State.Restore(resp.Token, hint, roleHint)
	})

	return LoginOutcome{
		Token:    resp.Token,
		Username: hint,
		Hydrate:  RunHydrate(ctx, resp.Token, hint, resp.Role, deps),
	}
}
