package flows

import (
	"context"
	"errors"

	"github.com/MrEthical07/goSession/gateway"
	"github.com/MrEthical07/goSession/jwt"
	"github.com/MrEthical07/goSession/role"
	"github.com/MrEthical07/goSession/session"
	"github.com/MrEthical07/goSession/store"
	"go.uber.org/zap"
)

// IdentitySource records where the applied identity came from.
type IdentitySource uint8

const (
	// SourceNone means nothing was applied.
	SourceNone IdentitySource = iota
	// SourceProfile is the server profile.
	SourceProfile
	// SourceToken is the decoded token payload.
	SourceToken
	// SourceHint is the login input and stored role, used when the token
	// cannot be decoded.
	SourceHint
)

func (s IdentitySource) String() string {
	switch s {
	case SourceProfile:
		return "profile"
	case SourceToken:
		return "token"
	case SourceHint:
		return "hint"
	default:
		return "none"
	}
}

// HydrateOutcome reports a profile hydration.
type HydrateOutcome struct {
	Source IdentitySource
	// Applied is false when the session token changed during the fetch.
	Applied bool
	// Unauthorized is set when the profile endpoint answered 401 or 403.
	// Nothing is applied in that case; the caller decides on logout.
	Unauthorized bool
	// ProfileErr is the absorbed fetch error, if any.
	ProfileErr error
}

// Fallback derives identity from token alone. A decodable token yields its
// username claim (or usernameHint) and the resolved role claim; otherwise the
// hints are used as given.
func Fallback(token, usernameHint, roleHint string) (string, role.Role, *session.Profile, IdentitySource) {
	claims, err := jwt.Decode(token)
	if err != nil {
		r := role.Normalize(roleHint)
		return usernameHint, r, &session.Profile{Username: usernameHint, Role: string(r)}, SourceHint
	}

	username := claims.Username()
	if username == "" {
		username = usernameHint
	}
	r := role.Resolve(claims.Map())
	return username, r, &session.Profile{
		ID:       session.ID(claims.UserID()),
		Username: username,
		Role:     string(r),
	}, SourceToken
}

// RunHydrate fetches the server profile for token and applies the resulting
// identity. Server fields win; missing server fields fall back to the token.
func RunHydrate(ctx context.Context, token, usernameHint, roleHint string, deps Deps) HydrateOutcome {
	log := deps.logger()

	var (
		profile *session.Profile
		err     error
	)
	if deps.FetchProfile && deps.Profiles != nil {
		profile, err = deps.Profiles.FetchProfile(ctx, token)
	}
	if err != nil && gateway.IsUnauthorized(err) {
		return HydrateOutcome{Unauthorized: true, ProfileErr: err}
	}

	username, r, fallback, source := Fallback(token, usernameHint, roleHint)
	if source == SourceHint {
		log.Debug("token payload not decodable, using login hints")
	}

	out := HydrateOutcome{ProfileErr: err}
	switch {
	case err == nil && profile != nil:
		if profile.Username != "" {
			username = profile.Username
		}
		if profile.Role != "" {
			r = role.Normalize(profile.Role)
		}
		if profile.ID == "" {
			profile.ID = fallback.ID
		}
		fallback = profile
		out.Source = SourceProfile
	default:
		if err != nil && !errors.Is(err, context.Canceled) {
			log.Info("profile unavailable, using token fallback", zap.Error(err))
		}
		out.Source = source
	}

	deps.locked(func() {
		out.Applied = deps.State.ApplyIdentity(token, username, r, fallback)
		if out.Applied && deps.PersistIdentity && deps.Store != nil {
			deps.Store.Save(ctx, store.Credentials{Username: username, Role: string(r)})
		}
	})
	return out
}
