package flows

import (
	"context"
	"sync"
	"time"

	"github.com/MrEthical07/goSession/gateway"
	"github.com/MrEthical07/goSession/session"
	"github.com/MrEthical07/goSession/store"
	"go.uber.org/zap"
)

// ProfileFetcher loads the server profile for a token.
type ProfileFetcher interface {
	FetchProfile(ctx context.Context, token string) (*session.Profile, error)
}

// Authenticator exchanges credentials for a token.
type Authenticator interface {
	Login(ctx context.Context, username, password string) (gateway.LoginResponse, error)
}

// Deps groups the collaborators shared by every flow. The Controller builds
// it once.
type Deps struct {
	State    *session.State
	Store    *store.Store
	Profiles ProfileFetcher
	Auth     Authenticator
	Logger   *zap.Logger
	Now      func() time.Time
	// Mu is held while a flow writes the store and the session together,
	// so logout and renewal never observe half of a write. Nil disables
	// locking.
	Mu sync.Locker

	// FetchProfile disables the profile round trip when false; identity then
	// always comes from the token fallback.
	FetchProfile bool
	// PersistIdentity writes the resolved username and role back to the
	// store after hydration.
	PersistIdentity bool
}

func (d Deps) now() time.Time {
	if d.Now == nil {
		return time.Now()
	}
	return d.Now()
}

func (d Deps) logger() *zap.Logger {
	if d.Logger == nil {
		return zap.NewNop()
	}
	return d.Logger
}

func (d Deps) locked(fn func()) {
	if d.Mu != nil {
		d.Mu.Lock()
		defer d.Mu.Unlock()
	}
	fn()
}
