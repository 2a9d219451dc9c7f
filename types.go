package goSession

import (
	"time"

	"github.com/MrEthical07/goSession/role"
)

// Phase is the lifecycle position of the session.
type Phase uint32

const (
	// PhaseUnauthenticated has no usable token.
	PhaseUnauthenticated Phase = iota
	// PhaseAuthenticating is set while a login call is in flight.
	PhaseAuthenticating
	// PhaseAuthenticated holds a token that was valid when last checked.
	PhaseAuthenticated
	// PhaseExpired is the transient phase of a logout caused by expiry.
	PhaseExpired
	// PhaseLoggedOut is the transient phase of any other logout.
	PhaseLoggedOut
)

func (p Phase) String() string {
	switch p {
	case PhaseUnauthenticated:
		return "unauthenticated"
	case PhaseAuthenticating:
		return "authenticating"
	case PhaseAuthenticated:
		return "authenticated"
	case PhaseExpired:
		return "expired"
	case PhaseLoggedOut:
		return "logged_out"
	default:
		return "unknown"
	}
}

// Result is the normalized outcome of a controller operation. Operations
// returning a Result never panic; Message is safe to show to an end user.
type Result struct {
	Success bool
	Message string
	// Err is the underlying failure for callers that want errors.Is.
	Err error
}

// LoginResult is returned by [Controller.Login].
type LoginResult struct {
	Result
	Username string
	Role     role.Role
}

// LogoutReason says why a session ended.
type LogoutReason string

const (
	// LogoutUser is an explicit logout.
	LogoutUser LogoutReason = "user"
	// LogoutExpired is a logout triggered by a locally detected token expiry.
	LogoutExpired LogoutReason = "expired"
	// LogoutUnauthorized is a logout triggered by a 401/403 from the profile
	// endpoint.
	LogoutUnauthorized LogoutReason = "unauthorized"
)

// LogoutEvent is delivered to every [Controller.OnLogout] subscriber after
// the store is cleared and the session reset.
type LogoutEvent struct {
	Reason   LogoutReason
	Username string
	Role     role.Role
	At       time.Time
}
