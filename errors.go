package goSession

import (
	"errors"

	"github.com/MrEthical07/goSession/gateway"
	"github.com/MrEthical07/goSession/jwt"
)

var (
	// ErrTransport covers network failures and unexpected backend statuses.
	ErrTransport = gateway.ErrTransport
	// ErrUnauthorized is a 401 or 403 from the backend.
	ErrUnauthorized = gateway.ErrUnauthorized
	// ErrNoToken is a successful login response without a session token.
	ErrNoToken = gateway.ErrNoToken
	// ErrRejected is a backend envelope carrying a failure code.
	ErrRejected = gateway.ErrRejected
	// ErrDecode is a token whose payload cannot be decoded.
	ErrDecode = jwt.ErrMalformed
	// ErrExpiredSession is returned when an operation needs a session whose
	// token has expired.
	ErrExpiredSession = errors.New("session expired")
	// ErrNotAuthenticated is returned when an operation needs a session and
	// none exists.
	ErrNotAuthenticated = errors.New("not authenticated")
	// ErrProfileUnavailable is returned when the profile endpoint fails for a
	// reason other than 401/403.
	ErrProfileUnavailable = errors.New("profile unavailable")
	// ErrControllerNotReady is returned by methods called on a nil Controller.
	ErrControllerNotReady = errors.New("controller not initialized")
	// ErrInternal wraps a recovered panic.
	ErrInternal = errors.New("internal error")
)
