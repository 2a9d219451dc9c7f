package gateway

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrTransport covers network failures, unexpected statuses and
	// undecodable response bodies.
	ErrTransport = errors.New("gateway: transport failure")
	// ErrUnauthorized is returned for 401 and 403 responses.
	ErrUnauthorized = errors.New("gateway: unauthorized")
	// ErrNoToken is returned when a successful login response carries no token.
	ErrNoToken = errors.New("gateway: login response carried no token")
	// ErrRejected is returned when the backend envelope reports a failure code.
	ErrRejected = errors.New("gateway: request rejected")
)

// Kind classifies an [Error].
type Kind uint8

const (
	// KindTransport is a network-level failure.
	KindTransport Kind = iota + 1
	// KindStatus is a non-2xx status other than 401/403.
	KindStatus
	// KindUnauthorized is a 401 or 403 status.
	KindUnauthorized
	// KindNoToken is a successful login without a token.
	KindNoToken
	// KindDecode is a response body that could not be parsed.
	KindDecode
	// KindRejected is an envelope with a failure code.
	KindRejected
)

func (k Kind) String() string {
	switch k {
	case KindTransport:
		return "transport"
	case KindStatus:
		return "status"
	case KindUnauthorized:
		return "unauthorized"
	case KindNoToken:
		return "no_token"
	case KindDecode:
		return "decode"
	case KindRejected:
		return "rejected"
	default:
		return "unknown"
	}
}

// Error is the failure type returned by [Client] operations.
type Error struct {
	Kind Kind
	// Status is the HTTP status, or 0 when no response was received.
	Status int
	// Message is safe to show to an end user.
	Message string
	// Err is the underlying cause, if any.
	Err error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = e.Kind.String()
	}
	if e.Status != 0 {
		msg = fmt.Sprintf("%s (status %d)", msg, e.Status)
	}
	if e.Err != nil {
		return fmt.Sprintf("gateway: %s: %v", msg, e.Err)
	}
	return "gateway: " + msg
}

// Unwrap returns the sentinel for e.Kind and the underlying cause.
func (e *Error) Unwrap() []error {
	errs := make([]error, 0, 2)
	switch e.Kind {
	case KindUnauthorized:
		errs = append(errs, ErrUnauthorized)
	case KindNoToken:
		errs = append(errs, ErrNoToken)
	case KindRejected:
		errs = append(errs, ErrRejected)
	default:
		errs = append(errs, ErrTransport)
	}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

// IsUnauthorized reports whether err is a 401/403 gateway failure.
func IsUnauthorized(err error) bool {
	return errors.Is(err, ErrUnauthorized)
}

// MessageOf returns the user-facing message carried by err, or fallback.
func MessageOf(err error, fallback string) string {
	var gerr *Error
	if errors.As(err, &gerr) && gerr.Message != "" {
		return gerr.Message
	}
	return fallback
}

func statusError(status int, message string) *Error {
	kind := KindStatus
	if status == http.StatusUnauthorized || status == http.StatusForbidden {
		kind = KindUnauthorized
	}
	if message == "" {
		message = http.StatusText(status)
	}
	return &Error{Kind: kind, Status: status, Message: message}
}
