package gateway

import (
	"net/http"
)

// TokenSource supplies the current session token; "" means anonymous.
type TokenSource interface {
	Token() string
}

// TokenSourceFunc adapts a function to [TokenSource].
type TokenSourceFunc func() string

// Token implements TokenSource.
func (f TokenSourceFunc) Token() string { return f() }

// RenewalObserver receives the headers of every response that carries a
// renewed token.
type RenewalObserver func(http.Header)

// Transport attaches the session bearer token to outgoing requests and
// reports renewed tokens found on responses.
type Transport struct {
	// Base performs the request; nil means http.DefaultTransport.
	Base http.RoundTripper
	// Source provides the token. Requests that already set Authorization
	// keep their header.
	Source TokenSource
	// RenewedHeader names the response header carrying a renewed token.
	RenewedHeader string
	// Observe is called synchronously before RoundTrip returns.
	Observe RenewalObserver
}

// RoundTrip implements http.RoundTripper.
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	base := t.Base
	if base == nil {
		base = http.DefaultTransport
	}

	if t.Source != nil && req.Header.Get("Authorization") == "" {
		if token := t.Source.Token(); token != "" {
			req = req.Clone(req.Context())
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	resp, err := base.RoundTrip(req)
	if err != nil {
		return nil, err
	}
	if t.Observe != nil && t.RenewedHeader != "" && resp.Header.Get(t.RenewedHeader) != "" {
		t.Observe(resp.Header)
	}
	return resp, nil
}

// RenewedToken extracts the renewed token from h, stripping any "Bearer "
// prefix.
func RenewedToken(h http.Header, name string) string {
	if name == "" {
		return ""
	}
	return stripBearer(h.Get(name))
}
