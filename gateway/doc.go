// Package gateway is the HTTP client for the storefront's authentication
// endpoints: login, profile, registration and profile updates.
//
// The client performs network calls only. It never touches session state;
// the lifecycle controller applies what the gateway returns.
//
// Failures are reported as [*Error], whose Kind classifies the failure and
// whose Unwrap exposes one of the package sentinels for errors.Is checks.
//
// [Transport] is an http.RoundTripper for every other API call the
// application makes: it attaches the current bearer token and reports
// renewed-token response headers back to the session owner.
package gateway
