package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/MrEthical07/goSession/role"
	"github.com/MrEthical07/goSession/session"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const maxBodyBytes = 1 << 20

const (
	msgNetwork       = "Network error. Please try again."
	msgNoToken       = "Login response did not include a session token."
	msgLoginFailed   = "Login failed. Please check credentials."
	msgRegisterFail  = "Registration failed. Please try again."
	msgUpdateFailed  = "Update failed. Please try again."
	msgDecodeFailure = "Unexpected response from server."
)

// LoginResponse is what a successful login yields. Username and Role are
// optional hints the backend may include next to the token.
type LoginResponse struct {
	Token    string
	Username string
	Role     string
}

// Client calls the authentication endpoints described by a [Config].
type Client struct {
	cfg     Config
	http    *http.Client
	encode  PasswordEncoder
	logger  *zap.Logger
	observe RenewalObserver
}

// Option configures a [Client].
type Option func(*Client)

// WithHTTPClient replaces the default http.Client. Its Timeout is left as is.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		if h != nil {
			c.http = h
		}
	}
}

// WithPasswordEncoder sets the hook applied to passwords before sending.
func WithPasswordEncoder(enc PasswordEncoder) Option {
	return func(c *Client) {
		if enc != nil {
			c.encode = enc
		}
	}
}

// WithLogger sets the request logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithRenewalObserver sets the hook called with the headers of every
// response carrying Config.RenewedTokenHeader, before the call returns.
func WithRenewalObserver(fn RenewalObserver) Option {
	return func(c *Client) {
		c.observe = fn
	}
}

// New validates cfg and builds a client.
func New(cfg Config, opts ...Option) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	c := &Client{
		cfg:    cfg,
		http:   &http.Client{Timeout: cfg.Timeout},
		encode: PlainPassword,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.Named("gateway")
	return c, nil
}

// Config returns the configuration the client was built with.
func (c *Client) Config() Config {
	return c.cfg
}

type credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Role     string `json:"role,omitempty"`
}

// Login posts credentials and extracts the session token, preferring
// response headers over body fields.
func (c *Client) Login(ctx context.Context, username, password string) (LoginResponse, error) {
	encoded, err := c.encode(password)
	if err != nil {
		return LoginResponse{}, &Error{Kind: KindTransport, Message: msgLoginFailed, Err: fmt.Errorf("encode password: %w", err)}
	}

	resp, err := c.do(ctx, http.MethodPost, c.cfg.LoginPath, "", credentials{Username: username, Password: encoded})
	if err != nil {
		return LoginResponse{}, err
	}
	body, decodeErr := decodeObject(resp.body)
	if !resp.ok() {
		return LoginResponse{}, statusError(resp.status, orDefault(envelopeMessage(body), msgLoginFailed))
	}

	out := LoginResponse{Token: c.headerToken(resp.header)}
	if out.Token == "" {
		out.Token = firstString(body, c.cfg.BodyTokenFields...)
	}
	if out.Token == "" {
		if code, ok := envelopeCode(body); ok && !c.cfg.isSuccessCode(code) {
			return LoginResponse{}, &Error{Kind: KindRejected, Status: resp.status, Message: orDefault(envelopeMessage(body), msgLoginFailed)}
		}
		if decodeErr != nil {
			return LoginResponse{}, &Error{Kind: KindDecode, Status: resp.status, Message: msgDecodeFailure, Err: decodeErr}
		}
		return LoginResponse{}, &Error{Kind: KindNoToken, Status: resp.status, Message: msgNoToken}
	}

	out.Username = firstString(body, "data.username", "username")
	out.Role = firstString(body, "data.role", "role")
	return out, nil
}

// FetchProfile returns the profile of the token's owner. A response without
// profile data yields (nil, nil).
func (c *Client) FetchProfile(ctx context.Context, token string) (*session.Profile, error) {
	resp, err := c.do(ctx, http.MethodGet, c.cfg.ProfilePath, token, nil)
	if err != nil {
		return nil, err
	}
	if !resp.ok() {
		body, _ := decodeObject(resp.body)
		return nil, statusError(resp.status, envelopeMessage(body))
	}

	raw := bytes.TrimSpace(resp.body)
	if len(raw) == 0 {
		return nil, nil
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, &Error{Kind: KindDecode, Status: resp.status, Message: msgDecodeFailure, Err: err}
	}

	if rawCode, ok := fields["code"]; ok {
		var code json.Number
		if json.Unmarshal(rawCode, &code) == nil {
			if n, err := code.Int64(); err == nil && !c.cfg.isSuccessCode(int(n)) {
				body, _ := decodeObject(raw)
				return nil, &Error{Kind: KindRejected, Status: resp.status, Message: envelopeMessage(body)}
			}
		}
	}

	profileJSON := raw
	if data, ok := fields["data"]; ok {
		profileJSON = data
	}
	if bytes.Equal(bytes.TrimSpace(profileJSON), []byte("null")) {
		return nil, nil
	}

	var p session.Profile
	if err := json.Unmarshal(profileJSON, &p); err != nil {
		return nil, &Error{Kind: KindDecode, Status: resp.status, Message: msgDecodeFailure, Err: err}
	}
	if p.IsZero() {
		return nil, nil
	}
	return &p, nil
}

// Register creates an account with the given canonical role.
func (c *Client) Register(ctx context.Context, username, password string, r role.Role) error {
	encoded, err := c.encode(password)
	if err != nil {
		return &Error{Kind: KindTransport, Message: msgRegisterFail, Err: fmt.Errorf("encode password: %w", err)}
	}
	resp, err := c.do(ctx, http.MethodPost, c.cfg.RegisterPath, "", credentials{
		Username: username,
		Password: encoded,
		Role:     r.Wire(),
	})
	if err != nil {
		return err
	}
	return c.envelopeResult(resp, msgRegisterFail)
}

// UpdateProfile sends a partial profile edit on behalf of token's owner.
func (c *Client) UpdateProfile(ctx context.Context, token string, u session.ProfileUpdate) error {
	resp, err := c.do(ctx, http.MethodPut, c.cfg.ProfileUpdatePath, token, u)
	if err != nil {
		return err
	}
	return c.envelopeResult(resp, msgUpdateFailed)
}

// envelopeResult succeeds iff the status is 2xx and the envelope code is
// absent or one of the success codes.
func (c *Client) envelopeResult(resp *response, fallback string) error {
	body, _ := decodeObject(resp.body)
	if !resp.ok() {
		return statusError(resp.status, orDefault(envelopeMessage(body), fallback))
	}
	if code, ok := envelopeCode(body); ok && !c.cfg.isSuccessCode(code) {
		return &Error{Kind: KindRejected, Status: resp.status, Message: orDefault(envelopeMessage(body), fallback)}
	}
	return nil
}

func (c *Client) headerToken(h http.Header) string {
	for _, name := range c.cfg.TokenHeaders {
		if v := stripBearer(h.Get(name)); v != "" {
			return v
		}
	}
	return ""
}

type response struct {
	status int
	header http.Header
	body   []byte
}

func (r *response) ok() bool {
	return r.status >= 200 && r.status < 300
}

func (c *Client) do(ctx context.Context, method, path, token string, payload any) (*response, error) {
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, &Error{Kind: KindTransport, Message: msgNetwork, Err: err}
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.cfg.url(path), body)
	if err != nil {
		return nil, &Error{Kind: KindTransport, Message: msgNetwork, Err: err}
	}
	requestID := RequestIDFrom(ctx)
	if requestID == "" {
		requestID = uuid.NewString()
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set(HeaderRequestID, requestID)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.cfg.UserAgent != "" {
		req.Header.Set("User-Agent", c.cfg.UserAgent)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Debug("request failed",
			zap.String("method", method),
			zap.String("path", path),
			zap.String("request_id", requestID),
			zap.Error(err),
		)
		return nil, &Error{Kind: KindTransport, Message: msgNetwork, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, &Error{Kind: KindTransport, Status: resp.StatusCode, Message: msgNetwork, Err: err}
	}
	// A login token starts a session; it never renews one.
	if c.observe != nil && path != c.cfg.LoginPath && RenewedToken(resp.Header, c.cfg.RenewedTokenHeader) != "" {
		c.observe(resp.Header)
	}

	c.logger.Debug("request completed",
		zap.String("method", method),
		zap.String("path", path),
		zap.String("request_id", requestID),
		zap.Int("status", resp.StatusCode),
		zap.Duration("elapsed", time.Since(start)),
	)
	return &response{status: resp.StatusCode, header: resp.Header, body: raw}, nil
}

func decodeObject(raw []byte) (map[string]any, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return nil, nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	m, ok := v.(map[string]any)
	if !ok {
		return nil, errors.New("response body is not a JSON object")
	}
	return m, nil
}

// lookup walks a dotted path through nested objects.
func lookup(m map[string]any, path string) (any, bool) {
	var cur any = m
	for _, part := range strings.Split(path, ".") {
		obj, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		cur, ok = obj[part]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

func firstString(m map[string]any, paths ...string) string {
	for _, p := range paths {
		v, ok := lookup(m, p)
		if !ok {
			continue
		}
		if s, ok := v.(string); ok {
			if s = stripBearer(s); s != "" {
				return s
			}
		}
	}
	return ""
}

func envelopeCode(m map[string]any) (int, bool) {
	switch v := m["code"].(type) {
	case json.Number:
		n, err := v.Int64()
		if err != nil {
			return 0, false
		}
		return int(n), true
	case string:
		i, err := json.Number(v).Int64()
		if err != nil {
			return 0, false
		}
		return int(i), true
	}
	return 0, false
}

func envelopeMessage(m map[string]any) string {
	return firstString(m, "message", "msg", "error")
}

func stripBearer(v string) string {
	v = strings.TrimSpace(v)
	if len(v) > 7 && strings.EqualFold(v[:7], "bearer ") {
		v = strings.TrimSpace(v[7:])
	}
	return v
}

func orDefault(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}
