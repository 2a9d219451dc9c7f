package gateway

import (
	"errors"
	"net/url"
	"strings"
	"time"
)

// Config describes the backend contract.
type Config struct {
	// BaseURL is prefixed to every path. It may be absolute or, for clients
	// behind a proxy, a bare path such as "/api" resolved by the transport.
	BaseURL string `mapstructure:"base_url"`

	LoginPath         string `mapstructure:"login_path"`
	ProfilePath       string `mapstructure:"profile_path"`
	ProfileUpdatePath string `mapstructure:"profile_update_path"`
	RegisterPath      string `mapstructure:"register_path"`

	// TokenHeaders are checked in order on login responses. A "Bearer "
	// prefix is stripped.
	TokenHeaders []string `mapstructure:"token_headers"`
	// BodyTokenFields are dotted JSON paths checked in order when no header
	// carries a token.
	BodyTokenFields []string `mapstructure:"body_token_fields"`
	// RenewedTokenHeader marks a refreshed token on any API response.
	RenewedTokenHeader string `mapstructure:"renewed_token_header"`
	// SuccessCodes are envelope codes meaning success.
	SuccessCodes []int `mapstructure:"success_codes"`

	Timeout   time.Duration `mapstructure:"timeout"`
	UserAgent string        `mapstructure:"user_agent"`
}

// DefaultConfig returns the storefront backend contract.
func DefaultConfig() Config {
	return Config{
		BaseURL:            "/api",
		LoginPath:          "/auth/login",
		ProfilePath:        "/user",
		ProfileUpdatePath:  "/user/profile",
		RegisterPath:       "/user/register",
		TokenHeaders:       []string{"X-New-Token", "Authorization"},
		BodyTokenFields:    []string{"data.token", "token", "data.accessToken", "accessToken"},
		RenewedTokenHeader: "X-New-Token",
		SuccessCodes:       []int{1, 200},
		Timeout:            10 * time.Second,
		UserAgent:          "goSession/1",
	}
}

// Validate checks that the configuration can produce requests.
func (c Config) Validate() error {
	if c.BaseURL != "" {
		if _, err := url.Parse(c.BaseURL); err != nil {
			return errors.New("gateway: base_url is not a valid URL")
		}
	}
	paths := [...]struct{ name, value string }{
		{"login_path", c.LoginPath},
		{"profile_path", c.ProfilePath},
		{"profile_update_path", c.ProfileUpdatePath},
		{"register_path", c.RegisterPath},
	}
	for _, p := range paths {
		if !strings.HasPrefix(p.value, "/") {
			return errors.New("gateway: " + p.name + " must start with /")
		}
	}
	if len(c.TokenHeaders) == 0 && len(c.BodyTokenFields) == 0 {
		return errors.New("gateway: token_headers and body_token_fields cannot both be empty")
	}
	if c.Timeout < 0 {
		return errors.New("gateway: timeout must be >= 0")
	}
	return nil
}

func (c Config) url(path string) string {
	return strings.TrimRight(c.BaseURL, "/") + path
}

func (c Config) isSuccessCode(code int) bool {
	for _, ok := range c.SuccessCodes {
		if ok == code {
			return true
		}
	}
	return false
}
