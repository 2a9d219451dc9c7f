package goSession

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/MrEthical07/goSession/gateway"
	"github.com/MrEthical07/goSession/store"
)

// Config is the complete controller configuration. Obtain defaults with
// [DefaultConfig] and adjust; [Builder.Build] validates it.
type Config struct {
	Gateway gateway.Config `mapstructure:"gateway"`
	Store   store.Config   `mapstructure:"store"`
	Session SessionConfig  `mapstructure:"session"`
	Guard   GuardConfig    `mapstructure:"guard"`
	Audit   AuditConfig    `mapstructure:"audit"`
	Metrics MetricsConfig  `mapstructure:"metrics"`
}

/*
====================================
SESSION CONFIG
====================================
*/

// SessionConfig controls profile hydration.
type SessionConfig struct {
	// FetchProfile calls the profile endpoint after login and on boot. When
	// false, identity always comes from the token payload.
	FetchProfile bool `mapstructure:"fetch_profile"`
	// PersistIdentity writes the resolved username and role back to the
	// credential store after hydration.
	PersistIdentity bool `mapstructure:"persist_identity"`
}

/*
====================================
GUARD CONFIG
====================================
*/

// GuardConfig configures route guards built with [Controller.NewGuard].
type GuardConfig struct {
	// HomePath is where denied navigations are redirected.
	HomePath string `mapstructure:"home_path"`
}

/*
====================================
AUDIT CONFIG
====================================
*/

// AuditConfig controls the asynchronous lifecycle event dispatcher.
type AuditConfig struct {
	Enabled    bool `mapstructure:"enabled"`
	BufferSize int  `mapstructure:"buffer_size"`
	DropIfFull bool `mapstructure:"drop_if_full"`
}

/*
====================================
METRICS CONFIG
====================================
*/

// MetricsConfig controls the in-process counters.
type MetricsConfig struct {
	Enabled                 bool `mapstructure:"enabled"`
	EnableLatencyHistograms bool `mapstructure:"enable_latency_histograms"`
}

func defaultConfig() Config {
	return Config{
		Gateway: gateway.DefaultConfig(),
		Store: store.Config{
			Driver: store.DriverMemory,
		},
		Session: SessionConfig{
			FetchProfile:    true,
			PersistIdentity: true,
		},
		Guard: GuardConfig{
			HomePath: "/",
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 256,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 true,
			EnableLatencyHistograms: false,
		},
	}
}

// DefaultConfig returns the configuration used by [New].
func DefaultConfig() Config {
	return defaultConfig()
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.Gateway.TokenHeaders = append([]string(nil), cfg.Gateway.TokenHeaders...)
	out.Gateway.BodyTokenFields = append([]string(nil), cfg.Gateway.BodyTokenFields...)
	out.Gateway.SuccessCodes = append([]int(nil), cfg.Gateway.SuccessCodes...)
	return out
}

// Validate returns the first configuration problem found, or nil.
func (c *Config) Validate() error {
	if err := c.Gateway.Validate(); err != nil {
		return err
	}
	if err := c.Store.Validate(); err != nil {
		return err
	}

	// Guard
	if !strings.HasPrefix(c.Guard.HomePath, "/") {
		return errors.New("Guard HomePath must start with /")
	}

	// Audit
	if c.Audit.BufferSize < 0 {
		return errors.New("Audit BufferSize must be >= 0")
	}
	if c.Audit.Enabled && c.Audit.BufferSize == 0 {
		return errors.New("Audit BufferSize must be > 0 when Audit is enabled")
	}

	// Metrics
	if c.Metrics.EnableLatencyHistograms && !c.Metrics.Enabled {
		return errors.New("Metrics EnableLatencyHistograms requires Metrics Enabled")
	}
	return nil
}

// LintWarning is a configuration that is valid but probably unintended.
type LintWarning struct {
	Code    string
	Message string
}

// LintResult is the list of warnings produced by [Config.Lint].
type LintResult []LintWarning

// Codes returns the warning codes in order.
func (r LintResult) Codes() []string {
	codes := make([]string, len(r))
	for i, w := range r {
		codes[i] = w.Code
	}
	return codes
}

// Lint reports settings that are valid but risky for a deployed client.
// It never fails; run Validate for hard errors.
func (c *Config) Lint() LintResult {
	var ws LintResult
	add := func(code, format string, args ...any) {
		ws = append(ws, LintWarning{Code: code, Message: fmt.Sprintf(format, args...)})
	}

	if c.Store.Driver == "" || c.Store.Driver == store.DriverMemory {
		add("store_memory_only", "credentials are kept in memory and lost on restart")
	}
	if c.Store.Driver == store.DriverBadger && c.Store.Path == "" {
		add("store_memory_only", "badger without a path runs in memory and loses credentials on restart")
	}
	if c.Store.Driver == store.DriverRedis && c.Store.TTL == 0 {
		add("store_redis_no_ttl", "redis credentials never expire on their own")
	}
	if u, err := url.Parse(c.Gateway.BaseURL); err == nil && u.Scheme == "http" && !isLoopback(u.Hostname()) {
		add("gateway_plain_http", "gateway base URL %q sends credentials without TLS", c.Gateway.BaseURL)
	}
	if c.Gateway.Timeout == 0 {
		add("gateway_no_timeout", "gateway requests have no timeout")
	}
	if c.Audit.Enabled && !c.Audit.DropIfFull {
		add("audit_blocking", "a slow audit sink blocks session operations")
	}
	if !c.Session.FetchProfile {
		add("profile_fetch_disabled", "identity is taken from unverified token claims only")
	}
	return ws
}

func isLoopback(host string) bool {
	switch host {
	case "localhost", "127.0.0.1", "::1":
		return true
	}
	return false
}
