package config

import (
	"errors"
	"fmt"
	"strings"

	goSession "github.com/MrEthical07/goSession"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g.
// GOSESSION_GATEWAY_BASE_URL or GOSESSION_STORE_DRIVER.
const EnvPrefix = "GOSESSION"

// Load reads the controller configuration. Values come from, in increasing
// precedence: [goSession.DefaultConfig], the file at path (skipped when path
// is empty) and GOSESSION_* environment variables. The result is validated.
func Load(path string) (goSession.Config, error) {
	v := newViper()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return goSession.Config{}, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	return decode(v)
}

// LoadDefault is Load with a config file searched as "gosession.{yaml,json,toml}"
// in dirs. A missing file is not an error.
func LoadDefault(dirs ...string) (goSession.Config, error) {
	v := newViper()
	v.SetConfigName("gosession")
	for _, dir := range dirs {
		v.AddConfigPath(dir)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return goSession.Config{}, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	return decode(v)
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v, goSession.DefaultConfig())
	return v
}

func decode(v *viper.Viper) (goSession.Config, error) {
	var cfg goSession.Config
	if err := v.Unmarshal(&cfg); err != nil {
		return goSession.Config{}, fmt.Errorf("failed to bind config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return goSession.Config{}, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// setDefaults registers every key so AutomaticEnv can override keys that are
// absent from the file.
func setDefaults(v *viper.Viper, d goSession.Config) {
	// Gateway
	v.SetDefault("gateway.base_url", d.Gateway.BaseURL)
	v.SetDefault("gateway.login_path", d.Gateway.LoginPath)
	v.SetDefault("gateway.profile_path", d.Gateway.ProfilePath)
	v.SetDefault("gateway.profile_update_path", d.Gateway.ProfileUpdatePath)
	v.SetDefault("gateway.register_path", d.Gateway.RegisterPath)
	v.SetDefault("gateway.token_headers", d.Gateway.TokenHeaders)
	v.SetDefault("gateway.body_token_fields", d.Gateway.BodyTokenFields)
	v.SetDefault("gateway.renewed_token_header", d.Gateway.RenewedTokenHeader)
	v.SetDefault("gateway.success_codes", d.Gateway.SuccessCodes)
	v.SetDefault("gateway.timeout", d.Gateway.Timeout)
	v.SetDefault("gateway.user_agent", d.Gateway.UserAgent)

	// Store
	v.SetDefault("store.driver", d.Store.Driver)
	v.SetDefault("store.path", d.Store.Path)
	v.SetDefault("store.prefix", d.Store.Prefix)
	v.SetDefault("store.ttl", d.Store.TTL)
	v.SetDefault("store.redis_addr", d.Store.RedisAddr)
	v.SetDefault("store.redis_password", d.Store.RedisPassword)
	v.SetDefault("store.redis_db", d.Store.RedisDB)

	// Session
	v.SetDefault("session.fetch_profile", d.Session.FetchProfile)
	v.SetDefault("session.persist_identity", d.Session.PersistIdentity)

	// Guard
	v.SetDefault("guard.home_path", d.Guard.HomePath)

	// Audit
	v.SetDefault("audit.enabled", d.Audit.Enabled)
	v.SetDefault("audit.buffer_size", d.Audit.BufferSize)
	v.SetDefault("audit.drop_if_full", d.Audit.DropIfFull)

	// Metrics
	v.SetDefault("metrics.enabled", d.Metrics.Enabled)
	v.SetDefault("metrics.enable_latency_histograms", d.Metrics.EnableLatencyHistograms)
}
