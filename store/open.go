package store

import (
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Supported backend drivers.
const (
	DriverMemory = "memory"
	DriverFile   = "file"
	DriverBadger = "badger"
	DriverRedis  = "redis"
)

// Config selects and configures a backend.
type Config struct {
	// Driver is one of memory, file, badger or redis.
	Driver string `mapstructure:"driver"`
	// Path is the credential file for the file driver and the database
	// directory for badger (empty means in-memory badger).
	Path string `mapstructure:"path"`
	// Prefix namespaces keys in shared databases.
	Prefix string `mapstructure:"prefix"`
	// TTL expires redis keys; zero keeps them until logout.
	TTL time.Duration `mapstructure:"ttl"`

	RedisAddr     string `mapstructure:"redis_addr"`
	RedisPassword string `mapstructure:"redis_password"`
	RedisDB       int    `mapstructure:"redis_db"`
}

// ErrUnknownDriver is returned by Open for unsupported drivers.
var ErrUnknownDriver = errors.New("store: unknown driver")

// Validate checks driver-specific requirements.
func (c Config) Validate() error {
	switch c.Driver {
	case "", DriverMemory, DriverBadger:
	case DriverFile:
		if c.Path == "" {
			return errors.New("store: file driver requires path")
		}
	case DriverRedis:
		if c.RedisAddr == "" {
			return errors.New("store: redis driver requires redis_addr")
		}
	default:
		return fmt.Errorf("%w %q", ErrUnknownDriver, c.Driver)
	}
	if c.TTL < 0 {
		return errors.New("store: ttl must be >= 0")
	}
	return nil
}

// Open constructs the backend described by cfg. An empty driver selects the
// memory backend. Backends opened here own their connections and release
// them on Close.
func Open(cfg Config, logger *zap.Logger) (Backend, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	switch cfg.Driver {
	case "", DriverMemory:
		return NewMemoryBackend(), nil
	case DriverFile:
		return NewFileBackend(cfg.Path), nil
	case DriverBadger:
		return OpenBadger(cfg.Path, cfg.Prefix, logger)
	case DriverRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		b := NewRedisBackend(client, cfg.Prefix, cfg.TTL)
		b.owned = true
		logger.Debug("redis credential backend configured",
			zap.String("addr", cfg.RedisAddr),
			zap.String("prefix", b.prefix),
		)
		return b, nil
	}
	return nil, fmt.Errorf("%w %q", ErrUnknownDriver, cfg.Driver)
}
