package store

import (
	"context"
	"errors"
	"sync/atomic"

	"go.uber.org/zap"
)

// Persisted credential keys.
const (
	KeyToken    = "token"
	KeyUsername = "username"
	KeyRole     = "role"
)

// ErrClosed is returned by backends used after Close.
var ErrClosed = errors.New("store: backend closed")

// Keys returns every credential key in a fixed order.
func Keys() []string {
	return []string{KeyToken, KeyUsername, KeyRole}
}

// Backend is a string key-value store. Load reports found=false for absent
// keys without an error. Delete removes all given keys in one operation and
// ignores keys that do not exist.
type Backend interface {
	Load(ctx context.Context, key string) (value string, found bool, err error)
	Save(ctx context.Context, key, value string) error
	Delete(ctx context.Context, keys ...string) error
	Close() error
}

// Credentials is the persisted part of a session.
type Credentials struct {
	Token    string
	Username string
	Role     string
}

// Store is the error-absorbing facade used by the session controller.
type Store struct {
	backend Backend
	logger  *zap.Logger
	failed  atomic.Bool
}

// New wraps backend. A nil logger discards log output.
func New(backend Backend, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{backend: backend, logger: logger.Named("store")}
}

// Available reports whether every backend call so far succeeded.
func (s *Store) Available() bool {
	return !s.failed.Load()
}

// Get returns the value for key. After a backend failure Get always reports
// not found.
func (s *Store) Get(ctx context.Context, key string) (string, bool) {
	if s.failed.Load() {
		return "", false
	}
	v, ok, err := s.backend.Load(ctx, key)
	if err != nil {
		s.fail("load", key, err)
		return "", false
	}
	return v, ok
}

// Set stores value under key. After a backend failure Set is a no-op.
func (s *Store) Set(ctx context.Context, key, value string) {
	if s.failed.Load() {
		return
	}
	if err := s.backend.Save(ctx, key, value); err != nil {
		s.fail("save", key, err)
	}
}

// Clear removes every credential key. It is attempted even after earlier
// failures so a previously persisted token does not outlive a logout.
func (s *Store) Clear(ctx context.Context) {
	if err := s.backend.Delete(ctx, Keys()...); err != nil {
		s.fail("delete", "*", err)
	}
}

// Load reads all credential keys.
func (s *Store) Load(ctx context.Context) Credentials {
	token, _ := s.Get(ctx, KeyToken)
	username, _ := s.Get(ctx, KeyUsername)
	role, _ := s.Get(ctx, KeyRole)
	return Credentials{Token: token, Username: username, Role: role}
}

// Save writes the non-empty fields of c.
func (s *Store) Save(ctx context.Context, c Credentials) {
	if c.Token != "" {
		s.Set(ctx, KeyToken, c.Token)
	}
	if c.Username != "" {
		s.Set(ctx, KeyUsername, c.Username)
	}
	if c.Role != "" {
		s.Set(ctx, KeyRole, c.Role)
	}
}

// Close releases the backend.
func (s *Store) Close() error {
	return s.backend.Close()
}

func (s *Store) fail(op, key string, err error) {
	if s.failed.CompareAndSwap(false, true) {
		s.logger.Warn("credential store unavailable, continuing memory-only",
			zap.String("op", op),
			zap.String("key", key),
			zap.Error(err),
		)
		return
	}
	s.logger.Debug("credential store operation failed",
		zap.String("op", op),
		zap.String("key", key),
		zap.Error(err),
	)
}
