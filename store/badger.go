package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v3"
	"go.uber.org/zap"
)

const defaultBadgerPrefix = "gosession"

// BadgerBackend stores credentials in an embedded BadgerDB.
type BadgerBackend struct {
	db     *badger.DB
	prefix string
	owned  bool
}

// OpenBadger opens (or creates) a BadgerDB at dir. An empty dir opens an
// in-memory database. Badger's own log output goes to logger at its native
// levels; a nil logger silences it.
func OpenBadger(dir, prefix string, logger *zap.Logger) (*BadgerBackend, error) {
	opts := badger.DefaultOptions(dir)
	if dir == "" {
		opts = opts.WithInMemory(true)
	}
	if logger == nil {
		opts.Logger = nil
	} else {
		opts.Logger = badgerLogger{logger.Named("badger").Sugar()}
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger at %q: %w", dir, err)
	}
	b := NewBadgerBackend(db, prefix)
	b.owned = true
	return b, nil
}

// NewBadgerBackend wraps an already open database. Close does not close db.
func NewBadgerBackend(db *badger.DB, prefix string) *BadgerBackend {
	if prefix == "" {
		prefix = defaultBadgerPrefix
	}
	return &BadgerBackend{db: db, prefix: prefix}
}

func (b *BadgerBackend) key(k string) []byte {
	return []byte(b.prefix + ":" + k)
}

// Load implements Backend.
func (b *BadgerBackend) Load(_ context.Context, key string) (string, bool, error) {
	var value []byte
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(b.key(key))
		if err != nil {
			return err
		}
		value, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return string(value), true, nil
}

// Save implements Backend.
func (b *BadgerBackend) Save(_ context.Context, key, value string) error {
	return b.db.Update(func(txn *badger.Txn) error {
		return txn.Set(b.key(key), []byte(value))
	})
}

// Delete implements Backend. All keys are removed in one transaction.
func (b *BadgerBackend) Delete(_ context.Context, keys ...string) error {
	return b.db.Update(func(txn *badger.Txn) error {
		for _, k := range keys {
			if err := txn.Delete(b.key(k)); err != nil {
				return err
			}
		}
		return nil
	})
}

// Close implements Backend.
func (b *BadgerBackend) Close() error {
	if !b.owned {
		return nil
	}
	return b.db.Close()
}

type badgerLogger struct {
	*zap.SugaredLogger
}

func (l badgerLogger) Warningf(format string, args ...any) {
	l.Warnf(format, args...)
}
