// Package storage provides the local key/value slot the session store
// persists into. It stands in for a browser's localStorage: string keys,
// string values, last write wins.
package storage

import (
	"context"
	"strings"

	"github.com/pkg/errors"
)

// Store is a string key/value store.
type Store interface {
	// Get returns the value under key and whether it was present.
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	// Remove deletes key; removing a missing key is not an error.
	Remove(ctx context.Context, key string) error
	Close() error
}

// Drivers accepted by Open.
const (
	DriverMemory = "memory"
	DriverFile   = "file"
	DriverSQLite = "sqlite"
	DriverRedis  = "redis"
)

// Options selects and configures a Store backend.
type Options struct {
	Driver string
	// Path is the file path for the file and sqlite drivers.
	Path string

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisPrefix   string
}

// Open builds the Store selected by opts.Driver.
func Open(ctx context.Context, opts Options) (Store, error) {
	switch strings.ToLower(strings.TrimSpace(opts.Driver)) {
	case "", DriverMemory:
		return NewMemoryStore(), nil
	case DriverFile:
		return NewFileStore(opts.Path)
	case DriverSQLite:
		dsn, err := SQLiteDSNForFile(opts.Path)
		if err != nil {
			return nil, err
		}
		return NewSQLiteStore(dsn)
	case DriverRedis:
		return NewRedisStore(ctx, RedisOptions{
			Addr:     opts.RedisAddr,
			Password: opts.RedisPassword,
			DB:       opts.RedisDB,
			Prefix:   opts.RedisPrefix,
		})
	default:
		return nil, errors.Errorf("storage: unknown driver %q", opts.Driver)
	}
}

func validateKey(key string) error {
	if strings.TrimSpace(key) == "" {
		return errors.New("storage: empty key")
	}
	return nil
}
