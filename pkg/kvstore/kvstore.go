package kvstore

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
)

// Store is the uniform key-value interface the messenger persists through.
// All backends behave the same way: Get reports found=false for a missing
// key, Set overwrites unconditionally, Delete is a no-op on a missing key.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// Config selects and configures a storage backend.
type Config struct {
	Type   string       `mapstructure:"type"` // memory | file | pebble | redis
	File   FileConfig   `mapstructure:"file"`
	Pebble PebbleConfig `mapstructure:"pebble"`
	Redis  RedisConfig  `mapstructure:"redis"`
}

type FileConfig struct {
	Path string `mapstructure:"path"`
}

type PebbleConfig struct {
	Path string `mapstructure:"path"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// Manager wraps the selected backend behind the Store interface.
type Manager struct {
	store  Store
	logger *logrus.Logger
}

// NewManager creates a storage manager for the configured backend.
func NewManager(cfg Config, logger *logrus.Logger) (*Manager, error) {
	var (
		store Store
		err   error
	)

	switch cfg.Type {
	case "memory":
		store = NewMemoryStore()
	case "file":
		store, err = NewFileStore(cfg.File.Path)
	case "pebble":
		store, err = NewPebbleStore(cfg.Pebble.Path)
	case "redis":
		store, err = NewRedisStore(cfg.Redis)
	default:
		return nil, fmt.Errorf("unsupported storage type: %s", cfg.Type)
	}
	if err != nil {
		return nil, err
	}

	logger.WithField("type", cfg.Type).Info("Storage backend initialized")

	return &Manager{store: store, logger: logger}, nil
}

// Delegate methods to underlying storage
func (m *Manager) Get(ctx context.Context, key string) ([]byte, bool, error) {
	return m.store.Get(ctx, key)
}

func (m *Manager) Set(ctx context.Context, key string, value []byte) error {
	return m.store.Set(ctx, key, value)
}

func (m *Manager) Delete(ctx context.Context, key string) error {
	return m.store.Delete(ctx, key)
}

func (m *Manager) Close() error {
	return m.store.Close()
}
