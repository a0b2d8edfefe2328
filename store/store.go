// Package store persists per-user admin settings written by plugins, such
// as the chosen theme or the list refresh interval.
package store

import (
	"context"
	"fmt"

	"github.com/leeforge/adminsite/errors"
)

// Store keeps string settings per user.
type Store interface {
	// Get returns the value and whether it was present.
	Get(ctx context.Context, user, key string) (string, bool, error)
	Set(ctx context.Context, user, key, value string) error
	Delete(ctx context.Context, user, key string) error
	// All returns every setting of user.
	All(ctx context.Context, user string) (map[string]string, error)
	Close() error
}

// ServiceKey is the service registry key plugins resolve the Store by.
const ServiceKey = "settings.store"

// Driver names accepted by Config.Driver.
const (
	DriverMemory = "memory"
	DriverRedis  = "redis"
	DriverBolt   = "bolt"
)

// Config selects and configures the backend.
type Config struct {
	Driver string      `mapstructure:"driver" json:"driver" yaml:"driver" default:"memory" validate:"oneof=memory redis bolt"`
	Redis  RedisConfig `mapstructure:"redis" json:"redis" yaml:"redis"`
	Bolt   BoltConfig  `mapstructure:"bolt" json:"bolt" yaml:"bolt"`
}

type RedisConfig struct {
	Host     string `mapstructure:"host" json:"host" yaml:"host" default:"127.0.0.1"`
	Port     string `mapstructure:"port" json:"port" yaml:"port" default:"6379"`
	Password string `mapstructure:"password" json:"password" yaml:"password"`
	DB       int    `mapstructure:"db" json:"db" yaml:"db"`
	// Prefix namespaces the hash keys.
	Prefix string `mapstructure:"prefix" json:"prefix" yaml:"prefix" default:"adminsite:settings"`
}

func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%s", c.Host, c.Port)
}

// LogFields describes the connection without leaking the password.
func (c RedisConfig) LogFields() string {
	password := "<empty>"
	if c.Password != "" {
		password = "[REDACTED]"
	}
	return fmt.Sprintf("addr=%s db=%d password=%s", c.Addr(), c.DB, password)
}

type BoltConfig struct {
	Path string `mapstructure:"path" json:"path" yaml:"path" default:"adminsite.db"`
}

// Open builds the backend named by cfg.Driver.
func Open(ctx context.Context, cfg Config) (Store, error) {
	switch cfg.Driver {
	case "", DriverMemory:
		return NewMemory(), nil
	case DriverRedis:
		return NewRedis(ctx, cfg.Redis)
	case DriverBolt:
		return OpenBolt(cfg.Bolt.Path)
	default:
		return nil, errors.NewImproperlyConfigured("unknown store driver %q", cfg.Driver)
	}
}
