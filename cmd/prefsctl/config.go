package main

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/suyash-sneo/prefstore/backend/bolt"
	"github.com/suyash-sneo/prefstore/backend/pebble"
	"github.com/suyash-sneo/prefstore/backend/redis"
	"github.com/suyash-sneo/prefstore/backend/sqlstore"
	"github.com/suyash-sneo/prefstore/stores"
)

// Backend kinds accepted by --backend and backend.kind.
const (
	kindMemory = "memory"
	kindRedis  = "redis"
	kindBolt   = "bolt"
	kindPebble = "pebble"
	kindSQLite = "sqlite"
)

type fileConfig struct {
	Backend backendConfig    `yaml:"backend"`
	Store   stores.Config    `yaml:"store"`
	Log     logConfig        `yaml:"log"`
	Metrics metricsConfig    `yaml:"metrics"`
}

type backendConfig struct {
	Kind   string           `yaml:"kind"`
	Redis  redis.Options    `yaml:"redis"`
	Bolt   bolt.Options     `yaml:"bolt"`
	Pebble pebble.Options   `yaml:"pebble"`
	SQLite sqlstore.Options `yaml:"sqlite"`
}

type logConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type metricsConfig struct {
	// Listen is the address serving /metrics; empty disables it.
	Listen string `yaml:"listen"`
}

func defaultFileConfig() fileConfig {
	return fileConfig{
		Backend: backendConfig{Kind: kindMemory},
		Store:   stores.DefaultConfig(),
		Log:     logConfig{Level: "warn", Format: "console"},
	}
}

// loadConfig reads path over the defaults. An empty path yields the defaults.
func loadConfig(path string) (fileConfig, error) {
	cfg := defaultFileConfig()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// applyDSN routes the --dsn flag to the option of the selected kind.
func (c *backendConfig) applyDSN(dsn string) {
	if dsn == "" {
		return
	}
	switch c.Kind {
	case kindRedis:
		c.Redis.Addr = dsn
	case kindBolt:
		c.Bolt.Path = dsn
	case kindPebble:
		c.Pebble.Dir = dsn
	case kindSQLite:
		c.SQLite.DSN = dsn
	}
}

func (c fileConfig) validate() error {
	switch c.Backend.Kind {
	case kindMemory, kindRedis, kindBolt, kindPebble, kindSQLite:
	default:
		return fmt.Errorf("unknown backend kind %q", c.Backend.Kind)
	}
	if err := c.Store.Validate(); err != nil {
		return fmt.Errorf("store config: %w", err)
	}
	switch c.Log.Format {
	case "", "console", "json":
	default:
		return fmt.Errorf("unknown log format %q", c.Log.Format)
	}
	return nil
}
