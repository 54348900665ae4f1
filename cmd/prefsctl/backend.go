package main

import (
	"fmt"

	miniredis "github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/multierr"

	"github.com/suyash-sneo/prefstore/backend"
	"github.com/suyash-sneo/prefstore/backend/bolt"
	"github.com/suyash-sneo/prefstore/backend/pebble"
	"github.com/suyash-sneo/prefstore/backend/redis"
	"github.com/suyash-sneo/prefstore/backend/sqlstore"
)

// openBackend builds the backend selected by cfg. The memory kind runs an
// embedded redis server that lives as long as the returned closer.
func openBackend(cfg backendConfig) (backend.Store, func() error, error) {
	switch cfg.Kind {
	case kindMemory:
		server, err := miniredis.Run()
		if err != nil {
			return nil, nil, fmt.Errorf("start embedded redis: %w", err)
		}
		s := redis.NewWithClient(goredis.NewClient(&goredis.Options{Addr: server.Addr()}), cfg.Redis.KeyPrefix)
		return s, func() error {
			err := s.Close()
			server.Close()
			return err
		}, nil
	case kindRedis:
		s, err := redis.New(cfg.Redis)
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil
	case kindBolt:
		s, err := bolt.Open(cfg.Bolt)
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil
	case kindPebble:
		s, err := pebble.Open(cfg.Pebble)
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil
	case kindSQLite:
		s, err := sqlstore.OpenSQLite(cfg.SQLite)
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown backend kind %q", cfg.Kind)
	}
}

// closeAll runs every closer and combines their errors.
func closeAll(closers ...func() error) error {
	var err error
	for _, c := range closers {
		if c != nil {
			err = multierr.Append(err, c())
		}
	}
	return err
}
