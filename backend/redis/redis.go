package redis

import (
	"context"
	"errors"
	"fmt"
	"strings"

	goredis "github.com/redis/go-redis/v9"

	"github.com/suyash-sneo/prefstore/backend"
)

const (
	defaultPrefix = "prefstore:"
	scanCount     = 256
	deleteChunk   = 512
)

// Options configure the Redis store.
type Options struct {
	Addr           string   `yaml:"addr"`
	SentinelAddrs  []string `yaml:"sentinelAddrs"`
	SentinelMaster string   `yaml:"sentinelMaster"`
	Username       string   `yaml:"username"`
	Password       string   `yaml:"password"`
	DB             int      `yaml:"db"`
	KeyPrefix      string   `yaml:"keyPrefix"`
}

// Store implements backend.Store using Redis. Every key is namespaced under
// the configured prefix so several applications can share one database.
type Store struct {
	client goredis.UniversalClient
	prefix string
}

var _ backend.Store = (*Store)(nil)

// New creates a Redis-backed store. Supports single instance or Sentinel via UniversalClient.
func New(opts Options) (*Store, error) {
	client := goredis.NewUniversalClient(&goredis.UniversalOptions{
		Addrs:      addrs(opts),
		MasterName: opts.SentinelMaster,
		Username:   opts.Username,
		Password:   opts.Password,
		DB:         opts.DB,
	})

	if err := client.Ping(context.Background()).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return NewWithClient(client, opts.KeyPrefix), nil
}

// NewWithClient wraps an existing client. An empty prefix selects the default.
func NewWithClient(client goredis.UniversalClient, prefix string) *Store {
	if prefix == "" {
		prefix = defaultPrefix
	}
	return &Store{
		client: client,
		prefix: prefix,
	}
}

func addrs(opts Options) []string {
	if len(opts.SentinelAddrs) > 0 {
		return opts.SentinelAddrs
	}
	if opts.Addr != "" {
		return []string{opts.Addr}
	}
	return []string{"127.0.0.1:6379"}
}

// Close releases the Redis client.
func (s *Store) Close() error {
	return s.client.Close()
}

func (s *Store) Get(ctx context.Context, key string) ([]byte, bool, error) {
	val, err := s.client.Get(ctx, s.key(key)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return val, true, nil
}

func (s *Store) Set(ctx context.Context, key string, value []byte) error {
	return s.client.Set(ctx, s.key(key), value, 0).Err()
}

func (s *Store) Remove(ctx context.Context, key string) error {
	return s.client.Del(ctx, s.key(key)).Err()
}

// Keys scans the prefix namespace. SCAN may return a key more than once, so
// results are de-duplicated.
func (s *Store) Keys(ctx context.Context) ([]string, error) {
	var (
		cursor uint64
		seen   = map[string]struct{}{}
		keys   []string
	)
	match := globEscape(s.prefix) + "*"
	for {
		batch, next, err := s.client.Scan(ctx, cursor, match, scanCount).Result()
		if err != nil {
			return nil, err
		}
		for _, k := range batch {
			k = strings.TrimPrefix(k, s.prefix)
			if _, dup := seen[k]; dup {
				continue
			}
			seen[k] = struct{}{}
			keys = append(keys, k)
		}
		cursor = next
		if cursor == 0 {
			return keys, nil
		}
	}
}

func (s *Store) RemoveMany(ctx context.Context, keys []string) error {
	if len(keys) == 0 {
		return nil
	}
	_, err := s.client.Pipelined(ctx, func(p goredis.Pipeliner) error {
		for start := 0; start < len(keys); start += deleteChunk {
			end := min(start+deleteChunk, len(keys))
			full := make([]string, 0, end-start)
			for _, k := range keys[start:end] {
				full = append(full, s.key(k))
			}
			p.Del(ctx, full...)
		}
		return nil
	})
	return err
}

func (s *Store) key(key string) string {
	return s.prefix + key
}

var globReplacer = strings.NewReplacer(`\`, `\\`, `*`, `\*`, `?`, `\?`, `[`, `\[`, `]`, `\]`)

func globEscape(s string) string {
	return globReplacer.Replace(s)
}
