// Package redis adapts a Redis instance to volume.Store. Objects live
// under a configurable key prefix so one instance can back several
// volumes.
package redis

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	redis "github.com/redis/go-redis/v9"

	"github.com/jonwraymond/codesession/volume"
)

// DefaultKeyPrefix namespaces volume objects in the Redis keyspace.
const DefaultKeyPrefix = "volume:"

// Config holds the settings for a Redis-backed store.
type Config struct {
	// Client is the connected Redis client. Required.
	Client *redis.Client

	// KeyPrefix namespaces stored keys. Default DefaultKeyPrefix.
	KeyPrefix string
}

// Store is a volume.Store backed by Redis string values.
type Store struct {
	rdb    *redis.Client
	prefix string
}

var _ volume.Store = (*Store)(nil)

// New returns a Store using cfg.Client.
func New(cfg Config) (*Store, error) {
	if cfg.Client == nil {
		return nil, errors.New("redis: Client is required")
	}
	prefix := cfg.KeyPrefix
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	return &Store{rdb: cfg.Client, prefix: prefix}, nil
}

// NewFromAddr connects to addr and returns a Store over the connection.
func NewFromAddr(addr string) (*Store, error) {
	if addr == "" {
		return nil, errors.New("redis: address is required")
	}
	return New(Config{Client: redis.NewClient(&redis.Options{Addr: addr})})
}

// Put stores data under key.
func (s *Store) Put(ctx context.Context, key string, data []byte) error {
	if err := s.rdb.Set(ctx, s.prefix+key, data, 0).Err(); err != nil {
		return fmt.Errorf("redis: put %q: %w", key, err)
	}
	return nil
}

// Get reads the object under key.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := s.rdb.Get(ctx, s.prefix+key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("%w: %s", volume.ErrNotFound, key)
		}
		return nil, fmt.Errorf("redis: get %q: %w", key, err)
	}
	return data, nil
}

// List returns the sorted keys beginning with prefix.
func (s *Store) List(ctx context.Context, prefix string) ([]string, error) {
	full, err := s.rdb.Keys(ctx, s.prefix+prefix+"*").Result()
	if err != nil {
		return nil, fmt.Errorf("redis: list %q: %w", prefix, err)
	}
	keys := make([]string, 0, len(full))
	for _, k := range full {
		keys = append(keys, strings.TrimPrefix(k, s.prefix))
	}
	sort.Strings(keys)
	return keys, nil
}

// Delete removes the object under key if present.
func (s *Store) Delete(ctx context.Context, key string) error {
	if err := s.rdb.Del(ctx, s.prefix+key).Err(); err != nil {
		return fmt.Errorf("redis: delete %q: %w", key, err)
	}
	return nil
}
