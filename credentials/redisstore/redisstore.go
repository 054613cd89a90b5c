// Package redisstore keeps session credentials in Redis under a key prefix.
package redisstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/jrsteele09/go-auth-session/credentials"
	rdb "github.com/redis/go-redis/v9"
)

var (
	_ credentials.Store   = (*Store)(nil)
	_ credentials.Batcher = (*Store)(nil)
)

const defaultPrefix = "authsession:"

type Store struct {
	c      rdb.UniversalClient
	prefix string
}

type Option func(*Store)

// WithPrefix scopes every key. Use it to keep several sessions in one database.
func WithPrefix(prefix string) Option {
	return func(s *Store) {
		s.prefix = prefix
	}
}

// New wraps an existing client.
func New(c rdb.UniversalClient, opts ...Option) *Store {
	s := &Store{c: c, prefix: defaultPrefix}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Dial connects to addr and pings it before returning.
func Dial(ctx context.Context, addr, password string, db int, opts ...Option) (*Store, error) {
	c := rdb.NewClient(&rdb.Options{Addr: addr, Password: password, DB: db})
	if err := c.Ping(ctx).Err(); err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("[redisstore.Dial] ping %s: %w", addr, err)
	}
	return New(c, opts...), nil
}

func (s *Store) key(k string) string { return s.prefix + k }

func (s *Store) Get(ctx context.Context, key string) (string, bool, error) {
	v, err := s.c.Get(ctx, s.key(key)).Result()
	if errors.Is(err, rdb.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("[redisstore.Get] %s: %w", key, err)
	}
	return v, true, nil
}

func (s *Store) Set(ctx context.Context, key, value string) error {
	if err := s.c.Set(ctx, s.key(key), value, 0).Err(); err != nil {
		return fmt.Errorf("[redisstore.Set] %s: %w", key, err)
	}
	return nil
}

func (s *Store) Remove(ctx context.Context, key string) error {
	if err := s.c.Del(ctx, s.key(key)).Err(); err != nil {
		return fmt.Errorf("[redisstore.Remove] %s: %w", key, err)
	}
	return nil
}

func (s *Store) SetMany(ctx context.Context, values map[string]string) error {
	_, err := s.c.TxPipelined(ctx, func(p rdb.Pipeliner) error {
		for k, v := range values {
			p.Set(ctx, s.key(k), v, 0)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("[redisstore.SetMany] %w", err)
	}
	return nil
}

func (s *Store) RemoveMany(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = s.key(k)
	}
	if err := s.c.Del(ctx, full...).Err(); err != nil {
		return fmt.Errorf("[redisstore.RemoveMany] %w", err)
	}
	return nil
}

// Close releases the underlying client.
func (s *Store) Close() error {
	return s.c.Close()
}
