// Package redis keeps the session token under one Redis key, so several
// machines can share one session.
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	keyPrefix      = "optiflow:"
	defaultTimeout = 5 * time.Second
)

// Config selects the Redis server holding the token. Timeout bounds the
// dial, read and write of every command.
type Config struct {
	Addr     string
	Password string
	DB       int
	Timeout  time.Duration
}

// TokenRepository stores the token at optiflow:<key>.
type TokenRepository struct {
	client *redis.Client
	key    string
}

// Open dials cfg.Addr and returns the repository for key once the server
// answers a ping.
func Open(ctx context.Context, cfg Config, key string) (*TokenRepository, error) {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  timeout,
		ReadTimeout:  timeout,
		WriteTimeout: timeout,
	})

	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", cfg.Addr, err)
	}

	return &TokenRepository{client: client, key: keyPrefix + key}, nil
}

func (r *TokenRepository) Get(ctx context.Context) (string, error) {
	token, err := r.client.Get(ctx, r.key).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("redis get token: %w", err)
	}
	return token, nil
}

func (r *TokenRepository) Set(ctx context.Context, token string) error {
	if err := r.client.Set(ctx, r.key, token, 0).Err(); err != nil {
		return fmt.Errorf("redis set token: %w", err)
	}
	return nil
}

// Clear is idempotent; deleting a missing key is not an error.
func (r *TokenRepository) Clear(ctx context.Context) error {
	if err := r.client.Del(ctx, r.key).Err(); err != nil {
		return fmt.Errorf("redis clear token: %w", err)
	}
	return nil
}

func (r *TokenRepository) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *TokenRepository) Close() error {
	return r.client.Close()
}
