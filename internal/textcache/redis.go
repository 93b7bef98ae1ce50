// Package textcache holds full document texts in Redis, optionally in front
// of a durable store.
package textcache

import (
	"context"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

const keyPrefix = "docquiz:text:"

// Redis is a document text cache backed by a Redis server.
type Redis struct {
	rdb *goredis.Client
	ttl time.Duration
}

// NewRedis connects to addr and verifies the connection. A zero ttl keeps
// entries until they are overwritten.
func NewRedis(ctx context.Context, addr string, ttl time.Duration) (*Redis, error) {
	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &Redis{rdb: rdb, ttl: ttl}, nil
}

// GetText treats a missing or expired key as a miss.
func (r *Redis) GetText(ctx context.Context, documentID string) (string, error) {
	text, err := r.rdb.Get(ctx, keyPrefix+documentID).Result()
	if errors.Is(err, goredis.Nil) {
		return "", nil
	}
	return text, err
}

func (r *Redis) PutText(ctx context.Context, documentID, text string) error {
	return r.rdb.Set(ctx, keyPrefix+documentID, text, r.ttl).Err()
}

func (r *Redis) DeleteText(ctx context.Context, documentID string) error {
	return r.rdb.Del(ctx, keyPrefix+documentID).Err()
}

func (r *Redis) Close() error {
	return r.rdb.Close()
}
