package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"localcron/internal/config"
	"localcron/internal/domain"
)

// redisStore keeps the whole schedule as one JSON document under a single key.
type redisStore struct {
	client *redis.Client
	key    string
}

// OpenRedis connects to the configured server and checks it is reachable.
func OpenRedis(ctx context.Context, cfg config.Redis) (Store, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return NewRedis(client, cfg.Key), nil
}

// NewRedis wraps an existing client.
func NewRedis(client *redis.Client, key string) Store {
	return &redisStore{client: client, key: key}
}

func (r *redisStore) Close() error { return r.client.Close() }

func (r *redisStore) ReadAll(ctx context.Context) (domain.Schedule, error) {
	b, err := r.client.Get(ctx, r.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.Schedule{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s from redis: %w", r.key, err)
	}
	return decodeDocument(b)
}

func (r *redisStore) WriteAll(ctx context.Context, s domain.Schedule) error {
	b, err := encodeDocument(s)
	if err != nil {
		return err
	}
	if err := r.client.Set(ctx, r.key, b, 0).Err(); err != nil {
		return fmt.Errorf("failed to write %s to redis: %w", r.key, err)
	}
	return nil
}
