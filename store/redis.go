package store

import (
	"context"
	"fmt"

	redis "github.com/go-redis/redis/v8"
)

// Redis keeps each user's settings in one hash.
type Redis struct {
	client *redis.Client
	prefix string
}

// NewRedis connects and pings the server.
func NewRedis(ctx context.Context, cfg RedisConfig) (*Redis, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping (%s): %w", cfg.LogFields(), err)
	}
	return NewRedisWithClient(client, cfg.Prefix), nil
}

// NewRedisWithClient wraps an existing client.
func NewRedisWithClient(client *redis.Client, prefix string) *Redis {
	if prefix == "" {
		prefix = "adminsite:settings"
	}
	return &Redis{client: client, prefix: prefix}
}

func (r *Redis) key(user string) string {
	return r.prefix + ":" + user
}

func (r *Redis) Get(ctx context.Context, user, key string) (string, bool, error) {
	v, err := r.client.HGet(ctx, r.key(user), key).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

func (r *Redis) Set(ctx context.Context, user, key, value string) error {
	return r.client.HSet(ctx, r.key(user), key, value).Err()
}

func (r *Redis) Delete(ctx context.Context, user, key string) error {
	return r.client.HDel(ctx, r.key(user), key).Err()
}

func (r *Redis) All(ctx context.Context, user string) (map[string]string, error) {
	return r.client.HGetAll(ctx, r.key(user)).Result()
}

func (r *Redis) Close() error {
	return r.client.Close()
}
