package redis

import (
	"context"

	"juni-core/common/config"

	"github.com/go-redis/redis/v8"
)

// Client alias so callers need not import go-redis directly
type Client = redis.Client

// NewRedisClient builds a client from RedisConfig
func NewRedisClient(cfg *config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
}

// Ping checks connectivity
func Ping(ctx context.Context, client *redis.Client) error {
	return client.Ping(ctx).Err()
}

// Close closes client if it is non-nil
func Close(client *redis.Client) error {
	if client == nil {
		return nil
	}
	return client.Close()
}
