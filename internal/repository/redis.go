package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/botledger/botgate/internal/config"
	"github.com/redis/go-redis/v9"
)

type RedisClient struct {
	Client *redis.Client
}

func NewRedisClient(cfg *config.Config) (*RedisClient, error) {
	if cfg.Redis.Addr == "" {
		return nil, fmt.Errorf("redis address is empty")
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &RedisClient{Client: rdb}, nil
}

// Get implements the enrichment cache read path. A miss and a transport
// error look the same to the caller; the adapter just refetches.
func (r *RedisClient) Get(ctx context.Context, key string) ([]byte, bool) {
	val, err := r.Client.Get(ctx, "ethereal:"+key).Bytes()
	if err != nil {
		return nil, false
	}
	return val, true
}

func (r *RedisClient) Set(ctx context.Context, key string, value []byte, ttl time.Duration) {
	_ = r.Client.Set(ctx, "ethereal:"+key, value, ttl).Err()
}
