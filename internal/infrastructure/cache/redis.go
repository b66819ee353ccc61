package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"recipe-discovery/internal/infrastructure/config"
	"recipe-discovery/internal/pkg/common"
)

// Redis redis 快取
type Redis struct {
	client *redis.Client
	ttl    time.Duration
	prefix string
}

var _ Cache = (*Redis)(nil)

// NewRedis 連線 redis 並測試連接
func NewRedis(cfg config.CacheConfig) (*Redis, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &Redis{
		client: client,
		ttl:    cfg.TTL,
		prefix: "recipe-discovery:",
	}, nil
}

// Get 獲取緩存
func (r *Redis) Get(ctx context.Context, key string) (string, error) {
	val, err := r.client.Get(ctx, r.prefix+key).Result()
	if errors.Is(err, redis.Nil) {
		return "", common.ErrCacheMiss
	}
	if err != nil {
		return "", fmt.Errorf("failed to get cache: %w", err)
	}
	return val, nil
}

// Set 設置緩存
func (r *Redis) Set(ctx context.Context, key, value string) error {
	if err := r.client.Set(ctx, r.prefix+key, value, r.ttl).Err(); err != nil {
		return fmt.Errorf("failed to set cache: %w", err)
	}
	return nil
}

// Ping 健康檢查用
func (r *Redis) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// Close 關閉連線
func (r *Redis) Close() error {
	return r.client.Close()
}
