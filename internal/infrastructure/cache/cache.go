package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"recipe-discovery/internal/infrastructure/config"
)

// Cache 字串快取；未命中時回傳 common.ErrCacheMiss
type Cache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Close() error
}

// New 依設定建立快取；停用時回傳 nil
func New(cfg config.CacheConfig) (Cache, error) {
	if !cfg.Enabled {
		return nil, nil
	}
	switch cfg.Type {
	case "redis":
		return NewRedis(cfg)
	case "memory", "":
		return NewManager(cfg), nil
	default:
		return nil, fmt.Errorf("unknown cache type %q", cfg.Type)
	}
}

// hashString 計算字符串的 SHA-256 哈希值
func hashString(s string) string {
	hash := sha256.Sum256([]byte(s))
	return hex.EncodeToString(hash[:])
}
