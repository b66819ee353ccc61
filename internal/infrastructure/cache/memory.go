package cache

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"recipe-discovery/internal/infrastructure/config"
	"recipe-discovery/internal/pkg/common"
)

// Manager 記憶體快取：TTL 到期淘汰，滿時依存取次數與最後存取時間淘汰
type Manager struct {
	maxSize int
	ttl     time.Duration
	now     func() time.Time

	mu    sync.Mutex
	store map[string]cacheEntry
	stats cacheStats

	stop     chan struct{}
	stopOnce sync.Once
}

// cacheEntry 緩存條目
type cacheEntry struct {
	value       string
	expiresAt   time.Time
	createdAt   time.Time
	lastAccess  time.Time
	accessCount int
}

// cacheStats 緩存統計
type cacheStats struct {
	hits      int64
	misses    int64
	evictions int64
	errors    int64
}

var _ Cache = (*Manager)(nil)

// NewManager 創建新的緩存管理器並啟動定期清理
func NewManager(cfg config.CacheConfig) *Manager {
	m := &Manager{
		maxSize: cfg.MaxSize,
		ttl:     cfg.TTL,
		now:     time.Now,
		store:   make(map[string]cacheEntry),
		stop:    make(chan struct{}),
	}

	if cfg.CleanupInterval > 0 {
		go m.startCleanup(cfg.CleanupInterval)
	}

	common.LogInfo("快取管理員已初始化",
		zap.Int("最大容量", cfg.MaxSize),
		zap.Duration("存活時間", cfg.TTL),
		zap.Duration("清理間隔", cfg.CleanupInterval),
	)

	return m
}

// Get 獲取緩存值
func (m *Manager) Get(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.store[key]
	if !exists {
		m.stats.misses++
		return "", common.ErrCacheMiss
	}

	if m.now().After(entry.expiresAt) {
		delete(m.store, key)
		m.stats.evictions++
		m.stats.misses++
		common.LogDebug("快取已過期", zap.String("鍵", key))
		return "", common.ErrCacheMiss
	}

	entry.lastAccess = m.now()
	entry.accessCount++
	m.store[key] = entry
	m.stats.hits++
	return entry.value, nil
}

// Set 設置緩存值
func (m *Manager) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.store[key]; !exists && len(m.store) >= m.maxSize {
		// 先清理過期項目，仍然滿時執行 LRU 淘汰
		m.cleanup()
		if len(m.store) >= m.maxSize {
			m.evictLRU()
		}
		if len(m.store) >= m.maxSize {
			m.stats.errors++
			common.LogWarn("快取已滿", zap.Int("目前容量", len(m.store)))
			return common.ErrCacheFull
		}
	}

	now := m.now()
	m.store[key] = cacheEntry{
		value:      value,
		expiresAt:  now.Add(m.ttl),
		createdAt:  now,
		lastAccess: now,
	}
	return nil
}

// startCleanup 定期清理過期緩存，直到 Close
func (m *Manager) startCleanup(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.mu.Lock()
			m.cleanup()
			m.mu.Unlock()
		case <-m.stop:
			return
		}
	}
}

// cleanup 清理過期的緩存；呼叫者必須持有鎖
func (m *Manager) cleanup() int {
	now := m.now()
	count := 0

	for key, entry := range m.store {
		if now.After(entry.expiresAt) {
			delete(m.store, key)
			count++
			m.stats.evictions++
		}
	}

	if count > 0 {
		common.LogDebug("Cleaned up expired cache entries",
			zap.Int("count", count),
			zap.Int64("total_evictions", m.stats.evictions),
			zap.Int("remaining_size", len(m.store)),
		)
	}

	return count
}

// evictLRU 淘汰存取次數最少、最久未存取的項目；呼叫者必須持有鎖
func (m *Manager) evictLRU() {
	var (
		oldestKey         string
		oldestAccess      time.Time
		lowestAccessCount int
	)

	for key, entry := range m.store {
		if oldestKey == "" ||
			entry.accessCount < lowestAccessCount ||
			(entry.accessCount == lowestAccessCount && entry.lastAccess.Before(oldestAccess)) {
			oldestKey = key
			oldestAccess = entry.lastAccess
			lowestAccessCount = entry.accessCount
		}
	}

	if oldestKey != "" {
		delete(m.store, oldestKey)
		m.stats.evictions++
		common.LogDebug("快取已淘汰(LRU)", zap.String("鍵", oldestKey))
	}
}

// GetStats 獲取緩存統計信息
func (m *Manager) GetStats() map[string]interface{} {
	m.mu.Lock()
	defer m.mu.Unlock()

	ratio := 0.0
	if total := m.stats.hits + m.stats.misses; total > 0 {
		ratio = float64(m.stats.hits) / float64(total)
	}
	return map[string]interface{}{
		"size":      len(m.store),
		"max_size":  m.maxSize,
		"hits":      m.stats.hits,
		"misses":    m.stats.misses,
		"evictions": m.stats.evictions,
		"errors":    m.stats.errors,
		"hit_ratio": ratio,
	}
}

// Close 停止清理並清空緩存
func (m *Manager) Close() error {
	m.stopOnce.Do(func() { close(m.stop) })

	m.mu.Lock()
	defer m.mu.Unlock()

	m.store = make(map[string]cacheEntry)
	common.LogInfo("快取管理員已關閉",
		zap.Int64("命中次數", m.stats.hits),
		zap.Int64("未命中次數", m.stats.misses),
		zap.Int64("淘汰次數", m.stats.evictions),
	)
	return nil
}
