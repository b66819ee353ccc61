package health

import (
	"context"
	"net/http"
	"runtime"
	"sort"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"recipe-discovery/internal/pkg/common"
)

// Checker 就緒檢查，例如資料庫或 redis 連線
type Checker func(ctx context.Context) error

// HealthResponse 健康檢查響應
type HealthResponse struct {
	Status    string                 `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	Version   string                 `json:"version"`
	Uptime    string                 `json:"uptime"`
	Runtime   map[string]interface{} `json:"runtime"`
}

// Handler 健康檢查處理器
type Handler struct {
	version string
	started time.Time
	timeout time.Duration
	checks  map[string]Checker
}

// NewHandler 創建健康檢查處理器
func NewHandler(version string, checks map[string]Checker) *Handler {
	return &Handler{
		version: version,
		started: time.Now(),
		timeout: 2 * time.Second,
		checks:  checks,
	}
}

// HealthCheck 健康檢查處理器
func (h *Handler) HealthCheck(c *gin.Context) {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	response := HealthResponse{
		Status:    "ok",
		Timestamp: time.Now(),
		Version:   h.version,
		Uptime:    time.Since(h.started).Round(time.Second).String(),
		Runtime: map[string]interface{}{
			"goroutines": runtime.NumGoroutine(),
			"memory": map[string]interface{}{
				"alloc":       m.Alloc,
				"total_alloc": m.TotalAlloc,
				"sys":         m.Sys,
				"num_gc":      m.NumGC,
			},
		},
	}

	common.LogDebug("Health check request",
		zap.String("client_ip", c.ClientIP()),
		zap.String("path", c.Request.URL.Path),
	)

	c.JSON(http.StatusOK, response)
}

// ReadinessCheck 依序執行所有就緒檢查，任一失敗回應 503
func (h *Handler) ReadinessCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
	defer cancel()

	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	results := make(map[string]string, len(names))
	ready := true
	for _, name := range names {
		if err := h.checks[name](ctx); err != nil {
			ready = false
			results[name] = err.Error()
			common.LogWarn("就緒檢查失敗", zap.String("check", name), zap.Error(err))
			continue
		}
		results[name] = "ok"
	}

	if !ready {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not_ready", "checks": results})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready", "checks": results})
}

// LivenessCheck 存活檢查處理器
func (h *Handler) LivenessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "alive",
	})
}
