package middleware

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"recipe-discovery/internal/pkg/common"
)

// Deduplicator 在時間窗內拒絕相同的 POST 請求（同一擁有者、路徑、內容）
type Deduplicator struct {
	window time.Duration
	now    func() time.Time

	mu       sync.Mutex
	requests map[string]time.Time

	stop     chan struct{}
	stopOnce sync.Once
}

// NewDeduplicator 建立去重器並啟動定期清理
func NewDeduplicator(window time.Duration) *Deduplicator {
	if window <= 0 {
		window = time.Second
	}
	d := &Deduplicator{
		window:   window,
		now:      time.Now,
		requests: make(map[string]time.Time),
		stop:     make(chan struct{}),
	}
	go d.cleanupLoop(10 * time.Minute)
	return d
}

func (d *Deduplicator) cleanupLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			d.cleanup()
		case <-d.stop:
			return
		}
	}
}

func (d *Deduplicator) cleanup() {
	d.mu.Lock()
	defer d.mu.Unlock()
	now := d.now()
	for k, t := range d.requests {
		if now.Sub(t) > d.window {
			delete(d.requests, k)
		}
	}
}

// seen 記錄指紋；時間窗內已出現過回傳 true
func (d *Deduplicator) seen(fingerprint string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.now()
	if last, ok := d.requests[fingerprint]; ok && now.Sub(last) <= d.window {
		return true
	}
	d.requests[fingerprint] = now
	return false
}

// Close 停止清理 goroutine
func (d *Deduplicator) Close() {
	d.stopOnce.Do(func() { close(d.stop) })
}

// Middleware 請求去重中間件，只處理 POST
func (d *Deduplicator) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method != http.MethodPost {
			c.Next()
			return
		}

		fingerprint := c.Request.Method + ":" + c.Request.URL.Path + ":" + c.GetHeader(OwnerHeader)
		if c.Request.Body != nil {
			body, err := io.ReadAll(c.Request.Body)
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				common.LogWarn("Request body too large",
					zap.Int64("max_size", tooLarge.Limit),
					zap.String("path", c.Request.URL.Path),
				)
				c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, common.ErrorResponse{
					Code:    "REQUEST_TOO_LARGE",
					Message: "request body too large",
				})
				return
			}
			if err != nil {
				common.LogError("Failed to read request body", zap.Error(err))
				c.AbortWithStatusJSON(http.StatusBadRequest, common.ErrorResponse{
					Code:    common.ErrCodeInvalidRequest,
					Message: "failed to read request body",
				})
				return
			}
			hash := sha256.Sum256(body)
			fingerprint += ":" + hex.EncodeToString(hash[:])
			c.Request.Body = io.NopCloser(bytes.NewBuffer(body))
		}

		if d.seen(fingerprint) {
			common.LogWarn("重複請求已拒絕",
				zap.String("path", c.Request.URL.Path),
				zap.String("owner_id", c.GetHeader(OwnerHeader)),
			)
			c.AbortWithStatusJSON(http.StatusTooManyRequests, common.ErrorResponse{
				Code:    common.ErrCodeTooManyRequests,
				Message: "Request too frequent",
			})
			return
		}

		c.Next()
	}
}
