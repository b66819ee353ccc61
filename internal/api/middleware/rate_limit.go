package middleware

import (
	"fmt"
	"math"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"recipe-discovery/internal/pkg/common"
)

// RateLimiter 以客戶端為單位的令牌桶限流器
type RateLimiter struct {
	mu      sync.Mutex
	limit   rate.Limit
	burst   int
	idleTTL time.Duration
	now     func() time.Time
	clients map[string]*clientLimiter
}

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewRateLimiter 每個客戶端在 window 內最多 requests 次
func NewRateLimiter(requests int, window time.Duration) *RateLimiter {
	if requests <= 0 {
		requests = 1
	}
	if window <= 0 {
		window = time.Minute
	}
	return &RateLimiter{
		limit:   rate.Limit(float64(requests) / window.Seconds()),
		burst:   requests,
		idleTTL: 10 * window,
		now:     time.Now,
		clients: make(map[string]*clientLimiter),
	}
}

// Allow 檢查 key 是否還有令牌
func (rl *RateLimiter) Allow(key string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	cl, ok := rl.clients[key]
	if !ok {
		rl.evictIdle(now)
		cl = &clientLimiter{limiter: rate.NewLimiter(rl.limit, rl.burst)}
		rl.clients[key] = cl
	}
	cl.lastSeen = now
	return cl.limiter.AllowN(now, 1)
}

// evictIdle 移除閒置的客戶端；呼叫者必須持有鎖
func (rl *RateLimiter) evictIdle(now time.Time) {
	for key, cl := range rl.clients {
		if now.Sub(cl.lastSeen) > rl.idleTTL {
			delete(rl.clients, key)
		}
	}
}

// RateLimit 限流中間件，以 X-Owner-ID 區分客戶端，沒有時使用 IP
func RateLimit(requests int, window time.Duration) gin.HandlerFunc {
	limiter := NewRateLimiter(requests, window)
	retryAfter := int(math.Ceil(1 / float64(limiter.limit)))

	return func(c *gin.Context) {
		key := c.GetHeader(OwnerHeader)
		if key == "" {
			key = c.ClientIP()
		}

		if !limiter.Allow(key) {
			common.LogInfo("Rate limit exceeded",
				zap.String("client", key),
				zap.String("path", c.Request.URL.Path),
			)

			c.Header("Retry-After", fmt.Sprintf("%d", retryAfter))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, common.ErrorResponse{
				Code:    common.ErrCodeTooManyRequests,
				Message: common.ErrTooManyRequests.Message,
			})
			return
		}

		c.Next()
	}
}
