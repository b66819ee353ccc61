package middleware

import (
	"github.com/gin-gonic/gin"
)

// RequestObserver 記錄 HTTP 請求（由 metrics 套件實作）
type RequestObserver interface {
	ObserveRequest(method, route string, status int)
}

// Metrics 以路由樣板（非實際路徑）記錄請求數
func Metrics(obs RequestObserver) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		obs.ObserveRequest(c.Request.Method, c.FullPath(), c.Writer.Status())
	}
}
