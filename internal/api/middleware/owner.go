package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"recipe-discovery/internal/pkg/common"
)

// OwnerHeader 擁有者識別標頭
const OwnerHeader = "X-Owner-ID"

const ownerKey = "owner_id"

// RequireOwner 要求請求帶有 X-Owner-ID
func RequireOwner() gin.HandlerFunc {
	return func(c *gin.Context) {
		owner := strings.TrimSpace(c.GetHeader(OwnerHeader))
		if owner == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, common.ErrorResponse{
				Code:    common.ErrCodeUnauthorized,
				Message: "missing " + OwnerHeader + " header",
			})
			return
		}
		c.Set(ownerKey, owner)
		c.Next()
	}
}

// OwnerID 取得 RequireOwner 設定的擁有者
func OwnerID(c *gin.Context) string {
	return c.GetString(ownerKey)
}
