package middleware

import (
	"crypto/subtle"
	"net/http"

	"otaflow/internal/api/dto/common"

	"github.com/gin-gonic/gin"
)

// RequireAPISecret gates the cache invalidation triggers behind a shared
// secret. A server deployed without one refuses all trigger calls rather
// than running open.
func RequireAPISecret(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		provided := c.GetHeader("X-API-Secret")
		if secret == "" ||
			subtle.ConstantTimeCompare([]byte(provided), []byte(secret)) != 1 {
			c.JSON(http.StatusUnauthorized, common.NewErrorResponse(
				common.ErrCodeUnauthorized,
				"Invalid or missing API secret",
				nil,
			))
			c.Abort()
			return
		}
		c.Next()
	}
}
