package middleware

import (
	"net/http"

	"github.com/EternisAI/soc-agent-sync/internal/api/http/dto"
	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// RateLimit rejects requests beyond the limiter's budget with 429.
// A nil limiter disables the check.
func RateLimit(limiter *rate.Limiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if limiter != nil && !limiter.Allow() {
			c.Header("Retry-After", "1")
			c.AbortWithStatusJSON(http.StatusTooManyRequests, dto.ErrorResponse{Error: "too many requests"})
			return
		}
		c.Next()
	}
}
