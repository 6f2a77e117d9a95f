package middleware

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/dgnorth/drift-base-sub001/pkg/ratelimit"
	"github.com/gin-gonic/gin"
)

// RateLimit IP별 토큰 버킷 기반 요청 제한
//
// enqueue처럼 매칭 패스를 동기적으로 돌리는 엔드포인트를 보호한다.
func RateLimit(capacity, refillRate int64) gin.HandlerFunc {
	limiter := ratelimit.NewLimiter(capacity, refillRate)

	return func(c *gin.Context) {
		key := fmt.Sprintf("ip:%s", c.ClientIP())

		if !limiter.Allow(key) {
			c.Header("X-RateLimit-Limit", strconv.FormatInt(capacity, 10))
			c.Header("X-RateLimit-Remaining", "0")
			c.Header("Retry-After", "1")

			c.JSON(http.StatusTooManyRequests, gin.H{
				"error": "Rate limit exceeded",
			})
			c.Abort()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.FormatInt(capacity, 10))
		c.Next()
	}
}
