package middleware

import (
	"time"

	"github.com/dgnorth/drift-base-sub001/internal/tenant"
	"github.com/dgnorth/drift-base-sub001/pkg/logger"
	"github.com/gin-gonic/gin"
)

// Logger HTTP 요청 로깅 미들웨어
//
// 테넌트 미들웨어 이후에 실행되면 테넌트 이름도 함께 남긴다.
func Logger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		if path == "/health" {
			return
		}

		fields := []interface{}{
			"method", c.Request.Method,
			"path", path,
			"query", query,
			"status", c.Writer.Status(),
			"latency", time.Since(start),
			"ip", c.ClientIP(),
		}
		if v, ok := c.Get(tenantContextKey); ok {
			if t, ok := v.(*tenant.Tenant); ok {
				fields = append(fields, "tenant", t.Name)
			}
		}
		if len(c.Errors) > 0 {
			fields = append(fields, "errors", c.Errors.String())
		}

		logger.Info("HTTP Request", fields...)
	}
}
