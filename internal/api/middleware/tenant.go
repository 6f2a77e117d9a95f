package middleware

import (
	"net/http"

	"github.com/dgnorth/drift-base-sub001/internal/tenant"
	"github.com/gin-gonic/gin"
)

const tenantContextKey = "tenant"

// Tenant X-Drift-Tenant 헤더로 테넌트 결정 (없으면 기본 테넌트)
func Tenant(registry *tenant.Registry) gin.HandlerFunc {
	return func(c *gin.Context) {
		name := c.GetHeader("X-Drift-Tenant")
		if name == "" {
			c.Set(tenantContextKey, registry.Default())
			c.Next()
			return
		}

		t, ok := registry.Get(name)
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"error": "unknown tenant"})
			c.Abort()
			return
		}

		c.Set(tenantContextKey, t)
		c.Next()
	}
}

// TenantFrom 컨텍스트에서 테넌트 추출
func TenantFrom(c *gin.Context) *tenant.Tenant {
	return c.MustGet(tenantContextKey).(*tenant.Tenant)
}
