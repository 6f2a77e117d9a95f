package api

import (
	"github.com/dgnorth/drift-base-sub001/internal/api/handlers"
	"github.com/dgnorth/drift-base-sub001/internal/api/middleware"
	"github.com/dgnorth/drift-base-sub001/internal/config"
	"github.com/dgnorth/drift-base-sub001/internal/tenant"
	"github.com/gin-gonic/gin"
)

// SetupRouter API 라우터 설정
func SetupRouter(cfg *config.Config, registry *tenant.Registry) *gin.Engine {
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// 전역 미들웨어
	router.Use(gin.Recovery())
	router.Use(middleware.Logger())
	router.Use(middleware.CORS(cfg.CORSAllowedOrigins))

	// Handler 초기화
	matchqueueHandler := handlers.NewMatchqueueHandler()
	matchHandler := handlers.NewMatchHandler()
	serverHandler := handlers.NewServerHandler()

	// Health check
	router.GET("/health", handlers.HealthCheck)

	// API v1 (테넌트는 X-Drift-Tenant 헤더, 없으면 기본 테넌트)
	v1 := router.Group("/api/v1")
	v1.Use(middleware.Tenant(registry))
	{
		// Matchqueue routes
		matchqueue := v1.Group("/matchqueue")
		{
			// enqueue는 동기적으로 매칭 패스를 돌리므로 따로 제한
			matchqueue.POST("", middleware.RateLimit(cfg.EnqueueRateBurst, cfg.EnqueueRateLimit), matchqueueHandler.Enqueue)
			matchqueue.GET("/:playerId", matchqueueHandler.Get)
			matchqueue.DELETE("/:playerId", matchqueueHandler.Dequeue)
			matchqueue.POST("/process", matchqueueHandler.Process)
		}

		// Match routes (읽기 전용 — 참가/이탈은 매치 참가 API 소관)
		matches := v1.Group("/matches")
		{
			matches.GET("", matchHandler.ListMatches)
			matches.GET("/:id", matchHandler.GetMatch)
		}

		// Server routes
		servers := v1.Group("/servers")
		{
			servers.GET("", serverHandler.ListServers)
			servers.PUT("/:id/heartbeat", serverHandler.Heartbeat)
		}
	}

	return router
}
