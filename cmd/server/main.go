package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dgnorth/drift-base-sub001/internal/api"
	"github.com/dgnorth/drift-base-sub001/internal/config"
	"github.com/dgnorth/drift-base-sub001/internal/service"
	"github.com/dgnorth/drift-base-sub001/internal/tenant"
	"github.com/dgnorth/drift-base-sub001/pkg/distributed"
	"github.com/dgnorth/drift-base-sub001/pkg/logger"
	"github.com/redis/go-redis/v9"
)

func main() {
	// 설정 로드
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// 로거 초기화
	logger.Init(cfg.Env, cfg.LogLevel)
	defer logger.Sync()

	logger.Info("Starting drift-base matchmaking backend",
		"port", cfg.Port,
		"env", cfg.Env,
		"tenants", len(cfg.Tenants),
	)

	// Redis 연결 (분산 mutex + 큐 이벤트 전파)
	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		logger.Fatal("Invalid redis URL", "error", err)
	}
	redisClient := redis.NewClient(redisOpts)
	defer redisClient.Close()

	if err := redisClient.Ping(context.Background()).Err(); err != nil {
		logger.Fatal("Failed to connect to redis", "error", err)
	}

	mutex := distributed.NewRedisMutex(redisClient, cfg.LockTTL)

	// 테넌트별 DB 연결 및 서비스 구성
	registry, err := tenant.NewRegistry(cfg, mutex, logger.Desugar())
	if err != nil {
		logger.Fatal("Failed to build tenant registry", "error", err)
	}
	defer registry.Close()

	// 큐 이벤트 조정자: 다른 인스턴스의 변경에 맞춰 매칭 패스 재실행
	coordinator := distributed.NewQueueCoordinator(redisClient, logger.Desugar())
	logger.Info("Queue coordinator ready", "instance_id", coordinator.InstanceID())
	go func() {
		err := coordinator.Start(context.Background(), func(event distributed.QueueEvent) error {
			t, ok := registry.Get(event.Tenant)
			if !ok {
				return nil
			}
			return t.Matching.ProcessQueue(context.Background())
		})
		if err != nil && err != context.Canceled {
			logger.Error("Queue coordinator exited", "error", err)
		}
	}()
	defer coordinator.Stop()

	for _, t := range registry.All() {
		name := t.Name
		t.Admission.OnWaiting(func(ctx context.Context, playerID string) {
			if err := coordinator.NotifyQueueChanged(ctx, name, playerID); err != nil {
				logger.Warn("Failed to publish queue event", "tenant", name, "error", err)
			}
		})
	}

	// 고아 매치 회수기 시작
	reclaimer := service.NewReclaimerService(registry.TenantQueues(), service.ReclaimerConfig{
		ReservationTimeout:     cfg.MatchReservationTimeout,
		ServerHeartbeatTimeout: cfg.ServerHeartbeatTimeout,
		Interval:               cfg.ReclaimInterval,
	}, logger.Desugar())
	reclaimer.OnReclaimed(func(ctx context.Context, tenantName string) {
		if err := coordinator.NotifyMatchFreed(ctx, tenantName); err != nil {
			logger.Warn("Failed to publish reclaim event", "tenant", tenantName, "error", err)
		}
	})
	reclaimer.Start()
	defer reclaimer.Stop()

	// 라우터 설정
	router := api.SetupRouter(cfg, registry)

	// 서버 설정
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// 서버 시작 (고루틴)
	go func() {
		logger.Info("Server listening", "address", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", "error", err)
		}
	}()

	// Graceful shutdown 대기
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	// 10초 타임아웃으로 종료
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal("Server forced to shutdown", "error", err)
	}

	logger.Info("Server exited")
}
