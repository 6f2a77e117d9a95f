package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// Server
	Port     string
	Env      string
	LogLevel string

	// Tenants (이름 -> 데이터베이스 URL, 순서 유지)
	Tenants       []TenantConfig
	DefaultTenant string

	// Redis
	RedisURL string

	// CORS
	CORSAllowedOrigins []string

	// Matchmaking
	ClientHeartbeatTimeout  time.Duration // 이보다 오래된 클라이언트는 매칭 제외 후 삭제
	ServerHeartbeatTimeout  time.Duration // 이보다 오래된 서버의 매치는 후보 제외
	MatchReservationTimeout time.Duration // queue 상태로 이 시간 초과 시 고아 회수 대상
	ReclaimInterval         time.Duration // 고아 회수 주기
	LockWait                time.Duration // 매칭 mutex 획득 대기 한도
	LockTTL                 time.Duration // 매칭 mutex TTL (보유자 사망 대비)

	// Rate limiting
	EnqueueRateLimit int64 // 초당 enqueue 허용 토큰
	EnqueueRateBurst int64

	// Database pool
	DBMaxOpenConns    int
	DBMaxIdleConns    int
	DBConnMaxLifetime time.Duration
}

type TenantConfig struct {
	Name        string
	DatabaseURL string
}

func Load() (*Config, error) {
	// .env 파일 로드 (있는 경우)
	_ = godotenv.Load()

	tenants, err := parseTenants(getEnv("TENANTS", ""), getEnv("DATABASE_URL", ""))
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Port:                    getEnv("PORT", "8080"),
		Env:                     getEnv("ENV", "development"),
		LogLevel:                getEnv("LOG_LEVEL", "info"),
		Tenants:                 tenants,
		DefaultTenant:           getEnv("DEFAULT_TENANT", tenants[0].Name),
		RedisURL:                getEnv("REDIS_URL", "redis://localhost:6379"),
		CORSAllowedOrigins:      []string{"http://localhost:3000", "http://localhost:5173"},
		ClientHeartbeatTimeout:  parseDuration(getEnv("CLIENT_HEARTBEAT_TIMEOUT", "60s"), 60*time.Second),
		ServerHeartbeatTimeout:  parseDuration(getEnv("SERVER_HEARTBEAT_TIMEOUT", "2m"), 2*time.Minute),
		MatchReservationTimeout: parseDuration(getEnv("MATCH_RESERVATION_TIMEOUT", "5m"), 5*time.Minute),
		ReclaimInterval:         parseDuration(getEnv("RECLAIM_INTERVAL", "2m"), 2*time.Minute),
		LockWait:                parseDuration(getEnv("LOCK_WAIT", "5s"), 5*time.Second),
		LockTTL:                 parseDuration(getEnv("LOCK_TTL", "30s"), 30*time.Second),
		EnqueueRateLimit:        10,
		EnqueueRateBurst:        20,
		DBMaxOpenConns:          getEnvInt("DB_MAX_OPEN_CONNS", 25),
		DBMaxIdleConns:          getEnvInt("DB_MAX_IDLE_CONNS", 5),
		DBConnMaxLifetime:       parseDuration(getEnv("DB_CONN_MAX_LIFETIME", "5m"), 5*time.Minute),
	}

	return cfg, nil
}

// parseTenants "name=url;name2=url2" 형식 파싱. TENANTS가 비어있으면
// DATABASE_URL 하나로 "default" 테넌트를 구성한다.
func parseTenants(spec, fallbackURL string) ([]TenantConfig, error) {
	if spec == "" {
		return []TenantConfig{{Name: "default", DatabaseURL: fallbackURL}}, nil
	}

	var tenants []TenantConfig
	for _, part := range strings.Split(spec, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		name, url, ok := strings.Cut(part, "=")
		if !ok || name == "" || url == "" {
			return nil, fmt.Errorf("invalid tenant spec: %q", part)
		}
		tenants = append(tenants, TenantConfig{Name: name, DatabaseURL: url})
	}

	if len(tenants) == 0 {
		return nil, fmt.Errorf("no tenants configured")
	}
	return tenants, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func parseDuration(s string, defaultValue time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		return defaultValue
	}
	return d
}
