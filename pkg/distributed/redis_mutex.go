package distributed

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// RedisMutex Redis 기반 분산 Mutex
//
// SET NX로 원자적으로 획득하고, Lua 스크립트로 자신이 획득한 락만
// 해제한다. ttl은 보유 인스턴스가 죽었을 때의 안전망이다.
type RedisMutex struct {
	client        *redis.Client
	keyPrefix     string
	ttl           time.Duration
	retryInterval time.Duration
}

// NewRedisMutex Redis Mutex 생성
func NewRedisMutex(client *redis.Client, ttl time.Duration) *RedisMutex {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &RedisMutex{
		client:        client,
		keyPrefix:     "mutex:",
		ttl:           ttl,
		retryInterval: 100 * time.Millisecond,
	}
}

// Acquire wait 시한까지 재시도하며 락 획득. 초과 시 ErrAcquireTimeout.
func (m *RedisMutex) Acquire(ctx context.Context, name string, wait time.Duration) (Handle, error) {
	key := m.keyPrefix + name
	value := uuid.New().String()
	deadline := time.Now().Add(wait)

	for {
		ok, err := m.client.SetNX(ctx, key, value, m.ttl).Result()
		if err != nil {
			return nil, err
		}
		if ok {
			return &redisHandle{client: m.client, key: key, value: value}, nil
		}

		if time.Now().After(deadline) {
			return nil, ErrAcquireTimeout
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(m.retryInterval):
		}
	}
}

type redisHandle struct {
	client *redis.Client
	key    string
	value  string
}

// Release 락 해제 (Lua 스크립트로 소유자 확인 후 삭제)
func (h *redisHandle) Release(ctx context.Context) error {
	script := redis.NewScript(`
		if redis.call("GET", KEYS[1]) == ARGV[1] then
			return redis.call("DEL", KEYS[1])
		else
			return 0
		end
	`)

	result, err := script.Run(ctx, h.client, []string{h.key}, h.value).Int()
	if err != nil {
		return err
	}
	if result == 0 {
		return ErrLockNotHeld
	}
	return nil
}
