package distributed

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRedisClient(t *testing.T) *redis.Client {
	client := redis.NewClient(&redis.Options{
		Addr: "localhost:6379",
		DB:   15, // 테스트용 DB
	})

	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skip("Redis not available:", err)
	}

	// 테스트 전 DB 초기화
	client.FlushDB(ctx)

	return client
}

func TestRedisMutex_AcquireAndRelease(t *testing.T) {
	client := setupRedisClient(t)
	defer client.Close()

	m := NewRedisMutex(client, 5*time.Second)
	ctx := context.Background()

	handle, err := m.Acquire(ctx, "process_match_queue", time.Second)
	require.NoError(t, err)
	require.NotNil(t, handle)

	// 보유 중에는 재획득 불가
	_, err = m.Acquire(ctx, "process_match_queue", 200*time.Millisecond)
	assert.Equal(t, ErrAcquireTimeout, err)

	require.NoError(t, handle.Release(ctx))

	// 해제 후 다시 획득 가능
	handle2, err := m.Acquire(ctx, "process_match_queue", time.Second)
	require.NoError(t, err)
	defer handle2.Release(ctx)
}

func TestRedisMutex_AutoExpire(t *testing.T) {
	client := setupRedisClient(t)
	defer client.Close()

	m := NewRedisMutex(client, time.Second)
	ctx := context.Background()

	handle, err := m.Acquire(ctx, "expire_test", time.Second)
	require.NoError(t, err)

	// TTL 만료 대기
	time.Sleep(1500 * time.Millisecond)

	// 만료된 락은 다른 쪽이 획득할 수 있다
	handle2, err := m.Acquire(ctx, "expire_test", time.Second)
	require.NoError(t, err)
	defer handle2.Release(ctx)

	// 원래 핸들의 해제는 소유권이 사라져 실패해야 한다
	assert.Equal(t, ErrLockNotHeld, handle.Release(ctx))
}
