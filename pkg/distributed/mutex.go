package distributed

import (
	"context"
	"errors"
	"sync"
	"time"
)

var (
	ErrAcquireTimeout = errors.New("mutex acquire timed out")
	ErrLockNotHeld    = errors.New("lock not held")
)

// Handle 획득된 락 핸들
type Handle interface {
	Release(ctx context.Context) error
}

// Mutex 프로세스 간 직렬화를 위한 이름 기반 락
//
// 매칭 패스(process_match_queue)는 항상 이 락 아래에서 실행된다.
// 프로덕션은 RedisMutex, 테스트는 LocalMutex를 주입한다.
type Mutex interface {
	// Acquire 이름 있는 락 획득 시도. wait 안에 획득하지 못하면
	// ErrAcquireTimeout을 반환한다.
	Acquire(ctx context.Context, name string, wait time.Duration) (Handle, error)
}

// LocalMutex 단일 프로세스용 Mutex 구현 (테스트/개발)
type LocalMutex struct {
	mu    sync.Mutex
	locks map[string]chan struct{}
}

// NewLocalMutex LocalMutex 생성
func NewLocalMutex() *LocalMutex {
	return &LocalMutex{
		locks: make(map[string]chan struct{}),
	}
}

func (m *LocalMutex) slot(name string) chan struct{} {
	m.mu.Lock()
	defer m.mu.Unlock()

	ch, ok := m.locks[name]
	if !ok {
		ch = make(chan struct{}, 1)
		m.locks[name] = ch
	}
	return ch
}

// Acquire 이름 있는 락 획득. wait 초과 시 ErrAcquireTimeout.
func (m *LocalMutex) Acquire(ctx context.Context, name string, wait time.Duration) (Handle, error) {
	ch := m.slot(name)

	timer := time.NewTimer(wait)
	defer timer.Stop()

	select {
	case ch <- struct{}{}:
		return &localHandle{ch: ch}, nil
	case <-timer.C:
		return nil, ErrAcquireTimeout
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

type localHandle struct {
	ch   chan struct{}
	once sync.Once
}

func (h *localHandle) Release(_ context.Context) error {
	err := ErrLockNotHeld
	h.once.Do(func() {
		<-h.ch
		err = nil
	})
	return err
}
