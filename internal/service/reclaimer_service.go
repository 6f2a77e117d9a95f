package service

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// TenantQueues 테넌트 하나의 저장소와 매칭 엔진 묶음
//
// 회수기는 테넌트마다 독립된 연결/저장소를 받아 순회한다.
type TenantQueues struct {
	Name       string
	QueueStore QueueStore
	MatchStore MatchStore
	Matching   *MatchingService
}

// ReclaimerConfig 고아 회수 설정
type ReclaimerConfig struct {
	ReservationTimeout     time.Duration // queue 상태 허용 시간
	ServerHeartbeatTimeout time.Duration // 서버가 살아있다고 보는 윈도우
	Interval               time.Duration // 스윕 주기
}

// ReclaimerService 고아 매치 회수기
//
// queue 상태로 예약만 된 채 아무도 참가하지 않은 매치를 idle로
// 되돌리고, 묶여 있던 큐 엔트리를 버린 뒤 매칭 패스를 다시 돌린다.
type ReclaimerService struct {
	tenants []TenantQueues
	cfg     ReclaimerConfig
	logger  *zap.Logger
	now     func() time.Time

	// 테넌트 처리 후 호출되는 알림 (nil 가능) — 다른 인스턴스에
	// 매치 해제를 전파하는 용도
	onReclaimed func(ctx context.Context, tenant string)

	stopChan chan struct{}
	wg       sync.WaitGroup
	running  bool
	mu       sync.Mutex
}

func NewReclaimerService(tenants []TenantQueues, cfg ReclaimerConfig, logger *zap.Logger) *ReclaimerService {
	return &ReclaimerService{
		tenants:  tenants,
		cfg:      cfg,
		logger:   logger,
		now:      time.Now,
		stopChan: make(chan struct{}),
	}
}

// OnReclaimed 회수 후 알림 콜백 설정
func (s *ReclaimerService) OnReclaimed(fn func(ctx context.Context, tenant string)) {
	s.onReclaimed = fn
}

// Start 주기적 스윕 시작
func (s *ReclaimerService) Start() {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return
	}
	s.running = true
	s.mu.Unlock()

	s.logger.Info("Starting ReclaimerService", zap.Duration("interval", s.cfg.Interval))

	s.wg.Add(1)
	go s.reclaimLoop()
}

// Stop 스윕 중지
func (s *ReclaimerService) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	s.mu.Unlock()

	s.logger.Info("Stopping ReclaimerService")
	close(s.stopChan)
	s.wg.Wait()
	s.logger.Info("ReclaimerService stopped")
}

// reclaimLoop 주기적 실행
func (s *ReclaimerService) reclaimLoop() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.ReclaimOrphans(context.Background())
		case <-s.stopChan:
			return
		}
	}
}

// ReclaimOrphans 전 테넌트 스윕 한 번 실행
//
// 테넌트 하나의 실패는 로그만 남기고 다음 테넌트로 넘어간다.
// 한 테넌트의 장애가 나머지를 막아서는 안 된다.
func (s *ReclaimerService) ReclaimOrphans(ctx context.Context) {
	for _, tenant := range s.tenants {
		if err := s.reclaimTenant(ctx, tenant); err != nil {
			s.logger.Error("Orphan reclaim failed for tenant",
				zap.String("tenant", tenant.Name),
				zap.Error(err))
			continue
		}
	}
}

// reclaimTenant 테넌트 하나의 고아 매치 회수
//
// 회수 대상: status_date가 예약 타임아웃을 넘긴 queue 매치 중,
// 서버 하트비트는 아직 살아있는 것 — 서버가 멀쩡한데도 매치를
// 시작하지 않은 경우다. 서버까지 죽었다면 서버 등록 서브시스템이
// 정리할 일이므로 여기서 건드리지 않는다.
func (s *ReclaimerService) reclaimTenant(ctx context.Context, tenant TenantQueues) error {
	now := s.now()
	cutoff := now.Add(-s.cfg.ReservationTimeout)

	reserved, err := tenant.MatchStore.ReservedBefore(ctx, cutoff)
	if err != nil {
		return err
	}

	reclaimed := 0
	for _, m := range reserved {
		if !IsLive(m.ServerHeartbeat, s.cfg.ServerHeartbeatTimeout, now) {
			continue
		}

		if err := tenant.MatchStore.ResetIdle(ctx, m.MatchID, now); err != nil {
			return err
		}
		deleted, err := tenant.QueueStore.DeleteByMatch(ctx, m.MatchID)
		if err != nil {
			return err
		}
		reclaimed++

		s.logger.Info("Reclaimed orphaned match",
			zap.String("tenant", tenant.Name),
			zap.String("match_id", m.MatchID),
			zap.Int64("entries_deleted", deleted),
			zap.Duration("reserved_for", now.Sub(m.StatusDate)))
	}

	if reclaimed == 0 {
		return nil
	}

	// 풀린 용량을 바로 다시 채운다
	if err := tenant.Matching.ProcessQueue(ctx); err != nil {
		return err
	}

	if s.onReclaimed != nil {
		s.onReclaimed(ctx, tenant.Name)
	}
	return nil
}
