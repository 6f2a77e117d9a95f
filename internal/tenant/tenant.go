package tenant

import (
	"fmt"

	"github.com/dgnorth/drift-base-sub001/internal/config"
	"github.com/dgnorth/drift-base-sub001/internal/repository"
	"github.com/dgnorth/drift-base-sub001/internal/service"
	"github.com/dgnorth/drift-base-sub001/pkg/database"
	"github.com/dgnorth/drift-base-sub001/pkg/distributed"
	"go.uber.org/zap"
)

// Tenant 테넌트 하나의 연결과 서비스 묶음
//
// 테넌트마다 독립된 데이터베이스를 쓴다. 매칭 mutex는 전역으로
// 하나를 공유한다 — 매칭 패스는 프로세스 전체에서 직렬화된다.
type Tenant struct {
	Name      string
	DB        *database.DB
	Queues    *repository.QueueRepository
	Matches   *repository.MatchRepository
	Servers   *repository.ServerRepository
	Matching  *service.MatchingService
	Admission *service.AdmissionService
}

// Registry 이름으로 찾는 테넌트 레지스트리 (설정 순서 유지)
type Registry struct {
	order       []string
	tenants     map[string]*Tenant
	defaultName string
}

// NewRegistry 설정된 테넌트 전체 연결 및 서비스 구성
func NewRegistry(cfg *config.Config, mutex distributed.Mutex, logger *zap.Logger) (*Registry, error) {
	r := &Registry{
		tenants:     make(map[string]*Tenant),
		defaultName: cfg.DefaultTenant,
	}

	for _, tc := range cfg.Tenants {
		db, err := database.Connect(tc.DatabaseURL, database.PoolConfig{
			MaxOpenConns:    cfg.DBMaxOpenConns,
			MaxIdleConns:    cfg.DBMaxIdleConns,
			ConnMaxLifetime: cfg.DBConnMaxLifetime,
		})
		if err != nil {
			r.Close()
			return nil, fmt.Errorf("failed to connect tenant %s: %w", tc.Name, err)
		}

		queues := repository.NewQueueRepository(db)
		matches := repository.NewMatchRepository(db)

		matching := service.NewMatchingService(queues, matches, mutex, service.MatchingConfig{
			ClientHeartbeatTimeout: cfg.ClientHeartbeatTimeout,
			ServerHeartbeatTimeout: cfg.ServerHeartbeatTimeout,
			LockWait:               cfg.LockWait,
		}, logger.With(zap.String("tenant", tc.Name)))

		t := &Tenant{
			Name:      tc.Name,
			DB:        db,
			Queues:    queues,
			Matches:   matches,
			Servers:   repository.NewServerRepository(db),
			Matching:  matching,
			Admission: service.NewAdmissionService(queues, matching, logger.With(zap.String("tenant", tc.Name))),
		}

		r.order = append(r.order, tc.Name)
		r.tenants[tc.Name] = t
	}

	if _, ok := r.tenants[r.defaultName]; !ok {
		r.Close()
		return nil, fmt.Errorf("default tenant %q not configured", r.defaultName)
	}

	return r, nil
}

// Get 이름으로 테넌트 조회
func (r *Registry) Get(name string) (*Tenant, bool) {
	t, ok := r.tenants[name]
	return t, ok
}

// Default 기본 테넌트
func (r *Registry) Default() *Tenant {
	return r.tenants[r.defaultName]
}

// All 설정 순서대로 전체 테넌트
func (r *Registry) All() []*Tenant {
	out := make([]*Tenant, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.tenants[name])
	}
	return out
}

// TenantQueues 고아 회수기에 넘길 테넌트별 저장소 목록
func (r *Registry) TenantQueues() []service.TenantQueues {
	out := make([]service.TenantQueues, 0, len(r.order))
	for _, t := range r.All() {
		out = append(out, service.TenantQueues{
			Name:       t.Name,
			QueueStore: t.Queues,
			MatchStore: t.Matches,
			Matching:   t.Matching,
		})
	}
	return out
}

// Close 전체 테넌트 연결 종료
func (r *Registry) Close() {
	for _, t := range r.tenants {
		_ = t.DB.Close()
	}
}
