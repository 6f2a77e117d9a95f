package service

import (
	"context"
	"fmt"
	"time"

	"github.com/dgnorth/drift-base-sub001/internal/models"
	"github.com/dgnorth/drift-base-sub001/pkg/distributed"
	"go.uber.org/zap"
)

// matchQueueLockName 매칭 패스를 프로세스 간 직렬화하는 전역 락 이름
const matchQueueLockName = "process_match_queue"

// MatchingConfig 매칭 엔진 설정 (전역 기본값 대신 명시적으로 주입)
type MatchingConfig struct {
	ClientHeartbeatTimeout time.Duration
	ServerHeartbeatTimeout time.Duration
	LockWait               time.Duration
}

// MatchingService 매칭 엔진
//
// 대기 중인 플레이어와 idle 매치를 읽어 배정을 만든다. 모든 패스는
// 분산 mutex 아래에서 실행되며, 매치 하나의 배정은 트랜잭션 하나로
// 커밋된다.
type MatchingService struct {
	queueStore QueueStore
	matchStore MatchStore
	mutex      distributed.Mutex
	cfg        MatchingConfig
	logger     *zap.Logger
	now        func() time.Time
}

func NewMatchingService(
	queueStore QueueStore,
	matchStore MatchStore,
	mutex distributed.Mutex,
	cfg MatchingConfig,
	logger *zap.Logger,
) *MatchingService {
	return &MatchingService{
		queueStore: queueStore,
		matchStore: matchStore,
		mutex:      mutex,
		cfg:        cfg,
		logger:     logger,
		now:        time.Now,
	}
}

// ProcessQueue 매칭 패스 한 번 실행
//
// 멱등이다. 매치/플레이어 상태가 바뀐 뒤 언제든 투기적으로 호출해도
// 안전하다. 락 획득 타임아웃은 ErrQueueBusy로 노출된다.
func (s *MatchingService) ProcessQueue(ctx context.Context) error {
	handle, err := s.mutex.Acquire(ctx, matchQueueLockName, s.cfg.LockWait)
	if err != nil {
		if err == distributed.ErrAcquireTimeout {
			return ErrQueueBusy
		}
		return fmt.Errorf("failed to acquire match queue lock: %w", err)
	}
	defer func() {
		if err := handle.Release(ctx); err != nil {
			s.logger.Error("Failed to release match queue lock", zap.Error(err))
		}
	}()

	return s.runPass(ctx)
}

// runPass 락을 쥔 상태에서 한 패스 수행
func (s *MatchingService) runPass(ctx context.Context) error {
	now := s.now()

	waiting, err := s.queueStore.Waiting(ctx)
	if err != nil {
		return fmt.Errorf("failed to load waiting entries: %w", err)
	}

	// 1. 분할: 토큰 없는 엔트리는 FIFO eligible 리스트,
	//    토큰 있는 엔트리는 토큰별 그룹 (그룹 내 도착 순서 유지).
	//    죽은 클라이언트의 엔트리는 즉시 삭제하고 이번 패스에서 제외.
	var eligible []models.QueueEntry
	challenges := make(map[string][]models.QueueEntry)
	var tokenOrder []string

	for _, e := range waiting {
		if !IsLive(e.ClientHeartbeat, s.cfg.ClientHeartbeatTimeout, now) {
			if err := s.queueStore.Delete(ctx, e.ID); err != nil {
				return fmt.Errorf("failed to drop stale entry %d: %w", e.ID, err)
			}
			s.logger.Debug("Dropped stale queue entry",
				zap.Int64("entry_id", e.ID),
				zap.String("player_id", e.PlayerID))
			continue
		}

		if e.HasToken() {
			if _, seen := challenges[e.Token]; !seen {
				tokenOrder = append(tokenOrder, e.Token)
			}
			challenges[e.Token] = append(challenges[e.Token], e)
		} else {
			eligible = append(eligible, e)
		}
	}

	if len(eligible) == 0 && len(challenges) == 0 {
		return nil
	}

	candidates, err := s.matchStore.IdleCandidates(ctx)
	if err != nil {
		return fmt.Errorf("failed to load idle matches: %w", err)
	}

	// 2. first-fit으로 매치 채우기. 플레이어와 토큰 그룹은 패스당
	//    한 매치에만 배정된다 — 맵을 순회 중에 지우는 대신 claimed
	//    집합으로 추적한다.
	claimedEntries := make(map[int64]bool)
	claimedTokens := make(map[string]bool)
	filled := 0

	for i := range candidates {
		m := &candidates[i]

		if !IsLive(m.ServerHeartbeat, s.cfg.ServerHeartbeatTimeout, now) {
			continue
		}

		// 챌린지 우선. 채워지지 않았을 때만 일반 대기열로 넘어간다.
		picked := s.pickChallenge(m, challenges, tokenOrder, claimedTokens)
		if picked == nil {
			picked = s.pickEligible(m, eligible, claimedEntries)
		}
		if len(picked) != m.MaxPlayers {
			// 부분 충원은 커밋하지 않는다. 모인 플레이어들은 다음
			// 후보 매치에서 다시 고려된다.
			continue
		}

		entryIDs := make([]int64, len(picked))
		for j, e := range picked {
			entryIDs[j] = e.ID
		}

		if err := s.matchStore.Reserve(ctx, m.MatchID, entryIDs, now); err != nil {
			// 이미 커밋된 매치들은 각자 트랜잭션이므로 영향 없다.
			return fmt.Errorf("failed to reserve match %s: %w", m.MatchID, err)
		}

		for _, e := range picked {
			claimedEntries[e.ID] = true
			if e.Token != "" {
				claimedTokens[e.Token] = true
			}
		}
		filled++

		s.logger.Info("Match filled",
			zap.String("match_id", m.MatchID),
			zap.String("server_id", m.ServerID),
			zap.Int("players", len(picked)),
			zap.Bool("challenge", picked[0].Token != ""))
	}

	if filled > 0 {
		s.logger.Info("Match queue processed", zap.Int("matches_filled", filled))
	}
	return nil
}

// pickChallenge 매치에 맞는 챌린지 토큰 그룹 선택
//
// 그룹 크기가 max_players와 정확히 일치해야 한다. affinity 검사 대상
// 플레이어는 두 번째 엔트리가 ref/placement를 지정했으면 두 번째,
// 아니면 첫 번째다. 원 구현의 비대칭 동작을 그대로 따른다.
func (s *MatchingService) pickChallenge(
	m *models.MatchCandidate,
	challenges map[string][]models.QueueEntry,
	tokenOrder []string,
	claimedTokens map[string]bool,
) []models.QueueEntry {
	for _, token := range tokenOrder {
		if claimedTokens[token] {
			continue
		}
		group := challenges[token]
		if len(group) != m.MaxPlayers {
			continue
		}

		filterEntry := group[0]
		if len(group) > 1 && group[1].HasAffinity() {
			filterEntry = group[1]
		}
		if !entryFitsMatch(&filterEntry, m) {
			continue
		}
		return group
	}
	return nil
}

// pickEligible FIFO 순서로 일반 대기열에서 플레이어 수집
//
// claimed이거나 affinity가 맞지 않는 플레이어는 건너뛴다.
// max_players에 못 미치면 모인 만큼 반환한다 (커밋 여부는 호출자 판단).
func (s *MatchingService) pickEligible(
	m *models.MatchCandidate,
	eligible []models.QueueEntry,
	claimedEntries map[int64]bool,
) []models.QueueEntry {
	var picked []models.QueueEntry
	for _, e := range eligible {
		if claimedEntries[e.ID] {
			continue
		}
		if !entryFitsMatch(&e, m) {
			continue
		}
		picked = append(picked, e)
		if len(picked) == m.MaxPlayers {
			break
		}
	}
	return picked
}

// entryFitsMatch placement/ref affinity 검사. 빈 필터는 모든 매치 허용.
func entryFitsMatch(e *models.QueueEntry, m *models.MatchCandidate) bool {
	if e.Placement != "" && e.Placement != m.Placement {
		return false
	}
	if e.Ref != "" && e.Ref != m.Ref {
		return false
	}
	return true
}
