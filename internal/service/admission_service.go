package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/dgnorth/drift-base-sub001/internal/models"
	"go.uber.org/zap"
)

// AdmissionService 큐 등록/해제 처리
//
// 플레이어당 활성 엔트리는 항상 하나다. 재등록은 이전 요청을
// 지우고 시작한다 (last write wins).
type AdmissionService struct {
	queueStore QueueStore
	matching   *MatchingService
	logger     *zap.Logger

	// 매칭되지 못하고 waiting으로 남은 enqueue 후 호출 (nil 가능) —
	// 다른 인스턴스가 투기적으로 패스를 돌리도록 전파하는 용도
	onWaiting func(ctx context.Context, playerID string)
}

// OnWaiting enqueue 후 waiting으로 남았을 때의 알림 콜백 설정
func (s *AdmissionService) OnWaiting(fn func(ctx context.Context, playerID string)) {
	s.onWaiting = fn
}

func NewAdmissionService(queueStore QueueStore, matching *MatchingService, logger *zap.Logger) *AdmissionService {
	return &AdmissionService{
		queueStore: queueStore,
		matching:   matching,
		logger:     logger,
	}
}

// Enqueue 매칭 큐 등록
//
// 이전 활성 엔트리가 있으면 삭제한다. 이전 엔트리가 이미 매칭된
// 상태였다면 같은 매치에 바인딩된 상대방 엔트리도 함께 삭제한다 —
// 한쪽이 빠진 챌린지 매치는 전원 무효다. (2인 챌린지를 가정한
// 동작이며 N인 사전 그룹 매치로 일반화되어 있지 않다.)
//
// 이전 엔트리 정리는 매칭 패스 호출 전에 반드시 끝나야 한다.
// 그렇지 않으면 대체된 엔트리가 매칭되는 경쟁이 생긴다.
func (s *AdmissionService) Enqueue(ctx context.Context, req *models.EnqueueRequest) (*models.QueueEntry, error) {
	if req.PlayerID == "" || req.ClientID == "" {
		return nil, ErrInvalidInput
	}

	prior, err := s.queueStore.ActiveByPlayer(ctx, req.PlayerID)
	if err != nil {
		return nil, fmt.Errorf("failed to load prior entry: %w", err)
	}

	if prior != nil {
		if prior.Status == models.QueueStatusMatched && prior.MatchID != nil {
			// 매치는 건드리지 않는다. queue 상태로 남은 매치의 회수는
			// 고아 회수기의 몫이다.
			deleted, err := s.queueStore.DeleteByMatch(ctx, *prior.MatchID)
			if err != nil {
				return nil, fmt.Errorf("failed to void prior challenge entries: %w", err)
			}
			s.logger.Info("Superseded matched entry, voided match bindings",
				zap.String("player_id", req.PlayerID),
				zap.String("match_id", *prior.MatchID),
				zap.Int64("entries_deleted", deleted))
		} else {
			if err := s.queueStore.Delete(ctx, prior.ID); err != nil {
				return nil, fmt.Errorf("failed to delete prior entry: %w", err)
			}
		}
	}

	entry, err := s.queueStore.Insert(ctx, &models.QueueEntry{
		PlayerID:  req.PlayerID,
		ClientID:  req.ClientID,
		Criteria:  req.Criteria,
		Placement: req.Placement,
		Ref:       req.Ref,
		Token:     req.Token,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to insert queue entry: %w", err)
	}

	if err := s.matching.ProcessQueue(ctx); err != nil {
		// 락 대기 타임아웃은 패스 내부 실패가 아니다. 엔트리를 waiting
		// 그대로 두고 재시도 가능 실패만 올린다 — 다른 인스턴스의 패스나
		// 재시도가 그대로 집어간다.
		if errors.Is(err, ErrQueueBusy) {
			s.logger.Warn("Match queue busy on enqueue, entry left waiting",
				zap.String("player_id", req.PlayerID),
				zap.Int64("entry_id", entry.ID))
			return nil, ErrQueueBusy
		}
		// 패스 내부 실패: 방금 넣은 엔트리만 error로 표시하고 재시도
		// 가능 실패로 올린다. 엔트리는 남아 있으므로 클라이언트가
		// get/dequeue로 상태를 복구할 수 있다.
		if markErr := s.queueStore.MarkError(ctx, entry.ID); markErr != nil {
			s.logger.Error("Failed to mark entry error", zap.Int64("entry_id", entry.ID), zap.Error(markErr))
		}
		s.logger.Error("Match queue processing failed on enqueue",
			zap.String("player_id", req.PlayerID),
			zap.Int64("entry_id", entry.ID),
			zap.Error(err))
		return nil, ErrQueueProcessing
	}

	// 패스 결과 반영된 상태로 다시 읽는다 (waiting 또는 matched)
	refreshed, err := s.queueStore.ByID(ctx, entry.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to reload queue entry: %w", err)
	}
	if refreshed == nil {
		return entry, nil
	}

	if refreshed.Status == models.QueueStatusWaiting && s.onWaiting != nil {
		s.onWaiting(ctx, refreshed.PlayerID)
	}
	return refreshed, nil
}

// Dequeue 매칭 큐 해제
//
// matched 엔트리는 force 없이 해제할 수 없다 — 활성 배정을 말없이
// 버리는 것을 막는다.
func (s *AdmissionService) Dequeue(ctx context.Context, playerID string, force bool) error {
	entry, err := s.queueStore.LatestByPlayer(ctx, playerID)
	if err != nil {
		return fmt.Errorf("failed to load queue entry: %w", err)
	}
	if entry == nil {
		return ErrEntryNotFound
	}

	if entry.Status == models.QueueStatusMatched && !force {
		return ErrAlreadyMatched
	}

	if err := s.queueStore.Delete(ctx, entry.ID); err != nil {
		return fmt.Errorf("failed to delete queue entry: %w", err)
	}

	s.logger.Info("Player dequeued",
		zap.String("player_id", playerID),
		zap.Bool("force", force))
	return nil
}

// GetQueueEntry 플레이어의 최신 큐 엔트리 조회
func (s *AdmissionService) GetQueueEntry(ctx context.Context, playerID string) (*models.QueueEntry, error) {
	entry, err := s.queueStore.LatestByPlayer(ctx, playerID)
	if err != nil {
		return nil, fmt.Errorf("failed to load queue entry: %w", err)
	}
	if entry == nil {
		return nil, ErrEntryNotFound
	}
	return entry, nil
}
