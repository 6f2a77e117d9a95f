package service

import (
	"context"
	"time"

	"github.com/dgnorth/drift-base-sub001/internal/models"
)

// QueueStore 대기열 영속 계층 (프로덕션: repository.QueueRepository)
type QueueStore interface {
	ActiveByPlayer(ctx context.Context, playerID string) (*models.QueueEntry, error)
	LatestByPlayer(ctx context.Context, playerID string) (*models.QueueEntry, error)
	ByID(ctx context.Context, id int64) (*models.QueueEntry, error)
	Insert(ctx context.Context, e *models.QueueEntry) (*models.QueueEntry, error)
	Delete(ctx context.Context, id int64) error
	DeleteByMatch(ctx context.Context, matchID string) (int64, error)
	Waiting(ctx context.Context) ([]models.QueueEntry, error)
	MarkError(ctx context.Context, id int64) error
}

// MatchStore 매치 풀 영속 계층 (프로덕션: repository.MatchRepository)
//
// Reserve는 매치 하나의 배정 전체를 단일 트랜잭션으로 커밋해야 한다.
type MatchStore interface {
	IdleCandidates(ctx context.Context) ([]models.MatchCandidate, error)
	Reserve(ctx context.Context, matchID string, entryIDs []int64, now time.Time) error
	ReservedBefore(ctx context.Context, cutoff time.Time) ([]models.MatchCandidate, error)
	ResetIdle(ctx context.Context, matchID string, now time.Time) error
}
