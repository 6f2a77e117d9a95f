package models

import (
	"encoding/json"
	"time"
)

type QueueEntryStatus string

const (
	QueueStatusWaiting QueueEntryStatus = "waiting"
	QueueStatusMatched QueueEntryStatus = "matched"
	QueueStatusError   QueueEntryStatus = "error"
)

// QueueEntry 플레이어 한 명의 매칭 대기 요청
//
// id는 BIGSERIAL이며 FIFO 순서를 정의한다. token이 비어있지 않으면
// 같은 token을 가진 플레이어끼리만 매칭된다 (챌린지 매칭).
type QueueEntry struct {
	ID        int64            `json:"id" db:"id"`
	PlayerID  string           `json:"playerId" db:"player_id"`
	ClientID  string           `json:"clientId" db:"client_id"`
	Status    QueueEntryStatus `json:"status" db:"status"`
	MatchID   *string          `json:"matchId,omitempty" db:"match_id"`
	Criteria  json.RawMessage  `json:"criteria,omitempty" db:"criteria"`
	Placement string           `json:"placement,omitempty" db:"placement"`
	Ref       string           `json:"ref,omitempty" db:"ref"`
	Token     string           `json:"token,omitempty" db:"token"`
	QueuedAt  time.Time        `json:"queuedAt" db:"queued_at"`

	// clients 테이블에서 조인된 마지막 하트비트 (큐 테이블 컬럼 아님)
	ClientHeartbeat time.Time `json:"-" db:"client_heartbeat"`
}

// HasToken 챌린지 토큰 보유 여부
func (e *QueueEntry) HasToken() bool {
	return e.Token != ""
}

// HasAffinity placement 또는 ref 필터 지정 여부
func (e *QueueEntry) HasAffinity() bool {
	return e.Placement != "" || e.Ref != ""
}

// EnqueueRequest 매칭 큐 등록 요청
type EnqueueRequest struct {
	PlayerID  string          `json:"playerId" binding:"required"`
	ClientID  string          `json:"clientId" binding:"required"`
	Criteria  json.RawMessage `json:"criteria"`
	Placement string          `json:"placement"`
	Ref       string          `json:"ref"`
	Token     string          `json:"token"`
}
