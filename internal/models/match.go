package models

import "time"

type MatchStatus string

const (
	MatchStatusIdle      MatchStatus = "idle"
	MatchStatusQueue     MatchStatus = "queue"
	MatchStatusStarted   MatchStatus = "started"
	MatchStatusCompleted MatchStatus = "completed"
)

// Match 게임 서버에 바인딩된 세션
//
// num_players는 매치 참가 API가 소유하는 비정규화 카운트로,
// 매칭 엔진은 idle 판정에 읽기만 한다.
type Match struct {
	MatchID    string      `json:"matchId" db:"match_id"`
	ServerID   string      `json:"serverId" db:"server_id"`
	Status     MatchStatus `json:"status" db:"status"`
	MaxPlayers int         `json:"maxPlayers" db:"max_players"`
	NumPlayers int         `json:"numPlayers" db:"num_players"`
	StatusDate time.Time   `json:"statusDate" db:"status_date"`
	CreatedAt  time.Time   `json:"createdAt" db:"created_at"`
}

// MatchCandidate 매칭 후보 — servers 테이블에서 조인된 affinity/liveness 정보 포함
type MatchCandidate struct {
	Match

	ServerHeartbeat time.Time `json:"-" db:"server_heartbeat"`
	Realm           string    `json:"realm,omitempty" db:"realm"`
	Placement       string    `json:"placement,omitempty" db:"placement"`
	Ref             string    `json:"ref,omitempty" db:"ref"`
}
