package models

import "time"

type ServerStatus string

const (
	ServerStatusActive   ServerStatus = "active"
	ServerStatusInactive ServerStatus = "inactive"
)

// Server 등록된 게임 서버 프로세스
//
// 등록과 하트비트는 서버 등록 서브시스템이 소유한다.
// 매칭 엔진은 liveness/affinity 판정에 읽기만 한다.
type Server struct {
	ServerID      string       `json:"serverId" db:"server_id"`
	MachineID     string       `json:"machineId" db:"machine_id"`
	Status        ServerStatus `json:"status" db:"status"`
	Realm         string       `json:"realm" db:"realm"`
	Placement     string       `json:"placement,omitempty" db:"placement"`
	Ref           string       `json:"ref,omitempty" db:"ref"`
	HeartbeatDate time.Time    `json:"heartbeatDate" db:"heartbeat_date"`
	CreatedAt     time.Time    `json:"createdAt" db:"created_at"`
}

// Client 플레이어 세션 바인딩 — 하트비트는 세션 서브시스템이 갱신한다
type Client struct {
	ClientID      string    `json:"clientId" db:"client_id"`
	PlayerID      string    `json:"playerId" db:"player_id"`
	HeartbeatDate time.Time `json:"heartbeatDate" db:"heartbeat_date"`
	CreatedAt     time.Time `json:"createdAt" db:"created_at"`
}
