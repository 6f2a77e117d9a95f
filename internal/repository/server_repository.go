package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/dgnorth/drift-base-sub001/internal/models"
	"github.com/dgnorth/drift-base-sub001/pkg/database"
)

type ServerRepository struct {
	db *database.DB
}

func NewServerRepository(db *database.DB) *ServerRepository {
	return &ServerRepository{db: db}
}

// ByID 서버 단건 조회. 없으면 nil.
func (r *ServerRepository) ByID(ctx context.Context, serverID string) (*models.Server, error) {
	query := `
		SELECT server_id, machine_id, status, realm, placement, ref, heartbeat_date, created_at
		FROM servers
		WHERE server_id = $1
	`

	s := &models.Server{}
	err := r.db.QueryRowContext(ctx, query, serverID).Scan(
		&s.ServerID, &s.MachineID, &s.Status, &s.Realm, &s.Placement, &s.Ref, &s.HeartbeatDate, &s.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get server: %w", err)
	}
	return s, nil
}

// List 등록된 서버 목록 조회
func (r *ServerRepository) List(ctx context.Context) ([]models.Server, error) {
	query := `
		SELECT server_id, machine_id, status, realm, placement, ref, heartbeat_date, created_at
		FROM servers
		ORDER BY created_at DESC
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list servers: %w", err)
	}
	defer rows.Close()

	var servers []models.Server
	for rows.Next() {
		s := models.Server{}
		if err := rows.Scan(&s.ServerID, &s.MachineID, &s.Status, &s.Realm, &s.Placement, &s.Ref, &s.HeartbeatDate, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan server: %w", err)
		}
		servers = append(servers, s)
	}
	return servers, rows.Err()
}

// Heartbeat 서버 하트비트 갱신. 서버가 없으면 false.
func (r *ServerRepository) Heartbeat(ctx context.Context, serverID string, now time.Time) (bool, error) {
	result, err := r.db.ExecContext(ctx, `
		UPDATE servers
		SET heartbeat_date = $2
		WHERE server_id = $1
	`, serverID, now)
	if err != nil {
		return false, fmt.Errorf("failed to update server heartbeat: %w", err)
	}
	n, _ := result.RowsAffected()
	return n > 0, nil
}
