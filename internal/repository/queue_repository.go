package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dgnorth/drift-base-sub001/internal/models"
	"github.com/dgnorth/drift-base-sub001/pkg/database"
)

type QueueRepository struct {
	db *database.DB
}

func NewQueueRepository(db *database.DB) *QueueRepository {
	return &QueueRepository{db: db}
}

const queueEntryColumns = `
	q.id, q.player_id, q.client_id, q.status, q.match_id, q.criteria,
	q.placement, q.ref, q.token, q.queued_at, c.heartbeat_date
`

func scanQueueEntry(row interface{ Scan(...interface{}) error }) (*models.QueueEntry, error) {
	e := &models.QueueEntry{}
	err := row.Scan(
		&e.ID,
		&e.PlayerID,
		&e.ClientID,
		&e.Status,
		&e.MatchID,
		&e.Criteria,
		&e.Placement,
		&e.Ref,
		&e.Token,
		&e.QueuedAt,
		&e.ClientHeartbeat,
	)
	if err != nil {
		return nil, err
	}
	return e, nil
}

// ActiveByPlayer 플레이어의 활성(waiting/matched) 큐 엔트리 조회. 없으면 nil.
func (r *QueueRepository) ActiveByPlayer(ctx context.Context, playerID string) (*models.QueueEntry, error) {
	query := `
		SELECT ` + queueEntryColumns + `
		FROM matchqueue_entries q
		JOIN clients c ON c.client_id = q.client_id
		WHERE q.player_id = $1
		  AND q.status IN ('waiting', 'matched')
		ORDER BY q.id DESC
		LIMIT 1
	`

	e, err := scanQueueEntry(r.db.QueryRowContext(ctx, query, playerID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get active queue entry: %w", err)
	}
	return e, nil
}

// LatestByPlayer 플레이어의 가장 최근 큐 엔트리 조회 (상태 무관). 없으면 nil.
func (r *QueueRepository) LatestByPlayer(ctx context.Context, playerID string) (*models.QueueEntry, error) {
	query := `
		SELECT ` + queueEntryColumns + `
		FROM matchqueue_entries q
		JOIN clients c ON c.client_id = q.client_id
		WHERE q.player_id = $1
		ORDER BY q.id DESC
		LIMIT 1
	`

	e, err := scanQueueEntry(r.db.QueryRowContext(ctx, query, playerID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest queue entry: %w", err)
	}
	return e, nil
}

// ByID 큐 엔트리 단건 조회. 없으면 nil.
func (r *QueueRepository) ByID(ctx context.Context, id int64) (*models.QueueEntry, error) {
	query := `
		SELECT ` + queueEntryColumns + `
		FROM matchqueue_entries q
		JOIN clients c ON c.client_id = q.client_id
		WHERE q.id = $1
	`

	e, err := scanQueueEntry(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get queue entry: %w", err)
	}
	return e, nil
}

// Insert 새 waiting 엔트리 삽입
func (r *QueueRepository) Insert(ctx context.Context, e *models.QueueEntry) (*models.QueueEntry, error) {
	query := `
		INSERT INTO matchqueue_entries (player_id, client_id, status, criteria, placement, ref, token)
		VALUES ($1, $2, 'waiting', COALESCE(NULLIF($3, '')::jsonb, '{}'::jsonb), $4, $5, $6)
		RETURNING id, queued_at
	`

	inserted := *e
	inserted.Status = models.QueueStatusWaiting
	inserted.MatchID = nil

	err := r.db.QueryRowContext(ctx, query,
		e.PlayerID, e.ClientID, string(e.Criteria), e.Placement, e.Ref, e.Token,
	).Scan(&inserted.ID, &inserted.QueuedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to insert queue entry: %w", err)
	}

	return &inserted, nil
}

// Delete 큐 엔트리 삭제
func (r *QueueRepository) Delete(ctx context.Context, id int64) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM matchqueue_entries WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete queue entry: %w", err)
	}
	return nil
}

// DeleteByMatch 매치에 바인딩된 모든 큐 엔트리 삭제
func (r *QueueRepository) DeleteByMatch(ctx context.Context, matchID string) (int64, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM matchqueue_entries WHERE match_id = $1`, matchID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete queue entries for match: %w", err)
	}
	n, _ := result.RowsAffected()
	return n, nil
}

// Waiting waiting 엔트리 전체를 id 오름차순(FIFO)으로 조회
func (r *QueueRepository) Waiting(ctx context.Context) ([]models.QueueEntry, error) {
	query := `
		SELECT ` + queueEntryColumns + `
		FROM matchqueue_entries q
		JOIN clients c ON c.client_id = q.client_id
		WHERE q.status = 'waiting'
		ORDER BY q.id ASC
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list waiting entries: %w", err)
	}
	defer rows.Close()

	var entries []models.QueueEntry
	for rows.Next() {
		e, err := scanQueueEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan waiting entry: %w", err)
		}
		entries = append(entries, *e)
	}
	return entries, rows.Err()
}

// MarkError 엔트리를 error 상태로 전환 (match_id는 비운다)
func (r *QueueRepository) MarkError(ctx context.Context, id int64) error {
	query := `
		UPDATE matchqueue_entries
		SET status = 'error', match_id = NULL
		WHERE id = $1
	`
	_, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to mark queue entry error: %w", err)
	}
	return nil
}
