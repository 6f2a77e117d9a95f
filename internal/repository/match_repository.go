package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/dgnorth/drift-base-sub001/internal/models"
	"github.com/dgnorth/drift-base-sub001/pkg/database"
	"github.com/lib/pq"
)

type MatchRepository struct {
	db *database.DB
}

func NewMatchRepository(db *database.DB) *MatchRepository {
	return &MatchRepository{db: db}
}

const matchCandidateColumns = `
	m.match_id, m.server_id, m.status, m.max_players, m.num_players,
	m.status_date, m.created_at, s.heartbeat_date, s.realm, s.placement, s.ref
`

func scanMatchCandidate(row interface{ Scan(...interface{}) error }) (*models.MatchCandidate, error) {
	m := &models.MatchCandidate{}
	err := row.Scan(
		&m.MatchID,
		&m.ServerID,
		&m.Status,
		&m.MaxPlayers,
		&m.NumPlayers,
		&m.StatusDate,
		&m.CreatedAt,
		&m.ServerHeartbeat,
		&m.Realm,
		&m.Placement,
		&m.Ref,
	)
	if err != nil {
		return nil, err
	}
	return m, nil
}

// IdleCandidates idle 매치 후보 조회 (서버 affinity/heartbeat 조인)
//
// 반환 순서는 쿼리 순서 그대로이며 first-fit으로 소비된다.
// 우선순위 보장은 없다.
func (r *MatchRepository) IdleCandidates(ctx context.Context) ([]models.MatchCandidate, error) {
	query := `
		SELECT ` + matchCandidateColumns + `
		FROM matches m
		JOIN servers s ON s.server_id = m.server_id
		WHERE m.status = 'idle'
		  AND m.num_players = 0
		  AND s.status = 'active'
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list idle matches: %w", err)
	}
	defer rows.Close()

	var candidates []models.MatchCandidate
	for rows.Next() {
		m, err := scanMatchCandidate(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan match candidate: %w", err)
		}
		candidates = append(candidates, *m)
	}
	return candidates, rows.Err()
}

// Reserve 매치 하나의 배정을 단일 트랜잭션으로 커밋
//
// 매치를 queue 상태로 전환하고 엔트리들을 matched로 표시한다.
// 매치가 이미 idle이 아니거나 엔트리 중 하나라도 waiting이 아니면
// 전체를 롤백한다 (부분 배정 금지).
func (r *MatchRepository) Reserve(ctx context.Context, matchID string, entryIDs []int64, now time.Time) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin reserve tx: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx, `
		UPDATE matches
		SET status = 'queue', status_date = $2
		WHERE match_id = $1 AND status = 'idle'
	`, matchID, now)
	if err != nil {
		return fmt.Errorf("failed to reserve match: %w", err)
	}
	if n, _ := result.RowsAffected(); n != 1 {
		return fmt.Errorf("match %s no longer idle", matchID)
	}

	result, err = tx.ExecContext(ctx, `
		UPDATE matchqueue_entries
		SET status = 'matched', match_id = $1
		WHERE id = ANY($2) AND status = 'waiting'
	`, matchID, pq.Array(entryIDs))
	if err != nil {
		return fmt.Errorf("failed to assign queue entries: %w", err)
	}
	if n, _ := result.RowsAffected(); n != int64(len(entryIDs)) {
		return fmt.Errorf("expected %d entries for match %s, updated %d", len(entryIDs), matchID, n)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit reserve tx: %w", err)
	}
	return nil
}

// ReservedBefore status_date가 cutoff보다 오래된 queue 상태 매치 조회
func (r *MatchRepository) ReservedBefore(ctx context.Context, cutoff time.Time) ([]models.MatchCandidate, error) {
	query := `
		SELECT ` + matchCandidateColumns + `
		FROM matches m
		JOIN servers s ON s.server_id = m.server_id
		WHERE m.status = 'queue'
		  AND m.status_date < $1
	`

	rows, err := r.db.QueryContext(ctx, query, cutoff)
	if err != nil {
		return nil, fmt.Errorf("failed to list reserved matches: %w", err)
	}
	defer rows.Close()

	var matches []models.MatchCandidate
	for rows.Next() {
		m, err := scanMatchCandidate(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan reserved match: %w", err)
		}
		matches = append(matches, *m)
	}
	return matches, rows.Err()
}

// ResetIdle 매치를 idle로 되돌린다 (고아 회수)
func (r *MatchRepository) ResetIdle(ctx context.Context, matchID string, now time.Time) error {
	query := `
		UPDATE matches
		SET status = 'idle', status_date = $2
		WHERE match_id = $1 AND status = 'queue'
	`
	_, err := r.db.ExecContext(ctx, query, matchID, now)
	if err != nil {
		return fmt.Errorf("failed to reset match: %w", err)
	}
	return nil
}

// ByID 매치 단건 조회. 없으면 nil.
func (r *MatchRepository) ByID(ctx context.Context, matchID string) (*models.Match, error) {
	query := `
		SELECT match_id, server_id, status, max_players, num_players, status_date, created_at
		FROM matches
		WHERE match_id = $1
	`

	m := &models.Match{}
	err := r.db.QueryRowContext(ctx, query, matchID).Scan(
		&m.MatchID, &m.ServerID, &m.Status, &m.MaxPlayers, &m.NumPlayers, &m.StatusDate, &m.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get match: %w", err)
	}
	return m, nil
}

// List 매치 목록 조회 (최신순)
func (r *MatchRepository) List(ctx context.Context, limit int) ([]models.Match, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}

	query := `
		SELECT match_id, server_id, status, max_players, num_players, status_date, created_at
		FROM matches
		ORDER BY created_at DESC
		LIMIT $1
	`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list matches: %w", err)
	}
	defer rows.Close()

	var matches []models.Match
	for rows.Next() {
		m := models.Match{}
		if err := rows.Scan(&m.MatchID, &m.ServerID, &m.Status, &m.MaxPlayers, &m.NumPlayers, &m.StatusDate, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan match: %w", err)
		}
		matches = append(matches, m)
	}
	return matches, rows.Err()
}
