package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/dgnorth/drift-base-sub001/internal/models"
)

// 테스트용 인메모리 저장소. 프로덕션 repository와 같은 계약을
// 구현하며 Reserve는 원자적으로 동작한다.

type memQueueStore struct {
	mu      sync.Mutex
	nextID  int64
	entries map[int64]*models.QueueEntry

	failWaiting error // Waiting 호출 실패 유도
}

func newMemQueueStore() *memQueueStore {
	return &memQueueStore{entries: make(map[int64]*models.QueueEntry)}
}

func (s *memQueueStore) add(e models.QueueEntry) *models.QueueEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	e.ID = s.nextID
	if e.Status == "" {
		e.Status = models.QueueStatusWaiting
	}
	s.entries[e.ID] = &e
	return &e
}

func (s *memQueueStore) sorted() []*models.QueueEntry {
	var out []*models.QueueEntry
	for _, e := range s.entries {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *memQueueStore) ActiveByPlayer(_ context.Context, playerID string) (*models.QueueEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var found *models.QueueEntry
	for _, e := range s.sorted() {
		if e.PlayerID == playerID && (e.Status == models.QueueStatusWaiting || e.Status == models.QueueStatusMatched) {
			found = e
		}
	}
	if found == nil {
		return nil, nil
	}
	cp := *found
	return &cp, nil
}

func (s *memQueueStore) LatestByPlayer(_ context.Context, playerID string) (*models.QueueEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var found *models.QueueEntry
	for _, e := range s.sorted() {
		if e.PlayerID == playerID {
			found = e
		}
	}
	if found == nil {
		return nil, nil
	}
	cp := *found
	return &cp, nil
}

func (s *memQueueStore) ByID(_ context.Context, id int64) (*models.QueueEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[id]
	if !ok {
		return nil, nil
	}
	cp := *e
	return &cp, nil
}

func (s *memQueueStore) Insert(_ context.Context, e *models.QueueEntry) (*models.QueueEntry, error) {
	// 실제 저장소는 clients 테이블에서 하트비트를 조인한다.
	// 여기서는 live 클라이언트를 흉내낸다.
	hb := e.ClientHeartbeat
	if hb.IsZero() {
		hb = testBase
	}
	inserted := s.add(models.QueueEntry{
		PlayerID:        e.PlayerID,
		ClientID:        e.ClientID,
		Status:          models.QueueStatusWaiting,
		Criteria:        e.Criteria,
		Placement:       e.Placement,
		Ref:             e.Ref,
		Token:           e.Token,
		QueuedAt:        time.Now(),
		ClientHeartbeat: hb,
	})
	cp := *inserted
	return &cp, nil
}

func (s *memQueueStore) Delete(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, id)
	return nil
}

func (s *memQueueStore) DeleteByMatch(_ context.Context, matchID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for id, e := range s.entries {
		if e.MatchID != nil && *e.MatchID == matchID {
			delete(s.entries, id)
			n++
		}
	}
	return n, nil
}

func (s *memQueueStore) Waiting(_ context.Context) ([]models.QueueEntry, error) {
	if s.failWaiting != nil {
		return nil, s.failWaiting
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.QueueEntry
	for _, e := range s.sorted() {
		if e.Status == models.QueueStatusWaiting {
			out = append(out, *e)
		}
	}
	return out, nil
}

func (s *memQueueStore) MarkError(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.entries[id]; ok {
		e.Status = models.QueueStatusError
		e.MatchID = nil
	}
	return nil
}

type memMatchStore struct {
	mu      sync.Mutex
	order   []string
	matches map[string]*models.MatchCandidate
	queue   *memQueueStore

	reserveErr      error // Reserve 호출 실패 유도
	reserveErrAfter int   // 앞의 N회 Reserve는 성공시킨 뒤 실패
	reserveCalls    int
}

func newMemMatchStore(queue *memQueueStore) *memMatchStore {
	return &memMatchStore{
		matches: make(map[string]*models.MatchCandidate),
		queue:   queue,
	}
}

func (s *memMatchStore) add(m models.MatchCandidate) *models.MatchCandidate {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.order = append(s.order, m.MatchID)
	s.matches[m.MatchID] = &m
	return &m
}

func (s *memMatchStore) get(matchID string) *models.MatchCandidate {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.matches[matchID]
}

func (s *memMatchStore) IdleCandidates(_ context.Context) ([]models.MatchCandidate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.MatchCandidate
	for _, id := range s.order {
		m := s.matches[id]
		if m.Status == models.MatchStatusIdle && m.NumPlayers == 0 {
			out = append(out, *m)
		}
	}
	return out, nil
}

func (s *memMatchStore) Reserve(_ context.Context, matchID string, entryIDs []int64, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.reserveErr != nil && s.reserveCalls >= s.reserveErrAfter {
		return s.reserveErr
	}
	s.reserveCalls++

	s.queue.mu.Lock()
	defer s.queue.mu.Unlock()

	m, ok := s.matches[matchID]
	if !ok || m.Status != models.MatchStatusIdle {
		return fmt.Errorf("match %s no longer idle", matchID)
	}
	for _, id := range entryIDs {
		e, ok := s.queue.entries[id]
		if !ok || e.Status != models.QueueStatusWaiting {
			return fmt.Errorf("entry %d not waiting", id)
		}
	}

	m.Status = models.MatchStatusQueue
	m.StatusDate = now
	for _, id := range entryIDs {
		e := s.queue.entries[id]
		e.Status = models.QueueStatusMatched
		mid := matchID
		e.MatchID = &mid
	}
	return nil
}

func (s *memMatchStore) ReservedBefore(_ context.Context, cutoff time.Time) ([]models.MatchCandidate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.MatchCandidate
	for _, id := range s.order {
		m := s.matches[id]
		if m.Status == models.MatchStatusQueue && m.StatusDate.Before(cutoff) {
			out = append(out, *m)
		}
	}
	return out, nil
}

func (s *memMatchStore) ResetIdle(_ context.Context, matchID string, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if m, ok := s.matches[matchID]; ok && m.Status == models.MatchStatusQueue {
		m.Status = models.MatchStatusIdle
		m.StatusDate = now
	}
	return nil
}

// failingMatchStore 모든 호출이 실패하는 MatchStore (테넌트 격리 테스트용)
type failingMatchStore struct {
	err error
}

func (s *failingMatchStore) IdleCandidates(context.Context) ([]models.MatchCandidate, error) {
	return nil, s.err
}

func (s *failingMatchStore) Reserve(context.Context, string, []int64, time.Time) error {
	return s.err
}

func (s *failingMatchStore) ReservedBefore(context.Context, time.Time) ([]models.MatchCandidate, error) {
	return nil, s.err
}

func (s *failingMatchStore) ResetIdle(context.Context, string, time.Time) error {
	return s.err
}
