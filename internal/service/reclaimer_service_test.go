package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dgnorth/drift-base-sub001/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestReclaimer(tenants []TenantQueues) *ReclaimerService {
	r := NewReclaimerService(tenants, ReclaimerConfig{
		ReservationTimeout:     5 * time.Minute,
		ServerHeartbeatTimeout: 2 * time.Minute,
		Interval:               time.Minute,
	}, zap.NewNop())
	r.now = func() time.Time { return testBase }
	return r
}

func reservedMatch(queue *memQueueStore, matches *memMatchStore, matchID string, reservedAt time.Time, serverHeartbeat time.Time) {
	idleMatch(matches, matchID, 2, func(m *models.MatchCandidate) {
		m.ServerHeartbeat = serverHeartbeat
	})
	e1 := waitingEntry(queue, "old1-"+matchID)
	e2 := waitingEntry(queue, "old2-"+matchID)
	if err := matches.Reserve(context.Background(), matchID, []int64{e1.ID, e2.ID}, reservedAt); err != nil {
		panic(err)
	}
}

func TestReclaimOrphans_ResetsAndRefills(t *testing.T) {
	queue := newMemQueueStore()
	matches := newMemMatchStore(queue)

	// 10분 전에 예약됐는데 서버는 1분 전까지 살아있던 매치 — 고아
	reservedMatch(queue, matches, "m1", testBase.Add(-10*time.Minute), testBase.Add(-time.Minute))

	// 회수 직후 패스가 바로 채울 새 대기자들
	fresh1 := waitingEntry(queue, "fresh1")
	fresh2 := waitingEntry(queue, "fresh2")

	reclaimer := newTestReclaimer([]TenantQueues{{
		Name:       "default",
		QueueStore: queue,
		MatchStore: matches,
		Matching:   newTestMatching(queue, matches),
	}})

	var notified []string
	reclaimer.OnReclaimed(func(_ context.Context, tenant string) {
		notified = append(notified, tenant)
	})

	reclaimer.ReclaimOrphans(context.Background())

	// 원래 바인딩은 삭제되고
	old, _ := queue.LatestByPlayer(context.Background(), "old1-m1")
	assert.Nil(t, old)

	// 매치는 새 대기자들로 다시 채워진다
	m := matches.get("m1")
	assert.Equal(t, models.MatchStatusQueue, m.Status)
	assert.Equal(t, testBase, m.StatusDate)

	for _, id := range []int64{fresh1.ID, fresh2.ID} {
		e, err := queue.ByID(context.Background(), id)
		require.NoError(t, err)
		assert.Equal(t, models.QueueStatusMatched, e.Status)
		require.NotNil(t, e.MatchID)
		assert.Equal(t, "m1", *e.MatchID)
	}

	assert.Equal(t, []string{"default"}, notified)
}

func TestReclaimOrphans_DeadServerNotReclaimed(t *testing.T) {
	queue := newMemQueueStore()
	matches := newMemMatchStore(queue)

	// 서버 하트비트까지 죽은 매치는 회수 대상이 아니다
	reservedMatch(queue, matches, "m1", testBase.Add(-10*time.Minute), testBase.Add(-10*time.Minute))

	reclaimer := newTestReclaimer([]TenantQueues{{
		Name:       "default",
		QueueStore: queue,
		MatchStore: matches,
		Matching:   newTestMatching(queue, matches),
	}})
	reclaimer.ReclaimOrphans(context.Background())

	assert.Equal(t, models.MatchStatusQueue, matches.get("m1").Status)
	old, _ := queue.LatestByPlayer(context.Background(), "old1-m1")
	require.NotNil(t, old)
	assert.Equal(t, models.QueueStatusMatched, old.Status)
}

func TestReclaimOrphans_YoungReservationKept(t *testing.T) {
	queue := newMemQueueStore()
	matches := newMemMatchStore(queue)

	// 예약 타임아웃 안쪽이면 그대로 둔다
	reservedMatch(queue, matches, "m1", testBase.Add(-time.Minute), testBase)

	reclaimer := newTestReclaimer([]TenantQueues{{
		Name:       "default",
		QueueStore: queue,
		MatchStore: matches,
		Matching:   newTestMatching(queue, matches),
	}})
	reclaimer.ReclaimOrphans(context.Background())

	assert.Equal(t, models.MatchStatusQueue, matches.get("m1").Status)
}

func TestReclaimOrphans_TenantFailureIsolated(t *testing.T) {
	// 첫 테넌트의 저장소는 전부 실패한다
	brokenQueue := newMemQueueStore()
	broken := &failingMatchStore{err: errors.New("tenant db unreachable")}

	queue := newMemQueueStore()
	matches := newMemMatchStore(queue)
	reservedMatch(queue, matches, "m1", testBase.Add(-10*time.Minute), testBase.Add(-time.Minute))

	reclaimer := newTestReclaimer([]TenantQueues{
		{
			Name:       "broken",
			QueueStore: brokenQueue,
			MatchStore: broken,
			Matching:   newTestMatching(brokenQueue, newMemMatchStore(brokenQueue)),
		},
		{
			Name:       "healthy",
			QueueStore: queue,
			MatchStore: matches,
			Matching:   newTestMatching(queue, matches),
		},
	})
	reclaimer.ReclaimOrphans(context.Background())

	// 고장난 테넌트가 건강한 테넌트의 회수를 막지 않는다
	assert.Equal(t, models.MatchStatusIdle, matches.get("m1").Status)
}
