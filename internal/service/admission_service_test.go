package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dgnorth/drift-base-sub001/internal/models"
	"github.com/dgnorth/drift-base-sub001/pkg/distributed"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestAdmission(queue *memQueueStore, matches *memMatchStore) *AdmissionService {
	return NewAdmissionService(queue, newTestMatching(queue, matches), zap.NewNop())
}

func enqueueReq(playerID string) *models.EnqueueRequest {
	return &models.EnqueueRequest{
		PlayerID: playerID,
		ClientID: "client-" + playerID,
	}
}

func TestEnqueue_InsertsWaitingEntry(t *testing.T) {
	queue := newMemQueueStore()
	matches := newMemMatchStore(queue)
	admission := newTestAdmission(queue, matches)

	entry, err := admission.Enqueue(context.Background(), enqueueReq("p1"))
	require.NoError(t, err)
	assert.Equal(t, models.QueueStatusWaiting, entry.Status)
	assert.Nil(t, entry.MatchID)
}

func TestEnqueue_ValidatesInput(t *testing.T) {
	queue := newMemQueueStore()
	matches := newMemMatchStore(queue)
	admission := newTestAdmission(queue, matches)

	_, err := admission.Enqueue(context.Background(), &models.EnqueueRequest{PlayerID: "p1"})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestEnqueue_ReturnsMatchedEntry(t *testing.T) {
	queue := newMemQueueStore()
	matches := newMemMatchStore(queue)
	admission := newTestAdmission(queue, matches)

	// 상대가 이미 기다리고 있으면 enqueue가 동기적으로 매칭까지 간다
	waitingEntry(queue, "partner")
	idleMatch(matches, "m1", 2)

	entry, err := admission.Enqueue(context.Background(), enqueueReq("p1"))
	require.NoError(t, err)
	assert.Equal(t, models.QueueStatusMatched, entry.Status)
	require.NotNil(t, entry.MatchID)
	assert.Equal(t, "m1", *entry.MatchID)
}

func TestEnqueue_SupersedesPriorWaitingEntry(t *testing.T) {
	queue := newMemQueueStore()
	matches := newMemMatchStore(queue)
	admission := newTestAdmission(queue, matches)

	old := waitingEntry(queue, "p1")

	entry, err := admission.Enqueue(context.Background(), enqueueReq("p1"))
	require.NoError(t, err)
	assert.Greater(t, entry.ID, old.ID)

	// 이전 엔트리는 사라진다 — 플레이어당 활성 엔트리는 하나
	gone, _ := queue.ByID(context.Background(), old.ID)
	assert.Nil(t, gone)
}

func TestEnqueue_VoidsMatchedPartner(t *testing.T) {
	queue := newMemQueueStore()
	matches := newMemMatchStore(queue)
	admission := newTestAdmission(queue, matches)

	// A와 B가 챌린지로 매칭된 상태를 만든다
	a := waitingEntry(queue, "a", func(e *models.QueueEntry) { e.Token = "abc" })
	b := waitingEntry(queue, "b", func(e *models.QueueEntry) { e.Token = "abc" })
	idleMatch(matches, "m1", 2)
	require.NoError(t, newTestMatching(queue, matches).ProcessQueue(context.Background()))
	require.Equal(t, models.MatchStatusQueue, matches.get("m1").Status)

	// A가 재등록하면 A와 B의 엔트리 모두 삭제된다
	_, err := admission.Enqueue(context.Background(), enqueueReq("a"))
	require.NoError(t, err)

	gone, _ := queue.ByID(context.Background(), a.ID)
	assert.Nil(t, gone)
	gone, _ = queue.ByID(context.Background(), b.ID)
	assert.Nil(t, gone)

	// 매치는 건드리지 않는다 — queue 상태 그대로, 회수는 고아
	// 회수기의 몫
	assert.Equal(t, models.MatchStatusQueue, matches.get("m1").Status)
}

func TestEnqueue_MarksEntryErrorOnEngineFailure(t *testing.T) {
	queue := newMemQueueStore()
	matches := newMemMatchStore(queue)
	admission := newTestAdmission(queue, matches)

	queue.failWaiting = errors.New("storage timeout")

	_, err := admission.Enqueue(context.Background(), enqueueReq("p1"))
	assert.ErrorIs(t, err, ErrQueueProcessing)

	// 엔트리는 error 상태로 남아 get/dequeue로 조회 가능하다
	entry, getErr := admission.GetQueueEntry(context.Background(), "p1")
	require.NoError(t, getErr)
	assert.Equal(t, models.QueueStatusError, entry.Status)
	assert.Nil(t, entry.MatchID)
}

func TestEnqueue_LeavesEntryWaitingWhenQueueBusy(t *testing.T) {
	queue := newMemQueueStore()
	matches := newMemMatchStore(queue)

	mutex := distributed.NewLocalMutex()
	engine := NewMatchingService(queue, matches, mutex, MatchingConfig{
		ClientHeartbeatTimeout: time.Minute,
		ServerHeartbeatTimeout: 2 * time.Minute,
		LockWait:               50 * time.Millisecond,
	}, zap.NewNop())
	engine.now = func() time.Time { return testBase }
	admission := NewAdmissionService(queue, engine, zap.NewNop())

	ctx := context.Background()
	handle, err := mutex.Acquire(ctx, "process_match_queue", time.Second)
	require.NoError(t, err)
	defer handle.Release(ctx)

	// 락 대기 타임아웃은 error 표시 없이 재시도 가능 에러만 올린다
	_, err = admission.Enqueue(ctx, enqueueReq("p1"))
	assert.ErrorIs(t, err, ErrQueueBusy)

	// 엔트리는 waiting 그대로 남아 다음 패스가 집어간다
	entry, getErr := admission.GetQueueEntry(ctx, "p1")
	require.NoError(t, getErr)
	assert.Equal(t, models.QueueStatusWaiting, entry.Status)
}

func TestDequeue_NotFound(t *testing.T) {
	queue := newMemQueueStore()
	matches := newMemMatchStore(queue)
	admission := newTestAdmission(queue, matches)

	err := admission.Dequeue(context.Background(), "nobody", false)
	assert.ErrorIs(t, err, ErrEntryNotFound)
}

func TestDequeue_DeletesWaitingEntry(t *testing.T) {
	queue := newMemQueueStore()
	matches := newMemMatchStore(queue)
	admission := newTestAdmission(queue, matches)

	e := waitingEntry(queue, "p1")

	require.NoError(t, admission.Dequeue(context.Background(), "p1", false))
	gone, _ := queue.ByID(context.Background(), e.ID)
	assert.Nil(t, gone)
}

func TestDequeue_ConflictWhenMatched(t *testing.T) {
	queue := newMemQueueStore()
	matches := newMemMatchStore(queue)
	admission := newTestAdmission(queue, matches)

	waitingEntry(queue, "p1")
	waitingEntry(queue, "p2")
	idleMatch(matches, "m1", 2)
	require.NoError(t, newTestMatching(queue, matches).ProcessQueue(context.Background()))

	// force 없이는 matched 엔트리를 버릴 수 없다
	err := admission.Dequeue(context.Background(), "p1", false)
	assert.ErrorIs(t, err, ErrAlreadyMatched)

	// force면 삭제된다
	require.NoError(t, admission.Dequeue(context.Background(), "p1", true))
	_, err = admission.GetQueueEntry(context.Background(), "p1")
	assert.ErrorIs(t, err, ErrEntryNotFound)
}

func TestGetQueueEntry(t *testing.T) {
	queue := newMemQueueStore()
	matches := newMemMatchStore(queue)
	admission := newTestAdmission(queue, matches)

	_, err := admission.GetQueueEntry(context.Background(), "p1")
	assert.ErrorIs(t, err, ErrEntryNotFound)

	waitingEntry(queue, "p1")
	entry, err := admission.GetQueueEntry(context.Background(), "p1")
	require.NoError(t, err)
	assert.Equal(t, "p1", entry.PlayerID)
	assert.Equal(t, models.QueueStatusWaiting, entry.Status)
}

func TestLiveness(t *testing.T) {
	now := testBase

	assert.True(t, IsLive(now, time.Minute, now))
	assert.True(t, IsLive(now.Add(-time.Minute), time.Minute, now))
	assert.False(t, IsLive(now.Add(-time.Minute-time.Nanosecond), time.Minute, now))
	assert.False(t, IsLive(time.Time{}, time.Minute, now))
}
