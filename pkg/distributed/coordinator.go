package distributed

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// QueueEvent 큐 상태 변경 이벤트
type QueueEvent struct {
	Type      string    `json:"type"` // "queue_changed", "match_freed"
	Tenant    string    `json:"tenant"`
	PlayerID  string    `json:"player_id,omitempty"`
	Origin    string    `json:"origin"` // 발행 인스턴스 ID
	Timestamp time.Time `json:"timestamp"`
}

const (
	EventQueueChanged = "queue_changed"
	EventMatchFreed   = "match_freed"
)

// QueueCoordinator Redis Pub/Sub 기반 큐 이벤트 전파
//
// 한 인스턴스가 매치를 해제하거나 큐를 변경하면 다른 인스턴스들이
// 매칭 패스를 재실행하도록 알린다. 매칭 패스 자체는 멱등이고 자체
// mutex로 직렬화되므로 여기서는 락을 잡지 않는다.
type QueueCoordinator struct {
	client     *redis.Client
	logger     *zap.Logger
	instanceID string

	eventChannel string
	stopChan     chan struct{}
	cancelSub    context.CancelFunc
}

// NewQueueCoordinator 큐 이벤트 조정자 생성
func NewQueueCoordinator(client *redis.Client, logger *zap.Logger) *QueueCoordinator {
	return &QueueCoordinator{
		client:       client,
		logger:       logger,
		instanceID:   uuid.New().String(),
		eventChannel: "matchqueue:events",
		stopChan:     make(chan struct{}),
	}
}

// InstanceID 인스턴스 고유 ID
func (c *QueueCoordinator) InstanceID() string {
	return c.instanceID
}

// Start 이벤트 수신 시작 (블로킹 — 고루틴에서 실행)
//
// 자신이 발행한 이벤트는 건너뛴다. 발행 인스턴스는 이미 동기적으로
// 매칭 패스를 돌렸기 때문이다.
func (c *QueueCoordinator) Start(ctx context.Context, handler func(event QueueEvent) error) error {
	subCtx, cancel := context.WithCancel(ctx)
	c.cancelSub = cancel

	pubsub := c.client.Subscribe(subCtx, c.eventChannel)
	defer pubsub.Close()

	// 구독 확인
	if _, err := pubsub.Receive(subCtx); err != nil {
		return fmt.Errorf("failed to subscribe: %w", err)
	}

	c.logger.Info("Queue coordinator started",
		zap.String("instance_id", c.instanceID),
		zap.String("channel", c.eventChannel))

	ch := pubsub.Channel()
	for {
		select {
		case msg := <-ch:
			if msg == nil {
				continue
			}

			var event QueueEvent
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				c.logger.Error("Failed to unmarshal queue event", zap.Error(err))
				continue
			}

			if event.Origin == c.instanceID {
				continue
			}

			c.logger.Debug("Received queue event",
				zap.String("type", event.Type),
				zap.String("tenant", event.Tenant))

			if err := handler(event); err != nil {
				c.logger.Error("Failed to handle queue event",
					zap.String("type", event.Type),
					zap.String("tenant", event.Tenant),
					zap.Error(err))
			}

		case <-c.stopChan:
			c.logger.Info("Queue coordinator stopped")
			return nil

		case <-subCtx.Done():
			return subCtx.Err()
		}
	}
}

// Stop 이벤트 수신 중지
func (c *QueueCoordinator) Stop() {
	close(c.stopChan)
	if c.cancelSub != nil {
		c.cancelSub()
	}
}

// Publish 큐 이벤트 발행
func (c *QueueCoordinator) Publish(ctx context.Context, event QueueEvent) error {
	event.Origin = c.instanceID
	event.Timestamp = time.Now()

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	if err := c.client.Publish(ctx, c.eventChannel, data).Err(); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}
	return nil
}

// NotifyQueueChanged 큐 변경 알림
func (c *QueueCoordinator) NotifyQueueChanged(ctx context.Context, tenant, playerID string) error {
	return c.Publish(ctx, QueueEvent{
		Type:     EventQueueChanged,
		Tenant:   tenant,
		PlayerID: playerID,
	})
}

// NotifyMatchFreed 매치 해제 알림 (고아 회수 후)
func (c *QueueCoordinator) NotifyMatchFreed(ctx context.Context, tenant string) error {
	return c.Publish(ctx, QueueEvent{
		Type:   EventMatchFreed,
		Tenant: tenant,
	})
}
