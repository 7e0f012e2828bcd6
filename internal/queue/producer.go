package queue

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	EventsKey    = "room_events"
	EventsDLQKey = "room_events_dlq"
)

type Producer interface {
	Enqueue(ctx context.Context, job Job) error
	RoomChanged(ctx context.Context, roomID string) error
}

type RedisProducer struct {
	Redis *redis.Client
}

func NewProducer(redis *redis.Client) Producer {
	return &RedisProducer{Redis: redis}
}

func (p *RedisProducer) Enqueue(ctx context.Context, job Job) error {
	jobBytes, err := json.Marshal(job)
	if err != nil {
		return err
	}

	// The score is the ready-at time; retries re-add with a delayed score.
	readyAt := job.CreatedAt
	if readyAt == 0 {
		readyAt = time.Now().Unix()
	}
	return p.Redis.ZAdd(ctx, EventsKey, redis.Z{
		Score:  float64(readyAt),
		Member: jobBytes,
	}).Err()
}

// RoomChanged enqueues a scheduler wake-up for the room. Delivery is
// at-least-once; the recompute converges, so duplicates are harmless.
func (p *RedisProducer) RoomChanged(ctx context.Context, roomID string) error {
	now := time.Now().Unix()
	return p.Enqueue(ctx, Job{
		ID:        uuid.New().String(),
		Type:      TypeRoomChanged,
		Payload:   MustMarshal(RoomChangedPayload{RoomID: roomID}),
		Priority:  1,
		MaxRetry:  3,
		CreatedAt: now,
		ExpireAt:  now + 60,
	})
}
