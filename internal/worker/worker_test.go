package worker

import (
	"context"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/pipohost/ronza-sub000/internal/entity"
	app_error "github.com/pipohost/ronza-sub000/internal/errors"
	"github.com/pipohost/ronza-sub000/internal/queue"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeScheduler struct {
	mu         sync.Mutex
	recomputed []string
	fail       bool
}

func (f *fakeScheduler) Recompute(_ context.Context, roomID string) *app_error.AppError {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return app_error.NewAppError(http.StatusInternalServerError, "boom", "test")
	}
	f.recomputed = append(f.recomputed, roomID)
	return nil
}

func (f *fakeScheduler) RaiseHand(context.Context, string, string) *app_error.AppError { return nil }
func (f *fakeScheduler) LowerHand(context.Context, string, string) *app_error.AppError { return nil }
func (f *fakeScheduler) CurrentQueue(context.Context, string) ([]entity.MicQueueEntry, *app_error.AppError) {
	return nil, nil
}
func (f *fakeScheduler) CurrentSpeaker(context.Context, string) (*entity.Member, *app_error.AppError) {
	return nil, nil
}

func (f *fakeScheduler) calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.recomputed))
	copy(out, f.recomputed)
	return out
}

func TestWorkerPool_DrivesSchedulerFromEvents(t *testing.T) {
	mockRedis := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mockRedis.Addr()})
	defer client.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	scheduler := &fakeScheduler{}
	pool := NewWorkerPool(client, 2, scheduler, nil)
	pool.Start(ctx)

	producer := queue.NewProducer(client)
	require.NoError(t, producer.RoomChanged(ctx, "r1"))

	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if len(scheduler.calls()) > 0 {
			break
		}
		time.Sleep(20 * time.Millisecond)
	}

	cancel()
	pool.Wait()

	calls := scheduler.calls()
	require.NotEmpty(t, calls, "the pool should pick up the wake-up hint")
	assert.Equal(t, "r1", calls[0])
}

func TestWorkerPool_ExhaustedJobLandsInDLQ(t *testing.T) {
	mockRedis := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mockRedis.Addr()})
	defer client.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	scheduler := &fakeScheduler{fail: true}
	pool := NewWorkerPool(client, 1, scheduler, nil)
	pool.Start(ctx)

	producer := queue.NewProducer(client)
	now := time.Now().Unix()
	require.NoError(t, producer.Enqueue(ctx, queue.Job{
		ID:        "job-1",
		Type:      queue.TypeRoomChanged,
		Payload:   queue.MustMarshal(queue.RoomChangedPayload{RoomID: "r1"}),
		Retry:     2,
		MaxRetry:  3,
		CreatedAt: now,
		ExpireAt:  now + 60,
	}))

	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if client.LLen(ctx, queue.EventsDLQKey).Val() > 0 {
			break
		}
		time.Sleep(20 * time.Millisecond)
	}

	cancel()
	pool.Wait()

	assert.Equal(t, int64(1), client.LLen(context.Background(), queue.EventsDLQKey).Val(), "a job past its retry budget is parked for audit")
}
