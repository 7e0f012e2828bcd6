package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/pipohost/ronza-sub000/internal/notify"
	"github.com/pipohost/ronza-sub000/internal/queue"
	queue_service "github.com/pipohost/ronza-sub000/internal/use-case/queue-case"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// WorkerPool drains room_changed events and drives the queue scheduler.
// Delivery is at-least-once and unordered; the scheduler's convergence is
// what keeps that safe.
type WorkerPool struct {
	Redis      *redis.Client
	WorkerNum  int
	JobChannel chan string
	wg         sync.WaitGroup
	scheduler  queue_service.QueueServiceContract
	hub        *notify.Hub
}

func NewWorkerPool(redis *redis.Client, workerNum int, scheduler queue_service.QueueServiceContract, hub *notify.Hub) *WorkerPool {
	return &WorkerPool{
		Redis:      redis,
		WorkerNum:  workerNum,
		JobChannel: make(chan string, 100), // Buffered channel to hold jobs
		scheduler:  scheduler,
		hub:        hub,
	}
}

func (wp *WorkerPool) Start(ctx context.Context) {
	log.Info().Msgf("Starting worker pool with %d workers", wp.WorkerNum)

	for i := 0; i < wp.WorkerNum; i++ {
		wp.wg.Add(1)
		go wp.worker(ctx, i)
	}

	go func() {
		defer close(wp.JobChannel)
		for {
			select {
			case <-ctx.Done():
				log.Info().Msg("Stopping worker pool")
				return
			default:
				now := float64(time.Now().Unix())
				result, err := wp.Redis.ZRangeByScore(ctx, queue.EventsKey, &redis.ZRangeBy{
					Min:    "-inf",
					Max:    fmt.Sprintf("%f", now),
					Offset: 0,
					Count:  1,
				}).Result()

				if err != nil {
					if err != redis.Nil {
						log.Error().Err(err).Msg("Worker: failed to pop job")
					}
					continue
				}

				if len(result) == 0 {
					time.Sleep(200 * time.Millisecond)
					continue
				}

				payload := result[0]
				wp.Redis.ZRem(ctx, queue.EventsKey, payload)
				wp.JobChannel <- payload
			}
		}
	}()
}

func (wp *WorkerPool) worker(ctx context.Context, id int) {
	defer wp.wg.Done()
	log.Info().Msgf("Worker %d started", id)

	for {
		select {
		case <-ctx.Done():
			log.Info().Msgf("Worker %d stopping", id)
			return
		case payload, ok := <-wp.JobChannel:
			if !ok {
				return
			}

			var job queue.Job
			if err := json.Unmarshal([]byte(payload), &job); err != nil {
				log.Warn().Err(err).Msgf("Worker %d: Failed to unmarshal job payload", id)
				continue
			}
			if err := wp.handleJob(ctx, job); err != nil {
				wp.retryOrDrop(ctx, job, err)
			}
		}
	}
}

func (wp *WorkerPool) handleJob(ctx context.Context, job queue.Job) error {
	switch job.Type {
	case queue.TypeRoomChanged:
		var payload queue.RoomChangedPayload
		if err := json.Unmarshal(job.Payload, &payload); err != nil {
			return fmt.Errorf("invalid room_changed payload: %w", err)
		}
		// The payload is only a wake-up hint; Recompute re-reads live state.
		if appErr := wp.scheduler.Recompute(ctx, payload.RoomID); appErr != nil {
			return appErr
		}
		wp.publishSnapshot(ctx, payload.RoomID)
		return nil
	default:
		log.Warn().Str("type", job.Type).Msg("unknown job type, dropping")
		return nil
	}
}

// publishSnapshot pushes the post-recompute queue and speaker to subscribers.
// Best-effort: a fetch failure only costs a UI refresh.
func (wp *WorkerPool) publishSnapshot(ctx context.Context, roomID string) {
	if wp.hub == nil {
		return
	}

	if entries, appErr := wp.scheduler.CurrentQueue(ctx, roomID); appErr == nil {
		wp.hub.Publish(notify.RoomEvent{Type: notify.EventQueueChanged, RoomID: roomID, Data: entries})
	}
	if speaker, appErr := wp.scheduler.CurrentSpeaker(ctx, roomID); appErr == nil {
		wp.hub.Publish(notify.RoomEvent{Type: notify.EventSpeakerChanged, RoomID: roomID, Data: speaker})
	}
	// Presence changes also arrive as room_changed wake-ups; subscribers
	// refetch the member list on this hint.
	wp.hub.Publish(notify.RoomEvent{Type: notify.EventPresenceChanged, RoomID: roomID})
}

func (wp *WorkerPool) retryOrDrop(ctx context.Context, job queue.Job, cause error) {
	job.Retry++
	job.ErrorMsg = cause.Error()

	now := time.Now().Unix()
	if job.Retry >= job.MaxRetry || now > job.ExpireAt {
		// A stale wake-up is superseded by the next mutation's event, so the
		// DLQ is an audit trail, not a re-drive source.
		log.Error().Str("job_id", job.ID).Str("error", job.ErrorMsg).Msg("Job moved to DLQ")
		dlqBytes, _ := json.Marshal(job)
		wp.Redis.RPush(ctx, queue.EventsDLQKey, dlqBytes)
		return
	}

	// retry with backoff
	delay := time.Duration(5*(1<<job.Retry)) * time.Second // exponential backoff
	retryAt := time.Now().Add(delay).Unix()

	jobBytes, _ := json.Marshal(job)
	wp.Redis.ZAdd(ctx, queue.EventsKey, redis.Z{
		Score:  float64(retryAt),
		Member: jobBytes,
	})
	log.Warn().Str("job_id", job.ID).Msgf("Retrying in %v seconds (%d/%d)", delay.Seconds(), job.Retry, job.MaxRetry)
}

func (wp *WorkerPool) Wait() {
	wp.wg.Wait()
	log.Info().Msg("All workers have stopped")
}
