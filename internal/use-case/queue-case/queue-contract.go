package queue_service

import (
	"context"

	"github.com/pipohost/ronza-sub000/internal/entity"
	app_error "github.com/pipohost/ronza-sub000/internal/errors"
)

type QueueServiceContract interface {
	// Recompute re-derives the mic queue and the active speaker from live
	// member records. Safe under duplicate and out-of-order invocation.
	Recompute(ctx context.Context, roomID string) *app_error.AppError

	RaiseHand(ctx context.Context, roomID, userID string) *app_error.AppError
	LowerHand(ctx context.Context, roomID, userID string) *app_error.AppError

	CurrentQueue(ctx context.Context, roomID string) ([]entity.MicQueueEntry, *app_error.AppError)
	CurrentSpeaker(ctx context.Context, roomID string) (*entity.Member, *app_error.AppError)
}
