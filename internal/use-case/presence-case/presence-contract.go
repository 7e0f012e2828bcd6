package presence_service

import (
	"context"

	"github.com/pipohost/ronza-sub000/internal/entity"
	app_error "github.com/pipohost/ronza-sub000/internal/errors"
)

type JoinRequest struct {
	RoomID   string
	UserID   string
	Name     string
	Password string
	DeviceID string
	IP       string
}

type PresenceServiceContract interface {
	Join(ctx context.Context, req JoinRequest) (*entity.Member, *app_error.AppError)
	Leave(ctx context.Context, roomID, userID string, cause entity.LeaveCause, actorName string) *app_error.AppError
	Kick(ctx context.Context, roomID string, actor *entity.Member, targetID string) *app_error.AppError
	Ban(ctx context.Context, roomID string, actor *entity.Member, targetID, reason string) *app_error.AppError
	Heartbeat(ctx context.Context, roomID, userID string) *app_error.AppError
	SweepInactive(ctx context.Context)
}
