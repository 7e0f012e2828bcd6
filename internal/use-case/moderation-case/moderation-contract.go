package moderation_service

import (
	"context"

	"github.com/pipohost/ronza-sub000/internal/entity"
	app_error "github.com/pipohost/ronza-sub000/internal/errors"
)

// ModerationServiceContract covers every privileged room operation outside
// the presence lifecycle. All of them consult CanModerate before mutating.
type ModerationServiceContract interface {
	Mute(ctx context.Context, roomID string, actor *entity.Member, targetID string, muted bool) *app_error.AppError
	ForceMicDrop(ctx context.Context, roomID string, actor *entity.Member, targetID string) *app_error.AppError
	ForceMicDropAll(ctx context.Context, roomID string, actor *entity.Member) *app_error.AppError
	GrantOpenMic(ctx context.Context, roomID string, actor *entity.Member, targetID string, grant bool) *app_error.AppError
	ToggleRole(ctx context.Context, roomID string, actor *entity.Member, targetID string) *app_error.AppError
}
