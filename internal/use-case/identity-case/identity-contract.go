package identity_service

import (
	"context"

	"github.com/pipohost/ronza-sub000/internal/entity"
	app_error "github.com/pipohost/ronza-sub000/internal/errors"
)

type ResolveRequest struct {
	UserID   string
	DeviceID string
	Name     string
	Password string
	Room     *entity.Room
}

// IdentityServiceContract resolves a requested display name into a member
// draft. It never persists anything; the presence manager owns the write.
type IdentityServiceContract interface {
	Resolve(ctx context.Context, req ResolveRequest) (*entity.Member, *app_error.AppError)
}
