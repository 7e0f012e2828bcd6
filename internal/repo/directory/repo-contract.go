package directory_repo

import (
	"context"

	"github.com/pipohost/ronza-sub000/internal/entity"
	app_error "github.com/pipohost/ronza-sub000/internal/errors"
)

// DirectoryRepoContract is the read-only view of the identity/profile store.
// Lookups are case-insensitive; a nil result with nil error means no match.
type DirectoryRepoContract interface {
	FindReservedName(ctx context.Context, name string) (*entity.ReservedName, *app_error.AppError)
	FindRegisteredMember(ctx context.Context, roomID, name string) (*entity.RegisteredMember, *app_error.AppError)
}
