package directory_repo

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/pipohost/ronza-sub000/internal/entity"
	app_error "github.com/pipohost/ronza-sub000/internal/errors"
	"github.com/pipohost/ronza-sub000/state"
	"gorm.io/gorm"
)

type DirectoryRepo struct {
	AppState *state.AppState
}

func NewDirectoryRepo(appState *state.AppState) DirectoryRepoContract {
	return &DirectoryRepo{
		AppState: appState,
	}
}

func (r *DirectoryRepo) FindReservedName(ctx context.Context, name string) (*entity.ReservedName, *app_error.AppError) {
	var reserved entity.ReservedName

	err := r.AppState.DB.WithContext(ctx).
		Where("name_lower = ?", strings.ToLower(name)).
		First(&reserved).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, app_error.NewAppError(http.StatusInternalServerError, "unexpected error occur when fetch reserved name", "db-error")
	}

	return &reserved, nil
}

func (r *DirectoryRepo) FindRegisteredMember(ctx context.Context, roomID, name string) (*entity.RegisteredMember, *app_error.AppError) {
	var registered entity.RegisteredMember

	err := r.AppState.DB.WithContext(ctx).
		Where("room_id = ? AND name_lower = ?", roomID, strings.ToLower(name)).
		First(&registered).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, app_error.NewAppError(http.StatusInternalServerError, "unexpected error occur when fetch registered member", "db-error")
	}

	return &registered, nil
}
