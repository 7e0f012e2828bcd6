package visitorlog_repo

import (
	"context"

	"github.com/pipohost/ronza-sub000/internal/entity"
	app_error "github.com/pipohost/ronza-sub000/internal/errors"
)

type VisitorLogRepoContract interface {
	Append(ctx context.Context, entry *entity.VisitorLog) *app_error.AppError
}
