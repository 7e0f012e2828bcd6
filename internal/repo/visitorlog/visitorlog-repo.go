package visitorlog_repo

import (
	"context"
	"fmt"
	"net/http"

	"github.com/pipohost/ronza-sub000/internal/entity"
	app_error "github.com/pipohost/ronza-sub000/internal/errors"
	"github.com/pipohost/ronza-sub000/state"
)

type VisitorLogRepo struct {
	AppState *state.AppState
}

func NewVisitorLogRepo(appState *state.AppState) VisitorLogRepoContract {
	return &VisitorLogRepo{
		AppState: appState,
	}
}

func (r *VisitorLogRepo) Append(ctx context.Context, entry *entity.VisitorLog) *app_error.AppError {
	collection := r.AppState.Mongo.Database("ronza_logs").Collection("visitor_log")
	if _, err := collection.InsertOne(ctx, entry); err != nil {
		return app_error.NewAppError(http.StatusInternalServerError, fmt.Sprintf("failed to append visitor log: %v", err), "mongo")
	}
	return nil
}
