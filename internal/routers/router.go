package routers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	room_handler "github.com/pipohost/ronza-sub000/internal/handlers/room-handler"
	"github.com/pipohost/ronza-sub000/internal/middleware"
	"github.com/pipohost/ronza-sub000/internal/notify"
	"github.com/pipohost/ronza-sub000/state"
)

func NewRouter(appState *state.AppState, roomHandler *room_handler.RoomHandler, hub *notify.Hub) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.WithRequestId)
	r.Use(middleware.GetDeviceFingerprint)
	RoomRouter(r, appState, roomHandler, hub)
	return r
}
