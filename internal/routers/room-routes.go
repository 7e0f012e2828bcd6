package routers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/pipohost/ronza-sub000/internal/handlers"
	room_handler "github.com/pipohost/ronza-sub000/internal/handlers/room-handler"
	"github.com/pipohost/ronza-sub000/internal/middleware"
	"github.com/pipohost/ronza-sub000/internal/notify"
	"github.com/pipohost/ronza-sub000/state"
)

func RoomRouter(r chi.Router, appState *state.AppState, roomHandler *room_handler.RoomHandler, hub *notify.Hub) {
	eventsHandler := room_handler.NewEventsHandler(hub)

	r.Route("/api/v1/rooms/{roomId}", func(r chi.Router) {
		r.Get("/health", func(w http.ResponseWriter, req *http.Request) {
			w.WriteHeader(http.StatusOK)
		})

		r.Group(func(protected chi.Router) {
			protected.Use(middleware.JWTAuth(appState.JwtSecret.Public))

			// Presence lifecycle
			protected.Post("/join", handlers.WrapHandler(roomHandler.Join))
			protected.Post("/leave", handlers.WrapHandler(roomHandler.Leave))
			protected.Post("/heartbeat", handlers.WrapHandler(roomHandler.Heartbeat))

			// Mic queue
			protected.Post("/hand/raise", handlers.WrapHandler(roomHandler.RaiseHand))
			protected.Post("/hand/lower", handlers.WrapHandler(roomHandler.LowerHand))
			protected.Get("/queue", handlers.WrapHandler(roomHandler.GetQueue))
			protected.Get("/speaker", handlers.WrapHandler(roomHandler.GetSpeaker))

			// Moderation
			protected.Post("/mute", handlers.WrapHandler(roomHandler.Mute))
			protected.Post("/kick", handlers.WrapHandler(roomHandler.Kick))
			protected.Post("/ban", handlers.WrapHandler(roomHandler.Ban))
			protected.Post("/mic-drop", handlers.WrapHandler(roomHandler.ForceMicDrop))
			protected.Post("/mic-drop-all", handlers.WrapHandler(roomHandler.ForceMicDropAll))
			protected.Post("/open-mic", handlers.WrapHandler(roomHandler.GrantOpenMic))
			protected.Post("/toggle-role", handlers.WrapHandler(roomHandler.ToggleRole))

			// Event stream
			protected.Get("/events", handlers.WrapHandler(eventsHandler.Subscribe))
		})
	})
}
