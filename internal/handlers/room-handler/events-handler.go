package room_handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	app_error "github.com/pipohost/ronza-sub000/internal/errors"
	"github.com/pipohost/ronza-sub000/internal/notify"
	"github.com/rs/zerolog/log"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

const pongWait = 60 * time.Second

type EventsHandler struct {
	Hub *notify.Hub
}

func NewEventsHandler(hub *notify.Hub) *EventsHandler {
	return &EventsHandler{Hub: hub}
}

// Subscribe upgrades the connection and streams room snapshots until the
// client goes away. Events are advisory; the REST accessors stay
// authoritative.
func (h *EventsHandler) Subscribe(w http.ResponseWriter, r *http.Request) *app_error.AppError {
	roomID := chi.URLParam(r, "roomId")

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the handshake failure.
		log.Warn().Err(err).Str("roomID", roomID).Msg("websocket upgrade failed")
		return nil
	}

	client := notify.NewClient(conn, roomID)
	h.Hub.Register(roomID, client)

	go h.readPump(client)
	return nil
}

// readPump discards inbound frames; its job is pong handling and detecting
// the close so the client gets unregistered.
func (h *EventsHandler) readPump(client *notify.Client) {
	defer h.Hub.Unregister(client.RoomID, client)

	client.Conn.SetReadLimit(512)
	_ = client.Conn.SetReadDeadline(time.Now().Add(pongWait))
	client.Conn.SetPongHandler(func(string) error {
		return client.Conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := client.Conn.ReadMessage(); err != nil {
			return
		}
	}
}
