package notify

import (
	"encoding/json"
	"sync"

	"github.com/rs/zerolog/log"
)

// Hub fans room events out to subscribed UI clients. It carries no
// authoritative state: every payload is a snapshot the subscriber could also
// fetch over the read accessors.
type Hub struct {
	rooms map[string]map[*Client]struct{}
	mu    sync.RWMutex
}

type RoomEvent struct {
	Type   string `json:"type"`
	RoomID string `json:"room_id"`
	Data   any    `json:"data,omitempty"`
}

const (
	EventQueueChanged    = "queue_changed"
	EventSpeakerChanged  = "speaker_changed"
	EventPresenceChanged = "presence_changed"
)

func NewHub() *Hub {
	return &Hub{
		rooms: make(map[string]map[*Client]struct{}),
	}
}

func (h *Hub) Register(roomId string, client *Client) {
	h.mu.Lock()
	if h.rooms[roomId] == nil {
		h.rooms[roomId] = make(map[*Client]struct{})
	}
	h.rooms[roomId][client] = struct{}{}
	size := len(h.rooms[roomId])
	h.mu.Unlock()

	client.Start()

	log.Info().Str("roomID", roomId).Int("roomSize", size).Msg("notify: client registered to room")
}

func (h *Hub) Unregister(roomId string, client *Client) {
	h.mu.Lock()
	if clients, ok := h.rooms[roomId]; ok {
		delete(clients, client)
		if len(clients) == 0 {
			delete(h.rooms, roomId)
		}
	}
	h.mu.Unlock()

	client.Stop()
}

// Publish is best-effort: a slow subscriber is dropped rather than allowed
// to block the room.
func (h *Hub) Publish(event RoomEvent) {
	payload, err := json.Marshal(event)
	if err != nil {
		log.Error().Err(err).Msg("notify: failed to marshal room event")
		return
	}

	h.mu.RLock()
	clients := h.rooms[event.RoomID]
	stale := make([]*Client, 0)
	for client := range clients {
		select {
		case client.Send <- payload:
		default:
			stale = append(stale, client)
		}
	}
	h.mu.RUnlock()

	for _, client := range stale {
		h.Unregister(event.RoomID, client)
	}
}
