package ws_room

import (
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/reelmatch/core/internal/model"
	"github.com/reelmatch/core/internal/session"
)

type Message struct {
	Type          session.EventType `json:"type"`
	RoomCode      string            `json:"room_code"`
	ParticipantID string            `json:"participant_id,omitempty"`
	Payload       any               `json:"payload,omitempty"`
}

type Client struct {
	Hub      *Hub
	Conn     *websocket.Conn
	Send     chan []byte
	RoomCode model.RoomCode
}

// Hub fans session events out to every websocket client watching a room. It
// implements session.EventSink.
type Hub struct {
	mu sync.RWMutex

	rooms map[model.RoomCode]map[*Client]bool

	logger *slog.Logger
}

func New() *Hub {
	return &Hub{
		rooms:  make(map[model.RoomCode]map[*Client]bool),
		logger: slog.Default(),
	}
}

// RoomEvent receives one session's event and broadcasts it to the room.
func (h *Hub) RoomEvent(code model.RoomCode, participantID string, ev session.Event) {
	h.BroadcastToRoom(code, Message{
		Type:          ev.Type,
		RoomCode:      string(code),
		ParticipantID: participantID,
		Payload:       ev.Payload,
	})
}

func (h *Hub) RegisterClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.rooms[client.RoomCode]; !ok {
		h.rooms[client.RoomCode] = make(map[*Client]bool)
	}
	h.rooms[client.RoomCode][client] = true

	h.logger.Info("ws client registered", "room", client.RoomCode)
}

func (h *Hub) RemoveClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if room, ok := h.rooms[client.RoomCode]; ok {
		delete(room, client)
		if len(room) == 0 {
			delete(h.rooms, client.RoomCode)
		}
	}
	h.logger.Info("ws client unregistered", "room", client.RoomCode)
}

// BroadcastToRoom sends to every client in the room; a client whose send
// buffer is full is dropped instead of stalling the room. Dropping mutates
// the client set, so the whole fan-out runs under the write lock.
func (h *Hub) BroadcastToRoom(code model.RoomCode, message Message) {
	messageBytes, _ := json.Marshal(message)

	h.mu.Lock()
	defer h.mu.Unlock()

	clients, ok := h.rooms[code]
	if !ok {
		return
	}
	for client := range clients {
		select {
		case client.Send <- messageBytes:
		default:
			close(client.Send)
			delete(clients, client)
			h.logger.Warn("ws client dropped", "room", code)
		}
	}
	if len(clients) == 0 {
		delete(h.rooms, code)
	}
}

func (h *Hub) StartClientReading(client *Client) {
	defer func() {
		h.RemoveClient(client)
		client.Conn.Close()
	}()

	for {
		_, _, err := client.Conn.ReadMessage()
		if err != nil {
			break
		}
	}
}

func (h *Hub) StartClientWriting(client *Client) {
	defer client.Conn.Close()

	for message := range client.Send {
		err := client.Conn.WriteMessage(websocket.TextMessage, message)
		if err != nil {
			break
		}
	}
}
