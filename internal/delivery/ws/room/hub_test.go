package ws_room

import (
	"encoding/json"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reelmatch/core/internal/model"
	"github.com/reelmatch/core/internal/session"
)

const testRoom = model.RoomCode("ABCD01")

func newTestClient(hub *Hub, buffer int) *Client {
	return &Client{
		Hub:      hub,
		Send:     make(chan []byte, buffer),
		RoomCode: testRoom,
	}
}

func TestBroadcastDelivers(t *testing.T) {
	hub := New()
	client := newTestClient(hub, 1)
	hub.RegisterClient(client)

	hub.RoomEvent(testRoom, "p-alice", session.Event{
		Type:    session.EventMatchFound,
		Payload: map[string]any{"movie_id": 42},
	})

	var msg Message
	require.NoError(t, json.Unmarshal(<-client.Send, &msg))
	assert.Equal(t, session.EventMatchFound, msg.Type)
	assert.Equal(t, string(testRoom), msg.RoomCode)
	assert.Equal(t, "p-alice", msg.ParticipantID)
}

func TestBroadcastSkipsOtherRooms(t *testing.T) {
	hub := New()
	client := newTestClient(hub, 1)
	client.RoomCode = "ZZZZ99"
	hub.RegisterClient(client)

	hub.RoomEvent(testRoom, "p-alice", session.Event{Type: session.EventMatchFound})

	assert.Empty(t, client.Send)
}

// Concurrent broadcasters hit the slow-consumer drop path at the same time:
// every client here has an unbuffered send channel and no reader, so each
// broadcast mutates the client set from multiple goroutines at once.
func TestConcurrentBroadcastDropsSlowClients(t *testing.T) {
	hub := New()
	for range 4 {
		hub.RegisterClient(newTestClient(hub, 0))
	}

	var wg sync.WaitGroup
	for range 2 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range 10 {
				hub.RoomEvent(testRoom, "p-alice", session.Event{
					Type:    session.EventMatchFound,
					Payload: i,
				})
			}
		}()
	}
	wg.Wait()

	hub.mu.RLock()
	defer hub.mu.RUnlock()
	assert.Empty(t, hub.rooms, "slow clients are dropped rather than stalling the room")
}

func TestRemoveDroppedClientIsIdempotent(t *testing.T) {
	hub := New()
	client := newTestClient(hub, 0)
	hub.RegisterClient(client)

	hub.RoomEvent(testRoom, "p-alice", session.Event{Type: session.EventMatchFound})

	// The reader goroutine unregisters on its way out even after a drop.
	hub.RemoveClient(client)

	hub.mu.RLock()
	defer hub.mu.RUnlock()
	assert.Empty(t, hub.rooms)
}
