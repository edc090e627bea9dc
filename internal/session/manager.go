package session

import (
	"context"
	"log/slog"
	"sync"

	"github.com/reelmatch/core/internal/model"
	"github.com/reelmatch/core/internal/store"
	usecase_catalog "github.com/reelmatch/core/internal/usecase/catalog"
)

// EventSink receives every session event tagged with its room, typically the
// websocket hub.
type EventSink interface {
	RoomEvent(code model.RoomCode, participantID string, ev Event)
}

// Manager owns the live sessions of this process, one per
// (room, participant) pair.
type Manager struct {
	kv      store.KV
	catalog *usecase_catalog.Store
	sink    EventSink
	logger  *slog.Logger

	mu       sync.RWMutex
	sessions map[string]*Session
}

func NewManager(kv store.KV, catalog *usecase_catalog.Store, sink EventSink) *Manager {
	return &Manager{
		kv:       kv,
		catalog:  catalog,
		sink:     sink,
		logger:   slog.Default(),
		sessions: make(map[string]*Session),
	}
}

func sessionKey(code model.RoomCode, participantID string) string {
	return string(code) + "/" + participantID
}

// Attach constructs and starts a session for the participant. Attaching an
// already attached pair returns the existing session.
func (m *Manager) Attach(ctx context.Context, code model.RoomCode, p model.Participant) (*Session, error) {
	key := sessionKey(code, p.ID)

	m.mu.Lock()
	if existing, ok := m.sessions[key]; ok {
		m.mu.Unlock()
		return existing, nil
	}
	s := New(m.kv, code, p, m.catalog.ListAll())
	m.sessions[key] = s
	m.mu.Unlock()

	if err := s.Start(ctx); err != nil {
		m.mu.Lock()
		delete(m.sessions, key)
		m.mu.Unlock()
		return nil, err
	}

	if m.sink != nil {
		go m.forward(s)
	}
	return s, nil
}

func (m *Manager) Get(code model.RoomCode, participantID string) (*Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[sessionKey(code, participantID)]
	return s, ok
}

// Detach stops and forgets the session; in-flight writes complete on their
// own.
func (m *Manager) Detach(code model.RoomCode, participantID string) {
	key := sessionKey(code, participantID)

	m.mu.Lock()
	s, ok := m.sessions[key]
	if ok {
		delete(m.sessions, key)
	}
	m.mu.Unlock()

	if ok {
		s.Stop()
	}
}

func (m *Manager) forward(s *Session) {
	for {
		select {
		case ev := <-s.Events():
			m.sink.RoomEvent(s.Code(), s.Self().ID, ev)
		case <-s.Done():
			return
		}
	}
}
