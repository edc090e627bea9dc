package memstore

import (
	"context"
	"strings"
	"sync"

	"github.com/reelmatch/core/internal/store"
)

type subscriber struct {
	id     int
	prefix string
	fn     func(store.Event)
}

// Store is the in-memory store.KV variant. It backs tests and the local
// (single-process) mode; subscriptions are notified synchronously on the
// writer's goroutine.
type Store struct {
	mu     sync.RWMutex
	data   map[string][]byte
	subs   []subscriber
	nextID int
}

func New() *Store {
	return &Store{
		data: make(map[string][]byte),
	}
}

func (s *Store) Get(_ context.Context, path string) ([]byte, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.data[path]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), v...), true, nil
}

func (s *Store) Set(_ context.Context, path string, value []byte) error {
	s.mu.Lock()
	s.data[path] = append([]byte(nil), value...)
	subs := s.matching(path)
	s.mu.Unlock()

	notify(subs, store.Event{Path: path, Value: value})
	return nil
}

func (s *Store) SetIfAbsent(_ context.Context, path string, value []byte) (bool, error) {
	s.mu.Lock()
	if _, exists := s.data[path]; exists {
		s.mu.Unlock()
		return false, nil
	}
	s.data[path] = append([]byte(nil), value...)
	subs := s.matching(path)
	s.mu.Unlock()

	notify(subs, store.Event{Path: path, Value: value})
	return true, nil
}

func (s *Store) Delete(_ context.Context, path string) error {
	s.mu.Lock()
	if _, exists := s.data[path]; !exists {
		s.mu.Unlock()
		return nil
	}
	delete(s.data, path)
	subs := s.matching(path)
	s.mu.Unlock()

	notify(subs, store.Event{Path: path, Deleted: true})
	return nil
}

func (s *Store) List(_ context.Context, prefix string) (map[string][]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string][]byte)
	for k, v := range s.data {
		if strings.HasPrefix(k, prefix) {
			out[k] = append([]byte(nil), v...)
		}
	}
	return out, nil
}

func (s *Store) Subscribe(_ context.Context, prefix string, fn func(store.Event)) (func(), error) {
	s.mu.Lock()
	s.nextID++
	id := s.nextID
	s.subs = append(s.subs, subscriber{id: id, prefix: prefix, fn: fn})
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		for i, sub := range s.subs {
			if sub.id == id {
				s.subs = append(s.subs[:i], s.subs[i+1:]...)
				return
			}
		}
	}, nil
}

func (s *Store) matching(path string) []subscriber {
	out := make([]subscriber, 0, len(s.subs))
	for _, sub := range s.subs {
		if strings.HasPrefix(path, sub.prefix) {
			out = append(out, sub)
		}
	}
	return out
}

func notify(subs []subscriber, ev store.Event) {
	for _, sub := range subs {
		sub.fn(ev)
	}
}
