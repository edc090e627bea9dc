package session

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/reelmatch/core/internal/model"
	"github.com/reelmatch/core/internal/store"
	usecase_match "github.com/reelmatch/core/internal/usecase/match"
	usecase_queue "github.com/reelmatch/core/internal/usecase/queue"
	usecase_swipe "github.com/reelmatch/core/internal/usecase/swipe"
)

type State string

const (
	StateDisconnected State = "disconnected"
	StateSyncing      State = "syncing"
	StateLive         State = "live"
)

type EventType string

const (
	EventStateChanged      EventType = "STATE_CHANGED"
	EventParticipantJoined EventType = "PARTICIPANT_JOINED"
	EventParticipantLeft   EventType = "PARTICIPANT_LEFT"
	EventMatchFound        EventType = "MATCH_FOUND"
	EventWriteFailed       EventType = "WRITE_FAILED"
	EventRoomClosed        EventType = "ROOM_CLOSED"
)

type Event struct {
	Type    EventType `json:"type"`
	Payload any       `json:"payload,omitempty"`
}

// Session is one participant's live view of one room: membership, swipe
// ledger, match set, and the participant's own queue. It is an explicitly
// constructed per-subscription object, never a process-wide singleton.
//
// The session applies remote deltas from the store subscription and pushes
// local writes outward optimistically. Because the notification channel is
// at-most-once across a disconnect, every (re)connect goes through a full
// snapshot resync before deltas are interpreted again.
type Session struct {
	kv     store.KV
	code   model.RoomCode
	self   model.Participant
	logger *slog.Logger

	ledgerOps *usecase_swipe.Ledger
	matchOps  *usecase_match.Writer

	mu      sync.Mutex
	state   State
	room    model.Room
	ledger  map[model.SwipeKey]model.SwipeEvent
	matches map[model.MovieID]model.Match
	builder *usecase_queue.Builder

	events      chan Event
	done        chan struct{}
	closeOnce   sync.Once
	unsubscribe func()

	now func() int64
}

type Option func(*Session)

func WithClock(now func() int64) Option {
	return func(s *Session) { s.now = now }
}

func New(kv store.KV, code model.RoomCode, self model.Participant, catalog []model.MovieMeta, opts ...Option) *Session {
	s := &Session{
		kv:        kv,
		code:      code,
		self:      self,
		logger:    slog.Default(),
		ledgerOps: usecase_swipe.New(kv),
		matchOps:  usecase_match.NewWriter(kv),
		state:     StateDisconnected,
		ledger:    make(map[model.SwipeKey]model.SwipeEvent),
		matches:   make(map[model.MovieID]model.Match),
		builder:   usecase_queue.NewBuilder(catalog),
		events:    make(chan Event, 64),
		done:      make(chan struct{}),
		now:       func() int64 { return time.Now().UnixMilli() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Session) Code() model.RoomCode    { return s.code }
func (s *Session) Self() model.Participant { return s.self }
func (s *Session) Events() <-chan Event    { return s.events }

// Start brings the session to Live: full snapshot first, then the delta
// subscription. It is also the reconnect path; any prior subscription is
// torn down and the snapshot is taken again from scratch.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.unsubscribe != nil {
		s.unsubscribe()
		s.unsubscribe = nil
	}
	s.setStateLocked(StateSyncing)
	s.mu.Unlock()

	if err := s.resync(ctx); err != nil {
		s.transition(StateDisconnected)
		return err
	}

	stop, err := s.kv.Subscribe(ctx, store.RoomPrefix(s.code), s.handleStoreEvent)
	if err != nil {
		s.transition(StateDisconnected)
		return err
	}

	s.mu.Lock()
	s.unsubscribe = stop
	s.setStateLocked(StateLive)
	pending := s.detectLocked()
	s.mu.Unlock()

	s.publish(ctx, pending)
	return nil
}

// Disconnect tears the subscription down but keeps the session reusable; a
// later Start goes through the full resync again. In-flight writes are not
// cancelled; their effects are simply no longer observed locally.
func (s *Session) Disconnect() {
	s.mu.Lock()
	if s.unsubscribe != nil {
		s.unsubscribe()
		s.unsubscribe = nil
	}
	s.setStateLocked(StateDisconnected)
	s.mu.Unlock()
}

// Stop disconnects for good.
func (s *Session) Stop() {
	s.Disconnect()
	s.closeOnce.Do(func() { close(s.done) })
}

// Done is closed when the session is stopped for good.
func (s *Session) Done() <-chan struct{} { return s.done }

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) resync(ctx context.Context) error {
	records, err := s.kv.List(ctx, store.RoomPrefix(s.code))
	if err != nil {
		return err
	}

	room := model.Room{Code: s.code, Participants: make(map[string]model.Participant)}
	ledger := make(map[model.SwipeKey]model.SwipeEvent)
	matches := make(map[model.MovieID]model.Match)
	found := false

	for path, payload := range records {
		kind, _ := store.Classify(s.code, path)
		switch kind {
		case store.KindRoom:
			if err := json.Unmarshal(payload, &room); err != nil {
				return err
			}
			found = true
		case store.KindUser:
			var p model.Participant
			if err := json.Unmarshal(payload, &p); err != nil {
				return err
			}
			room.Participants[p.ID] = p
		case store.KindSwipe:
			var e model.SwipeEvent
			if err := json.Unmarshal(payload, &e); err != nil {
				return err
			}
			ledger[e.Key()] = e
		case store.KindMatch:
			var m model.Match
			if err := json.Unmarshal(payload, &m); err != nil {
				return err
			}
			matches[m.MovieID] = m
		}
	}
	if !found {
		return errors.New("room vanished during sync")
	}
	if room.Participants == nil {
		room.Participants = make(map[string]model.Participant)
	}

	s.mu.Lock()
	s.room = room
	s.ledger = ledger
	s.matches = matches
	s.mu.Unlock()
	return nil
}

// RecordSwipe applies the participant's decision locally and writes it
// through to the shared ledger. The write is optimistic: a store failure is
// surfaced as a WRITE_FAILED event and never blocks the local decision.
func (s *Session) RecordSwipe(ctx context.Context, movieID model.MovieID, liked bool) model.SwipeEvent {
	e := model.SwipeEvent{
		ParticipantID: s.self.ID,
		MovieID:       movieID,
		Liked:         liked,
		Timestamp:     s.now(),
	}

	s.mu.Lock()
	s.applySwipeLocked(e)
	pending := s.detectLocked()
	s.mu.Unlock()

	if err := s.ledgerOps.Record(ctx, s.code, e); err != nil {
		s.logger.Warn("swipe write failed", "room", s.code, "movie", movieID, "error", err)
		s.emit(Event{Type: EventWriteFailed, Payload: map[string]any{
			"op": "swipe", "movie_id": movieID,
		}})
	}

	s.publish(ctx, pending)
	return e
}

// handleStoreEvent is the delta path; it runs on the store's notification
// goroutine and must never be entered with the session lock held.
func (s *Session) handleStoreEvent(ev store.Event) {
	kind, key := store.Classify(s.code, ev.Path)

	var (
		emits   []Event
		pending detected
	)

	s.mu.Lock()
	switch kind {
	case store.KindRoom:
		if ev.Deleted {
			emits = append(emits, Event{Type: EventRoomClosed})
			break
		}
		var room model.Room
		if err := json.Unmarshal(ev.Value, &room); err == nil {
			room.Participants = s.room.Participants
			s.room = room
		}

	case store.KindUser:
		if ev.Deleted {
			if p, ok := s.room.Participants[key]; ok {
				delete(s.room.Participants, key)
				emits = append(emits, Event{Type: EventParticipantLeft, Payload: p})
			}
			break
		}
		var p model.Participant
		if err := json.Unmarshal(ev.Value, &p); err != nil {
			s.logger.Error("malformed participant record", "path", ev.Path, "error", err)
			break
		}
		if _, known := s.room.Participants[p.ID]; !known {
			emits = append(emits, Event{Type: EventParticipantJoined, Payload: p})
		}
		s.room.Participants[p.ID] = p
		pending = s.detectLocked()

	case store.KindSwipe:
		if ev.Deleted {
			break
		}
		var e model.SwipeEvent
		if err := json.Unmarshal(ev.Value, &e); err != nil {
			s.logger.Error("malformed swipe record", "path", ev.Path, "error", err)
			break
		}
		s.applySwipeLocked(e)
		pending = s.detectLocked()

	case store.KindMatch:
		if ev.Deleted {
			break
		}
		var m model.Match
		if err := json.Unmarshal(ev.Value, &m); err != nil {
			s.logger.Error("malformed match record", "path", ev.Path, "error", err)
			break
		}
		if _, known := s.matches[m.MovieID]; !known {
			emits = append(emits, Event{Type: EventMatchFound, Payload: m})
		}
		s.matches[m.MovieID] = m
	}
	s.mu.Unlock()

	for _, e := range emits {
		s.emit(e)
	}
	s.publish(context.Background(), pending)
}

func (s *Session) applySwipeLocked(e model.SwipeEvent) {
	if prev, ok := s.ledger[e.Key()]; ok && !e.Supersedes(prev) {
		return
	}
	s.ledger[e.Key()] = e
}

type detected struct {
	created []model.Match
	updated []model.Match
}

// detectLocked runs the detector over the current local view and returns the
// store writes it implies. The caller performs them after releasing the
// lock: store notifications are delivered synchronously by the in-memory
// backend, so writing under the lock would re-enter handleStoreEvent and
// deadlock.
func (s *Session) detectLocked() detected {
	if len(s.room.Participants) == 0 {
		return detected{}
	}

	var out detected
	created, err := usecase_match.Detect(s.ledger, s.room.Participants, s.matches, s.now())
	if err != nil {
		s.logger.Error("match detection failed", "room", s.code, "error", err)
		return detected{}
	}
	out.created = created

	likers := usecase_match.Likers(s.ledger)
	for movieID, m := range s.matches {
		if merged, changed := usecase_match.MergeLikers(m, likers[movieID]); changed {
			out.updated = append(out.updated, merged)
		}
	}
	sort.Slice(out.updated, func(i, j int) bool { return out.updated[i].MovieID < out.updated[j].MovieID })
	return out
}

// publish writes detector output to the shared match set. Creation rides
// SetIfAbsent, so when two sessions observe the same crossing exactly one
// write lands; losing that race is expected and silent.
func (s *Session) publish(ctx context.Context, d detected) {
	for _, m := range d.created {
		err := s.matchOps.Publish(ctx, s.code, m)
		switch {
		case errors.Is(err, usecase_match.ErrStaleWrite):
			s.logger.Debug("match already written by another session",
				"room", s.code, "movie", m.MovieID)
		case err != nil:
			s.logger.Warn("match write failed", "room", s.code, "movie", m.MovieID, "error", err)
			s.emit(Event{Type: EventWriteFailed, Payload: map[string]any{
				"op": "match", "movie_id": m.MovieID,
			}})
		default:
			s.mu.Lock()
			_, known := s.matches[m.MovieID]
			if !known {
				s.matches[m.MovieID] = m
			}
			s.mu.Unlock()
			if !known {
				s.emit(Event{Type: EventMatchFound, Payload: m})
			}
		}
	}

	for _, m := range d.updated {
		s.mu.Lock()
		s.matches[m.MovieID] = m
		s.mu.Unlock()
		// Update is a plain overwrite: concurrent liker updates can drop one
		// liker until the next store event re-runs the merge over the full
		// ledger and converges.
		if err := s.matchOps.Update(ctx, s.code, m); err != nil {
			s.logger.Warn("match update failed", "room", s.code, "movie", m.MovieID, "error", err)
		}
	}
}

// Matches returns the known match set ordered by creation time.
func (s *Session) Matches() []model.Match {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]model.Match, 0, len(s.matches))
	for _, m := range s.matches {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].MatchedAt != out[j].MatchedAt {
			return out[i].MatchedAt < out[j].MatchedAt
		}
		return out[i].MovieID < out[j].MovieID
	})
	return out
}

// Participants returns the current membership view.
func (s *Session) Participants() []model.Participant {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]model.Participant, 0, len(s.room.Participants))
	for _, p := range s.room.Participants {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].JoinedAt < out[j].JoinedAt })
	return out
}

func (s *Session) Room() model.Room {
	s.mu.Lock()
	defer s.mu.Unlock()
	room := s.room
	room.Participants = make(map[string]model.Participant, len(s.room.Participants))
	for id, p := range s.room.Participants {
		room.Participants[id] = p
	}
	return room
}

// Queue state is local per participant; these delegate to the builder under
// the session lock.

func (s *Session) Queue() []model.MovieID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.builder.Queue()
}

func (s *Session) Current() (model.MovieID, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.builder.Current()
}

func (s *Session) Advance() (model.MovieID, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.builder.Advance()
}

func (s *Session) ApplyFilters(f model.FilterState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.builder.ApplyFilters(f)
}

func (s *Session) ApplySort(key model.SortKey, dir model.SortDirection) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.builder.ApplySort(key, dir)
}

func (s *Session) Shuffle() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.builder.Shuffle()
}

func (s *Session) Filters() model.FilterState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.builder.Filters()
}

func (s *Session) SortState() model.SortState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.builder.Sort()
}

func (s *Session) setStateLocked(next State) {
	if s.state == next {
		return
	}
	s.state = next
	s.emit(Event{Type: EventStateChanged, Payload: next})
}

func (s *Session) transition(next State) {
	s.mu.Lock()
	s.setStateLocked(next)
	s.mu.Unlock()
}

// emit never blocks; a slow consumer drops events rather than stalling the
// sync path.
func (s *Session) emit(ev Event) {
	select {
	case s.events <- ev:
	default:
		s.logger.Warn("event dropped", "room", s.code, "type", ev.Type)
	}
}
