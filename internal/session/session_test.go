package session

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reelmatch/core/internal/infra/memstore"
	"github.com/reelmatch/core/internal/model"
	"github.com/reelmatch/core/internal/store"
	usecase_catalog "github.com/reelmatch/core/internal/usecase/catalog"
	usecase_room "github.com/reelmatch/core/internal/usecase/room"
)

type sliceSource []model.MovieMeta

func (s sliceSource) Load(context.Context) ([]model.MovieMeta, error) { return s, nil }

func catalogStoreOf(t *testing.T, movies []model.MovieMeta) *usecase_catalog.Store {
	t.Helper()
	cs, err := usecase_catalog.Load(context.Background(), sliceSource(movies), nil, 0)
	require.NoError(t, err)
	return cs
}

func testCatalog() []model.MovieMeta {
	return []model.MovieMeta{
		{ID: 42, Title: "Alien", Year: 1979, Genres: []string{"horror"}, Language: "en", Rating: 8.5, Released: true},
		{ID: 7, Title: "Heat", Year: 1995, Genres: []string{"crime"}, Language: "en", Rating: 8.3, Released: true},
		{ID: 9, Title: "Clue", Year: 1985, Genres: []string{"comedy"}, Language: "en", Rating: 7.3, Released: true},
	}
}

type fixture struct {
	kv       *memstore.Store
	registry *usecase_room.Registry
	code     model.RoomCode
	clock    func() int64
}

func newFixture(t *testing.T, members ...model.Participant) *fixture {
	t.Helper()
	require.NotEmpty(t, members)

	kv := memstore.New()
	registry := usecase_room.New(kv)

	code, err := registry.Create(context.Background(), "movie night", members[0], 1)
	require.NoError(t, err)
	for _, p := range members[1:] {
		require.NoError(t, registry.Join(context.Background(), code, p))
	}

	var ticks int64 = 1000
	return &fixture{
		kv:       kv,
		registry: registry,
		code:     code,
		clock: func() int64 {
			ticks++
			return ticks
		},
	}
}

func (f *fixture) session(t *testing.T, p model.Participant) *Session {
	t.Helper()
	s := New(f.kv, f.code, p, testCatalog(), WithClock(f.clock))
	require.NoError(t, s.Start(context.Background()))
	return s
}

func (f *fixture) storedMatches(t *testing.T) map[string][]byte {
	t.Helper()
	records, err := f.kv.List(context.Background(), store.MatchesPrefix(f.code))
	require.NoError(t, err)
	return records
}

func drain(s *Session) []Event {
	var out []Event
	for {
		select {
		case ev := <-s.Events():
			out = append(out, ev)
		default:
			return out
		}
	}
}

func countType(events []Event, typ EventType) int {
	n := 0
	for _, ev := range events {
		if ev.Type == typ {
			n++
		}
	}
	return n
}

func TestSessionLifecycle(t *testing.T) {
	alice := model.Participant{ID: "p-alice", Name: "Alice", JoinedAt: 1}
	f := newFixture(t, alice)

	s := New(f.kv, f.code, alice, testCatalog(), WithClock(f.clock))
	assert.Equal(t, StateDisconnected, s.State())

	require.NoError(t, s.Start(context.Background()))
	assert.Equal(t, StateLive, s.State())

	s.Disconnect()
	assert.Equal(t, StateDisconnected, s.State())

	require.NoError(t, s.Start(context.Background()))
	assert.Equal(t, StateLive, s.State())
}

func TestSessionStartUnknownRoom(t *testing.T) {
	kv := memstore.New()
	s := New(kv, "ZZZZ99", model.Participant{ID: "p"}, testCatalog())

	err := s.Start(context.Background())
	require.Error(t, err)
	assert.Equal(t, StateDisconnected, s.State())
}

func TestTwoSessionsMatchOnce(t *testing.T) {
	alice := model.Participant{ID: "p-alice", Name: "Alice", JoinedAt: 1}
	bob := model.Participant{ID: "p-bob", Name: "Bob", JoinedAt: 2}
	f := newFixture(t, alice, bob)

	sa := f.session(t, alice)
	sb := f.session(t, bob)

	sa.RecordSwipe(context.Background(), 42, true)
	assert.Empty(t, sa.Matches(), "one like is below threshold in a 2-person room")

	sb.RecordSwipe(context.Background(), 42, true)

	require.Len(t, f.storedMatches(t), 1, "concurrent detectors must land exactly one record")

	for _, s := range []*Session{sa, sb} {
		matches := s.Matches()
		require.Len(t, matches, 1)
		assert.Equal(t, model.MovieID(42), matches[0].MovieID)
		assert.Equal(t, []string{"p-alice", "p-bob"}, matches[0].LikedBy)
	}

	assert.Equal(t, 1, countType(drain(sa), EventMatchFound))
	assert.Equal(t, 1, countType(drain(sb), EventMatchFound))
}

func TestDislikeNeverMatches(t *testing.T) {
	alice := model.Participant{ID: "p-alice", JoinedAt: 1}
	bob := model.Participant{ID: "p-bob", JoinedAt: 2}
	f := newFixture(t, alice, bob)

	sa := f.session(t, alice)
	sb := f.session(t, bob)

	sa.RecordSwipe(context.Background(), 42, true)
	sb.RecordSwipe(context.Background(), 42, false)

	assert.Empty(t, f.storedMatches(t))
	assert.Empty(t, sa.Matches())
	assert.Empty(t, sb.Matches())
}

func TestLateLikerGrowsMatch(t *testing.T) {
	alice := model.Participant{ID: "p-alice", JoinedAt: 1}
	bob := model.Participant{ID: "p-bob", JoinedAt: 2}
	f := newFixture(t, alice, bob)

	sa := f.session(t, alice)
	sb := f.session(t, bob)

	sa.RecordSwipe(context.Background(), 42, true)
	sb.RecordSwipe(context.Background(), 42, true)

	require.Len(t, sa.Matches(), 1)
	matchedAt := sa.Matches()[0].MatchedAt

	charlie := model.Participant{ID: "p-charlie", JoinedAt: 3}
	require.NoError(t, f.registry.Join(context.Background(), f.code, charlie))
	sc := f.session(t, charlie)

	sc.RecordSwipe(context.Background(), 42, true)

	for _, s := range []*Session{sa, sb, sc} {
		matches := s.Matches()
		require.Len(t, matches, 1)
		assert.Equal(t, []string{"p-alice", "p-bob", "p-charlie"}, matches[0].LikedBy)
		assert.Equal(t, matchedAt, matches[0].MatchedAt, "liker growth must not move the match time")
	}
}

func TestSinglePersonRoomMatchesInstantly(t *testing.T) {
	alice := model.Participant{ID: "p-alice", JoinedAt: 1}
	f := newFixture(t, alice)

	sa := f.session(t, alice)
	sa.RecordSwipe(context.Background(), 7, true)

	matches := sa.Matches()
	require.Len(t, matches, 1)
	assert.Equal(t, model.MovieID(7), matches[0].MovieID)
	assert.Equal(t, []string{"p-alice"}, matches[0].LikedBy)
}

func TestResyncAfterDisconnect(t *testing.T) {
	alice := model.Participant{ID: "p-alice", JoinedAt: 1}
	bob := model.Participant{ID: "p-bob", JoinedAt: 2}
	f := newFixture(t, alice, bob)

	sa := f.session(t, alice)
	sb := f.session(t, bob)

	sa.Disconnect()
	sb.RecordSwipe(context.Background(), 7, true)
	assert.Empty(t, sa.Matches(), "a disconnected session observes nothing")

	require.NoError(t, sa.Start(context.Background()))
	sa.RecordSwipe(context.Background(), 7, true)

	matches := sa.Matches()
	require.Len(t, matches, 1, "the resynced ledger must include swipes made while away")
	assert.Equal(t, []string{"p-alice", "p-bob"}, matches[0].LikedBy)
}

func TestParticipantEventsFanOut(t *testing.T) {
	alice := model.Participant{ID: "p-alice", JoinedAt: 1}
	f := newFixture(t, alice)

	sa := f.session(t, alice)
	drain(sa)

	bob := model.Participant{ID: "p-bob", Name: "Bob", JoinedAt: 2}
	require.NoError(t, f.registry.Join(context.Background(), f.code, bob))

	events := drain(sa)
	require.Equal(t, 1, countType(events, EventParticipantJoined))
	assert.Len(t, sa.Participants(), 2)

	require.NoError(t, f.registry.Leave(context.Background(), f.code, bob.ID))

	events = drain(sa)
	require.Equal(t, 1, countType(events, EventParticipantLeft))
	assert.Len(t, sa.Participants(), 1)
}

func TestRoomClosedEvent(t *testing.T) {
	alice := model.Participant{ID: "p-alice", JoinedAt: 1}
	bob := model.Participant{ID: "p-bob", JoinedAt: 2}
	f := newFixture(t, alice, bob)

	sa := f.session(t, alice)
	drain(sa)

	require.NoError(t, f.registry.Leave(context.Background(), f.code, bob.ID))
	require.NoError(t, f.registry.Leave(context.Background(), f.code, alice.ID))

	events := drain(sa)
	assert.Equal(t, 1, countType(events, EventRoomClosed))
}

func TestManagerAttach(t *testing.T) {
	alice := model.Participant{ID: "p-alice", JoinedAt: 1}
	f := newFixture(t, alice)

	catalog := catalogStoreOf(t, testCatalog())
	m := NewManager(f.kv, catalog, nil)

	s1, err := m.Attach(context.Background(), f.code, alice)
	require.NoError(t, err)
	assert.Equal(t, StateLive, s1.State())

	s2, err := m.Attach(context.Background(), f.code, alice)
	require.NoError(t, err)
	assert.Same(t, s1, s2, "attaching the same pair twice reuses the session")

	got, ok := m.Get(f.code, alice.ID)
	require.True(t, ok)
	assert.Same(t, s1, got)

	m.Detach(f.code, alice.ID)
	_, ok = m.Get(f.code, alice.ID)
	assert.False(t, ok)
	assert.Equal(t, StateDisconnected, s1.State())
}
