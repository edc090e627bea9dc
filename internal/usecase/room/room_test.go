package usecase_room

import (
	"context"
	"regexp"
	"strings"
	"testing"

	"github.com/ozontech/allure-go/pkg/framework/provider"
	"github.com/ozontech/allure-go/pkg/framework/suite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reelmatch/core/internal/infra/memstore"
	"github.com/reelmatch/core/internal/model"
	"github.com/reelmatch/core/internal/store"
)

type RegistryUnitSuite struct {
	suite.Suite
}

func alice() model.Participant {
	return model.Participant{ID: "p-alice", Name: "Alice", JoinedAt: 1}
}

func bob() model.Participant {
	return model.Participant{ID: "p-bob", Name: "Bob", JoinedAt: 2}
}

func (s *RegistryUnitSuite) TestCreate(t provider.T) {
	ctx := context.Background()
	kv := memstore.New()
	registry := New(kv)

	code, err := registry.Create(ctx, "friday night", alice(), 100)

	require.NoError(t, err)
	assert.Regexp(t, regexp.MustCompile(`^[A-Z]{4}[0-9]{2}$`), string(code))

	room, err := registry.Get(ctx, code)
	require.NoError(t, err)
	assert.Equal(t, "friday night", room.Name)
	assert.Equal(t, int64(100), room.CreatedAt)
	assert.Contains(t, room.Participants, alice().ID)
}

func (s *RegistryUnitSuite) TestCreateExhaustsRetries(t provider.T) {
	registry := New(&occupiedStore{})

	code, err := registry.Create(context.Background(), "busy", alice(), 100)

	assert.ErrorIs(t, err, ErrCodeGenerationExhausted)
	assert.Equal(t, model.EmptyRoomCode, code)
}

func (s *RegistryUnitSuite) TestCreateReleasesCodeOnParticipantWriteFailure(t provider.T) {
	ctx := context.Background()
	kv := &userWriteFailStore{Store: memstore.New()}
	registry := New(kv)

	code, err := registry.Create(ctx, "doomed", alice(), 100)

	require.Error(t, err)
	assert.Equal(t, model.EmptyRoomCode, code)

	leftovers, err := kv.List(ctx, "rooms/")
	require.NoError(t, err)
	assert.Empty(t, leftovers, "a room nobody can ever leave must not be left behind")
}

func (s *RegistryUnitSuite) TestJoin(t provider.T) {
	ctx := context.Background()
	registry := New(memstore.New())

	code, err := registry.Create(ctx, "room", alice(), 100)
	require.NoError(t, err)

	t.Run("Second participant joins", func(t provider.T) {
		require.NoError(t, registry.Join(ctx, code, bob()))

		participants, err := registry.Participants(ctx, code)
		require.NoError(t, err)
		assert.Len(t, participants, 2)
	})

	t.Run("Re-join is idempotent", func(t provider.T) {
		require.NoError(t, registry.Join(ctx, code, bob()))

		participants, err := registry.Participants(ctx, code)
		require.NoError(t, err)
		assert.Len(t, participants, 2)
	})

	t.Run("Unknown room is rejected", func(t provider.T) {
		err := registry.Join(ctx, "ZZZZ99", bob())
		assert.ErrorIs(t, err, ErrRoomNotFound)
	})
}

func (s *RegistryUnitSuite) TestLeave(t provider.T) {
	ctx := context.Background()
	kv := memstore.New()
	registry := New(kv)

	code, err := registry.Create(ctx, "room", alice(), 100)
	require.NoError(t, err)
	require.NoError(t, registry.Join(ctx, code, bob()))

	t.Run("Leave removes only the participant", func(t provider.T) {
		require.NoError(t, registry.Leave(ctx, code, bob().ID))

		participants, err := registry.Participants(ctx, code)
		require.NoError(t, err)
		assert.Len(t, participants, 1)
		assert.Contains(t, participants, alice().ID)
	})

	t.Run("Leaving twice is idempotent", func(t provider.T) {
		require.NoError(t, registry.Leave(ctx, code, bob().ID))
	})

	t.Run("Last leave purges the room subtree", func(t provider.T) {
		require.NoError(t, registry.Leave(ctx, code, alice().ID))

		_, err := registry.Get(ctx, code)
		assert.ErrorIs(t, err, ErrRoomNotFound)

		leftovers, err := kv.List(ctx, store.RoomPrefix(code))
		require.NoError(t, err)
		assert.Empty(t, leftovers)
	})
}

func TestRegistryUnitSuite(t *testing.T) {
	suite.RunSuite(t, new(RegistryUnitSuite))
}

// userWriteFailStore lets the room record land but fails every participant
// write.
type userWriteFailStore struct {
	*memstore.Store
}

func (s *userWriteFailStore) Set(ctx context.Context, path string, value []byte) error {
	if strings.Contains(path, "/users/") {
		return store.ErrUnavailable
	}
	return s.Store.Set(ctx, path, value)
}

// occupiedStore reports every key as already taken, forcing room creation to
// run out of code retries.
type occupiedStore struct{}

func (o *occupiedStore) Get(context.Context, string) ([]byte, bool, error) { return nil, false, nil }
func (o *occupiedStore) Set(context.Context, string, []byte) error         { return nil }
func (o *occupiedStore) SetIfAbsent(context.Context, string, []byte) (bool, error) {
	return false, nil
}
func (o *occupiedStore) Delete(context.Context, string) error { return nil }
func (o *occupiedStore) List(context.Context, string) (map[string][]byte, error) {
	return nil, nil
}
func (o *occupiedStore) Subscribe(context.Context, string, func(store.Event)) (func(), error) {
	return func() {}, nil
}
