package usecase_match

import (
	"math/rand"
	"testing"

	"github.com/ozontech/allure-go/pkg/framework/provider"
	"github.com/ozontech/allure-go/pkg/framework/suite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reelmatch/core/internal/model"
	usecase_swipe "github.com/reelmatch/core/internal/usecase/swipe"
)

type DetectorUnitSuite struct {
	suite.Suite
}

/*
'Object Mother' helpers.
*/
func participants(ids ...string) map[string]model.Participant {
	out := make(map[string]model.Participant, len(ids))
	for i, id := range ids {
		out[id] = model.Participant{ID: id, Name: id, JoinedAt: int64(i)}
	}
	return out
}

func like(participantID string, movieID model.MovieID, ts int64) model.SwipeEvent {
	return model.SwipeEvent{ParticipantID: participantID, MovieID: movieID, Liked: true, Timestamp: ts}
}

func dislike(participantID string, movieID model.MovieID, ts int64) model.SwipeEvent {
	return model.SwipeEvent{ParticipantID: participantID, MovieID: movieID, Liked: false, Timestamp: ts}
}

func ledgerOf(events ...model.SwipeEvent) map[model.SwipeKey]model.SwipeEvent {
	return usecase_swipe.Collapse(events)
}

func (s *DetectorUnitSuite) TestThreshold(t provider.T) {
	t.Run("Single participant needs one like", func(t provider.T) {
		assert.Equal(t, 1, Threshold(1))
	})
	t.Run("Two or more participants need two likes", func(t provider.T) {
		assert.Equal(t, 2, Threshold(2))
		assert.Equal(t, 2, Threshold(7))
	})
}

func (s *DetectorUnitSuite) TestDetect(t provider.T) {
	t.Run("Two likers create a match", func(t provider.T) {
		ledger := ledgerOf(like("A", 42, 1), like("B", 42, 2))

		matches, err := Detect(ledger, participants("A", "B"), nil, 100)

		require.NoError(t, err)
		require.Len(t, matches, 1)
		assert.Equal(t, model.MovieID(42), matches[0].MovieID)
		assert.Equal(t, []string{"A", "B"}, matches[0].LikedBy)
		assert.Equal(t, int64(100), matches[0].MatchedAt)
	})

	t.Run("Dislikes never count", func(t provider.T) {
		ledger := ledgerOf(like("A", 42, 1), dislike("B", 42, 2))

		matches, err := Detect(ledger, participants("A", "B"), nil, 100)

		require.NoError(t, err)
		assert.Empty(t, matches)
	})

	t.Run("Single like below threshold", func(t provider.T) {
		ledger := ledgerOf(like("A", 42, 1))

		matches, err := Detect(ledger, participants("A", "B"), nil, 100)

		require.NoError(t, err)
		assert.Empty(t, matches)
	})

	t.Run("One-person room matches on a single like", func(t provider.T) {
		ledger := ledgerOf(like("A", 7, 1))

		matches, err := Detect(ledger, participants("A"), nil, 100)

		require.NoError(t, err)
		require.Len(t, matches, 1)
		assert.Equal(t, model.MovieID(7), matches[0].MovieID)
		assert.Equal(t, []string{"A"}, matches[0].LikedBy)
	})

	t.Run("Existing match is not re-emitted", func(t provider.T) {
		ledger := ledgerOf(like("A", 42, 1), like("B", 42, 2))
		existing := map[model.MovieID]model.Match{
			42: {MovieID: 42, LikedBy: []string{"A", "B"}, MatchedAt: 50},
		}

		matches, err := Detect(ledger, participants("A", "B"), existing, 100)

		require.NoError(t, err)
		assert.Empty(t, matches)
	})

	t.Run("Empty participant set is rejected", func(t provider.T) {
		_, err := Detect(ledgerOf(like("A", 42, 1)), nil, nil, 100)
		assert.ErrorIs(t, err, ErrNoParticipants)
	})
}

func (s *DetectorUnitSuite) TestDetectIdempotent(t provider.T) {
	ledger := ledgerOf(
		like("A", 42, 1), like("B", 42, 2),
		like("A", 7, 3), like("B", 9, 4),
	)
	people := participants("A", "B")

	first, err := Detect(ledger, people, nil, 100)
	require.NoError(t, err)
	require.Len(t, first, 1)

	existing := make(map[model.MovieID]model.Match)
	for _, m := range first {
		existing[m.MovieID] = m
	}

	second, err := Detect(ledger, people, existing, 200)
	require.NoError(t, err)
	assert.Empty(t, second, "second run over the same snapshot must detect nothing new")
}

func (s *DetectorUnitSuite) TestDetectOrderIndependent(t provider.T) {
	events := []model.SwipeEvent{
		like("A", 42, 1), like("B", 42, 2), like("C", 42, 3),
		dislike("A", 9, 4), like("B", 9, 5),
		like("C", 7, 6),
	}
	people := participants("A", "B", "C")

	reference, err := Detect(ledgerOf(events...), people, nil, 100)
	require.NoError(t, err)

	r := rand.New(rand.NewSource(1))
	for range 10 {
		shuffled := append([]model.SwipeEvent(nil), events...)
		r.Shuffle(len(shuffled), func(i, j int) {
			shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
		})

		got, err := Detect(ledgerOf(shuffled...), people, nil, 100)
		require.NoError(t, err)
		assert.Equal(t, reference, got)
	}
}

func (s *DetectorUnitSuite) TestMergeLikers(t provider.T) {
	t.Run("Late liker grows the set without touching MatchedAt", func(t provider.T) {
		m := model.Match{MovieID: 42, LikedBy: []string{"A", "B"}, MatchedAt: 100}

		merged, changed := MergeLikers(m, []string{"A", "B", "C"})

		assert.True(t, changed)
		assert.Equal(t, []string{"A", "B", "C"}, merged.LikedBy)
		assert.Equal(t, int64(100), merged.MatchedAt)
	})

	t.Run("Known likers change nothing", func(t provider.T) {
		m := model.Match{MovieID: 42, LikedBy: []string{"A", "B"}, MatchedAt: 100}

		merged, changed := MergeLikers(m, []string{"B", "A"})

		assert.False(t, changed)
		assert.Equal(t, m.LikedBy, merged.LikedBy)
	})

	t.Run("Likers never shrink", func(t provider.T) {
		m := model.Match{MovieID: 42, LikedBy: []string{"A", "B"}, MatchedAt: 100}

		merged, changed := MergeLikers(m, nil)

		assert.False(t, changed)
		assert.Equal(t, []string{"A", "B"}, merged.LikedBy)
	})
}

func TestDetectorUnitSuite(t *testing.T) {
	suite.RunSuite(t, new(DetectorUnitSuite))
}
