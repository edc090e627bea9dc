package usecase_match

import (
	"context"
	"encoding/json"
	"errors"
	"sort"

	"github.com/reelmatch/core/internal/model"
	"github.com/reelmatch/core/internal/store"
)

var (
	ErrNoParticipants = errors.New("match detection over empty participant set")
	ErrInternal       = errors.New("internal error")

	// ErrStaleWrite marks a lost SetIfAbsent race on a match key. It is the
	// expected resolution of two sessions observing the same threshold
	// crossing, never a user-facing failure.
	ErrStaleWrite = errors.New("stale write")
)

// Threshold is the liker count required for a match: a single like suffices
// in a 1-person room, at least 2 distinct likers everywhere else.
func Threshold(participantCount int) int {
	if participantCount < 2 {
		return 1
	}
	return 2
}

// Likers groups the ledger by movie and returns the sorted set of
// participants that liked each one. The ledger already holds at most one
// entry per (participant, movie), so the result does not depend on any
// arrival order.
func Likers(ledger map[model.SwipeKey]model.SwipeEvent) map[model.MovieID][]string {
	likers := make(map[model.MovieID][]string)
	for key, e := range ledger {
		if !e.Liked {
			continue
		}
		likers[key.MovieID] = append(likers[key.MovieID], key.ParticipantID)
	}
	for id := range likers {
		sort.Strings(likers[id])
	}
	return likers
}

// Detect derives the set of NEW matches from a ledger snapshot: movies whose
// distinct liker count reaches the threshold and that have no existing match
// yet. It is idempotent and order-independent; running it again on the same
// snapshot, with its own output folded into existing, yields nothing.
func Detect(
	ledger map[model.SwipeKey]model.SwipeEvent,
	participants map[string]model.Participant,
	existing map[model.MovieID]model.Match,
	now int64,
) ([]model.Match, error) {
	if len(participants) == 0 {
		return nil, ErrNoParticipants
	}

	threshold := Threshold(len(participants))

	var matches []model.Match
	for movieID, liked := range Likers(ledger) {
		if len(liked) < threshold {
			continue
		}
		if _, done := existing[movieID]; done {
			continue
		}
		matches = append(matches, model.Match{
			MovieID:   movieID,
			LikedBy:   liked,
			MatchedAt: now,
		})
	}

	sort.Slice(matches, func(i, j int) bool { return matches[i].MovieID < matches[j].MovieID })
	return matches, nil
}

// MergeLikers grows an existing match with newly observed likers. LikedBy
// only ever grows and MatchedAt is preserved; changed reports whether the
// record needs writing back.
func MergeLikers(m model.Match, likers []string) (merged model.Match, changed bool) {
	seen := make(map[string]bool, len(m.LikedBy))
	for _, id := range m.LikedBy {
		seen[id] = true
	}

	merged = m
	merged.LikedBy = append([]string(nil), m.LikedBy...)
	for _, id := range likers {
		if !seen[id] {
			merged.LikedBy = append(merged.LikedBy, id)
			changed = true
		}
	}
	if changed {
		sort.Strings(merged.LikedBy)
	}
	return merged, changed
}

// Writer publishes matches to the shared match set.
type Writer struct {
	store store.KV
}

func NewWriter(kv store.KV) *Writer {
	return &Writer{store: kv}
}

// Publish writes a freshly detected match. Creation is exactly-once across
// leaderless concurrent writers because it rides the store's SetIfAbsent on
// the per-movie key; losing the race returns ErrStaleWrite.
func (w *Writer) Publish(ctx context.Context, code model.RoomCode, m model.Match) error {
	payload, err := json.Marshal(m)
	if err != nil {
		return errors.Join(ErrInternal, err)
	}

	won, err := w.store.SetIfAbsent(ctx, store.MatchPath(code, m.MovieID), payload)
	if err != nil {
		return err
	}
	if !won {
		return ErrStaleWrite
	}
	return nil
}

// Update overwrites an existing match record, used only for monotonic liker
// growth after creation.
func (w *Writer) Update(ctx context.Context, code model.RoomCode, m model.Match) error {
	payload, err := json.Marshal(m)
	if err != nil {
		return errors.Join(ErrInternal, err)
	}
	return w.store.Set(ctx, store.MatchPath(code, m.MovieID), payload)
}

// Snapshot reads the full match set of a room.
func (w *Writer) Snapshot(ctx context.Context, code model.RoomCode) (map[model.MovieID]model.Match, error) {
	records, err := w.store.List(ctx, store.MatchesPrefix(code))
	if err != nil {
		return nil, err
	}

	matches := make(map[model.MovieID]model.Match, len(records))
	for _, payload := range records {
		var m model.Match
		if err := json.Unmarshal(payload, &m); err != nil {
			return nil, errors.Join(ErrInternal, err)
		}
		matches[m.MovieID] = m
	}
	return matches, nil
}
