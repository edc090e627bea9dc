package usecase_swipe

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/reelmatch/core/internal/model"
	"github.com/reelmatch/core/internal/store"
)

var (
	ErrUnableToRecord = errors.New("unable to record swipe")
	ErrInternal       = errors.New("internal error")
)

// Ledger is the append-only-by-key swipe record of a room. The store key
// rooms/{code}/swipes/{participantID}_{movieID} makes the ledger an upsert
// per (participant, movie) pair: retried or repeated swipes on the same
// movie overwrite rather than append, which keeps match detection idempotent.
type Ledger struct {
	store store.KV
}

func New(kv store.KV) *Ledger {
	return &Ledger{store: kv}
}

// Record upserts the event under its (participant, movie) key. An existing
// entry with a later timestamp wins; the stale write is dropped so a client
// replaying old swipes cannot roll back a newer decision.
func (l *Ledger) Record(ctx context.Context, code model.RoomCode, e model.SwipeEvent) error {
	path := store.SwipePath(code, e.ParticipantID, e.MovieID)

	existing, ok, err := l.store.Get(ctx, path)
	if err != nil {
		return errors.Join(ErrUnableToRecord, err)
	}
	if ok {
		var prev model.SwipeEvent
		if err := json.Unmarshal(existing, &prev); err == nil && !e.Supersedes(prev) {
			return nil
		}
	}

	payload, err := json.Marshal(e)
	if err != nil {
		return errors.Join(ErrInternal, err)
	}
	if err := l.store.Set(ctx, path, payload); err != nil {
		return errors.Join(ErrUnableToRecord, err)
	}
	return nil
}

// Snapshot reads the full ledger of a room, keyed by (participant, movie).
func (l *Ledger) Snapshot(ctx context.Context, code model.RoomCode) (map[model.SwipeKey]model.SwipeEvent, error) {
	records, err := l.store.List(ctx, store.SwipesPrefix(code))
	if err != nil {
		return nil, err
	}

	ledger := make(map[model.SwipeKey]model.SwipeEvent, len(records))
	for _, payload := range records {
		var e model.SwipeEvent
		if err := json.Unmarshal(payload, &e); err != nil {
			return nil, errors.Join(ErrInternal, err)
		}
		ledger[e.Key()] = e
	}
	return ledger, nil
}

// Collapse folds a raw event stream into ledger form, applying the same
// last-write-wins upsert rule as Record. The result is independent of the
// order events arrive in.
func Collapse(events []model.SwipeEvent) map[model.SwipeKey]model.SwipeEvent {
	ledger := make(map[model.SwipeKey]model.SwipeEvent, len(events))
	for _, e := range events {
		if prev, ok := ledger[e.Key()]; ok && !e.Supersedes(prev) {
			continue
		}
		ledger[e.Key()] = e
	}
	return ledger
}
