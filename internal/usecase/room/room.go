package usecase_room

import (
	"context"
	"encoding/json"
	"errors"
	"math/rand"
	"strings"

	"github.com/reelmatch/core/internal/model"
	"github.com/reelmatch/core/internal/store"
)

var (
	ErrRoomNotFound            = errors.New("room not found")
	ErrCodeGenerationExhausted = errors.New("room code generation exhausted")
	ErrInternal                = errors.New("internal error")
)

// Bounded collision retries on room creation.
const codeRetries = 10

// Registry manages room lifecycle against the shared store. It only writes
// through the store's write path; fan-out to subscribed sessions is the
// store's job.
type Registry struct {
	store store.KV
}

func New(kv store.KV) *Registry {
	return &Registry{store: kv}
}

// Create allocates a unique room code and persists the room with the creator
// as its first participant. Code uniqueness rides the store's SetIfAbsent,
// so two concurrent creators can never claim the same code.
func (r *Registry) Create(ctx context.Context, name string, creator model.Participant, now int64) (model.RoomCode, error) {
	for range codeRetries {
		code := buildRoomCode()
		room := model.Room{
			Code:      code,
			Name:      name,
			CreatedAt: now,
		}
		payload, err := json.Marshal(room)
		if err != nil {
			return model.EmptyRoomCode, errors.Join(ErrInternal, err)
		}

		won, err := r.store.SetIfAbsent(ctx, store.RoomPath(code), payload)
		if err != nil {
			return model.EmptyRoomCode, err
		}
		if !won {
			continue
		}

		if err := r.writeParticipant(ctx, code, creator); err != nil {
			// Release the claimed code: a room without participants would
			// never see a leave, so delete-on-empty could not reclaim it.
			_ = r.store.Delete(ctx, store.RoomPath(code))
			return model.EmptyRoomCode, err
		}
		return code, nil
	}
	return model.EmptyRoomCode, ErrCodeGenerationExhausted
}

// Join adds the participant to an existing room. Re-joining with the same
// participant ID overwrites the same key and is therefore a no-op, not an
// error.
func (r *Registry) Join(ctx context.Context, code model.RoomCode, p model.Participant) error {
	_, exists, err := r.store.Get(ctx, store.RoomPath(code))
	if err != nil {
		return err
	}
	if !exists {
		return ErrRoomNotFound
	}
	return r.writeParticipant(ctx, code, p)
}

// Leave removes the participant; idempotent if already absent. A leave that
// empties the room deletes the room's whole subtree (delete-on-empty
// lifecycle policy).
func (r *Registry) Leave(ctx context.Context, code model.RoomCode, participantID string) error {
	if err := r.store.Delete(ctx, store.UserPath(code, participantID)); err != nil {
		return err
	}

	remaining, err := r.store.List(ctx, store.UsersPrefix(code))
	if err != nil {
		return err
	}
	if len(remaining) > 0 {
		return nil
	}
	return r.purge(ctx, code)
}

// Get loads the room record plus its current participant set.
func (r *Registry) Get(ctx context.Context, code model.RoomCode) (model.Room, error) {
	payload, exists, err := r.store.Get(ctx, store.RoomPath(code))
	if err != nil {
		return model.Room{}, err
	}
	if !exists {
		return model.Room{}, ErrRoomNotFound
	}

	var room model.Room
	if err := json.Unmarshal(payload, &room); err != nil {
		return model.Room{}, errors.Join(ErrInternal, err)
	}

	room.Participants, err = r.Participants(ctx, code)
	if err != nil {
		return model.Room{}, err
	}
	return room, nil
}

func (r *Registry) Participants(ctx context.Context, code model.RoomCode) (map[string]model.Participant, error) {
	records, err := r.store.List(ctx, store.UsersPrefix(code))
	if err != nil {
		return nil, err
	}

	participants := make(map[string]model.Participant, len(records))
	for _, payload := range records {
		var p model.Participant
		if err := json.Unmarshal(payload, &p); err != nil {
			return nil, errors.Join(ErrInternal, err)
		}
		participants[p.ID] = p
	}
	return participants, nil
}

func (r *Registry) writeParticipant(ctx context.Context, code model.RoomCode, p model.Participant) error {
	payload, err := json.Marshal(p)
	if err != nil {
		return errors.Join(ErrInternal, err)
	}
	return r.store.Set(ctx, store.UserPath(code, p.ID), payload)
}

func (r *Registry) purge(ctx context.Context, code model.RoomCode) error {
	records, err := r.store.List(ctx, store.RoomPrefix(code))
	if err != nil {
		return err
	}
	for path := range records {
		if err := r.store.Delete(ctx, path); err != nil {
			return err
		}
	}
	return nil
}

// 4 uppercase letters followed by 2 digits, human-typeable and low-collision
// for the handful of rooms alive at once.
func buildRoomCode() model.RoomCode {
	const letters = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"

	var builder strings.Builder
	builder.Grow(6)
	for range 4 {
		builder.WriteByte(letters[rand.Intn(len(letters))])
	}
	for range 2 {
		builder.WriteByte(byte(rand.Intn(10)) + '0')
	}
	return model.RoomCode(builder.String())
}
