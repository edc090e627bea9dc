package store

import (
	"context"
	"errors"
)

// ErrUnavailable marks transient backend failures. Callers decide whether to
// retry; nothing in this package retries internally.
var ErrUnavailable = errors.New("store unavailable")

// Event is a change notification for a single key. Delivery is at-most-once
// across a disconnect, which is why every consumer resyncs from a full
// snapshot before interpreting deltas again.
type Event struct {
	Path    string
	Value   []byte
	Deleted bool
}

// KV is the remote store every room-scoped record flows through. Keys are
// slash-separated paths on a granularity fine enough that concurrent writers
// only ever collide on identical keys, where overwrite or SetIfAbsent
// semantics suffice.
//
// Two implementations exist: redis-backed (infra/redis/kv) and an in-memory
// fake (infra/memstore), selected at construction time.
type KV interface {
	// Get returns the value at path; ok is false when the key is absent.
	Get(ctx context.Context, path string) (value []byte, ok bool, err error)

	Set(ctx context.Context, path string, value []byte) error

	// SetIfAbsent writes only when the key does not exist yet and reports
	// whether this caller won. Losing is the expected resolution of
	// concurrent writers, not a failure.
	SetIfAbsent(ctx context.Context, path string, value []byte) (bool, error)

	// Delete is idempotent; deleting an absent key is a no-op.
	Delete(ctx context.Context, path string) error

	// List returns every key under prefix with its value.
	List(ctx context.Context, prefix string) (map[string][]byte, error)

	// Subscribe delivers change events for every key under prefix until the
	// returned stop function is called.
	Subscribe(ctx context.Context, prefix string, fn func(Event)) (stop func(), err error)
}
