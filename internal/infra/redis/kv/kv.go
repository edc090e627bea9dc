package infra_redis_kv

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/go-redis/redis"
	"github.com/reelmatch/core/internal/store"
)

const channelPrefix = "kv:"

// Driver is the redis-backed store.KV variant. Values live under their path
// as plain keys; change notification rides redis pub/sub, one channel per
// path, with pattern subscriptions per prefix.
//
// Pub/sub gives at-most-once delivery across a disconnect, which is exactly
// the transport contract the session layer's resync-on-reconnect assumes.
type Driver struct {
	client *redis.Client
	logger *slog.Logger
}

func New(client *redis.Client) *Driver {
	return &Driver{
		client: client,
		logger: slog.Default(),
	}
}

type wireEvent struct {
	Path    string `json:"path"`
	Value   []byte `json:"value,omitempty"`
	Deleted bool   `json:"deleted,omitempty"`
}

func (d *Driver) Get(_ context.Context, path string) ([]byte, bool, error) {
	v, err := d.client.Get(path).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, errors.Join(store.ErrUnavailable, err)
	}
	return v, true, nil
}

func (d *Driver) Set(ctx context.Context, path string, value []byte) error {
	if err := d.client.Set(path, value, 0).Err(); err != nil {
		return errors.Join(store.ErrUnavailable, err)
	}
	d.publish(wireEvent{Path: path, Value: value})
	return nil
}

func (d *Driver) SetIfAbsent(ctx context.Context, path string, value []byte) (bool, error) {
	ok, err := d.client.SetNX(path, value, 0).Result()
	if err != nil {
		return false, errors.Join(store.ErrUnavailable, err)
	}
	if ok {
		d.publish(wireEvent{Path: path, Value: value})
	}
	return ok, nil
}

func (d *Driver) Delete(ctx context.Context, path string) error {
	if err := d.client.Del(path).Err(); err != nil {
		return errors.Join(store.ErrUnavailable, err)
	}
	d.publish(wireEvent{Path: path, Deleted: true})
	return nil
}

func (d *Driver) List(_ context.Context, prefix string) (map[string][]byte, error) {
	keys, err := d.client.Keys(prefix + "*").Result()
	if err != nil {
		return nil, errors.Join(store.ErrUnavailable, err)
	}

	out := make(map[string][]byte, len(keys))
	for _, key := range keys {
		v, err := d.client.Get(key).Bytes()
		if err == redis.Nil {
			continue // expired between KEYS and GET
		}
		if err != nil {
			return nil, errors.Join(store.ErrUnavailable, err)
		}
		out[key] = v
	}
	return out, nil
}

func (d *Driver) Subscribe(_ context.Context, prefix string, fn func(store.Event)) (func(), error) {
	pubsub := d.client.PSubscribe(channelPrefix + prefix + "*")
	if _, err := pubsub.Receive(); err != nil {
		_ = pubsub.Close()
		return nil, errors.Join(store.ErrUnavailable, err)
	}

	go func() {
		for msg := range pubsub.Channel() {
			var ev wireEvent
			if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
				d.logger.Error("malformed kv event", "channel", msg.Channel, "error", err)
				continue
			}
			fn(store.Event{Path: ev.Path, Value: ev.Value, Deleted: ev.Deleted})
		}
	}()

	return func() { _ = pubsub.Close() }, nil
}

func (d *Driver) publish(ev wireEvent) {
	payload, err := json.Marshal(ev)
	if err != nil {
		d.logger.Error("failed to marshal kv event", "path", ev.Path, "error", err)
		return
	}
	if err := d.client.Publish(channelPrefix+ev.Path, string(payload)).Err(); err != nil {
		d.logger.Error("failed to publish kv event", "path", ev.Path, "error", err)
	}
}
