package notify

import (
	"context"

	"github.com/go-redis/redis/v8"

	"automergekv/automerge"
)

// Redis is a PubSub implementation backed by native Redis Pub/Sub,
// generalizing luvjson/crdtpubsub's Redis-backed Publisher/Subscriber
// to this module's base64(change-frame) payload.
type Redis struct {
	client *redis.Client
}

// NewRedis wraps client for notify-level pub/sub.
func NewRedis(client *redis.Client) *Redis { return &Redis{client: client} }

func (r *Redis) Publish(ctx context.Context, channel string, c automerge.Change) error {
	payload, err := encodeFrame(c)
	if err != nil {
		return err
	}
	return r.client.Publish(ctx, channel, payload).Err()
}

func (r *Redis) Subscribe(ctx context.Context, channel string) (<-chan Message, func(), error) {
	sub := r.client.Subscribe(ctx, channel)
	raw := sub.Channel()
	out := make(chan Message, 16)
	go func() {
		defer close(out)
		for msg := range raw {
			decoded, err := DecodeFrame(channel, []byte(msg.Payload))
			if err != nil {
				continue
			}
			select {
			case out <- decoded:
			case <-ctx.Done():
				return
			}
		}
	}()
	cancel := func() { sub.Close() }
	return out, cancel, nil
}

func (r *Redis) Close() error { return nil }

var _ PubSub = (*Redis)(nil)
