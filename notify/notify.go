// Package notify implements the consumer side of Publication &
// Notification (spec.md §4.6): decoding and subscribing to the
// `changes:<key>` channel binding.Binding.Mutate publishes to. The
// Publisher/Subscriber split is grounded on
// luvjson/crdtpubsub/pubsub.go's interfaces, kept close to their
// original shape since that shape already matches spec §4.6 almost
// exactly; binding itself only ever publishes (through host.Host), so
// notify exists for anything that needs to consume those channels —
// tests or a client library; the demo binary does not use it.
package notify

import (
	"context"
	"encoding/base64"
	"fmt"

	"automergekv/automerge"
)

// Message is one decoded delivery on a subscribed channel.
type Message struct {
	Channel string
	Change  automerge.Change
}

// Publisher emits a change frame on channel, base64-encoding it the way
// spec.md §4.6 requires ("emit the base64 of the frame").
type Publisher interface {
	Publish(ctx context.Context, channel string, change automerge.Change) error
	Close() error
}

// Subscriber receives decoded Messages from a channel until the
// returned cancel func is called or ctx is done.
type Subscriber interface {
	Subscribe(ctx context.Context, channel string) (<-chan Message, func(), error)
	Close() error
}

// PubSub combines both roles, mirroring crdtpubsub.PubSub.
type PubSub interface {
	Publisher
	Subscriber
}

func encodeFrame(c automerge.Change) ([]byte, error) {
	frame, err := c.Encode()
	if err != nil {
		return nil, err
	}
	out := make([]byte, base64.StdEncoding.EncodedLen(len(frame)))
	base64.StdEncoding.Encode(out, frame)
	return out, nil
}

// DecodeFrame reverses encodeFrame/binding.Mutate's publish encoding:
// base64 text to a decoded Change.
func DecodeFrame(channel string, payload []byte) (Message, error) {
	frame, err := base64.StdEncoding.DecodeString(string(payload))
	if err != nil {
		return Message{}, fmt.Errorf("notify: failed to decode base64 frame on %q: %w", channel, err)
	}
	c, err := automerge.DecodeChange(frame)
	if err != nil {
		return Message{}, fmt.Errorf("notify: failed to decode change frame on %q: %w", channel, err)
	}
	return Message{Channel: channel, Change: c}, nil
}
