package notify

import (
	"context"

	"automergekv/automerge"
	"automergekv/host"
)

// Memory is a PubSub implementation layered directly over host.Memory's
// Publish/Subscribe pair, for tests and other in-process consumers.
type Memory struct {
	host *host.Memory
}

// NewMemory wraps h for notify-level pub/sub.
func NewMemory(h *host.Memory) *Memory { return &Memory{host: h} }

func (m *Memory) Publish(ctx context.Context, channel string, c automerge.Change) error {
	payload, err := encodeFrame(c)
	if err != nil {
		return err
	}
	return m.host.Publish(ctx, channel, payload)
}

// Subscribe drains host.Memory's raw byte channel, decoding each
// delivery into a Message. The returned cancel func stops the
// forwarding goroutine; host.Memory has no unsubscribe, so the raw
// channel itself is simply abandoned.
func (m *Memory) Subscribe(ctx context.Context, channel string) (<-chan Message, func(), error) {
	raw := m.host.Subscribe(channel)
	out := make(chan Message, 16)
	done := make(chan struct{})
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case <-done:
				return
			case payload, ok := <-raw:
				if !ok {
					return
				}
				msg, err := DecodeFrame(channel, payload)
				if err != nil {
					continue
				}
				select {
				case out <- msg:
				case <-ctx.Done():
					return
				case <-done:
					return
				}
			}
		}
	}()
	cancel := func() {
		select {
		case <-done:
		default:
			close(done)
		}
	}
	return out, cancel, nil
}

func (m *Memory) Close() error { return nil }

var _ PubSub = (*Memory)(nil)
