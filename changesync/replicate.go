package changesync

import (
	"context"
	"fmt"

	"github.com/go-redis/redis/v8"

	"automergekv/automerge"
)

// Replicator fans a key's committed changes out to a Redis Stream and
// pulls them back in on the peer side, generalizing
// luvjson/crdtsync's peer-exchange role to a transport spec.md §1
// explicitly leaves out of the module's own scope: this is an optional
// helper a deployment can wire up, not something binding.Mutate itself
// depends on.
type Replicator struct {
	client *redis.Client
	sync   *Sync
}

// NewReplicator wraps client and sync for stream-based change exchange.
func NewReplicator(client *redis.Client, sync *Sync) *Replicator {
	return &Replicator{client: client, sync: sync}
}

func (r *Replicator) streamKey(key string) string { return "changes-stream:" + key }

// PublishChanges appends each change's encoded frame to key's stream,
// in commit order, for a peer's Pull to later consume.
func (r *Replicator) PublishChanges(ctx context.Context, key string, changes []automerge.Change) error {
	for _, c := range changes {
		frame, err := c.Encode()
		if err != nil {
			return err
		}
		args := &redis.XAddArgs{
			Stream: r.streamKey(key),
			Values: map[string]interface{}{"frame": frame},
		}
		if err := r.client.XAdd(ctx, args).Err(); err != nil {
			return fmt.Errorf("changesync: publish to stream %q: %w", r.streamKey(key), err)
		}
	}
	return nil
}

// Pull reads every stream entry for key after lastID (use "0" to read
// from the start), merges the decoded frames through Sync.Apply, and
// returns the number actually merged plus the new cursor to pass back
// in on the next call.
func (r *Replicator) Pull(ctx context.Context, key, lastID string) (newLastID string, applied int, err error) {
	res, err := r.client.XRead(ctx, &redis.XReadArgs{
		Streams: []string{r.streamKey(key), lastID},
		Count:   256,
	}).Result()
	if err == redis.Nil {
		return lastID, 0, nil
	}
	if err != nil {
		return lastID, 0, fmt.Errorf("changesync: read stream %q: %w", r.streamKey(key), err)
	}
	if len(res) == 0 {
		return lastID, 0, nil
	}

	var frames [][]byte
	cursor := lastID
	for _, msg := range res[0].Messages {
		raw, ok := msg.Values["frame"]
		if !ok {
			continue
		}
		frame, ok := raw.(string)
		if !ok {
			continue
		}
		frames = append(frames, []byte(frame))
		cursor = msg.ID
	}
	if len(frames) == 0 {
		return cursor, 0, nil
	}
	n, err := r.sync.Apply(ctx, key, frames, []string{"replicate"})
	return cursor, n, err
}
