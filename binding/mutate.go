package binding

import (
	"context"
	"encoding/base64"
	"fmt"
	"log"
	"strings"
	"time"

	"automergekv/automerge"
	"automergekv/docops"
)

// Mutate runs fn against e's document under e's per-key mutex, then
// performs the ordered publication sequence spec.md §4.6 requires for
// every successful mutation, synchronously and before returning:
//  1. Emit to the host log (§4.4) — failure here is fatal: Mutate
//     returns HostLogError and skips the remaining steps, per the Open
//     Question resolution recorded in DESIGN.md (no rollback of the
//     in-memory change, since automerge has no undo primitive).
//  2. Publish each newly produced change frame, base64-encoded, on
//     `changes:<key>`, in commit order.
//  3. Emit a keyspace event named after the lowercased command.
//  4. Run every registered MutateHook (shadowindex's coherence update).
//
// command and args are the original user-level command and its
// positional arguments, logged verbatim — strategy (a) of §4.4's two
// valid replay encodings, chosen for auditability.
//
// A fn that commits no new change (e.g. a no-op DELETE of an absent
// field) is not treated as a mutation: steps 1-4 are skipped and Mutate
// returns a nil, empty change slice.
//
// fn may fail partway through producing more than one change (APPLY
// merging a batch of change frames, some rejected by MISSING_DEPS):
// whatever fn already committed before returning an error is still a
// real mutation, so Mutate still runs steps 1-4 for it before
// propagating fnErr — consistent with this module's no-rollback
// decision (automerge has no undo primitive).
func (b *Binding) Mutate(ctx context.Context, e *Entry, command string, args []string, fn func(*docops.Operations) error) ([]automerge.Change, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	before := e.Doc.Heads()
	fnErr := fn(e.Ops())
	changes := e.Doc.Changes(before)
	if len(changes) == 0 {
		return nil, fnErr
	}
	e.LastModified = time.Now()

	if err := b.host.AppendLog(ctx, command, args...); err != nil {
		return changes, &docops.HostLogError{Cause: err}
	}

	channel := fmt.Sprintf("changes:%s", e.Key)
	for _, c := range changes {
		frame, err := c.Encode()
		if err != nil {
			log.Printf("binding: failed to encode change frame for %q: %v", e.Key, err)
			continue
		}
		payload := []byte(base64.StdEncoding.EncodeToString(frame))
		if err := b.host.Publish(ctx, channel, payload); err != nil {
			log.Printf("binding: failed to publish change frame for %q: %v", e.Key, err)
		}
	}

	if err := b.host.NotifyKeyspaceEvent(ctx, e.Key, strings.ToLower(command)); err != nil {
		log.Printf("binding: failed to notify keyspace event for %q: %v", e.Key, err)
	}

	b.runHooks(ctx, e.Key)
	return changes, fnErr
}
