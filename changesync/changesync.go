// Package changesync implements the Change Protocol (spec.md §4.5): the
// command-facing wrapper around automerge.Document's history machinery
// — num_changes, changes, apply, save, load, get_diff — grounded on
// luvjson/crdtsync's state-vector/patch-store shape and
// luvjson/tracker's topological replay ordering, both of which
// automerge.Document already implements directly.
package changesync

import (
	"context"
	"encoding/hex"
	"fmt"

	"automergekv/automerge"
	"automergekv/binding"
	"automergekv/docops"
)

// Sync is the Change Protocol façade over a Binding.
type Sync struct {
	Binding *binding.Binding
}

// New wraps b for change-protocol command access.
func New(b *binding.Binding) *Sync { return &Sync{Binding: b} }

func parseHash(s string) (automerge.ChangeHash, error) {
	var h automerge.ChangeHash
	raw, err := hex.DecodeString(s)
	if err != nil || len(raw) != len(h) {
		return h, &docops.BadArgsError{Cause: fmt.Errorf("changesync: invalid change hash %q", s)}
	}
	copy(h[:], raw)
	return h, nil
}

func parseHashes(ss []string) ([]automerge.ChangeHash, error) {
	out := make([]automerge.ChangeHash, len(ss))
	for i, s := range ss {
		h, err := parseHash(s)
		if err != nil {
			return nil, err
		}
		out[i] = h
	}
	return out, nil
}

// NumChanges implements the NUMCHANGES command.
func (s *Sync) NumChanges(ctx context.Context, key string) (int, error) {
	e, err := s.Binding.Get(ctx, key)
	if err != nil {
		return 0, err
	}
	return e.Doc.NumChanges(), nil
}

// Changes implements the CHANGES command: every change not dominated
// by haveHashes, encoded as change frames in topological order.
func (s *Sync) Changes(ctx context.Context, key string, haveHashes []string) ([][]byte, error) {
	e, err := s.Binding.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	have, err := parseHashes(haveHashes)
	if err != nil {
		return nil, err
	}
	changes := e.Doc.Changes(have)
	out := make([][]byte, len(changes))
	for i, c := range changes {
		frame, err := c.Encode()
		if err != nil {
			return nil, err
		}
		out[i] = frame
	}
	return out, nil
}

// Apply implements the APPLY command: decodes and merges each change
// frame in order, auto-creating an empty document at key if it does
// not yet exist. It returns the number of frames actually merged
// (duplicates are idempotent no-ops and do not count); a frame whose
// dependencies are absent aborts processing of the remaining frames
// and is reported as docops.MissingDepsError, while every frame merged
// before it still takes effect and is published/logged/notified
// through binding.Binding.Mutate.
func (s *Sync) Apply(ctx context.Context, key string, frames [][]byte, args []string) (int, error) {
	e, err := s.Binding.GetOrCreate(ctx, key)
	if err != nil {
		return 0, err
	}
	applied := 0
	_, mutateErr := s.Binding.Mutate(ctx, e, "APPLY", args, func(*docops.Operations) error {
		for _, frame := range frames {
			c, err := automerge.DecodeChange(frame)
			if err != nil {
				return &docops.BadArgsError{Cause: err}
			}
			if e.Doc.HasChange(c.Hash) {
				continue
			}
			if err := e.Doc.ApplyChange(c); err != nil {
				if _, ok := err.(automerge.ErrMissingDeps); ok {
					return &docops.MissingDepsError{Cause: err}
				}
				return err
			}
			applied++
		}
		return nil
	})
	return applied, mutateErr
}

// Save implements the SAVE command.
func (s *Sync) Save(ctx context.Context, key string) ([]byte, error) {
	return s.Binding.Save(ctx, key)
}

// Load implements the LOAD command.
func (s *Sync) Load(ctx context.Context, key string, data []byte) error {
	_, err := s.Binding.Load(ctx, key, data)
	return err
}

// GetDiff implements the GETDIFF command: the patch list describing the
// transition from the state identified by beforeHashes to the one
// identified by afterHashes (empty afterHashes means current heads).
func (s *Sync) GetDiff(ctx context.Context, key string, beforeHashes, afterHashes []string) ([]automerge.Patch, error) {
	e, err := s.Binding.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	before, err := parseHashes(beforeHashes)
	if err != nil {
		return nil, err
	}
	after, err := parseHashes(afterHashes)
	if err != nil {
		return nil, err
	}
	return e.Doc.GetDiffRange(before, after), nil
}
