package automerge

import (
	"encoding/json"
	"fmt"
)

// snapshot is the wire format Save/Load exchange: the full causal
// history plus the owning session id, sufficient to rebuild identical
// document state by replaying every change in causal order
// (spec.md §4.5's save/load pair).
type snapshot struct {
	SessionID SessionID `json:"sessionId"`
	Changes   []Change  `json:"changes"`
}

// Save serializes the document's complete change history.
func (d *Document) Save() ([]byte, error) {
	snap := snapshot{SessionID: d.sessionID, Changes: d.Changes(nil)}
	data, err := json.Marshal(snap)
	if err != nil {
		return nil, fmt.Errorf("automerge: failed to save document: %w", err)
	}
	return data, nil
}

// Load rebuilds a document from a Save frame by replaying every change
// in stored order. Save always appends changes in the order they were
// recorded, so each change's deps are already present by the time it is
// replayed here.
func Load(data []byte) (*Document, error) {
	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("automerge: failed to load document: %w", err)
	}
	d := New(snap.SessionID)
	for _, c := range snap.Changes {
		if err := d.applyOps(c.Ops); err != nil {
			return nil, fmt.Errorf("automerge: failed to replay change %s: %w", c.Hash, err)
		}
		d.appendChange(c)
		if c.Seq > d.clock[c.Actor] {
			d.clock[c.Actor] = c.Seq
		}
	}
	return d, nil
}
