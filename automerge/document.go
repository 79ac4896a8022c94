package automerge

import (
	"fmt"
)

// Document is a single CRDT tree rooted at a map, plus the causal history
// of Changes that produced its current state. It plays the role spec.md
// §1 assigns to "the underlying CRDT library": encoding, the change
// graph, heads computation and patch generation all live here, behind
// the API the rest of this module treats as a black box.
type Document struct {
	root  *MapNode
	index map[OpID]Node

	sessionID SessionID
	clock     map[SessionID]uint64

	changes       []Change
	changeIndex   map[ChangeHash]int
	headsSet      map[ChangeHash]struct{}
}

// New creates an empty document owned by sessionID.
func New(sessionID SessionID) *Document {
	root := NewMapNode(RootID)
	d := &Document{
		root:        root,
		index:       make(map[OpID]Node),
		sessionID:   sessionID,
		clock:       make(map[SessionID]uint64),
		changeIndex: make(map[ChangeHash]int),
		headsSet:    make(map[ChangeHash]struct{}),
	}
	d.index[RootID] = root
	return d
}

// Root returns the document's root map.
func (d *Document) Root() *MapNode { return d.root }

// SessionID returns the local actor id.
func (d *Document) SessionID() SessionID { return d.sessionID }

// GetNode looks up a node by id.
func (d *Document) GetNode(id OpID) (Node, error) {
	if id == RootID {
		return d.root, nil
	}
	n, ok := d.index[id]
	if !ok {
		return nil, ErrNodeNotFound{ID: id}
	}
	return n, nil
}

func (d *Document) addNode(n Node) {
	d.index[n.ID()] = n
}

// nextID issues the next logical id for the local session.
func (d *Document) nextID() OpID {
	d.clock[d.sessionID]++
	return OpID{SID: d.sessionID, Counter: d.clock[d.sessionID]}
}

func (d *Document) bumpSeq() uint64 {
	d.clock[d.sessionID]++
	return d.clock[d.sessionID]
}

// Heads returns the minimal set of change hashes not dominated by any
// other change — the document's current logical state identifier.
func (d *Document) Heads() []ChangeHash {
	out := make([]ChangeHash, 0, len(d.headsSet))
	for h := range d.headsSet {
		out = append(out, h)
	}
	return out
}

// NumChanges returns the count of changes in the document's history.
func (d *Document) NumChanges() int { return len(d.changes) }

// HasChange reports whether hash is already present in the history.
func (d *Document) HasChange(hash ChangeHash) bool {
	_, ok := d.changeIndex[hash]
	return ok
}

// ancestors returns the transitive closure of deps reachable from the
// given hashes, including the hashes themselves.
func (d *Document) ancestors(hashes []ChangeHash) map[ChangeHash]struct{} {
	seen := make(map[ChangeHash]struct{})
	var visit func(h ChangeHash)
	visit = func(h ChangeHash) {
		if _, ok := seen[h]; ok {
			return
		}
		seen[h] = struct{}{}
		idx, ok := d.changeIndex[h]
		if !ok {
			return
		}
		for _, dep := range d.changes[idx].Deps {
			visit(dep)
		}
	}
	for _, h := range hashes {
		visit(h)
	}
	return seen
}

// Changes returns, in topological order, every change not dominated by
// any hash in have — i.e. every change the caller (identified by having
// committed up to `have`) does not yet know about. Empty `have` returns
// the full history.
func (d *Document) Changes(have []ChangeHash) []Change {
	if len(have) == 0 {
		out := make([]Change, len(d.changes))
		copy(out, d.changes)
		return out
	}
	known := d.ancestors(have)
	out := make([]Change, 0, len(d.changes))
	for _, c := range d.changes {
		if _, ok := known[c.Hash]; !ok {
			out = append(out, c)
		}
	}
	return out
}

// recordChange finalizes a locally-produced set of ops into a Change,
// appends it to history, and updates heads. It is the single place a
// Change is ever minted locally; ApplyChange is the counterpart for
// externally-produced ones.
func (d *Document) recordChange(ops []Op) (Change, error) {
	deps := d.Heads()
	c := Change{
		Actor: d.sessionID,
		Seq:   d.bumpSeq(),
		Deps:  deps,
		Ops:   ops,
	}
	hash, err := c.computeHash()
	if err != nil {
		return Change{}, err
	}
	c.Hash = hash
	d.appendChange(c)
	return c, nil
}

func (d *Document) appendChange(c Change) {
	d.changeIndex[c.Hash] = len(d.changes)
	d.changes = append(d.changes, c)
	for _, dep := range c.Deps {
		delete(d.headsSet, dep)
	}
	d.headsSet[c.Hash] = struct{}{}
}

// ApplyChange decodes and applies an externally-produced change. It is
// idempotent (re-applying an already-known hash is a no-op success) and
// rejects changes whose dependencies are not yet present with
// ErrMissingDeps, per spec.md §4.5.
func (d *Document) ApplyChange(c Change) error {
	if d.HasChange(c.Hash) {
		return nil
	}
	var missing []ChangeHash
	for _, dep := range c.Deps {
		if !d.HasChange(dep) {
			missing = append(missing, dep)
		}
	}
	if len(missing) > 0 {
		return ErrMissingDeps{Missing: missing}
	}
	if err := d.applyOps(c.Ops); err != nil {
		return fmt.Errorf("automerge: failed to apply change: %w", err)
	}
	d.appendChange(c)
	// A foreign change may have been produced by a higher-numbered actor
	// clock than we have observed; keep our clock monotonic so locally
	// minted ids never collide with replayed ones.
	if c.Seq > d.clock[c.Actor] {
		d.clock[c.Actor] = c.Seq
	}
	return nil
}
