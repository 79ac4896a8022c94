package automerge

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"sort"
)

// ChangeHash is the content-addressed identifier of a Change, computed
// over its canonical encoding. spec.md §3 calls for a 32-byte id; the
// teacher's own LogicalTimestamp ids are sequence-based rather than
// content-addressed, so this is new machinery layered on top of the
// teacher's node/op model specifically to satisfy the sync protocol in
// spec.md §4.5.
type ChangeHash [32]byte

func (h ChangeHash) String() string { return fmt.Sprintf("%x", [32]byte(h)) }

// OpKind tags the primitive mutation an Op performs.
type OpKind string

const (
	OpSetField    OpKind = "setField"    // overwrite/create a map field with a scalar/text/counter/timestamp/null
	OpDeleteField OpKind = "deleteField" // remove a map field
	OpCreateMap   OpKind = "createMap"   // materialize an intermediate map field
	OpCreateList  OpKind = "createList"  // create an empty list at a field
	OpListInsert  OpKind = "listInsert"  // insert a scalar, empty map or empty list into a list at Index
	OpListDelete  OpKind = "listDelete"  // delete the list element at Index
	OpCounterInc  OpKind = "counterInc"  // apply a commutative delta to a counter
	OpTextSplice  OpKind = "textSplice"  // splice a text node
	OpMarkAdd     OpKind = "markAdd"
	OpMarkClear   OpKind = "markClear"
)

// Op is one primitive, replayable mutation. A single user-level command
// (e.g. PUTTEXT through three levels of auto-created maps) produces one
// Op per materialized intermediate plus one Op for the final write, all
// bundled into a single Change so they commit, publish, and replay
// atomically together (spec.md §5).
type Op struct {
	ID       OpID     `json:"id"`
	Kind     OpKind   `json:"kind"`
	Path     []PathSeg `json:"path"`
	NodeKind Kind     `json:"nodeKind,omitempty"`
	Value    any      `json:"value,omitempty"`
	Index    int      `json:"index,omitempty"`
	Delete   int      `json:"delete,omitempty"`
	Text     string   `json:"text,omitempty"`
	MarkName string   `json:"markName,omitempty"`
	Start    int       `json:"start,omitempty"`
	End      int       `json:"end,omitempty"`
	Expand   Expand   `json:"expand,omitempty"`
	Delta    int64    `json:"delta,omitempty"`
}

// Change is the opaque "change frame" spec.md §3 describes: a causally
// addressed bundle of Ops from a single commit.
type Change struct {
	Hash  ChangeHash `json:"hash"`
	Actor SessionID  `json:"actor"`
	Seq   uint64     `json:"seq"`
	Deps  []ChangeHash `json:"deps"`
	Ops   []Op       `json:"ops"`
}

// canonicalEncoding produces the deterministic byte encoding computeHash
// hashes; Encode and Save marshal their own structs instead. Deps are
// sorted so that two replicas that committed the same logical change
// from the same Deps set (e.g. via RewriteTime-style rebasing) hash
// identically regardless of map/slice iteration order upstream.
func (c Change) canonicalEncoding() ([]byte, error) {
	deps := append([]ChangeHash(nil), c.Deps...)
	sort.Slice(deps, func(i, j int) bool { return string(deps[i][:]) < string(deps[j][:]) })
	type wire struct {
		Actor SessionID    `json:"actor"`
		Seq   uint64       `json:"seq"`
		Deps  []ChangeHash `json:"deps"`
		Ops   []Op         `json:"ops"`
	}
	return json.Marshal(wire{Actor: c.Actor, Seq: c.Seq, Deps: deps, Ops: c.Ops})
}

// computeHash derives the Change's content hash from everything except
// the hash field itself.
func (c Change) computeHash() (ChangeHash, error) {
	enc, err := c.canonicalEncoding()
	if err != nil {
		return ChangeHash{}, err
	}
	return sha256.Sum256(enc), nil
}

// Encode serializes a Change to the byte frame carried on the
// changes:<key> channel and returned by CHANGES/SAVE-adjacent commands.
func (c Change) Encode() ([]byte, error) {
	return json.Marshal(c)
}

// DecodeChange parses a Change frame produced by Encode.
func DecodeChange(data []byte) (Change, error) {
	var c Change
	if err := json.Unmarshal(data, &c); err != nil {
		return Change{}, fmt.Errorf("automerge: failed to decode change: %w", err)
	}
	return c, nil
}
