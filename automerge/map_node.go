package automerge

import "sort"

// MapNode is an unordered string-keyed container with last-write-wins
// semantics per field, generalizing the teacher's LWWObjectNode
// (luvjson/crdt/object_node.go) to the full node-Kind space of this
// module (any Node, not just constants, can sit in a field).
type MapNode struct {
	id     OpID
	fields map[string]Node
}

func NewMapNode(id OpID) *MapNode {
	return &MapNode{id: id, fields: make(map[string]Node)}
}

func (n *MapNode) ID() OpID   { return n.id }
func (n *MapNode) Kind() Kind { return KindMap }

// Value renders the map as plain Go values, recursing into children.
func (n *MapNode) Value() any {
	out := make(map[string]any, len(n.fields))
	for k, v := range n.fields {
		out[k] = v.Value()
	}
	return out
}

// Get returns the child at key, or nil if absent.
func (n *MapNode) Get(key string) Node { return n.fields[key] }

// Set overwrites (or creates) the field at key. This is the CRDT "last
// write wins" mutation point: whichever replica's Set is causally last
// (per the document's merge policy) determines the field's node.
func (n *MapNode) Set(key string, child Node) { n.fields[key] = child }

// Delete removes a field; deleting an absent field is a no-op.
func (n *MapNode) Delete(key string) { delete(n.fields, key) }

// Keys returns field names in sorted order for stable iteration (the
// CRDT itself makes no order guarantee per spec.md §3; sorting here only
// makes this implementation's own iteration deterministic).
func (n *MapNode) Keys() []string {
	keys := make([]string, 0, len(n.fields))
	for k := range n.fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (n *MapNode) Len() int { return len(n.fields) }
