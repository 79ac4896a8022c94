package automerge

// Kind tags the scalar/container type carried by a Node, mirroring the
// tagged sum spec.md §9 calls for.
type Kind string

const (
	KindNull      Kind = "null"
	KindString    Kind = "string"
	KindInt       Kind = "int"
	KindDouble    Kind = "double"
	KindBool      Kind = "bool"
	KindCounter   Kind = "counter"
	KindTimestamp Kind = "timestamp"
	KindText      Kind = "text"
	KindMap       Kind = "map"
	KindList      Kind = "list"
)

// Node is the common interface every CRDT tree node implements. Kind()
// reports which of the scalar kinds (including Counter, Timestamp) or
// structural ones (Map, List, Text) a node is; some read paths branch on
// it, others (path.Resolve, docops reads) type-switch on concrete structs.
type Node interface {
	ID() OpID
	Kind() Kind
	// Value returns a plain Go value appropriate for the node's kind:
	// a string/int64/float64/bool for scalars, the running total for a
	// Counter, a unix-millis int64 for a Timestamp, a string for Text
	// (marks excluded), and a map[string]any / []any for containers.
	Value() any
}

// ScalarNode holds an immutable value directly. Its only CRDT behavior is
// last-write-wins replacement at the slot that holds it, which is
// implemented by the parent container overwriting its child pointer.
type ScalarNode struct {
	id   OpID
	kind Kind
	val  any
}

func NewScalarNode(id OpID, kind Kind, val any) *ScalarNode {
	return &ScalarNode{id: id, kind: kind, val: val}
}

func (n *ScalarNode) ID() OpID    { return n.id }
func (n *ScalarNode) Kind() Kind  { return n.kind }
func (n *ScalarNode) Value() any  { return n.val }
func (n *ScalarNode) SetValue(v any) { n.val = v }

// CounterNode is a CRDT register that only exposes increment. Concurrent
// increments from different replicas commute: the converged value is the
// initial value plus the sum of every increment ever applied, regardless
// of application order (P3 in spec.md §8).
type CounterNode struct {
	id      OpID
	initial int64
	deltas  []int64
}

func NewCounterNode(id OpID, initial int64) *CounterNode {
	return &CounterNode{id: id, initial: initial}
}

func (n *CounterNode) ID() OpID   { return n.id }
func (n *CounterNode) Kind() Kind { return KindCounter }
func (n *CounterNode) Value() any { return n.Total() }

// Total returns the materialized counter value.
func (n *CounterNode) Total() int64 {
	total := n.initial
	for _, d := range n.deltas {
		total += d
	}
	return total
}

// Increment records a commutative delta.
func (n *CounterNode) Increment(delta int64) {
	n.deltas = append(n.deltas, delta)
}

// TimestampNode is a scalar holding a signed 64-bit millisecond Unix
// timestamp. It is a distinct Kind from Int so that JSON export can apply
// the ISO-8601 rendering rule in spec.md §4.3 without ambiguity.
type TimestampNode struct {
	id     OpID
	millis int64
}

func NewTimestampNode(id OpID, millis int64) *TimestampNode {
	return &TimestampNode{id: id, millis: millis}
}

func (n *TimestampNode) ID() OpID    { return n.id }
func (n *TimestampNode) Kind() Kind  { return KindTimestamp }
func (n *TimestampNode) Value() any  { return n.millis }
func (n *TimestampNode) Millis() int64 { return n.millis }
func (n *TimestampNode) SetMillis(m int64) { n.millis = m }
