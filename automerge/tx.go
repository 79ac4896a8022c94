package automerge

import "fmt"

// Tx accumulates the Ops produced by one local command. Each mutate
// method applies its op to the live graph immediately, through the same
// applyOp a foreign ApplyChange uses to replay history, and stages the
// op for Commit. This keeps exactly one code path responsible for
// interpreting an Op, so a change produced locally and one replayed from
// a peer converge identically (spec.md §4.5/§5).
type Tx struct {
	doc *Document
	ops []Op
}

// Begin starts a new local transaction against the document.
func (d *Document) Begin() *Tx { return &Tx{doc: d} }

func (tx *Tx) stage(op Op) error {
	if err := tx.doc.applyOp(op); err != nil {
		return err
	}
	tx.ops = append(tx.ops, op)
	return nil
}

// materialize walks path, auto-creating any missing intermediate map
// field as an OpCreateMap, and errors if the walk meets a node
// incompatible with the *next* segment's addressing mode — the
// write-resolution rule of spec.md §4.1. The final segment of path is
// the target field itself and is left untouched.
//
// A resolved child's required kind is driven by the segment that
// follows it, not the one that produced it: in "items[0].name", the
// element at items[0] is reached by indexing (so items itself must be
// a list) but must then itself be a map to hold "name". Checking a
// child against the segment that produced it instead would reject
// that — and any list of maps — as a false type mismatch.
func (tx *Tx) materialize(path []PathSeg) error {
	if len(path) == 0 {
		return fmt.Errorf("automerge: empty path")
	}
	d := tx.doc
	var cur Node = d.root
	for i := 0; i < len(path)-1; i++ {
		seg, next := path[i], path[i+1]
		if seg.IsIndex {
			list, ok := cur.(*ListNode)
			if !ok {
				return fmt.Errorf("automerge: cannot index into a non-list")
			}
			child, err := list.Get(seg.Index)
			if err != nil {
				return err
			}
			if err := requireCompatible(child, next); err != nil {
				return err
			}
			cur = child
			continue
		}
		m, ok := cur.(*MapNode)
		if !ok {
			return fmt.Errorf("automerge: cannot traverse field %q through a non-map", seg.Field)
		}
		child := m.Get(seg.Field)
		if child == nil {
			if next.IsIndex {
				return fmt.Errorf("automerge: cannot auto-create a list at field %q", seg.Field)
			}
			if err := tx.stage(Op{ID: d.nextID(), Kind: OpCreateMap, Path: path[:i+1]}); err != nil {
				return err
			}
			child = m.Get(seg.Field)
		} else if err := requireCompatible(child, next); err != nil {
			return err
		}
		cur = child
	}
	return nil
}

// requireCompatible errors if child cannot serve as the container next
// addresses into (a list for an index segment, a map for a field segment).
func requireCompatible(child Node, next PathSeg) error {
	if next.IsIndex {
		if child.Kind() != KindList {
			return fmt.Errorf("automerge: cannot index into a non-list")
		}
		return nil
	}
	if child.Kind() != KindMap {
		return fmt.Errorf("automerge: field %q is not a map", next.Field)
	}
	return nil
}

// SetField materializes path and writes a scalar/counter/timestamp/text
// value at its terminal field, overwriting whatever was there.
func (tx *Tx) SetField(path []PathSeg, kind Kind, value any) error {
	if err := tx.materialize(path); err != nil {
		return err
	}
	return tx.stage(Op{ID: tx.doc.nextID(), Kind: OpSetField, Path: path, NodeKind: kind, Value: value})
}

// DeleteField removes the field at path. Deleting an absent field is a
// no-op at the node level but still recorded as a Change.
func (tx *Tx) DeleteField(path []PathSeg) error {
	return tx.stage(Op{ID: tx.doc.nextID(), Kind: OpDeleteField, Path: path})
}

// CreateList materializes path and places an empty list at its terminal
// field.
func (tx *Tx) CreateList(path []PathSeg) error {
	if err := tx.materialize(path); err != nil {
		return err
	}
	return tx.stage(Op{ID: tx.doc.nextID(), Kind: OpCreateList, Path: path})
}

// CreateMap materializes path and places an empty map at its terminal
// field. Unlike the implicit map creation materialize performs for
// intermediate segments, this targets the final segment itself — used
// by jsonbridge to seed a nested object before populating its fields.
func (tx *Tx) CreateMap(path []PathSeg) error {
	if err := tx.materialize(path); err != nil {
		return err
	}
	return tx.stage(Op{ID: tx.doc.nextID(), Kind: OpCreateMap, Path: path})
}

// ListInsert inserts a scalar-like value, or an empty map or list for
// KindMap/KindList, at index in the list at path.
func (tx *Tx) ListInsert(path []PathSeg, index int, kind Kind, value any) error {
	return tx.stage(Op{ID: tx.doc.nextID(), Kind: OpListInsert, Path: path, Index: index, NodeKind: kind, Value: value})
}

// ListAppend inserts a value, as ListInsert does, at the end of the list
// at path.
func (tx *Tx) ListAppend(path []PathSeg, kind Kind, value any) error {
	list, err := tx.doc.listAt(path)
	if err != nil {
		return err
	}
	return tx.ListInsert(path, list.Len(), kind, value)
}

// ListDelete removes the element at index from the list at path.
func (tx *Tx) ListDelete(path []PathSeg, index int) error {
	return tx.stage(Op{ID: tx.doc.nextID(), Kind: OpListDelete, Path: path, Index: index})
}

// IncCounter applies a commutative delta to the counter at path.
func (tx *Tx) IncCounter(path []PathSeg, delta int64) error {
	return tx.stage(Op{ID: tx.doc.nextID(), Kind: OpCounterInc, Path: path, Delta: delta})
}

// SpliceText materializes path (coercing a plain string in place, or
// seeding a new Text node, as needed) and splices it.
func (tx *Tx) SpliceText(path []PathSeg, pos, del int, text string) error {
	if err := tx.materialize(path); err != nil {
		return err
	}
	return tx.stage(Op{ID: tx.doc.nextID(), Kind: OpTextSplice, Path: path, Index: pos, Delete: del, Text: text})
}

// AddMark materializes path and adds a named mark over [start,end).
func (tx *Tx) AddMark(path []PathSeg, name string, value any, start, end int, expand Expand) error {
	if err := tx.materialize(path); err != nil {
		return err
	}
	return tx.stage(Op{ID: tx.doc.nextID(), Kind: OpMarkAdd, Path: path, MarkName: name, Value: value, Start: start, End: end, Expand: expand})
}

// ClearMark removes marks named name overlapping [start,end) at path,
// using expand to decide whether the clear also reaches the character
// just outside that range (the same policy name AddMark accepts).
func (tx *Tx) ClearMark(path []PathSeg, name string, start, end int, expand Expand) error {
	return tx.stage(Op{ID: tx.doc.nextID(), Kind: OpMarkClear, Path: path, MarkName: name, Start: start, End: end, Expand: expand})
}

// Commit finalizes the transaction's staged ops into a Change and
// appends it to the document's history. A Tx with no staged ops (a
// command that only read, or that no-op'd) has nothing to commit.
func (tx *Tx) Commit() (Change, error) {
	if len(tx.ops) == 0 {
		return Change{}, fmt.Errorf("automerge: commit with no ops")
	}
	return tx.doc.recordChange(tx.ops)
}

// Ops exposes the staged ops before Commit, for callers (docops) that
// need to report a patch-list alongside the committed Change.
func (tx *Tx) Ops() []Op {
	out := make([]Op, len(tx.ops))
	copy(out, tx.ops)
	return out
}
