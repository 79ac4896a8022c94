package path

import "automergekv/automerge"

// Resolve performs read resolution (spec.md §4.1): it walks only
// existing nodes and never errors. A missing segment or a type mismatch
// (indexing a map, field-accessing a list) both report ok=false, which
// callers in docops turn into a null read rather than an error.
func Resolve(doc *automerge.Document, p Path) (node automerge.Node, ok bool) {
	var cur automerge.Node = doc.Root()
	for _, seg := range p {
		switch n := cur.(type) {
		case *automerge.MapNode:
			if seg.IsIndex {
				return nil, false
			}
			child := n.Get(seg.Field)
			if child == nil {
				return nil, false
			}
			cur = child
		case *automerge.ListNode:
			if !seg.IsIndex {
				return nil, false
			}
			child, err := n.Get(seg.Index)
			if err != nil {
				return nil, false
			}
			cur = child
		default:
			return nil, false
		}
	}
	return cur, true
}

// CheckWritable performs a dry run of write resolution: it mirrors the
// materialization walk automerge.Tx performs (auto-creating only missing
// map fields, never lists) without mutating anything, so a doomed write
// — traversing through a scalar, indexing a map, field-accessing a list
// — can be classified and rejected before any Tx is opened.
//
// A resolved child is checked against the *next* segment's addressing
// mode, not the one that produced it — so a path like "items[0].name"
// (a map nested inside an existing list element) is accepted rather
// than rejected as a false type mismatch.
func CheckWritable(doc *automerge.Document, p Path) error {
	if len(p) == 0 {
		return nil
	}
	var cur automerge.Node = doc.Root()
	materializing := false
	for i := 0; i < len(p)-1; i++ {
		seg, next := p[i], p[i+1]
		if materializing {
			if seg.IsIndex || next.IsIndex {
				return errPathTypeMismatch(p)
			}
			continue
		}
		switch n := cur.(type) {
		case *automerge.MapNode:
			if seg.IsIndex {
				return errPathTypeMismatch(p)
			}
			child := n.Get(seg.Field)
			if child == nil {
				if next.IsIndex {
					return errPathTypeMismatch(p)
				}
				materializing = true
				continue
			}
			if !isCompatible(child, next) {
				return errPathTypeMismatch(p)
			}
			cur = child
		case *automerge.ListNode:
			if !seg.IsIndex {
				return errPathTypeMismatch(p)
			}
			child, err := n.Get(seg.Index)
			if err != nil {
				return errPathTypeMismatch(p)
			}
			if !isCompatible(child, next) {
				return errPathTypeMismatch(p)
			}
			cur = child
		default:
			return errPathTypeMismatch(p)
		}
	}
	return nil
}

// isCompatible reports whether child can serve as the container next
// addresses into (a list for an index segment, a map for a field segment).
func isCompatible(child automerge.Node, next Segment) bool {
	if next.IsIndex {
		return child.Kind() == automerge.KindList
	}
	return child.Kind() == automerge.KindMap
}

func errPathTypeMismatch(p Path) error {
	return &TypeMismatchError{Path: p}
}

// TypeMismatchError reports that a write path traverses through a
// scalar, indexes a map, or field-accesses a list. docops maps this to
// the PATH_TYPE_MISMATCH error kind of spec.md §7.
type TypeMismatchError struct {
	Path Path
}

func (e *TypeMismatchError) Error() string {
	return "path: cannot write through incompatible node at " + e.Path.String()
}
