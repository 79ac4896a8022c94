package automerge

import "fmt"

// applyOps replays a sequence of Ops against the live node graph. It is
// used both for externally-applied changes (ApplyChange) and, during
// Save/Load, to rebuild a document from its full change log.
func (d *Document) applyOps(ops []Op) error {
	for _, op := range ops {
		if err := d.applyOp(op); err != nil {
			return err
		}
	}
	return nil
}

func (d *Document) applyOp(op Op) error {
	switch op.Kind {
	case OpCreateMap:
		parent, key, err := d.containerAt(op.Path)
		if err != nil {
			return err
		}
		if existing := parent.Get(key); existing != nil {
			if existing.Kind() == KindMap {
				return nil
			}
			return nil // another replica already set a conflicting value; last-write-wins elsewhere decides
		}
		m := NewMapNode(op.ID)
		d.addNode(m)
		parent.Set(key, m)

	case OpCreateList:
		parent, key, err := d.containerAt(op.Path)
		if err != nil {
			return err
		}
		l := NewListNode(op.ID)
		d.addNode(l)
		parent.Set(key, l)

	case OpSetField:
		parent, key, err := d.containerAt(op.Path)
		if err != nil {
			return err
		}
		node, err := newScalarLikeNode(op.ID, op.NodeKind, op.Value)
		if err != nil {
			return err
		}
		d.addNode(node)
		parent.Set(key, node)

	case OpDeleteField:
		parent, key, err := d.containerAt(op.Path)
		if err != nil {
			return err
		}
		parent.Delete(key)

	case OpListInsert:
		list, err := d.listAt(op.Path)
		if err != nil {
			return err
		}
		var node Node
		switch op.NodeKind {
		case KindMap:
			node = NewMapNode(op.ID)
		case KindList:
			node = NewListNode(op.ID)
		default:
			node, err = newScalarLikeNode(op.ID, op.NodeKind, op.Value)
			if err != nil {
				return err
			}
		}
		d.addNode(node)
		if op.Index >= list.Len() {
			list.Append(node)
		} else if err := list.InsertAt(op.Index, node); err != nil {
			return err
		}

	case OpListDelete:
		list, err := d.listAt(op.Path)
		if err != nil {
			return err
		}
		return list.DeleteAt(op.Index)

	case OpCounterInc:
		node, err := d.nodeAt(op.Path)
		if err != nil {
			return err
		}
		counter, ok := node.(*CounterNode)
		if !ok {
			return fmt.Errorf("automerge: target of counterInc is not a counter")
		}
		counter.Increment(op.Delta)

	case OpTextSplice:
		text, err := d.resolveOrCoerceText(op.Path, op.ID)
		if err != nil {
			return err
		}
		return text.Splice(op.Index, op.Delete, op.Text, op.ID)

	case OpMarkAdd:
		text, err := d.resolveOrCoerceText(op.Path, op.ID)
		if err != nil {
			return err
		}
		return text.AddMark(op.MarkName, op.Value, op.Start, op.End, op.Expand)

	case OpMarkClear:
		text, err := d.nodeAt(op.Path)
		if err != nil {
			return err
		}
		t, ok := text.(*TextNode)
		if !ok {
			return fmt.Errorf("automerge: mark target is not text")
		}
		return t.ClearMark(op.MarkName, op.Start, op.End, op.Expand)

	default:
		return fmt.Errorf("automerge: unknown op kind %q", op.Kind)
	}
	return nil
}

// nodeAt resolves an absolute path to its terminal node, assuming every
// segment already exists (used when replaying ops, where materialization
// was already decided by the original commit).
func (d *Document) nodeAt(path []PathSeg) (Node, error) {
	var cur Node = d.root
	for _, seg := range path {
		switch n := cur.(type) {
		case *MapNode:
			if seg.IsIndex {
				return nil, fmt.Errorf("automerge: cannot index a map")
			}
			child := n.Get(seg.Field)
			if child == nil {
				return nil, fmt.Errorf("automerge: field %q not found", seg.Field)
			}
			cur = child
		case *ListNode:
			if !seg.IsIndex {
				return nil, fmt.Errorf("automerge: cannot field-access a list")
			}
			child, err := n.Get(seg.Index)
			if err != nil {
				return nil, err
			}
			cur = child
		default:
			return nil, fmt.Errorf("automerge: cannot traverse through a scalar")
		}
	}
	return cur, nil
}

// containerAt resolves path to its parent container plus the terminal
// field name, for ops whose path points at a map field (SetField,
// DeleteField, CreateMap, CreateList all target "container[key]").
func (d *Document) containerAt(path []PathSeg) (*MapNode, string, error) {
	if len(path) == 0 {
		return nil, "", fmt.Errorf("automerge: empty path for field op")
	}
	parentPath, last := path[:len(path)-1], path[len(path)-1]
	if last.IsIndex {
		return nil, "", fmt.Errorf("automerge: field op targeted an index segment")
	}
	node, err := d.nodeAt(parentPath)
	if err != nil {
		return nil, "", err
	}
	m, ok := node.(*MapNode)
	if !ok {
		return nil, "", fmt.Errorf("automerge: parent is not a map")
	}
	return m, last.Field, nil
}

func (d *Document) listAt(path []PathSeg) (*ListNode, error) {
	node, err := d.nodeAt(path)
	if err != nil {
		return nil, err
	}
	list, ok := node.(*ListNode)
	if !ok {
		return nil, fmt.Errorf("automerge: target is not a list")
	}
	return list, nil
}

// resolveOrCoerceText resolves path to a TextNode, transparently
// upgrading a plain string scalar in place the first time a splice or
// mark targets it (spec.md §9's "ensure_text_at").
func (d *Document) resolveOrCoerceText(path []PathSeg, seedID OpID) (*TextNode, error) {
	parent, key, err := d.containerAt(path)
	if err != nil {
		return nil, err
	}
	existing := parent.Get(key)
	if t, ok := existing.(*TextNode); ok {
		return t, nil
	}
	if s, ok := existing.(*ScalarNode); ok && s.Kind() == KindString {
		text := NewTextNodeFromString(s.ID(), seedID, s.Value().(string))
		d.addNode(text)
		parent.Set(key, text)
		return text, nil
	}
	if existing == nil {
		text := NewTextNode(seedID)
		d.addNode(text)
		parent.Set(key, text)
		return text, nil
	}
	return nil, fmt.Errorf("automerge: target is not text-coercible")
}

func newScalarLikeNode(id OpID, kind Kind, value any) (Node, error) {
	switch kind {
	case KindCounter:
		initial, _ := toInt64(value)
		return NewCounterNode(id, initial), nil
	case KindTimestamp:
		millis, _ := toInt64(value)
		return NewTimestampNode(id, millis), nil
	case KindText:
		s, _ := value.(string)
		return NewTextNodeFromString(id, id, s), nil
	default:
		return NewScalarNode(id, kind, value), nil
	}
}

func toInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int64:
		return n, true
	case int:
		return int64(n), true
	case float64:
		return int64(n), true
	default:
		return 0, false
	}
}
