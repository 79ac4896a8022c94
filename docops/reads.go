package docops

import (
	"automergekv/automerge"
	"automergekv/path"
)

// resolve parses raw and performs read resolution, returning the
// resolved node (nil if absent or the path grammar itself is malformed,
// in which case err is BAD_PATH).
func (o *Operations) resolve(raw string) (automerge.Node, error) {
	p, err := parsePath(raw)
	if err != nil {
		return nil, err
	}
	node, ok := path.Resolve(o.Doc, p)
	if !ok {
		return nil, nil
	}
	return node, nil
}

// GetText returns the string at raw if it holds a string scalar or a
// Text node, else null. Both slot shapes are "text" for read purposes;
// PUTTEXT writes a plain string scalar and only mark/splice upgrade it
// to an editable Text node in place (spec.md §9).
func (o *Operations) GetText(raw string) (string, bool, error) {
	node, err := o.resolve(raw)
	if err != nil || node == nil {
		return "", false, err
	}
	switch node.Kind() {
	case automerge.KindString, automerge.KindText:
		return node.Value().(string), true, nil
	default:
		return "", false, nil
	}
}

func (o *Operations) GetInt(raw string) (int64, bool, error) {
	node, err := o.resolve(raw)
	if err != nil || node == nil || node.Kind() != automerge.KindInt {
		return 0, false, err
	}
	return node.Value().(int64), true, nil
}

func (o *Operations) GetDouble(raw string) (float64, bool, error) {
	node, err := o.resolve(raw)
	if err != nil || node == nil || node.Kind() != automerge.KindDouble {
		return 0, false, err
	}
	return node.Value().(float64), true, nil
}

func (o *Operations) GetBool(raw string) (bool, bool, error) {
	node, err := o.resolve(raw)
	if err != nil || node == nil || node.Kind() != automerge.KindBool {
		return false, false, err
	}
	return node.Value().(bool), true, nil
}

func (o *Operations) GetCounter(raw string) (int64, bool, error) {
	node, err := o.resolve(raw)
	if err != nil || node == nil || node.Kind() != automerge.KindCounter {
		return 0, false, err
	}
	return node.(*automerge.CounterNode).Total(), true, nil
}

func (o *Operations) GetTimestamp(raw string) (int64, bool, error) {
	node, err := o.resolve(raw)
	if err != nil || node == nil || node.Kind() != automerge.KindTimestamp {
		return 0, false, err
	}
	return node.(*automerge.TimestampNode).Millis(), true, nil
}

// containerLen implements the shared ListLen/MapLen symmetry of
// testable property L5: a List reports its element count, a Map its
// key count, anything else is null.
func (o *Operations) containerLen(raw string) (int, bool, error) {
	node, err := o.resolve(raw)
	if err != nil || node == nil {
		return 0, false, err
	}
	switch n := node.(type) {
	case *automerge.ListNode:
		return n.Len(), true, nil
	case *automerge.MapNode:
		return n.Len(), true, nil
	default:
		return 0, false, nil
	}
}

func (o *Operations) ListLen(raw string) (int, bool, error) { return o.containerLen(raw) }
func (o *Operations) MapLen(raw string) (int, bool, error)  { return o.containerLen(raw) }

// MarkList returns every active mark on the Text node at raw, or nil if
// the slot is not text.
func (o *Operations) MarkList(raw string) ([]automerge.MarkSpan, error) {
	node, err := o.resolve(raw)
	if err != nil || node == nil {
		return nil, err
	}
	text, ok := node.(*automerge.TextNode)
	if !ok {
		return nil, nil
	}
	return text.ActiveMarks(), nil
}
