package docops

import (
	"automergekv/automerge"
	"automergekv/path"
)

func wrapPathErr(raw string, err error) error {
	if err == nil {
		return nil
	}
	return &PathTypeMismatchError{Path: raw, Cause: err}
}

// putScalar materializes raw and overwrites its terminal slot with a
// fresh scalar-like node, last-write-wins at the slot (spec.md §4.2).
func (o *Operations) putScalar(raw string, kind automerge.Kind, value any) error {
	p, err := parsePath(raw)
	if err != nil {
		return err
	}
	if err := checkWritable(o.Doc, p, raw); err != nil {
		return err
	}
	tx := o.Doc.Begin()
	if err := tx.SetField(p.ToNodePath(), kind, value); err != nil {
		return wrapPathErr(raw, err)
	}
	_, err = tx.Commit()
	return err
}

func (o *Operations) PutText(raw, value string) error {
	return o.putScalar(raw, automerge.KindString, value)
}
func (o *Operations) PutInt(raw string, value int64) error {
	return o.putScalar(raw, automerge.KindInt, value)
}
func (o *Operations) PutDouble(raw string, value float64) error {
	return o.putScalar(raw, automerge.KindDouble, value)
}
func (o *Operations) PutBool(raw string, value bool) error {
	return o.putScalar(raw, automerge.KindBool, value)
}
func (o *Operations) PutTimestamp(raw string, millis int64) error {
	return o.putScalar(raw, automerge.KindTimestamp, millis)
}
func (o *Operations) PutCounter(raw string, initial int64) error {
	return o.putScalar(raw, automerge.KindCounter, initial)
}

// IncCounter applies a commutative delta to an existing counter slot.
// It never materializes: the slot must already be a counter.
func (o *Operations) IncCounter(raw string, delta int64) error {
	p, err := parsePath(raw)
	if err != nil {
		return err
	}
	node, ok := path.Resolve(o.Doc, p)
	if !ok || node.Kind() != automerge.KindCounter {
		got := "null"
		if ok {
			got = kindName(node)
		}
		return &TypeMismatchError{Path: raw, Want: "counter", Got: got}
	}
	tx := o.Doc.Begin()
	if err := tx.IncCounter(p.ToNodePath(), delta); err != nil {
		return err
	}
	_, err = tx.Commit()
	return err
}

// CreateList materializes raw and places an empty list there. An
// already-existing list is left untouched (idempotent success); any
// other existing kind is TYPE_MISMATCH.
func (o *Operations) CreateList(raw string) error {
	p, err := parsePath(raw)
	if err != nil {
		return err
	}
	if existing, ok := path.Resolve(o.Doc, p); ok {
		if existing.Kind() != automerge.KindList {
			return &TypeMismatchError{Path: raw, Want: "list", Got: kindName(existing)}
		}
		return nil
	}
	if err := checkWritable(o.Doc, p, raw); err != nil {
		return err
	}
	tx := o.Doc.Begin()
	if err := tx.CreateList(p.ToNodePath()); err != nil {
		return wrapPathErr(raw, err)
	}
	_, err = tx.Commit()
	return err
}

// appendScalar appends value to the existing list at raw. The list must
// already exist; append never creates one (spec.md §4.1's list
// auto-creation rule).
func (o *Operations) appendScalar(raw string, kind automerge.Kind, value any) error {
	p, err := parsePath(raw)
	if err != nil {
		return err
	}
	node, ok := path.Resolve(o.Doc, p)
	if !ok {
		return &TypeMismatchError{Path: raw, Want: "list", Got: "null"}
	}
	if node.Kind() != automerge.KindList {
		return &TypeMismatchError{Path: raw, Want: "list", Got: kindName(node)}
	}
	tx := o.Doc.Begin()
	if err := tx.ListAppend(p.ToNodePath(), kind, value); err != nil {
		return err
	}
	_, err = tx.Commit()
	return err
}

func (o *Operations) AppendText(raw, value string) error {
	return o.appendScalar(raw, automerge.KindString, value)
}
func (o *Operations) AppendInt(raw string, value int64) error {
	return o.appendScalar(raw, automerge.KindInt, value)
}
func (o *Operations) AppendDouble(raw string, value float64) error {
	return o.appendScalar(raw, automerge.KindDouble, value)
}
func (o *Operations) AppendBool(raw string, value bool) error {
	return o.appendScalar(raw, automerge.KindBool, value)
}

// SpliceText splices the text at raw, auto-coercing a plain string
// scalar (or a not-yet-existing slot) into a Text node in place.
func (o *Operations) SpliceText(raw string, pos, del int, text string) error {
	p, err := parsePath(raw)
	if err != nil {
		return err
	}
	if err := checkWritable(o.Doc, p, raw); err != nil {
		return err
	}
	if existing, ok := path.Resolve(o.Doc, p); ok {
		switch existing.Kind() {
		case automerge.KindString, automerge.KindText:
		default:
			return &TypeMismatchError{Path: raw, Want: "text", Got: kindName(existing)}
		}
	}
	tx := o.Doc.Begin()
	if err := tx.SpliceText(p.ToNodePath(), pos, del, text); err != nil {
		return &BadArgsError{Cause: err}
	}
	_, err = tx.Commit()
	return err
}

// Delete removes the slot at raw: a map field, or a list index (which
// shifts). Deleting the root or a non-existent slot is a no-op
// returning false.
func (o *Operations) Delete(raw string) (bool, error) {
	p, err := parsePath(raw)
	if err != nil {
		return false, err
	}
	if len(p) == 0 {
		return false, nil
	}
	last := p[len(p)-1]
	parent, ok := path.Resolve(o.Doc, p[:len(p)-1])
	if !ok {
		return false, nil
	}
	switch {
	case last.IsIndex:
		list, ok := parent.(*automerge.ListNode)
		if !ok || last.Index < 0 || last.Index >= list.Len() {
			return false, nil
		}
		tx := o.Doc.Begin()
		if err := tx.ListDelete(p[:len(p)-1].ToNodePath(), last.Index); err != nil {
			return false, err
		}
		if _, err := tx.Commit(); err != nil {
			return false, err
		}
		return true, nil
	default:
		m, ok := parent.(*automerge.MapNode)
		if !ok || m.Get(last.Field) == nil {
			return false, nil
		}
		tx := o.Doc.Begin()
		if err := tx.DeleteField(p.ToNodePath()); err != nil {
			return false, err
		}
		if _, err := tx.Commit(); err != nil {
			return false, err
		}
		return true, nil
	}
}
