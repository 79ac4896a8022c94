package docops

import (
	"automergekv/automerge"
	"automergekv/path"
)

// MarkCreate adds a named mark over [start,end) on the text at raw,
// coercing a plain string scalar (or absent slot) into Text first.
func (o *Operations) MarkCreate(raw, name string, value any, start, end int, expand automerge.Expand) error {
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
	if err := tx.AddMark(p.ToNodePath(), name, value, start, end, expand); err != nil {
		return &BadArgsError{Cause: err}
	}
	_, err = tx.Commit()
	return err
}

// MarkClear removes marks named name overlapping [start,end) on the
// text at raw, using the same expansion policy AddMark accepts. A
// plain string (never marked) or an absent slot is a no-op; any
// non-text container is TYPE_MISMATCH.
func (o *Operations) MarkClear(raw, name string, start, end int, expand automerge.Expand) error {
	p, err := parsePath(raw)
	if err != nil {
		return err
	}
	node, ok := path.Resolve(o.Doc, p)
	if !ok {
		return nil
	}
	switch node.Kind() {
	case automerge.KindText:
	case automerge.KindString:
		return nil
	default:
		return &TypeMismatchError{Path: raw, Want: "text", Got: kindName(node)}
	}
	tx := o.Doc.Begin()
	if err := tx.ClearMark(p.ToNodePath(), name, start, end, expand); err != nil {
		return &BadArgsError{Cause: err}
	}
	_, err = tx.Commit()
	return err
}
