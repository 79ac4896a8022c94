package automerge

import "fmt"

// ErrNodeNotFound is returned when a node with the given id is absent,
// following the one-struct-per-kind error style of
// luvjson/common/errors.go.
type ErrNodeNotFound struct{ ID OpID }

func (e ErrNodeNotFound) Error() string { return fmt.Sprintf("automerge: node not found: %v", e.ID) }

// ErrInvalidRange is returned by Text operations given an out-of-bounds
// or inverted range.
type ErrInvalidRange struct {
	Pos, Len int
}

func (e ErrInvalidRange) Error() string {
	return fmt.Sprintf("automerge: invalid range %d for length %d", e.Pos, e.Len)
}

func errInvalidRange(pos, length int) error { return ErrInvalidRange{Pos: pos, Len: length} }

// ErrMissingDeps is returned by Apply when a change's dependencies are
// not yet present in the document.
type ErrMissingDeps struct {
	Missing []ChangeHash
}

func (e ErrMissingDeps) Error() string {
	return fmt.Sprintf("automerge: missing %d dependency change(s)", len(e.Missing))
}
