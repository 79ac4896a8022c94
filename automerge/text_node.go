package automerge

import "strings"

// Expand controls whether a mark grows to cover characters concurrently
// inserted at its boundary.
type Expand string

const (
	ExpandNone   Expand = "none"
	ExpandBefore Expand = "before"
	ExpandAfter  Expand = "after"
	ExpandBoth   Expand = "both"
)

// textElement is one code point of a TextNode, addressed by a stable id
// the way the teacher's RGAStringNode addresses characters — this is what
// lets a Mark anchor to a range that survives concurrent insertion at its
// edges (spec.md §3's Mark invariant).
type textElement struct {
	id      OpID
	char    rune
	deleted bool
}

// Mark is a named annotation over a stable range of a TextNode.
type Mark struct {
	Name   string
	Value  any
	Start  OpID
	End    OpID
	Expand Expand
}

// TextNode is an editable, mark-capable run of Unicode code points,
// generalizing the teacher's RGAStringNode (luvjson/crdt/string_node.go)
// with mark support the teacher never had.
type TextNode struct {
	id       OpID
	elements []*textElement
	marks    []*Mark
}

func NewTextNode(id OpID) *TextNode {
	return &TextNode{id: id}
}

// NewTextNodeFromString builds a TextNode pre-seeded with s's characters,
// used to coerce a plain string scalar into an editable Text node the
// first time a mark or splice targets it (spec.md §9's "ensure_text_at").
func NewTextNodeFromString(id OpID, seedIDBase OpID, s string) *TextNode {
	n := NewTextNode(id)
	n.insertRunes(0, seedIDBase, []rune(s))
	return n
}

func (n *TextNode) ID() OpID   { return n.id }
func (n *TextNode) Kind() Kind { return KindText }

// Value renders the live (non-deleted) characters as a string; marks are
// not part of the JSON value per spec.md §4.3.
func (n *TextNode) Value() any { return n.String() }

func (n *TextNode) String() string {
	var b strings.Builder
	for _, e := range n.elements {
		if !e.deleted {
			b.WriteRune(e.char)
		}
	}
	return b.String()
}

// Len returns the number of live code points.
func (n *TextNode) Len() int {
	count := 0
	for _, e := range n.elements {
		if !e.deleted {
			count++
		}
	}
	return count
}

// livePositions returns the elements slice index for each logical
// (live-only) position, used to translate a splice's pos/del into
// physical element indices.
func (n *TextNode) livePositions() []int {
	idx := make([]int, 0, len(n.elements))
	for i, e := range n.elements {
		if !e.deleted {
			idx = append(idx, i)
		}
	}
	return idx
}

func (n *TextNode) insertRunes(logicalPos int, idBase OpID, runes []rune) {
	live := n.livePositions()
	insertAt := len(n.elements)
	if logicalPos < len(live) {
		insertAt = live[logicalPos]
	}
	newElems := make([]*textElement, len(runes))
	for i, r := range runes {
		newElems[i] = &textElement{id: OpID{SID: idBase.SID, Counter: idBase.Counter + uint64(i)}, char: r}
	}
	n.elements = append(n.elements[:insertAt:insertAt], append(newElems, n.elements[insertAt:]...)...)
}

// Splice removes del live characters starting at pos and inserts text
// there, per spec.md §4.2's SpliceText semantics (del is clamped to the
// remaining live length, never errors on an overlong del).
func (n *TextNode) Splice(pos, del int, text string, idBase OpID) error {
	length := n.Len()
	if pos < 0 || pos > length {
		return errInvalidRange(pos, length)
	}
	if del < 0 {
		del = 0
	}
	if del > length-pos {
		del = length - pos
	}

	live := n.livePositions()
	for i := 0; i < del; i++ {
		n.elements[live[pos+i]].deleted = true
	}
	n.insertRunes(pos, idBase, []rune(text))
	return nil
}

// idAtLogicalPos returns the stable id of the live character at pos, or
// false when pos is outside [0, length); callers that anchor a mark's
// End at the text's tail look up length-1 themselves.
func (n *TextNode) idAtLogicalPos(pos int) (OpID, bool) {
	live := n.livePositions()
	if pos < 0 || pos >= len(live) {
		return OpID{}, false
	}
	return n.elements[live[pos]].id, true
}

// AddMark adds a named mark over [start,end); existing marks with the
// same name are kept alongside the new one. start/end
// are logical positions at the time of the call; they are resolved to
// stable element ids so the mark keeps covering the same characters
// across later inserts/deletes elsewhere in the text.
func (n *TextNode) AddMark(name string, value any, start, end int, expand Expand) error {
	length := n.Len()
	if start < 0 || end > length || start > end {
		return errInvalidRange(start, length)
	}
	startID, ok := n.idAtLogicalPos(start)
	if !ok {
		if length == 0 {
			startID = n.id
		} else {
			return errInvalidRange(start, length)
		}
	}
	var endID OpID
	if end == length {
		if length == 0 {
			endID = startID
		} else {
			endID, _ = n.idAtLogicalPos(length - 1)
		}
	} else {
		endID, _ = n.idAtLogicalPos(end)
	}
	n.marks = append(n.marks, &Mark{Name: name, Value: value, Start: startID, End: endID, Expand: expand})
	return nil
}

// ClearMark removes marks with the given name whose range overlaps
// [start,end). expand widens that range by one character on the side(s)
// it names (the same policy AddMark uses to decide which edge a mark
// grows across), so a clear with expand=both also drops a mark that
// only touches start-1 or end.
func (n *TextNode) ClearMark(name string, start, end int, expand Expand) error {
	length := n.Len()
	if start < 0 || end > length || start > end {
		return errInvalidRange(start, length)
	}
	if (expand == ExpandBefore || expand == ExpandBoth) && start > 0 {
		start--
	}
	if (expand == ExpandAfter || expand == ExpandBoth) && end < length {
		end++
	}
	filtered := n.marks[:0]
	for _, m := range n.marks {
		ms, me, ok := n.markRange(m)
		overlaps := m.Name == name && ok && ms < end && me > start
		if !overlaps {
			filtered = append(filtered, m)
		}
	}
	n.marks = filtered
	return nil
}

// Marks returns every currently active mark. Order is stable within one
// call but otherwise unspecified, per spec.md §4.2.
func (n *TextNode) Marks() []*Mark {
	out := make([]*Mark, len(n.marks))
	copy(out, n.marks)
	return out
}

// markRange resolves a mark's stable id range back to logical positions
// for external reporting (docops.MarkList).
func (n *TextNode) markRange(m *Mark) (start, end int, ok bool) {
	startPos, endPos := -1, -1
	pos := 0
	for _, e := range n.elements {
		if e.deleted {
			continue
		}
		if e.id == m.Start {
			startPos = pos
		}
		if e.id == m.End {
			endPos = pos
		}
		pos++
	}
	if startPos == -1 || endPos == -1 {
		return 0, 0, false
	}
	return startPos, endPos + 1, true
}

// ActiveMarks returns (name, value, start, end) tuples for every mark
// still resolvable against the live text.
func (n *TextNode) ActiveMarks() []MarkSpan {
	out := make([]MarkSpan, 0, len(n.marks))
	for _, m := range n.marks {
		start, end, ok := n.markRange(m)
		if !ok {
			continue
		}
		out = append(out, MarkSpan{Name: m.Name, Value: m.Value, Start: start, End: end})
	}
	return out
}

// MarkSpan is the flattened, logical-position view of a Mark returned by
// docops' MarkList operation.
type MarkSpan struct {
	Name  string
	Value any
	Start int
	End   int
}
