// Package path parses the surface path syntax documents are addressed
// by and resolves it against a live automerge.Document, grounded on the
// teacher's luvjson/api.ParsePath / ResolveNode pair but rewritten as an
// explicit segment AST and split into read vs write resolution policies.
package path

import (
	"fmt"
	"strconv"
	"strings"

	"automergekv/automerge"
)

// Segment is one parsed element of a surface path: either a map field
// name or a list index. Parse emits each [n] of a "name[n]..." chain as
// its own index Segment following the name's.
type Segment struct {
	Field   string
	IsIndex bool
	Index   int
}

// Path is an ordered, parsed segment list.
type Path []Segment

// ToNodePath converts a parsed Path into the []automerge.PathSeg the
// document engine mutates against.
func (p Path) ToNodePath() []automerge.PathSeg {
	out := make([]automerge.PathSeg, len(p))
	for i, s := range p {
		if s.IsIndex {
			out[i] = automerge.IndexSeg(s.Index)
		} else {
			out[i] = automerge.FieldSeg(s.Field)
		}
	}
	return out
}

func (p Path) String() string {
	var b strings.Builder
	for i, s := range p {
		if s.IsIndex {
			fmt.Fprintf(&b, "[%d]", s.Index)
			continue
		}
		if i > 0 {
			b.WriteByte('.')
		}
		b.WriteString(s.Field)
	}
	return b.String()
}

// Parse parses the surface grammar:
//
//	path     := ('$.' | '$' | ε) segments?
//	segments := segment ('.' segment)*
//	segment  := name ('[' uint ']')*
//	name     := [^.\[\]$]+
//
// An empty string or a bare "$" resolves to the root map.
func Parse(surface string) (Path, error) {
	s := strings.TrimPrefix(surface, "$")
	s = strings.TrimPrefix(s, ".")
	if s == "" {
		return nil, nil
	}

	var out Path
	for _, field := range strings.Split(s, ".") {
		name, indices, err := splitIndices(field)
		if err != nil {
			return nil, err
		}
		if name == "" {
			return nil, fmt.Errorf("path: empty segment name")
		}
		out = append(out, Segment{Field: name})
		for _, idx := range indices {
			out = append(out, Segment{IsIndex: true, Index: idx})
		}
	}
	return out, nil
}

// splitIndices splits "name[0][3]" into ("name", [0, 3]).
func splitIndices(segment string) (string, []int, error) {
	bracket := strings.IndexByte(segment, '[')
	if bracket == -1 {
		if strings.ContainsAny(segment, "[]") {
			return "", nil, fmt.Errorf("path: malformed segment %q", segment)
		}
		return segment, nil, nil
	}
	name := segment[:bracket]
	rest := segment[bracket:]

	var indices []int
	for len(rest) > 0 {
		if rest[0] != '[' {
			return "", nil, fmt.Errorf("path: malformed segment %q", segment)
		}
		end := strings.IndexByte(rest, ']')
		if end == -1 {
			return "", nil, fmt.Errorf("path: unterminated index in %q", segment)
		}
		n, err := strconv.Atoi(rest[1:end])
		if err != nil || n < 0 {
			return "", nil, fmt.Errorf("path: invalid index in %q", segment)
		}
		indices = append(indices, n)
		rest = rest[end+1:]
	}
	return name, indices, nil
}
