package docops

import (
	"automergekv/automerge"
	"automergekv/path"
)

// Operations is the Type Operations façade over a single document,
// generalizing luvjson/crdtedit's DocumentEditor to the full scalar/
// container/counter/text/mark vocabulary of spec.md §4.2.
type Operations struct {
	Doc *automerge.Document
}

// New wraps doc for typed command access.
func New(doc *automerge.Document) *Operations {
	return &Operations{Doc: doc}
}

// parsePath parses a surface path string, classifying a grammar failure
// as BAD_PATH per spec.md §7.
func parsePath(raw string) (path.Path, error) {
	p, err := path.Parse(raw)
	if err != nil {
		return nil, &BadPathError{Path: raw, Cause: err}
	}
	return p, nil
}

// checkWritable runs path's dry materialization check, classifying a
// failure as PATH_TYPE_MISMATCH.
func checkWritable(doc *automerge.Document, p path.Path, raw string) error {
	if err := path.CheckWritable(doc, p); err != nil {
		return &PathTypeMismatchError{Path: raw, Cause: err}
	}
	return nil
}

func kindName(n automerge.Node) string {
	if n == nil {
		return "null"
	}
	return string(n.Kind())
}
