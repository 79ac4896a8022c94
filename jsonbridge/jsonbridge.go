// Package jsonbridge implements the bidirectional conversion between a
// CRDT document and plain JSON text (spec.md §4.3), generalizing the
// struct-tag driven JSON<->CRDT mapper of luvjson/api/model.go to this
// module's wider node-kind space (counters, timestamps, text).
package jsonbridge

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"automergekv/automerge"
)

// ToJSON deep-converts doc's root into JSON text: maps become objects,
// lists become arrays, text flattens to a string with marks dropped,
// scalars pass through, a counter renders as its current total, and a
// timestamp renders as an ISO-8601 UTC string with millisecond
// precision omitted when zero. Output is compact unless pretty is set.
func ToJSON(doc *automerge.Document, pretty bool) ([]byte, error) {
	v := toValue(doc.Root())
	if !pretty {
		return json.Marshal(v)
	}
	return json.MarshalIndent(v, "", "  ")
}

// NodeValue deep-converts n the same way ToJSON converts a document
// root, for callers (the shadow index's Structured projection) that
// need a single subtree rather than the whole document.
func NodeValue(n automerge.Node) any { return toValue(n) }

func toValue(n automerge.Node) any {
	switch n.Kind() {
	case automerge.KindMap:
		m := n.(*automerge.MapNode)
		out := make(map[string]any, m.Len())
		for _, k := range m.Keys() {
			out[k] = toValue(m.Get(k))
		}
		return out
	case automerge.KindList:
		l := n.(*automerge.ListNode)
		out := make([]any, l.Len())
		for i := 0; i < l.Len(); i++ {
			child, _ := l.Get(i)
			out[i] = toValue(child)
		}
		return out
	case automerge.KindCounter:
		return n.(*automerge.CounterNode).Total()
	case automerge.KindTimestamp:
		return formatTimestamp(n.(*automerge.TimestampNode).Millis())
	case automerge.KindNull:
		return nil
	default:
		// string, text, int, double, bool all already carry a plain
		// JSON-marshalable Go value (Text's Value() flattens marks).
		return n.Value()
	}
}

func formatTimestamp(millis int64) string {
	t := time.UnixMilli(millis).UTC()
	ms := millis % 1000
	if ms < 0 {
		ms += 1000
	}
	base := t.Format("2006-01-02T15:04:05")
	if ms == 0 {
		return base + "+00:00"
	}
	return fmt.Sprintf("%s.%03d+00:00", base, ms)
}

// FromJSON parses data and builds a brand-new document from it. The
// root value must be a JSON object (spec.md §4.3); anything else is
// reported here as a plain error, which the command layer wraps as a
// BadJSONError. Number typing follows the rule:
// a literal with no fractional part and no exponent becomes an integer
// slot, otherwise a double slot. Strings become text scalars (plain
// string nodes, not Text objects); nested objects and arrays recurse
// into maps and lists.
func FromJSON(data []byte) (*automerge.Document, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var root any
	if err := dec.Decode(&root); err != nil {
		return nil, fmt.Errorf("jsonbridge: %w", err)
	}
	obj, ok := root.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("jsonbridge: root is not an object")
	}

	doc := automerge.New(automerge.NewSessionID())
	tx := doc.Begin()
	if err := importObject(tx, nil, obj); err != nil {
		return nil, err
	}
	if len(tx.Ops()) == 0 {
		return doc, nil
	}
	if _, err := tx.Commit(); err != nil {
		return nil, err
	}
	return doc, nil
}

// importObject places an empty map at path (skipped at the document
// root, which already starts as an empty map) and populates its fields.
// path is always field-terminal here: the root call has an empty path,
// and the only other caller is importField. An object that is a list
// element is placed by ListAppend and filled via populateObjectFields
// instead (see populateArrayElements), never through this function.
func importObject(tx *automerge.Tx, path []automerge.PathSeg, obj map[string]any) error {
	if len(path) > 0 {
		if err := tx.CreateMap(path); err != nil {
			return err
		}
	}
	return populateObjectFields(tx, path, obj)
}

func populateObjectFields(tx *automerge.Tx, path []automerge.PathSeg, obj map[string]any) error {
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if err := importField(tx, withSeg(path, automerge.FieldSeg(k)), obj[k]); err != nil {
			return err
		}
	}
	return nil
}

// importField writes a single decoded value at path, which always
// addresses a map field (never a fresh array slot — see importArray
// for that case).
func importField(tx *automerge.Tx, path []automerge.PathSeg, v any) error {
	switch val := v.(type) {
	case map[string]any:
		return importObject(tx, path, val)
	case []any:
		return importArray(tx, path, val)
	case json.Number:
		kind, value, err := numberKindValue(val)
		if err != nil {
			return err
		}
		return tx.SetField(path, kind, value)
	case string:
		return tx.SetField(path, automerge.KindString, val)
	case bool:
		return tx.SetField(path, automerge.KindBool, val)
	case nil:
		return tx.SetField(path, automerge.KindNull, nil)
	default:
		return fmt.Errorf("jsonbridge: unsupported decoded type %T", v)
	}
}

// importArray creates an empty list at path, then appends each decoded
// element. A container element (object or array) is appended as an
// empty placeholder first — ListAppend is the only op that can target
// an index-terminal slot — then populated in place; CreateMap/CreateList
// are never called again on that already-placed element, since both
// assume a field-terminal path.
func importArray(tx *automerge.Tx, path []automerge.PathSeg, arr []any) error {
	if err := tx.CreateList(path); err != nil {
		return err
	}
	return populateArrayElements(tx, path, arr)
}

func populateArrayElements(tx *automerge.Tx, path []automerge.PathSeg, arr []any) error {
	for i, v := range arr {
		elemPath := withSeg(path, automerge.IndexSeg(i))
		switch val := v.(type) {
		case map[string]any:
			if err := tx.ListAppend(path, automerge.KindMap, nil); err != nil {
				return err
			}
			if err := populateObjectFields(tx, elemPath, val); err != nil {
				return err
			}
		case []any:
			if err := tx.ListAppend(path, automerge.KindList, nil); err != nil {
				return err
			}
			if err := populateArrayElements(tx, elemPath, val); err != nil {
				return err
			}
		case json.Number:
			kind, value, err := numberKindValue(val)
			if err != nil {
				return err
			}
			if err := tx.ListAppend(path, kind, value); err != nil {
				return err
			}
		case string:
			if err := tx.ListAppend(path, automerge.KindString, val); err != nil {
				return err
			}
		case bool:
			if err := tx.ListAppend(path, automerge.KindBool, val); err != nil {
				return err
			}
		case nil:
			if err := tx.ListAppend(path, automerge.KindNull, nil); err != nil {
				return err
			}
		default:
			return fmt.Errorf("jsonbridge: unsupported array element type %T", v)
		}
	}
	return nil
}

// numberKindValue applies spec.md §4.3's integer/double typing rule
// directly off the literal's surface text: no '.' and no exponent
// marker means integer, otherwise double.
func numberKindValue(n json.Number) (automerge.Kind, any, error) {
	s := n.String()
	if !strings.ContainsAny(s, ".eE") {
		i, err := n.Int64()
		if err != nil {
			return "", nil, fmt.Errorf("jsonbridge: malformed integer literal %q: %w", s, err)
		}
		return automerge.KindInt, i, nil
	}
	f, err := n.Float64()
	if err != nil {
		return "", nil, fmt.Errorf("jsonbridge: malformed number literal %q: %w", s, err)
	}
	return automerge.KindDouble, f, nil
}

func withSeg(path []automerge.PathSeg, seg automerge.PathSeg) []automerge.PathSeg {
	out := make([]automerge.PathSeg, len(path)+1)
	copy(out, path)
	out[len(path)] = seg
	return out
}
