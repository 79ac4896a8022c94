package docops

import (
	"bufio"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/pmezard/go-difflib/difflib"

	"automergekv/automerge"
	"automergekv/path"
)

// PutDiff applies a unified diff to the text at raw, producing the
// minimal ordered sequence of splices that carries the current text to
// the diff's target state — so concurrent edits to unmodified regions
// merge correctly instead of being clobbered by a full overwrite
// (spec.md §4.2). go-difflib's SequenceMatcher (a port of Python's
// difflib) finds the edit script between the current and target text; it has no
// unified-diff *parser* (it only emits diffs, never applies one), so
// that half is hand-written below — see DESIGN.md.
func (o *Operations) PutDiff(raw string, unifiedDiff string) error {
	p, err := parsePath(raw)
	if err != nil {
		return err
	}
	if err := checkWritable(o.Doc, p, raw); err != nil {
		return err
	}

	var oldText string
	if existing, ok := path.Resolve(o.Doc, p); ok {
		switch existing.Kind() {
		case automerge.KindString, automerge.KindText:
			oldText = existing.Value().(string)
		case automerge.KindNull:
		default:
			return &TypeMismatchError{Path: raw, Want: "text", Got: kindName(existing)}
		}
	}

	newText, err := applyUnifiedDiff(oldText, unifiedDiff)
	if err != nil {
		return &BadDiffError{Cause: err}
	}

	splices := runeSplices(oldText, newText)
	if len(splices) == 0 {
		return nil
	}
	tx := o.Doc.Begin()
	for _, s := range splices {
		if err := tx.SpliceText(p.ToNodePath(), s.pos, s.del, s.text); err != nil {
			return &BadDiffError{Cause: err}
		}
	}
	_, err = tx.Commit()
	return err
}

type splice struct {
	pos  int
	del  int
	text string
}

// runeSplices computes the minimal ordered code-point splices turning
// oldText into newText, so unmodified runs anchor in place.
func runeSplices(oldText, newText string) []splice {
	a := runeStrings(oldText)
	b := runeStrings(newText)
	matcher := difflib.NewMatcher(a, b)

	var out []splice
	offset := 0
	for _, op := range matcher.GetOpCodes() {
		switch op.Tag {
		case 'e':
			continue
		case 'd':
			n := op.I2 - op.I1
			out = append(out, splice{pos: op.I1 + offset, del: n})
			offset -= n
		case 'i':
			out = append(out, splice{pos: op.I1 + offset, text: strings.Join(b[op.J1:op.J2], "")})
			offset += op.J2 - op.J1
		case 'r':
			delN, insN := op.I2-op.I1, op.J2-op.J1
			out = append(out, splice{pos: op.I1 + offset, del: delN, text: strings.Join(b[op.J1:op.J2], "")})
			offset += insN - delN
		}
	}
	return out
}

func runeStrings(s string) []string {
	runes := []rune(s)
	out := make([]string, len(runes))
	for i, r := range runes {
		out[i] = string(r)
	}
	return out
}

var hunkHeaderRe = regexp.MustCompile(`^@@ -(\d+)(?:,\d+)? \+(\d+)(?:,\d+)? @@`)

// applyUnifiedDiff reconstructs the post-patch text of a standard
// unified diff against oldText. Lines outside any hunk are copied
// verbatim; hunk bodies are replayed marker-by-marker (' ' context,
// '-' removed, '+' added).
func applyUnifiedDiff(oldText, diffText string) (string, error) {
	oldLines := strings.Split(oldText, "\n")
	var newLines []string
	oldIdx := 0

	scanner := bufio.NewScanner(strings.NewReader(diffText))
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case line == "":
			continue
		case strings.HasPrefix(line, "--- "), strings.HasPrefix(line, "+++ "):
			continue
		case strings.HasPrefix(line, "@@"):
			m := hunkHeaderRe.FindStringSubmatch(line)
			if m == nil {
				return "", fmt.Errorf("malformed hunk header: %q", line)
			}
			oldStart, err := strconv.Atoi(m[1])
			if err != nil {
				return "", fmt.Errorf("malformed hunk header: %q", line)
			}
			oldStart-- // 1-based -> 0-based
			if oldStart < oldIdx || oldStart > len(oldLines) {
				return "", fmt.Errorf("hunk header out of range: %q", line)
			}
			newLines = append(newLines, oldLines[oldIdx:oldStart]...)
			oldIdx = oldStart
		case strings.HasPrefix(line, " "):
			newLines = append(newLines, line[1:])
			oldIdx++
		case strings.HasPrefix(line, "-"):
			oldIdx++
		case strings.HasPrefix(line, "+"):
			newLines = append(newLines, line[1:])
		default:
			return "", fmt.Errorf("unrecognized diff line: %q", line)
		}
	}
	if err := scanner.Err(); err != nil {
		return "", err
	}
	if oldIdx > len(oldLines) {
		return "", fmt.Errorf("diff consumed more lines than the text has")
	}
	newLines = append(newLines, oldLines[oldIdx:]...)
	return strings.Join(newLines, "\n"), nil
}
