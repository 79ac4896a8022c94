package automerge

import "sort"

// Patch is one entry of the diff format GetDiff returns: a compact,
// deterministically ordered description of a single Op, per this
// module's resolution of spec.md §9's get_diff open question. Action is
// one of put, insert, delete, splice, inc (spec.md §4.5's closed set)
// plus createMap, createList, mark, unmark (SPEC_FULL.md §4.5's
// documented addition for container creation and mark lifecycle).
type Patch struct {
	Action string `json:"action"`
	Path   string `json:"path"`
	Value  any    `json:"value,omitempty"`
}

// GetDiff renders every op in every change not known at have as a flat
// Patch list, ordered by (Seq, Actor) so two replicas computing the diff
// over the same have set produce byte-identical output. It describes the
// transition from have to the document's full current history, i.e. the
// BEFORE/AFTER=current-heads case of spec.md §4.5's get_diff.
func (d *Document) GetDiff(have []ChangeHash) []Patch {
	return patchList(d.Changes(have))
}

// GetDiffRange describes the transition from the logical state identified
// by before-heads to the one identified by after-heads (spec.md §4.5's
// general get_diff, BEFORE hashes AFTER hashes): every change that is an
// ancestor of after but not of before, in (Seq, Actor) order. Empty before
// means the empty-document state; empty after means the current heads.
func (d *Document) GetDiffRange(before, after []ChangeHash) []Patch {
	if len(after) == 0 {
		after = d.Heads()
	}
	reachable := d.ancestors(after)
	known := d.ancestors(before)
	var changes []Change
	for _, c := range d.changes {
		if _, ok := reachable[c.Hash]; !ok {
			continue
		}
		if _, ok := known[c.Hash]; ok {
			continue
		}
		changes = append(changes, c)
	}
	return patchList(changes)
}

func patchList(changes []Change) []Patch {
	sort.Slice(changes, func(i, j int) bool {
		if changes[i].Seq != changes[j].Seq {
			return changes[i].Seq < changes[j].Seq
		}
		return changes[i].Actor.String() < changes[j].Actor.String()
	})
	var out []Patch
	for _, c := range changes {
		for _, op := range c.Ops {
			if p, ok := opToPatch(op); ok {
				out = append(out, p)
			}
		}
	}
	return out
}

func opToPatch(op Op) (Patch, bool) {
	path := PathString(op.Path)
	switch op.Kind {
	case OpSetField:
		return Patch{Action: "put", Path: path, Value: op.Value}, true
	case OpDeleteField:
		return Patch{Action: "delete", Path: path}, true
	case OpCreateMap:
		return Patch{Action: "createMap", Path: path}, true
	case OpCreateList:
		return Patch{Action: "createList", Path: path}, true
	case OpListInsert:
		return Patch{Action: "insert", Path: path, Value: op.Value}, true
	case OpListDelete:
		return Patch{Action: "delete", Path: path}, true
	case OpCounterInc:
		return Patch{Action: "inc", Path: path, Value: op.Delta}, true
	case OpTextSplice:
		return Patch{Action: "splice", Path: path, Value: op.Text}, true
	case OpMarkAdd:
		return Patch{Action: "mark", Path: path, Value: op.MarkName}, true
	case OpMarkClear:
		return Patch{Action: "unmark", Path: path, Value: op.MarkName}, true
	default:
		return Patch{}, false
	}
}
