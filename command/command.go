// Package command implements the thin command-name dispatch table of
// spec.md §6: mapping each command name to the binding/docops/
// changesync/shadowindex/jsonbridge call it represents, doing only
// arity/argument-shape validation and typed-error classification
// (BadArgsError for malformed numbers/booleans, classifying jsonbridge's
// plain errors as BadJSONError at the TOJSON/FROMJSON boundary) — all
// the actual semantics live in the packages it wires together. Grounded
// on the teacher's `crdtserver` command-handling style (a name ->
// handler table dispatching into the storage/CRDT layer), adapted from
// an HTTP-route table to a Redis-style positional-argument command
// table since this module extends a Redis-like host rather than
// exposing its own HTTP surface.
package command

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"strings"

	"automergekv/automerge"
	"automergekv/binding"
	"automergekv/changesync"
	"automergekv/docops"
	"automergekv/jsonbridge"
	"automergekv/shadowindex"
)

// Dispatcher routes command names to their handlers over one bound set
// of collaborators.
type Dispatcher struct {
	Binding *binding.Binding
	Sync    *changesync.Sync
	Index   *shadowindex.Index
}

// New wires b, sync, and idx together, registering idx.Reindex as a
// MutateHook so every successful mutation reindexes automatically —
// the sole place this module connects the shadow index to the
// document binding, mirroring document.go's OnChange wiring at the
// storage layer's construction site rather than inside either package.
func New(b *binding.Binding, sync *changesync.Sync, idx *shadowindex.Index) *Dispatcher {
	b.OnMutate(func(ctx context.Context, key string) {
		if _, err := idx.Reindex(ctx, key, b); err != nil {
			log.Printf("command: reindex failed for %q: %v", key, err)
		}
	})
	return &Dispatcher{Binding: b, Sync: sync, Index: idx}
}

func badArgs(format string, a ...any) error {
	return &docops.BadArgsError{Cause: fmt.Errorf(format, a...)}
}

func requireArgs(name string, args []string, n int) error {
	if len(args) < n {
		return badArgs("%s requires %d argument(s), got %d", name, n, len(args))
	}
	return nil
}

// Dispatch runs command name against args (its positional arguments,
// not including the command name itself, per spec.md §6's table).
// Command names are case-insensitive.
func (d *Dispatcher) Dispatch(ctx context.Context, name string, args []string) (any, error) {
	upper := strings.ToUpper(name)
	switch upper {
	case "NEW":
		return d.cmdNew(ctx, args)
	case "SAVE":
		return d.cmdSave(ctx, args)
	case "LOAD":
		return d.cmdLoad(ctx, args)
	case "APPLY":
		return d.cmdApply(ctx, upper, args)
	case "CHANGES":
		return d.cmdChanges(ctx, args)
	case "NUMCHANGES":
		return d.cmdNumChanges(ctx, args)
	case "GETDIFF":
		return d.cmdGetDiff(ctx, args)
	case "TOJSON":
		return d.cmdToJSON(ctx, args)
	case "FROMJSON":
		return d.cmdFromJSON(ctx, upper, args)
	case "DELETE":
		return d.cmdDelete(ctx, upper, args)
	case "CREATELIST":
		return d.cmdCreateList(ctx, upper, args)
	case "INCCOUNTER":
		return d.cmdIncCounter(ctx, upper, args)
	case "SPLICETEXT":
		return d.cmdSpliceText(ctx, upper, args)
	case "PUTDIFF":
		return d.cmdPutDiff(ctx, upper, args)
	case "LISTLEN":
		return d.cmdContainerLen(ctx, args, (*docops.Operations).ListLen)
	case "MAPLEN":
		return d.cmdContainerLen(ctx, args, (*docops.Operations).MapLen)
	case "MARKCREATE":
		return d.cmdMarkCreate(ctx, upper, args)
	case "MARKCLEAR":
		return d.cmdMarkClear(ctx, upper, args)
	case "MARKS":
		return d.cmdMarks(ctx, args)
	case "INDEX.CONFIGURE":
		return d.cmdIndexConfigure(ctx, args)
	case "INDEX.ENABLE":
		return d.cmdIndexEnable(ctx, args)
	case "INDEX.DISABLE":
		return d.cmdIndexDisable(ctx, args)
	case "INDEX.REINDEX":
		return d.cmdIndexReindex(ctx, args)
	case "INDEX.STATUS":
		return d.cmdIndexStatus(args)
	}

	if put, ok := putHandlers[upper]; ok {
		return d.cmdPut(ctx, upper, args, put)
	}
	if get, ok := getHandlers[upper]; ok {
		return d.cmdGet(ctx, args, get)
	}
	if appendFn, ok := appendHandlers[upper]; ok {
		return d.cmdAppend(ctx, upper, args, appendFn)
	}
	return nil, badArgs("unknown command %q", name)
}

func (d *Dispatcher) cmdNew(ctx context.Context, args []string) (any, error) {
	if err := requireArgs("NEW", args, 1); err != nil {
		return nil, err
	}
	if _, err := d.Binding.New(ctx, args[0]); err != nil {
		return nil, err
	}
	return "OK", nil
}

func (d *Dispatcher) cmdSave(ctx context.Context, args []string) (any, error) {
	if err := requireArgs("SAVE", args, 1); err != nil {
		return nil, err
	}
	return d.Sync.Save(ctx, args[0])
}

func (d *Dispatcher) cmdLoad(ctx context.Context, args []string) (any, error) {
	if err := requireArgs("LOAD", args, 2); err != nil {
		return nil, err
	}
	if err := d.Sync.Load(ctx, args[0], []byte(args[1])); err != nil {
		return nil, err
	}
	return "OK", nil
}

func (d *Dispatcher) cmdApply(ctx context.Context, command string, args []string) (any, error) {
	if err := requireArgs("APPLY", args, 1); err != nil {
		return nil, err
	}
	key := args[0]
	frames := make([][]byte, len(args)-1)
	for i, a := range args[1:] {
		frames[i] = []byte(a)
	}
	n, err := d.Sync.Apply(ctx, key, frames, args)
	return int64(n), err
}

func (d *Dispatcher) cmdChanges(ctx context.Context, args []string) (any, error) {
	if err := requireArgs("CHANGES", args, 1); err != nil {
		return nil, err
	}
	return d.Sync.Changes(ctx, args[0], args[1:])
}

func (d *Dispatcher) cmdNumChanges(ctx context.Context, args []string) (any, error) {
	if err := requireArgs("NUMCHANGES", args, 1); err != nil {
		return nil, err
	}
	n, err := d.Sync.NumChanges(ctx, args[0])
	return int64(n), err
}

// cmdGetDiff expects args shaped key, "BEFORE", hash..., "AFTER", hash...
func (d *Dispatcher) cmdGetDiff(ctx context.Context, args []string) (any, error) {
	if err := requireArgs("GETDIFF", args, 1); err != nil {
		return nil, err
	}
	key := args[0]
	rest := args[1:]
	var before, after []string
	cur := &before
	for _, tok := range rest {
		switch strings.ToUpper(tok) {
		case "BEFORE":
			cur = &before
			continue
		case "AFTER":
			cur = &after
			continue
		}
		*cur = append(*cur, tok)
	}
	return d.Sync.GetDiff(ctx, key, before, after)
}

func (d *Dispatcher) cmdToJSON(ctx context.Context, args []string) (any, error) {
	if err := requireArgs("TOJSON", args, 1); err != nil {
		return nil, err
	}
	e, err := d.Binding.Get(ctx, args[0])
	if err != nil {
		return nil, err
	}
	pretty := len(args) > 1 && args[1] != ""
	data, err := jsonbridge.ToJSON(e.Doc, pretty)
	if err != nil {
		return nil, &docops.BadJSONError{Cause: err}
	}
	return string(data), nil
}

func (d *Dispatcher) cmdFromJSON(ctx context.Context, command string, args []string) (any, error) {
	if err := requireArgs("FROMJSON", args, 2); err != nil {
		return nil, err
	}
	key, raw := args[0], args[1]
	doc, err := jsonbridge.FromJSON([]byte(raw))
	if err != nil {
		return nil, &docops.BadJSONError{Cause: err}
	}
	if _, err := d.Binding.Adopt(ctx, key, doc); err != nil {
		return nil, err
	}
	return "OK", nil
}

func (d *Dispatcher) cmdDelete(ctx context.Context, command string, args []string) (any, error) {
	if err := requireArgs("DELETE", args, 2); err != nil {
		return nil, err
	}
	key, path := args[0], args[1]
	e, err := d.Binding.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	var deleted bool
	_, mutErr := d.Binding.Mutate(ctx, e, command, args, func(ops *docops.Operations) error {
		var err error
		deleted, err = ops.Delete(path)
		return err
	})
	if mutErr != nil {
		return nil, mutErr
	}
	if deleted {
		return int64(1), nil
	}
	return int64(0), nil
}

func (d *Dispatcher) cmdCreateList(ctx context.Context, command string, args []string) (any, error) {
	if err := requireArgs("CREATELIST", args, 2); err != nil {
		return nil, err
	}
	key, path := args[0], args[1]
	e, err := d.Binding.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	_, err = d.Binding.Mutate(ctx, e, command, args, func(ops *docops.Operations) error {
		return ops.CreateList(path)
	})
	if err != nil {
		return nil, err
	}
	return "OK", nil
}

func (d *Dispatcher) cmdIncCounter(ctx context.Context, command string, args []string) (any, error) {
	if err := requireArgs("INCCOUNTER", args, 3); err != nil {
		return nil, err
	}
	key, path := args[0], args[1]
	delta, err := strconv.ParseInt(args[2], 10, 64)
	if err != nil {
		return nil, badArgs("INCCOUNTER delta %q: %v", args[2], err)
	}
	e, err := d.Binding.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	_, err = d.Binding.Mutate(ctx, e, command, args, func(ops *docops.Operations) error {
		return ops.IncCounter(path, delta)
	})
	if err != nil {
		return nil, err
	}
	return "OK", nil
}

func (d *Dispatcher) cmdSpliceText(ctx context.Context, command string, args []string) (any, error) {
	if err := requireArgs("SPLICETEXT", args, 5); err != nil {
		return nil, err
	}
	key, path := args[0], args[1]
	pos, err := strconv.Atoi(args[2])
	if err != nil {
		return nil, badArgs("SPLICETEXT pos %q: %v", args[2], err)
	}
	del, err := strconv.Atoi(args[3])
	if err != nil {
		return nil, badArgs("SPLICETEXT del %q: %v", args[3], err)
	}
	text := args[4]
	e, err := d.Binding.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	_, err = d.Binding.Mutate(ctx, e, command, args, func(ops *docops.Operations) error {
		return ops.SpliceText(path, pos, del, text)
	})
	if err != nil {
		return nil, err
	}
	return "OK", nil
}

func (d *Dispatcher) cmdPutDiff(ctx context.Context, command string, args []string) (any, error) {
	if err := requireArgs("PUTDIFF", args, 3); err != nil {
		return nil, err
	}
	key, path, diff := args[0], args[1], args[2]
	e, err := d.Binding.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	_, err = d.Binding.Mutate(ctx, e, command, args, func(ops *docops.Operations) error {
		return ops.PutDiff(path, diff)
	})
	if err != nil {
		return nil, err
	}
	return "OK", nil
}

func (d *Dispatcher) cmdContainerLen(ctx context.Context, args []string, fn func(*docops.Operations, string) (int, bool, error)) (any, error) {
	if err := requireArgs("LEN", args, 2); err != nil {
		return nil, err
	}
	e, err := d.Binding.Get(ctx, args[0])
	if err != nil {
		return nil, err
	}
	n, ok, err := fn(e.Ops(), args[1])
	if err != nil || !ok {
		return nil, err
	}
	return int64(n), nil
}

func (d *Dispatcher) cmdMarkCreate(ctx context.Context, command string, args []string) (any, error) {
	if err := requireArgs("MARKCREATE", args, 6); err != nil {
		return nil, err
	}
	key, path, name, value := args[0], args[1], args[2], args[3]
	start, err := strconv.Atoi(args[4])
	if err != nil {
		return nil, badArgs("MARKCREATE start %q: %v", args[4], err)
	}
	end, err := strconv.Atoi(args[5])
	if err != nil {
		return nil, badArgs("MARKCREATE end %q: %v", args[5], err)
	}
	expand := automerge.ExpandNone
	if len(args) > 6 {
		expand = automerge.Expand(args[6])
	}
	e, err := d.Binding.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	_, err = d.Binding.Mutate(ctx, e, command, args, func(ops *docops.Operations) error {
		return ops.MarkCreate(path, name, value, start, end, expand)
	})
	if err != nil {
		return nil, err
	}
	return "OK", nil
}

func (d *Dispatcher) cmdMarkClear(ctx context.Context, command string, args []string) (any, error) {
	if err := requireArgs("MARKCLEAR", args, 5); err != nil {
		return nil, err
	}
	key, path, name := args[0], args[1], args[2]
	start, err := strconv.Atoi(args[3])
	if err != nil {
		return nil, badArgs("MARKCLEAR start %q: %v", args[3], err)
	}
	end, err := strconv.Atoi(args[4])
	if err != nil {
		return nil, badArgs("MARKCLEAR end %q: %v", args[4], err)
	}
	expand := automerge.ExpandNone
	if len(args) > 5 {
		expand = automerge.Expand(args[5])
	}
	e, err := d.Binding.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	_, err = d.Binding.Mutate(ctx, e, command, args, func(ops *docops.Operations) error {
		return ops.MarkClear(path, name, start, end, expand)
	})
	if err != nil {
		return nil, err
	}
	return "OK", nil
}

func (d *Dispatcher) cmdMarks(ctx context.Context, args []string) (any, error) {
	if err := requireArgs("MARKS", args, 2); err != nil {
		return nil, err
	}
	e, err := d.Binding.Get(ctx, args[0])
	if err != nil {
		return nil, err
	}
	return e.Ops().MarkList(args[1])
}

func (d *Dispatcher) cmdIndexConfigure(ctx context.Context, args []string) (any, error) {
	if err := requireArgs("INDEX.CONFIGURE", args, 2); err != nil {
		return nil, err
	}
	pattern := args[0]
	rest := args[1:]
	format := shadowindex.FormatFlat
	if len(rest) > 0 && strings.EqualFold(rest[0], "--format") {
		if len(rest) < 2 {
			return nil, badArgs("INDEX.CONFIGURE --format requires a value")
		}
		f, err := shadowindex.ParseFormat(rest[1])
		if err != nil {
			return nil, &docops.BadArgsError{Cause: err}
		}
		format = f
		rest = rest[2:]
	}
	if len(rest) == 0 {
		return nil, badArgs("INDEX.CONFIGURE %q requires at least one path", pattern)
	}
	if err := d.Index.Configure(ctx, pattern, format, rest); err != nil {
		return nil, err
	}
	return "OK", nil
}

func (d *Dispatcher) cmdIndexEnable(ctx context.Context, args []string) (any, error) {
	if err := requireArgs("INDEX.ENABLE", args, 1); err != nil {
		return nil, err
	}
	if err := d.Index.Enable(ctx, args[0]); err != nil {
		return nil, err
	}
	return "OK", nil
}

func (d *Dispatcher) cmdIndexDisable(ctx context.Context, args []string) (any, error) {
	if err := requireArgs("INDEX.DISABLE", args, 1); err != nil {
		return nil, err
	}
	if err := d.Index.Disable(ctx, args[0]); err != nil {
		return nil, err
	}
	return "OK", nil
}

func (d *Dispatcher) cmdIndexReindex(ctx context.Context, args []string) (any, error) {
	if err := requireArgs("INDEX.REINDEX", args, 1); err != nil {
		return nil, err
	}
	applied, err := d.Index.Reindex(ctx, args[0], d.Binding)
	if err != nil {
		return nil, err
	}
	if applied {
		return int64(1), nil
	}
	return int64(0), nil
}

func (d *Dispatcher) cmdIndexStatus(args []string) (any, error) {
	pattern := ""
	if len(args) > 0 {
		pattern = args[0]
	}
	return d.Index.Status(pattern), nil
}
