package command

import (
	"context"
	"strconv"
	"strings"

	"automergekv/docops"
)

// putFunc writes raw (already a string argument) at path inside ops,
// parsing it into the target scalar kind.
type putFunc func(ops *docops.Operations, path, raw string) error

// getFunc reads path inside ops, reporting ok=false for a null read.
type getFunc func(ops *docops.Operations, path string) (any, bool, error)

func parseCommandBool(raw string) (bool, error) {
	switch strings.ToLower(raw) {
	case "1", "true":
		return true, nil
	case "0", "false":
		return false, nil
	default:
		return false, badArgs("invalid boolean %q", raw)
	}
}

var putHandlers = map[string]putFunc{
	"PUTTEXT": func(ops *docops.Operations, path, raw string) error {
		return ops.PutText(path, raw)
	},
	"PUTINT": func(ops *docops.Operations, path, raw string) error {
		v, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return badArgs("PUTINT value %q: %v", raw, err)
		}
		return ops.PutInt(path, v)
	},
	"PUTDOUBLE": func(ops *docops.Operations, path, raw string) error {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return badArgs("PUTDOUBLE value %q: %v", raw, err)
		}
		return ops.PutDouble(path, v)
	},
	"PUTBOOL": func(ops *docops.Operations, path, raw string) error {
		v, err := parseCommandBool(raw)
		if err != nil {
			return err
		}
		return ops.PutBool(path, v)
	},
	"PUTCOUNTER": func(ops *docops.Operations, path, raw string) error {
		v, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return badArgs("PUTCOUNTER value %q: %v", raw, err)
		}
		return ops.PutCounter(path, v)
	},
	"PUTTIMESTAMP": func(ops *docops.Operations, path, raw string) error {
		v, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return badArgs("PUTTIMESTAMP value %q: %v", raw, err)
		}
		return ops.PutTimestamp(path, v)
	},
}

var appendHandlers = map[string]putFunc{
	"APPENDTEXT": func(ops *docops.Operations, path, raw string) error {
		return ops.AppendText(path, raw)
	},
	"APPENDINT": func(ops *docops.Operations, path, raw string) error {
		v, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return badArgs("APPENDINT value %q: %v", raw, err)
		}
		return ops.AppendInt(path, v)
	},
	"APPENDDOUBLE": func(ops *docops.Operations, path, raw string) error {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return badArgs("APPENDDOUBLE value %q: %v", raw, err)
		}
		return ops.AppendDouble(path, v)
	},
	"APPENDBOOL": func(ops *docops.Operations, path, raw string) error {
		v, err := parseCommandBool(raw)
		if err != nil {
			return err
		}
		return ops.AppendBool(path, v)
	},
}

var getHandlers = map[string]getFunc{
	"GETTEXT": func(ops *docops.Operations, path string) (any, bool, error) {
		v, ok, err := ops.GetText(path)
		return v, ok, err
	},
	"GETINT": func(ops *docops.Operations, path string) (any, bool, error) {
		v, ok, err := ops.GetInt(path)
		return v, ok, err
	},
	"GETDOUBLE": func(ops *docops.Operations, path string) (any, bool, error) {
		v, ok, err := ops.GetDouble(path)
		return v, ok, err
	},
	"GETBOOL": func(ops *docops.Operations, path string) (any, bool, error) {
		v, ok, err := ops.GetBool(path)
		return v, ok, err
	},
	"GETCOUNTER": func(ops *docops.Operations, path string) (any, bool, error) {
		v, ok, err := ops.GetCounter(path)
		return v, ok, err
	},
	"GETTIMESTAMP": func(ops *docops.Operations, path string) (any, bool, error) {
		v, ok, err := ops.GetTimestamp(path)
		return v, ok, err
	},
}

func (d *Dispatcher) cmdPut(ctx context.Context, command string, args []string, fn putFunc) (any, error) {
	if err := requireArgs(command, args, 3); err != nil {
		return nil, err
	}
	key, path, raw := args[0], args[1], args[2]
	e, err := d.Binding.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	_, err = d.Binding.Mutate(ctx, e, command, args, func(ops *docops.Operations) error {
		return fn(ops, path, raw)
	})
	if err != nil {
		return nil, err
	}
	return "OK", nil
}

func (d *Dispatcher) cmdAppend(ctx context.Context, command string, args []string, fn putFunc) (any, error) {
	if err := requireArgs(command, args, 3); err != nil {
		return nil, err
	}
	key, path, raw := args[0], args[1], args[2]
	e, err := d.Binding.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	_, err = d.Binding.Mutate(ctx, e, command, args, func(ops *docops.Operations) error {
		return fn(ops, path, raw)
	})
	if err != nil {
		return nil, err
	}
	return "OK", nil
}

func (d *Dispatcher) cmdGet(ctx context.Context, args []string, fn getFunc) (any, error) {
	if err := requireArgs("GET", args, 2); err != nil {
		return nil, err
	}
	e, err := d.Binding.Get(ctx, args[0])
	if err != nil {
		return nil, err
	}
	v, ok, err := fn(e.Ops(), args[1])
	if err != nil || !ok {
		return nil, err
	}
	return v, nil
}
