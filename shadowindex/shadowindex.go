package shadowindex

import (
	"context"
	"fmt"
)

// ParseFormat classifies a command-line format argument, defaulting to
// Flat when empty (spec.md §4.7's "--format flat|structured", flat
// being the default).
func ParseFormat(raw string) (Format, error) {
	switch raw {
	case "", string(FormatFlat):
		return FormatFlat, nil
	case string(FormatStructured):
		return FormatStructured, nil
	default:
		return "", fmt.Errorf("shadowindex: unknown format %q", raw)
	}
}

// Configure is the handler for the CONFIGURE command: register pattern
// with the given format and projection paths, enabled by default.
func (idx *Index) Configure(ctx context.Context, pattern string, format Format, paths []string) error {
	if len(paths) == 0 {
		return fmt.Errorf("shadowindex: pattern %q configured with no paths", pattern)
	}
	return idx.Registry.Configure(ctx, pattern, format, paths)
}

// Enable is the handler for the ENABLE command.
func (idx *Index) Enable(ctx context.Context, pattern string) error {
	return idx.Registry.Enable(ctx, pattern)
}

// Disable is the handler for the DISABLE command.
func (idx *Index) Disable(ctx context.Context, pattern string) error {
	return idx.Registry.Disable(ctx, pattern)
}

// Status is the handler for the STATUS command: every registered
// pattern, or just the one named, in insertion order.
func (idx *Index) Status(pattern string) []Entry {
	return idx.Registry.Status(pattern)
}
