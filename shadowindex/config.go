// Package shadowindex implements the Shadow Index Engine (spec.md §4.7):
// a registry of key-pattern -> projection configs, and the projection
// logic that keeps an `idx:<key>` record coherent with its source
// document on every mutation. It is grounded on
// luvjson/crdtstorage/key_manager.go's colon-joined key bookkeeping and
// persistence.go's durable write path, generalized from a fixed
// metadata/index/collection key taxonomy to an arbitrary glob-pattern
// registry, plus luvjson/crdtedit/query_engine.go's path-driven reads
// for the projection walk itself.
package shadowindex

import "strings"

// Format selects how a shadow projection is rendered.
type Format string

const (
	// FormatFlat renders configured paths as a bytes-map keyed by their
	// flattened field name ("author.name" -> "author_name", "items[0]"
	// -> "items_0"); any configured path resolving to a list or map is
	// omitted rather than flattened further.
	FormatFlat Format = "flat"
	// FormatStructured renders configured paths into one nested
	// structured-json value, preserving hierarchy and native types.
	FormatStructured Format = "structured"
)

// ShadowConfig is one registered projection rule.
type ShadowConfig struct {
	Enabled bool
	Format  Format
	Paths   []string
}

// encode renders a ShadowConfig as the bytes-map fields persisted at
// host key "cfg:<pattern>": enabled as "0"/"1", paths comma-joined.
func (c ShadowConfig) encode() map[string]string {
	enabled := "0"
	if c.Enabled {
		enabled = "1"
	}
	return map[string]string{
		"enabled": enabled,
		"format":  string(c.Format),
		"paths":   strings.Join(c.Paths, ","),
	}
}

// decodeConfig reverses encode, for Registry's cold-start rehydration
// from existing "cfg:*" host keys.
func decodeConfig(fields map[string]string) ShadowConfig {
	var cfg ShadowConfig
	cfg.Enabled = fields["enabled"] == "1"
	switch Format(fields["format"]) {
	case FormatStructured:
		cfg.Format = FormatStructured
	default:
		cfg.Format = FormatFlat
	}
	if raw := fields["paths"]; raw != "" {
		cfg.Paths = strings.Split(raw, ",")
	}
	return cfg
}
