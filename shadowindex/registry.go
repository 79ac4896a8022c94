package shadowindex

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/cespare/xxhash/v2"

	"automergekv/host"
)

// Entry pairs a registered pattern with its config, for Status.
type Entry struct {
	Pattern string
	Config  ShadowConfig
}

// matchResult memoizes which pattern a literal key resolved to, keyed
// by xxhash.Sum64String(key) so a hot key with many writes doesn't
// re-walk the registry's pattern list on every mutation; any registry
// change invalidates the whole cache rather than tracking per-entry
// dependents, since Configure/Enable/Disable are rare next to mutation
// volume.
type matchResult struct {
	pattern string
	found   bool
}

// Registry holds the process-local, host-persisted set of shadow
// projection rules, generalizing key_manager.go's fixed key-type
// registry to an ordered, pattern-matched one: first-match-wins over
// insertion order (spec.md §4.7).
type Registry struct {
	host host.Host

	mu      sync.Mutex
	order   []string
	configs map[string]ShadowConfig

	cacheMu sync.Mutex
	cache   map[uint64]matchResult
}

// NewRegistry wraps h for shadow-config bookkeeping.
func NewRegistry(h host.Host) *Registry {
	return &Registry{
		host:    h,
		configs: make(map[string]ShadowConfig),
		cache:   make(map[uint64]matchResult),
	}
}

func configKey(pattern string) string { return "cfg:" + pattern }

// Rehydrate rebuilds the registry's in-memory state from every "cfg:*"
// key already persisted on the host, for process startup against a
// durable host that outlived a prior process (spec.md §4.7's registry
// is otherwise process-local). Call once, before serving commands.
func (r *Registry) Rehydrate(ctx context.Context) error {
	keys, err := r.host.Keys(ctx, "cfg:")
	if err != nil {
		return fmt.Errorf("shadowindex: list cfg keys: %w", err)
	}
	r.mu.Lock()
	for _, key := range keys {
		pattern := strings.TrimPrefix(key, "cfg:")
		fields, ok, err := r.host.GetBytesMap(ctx, key)
		if err != nil {
			r.mu.Unlock()
			return fmt.Errorf("shadowindex: read %q: %w", key, err)
		}
		if !ok {
			continue
		}
		cfg := decodeConfig(fields)
		if _, exists := r.configs[pattern]; !exists {
			r.order = append(r.order, pattern)
		}
		r.configs[pattern] = cfg
	}
	r.mu.Unlock()
	r.invalidateCache()
	return nil
}

func (r *Registry) invalidateCache() {
	r.cacheMu.Lock()
	r.cache = make(map[uint64]matchResult)
	r.cacheMu.Unlock()
}

// Configure registers or replaces the rule at pattern, persisting it to
// host key "cfg:<pattern>" and enabling it by default (matching the
// teacher's register-then-activate key_manager.go convention).
func (r *Registry) Configure(ctx context.Context, pattern string, format Format, paths []string) error {
	if pattern == "" {
		return fmt.Errorf("shadowindex: empty pattern")
	}
	cfg := ShadowConfig{Enabled: true, Format: format, Paths: paths}
	if err := r.persist(ctx, pattern, cfg); err != nil {
		return err
	}

	r.mu.Lock()
	if _, exists := r.configs[pattern]; !exists {
		r.order = append(r.order, pattern)
	}
	r.configs[pattern] = cfg
	r.mu.Unlock()

	r.invalidateCache()
	return nil
}

func (r *Registry) persist(ctx context.Context, pattern string, cfg ShadowConfig) error {
	fields := cfg.encode()
	if err := r.host.RegisterKey(ctx, configKey(pattern), host.KeyTypeBytesMap); err != nil {
		return err
	}
	return r.host.PutBytesMap(ctx, configKey(pattern), fields)
}

// setEnabled flips the enabled flag of an already-registered pattern.
func (r *Registry) setEnabled(ctx context.Context, pattern string, enabled bool) error {
	r.mu.Lock()
	cfg, ok := r.configs[pattern]
	r.mu.Unlock()
	if !ok {
		return fmt.Errorf("shadowindex: unknown pattern %q", pattern)
	}
	cfg.Enabled = enabled
	if err := r.persist(ctx, pattern, cfg); err != nil {
		return err
	}
	r.mu.Lock()
	r.configs[pattern] = cfg
	r.mu.Unlock()
	r.invalidateCache()
	return nil
}

// Enable activates an already-registered pattern.
func (r *Registry) Enable(ctx context.Context, pattern string) error {
	return r.setEnabled(ctx, pattern, true)
}

// Disable deactivates an already-registered pattern without forgetting
// its configured paths.
func (r *Registry) Disable(ctx context.Context, pattern string) error {
	return r.setEnabled(ctx, pattern, false)
}

// Status reports the registered config for pattern, or every registered
// config in insertion order if pattern is empty.
func (r *Registry) Status(pattern string) []Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	if pattern != "" {
		cfg, ok := r.configs[pattern]
		if !ok {
			return nil
		}
		return []Entry{{Pattern: pattern, Config: cfg}}
	}
	out := make([]Entry, 0, len(r.order))
	for _, p := range r.order {
		out = append(out, Entry{Pattern: p, Config: r.configs[p]})
	}
	return out
}

// matches reports whether pattern matches key per spec.md §4.7: "*"
// matches everything, a trailing "*" matches by prefix, anything else
// must match exactly.
func matches(pattern, key string) bool {
	if pattern == "*" {
		return true
	}
	if strings.HasSuffix(pattern, "*") {
		return strings.HasPrefix(key, pattern[:len(pattern)-1])
	}
	return pattern == key
}

// match finds the first enabled config whose pattern matches key, in
// registry insertion order.
func (r *Registry) match(key string) (string, ShadowConfig, bool) {
	h := xxhash.Sum64String(key)
	r.cacheMu.Lock()
	if cached, ok := r.cache[h]; ok {
		r.cacheMu.Unlock()
		if !cached.found {
			return "", ShadowConfig{}, false
		}
		r.mu.Lock()
		cfg, ok := r.configs[cached.pattern]
		r.mu.Unlock()
		if ok && cfg.Enabled {
			return cached.pattern, cfg, true
		}
		// Stale cache entry (pattern disabled/removed since cached):
		// fall through to a full re-match below.
	} else {
		r.cacheMu.Unlock()
	}

	r.mu.Lock()
	order := append([]string(nil), r.order...)
	configs := make(map[string]ShadowConfig, len(r.configs))
	for k, v := range r.configs {
		configs[k] = v
	}
	r.mu.Unlock()

	for _, pattern := range order {
		cfg := configs[pattern]
		if !cfg.Enabled {
			continue
		}
		if matches(pattern, key) {
			r.cacheMu.Lock()
			r.cache[h] = matchResult{pattern: pattern, found: true}
			r.cacheMu.Unlock()
			return pattern, cfg, true
		}
	}
	r.cacheMu.Lock()
	r.cache[h] = matchResult{found: false}
	r.cacheMu.Unlock()
	return "", ShadowConfig{}, false
}
