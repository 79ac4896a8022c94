package shadowindex

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"strings"

	"github.com/bwmarrin/snowflake"

	"automergekv/automerge"
	"automergekv/binding"
	"automergekv/host"
	"automergekv/jsonbridge"
	"automergekv/path"
)

// Index is the shadow index engine: a Registry of projection rules plus
// the projection logic that keeps each matching key's `idx:<key>`
// record coherent with its document, wired into binding.Binding's
// MutateHook so every successful mutation reindexes automatically
// (spec.md §4.7).
type Index struct {
	Registry *Registry

	host host.Host
	sink StructuredSink
	node *snowflake.Node
}

// New builds a shadow index over h, rehydrating its pattern registry
// from any "cfg:*" keys the host already holds (a restart against a
// durable host). nodeID identifies this process for the snowflake token
// stamped on every projection write, distinguishing writers when more
// than one process projects into the same host (nothing in this module
// reads the token back; it is not a lock).
func New(ctx context.Context, h host.Host, nodeID int64) (*Index, error) {
	node, err := snowflake.NewNode(nodeID)
	if err != nil {
		return nil, fmt.Errorf("shadowindex: %w", err)
	}
	registry := NewRegistry(h)
	if err := registry.Rehydrate(ctx); err != nil {
		return nil, err
	}
	return &Index{
		Registry: registry,
		host:     h,
		sink:     &hostSink{host: h},
		node:     node,
	}, nil
}

// SetStructuredSink overrides where Structured-format projections are
// written, e.g. to a MongoStructuredSink instead of the host's own
// structured-json key type.
func (idx *Index) SetStructuredSink(sink StructuredSink) { idx.sink = sink }

func indexKey(key string) string { return "idx:" + key }

// Reindex re-runs the projection for key against b's currently bound
// document, reporting whether a matching enabled config was found and
// applied (spec.md §4.7's reindex command and its INDEX.REINDEX return
// value of 1/0). command.New also calls it from the MutateHook it
// registers with binding.Binding.OnMutate.
func (idx *Index) Reindex(ctx context.Context, key string, b *binding.Binding) (bool, error) {
	e, err := b.Get(ctx, key)
	if err != nil {
		return false, err
	}
	return idx.ReindexDoc(ctx, key, e.Doc)
}

// ReindexDoc projects doc's configured paths at key without needing a
// Binding, for callers that already hold the document; Reindex is its
// only caller within this module.
func (idx *Index) ReindexDoc(ctx context.Context, key string, doc *automerge.Document) (bool, error) {
	_, cfg, ok := idx.Registry.match(key)
	if !ok {
		return false, nil
	}
	switch cfg.Format {
	case FormatStructured:
		return true, idx.projectStructured(ctx, key, cfg, doc)
	default:
		return true, idx.projectFlat(ctx, key, cfg, doc)
	}
}

func (idx *Index) token() string { return idx.node.Generate().String() }

func (idx *Index) projectFlat(ctx context.Context, key string, cfg ShadowConfig, doc *automerge.Document) error {
	fields := make(map[string]string, len(cfg.Paths)+1)
	for _, raw := range cfg.Paths {
		p, err := path.Parse(raw)
		if err != nil {
			log.Printf("shadowindex: skipping unparsable path %q for %q: %v", raw, key, err)
			continue
		}
		node, ok := path.Resolve(doc, p)
		if !ok || node == nil || node.Kind() == automerge.KindNull {
			continue
		}
		if node.Kind() == automerge.KindMap || node.Kind() == automerge.KindList {
			continue
		}
		val, err := flatValue(node)
		if err != nil {
			log.Printf("shadowindex: skipping unindexable path %q for %q: %v", raw, key, err)
			continue
		}
		fields[flatName(p)] = val
	}
	fields["_token"] = idx.token()

	if err := idx.host.RegisterKey(ctx, indexKey(key), host.KeyTypeBytesMap); err != nil {
		return err
	}
	return idx.host.PutBytesMap(ctx, indexKey(key), fields)
}

func (idx *Index) projectStructured(ctx context.Context, key string, cfg ShadowConfig, doc *automerge.Document) error {
	root := make(map[string]any, len(cfg.Paths)+1)
	for _, raw := range cfg.Paths {
		p, err := path.Parse(raw)
		if err != nil {
			log.Printf("shadowindex: skipping unparsable path %q for %q: %v", raw, key, err)
			continue
		}
		node, ok := path.Resolve(doc, p)
		if !ok || node == nil || node.Kind() == automerge.KindNull {
			continue
		}
		setNested(root, p, jsonbridge.NodeValue(node))
	}
	root["_token"] = idx.token()

	if err := idx.host.RegisterKey(ctx, indexKey(key), host.KeyTypeStructuredJSON); err != nil {
		return err
	}
	return idx.sink.Put(ctx, indexKey(key), root)
}

// flatName renders a parsed path as its Flat field name: "author.name"
// -> "author_name", "items[0]" -> "items_0".
func flatName(p path.Path) string {
	parts := make([]string, len(p))
	for i, seg := range p {
		if seg.IsIndex {
			parts[i] = strconv.Itoa(seg.Index)
		} else {
			parts[i] = seg.Field
		}
	}
	return strings.Join(parts, "_")
}

// flatValue renders a scalar node's value as a plain string for the
// bytes-map a Flat projection is stored as.
func flatValue(node automerge.Node) (string, error) {
	switch node.Kind() {
	case automerge.KindString, automerge.KindText:
		return node.Value().(string), nil
	case automerge.KindInt:
		return strconv.FormatInt(node.Value().(int64), 10), nil
	case automerge.KindDouble:
		return strconv.FormatFloat(node.Value().(float64), 'g', -1, 64), nil
	case automerge.KindBool:
		return strconv.FormatBool(node.Value().(bool)), nil
	case automerge.KindCounter:
		return strconv.FormatInt(node.(*automerge.CounterNode).Total(), 10), nil
	case automerge.KindTimestamp:
		return strconv.FormatInt(node.(*automerge.TimestampNode).Millis(), 10), nil
	default:
		return "", fmt.Errorf("unsupported kind %s", node.Kind())
	}
}

// setNested places value at p's location inside root, materializing
// intermediate maps as needed. Index segments become bracketed string
// keys ("[0]") since a Structured projection's output is always a JSON
// object, never an array, at its root.
func setNested(root map[string]any, p path.Path, value any) {
	if len(p) == 0 {
		return
	}
	cur := root
	for i, seg := range p {
		key := seg.Field
		if seg.IsIndex {
			key = fmt.Sprintf("[%d]", seg.Index)
		}
		if i == len(p)-1 {
			cur[key] = value
			return
		}
		next, ok := cur[key].(map[string]any)
		if !ok {
			next = make(map[string]any)
			cur[key] = next
		}
		cur = next
	}
}
