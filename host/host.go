// Package host declares the abstract collaborator this module consumes
// from the in-memory key-value server it extends (spec.md §1/§2): typed
// key storage, an append-only replay log, pub/sub, and keyspace
// notifications. The core never talks to a concrete server; it only
// ever talks to this interface, grounded on
// luvjson/crdtstorage/interfaces.go's Storage/PersistenceProvider split.
package host

import "context"

// KeyType tags what a host key currently holds.
type KeyType string

const (
	KeyTypeDocument       KeyType = "am-document"
	KeyTypeBytesMap       KeyType = "bytes-map"
	KeyTypeStructuredJSON KeyType = "structured-json"
)

// Host is the full surface the core needs from its server. Every method
// is scoped to a single key or channel; the host is responsible for
// whatever locking or durability its own architecture requires — the
// core only assumes commands against one document key are serialized
// (spec.md §5).
type Host interface {
	// RegisterKey declares key as owned by kind, replacing any prior
	// registration. Used when a document, shadow projection, or index
	// config is first created.
	RegisterKey(ctx context.Context, key string, kind KeyType) error
	// KeyType reports the type registered at key.
	KeyType(ctx context.Context, key string) (kind KeyType, ok bool)
	// DeleteKey releases key and its registration, reporting whether a
	// key existed.
	DeleteKey(ctx context.Context, key string) (bool, error)
	// Keys lists every registered key with the given prefix, for cold-start
	// rehydration of process-local state that mirrors host-persisted
	// records (the shadow index's pattern registry rebuilding itself from
	// "cfg:*" keys after a restart).
	Keys(ctx context.Context, prefix string) ([]string, error)

	// GetBytes/PutBytes hold the document's opaque canonical save blob
	// (type am-document).
	GetBytes(ctx context.Context, key string) ([]byte, bool, error)
	PutBytes(ctx context.Context, key string, data []byte) error

	// GetBytesMap/PutBytesMap back the shadow index's Flat projection
	// and the `cfg:<pattern>` index-config records (type bytes-map).
	GetBytesMap(ctx context.Context, key string) (map[string]string, bool, error)
	PutBytesMap(ctx context.Context, key string, fields map[string]string) error

	// GetStructuredJSON/PutStructuredJSON back the shadow index's
	// Structured projection (type structured-json).
	GetStructuredJSON(ctx context.Context, key string) (any, bool, error)
	PutStructuredJSON(ctx context.Context, key string, value any) error

	// AppendLog emits a semantically equivalent command to the host's
	// append-only replay log (spec.md §4.4): name is the command name
	// ("PUTTEXT", "APPLY", ...) and args are its positional arguments
	// rendered as the host would accept them back on replay.
	AppendLog(ctx context.Context, name string, args ...string) error

	// Publish emits payload on channel (e.g. "changes:<key>").
	Publish(ctx context.Context, channel string, payload []byte) error

	// NotifyKeyspaceEvent emits the host's standard keyspace
	// notification: event is the lowercase command name, key the
	// affected key.
	NotifyKeyspaceEvent(ctx context.Context, key, event string) error
}
