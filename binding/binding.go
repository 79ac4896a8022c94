// Package binding owns the per-key document and its participation in
// host lifecycle callbacks (spec.md §4.4): snapshot serialize/deserialize,
// command-log replay encoding, replica propagation, and release on
// delete. It is grounded on luvjson/crdtstorage/document.go's per-key
// Document wrapper (ID, LastModified, onChangeCallbacks) and
// storage.go's mutex-guarded document registry.
package binding

import (
	"context"
	"sync"
	"time"

	"automergekv/automerge"
	"automergekv/docops"
	"automergekv/host"
)

// Entry is one bound document: the in-memory CRDT document plus the
// per-key mutex that gives §5's "no internal locking required beyond
// one mutex per document" guarantee, generalizing
// crdtstorage/interfaces.go's per-Document mutex.
type Entry struct {
	Key          string
	Doc          *automerge.Document
	LastModified time.Time

	mu sync.Mutex
}

// Ops returns a Type Operations façade over the entry's live document.
func (e *Entry) Ops() *docops.Operations { return docops.New(e.Doc) }

// MutateHook is called after a successful mutation, once the host log,
// publish, and keyspace-notification steps have all run. shadowindex
// wires its Reindex here; it is the sole coupling point between binding
// and the shadow index, mirroring document.go's OnChange callback list.
type MutateHook func(ctx context.Context, key string)

// Binding is the process-local registry of bound documents over a
// host, generalizing crdtstorage/storage.go's storageImpl (a
// map[string]*Document guarded by a single RWMutex, behind a Storage
// interface boundary).
type Binding struct {
	host host.Host

	mu      sync.RWMutex
	entries map[string]*Entry

	hooksMu sync.Mutex
	hooks   []MutateHook
}

// New wraps host for document binding.
func New(h host.Host) *Binding {
	return &Binding{host: h, entries: make(map[string]*Entry)}
}

// Host returns the underlying host collaborator, for packages (the
// shadow index's config/projection records) that need to read or write
// host keys outside the am-document type Binding itself owns.
func (b *Binding) Host() host.Host { return b.host }

// OnMutate registers hook to run after every successful mutation,
// across every key.
func (b *Binding) OnMutate(hook MutateHook) {
	b.hooksMu.Lock()
	defer b.hooksMu.Unlock()
	b.hooks = append(b.hooks, hook)
}

func (b *Binding) runHooks(ctx context.Context, key string) {
	b.hooksMu.Lock()
	hooks := append([]MutateHook(nil), b.hooks...)
	b.hooksMu.Unlock()
	for _, hook := range hooks {
		hook(ctx, key)
	}
}

func (b *Binding) lookup(key string) (*Entry, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	e, ok := b.entries[key]
	return e, ok
}

func (b *Binding) set(e *Entry) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.entries[e.Key] = e
}

// Get resolves key to its bound document: an in-process cache hit
// returns immediately; otherwise it falls back to the host's durable
// am-document bytes (the restart/fresh-process path), decoding and
// caching the result. It reports docops.NotFoundError if the key is
// unregistered and docops.WrongTypeError if it is registered as a
// different kind.
func (b *Binding) Get(ctx context.Context, key string) (*Entry, error) {
	if e, ok := b.lookup(key); ok {
		return e, nil
	}
	kind, ok := b.host.KeyType(ctx, key)
	if !ok {
		return nil, &docops.NotFoundError{Key: key}
	}
	if kind != host.KeyTypeDocument {
		return nil, &docops.WrongTypeError{Key: key}
	}
	data, ok, err := b.host.GetBytes(ctx, key)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, &docops.NotFoundError{Key: key}
	}
	doc, err := decodeSnapshot(data)
	if err != nil {
		return nil, err
	}
	e := &Entry{Key: key, Doc: doc, LastModified: time.Now()}
	b.set(e)
	return e, nil
}

// GetOrCreate resolves key like Get, but creates a fresh empty document
// (and registers it) instead of reporting NOT_FOUND, for commands like
// APPLY that spec.md §4.5 says must auto-vivify.
func (b *Binding) GetOrCreate(ctx context.Context, key string) (*Entry, error) {
	e, err := b.Get(ctx, key)
	if err == nil {
		return e, nil
	}
	if _, notFound := err.(*docops.NotFoundError); !notFound {
		return nil, err
	}
	return b.New(ctx, key)
}

// New creates and registers a fresh empty document at key, discarding
// any prior binding. It is the handler for the NEW command.
func (b *Binding) New(ctx context.Context, key string) (*Entry, error) {
	doc := automerge.New(automerge.NewSessionID())
	e := &Entry{Key: key, Doc: doc, LastModified: time.Now()}
	if err := b.host.RegisterKey(ctx, key, host.KeyTypeDocument); err != nil {
		return nil, &docops.HostLogError{Cause: err}
	}
	if err := b.persist(ctx, e); err != nil {
		return nil, &docops.HostLogError{Cause: err}
	}
	b.set(e)
	return e, nil
}

// Load replaces key's binding with the document decoded from data,
// verifying the module/version envelope. It is the handler for the
// LOAD command.
func (b *Binding) Load(ctx context.Context, key string, data []byte) (*Entry, error) {
	doc, err := decodeSnapshot(data)
	if err != nil {
		return nil, err
	}
	return b.Adopt(ctx, key, doc)
}

// Adopt replaces key's binding with an already-built document (the
// FROMJSON command's path, which has no snapshot envelope to decode —
// jsonbridge.FromJSON builds a document directly), registering and
// persisting it exactly like Load.
func (b *Binding) Adopt(ctx context.Context, key string, doc *automerge.Document) (*Entry, error) {
	e := &Entry{Key: key, Doc: doc, LastModified: time.Now()}
	if err := b.host.RegisterKey(ctx, key, host.KeyTypeDocument); err != nil {
		return nil, &docops.HostLogError{Cause: err}
	}
	if err := b.persist(ctx, e); err != nil {
		return nil, &docops.HostLogError{Cause: err}
	}
	b.set(e)
	return e, nil
}

// Save returns key's document as canonical, version-tagged save bytes,
// flushing the same bytes through to the host's durable am-document
// record (the explicit snapshot point; ordinary mutations persist via
// the append log instead of rewriting this blob every time, following
// document.go's separation of fast in-memory Edit from its periodic/
// explicit Save).
func (b *Binding) Save(ctx context.Context, key string) ([]byte, error) {
	e, err := b.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	data, err := encodeSnapshot(e.Doc)
	if err != nil {
		return nil, err
	}
	if err := b.host.PutBytes(ctx, key, data); err != nil {
		return nil, &docops.HostLogError{Cause: err}
	}
	return data, nil
}

func (b *Binding) persist(ctx context.Context, e *Entry) error {
	data, err := encodeSnapshot(e.Doc)
	if err != nil {
		return err
	}
	return b.host.PutBytes(ctx, e.Key, data)
}

// Free releases key's in-memory binding and its host registration, for
// the host's native key-deletion/eviction lifecycle callback.
func (b *Binding) Free(ctx context.Context, key string) (bool, error) {
	b.mu.Lock()
	_, existed := b.entries[key]
	delete(b.entries, key)
	b.mu.Unlock()
	hostExisted, err := b.host.DeleteKey(ctx, key)
	if err != nil {
		return false, err
	}
	return existed || hostExisted, nil
}
