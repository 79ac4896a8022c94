package host

import (
	"context"
	"encoding/json"
	"fmt"

	badger "github.com/dgraph-io/badger/v4"
)

// Badger is an embedded-KV Host backed by BadgerDB, grounded on the
// sibling nodestorage/v2/cache/badger.go adapter in the same repo (same
// dependency, same db.View/db.Update transaction shape). Unlike Redis,
// a single BadgerDB instance has no native hash/set types, so every
// value (kind tag, doc bytes, bytes-map, structured-json) is stored
// under its own namespaced key as a flat byte string.
type Badger struct {
	db *badger.DB
}

func NewBadger(dbPath string) (*Badger, error) {
	opts := badger.DefaultOptions(dbPath)
	opts.Logger = nil
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("host: open badger at %q: %w", dbPath, err)
	}
	return &Badger{db: db}, nil
}

func (b *Badger) Close() error { return b.db.Close() }

func (b *Badger) kindKey(key string) []byte { return []byte("kind:" + key) }
func (b *Badger) docKey(key string) []byte  { return []byte("doc:" + key) }
func (b *Badger) mapKey(key string) []byte  { return []byte("map:" + key) }
func (b *Badger) jsonKey(key string) []byte { return []byte("json:" + key) }

func (b *Badger) RegisterKey(_ context.Context, key string, kind KeyType) error {
	return b.db.Update(func(txn *badger.Txn) error {
		return txn.Set(b.kindKey(key), []byte(kind))
	})
}

func (b *Badger) KeyType(_ context.Context, key string) (KeyType, bool) {
	var kind KeyType
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(b.kindKey(key))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			kind = KeyType(val)
			return nil
		})
	})
	return kind, err == nil
}

func (b *Badger) DeleteKey(_ context.Context, key string) (bool, error) {
	existed := false
	err := b.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(b.kindKey(key)); err == nil {
			existed = true
		}
		for _, k := range [][]byte{b.kindKey(key), b.docKey(key), b.mapKey(key), b.jsonKey(key)} {
			if err := txn.Delete(k); err != nil && err != badger.ErrKeyNotFound {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("host: delete key %q: %w", key, err)
	}
	return existed, nil
}

func (b *Badger) Keys(_ context.Context, prefix string) ([]string, error) {
	scan := b.kindKey(prefix)
	var out []string
	err := b.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		for it.Seek(scan); it.ValidForPrefix(scan); it.Next() {
			out = append(out, string(it.Item().Key()[len("kind:"):]))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("host: list keys %q: %w", prefix, err)
	}
	return out, nil
}

func (b *Badger) getBytes(k []byte) ([]byte, bool, error) {
	var data []byte
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(k)
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			data = append([]byte(nil), val...)
			return nil
		})
	})
	if err == badger.ErrKeyNotFound {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return data, true, nil
}

func (b *Badger) putBytes(k, v []byte) error {
	return b.db.Update(func(txn *badger.Txn) error {
		return txn.Set(k, v)
	})
}

func (b *Badger) GetBytes(_ context.Context, key string) ([]byte, bool, error) {
	data, ok, err := b.getBytes(b.docKey(key))
	if err != nil {
		return nil, false, fmt.Errorf("host: get bytes %q: %w", key, err)
	}
	return data, ok, nil
}

func (b *Badger) PutBytes(_ context.Context, key string, data []byte) error {
	if err := b.putBytes(b.docKey(key), data); err != nil {
		return fmt.Errorf("host: put bytes %q: %w", key, err)
	}
	return nil
}

func (b *Badger) GetBytesMap(_ context.Context, key string) (map[string]string, bool, error) {
	data, ok, err := b.getBytes(b.mapKey(key))
	if err != nil {
		return nil, false, fmt.Errorf("host: get bytes-map %q: %w", key, err)
	}
	if !ok {
		return nil, false, nil
	}
	var fields map[string]string
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, false, fmt.Errorf("host: decode bytes-map %q: %w", key, err)
	}
	return fields, true, nil
}

func (b *Badger) PutBytesMap(_ context.Context, key string, fields map[string]string) error {
	data, err := json.Marshal(fields)
	if err != nil {
		return fmt.Errorf("host: encode bytes-map %q: %w", key, err)
	}
	if err := b.putBytes(b.mapKey(key), data); err != nil {
		return fmt.Errorf("host: put bytes-map %q: %w", key, err)
	}
	return nil
}

func (b *Badger) GetStructuredJSON(_ context.Context, key string) (any, bool, error) {
	data, ok, err := b.getBytes(b.jsonKey(key))
	if err != nil {
		return nil, false, fmt.Errorf("host: get structured-json %q: %w", key, err)
	}
	if !ok {
		return nil, false, nil
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, false, fmt.Errorf("host: decode structured-json %q: %w", key, err)
	}
	return v, true, nil
}

func (b *Badger) PutStructuredJSON(_ context.Context, key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("host: encode structured-json %q: %w", key, err)
	}
	if err := b.putBytes(b.jsonKey(key), data); err != nil {
		return fmt.Errorf("host: put structured-json %q: %w", key, err)
	}
	return nil
}

// AppendLog appends a JSON-encoded record to a Badger-local log list
// keyed by a monotonic counter — a durable stand-in for the host's real
// append-only log file, whose framing is outside this module's scope.
func (b *Badger) AppendLog(_ context.Context, name string, args ...string) error {
	rec, err := json.Marshal(LoggedCommand{Name: name, Args: args})
	if err != nil {
		return fmt.Errorf("host: encode log record: %w", err)
	}
	return b.db.Update(func(txn *badger.Txn) error {
		seq, err := b.nextLogSeq(txn)
		if err != nil {
			return err
		}
		return txn.Set([]byte(fmt.Sprintf("log:%020d", seq)), rec)
	})
}

func (b *Badger) nextLogSeq(txn *badger.Txn) (uint64, error) {
	const seqKey = "log:seq"
	item, err := txn.Get([]byte(seqKey))
	var seq uint64
	if err == nil {
		if verr := item.Value(func(val []byte) error {
			for _, c := range val {
				seq = seq*10 + uint64(c-'0')
			}
			return nil
		}); verr != nil {
			return 0, verr
		}
	} else if err != badger.ErrKeyNotFound {
		return 0, err
	}
	seq++
	if err := txn.Set([]byte(seqKey), []byte(fmt.Sprintf("%d", seq))); err != nil {
		return 0, err
	}
	return seq, nil
}

// Publish and NotifyKeyspaceEvent have no embedded-KV equivalent of
// their own; Badger is a storage-only collaborator here, so both are
// no-ops — a deployment using Badger for storage still needs a real
// pub/sub transport (e.g. host.Redis, or a separate notify.Publisher)
// wired in alongside it.
func (b *Badger) Publish(context.Context, string, []byte) error  { return nil }
func (b *Badger) NotifyKeyspaceEvent(context.Context, string, string) error { return nil }

var _ Host = (*Badger)(nil)
