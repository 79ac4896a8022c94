package host

import (
	"context"
	"strings"
	"sync"
)

// Memory is an in-memory reference Host implementation, generalizing
// luvjson/crdtstorage/persistence.go's MemoryPersistence (a mutex-guarded
// map[string][]byte) to this module's three key shapes plus the
// log/publish/notify side channels. Subscribe lets tests and the demo
// binary observe published frames and keyspace events without a real
// pub/sub transport.
type Memory struct {
	mu       sync.RWMutex
	kinds    map[string]KeyType
	bytes    map[string][]byte
	byteMaps map[string]map[string]string
	docs     map[string]any

	subsMu sync.Mutex
	subs   map[string][]chan []byte
	events []KeyspaceEvent
	log    []LoggedCommand
}

// KeyspaceEvent records one NotifyKeyspaceEvent call, for assertions in
// tests and the demo binary.
type KeyspaceEvent struct {
	Key   string
	Event string
}

// LoggedCommand records one AppendLog call.
type LoggedCommand struct {
	Name string
	Args []string
}

func NewMemory() *Memory {
	return &Memory{
		kinds:    make(map[string]KeyType),
		bytes:    make(map[string][]byte),
		byteMaps: make(map[string]map[string]string),
		docs:     make(map[string]any),
		subs:     make(map[string][]chan []byte),
	}
}

func (m *Memory) RegisterKey(_ context.Context, key string, kind KeyType) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.kinds[key] = kind
	return nil
}

func (m *Memory) KeyType(_ context.Context, key string) (KeyType, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	kind, ok := m.kinds[key]
	return kind, ok
}

func (m *Memory) DeleteKey(_ context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, existed := m.kinds[key]
	delete(m.kinds, key)
	delete(m.bytes, key)
	delete(m.byteMaps, key)
	delete(m.docs, key)
	return existed, nil
}

func (m *Memory) Keys(_ context.Context, prefix string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []string
	for key := range m.kinds {
		if strings.HasPrefix(key, prefix) {
			out = append(out, key)
		}
	}
	return out, nil
}

func (m *Memory) GetBytes(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.bytes[key]
	if !ok {
		return nil, false, nil
	}
	out := make([]byte, len(data))
	copy(out, data)
	return out, true, nil
}

func (m *Memory) PutBytes(_ context.Context, key string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := make([]byte, len(data))
	copy(cp, data)
	m.bytes[key] = cp
	return nil
}

func (m *Memory) GetBytesMap(_ context.Context, key string) (map[string]string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	fields, ok := m.byteMaps[key]
	if !ok {
		return nil, false, nil
	}
	out := make(map[string]string, len(fields))
	for k, v := range fields {
		out[k] = v
	}
	return out, true, nil
}

func (m *Memory) PutBytesMap(_ context.Context, key string, fields map[string]string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := make(map[string]string, len(fields))
	for k, v := range fields {
		cp[k] = v
	}
	m.byteMaps[key] = cp
	return nil
}

func (m *Memory) GetStructuredJSON(_ context.Context, key string) (any, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.docs[key]
	return v, ok, nil
}

func (m *Memory) PutStructuredJSON(_ context.Context, key string, value any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.docs[key] = value
	return nil
}

func (m *Memory) AppendLog(_ context.Context, name string, args ...string) error {
	m.subsMu.Lock()
	defer m.subsMu.Unlock()
	m.log = append(m.log, LoggedCommand{Name: name, Args: append([]string(nil), args...)})
	return nil
}

// Log returns the commands appended so far, oldest first.
func (m *Memory) Log() []LoggedCommand {
	m.subsMu.Lock()
	defer m.subsMu.Unlock()
	out := make([]LoggedCommand, len(m.log))
	copy(out, m.log)
	return out
}

func (m *Memory) Publish(_ context.Context, channel string, payload []byte) error {
	m.subsMu.Lock()
	defer m.subsMu.Unlock()
	for _, ch := range m.subs[channel] {
		select {
		case ch <- payload:
		default:
		}
	}
	return nil
}

// Subscribe registers a buffered channel that receives every future
// Publish to channel. Intended for tests and the demo binary; a real
// host's pub/sub delivery is out of scope (spec.md §1).
func (m *Memory) Subscribe(channel string) <-chan []byte {
	m.subsMu.Lock()
	defer m.subsMu.Unlock()
	ch := make(chan []byte, 16)
	m.subs[channel] = append(m.subs[channel], ch)
	return ch
}

func (m *Memory) NotifyKeyspaceEvent(_ context.Context, key, event string) error {
	m.subsMu.Lock()
	defer m.subsMu.Unlock()
	m.events = append(m.events, KeyspaceEvent{Key: key, Event: event})
	return nil
}

// Events returns the keyspace events emitted so far, oldest first.
func (m *Memory) Events() []KeyspaceEvent {
	m.subsMu.Lock()
	defer m.subsMu.Unlock()
	out := make([]KeyspaceEvent, len(m.events))
	copy(out, m.events)
	return out
}

var _ Host = (*Memory)(nil)
