package binding

import (
	"context"
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"automergekv/automerge"
	"automergekv/docops"
	"automergekv/host"
)

func TestNewCreatesEmptyDocumentAndRegistersHostKey(t *testing.T) {
	ctx := context.Background()
	h := host.NewMemory()
	b := New(h)

	e, err := b.New(ctx, "doc1")
	require.NoError(t, err)
	assert.Equal(t, 0, e.Doc.NumChanges())

	kind, ok := h.KeyType(ctx, "doc1")
	require.True(t, ok)
	assert.Equal(t, host.KeyTypeDocument, kind)

	_, ok, err = h.GetBytes(ctx, "doc1")
	require.NoError(t, err)
	assert.True(t, ok, "New should flush an initial snapshot to the host")
}

func TestGetReportsNotFoundForUnregisteredKey(t *testing.T) {
	ctx := context.Background()
	b := New(host.NewMemory())

	_, err := b.Get(ctx, "missing")
	require.Error(t, err)
	_, ok := err.(*docops.NotFoundError)
	assert.True(t, ok, "expected NotFoundError, got %T", err)
}

func TestGetReportsWrongTypeForNonDocumentKey(t *testing.T) {
	ctx := context.Background()
	h := host.NewMemory()
	require.NoError(t, h.RegisterKey(ctx, "shadow1", host.KeyTypeBytesMap))
	b := New(h)

	_, err := b.Get(ctx, "shadow1")
	require.Error(t, err)
	_, ok := err.(*docops.WrongTypeError)
	assert.True(t, ok, "expected WrongTypeError, got %T", err)
}

func TestSaveLoadRoundTripPreservesHeads(t *testing.T) {
	ctx := context.Background()
	h := host.NewMemory()
	b := New(h)

	e, err := b.New(ctx, "doc1")
	require.NoError(t, err)
	_, err = b.Mutate(ctx, e, "PUTTEXT", []string{"doc1", "name", "Alice"}, func(ops *docops.Operations) error {
		return ops.PutText("name", "Alice")
	})
	require.NoError(t, err)
	wantHeads := e.Doc.Heads()

	data, err := b.Save(ctx, "doc1")
	require.NoError(t, err)

	other := New(host.NewMemory())
	loaded, err := other.Load(ctx, "doc1", data)
	require.NoError(t, err)

	assert.ElementsMatch(t, wantHeads, loaded.Doc.Heads())
	got, ok, err := loaded.Ops().GetText("name")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "Alice", got)
}

func TestLoadRejectsForeignEnvelope(t *testing.T) {
	ctx := context.Background()
	b := New(host.NewMemory())
	_, err := b.Load(ctx, "doc1", []byte(`{"module":"someone-else","version":1,"content":{}}`))
	assert.Error(t, err)
}

func TestMutateSkipsPublicationWhenNoChangeProduced(t *testing.T) {
	ctx := context.Background()
	h := host.NewMemory()
	b := New(h)
	ch := h.Subscribe("changes:doc1")

	e, err := b.New(ctx, "doc1")
	require.NoError(t, err)

	changes, err := b.Mutate(ctx, e, "DELETE", []string{"doc1", "missing"}, func(ops *docops.Operations) error {
		_, err := ops.Delete("missing")
		return err
	})
	require.NoError(t, err)
	assert.Empty(t, changes)
	assert.Empty(t, h.Log(), "a no-op mutation should not append to the host log")

	select {
	case <-ch:
		t.Fatal("no change frame should have been published for a no-op mutation")
	default:
	}
}

func TestMutatePublishesLogsAndNotifies(t *testing.T) {
	ctx := context.Background()
	h := host.NewMemory()
	b := New(h)
	ch := h.Subscribe("changes:doc1")

	var hookCalls []string
	b.OnMutate(func(_ context.Context, key string) {
		hookCalls = append(hookCalls, key)
	})

	e, err := b.New(ctx, "doc1")
	require.NoError(t, err)

	changes, err := b.Mutate(ctx, e, "PUTINT", []string{"doc1", "age", "30"}, func(ops *docops.Operations) error {
		return ops.PutInt("age", 30)
	})
	require.NoError(t, err)
	require.Len(t, changes, 1)

	log := h.Log()
	require.Len(t, log, 1)
	assert.Equal(t, "PUTINT", log[0].Name)
	assert.Equal(t, []string{"doc1", "age", "30"}, log[0].Args)

	events := h.Events()
	require.Len(t, events, 1)
	assert.Equal(t, "doc1", events[0].Key)
	assert.Equal(t, "putint", events[0].Event)

	select {
	case frame := <-ch:
		decoded, err := base64.StdEncoding.DecodeString(string(frame))
		require.NoError(t, err)
		c, err := automerge.DecodeChange(decoded)
		require.NoError(t, err)
		assert.Equal(t, changes[0].Hash, c.Hash)
	default:
		t.Fatal("expected a published change frame")
	}

	assert.Equal(t, []string{"doc1"}, hookCalls)
}

func TestFreeReleasesKeyFromBindingAndHost(t *testing.T) {
	ctx := context.Background()
	h := host.NewMemory()
	b := New(h)

	_, err := b.New(ctx, "doc1")
	require.NoError(t, err)

	existed, err := b.Free(ctx, "doc1")
	require.NoError(t, err)
	assert.True(t, existed)

	_, err = b.Get(ctx, "doc1")
	assert.Error(t, err)

	existed, err = b.Free(ctx, "doc1")
	require.NoError(t, err)
	assert.False(t, existed)
}
