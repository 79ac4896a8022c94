package changesync

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"automergekv/automerge"
	"automergekv/binding"
	"automergekv/docops"
	"automergekv/host"
)

func newBoundOps(t *testing.T, b *binding.Binding, ctx context.Context, key string) *binding.Entry {
	t.Helper()
	e, err := b.New(ctx, key)
	require.NoError(t, err)
	return e
}

func TestNumChangesAndChangesReflectMutations(t *testing.T) {
	ctx := context.Background()
	b := binding.New(host.NewMemory())
	s := New(b)
	e := newBoundOps(t, b, ctx, "doc1")

	n, err := s.NumChanges(ctx, "doc1")
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	_, err = b.Mutate(ctx, e, "PUTTEXT", nil, func(ops *docops.Operations) error {
		return ops.PutText("name", "Alice")
	})
	require.NoError(t, err)

	n, err = s.NumChanges(ctx, "doc1")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	frames, err := s.Changes(ctx, "doc1", nil)
	require.NoError(t, err)
	assert.Len(t, frames, 1)

	frames, err = s.Changes(ctx, "doc1", []string{e.Doc.Heads()[0].String()})
	require.NoError(t, err)
	assert.Empty(t, frames)
}

func TestApplyMergesChangesBetweenDocuments(t *testing.T) {
	ctx := context.Background()
	source := binding.New(host.NewMemory())
	sourceSync := New(source)
	e := newBoundOps(t, source, ctx, "doc1")
	_, err := source.Mutate(ctx, e, "PUTINT", nil, func(ops *docops.Operations) error {
		return ops.PutInt("age", 30)
	})
	require.NoError(t, err)

	frames, err := sourceSync.Changes(ctx, "doc1", nil)
	require.NoError(t, err)
	require.Len(t, frames, 1)

	dest := binding.New(host.NewMemory())
	destSync := New(dest)

	applied, err := destSync.Apply(ctx, "doc1", frames, []string{"doc1"})
	require.NoError(t, err)
	assert.Equal(t, 1, applied)

	destEntry, err := dest.Get(ctx, "doc1")
	require.NoError(t, err)
	got, ok, err := destEntry.Ops().GetInt("age")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, int64(30), got)

	applied, err = destSync.Apply(ctx, "doc1", frames, []string{"doc1"})
	require.NoError(t, err)
	assert.Equal(t, 0, applied, "re-applying an already-known change is an idempotent no-op")
}

func TestApplyAutoVivifiesMissingKey(t *testing.T) {
	ctx := context.Background()
	source := binding.New(host.NewMemory())
	sourceSync := New(source)
	e := newBoundOps(t, source, ctx, "doc1")
	_, err := source.Mutate(ctx, e, "PUTTEXT", nil, func(ops *docops.Operations) error {
		return ops.PutText("x", "y")
	})
	require.NoError(t, err)
	frames, err := sourceSync.Changes(ctx, "doc1", nil)
	require.NoError(t, err)

	dest := binding.New(host.NewMemory())
	destSync := New(dest)

	_, err = dest.Get(ctx, "fresh")
	require.Error(t, err)

	applied, err := destSync.Apply(ctx, "fresh", frames, []string{"fresh"})
	require.NoError(t, err)
	assert.Equal(t, 1, applied)
}

func TestSaveLoadThroughSync(t *testing.T) {
	ctx := context.Background()
	b := binding.New(host.NewMemory())
	s := New(b)
	e := newBoundOps(t, b, ctx, "doc1")
	_, err := b.Mutate(ctx, e, "PUTBOOL", nil, func(ops *docops.Operations) error {
		return ops.PutBool("flag", true)
	})
	require.NoError(t, err)

	data, err := s.Save(ctx, "doc1")
	require.NoError(t, err)

	other := binding.New(host.NewMemory())
	otherSync := New(other)
	require.NoError(t, otherSync.Load(ctx, "doc1", data))

	loaded, err := other.Get(ctx, "doc1")
	require.NoError(t, err)
	got, ok, err := loaded.Ops().GetBool("flag")
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, got)
}

func TestGetDiffRangeDefaultsAfterToCurrentHeads(t *testing.T) {
	ctx := context.Background()
	b := binding.New(host.NewMemory())
	s := New(b)
	e := newBoundOps(t, b, ctx, "doc1")

	_, err := b.Mutate(ctx, e, "PUTTEXT", nil, func(ops *docops.Operations) error {
		return ops.PutText("name", "Alice")
	})
	require.NoError(t, err)

	patches, err := s.GetDiff(ctx, "doc1", nil, nil)
	require.NoError(t, err)
	require.Len(t, patches, 1)
	assert.Equal(t, "put", patches[0].Action)
	assert.Equal(t, "name", patches[0].Path)

	patches, err = s.GetDiff(ctx, "doc1", []string{e.Doc.Heads()[0].String()}, nil)
	require.NoError(t, err)
	assert.Empty(t, patches)
}

// TestGetDiffCoversFullActionVocabulary exercises every GETDIFF action
// kind this module emits, including the container-creation and mark
// lifecycle actions SPEC_FULL.md §4.5 adds beyond spec.md's stated
// {put, insert, delete, splice, inc} set.
func TestGetDiffCoversFullActionVocabulary(t *testing.T) {
	ctx := context.Background()
	b := binding.New(host.NewMemory())
	s := New(b)
	e := newBoundOps(t, b, ctx, "doc1")

	tx := e.Doc.Begin()
	require.NoError(t, tx.CreateMap([]automerge.PathSeg{automerge.FieldSeg("profile")}))
	require.NoError(t, tx.SetField([]automerge.PathSeg{automerge.FieldSeg("profile"), automerge.FieldSeg("city")}, automerge.KindString, "London"))
	require.NoError(t, tx.DeleteField([]automerge.PathSeg{automerge.FieldSeg("profile"), automerge.FieldSeg("city")}))
	require.NoError(t, tx.CreateList([]automerge.PathSeg{automerge.FieldSeg("tags")}))
	require.NoError(t, tx.ListAppend([]automerge.PathSeg{automerge.FieldSeg("tags")}, automerge.KindString, "a"))
	require.NoError(t, tx.ListDelete([]automerge.PathSeg{automerge.FieldSeg("tags")}, 0))
	require.NoError(t, tx.SetField([]automerge.PathSeg{automerge.FieldSeg("score")}, automerge.KindCounter, int64(0)))
	require.NoError(t, tx.IncCounter([]automerge.PathSeg{automerge.FieldSeg("score")}, 3))
	require.NoError(t, tx.SetField([]automerge.PathSeg{automerge.FieldSeg("body")}, automerge.KindText, ""))
	require.NoError(t, tx.SpliceText([]automerge.PathSeg{automerge.FieldSeg("body")}, 0, 0, "hello"))
	require.NoError(t, tx.AddMark([]automerge.PathSeg{automerge.FieldSeg("body")}, "bold", true, 0, 5, automerge.ExpandNone))
	require.NoError(t, tx.ClearMark([]automerge.PathSeg{automerge.FieldSeg("body")}, "bold", 0, 5, automerge.ExpandNone))
	_, err := tx.Commit()
	require.NoError(t, err)

	patches, err := s.GetDiff(ctx, "doc1", nil, nil)
	require.NoError(t, err)

	seen := make(map[string]bool)
	for _, p := range patches {
		seen[p.Action] = true
	}
	for _, action := range []string{"createMap", "put", "delete", "createList", "insert", "inc", "splice", "mark", "unmark"} {
		assert.True(t, seen[action], "missing action kind %q in %v", action, patches)
	}
}
