package shadowindex

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"automergekv/automerge"
	"automergekv/binding"
	"automergekv/host"
)

func newEntry(t *testing.T, b *binding.Binding, key string) *binding.Entry {
	t.Helper()
	e, err := b.New(context.Background(), key)
	require.NoError(t, err)
	return e
}

func setField(t *testing.T, e *binding.Entry, field string, kind automerge.Kind, value any) {
	t.Helper()
	tx := e.Doc.Begin()
	require.NoError(t, tx.SetField([]automerge.PathSeg{automerge.FieldSeg(field)}, kind, value))
	_, err := tx.Commit()
	require.NoError(t, err)
}

func TestMatchesFirstPatternWinsInInsertionOrder(t *testing.T) {
	ctx := context.Background()
	h := host.NewMemory()
	idx, err := New(context.Background(), h, 1)
	require.NoError(t, err)

	require.NoError(t, idx.Configure(ctx, "user:*", FormatFlat, []string{"name"}))
	require.NoError(t, idx.Configure(ctx, "*", FormatFlat, []string{"name"}))

	pattern, _, ok := idx.Registry.match("user:42")
	require.True(t, ok)
	assert.Equal(t, "user:*", pattern)

	pattern, _, ok = idx.Registry.match("other:1")
	require.True(t, ok)
	assert.Equal(t, "*", pattern)
}

func TestReindexProjectsFlatFields(t *testing.T) {
	ctx := context.Background()
	h := host.NewMemory()
	b := binding.New(h)
	idx, err := New(context.Background(), h, 1)
	require.NoError(t, err)
	require.NoError(t, idx.Configure(ctx, "user:*", FormatFlat, []string{"name", "tags", "profile.city"}))

	e := newEntry(t, b, "user:1")
	setField(t, e, "name", automerge.KindString, "Ada")

	tx := e.Doc.Begin()
	require.NoError(t, tx.CreateMap([]automerge.PathSeg{automerge.FieldSeg("profile")}))
	require.NoError(t, tx.SetField([]automerge.PathSeg{automerge.FieldSeg("profile"), automerge.FieldSeg("city")}, automerge.KindString, "London"))
	require.NoError(t, tx.CreateList([]automerge.PathSeg{automerge.FieldSeg("tags")}))
	_, err = tx.Commit()
	require.NoError(t, err)

	applied, err := idx.Reindex(ctx, "user:1", b)
	require.NoError(t, err)
	assert.True(t, applied)

	fields, ok, err := h.GetBytesMap(ctx, "idx:user:1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "Ada", fields["name"])
	assert.Equal(t, "London", fields["profile_city"])
	_, hasTags := fields["tags"]
	assert.False(t, hasTags, "list-valued paths are omitted from a Flat projection")
	assert.NotEmpty(t, fields["_token"])
}

func TestReindexProjectsStructuredFields(t *testing.T) {
	ctx := context.Background()
	h := host.NewMemory()
	b := binding.New(h)
	idx, err := New(context.Background(), h, 1)
	require.NoError(t, err)
	require.NoError(t, idx.Configure(ctx, "doc:*", FormatStructured, []string{"profile.city", "score"}))

	e := newEntry(t, b, "doc:1")
	tx := e.Doc.Begin()
	require.NoError(t, tx.CreateMap([]automerge.PathSeg{automerge.FieldSeg("profile")}))
	require.NoError(t, tx.SetField([]automerge.PathSeg{automerge.FieldSeg("profile"), automerge.FieldSeg("city")}, automerge.KindString, "Paris"))
	require.NoError(t, tx.SetField([]automerge.PathSeg{automerge.FieldSeg("score")}, automerge.KindInt, int64(7)))
	_, err = tx.Commit()
	require.NoError(t, err)

	applied, err := idx.Reindex(ctx, "doc:1", b)
	require.NoError(t, err)
	assert.True(t, applied)

	value, ok, err := h.GetStructuredJSON(ctx, "idx:doc:1")
	require.NoError(t, err)
	require.True(t, ok)
	root, ok := value.(map[string]any)
	require.True(t, ok)
	profile, ok := root["profile"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "Paris", profile["city"])
	assert.Equal(t, int64(7), root["score"])
}

func TestReindexSkipsUnmatchedKey(t *testing.T) {
	ctx := context.Background()
	h := host.NewMemory()
	b := binding.New(h)
	idx, err := New(context.Background(), h, 1)
	require.NoError(t, err)
	require.NoError(t, idx.Configure(ctx, "user:*", FormatFlat, []string{"name"}))

	newEntry(t, b, "other:1")
	applied, err := idx.Reindex(ctx, "other:1", b)
	require.NoError(t, err)
	assert.False(t, applied)
}

func TestDisablePatternStopsMatching(t *testing.T) {
	ctx := context.Background()
	h := host.NewMemory()
	idx, err := New(context.Background(), h, 1)
	require.NoError(t, err)
	require.NoError(t, idx.Configure(ctx, "user:*", FormatFlat, []string{"name"}))

	_, _, ok := idx.Registry.match("user:1")
	require.True(t, ok)

	require.NoError(t, idx.Disable(ctx, "user:*"))
	_, _, ok = idx.Registry.match("user:1")
	assert.False(t, ok, "cached match result must be invalidated on Disable")

	require.NoError(t, idx.Enable(ctx, "user:*"))
	_, _, ok = idx.Registry.match("user:1")
	assert.True(t, ok)
}

func TestStatusReportsAllRegisteredPatterns(t *testing.T) {
	ctx := context.Background()
	h := host.NewMemory()
	idx, err := New(context.Background(), h, 1)
	require.NoError(t, err)
	require.NoError(t, idx.Configure(ctx, "user:*", FormatFlat, []string{"name"}))
	require.NoError(t, idx.Configure(ctx, "order:*", FormatStructured, []string{"total"}))

	all := idx.Status("")
	require.Len(t, all, 2)
	assert.Equal(t, "user:*", all[0].Pattern)
	assert.Equal(t, "order:*", all[1].Pattern)

	single := idx.Status("order:*")
	require.Len(t, single, 1)
	assert.Equal(t, FormatStructured, single[0].Config.Format)
}

func TestParseFormatDefaultsToFlat(t *testing.T) {
	f, err := ParseFormat("")
	require.NoError(t, err)
	assert.Equal(t, FormatFlat, f)

	_, err = ParseFormat("bogus")
	assert.Error(t, err)
}
