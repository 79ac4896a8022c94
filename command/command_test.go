package command

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"automergekv/binding"
	"automergekv/changesync"
	"automergekv/host"
	"automergekv/shadowindex"
)

func newDispatcher(t *testing.T) *Dispatcher {
	t.Helper()
	h := host.NewMemory()
	b := binding.New(h)
	sync := changesync.New(b)
	idx, err := shadowindex.New(context.Background(), h, 1)
	require.NoError(t, err)
	return New(b, sync, idx)
}

func TestNewPutTextGetTextRoundTrip(t *testing.T) {
	ctx := context.Background()
	d := newDispatcher(t)

	reply, err := d.Dispatch(ctx, "NEW", []string{"user:1"})
	require.NoError(t, err)
	assert.Equal(t, "OK", reply)

	reply, err = d.Dispatch(ctx, "puttext", []string{"user:1", "name", "Ada"})
	require.NoError(t, err)
	assert.Equal(t, "OK", reply)

	reply, err = d.Dispatch(ctx, "GETTEXT", []string{"user:1", "name"})
	require.NoError(t, err)
	assert.Equal(t, "Ada", reply)
}

func TestGetTextOnMissingFieldReturnsNil(t *testing.T) {
	ctx := context.Background()
	d := newDispatcher(t)
	_, err := d.Dispatch(ctx, "NEW", []string{"doc1"})
	require.NoError(t, err)

	reply, err := d.Dispatch(ctx, "GETTEXT", []string{"doc1", "missing"})
	require.NoError(t, err)
	assert.Nil(t, reply)
}

func TestIncCounterAccumulates(t *testing.T) {
	ctx := context.Background()
	d := newDispatcher(t)
	_, err := d.Dispatch(ctx, "NEW", []string{"doc1"})
	require.NoError(t, err)
	_, err = d.Dispatch(ctx, "PUTCOUNTER", []string{"doc1", "score", "0"})
	require.NoError(t, err)
	_, err = d.Dispatch(ctx, "INCCOUNTER", []string{"doc1", "score", "5"})
	require.NoError(t, err)
	_, err = d.Dispatch(ctx, "INCCOUNTER", []string{"doc1", "score", "2"})
	require.NoError(t, err)

	reply, err := d.Dispatch(ctx, "GETCOUNTER", []string{"doc1", "score"})
	require.NoError(t, err)
	assert.Equal(t, int64(7), reply)
}

func TestDeleteReportsWhetherFieldExisted(t *testing.T) {
	ctx := context.Background()
	d := newDispatcher(t)
	_, err := d.Dispatch(ctx, "NEW", []string{"doc1"})
	require.NoError(t, err)
	_, err = d.Dispatch(ctx, "PUTTEXT", []string{"doc1", "name", "Ada"})
	require.NoError(t, err)

	reply, err := d.Dispatch(ctx, "DELETE", []string{"doc1", "name"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), reply)

	reply, err = d.Dispatch(ctx, "DELETE", []string{"doc1", "name"})
	require.NoError(t, err)
	assert.Equal(t, int64(0), reply)
}

func TestToJSONFromJSONRoundTrip(t *testing.T) {
	ctx := context.Background()
	d := newDispatcher(t)
	_, err := d.Dispatch(ctx, "FROMJSON", []string{"doc1", `{"name":"Ada","age":30}`})
	require.NoError(t, err)

	reply, err := d.Dispatch(ctx, "TOJSON", []string{"doc1"})
	require.NoError(t, err)
	text, ok := reply.(string)
	require.True(t, ok)
	assert.Contains(t, text, `"name":"Ada"`)
	assert.Contains(t, text, `"age":30`)
}

func TestApplyMergesChangesAcrossDispatchers(t *testing.T) {
	ctx := context.Background()
	d1 := newDispatcher(t)
	d2 := newDispatcher(t)

	_, err := d1.Dispatch(ctx, "NEW", []string{"doc1"})
	require.NoError(t, err)
	_, err = d1.Dispatch(ctx, "PUTTEXT", []string{"doc1", "name", "Ada"})
	require.NoError(t, err)

	reply, err := d1.Dispatch(ctx, "CHANGES", []string{"doc1"})
	require.NoError(t, err)
	frames, ok := reply.([][]byte)
	require.True(t, ok)
	require.Len(t, frames, 1)

	args := append([]string{"doc1"}, string(frames[0]))
	applied, err := d2.Dispatch(ctx, "APPLY", args)
	require.NoError(t, err)
	assert.Equal(t, int64(1), applied)

	got, err := d2.Dispatch(ctx, "GETTEXT", []string{"doc1", "name"})
	require.NoError(t, err)
	assert.Equal(t, "Ada", got)
}

func TestShadowIndexReindexesOnMutation(t *testing.T) {
	ctx := context.Background()
	h := host.NewMemory()
	b := binding.New(h)
	sync := changesync.New(b)
	idx, err := shadowindex.New(context.Background(), h, 1)
	require.NoError(t, err)
	d := New(b, sync, idx)

	_, err = d.Dispatch(ctx, "INDEX.CONFIGURE", []string{"user:*", "--format", "flat", "name"})
	require.NoError(t, err)

	_, err = d.Dispatch(ctx, "NEW", []string{"user:1"})
	require.NoError(t, err)
	_, err = d.Dispatch(ctx, "PUTTEXT", []string{"user:1", "name", "Ada"})
	require.NoError(t, err)

	fields, ok, err := h.GetBytesMap(ctx, "idx:user:1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "Ada", fields["name"])
}

func TestIndexStatusReportsConfiguredPattern(t *testing.T) {
	ctx := context.Background()
	d := newDispatcher(t)
	_, err := d.Dispatch(ctx, "INDEX.CONFIGURE", []string{"order:*", "total"})
	require.NoError(t, err)

	reply, err := d.Dispatch(ctx, "INDEX.STATUS", []string{"order:*"})
	require.NoError(t, err)
	entries, ok := reply.([]shadowindex.Entry)
	require.True(t, ok)
	require.Len(t, entries, 1)
	assert.Equal(t, shadowindex.FormatFlat, entries[0].Config.Format)
}

// TestShadowProjectionFlatScenario reproduces spec.md §8 scenario 6
// verbatim: INDEX.CONFIGURE article:* title author.name -> NEW
// article:1 -> PUTTEXT article:1 title "T" -> PUTTEXT article:1
// author.name "A" -> idx:article:1 has title=T, author_name=A.
func TestShadowProjectionFlatScenario(t *testing.T) {
	ctx := context.Background()
	h := host.NewMemory()
	b := binding.New(h)
	sync := changesync.New(b)
	idx, err := shadowindex.New(ctx, h, 1)
	require.NoError(t, err)
	d := New(b, sync, idx)

	_, err = d.Dispatch(ctx, "INDEX.CONFIGURE", []string{"article:*", "title", "author.name"})
	require.NoError(t, err)
	_, err = d.Dispatch(ctx, "NEW", []string{"article:1"})
	require.NoError(t, err)
	_, err = d.Dispatch(ctx, "PUTTEXT", []string{"article:1", "title", "T"})
	require.NoError(t, err)
	_, err = d.Dispatch(ctx, "PUTTEXT", []string{"article:1", "author.name", "A"})
	require.NoError(t, err)

	fields, ok, err := h.GetBytesMap(ctx, "idx:article:1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "T", fields["title"])
	assert.Equal(t, "A", fields["author_name"])
}

func TestMarkCreateAndClearRoundTripWithExpand(t *testing.T) {
	ctx := context.Background()
	d := newDispatcher(t)
	_, err := d.Dispatch(ctx, "NEW", []string{"doc1"})
	require.NoError(t, err)
	_, err = d.Dispatch(ctx, "PUTTEXT", []string{"doc1", "body", "Hello World"})
	require.NoError(t, err)

	reply, err := d.Dispatch(ctx, "MARKCREATE", []string{"doc1", "body", "bold", "true", "0", "5", "both"})
	require.NoError(t, err)
	assert.Equal(t, "OK", reply)

	reply, err = d.Dispatch(ctx, "MARKCLEAR", []string{"doc1", "body", "bold", "0", "5", "both"})
	require.NoError(t, err)
	assert.Equal(t, "OK", reply)

	reply, err = d.Dispatch(ctx, "MARKCLEAR", []string{"doc1", "body", "bold", "0", "5"})
	require.NoError(t, err)
	assert.Equal(t, "OK", reply)
}

func TestUnknownCommandIsBadArgs(t *testing.T) {
	ctx := context.Background()
	d := newDispatcher(t)
	_, err := d.Dispatch(ctx, "BOGUS", nil)
	assert.Error(t, err)
}
