package docops

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"automergekv/automerge"
)

func newOps() *Operations {
	return New(automerge.New(automerge.NewSessionID()))
}

func TestCounterScenario(t *testing.T) {
	ops := newOps()
	require.NoError(t, ops.PutCounter("views", 0))
	require.NoError(t, ops.IncCounter("views", 5))
	require.NoError(t, ops.IncCounter("views", 3))

	v, ok, err := ops.GetCounter("views")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, int64(8), v)

	require.NoError(t, ops.IncCounter("views", -2))
	v, _, _ = ops.GetCounter("views")
	assert.Equal(t, int64(6), v)
}

func TestTextSpliceScenario(t *testing.T) {
	ops := newOps()
	require.NoError(t, ops.PutText("g", "Hello World"))
	require.NoError(t, ops.SpliceText("g", 6, 5, "Rust"))

	v, ok, err := ops.GetText("g")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "Hello Rust", v)
}

func TestMarkCreateAutoCoercesString(t *testing.T) {
	ops := newOps()
	require.NoError(t, ops.PutText("content", "Hello World"))
	require.NoError(t, ops.MarkCreate("content", "bold", true, 0, 5, automerge.ExpandNone))

	marks, err := ops.MarkList("content")
	require.NoError(t, err)
	require.Len(t, marks, 1)
	assert.Equal(t, "bold", marks[0].Name)
	assert.Equal(t, true, marks[0].Value)
	assert.Equal(t, 0, marks[0].Start)
	assert.Equal(t, 5, marks[0].End)
}

func TestMarkClearRemovesOverlappingMark(t *testing.T) {
	ops := newOps()
	require.NoError(t, ops.PutText("content", "Hello World"))
	require.NoError(t, ops.MarkCreate("content", "bold", true, 0, 5, automerge.ExpandNone))
	require.NoError(t, ops.MarkClear("content", "bold", 2, 7, automerge.ExpandNone))

	marks, err := ops.MarkList("content")
	require.NoError(t, err)
	assert.Empty(t, marks)
}

func TestMarkClearDistantRangeLeavesMarkAlone(t *testing.T) {
	ops := newOps()
	require.NoError(t, ops.PutText("content", "Hello World"))
	require.NoError(t, ops.MarkCreate("content", "bold", true, 0, 2, automerge.ExpandNone))

	// [8,11) is nowhere near [0,2); expand only widens the clear range
	// by one character on its named side, nowhere close enough to reach
	// the mark under any Expand value.
	for _, expand := range []automerge.Expand{automerge.ExpandNone, automerge.ExpandBefore, automerge.ExpandAfter, automerge.ExpandBoth} {
		require.NoError(t, ops.MarkClear("content", "bold", 8, 11, expand))
	}

	marks, err := ops.MarkList("content")
	require.NoError(t, err)
	require.Len(t, marks, 1, "a clear far outside the mark's range must not touch it")
}

func TestPutIntoNestedMapMaterializes(t *testing.T) {
	ops := newOps()
	require.NoError(t, ops.PutText("author.name", "Ada"))
	v, ok, err := ops.GetText("author.name")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "Ada", v)
}

func TestWriteThroughScalarIsPathTypeMismatch(t *testing.T) {
	ops := newOps()
	require.NoError(t, ops.PutInt("a", 1))
	err := ops.PutText("a.b", "x")
	var mismatch *PathTypeMismatchError
	assert.ErrorAs(t, err, &mismatch)
}

func TestIncCounterOnNonCounterIsTypeMismatch(t *testing.T) {
	ops := newOps()
	require.NoError(t, ops.PutInt("a", 1))
	err := ops.IncCounter("a", 1)
	var mismatch *TypeMismatchError
	assert.ErrorAs(t, err, &mismatch)
}

func TestAppendRequiresExistingList(t *testing.T) {
	ops := newOps()
	err := ops.AppendText("tags", "x")
	var mismatch *TypeMismatchError
	assert.ErrorAs(t, err, &mismatch)

	require.NoError(t, ops.CreateList("tags"))
	require.NoError(t, ops.AppendText("tags", "r"))
	require.NoError(t, ops.AppendText("tags", "v"))
	n, ok, err := ops.ListLen("tags")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 2, n)
}

func TestListLenMapLenSymmetry(t *testing.T) {
	ops := newOps()
	require.NoError(t, ops.PutText("author.name", "Ada"))

	n, ok, err := ops.MapLen("author")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 1, n)

	n, ok, err = ops.ListLen("author")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 1, n)

	_, ok, err = ops.ListLen("missing")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestDeleteIsNoOpOnMissingAndRoot(t *testing.T) {
	ops := newOps()
	removed, err := ops.Delete("")
	require.NoError(t, err)
	assert.False(t, removed)

	removed, err = ops.Delete("missing.field")
	require.NoError(t, err)
	assert.False(t, removed)

	require.NoError(t, ops.PutInt("a", 1))
	removed, err = ops.Delete("a")
	require.NoError(t, err)
	assert.True(t, removed)
	_, ok, _ := ops.GetInt("a")
	assert.False(t, ok)
}

func TestDeleteListIndexShifts(t *testing.T) {
	ops := newOps()
	require.NoError(t, ops.CreateList("tags"))
	require.NoError(t, ops.AppendText("tags", "a"))
	require.NoError(t, ops.AppendText("tags", "b"))
	require.NoError(t, ops.AppendText("tags", "c"))

	removed, err := ops.Delete("tags[1]")
	require.NoError(t, err)
	assert.True(t, removed)

	n, _, _ := ops.ListLen("tags")
	assert.Equal(t, 2, n)
}

func TestPutDiffProducesAnchoredSplices(t *testing.T) {
	ops := newOps()
	require.NoError(t, ops.PutText("name", "Alpha"))

	unified := "--- a\n+++ b\n@@ -1 +1 @@\n-Alpha\n+Beta\n"
	require.NoError(t, ops.PutDiff("name", unified))

	v, ok, err := ops.GetText("name")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "Beta", v)
}

func TestBadPathIsClassified(t *testing.T) {
	ops := newOps()
	_, _, err := ops.GetInt("a[x]")
	var bad *BadPathError
	assert.ErrorAs(t, err, &bad)
}
