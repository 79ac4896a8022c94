package automerge

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTxSetFieldMaterializesIntermediateMaps(t *testing.T) {
	doc := New(NewSessionID())
	tx := doc.Begin()

	path := []PathSeg{FieldSeg("profile"), FieldSeg("name")}
	require.NoError(t, tx.SetField(path, KindString, "ada"))
	_, err := tx.Commit()
	require.NoError(t, err)

	profile := doc.Root().Get("profile")
	require.NotNil(t, profile)
	assert.Equal(t, KindMap, profile.Kind())
	name := profile.(*MapNode).Get("name")
	require.NotNil(t, name)
	assert.Equal(t, "ada", name.Value())
	assert.Equal(t, 1, doc.NumChanges())
}

func TestTxSetFieldThroughScalarFails(t *testing.T) {
	doc := New(NewSessionID())
	tx := doc.Begin()
	require.NoError(t, tx.SetField([]PathSeg{FieldSeg("x")}, KindInt, int64(1)))
	_, err := tx.Commit()
	require.NoError(t, err)

	tx2 := doc.Begin()
	err = tx2.SetField([]PathSeg{FieldSeg("x"), FieldSeg("y")}, KindString, "z")
	assert.Error(t, err)
}

func TestApplyChangeIsIdempotent(t *testing.T) {
	a := New(NewSessionID())
	tx := a.Begin()
	require.NoError(t, tx.SetField([]PathSeg{FieldSeg("k")}, KindInt, int64(42)))
	change, err := tx.Commit()
	require.NoError(t, err)

	b := New(NewSessionID())
	require.NoError(t, b.ApplyChange(change))
	require.NoError(t, b.ApplyChange(change)) // re-apply is a no-op
	assert.Equal(t, 1, b.NumChanges())
	assert.Equal(t, int64(42), b.Root().Get("k").Value())
}

func TestApplyChangeRejectsMissingDeps(t *testing.T) {
	a := New(NewSessionID())
	tx1 := a.Begin()
	require.NoError(t, tx1.SetField([]PathSeg{FieldSeg("a")}, KindInt, int64(1)))
	_, err := tx1.Commit()
	require.NoError(t, err)

	tx2 := a.Begin()
	require.NoError(t, tx2.SetField([]PathSeg{FieldSeg("b")}, KindInt, int64(2)))
	change2, err := tx2.Commit()
	require.NoError(t, err)

	b := New(NewSessionID())
	err = b.ApplyChange(change2)
	var missing ErrMissingDeps
	require.ErrorAs(t, err, &missing)
	assert.Len(t, missing.Missing, 1)
}

func TestCounterIncrementsCommute(t *testing.T) {
	doc := New(NewSessionID())
	tx := doc.Begin()
	require.NoError(t, tx.SetField([]PathSeg{FieldSeg("score")}, KindCounter, int64(0)))
	_, err := tx.Commit()
	require.NoError(t, err)

	tx2 := doc.Begin()
	require.NoError(t, tx2.IncCounter([]PathSeg{FieldSeg("score")}, 5))
	_, err = tx2.Commit()
	require.NoError(t, err)

	tx3 := doc.Begin()
	require.NoError(t, tx3.IncCounter([]PathSeg{FieldSeg("score")}, 3))
	_, err = tx3.Commit()
	require.NoError(t, err)

	assert.Equal(t, int64(8), doc.Root().Get("score").Value())
}

func TestListAppendAndDelete(t *testing.T) {
	doc := New(NewSessionID())
	tx := doc.Begin()
	path := []PathSeg{FieldSeg("items")}
	require.NoError(t, tx.CreateList(path))
	require.NoError(t, tx.ListAppend(path, KindString, "a"))
	require.NoError(t, tx.ListAppend(path, KindString, "b"))
	_, err := tx.Commit()
	require.NoError(t, err)

	list := doc.Root().Get("items").(*ListNode)
	assert.Equal(t, 2, list.Len())

	tx2 := doc.Begin()
	require.NoError(t, tx2.ListDelete(path, 0))
	_, err = tx2.Commit()
	require.NoError(t, err)
	assert.Equal(t, 1, list.Len())
	v, _ := list.Get(0)
	assert.Equal(t, "b", v.Value())
}

func TestSpliceTextCoercesPlainString(t *testing.T) {
	doc := New(NewSessionID())
	tx := doc.Begin()
	path := []PathSeg{FieldSeg("bio")}
	require.NoError(t, tx.SetField(path, KindString, "hello"))
	require.NoError(t, tx.SpliceText(path, 5, 0, " world"))
	_, err := tx.Commit()
	require.NoError(t, err)

	bio := doc.Root().Get("bio")
	require.Equal(t, KindText, bio.Kind())
	assert.Equal(t, "hello world", bio.Value())
}

func TestMarksSurviveConcurrentInsertAtBoundary(t *testing.T) {
	doc := New(NewSessionID())
	tx := doc.Begin()
	path := []PathSeg{FieldSeg("bio")}
	require.NoError(t, tx.SpliceText(path, 0, 0, "hello"))
	require.NoError(t, tx.AddMark(path, "bold", true, 0, 5, ExpandNone))
	_, err := tx.Commit()
	require.NoError(t, err)

	tx2 := doc.Begin()
	require.NoError(t, tx2.SpliceText(path, 0, 0, ">>"))
	_, err = tx2.Commit()
	require.NoError(t, err)

	text := doc.Root().Get("bio").(*TextNode)
	spans := text.ActiveMarks()
	require.Len(t, spans, 1)
	assert.Equal(t, "bold", spans[0].Name)
	assert.Equal(t, ">>hello", text.String())
	assert.Equal(t, 2, spans[0].Start)
	assert.Equal(t, 7, spans[0].End)
}

func TestHeadsAndChangesSinceHave(t *testing.T) {
	doc := New(NewSessionID())
	tx1 := doc.Begin()
	require.NoError(t, tx1.SetField([]PathSeg{FieldSeg("a")}, KindInt, int64(1)))
	c1, err := tx1.Commit()
	require.NoError(t, err)

	haveBefore := doc.Heads()

	tx2 := doc.Begin()
	require.NoError(t, tx2.SetField([]PathSeg{FieldSeg("b")}, KindInt, int64(2)))
	c2, err := tx2.Commit()
	require.NoError(t, err)

	assert.Equal(t, []ChangeHash{c2.Hash}, doc.Heads())

	since := doc.Changes(haveBefore)
	require.Len(t, since, 1)
	assert.Equal(t, c2.Hash, since[0].Hash)

	all := doc.Changes(nil)
	require.Len(t, all, 2)
	_ = c1
}

func TestSaveLoadRoundTrips(t *testing.T) {
	doc := New(NewSessionID())
	tx := doc.Begin()
	require.NoError(t, tx.SetField([]PathSeg{FieldSeg("profile"), FieldSeg("name")}, KindString, "ada"))
	_, err := tx.Commit()
	require.NoError(t, err)

	data, err := doc.Save()
	require.NoError(t, err)

	loaded, err := Load(data)
	require.NoError(t, err)
	assert.Equal(t, doc.NumChanges(), loaded.NumChanges())
	assert.ElementsMatch(t, doc.Heads(), loaded.Heads())

	profile := loaded.Root().Get("profile").(*MapNode)
	assert.Equal(t, "ada", profile.Get("name").Value())
}

func TestGetDiffIsDeterministic(t *testing.T) {
	doc := New(NewSessionID())
	tx1 := doc.Begin()
	require.NoError(t, tx1.SetField([]PathSeg{FieldSeg("a")}, KindInt, int64(1)))
	_, err := tx1.Commit()
	require.NoError(t, err)

	have := doc.Heads()

	tx2 := doc.Begin()
	require.NoError(t, tx2.SetField([]PathSeg{FieldSeg("b")}, KindInt, int64(2)))
	_, err = tx2.Commit()
	require.NoError(t, err)

	diff1 := doc.GetDiff(have)
	diff2 := doc.GetDiff(have)
	require.Equal(t, diff1, diff2)
	require.Len(t, diff1, 1)
	assert.Equal(t, "put", diff1[0].Action)
	assert.Equal(t, "b", diff1[0].Path)
}
