package jsonbridge

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"automergekv/automerge"
)

func TestFromJSONRejectsNonObjectRoot(t *testing.T) {
	_, err := FromJSON([]byte(`[1,2,3]`))
	assert.Error(t, err)

	_, err = FromJSON([]byte(`"just a string"`))
	assert.Error(t, err)
}

func TestFromJSONEmptyObject(t *testing.T) {
	doc, err := FromJSON([]byte(`{}`))
	require.NoError(t, err)
	assert.Equal(t, 0, doc.NumChanges())
	assert.Equal(t, 0, doc.Root().Len())
}

func TestJSONRoundTripScalarsPreserveIntVsDouble(t *testing.T) {
	doc, err := FromJSON([]byte(`{"name":"Alice","age":30,"height":1.75,"active":true,"note":null}`))
	require.NoError(t, err)

	out, err := ToJSON(doc, false)
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal(out, &got))

	assert.Equal(t, "Alice", got["name"])
	assert.Equal(t, json.Number("30"), jsonNumber(t, out, "age"))
	assert.Equal(t, json.Number("1.75"), jsonNumber(t, out, "height"))
	assert.Equal(t, true, got["active"])
	assert.Nil(t, got["note"])
}

func jsonNumber(t *testing.T, data []byte, key string) json.Number {
	t.Helper()
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var m map[string]any
	require.NoError(t, dec.Decode(&m))
	n, ok := m[key].(json.Number)
	require.True(t, ok, "field %q is not a number", key)
	return n
}

func TestFromJSONNestedObjectsAndArrayOfObjects(t *testing.T) {
	input := `{"name":"Alice","age":30,"tags":["r","v"],"address":{"city":"NYC","zip":10001},"team":[{"name":"Bob"},{"name":"Carol"}]}`
	doc, err := FromJSON([]byte(input))
	require.NoError(t, err)

	out, err := ToJSON(doc, false)
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal(out, &got))

	assert.Equal(t, "Alice", got["name"])
	assert.Equal(t, []any{"r", "v"}, got["tags"])
	assert.Equal(t, map[string]any{"city": "NYC", "zip": float64(10001)}, got["address"])
	assert.Equal(t, []any{
		map[string]any{"name": "Bob"},
		map[string]any{"name": "Carol"},
	}, got["team"])
}

func TestToJSONPrettyIndents(t *testing.T) {
	doc, err := FromJSON([]byte(`{"a":1}`))
	require.NoError(t, err)

	compact, err := ToJSON(doc, false)
	require.NoError(t, err)
	pretty, err := ToJSON(doc, true)
	require.NoError(t, err)

	assert.NotContains(t, string(compact), "\n")
	assert.Contains(t, string(pretty), "\n")
}

func TestToJSONRendersCounterAndTimestamp(t *testing.T) {
	doc := automerge.New(automerge.NewSessionID())
	tx := doc.Begin()
	require.NoError(t, tx.SetField([]automerge.PathSeg{automerge.FieldSeg("views")}, automerge.KindCounter, int64(5)))
	require.NoError(t, tx.IncCounter([]automerge.PathSeg{automerge.FieldSeg("views")}, 2))
	require.NoError(t, tx.SetField([]automerge.PathSeg{automerge.FieldSeg("created")}, automerge.KindTimestamp, int64(1704067200123)))
	require.NoError(t, tx.SetField([]automerge.PathSeg{automerge.FieldSeg("rounded")}, automerge.KindTimestamp, int64(1704067200000)))
	_, err := tx.Commit()
	require.NoError(t, err)

	out, err := ToJSON(doc, false)
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal(out, &got))
	assert.Equal(t, float64(7), got["views"])
	assert.Equal(t, "2024-01-01T00:00:00.123+00:00", got["created"])
	assert.Equal(t, "2024-01-01T00:00:00+00:00", got["rounded"])
}
