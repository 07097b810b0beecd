package storage_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jacentio/strata/storage"
)

func TestJSONCodecRoundTrip(t *testing.T) {
	codec := &storage.JSONCodec{Types: map[string]string{"age": "integer"}}

	data, err := codec.Encode([]map[string]any{
		{"id": "a", "age": int64(30)},
		{"id": "b", "age": int64(41)},
	})
	require.NoError(t, err)

	records, err := codec.Decode(data)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "a", records[0]["id"])
	assert.Equal(t, int64(30), records[0]["age"], "declared integers come back as int64, not float64")
}

func TestJSONCodecEmptyDocument(t *testing.T) {
	codec := &storage.JSONCodec{}

	records, err := codec.Decode(nil)
	require.NoError(t, err)
	assert.Nil(t, records)

	data, err := codec.Encode(nil)
	require.NoError(t, err)
	assert.Equal(t, "[]\n", string(data))
}

func TestJSONLCodecRoundTrip(t *testing.T) {
	codec := &storage.JSONLCodec{}

	data, err := codec.Encode([]map[string]any{
		{"id": "a"},
		{"id": "b"},
	})
	require.NoError(t, err)

	records, err := codec.Decode(data)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "b", records[1]["id"])
}

func TestJSONLCodecSkipsBlankLines(t *testing.T) {
	codec := &storage.JSONLCodec{}
	records, err := codec.Decode([]byte("{\"id\":\"a\"}\n\n{\"id\":\"b\"}\n"))
	require.NoError(t, err)
	assert.Len(t, records, 2)
}

func TestCSVCodecRoundTrip(t *testing.T) {
	codec := &storage.CSVCodec{
		Headers: []string{"id", "name", "tags", "meta_source"},
		Types:   map[string]string{"tags": "array"},
	}

	data, err := codec.Encode([]map[string]any{
		{
			"id":   "u1",
			"name": "Ada, the first",
			"tags": []any{"a", "b"},
			"meta": map[string]any{"source": "api"},
		},
	})
	require.NoError(t, err)

	records, err := codec.Decode(data)
	require.NoError(t, err)
	require.Len(t, records, 1)

	got := records[0]
	assert.Equal(t, "Ada, the first", got["name"], "commas survive quoting")
	assert.Equal(t, []any{"a", "b"}, got["tags"], "array cells decode from embedded JSON")
	meta, ok := got["meta"].(map[string]any)
	require.True(t, ok, "meta_* columns fold back into the meta object")
	assert.Equal(t, "api", meta["source"])
}

func TestCSVCodecHeaderMismatch(t *testing.T) {
	codec := &storage.CSVCodec{Headers: []string{"id", "name"}}

	_, err := codec.Decode([]byte("name,id\nAda,u1\n"))
	require.Error(t, err)

	var mismatch *storage.HeaderMismatchError
	require.ErrorAs(t, err, &mismatch, "reordered headers are not accepted")
	assert.Equal(t, []string{"id", "name"}, mismatch.Declared)
	assert.Equal(t, []string{"name", "id"}, mismatch.Actual)
}

func TestCSVCodecMissingCells(t *testing.T) {
	codec := &storage.CSVCodec{Headers: []string{"id", "name", "nick"}}

	records, err := codec.Decode([]byte("id,name,nick\nu1,Ada,\n"))
	require.NoError(t, err)
	require.Len(t, records, 1)
	_, present := records[0]["nick"]
	assert.False(t, present, "empty cells stay absent instead of empty strings")
}

func TestCastRecord(t *testing.T) {
	tests := []struct {
		name  string
		typ   string
		value any
		want  any
	}{
		{"integer from string", "integer", "42", int64(42)},
		{"integer from float", "integer", float64(42), int64(42)},
		{"number from string", "number", "4.5", 4.5},
		{"boolean from string", "boolean", "true", true},
		{"array from json", "array", `["x"]`, []any{"x"}},
		{"object from json", "object", `{"k":1}`, map[string]any{"k": float64(1)}},
		{"unconvertible left alone", "integer", "nope", "nope"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			record := map[string]any{"f": tt.value}
			storage.CastRecord(record, map[string]string{"f": tt.typ})
			assert.Equal(t, tt.want, record["f"])
		})
	}
}
