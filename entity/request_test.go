package entity_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jacentio/strata/entity"
	"github.com/jacentio/strata/storage"
)

func TestNormalizeTopLevelTargetName(t *testing.T) {
	req, err := entity.Normalize(map[string]any{
		"targetName": "user",
		"payload":    map[string]any{"name": "Ada"},
		"actor":      "admin",
		"locale":     "de",
	})
	require.NoError(t, err)
	assert.Equal(t, "user", req.TargetName)
	assert.Equal(t, "Ada", req.Payload["name"])
	assert.Equal(t, "admin", req.Actor)
	assert.Equal(t, "de", req.Locale)
}

func TestNormalizeTargetNameInsidePayload(t *testing.T) {
	req, err := entity.Normalize(map[string]any{
		"payload": map[string]any{
			"targetName": "user",
			"name":       "Ada",
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "user", req.TargetName)
	assert.Equal(t, "Ada", req.Payload["name"])
	_, leaked := req.Payload["targetName"]
	assert.False(t, leaked, "targetName never survives as a record field")
}

func TestNormalizeDataEnvelope(t *testing.T) {
	req, err := entity.Normalize(map[string]any{
		"payload": map[string]any{
			"name": "outer",
			"data": map[string]any{
				"targetName": "user",
				"name":       "inner",
				"email":      "ada@example.com",
			},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "user", req.TargetName)
	assert.Equal(t, "inner", req.Payload["name"], "data entries overlay payload siblings")
	assert.Equal(t, "ada@example.com", req.Payload["email"])
	_, leaked := req.Payload["data"]
	assert.False(t, leaked)
}

func TestNormalizeTopLevelWinsOverPayload(t *testing.T) {
	req, err := entity.Normalize(map[string]any{
		"targetName": "order",
		"payload": map[string]any{
			"targetName": "user",
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "order", req.TargetName)
}

func TestNormalizeMissingTargetName(t *testing.T) {
	_, err := entity.Normalize(map[string]any{
		"payload": map[string]any{"name": "Ada"},
	})
	var serr *entity.ShapeError
	require.ErrorAs(t, err, &serr)
	assert.Contains(t, serr.Fields, "targetName")
}

func TestNormalizePersistOverride(t *testing.T) {
	req, err := entity.Normalize(map[string]any{
		"targetName": "user",
		"persist": map[string]any{
			"driver": "kv",
			"format": "jsonl",
		},
	})
	require.NoError(t, err)
	require.NotNil(t, req.Persist)
	assert.Equal(t, "kv", req.Persist.Driver)
	assert.Equal(t, "jsonl", req.Persist.Format)
}

func TestNormalizeEmptyPayload(t *testing.T) {
	req, err := entity.Normalize(map[string]any{"targetName": "user"})
	require.NoError(t, err)
	assert.NotNil(t, req.Payload)
	assert.Empty(t, req.Payload)
}

func TestOverrideApply(t *testing.T) {
	desc := storage.Descriptor{
		Driver: storage.KindFile,
		Path:   "data",
		File:   "users.json",
	}
	got, err := desc.Apply(&storage.Override{File: "alt.jsonl", Format: "jsonl"})
	require.NoError(t, err)
	assert.Equal(t, "alt.jsonl", got.File)
	assert.Equal(t, storage.FormatJSONL, got.Format)
	assert.Equal(t, "data", got.Path, "unset override fields leave the descriptor alone")
	assert.Equal(t, "id", got.KeyField, "apply renormalizes defaults")
}
