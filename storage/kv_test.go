package storage_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jacentio/strata/storage"
)

func kvDriver(t *testing.T) *storage.KeyValueDriver {
	t.Helper()
	drv, err := storage.NewKeyValueDriver(filepath.Join(t.TempDir(), "kv.db"))
	require.NoError(t, err)
	t.Cleanup(func() { drv.Close() })
	return drv
}

func kvTarget(t *testing.T, entity string, types map[string]string) storage.Target {
	t.Helper()
	tgt, err := storage.NewDispatcher().Target(entity, storage.Descriptor{Driver: storage.KindKeyValue}, types)
	require.NoError(t, err)
	return tgt
}

func TestKeyValueDriverAppendAndRead(t *testing.T) {
	ctx := context.Background()
	drv := kvDriver(t)
	tgt := kvTarget(t, "user", map[string]string{"age": "integer"})

	require.NoError(t, drv.Append(ctx, tgt, map[string]any{"id": "a", "age": 30}))
	require.NoError(t, drv.Append(ctx, tgt, map[string]any{"id": "b", "age": 41}))

	records, err := drv.Read(ctx, tgt)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "a", records[0]["id"], "reads replay insertion order")
	assert.Equal(t, int64(30), records[0]["age"], "declared integers cast on read")
}

func TestKeyValueDriverNamespacesEntities(t *testing.T) {
	ctx := context.Background()
	drv := kvDriver(t)
	users := kvTarget(t, "user", nil)
	orders := kvTarget(t, "order", nil)

	require.NoError(t, drv.Append(ctx, users, map[string]any{"id": "u1"}))
	require.NoError(t, drv.Append(ctx, orders, map[string]any{"id": "o1"}))

	records, err := drv.Read(ctx, users)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "u1", records[0]["id"])
}

func TestKeyValueDriverAppendOverwritesSameKey(t *testing.T) {
	ctx := context.Background()
	drv := kvDriver(t)
	tgt := kvTarget(t, "user", nil)

	require.NoError(t, drv.Append(ctx, tgt, map[string]any{"id": "a", "name": "Ada"}))
	require.NoError(t, drv.Append(ctx, tgt, map[string]any{"id": "a", "name": "Grace"}))

	records, err := drv.Read(ctx, tgt)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "Grace", records[0]["name"])
}

func TestKeyValueDriverMissingKey(t *testing.T) {
	drv := kvDriver(t)
	tgt := kvTarget(t, "user", nil)

	err := drv.Append(context.Background(), tgt, map[string]any{"name": "Ada"})
	require.ErrorIs(t, err, storage.ErrMissingKey)
}

func TestKeyValueDriverReplace(t *testing.T) {
	ctx := context.Background()
	drv := kvDriver(t)
	tgt := kvTarget(t, "user", nil)

	require.NoError(t, drv.Append(ctx, tgt, map[string]any{"id": "a"}))
	require.NoError(t, drv.Append(ctx, tgt, map[string]any{"id": "b"}))
	require.NoError(t, drv.Replace(ctx, tgt, []map[string]any{{"id": "c"}}))

	records, err := drv.Read(ctx, tgt)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "c", records[0]["id"])
}

func TestKeyValueDriverSnapshotRestore(t *testing.T) {
	ctx := context.Background()
	drv := kvDriver(t)
	tgt := kvTarget(t, "user", nil)

	require.NoError(t, drv.Append(ctx, tgt, map[string]any{"id": "a"}))
	snap, err := drv.Snapshot(ctx, tgt)
	require.NoError(t, err)

	require.NoError(t, drv.Append(ctx, tgt, map[string]any{"id": "b"}))
	require.NoError(t, drv.Restore(ctx, tgt, snap))

	records, err := drv.Read(ctx, tgt)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "a", records[0]["id"])
}
