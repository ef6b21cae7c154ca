package storage

import (
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/burrowdb/burrow/pkg/types"
)

func newTestStore(t *testing.T) *BoltStore {
	t.Helper()
	store, err := NewBoltStore(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestColumnFamilyLifecycle(t *testing.T) {
	store := newTestStore(t)

	assert.False(t, store.CFExists("users"))
	require.NoError(t, store.CreateCF("users"))
	assert.True(t, store.CFExists("users"))

	err := store.CreateCF("users")
	assert.ErrorIs(t, err, ErrInvalidColumnFamily)

	require.NoError(t, store.DropCF("users"))
	assert.False(t, store.CFExists("users"))

	err = store.DropCF("users")
	assert.ErrorIs(t, err, ErrInvalidColumnFamily)
}

func TestInsertGetRoundTrip(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.CreateCF("docs"))

	doc := map[string]any{"name": "Ada", "age": float64(36)}
	require.NoError(t, store.Insert("docs", "u1", doc))

	var got map[string]any
	require.NoError(t, store.Get("docs", "u1", &got))
	assert.Equal(t, doc, got)

	exists, err := store.Has("docs", "u1")
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = store.Has("docs", "missing")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestGetMissingKey(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.CreateCF("docs"))

	var got any
	err := store.Get("docs", "nope", &got)
	assert.ErrorIs(t, err, ErrKeyNotFound)
}

func TestUnknownColumnFamily(t *testing.T) {
	store := newTestStore(t)

	var got any
	assert.ErrorIs(t, store.Get("ghost", "k", &got), ErrInvalidColumnFamily)
	assert.ErrorIs(t, store.Insert("ghost", "k", "v"), ErrInvalidColumnFamily)
	assert.ErrorIs(t, store.Delete("ghost", "k"), ErrInvalidColumnFamily)

	_, err := store.GetRange("ghost", "", HighSentinel, Unbounded, Forward)
	assert.ErrorIs(t, err, ErrInvalidColumnFamily)
}

func TestDelete(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.CreateCF("docs"))
	require.NoError(t, store.Insert("docs", "k", "v"))

	require.NoError(t, store.Delete("docs", "k"))

	exists, err := store.Has("docs", "k")
	require.NoError(t, err)
	assert.False(t, exists)

	assert.ErrorIs(t, store.Delete("docs", "k"), ErrKeyNotFound)
}

func TestOverwriteIsLastWriterWins(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.CreateCF("docs"))

	require.NoError(t, store.Insert("docs", "k", map[string]any{"v": float64(1)}))
	require.NoError(t, store.Insert("docs", "k", map[string]any{"v": float64(2)}))

	var got map[string]any
	require.NoError(t, store.Get("docs", "k", &got))
	assert.Equal(t, float64(2), got["v"])
}

func TestBatchInsert(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.CreateCF("docs"))

	pairs := []types.KeyValue{
		{Key: "a", Value: map[string]any{"n": float64(1)}},
		{Key: "b", Value: map[string]any{"n": float64(2)}},
		{Key: "c", Value: map[string]any{"n": float64(3)}},
	}
	require.NoError(t, store.BatchInsert("docs", pairs))

	items, err := store.GetRangeWithKeys("docs", "", HighSentinel, Unbounded, Forward)
	require.NoError(t, err)
	require.Len(t, items, 3)
	assert.Equal(t, "a", items[0].Key)
	assert.Equal(t, "c", items[2].Key)
}

func seedRange(t *testing.T, store *BoltStore, cf string, n int) {
	t.Helper()
	require.NoError(t, store.CreateCF(cf))
	pairs := make([]types.KeyValue, 0, n)
	for i := 0; i < n; i++ {
		pairs = append(pairs, types.KeyValue{
			Key:   fmt.Sprintf("k%03d", i),
			Value: map[string]any{"i": float64(i)},
		})
	}
	require.NoError(t, store.BatchInsert(cf, pairs))
}

func TestRangeBounds(t *testing.T) {
	store := newTestStore(t)
	seedRange(t, store, "r", 10)

	// From is inclusive, to exclusive.
	items, err := store.GetRangeWithKeys("r", "k002", "k005", Unbounded, Forward)
	require.NoError(t, err)
	require.Len(t, items, 3)
	assert.Equal(t, "k002", items[0].Key)
	assert.Equal(t, "k004", items[2].Key)
}

func TestRangeLimitAndOrder(t *testing.T) {
	store := newTestStore(t)
	seedRange(t, store, "r", 10)

	items, err := store.GetRangeWithKeys("r", "", HighSentinel, 4, Forward)
	require.NoError(t, err)
	require.Len(t, items, 4)
	assert.Equal(t, "k000", items[0].Key)

	items, err = store.GetRangeWithKeys("r", "", HighSentinel, 4, Reverse)
	require.NoError(t, err)
	require.Len(t, items, 4)
	assert.Equal(t, "k009", items[0].Key)
	assert.Equal(t, "k006", items[3].Key)
}

func TestRangeLimitZeroIsEmpty(t *testing.T) {
	store := newTestStore(t)
	seedRange(t, store, "r", 10)

	// A limit of 0 means zero results, not Unbounded.
	items, err := store.GetRangeWithKeys("r", "", HighSentinel, 0, Forward)
	require.NoError(t, err)
	assert.Empty(t, items)

	values, err := store.GetRange("r", "", HighSentinel, 0, Reverse)
	require.NoError(t, err)
	assert.Empty(t, values)
}

func TestRangeValuesOnly(t *testing.T) {
	store := newTestStore(t)
	seedRange(t, store, "r", 3)

	values, err := store.GetRange("r", "", HighSentinel, Unbounded, Forward)
	require.NoError(t, err)
	require.Len(t, values, 3)
	first, ok := values[0].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, float64(0), first["i"])
}

func TestJSONPathQuery(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.CreateCF("bench"))

	pairs := make([]types.KeyValue, 0, 100)
	for i := 0; i < 100; i++ {
		pairs = append(pairs, types.KeyValue{
			Key:   fmt.Sprintf("u%03d", i),
			Value: map[string]any{"id": float64(i), "premium": i%2 == 0},
		})
	}
	require.NoError(t, store.BatchInsert("bench", pairs))

	docs, err := store.Query("bench", "$[?@.premium==true]")
	require.NoError(t, err)
	assert.Len(t, docs, 50)

	items, err := store.QueryWithKeys("bench", "$[?@.premium==true]")
	require.NoError(t, err)
	require.Len(t, items, 50)
	assert.Equal(t, "u000", items[0].Key)
}

func TestJSONPathQueryInvalid(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.CreateCF("docs"))

	_, err := store.Query("docs", "$[?premium ===")
	assert.ErrorIs(t, err, ErrQuery)
}

func TestSnapshotRoundTrip(t *testing.T) {
	store := newTestStore(t)
	seedRange(t, store, "src", 25)

	path := filepath.Join(t.TempDir(), "src.sst")
	require.NoError(t, store.CreateBackup("src", path))

	require.NoError(t, store.CreateCF("dst"))
	require.NoError(t, store.RestoreBackup("dst", path))

	items, err := store.GetRangeWithKeys("dst", "", HighSentinel, Unbounded, Forward)
	require.NoError(t, err)
	require.Len(t, items, 25)
	assert.Equal(t, "k000", items[0].Key)
	assert.Equal(t, "k024", items[24].Key)
}

func TestSize(t *testing.T) {
	store := newTestStore(t)
	seedRange(t, store, "s", 50)

	size, err := store.Size("s")
	require.NoError(t, err)
	// Small buckets may live inline and report under blob bytes.
	assert.Greater(t, size.SSTBytes+size.BlobBytes, int64(0))
}
