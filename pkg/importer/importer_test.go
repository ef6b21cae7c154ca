package importer

import (
	"errors"
	"io"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/burrowdb/burrow/pkg/log"
	"github.com/burrowdb/burrow/pkg/pubsub"
	"github.com/burrowdb/burrow/pkg/types"
)

func TestMain(m *testing.M) {
	log.Init(log.Config{Level: log.ErrorLevel, JSONOutput: true, Output: io.Discard})
	os.Exit(m.Run())
}

// memBatcher records batches; fail makes every BatchInsert call fail.
type memBatcher struct {
	batches [][]types.KeyValue
	pairs   []types.KeyValue
	fail    bool
}

func (m *memBatcher) BatchInsert(cf string, pairs []types.KeyValue) error {
	if m.fail {
		return errors.New("disk full")
	}
	m.batches = append(m.batches, pairs)
	m.pairs = append(m.pairs, pairs...)
	return nil
}

func TestRunImportsByKeyField(t *testing.T) {
	store := &memBatcher{}
	imp := New(store, pubsub.NewFabric())

	data := []byte(`[{"email":"a@x","n":1},{"email":"b@x","n":2}]`)
	result, err := imp.Run("tok-users", "users", data, "email")
	require.NoError(t, err)

	assert.Equal(t, 2, result.Imported)
	assert.Empty(t, result.Errors)
	require.Len(t, store.pairs, 2)
	assert.Equal(t, "a@x", store.pairs[0].Key)
	assert.Equal(t, "b@x", store.pairs[1].Key)
}

func TestRunNestedKeyPath(t *testing.T) {
	store := &memBatcher{}
	imp := New(store, pubsub.NewFabric())

	data := []byte(`[{"data":{"email":"a@x"}},{"data":{"email":"b@x"}}]`)
	result, err := imp.Run("tok-users", "users", data, "data.email")
	require.NoError(t, err)

	assert.Equal(t, 2, result.Imported)
	assert.Equal(t, "a@x", store.pairs[0].Key)
}

func TestRunNumericKeyIsStringified(t *testing.T) {
	store := &memBatcher{}
	imp := New(store, pubsub.NewFabric())

	data := []byte(`[{"id":42},{"id":7.5}]`)
	result, err := imp.Run("tok-users", "users", data, "id")
	require.NoError(t, err)

	assert.Equal(t, 2, result.Imported)
	assert.Equal(t, "42", store.pairs[0].Key)
	assert.Equal(t, "7.5", store.pairs[1].Key)
}

func TestRunFallsBackToPositionalKey(t *testing.T) {
	store := &memBatcher{}
	imp := New(store, pubsub.NewFabric())

	data := []byte(`[{"email":"a@x"},{"name":"no email"},{"email":{"nested":true}}]`)
	result, err := imp.Run("tok-users", "users", data, "email")
	require.NoError(t, err)

	assert.Equal(t, 3, result.Imported)
	assert.Equal(t, "a@x", store.pairs[0].Key)
	assert.Equal(t, "item_2", store.pairs[1].Key)
	assert.Equal(t, "item_3", store.pairs[2].Key)
	assert.Len(t, result.Errors, 2)
}

func TestRunWithoutKeyParamUsesPositionalKeys(t *testing.T) {
	store := &memBatcher{}
	imp := New(store, pubsub.NewFabric())

	data := []byte(`[{"n":1},{"n":2},{"n":3}]`)
	result, err := imp.Run("tok-users", "users", data, "")
	require.NoError(t, err)

	assert.Equal(t, 3, result.Imported)
	assert.Empty(t, result.Errors, "positional keys are not anomalies when no key field was requested")
	require.Len(t, store.pairs, 3)
	assert.Equal(t, "item_1", store.pairs[0].Key)
	assert.Equal(t, "item_3", store.pairs[2].Key)
}

func TestRunRejectsNonArray(t *testing.T) {
	imp := New(&memBatcher{}, pubsub.NewFabric())

	_, err := imp.Run("tok-users", "users", []byte(`{"not":"an array"}`), "id")
	assert.Error(t, err)

	_, err = imp.Run("tok-users", "users", []byte(`not json`), "id")
	assert.Error(t, err)
}

func TestRunRecordsBatchFailure(t *testing.T) {
	fabric := pubsub.NewFabric()
	sub := fabric.Subscribe("tok-users")
	imp := New(&memBatcher{fail: true}, fabric)

	data := []byte(`[{"id":1},{"id":2},{"id":3}]`)
	result, err := imp.Run("tok-users", "users", data, "id")
	require.NoError(t, err, "a failed batch is recorded, not returned")

	assert.Equal(t, 0, result.Imported)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "disk full")

	select {
	case e := <-sub.Events():
		t.Fatalf("no events expected for a failed batch, got %+v", e)
	default:
	}
}

func TestRunPublishesEventsToSubscribers(t *testing.T) {
	fabric := pubsub.NewFabric()
	sub := fabric.Subscribe("tok-users")
	imp := New(&memBatcher{}, fabric)

	data := []byte(`[{"id":1},{"id":2}]`)
	result, err := imp.Run("tok-users", "users", data, "id")
	require.NoError(t, err)
	require.Equal(t, 2, result.Imported)

	first := <-sub.Events()
	assert.Equal(t, types.OperationCreate, first.Operation)
	assert.Equal(t, "1", first.Key)
	second := <-sub.Events()
	assert.Equal(t, "2", second.Key)
}

func TestExtractKey(t *testing.T) {
	doc := map[string]any{"s": "str", "empty": "", "b": true}

	key, anomaly := extractKey(doc, "s", 0)
	assert.Equal(t, "str", key)
	assert.Empty(t, anomaly)

	key, anomaly = extractKey(doc, "", 0)
	assert.Equal(t, "item_1", key)
	assert.Empty(t, anomaly, "no key path requested, no anomaly")

	key, anomaly = extractKey(doc, "missing", 4)
	assert.Equal(t, "item_5", key)
	assert.NotEmpty(t, anomaly)

	key, _ = extractKey(doc, "b", 0)
	assert.Equal(t, "item_1", key, "booleans are not usable keys")

	key, _ = extractKey(doc, "empty", 2)
	assert.Equal(t, "item_3", key, "empty strings are not usable keys")
}
