package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/burrowdb/burrow/pkg/storage"
)

func storageErrorResponse(t *testing.T, err error) (int, errorBody) {
	t.Helper()
	rec := httptest.NewRecorder()
	writeStorageError(rec, err, "users")

	var body errorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return rec.Code, body
}

func TestWriteStorageErrorMapping(t *testing.T) {
	code, body := storageErrorResponse(t, storage.ErrKeyNotFound)
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "Item not found", body.Error)

	code, body = storageErrorResponse(t, storage.ErrInvalidColumnFamily)
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "Collection not found", body.Error)
	assert.Equal(t, "users", body.Collection)

	code, body = storageErrorResponse(t, storage.ErrQuery)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "Invalid query", body.Error)
}

func TestWriteStorageErrorDefaultsTo500WithDetails(t *testing.T) {
	code, body := storageErrorResponse(t, errors.New("disk on fire"))
	assert.Equal(t, http.StatusInternalServerError, code)
	assert.Equal(t, "Internal server error", body.Error)
	assert.Contains(t, body.Details, "disk on fire")
}
