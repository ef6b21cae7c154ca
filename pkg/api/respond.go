package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/burrowdb/burrow/pkg/log"
	"github.com/burrowdb/burrow/pkg/storage"
)

// errorBody is the wire shape of every error response. Details carries the
// underlying cause for 5xx responses only.
type errorBody struct {
	Error      string `json:"error"`
	Details    string `json:"details,omitempty"`
	Collection string `json:"collection,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorBody{Error: msg})
}

// writeStorageError maps a storage-facade error onto the HTTP surface:
// unknown keys and column families are 404, query parse failures 400, and
// everything else a 500 carrying the cause in details.
func writeStorageError(w http.ResponseWriter, err error, collection string) {
	switch {
	case errors.Is(err, storage.ErrKeyNotFound):
		writeJSON(w, http.StatusNotFound, errorBody{Error: "Item not found"})
	case errors.Is(err, storage.ErrInvalidColumnFamily):
		writeJSON(w, http.StatusNotFound, errorBody{Error: "Collection not found", Collection: collection})
	case errors.Is(err, storage.ErrQuery):
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "Invalid query", Details: err.Error()})
	default:
		logger := log.WithComponent("api")
		logger.Error().Err(err).Str("collection", collection).Msg("request failed")
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "Internal server error", Details: err.Error()})
	}
}
