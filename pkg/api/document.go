package api

import (
	"encoding/json"
	"net/http"

	"github.com/julienschmidt/httprouter"

	"github.com/burrowdb/burrow/pkg/metrics"
	"github.com/burrowdb/burrow/pkg/types"
)

// keyExists answers HEAD /api/{collection}/{key}.
func (s *Server) keyExists(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	res := resolved(r, ps.ByName("collection"))
	exists, err := s.store.Has(res.InternalName, ps.ByName("key"))
	if err != nil || !exists {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusOK)
}

// getKey answers GET /api/{collection}/{key} with the stored document.
func (s *Server) getKey(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	res := resolved(r, ps.ByName("collection"))

	var doc any
	if err := s.store.Get(res.InternalName, ps.ByName("key"), &doc); err != nil {
		writeStorageError(w, err, res.UserName)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

// putKey answers PUT /api/{collection}/{key}: insert or overwrite a JSON
// document and notify subscribers.
func (s *Server) putKey(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	res := resolved(r, ps.ByName("collection"))
	key := ps.ByName("key")

	var doc any
	if err := json.NewDecoder(r.Body).Decode(&doc); err != nil {
		writeError(w, http.StatusBadRequest, "Parsing failed. Value is not in JSON Format")
		return
	}

	existed, err := s.store.Has(res.InternalName, key)
	if err != nil {
		writeStorageError(w, err, res.UserName)
		return
	}
	if err := s.store.Insert(res.InternalName, key, doc); err != nil {
		writeStorageError(w, err, res.UserName)
		return
	}
	metrics.DocumentsWritten.Inc()

	op := types.OperationCreate
	status := http.StatusCreated
	if existed {
		op = types.OperationUpdate
		status = http.StatusOK
	}
	s.publish(res.InternalName, types.Event{Operation: op, Key: key, Value: doc})

	writeJSON(w, status, doc)
}

// deleteKey answers DELETE /api/{collection}/{key}.
func (s *Server) deleteKey(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	res := resolved(r, ps.ByName("collection"))
	key := ps.ByName("key")

	if err := s.store.Delete(res.InternalName, key); err != nil {
		writeStorageError(w, err, res.UserName)
		return
	}
	metrics.DocumentsDeleted.Inc()
	s.publish(res.InternalName, types.Event{Operation: types.OperationDelete, Key: key})

	writeJSON(w, http.StatusOK, map[string]any{"message": "Item deleted successfully"})
}

// batchInsert answers PUT /api/{collection}/_batch: all pairs commit
// atomically or none do.
func (s *Server) batchInsert(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	res := resolved(r, ps.ByName("collection"))

	var pairs []types.KeyValue
	if err := json.NewDecoder(r.Body).Decode(&pairs); err != nil {
		writeError(w, http.StatusBadRequest, "Parsing failed. Value is not in JSON Format")
		return
	}
	if len(pairs) == 0 {
		writeError(w, http.StatusBadRequest, "Batch must not be empty")
		return
	}

	if err := s.store.BatchInsert(res.InternalName, pairs); err != nil {
		writeStorageError(w, err, res.UserName)
		return
	}
	metrics.DocumentsWritten.Add(float64(len(pairs)))
	for _, pair := range pairs {
		s.publish(res.InternalName, types.Event{Operation: types.OperationCreate, Key: pair.Key, Value: pair.Value})
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"message":    "Batch inserted successfully",
		"count":      len(pairs),
		"collection": res.UserName,
	})
}

// publish fans a mutation event out to the collection's subscribers. Storage
// writes always precede the publish.
func (s *Server) publish(internalName string, event types.Event) {
	s.fabric.Publish(internalName, event)
	metrics.EventsPublished.Inc()
}
