package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/julienschmidt/httprouter"

	"github.com/burrowdb/burrow/pkg/metrics"
	"github.com/burrowdb/burrow/pkg/namespace"
	"github.com/burrowdb/burrow/pkg/storage"
	"github.com/burrowdb/burrow/pkg/types"
)

const backupsSuffix = "-backups"

// collectionExists answers HEAD /api/{collection}.
func (s *Server) collectionExists(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	res := resolved(r, ps.ByName("collection"))
	if s.store.CFExists(res.InternalName) {
		w.WriteHeader(http.StatusOK)
		return
	}
	w.WriteHeader(http.StatusNotFound)
}

// createCollection answers PUT /api/{collection}: creates the namespaced
// column family and its backups sibling, persists the hashed secret under
// both internal names, and returns the plaintext secret exactly once.
func (s *Server) createCollection(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	res := resolved(r, ps.ByName("collection"))
	s.logger.Info().Str("collection", res.UserName).Msg("creating collection")

	if s.store.CFExists(res.InternalName) {
		writeJSON(w, http.StatusConflict, errorBody{
			Error:      "Collection already exists",
			Collection: res.UserName,
		})
		return
	}

	backupCF := res.InternalName + backupsSuffix
	if err := s.store.CreateCF(res.InternalName); err != nil {
		writeStorageError(w, err, res.UserName)
		return
	}
	if err := s.store.CreateCF(backupCF); err != nil {
		_ = s.store.DropCF(res.InternalName)
		writeStorageError(w, err, res.UserName)
		return
	}

	record := types.Secret{
		CreatedAt: time.Now().UTC().Format(time.RFC3339),
		Secret:    namespace.HashSecret(res.Secret),
	}
	for _, name := range []string{res.InternalName, backupCF} {
		if err := s.store.Insert(namespace.SecretsCF, name, record); err != nil {
			// The collection is unusable without its secret record; undo.
			_ = s.store.DropCF(res.InternalName)
			_ = s.store.DropCF(backupCF)
			writeStorageError(w, err, res.UserName)
			return
		}
	}

	metrics.CollectionsTotal.Add(2)
	writeJSON(w, http.StatusCreated, map[string]any{
		"message":    "Collection created successfully",
		"collection": res.UserName,
		"secret_key": res.Secret,
	})
}

// dropCollection answers DELETE /api/{collection}. A backups sibling can only
// be dropped after its base collection is gone.
func (s *Server) dropCollection(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	res := resolved(r, ps.ByName("collection"))

	if strings.HasSuffix(res.UserName, backupsSuffix) {
		base := strings.TrimSuffix(res.InternalName, backupsSuffix)
		if s.store.CFExists(base) {
			writeJSON(w, http.StatusOK, map[string]any{
				"message":    "Backups collection kept while the base collection exists",
				"collection": res.UserName,
			})
			return
		}
	}

	if err := s.store.DropCF(res.InternalName); err != nil {
		if errors.Is(err, storage.ErrInvalidColumnFamily) {
			writeJSON(w, http.StatusNotFound, errorBody{Error: "Collection not found", Collection: res.UserName})
			return
		}
		writeStorageError(w, err, res.UserName)
		return
	}

	metrics.CollectionsTotal.Dec()
	writeJSON(w, http.StatusOK, map[string]any{"message": "Collection dropped successfully"})
}

// listCollection answers GET /api/{collection} with query-string range
// parameters. Missing bounds scan the whole collection in ascending order.
func (s *Server) listCollection(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	res := resolved(r, ps.ByName("collection"))
	q := r.URL.Query()

	from := q.Get("from")
	to := q.Get("to")
	if to == "" {
		to = storage.HighSentinel
	}
	limit := storage.Unbounded
	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = n
	}
	dir := storage.Forward
	if q.Get("order") == "desc" {
		dir = storage.Reverse
	}
	wantKeys := q.Get("keys") != "false"

	if wantKeys {
		items, err := s.store.GetRangeWithKeys(res.InternalName, from, to, limit, dir)
		if err != nil {
			writeStorageError(w, err, res.UserName)
			return
		}
		writeJSON(w, http.StatusOK, items)
		return
	}
	items, err := s.store.GetRange(res.InternalName, from, to, limit, dir)
	if err != nil {
		writeStorageError(w, err, res.UserName)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

// queryCollection answers POST /api/{collection}: a JSON body selecting
// either a range scan or a JSONPath query.
func (s *Server) queryCollection(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	res := resolved(r, ps.ByName("collection"))

	var req types.QueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Parsing failed. Value is not in JSON Format")
		return
	}

	if req.IsJSONPath() {
		if req.WantKeys() {
			items, err := s.store.QueryWithKeys(res.InternalName, *req.Query)
			if err != nil {
				writeStorageError(w, err, res.UserName)
				return
			}
			writeJSON(w, http.StatusOK, items)
			return
		}
		items, err := s.store.Query(res.InternalName, *req.Query)
		if err != nil {
			writeStorageError(w, err, res.UserName)
			return
		}
		writeJSON(w, http.StatusOK, items)
		return
	}

	from := ""
	if req.From != nil {
		from = *req.From
	}
	to := storage.HighSentinel
	if req.To != nil && *req.To != "" {
		to = *req.To
	}
	limit := storage.Unbounded
	if req.Limit != nil {
		if *req.Limit < 0 {
			writeError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = *req.Limit
	}
	dir := storage.Forward
	if req.Order == "desc" {
		dir = storage.Reverse
	}

	if req.WantKeys() {
		items, err := s.store.GetRangeWithKeys(res.InternalName, from, to, limit, dir)
		if err != nil {
			writeStorageError(w, err, res.UserName)
			return
		}
		writeJSON(w, http.StatusOK, items)
		return
	}
	items, err := s.store.GetRange(res.InternalName, from, to, limit, dir)
	if err != nil {
		writeStorageError(w, err, res.UserName)
		return
	}
	writeJSON(w, http.StatusOK, items)
}
