package api

import (
	"io"
	"net/http"

	"github.com/julienschmidt/httprouter"
)

// importDocuments answers POST /api/{collection}/_import?key=: multipart
// upload of a JSON array of objects, ingested in batches.
func (s *Server) importDocuments(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	res := resolved(r, ps.ByName("collection"))

	if !s.store.CFExists(res.InternalName) {
		writeJSON(w, http.StatusNotFound, errorBody{Error: "Collection not found", Collection: res.UserName})
		return
	}

	file, _, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "No file received")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Failed to read uploaded file")
		return
	}

	keyPath := r.URL.Query().Get("key")
	result, err := s.importer.Run(res.InternalName, res.UserName, data, keyPath)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if result.Imported == 0 {
		writeError(w, http.StatusBadRequest, "No items were imported")
		return
	}

	body := map[string]any{
		"message":        "Import completed",
		"imported_count": result.Imported,
		"collection":     res.UserName,
	}
	if len(result.Errors) > 0 {
		body["errors"] = result.Errors
	}
	writeJSON(w, http.StatusCreated, body)
}
