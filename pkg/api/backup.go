package api

import (
	"errors"
	"io"
	"net/http"
	"os"

	"github.com/julienschmidt/httprouter"

	"github.com/burrowdb/burrow/pkg/backup"
	"github.com/burrowdb/burrow/pkg/storage"
	"github.com/burrowdb/burrow/pkg/types"
)

// startBackup answers POST /api/{collection}/_backup.
func (s *Server) startBackup(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	res := resolved(r, ps.ByName("collection"))

	record, err := s.backups.StartBackup(res.UserName, res.InternalName)
	if err != nil {
		writeStorageError(w, err, res.UserName)
		return
	}
	writeJSON(w, http.StatusOK, types.OperationResponse{
		Message:    "Backup started",
		ID:         record.ID,
		Collection: res.UserName,
	})
}

// listBackups answers GET /api/{collection}/_backup.
func (s *Server) listBackups(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	res := resolved(r, ps.ByName("collection"))

	records, err := s.backups.ListBackups(res.UserName)
	if err != nil {
		writeStorageError(w, err, res.UserName)
		return
	}
	writeJSON(w, http.StatusOK, records)
}

// backupStatus answers GET /api/{collection}/_backup/status?id=.
func (s *Server) backupStatus(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	res := resolved(r, ps.ByName("collection"))

	id := r.URL.Query().Get("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "id query parameter is required")
		return
	}
	record, err := s.backups.BackupStatus(id)
	if err != nil {
		if errors.Is(err, storage.ErrKeyNotFound) {
			writeError(w, http.StatusNotFound, "Backup not found")
			return
		}
		writeStorageError(w, err, res.UserName)
		return
	}
	writeJSON(w, http.StatusOK, record)
}

// uploadBackup answers POST /api/{collection}/_backup/upload: a multipart
// upload of a previously exported snapshot file, completed synchronously.
func (s *Server) uploadBackup(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	res := resolved(r, ps.ByName("collection"))

	record, path, err := s.backups.PrepareUpload(res.UserName, res.InternalName)
	if err != nil {
		writeStorageError(w, err, res.UserName)
		return
	}

	file, _, err := r.FormFile("file")
	if err != nil {
		s.backups.FinishUpload(res.InternalName, record, errors.New("No file received"))
		writeError(w, http.StatusBadRequest, "No file received")
		return
	}
	defer file.Close()

	dst, err := os.Create(path)
	if err != nil {
		s.backups.FinishUpload(res.InternalName, record, err)
		writeStorageError(w, err, res.UserName)
		return
	}
	_, copyErr := io.Copy(dst, file)
	closeErr := dst.Close()
	if copyErr == nil {
		copyErr = closeErr
	}
	if copyErr != nil {
		_ = os.Remove(path)
		s.backups.FinishUpload(res.InternalName, record, copyErr)
		writeStorageError(w, copyErr, res.UserName)
		return
	}

	s.backups.FinishUpload(res.InternalName, record, nil)
	writeJSON(w, http.StatusCreated, types.OperationResponse{
		Message:    "Backup file uploaded successfully",
		ID:         record.ID,
		Collection: res.UserName,
	})
}

// startRestore answers POST /api/{collection}/_restore?backup_id=.
func (s *Server) startRestore(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	res := resolved(r, ps.ByName("collection"))

	backupID := r.URL.Query().Get("backup_id")
	if backupID == "" {
		writeError(w, http.StatusBadRequest, "backup_id query parameter is required")
		return
	}

	record, err := s.backups.StartRestore(res.UserName, res.InternalName, backupID)
	if err != nil {
		if backup.IsValidation(err) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeStorageError(w, err, res.UserName)
		return
	}
	writeJSON(w, http.StatusOK, types.OperationResponse{
		Message:    "Restore started",
		ID:         record.ID,
		Collection: res.UserName,
	})
}

// restoreStatusOrList answers GET /api/{collection}/_restore: one record
// when ?id= is given, otherwise the collection's restore history.
func (s *Server) restoreStatusOrList(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	if r.URL.Query().Get("id") != "" {
		s.restoreStatus(w, r, ps)
		return
	}
	res := resolved(r, ps.ByName("collection"))
	records, err := s.backups.ListRestores(res.UserName)
	if err != nil {
		writeStorageError(w, err, res.UserName)
		return
	}
	writeJSON(w, http.StatusOK, records)
}

// restoreStatus answers GET /api/{collection}/_restore/status?id=.
func (s *Server) restoreStatus(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	res := resolved(r, ps.ByName("collection"))

	id := r.URL.Query().Get("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "id query parameter is required")
		return
	}
	record, err := s.backups.RestoreStatus(id)
	if err != nil {
		if errors.Is(err, storage.ErrKeyNotFound) {
			writeError(w, http.StatusNotFound, "Restore not found")
			return
		}
		writeStorageError(w, err, res.UserName)
		return
	}
	writeJSON(w, http.StatusOK, record)
}
