package backup

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/rs/zerolog"

	"github.com/burrowdb/burrow/pkg/log"
	"github.com/burrowdb/burrow/pkg/metrics"
	"github.com/burrowdb/burrow/pkg/storage"
	"github.com/burrowdb/burrow/pkg/types"
)

const (
	// BackupsCF is the global column family of backup records.
	BackupsCF = "backups"
	// RestoresCF is the global column family of restore records.
	RestoresCF = "restores"

	// idLength is the length of backup and restore job ids.
	idLength = 21
)

// ValidationError reports a restore request that referenced a backup which
// cannot be used. It maps to a 400 at the API boundary.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

// Orchestrator runs backup and restore jobs off the request path and keeps
// their persistent state records current. Jobs are detached: they never
// observe client disconnects and always run to completion.
type Orchestrator struct {
	store  storage.Store
	dir    string
	sem    chan struct{}
	wg     sync.WaitGroup
	logger zerolog.Logger
}

// NewOrchestrator prepares the backup directory and the record column
// families. workers bounds how many jobs run concurrently.
func NewOrchestrator(store storage.Store, dir string, workers int) (*Orchestrator, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create backup directory: %w", err)
	}
	for _, cf := range []string{BackupsCF, RestoresCF} {
		if !store.CFExists(cf) {
			if err := store.CreateCF(cf); err != nil {
				return nil, fmt.Errorf("failed to create %s column family: %w", cf, err)
			}
		}
	}
	if workers < 1 {
		workers = 1
	}
	return &Orchestrator{
		store:  store,
		dir:    dir,
		sem:    make(chan struct{}, workers),
		logger: log.WithComponent("backup"),
	}, nil
}

// Dir returns the backup artifact directory.
func (o *Orchestrator) Dir() string { return o.dir }

// Wait blocks until all in-flight jobs have finished. Used in tests and on
// shutdown; new jobs can still be started while waiting.
func (o *Orchestrator) Wait() { o.wg.Wait() }

// NewID mints a job id.
func NewID() (string, error) {
	return gonanoid.New(idLength)
}

func perCollectionBackupsCF(internalName string) string {
	return internalName + "-backups"
}

func (o *Orchestrator) filePath(userName, id string) string {
	return filepath.Join(o.dir, fmt.Sprintf("%s-%s.sst", userName, id))
}

func backupURL(userName, id string) string {
	return fmt.Sprintf("/backups/%s-%s.sst", userName, id)
}

// StartBackup validates the target, persists an in_progress record in both
// the global and the per-collection backups column families, and dispatches
// the snapshot job. The returned record reflects the initial state.
func (o *Orchestrator) StartBackup(userName, internalName string) (*types.BackupRecord, error) {
	if !o.store.CFExists(internalName) {
		return nil, fmt.Errorf("%w: %q", storage.ErrInvalidColumnFamily, userName)
	}

	id, err := NewID()
	if err != nil {
		return nil, fmt.Errorf("failed to generate backup id: %w", err)
	}

	record := &types.BackupRecord{
		ID:         id,
		Collection: userName,
		StartedAt:  time.Now().UTC(),
		Status:     types.StatusInProgress,
	}

	if err := o.store.Insert(BackupsCF, id, record); err != nil {
		return nil, fmt.Errorf("failed to persist backup record: %w", err)
	}
	if err := o.store.Insert(perCollectionBackupsCF(internalName), id, record); err != nil {
		return nil, fmt.Errorf("failed to persist collection backup record: %w", err)
	}

	o.wg.Add(1)
	go o.runBackup(userName, internalName, id)

	return record, nil
}

func (o *Orchestrator) runBackup(userName, internalName, id string) {
	defer o.wg.Done()
	o.sem <- struct{}{}
	defer func() { <-o.sem }()

	path := o.filePath(userName, id)
	jobErr := o.store.CreateBackup(internalName, path)

	var record types.BackupRecord
	if err := o.store.Get(BackupsCF, id, &record); err != nil {
		o.logger.Error().Err(err).Str("id", id).Msg("failed to retrieve backup record")
		// Persist a synthesized failure so the job does not vanish.
		record = types.BackupRecord{
			ID:         id,
			Collection: userName,
			StartedAt:  time.Now().UTC(),
			Status:     types.StatusFailed,
			Error:      fmt.Sprintf("failed to retrieve backup record: %v", err),
		}
		now := time.Now().UTC()
		record.FinishedAt = &now
		o.writeBackupRecord(internalName, &record)
		metrics.BackupsTotal.WithLabelValues(string(types.StatusFailed)).Inc()
		return
	}

	now := time.Now().UTC()
	record.FinishedAt = &now
	if jobErr != nil {
		record.Status = types.StatusFailed
		record.Error = fmt.Sprintf("backup operation failed: %v", jobErr)
		_ = os.Remove(path)
		o.logger.Error().Err(jobErr).Str("id", id).Str("collection", userName).Msg("backup failed")
	} else {
		record.Status = types.StatusCompleted
		record.URL = backupURL(userName, id)
		o.logger.Info().Str("id", id).Str("collection", userName).Msg("backup completed")
	}

	o.writeBackupRecord(internalName, &record)
	metrics.BackupsTotal.WithLabelValues(string(record.Status)).Inc()
}

func (o *Orchestrator) writeBackupRecord(internalName string, record *types.BackupRecord) {
	if err := o.store.Insert(BackupsCF, record.ID, record); err != nil {
		o.logger.Error().Err(err).Str("id", record.ID).Msg("failed to update backup record")
	}
	if err := o.store.Insert(perCollectionBackupsCF(internalName), record.ID, record); err != nil {
		o.logger.Error().Err(err).Str("id", record.ID).Msg("failed to update collection backup record")
	}
}

// PrepareUpload persists an in_progress record for a client-supplied backup
// file, creating the per-collection backups column family on demand. It
// returns the record and the destination path for the upload.
func (o *Orchestrator) PrepareUpload(userName, internalName string) (*types.BackupRecord, string, error) {
	if !o.store.CFExists(internalName) {
		return nil, "", fmt.Errorf("%w: %q", storage.ErrInvalidColumnFamily, userName)
	}

	id, err := NewID()
	if err != nil {
		return nil, "", fmt.Errorf("failed to generate backup id: %w", err)
	}

	record := &types.BackupRecord{
		ID:         id,
		Collection: userName,
		StartedAt:  time.Now().UTC(),
		Status:     types.StatusInProgress,
	}

	backupCF := perCollectionBackupsCF(internalName)
	if !o.store.CFExists(backupCF) {
		if err := o.store.CreateCF(backupCF); err != nil {
			return nil, "", fmt.Errorf("failed to create backup column family: %w", err)
		}
	}
	if err := o.store.Insert(BackupsCF, id, record); err != nil {
		return nil, "", fmt.Errorf("failed to persist backup record: %w", err)
	}
	if err := o.store.Insert(backupCF, id, record); err != nil {
		return nil, "", fmt.Errorf("failed to persist collection backup record: %w", err)
	}

	return record, o.filePath(userName, id), nil
}

// FinishUpload moves an upload record to its terminal state.
func (o *Orchestrator) FinishUpload(internalName string, record *types.BackupRecord, uploadErr error) {
	now := time.Now().UTC()
	record.FinishedAt = &now
	if uploadErr != nil {
		record.Status = types.StatusFailed
		record.Error = uploadErr.Error()
	} else {
		record.Status = types.StatusCompleted
		record.URL = backupURL(record.Collection, record.ID)
	}
	o.writeBackupRecord(internalName, record)
	metrics.BackupsTotal.WithLabelValues(string(record.Status)).Inc()
}

// StartRestore validates the referenced backup and dispatches the ingest
// job. Validation failures are persisted on the restore record and returned
// as *ValidationError.
func (o *Orchestrator) StartRestore(userName, internalName, backupID string) (*types.RestoreRecord, error) {
	if !o.store.CFExists(internalName) {
		return nil, fmt.Errorf("%w: %q", storage.ErrInvalidColumnFamily, userName)
	}

	id, err := NewID()
	if err != nil {
		return nil, fmt.Errorf("failed to generate restore id: %w", err)
	}

	record := &types.RestoreRecord{
		ID:         id,
		Collection: userName,
		StartedAt:  time.Now().UTC(),
		Status:     types.StatusInProgress,
	}
	if err := o.store.Insert(RestoresCF, id, record); err != nil {
		return nil, fmt.Errorf("failed to persist restore record: %w", err)
	}

	fail := func(msg string) (*types.RestoreRecord, error) {
		now := time.Now().UTC()
		record.Status = types.StatusFailed
		record.FinishedAt = &now
		record.Error = msg
		if err := o.store.Insert(RestoresCF, id, record); err != nil {
			o.logger.Error().Err(err).Str("id", id).Msg("failed to update restore record")
		}
		metrics.RestoresTotal.WithLabelValues(string(types.StatusFailed)).Inc()
		return record, &ValidationError{Msg: msg}
	}

	var backup types.BackupRecord
	if err := o.store.Get(BackupsCF, backupID, &backup); err != nil {
		return fail(fmt.Sprintf("backup %s not found", backupID))
	}
	if backup.Status != types.StatusCompleted {
		return fail(fmt.Sprintf("backup %s is not in a completed state", backupID))
	}
	if backup.URL == "" {
		return fail(fmt.Sprintf("no file path found for backup %s", backupID))
	}
	path := filepath.Join(o.dir, filepath.Base(strings.TrimPrefix(backup.URL, "/backups/")))
	if _, err := os.Stat(path); err != nil {
		return fail(fmt.Sprintf("backup file not found for backup %s", backupID))
	}

	o.wg.Add(1)
	go o.runRestore(internalName, id, path)

	return record, nil
}

func (o *Orchestrator) runRestore(internalName, id, path string) {
	defer o.wg.Done()
	o.sem <- struct{}{}
	defer func() { <-o.sem }()

	jobErr := o.store.RestoreBackup(internalName, path)

	var record types.RestoreRecord
	if err := o.store.Get(RestoresCF, id, &record); err != nil {
		o.logger.Error().Err(err).Str("id", id).Msg("failed to retrieve restore record")
		record = types.RestoreRecord{
			ID:        id,
			StartedAt: time.Now().UTC(),
			Status:    types.StatusFailed,
			Error:     fmt.Sprintf("failed to retrieve restore record: %v", err),
		}
	}

	now := time.Now().UTC()
	record.FinishedAt = &now
	if jobErr != nil {
		record.Status = types.StatusFailed
		record.Error = fmt.Sprintf("restore operation failed: %v", jobErr)
		o.logger.Error().Err(jobErr).Str("id", id).Msg("restore failed")
	} else {
		record.Status = types.StatusCompleted
		record.Error = ""
		o.logger.Info().Str("id", id).Msg("restore completed")
	}

	if err := o.store.Insert(RestoresCF, id, &record); err != nil {
		o.logger.Error().Err(err).Str("id", id).Msg("failed to update restore record")
	}
	metrics.RestoresTotal.WithLabelValues(string(record.Status)).Inc()
}

// BackupStatus returns one backup record by id.
func (o *Orchestrator) BackupStatus(id string) (*types.BackupRecord, error) {
	var record types.BackupRecord
	if err := o.store.Get(BackupsCF, id, &record); err != nil {
		return nil, err
	}
	return &record, nil
}

// RestoreStatus returns one restore record by id.
func (o *Orchestrator) RestoreStatus(id string) (*types.RestoreRecord, error) {
	var record types.RestoreRecord
	if err := o.store.Get(RestoresCF, id, &record); err != nil {
		return nil, err
	}
	return &record, nil
}

// ListBackups returns every backup record belonging to the user-visible
// collection name, in id order.
func (o *Orchestrator) ListBackups(userName string) ([]types.BackupRecord, error) {
	items, err := o.store.GetRangeWithKeys(BackupsCF, "", storage.HighSentinel, storage.Unbounded, storage.Forward)
	if err != nil {
		return nil, err
	}
	records := make([]types.BackupRecord, 0, len(items))
	for _, item := range items {
		var record types.BackupRecord
		if err := o.store.Get(BackupsCF, item.Key, &record); err != nil {
			continue
		}
		if record.Collection == userName {
			records = append(records, record)
		}
	}
	return records, nil
}

// ListRestores returns every restore record belonging to the user-visible
// collection name. Records are matched on the user name, the same way
// ListBackups matches.
func (o *Orchestrator) ListRestores(userName string) ([]types.RestoreRecord, error) {
	items, err := o.store.GetRangeWithKeys(RestoresCF, "", storage.HighSentinel, storage.Unbounded, storage.Forward)
	if err != nil {
		return nil, err
	}
	records := make([]types.RestoreRecord, 0, len(items))
	for _, item := range items {
		var record types.RestoreRecord
		if err := o.store.Get(RestoresCF, item.Key, &record); err != nil {
			continue
		}
		if record.Collection == userName {
			records = append(records, record)
		}
	}
	return records, nil
}

// IsValidation reports whether err is a restore validation failure.
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}
