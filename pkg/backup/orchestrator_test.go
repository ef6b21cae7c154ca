package backup

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/burrowdb/burrow/pkg/log"
	"github.com/burrowdb/burrow/pkg/storage"
	"github.com/burrowdb/burrow/pkg/types"
)

func TestMain(m *testing.M) {
	log.Init(log.Config{Level: log.ErrorLevel, JSONOutput: true, Output: io.Discard})
	os.Exit(m.Run())
}

func newTestOrchestrator(t *testing.T) (*Orchestrator, storage.Store) {
	t.Helper()
	store, err := storage.NewBoltStore(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	o, err := NewOrchestrator(store, t.TempDir(), 2)
	require.NoError(t, err)
	return o, store
}

func seedCollection(t *testing.T, store storage.Store, internal string, n int) {
	t.Helper()
	require.NoError(t, store.CreateCF(internal))
	pairs := make([]types.KeyValue, 0, n)
	for i := 0; i < n; i++ {
		pairs = append(pairs, types.KeyValue{
			Key:   string(rune('a' + i)),
			Value: map[string]any{"i": float64(i)},
		})
	}
	require.NoError(t, store.BatchInsert(internal, pairs))
}

func TestStartBackupCompletes(t *testing.T) {
	o, store := newTestOrchestrator(t)
	seedCollection(t, store, "tok-users", 5)
	require.NoError(t, store.CreateCF("tok-users-backups"))

	record, err := o.StartBackup("users", "tok-users")
	require.NoError(t, err)
	assert.Equal(t, types.StatusInProgress, record.Status)
	assert.Len(t, record.ID, 21)

	o.Wait()

	final, err := o.BackupStatus(record.ID)
	require.NoError(t, err)
	assert.Equal(t, types.StatusCompleted, final.Status)
	assert.Equal(t, "/backups/users-"+record.ID+".sst", final.URL)
	require.NotNil(t, final.FinishedAt)

	_, err = os.Stat(filepath.Join(o.Dir(), "users-"+record.ID+".sst"))
	assert.NoError(t, err)

	// The record also lives in the per-collection backups column family.
	var sibling types.BackupRecord
	require.NoError(t, store.Get("tok-users-backups", record.ID, &sibling))
	assert.Equal(t, types.StatusCompleted, sibling.Status)
}

func TestStartBackupUnknownCollection(t *testing.T) {
	o, _ := newTestOrchestrator(t)

	_, err := o.StartBackup("ghost", "tok-ghost")
	assert.ErrorIs(t, err, storage.ErrInvalidColumnFamily)
}

func TestRestoreRoundTrip(t *testing.T) {
	o, store := newTestOrchestrator(t)
	seedCollection(t, store, "tok-users", 5)
	require.NoError(t, store.CreateCF("tok-users-backups"))

	record, err := o.StartBackup("users", "tok-users")
	require.NoError(t, err)
	o.Wait()

	// Drop and recreate the collection, then restore into it.
	require.NoError(t, store.DropCF("tok-users"))
	require.NoError(t, store.CreateCF("tok-users"))

	restore, err := o.StartRestore("users", "tok-users", record.ID)
	require.NoError(t, err)
	o.Wait()

	final, err := o.RestoreStatus(restore.ID)
	require.NoError(t, err)
	assert.Equal(t, types.StatusCompleted, final.Status)

	items, err := store.GetRangeWithKeys("tok-users", "", storage.HighSentinel, storage.Unbounded, storage.Forward)
	require.NoError(t, err)
	assert.Len(t, items, 5)
}

func TestStartRestoreUnknownBackup(t *testing.T) {
	o, store := newTestOrchestrator(t)
	require.NoError(t, store.CreateCF("tok-users"))

	record, err := o.StartRestore("users", "tok-users", "no-such-backup")
	assert.True(t, IsValidation(err))

	// The failed attempt leaves a record behind.
	final, statusErr := o.RestoreStatus(record.ID)
	require.NoError(t, statusErr)
	assert.Equal(t, types.StatusFailed, final.Status)
	assert.Contains(t, final.Error, "not found")
}

func TestStartRestoreRejectsIncompleteBackup(t *testing.T) {
	o, store := newTestOrchestrator(t)
	require.NoError(t, store.CreateCF("tok-users"))

	// Persist an in_progress backup record by hand.
	pending := types.BackupRecord{
		ID:         "pending-backup-id-001",
		Collection: "users",
		Status:     types.StatusInProgress,
	}
	require.NoError(t, store.Insert(BackupsCF, pending.ID, &pending))

	_, err := o.StartRestore("users", "tok-users", pending.ID)
	assert.True(t, IsValidation(err))
	assert.Contains(t, err.Error(), "not in a completed state")
}

func TestStartRestoreRejectsMissingFile(t *testing.T) {
	o, store := newTestOrchestrator(t)
	require.NoError(t, store.CreateCF("tok-users"))

	gone := types.BackupRecord{
		ID:         "gone-backup-id-000001",
		Collection: "users",
		Status:     types.StatusCompleted,
		URL:        "/backups/users-gone-backup-id-000001.sst",
	}
	require.NoError(t, store.Insert(BackupsCF, gone.ID, &gone))

	_, err := o.StartRestore("users", "tok-users", gone.ID)
	assert.True(t, IsValidation(err))
	assert.Contains(t, err.Error(), "file not found")
}

func TestListBackupsFiltersByCollection(t *testing.T) {
	o, store := newTestOrchestrator(t)
	seedCollection(t, store, "tok-users", 2)
	require.NoError(t, store.CreateCF("tok-users-backups"))
	seedCollection(t, store, "tok-orders", 2)
	require.NoError(t, store.CreateCF("tok-orders-backups"))

	_, err := o.StartBackup("users", "tok-users")
	require.NoError(t, err)
	_, err = o.StartBackup("orders", "tok-orders")
	require.NoError(t, err)
	o.Wait()

	users, err := o.ListBackups("users")
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, "users", users[0].Collection)

	none, err := o.ListBackups("ghost")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestPrepareAndFinishUpload(t *testing.T) {
	o, store := newTestOrchestrator(t)
	require.NoError(t, store.CreateCF("tok-users"))

	record, path, err := o.PrepareUpload("users", "tok-users")
	require.NoError(t, err)
	assert.Equal(t, types.StatusInProgress, record.Status)
	assert.True(t, store.CFExists("tok-users-backups"), "backups sibling created on demand")
	require.NoError(t, os.WriteFile(path, []byte("payload"), 0o644))

	o.FinishUpload("tok-users", record, nil)

	final, err := o.BackupStatus(record.ID)
	require.NoError(t, err)
	assert.Equal(t, types.StatusCompleted, final.Status)
	assert.Equal(t, "/backups/users-"+record.ID+".sst", final.URL)
}
