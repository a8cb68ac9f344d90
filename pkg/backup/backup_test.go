package backup

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T) (*BackupService, string) {
	t.Helper()
	dir := t.TempDir()
	storage, err := NewFileStorage(dir)
	require.NoError(t, err)
	return NewBackupService(storage, "1"), dir
}

func TestBackupService_RoundTrip(t *testing.T) {
	service, dir := newTestService(t)

	data := &BackupData{
		Sessions: map[string]any{
			"sess-1": map[string]any{"id": "sess-1", "title": "Calculus review"},
		},
		Actions: map[string]any{
			"sess-1": []any{map[string]any{"type": "play", "timestamp": 0}},
		},
		Metadata: map[string]any{"backup_type": "scheduled"},
	}

	name, err := service.CreateBackup(context.Background(), data)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(name, "backup-"))
	assert.True(t, strings.HasSuffix(name, ".json"))

	_, err = os.Stat(filepath.Join(dir, name))
	require.NoError(t, err)

	restored, err := service.RestoreBackup(context.Background(), name)
	require.NoError(t, err)
	assert.Equal(t, "1", restored.Version)
	assert.False(t, restored.Timestamp.IsZero())
	assert.Len(t, restored.Sessions, 1)
	assert.Equal(t, "scheduled", restored.Metadata["backup_type"])
}

func TestBackupService_ListAndDelete(t *testing.T) {
	service, _ := newTestService(t)

	name, err := service.CreateBackup(context.Background(), &BackupData{})
	require.NoError(t, err)

	backups, err := service.ListBackups(context.Background())
	require.NoError(t, err)
	assert.Contains(t, backups, name)

	require.NoError(t, service.DeleteBackup(context.Background(), name))

	backups, err = service.ListBackups(context.Background())
	require.NoError(t, err)
	assert.NotContains(t, backups, name)
}

func TestFileStorage_RejectsTraversal(t *testing.T) {
	storage, err := NewFileStorage(t.TempDir())
	require.NoError(t, err)

	err = storage.Save(context.Background(), "../escape.json", strings.NewReader("{}"))
	assert.Error(t, err)

	_, err = storage.Load(context.Background(), "nested/name.json")
	assert.Error(t, err)

	err = storage.Delete(context.Background(), "")
	assert.Error(t, err)
}

func TestFileStorage_ListSkipsTempFiles(t *testing.T) {
	dir := t.TempDir()
	storage, err := NewFileStorage(dir)
	require.NoError(t, err)

	require.NoError(t, storage.Save(context.Background(), "backup-a.json", strings.NewReader("{}")))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "backup-b.json.tmp-123"), []byte("{"), 0o644))

	names, err := storage.List(context.Background(), "backup-")
	require.NoError(t, err)
	assert.Equal(t, []string{"backup-a.json"}, names)
}
