// Package backup snapshots sessions and their recorded logs so a wiped
// deployment can be reloaded from the last good state.
package backup

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"
)

// BackupData is one snapshot. Sessions, Actions and Strokes are keyed
// by session ID; Metadata carries counts and the trigger kind.
type BackupData struct {
	Version   string         `json:"version"`
	Timestamp time.Time      `json:"timestamp"`
	Sessions  map[string]any `json:"sessions,omitempty"`
	Actions   map[string]any `json:"actions,omitempty"`
	Strokes   map[string]any `json:"strokes,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// Storage is where snapshots land, local disk in the default setup.
type Storage interface {
	Save(ctx context.Context, name string, data io.Reader) error
	Load(ctx context.Context, name string) (io.ReadCloser, error)
	List(ctx context.Context, prefix string) ([]string, error)
	Delete(ctx context.Context, name string) error
}

type BackupService struct {
	storage Storage
	version string
}

func NewBackupService(storage Storage, version string) *BackupService {
	return &BackupService{
		storage: storage,
		version: version,
	}
}

// CreateBackup writes the snapshot and returns its name. The timestamp
// embedded in the name is what retention cleanup parses later, so the
// format stays fixed at backup-20060102-150405.json.
func (bs *BackupService) CreateBackup(ctx context.Context, data *BackupData) (string, error) {
	data.Version = bs.version
	data.Timestamp = time.Now()

	payload, err := json.Marshal(data)
	if err != nil {
		return "", fmt.Errorf("failed to marshal backup data: %w", err)
	}

	name := fmt.Sprintf("backup-%s.json", data.Timestamp.Format("20060102-150405"))
	if err := bs.storage.Save(ctx, name, bytes.NewReader(payload)); err != nil {
		return "", fmt.Errorf("failed to save backup: %w", err)
	}
	return name, nil
}

func (bs *BackupService) RestoreBackup(ctx context.Context, name string) (*BackupData, error) {
	reader, err := bs.storage.Load(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("failed to load backup: %w", err)
	}
	defer reader.Close()

	var data BackupData
	if err := json.NewDecoder(reader).Decode(&data); err != nil {
		return nil, fmt.Errorf("failed to decode backup data: %w", err)
	}
	return &data, nil
}

func (bs *BackupService) ListBackups(ctx context.Context) ([]string, error) {
	return bs.storage.List(ctx, "backup-")
}

func (bs *BackupService) DeleteBackup(ctx context.Context, name string) error {
	return bs.storage.Delete(ctx, name)
}
