package backup

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"reviewsync/internal/core/domain"
	"reviewsync/internal/core/ports"
	"reviewsync/pkg/backup"

	"go.uber.org/zap"
)

// RestoreService rebuilds sessions and their logs from an archive.
type RestoreService struct {
	backupService *backup.BackupService
	sessionRepo   ports.SessionRepository
	actionRepo    ports.ActionLogRepository
	strokeRepo    ports.StrokeRepository
	logger        *zap.SugaredLogger
}

// NewRestoreService creates a new restore service
func NewRestoreService(
	backupService *backup.BackupService,
	sessionRepo ports.SessionRepository,
	actionRepo ports.ActionLogRepository,
	strokeRepo ports.StrokeRepository,
	logger *zap.SugaredLogger,
) *RestoreService {
	return &RestoreService{
		backupService: backupService,
		sessionRepo:   sessionRepo,
		actionRepo:    actionRepo,
		strokeRepo:    strokeRepo,
		logger:        logger,
	}
}

// RestoreOptions contains restore options
type RestoreOptions struct {
	OverwriteExisting bool
	RestoreLogs       bool
	PointInTime       *time.Time // For point-in-time recovery
}

// DefaultRestoreOptions returns default restore options
func DefaultRestoreOptions() RestoreOptions {
	return RestoreOptions{
		OverwriteExisting: false,
		RestoreLogs:       true,
	}
}

// RestoreFromBackup restores sessions from a specific backup. Existing
// sessions are skipped unless OverwriteExisting is set, in which case the
// session and both of its logs are replaced wholesale.
func (rs *RestoreService) RestoreFromBackup(ctx context.Context, backupName string, options RestoreOptions) error {
	rs.logger.Infow("starting restore", "backup_name", backupName, "overwrite", options.OverwriteExisting)

	backupData, err := rs.backupService.RestoreBackup(ctx, backupName)
	if err != nil {
		return fmt.Errorf("failed to load backup: %w", err)
	}

	if backupData.Version == "" {
		return fmt.Errorf("invalid backup: missing version")
	}

	restored := 0
	for sessionIDStr, sessionData := range backupData.Sessions {
		sessionID := domain.SessionID(sessionIDStr)

		existing, err := rs.sessionRepo.GetByID(ctx, sessionID)
		if err == nil && existing != nil {
			if !options.OverwriteExisting {
				rs.logger.Debugw("skipping existing session", "session_id", sessionID)
				continue
			}
			if err := rs.deleteSession(ctx, sessionID); err != nil {
				return err
			}
		}

		session, err := decodeInto[domain.Session](sessionData)
		if err != nil {
			return fmt.Errorf("failed to decode session %s: %w", sessionID, err)
		}
		if err := rs.sessionRepo.Create(ctx, session); err != nil {
			return fmt.Errorf("failed to create session %s: %w", sessionID, err)
		}

		if options.RestoreLogs {
			if err := rs.restoreLogs(ctx, sessionID, backupData); err != nil {
				return err
			}
		}

		restored++
		rs.logger.Debugw("restored session", "session_id", sessionID)
	}

	rs.logger.Infow("restore completed successfully", "backup_name", backupName, "sessions", restored)
	return nil
}

func (rs *RestoreService) deleteSession(ctx context.Context, id domain.SessionID) error {
	if err := rs.actionRepo.DeleteBySession(ctx, id); err != nil {
		return fmt.Errorf("failed to clear action log for %s: %w", id, err)
	}
	if err := rs.strokeRepo.DeleteBySession(ctx, id); err != nil {
		return fmt.Errorf("failed to clear stroke log for %s: %w", id, err)
	}
	if err := rs.sessionRepo.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete session %s: %w", id, err)
	}
	return nil
}

func (rs *RestoreService) restoreLogs(ctx context.Context, id domain.SessionID, data *backup.BackupData) error {
	if raw, ok := data.Actions[string(id)]; ok {
		actions, err := decodeInto[[]domain.Action](raw)
		if err != nil {
			return fmt.Errorf("failed to decode action log for %s: %w", id, err)
		}
		if len(*actions) > 0 {
			if err := rs.actionRepo.Append(ctx, id, *actions); err != nil {
				return fmt.Errorf("failed to restore action log for %s: %w", id, err)
			}
		}
	}

	if raw, ok := data.Strokes[string(id)]; ok {
		strokes, err := decodeInto[[]domain.Stroke](raw)
		if err != nil {
			return fmt.Errorf("failed to decode stroke log for %s: %w", id, err)
		}
		if len(*strokes) > 0 {
			if err := rs.strokeRepo.Append(ctx, id, *strokes); err != nil {
				return fmt.Errorf("failed to restore stroke log for %s: %w", id, err)
			}
		}
	}

	return nil
}

// FindBackupByTime finds the closest backup to a given time (for point-in-time recovery)
func (rs *RestoreService) FindBackupByTime(ctx context.Context, targetTime time.Time) (string, error) {
	backups, err := rs.backupService.ListBackups(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to list backups: %w", err)
	}

	var closestBackup string
	var closestTime time.Time
	var found bool

	for _, backupName := range backups {
		if len(backupName) < 22 {
			continue
		}

		timestampStr := backupName[7:22]
		timestamp, err := time.Parse("20060102-150405", timestampStr)
		if err != nil {
			continue
		}

		// Find backup closest to target time (but not after)
		if timestamp.Before(targetTime) || timestamp.Equal(targetTime) {
			if !found || timestamp.After(closestTime) {
				closestBackup = backupName
				closestTime = timestamp
				found = true
			}
		}
	}

	if !found {
		return "", fmt.Errorf("no backup found before or at target time: %v", targetTime)
	}

	return closestBackup, nil
}

// decodeInto round-trips untyped archive data into a concrete type.
func decodeInto[T any](raw interface{}) (*T, error) {
	jsonData, err := json.Marshal(raw)
	if err != nil {
		return nil, err
	}
	var out T
	if err := json.Unmarshal(jsonData, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
