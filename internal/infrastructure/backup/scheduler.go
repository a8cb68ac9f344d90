package backup

import (
	"context"
	"fmt"
	"time"

	"reviewsync/internal/core/ports"
	"reviewsync/pkg/backup"

	"go.uber.org/zap"
)

// Scheduler archives sessions and their logs on a fixed interval. Archives
// are full snapshots, not increments; restoring one is enough to rebuild the
// store.
type Scheduler struct {
	backupService *backup.BackupService
	sessionRepo   ports.SessionRepository
	actionRepo    ports.ActionLogRepository
	strokeRepo    ports.StrokeRepository
	interval      time.Duration
	retentionDays int
	logger        *zap.SugaredLogger
	stopChan      chan struct{}
}

// Config contains scheduler configuration
type Config struct {
	Interval      time.Duration
	RetentionDays int
}

// NewScheduler creates a new backup scheduler
func NewScheduler(
	backupService *backup.BackupService,
	sessionRepo ports.SessionRepository,
	actionRepo ports.ActionLogRepository,
	strokeRepo ports.StrokeRepository,
	cfg Config,
	logger *zap.SugaredLogger,
) *Scheduler {
	return &Scheduler{
		backupService: backupService,
		sessionRepo:   sessionRepo,
		actionRepo:    actionRepo,
		strokeRepo:    strokeRepo,
		interval:      cfg.Interval,
		retentionDays: cfg.RetentionDays,
		logger:        logger,
		stopChan:      make(chan struct{}),
	}
}

// Start starts the backup scheduler
func (s *Scheduler) Start(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	// Run initial backup
	s.runBackup(ctx)

	for {
		select {
		case <-ticker.C:
			s.runBackup(ctx)
		case <-s.stopChan:
			return
		case <-ctx.Done():
			return
		}
	}
}

// Stop stops the backup scheduler
func (s *Scheduler) Stop() {
	close(s.stopChan)
}

// runBackup performs a backup
func (s *Scheduler) runBackup(ctx context.Context) {
	s.logger.Info("starting scheduled backup")

	backupData, err := s.collectData(ctx)
	if err != nil {
		s.logger.Errorw("failed to collect backup data", "error", err)
		return
	}

	backupName, err := s.backupService.CreateBackup(ctx, backupData)
	if err != nil {
		s.logger.Errorw("failed to create backup", "error", err)
		return
	}

	s.logger.Infow("backup created successfully", "backup_name", backupName)

	if err := s.cleanupOldBackups(ctx); err != nil {
		s.logger.Warnw("failed to cleanup old backups", "error", err)
	}
}

// collectData collects sessions and their logs from the repositories
func (s *Scheduler) collectData(ctx context.Context) (*backup.BackupData, error) {
	data := &backup.BackupData{
		Sessions: make(map[string]interface{}),
		Actions:  make(map[string]interface{}),
		Strokes:  make(map[string]interface{}),
		Metadata: make(map[string]interface{}),
	}

	sessions, err := s.sessionRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}

	actionCount := 0
	strokeCount := 0
	for _, session := range sessions {
		data.Sessions[string(session.ID)] = session

		actions, err := s.actionRepo.ListBySession(ctx, session.ID)
		if err != nil {
			s.logger.Warnw("failed to list actions for session", "session_id", session.ID, "error", err)
			continue
		}
		data.Actions[string(session.ID)] = actions
		actionCount += len(actions)

		strokes, err := s.strokeRepo.ListBySession(ctx, session.ID)
		if err != nil {
			s.logger.Warnw("failed to list strokes for session", "session_id", session.ID, "error", err)
			continue
		}
		data.Strokes[string(session.ID)] = strokes
		strokeCount += len(strokes)
	}

	data.Metadata["session_count"] = len(data.Sessions)
	data.Metadata["action_count"] = actionCount
	data.Metadata["stroke_count"] = strokeCount
	data.Metadata["backup_type"] = "scheduled"

	return data, nil
}

// cleanupOldBackups removes backups older than retention period
func (s *Scheduler) cleanupOldBackups(ctx context.Context) error {
	backups, err := s.backupService.ListBackups(ctx)
	if err != nil {
		return fmt.Errorf("failed to list backups: %w", err)
	}

	cutoffTime := time.Now().AddDate(0, 0, -s.retentionDays)

	for _, backupName := range backups {
		// Parse timestamp from backup name (format: backup-20060102-150405.json)
		if len(backupName) < 22 {
			continue
		}

		timestampStr := backupName[7:22]
		timestamp, err := time.Parse("20060102-150405", timestampStr)
		if err != nil {
			s.logger.Warnw("failed to parse backup timestamp", "backup_name", backupName, "error", err)
			continue
		}

		if timestamp.Before(cutoffTime) {
			if err := s.backupService.DeleteBackup(ctx, backupName); err != nil {
				s.logger.Warnw("failed to delete old backup", "backup_name", backupName, "error", err)
				continue
			}
			s.logger.Infow("deleted old backup", "backup_name", backupName, "age", time.Since(timestamp))
		}
	}

	return nil
}
