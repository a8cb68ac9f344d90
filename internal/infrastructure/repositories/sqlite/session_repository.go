package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"reviewsync/internal/core/domain"
	"reviewsync/internal/core/ports"
)

type SQLiteSessionRepository struct {
	db *DB
}

func NewSQLiteSessionRepository(db *DB) ports.SessionRepository {
	return &SQLiteSessionRepository{db: db}
}

func (r *SQLiteSessionRepository) Create(ctx context.Context, session *domain.Session) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO sessions (id, title, video_url, audio_url, duration_seconds, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		string(session.ID), session.Title, session.VideoURL, session.AudioURL,
		session.DurationSeconds, session.CreatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("failed to insert session: %w", err)
	}
	return nil
}

func (r *SQLiteSessionRepository) GetByID(ctx context.Context, id domain.SessionID) (*domain.Session, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, title, video_url, audio_url, duration_seconds, created_at
		FROM sessions WHERE id = ?`, string(id))
	return scanSession(row)
}

func (r *SQLiteSessionRepository) List(ctx context.Context) ([]*domain.Session, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, title, video_url, audio_url, duration_seconds, created_at
		FROM sessions ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer rows.Close()

	var sessions []*domain.Session
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, session)
	}
	return sessions, rows.Err()
}

func (r *SQLiteSessionRepository) Delete(ctx context.Context, id domain.SessionID) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, string(id))
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return domain.ErrSessionNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanSession(row rowScanner) (*domain.Session, error) {
	var (
		session   domain.Session
		id        string
		createdAt string
	)
	err := row.Scan(&id, &session.Title, &session.VideoURL, &session.AudioURL,
		&session.DurationSeconds, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan session: %w", err)
	}
	session.ID = domain.SessionID(id)
	if t, err := time.Parse(time.RFC3339Nano, createdAt); err == nil {
		session.CreatedAt = t
	}
	return &session, nil
}
