package sqlite

import (
	"context"
	"fmt"

	"reviewsync/internal/core/domain"
	"reviewsync/internal/core/ports"
)

// SQLiteActionRepository persists the append-only action log; seq ordering
// preserves insertion order across restarts.
type SQLiteActionRepository struct {
	db *DB
}

func NewSQLiteActionRepository(db *DB) ports.ActionLogRepository {
	return &SQLiteActionRepository{db: db}
}

func (r *SQLiteActionRepository) Append(ctx context.Context, id domain.SessionID, actions []domain.Action) error {
	if len(actions) == 0 {
		return nil
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO actions (session_id, type, timestamp_ms, media_position_s, hold_duration_ms)
		VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, a := range actions {
		if _, err := stmt.ExecContext(ctx, string(id), string(a.Type), a.Timestamp, a.MediaPosition, a.HoldDuration); err != nil {
			return fmt.Errorf("failed to insert action: %w", err)
		}
	}
	return tx.Commit()
}

func (r *SQLiteActionRepository) ListBySession(ctx context.Context, id domain.SessionID) ([]domain.Action, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT type, timestamp_ms, media_position_s, hold_duration_ms
		FROM actions WHERE session_id = ? ORDER BY seq`, string(id))
	if err != nil {
		return nil, fmt.Errorf("failed to list actions: %w", err)
	}
	defer rows.Close()

	var actions []domain.Action
	for rows.Next() {
		var (
			a   domain.Action
			typ string
		)
		if err := rows.Scan(&typ, &a.Timestamp, &a.MediaPosition, &a.HoldDuration); err != nil {
			return nil, fmt.Errorf("failed to scan action: %w", err)
		}
		a.Type = domain.ActionType(typ)
		actions = append(actions, a)
	}
	return actions, rows.Err()
}

func (r *SQLiteActionRepository) DeleteBySession(ctx context.Context, id domain.SessionID) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM actions WHERE session_id = ?`, string(id)); err != nil {
		return fmt.Errorf("failed to delete action log: %w", err)
	}
	return nil
}
