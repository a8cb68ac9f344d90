package sqlite

import (
	"context"
	"encoding/json"
	"fmt"

	"reviewsync/internal/core/domain"
	"reviewsync/internal/core/ports"
)

type SQLiteStrokeRepository struct {
	db *DB
}

func NewSQLiteStrokeRepository(db *DB) ports.StrokeRepository {
	return &SQLiteStrokeRepository{db: db}
}

func (r *SQLiteStrokeRepository) Append(ctx context.Context, id domain.SessionID, strokes []domain.Stroke) error {
	if len(strokes) == 0 {
		return nil
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO strokes (session_id, points, color, width, start_time_ms, end_time_ms)
		VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, s := range strokes {
		points, err := json.Marshal(s.Points)
		if err != nil {
			return fmt.Errorf("failed to marshal stroke points: %w", err)
		}
		if _, err := stmt.ExecContext(ctx, string(id), string(points), s.Color, s.Width, s.StartTime, s.EndTime); err != nil {
			return fmt.Errorf("failed to insert stroke: %w", err)
		}
	}
	return tx.Commit()
}

func (r *SQLiteStrokeRepository) ListBySession(ctx context.Context, id domain.SessionID) ([]domain.Stroke, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT points, color, width, start_time_ms, end_time_ms
		FROM strokes WHERE session_id = ? ORDER BY seq`, string(id))
	if err != nil {
		return nil, fmt.Errorf("failed to list strokes: %w", err)
	}
	defer rows.Close()

	var strokes []domain.Stroke
	for rows.Next() {
		var (
			s      domain.Stroke
			points string
		)
		if err := rows.Scan(&points, &s.Color, &s.Width, &s.StartTime, &s.EndTime); err != nil {
			return nil, fmt.Errorf("failed to scan stroke: %w", err)
		}
		if err := json.Unmarshal([]byte(points), &s.Points); err != nil {
			return nil, fmt.Errorf("failed to unmarshal stroke points: %w", err)
		}
		strokes = append(strokes, s)
	}
	return strokes, rows.Err()
}

func (r *SQLiteStrokeRepository) DeleteBySession(ctx context.Context, id domain.SessionID) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM strokes WHERE session_id = ?`, string(id)); err != nil {
		return fmt.Errorf("failed to delete stroke log: %w", err)
	}
	return nil
}
