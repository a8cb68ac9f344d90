package ports

import (
	"context"

	"reviewsync/internal/core/domain"
)

type SessionRepository interface {
	Create(ctx context.Context, session *domain.Session) error
	GetByID(ctx context.Context, id domain.SessionID) (*domain.Session, error)
	List(ctx context.Context) ([]*domain.Session, error)
	Delete(ctx context.Context, id domain.SessionID) error
}

// ActionLogRepository stores the append-only recording log. ListBySession
// returns actions in insertion order; ordering by timestamp is the Timeline's
// job, not the store's.
type ActionLogRepository interface {
	Append(ctx context.Context, id domain.SessionID, actions []domain.Action) error
	ListBySession(ctx context.Context, id domain.SessionID) ([]domain.Action, error)
	DeleteBySession(ctx context.Context, id domain.SessionID) error
}

type StrokeRepository interface {
	Append(ctx context.Context, id domain.SessionID, strokes []domain.Stroke) error
	ListBySession(ctx context.Context, id domain.SessionID) ([]domain.Stroke, error)
	DeleteBySession(ctx context.Context, id domain.SessionID) error
}
