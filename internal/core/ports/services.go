package ports

import (
	"context"

	"reviewsync/internal/core/domain"
)

// ReplayService orchestrates replay sessions: it loads the recorded logs,
// builds the timeline, owns the running synchronizers and fans replay frames
// out to subscribers.
type ReplayService interface {
	CreateSession(ctx context.Context, title, videoURL, audioURL string, durationSeconds float64) (*domain.Session, error)
	GetSession(ctx context.Context, id domain.SessionID) (*domain.Session, error)
	ListSessions(ctx context.Context) ([]*domain.Session, error)
	DeleteSession(ctx context.Context, id domain.SessionID) error

	AppendActions(ctx context.Context, id domain.SessionID, actions []domain.Action) error
	ListActions(ctx context.Context, id domain.SessionID) ([]domain.Action, error)
	AppendStrokes(ctx context.Context, id domain.SessionID, strokes []domain.Stroke) error
	ListStrokes(ctx context.Context, id domain.SessionID) ([]domain.Stroke, error)

	StartReplay(ctx context.Context, id domain.SessionID) error
	StopReplay(id domain.SessionID) error
	// ResumeReplay lifts an indefinite recorded pause on viewer command.
	ResumeReplay(id domain.SessionID) error
	ReplayStatus(id domain.SessionID) (*domain.ReplayStatus, error)
	SessionStats(ctx context.Context, id domain.SessionID) (*domain.SessionStats, error)

	// Subscribe attaches a frame consumer to a running replay. The returned
	// cancel func detaches it; the channel closes when the replay ends.
	Subscribe(id domain.SessionID) (<-chan domain.ReplayFrame, func(), error)
}

// ReplayMetrics is implemented by the monitoring layer; the core records
// through it without depending on a concrete metrics backend.
type ReplayMetrics interface {
	ReplayStarted(id domain.SessionID)
	ReplayStopped(id domain.SessionID)
	ReplayCompleted(id domain.SessionID)
	ReplayErrored(id domain.SessionID)
	ActionExecuted(actionType string)
	DriftCorrected(drift float64)
}
