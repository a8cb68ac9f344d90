package memory

import (
	"context"
	"sync"

	"reviewsync/internal/core/domain"
	"reviewsync/internal/core/ports"
)

// MemoryActionRepository keeps each session's action log in insertion order.
type MemoryActionRepository struct {
	logs map[domain.SessionID][]domain.Action
	mu   sync.RWMutex
}

func NewMemoryActionRepository() ports.ActionLogRepository {
	return &MemoryActionRepository{
		logs: make(map[domain.SessionID][]domain.Action),
	}
}

func (r *MemoryActionRepository) Append(ctx context.Context, id domain.SessionID, actions []domain.Action) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.logs[id] = append(r.logs[id], actions...)
	return nil
}

func (r *MemoryActionRepository) ListBySession(ctx context.Context, id domain.SessionID) ([]domain.Action, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	log := r.logs[id]
	out := make([]domain.Action, len(log))
	copy(out, log)
	return out, nil
}

func (r *MemoryActionRepository) DeleteBySession(ctx context.Context, id domain.SessionID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.logs, id)
	return nil
}
