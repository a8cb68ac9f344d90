package memory

import (
	"context"
	"sync"

	"reviewsync/internal/core/domain"
	"reviewsync/internal/core/ports"
)

type MemoryStrokeRepository struct {
	strokes map[domain.SessionID][]domain.Stroke
	mu      sync.RWMutex
}

func NewMemoryStrokeRepository() ports.StrokeRepository {
	return &MemoryStrokeRepository{
		strokes: make(map[domain.SessionID][]domain.Stroke),
	}
}

func (r *MemoryStrokeRepository) Append(ctx context.Context, id domain.SessionID, strokes []domain.Stroke) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.strokes[id] = append(r.strokes[id], strokes...)
	return nil
}

func (r *MemoryStrokeRepository) ListBySession(ctx context.Context, id domain.SessionID) ([]domain.Stroke, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	log := r.strokes[id]
	out := make([]domain.Stroke, len(log))
	copy(out, log)
	return out, nil
}

func (r *MemoryStrokeRepository) DeleteBySession(ctx context.Context, id domain.SessionID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.strokes, id)
	return nil
}
