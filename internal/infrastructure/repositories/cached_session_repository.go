package repositories

import (
	"context"
	"fmt"
	"time"

	"reviewsync/internal/core/domain"
	"reviewsync/internal/core/ports"
	"reviewsync/pkg/cache"
)

// CachedSessionRepository wraps a SessionRepository with a read-through cache.
// Session metadata is immutable after creation, so the only invalidation
// points are Create and Delete.
type CachedSessionRepository struct {
	base ports.SessionRepository

	cache *cache.CacheWithFallback
	ttl   time.Duration
}

func NewCachedSessionRepository(base ports.SessionRepository, ttl time.Duration) *CachedSessionRepository {
	return &CachedSessionRepository{
		base:  base,
		cache: cache.NewCacheWithFallback(ttl),
		ttl:   ttl,
	}
}

func (r *CachedSessionRepository) Create(ctx context.Context, session *domain.Session) error {
	if err := r.base.Create(ctx, session); err != nil {
		return err
	}

	r.cache.Invalidate("sessions:list")
	return nil
}

func (r *CachedSessionRepository) GetByID(ctx context.Context, id domain.SessionID) (*domain.Session, error) {
	cacheKey := fmt.Sprintf("session:%s", id)

	value, err := r.cache.GetOrSet(ctx, cacheKey, func(ctx context.Context) (interface{}, error) {
		return r.base.GetByID(ctx, id)
	}, r.ttl)

	if err != nil {
		return nil, err
	}

	return value.(*domain.Session), nil
}

func (r *CachedSessionRepository) List(ctx context.Context) ([]*domain.Session, error) {
	cacheKey := "sessions:list"

	value, err := r.cache.GetOrSet(ctx, cacheKey, func(ctx context.Context) (interface{}, error) {
		return r.base.List(ctx)
	}, r.ttl)

	if err != nil {
		return nil, err
	}

	return value.([]*domain.Session), nil
}

func (r *CachedSessionRepository) Delete(ctx context.Context, id domain.SessionID) error {
	if err := r.base.Delete(ctx, id); err != nil {
		return err
	}

	r.cache.Invalidate(fmt.Sprintf("session:%s", id))
	r.cache.Invalidate("sessions:list")
	return nil
}

// Stop stops the cache cleanup goroutine.
func (r *CachedSessionRepository) Stop() {
	r.cache.Stop()
}
