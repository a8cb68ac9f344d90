package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"reviewsync/internal/core/domain"
	"reviewsync/internal/core/ports"

	"github.com/redis/go-redis/v9"
)

// RedisActionRepository stores each session's action log as a Redis list, so
// RPUSH/LRANGE preserve insertion order for free.
type RedisActionRepository struct {
	client *redis.Client
	prefix string
}

func NewRedisActionRepository(client *redis.Client) ports.ActionLogRepository {
	return &RedisActionRepository{
		client: client,
		prefix: "reviewsync:actions:",
	}
}

func (r *RedisActionRepository) logKey(id domain.SessionID) string {
	return r.prefix + string(id)
}

func (r *RedisActionRepository) Append(ctx context.Context, id domain.SessionID, actions []domain.Action) error {
	if len(actions) == 0 {
		return nil
	}
	entries := make([]interface{}, 0, len(actions))
	for _, a := range actions {
		data, err := json.Marshal(a)
		if err != nil {
			return fmt.Errorf("failed to marshal action: %w", err)
		}
		entries = append(entries, data)
	}
	if err := r.client.RPush(ctx, r.logKey(id), entries...).Err(); err != nil {
		return fmt.Errorf("failed to append actions in Redis: %w", err)
	}
	return nil
}

func (r *RedisActionRepository) ListBySession(ctx context.Context, id domain.SessionID) ([]domain.Action, error) {
	entries, err := r.client.LRange(ctx, r.logKey(id), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read action log from Redis: %w", err)
	}

	actions := make([]domain.Action, 0, len(entries))
	for _, entry := range entries {
		var a domain.Action
		if err := json.Unmarshal([]byte(entry), &a); err != nil {
			return nil, fmt.Errorf("failed to unmarshal action: %w", err)
		}
		actions = append(actions, a)
	}
	return actions, nil
}

func (r *RedisActionRepository) DeleteBySession(ctx context.Context, id domain.SessionID) error {
	if err := r.client.Del(ctx, r.logKey(id)).Err(); err != nil {
		return fmt.Errorf("failed to delete action log from Redis: %w", err)
	}
	return nil
}
