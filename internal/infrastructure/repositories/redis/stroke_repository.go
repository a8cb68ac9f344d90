package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"reviewsync/internal/core/domain"
	"reviewsync/internal/core/ports"

	"github.com/redis/go-redis/v9"
)

type RedisStrokeRepository struct {
	client *redis.Client
	prefix string
}

func NewRedisStrokeRepository(client *redis.Client) ports.StrokeRepository {
	return &RedisStrokeRepository{
		client: client,
		prefix: "reviewsync:strokes:",
	}
}

func (r *RedisStrokeRepository) logKey(id domain.SessionID) string {
	return r.prefix + string(id)
}

func (r *RedisStrokeRepository) Append(ctx context.Context, id domain.SessionID, strokes []domain.Stroke) error {
	if len(strokes) == 0 {
		return nil
	}
	entries := make([]interface{}, 0, len(strokes))
	for _, s := range strokes {
		data, err := json.Marshal(s)
		if err != nil {
			return fmt.Errorf("failed to marshal stroke: %w", err)
		}
		entries = append(entries, data)
	}
	if err := r.client.RPush(ctx, r.logKey(id), entries...).Err(); err != nil {
		return fmt.Errorf("failed to append strokes in Redis: %w", err)
	}
	return nil
}

func (r *RedisStrokeRepository) ListBySession(ctx context.Context, id domain.SessionID) ([]domain.Stroke, error) {
	entries, err := r.client.LRange(ctx, r.logKey(id), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read stroke log from Redis: %w", err)
	}

	strokes := make([]domain.Stroke, 0, len(entries))
	for _, entry := range entries {
		var s domain.Stroke
		if err := json.Unmarshal([]byte(entry), &s); err != nil {
			return nil, fmt.Errorf("failed to unmarshal stroke: %w", err)
		}
		strokes = append(strokes, s)
	}
	return strokes, nil
}

func (r *RedisStrokeRepository) DeleteBySession(ctx context.Context, id domain.SessionID) error {
	if err := r.client.Del(ctx, r.logKey(id)).Err(); err != nil {
		return fmt.Errorf("failed to delete stroke log from Redis: %w", err)
	}
	return nil
}
