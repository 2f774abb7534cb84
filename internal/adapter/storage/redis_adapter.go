package storage

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	eventKeyPrefix = "webhook:event:"
	eventKeyTTL    = 72 * time.Hour // provider retries stop well before this
)

type RedisAdapter struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisAdapter(client *redis.Client) *RedisAdapter {
	return &RedisAdapter{client: client, ttl: eventKeyTTL}
}

func (r *RedisAdapter) EventProcessed(ctx context.Context, eventID string) (bool, error) {
	n, err := r.client.Exists(ctx, eventKeyPrefix+eventID).Result()
	if err != nil {
		return false, err
	}

	return n == 1, nil
}

func (r *RedisAdapter) MarkEventProcessed(ctx context.Context, eventID string) error {
	return r.client.Set(ctx, eventKeyPrefix+eventID, time.Now().Unix(), r.ttl).Err()
}

func (r *RedisAdapter) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}
