package storage

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	idempotencyKeyPrefix  = "withdraw:req:"
	pendingOrderKeyPrefix = "withdraw:pending:"
	idempotencyKeyTTL     = 24 * time.Hour
	pendingOrderKeyTTL    = 10 * time.Minute
)

type RedisAdapter struct {
	client *redis.Client
}

func NewRedisAdapter(client *redis.Client) *RedisAdapter {
	return &RedisAdapter{client: client}
}

func (r *RedisAdapter) SetIdempotency(ctx context.Context, key string) (bool, error) {
	ok, err := r.client.SetNX(ctx, idempotencyKeyPrefix+key, 1, idempotencyKeyTTL).Result()
	if err != nil {
		return false, err
	}

	return ok, nil
}

func (r *RedisAdapter) ClearIdempotency(ctx context.Context, key string) error {
	return r.client.Del(ctx, idempotencyKeyPrefix+key).Err()
}

func (r *RedisAdapter) GetPendingOrderID(ctx context.Context, accountID string) (string, error) {
	id, err := r.client.Get(ctx, pendingOrderKeyPrefix+accountID).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return id, nil
}

func (r *RedisAdapter) SetPendingOrderID(ctx context.Context, accountID, orderID string) error {
	return r.client.Set(ctx, pendingOrderKeyPrefix+accountID, orderID, pendingOrderKeyTTL).Err()
}

func (r *RedisAdapter) InvalidatePendingOrder(ctx context.Context, accountID string) error {
	return r.client.Del(ctx, pendingOrderKeyPrefix+accountID).Err()
}
