package storage

import (
	"context"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

func getRedisClient(t *testing.T) *redis.Client {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		addr = "localhost:6379"
	}

	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(context.Background()).Err(); err != nil {
		t.Skipf("Redis not available: %v", err)
	}

	return client
}

func TestSetIdempotency(t *testing.T) {
	client := getRedisClient(t)
	defer client.Close()

	ctx := context.Background()
	adapter := NewRedisAdapter(client)
	key := "test-req-" + uuid.NewString()
	defer client.Del(ctx, idempotencyKeyPrefix+key)

	ok, err := adapter.SetIdempotency(ctx, key)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok {
		t.Error("expected first set to succeed")
	}

	ok, err = adapter.SetIdempotency(ctx, key)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Error("expected duplicate set to fail")
	}

	// clearing releases the key for a retry
	if err := adapter.ClearIdempotency(ctx, key); err != nil {
		t.Fatalf("clear failed: %v", err)
	}
	ok, err = adapter.SetIdempotency(ctx, key)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok {
		t.Error("expected set after clear to succeed")
	}
}

func TestPendingOrderCache(t *testing.T) {
	client := getRedisClient(t)
	defer client.Close()

	ctx := context.Background()
	adapter := NewRedisAdapter(client)
	accountID := "test-acc-" + uuid.NewString()
	defer client.Del(ctx, pendingOrderKeyPrefix+accountID)

	// miss returns empty, not an error
	id, err := adapter.GetPendingOrderID(ctx, accountID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id != "" {
		t.Errorf("expected empty id on miss, got %q", id)
	}

	if err := adapter.SetPendingOrderID(ctx, accountID, "order-42"); err != nil {
		t.Fatalf("set failed: %v", err)
	}

	id, err = adapter.GetPendingOrderID(ctx, accountID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id != "order-42" {
		t.Errorf("expected order-42, got %q", id)
	}

	if err := adapter.InvalidatePendingOrder(ctx, accountID); err != nil {
		t.Fatalf("invalidate failed: %v", err)
	}

	id, err = adapter.GetPendingOrderID(ctx, accountID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id != "" {
		t.Errorf("expected empty id after invalidate, got %q", id)
	}
}
