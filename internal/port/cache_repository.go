package port

import "context"

type CacheRepository interface {
	// SetIdempotency sets a key for idempotency check, returns false if already exists
	SetIdempotency(ctx context.Context, key string) (bool, error)

	// ClearIdempotency releases a key so the same request id may be
	// retried, used when the request failed without writing anything.
	ClearIdempotency(ctx context.Context, key string) error

	// GetPendingOrderID returns the cached pending-order id for an account,
	// or "" on a miss. The cache is advisory; the database stays authoritative.
	GetPendingOrderID(ctx context.Context, accountID string) (string, error)

	SetPendingOrderID(ctx context.Context, accountID, orderID string) error

	InvalidatePendingOrder(ctx context.Context, accountID string) error
}
