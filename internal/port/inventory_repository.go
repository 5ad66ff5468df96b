package port

import (
	"context"

	"github.com/tdhoang/withdrawal-service/internal/core/domain"
)

type InventoryRepository interface {
	// GetAccount returns nil when the account does not exist.
	GetAccount(ctx context.Context, accountID string) (*domain.Account, error)

	// GetItems loads the account's inventory items for the given keys,
	// preserving key order. Missing items are simply absent from the
	// result.
	GetItems(ctx context.Context, accountID string, keys []domain.ItemKey) ([]domain.InventoryItem, error)
}
