// Package plan holds the pure core of withdrawal batching: deciding how a
// batch of inventory items splits between the account's accumulating order
// and newly created orders, and projecting that decision into a set of
// conditioned write operations. Nothing in this package touches storage.
package plan

import (
	"errors"
	"fmt"

	"github.com/tdhoang/withdrawal-service/internal/core/domain"
)

// MaxBatchItems caps the number of items accepted in a single withdrawal.
const MaxBatchItems = 200

var (
	ErrTooManyItems           = errors.New("too many items in one withdrawal")
	ErrMissingShippingAddress = errors.New("account has no shipping address")

	// ErrCorruptOrder means the looked-up pending order already holds
	// capacity or more items. That state is unreachable through this core,
	// so it signals prior corruption rather than a normal branch.
	ErrCorruptOrder = errors.New("pending order at or above capacity")
)

// FillExisting describes items appended to the account's current pending order.
type FillExisting struct {
	Order     domain.Order // copy of the looked-up order
	Append    []domain.InventoryItem
	NewStatus domain.OrderStatus
}

// NewOrder describes one order to be created, already holding its first batch.
type NewOrder struct {
	Items  []domain.InventoryItem
	Status domain.OrderStatus
}

// Plan is the immutable decision of which items go where. An empty Plan is a
// valid no-op.
type Plan struct {
	Fill      *FillExisting
	NewOrders []NewOrder
}

func (p Plan) NewOrderCount() int { return len(p.NewOrders) }

func (p Plan) Empty() bool { return p.Fill == nil && len(p.NewOrders) == 0 }

// Build splits items between the existing pending order (if any) and new
// orders of at most capacity items each.
//
// The existing order is topped up first. If that fills it to exactly
// capacity its planned status is processing, which frees the account's
// single pending slot for a trailing short chunk. The remainder is cut into
// consecutive chunks of capacity items; full chunks are born processing and
// only the final short chunk (if any) is born pending, so at most one
// pending order per account survives the whole operation.
func Build(existing *domain.Order, items []domain.InventoryItem, capacity int) (Plan, error) {
	if len(items) > MaxBatchItems {
		return Plan{}, fmt.Errorf("%d items: %w", len(items), ErrTooManyItems)
	}

	var p Plan
	rest := items

	if existing != nil {
		room := capacity - len(existing.Items)
		if room <= 0 {
			return Plan{}, fmt.Errorf("order %s holds %d items: %w", existing.ID, len(existing.Items), ErrCorruptOrder)
		}
		n := min(room, len(rest))
		if n > 0 {
			status := domain.OrderStatusPending
			if n == room {
				status = domain.OrderStatusProcessing
			}
			p.Fill = &FillExisting{
				Order:     *existing,
				Append:    rest[:n],
				NewStatus: status,
			}
			rest = rest[n:]
		}
	}

	for len(rest) > 0 {
		n := min(capacity, len(rest))
		status := domain.OrderStatusPending
		if n == capacity {
			status = domain.OrderStatusProcessing
		}
		p.NewOrders = append(p.NewOrders, NewOrder{Items: rest[:n], Status: status})
		rest = rest[n:]
	}

	return p, nil
}
