package plan

import (
	"errors"
	"fmt"
	"time"

	"github.com/tdhoang/withdrawal-service/internal/core/domain"
)

// ErrIDCountMismatch means the caller minted a different number of
// identifiers than the plan has new orders.
var ErrIDCountMismatch = errors.New("identifier count does not match new order count")

// ItemUpdate moves one inventory item into withdrawing, conditioned on the
// item still being unfulfilled.
type ItemUpdate struct {
	Key          domain.ItemKey
	ExpectStatus domain.ItemStatus
	NewStatus    domain.ItemStatus
	UpdatedAt    time.Time
}

// OrderUpdate appends items to the existing order, conditioned on the order
// still being pending. PriorCount is the item count before the append; the
// appended items take positions PriorCount onward and the stored count
// becomes NewCount.
type OrderUpdate struct {
	OrderID      string
	ExpectStatus domain.OrderStatus
	NewStatus    domain.OrderStatus
	AppendItems  []domain.ItemKey
	PriorCount   int
	NewCount     int
	UpdatedAt    time.Time
}

// OrderCreate inserts a full order record, conditioned on its identifier not
// already existing.
type OrderCreate struct {
	Order domain.Order
}

// WriteSet is the full set of conditioned operations for one withdrawal.
// It must be applied as a single all-or-nothing unit: a failed condition on
// any operation aborts every operation.
type WriteSet struct {
	ItemUpdates  []ItemUpdate
	OrderUpdate  *OrderUpdate
	OrderCreates []OrderCreate
}

func (ws WriteSet) Empty() bool {
	return len(ws.ItemUpdates) == 0 && ws.OrderUpdate == nil && len(ws.OrderCreates) == 0
}

// BuildWriteSet projects a Plan into conditioned writes. It reads the plan
// and mutates nothing; the returned set is the only description of the
// changes, so what gets written cannot drift from what was planned.
// newIDs supplies one identifier per new order, in plan order.
func BuildWriteSet(p Plan, account domain.Account, now time.Time, newIDs []string) (WriteSet, error) {
	if len(newIDs) != len(p.NewOrders) {
		return WriteSet{}, fmt.Errorf("%d ids for %d new orders: %w", len(newIDs), len(p.NewOrders), ErrIDCountMismatch)
	}
	if len(p.NewOrders) > 0 && account.ShippingAddress == nil {
		return WriteSet{}, ErrMissingShippingAddress
	}

	var ws WriteSet
	withdraw := func(it domain.InventoryItem) {
		ws.ItemUpdates = append(ws.ItemUpdates, ItemUpdate{
			Key:          it.Key(),
			ExpectStatus: domain.ItemStatusUnfulfilled,
			NewStatus:    domain.ItemStatusWithdrawing,
			UpdatedAt:    now,
		})
	}

	if p.Fill != nil {
		keys := make([]domain.ItemKey, len(p.Fill.Append))
		for i, it := range p.Fill.Append {
			keys[i] = it.Key()
			withdraw(it)
		}
		ws.OrderUpdate = &OrderUpdate{
			OrderID:      p.Fill.Order.ID,
			ExpectStatus: domain.OrderStatusPending,
			NewStatus:    p.Fill.NewStatus,
			AppendItems:  keys,
			PriorCount:   len(p.Fill.Order.Items),
			NewCount:     len(p.Fill.Order.Items) + len(keys),
			UpdatedAt:    now,
		}
	}

	for i, no := range p.NewOrders {
		keys := make([]domain.ItemKey, len(no.Items))
		for j, it := range no.Items {
			keys[j] = it.Key()
			withdraw(it)
		}
		ws.OrderCreates = append(ws.OrderCreates, OrderCreate{
			Order: domain.Order{
				ID:              newIDs[i],
				AccountID:       account.ID,
				Status:          no.Status,
				ShippingAddress: *account.ShippingAddress,
				Items:           keys,
				CreatedAt:       now,
				UpdatedAt:       now,
			},
		})
	}

	return ws, nil
}
