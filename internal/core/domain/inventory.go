package domain

import "time"

type ItemStatus string

const (
	ItemStatusUnfulfilled ItemStatus = "unfulfilled"
	// ItemStatusWithdrawing is written when an item is assigned to an order.
	// The external fulfillment process advances withdrawing -> withdrawn once
	// the order ships; this core never writes the terminal status.
	ItemStatusWithdrawing ItemStatus = "withdrawing"
	ItemStatusWithdrawn   ItemStatus = "withdrawn"
)

// ItemKey identifies an inventory item by its id pair.
type ItemKey struct {
	ItemID string
	SubKey string
}

type InventoryItem struct {
	ItemID    string
	SubKey    string
	AccountID string
	Status    ItemStatus
	UpdatedAt time.Time
}

func (i InventoryItem) Key() ItemKey {
	return ItemKey{ItemID: i.ItemID, SubKey: i.SubKey}
}
