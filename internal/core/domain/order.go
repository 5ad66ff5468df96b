package domain

import "time"

type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusShipped    OrderStatus = "shipped"
	OrderStatusCancelled  OrderStatus = "cancelled"
)

// OrderCapacity is the maximum number of items an order may hold. A pending
// order that reaches it transitions to processing in the same atomic write
// that adds its final item.
const OrderCapacity = 15

type Order struct {
	ID              string
	AccountID       string
	Status          OrderStatus
	ShippingAddress ShippingAddress // snapshot taken at creation, never updated
	Items           []ItemKey
	CreatedAt       time.Time
	UpdatedAt       time.Time
}
