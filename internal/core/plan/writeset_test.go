package plan

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tdhoang/withdrawal-service/internal/core/domain"
)

var testAddress = domain.ShippingAddress{
	Recipient:  "A. Customer",
	Line1:      "42 Depot Rd",
	City:       "Springfield",
	PostalCode: "12345",
	Country:    "US",
}

func testAccount() domain.Account {
	addr := testAddress
	return domain.Account{ID: "acc-1", ShippingAddress: &addr}
}

func TestBuildWriteSet_FillAndCreate(t *testing.T) {
	now := time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)
	existing := makePendingOrder(12)
	p, err := Build(existing, makeItems(5), domain.OrderCapacity)
	require.NoError(t, err)

	ws, err := BuildWriteSet(p, testAccount(), now, []string{"order-new-1"})
	require.NoError(t, err)

	// one conditioned update per withdrawn item
	require.Len(t, ws.ItemUpdates, 5)
	for _, iu := range ws.ItemUpdates {
		assert.Equal(t, domain.ItemStatusUnfulfilled, iu.ExpectStatus)
		assert.Equal(t, domain.ItemStatusWithdrawing, iu.NewStatus)
		assert.Equal(t, now, iu.UpdatedAt)
	}

	require.NotNil(t, ws.OrderUpdate)
	assert.Equal(t, "order-existing", ws.OrderUpdate.OrderID)
	assert.Equal(t, domain.OrderStatusPending, ws.OrderUpdate.ExpectStatus)
	assert.Equal(t, domain.OrderStatusProcessing, ws.OrderUpdate.NewStatus)
	assert.Len(t, ws.OrderUpdate.AppendItems, 3)
	assert.Equal(t, 12, ws.OrderUpdate.PriorCount)
	assert.Equal(t, 15, ws.OrderUpdate.NewCount)

	require.Len(t, ws.OrderCreates, 1)
	created := ws.OrderCreates[0].Order
	assert.Equal(t, "order-new-1", created.ID)
	assert.Equal(t, "acc-1", created.AccountID)
	assert.Equal(t, domain.OrderStatusPending, created.Status)
	assert.Equal(t, testAddress, created.ShippingAddress)
	assert.Len(t, created.Items, 2)
	assert.Equal(t, now, created.CreatedAt)
	assert.Equal(t, now, created.UpdatedAt)
}

func TestBuildWriteSet_EveryItemExactlyOnce(t *testing.T) {
	p, err := Build(makePendingOrder(10), makeItems(40), domain.OrderCapacity)
	require.NoError(t, err)

	ids := []string{"o1", "o2", "o3"}
	require.Equal(t, len(ids), p.NewOrderCount())

	ws, err := BuildWriteSet(p, testAccount(), time.Now(), ids)
	require.NoError(t, err)

	assert.Len(t, ws.ItemUpdates, 40)
	seen := make(map[domain.ItemKey]int)
	for _, iu := range ws.ItemUpdates {
		seen[iu.Key]++
	}
	for k, n := range seen {
		assert.Equal(t, 1, n, "item %v updated %d times", k, n)
	}

	referenced := len(ws.OrderUpdate.AppendItems)
	for _, oc := range ws.OrderCreates {
		referenced += len(oc.Order.Items)
	}
	assert.Equal(t, 40, referenced)
}

func TestBuildWriteSet_IDCountMismatch(t *testing.T) {
	p, err := Build(nil, makeItems(20), domain.OrderCapacity)
	require.NoError(t, err)
	require.Equal(t, 2, p.NewOrderCount())

	_, err = BuildWriteSet(p, testAccount(), time.Now(), []string{"only-one"})
	assert.ErrorIs(t, err, ErrIDCountMismatch)
}

func TestBuildWriteSet_NoAddressWithNewOrders(t *testing.T) {
	p, err := Build(nil, makeItems(3), domain.OrderCapacity)
	require.NoError(t, err)

	_, err = BuildWriteSet(p, domain.Account{ID: "acc-1"}, time.Now(), []string{"o1"})
	assert.ErrorIs(t, err, ErrMissingShippingAddress)
}

func TestBuildWriteSet_NoAddressFillOnly(t *testing.T) {
	// appending to the existing order needs no address, it already has one
	p, err := Build(makePendingOrder(5), makeItems(4), domain.OrderCapacity)
	require.NoError(t, err)
	require.Equal(t, 0, p.NewOrderCount())

	ws, err := BuildWriteSet(p, domain.Account{ID: "acc-1"}, time.Now(), nil)
	require.NoError(t, err)
	assert.NotNil(t, ws.OrderUpdate)
	assert.Empty(t, ws.OrderCreates)
}

func TestBuildWriteSet_EmptyPlan(t *testing.T) {
	ws, err := BuildWriteSet(Plan{}, domain.Account{ID: "acc-1"}, time.Now(), nil)
	require.NoError(t, err)
	assert.True(t, ws.Empty())
}

func TestBuildWriteSet_DoesNotMutatePlan(t *testing.T) {
	existing := makePendingOrder(12)
	p, err := Build(existing, makeItems(5), domain.OrderCapacity)
	require.NoError(t, err)

	itemsBefore := len(p.Fill.Order.Items)
	_, err = BuildWriteSet(p, testAccount(), time.Now(), []string{"o1"})
	require.NoError(t, err)

	assert.Len(t, p.Fill.Order.Items, itemsBefore)
	assert.Equal(t, domain.OrderStatusPending, p.Fill.Order.Status)
	assert.Len(t, existing.Items, 12)
}
