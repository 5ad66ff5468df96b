package port

import (
	"context"
	"errors"

	"github.com/tdhoang/withdrawal-service/internal/core/domain"
	"github.com/tdhoang/withdrawal-service/internal/core/plan"
)

// ErrPreconditionFailed is returned by Commit when any operation's condition
// does not hold anymore: an item left unfulfilled, the pending order was
// advanced or cancelled by another writer, or a new order id collided.
// The whole write set is rolled back.
var ErrPreconditionFailed = errors.New("write precondition failed")

type OrderRepository interface {
	// FindPendingOrder returns the account's newest pending order, or nil
	// when the account has none.
	FindPendingOrder(ctx context.Context, accountID string) (*domain.Order, error)

	// Commit applies every operation in the write set atomically. Either
	// all of them are persisted or none is; a lost condition surfaces as
	// ErrPreconditionFailed.
	Commit(ctx context.Context, ws plan.WriteSet) error
}
