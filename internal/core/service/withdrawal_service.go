package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/tdhoang/withdrawal-service/internal/core/domain"
	"github.com/tdhoang/withdrawal-service/internal/core/plan"
	"github.com/tdhoang/withdrawal-service/internal/port"
)

var (
	ErrDuplicateRequest = errors.New("duplicate request")

	// ErrConcurrentModification means another writer won the race: an item
	// was already withdrawn, the pending order changed status, or an order
	// id collided. Nothing was written. The caller must re-read state and
	// retry with a fresh plan; replaying the same one would write stale data.
	ErrConcurrentModification = errors.New("concurrent modification")

	ErrItemNotWithdrawable = errors.New("item not available for withdrawal")
	ErrDuplicateItem       = errors.New("item appears more than once in batch")
	ErrAccountNotFound     = errors.New("account not found")
	ErrItemNotFound        = errors.New("inventory item not found")
)

type WithdrawalService struct {
	orders    port.OrderRepository
	inventory port.InventoryRepository
	cache     port.CacheRepository
	ids       port.IDSource
	logger    *zap.Logger
	now       func() time.Time
}

func NewWithdrawalService(
	orders port.OrderRepository,
	inventory port.InventoryRepository,
	cache port.CacheRepository,
	ids port.IDSource,
	logger *zap.Logger,
) *WithdrawalService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WithdrawalService{
		orders:    orders,
		inventory: inventory,
		cache:     cache,
		ids:       ids,
		logger:    logger,
		now:       time.Now,
	}
}

// WithdrawalResult reflects the intended post-write state. It is only
// authoritative because Withdraw returns it after the atomic write committed.
type WithdrawalResult struct {
	// Orders lists every mutated or created order: the filled existing
	// order first (if any), then new orders in creation order.
	Orders []domain.Order
	// Items are the withdrawn items, now in withdrawing status.
	Items   []domain.InventoryItem
	Account domain.Account
}

// Withdraw assigns the given items to orders for the account and persists
// the whole assignment as one atomic conditioned write.
//
// requestID is optional; when present, a repeated id is rejected with
// ErrDuplicateRequest. Validation errors (plan.ErrTooManyItems,
// plan.ErrMissingShippingAddress, ErrItemNotWithdrawable) surface before any
// write is attempted. A lost write race surfaces as
// ErrConcurrentModification with zero mutations applied; retry policy
// belongs to the caller.
func (s *WithdrawalService) Withdraw(ctx context.Context, requestID string, account domain.Account, items []domain.InventoryItem) (*WithdrawalResult, error) {
	if len(items) > plan.MaxBatchItems {
		return nil, fmt.Errorf("%d items: %w", len(items), plan.ErrTooManyItems)
	}

	if requestID != "" {
		ok, err := s.cache.SetIdempotency(ctx, requestID)
		if err != nil {
			return nil, fmt.Errorf("idempotency check failed: %w", err)
		}
		if !ok {
			return nil, ErrDuplicateRequest
		}
	}

	seen := make(map[domain.ItemKey]struct{}, len(items))
	for _, it := range items {
		if it.Status != domain.ItemStatusUnfulfilled {
			return nil, fmt.Errorf("item %s/%s is %s: %w", it.ItemID, it.SubKey, it.Status, ErrItemNotWithdrawable)
		}
		// a repeated item would be planned into two order slots and then
		// fail its own write precondition, looking like a lost race the
		// caller could never retry out of
		if _, dup := seen[it.Key()]; dup {
			return nil, fmt.Errorf("item %s/%s: %w", it.ItemID, it.SubKey, ErrDuplicateItem)
		}
		seen[it.Key()] = struct{}{}
	}

	existing, err := s.orders.FindPendingOrder(ctx, account.ID)
	if err != nil {
		return nil, fmt.Errorf("pending order lookup: %w", err)
	}

	p, err := plan.Build(existing, items, domain.OrderCapacity)
	if err != nil {
		return nil, err
	}
	if p.NewOrderCount() > 0 && account.ShippingAddress == nil {
		return nil, plan.ErrMissingShippingAddress
	}

	now := s.now()
	ids := make([]string, p.NewOrderCount())
	for i := range ids {
		ids[i] = s.ids.NextID(now)
	}

	ws, err := plan.BuildWriteSet(p, account, now, ids)
	if err != nil {
		return nil, err
	}

	result := &WithdrawalResult{Account: account}
	if ws.Empty() {
		return result, nil
	}

	if err := s.orders.Commit(ctx, ws); err != nil {
		if errors.Is(err, port.ErrPreconditionFailed) {
			// release the request id so the caller's retry of the same
			// logical request is not rejected as a duplicate
			if requestID != "" {
				if cerr := s.cache.ClearIdempotency(ctx, requestID); cerr != nil {
					s.logger.Warn("idempotency key release failed",
						zap.String("request_id", requestID), zap.Error(cerr))
				}
			}
			s.logger.Info("withdrawal lost write race",
				zap.String("account_id", account.ID),
				zap.Error(err))
			return nil, ErrConcurrentModification
		}
		return nil, fmt.Errorf("atomic write: %w", err)
	}

	s.refreshPendingCache(ctx, account.ID, p, ids)

	if p.Fill != nil {
		o := p.Fill.Order
		merged := make([]domain.ItemKey, 0, len(o.Items)+len(p.Fill.Append))
		merged = append(merged, o.Items...)
		for _, it := range p.Fill.Append {
			merged = append(merged, it.Key())
		}
		o.Items = merged
		o.Status = p.Fill.NewStatus
		o.UpdatedAt = now
		result.Orders = append(result.Orders, o)
	}
	for _, oc := range ws.OrderCreates {
		result.Orders = append(result.Orders, oc.Order)
	}
	for _, it := range items {
		it.Status = domain.ItemStatusWithdrawing
		it.UpdatedAt = now
		result.Items = append(result.Items, it)
	}

	s.logger.Info("withdrawal committed",
		zap.String("account_id", account.ID),
		zap.Int("items", len(items)),
		zap.Int("orders_created", p.NewOrderCount()),
		zap.Bool("existing_filled", p.Fill != nil))

	return result, nil
}

// WithdrawForAccount loads the account and the named items before
// withdrawing. This is the entry point transport handlers use.
func (s *WithdrawalService) WithdrawForAccount(ctx context.Context, requestID, accountID string, keys []domain.ItemKey) (*WithdrawalResult, error) {
	if len(keys) > plan.MaxBatchItems {
		return nil, fmt.Errorf("%d items: %w", len(keys), plan.ErrTooManyItems)
	}

	account, err := s.inventory.GetAccount(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("load account: %w", err)
	}
	if account == nil {
		return nil, fmt.Errorf("account %s: %w", accountID, ErrAccountNotFound)
	}

	items, err := s.inventory.GetItems(ctx, accountID, keys)
	if err != nil {
		return nil, fmt.Errorf("load items: %w", err)
	}
	if len(items) != len(keys) {
		return nil, fmt.Errorf("found %d of %d items: %w", len(items), len(keys), ErrItemNotFound)
	}

	return s.Withdraw(ctx, requestID, *account, items)
}

// PendingOrderID returns the id of the account's current pending order, or
// "" when there is none. Reads through the cache; the database stays
// authoritative on a miss.
func (s *WithdrawalService) PendingOrderID(ctx context.Context, accountID string) (string, error) {
	id, err := s.cache.GetPendingOrderID(ctx, accountID)
	if err != nil {
		s.logger.Warn("pending order cache read failed", zap.String("account_id", accountID), zap.Error(err))
	} else if id != "" {
		return id, nil
	}

	order, err := s.orders.FindPendingOrder(ctx, accountID)
	if err != nil {
		return "", fmt.Errorf("pending order lookup: %w", err)
	}
	if order == nil {
		return "", nil
	}
	if err := s.cache.SetPendingOrderID(ctx, accountID, order.ID); err != nil {
		s.logger.Warn("pending order cache write failed", zap.String("account_id", accountID), zap.Error(err))
	}
	return order.ID, nil
}

// refreshPendingCache updates the advisory cache to match the pending order
// the committed plan leaves behind. Cache failures are logged, never fatal.
func (s *WithdrawalService) refreshPendingCache(ctx context.Context, accountID string, p plan.Plan, newIDs []string) {
	pendingID := ""
	if n := len(p.NewOrders); n > 0 && p.NewOrders[n-1].Status == domain.OrderStatusPending {
		pendingID = newIDs[n-1]
	} else if p.Fill != nil && p.Fill.NewStatus == domain.OrderStatusPending {
		pendingID = p.Fill.Order.ID
	}

	var err error
	if pendingID != "" {
		err = s.cache.SetPendingOrderID(ctx, accountID, pendingID)
	} else {
		err = s.cache.InvalidatePendingOrder(ctx, accountID)
	}
	if err != nil {
		s.logger.Warn("pending order cache refresh failed", zap.String("account_id", accountID), zap.Error(err))
	}
}
