package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-sql-driver/mysql"

	"github.com/tdhoang/withdrawal-service/internal/core/domain"
	"github.com/tdhoang/withdrawal-service/internal/core/plan"
	"github.com/tdhoang/withdrawal-service/internal/port"
)

// mysqlDupEntry is the server error number for a unique key violation.
const mysqlDupEntry = 1062

type MySQLAdapter struct {
	db *sql.DB
}

func NewMySQLAdapter(db *sql.DB) *MySQLAdapter {
	return &MySQLAdapter{db: db}
}

func (m *MySQLAdapter) FindPendingOrder(ctx context.Context, accountID string) (*domain.Order, error) {
	var o domain.Order
	err := m.db.QueryRowContext(ctx, `
		SELECT id, account_id, status,
		       ship_recipient, ship_line1, ship_line2, ship_city, ship_postal_code, ship_country,
		       created_at, updated_at
		FROM orders
		WHERE account_id = ? AND status = ?
		ORDER BY created_at DESC
		LIMIT 1`,
		accountID, domain.OrderStatusPending,
	).Scan(&o.ID, &o.AccountID, &o.Status,
		&o.ShippingAddress.Recipient, &o.ShippingAddress.Line1, &o.ShippingAddress.Line2,
		&o.ShippingAddress.City, &o.ShippingAddress.PostalCode, &o.ShippingAddress.Country,
		&o.CreatedAt, &o.UpdatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query pending order: %w", err)
	}

	rows, err := m.db.QueryContext(ctx, `
		SELECT item_id, sub_key FROM order_items
		WHERE order_id = ? ORDER BY position`, o.ID)
	if err != nil {
		return nil, fmt.Errorf("query order items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var k domain.ItemKey
		if err := rows.Scan(&k.ItemID, &k.SubKey); err != nil {
			return nil, fmt.Errorf("scan order item: %w", err)
		}
		o.Items = append(o.Items, k)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate order items: %w", err)
	}

	return &o, nil
}

func (m *MySQLAdapter) GetAccount(ctx context.Context, accountID string) (*domain.Account, error) {
	var (
		a         domain.Account
		recipient sql.NullString
		line1     sql.NullString
		line2     sql.NullString
		city      sql.NullString
		postal    sql.NullString
		country   sql.NullString
	)
	err := m.db.QueryRowContext(ctx, `
		SELECT id, ship_recipient, ship_line1, ship_line2, ship_city, ship_postal_code, ship_country
		FROM accounts WHERE id = ?`, accountID,
	).Scan(&a.ID, &recipient, &line1, &line2, &city, &postal, &country)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query account: %w", err)
	}

	if recipient.Valid {
		a.ShippingAddress = &domain.ShippingAddress{
			Recipient:  recipient.String,
			Line1:      line1.String,
			Line2:      line2.String,
			City:       city.String,
			PostalCode: postal.String,
			Country:    country.String,
		}
	}
	return &a, nil
}

func (m *MySQLAdapter) GetItems(ctx context.Context, accountID string, keys []domain.ItemKey) ([]domain.InventoryItem, error) {
	items := make([]domain.InventoryItem, 0, len(keys))
	for _, k := range keys {
		var it domain.InventoryItem
		err := m.db.QueryRowContext(ctx, `
			SELECT item_id, sub_key, account_id, status, updated_at
			FROM inventory_items
			WHERE item_id = ? AND sub_key = ? AND account_id = ?`,
			k.ItemID, k.SubKey, accountID,
		).Scan(&it.ItemID, &it.SubKey, &it.AccountID, &it.Status, &it.UpdatedAt)

		if errors.Is(err, sql.ErrNoRows) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("query item %s/%s: %w", k.ItemID, k.SubKey, err)
		}
		items = append(items, it)
	}
	return items, nil
}

// Commit applies the write set in one transaction. Every statement carries
// its precondition in the WHERE clause; zero affected rows means the
// condition no longer holds and the whole transaction rolls back.
func (m *MySQLAdapter) Commit(ctx context.Context, ws plan.WriteSet) error {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	for _, iu := range ws.ItemUpdates {
		result, err := tx.ExecContext(ctx, `
			UPDATE inventory_items
			SET status = ?, updated_at = ?
			WHERE item_id = ? AND sub_key = ? AND status = ?`,
			iu.NewStatus, iu.UpdatedAt, iu.Key.ItemID, iu.Key.SubKey, iu.ExpectStatus,
		)
		if err != nil {
			return fmt.Errorf("update item %s/%s: %w", iu.Key.ItemID, iu.Key.SubKey, err)
		}
		if rows, _ := result.RowsAffected(); rows == 0 {
			return fmt.Errorf("item %s/%s not %s: %w", iu.Key.ItemID, iu.Key.SubKey, iu.ExpectStatus, port.ErrPreconditionFailed)
		}
	}

	if ou := ws.OrderUpdate; ou != nil {
		result, err := tx.ExecContext(ctx, `
			UPDATE orders
			SET status = ?, item_count = ?, updated_at = ?
			WHERE id = ? AND status = ?`,
			ou.NewStatus, ou.NewCount, ou.UpdatedAt, ou.OrderID, ou.ExpectStatus,
		)
		if err != nil {
			return fmt.Errorf("update order %s: %w", ou.OrderID, err)
		}
		if rows, _ := result.RowsAffected(); rows == 0 {
			return fmt.Errorf("order %s not %s: %w", ou.OrderID, ou.ExpectStatus, port.ErrPreconditionFailed)
		}
		if err := insertOrderItems(ctx, tx, ou.OrderID, ou.PriorCount, ou.AppendItems); err != nil {
			return err
		}
	}

	for _, oc := range ws.OrderCreates {
		o := oc.Order
		_, err := tx.ExecContext(ctx, `
			INSERT INTO orders (id, account_id, status,
				ship_recipient, ship_line1, ship_line2, ship_city, ship_postal_code, ship_country,
				item_count, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			o.ID, o.AccountID, o.Status,
			o.ShippingAddress.Recipient, o.ShippingAddress.Line1, o.ShippingAddress.Line2,
			o.ShippingAddress.City, o.ShippingAddress.PostalCode, o.ShippingAddress.Country,
			len(o.Items), o.CreatedAt, o.UpdatedAt,
		)
		if err != nil {
			if isDupEntry(err) {
				return fmt.Errorf("order id %s already exists: %w", o.ID, port.ErrPreconditionFailed)
			}
			return fmt.Errorf("insert order %s: %w", o.ID, err)
		}
		if err := insertOrderItems(ctx, tx, o.ID, 0, o.Items); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func insertOrderItems(ctx context.Context, tx *sql.Tx, orderID string, basePosition int, keys []domain.ItemKey) error {
	for i, k := range keys {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO order_items (order_id, position, item_id, sub_key)
			VALUES (?, ?, ?, ?)`,
			orderID, basePosition+i, k.ItemID, k.SubKey,
		)
		if err != nil {
			// a position or item collision means another writer appended
			// to the same order (or claimed the item) after our read; the
			// status-only order precondition cannot catch that race
			if isDupEntry(err) {
				return fmt.Errorf("order item %s/%s position %d taken: %w", k.ItemID, k.SubKey, basePosition+i, port.ErrPreconditionFailed)
			}
			return fmt.Errorf("insert order item %s/%s: %w", k.ItemID, k.SubKey, err)
		}
	}
	return nil
}

func isDupEntry(err error) bool {
	var mysqlErr *mysql.MySQLError
	return errors.As(err, &mysqlErr) && mysqlErr.Number == mysqlDupEntry
}
