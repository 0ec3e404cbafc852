package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/manyeka-petros/malonda-web-app/internal/models"
	"github.com/manyeka-petros/malonda-web-app/internal/util"

	"github.com/shopspring/decimal"
)

// CreateOrderWithItems inserts an order and its items in one transaction so
// a failed item insert leaves no order row behind.
func (s *Store) CreateOrderWithItems(ctx context.Context, order *models.Order, items []models.OrderItem) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	query := `
		INSERT INTO orders (user_id, status, total_price, tx_ref)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at, updated_at`

	if err := tx.GetContext(ctx, order, query,
		order.UserID, order.Status, order.TotalPrice, order.TxRef); err != nil {
		return fmt.Errorf("failed to insert order: %w", err)
	}

	itemQuery := `
		INSERT INTO order_items (order_id, product_id, quantity, price)
		VALUES ($1, $2, $3, $4)
		RETURNING id`

	for i := range items {
		items[i].OrderID = order.ID
		if err := tx.GetContext(ctx, &items[i].ID, itemQuery,
			items[i].OrderID, items[i].ProductID, items[i].Quantity, items[i].Price); err != nil {
			return fmt.Errorf("failed to insert order item: %w", err)
		}
	}

	return tx.Commit()
}

// GetOrderByID retrieves an order by ID
func (s *Store) GetOrderByID(ctx context.Context, id int64) (*models.Order, error) {
	var order models.Order
	err := s.db.GetContext(ctx, &order, "SELECT * FROM orders WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("order %d: %w", id, util.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// GetOrderByTxRef retrieves the order tagged with a payment reference
func (s *Store) GetOrderByTxRef(ctx context.Context, txRef string) (*models.Order, error) {
	var order models.Order
	err := s.db.GetContext(ctx, &order, "SELECT * FROM orders WHERE tx_ref = $1", txRef)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("order for tx_ref %s: %w", txRef, util.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// CreateOrderForTxRef inserts an order tagged with a tx_ref, doing nothing
// when one already exists. The unique constraint on tx_ref makes this safe
// under concurrent webhook deliveries. Returns true when this call created
// the row.
func (s *Store) CreateOrderForTxRef(ctx context.Context, userID int64, txRef, status string, total decimal.Decimal) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO orders (user_id, status, total_price, tx_ref)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (tx_ref) DO NOTHING`,
		userID, status, total, txRef)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// GetOrdersByUserID retrieves orders for a user
func (s *Store) GetOrdersByUserID(ctx context.Context, userID int64) ([]models.Order, error) {
	orders := []models.Order{}
	err := s.db.SelectContext(ctx, &orders,
		"SELECT * FROM orders WHERE user_id = $1 ORDER BY created_at DESC", userID)
	return orders, err
}

// GetAllOrders retrieves every order, newest first
func (s *Store) GetAllOrders(ctx context.Context) ([]models.Order, error) {
	orders := []models.Order{}
	err := s.db.SelectContext(ctx, &orders, "SELECT * FROM orders ORDER BY created_at DESC")
	return orders, err
}

// UpdateOrderStatus updates order status
func (s *Store) UpdateOrderStatus(ctx context.Context, orderID int64, status string) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE orders SET status = $1, updated_at = NOW() WHERE id = $2",
		status, orderID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("order %d: %w", orderID, util.ErrNotFound)
	}
	return nil
}

// UpdateOrderTotal persists a recomputed total
func (s *Store) UpdateOrderTotal(ctx context.Context, orderID int64, total decimal.Decimal) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE orders SET total_price = $1, updated_at = NOW() WHERE id = $2",
		total, orderID)
	return err
}

// DeleteOrder deletes an order; its items cascade
func (s *Store) DeleteOrder(ctx context.Context, orderID int64) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM orders WHERE id = $1", orderID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("order %d: %w", orderID, util.ErrNotFound)
	}
	return nil
}

// GetOrderItemsByOrderID retrieves all items for an order
func (s *Store) GetOrderItemsByOrderID(ctx context.Context, orderID int64) ([]models.OrderItem, error) {
	items := []models.OrderItem{}
	err := s.db.SelectContext(ctx, &items,
		"SELECT * FROM order_items WHERE order_id = $1 ORDER BY id", orderID)
	return items, err
}

// UpdateOrderItemQuantity changes an item's quantity. The snapshot price is
// not part of the statement so it can never change after creation.
func (s *Store) UpdateOrderItemQuantity(ctx context.Context, itemID, orderID int64, quantity int) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE order_items SET quantity = $1 WHERE id = $2 AND order_id = $3",
		quantity, itemID, orderID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("order item %d: %w", itemID, util.ErrNotFound)
	}
	return nil
}

// DeleteOrderItem removes one item from an order
func (s *Store) DeleteOrderItem(ctx context.Context, itemID, orderID int64) error {
	res, err := s.db.ExecContext(ctx,
		"DELETE FROM order_items WHERE id = $1 AND order_id = $2", itemID, orderID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("order item %d: %w", itemID, util.ErrNotFound)
	}
	return nil
}

// SumOrderItems returns the sum of quantity * price over an order's items
func (s *Store) SumOrderItems(ctx context.Context, orderID int64) (decimal.Decimal, error) {
	var total decimal.Decimal
	err := s.db.GetContext(ctx, &total,
		"SELECT COALESCE(SUM(quantity * price), 0) FROM order_items WHERE order_id = $1", orderID)
	return total, err
}

// CountOrders counts all orders
func (s *Store) CountOrders(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.GetContext(ctx, &count, "SELECT COUNT(*) FROM orders")
	return count, err
}
