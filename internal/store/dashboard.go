package store

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// MonthlySales is total order value for one calendar month
type MonthlySales struct {
	Month int             `db:"month"`
	Total decimal.Decimal `db:"total"`
}

// CategoryRevenue is revenue attributed to one category
type CategoryRevenue struct {
	Category string          `db:"category"`
	Revenue  decimal.Decimal `db:"revenue"`
}

// TopProduct is a product ranked by units sold
type TopProduct struct {
	Name    string          `db:"name"`
	Sales   int64           `db:"sales"`
	Revenue decimal.Decimal `db:"revenue"`
}

// RecentOrder is a dashboard row for the latest orders
type RecentOrder struct {
	ID         int64           `db:"id"`
	Email      string          `db:"email"`
	Status     string          `db:"status"`
	TotalPrice decimal.Decimal `db:"total_price"`
	CreatedAt  time.Time       `db:"created_at"`
}

// TotalSales sums total_price over all orders
func (s *Store) TotalSales(ctx context.Context) (decimal.Decimal, error) {
	var total decimal.Decimal
	err := s.db.GetContext(ctx, &total, "SELECT COALESCE(SUM(total_price), 0) FROM orders")
	return total, err
}

// SalesByMonth returns per-month order totals for one year
func (s *Store) SalesByMonth(ctx context.Context, year int) ([]MonthlySales, error) {
	rows := []MonthlySales{}
	err := s.db.SelectContext(ctx, &rows, `
		SELECT EXTRACT(MONTH FROM created_at)::int AS month,
		       COALESCE(SUM(total_price), 0) AS total
		FROM orders
		WHERE EXTRACT(YEAR FROM created_at) = $1
		GROUP BY month
		ORDER BY month`, year)
	return rows, err
}

// RevenueByCategory returns revenue grouped by product category, computed
// over item snapshots so later catalog price changes do not distort it
func (s *Store) RevenueByCategory(ctx context.Context) ([]CategoryRevenue, error) {
	rows := []CategoryRevenue{}
	err := s.db.SelectContext(ctx, &rows, `
		SELECT COALESCE(c.name, 'Uncategorized') AS category,
		       SUM(oi.quantity * oi.price) AS revenue
		FROM order_items oi
		LEFT JOIN products p ON p.id = oi.product_id
		LEFT JOIN categories c ON c.id = p.category_id
		GROUP BY category
		ORDER BY revenue DESC`)
	return rows, err
}

// TopProducts returns the best sellers by units sold
func (s *Store) TopProducts(ctx context.Context, limit int) ([]TopProduct, error) {
	rows := []TopProduct{}
	err := s.db.SelectContext(ctx, &rows, `
		SELECT COALESCE(p.name, 'Unknown Product') AS name,
		       SUM(oi.quantity) AS sales,
		       SUM(oi.quantity * oi.price) AS revenue
		FROM order_items oi
		LEFT JOIN products p ON p.id = oi.product_id
		GROUP BY p.name
		ORDER BY sales DESC
		LIMIT $1`, limit)
	return rows, err
}

// RecentOrders returns the latest orders with their owner's email
func (s *Store) RecentOrders(ctx context.Context, limit int) ([]RecentOrder, error) {
	rows := []RecentOrder{}
	err := s.db.SelectContext(ctx, &rows, `
		SELECT o.id, u.email, o.status, o.total_price, o.created_at
		FROM orders o
		JOIN users u ON u.id = o.user_id
		ORDER BY o.created_at DESC
		LIMIT $1`, limit)
	return rows, err
}
