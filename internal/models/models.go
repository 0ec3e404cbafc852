package models

import (
	"database/sql"
	"time"

	"github.com/shopspring/decimal"
)

// User roles
const (
	RoleCustomer = "customer"
	RoleManager  = "manager"
	RoleAdmin    = "admin"
)

// User is an account holder
type User struct {
	ID           int64     `db:"id" json:"id"`
	Email        string    `db:"email" json:"email"`
	Username     string    `db:"username" json:"username"`
	PasswordHash string    `db:"password_hash" json:"-"`
	FirstName    string    `db:"first_name" json:"first_name"`
	LastName     string    `db:"last_name" json:"last_name"`
	Role         string    `db:"role" json:"role"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// IsManager reports whether the user may access manager-gated views
func (u *User) IsManager() bool {
	return u.Role == RoleManager || u.Role == RoleAdmin
}

// Category groups products; slug is generated from the name when absent
type Category struct {
	ID          int64         `db:"id" json:"id"`
	Name        string        `db:"name" json:"name"`
	Description string        `db:"description" json:"description"`
	ParentID    sql.NullInt64 `db:"parent_id" json:"parent_id,omitempty"`
	Slug        string        `db:"slug" json:"slug"`
}

// Product is a catalog entry. SKU is generated when absent and immutable
// once set.
type Product struct {
	ID            int64           `db:"id" json:"id"`
	Name          string          `db:"name" json:"name"`
	Description   string          `db:"description" json:"description"`
	Price         decimal.Decimal `db:"price" json:"price"`
	SKU           string          `db:"sku" json:"sku"`
	StockQuantity int             `db:"stock_quantity" json:"stock_quantity"`
	CategoryID    sql.NullInt64   `db:"category_id" json:"category_id,omitempty"`
	ImageURL      string          `db:"image_url" json:"image_url"`
	IsActive      bool            `db:"is_active" json:"is_active"`
	CreatedAt     time.Time       `db:"created_at" json:"created_at"`
}

// Order statuses. Pending is the initial state; paid and failed are reached
// only through payment reconciliation. Processing, shipped, delivered and
// cancelled are fulfillment states set manually.
const (
	OrderStatusPending    = "pending"
	OrderStatusProcessing = "processing"
	OrderStatusShipped    = "shipped"
	OrderStatusDelivered  = "delivered"
	OrderStatusCancelled  = "cancelled"
	OrderStatusPaid       = "paid"
	OrderStatusFailed     = "failed"
)

// ValidOrderStatus reports whether s belongs to the closed status enum
func ValidOrderStatus(s string) bool {
	switch s {
	case OrderStatusPending, OrderStatusProcessing, OrderStatusShipped,
		OrderStatusDelivered, OrderStatusCancelled, OrderStatusPaid, OrderStatusFailed:
		return true
	}
	return false
}

// Order owns its items; total_price is derived from them
type Order struct {
	ID         int64           `db:"id" json:"id"`
	UserID     int64           `db:"user_id" json:"user_id"`
	Status     string          `db:"status" json:"status"`
	TotalPrice decimal.Decimal `db:"total_price" json:"total_price"`
	TxRef      sql.NullString  `db:"tx_ref" json:"tx_ref,omitempty"`
	CreatedAt  time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time       `db:"updated_at" json:"updated_at"`
}

// OrderItem carries a price snapshot taken at order-creation time. The
// product reference is nullable so items survive product deletion.
type OrderItem struct {
	ID        int64           `db:"id" json:"id"`
	OrderID   int64           `db:"order_id" json:"order_id"`
	ProductID sql.NullInt64   `db:"product_id" json:"product_id,omitempty"`
	Quantity  int             `db:"quantity" json:"quantity"`
	Price     decimal.Decimal `db:"price" json:"price"`
}

// Transaction statuses
const (
	TxStatusInitiated  = "initiated"
	TxStatusSuccessful = "successful"
	TxStatusFailed     = "failed"
)

// Transaction mirrors one external payment attempt, correlated by tx_ref
type Transaction struct {
	ID          int64           `db:"id" json:"id"`
	UserID      sql.NullInt64   `db:"user_id" json:"user_id,omitempty"`
	TxRef       string          `db:"tx_ref" json:"tx_ref"`
	Amount      decimal.Decimal `db:"amount" json:"amount"`
	Currency    string          `db:"currency" json:"currency"`
	Status      string          `db:"status" json:"status"`
	Email       string          `db:"email" json:"email"`
	FirstName   string          `db:"first_name" json:"first_name"`
	LastName    string          `db:"last_name" json:"last_name"`
	Description string          `db:"description" json:"description"`
	CreatedAt   time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time       `db:"updated_at" json:"updated_at"`
}

// Terminal reports whether the transaction has reached a final status
func (t *Transaction) Terminal() bool {
	return t.Status == TxStatusSuccessful || t.Status == TxStatusFailed
}

// CartItem is unique per (user, product)
type CartItem struct {
	ID        int64     `db:"id" json:"id"`
	UserID    int64     `db:"user_id" json:"user_id"`
	ProductID int64     `db:"product_id" json:"product_id"`
	Quantity  int       `db:"quantity" json:"quantity"`
	AddedAt   time.Time `db:"added_at" json:"added_at"`
}

// WishlistItem is unique per (user, product)
type WishlistItem struct {
	ID        int64     `db:"id" json:"id"`
	UserID    int64     `db:"user_id" json:"user_id"`
	ProductID int64     `db:"product_id" json:"product_id"`
	AddedAt   time.Time `db:"added_at" json:"added_at"`
}
