package store

import (
	"context"
	"fmt"

	"github.com/manyeka-petros/malonda-web-app/internal/models"
	"github.com/manyeka-petros/malonda-web-app/internal/util"
)

// CreateCartItem inserts a cart row. A duplicate (user, product) pair is
// surfaced as a conflict, never silently overwritten.
func (s *Store) CreateCartItem(ctx context.Context, item *models.CartItem) error {
	query := `
		INSERT INTO cart_items (user_id, product_id, quantity)
		VALUES ($1, $2, $3)
		RETURNING id, added_at`

	err := s.db.GetContext(ctx, item, query, item.UserID, item.ProductID, item.Quantity)
	if isUniqueViolation(err) {
		return fmt.Errorf("product %d already in cart: %w", item.ProductID, util.ErrConflict)
	}
	return err
}

// GetCartItemsByUserID retrieves a user's cart
func (s *Store) GetCartItemsByUserID(ctx context.Context, userID int64) ([]models.CartItem, error) {
	items := []models.CartItem{}
	err := s.db.SelectContext(ctx, &items,
		"SELECT * FROM cart_items WHERE user_id = $1 ORDER BY added_at DESC", userID)
	return items, err
}

// DeleteCartItem removes a cart row scoped to its owner
func (s *Store) DeleteCartItem(ctx context.Context, id, userID int64) error {
	res, err := s.db.ExecContext(ctx,
		"DELETE FROM cart_items WHERE id = $1 AND user_id = $2", id, userID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("cart item %d: %w", id, util.ErrNotFound)
	}
	return nil
}

// CreateWishlistItem inserts a wishlist row, rejecting duplicates
func (s *Store) CreateWishlistItem(ctx context.Context, item *models.WishlistItem) error {
	query := `
		INSERT INTO wishlist_items (user_id, product_id)
		VALUES ($1, $2)
		RETURNING id, added_at`

	err := s.db.GetContext(ctx, item, query, item.UserID, item.ProductID)
	if isUniqueViolation(err) {
		return fmt.Errorf("product %d already in wishlist: %w", item.ProductID, util.ErrConflict)
	}
	return err
}

// GetWishlistItemsByUserID retrieves a user's wishlist
func (s *Store) GetWishlistItemsByUserID(ctx context.Context, userID int64) ([]models.WishlistItem, error) {
	items := []models.WishlistItem{}
	err := s.db.SelectContext(ctx, &items,
		"SELECT * FROM wishlist_items WHERE user_id = $1 ORDER BY added_at DESC", userID)
	return items, err
}

// DeleteWishlistItem removes a wishlist row scoped to its owner
func (s *Store) DeleteWishlistItem(ctx context.Context, id, userID int64) error {
	res, err := s.db.ExecContext(ctx,
		"DELETE FROM wishlist_items WHERE id = $1 AND user_id = $2", id, userID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("wishlist item %d: %w", id, util.ErrNotFound)
	}
	return nil
}
