package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/manyeka-petros/malonda-web-app/internal/models"
	"github.com/manyeka-petros/malonda-web-app/internal/store"
	"github.com/manyeka-petros/malonda-web-app/internal/util"

	"go.uber.org/zap"
)

// CartService handles per-user cart and wishlist entries
type CartService struct {
	store  *store.Store
	logger *zap.Logger
}

// NewCartService creates a new cart service
func NewCartService(store *store.Store) *CartService {
	return &CartService{
		store:  store,
		logger: util.GetLogger(),
	}
}

// AddToCartRequest is the cart insert payload
type AddToCartRequest struct {
	ProductID int64 `json:"product_id" binding:"required"`
	Quantity  int   `json:"quantity"`
}

// AddToWishlistRequest is the wishlist insert payload
type AddToWishlistRequest struct {
	ProductID int64 `json:"product_id" binding:"required"`
}

// AddToCart inserts a cart row for the user. A product already present is a
// conflict, not an overwrite.
func (s *CartService) AddToCart(ctx context.Context, user *models.User, req *AddToCartRequest) (*models.CartItem, error) {
	quantity := req.Quantity
	if quantity == 0 {
		quantity = 1
	}
	if quantity < 0 {
		return nil, fmt.Errorf("quantity must be positive: %w", util.ErrValidation)
	}

	if _, err := s.store.GetProductByID(ctx, req.ProductID); err != nil {
		return nil, err
	}

	item := &models.CartItem{
		UserID:    user.ID,
		ProductID: req.ProductID,
		Quantity:  quantity,
	}

	if err := s.store.CreateCartItem(ctx, item); err != nil {
		if errors.Is(err, util.ErrConflict) {
			util.CartConflictsTotal.Inc()
		}
		return nil, err
	}
	return item, nil
}

// ListCart retrieves the user's cart
func (s *CartService) ListCart(ctx context.Context, user *models.User) ([]models.CartItem, error) {
	return s.store.GetCartItemsByUserID(ctx, user.ID)
}

// RemoveFromCart deletes a cart row owned by the user
func (s *CartService) RemoveFromCart(ctx context.Context, user *models.User, itemID int64) error {
	return s.store.DeleteCartItem(ctx, itemID, user.ID)
}

// AddToWishlist inserts a wishlist row for the user, rejecting duplicates
func (s *CartService) AddToWishlist(ctx context.Context, user *models.User, req *AddToWishlistRequest) (*models.WishlistItem, error) {
	if _, err := s.store.GetProductByID(ctx, req.ProductID); err != nil {
		return nil, err
	}

	item := &models.WishlistItem{
		UserID:    user.ID,
		ProductID: req.ProductID,
	}

	if err := s.store.CreateWishlistItem(ctx, item); err != nil {
		if errors.Is(err, util.ErrConflict) {
			util.CartConflictsTotal.Inc()
		}
		return nil, err
	}
	return item, nil
}

// ListWishlist retrieves the user's wishlist
func (s *CartService) ListWishlist(ctx context.Context, user *models.User) ([]models.WishlistItem, error) {
	return s.store.GetWishlistItemsByUserID(ctx, user.ID)
}

// RemoveFromWishlist deletes a wishlist row owned by the user
func (s *CartService) RemoveFromWishlist(ctx context.Context, user *models.User, itemID int64) error {
	return s.store.DeleteWishlistItem(ctx, itemID, user.ID)
}
