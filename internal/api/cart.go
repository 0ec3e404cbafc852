package api

import (
	"net/http"

	"github.com/manyeka-petros/malonda-web-app/internal/service"

	"github.com/gin-gonic/gin"
)

// listCart handles GET /cart
func (h *Handler) listCart(c *gin.Context) {
	items, err := h.cart.ListCart(c.Request.Context(), currentUser(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, items)
}

// addToCart handles POST /cart
func (h *Handler) addToCart(c *gin.Context) {
	var req service.AddToCartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}

	item, err := h.cart.AddToCart(c.Request.Context(), currentUser(c), &req)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, item)
}

// removeFromCart handles DELETE /cart/:id
func (h *Handler) removeFromCart(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	if err := h.cart.RemoveFromCart(c.Request.Context(), currentUser(c), id); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"detail": "item removed from cart"})
}

// listWishlist handles GET /wishlist
func (h *Handler) listWishlist(c *gin.Context) {
	items, err := h.cart.ListWishlist(c.Request.Context(), currentUser(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, items)
}

// addToWishlist handles POST /wishlist
func (h *Handler) addToWishlist(c *gin.Context) {
	var req service.AddToWishlistRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}

	item, err := h.cart.AddToWishlist(c.Request.Context(), currentUser(c), &req)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, item)
}

// removeFromWishlist handles DELETE /wishlist/:id
func (h *Handler) removeFromWishlist(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	if err := h.cart.RemoveFromWishlist(c.Request.Context(), currentUser(c), id); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"detail": "item removed from wishlist"})
}
