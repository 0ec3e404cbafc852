package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/manyeka-petros/malonda-web-app/internal/service"
	"github.com/manyeka-petros/malonda-web-app/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Pinger is a reachability check on a backing dependency
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handler contains HTTP handlers
type Handler struct {
	auth      *service.AuthService
	catalog   *service.CatalogService
	cart      *service.CartService
	orders    *service.OrderService
	payments  *service.PaymentService
	dashboard *service.DashboardService
	db        Pinger
	cache     Pinger
	logger    *zap.Logger
}

// NewHandler creates a new HTTP handler
func NewHandler(
	auth *service.AuthService,
	catalog *service.CatalogService,
	cart *service.CartService,
	orders *service.OrderService,
	payments *service.PaymentService,
	dashboard *service.DashboardService,
	db Pinger,
	cache Pinger,
) *Handler {
	return &Handler{
		auth:      auth,
		catalog:   catalog,
		cart:      cart,
		orders:    orders,
		payments:  payments,
		dashboard: dashboard,
		db:        db,
		cache:     cache,
		logger:    util.GetLogger(),
	}
}

// SetupRoutes sets up HTTP routes
func (h *Handler) SetupRoutes(router *gin.Engine) {
	router.Use(gin.Recovery())
	router.Use(prometheusMiddleware())
	router.Use(gin.Logger())

	router.GET("/health", h.healthCheck)
	router.GET("/ready", h.readinessCheck)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/api/v1")
	{
		v1.POST("/auth/register", h.register)
		v1.POST("/auth/login", h.login)
		v1.POST("/auth/refresh", h.refresh)

		v1.GET("/categories", h.listCategories)
		v1.GET("/categories/:id", h.getCategory)
		v1.GET("/products", h.listProducts)
		v1.GET("/products/:id", h.getProduct)

		// Provider callback; authenticated by signature, not by user.
		v1.POST("/payments/webhook", h.paymentWebhook)
	}

	authed := v1.Group("")
	authed.Use(h.authMiddleware())
	{
		authed.POST("/auth/logout", h.logout)

		authed.GET("/orders", h.listOrders)
		authed.POST("/orders", h.createOrder)
		authed.GET("/orders/:id", h.getOrder)
		authed.PUT("/orders/:id", h.updateOrder)
		authed.DELETE("/orders/:id", h.deleteOrder)
		authed.PUT("/orders/:id/items/:item_id", h.updateOrderItem)
		authed.DELETE("/orders/:id/items/:item_id", h.removeOrderItem)

		authed.GET("/cart", h.listCart)
		authed.POST("/cart", h.addToCart)
		authed.DELETE("/cart/:id", h.removeFromCart)
		authed.GET("/wishlist", h.listWishlist)
		authed.POST("/wishlist", h.addToWishlist)
		authed.DELETE("/wishlist/:id", h.removeFromWishlist)

		authed.POST("/payments/initiate", h.initiatePayment)
		authed.GET("/payments/verify/:tx_ref", h.verifyPayment)
		authed.GET("/payments/transactions", h.listTransactions)
	}

	manager := v1.Group("")
	manager.Use(h.authMiddleware(), h.requireManager())
	{
		manager.POST("/categories", h.createCategory)
		manager.PUT("/categories/:id", h.updateCategory)
		manager.DELETE("/categories/:id", h.deleteCategory)
		manager.POST("/products", h.createProduct)
		manager.PUT("/products/:id", h.updateProduct)
		manager.DELETE("/products/:id", h.deleteProduct)

		manager.GET("/manager/orders", h.listAllOrders)
		manager.GET("/manager/dashboard", h.managerDashboard)
	}
}

// healthCheck handles health check requests
func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"time":   time.Now().Unix(),
	})
}

// readinessCheck reports 503 until both backing stores answer
func (h *Handler) readinessCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	if err := h.db.Ping(ctx); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not ready", "database": err.Error()})
		return
	}
	if err := h.cache.Ping(ctx); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not ready", "redis": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "ready",
		"time":   time.Now().Unix(),
	})
}

// respondError maps the service error taxonomy to HTTP status codes
func (h *Handler) respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, util.ErrValidation), errors.Is(err, util.ErrSignature):
		status = http.StatusBadRequest
	case errors.Is(err, util.ErrAuth):
		status = http.StatusUnauthorized
	case errors.Is(err, util.ErrForbidden):
		status = http.StatusForbidden
	case errors.Is(err, util.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, util.ErrConflict):
		status = http.StatusConflict
	}

	if status == http.StatusInternalServerError {
		h.logger.Error("Request failed",
			zap.String("path", c.FullPath()),
			zap.Error(err))
	}

	c.JSON(status, gin.H{"error": err.Error()})
}
