package service

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/manyeka-petros/malonda-web-app/internal/broker"
	"github.com/manyeka-petros/malonda-web-app/internal/models"
	"github.com/manyeka-petros/malonda-web-app/internal/store"
	"github.com/manyeka-petros/malonda-web-app/internal/util"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// OrderService owns the order ledger: creation with price snapshots, total
// recomputation, the status lifecycle, and scoped reads.
type OrderService struct {
	store          *store.Store
	eventPublisher *broker.EventPublisher
	locks          keyedMutex
	logger         *zap.Logger
}

// NewOrderService creates a new order service
func NewOrderService(store *store.Store, eventPublisher *broker.EventPublisher) *OrderService {
	return &OrderService{
		store:          store,
		eventPublisher: eventPublisher,
		logger:         util.GetLogger(),
	}
}

// keyedMutex serializes mutations per order id so concurrent item changes
// cannot race the recompute-and-save of total_price.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[int64]*orderLock
}

type orderLock struct {
	mu   sync.Mutex
	refs int
}

func (k *keyedMutex) lock(id int64) {
	k.mu.Lock()
	if k.locks == nil {
		k.locks = make(map[int64]*orderLock)
	}
	l, ok := k.locks[id]
	if !ok {
		l = &orderLock{}
		k.locks[id] = l
	}
	l.refs++
	k.mu.Unlock()

	l.mu.Lock()
}

func (k *keyedMutex) unlock(id int64) {
	k.mu.Lock()
	l := k.locks[id]
	l.refs--
	if l.refs == 0 {
		delete(k.locks, id)
	}
	k.mu.Unlock()

	l.mu.Unlock()
}

// CreateOrderRequest represents a request to create an order
type CreateOrderRequest struct {
	Items []OrderItemRequest `json:"items" binding:"required,min=1,dive"`
}

// OrderItemRequest represents an item in an order
type OrderItemRequest struct {
	ProductID int64 `json:"product" binding:"required"`
	Quantity  int   `json:"quantity" binding:"required,min=1"`
}

// OrderWithItems is an order together with its items
type OrderWithItems struct {
	models.Order
	Items []models.OrderItem `json:"items"`
}

// CreateOrder validates the items, snapshots each product's current price,
// and persists the order and its items atomically with the derived total.
func (s *OrderService) CreateOrder(ctx context.Context, user *models.User, req *CreateOrderRequest) (*OrderWithItems, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.CreateOrder")
	defer span.End()

	if len(req.Items) == 0 {
		util.OrdersFailedTotal.WithLabelValues("empty_items").Inc()
		return nil, fmt.Errorf("order needs at least one item: %w", util.ErrValidation)
	}
	for _, item := range req.Items {
		if item.Quantity <= 0 {
			util.OrdersFailedTotal.WithLabelValues("invalid_quantity").Inc()
			return nil, fmt.Errorf("quantity must be positive for product %d: %w", item.ProductID, util.ErrValidation)
		}
	}

	products, err := s.lookupProducts(ctx, req.Items)
	if err != nil {
		util.OrdersFailedTotal.WithLabelValues("invalid_items").Inc()
		return nil, err
	}

	items := make([]models.OrderItem, 0, len(req.Items))
	for _, item := range req.Items {
		product := products[item.ProductID]
		items = append(items, models.OrderItem{
			ProductID: sql.NullInt64{Int64: product.ID, Valid: true},
			Quantity:  item.Quantity,
			Price:     product.Price,
		})
	}

	order := &models.Order{
		UserID:     user.ID,
		Status:     models.OrderStatusPending,
		TotalPrice: CalculateTotal(items),
	}

	if err := s.store.CreateOrderWithItems(ctx, order, items); err != nil {
		util.OrdersFailedTotal.WithLabelValues("db_error").Inc()
		return nil, fmt.Errorf("failed to create order: %w", err)
	}

	util.OrdersCreatedTotal.Inc()
	s.logger.Info("Order created",
		zap.Int64("order_id", order.ID),
		zap.Int64("user_id", user.ID),
		zap.String("total", order.TotalPrice.String()))

	eventItems := make([]models.OrderItemData, 0, len(items))
	for _, item := range items {
		eventItems = append(eventItems, models.OrderItemData{
			ProductID: item.ProductID.Int64,
			Quantity:  item.Quantity,
			Price:     item.Price,
		})
	}
	event := &models.OrderCreatedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypeOrderCreated,
			Timestamp: time.Now(),
		},
		OrderID:    order.ID,
		UserID:     order.UserID,
		TotalPrice: order.TotalPrice,
		Items:      eventItems,
	}
	if err := s.eventPublisher.PublishOrderCreated(ctx, event); err != nil {
		s.logger.Error("Failed to publish OrderCreated event", zap.Error(err))
	}

	return &OrderWithItems{Order: *order, Items: items}, nil
}

// lookupProducts resolves every requested product and rejects unknown or
// inactive ones.
func (s *OrderService) lookupProducts(ctx context.Context, items []OrderItemRequest) (map[int64]*models.Product, error) {
	ids := make([]int64, len(items))
	for i, item := range items {
		ids[i] = item.ProductID
	}

	products, err := s.store.GetProductsByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	productMap := make(map[int64]*models.Product, len(products))
	for i := range products {
		productMap[products[i].ID] = &products[i]
	}

	for _, item := range items {
		product, ok := productMap[item.ProductID]
		if !ok {
			return nil, fmt.Errorf("product %d: %w", item.ProductID, util.ErrNotFound)
		}
		if !product.IsActive {
			return nil, fmt.Errorf("product %d is not available: %w", item.ProductID, util.ErrValidation)
		}
	}

	return productMap, nil
}

// CalculateTotal sums quantity * snapshot price over items
func CalculateTotal(items []models.OrderItem) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.Price.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	return total
}

// RecomputeTotal re-sums the order's item rows and persists the total only
// when it changed. Serialized per order id.
func (s *OrderService) RecomputeTotal(ctx context.Context, orderID int64) error {
	s.locks.lock(orderID)
	defer s.locks.unlock(orderID)

	order, err := s.store.GetOrderByID(ctx, orderID)
	if err != nil {
		return err
	}

	total, err := s.store.SumOrderItems(ctx, orderID)
	if err != nil {
		return fmt.Errorf("failed to sum order items: %w", err)
	}

	if order.TotalPrice.Equal(total) {
		return nil
	}
	return s.store.UpdateOrderTotal(ctx, orderID, total)
}

// UpdateItemQuantity changes one item's quantity and recomputes the order
// total. The snapshot price never changes.
func (s *OrderService) UpdateItemQuantity(ctx context.Context, user *models.User, orderID, itemID int64, quantity int) (*OrderWithItems, error) {
	if quantity <= 0 {
		return nil, fmt.Errorf("quantity must be positive: %w", util.ErrValidation)
	}

	order, err := s.store.GetOrderByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.UserID != user.ID && !user.IsManager() {
		return nil, fmt.Errorf("order %d: %w", orderID, util.ErrNotFound)
	}

	if err := s.store.UpdateOrderItemQuantity(ctx, itemID, orderID, quantity); err != nil {
		return nil, err
	}
	if err := s.RecomputeTotal(ctx, orderID); err != nil {
		return nil, err
	}
	return s.GetOrder(ctx, user, orderID)
}

// RemoveItem deletes one item from an order and recomputes the total
func (s *OrderService) RemoveItem(ctx context.Context, user *models.User, orderID, itemID int64) (*OrderWithItems, error) {
	order, err := s.store.GetOrderByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.UserID != user.ID && !user.IsManager() {
		return nil, fmt.Errorf("order %d: %w", orderID, util.ErrNotFound)
	}

	if err := s.store.DeleteOrderItem(ctx, itemID, orderID); err != nil {
		return nil, err
	}
	if err := s.RecomputeTotal(ctx, orderID); err != nil {
		return nil, err
	}
	return s.GetOrder(ctx, user, orderID)
}

// GetOrder retrieves an order with its items, scoped to the requester.
// Managers may read any order.
func (s *OrderService) GetOrder(ctx context.Context, user *models.User, orderID int64) (*OrderWithItems, error) {
	order, err := s.store.GetOrderByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.UserID != user.ID && !user.IsManager() {
		return nil, fmt.Errorf("order %d: %w", orderID, util.ErrNotFound)
	}

	items, err := s.store.GetOrderItemsByOrderID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	return &OrderWithItems{Order: *order, Items: items}, nil
}

// ListOrders retrieves the requester's orders
func (s *OrderService) ListOrders(ctx context.Context, user *models.User) ([]models.Order, error) {
	return s.store.GetOrdersByUserID(ctx, user.ID)
}

// ListAllOrders retrieves every order; manager or admin only
func (s *OrderService) ListAllOrders(ctx context.Context, user *models.User) ([]models.Order, error) {
	if !user.IsManager() {
		return nil, fmt.Errorf("manager role required: %w", util.ErrForbidden)
	}
	return s.store.GetAllOrders(ctx)
}

// UpdateStatus assigns a new status from the closed enum, scoped to the
// requester. Setting the current status again is a no-op.
func (s *OrderService) UpdateStatus(ctx context.Context, user *models.User, orderID int64, status string) (*models.Order, error) {
	if !models.ValidOrderStatus(status) {
		return nil, fmt.Errorf("unknown status %q: %w", status, util.ErrValidation)
	}

	order, err := s.store.GetOrderByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.UserID != user.ID && !user.IsManager() {
		return nil, fmt.Errorf("order %d: %w", orderID, util.ErrNotFound)
	}

	if err := s.transition(ctx, order, status); err != nil {
		return nil, err
	}
	return s.store.GetOrderByID(ctx, orderID)
}

// DeleteOrder removes an order and, through the schema, its items
func (s *OrderService) DeleteOrder(ctx context.Context, user *models.User, orderID int64) error {
	order, err := s.store.GetOrderByID(ctx, orderID)
	if err != nil {
		return err
	}
	if order.UserID != user.ID && !user.IsManager() {
		return fmt.Errorf("order %d: %w", orderID, util.ErrNotFound)
	}
	return s.store.DeleteOrder(ctx, orderID)
}

// MarkPaid transitions an order to paid. Idempotent.
func (s *OrderService) MarkPaid(ctx context.Context, orderID int64) error {
	order, err := s.store.GetOrderByID(ctx, orderID)
	if err != nil {
		return err
	}
	if err := s.transition(ctx, order, models.OrderStatusPaid); err != nil {
		return err
	}
	return nil
}

// MarkFailed transitions an order to failed. Idempotent.
func (s *OrderService) MarkFailed(ctx context.Context, orderID int64) error {
	order, err := s.store.GetOrderByID(ctx, orderID)
	if err != nil {
		return err
	}
	return s.transition(ctx, order, models.OrderStatusFailed)
}

// transition writes a status change, skipping the write and the event when
// the order already holds the target status.
func (s *OrderService) transition(ctx context.Context, order *models.Order, status string) error {
	if order.Status == status {
		return nil
	}

	if err := s.store.UpdateOrderStatus(ctx, order.ID, status); err != nil {
		return fmt.Errorf("failed to update order status: %w", err)
	}

	if status == models.OrderStatusPaid {
		util.OrdersPaidTotal.Inc()
	}

	event := &models.OrderStatusChangedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypeOrderStatusChanged,
			Timestamp: time.Now(),
		},
		OrderID:   order.ID,
		OldStatus: order.Status,
		NewStatus: status,
	}
	if err := s.eventPublisher.PublishOrderStatusChanged(ctx, event); err != nil {
		s.logger.Error("Failed to publish OrderStatusChanged event", zap.Error(err))
	}

	s.logger.Info("Order status changed",
		zap.Int64("order_id", order.ID),
		zap.String("from", order.Status),
		zap.String("to", status))
	return nil
}
