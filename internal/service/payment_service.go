package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/manyeka-petros/malonda-web-app/config"
	"github.com/manyeka-petros/malonda-web-app/internal/gateway"
	"github.com/manyeka-petros/malonda-web-app/internal/models"
	"github.com/manyeka-petros/malonda-web-app/internal/util"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// PaymentStore is the slice of the store the payment flows touch
type PaymentStore interface {
	CreateTransaction(ctx context.Context, tx *models.Transaction) error
	GetTransactionByTxRef(ctx context.Context, txRef string) (*models.Transaction, error)
	UpdateTransactionStatus(ctx context.Context, txRef, status string) error
	GetTransactionsByUserID(ctx context.Context, userID int64) ([]models.Transaction, error)
	GetOrderByTxRef(ctx context.Context, txRef string) (*models.Order, error)
	CreateOrderForTxRef(ctx context.Context, userID int64, txRef, status string, total decimal.Decimal) (bool, error)
}

// OrderLedger flips an order's payment outcome
type OrderLedger interface {
	MarkPaid(ctx context.Context, orderID int64) error
	MarkFailed(ctx context.Context, orderID int64) error
}

// PaymentEventPublisher publishes payment lifecycle events
type PaymentEventPublisher interface {
	PublishPaymentInitiated(ctx context.Context, event *models.PaymentInitiatedEvent) error
	PublishPaymentSuccess(ctx context.Context, event *models.PaymentSuccessEvent) error
	PublishPaymentFailed(ctx context.Context, event *models.PaymentFailedEvent) error
}

// PaymentService bridges the order/transaction ledger to the hosted-checkout
// payment provider and reconciles status from verify calls and webhooks.
type PaymentService struct {
	store          PaymentStore
	provider       gateway.Provider
	orders         OrderLedger
	eventPublisher PaymentEventPublisher
	cfg            config.PaymentConfig
	logger         *zap.Logger
}

// NewPaymentService creates a new payment service
func NewPaymentService(
	store PaymentStore,
	provider gateway.Provider,
	orders OrderLedger,
	eventPublisher PaymentEventPublisher,
	cfg config.PaymentConfig,
) *PaymentService {
	return &PaymentService{
		store:          store,
		provider:       provider,
		orders:         orders,
		eventPublisher: eventPublisher,
		cfg:            cfg,
		logger:         util.GetLogger(),
	}
}

// InitiatePaymentRequest is the checkout initiation payload
type InitiatePaymentRequest struct {
	Amount      decimal.Decimal        `json:"amount" binding:"required"`
	Email       string                 `json:"email" binding:"required,email"`
	FirstName   string                 `json:"first_name"`
	LastName    string                 `json:"last_name"`
	Currency    string                 `json:"currency"`
	Title       string                 `json:"title"`
	Description string                 `json:"description"`
	Meta        map[string]interface{} `json:"meta"`
}

// InitiatePayment opens a provider checkout session. A local Transaction row
// with status "initiated" is written only after the provider accepts the
// session; any failure leaves no partial state. user may be nil for guest
// flows.
func (ps *PaymentService) InitiatePayment(ctx context.Context, user *models.User, req *InitiatePaymentRequest) (*gateway.CheckoutSession, *models.Transaction, error) {
	ctx, span := util.StartSpan(ctx, "PaymentService.InitiatePayment")
	defer span.End()

	if !req.Amount.IsPositive() {
		return nil, nil, fmt.Errorf("amount must be positive: %w", util.ErrValidation)
	}
	if req.Email == "" {
		return nil, nil, fmt.Errorf("email is required: %w", util.ErrValidation)
	}

	currency := req.Currency
	if currency == "" {
		currency = "MWK"
	}
	title := req.Title
	if title == "" {
		title = "Checkout"
	}
	description := req.Description
	if description == "" {
		description = "Standard Checkout"
	}

	txRef := uuid.New().String()

	checkout := &gateway.CheckoutRequest{
		TxRef:       txRef,
		Amount:      req.Amount,
		Currency:    currency,
		Email:       req.Email,
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		CallbackURL: ps.cfg.CallbackURL,
		ReturnURL:   ps.cfg.ReturnURL,
		Customization: gateway.Customization{
			Title:       title,
			Description: description,
		},
		Meta: req.Meta,
	}

	session, err := ps.provider.CreateCheckout(ctx, checkout)
	if err != nil {
		util.PaymentsFailedTotal.WithLabelValues("provider_error").Inc()
		ps.logger.Error("Payment initiation failed",
			zap.String("tx_ref", txRef),
			zap.Error(err))
		return nil, nil, err
	}

	if session.Status != "success" {
		util.PaymentsFailedTotal.WithLabelValues("provider_rejected").Inc()
		ps.logger.Warn("Provider rejected checkout session",
			zap.String("tx_ref", txRef),
			zap.String("status", session.Status))
		return session, nil, nil
	}

	tx := &models.Transaction{
		TxRef:       txRef,
		Amount:      req.Amount,
		Currency:    currency,
		Status:      models.TxStatusInitiated,
		Email:       req.Email,
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		Description: description,
	}
	if user != nil {
		tx.UserID = sql.NullInt64{Int64: user.ID, Valid: true}
	}

	if err := ps.store.CreateTransaction(ctx, tx); err != nil {
		return nil, nil, fmt.Errorf("failed to persist transaction: %w", err)
	}

	util.PaymentsInitiatedTotal.Inc()
	ps.logger.Info("Payment initiated",
		zap.String("tx_ref", txRef),
		zap.String("amount", req.Amount.String()))

	event := &models.PaymentInitiatedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypePaymentInitiated,
			Timestamp: time.Now(),
		},
		TxRef:    txRef,
		Amount:   req.Amount,
		Currency: currency,
	}
	if err := ps.eventPublisher.PublishPaymentInitiated(ctx, event); err != nil {
		ps.logger.Error("Failed to publish PaymentInitiated event", zap.Error(err))
	}

	return session, tx, nil
}

// VerifyPayment queries the provider for the authoritative state of a
// transaction and reconciles the local mirror. A payment is accepted only
// when the provider reports "successful" and the paid amount covers the
// locally recorded amount. Idempotent for an unchanged provider state.
func (ps *PaymentService) VerifyPayment(ctx context.Context, txRef string) (*models.Transaction, error) {
	ctx, span := util.StartSpan(ctx, "PaymentService.VerifyPayment")
	defer span.End()

	tx, err := ps.store.GetTransactionByTxRef(ctx, txRef)
	if err != nil {
		return nil, err
	}

	status, err := ps.provider.LookupTransaction(ctx, txRef)
	if err != nil {
		return nil, err
	}

	success := status.Status == gateway.StatusSuccessful && status.Amount.GreaterThanOrEqual(tx.Amount)
	if success {
		util.PaymentVerifyTotal.WithLabelValues("successful").Inc()
		if err := ps.reconcile(ctx, tx, models.TxStatusSuccessful, ""); err != nil {
			return nil, err
		}
	} else {
		util.PaymentVerifyTotal.WithLabelValues("failed").Inc()
		reason := "provider_status_" + status.Status
		if status.Status == gateway.StatusSuccessful {
			reason = "underpayment"
		}
		if err := ps.reconcile(ctx, tx, models.TxStatusFailed, reason); err != nil {
			return nil, err
		}
	}

	return ps.store.GetTransactionByTxRef(ctx, txRef)
}

// ListTransactions returns the caller's payment history, newest first
func (ps *PaymentService) ListTransactions(ctx context.Context, user *models.User) ([]models.Transaction, error) {
	return ps.store.GetTransactionsByUserID(ctx, user.ID)
}

// webhookPayload is the provider callback body
type webhookPayload struct {
	Data struct {
		TxRef  string          `json:"tx_ref"`
		Status string          `json:"status"`
		Amount decimal.Decimal `json:"amount"`
	} `json:"data"`
}

// HandleWebhook processes a provider callback. The delivery must carry a
// verifiable signature over the raw body; unsigned or tampered deliveries
// are rejected before any state is read. Redeliveries for a transaction
// already in a terminal status are no-ops.
func (ps *PaymentService) HandleWebhook(ctx context.Context, body []byte, signature string) error {
	ctx, span := util.StartSpan(ctx, "PaymentService.HandleWebhook")
	defer span.End()

	if err := ps.provider.VerifySignature(body, signature); err != nil {
		util.WebhookEventsTotal.WithLabelValues("bad_signature").Inc()
		return err
	}

	var payload webhookPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		util.WebhookEventsTotal.WithLabelValues("malformed").Inc()
		return fmt.Errorf("malformed webhook payload: %w", util.ErrValidation)
	}
	if payload.Data.TxRef == "" {
		util.WebhookEventsTotal.WithLabelValues("missing_tx_ref").Inc()
		return fmt.Errorf("missing tx_ref: %w", util.ErrValidation)
	}

	tx, err := ps.store.GetTransactionByTxRef(ctx, payload.Data.TxRef)
	if err != nil {
		util.WebhookEventsTotal.WithLabelValues("unknown_tx_ref").Inc()
		return err
	}

	if tx.Terminal() {
		util.WebhookEventsTotal.WithLabelValues("duplicate").Inc()
		ps.logger.Info("Webhook for settled transaction ignored",
			zap.String("tx_ref", tx.TxRef),
			zap.String("status", tx.Status))
		return nil
	}

	switch payload.Data.Status {
	case gateway.StatusSuccessful:
		// The delivery's paid amount must cover the locally recorded
		// amount, same rule as the verify path.
		if payload.Data.Amount.LessThan(tx.Amount) {
			util.WebhookEventsTotal.WithLabelValues("underpaid").Inc()
			return ps.reconcile(ctx, tx, models.TxStatusFailed, "underpayment")
		}
		util.WebhookEventsTotal.WithLabelValues("successful").Inc()
		return ps.reconcile(ctx, tx, models.TxStatusSuccessful, "")
	case "failed":
		util.WebhookEventsTotal.WithLabelValues("failed").Inc()
		return ps.reconcile(ctx, tx, models.TxStatusFailed, "provider_webhook")
	default:
		util.WebhookEventsTotal.WithLabelValues("ignored").Inc()
		ps.logger.Info("Webhook with non-terminal status ignored",
			zap.String("tx_ref", tx.TxRef),
			zap.String("status", payload.Data.Status))
		return nil
	}
}

// reconcile flips the transaction to a terminal status and propagates it to
// the order tagged with the tx_ref, creating that order lazily for
// checkout-driven flows. Writing the status the transaction already holds
// is skipped.
func (ps *PaymentService) reconcile(ctx context.Context, tx *models.Transaction, status, reason string) error {
	if tx.Status != status {
		if err := ps.store.UpdateTransactionStatus(ctx, tx.TxRef, status); err != nil {
			return fmt.Errorf("failed to update transaction: %w", err)
		}
		ps.publishOutcome(ctx, tx, status, reason)
	}

	orderStatus := models.OrderStatusFailed
	if status == models.TxStatusSuccessful {
		orderStatus = models.OrderStatusPaid
	}

	order, err := ps.store.GetOrderByTxRef(ctx, tx.TxRef)
	switch {
	case err == nil:
		if order.Status == orderStatus {
			return nil
		}
		if orderStatus == models.OrderStatusPaid {
			return ps.orders.MarkPaid(ctx, order.ID)
		}
		return ps.orders.MarkFailed(ctx, order.ID)

	case errors.Is(err, util.ErrNotFound):
		// Checkout-driven flow: no order was placed up front. Materialize
		// one for a successful payment when the payer is a known user. The
		// conditional insert is atomic under concurrent deliveries.
		if orderStatus != models.OrderStatusPaid || !tx.UserID.Valid {
			return nil
		}
		created, err := ps.store.CreateOrderForTxRef(ctx, tx.UserID.Int64, tx.TxRef, models.OrderStatusPaid, tx.Amount)
		if err != nil {
			return fmt.Errorf("failed to create order for tx_ref %s: %w", tx.TxRef, err)
		}
		if created {
			util.OrdersPaidTotal.Inc()
			ps.logger.Info("Order created from payment",
				zap.String("tx_ref", tx.TxRef),
				zap.Int64("user_id", tx.UserID.Int64))
		}
		return nil

	default:
		return err
	}
}

func (ps *PaymentService) publishOutcome(ctx context.Context, tx *models.Transaction, status, reason string) {
	if status == models.TxStatusSuccessful {
		event := &models.PaymentSuccessEvent{
			BaseEvent: models.BaseEvent{
				EventID:   uuid.New().String(),
				EventType: models.EventTypePaymentSuccess,
				Timestamp: time.Now(),
			},
			TxRef:  tx.TxRef,
			Amount: tx.Amount,
		}
		if err := ps.eventPublisher.PublishPaymentSuccess(ctx, event); err != nil {
			ps.logger.Error("Failed to publish PaymentSuccess event", zap.Error(err))
		}
		return
	}

	event := &models.PaymentFailedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypePaymentFailed,
			Timestamp: time.Now(),
		},
		TxRef:  tx.TxRef,
		Reason: reason,
	}
	if err := ps.eventPublisher.PublishPaymentFailed(ctx, event); err != nil {
		ps.logger.Error("Failed to publish PaymentFailed event", zap.Error(err))
	}
}
