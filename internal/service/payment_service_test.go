package service

import (
	"context"
	"database/sql"
	"fmt"
	"testing"

	"github.com/manyeka-petros/malonda-web-app/config"
	"github.com/manyeka-petros/malonda-web-app/internal/gateway"
	"github.com/manyeka-petros/malonda-web-app/internal/models"
	"github.com/manyeka-petros/malonda-web-app/internal/util"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProvider struct {
	session   *gateway.CheckoutSession
	status    *gateway.TransactionStatus
	lookupErr error
	sigErr    error
}

func (f *fakeProvider) CreateCheckout(ctx context.Context, req *gateway.CheckoutRequest) (*gateway.CheckoutSession, error) {
	return f.session, nil
}

func (f *fakeProvider) LookupTransaction(ctx context.Context, txRef string) (*gateway.TransactionStatus, error) {
	return f.status, f.lookupErr
}

func (f *fakeProvider) VerifySignature(body []byte, signature string) error {
	return f.sigErr
}

type fakePaymentStore struct {
	txs          map[string]*models.Transaction
	order        *models.Order
	reads        int
	statusWrites int
	orderInserts int
}

func (f *fakePaymentStore) CreateTransaction(ctx context.Context, tx *models.Transaction) error {
	f.txs[tx.TxRef] = tx
	return nil
}

func (f *fakePaymentStore) GetTransactionByTxRef(ctx context.Context, txRef string) (*models.Transaction, error) {
	f.reads++
	tx, ok := f.txs[txRef]
	if !ok {
		return nil, fmt.Errorf("transaction %s: %w", txRef, util.ErrNotFound)
	}
	return tx, nil
}

func (f *fakePaymentStore) UpdateTransactionStatus(ctx context.Context, txRef, status string) error {
	f.statusWrites++
	f.txs[txRef].Status = status
	return nil
}

func (f *fakePaymentStore) GetTransactionsByUserID(ctx context.Context, userID int64) ([]models.Transaction, error) {
	return nil, nil
}

func (f *fakePaymentStore) GetOrderByTxRef(ctx context.Context, txRef string) (*models.Order, error) {
	if f.order == nil || !f.order.TxRef.Valid || f.order.TxRef.String != txRef {
		return nil, fmt.Errorf("order for tx_ref %s: %w", txRef, util.ErrNotFound)
	}
	return f.order, nil
}

func (f *fakePaymentStore) CreateOrderForTxRef(ctx context.Context, userID int64, txRef, status string, total decimal.Decimal) (bool, error) {
	if f.order != nil && f.order.TxRef.Valid && f.order.TxRef.String == txRef {
		return false, nil
	}
	f.orderInserts++
	f.order = &models.Order{
		ID:         int64(f.orderInserts),
		UserID:     userID,
		Status:     status,
		TotalPrice: total,
		TxRef:      sql.NullString{String: txRef, Valid: true},
	}
	return true, nil
}

type fakeLedger struct {
	store  *fakePaymentStore
	paid   []int64
	failed []int64
}

func (f *fakeLedger) MarkPaid(ctx context.Context, orderID int64) error {
	f.paid = append(f.paid, orderID)
	if f.store.order != nil && f.store.order.ID == orderID {
		f.store.order.Status = models.OrderStatusPaid
	}
	return nil
}

func (f *fakeLedger) MarkFailed(ctx context.Context, orderID int64) error {
	f.failed = append(f.failed, orderID)
	if f.store.order != nil && f.store.order.ID == orderID {
		f.store.order.Status = models.OrderStatusFailed
	}
	return nil
}

type fakeEvents struct {
	initiated int
	success   int
	failed    int
	reasons   []string
}

func (f *fakeEvents) PublishPaymentInitiated(ctx context.Context, event *models.PaymentInitiatedEvent) error {
	f.initiated++
	return nil
}

func (f *fakeEvents) PublishPaymentSuccess(ctx context.Context, event *models.PaymentSuccessEvent) error {
	f.success++
	return nil
}

func (f *fakeEvents) PublishPaymentFailed(ctx context.Context, event *models.PaymentFailedEvent) error {
	f.failed++
	f.reasons = append(f.reasons, event.Reason)
	return nil
}

func newPaymentFixture(provider *fakeProvider) (*PaymentService, *fakePaymentStore, *fakeLedger, *fakeEvents) {
	st := &fakePaymentStore{txs: make(map[string]*models.Transaction)}
	ledger := &fakeLedger{store: st}
	events := &fakeEvents{}
	svc := NewPaymentService(st, provider, ledger, events, config.PaymentConfig{})
	return svc, st, ledger, events
}

func seedTransaction(st *fakePaymentStore, txRef, amount, status string) *models.Transaction {
	tx := &models.Transaction{
		TxRef:  txRef,
		Amount: decimal.RequireFromString(amount),
		Status: status,
		UserID: sql.NullInt64{Int64: 7, Valid: true},
	}
	st.txs[txRef] = tx
	return tx
}

func webhookBody(txRef, status, amount string) []byte {
	return []byte(fmt.Sprintf(`{"data":{"tx_ref":%q,"status":%q,"amount":%s}}`, txRef, status, amount))
}

func TestVerifyPaymentUnderpaymentFails(t *testing.T) {
	provider := &fakeProvider{status: &gateway.TransactionStatus{
		TxRef:  "tx-1",
		Status: gateway.StatusSuccessful,
		Amount: decimal.RequireFromString("20.00"),
	}}
	svc, st, ledger, events := newPaymentFixture(provider)
	seedTransaction(st, "tx-1", "25.50", models.TxStatusInitiated)

	tx, err := svc.VerifyPayment(context.Background(), "tx-1")
	require.NoError(t, err)

	assert.Equal(t, models.TxStatusFailed, tx.Status)
	assert.Equal(t, 1, st.statusWrites)
	assert.Equal(t, 1, events.failed)
	assert.Equal(t, []string{"underpayment"}, events.reasons)
	assert.Empty(t, ledger.paid)
}

func TestVerifyPaymentSuccessIsIdempotent(t *testing.T) {
	provider := &fakeProvider{status: &gateway.TransactionStatus{
		TxRef:  "tx-2",
		Status: gateway.StatusSuccessful,
		Amount: decimal.RequireFromString("25.50"),
	}}
	svc, st, ledger, events := newPaymentFixture(provider)
	seedTransaction(st, "tx-2", "25.50", models.TxStatusInitiated)
	st.order = &models.Order{
		ID:     11,
		UserID: 7,
		Status: models.OrderStatusPending,
		TxRef:  sql.NullString{String: "tx-2", Valid: true},
	}

	tx, err := svc.VerifyPayment(context.Background(), "tx-2")
	require.NoError(t, err)
	assert.Equal(t, models.TxStatusSuccessful, tx.Status)
	assert.Equal(t, []int64{11}, ledger.paid)

	tx, err = svc.VerifyPayment(context.Background(), "tx-2")
	require.NoError(t, err)
	assert.Equal(t, models.TxStatusSuccessful, tx.Status)

	assert.Equal(t, 1, st.statusWrites, "settled transaction must not be rewritten")
	assert.Equal(t, 1, events.success, "outcome event must fire once")
	assert.Equal(t, []int64{11}, ledger.paid, "order must be marked paid once")
}

func TestVerifyPaymentUnknownTxRef(t *testing.T) {
	svc, _, _, _ := newPaymentFixture(&fakeProvider{})

	_, err := svc.VerifyPayment(context.Background(), "missing")
	assert.ErrorIs(t, err, util.ErrNotFound)
}

func TestHandleWebhookRejectsBadSignature(t *testing.T) {
	provider := &fakeProvider{sigErr: fmt.Errorf("signature mismatch: %w", util.ErrSignature)}
	svc, st, _, events := newPaymentFixture(provider)
	seedTransaction(st, "tx-3", "10.00", models.TxStatusInitiated)

	err := svc.HandleWebhook(context.Background(), webhookBody("tx-3", "successful", "10.00"), "bad")
	assert.ErrorIs(t, err, util.ErrSignature)
	assert.Zero(t, st.reads, "no state may be read before the signature checks out")
	assert.Zero(t, st.statusWrites)
	assert.Zero(t, events.success+events.failed)
}

func TestHandleWebhookRejectsMalformedPayload(t *testing.T) {
	svc, st, _, _ := newPaymentFixture(&fakeProvider{})

	err := svc.HandleWebhook(context.Background(), []byte(`{"data":`), "sig")
	assert.ErrorIs(t, err, util.ErrValidation)

	err = svc.HandleWebhook(context.Background(), []byte(`{"data":{"status":"successful"}}`), "sig")
	assert.ErrorIs(t, err, util.ErrValidation)

	assert.Zero(t, st.statusWrites)
}

func TestHandleWebhookTerminalStatusIsNoOp(t *testing.T) {
	svc, st, ledger, events := newPaymentFixture(&fakeProvider{})
	seedTransaction(st, "tx-4", "25.50", models.TxStatusSuccessful)

	err := svc.HandleWebhook(context.Background(), webhookBody("tx-4", "failed", "0"), "sig")
	require.NoError(t, err)

	assert.Equal(t, models.TxStatusSuccessful, st.txs["tx-4"].Status)
	assert.Zero(t, st.statusWrites, "redelivery for a settled transaction must not write")
	assert.Zero(t, events.success+events.failed)
	assert.Empty(t, ledger.failed)
}

func TestHandleWebhookUnderpaidDeliveryFails(t *testing.T) {
	svc, st, ledger, events := newPaymentFixture(&fakeProvider{})
	seedTransaction(st, "tx-5", "25.50", models.TxStatusInitiated)

	err := svc.HandleWebhook(context.Background(), webhookBody("tx-5", "successful", "20.00"), "sig")
	require.NoError(t, err)

	assert.Equal(t, models.TxStatusFailed, st.txs["tx-5"].Status)
	assert.Equal(t, []string{"underpayment"}, events.reasons)
	assert.Empty(t, ledger.paid)
	assert.Zero(t, st.orderInserts)
}

func TestHandleWebhookCreatesOrderForCheckoutFlow(t *testing.T) {
	svc, st, _, events := newPaymentFixture(&fakeProvider{})
	seedTransaction(st, "tx-6", "30.00", models.TxStatusInitiated)

	err := svc.HandleWebhook(context.Background(), webhookBody("tx-6", "successful", "30.00"), "sig")
	require.NoError(t, err)

	require.NotNil(t, st.order)
	assert.Equal(t, 1, st.orderInserts)
	assert.Equal(t, int64(7), st.order.UserID)
	assert.Equal(t, models.OrderStatusPaid, st.order.Status)
	assert.True(t, st.order.TotalPrice.Equal(decimal.RequireFromString("30.00")))
	assert.Equal(t, 1, events.success)

	// Redelivery finds the transaction settled and changes nothing.
	err = svc.HandleWebhook(context.Background(), webhookBody("tx-6", "successful", "30.00"), "sig")
	require.NoError(t, err)
	assert.Equal(t, 1, st.orderInserts)
	assert.Equal(t, 1, events.success)
}

func TestInitiatePaymentProviderRejection(t *testing.T) {
	provider := &fakeProvider{session: &gateway.CheckoutSession{Status: "failed", Message: "declined"}}
	svc, st, _, events := newPaymentFixture(provider)
	user := &models.User{ID: 7}

	session, tx, err := svc.InitiatePayment(context.Background(), user, &InitiatePaymentRequest{
		Amount: decimal.RequireFromString("12.00"),
		Email:  "buyer@example.com",
	})
	require.NoError(t, err)

	assert.Nil(t, tx, "rejected session must leave no transaction row")
	assert.Equal(t, "failed", session.Status)
	assert.Empty(t, st.txs)
	assert.Zero(t, events.initiated)
}
