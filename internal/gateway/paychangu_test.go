package gateway

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/manyeka-petros/malonda-web-app/internal/util"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(baseURL string) *PayChanguClient {
	return NewPayChanguClient(Config{
		BaseURL:       baseURL,
		SecretKey:     "sk_test",
		WebhookSecret: "whsec_test",
	})
}

func TestCreateCheckoutSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/payment", r.URL.Path)
		assert.Equal(t, "Bearer sk_test", r.Header.Get("Authorization"))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"success","message":"created","data":{"checkout_url":"https://pay.example/abc"}}`))
	}))
	defer srv.Close()

	client := newTestClient(srv.URL)

	session, err := client.CreateCheckout(context.Background(), &CheckoutRequest{
		TxRef:    "tx-123",
		Amount:   decimal.RequireFromString("25.50"),
		Currency: "MWK",
		Email:    "buyer@example.com",
	})
	require.NoError(t, err)
	assert.Equal(t, "success", session.Status)
	assert.Contains(t, string(session.Data), "checkout_url")
}

func TestCreateCheckoutProviderError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	client := newTestClient(srv.URL)

	_, err := client.CreateCheckout(context.Background(), &CheckoutRequest{TxRef: "tx-err"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, util.ErrProvider))
}

func TestCreateCheckoutMalformedResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("not json"))
	}))
	defer srv.Close()

	client := newTestClient(srv.URL)

	_, err := client.CreateCheckout(context.Background(), &CheckoutRequest{TxRef: "tx-bad"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, util.ErrProvider))
}

func TestLookupTransaction(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/transaction/tx-123", r.URL.Path)
		w.Write([]byte(`{"status":"success","data":{"tx_ref":"tx-123","status":"successful","amount":25.50}}`))
	}))
	defer srv.Close()

	client := newTestClient(srv.URL)

	status, err := client.LookupTransaction(context.Background(), "tx-123")
	require.NoError(t, err)
	assert.Equal(t, "tx-123", status.TxRef)
	assert.Equal(t, StatusSuccessful, status.Status)
	assert.True(t, status.Amount.Equal(decimal.RequireFromString("25.50")))
}

func TestLookupTransactionNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	client := newTestClient(srv.URL)

	_, err := client.LookupTransaction(context.Background(), "tx-unknown")
	require.Error(t, err)
	assert.True(t, errors.Is(err, util.ErrProvider))
}

func sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func TestVerifySignature(t *testing.T) {
	client := newTestClient("http://unused")
	body := []byte(`{"data":{"tx_ref":"tx-123","status":"successful"}}`)

	assert.NoError(t, client.VerifySignature(body, sign("whsec_test", body)))
}

func TestVerifySignatureRejectsTamperedBody(t *testing.T) {
	client := newTestClient("http://unused")
	body := []byte(`{"data":{"tx_ref":"tx-123","status":"successful"}}`)
	signature := sign("whsec_test", body)

	tampered := []byte(`{"data":{"tx_ref":"tx-123","status":"failed"}}`)
	err := client.VerifySignature(tampered, signature)
	require.Error(t, err)
	assert.True(t, errors.Is(err, util.ErrSignature))
}

func TestVerifySignatureRejectsMissing(t *testing.T) {
	client := newTestClient("http://unused")

	err := client.VerifySignature([]byte("{}"), "")
	require.Error(t, err)
	assert.True(t, errors.Is(err, util.ErrSignature))
}

func TestVerifySignatureRejectsWrongSecret(t *testing.T) {
	client := newTestClient("http://unused")
	body := []byte(`{"data":{"tx_ref":"tx-123"}}`)

	err := client.VerifySignature(body, sign("other-secret", body))
	require.Error(t, err)
	assert.True(t, errors.Is(err, util.ErrSignature))
}
