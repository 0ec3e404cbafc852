package gateway

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/manyeka-petros/malonda-web-app/internal/util"

	"github.com/shopspring/decimal"
)

// Provider is the single payment-provider abstraction: open a hosted
// checkout session, look up the authoritative state of a transaction, and
// authenticate webhook deliveries.
type Provider interface {
	CreateCheckout(ctx context.Context, req *CheckoutRequest) (*CheckoutSession, error)
	LookupTransaction(ctx context.Context, txRef string) (*TransactionStatus, error)
	VerifySignature(body []byte, signature string) error
}

// CheckoutRequest is a hosted-checkout session request
type CheckoutRequest struct {
	TxRef         string                 `json:"tx_ref"`
	Amount        decimal.Decimal        `json:"amount"`
	Currency      string                 `json:"currency"`
	Email         string                 `json:"email"`
	FirstName     string                 `json:"first_name"`
	LastName      string                 `json:"last_name"`
	CallbackURL   string                 `json:"callback_url"`
	ReturnURL     string                 `json:"return_url"`
	Customization Customization          `json:"customization"`
	Meta          map[string]interface{} `json:"meta,omitempty"`
}

// Customization is the checkout page text
type Customization struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// CheckoutSession is the provider's session payload returned to the caller
type CheckoutSession struct {
	Status  string          `json:"status"`
	Message string          `json:"message,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// TransactionStatus is the provider's authoritative view of one payment
type TransactionStatus struct {
	TxRef  string          `json:"tx_ref"`
	Status string          `json:"status"`
	Amount decimal.Decimal `json:"amount"`
}

// StatusSuccessful is the provider status accepted as a completed payment
const StatusSuccessful = "successful"

type providerEnvelope struct {
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// Config holds the provider connection settings
type Config struct {
	BaseURL       string
	SecretKey     string
	WebhookSecret string
	Timeout       time.Duration
}

// PayChanguClient talks to the PayChangu hosted-checkout API
type PayChanguClient struct {
	cfg    Config
	client *http.Client
}

// NewPayChanguClient creates a provider client with a fixed request timeout
func NewPayChanguClient(cfg Config) *PayChanguClient {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &PayChanguClient{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
	}
}

// CreateCheckout opens a standard checkout session. A network failure,
// non-2xx response or malformed body comes back as a provider error; a
// well-formed non-success envelope is returned to the caller as-is.
func (p *PayChanguClient) CreateCheckout(ctx context.Context, req *CheckoutRequest) (*CheckoutSession, error) {
	body, err := p.post(ctx, "/payment", req, "initiate")
	if err != nil {
		return nil, err
	}

	var env providerEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("malformed checkout response: %w", util.ErrProvider)
	}

	return &CheckoutSession{Status: env.Status, Message: env.Message, Data: env.Data}, nil
}

// LookupTransaction queries the provider for a transaction's current state
func (p *PayChanguClient) LookupTransaction(ctx context.Context, txRef string) (*TransactionStatus, error) {
	body, err := p.get(ctx, "/transaction/"+txRef, "verify")
	if err != nil {
		return nil, err
	}

	var env struct {
		Status string `json:"status"`
		Data   struct {
			TxRef  string          `json:"tx_ref"`
			Status string          `json:"status"`
			Amount decimal.Decimal `json:"amount"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("malformed transaction response: %w", util.ErrProvider)
	}

	return &TransactionStatus{
		TxRef:  env.Data.TxRef,
		Status: env.Data.Status,
		Amount: env.Data.Amount,
	}, nil
}

// VerifySignature checks the HMAC-SHA256 hex signature the provider sends
// over the raw webhook body. Deliveries without a verifiable signature are
// rejected before any state is touched.
func (p *PayChanguClient) VerifySignature(body []byte, signature string) error {
	if p.cfg.WebhookSecret == "" || signature == "" {
		return fmt.Errorf("missing webhook signature: %w", util.ErrSignature)
	}

	mac := hmac.New(sha256.New, []byte(p.cfg.WebhookSecret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))

	if !hmac.Equal([]byte(expected), []byte(signature)) {
		return fmt.Errorf("signature mismatch: %w", util.ErrSignature)
	}
	return nil
}

func (p *PayChanguClient) post(ctx context.Context, path string, payload interface{}, op string) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal provider payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.cfg.BaseURL+path, bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	return p.do(req, op)
}

func (p *PayChanguClient) get(ctx context.Context, path, op string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.cfg.BaseURL+path, nil)
	if err != nil {
		return nil, err
	}
	return p.do(req, op)
}

func (p *PayChanguClient) do(req *http.Request, op string) ([]byte, error) {
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.cfg.SecretKey)

	start := time.Now()
	resp, err := p.client.Do(req)
	util.ProviderRequestLatency.WithLabelValues(op).Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, fmt.Errorf("provider request failed: %v: %w", err, util.ErrProvider)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read provider response: %w", util.ErrProvider)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("provider returned %d: %w", resp.StatusCode, util.ErrProvider)
	}

	return body, nil
}
