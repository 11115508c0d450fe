package payments

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/url"
	"strings"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
	"github.com/shopspring/decimal"

	"github.com/eventhub/eventhub-backend/pkg/config"
	"github.com/eventhub/eventhub-backend/pkg/enums"
)

const (
	transactionPrefix = "TXN_"
	refundPrefix      = "REF_"

	// SignatureHeader carries the hex HMAC-SHA256 of the raw webhook body.
	SignatureHeader = "X-Gateway-Signature"
)

// NewTransactionID returns a gateway transaction id for a charge.
func NewTransactionID() string {
	return transactionPrefix + ulid.Make().String()
}

// NewRefundID returns a gateway transaction id for a refund.
func NewRefundID() string {
	return refundPrefix + ulid.Make().String()
}

// CheckoutRequest describes the payment a customer is about to make.
type CheckoutRequest struct {
	PaymentID     uuid.UUID
	OrderID       uuid.UUID
	OrderNumber   string
	TransactionID string
	Amount        decimal.Decimal
	Method        enums.PaymentMethod
}

// Checkout is what the client needs to hand the customer to the gateway.
type Checkout struct {
	PaymentID     uuid.UUID       `json:"payment_id"`
	PaymentURL    string          `json:"payment_url"`
	Amount        decimal.Decimal `json:"amount"`
	TransactionID string          `json:"transaction_id"`
	KeyID         string          `json:"key_id"`
	Method        string          `json:"method"`
	Message       string          `json:"message"`
}

// Gateway builds checkout descriptors and authenticates callbacks.
type Gateway interface {
	Checkout(ctx context.Context, req CheckoutRequest) (*Checkout, error)
	VerifySignature(body []byte, signature string) bool
}

// MockGateway stands in for the hosted gateway. It never performs network
// I/O; the checkout page is addressed by transaction id.
type MockGateway struct {
	keyID       string
	secret      []byte
	checkoutURL string
}

// NewMockGateway builds the gateway adapter from config.
func NewMockGateway(cfg config.GatewayConfig) *MockGateway {
	return &MockGateway{
		keyID:       cfg.KeyID,
		secret:      []byte(cfg.WebhookSecret),
		checkoutURL: cfg.CheckoutURL,
	}
}

func (g *MockGateway) Checkout(_ context.Context, req CheckoutRequest) (*Checkout, error) {
	query := url.Values{}
	query.Set("key", g.keyID)
	query.Set("txn", req.TransactionID)
	query.Set("amount", req.Amount.StringFixed(2))
	query.Set("method", string(req.Method))

	paymentURL := g.checkoutURL
	if strings.Contains(paymentURL, "?") {
		paymentURL += "&" + query.Encode()
	} else {
		paymentURL += "?" + query.Encode()
	}
	return &Checkout{
		PaymentID:     req.PaymentID,
		PaymentURL:    paymentURL,
		Amount:        req.Amount,
		TransactionID: req.TransactionID,
		KeyID:         g.keyID,
		Method:        string(req.Method),
		Message:       "Complete the token payment of " + req.Amount.StringFixed(2) + " to confirm booking " + req.OrderNumber,
	}, nil
}

// Sign returns the signature the gateway attaches to body.
func (g *MockGateway) Sign(body []byte) string {
	mac := hmac.New(sha256.New, g.secret)
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func (g *MockGateway) VerifySignature(body []byte, signature string) bool {
	if len(g.secret) == 0 || signature == "" {
		return false
	}
	given, err := hex.DecodeString(strings.TrimSpace(signature))
	if err != nil {
		return false
	}
	mac := hmac.New(sha256.New, g.secret)
	mac.Write(body)
	return hmac.Equal(mac.Sum(nil), given)
}
