package payments

import (
	"context"
	"net/url"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eventhub/eventhub-backend/pkg/config"
	"github.com/eventhub/eventhub-backend/pkg/enums"
)

func TestMockGatewaySignatures(t *testing.T) {
	gw := NewMockGateway(config.GatewayConfig{WebhookSecret: "secret"})
	body := []byte(`{"transaction_id":"TXN_1","status":"success"}`)
	sig := gw.Sign(body)

	assert.Len(t, sig, 64)
	assert.True(t, gw.VerifySignature(body, sig))
	assert.True(t, gw.VerifySignature(body, strings.ToUpper(sig)), "hex is case-insensitive")
	assert.False(t, gw.VerifySignature(append(body, ' '), sig))
	assert.False(t, gw.VerifySignature(body, ""))
	assert.False(t, gw.VerifySignature(body, "not-hex"))

	other := NewMockGateway(config.GatewayConfig{WebhookSecret: "other"})
	assert.False(t, other.VerifySignature(body, sig))

	unset := NewMockGateway(config.GatewayConfig{})
	assert.False(t, unset.VerifySignature(body, unset.Sign(body)))
}

func TestMockGatewayCheckout(t *testing.T) {
	gw := NewMockGateway(config.GatewayConfig{KeyID: "rzp_test", CheckoutURL: "https://pay.example.test/checkout?v=1"})
	paymentID := uuid.New()

	checkout, err := gw.Checkout(context.Background(), CheckoutRequest{
		PaymentID:     paymentID,
		OrderNumber:   "EVT-2026-000001",
		TransactionID: "TXN_01",
		Amount:        decimal.RequireFromString("2614"),
		Method:        enums.PaymentMethodUPI,
	})
	require.NoError(t, err)
	assert.Equal(t, paymentID, checkout.PaymentID)
	assert.Equal(t, "rzp_test", checkout.KeyID)
	assert.Contains(t, checkout.Message, "2614.00")

	parsed, err := url.Parse(checkout.PaymentURL)
	require.NoError(t, err)
	assert.Equal(t, "1", parsed.Query().Get("v"))
	assert.Equal(t, "TXN_01", parsed.Query().Get("txn"))
	assert.Equal(t, "2614.00", parsed.Query().Get("amount"))
}

func TestTransactionIDs(t *testing.T) {
	a, b := NewTransactionID(), NewTransactionID()
	assert.True(t, strings.HasPrefix(a, "TXN_"))
	assert.Len(t, a, len("TXN_")+26)
	assert.NotEqual(t, a, b)
	assert.True(t, strings.HasPrefix(NewRefundID(), "REF_"))
}
