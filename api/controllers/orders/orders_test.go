package orders

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eventhub/eventhub-backend/api/middleware"
	"github.com/eventhub/eventhub-backend/internal/bookings"
	"github.com/eventhub/eventhub-backend/internal/cancellation"
	"github.com/eventhub/eventhub-backend/internal/payments"
	"github.com/eventhub/eventhub-backend/pkg/auth"
	"github.com/eventhub/eventhub-backend/pkg/enums"
	pkgerrors "github.com/eventhub/eventhub-backend/pkg/errors"
)

type stubBookings struct {
	get      func(ctx context.Context, actor auth.Actor, orderID uuid.UUID) (*bookings.OrderDetail, error)
	confirm  func(ctx context.Context, vendorID, orderID uuid.UUID) (*bookings.OrderDTO, error)
	complete func(ctx context.Context, vendorID, orderID uuid.UUID) (*bookings.OrderDTO, error)
}

func (s *stubBookings) Get(ctx context.Context, actor auth.Actor, orderID uuid.UUID) (*bookings.OrderDetail, error) {
	return s.get(ctx, actor, orderID)
}

func (s *stubBookings) VendorConfirm(ctx context.Context, vendorID, orderID uuid.UUID) (*bookings.OrderDTO, error) {
	return s.confirm(ctx, vendorID, orderID)
}

func (s *stubBookings) VendorComplete(ctx context.Context, vendorID, orderID uuid.UUID) (*bookings.OrderDTO, error) {
	return s.complete(ctx, vendorID, orderID)
}

type stubCancellation struct {
	cancel   func(ctx context.Context, input cancellation.CancelInput) (*cancellation.RefundDTO, error)
	estimate func(ctx context.Context, orderID, userID uuid.UUID) (*cancellation.RefundDTO, error)
}

func (s *stubCancellation) Cancel(ctx context.Context, input cancellation.CancelInput) (*cancellation.RefundDTO, error) {
	return s.cancel(ctx, input)
}

func (s *stubCancellation) Estimate(ctx context.Context, orderID, userID uuid.UUID) (*cancellation.RefundDTO, error) {
	return s.estimate(ctx, orderID, userID)
}

type stubPayments struct {
	initiate      func(ctx context.Context, input payments.InitiateInput) (*payments.Checkout, error)
	initiateOffer func(ctx context.Context, offerID, userID uuid.UUID, method string) (*payments.Checkout, error)
	history       func(ctx context.Context, actor auth.Actor, orderID uuid.UUID) (*payments.History, error)
	status        func(ctx context.Context, actor auth.Actor, paymentID uuid.UUID) (*payments.PaymentDTO, error)
}

func (s *stubPayments) InitiateTokenPayment(ctx context.Context, input payments.InitiateInput) (*payments.Checkout, error) {
	return s.initiate(ctx, input)
}

func (s *stubPayments) InitiateTokenPaymentForOffer(ctx context.Context, offerID, userID uuid.UUID, method string) (*payments.Checkout, error) {
	return s.initiateOffer(ctx, offerID, userID, method)
}

func (s *stubPayments) PaymentHistory(ctx context.Context, actor auth.Actor, orderID uuid.UUID) (*payments.History, error) {
	return s.history(ctx, actor, orderID)
}

func (s *stubPayments) Balance(ctx context.Context, actor auth.Actor, orderID uuid.UUID) (*payments.Balance, error) {
	panic("not implemented")
}

func (s *stubPayments) PaymentStatus(ctx context.Context, actor auth.Actor, paymentID uuid.UUID) (*payments.PaymentDTO, error) {
	return s.status(ctx, actor, paymentID)
}

func (s *stubPayments) HasCompletedTokenPayment(ctx context.Context, actor auth.Actor, orderID uuid.UUID) (*payments.TokenPaymentState, error) {
	return &payments.TokenPaymentState{OrderID: orderID, TokenPaid: true}, nil
}

func serve(t *testing.T, method, pattern, target string, body io.Reader, actor *auth.Actor, handler http.HandlerFunc) *httptest.ResponseRecorder {
	t.Helper()
	r := chi.NewRouter()
	r.Method(method, pattern, handler)
	req := httptest.NewRequest(method, target, body)
	if actor != nil {
		req = req.WithContext(middleware.WithActor(req.Context(), *actor))
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var payload struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	return payload.Error.Code
}

func customer() *auth.Actor {
	return &auth.Actor{UserID: uuid.New(), Role: enums.ActorRoleCustomer}
}

func vendor() *auth.Actor {
	vendorID := uuid.New()
	return &auth.Actor{UserID: uuid.New(), VendorID: &vendorID, Role: enums.ActorRoleVendor}
}

func TestDetailPassesActorAndOrder(t *testing.T) {
	actor := customer()
	orderID := uuid.New()
	svc := &stubBookings{get: func(ctx context.Context, got auth.Actor, id uuid.UUID) (*bookings.OrderDetail, error) {
		assert.Equal(t, actor.UserID, got.UserID)
		assert.Equal(t, orderID, id)
		return &bookings.OrderDetail{Order: bookings.OrderDTO{ID: id, OrderNumber: "EH-2026-00001"}}, nil
	}}

	rec := serve(t, http.MethodGet, "/orders/{orderId}", "/orders/"+orderID.String(), nil, actor, Detail(svc, nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "EH-2026-00001")
}

func TestDetailRejectsMalformedOrderID(t *testing.T) {
	svc := &stubBookings{get: func(context.Context, auth.Actor, uuid.UUID) (*bookings.OrderDetail, error) {
		t.Fatal("service must not be called")
		return nil, nil
	}}

	rec := serve(t, http.MethodGet, "/orders/{orderId}", "/orders/not-a-uuid", nil, customer(), Detail(svc, nil))

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, string(pkgerrors.CodeValidation), errorCode(t, rec))
}

func TestVendorConfirmUsesVendorFromToken(t *testing.T) {
	actor := vendor()
	orderID := uuid.New()
	svc := &stubBookings{confirm: func(ctx context.Context, vendorID, id uuid.UUID) (*bookings.OrderDTO, error) {
		assert.Equal(t, *actor.VendorID, vendorID)
		return &bookings.OrderDTO{ID: id, Status: enums.OrderStatusConfirmed}, nil
	}}

	rec := serve(t, http.MethodPost, "/vendor/orders/{orderId}/confirm", "/vendor/orders/"+orderID.String()+"/confirm", nil, actor, VendorConfirm(svc, nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"confirmed"`)
}

func TestVendorCompleteForbiddenWithoutVendor(t *testing.T) {
	svc := &stubBookings{}

	rec := serve(t, http.MethodPost, "/vendor/orders/{orderId}/complete", "/vendor/orders/"+uuid.NewString()+"/complete", nil, customer(), VendorComplete(svc, nil))

	require.Equal(t, http.StatusForbidden, rec.Code)
}

func TestVendorCompleteSurfacesBusinessRule(t *testing.T) {
	svc := &stubBookings{complete: func(context.Context, uuid.UUID, uuid.UUID) (*bookings.OrderDTO, error) {
		return nil, pkgerrors.New(pkgerrors.CodeBusinessRule, "order is not in progress")
	}}

	rec := serve(t, http.MethodPost, "/vendor/orders/{orderId}/complete", "/vendor/orders/"+uuid.NewString()+"/complete", nil, vendor(), VendorComplete(svc, nil))

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, string(pkgerrors.CodeBusinessRule), errorCode(t, rec))
}

func TestCancelRequiresReason(t *testing.T) {
	svc := &stubCancellation{cancel: func(context.Context, cancellation.CancelInput) (*cancellation.RefundDTO, error) {
		t.Fatal("service must not be called")
		return nil, nil
	}}

	rec := serve(t, http.MethodPost, "/orders/{orderId}/cancel", "/orders/"+uuid.NewString()+"/cancel", strings.NewReader(`{}`), customer(), Cancel(svc, nil))

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCancelReturnsRefund(t *testing.T) {
	actor := customer()
	orderID := uuid.New()
	svc := &stubCancellation{cancel: func(ctx context.Context, input cancellation.CancelInput) (*cancellation.RefundDTO, error) {
		assert.Equal(t, orderID, input.OrderID)
		assert.Equal(t, actor.UserID, input.UserID)
		assert.Equal(t, "venue changed", input.Reason)
		return &cancellation.RefundDTO{RefundAmount: decimal.RequireFromString("1590.00")}, nil
	}}

	rec := serve(t, http.MethodPost, "/orders/{orderId}/cancel", "/orders/"+orderID.String()+"/cancel", strings.NewReader(`{"reason":"  venue changed "}`), actor, Cancel(svc, nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"refund_amount"`)
}

func TestRefundEstimate(t *testing.T) {
	actor := customer()
	svc := &stubCancellation{estimate: func(ctx context.Context, orderID, userID uuid.UUID) (*cancellation.RefundDTO, error) {
		assert.Equal(t, actor.UserID, userID)
		return &cancellation.RefundDTO{RefundAmount: decimal.Zero}, nil
	}}

	rec := serve(t, http.MethodGet, "/orders/{orderId}/refund-estimate", "/orders/"+uuid.NewString()+"/refund-estimate", nil, actor, RefundEstimate(svc, nil))

	require.Equal(t, http.StatusOK, rec.Code)
}

func TestInitiateTokenPaymentWithoutBodyUsesDefaultMethod(t *testing.T) {
	actor := customer()
	orderID := uuid.New()
	svc := &stubPayments{initiate: func(ctx context.Context, input payments.InitiateInput) (*payments.Checkout, error) {
		assert.Equal(t, orderID, input.OrderID)
		assert.Empty(t, input.Method)
		return &payments.Checkout{PaymentID: uuid.New(), PaymentURL: "https://pay.example.com/c/TXN_1", TransactionID: "TXN_1"}, nil
	}}

	rec := serve(t, http.MethodPost, "/orders/{orderId}/token-payment", "/orders/"+orderID.String()+"/token-payment", nil, actor, InitiateTokenPayment(svc, nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "TXN_1")
}

func TestInitiateOfferTokenPaymentPassesMethod(t *testing.T) {
	offerID := uuid.New()
	svc := &stubPayments{initiateOffer: func(ctx context.Context, id, userID uuid.UUID, method string) (*payments.Checkout, error) {
		assert.Equal(t, offerID, id)
		assert.Equal(t, "card", method)
		return &payments.Checkout{TransactionID: "TXN_2"}, nil
	}}

	rec := serve(t, http.MethodPost, "/offers/{offerId}/token-payment", "/offers/"+offerID.String()+"/token-payment", strings.NewReader(`{"payment_method":"card"}`), customer(), InitiateOfferTokenPayment(svc, nil))

	require.Equal(t, http.StatusOK, rec.Code)
}

func TestPaymentHistoryNotFound(t *testing.T) {
	svc := &stubPayments{history: func(context.Context, auth.Actor, uuid.UUID) (*payments.History, error) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}}

	rec := serve(t, http.MethodGet, "/orders/{orderId}/payments", "/orders/"+uuid.NewString()+"/payments", nil, customer(), PaymentHistory(svc, nil))

	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestTokenPaymentStateRequiresAuth(t *testing.T) {
	rec := serve(t, http.MethodGet, "/orders/{orderId}/token-payment", "/orders/"+uuid.NewString()+"/token-payment", nil, nil, TokenPaymentState(&stubPayments{}, nil))

	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestPaymentStatus(t *testing.T) {
	paymentID := uuid.New()
	svc := &stubPayments{status: func(ctx context.Context, actor auth.Actor, id uuid.UUID) (*payments.PaymentDTO, error) {
		assert.Equal(t, paymentID, id)
		return &payments.PaymentDTO{ID: id, Status: enums.PaymentStatusCompleted}, nil
	}}

	rec := serve(t, http.MethodGet, "/payments/{paymentId}", "/payments/"+paymentID.String(), nil, vendor(), PaymentStatus(svc, nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"completed"`)
}
