package orders

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/google/uuid"

	"github.com/eventhub/eventhub-backend/api/middleware"
	"github.com/eventhub/eventhub-backend/api/responses"
	"github.com/eventhub/eventhub-backend/api/validators"
	"github.com/eventhub/eventhub-backend/internal/payments"
	"github.com/eventhub/eventhub-backend/pkg/auth"
	"github.com/eventhub/eventhub-backend/pkg/logger"
)

type paymentService interface {
	InitiateTokenPayment(ctx context.Context, input payments.InitiateInput) (*payments.Checkout, error)
	InitiateTokenPaymentForOffer(ctx context.Context, offerID, userID uuid.UUID, method string) (*payments.Checkout, error)
	PaymentHistory(ctx context.Context, actor auth.Actor, orderID uuid.UUID) (*payments.History, error)
	Balance(ctx context.Context, actor auth.Actor, orderID uuid.UUID) (*payments.Balance, error)
	PaymentStatus(ctx context.Context, actor auth.Actor, paymentID uuid.UUID) (*payments.PaymentDTO, error)
	HasCompletedTokenPayment(ctx context.Context, actor auth.Actor, orderID uuid.UUID) (*payments.TokenPaymentState, error)
}

type tokenPaymentRequest struct {
	PaymentMethod string `json:"payment_method" validate:"omitempty,max=32"`
}

// PaymentHistory lists every payment recorded against an order.
func PaymentHistory(svc paymentService, logg *logger.Logger) http.HandlerFunc {
	return orderRead(logg, func(ctx context.Context, actor auth.Actor, orderID uuid.UUID) (any, error) {
		return svc.PaymentHistory(ctx, actor, orderID)
	})
}

// Balance returns paid and outstanding amounts for an order.
func Balance(svc paymentService, logg *logger.Logger) http.HandlerFunc {
	return orderRead(logg, func(ctx context.Context, actor auth.Actor, orderID uuid.UUID) (any, error) {
		return svc.Balance(ctx, actor, orderID)
	})
}

// TokenPaymentState reports whether the order's token payment has completed.
func TokenPaymentState(svc paymentService, logg *logger.Logger) http.HandlerFunc {
	return orderRead(logg, func(ctx context.Context, actor auth.Actor, orderID uuid.UUID) (any, error) {
		return svc.HasCompletedTokenPayment(ctx, actor, orderID)
	})
}

// InitiateTokenPayment starts the gateway checkout for an order's token amount.
func InitiateTokenPayment(svc paymentService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := middleware.RequestActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		orderID, err := validators.ParseUUIDParam(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		method, err := decodeMethod(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		checkout, err := svc.InitiateTokenPayment(r.Context(), payments.InitiateInput{
			OrderID: orderID,
			UserID:  actor.UserID,
			Method:  method,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, checkout)
	}
}

// InitiateOfferTokenPayment starts checkout for the order an accepted offer produced.
func InitiateOfferTokenPayment(svc paymentService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := middleware.RequestActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		offerID, err := validators.ParseUUIDParam(r, "offerId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		method, err := decodeMethod(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		checkout, err := svc.InitiateTokenPaymentForOffer(r.Context(), offerID, actor.UserID, method)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, checkout)
	}
}

// PaymentStatus returns a single payment to either party of its order.
func PaymentStatus(svc paymentService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := middleware.RequestActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		paymentID, err := validators.ParseUUIDParam(r, "paymentId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		payment, err := svc.PaymentStatus(r.Context(), actor, paymentID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, payment)
	}
}

func orderRead(logg *logger.Logger, read func(ctx context.Context, actor auth.Actor, orderID uuid.UUID) (any, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := middleware.RequestActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		orderID, err := validators.ParseUUIDParam(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		out, err := read(r.Context(), actor, orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, out)
	}
}

// decodeMethod reads the optional payment method. An empty body selects the
// configured default.
func decodeMethod(r *http.Request) (string, error) {
	if r.Body == nil || r.Body == http.NoBody || r.ContentLength == 0 {
		return "", nil
	}
	var req tokenPaymentRequest
	if err := validators.DecodeJSONBody(r, &req); err != nil {
		if errors.Is(err, io.EOF) {
			return "", nil
		}
		return "", err
	}
	return req.PaymentMethod, nil
}
