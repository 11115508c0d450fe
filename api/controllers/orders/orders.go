package orders

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/eventhub/eventhub-backend/api/middleware"
	"github.com/eventhub/eventhub-backend/api/responses"
	"github.com/eventhub/eventhub-backend/api/validators"
	"github.com/eventhub/eventhub-backend/internal/bookings"
	"github.com/eventhub/eventhub-backend/internal/cancellation"
	"github.com/eventhub/eventhub-backend/pkg/auth"
	"github.com/eventhub/eventhub-backend/pkg/logger"
)

type bookingService interface {
	Get(ctx context.Context, actor auth.Actor, orderID uuid.UUID) (*bookings.OrderDetail, error)
	VendorConfirm(ctx context.Context, vendorID, orderID uuid.UUID) (*bookings.OrderDTO, error)
	VendorComplete(ctx context.Context, vendorID, orderID uuid.UUID) (*bookings.OrderDTO, error)
}

type cancelRequest struct {
	Reason string `json:"reason" validate:"required,min=3,max=500"`
}

// Detail returns an order with its timeline to either party.
func Detail(svc bookingService, logg *logger.Logger) http.HandlerFunc {
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
		detail, err := svc.Get(r.Context(), actor, orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, detail)
	}
}

// VendorConfirm confirms a direct order once its token payment has landed.
func VendorConfirm(svc bookingService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		vendorID, err := middleware.RequestVendorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		orderID, err := validators.ParseUUIDParam(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		order, err := svc.VendorConfirm(r.Context(), vendorID, orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

// VendorComplete marks a delivered order completed.
func VendorComplete(svc bookingService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		vendorID, err := middleware.RequestVendorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		orderID, err := validators.ParseUUIDParam(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		order, err := svc.VendorComplete(r.Context(), vendorID, orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

// RefundEstimate previews the refund a cancellation would produce today.
func RefundEstimate(svc cancellation.Service, logg *logger.Logger) http.HandlerFunc {
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
		estimate, err := svc.Estimate(r.Context(), orderID, actor.UserID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, estimate)
	}
}

// Cancel cancels the caller's order and records the tiered refund.
func Cancel(svc cancellation.Service, logg *logger.Logger) http.HandlerFunc {
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
		var req cancelRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		refund, err := svc.Cancel(r.Context(), cancellation.CancelInput{
			OrderID: orderID,
			UserID:  actor.UserID,
			Reason:  validators.SanitizeString(req.Reason, 500),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if logg != nil {
			ctx := logg.WithFields(r.Context(), map[string]any{
				"order_id":      orderID.String(),
				"refund_amount": refund.RefundAmount.StringFixed(2),
				"reason_length": len(strings.TrimSpace(req.Reason)),
			})
			logg.Info(ctx, "order cancelled by customer")
		}
		responses.WriteSuccess(w, refund)
	}
}
