// Package cancellation cancels paid orders and refunds the token under the
// tiered refund policy.
package cancellation

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/eventhub/eventhub-backend/internal/bookings"
	"github.com/eventhub/eventhub-backend/internal/leads"
	"github.com/eventhub/eventhub-backend/internal/notifications"
	"github.com/eventhub/eventhub-backend/internal/payments"
	"github.com/eventhub/eventhub-backend/internal/pricing"
	"github.com/eventhub/eventhub-backend/pkg/db/models"
	"github.com/eventhub/eventhub-backend/pkg/enums"
	pkgerrors "github.com/eventhub/eventhub-backend/pkg/errors"
	"github.com/eventhub/eventhub-backend/pkg/logger"
	"github.com/eventhub/eventhub-backend/pkg/outbox"
	"github.com/eventhub/eventhub-backend/pkg/outbox/payloads"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service cancels orders on behalf of their customer.
type Service interface {
	Cancel(ctx context.Context, input CancelInput) (*RefundDTO, error)
	Estimate(ctx context.Context, orderID, userID uuid.UUID) (*RefundDTO, error)
}

type CancelInput struct {
	OrderID uuid.UUID
	UserID  uuid.UUID
	Reason  string
}

// RefundDTO reports the refund a cancellation produced or would produce.
type RefundDTO struct {
	OrderID          uuid.UUID       `json:"order_id"`
	PaymentID        *uuid.UUID      `json:"payment_id,omitempty"`
	OriginalAmount   decimal.Decimal `json:"original_amount"`
	RefundAmount     decimal.Decimal `json:"refund_amount"`
	RefundPercentage int             `json:"refund_percentage"`
	RefundPolicy     string          `json:"refund_policy"`
	EventDate        *string         `json:"event_date,omitempty"`
	DaysUntilEvent   *int            `json:"days_until_event,omitempty"`
}

type ServiceParams struct {
	Orders   bookings.Repository
	Payments payments.Repository
	Leads    leads.Ledger
	DB       txRunner
	Outbox   outbox.Emitter
	Notifier notifications.Dispatcher
	Location *time.Location
	Now      func() time.Time
	Logger   *logger.Logger
}

type service struct {
	orders   bookings.Repository
	payments payments.Repository
	leads    leads.Ledger
	tx       txRunner
	outbox   outbox.Emitter
	notifier notifications.Dispatcher
	loc      *time.Location
	now      func() time.Time
	logg     *logger.Logger
}

func NewService(params ServiceParams) (Service, error) {
	if params.Orders == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "orders repository required")
	}
	if params.Payments == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "payments repository required")
	}
	if params.Leads == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "lead ledger required")
	}
	if params.DB == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "transaction runner required")
	}
	if params.Outbox == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "outbox emitter required")
	}
	notifier := params.Notifier
	if notifier == nil {
		notifier = notifications.Noop{}
	}
	loc := params.Location
	if loc == nil {
		loc = time.UTC
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &service{
		orders:   params.Orders,
		payments: params.Payments,
		leads:    params.Leads,
		tx:       params.DB,
		outbox:   params.Outbox,
		notifier: notifier,
		loc:      loc,
		now:      now,
		logg:     params.Logger,
	}, nil
}

// Estimate computes the refund a cancellation today would produce.
func (s *service) Estimate(ctx context.Context, orderID, userID uuid.UUID) (*RefundDTO, error) {
	order, err := s.orders.FindOrder(ctx, orderID)
	if err != nil {
		return nil, orderLoadError(err)
	}
	if order.UserID != userID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	rows, err := s.payments.ListForOrder(ctx, order.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list payments")
	}
	ledger, err := summarize(rows)
	if err != nil {
		return nil, err
	}
	refund := s.refundFor(order, ledger)
	return newRefundDTO(order, refund, nil), nil
}

// Cancel cancels the order, records a completed refund payment and closes
// the lead in one transaction.
func (s *service) Cancel(ctx context.Context, input CancelInput) (*RefundDTO, error) {
	var (
		result *RefundDTO
		order  *models.Order
	)
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		orders := s.orders.WithTx(tx)
		repo := s.payments.WithTx(tx)

		var err error
		order, err = orders.LockOrder(ctx, input.OrderID)
		if err != nil {
			return orderLoadError(err)
		}
		if order.UserID != input.UserID {
			return pkgerrors.New(pkgerrors.CodeBusinessRule, "you don't have permission to cancel this order")
		}
		if order.Status.IsClosed() {
			return pkgerrors.New(pkgerrors.CodeBusinessRule, "order is already "+string(order.Status))
		}
		rows, err := repo.ListForOrder(ctx, order.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list payments")
		}
		ledger, err := summarize(rows)
		if err != nil {
			return err
		}

		refund := s.refundFor(order, ledger)
		now := s.now().UTC()
		txnID := payments.NewRefundID()
		payment := &models.Payment{
			ID:            uuid.New(),
			OrderID:       order.ID,
			UserID:        order.UserID,
			VendorID:      order.VendorID,
			Amount:        refund.RefundAmount,
			PaymentType:   enums.PaymentTypeRefund,
			PaymentMethod: ledger.token.PaymentMethod,
			TransactionID: &txnID,
			Status:        enums.PaymentStatusCompleted,
			CompletedAt:   &now,
		}
		if err := repo.Create(ctx, payment); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create refund payment")
		}

		reason := strings.TrimSpace(input.Reason)
		if err := orders.UpdateOrder(ctx, order.ID, map[string]any{
			"status":                 enums.OrderStatusCancelled,
			"payment_status":         enums.OrderPaymentRefunded,
			"awaiting_token_payment": false,
			"cancelled_at":           now,
			"notes":                  appendReason(order.Notes, reason),
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "cancel order")
		}
		var note *string
		if reason != "" {
			note = &reason
		}
		if err := orders.AppendTimeline(ctx, bookings.CompletedStage(order, bookings.StageCancelled, note, now)); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "append order timeline")
		}
		if err := s.leads.MarkDeclinedForOrder(ctx, tx, order.ID); err != nil {
			return err
		}

		actor := &outbox.ActorRef{UserID: input.UserID, Role: enums.ActorRoleCustomer}
		if err := s.outbox.Emit(ctx, tx, bookings.StateChangedEvent(order, order.Status, enums.OrderStatusCancelled, "customer_cancelled", now, actor)); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit order cancelled")
		}
		err = s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventPaymentRefunded,
			AggregateType: enums.AggregatePayment,
			AggregateID:   payment.ID,
			Actor:         actor,
			OccurredAt:    now,
			Data: payloads.PaymentEvent{
				PaymentID:     payment.ID,
				OrderID:       order.ID,
				UserID:        order.UserID,
				VendorID:      order.VendorID,
				PaymentType:   payment.PaymentType,
				Status:        payment.Status,
				Amount:        payment.Amount,
				TransactionID: txnID,
			},
		})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit payment refunded")
		}

		result = newRefundDTO(order, refund, &payment.ID)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.info(ctx, "order cancelled", map[string]any{
		"order_id":      order.ID.String(),
		"refund_amount": result.RefundAmount.StringFixed(2),
	})
	amount := result.RefundAmount.StringFixed(2)
	s.notifier.Notify(ctx,
		notifications.Notification{
			Kind:        enums.NotificationOrderCancelled,
			RecipientID: order.UserID,
			Role:        enums.ActorRoleCustomer,
			Title:       "Booking cancelled",
			Message:     "Booking " + order.OrderNumber + " was cancelled. Refund: " + amount + ".",
			OrderID:     &order.ID,
			Link:        bookings.OrderLink(order),
		},
		notifications.Notification{
			Kind:        enums.NotificationOrderCancelled,
			RecipientID: order.VendorID,
			Role:        enums.ActorRoleVendor,
			Title:       "Booking cancelled by customer",
			Message:     "Booking " + order.OrderNumber + " was cancelled by the customer.",
			OrderID:     &order.ID,
			Link:        "/vendor/orders/" + order.ID.String(),
		},
	)
	return result, nil
}

// paymentLedger is the refundable state of an order's payments.
type paymentLedger struct {
	token      *models.Payment
	refundable decimal.Decimal
}

func summarize(rows []models.Payment) (*paymentLedger, error) {
	ledger := &paymentLedger{refundable: decimal.Zero}
	for i := range rows {
		p := rows[i]
		switch {
		case p.Status != enums.PaymentStatusCompleted:
		case p.PaymentType == enums.PaymentTypeRefund:
			ledger.refundable = ledger.refundable.Sub(p.Amount)
		default:
			ledger.refundable = ledger.refundable.Add(p.Amount)
			if p.PaymentType == enums.PaymentTypeToken && ledger.token == nil {
				ledger.token = &rows[i]
			}
		}
	}
	if ledger.token == nil {
		return nil, pkgerrors.New(pkgerrors.CodePayment, "no completed token payment found for order")
	}
	if ledger.refundable.IsNegative() {
		ledger.refundable = decimal.Zero
	}
	return ledger, nil
}

func (s *service) refundFor(order *models.Order, ledger *paymentLedger) pricing.Refund {
	today := pricing.Today(s.now(), s.loc)
	refund := pricing.RefundFor(ledger.token.Amount, order.EventDate, today)
	if refund.RefundAmount.GreaterThan(ledger.refundable) {
		refund.RefundAmount = ledger.refundable
	}
	return refund
}

func newRefundDTO(order *models.Order, refund pricing.Refund, paymentID *uuid.UUID) *RefundDTO {
	return &RefundDTO{
		OrderID:          order.ID,
		PaymentID:        paymentID,
		OriginalAmount:   refund.OriginalAmount,
		RefundAmount:     refund.RefundAmount,
		RefundPercentage: refund.Percentage,
		RefundPolicy:     refund.Policy,
		EventDate:        bookings.FormatDate(order.EventDate),
		DaysUntilEvent:   refund.DaysUntilEvent,
	}
}

func appendReason(notes *string, reason string) string {
	line := "Cancelled by customer"
	if reason != "" {
		line += ": " + reason
	}
	if notes == nil || *notes == "" {
		return line
	}
	return *notes + "\n" + line
}

func (s *service) info(ctx context.Context, msg string, fields map[string]any) {
	if s.logg == nil {
		return
	}
	s.logg.Info(s.logg.WithFields(ctx, fields), msg)
}

func orderLoadError(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
}
