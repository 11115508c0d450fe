// Package payments captures token payments through the gateway adapter and
// applies gateway callbacks to orders.
package payments

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/eventhub/eventhub-backend/internal/bookings"
	"github.com/eventhub/eventhub-backend/internal/leads"
	"github.com/eventhub/eventhub-backend/internal/notifications"
	"github.com/eventhub/eventhub-backend/internal/pricing"
	"github.com/eventhub/eventhub-backend/pkg/auth"
	"github.com/eventhub/eventhub-backend/pkg/db"
	"github.com/eventhub/eventhub-backend/pkg/db/models"
	"github.com/eventhub/eventhub-backend/pkg/enums"
	pkgerrors "github.com/eventhub/eventhub-backend/pkg/errors"
	"github.com/eventhub/eventhub-backend/pkg/logger"
	"github.com/eventhub/eventhub-backend/pkg/metrics"
	"github.com/eventhub/eventhub-backend/pkg/outbox"
	"github.com/eventhub/eventhub-backend/pkg/outbox/payloads"
)

const (
	completedTokenIndex  = "ux_payments_completed_token_per_order"
	gatewayFailureReason = "Payment failed at gateway"
)

var errConcurrentCompletion = errors.New("token payment already completed by a concurrent delivery")

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// offerFinder resolves an accepted offer to its order.
type offerFinder interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Offer, error)
}

// Service is the payment capture surface.
type Service interface {
	InitiateTokenPayment(ctx context.Context, input InitiateInput) (*Checkout, error)
	InitiateTokenPaymentForOffer(ctx context.Context, offerID, userID uuid.UUID, method string) (*Checkout, error)
	VerifySignature(body []byte, signature string) bool
	HandleWebhook(ctx context.Context, input WebhookInput) (*WebhookResult, error)
	PaymentHistory(ctx context.Context, actor auth.Actor, orderID uuid.UUID) (*History, error)
	Balance(ctx context.Context, actor auth.Actor, orderID uuid.UUID) (*Balance, error)
	PaymentStatus(ctx context.Context, actor auth.Actor, paymentID uuid.UUID) (*PaymentDTO, error)
	HasCompletedTokenPayment(ctx context.Context, actor auth.Actor, orderID uuid.UUID) (*TokenPaymentState, error)
}

type InitiateInput struct {
	OrderID uuid.UUID
	UserID  uuid.UUID
	Method  string
}

// WebhookInput is one gateway callback. Body is the raw request body the
// signature was computed over.
type WebhookInput struct {
	TransactionID string
	Status        string
	RawPayload    json.RawMessage
	Signature     string
	Body          []byte
}

type ServiceParams struct {
	Repository    Repository
	Orders        bookings.Repository
	Offers        offerFinder
	Leads         leads.Ledger
	Gateway       Gateway
	DB            txRunner
	Outbox        outbox.Emitter
	Notifier      notifications.Dispatcher
	DefaultMethod string
	Now           func() time.Time
	Logger        *logger.Logger
}

type service struct {
	repo          Repository
	orders        bookings.Repository
	offers        offerFinder
	leads         leads.Ledger
	gateway       Gateway
	tx            txRunner
	outbox        outbox.Emitter
	notifier      notifications.Dispatcher
	defaultMethod enums.PaymentMethod
	now           func() time.Time
	logg          *logger.Logger
}

// NewService wires payment dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Repository == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "payments repository required")
	}
	if params.Orders == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "orders repository required")
	}
	if params.Offers == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "offer lookup required")
	}
	if params.Leads == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "lead ledger required")
	}
	if params.Gateway == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "payment gateway required")
	}
	if params.DB == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "transaction runner required")
	}
	if params.Outbox == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "outbox emitter required")
	}
	method := enums.PaymentMethodUPI
	if params.DefaultMethod != "" {
		parsed, err := enums.ParsePaymentMethod(params.DefaultMethod)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "invalid default payment method")
		}
		method = parsed
	}
	notifier := params.Notifier
	if notifier == nil {
		notifier = notifications.Noop{}
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &service{
		repo:          params.Repository,
		orders:        params.Orders,
		offers:        params.Offers,
		leads:         params.Leads,
		gateway:       params.Gateway,
		tx:            params.DB,
		outbox:        params.Outbox,
		notifier:      notifier,
		defaultMethod: method,
		now:           now,
		logg:          params.Logger,
	}, nil
}

// InitiateTokenPayment assigns a transaction id to the order's token payment
// and returns the gateway checkout. The order itself is not changed.
func (s *service) InitiateTokenPayment(ctx context.Context, input InitiateInput) (*Checkout, error) {
	method, err := s.method(input.Method)
	if err != nil {
		return nil, err
	}

	var (
		payment *models.Payment
		order   *models.Order
	)
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		var err error
		order, err = s.orders.WithTx(tx).LockOrder(ctx, input.OrderID)
		if err != nil {
			return orderLoadError(err)
		}
		if order.UserID != input.UserID {
			return pkgerrors.New(pkgerrors.CodeBusinessRule, "you don't have permission to pay for this order")
		}
		if !order.AwaitingTokenPayment || order.Status != enums.OrderStatusPending {
			return pkgerrors.New(pkgerrors.CodePayment, "order is not awaiting token payment")
		}
		paid, err := repo.HasCompletedToken(ctx, order.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check token payment")
		}
		if paid {
			return pkgerrors.New(pkgerrors.CodePayment, "token payment already completed")
		}

		txnID := NewTransactionID()
		payment, err = repo.FindOpenToken(ctx, order.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load placeholder payment")
		}
		if payment != nil {
			if err := repo.Update(ctx, payment.ID, map[string]any{
				"transaction_id": txnID,
				"payment_method": method,
			}); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "claim placeholder payment")
			}
			payment.TransactionID = &txnID
			payment.PaymentMethod = &method
			return nil
		}

		payment = &models.Payment{
			ID:            uuid.New(),
			OrderID:       order.ID,
			UserID:        order.UserID,
			VendorID:      order.VendorID,
			Amount:        order.TokenAmount,
			PaymentType:   enums.PaymentTypeToken,
			PaymentMethod: &method,
			TransactionID: &txnID,
			Status:        enums.PaymentStatusPending,
		}
		if err := repo.Create(ctx, payment); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create token payment")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	checkout, err := s.gateway.Checkout(ctx, CheckoutRequest{
		PaymentID:     payment.ID,
		OrderID:       order.ID,
		OrderNumber:   order.OrderNumber,
		TransactionID: *payment.TransactionID,
		Amount:        payment.Amount,
		Method:        method,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "build gateway checkout")
	}
	s.info(ctx, "token payment initiated", map[string]any{
		"order_id":       order.ID.String(),
		"payment_id":     payment.ID.String(),
		"transaction_id": *payment.TransactionID,
	})
	return checkout, nil
}

// InitiateTokenPaymentForOffer starts the token payment of the order an
// accepted offer produced.
func (s *service) InitiateTokenPaymentForOffer(ctx context.Context, offerID, userID uuid.UUID, method string) (*Checkout, error) {
	offer, err := s.offers.FindByID(ctx, offerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "offer not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load offer")
	}
	if offer.UserID != userID {
		return nil, pkgerrors.New(pkgerrors.CodeBusinessRule, "offer does not belong to this user")
	}
	if offer.Status != enums.OfferStatusAccepted || offer.OrderID == nil {
		return nil, pkgerrors.New(pkgerrors.CodeBusinessRule, "offer has not been accepted")
	}
	return s.InitiateTokenPayment(ctx, InitiateInput{OrderID: *offer.OrderID, UserID: userID, Method: method})
}

// VerifySignature checks a callback body against the gateway signature.
func (s *service) VerifySignature(body []byte, signature string) bool {
	return s.gateway.VerifySignature(body, signature)
}

// HandleWebhook applies one gateway callback. Deliveries for payments that
// already reached a terminal status change nothing.
func (s *service) HandleWebhook(ctx context.Context, input WebhookInput) (*WebhookResult, error) {
	if !s.gateway.VerifySignature(input.Body, input.Signature) {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid webhook signature")
	}
	if input.TransactionID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "transaction id required")
	}

	var (
		result    = &WebhookResult{Outcome: metrics.WebhookOutcomeIgnored}
		completed *completion
	)
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		payment, err := repo.LockByTransaction(ctx, input.TransactionID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "payment not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load payment")
		}
		result.PaymentID = payment.ID
		result.OrderID = payment.OrderID
		if payment.Status.IsTerminal() {
			result.Outcome = metrics.WebhookOutcomeDuplicate
			return nil
		}

		switch strings.ToLower(strings.TrimSpace(input.Status)) {
		case "success", "completed":
			completed, err = s.complete(ctx, tx, payment, input.RawPayload)
			if err != nil {
				return err
			}
			result.Outcome = metrics.WebhookOutcomeCompleted
		case "failed", "error":
			if err := s.fail(ctx, tx, payment, input.RawPayload); err != nil {
				return err
			}
			result.Outcome = metrics.WebhookOutcomeFailed
		default:
			s.warn(ctx, "unknown webhook status ignored", map[string]any{
				"transaction_id": input.TransactionID,
				"status":         input.Status,
			})
		}
		return nil
	})
	if errors.Is(err, errConcurrentCompletion) {
		result.Outcome = metrics.WebhookOutcomeDuplicate
		return result, nil
	}
	if err != nil {
		return nil, err
	}

	if completed != nil {
		s.notifyCompletion(ctx, completed)
	}
	return result, nil
}

type completion struct {
	order     *models.Order
	payment   *models.Payment
	confirmed bool
}

func (s *service) complete(ctx context.Context, tx *gorm.DB, payment *models.Payment, raw json.RawMessage) (*completion, error) {
	now := s.now().UTC()
	updates := map[string]any{
		"status":       enums.PaymentStatusCompleted,
		"completed_at": now,
	}
	if len(raw) > 0 {
		updates["gateway_response"] = raw
	}
	if err := s.repo.WithTx(tx).Update(ctx, payment.ID, updates); err != nil {
		if db.IsUniqueViolation(err, completedTokenIndex, "payments.order_id") {
			return nil, errConcurrentCompletion
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "complete payment")
	}
	payment.Status = enums.PaymentStatusCompleted
	payment.CompletedAt = &now
	if err := s.emitPayment(ctx, tx, enums.EventPaymentCompleted, payment); err != nil {
		return nil, err
	}

	orders := s.orders.WithTx(tx)
	order, err := orders.LockOrder(ctx, payment.OrderID)
	if err != nil {
		return nil, orderLoadError(err)
	}
	done := &completion{order: order, payment: payment}
	if payment.PaymentType != enums.PaymentTypeToken {
		return done, nil
	}
	if order.Status.IsClosed() {
		s.warn(ctx, "token payment completed for closed order", map[string]any{
			"order_id":   order.ID.String(),
			"payment_id": payment.ID.String(),
			"status":     string(order.Status),
		})
		return done, nil
	}

	balance := pricing.BalanceDue(order.TotalAmount, payment.Amount)
	if err := orders.UpdateOrder(ctx, order.ID, map[string]any{
		"payment_status":         enums.OrderPaymentPartial,
		"token_paid":             payment.Amount,
		"balance_amount":         balance,
		"awaiting_token_payment": false,
	}); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record token on order")
	}
	order.PaymentStatus = enums.OrderPaymentPartial
	order.TokenPaid = payment.Amount
	order.BalanceAmount = balance
	order.AwaitingTokenPayment = false

	note := "Token amount " + payment.Amount.StringFixed(2) + " received"
	if err := orders.AppendTimeline(ctx, bookings.CompletedStage(order, bookings.StageTokenReceived, &note, now)); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "append order timeline")
	}

	lead, err := s.leads.RecordTokenPayment(ctx, tx, order, payment.Amount)
	if err != nil {
		return nil, err
	}
	if order.Status != enums.OrderStatusPending || !lead.Source.ConfirmsOnTokenPayment() {
		return done, nil
	}

	if err := orders.UpdateOrder(ctx, order.ID, map[string]any{
		"status":       enums.OrderStatusConfirmed,
		"confirmed_at": now,
	}); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "confirm order")
	}
	if err := orders.AppendTimeline(ctx, bookings.CompletedStage(order, bookings.StageConfirmed, nil, now)); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "append order timeline")
	}
	event := bookings.StateChangedEvent(order, order.Status, enums.OrderStatusConfirmed, "token_payment_received", now, outbox.SystemActor())
	if err := s.outbox.Emit(ctx, tx, event); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit order confirmed")
	}
	order.Status = enums.OrderStatusConfirmed
	order.ConfirmedAt = &now
	done.confirmed = true
	return done, nil
}

func (s *service) fail(ctx context.Context, tx *gorm.DB, payment *models.Payment, raw json.RawMessage) error {
	reason := gatewayFailureReason
	updates := map[string]any{
		"status":         enums.PaymentStatusFailed,
		"failure_reason": reason,
	}
	if len(raw) > 0 {
		updates["gateway_response"] = raw
	}
	if err := s.repo.WithTx(tx).Update(ctx, payment.ID, updates); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "fail payment")
	}
	payment.Status = enums.PaymentStatusFailed
	payment.FailureReason = &reason
	return s.emitPayment(ctx, tx, enums.EventPaymentFailed, payment)
}

func (s *service) notifyCompletion(ctx context.Context, done *completion) {
	order := done.order
	amount := done.payment.Amount.StringFixed(2)
	notes := []notifications.Notification{
		{
			Kind:        enums.NotificationTokenPaymentReceived,
			RecipientID: order.UserID,
			Role:        enums.ActorRoleCustomer,
			Title:       "Payment received",
			Message:     "We received your payment of " + amount + " for booking " + order.OrderNumber + ".",
			OrderID:     &order.ID,
			Link:        bookings.OrderLink(order),
		},
		{
			Kind:        enums.NotificationTokenPaymentReceived,
			RecipientID: order.VendorID,
			Role:        enums.ActorRoleVendor,
			Title:       "Token payment received",
			Message:     "The customer paid " + amount + " for booking " + order.OrderNumber + ".",
			OrderID:     &order.ID,
			Link:        "/vendor/orders/" + order.ID.String(),
		},
	}
	if done.confirmed {
		notes = append(notes, notifications.Notification{
			Kind:        enums.NotificationOrderConfirmed,
			RecipientID: order.UserID,
			Role:        enums.ActorRoleCustomer,
			Title:       "Booking confirmed",
			Message:     "Your booking " + order.OrderNumber + " is confirmed.",
			OrderID:     &order.ID,
			Link:        bookings.OrderLink(order),
		})
	}
	s.notifier.Notify(ctx, notes...)
}

func (s *service) PaymentHistory(ctx context.Context, actor auth.Actor, orderID uuid.UUID) (*History, error) {
	order, payments, err := s.orderPayments(ctx, actor, orderID)
	if err != nil {
		return nil, err
	}
	items := make([]PaymentDTO, 0, len(payments))
	for _, p := range payments {
		items = append(items, NewPaymentDTO(p))
	}
	return &History{
		Balance:       balanceOf(order, payments),
		PaymentStatus: order.PaymentStatus,
		Payments:      items,
	}, nil
}

func (s *service) Balance(ctx context.Context, actor auth.Actor, orderID uuid.UUID) (*Balance, error) {
	order, payments, err := s.orderPayments(ctx, actor, orderID)
	if err != nil {
		return nil, err
	}
	balance := balanceOf(order, payments)
	return &balance, nil
}

func (s *service) PaymentStatus(ctx context.Context, actor auth.Actor, paymentID uuid.UUID) (*PaymentDTO, error) {
	payment, err := s.repo.FindByID(ctx, paymentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "payment not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load payment")
	}
	if !actor.IsParty(payment.UserID, payment.VendorID) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "payment not found")
	}
	dto := NewPaymentDTO(*payment)
	return &dto, nil
}

func (s *service) HasCompletedTokenPayment(ctx context.Context, actor auth.Actor, orderID uuid.UUID) (*TokenPaymentState, error) {
	order, err := s.partyOrder(ctx, actor, orderID)
	if err != nil {
		return nil, err
	}
	paid, err := s.repo.HasCompletedToken(ctx, order.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check token payment")
	}
	return &TokenPaymentState{OrderID: order.ID, TokenPaid: paid}, nil
}

func (s *service) orderPayments(ctx context.Context, actor auth.Actor, orderID uuid.UUID) (*models.Order, []models.Payment, error) {
	order, err := s.partyOrder(ctx, actor, orderID)
	if err != nil {
		return nil, nil, err
	}
	payments, err := s.repo.ListForOrder(ctx, order.ID)
	if err != nil {
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list payments")
	}
	return order, payments, nil
}

func (s *service) partyOrder(ctx context.Context, actor auth.Actor, orderID uuid.UUID) (*models.Order, error) {
	order, err := s.orders.FindOrder(ctx, orderID)
	if err != nil {
		return nil, orderLoadError(err)
	}
	if !actor.IsParty(order.UserID, order.VendorID) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	return order, nil
}

func (s *service) method(value string) (enums.PaymentMethod, error) {
	if value == "" {
		return s.defaultMethod, nil
	}
	method, err := enums.ParsePaymentMethod(value)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid payment method")
	}
	return method, nil
}

func (s *service) emitPayment(ctx context.Context, tx *gorm.DB, eventType enums.OutboxEventType, payment *models.Payment) error {
	data := payloads.PaymentEvent{
		PaymentID:   payment.ID,
		OrderID:     payment.OrderID,
		UserID:      payment.UserID,
		VendorID:    payment.VendorID,
		PaymentType: payment.PaymentType,
		Status:      payment.Status,
		Amount:      payment.Amount,
	}
	if payment.TransactionID != nil {
		data.TransactionID = *payment.TransactionID
	}
	if payment.FailureReason != nil {
		data.FailureReason = *payment.FailureReason
	}
	err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     eventType,
		AggregateType: enums.AggregatePayment,
		AggregateID:   payment.ID,
		Actor:         outbox.SystemActor(),
		OccurredAt:    s.now().UTC(),
		Data:          data,
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit payment event")
	}
	return nil
}

func (s *service) info(ctx context.Context, msg string, fields map[string]any) {
	if s.logg == nil {
		return
	}
	s.logg.Info(s.logg.WithFields(ctx, fields), msg)
}

func (s *service) warn(ctx context.Context, msg string, fields map[string]any) {
	if s.logg == nil {
		return
	}
	s.logg.Warn(s.logg.WithFields(ctx, fields), msg)
}

func orderLoadError(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
}
