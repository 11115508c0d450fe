// Package bookings converts accepted offers into orders and owns the vendor
// side of the order lifecycle.
package bookings

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/eventhub/eventhub-backend/internal/catalog"
	"github.com/eventhub/eventhub-backend/internal/leads"
	"github.com/eventhub/eventhub-backend/internal/notifications"
	"github.com/eventhub/eventhub-backend/internal/pricing"
	"github.com/eventhub/eventhub-backend/pkg/auth"
	"github.com/eventhub/eventhub-backend/pkg/db/models"
	"github.com/eventhub/eventhub-backend/pkg/enums"
	pkgerrors "github.com/eventhub/eventhub-backend/pkg/errors"
	"github.com/eventhub/eventhub-backend/pkg/logger"
	"github.com/eventhub/eventhub-backend/pkg/outbox"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service exposes order conversion, order reads and vendor lifecycle actions.
type Service interface {
	Converter
	Get(ctx context.Context, actor auth.Actor, orderID uuid.UUID) (*OrderDetail, error)
	VendorConfirm(ctx context.Context, vendorID, orderID uuid.UUID) (*OrderDTO, error)
	VendorComplete(ctx context.Context, vendorID, orderID uuid.UUID) (*OrderDTO, error)
}

type ServiceParams struct {
	Repository Repository
	Catalog    catalog.Store
	DB         txRunner
	Outbox     outbox.Emitter
	Leads      leads.Ledger
	Notifier   notifications.Dispatcher
	Rates      pricing.Rates
	Location   *time.Location
	Now        func() time.Time
	Logger     *logger.Logger
}

type service struct {
	repo     Repository
	catalog  catalog.Store
	tx       txRunner
	outbox   outbox.Emitter
	leads    leads.Ledger
	notifier notifications.Dispatcher
	rates    pricing.Rates
	loc      *time.Location
	now      func() time.Time
	logg     *logger.Logger
}

// NewService wires booking dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Repository == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "bookings repository required")
	}
	if params.Catalog == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "catalog store required")
	}
	if params.DB == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "transaction runner required")
	}
	if params.Outbox == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "outbox emitter required")
	}
	if params.Leads == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "lead ledger required")
	}
	notifier := params.Notifier
	if notifier == nil {
		notifier = notifications.Noop{}
	}
	rates := params.Rates
	if rates.Token.IsZero() && rates.PlatformFee.IsZero() && rates.GST.IsZero() {
		rates = pricing.DefaultRates()
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	loc := params.Location
	if loc == nil {
		loc = time.UTC
	}
	return &service{
		repo:     params.Repository,
		catalog:  params.Catalog,
		tx:       params.DB,
		outbox:   params.Outbox,
		leads:    params.Leads,
		notifier: notifier,
		rates:    rates,
		loc:      loc,
		now:      now,
		logg:     params.Logger,
	}, nil
}

// Get returns the order and its timeline to the customer, the vendor or an admin.
func (s *service) Get(ctx context.Context, actor auth.Actor, orderID uuid.UUID) (*OrderDetail, error) {
	order, err := s.repo.FindOrder(ctx, orderID)
	if err != nil {
		return nil, orderLoadError(err)
	}
	if !actor.IsParty(order.UserID, order.VendorID) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	timeline, err := s.repo.ListTimeline(ctx, order.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order timeline")
	}
	return &OrderDetail{Order: NewOrderDTO(*order), Timeline: newTimelineDTOs(timeline)}, nil
}

// VendorConfirm confirms a paid order whose lead did not confirm it
// automatically, which is the direct-order path.
func (s *service) VendorConfirm(ctx context.Context, vendorID, orderID uuid.UUID) (*OrderDTO, error) {
	var updated *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := s.lockVendorOrder(ctx, repo, vendorID, orderID)
		if err != nil {
			return err
		}
		if order.Status != enums.OrderStatusPending {
			return pkgerrors.New(pkgerrors.CodeBusinessRule, "only pending orders can be confirmed")
		}
		if order.AwaitingTokenPayment || order.PaymentStatus == enums.OrderPaymentPending {
			return pkgerrors.New(pkgerrors.CodePayment, "token payment has not been received")
		}

		now := s.now().UTC()
		if err := repo.UpdateOrder(ctx, order.ID, map[string]any{
			"status":       enums.OrderStatusConfirmed,
			"confirmed_at": now,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "confirm order")
		}
		note := "Confirmed by vendor"
		if err := repo.AppendTimeline(ctx, CompletedStage(order, StageConfirmed, &note, now)); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "append order timeline")
		}
		if err := s.leads.MarkConvertedForOrder(ctx, tx, order.ID); err != nil {
			return err
		}
		event := StateChangedEvent(order, order.Status, enums.OrderStatusConfirmed, "vendor_confirmed", now, vendorActor(vendorID))
		if err := s.outbox.Emit(ctx, tx, event); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit order confirmed")
		}

		order.Status = enums.OrderStatusConfirmed
		order.ConfirmedAt = &now
		updated = order
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.notifier.Notify(ctx, notifications.Notification{
		Kind:        enums.NotificationOrderConfirmed,
		RecipientID: updated.UserID,
		Role:        enums.ActorRoleCustomer,
		Title:       "Booking confirmed",
		Message:     "Your booking " + updated.OrderNumber + " has been confirmed by the vendor.",
		OrderID:     &updated.ID,
		Link:        OrderLink(updated),
	})
	dto := NewOrderDTO(*updated)
	return &dto, nil
}

// VendorComplete marks a confirmed or running order as completed once its
// event date has arrived.
func (s *service) VendorComplete(ctx context.Context, vendorID, orderID uuid.UUID) (*OrderDTO, error) {
	var updated *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := s.lockVendorOrder(ctx, repo, vendorID, orderID)
		if err != nil {
			return err
		}
		if order.Status != enums.OrderStatusConfirmed && order.Status != enums.OrderStatusInProgress {
			return pkgerrors.New(pkgerrors.CodeBusinessRule, "only confirmed or in-progress orders can be completed")
		}
		now := s.now().UTC()
		today := pricing.Today(now, s.loc)
		if order.EventDate != nil && pricing.DateOnly(*order.EventDate).After(today) {
			return pkgerrors.New(pkgerrors.CodeBusinessRule, "cannot complete event before the event date")
		}

		if err := repo.UpdateOrder(ctx, order.ID, map[string]any{
			"status":       enums.OrderStatusCompleted,
			"completed_at": now,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "complete order")
		}
		note := "Marked complete by vendor"
		if err := repo.AppendTimeline(ctx, CompletedStage(order, StageCompleted, &note, now)); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "append order timeline")
		}
		event := StateChangedEvent(order, order.Status, enums.OrderStatusCompleted, "vendor_completed", now, vendorActor(vendorID))
		if err := s.outbox.Emit(ctx, tx, event); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit order completed")
		}

		order.Status = enums.OrderStatusCompleted
		order.CompletedAt = &now
		updated = order
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.notifier.Notify(ctx, notifications.Notification{
		Kind:        enums.NotificationOrderCompleted,
		RecipientID: updated.UserID,
		Role:        enums.ActorRoleCustomer,
		Title:       "Event completed",
		Message:     "Your booking " + updated.OrderNumber + " has been marked as completed.",
		OrderID:     &updated.ID,
		Link:        OrderLink(updated),
	})
	dto := NewOrderDTO(*updated)
	return &dto, nil
}

func (s *service) lockVendorOrder(ctx context.Context, repo Repository, vendorID, orderID uuid.UUID) (*models.Order, error) {
	order, err := repo.LockOrder(ctx, orderID)
	if err != nil {
		return nil, orderLoadError(err)
	}
	if order.VendorID != vendorID {
		return nil, pkgerrors.New(pkgerrors.CodeBusinessRule, "you don't have permission to manage this order")
	}
	return order, nil
}

func orderLoadError(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
}

func vendorActor(vendorID uuid.UUID) *outbox.ActorRef {
	id := vendorID
	return &outbox.ActorRef{VendorID: &id, Role: enums.ActorRoleVendor}
}
