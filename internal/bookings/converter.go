package bookings

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/eventhub/eventhub-backend/internal/pricing"
	"github.com/eventhub/eventhub-backend/pkg/db"
	"github.com/eventhub/eventhub-backend/pkg/db/models"
	"github.com/eventhub/eventhub-backend/pkg/enums"
	pkgerrors "github.com/eventhub/eventhub-backend/pkg/errors"
	"github.com/eventhub/eventhub-backend/pkg/outbox"
	"github.com/eventhub/eventhub-backend/pkg/outbox/payloads"
)

const (
	StageCreatedFromOffer = "Order Created from Offer - Awaiting Token Payment"
	StageTokenReceived    = "Token Payment Received"
	StageConfirmed        = "Order Confirmed"
	StageInProgress       = "Event In Progress"
	StageCompleted        = "Order Completed"
	StageCancelled        = "Order Cancelled"
	StageExpired          = "Order Expired - Token Payment Not Received"
)

// ConvertInput is the accepted offer plus the collaborator records copied onto the order.
type ConvertInput struct {
	Offer    *models.Offer
	Listing  *models.Listing
	Customer *models.UserProfile
	Actor    *outbox.ActorRef
}

// Converter turns an accepted offer into an order inside the caller's transaction.
type Converter interface {
	ConvertAcceptedOffer(ctx context.Context, tx *gorm.DB, input ConvertInput) (*models.Order, error)
}

// ConvertAcceptedOffer creates the order, its placeholder token payment and the
// first timeline row, then links the chat thread. The offer itself is only
// updated in memory; persisting its status and order id is the caller's job.
func (s *service) ConvertAcceptedOffer(ctx context.Context, tx *gorm.DB, input ConvertInput) (*models.Order, error) {
	if tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "conversion requires a transaction")
	}
	offer, listing := input.Offer, input.Listing
	if offer == nil || listing == nil || input.Customer == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "offer, listing and customer are required")
	}
	if listing.ID != offer.ListingID {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "listing does not match offer")
	}

	repo := s.repo.WithTx(tx)
	now := s.now().UTC()
	totals := s.rates.Breakdown(offer.OfferedPrice, offer.OriginalPrice)

	number, err := repo.NextOrderNumber(ctx, pricing.Today(now, s.loc).Year())
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "allocate order number")
	}

	notes := fmt.Sprintf("Order created from accepted offer. Original price: %s, Negotiated price: %s",
		offer.OriginalPrice.StringFixed(2), offer.OfferedPrice.StringFixed(2))
	offerID := offer.ID
	order := &models.Order{
		ID:                   uuid.New(),
		OrderNumber:          number,
		UserID:               offer.UserID,
		VendorID:             offer.VendorID,
		ListingID:            listing.ID,
		OfferID:              &offerID,
		ItemType:             listing.ListingType,
		EventDetails:         offer.EventDetails,
		BaseAmount:           totals.Subtotal,
		DiscountAmount:       totals.Discount,
		PlatformFee:          totals.PlatformFee,
		TaxAmount:            totals.GST,
		TotalAmount:          totals.Total,
		TokenAmount:          totals.Token,
		BalanceAmount:        totals.Total,
		PaymentStatus:        enums.OrderPaymentPending,
		Status:               enums.OrderStatusPending,
		AwaitingTokenPayment: true,
		CustomerName:         input.Customer.FullName,
		CustomerEmail:        input.Customer.Email,
		CustomerPhone:        input.Customer.Phone,
		Customizations:       offer.Customization,
		Notes:                &notes,
	}
	if err := repo.CreateOrder(ctx, order); err != nil {
		if db.IsUniqueViolation(err, "ux_orders_order_number", "orders.order_number") {
			return nil, pkgerrors.Wrap(pkgerrors.CodeConflict, err, "order number already allocated")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order")
	}

	placeholder := &models.Payment{
		ID:          uuid.New(),
		OrderID:     order.ID,
		UserID:      order.UserID,
		VendorID:    order.VendorID,
		Amount:      totals.Token,
		PaymentType: enums.PaymentTypeToken,
		Status:      enums.PaymentStatusPending,
	}
	if err := repo.CreatePayment(ctx, placeholder); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create token payment")
	}

	if err := repo.AppendTimeline(ctx, &models.OrderTimeline{
		OrderID: order.ID,
		Stage:   StageCreatedFromOffer,
		Status:  enums.TimelineStatusPending,
	}); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "append order timeline")
	}

	store := s.catalog.WithTx(tx)
	if err := store.LinkOrder(ctx, offer.ThreadID, order.ID); err != nil {
		return nil, err
	}
	if offer.LeadID != nil {
		thread, err := store.GetThread(ctx, offer.ThreadID)
		if err != nil {
			return nil, err
		}
		if thread.LeadID == nil {
			if err := store.LinkLead(ctx, thread.ID, *offer.LeadID); err != nil {
				return nil, err
			}
		}
	}
	offer.OrderID = &order.ID

	err = s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventOrderCreated,
		AggregateType: enums.AggregateOrder,
		AggregateID:   order.ID,
		Actor:         input.Actor,
		OccurredAt:    now,
		Data: payloads.OrderCreatedEvent{
			OrderID:     order.ID,
			OrderNumber: order.OrderNumber,
			OfferID:     order.OfferID,
			UserID:      order.UserID,
			VendorID:    order.VendorID,
			TotalAmount: order.TotalAmount,
			TokenAmount: order.TokenAmount,
			EventDate:   order.EventDate,
		},
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit order created")
	}
	return order, nil
}
