// Package offers implements price negotiation between a customer and a
// vendor over a single listing in a chat thread.
package offers

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/eventhub/eventhub-backend/internal/bookings"
	"github.com/eventhub/eventhub-backend/internal/catalog"
	"github.com/eventhub/eventhub-backend/internal/leads"
	"github.com/eventhub/eventhub-backend/internal/notifications"
	"github.com/eventhub/eventhub-backend/pkg/auth"
	"github.com/eventhub/eventhub-backend/pkg/db"
	"github.com/eventhub/eventhub-backend/pkg/db/models"
	"github.com/eventhub/eventhub-backend/pkg/enums"
	pkgerrors "github.com/eventhub/eventhub-backend/pkg/errors"
	"github.com/eventhub/eventhub-backend/pkg/logger"
	"github.com/eventhub/eventhub-backend/pkg/outbox"
	"github.com/eventhub/eventhub-backend/pkg/outbox/payloads"
	"github.com/eventhub/eventhub-backend/pkg/pagination"
)

const activeOfferIndex = "ux_offers_active_thread_listing"

var errActiveOfferExists = pkgerrors.New(pkgerrors.CodeBusinessRule, "an active offer already exists for this listing in this thread")

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service is the negotiation state machine:
//
//	pending   -> countered | accepted | rejected | withdrawn
//	countered -> pending (re-counter) | accepted | rejected | withdrawn
type Service interface {
	Propose(ctx context.Context, input ProposeInput) (*OfferDTO, error)
	VendorCounter(ctx context.Context, input CounterInput) (*OfferDTO, error)
	UserReCounter(ctx context.Context, input ReCounterInput) (*OfferDTO, error)
	VendorAccept(ctx context.Context, offerID, vendorID uuid.UUID) (*AcceptResult, error)
	UserAcceptCounter(ctx context.Context, offerID, userID uuid.UUID) (*AcceptResult, error)
	VendorReject(ctx context.Context, offerID, vendorID uuid.UUID) (*OfferDTO, error)
	UserWithdraw(ctx context.Context, offerID, userID uuid.UUID) (*OfferDTO, error)
	Get(ctx context.Context, actor auth.Actor, offerID uuid.UUID) (*OfferDTO, error)
	ListByThread(ctx context.Context, actor auth.Actor, threadID uuid.UUID, params ListParams) (*ListResult, error)
	ListMine(ctx context.Context, userID uuid.UUID, params ListParams) (*ListResult, error)
	ListForVendor(ctx context.Context, vendorID uuid.UUID, params ListParams) (*ListResult, error)
}

// ProposeInput is a customer's opening offer.
type ProposeInput struct {
	ThreadID        uuid.UUID
	ListingID       uuid.UUID
	UserID          uuid.UUID
	OfferedPrice    decimal.Decimal
	CustomizedPrice *decimal.Decimal
	Customization   json.RawMessage
	Message         *string
	Event           models.EventDetails
}

type CounterInput struct {
	OfferID      uuid.UUID
	VendorID     uuid.UUID
	CounterPrice decimal.Decimal
	Message      *string
}

type ReCounterInput struct {
	OfferID  uuid.UUID
	UserID   uuid.UUID
	NewPrice decimal.Decimal
	Message  *string
}

// ListParams configures offer listings.
type ListParams struct {
	Status string
	Limit  int
	Cursor string
}

type ServiceParams struct {
	Repository Repository
	Catalog    catalog.Store
	Leads      leads.Ledger
	Converter  bookings.Converter
	DB         txRunner
	Outbox     outbox.Emitter
	Notifier   notifications.Dispatcher
	Now        func() time.Time
	Logger     *logger.Logger
}

type service struct {
	repo      Repository
	catalog   catalog.Store
	leads     leads.Ledger
	converter bookings.Converter
	tx        txRunner
	outbox    outbox.Emitter
	notifier  notifications.Dispatcher
	now       func() time.Time
	logg      *logger.Logger
}

// NewService wires negotiation dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Repository == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "offers repository required")
	}
	if params.Catalog == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "catalog store required")
	}
	if params.Leads == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "lead ledger required")
	}
	if params.Converter == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "booking converter required")
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
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &service{
		repo:      params.Repository,
		catalog:   params.Catalog,
		leads:     params.Leads,
		converter: params.Converter,
		tx:        params.DB,
		outbox:    params.Outbox,
		notifier:  notifier,
		now:       now,
		logg:      params.Logger,
	}, nil
}

func (s *service) Propose(ctx context.Context, input ProposeInput) (*OfferDTO, error) {
	if input.ThreadID == uuid.Nil || input.ListingID == uuid.Nil || input.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "thread, listing and user are required")
	}
	if !input.OfferedPrice.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeBusinessRule, "offered price must be greater than zero")
	}

	var created *models.Offer
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		store := s.catalog.WithTx(tx)
		repo := s.repo.WithTx(tx)

		thread, err := store.LockThread(ctx, input.ThreadID)
		if err != nil {
			return err
		}
		if thread.UserID != input.UserID {
			return pkgerrors.New(pkgerrors.CodeBusinessRule, "chat thread does not belong to this user")
		}
		listing, err := store.GetListing(ctx, input.ListingID)
		if err != nil {
			return err
		}
		if !listing.IsActive {
			return pkgerrors.New(pkgerrors.CodeBusinessRule, "listing is not available")
		}
		if thread.VendorID != listing.VendorID {
			return pkgerrors.New(pkgerrors.CodeBusinessRule, "listing does not belong to the vendor in this thread")
		}
		vendor, err := store.GetVendor(ctx, listing.VendorID)
		if err != nil {
			return err
		}
		if !vendor.IsActive {
			return pkgerrors.New(pkgerrors.CodeBusinessRule, "vendor is not accepting offers")
		}

		basePrice := listing.Price
		if input.CustomizedPrice != nil && input.CustomizedPrice.IsPositive() {
			if input.CustomizedPrice.LessThan(listing.Price) {
				return pkgerrors.New(pkgerrors.CodeBusinessRule, "customized price cannot be below the listing price")
			}
			basePrice = *input.CustomizedPrice
		}
		if !input.OfferedPrice.LessThan(basePrice) {
			return pkgerrors.New(pkgerrors.CodeBusinessRule, "offered price must be less than the listing price").
				WithDetails(map[string]any{"base_price": basePrice.StringFixed(2)})
		}

		active, err := repo.HasActive(ctx, thread.ID, listing.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check active offers")
		}
		if active {
			return errActiveOfferExists
		}

		lead, err := s.leads.EnsureForOffer(ctx, tx, leads.OfferLeadInput{
			Thread:       thread,
			ListingID:    listing.ID,
			UserID:       input.UserID,
			VendorID:     listing.VendorID,
			OfferedPrice: input.OfferedPrice,
			Message:      input.Message,
			Event:        input.Event,
		})
		if err != nil {
			return err
		}

		customized := basePrice
		offer := &models.Offer{
			ID:              uuid.New(),
			ThreadID:        thread.ID,
			ListingID:       listing.ID,
			UserID:          input.UserID,
			VendorID:        listing.VendorID,
			OfferedPrice:    input.OfferedPrice,
			OriginalPrice:   listing.Price,
			CustomizedPrice: &customized,
			Customization:   input.Customization,
			Message:         input.Message,
			Status:          enums.OfferStatusPending,
			LeadID:          &lead.ID,
			EventDetails:    input.Event,
		}
		if err := repo.Create(ctx, offer); err != nil {
			if db.IsUniqueViolation(err, activeOfferIndex, "offers.thread_id") {
				return errActiveOfferExists
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create offer")
		}
		if err := s.emit(ctx, tx, offer, "", customerActor(offer.UserID)); err != nil {
			return err
		}
		created = offer
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.notifier.Notify(ctx, notifications.Notification{
		Kind:        enums.NotificationOfferReceived,
		RecipientID: created.VendorID,
		Role:        enums.ActorRoleVendor,
		Title:       "New offer received",
		Message:     "A customer offered " + created.OfferedPrice.StringFixed(2) + " for your listing.",
		OfferID:     &created.ID,
		Link:        offerLink(created),
	})
	dto := NewOfferDTO(*created)
	return &dto, nil
}

func (s *service) VendorCounter(ctx context.Context, input CounterInput) (*OfferDTO, error) {
	offer, err := s.mutate(ctx, input.OfferID, func(tx *gorm.DB, offer *models.Offer) (map[string]any, error) {
		if offer.VendorID != input.VendorID {
			return nil, errNotVendorOffer
		}
		if offer.Status != enums.OfferStatusPending {
			return nil, pkgerrors.New(pkgerrors.CodeBusinessRule, "only pending offers can be countered")
		}
		if !input.CounterPrice.GreaterThan(offer.OfferedPrice) {
			return nil, pkgerrors.New(pkgerrors.CodeBusinessRule, "counter price must be greater than the offered price")
		}
		if !input.CounterPrice.LessThan(offer.OriginalPrice) {
			return nil, pkgerrors.New(pkgerrors.CodeBusinessRule, "counter price must be less than the original price")
		}
		if err := s.leads.MarkOpen(ctx, tx, leadID(offer)); err != nil {
			return nil, err
		}
		counter := input.CounterPrice
		offer.Status = enums.OfferStatusCountered
		offer.CounterPrice = &counter
		offer.CounterMessage = input.Message
		return map[string]any{
			"status":          enums.OfferStatusCountered,
			"counter_price":   counter,
			"counter_message": input.Message,
		}, nil
	}, vendorActor(input.VendorID))
	if err != nil {
		return nil, err
	}

	s.notifier.Notify(ctx, notifications.Notification{
		Kind:        enums.NotificationOfferCountered,
		RecipientID: offer.UserID,
		Role:        enums.ActorRoleCustomer,
		Title:       "Vendor sent a counter offer",
		Message:     "The vendor countered with " + offer.CounterPrice.StringFixed(2) + ".",
		OfferID:     &offer.ID,
		Link:        offerLink(offer),
	})
	dto := NewOfferDTO(*offer)
	return &dto, nil
}

func (s *service) UserReCounter(ctx context.Context, input ReCounterInput) (*OfferDTO, error) {
	offer, err := s.mutate(ctx, input.OfferID, func(tx *gorm.DB, offer *models.Offer) (map[string]any, error) {
		if offer.UserID != input.UserID {
			return nil, errNotUserOffer
		}
		if offer.Status != enums.OfferStatusCountered || offer.CounterPrice == nil {
			return nil, pkgerrors.New(pkgerrors.CodeBusinessRule, "only countered offers can be countered back")
		}
		if !input.NewPrice.GreaterThan(offer.OfferedPrice) {
			return nil, pkgerrors.New(pkgerrors.CodeBusinessRule, "new price must be greater than your previous offer")
		}
		if !input.NewPrice.LessThan(*offer.CounterPrice) {
			return nil, pkgerrors.New(pkgerrors.CodeBusinessRule, "new price must be less than the vendor's counter price")
		}
		if err := s.leads.MarkNew(ctx, tx, leadID(offer), input.NewPrice); err != nil {
			return nil, err
		}
		updates := map[string]any{
			"status":          enums.OfferStatusPending,
			"offered_price":   input.NewPrice,
			"counter_price":   nil,
			"counter_message": nil,
		}
		if input.Message != nil {
			updates["message"] = *input.Message
			offer.Message = input.Message
		}
		offer.Status = enums.OfferStatusPending
		offer.OfferedPrice = input.NewPrice
		offer.CounterPrice = nil
		offer.CounterMessage = nil
		return updates, nil
	}, customerActor(input.UserID))
	if err != nil {
		return nil, err
	}

	s.notifier.Notify(ctx, notifications.Notification{
		Kind:        enums.NotificationOfferRecountered,
		RecipientID: offer.VendorID,
		Role:        enums.ActorRoleVendor,
		Title:       "Customer responded to your counter",
		Message:     "The customer now offers " + offer.OfferedPrice.StringFixed(2) + ".",
		OfferID:     &offer.ID,
		Link:        offerLink(offer),
	})
	dto := NewOfferDTO(*offer)
	return &dto, nil
}

func (s *service) VendorAccept(ctx context.Context, offerID, vendorID uuid.UUID) (*AcceptResult, error) {
	result, err := s.accept(ctx, offerID, vendorActor(vendorID), func(offer *models.Offer) error {
		if offer.VendorID != vendorID {
			return errNotVendorOffer
		}
		if offer.Status != enums.OfferStatusPending {
			return pkgerrors.New(pkgerrors.CodeBusinessRule, "only pending offers can be accepted")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.notifier.Notify(ctx, notifications.Notification{
		Kind:        enums.NotificationOfferAccepted,
		RecipientID: result.Offer.UserID,
		Role:        enums.ActorRoleCustomer,
		Title:       "Your offer was accepted",
		Message:     "Pay the token amount of " + result.Order.TokenAmount.StringFixed(2) + " to confirm booking " + result.Order.OrderNumber + ".",
		OfferID:     &result.Offer.ID,
		OrderID:     &result.Order.ID,
		Link:        "/orders/" + result.Order.ID.String(),
	})
	return result, nil
}

func (s *service) UserAcceptCounter(ctx context.Context, offerID, userID uuid.UUID) (*AcceptResult, error) {
	result, err := s.accept(ctx, offerID, customerActor(userID), func(offer *models.Offer) error {
		if offer.UserID != userID {
			return errNotUserOffer
		}
		if offer.Status != enums.OfferStatusCountered || offer.CounterPrice == nil {
			return pkgerrors.New(pkgerrors.CodeBusinessRule, "only countered offers can be accepted by the customer")
		}
		offer.OfferedPrice = *offer.CounterPrice
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.notifier.Notify(ctx, notifications.Notification{
		Kind:        enums.NotificationOfferAccepted,
		RecipientID: result.Offer.VendorID,
		Role:        enums.ActorRoleVendor,
		Title:       "Counter offer accepted",
		Message:     "The customer accepted your counter of " + result.Offer.OfferedPrice.StringFixed(2) + ". Order " + result.Order.OrderNumber + " awaits token payment.",
		OfferID:     &result.Offer.ID,
		OrderID:     &result.Order.ID,
		Link:        "/vendor/orders/" + result.Order.ID.String(),
	})
	return result, nil
}

func (s *service) VendorReject(ctx context.Context, offerID, vendorID uuid.UUID) (*OfferDTO, error) {
	offer, err := s.mutate(ctx, offerID, func(tx *gorm.DB, offer *models.Offer) (map[string]any, error) {
		if offer.VendorID != vendorID {
			return nil, errNotVendorOffer
		}
		if !offer.Status.IsActive() {
			return nil, pkgerrors.New(pkgerrors.CodeBusinessRule, "only pending or countered offers can be rejected")
		}
		if err := s.leads.MarkDeclined(ctx, tx, leadID(offer)); err != nil {
			return nil, err
		}
		now := s.now().UTC()
		offer.Status = enums.OfferStatusRejected
		offer.RejectedAt = &now
		return map[string]any{
			"status":      enums.OfferStatusRejected,
			"rejected_at": now,
		}, nil
	}, vendorActor(vendorID))
	if err != nil {
		return nil, err
	}

	s.notifier.Notify(ctx, notifications.Notification{
		Kind:        enums.NotificationOfferRejected,
		RecipientID: offer.UserID,
		Role:        enums.ActorRoleCustomer,
		Title:       "Offer declined",
		Message:     "The vendor declined your offer.",
		OfferID:     &offer.ID,
		Link:        offerLink(offer),
	})
	dto := NewOfferDTO(*offer)
	return &dto, nil
}

func (s *service) UserWithdraw(ctx context.Context, offerID, userID uuid.UUID) (*OfferDTO, error) {
	offer, err := s.mutate(ctx, offerID, func(tx *gorm.DB, offer *models.Offer) (map[string]any, error) {
		if offer.UserID != userID {
			return nil, errNotUserOffer
		}
		if !offer.Status.IsActive() {
			return nil, pkgerrors.New(pkgerrors.CodeBusinessRule, "only pending or countered offers can be withdrawn")
		}
		if err := s.leads.MarkWithdrawn(ctx, tx, leadID(offer)); err != nil {
			return nil, err
		}
		offer.Status = enums.OfferStatusWithdrawn
		return map[string]any{"status": enums.OfferStatusWithdrawn}, nil
	}, customerActor(userID))
	if err != nil {
		return nil, err
	}

	s.notifier.Notify(ctx, notifications.Notification{
		Kind:        enums.NotificationOfferWithdrawn,
		RecipientID: offer.VendorID,
		Role:        enums.ActorRoleVendor,
		Title:       "Offer withdrawn",
		Message:     "The customer withdrew their offer.",
		OfferID:     &offer.ID,
		Link:        offerLink(offer),
	})
	dto := NewOfferDTO(*offer)
	return &dto, nil
}

func (s *service) Get(ctx context.Context, actor auth.Actor, offerID uuid.UUID) (*OfferDTO, error) {
	offer, err := s.repo.FindByID(ctx, offerID)
	if err != nil {
		return nil, offerLoadError(err)
	}
	if !actor.IsParty(offer.UserID, offer.VendorID) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "offer not found")
	}
	dto := NewOfferDTO(*offer)
	return &dto, nil
}

func (s *service) ListByThread(ctx context.Context, actor auth.Actor, threadID uuid.UUID, params ListParams) (*ListResult, error) {
	thread, err := s.catalog.GetThread(ctx, threadID)
	if err != nil {
		return nil, err
	}
	if !actor.IsParty(thread.UserID, thread.VendorID) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "chat thread not found")
	}
	return s.list(ctx, listOffersParams{ThreadID: &thread.ID}, params)
}

func (s *service) ListMine(ctx context.Context, userID uuid.UUID, params ListParams) (*ListResult, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	return s.list(ctx, listOffersParams{UserID: &userID}, params)
}

func (s *service) ListForVendor(ctx context.Context, vendorID uuid.UUID, params ListParams) (*ListResult, error) {
	if vendorID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "vendor id required")
	}
	return s.list(ctx, listOffersParams{VendorID: &vendorID}, params)
}

func (s *service) list(ctx context.Context, query listOffersParams, params ListParams) (*ListResult, error) {
	query.Limit = params.Limit
	if params.Status != "" {
		status, err := enums.ParseOfferStatus(params.Status)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid offer status")
		}
		query.Status = &status
	}
	if params.Cursor != "" {
		cursor, err := pagination.ParseCursor(params.Cursor)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
		}
		query.Cursor = cursor
	}

	rows, next, err := s.repo.List(ctx, query)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list offers")
	}
	items := make([]OfferDTO, 0, len(rows))
	for _, row := range rows {
		items = append(items, NewOfferDTO(row))
	}
	cursor := ""
	if next != nil {
		cursor = pagination.EncodeCursor(*next)
	}
	return &ListResult{Items: items, Cursor: cursor}, nil
}

type mutation func(tx *gorm.DB, offer *models.Offer) (map[string]any, error)

// mutate locks the offer, applies fn and persists its updates together with
// the offer_state_changed event.
func (s *service) mutate(ctx context.Context, offerID uuid.UUID, fn mutation, actor *outbox.ActorRef) (*models.Offer, error) {
	var updated *models.Offer
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		offer, err := repo.LockByID(ctx, offerID)
		if err != nil {
			return offerLoadError(err)
		}
		from := offer.Status
		updates, err := fn(tx, offer)
		if err != nil {
			return err
		}
		if err := repo.Update(ctx, offer.ID, updates); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update offer")
		}
		if err := s.emit(ctx, tx, offer, from, actor); err != nil {
			return err
		}
		updated = offer
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// accept converts the offer into an order in the same transaction that
// marks it accepted. check validates ownership and state and may adjust the
// agreed price before conversion.
func (s *service) accept(ctx context.Context, offerID uuid.UUID, actor *outbox.ActorRef, check func(offer *models.Offer) error) (*AcceptResult, error) {
	var result *AcceptResult
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		store := s.catalog.WithTx(tx)

		offer, err := repo.LockByID(ctx, offerID)
		if err != nil {
			return offerLoadError(err)
		}
		from := offer.Status
		if err := check(offer); err != nil {
			return err
		}

		listing, err := store.GetListing(ctx, offer.ListingID)
		if err != nil {
			return err
		}
		customer, err := store.GetUserProfile(ctx, offer.UserID)
		if err != nil {
			return err
		}
		order, err := s.converter.ConvertAcceptedOffer(ctx, tx, bookings.ConvertInput{
			Offer:    offer,
			Listing:  listing,
			Customer: customer,
			Actor:    actor,
		})
		if err != nil {
			return err
		}

		now := s.now().UTC()
		offer.Status = enums.OfferStatusAccepted
		offer.AcceptedAt = &now
		offer.OrderID = &order.ID
		err = repo.Update(ctx, offer.ID, map[string]any{
			"status":        enums.OfferStatusAccepted,
			"offered_price": offer.OfferedPrice,
			"accepted_at":   now,
			"order_id":      order.ID,
		})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "accept offer")
		}
		if err := s.leads.LinkOrder(ctx, tx, leadID(offer), order.ID); err != nil {
			return err
		}
		if err := s.emit(ctx, tx, offer, from, actor); err != nil {
			return err
		}
		result = &AcceptResult{Offer: NewOfferDTO(*offer), Order: bookings.NewOrderDTO(*order)}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *service) emit(ctx context.Context, tx *gorm.DB, offer *models.Offer, from enums.OfferStatus, actor *outbox.ActorRef) error {
	err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventOfferStateChanged,
		AggregateType: enums.AggregateOffer,
		AggregateID:   offer.ID,
		Actor:         actor,
		OccurredAt:    s.now().UTC(),
		Data: payloads.OfferStateChangedEvent{
			OfferID:      offer.ID,
			ThreadID:     offer.ThreadID,
			ListingID:    offer.ListingID,
			UserID:       offer.UserID,
			VendorID:     offer.VendorID,
			FromStatus:   from,
			ToStatus:     offer.Status,
			OfferedPrice: offer.OfferedPrice,
			CounterPrice: offer.CounterPrice,
			OrderID:      offer.OrderID,
		},
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit offer state changed")
	}
	return nil
}

var (
	errNotVendorOffer = pkgerrors.New(pkgerrors.CodeBusinessRule, "offer does not belong to this vendor")
	errNotUserOffer   = pkgerrors.New(pkgerrors.CodeBusinessRule, "offer does not belong to this user")
)

func offerLoadError(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "offer not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load offer")
}

func leadID(offer *models.Offer) uuid.UUID {
	if offer.LeadID == nil {
		return uuid.Nil
	}
	return *offer.LeadID
}

func offerLink(offer *models.Offer) string {
	return "/threads/" + offer.ThreadID.String() + "/offers/" + offer.ID.String()
}

func customerActor(userID uuid.UUID) *outbox.ActorRef {
	return &outbox.ActorRef{UserID: userID, Role: enums.ActorRoleCustomer}
}

func vendorActor(vendorID uuid.UUID) *outbox.ActorRef {
	id := vendorID
	return &outbox.ActorRef{VendorID: &id, Role: enums.ActorRoleVendor}
}
