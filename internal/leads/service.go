// Package leads keeps the vendor's lead record in step with offer, order and
// payment changes. Leads mirror booking state; money is never read from them.
package leads

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/eventhub/eventhub-backend/internal/catalog"
	"github.com/eventhub/eventhub-backend/pkg/db/models"
	"github.com/eventhub/eventhub-backend/pkg/enums"
	pkgerrors "github.com/eventhub/eventhub-backend/pkg/errors"
	"github.com/eventhub/eventhub-backend/pkg/logger"
	"github.com/eventhub/eventhub-backend/pkg/pagination"
)

const defaultLeadName = "Customer"

// Ledger is the transaction-scoped surface used by the negotiation, payment
// and cancellation services. A uuid.Nil lead id is a no-op.
type Ledger interface {
	EnsureForOffer(ctx context.Context, tx *gorm.DB, input OfferLeadInput) (*models.Lead, error)
	MarkOpen(ctx context.Context, tx *gorm.DB, leadID uuid.UUID) error
	MarkNew(ctx context.Context, tx *gorm.DB, leadID uuid.UUID, budget decimal.Decimal) error
	MarkDeclined(ctx context.Context, tx *gorm.DB, leadID uuid.UUID) error
	MarkWithdrawn(ctx context.Context, tx *gorm.DB, leadID uuid.UUID) error
	LinkOrder(ctx context.Context, tx *gorm.DB, leadID, orderID uuid.UUID) error
	RecordTokenPayment(ctx context.Context, tx *gorm.DB, order *models.Order, amount decimal.Decimal) (*models.Lead, error)
	MarkDeclinedForOrder(ctx context.Context, tx *gorm.DB, orderID uuid.UUID) error
	MarkConvertedForOrder(ctx context.Context, tx *gorm.DB, orderID uuid.UUID) error
}

// Service adds the vendor-facing reads to the ledger.
type Service interface {
	Ledger
	ListForVendor(ctx context.Context, params ListParams) (*ListResult, error)
	Get(ctx context.Context, vendorID, leadID uuid.UUID) (*models.Lead, error)
}

// OfferLeadInput describes the offer a lead is being ensured for.
type OfferLeadInput struct {
	Thread       *models.ChatThread
	ListingID    uuid.UUID
	UserID       uuid.UUID
	VendorID     uuid.UUID
	OfferedPrice decimal.Decimal
	Message      *string
	Event        models.EventDetails
}

// ListParams configures the vendor lead listing.
type ListParams struct {
	VendorID uuid.UUID
	Status   string
	Limit    int
	Cursor   string
}

// ListResult wraps returned leads and the cursor for the next page.
type ListResult struct {
	Items  []LeadDTO `json:"items"`
	Cursor string    `json:"cursor"`
}

type ServiceParams struct {
	Repository Repository
	Catalog    catalog.Store
	Logger     *logger.Logger
}

type service struct {
	repo    Repository
	catalog catalog.Store
	logg    *logger.Logger
}

// NewService wires lead dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Repository == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "leads repository required")
	}
	if params.Catalog == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "catalog store required")
	}
	return &service{repo: params.Repository, catalog: params.Catalog, logg: params.Logger}, nil
}

// EnsureForOffer reuses the thread's lead or creates one with source offer
// and links it to the thread. A reused lead is reset to new only when its
// previous negotiation ended.
func (s *service) EnsureForOffer(ctx context.Context, tx *gorm.DB, input OfferLeadInput) (*models.Lead, error) {
	if input.Thread == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "thread required")
	}
	repo := s.repo.WithTx(tx)
	budget := input.OfferedPrice.StringFixed(2)

	if input.Thread.LeadID != nil {
		lead, err := repo.FindByID(ctx, *input.Thread.LeadID)
		switch {
		case err == nil:
			updates := map[string]any{
				"budget":     budget,
				"listing_id": input.ListingID,
			}
			mergeEvent(updates, input.Event)
			if input.Message != nil {
				updates["message"] = *input.Message
			}
			if lead.Status.ReopensOnNewOffer() {
				updates["status"] = enums.LeadStatusNew
			}
			if _, err := repo.Update(ctx, lead.ID, updates); err != nil {
				return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update lead for offer")
			}
			return repo.FindByID(ctx, lead.ID)
		case !errors.Is(err, gorm.ErrRecordNotFound):
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load thread lead")
		}
		s.warn(ctx, "thread points at a missing lead, creating a new one", map[string]any{"lead_id": input.Thread.LeadID.String()})
	}

	store := s.catalog.WithTx(tx)
	lead := &models.Lead{
		ID:           uuid.New(),
		VendorID:     input.VendorID,
		UserID:       input.UserID,
		ListingID:    &input.ListingID,
		ThreadID:     &input.Thread.ID,
		Name:         defaultLeadName,
		EventDetails: input.Event,
		Budget:       &budget,
		Message:      input.Message,
		Status:       enums.LeadStatusNew,
		Source:       enums.LeadSourceOffer,
	}
	profile, err := store.GetUserProfile(ctx, input.UserID)
	switch {
	case err == nil:
		if profile.FullName != nil && *profile.FullName != "" {
			lead.Name = *profile.FullName
		}
		lead.Email = profile.Email
		lead.Phone = profile.Phone
	case !pkgerrors.IsCode(err, pkgerrors.CodeNotFound):
		return nil, err
	}

	if err := repo.Create(ctx, lead); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create lead")
	}
	if err := store.LinkLead(ctx, input.Thread.ID, lead.ID); err != nil {
		return nil, err
	}
	input.Thread.LeadID = &lead.ID
	return lead, nil
}

func (s *service) MarkOpen(ctx context.Context, tx *gorm.DB, leadID uuid.UUID) error {
	return s.update(ctx, tx, leadID, map[string]any{"status": enums.LeadStatusOpen}, "mark lead open")
}

func (s *service) MarkNew(ctx context.Context, tx *gorm.DB, leadID uuid.UUID, budget decimal.Decimal) error {
	return s.update(ctx, tx, leadID, map[string]any{
		"status": enums.LeadStatusNew,
		"budget": budget.StringFixed(2),
	}, "mark lead new")
}

func (s *service) MarkDeclined(ctx context.Context, tx *gorm.DB, leadID uuid.UUID) error {
	return s.update(ctx, tx, leadID, map[string]any{"status": enums.LeadStatusDeclined}, "mark lead declined")
}

func (s *service) MarkWithdrawn(ctx context.Context, tx *gorm.DB, leadID uuid.UUID) error {
	return s.update(ctx, tx, leadID, map[string]any{"status": enums.LeadStatusWithdrawn}, "mark lead withdrawn")
}

// LinkOrder records the order an accepted offer produced.
func (s *service) LinkOrder(ctx context.Context, tx *gorm.DB, leadID, orderID uuid.UUID) error {
	return s.update(ctx, tx, leadID, map[string]any{
		"status":   enums.LeadStatusOpen,
		"order_id": orderID,
		"source":   enums.LeadSourceOffer,
	}, "link lead order")
}

// RecordTokenPayment stores the paid token on the order's lead, converting it
// when its source confirms on payment. An order without a lead gets one.
func (s *service) RecordTokenPayment(ctx context.Context, tx *gorm.DB, order *models.Order, amount decimal.Decimal) (*models.Lead, error) {
	if order == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order required")
	}
	repo := s.repo.WithTx(tx)

	lead, err := repo.FindByOrder(ctx, order.ID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order lead")
	}
	if lead == nil {
		lead = fallbackLead(order, amount)
		s.warn(ctx, "order has no lead, creating fallback", map[string]any{"order_id": order.ID.String()})
		if err := repo.Create(ctx, lead); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create fallback lead")
		}
		return lead, nil
	}

	updates := map[string]any{"token_amount": amount}
	if lead.Source.ConfirmsOnTokenPayment() {
		updates["status"] = enums.LeadStatusConverted
		lead.Status = enums.LeadStatusConverted
	}
	if _, err := repo.Update(ctx, lead.ID, updates); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record lead token")
	}
	lead.TokenAmount = &amount
	return lead, nil
}

func (s *service) MarkDeclinedForOrder(ctx context.Context, tx *gorm.DB, orderID uuid.UUID) error {
	if orderID == uuid.Nil {
		return nil
	}
	_, err := s.repo.WithTx(tx).UpdateByOrder(ctx, orderID, map[string]any{"status": enums.LeadStatusDeclined})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decline order lead")
	}
	return nil
}

// MarkConvertedForOrder closes the lead of an order the vendor confirmed by hand.
func (s *service) MarkConvertedForOrder(ctx context.Context, tx *gorm.DB, orderID uuid.UUID) error {
	if orderID == uuid.Nil {
		return nil
	}
	_, err := s.repo.WithTx(tx).UpdateByOrder(ctx, orderID, map[string]any{"status": enums.LeadStatusConverted})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "convert order lead")
	}
	return nil
}

func (s *service) ListForVendor(ctx context.Context, params ListParams) (*ListResult, error) {
	if params.VendorID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "vendor id required")
	}
	query := listLeadsParams{VendorID: params.VendorID, Limit: params.Limit}
	if params.Status != "" {
		status, err := enums.ParseLeadStatus(params.Status)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid lead status")
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

	rows, next, err := s.repo.ListForVendor(ctx, query)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list leads")
	}
	cursor := ""
	if next != nil {
		cursor = pagination.EncodeCursor(*next)
	}
	items := make([]LeadDTO, 0, len(rows))
	for _, row := range rows {
		items = append(items, NewLeadDTO(row))
	}
	return &ListResult{Items: items, Cursor: cursor}, nil
}

// Get returns the lead only to the vendor that owns it.
func (s *service) Get(ctx context.Context, vendorID, leadID uuid.UUID) (*models.Lead, error) {
	lead, err := s.repo.FindByID(ctx, leadID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "lead not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load lead")
	}
	if lead.VendorID != vendorID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "lead not found")
	}
	return lead, nil
}

func (s *service) update(ctx context.Context, tx *gorm.DB, leadID uuid.UUID, updates map[string]any, op string) error {
	if leadID == uuid.Nil {
		return nil
	}
	rows, err := s.repo.WithTx(tx).Update(ctx, leadID, updates)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, op)
	}
	if rows == 0 {
		s.warn(ctx, "lead not found for update", map[string]any{"lead_id": leadID.String(), "op": op})
	}
	return nil
}

func (s *service) warn(ctx context.Context, msg string, fields map[string]any) {
	if s.logg == nil {
		return
	}
	s.logg.Warn(s.logg.WithFields(ctx, fields), msg)
}

func fallbackLead(order *models.Order, amount decimal.Decimal) *models.Lead {
	name := defaultLeadName
	if order.CustomerName != nil && *order.CustomerName != "" {
		name = *order.CustomerName
	}
	budget := order.TotalAmount.StringFixed(2)
	listingID := order.ListingID
	orderID := order.ID
	return &models.Lead{
		ID:           uuid.New(),
		VendorID:     order.VendorID,
		UserID:       order.UserID,
		ListingID:    &listingID,
		Name:         name,
		Email:        order.CustomerEmail,
		Phone:        order.CustomerPhone,
		EventDetails: order.EventDetails,
		Budget:       &budget,
		Status:       enums.LeadStatusConverted,
		Source:       enums.LeadSourceOffer,
		OrderID:      &orderID,
		TokenAmount:  &amount,
	}
}

func mergeEvent(updates map[string]any, event models.EventDetails) {
	if event.EventType != nil {
		updates["event_type"] = *event.EventType
	}
	if event.EventDate != nil {
		updates["event_date"] = *event.EventDate
	}
	if event.EventTime != nil {
		updates["event_time"] = *event.EventTime
	}
	if event.VenueAddress != nil {
		updates["venue_address"] = *event.VenueAddress
	}
	if event.GuestCount != nil {
		updates["guest_count"] = *event.GuestCount
	}
}
