package offers

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/eventhub/eventhub-backend/internal/bookings"
	"github.com/eventhub/eventhub-backend/pkg/db/models"
	"github.com/eventhub/eventhub-backend/pkg/enums"
)

// OfferDTO is the API projection of an offer.
type OfferDTO struct {
	ID              uuid.UUID         `json:"id"`
	ThreadID        uuid.UUID         `json:"thread_id"`
	ListingID       uuid.UUID         `json:"listing_id"`
	UserID          uuid.UUID         `json:"user_id"`
	VendorID        uuid.UUID         `json:"vendor_id"`
	OfferedPrice    decimal.Decimal   `json:"offered_price"`
	OriginalPrice   decimal.Decimal   `json:"original_price"`
	CustomizedPrice *decimal.Decimal  `json:"customized_price,omitempty"`
	Customization   json.RawMessage   `json:"customization,omitempty"`
	Message         *string           `json:"message,omitempty"`
	CounterPrice    *decimal.Decimal  `json:"counter_price,omitempty"`
	CounterMessage  *string           `json:"counter_message,omitempty"`
	Status          enums.OfferStatus `json:"status"`
	OrderID         *uuid.UUID        `json:"order_id,omitempty"`
	LeadID          *uuid.UUID        `json:"lead_id,omitempty"`
	EventType       *string           `json:"event_type,omitempty"`
	EventDate       *string           `json:"event_date,omitempty"`
	EventTime       *string           `json:"event_time,omitempty"`
	VenueAddress    *string           `json:"venue_address,omitempty"`
	GuestCount      *int              `json:"guest_count,omitempty"`
	AcceptedAt      *time.Time        `json:"accepted_at,omitempty"`
	RejectedAt      *time.Time        `json:"rejected_at,omitempty"`
	CreatedAt       time.Time         `json:"created_at"`
	UpdatedAt       time.Time         `json:"updated_at"`
}

// AcceptResult is returned by both accept paths.
type AcceptResult struct {
	Offer OfferDTO          `json:"offer"`
	Order bookings.OrderDTO `json:"order"`
}

// ListResult wraps returned offers and the cursor for the next page.
type ListResult struct {
	Items  []OfferDTO `json:"items"`
	Cursor string     `json:"cursor"`
}

func NewOfferDTO(offer models.Offer) OfferDTO {
	return OfferDTO{
		ID:              offer.ID,
		ThreadID:        offer.ThreadID,
		ListingID:       offer.ListingID,
		UserID:          offer.UserID,
		VendorID:        offer.VendorID,
		OfferedPrice:    offer.OfferedPrice,
		OriginalPrice:   offer.OriginalPrice,
		CustomizedPrice: offer.CustomizedPrice,
		Customization:   offer.Customization,
		Message:         offer.Message,
		CounterPrice:    offer.CounterPrice,
		CounterMessage:  offer.CounterMessage,
		Status:          offer.Status,
		OrderID:         offer.OrderID,
		LeadID:          offer.LeadID,
		EventType:       offer.EventType,
		EventDate:       bookings.FormatDate(offer.EventDate),
		EventTime:       offer.EventTime,
		VenueAddress:    offer.VenueAddress,
		GuestCount:      offer.GuestCount,
		AcceptedAt:      offer.AcceptedAt,
		RejectedAt:      offer.RejectedAt,
		CreatedAt:       offer.CreatedAt,
		UpdatedAt:       offer.UpdatedAt,
	}
}
