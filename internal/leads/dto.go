package leads

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/eventhub/eventhub-backend/pkg/db/models"
	"github.com/eventhub/eventhub-backend/pkg/enums"
)

// LeadDTO is the vendor-facing projection of a lead.
type LeadDTO struct {
	ID           uuid.UUID        `json:"id"`
	UserID       uuid.UUID        `json:"user_id"`
	ListingID    *uuid.UUID       `json:"listing_id,omitempty"`
	ThreadID     *uuid.UUID       `json:"thread_id,omitempty"`
	Name         string           `json:"name"`
	Email        *string          `json:"email,omitempty"`
	Phone        *string          `json:"phone,omitempty"`
	EventType    *string          `json:"event_type,omitempty"`
	EventDate    *string          `json:"event_date,omitempty"`
	EventTime    *string          `json:"event_time,omitempty"`
	VenueAddress *string          `json:"venue_address,omitempty"`
	GuestCount   *int             `json:"guest_count,omitempty"`
	Budget       *string          `json:"budget,omitempty"`
	Message      *string          `json:"message,omitempty"`
	Status       enums.LeadStatus `json:"status"`
	Source       enums.LeadSource `json:"source"`
	OrderID      *uuid.UUID       `json:"order_id,omitempty"`
	TokenAmount  *decimal.Decimal `json:"token_amount,omitempty"`
	CreatedAt    time.Time        `json:"created_at"`
	UpdatedAt    time.Time        `json:"updated_at"`
}

func NewLeadDTO(lead models.Lead) LeadDTO {
	var eventDate *string
	if lead.EventDate != nil {
		s := lead.EventDate.Format(time.DateOnly)
		eventDate = &s
	}
	return LeadDTO{
		ID:           lead.ID,
		UserID:       lead.UserID,
		ListingID:    lead.ListingID,
		ThreadID:     lead.ThreadID,
		Name:         lead.Name,
		Email:        lead.Email,
		Phone:        lead.Phone,
		EventType:    lead.EventType,
		EventDate:    eventDate,
		EventTime:    lead.EventTime,
		VenueAddress: lead.VenueAddress,
		GuestCount:   lead.GuestCount,
		Budget:       lead.Budget,
		Message:      lead.Message,
		Status:       lead.Status,
		Source:       lead.Source,
		OrderID:      lead.OrderID,
		TokenAmount:  lead.TokenAmount,
		CreatedAt:    lead.CreatedAt,
		UpdatedAt:    lead.UpdatedAt,
	}
}
