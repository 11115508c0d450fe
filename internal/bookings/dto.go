package bookings

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/eventhub/eventhub-backend/pkg/db/models"
	"github.com/eventhub/eventhub-backend/pkg/enums"
)

// OrderDTO is the API projection of an order.
type OrderDTO struct {
	ID                   uuid.UUID                `json:"id"`
	OrderNumber          string                   `json:"order_number"`
	UserID               uuid.UUID                `json:"user_id"`
	VendorID             uuid.UUID                `json:"vendor_id"`
	ListingID            uuid.UUID                `json:"listing_id"`
	OfferID              *uuid.UUID               `json:"offer_id,omitempty"`
	ItemType             enums.ItemType           `json:"item_type"`
	EventType            *string                  `json:"event_type,omitempty"`
	EventDate            *string                  `json:"event_date,omitempty"`
	EventTime            *string                  `json:"event_time,omitempty"`
	VenueAddress         *string                  `json:"venue_address,omitempty"`
	GuestCount           *int                     `json:"guest_count,omitempty"`
	BaseAmount           decimal.Decimal          `json:"base_amount"`
	AddOnsAmount         decimal.Decimal          `json:"add_ons_amount"`
	CustomizationsAmount decimal.Decimal          `json:"customizations_amount"`
	DiscountAmount       decimal.Decimal          `json:"discount_amount"`
	PlatformFee          decimal.Decimal          `json:"platform_fee"`
	TaxAmount            decimal.Decimal          `json:"tax_amount"`
	TotalAmount          decimal.Decimal          `json:"total_amount"`
	TokenAmount          decimal.Decimal          `json:"token_amount"`
	TokenPaid            decimal.Decimal          `json:"token_paid"`
	BalanceAmount        decimal.Decimal          `json:"balance_amount"`
	PaymentStatus        enums.OrderPaymentStatus `json:"payment_status"`
	Status               enums.OrderStatus        `json:"status"`
	AwaitingTokenPayment bool                     `json:"awaiting_token_payment"`
	CustomerName         *string                  `json:"customer_name,omitempty"`
	CustomerEmail        *string                  `json:"customer_email,omitempty"`
	CustomerPhone        *string                  `json:"customer_phone,omitempty"`
	Customizations       json.RawMessage          `json:"customizations,omitempty"`
	Notes                *string                  `json:"notes,omitempty"`
	ConfirmedAt          *time.Time               `json:"confirmed_at,omitempty"`
	CompletedAt          *time.Time               `json:"completed_at,omitempty"`
	CancelledAt          *time.Time               `json:"cancelled_at,omitempty"`
	CreatedAt            time.Time                `json:"created_at"`
	UpdatedAt            time.Time                `json:"updated_at"`
}

// TimelineDTO is one order milestone.
type TimelineDTO struct {
	ID          uuid.UUID            `json:"id"`
	Stage       string               `json:"stage"`
	Status      enums.TimelineStatus `json:"status"`
	Notes       *string              `json:"notes,omitempty"`
	CompletedAt *time.Time           `json:"completed_at,omitempty"`
	CreatedAt   time.Time            `json:"created_at"`
}

// OrderDetail is an order plus its timeline.
type OrderDetail struct {
	Order    OrderDTO      `json:"order"`
	Timeline []TimelineDTO `json:"timeline"`
}

func NewOrderDTO(order models.Order) OrderDTO {
	return OrderDTO{
		ID:                   order.ID,
		OrderNumber:          order.OrderNumber,
		UserID:               order.UserID,
		VendorID:             order.VendorID,
		ListingID:            order.ListingID,
		OfferID:              order.OfferID,
		ItemType:             order.ItemType,
		EventType:            order.EventType,
		EventDate:            FormatDate(order.EventDate),
		EventTime:            order.EventTime,
		VenueAddress:         order.VenueAddress,
		GuestCount:           order.GuestCount,
		BaseAmount:           order.BaseAmount,
		AddOnsAmount:         order.AddOnsAmount,
		CustomizationsAmount: order.CustomizationsAmount,
		DiscountAmount:       order.DiscountAmount,
		PlatformFee:          order.PlatformFee,
		TaxAmount:            order.TaxAmount,
		TotalAmount:          order.TotalAmount,
		TokenAmount:          order.TokenAmount,
		TokenPaid:            order.TokenPaid,
		BalanceAmount:        order.BalanceAmount,
		PaymentStatus:        order.PaymentStatus,
		Status:               order.Status,
		AwaitingTokenPayment: order.AwaitingTokenPayment,
		CustomerName:         order.CustomerName,
		CustomerEmail:        order.CustomerEmail,
		CustomerPhone:        order.CustomerPhone,
		Customizations:       order.Customizations,
		Notes:                order.Notes,
		ConfirmedAt:          order.ConfirmedAt,
		CompletedAt:          order.CompletedAt,
		CancelledAt:          order.CancelledAt,
		CreatedAt:            order.CreatedAt,
		UpdatedAt:            order.UpdatedAt,
	}
}

func newTimelineDTOs(rows []models.OrderTimeline) []TimelineDTO {
	out := make([]TimelineDTO, 0, len(rows))
	for _, row := range rows {
		out = append(out, TimelineDTO{
			ID:          row.ID,
			Stage:       row.Stage,
			Status:      row.Status,
			Notes:       row.Notes,
			CompletedAt: row.CompletedAt,
			CreatedAt:   row.CreatedAt,
		})
	}
	return out
}

// FormatDate renders an event date as YYYY-MM-DD.
func FormatDate(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format(time.DateOnly)
	return &s
}
