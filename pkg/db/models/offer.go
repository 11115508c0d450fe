package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/eventhub/eventhub-backend/pkg/enums"
)

// Offer is a price proposal made by a customer on a listing inside a chat thread.
type Offer struct {
	ID              uuid.UUID         `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ThreadID        uuid.UUID         `gorm:"column:thread_id;type:uuid;not null"`
	ListingID       uuid.UUID         `gorm:"column:listing_id;type:uuid;not null"`
	UserID          uuid.UUID         `gorm:"column:user_id;type:uuid;not null"`
	VendorID        uuid.UUID         `gorm:"column:vendor_id;type:uuid;not null"`
	OfferedPrice    decimal.Decimal   `gorm:"column:offered_price;type:numeric(12,2);not null"`
	OriginalPrice   decimal.Decimal   `gorm:"column:original_price;type:numeric(12,2);not null"`
	CustomizedPrice *decimal.Decimal  `gorm:"column:customized_price;type:numeric(12,2)"`
	Customization   json.RawMessage   `gorm:"column:customization;type:jsonb"`
	Message         *string           `gorm:"column:message"`
	CounterPrice    *decimal.Decimal  `gorm:"column:counter_price;type:numeric(12,2)"`
	CounterMessage  *string           `gorm:"column:counter_message"`
	Status          enums.OfferStatus `gorm:"column:status;type:text;not null;default:'pending'"`
	OrderID         *uuid.UUID        `gorm:"column:order_id;type:uuid"`
	LeadID          *uuid.UUID        `gorm:"column:lead_id;type:uuid"`

	EventDetails `gorm:"embedded"`

	AcceptedAt *time.Time `gorm:"column:accepted_at"`
	RejectedAt *time.Time `gorm:"column:rejected_at"`
	CreatedAt  time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

// BasePrice is the ceiling an offer is negotiated against: the customized price
// when one was quoted, otherwise the listing price.
func (o Offer) BasePrice() decimal.Decimal {
	if o.CustomizedPrice != nil && o.CustomizedPrice.IsPositive() {
		return *o.CustomizedPrice
	}
	return o.OriginalPrice
}
