package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/eventhub/eventhub-backend/pkg/enums"
)

// Lead is the vendor's CRM record for a negotiation. It mirrors offer and
// order state and is never the source of truth for money.
type Lead struct {
	ID        uuid.UUID  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	VendorID  uuid.UUID  `gorm:"column:vendor_id;type:uuid;not null"`
	UserID    uuid.UUID  `gorm:"column:user_id;type:uuid;not null"`
	ListingID *uuid.UUID `gorm:"column:listing_id;type:uuid"`
	ThreadID  *uuid.UUID `gorm:"column:thread_id;type:uuid"`
	Name      string     `gorm:"column:name;not null"`
	Email     *string    `gorm:"column:email"`
	Phone     *string    `gorm:"column:phone"`

	EventDetails `gorm:"embedded"`

	Budget      *string          `gorm:"column:budget"`
	Message     *string          `gorm:"column:message"`
	Status      enums.LeadStatus `gorm:"column:status;type:text;not null;default:'new'"`
	Source      enums.LeadSource `gorm:"column:source;type:text;not null;default:'inquiry'"`
	OrderID     *uuid.UUID       `gorm:"column:order_id;type:uuid"`
	TokenAmount *decimal.Decimal `gorm:"column:token_amount;type:numeric(12,2)"`
	CreatedAt   time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}
