package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/eventhub/eventhub-backend/pkg/enums"
)

// The tables below are owned by the catalog, chat and profile services. The
// booking engine reads them and only ever writes the lead/order links on
// ChatThread.

// Listing is a vendor's package or item as exposed by the catalog.
type Listing struct {
	ID          uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	VendorID    uuid.UUID       `gorm:"column:vendor_id;type:uuid;not null"`
	Name        string          `gorm:"column:name;not null"`
	ListingType enums.ItemType  `gorm:"column:listing_type;type:text;not null"`
	Price       decimal.Decimal `gorm:"column:price;type:numeric(12,2);not null"`
	IsActive    bool            `gorm:"column:is_active;not null"`
}

type Vendor struct {
	ID           uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	UserID       uuid.UUID `gorm:"column:user_id;type:uuid;not null"`
	BusinessName string    `gorm:"column:business_name;not null"`
	Email        *string   `gorm:"column:email"`
	Phone        *string   `gorm:"column:phone"`
	IsVerified   bool      `gorm:"column:is_verified;not null"`
	IsActive     bool      `gorm:"column:is_active;not null"`
}

type UserProfile struct {
	ID       uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	FullName *string   `gorm:"column:full_name"`
	Email    *string   `gorm:"column:email"`
	Phone    *string   `gorm:"column:phone"`
}

// ChatThread links a customer and a vendor conversation to its lead and order.
type ChatThread struct {
	ID        uuid.UUID  `gorm:"column:id;type:uuid;primaryKey"`
	UserID    uuid.UUID  `gorm:"column:user_id;type:uuid;not null"`
	VendorID  uuid.UUID  `gorm:"column:vendor_id;type:uuid;not null"`
	ListingID *uuid.UUID `gorm:"column:listing_id;type:uuid"`
	LeadID    *uuid.UUID `gorm:"column:lead_id;type:uuid"`
	OrderID   *uuid.UUID `gorm:"column:order_id;type:uuid"`
	CreatedAt time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}
