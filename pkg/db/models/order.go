package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/eventhub/eventhub-backend/pkg/enums"
)

// Order is the financial commitment created when an offer is accepted.
type Order struct {
	ID          uuid.UUID      `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderNumber string         `gorm:"column:order_number;not null"`
	UserID      uuid.UUID      `gorm:"column:user_id;type:uuid;not null"`
	VendorID    uuid.UUID      `gorm:"column:vendor_id;type:uuid;not null"`
	ListingID   uuid.UUID      `gorm:"column:listing_id;type:uuid;not null"`
	OfferID     *uuid.UUID     `gorm:"column:offer_id;type:uuid"`
	ItemType    enums.ItemType `gorm:"column:item_type;type:text;not null"`

	EventDetails `gorm:"embedded"`

	BaseAmount           decimal.Decimal          `gorm:"column:base_amount;type:numeric(12,2);not null"`
	AddOnsAmount         decimal.Decimal          `gorm:"column:add_ons_amount;type:numeric(12,2);not null;default:0"`
	CustomizationsAmount decimal.Decimal          `gorm:"column:customizations_amount;type:numeric(12,2);not null;default:0"`
	DiscountAmount       decimal.Decimal          `gorm:"column:discount_amount;type:numeric(12,2);not null;default:0"`
	PlatformFee          decimal.Decimal          `gorm:"column:platform_fee;type:numeric(12,2);not null;default:0"`
	TaxAmount            decimal.Decimal          `gorm:"column:tax_amount;type:numeric(12,2);not null;default:0"`
	TotalAmount          decimal.Decimal          `gorm:"column:total_amount;type:numeric(12,2);not null"`
	TokenAmount          decimal.Decimal          `gorm:"column:token_amount;type:numeric(12,2);not null;default:0"`
	TokenPaid            decimal.Decimal          `gorm:"column:token_paid;type:numeric(12,2);not null;default:0"`
	BalanceAmount        decimal.Decimal          `gorm:"column:balance_amount;type:numeric(12,2);not null"`
	PaymentStatus        enums.OrderPaymentStatus `gorm:"column:payment_status;type:text;not null;default:'pending'"`
	Status               enums.OrderStatus        `gorm:"column:status;type:text;not null;default:'pending'"`
	AwaitingTokenPayment bool                     `gorm:"column:awaiting_token_payment;not null;default:false"`
	CustomerName         *string                  `gorm:"column:customer_name"`
	CustomerEmail        *string                  `gorm:"column:customer_email"`
	CustomerPhone        *string                  `gorm:"column:customer_phone"`
	Customizations       json.RawMessage          `gorm:"column:customizations;type:jsonb"`
	Notes                *string                  `gorm:"column:notes"`
	ConfirmedAt          *time.Time               `gorm:"column:confirmed_at"`
	CompletedAt          *time.Time               `gorm:"column:completed_at"`
	CancelledAt          *time.Time               `gorm:"column:cancelled_at"`
	CreatedAt            time.Time                `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt            time.Time                `gorm:"column:updated_at;autoUpdateTime"`
}
