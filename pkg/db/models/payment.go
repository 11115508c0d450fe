package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/eventhub/eventhub-backend/pkg/enums"
)

// Payment is one gateway transaction against an order.
type Payment struct {
	ID              uuid.UUID            `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID         uuid.UUID            `gorm:"column:order_id;type:uuid;not null"`
	UserID          uuid.UUID            `gorm:"column:user_id;type:uuid;not null"`
	VendorID        uuid.UUID            `gorm:"column:vendor_id;type:uuid;not null"`
	Amount          decimal.Decimal      `gorm:"column:amount;type:numeric(12,2);not null"`
	PaymentType     enums.PaymentType    `gorm:"column:payment_type;type:text;not null"`
	PaymentMethod   *enums.PaymentMethod `gorm:"column:payment_method;type:text"`
	TransactionID   *string              `gorm:"column:transaction_id"`
	Status          enums.PaymentStatus  `gorm:"column:status;type:text;not null;default:'pending'"`
	GatewayResponse json.RawMessage      `gorm:"column:gateway_response;type:jsonb"`
	FailureReason   *string              `gorm:"column:failure_reason"`
	CompletedAt     *time.Time           `gorm:"column:completed_at"`
	CreatedAt       time.Time            `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time            `gorm:"column:updated_at;autoUpdateTime"`
}
