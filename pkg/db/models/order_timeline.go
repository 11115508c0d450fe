package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/eventhub/eventhub-backend/pkg/enums"
)

// OrderTimeline is an append-only milestone row for an order.
type OrderTimeline struct {
	ID          uuid.UUID            `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID     uuid.UUID            `gorm:"column:order_id;type:uuid;not null"`
	Stage       string               `gorm:"column:stage;not null"`
	Status      enums.TimelineStatus `gorm:"column:status;type:text;not null"`
	Notes       *string              `gorm:"column:notes"`
	CompletedAt *time.Time           `gorm:"column:completed_at"`
	CreatedAt   time.Time            `gorm:"column:created_at;autoCreateTime"`
}

func (OrderTimeline) TableName() string { return "order_timeline" }
