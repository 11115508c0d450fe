package cron

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/eventhub/eventhub-backend/pkg/outbox"
)

type outboxEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// reminderStore dedupes reminders per order, kind and day.
type reminderStore interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	ReminderKey(kind, orderID, day string) string
}

type orderLeadCloser interface {
	MarkDeclinedForOrder(ctx context.Context, tx *gorm.DB, orderID uuid.UUID) error
}
