package cron

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/eventhub/eventhub-backend/pkg/db/models"
	"github.com/eventhub/eventhub-backend/pkg/enums"
)

// OrderFilter is the state predicate a lifecycle job selects orders by.
// Nil fields are not filtered on.
type OrderFilter struct {
	Status        enums.OrderStatus
	EventDate     *time.Time
	EventBefore   *time.Time
	CreatedBefore *time.Time
	AwaitingToken *bool
}

// OrderStore runs the set-based reads and updates behind lifecycle jobs.
type OrderStore interface {
	Find(ctx context.Context, filter OrderFilter) ([]models.Order, error)
	Transition(ctx context.Context, tx *gorm.DB, orderID uuid.UUID, filter OrderFilter, updates map[string]any) (int64, error)
	AppendTimeline(ctx context.Context, tx *gorm.DB, entry *models.OrderTimeline) error
}

type orderStore struct {
	db *gorm.DB
}

// NewOrderStore builds the gorm-backed lifecycle store.
func NewOrderStore(db *gorm.DB) OrderStore {
	return &orderStore{db: db}
}

func (s *orderStore) Find(ctx context.Context, filter OrderFilter) ([]models.Order, error) {
	var rows []models.Order
	err := apply(s.db.WithContext(ctx).Model(&models.Order{}), filter).
		Order("created_at ASC").
		Find(&rows).Error
	return rows, err
}

// Transition updates the order only while it still matches filter, so a
// concurrent change since the scan is never overwritten.
func (s *orderStore) Transition(ctx context.Context, tx *gorm.DB, orderID uuid.UUID, filter OrderFilter, updates map[string]any) (int64, error) {
	res := apply(tx.WithContext(ctx).Model(&models.Order{}), filter).
		Where("id = ?", orderID).
		Updates(updates)
	return res.RowsAffected, res.Error
}

func (s *orderStore) AppendTimeline(ctx context.Context, tx *gorm.DB, entry *models.OrderTimeline) error {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	return tx.WithContext(ctx).Create(entry).Error
}

func apply(query *gorm.DB, filter OrderFilter) *gorm.DB {
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.EventDate != nil {
		query = query.Where("event_date = ?", *filter.EventDate)
	}
	if filter.EventBefore != nil {
		query = query.Where("event_date < ?", *filter.EventBefore)
	}
	if filter.CreatedBefore != nil {
		query = query.Where("created_at < ?", *filter.CreatedBefore)
	}
	if filter.AwaitingToken != nil {
		query = query.Where("awaiting_token_payment = ?", *filter.AwaitingToken)
	}
	return query
}
