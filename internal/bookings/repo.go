package bookings

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/eventhub/eventhub-backend/pkg/db/models"
)

const orderNumberFormat = "EVT-%d-%06d"

// Repository persists orders, their placeholder payments and timeline rows.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	NextOrderNumber(ctx context.Context, year int) (string, error)
	CreateOrder(ctx context.Context, order *models.Order) error
	FindOrder(ctx context.Context, id uuid.UUID) (*models.Order, error)
	LockOrder(ctx context.Context, id uuid.UUID) (*models.Order, error)
	UpdateOrder(ctx context.Context, id uuid.UUID, updates map[string]any) error
	CreatePayment(ctx context.Context, payment *models.Payment) error
	AppendTimeline(ctx context.Context, entry *models.OrderTimeline) error
	ListTimeline(ctx context.Context, orderID uuid.UUID) ([]models.OrderTimeline, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a bookings repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

// NextOrderNumber bumps the per-year sequence in a single statement, so two
// concurrent conversions can never read the same value.
func (r *repository) NextOrderNumber(ctx context.Context, year int) (string, error) {
	var next int64
	err := r.db.WithContext(ctx).Raw(`
INSERT INTO order_number_sequences (year, last_value) VALUES (?, 1)
ON CONFLICT (year) DO UPDATE SET last_value = order_number_sequences.last_value + 1
RETURNING last_value`, year).Scan(&next).Error
	if err != nil {
		return "", err
	}
	if next <= 0 {
		return "", fmt.Errorf("order number sequence returned %d", next)
	}
	return fmt.Sprintf(orderNumberFormat, year, next), nil
}

func (r *repository) CreateOrder(ctx context.Context, order *models.Order) error {
	if order.ID == uuid.Nil {
		order.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(order).Error
}

func (r *repository) FindOrder(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&order).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) LockOrder(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) UpdateOrder(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	res := r.db.WithContext(ctx).Model(&models.Order{}).Where("id = ?", id).Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *repository) CreatePayment(ctx context.Context, payment *models.Payment) error {
	if payment.ID == uuid.Nil {
		payment.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(payment).Error
}

func (r *repository) AppendTimeline(ctx context.Context, entry *models.OrderTimeline) error {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *repository) ListTimeline(ctx context.Context, orderID uuid.UUID) ([]models.OrderTimeline, error) {
	var rows []models.OrderTimeline
	err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("created_at ASC").
		Order("id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}
