package leads

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/eventhub/eventhub-backend/pkg/db/models"
	"github.com/eventhub/eventhub-backend/pkg/enums"
	"github.com/eventhub/eventhub-backend/pkg/pagination"
)

// Repository exposes persistence helpers for leads.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, lead *models.Lead) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Lead, error)
	FindByOrder(ctx context.Context, orderID uuid.UUID) (*models.Lead, error)
	Update(ctx context.Context, id uuid.UUID, updates map[string]any) (int64, error)
	UpdateByOrder(ctx context.Context, orderID uuid.UUID, updates map[string]any) (int64, error)
	ListForVendor(ctx context.Context, params listLeadsParams) ([]models.Lead, *pagination.Cursor, error)
}

type repositoryImpl struct {
	db *gorm.DB
}

// NewRepository returns a leads repository bound to db.
func NewRepository(db *gorm.DB) Repository {
	return &repositoryImpl{db: db}
}

type listLeadsParams struct {
	VendorID uuid.UUID
	Status   *enums.LeadStatus
	Limit    int
	Cursor   *pagination.Cursor
}

func (r *repositoryImpl) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repositoryImpl{db: tx}
}

func (r *repositoryImpl) Create(ctx context.Context, lead *models.Lead) error {
	if lead.ID == uuid.Nil {
		lead.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(lead).Error
}

func (r *repositoryImpl) FindByID(ctx context.Context, id uuid.UUID) (*models.Lead, error) {
	var lead models.Lead
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&lead).Error; err != nil {
		return nil, err
	}
	return &lead, nil
}

// FindByOrder returns the most recently touched lead linked to the order.
func (r *repositoryImpl) FindByOrder(ctx context.Context, orderID uuid.UUID) (*models.Lead, error) {
	var lead models.Lead
	err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("updated_at DESC").
		First(&lead).Error
	if err != nil {
		return nil, err
	}
	return &lead, nil
}

func (r *repositoryImpl) Update(ctx context.Context, id uuid.UUID, updates map[string]any) (int64, error) {
	res := r.db.WithContext(ctx).Model(&models.Lead{}).Where("id = ?", id).Updates(updates)
	return res.RowsAffected, res.Error
}

func (r *repositoryImpl) UpdateByOrder(ctx context.Context, orderID uuid.UUID, updates map[string]any) (int64, error) {
	res := r.db.WithContext(ctx).Model(&models.Lead{}).Where("order_id = ?", orderID).Updates(updates)
	return res.RowsAffected, res.Error
}

func (r *repositoryImpl) ListForVendor(ctx context.Context, params listLeadsParams) ([]models.Lead, *pagination.Cursor, error) {
	limit := pagination.NormalizeLimit(params.Limit)
	query := r.db.WithContext(ctx).Model(&models.Lead{}).Where("vendor_id = ?", params.VendorID)
	if params.Status != nil {
		query = query.Where("status = ?", *params.Status)
	}

	var rows []models.Lead
	if err := pagination.Seek(query, params.Cursor).Limit(limit + 1).Find(&rows).Error; err != nil {
		return nil, nil, err
	}
	page, next := pagination.Trim(rows, limit, func(l models.Lead) pagination.Cursor {
		return pagination.Cursor{CreatedAt: l.CreatedAt, ID: l.ID}
	})
	return page, next, nil
}
