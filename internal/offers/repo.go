package offers

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/eventhub/eventhub-backend/pkg/db/models"
	"github.com/eventhub/eventhub-backend/pkg/enums"
	"github.com/eventhub/eventhub-backend/pkg/pagination"
)

// Repository persists offers. Offers are never deleted.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, offer *models.Offer) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Offer, error)
	LockByID(ctx context.Context, id uuid.UUID) (*models.Offer, error)
	FindByOrder(ctx context.Context, orderID uuid.UUID) (*models.Offer, error)
	Update(ctx context.Context, id uuid.UUID, updates map[string]any) error
	HasActive(ctx context.Context, threadID, listingID uuid.UUID) (bool, error)
	List(ctx context.Context, params listOffersParams) ([]models.Offer, *pagination.Cursor, error)
}

type listOffersParams struct {
	ThreadID *uuid.UUID
	UserID   *uuid.UUID
	VendorID *uuid.UUID
	Status   *enums.OfferStatus
	Limit    int
	Cursor   *pagination.Cursor
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds an offers repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, offer *models.Offer) error {
	if offer.ID == uuid.Nil {
		offer.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(offer).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Offer, error) {
	var offer models.Offer
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&offer).Error; err != nil {
		return nil, err
	}
	return &offer, nil
}

func (r *repository) LockByID(ctx context.Context, id uuid.UUID) (*models.Offer, error) {
	var offer models.Offer
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&offer).Error
	if err != nil {
		return nil, err
	}
	return &offer, nil
}

func (r *repository) FindByOrder(ctx context.Context, orderID uuid.UUID) (*models.Offer, error) {
	var offer models.Offer
	if err := r.db.WithContext(ctx).Where("order_id = ?", orderID).First(&offer).Error; err != nil {
		return nil, err
	}
	return &offer, nil
}

func (r *repository) Update(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	res := r.db.WithContext(ctx).Model(&models.Offer{}).Where("id = ?", id).Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *repository) HasActive(ctx context.Context, threadID, listingID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Offer{}).
		Where("thread_id = ? AND listing_id = ?", threadID, listingID).
		Where("status IN ?", []enums.OfferStatus{enums.OfferStatusPending, enums.OfferStatusCountered}).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// List returns newest-first offers matching every non-nil filter. The cursor
// points at the last row returned when another page exists.
func (r *repository) List(ctx context.Context, params listOffersParams) ([]models.Offer, *pagination.Cursor, error) {
	limit := pagination.NormalizeLimit(params.Limit)
	query := r.db.WithContext(ctx).Model(&models.Offer{})
	if params.ThreadID != nil {
		query = query.Where("thread_id = ?", *params.ThreadID)
	}
	if params.UserID != nil {
		query = query.Where("user_id = ?", *params.UserID)
	}
	if params.VendorID != nil {
		query = query.Where("vendor_id = ?", *params.VendorID)
	}
	if params.Status != nil {
		query = query.Where("status = ?", *params.Status)
	}

	var rows []models.Offer
	if err := pagination.Seek(query, params.Cursor).Limit(limit + 1).Find(&rows).Error; err != nil {
		return nil, nil, err
	}
	page, next := pagination.Trim(rows, limit, func(o models.Offer) pagination.Cursor {
		return pagination.Cursor{CreatedAt: o.CreatedAt, ID: o.ID}
	})
	return page, next, nil
}
