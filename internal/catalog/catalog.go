// Package catalog reads the listing, vendor, profile and chat-thread tables
// owned by neighbouring services.
package catalog

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/eventhub/eventhub-backend/pkg/db/models"
	pkgerrors "github.com/eventhub/eventhub-backend/pkg/errors"
)

// ListingLookup resolves listings by id.
type ListingLookup interface {
	GetListing(ctx context.Context, id uuid.UUID) (*models.Listing, error)
}

// VendorLookup resolves vendor accounts by id.
type VendorLookup interface {
	GetVendor(ctx context.Context, id uuid.UUID) (*models.Vendor, error)
}

// UserProfileLookup resolves customer contact details by user id.
type UserProfileLookup interface {
	GetUserProfile(ctx context.Context, id uuid.UUID) (*models.UserProfile, error)
}

// ThreadStore reads chat threads and records the lead/order they produced.
type ThreadStore interface {
	GetThread(ctx context.Context, id uuid.UUID) (*models.ChatThread, error)
	LockThread(ctx context.Context, id uuid.UUID) (*models.ChatThread, error)
	LinkLead(ctx context.Context, threadID, leadID uuid.UUID) error
	LinkOrder(ctx context.Context, threadID, orderID uuid.UUID) error
}

// Store is the transaction-aware union used by the booking services.
type Store interface {
	ListingLookup
	VendorLookup
	UserProfileLookup
	ThreadStore
	WithTx(tx *gorm.DB) Store
}

// Repository implements every lookup against the shared database.
type Repository struct {
	db *gorm.DB
}

// NewRepository binds the catalog reads to db.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to tx.
func (r *Repository) WithTx(tx *gorm.DB) Store {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

func (r *Repository) GetListing(ctx context.Context, id uuid.UUID) (*models.Listing, error) {
	var listing models.Listing
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&listing).Error; err != nil {
		return nil, notFoundOr(err, "listing not found", "load listing")
	}
	return &listing, nil
}

func (r *Repository) GetVendor(ctx context.Context, id uuid.UUID) (*models.Vendor, error) {
	var vendor models.Vendor
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&vendor).Error; err != nil {
		return nil, notFoundOr(err, "vendor not found", "load vendor")
	}
	return &vendor, nil
}

func (r *Repository) GetUserProfile(ctx context.Context, id uuid.UUID) (*models.UserProfile, error) {
	var profile models.UserProfile
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&profile).Error; err != nil {
		return nil, notFoundOr(err, "user profile not found", "load user profile")
	}
	return &profile, nil
}

func (r *Repository) GetThread(ctx context.Context, id uuid.UUID) (*models.ChatThread, error) {
	var thread models.ChatThread
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&thread).Error; err != nil {
		return nil, notFoundOr(err, "chat thread not found", "load chat thread")
	}
	return &thread, nil
}

// LockThread loads the thread FOR UPDATE so concurrent proposals on it serialize.
func (r *Repository) LockThread(ctx context.Context, id uuid.UUID) (*models.ChatThread, error) {
	var thread models.ChatThread
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&thread).Error
	if err != nil {
		return nil, notFoundOr(err, "chat thread not found", "lock chat thread")
	}
	return &thread, nil
}

func (r *Repository) LinkLead(ctx context.Context, threadID, leadID uuid.UUID) error {
	return r.linkThread(ctx, threadID, "lead_id", leadID)
}

func (r *Repository) LinkOrder(ctx context.Context, threadID, orderID uuid.UUID) error {
	return r.linkThread(ctx, threadID, "order_id", orderID)
}

func (r *Repository) linkThread(ctx context.Context, threadID uuid.UUID, column string, value uuid.UUID) error {
	res := r.db.WithContext(ctx).
		Model(&models.ChatThread{}).
		Where("id = ?", threadID).
		Updates(map[string]any{column: value})
	if res.Error != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "link chat thread")
	}
	if res.RowsAffected == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "chat thread not found")
	}
	return nil
}

func notFoundOr(err error, notFoundMsg, op string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, notFoundMsg)
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, op)
}
