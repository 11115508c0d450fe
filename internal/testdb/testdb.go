// Package testdb opens SQLite databases carrying the booking schema plus
// fixtures for collaborator-owned tables. It is imported from _test files only.
package testdb

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/eventhub/eventhub-backend/pkg/db/models"
	"github.com/eventhub/eventhub-backend/pkg/enums"
	"github.com/eventhub/eventhub-backend/pkg/migrate"
)

// Open returns an isolated in-memory database with the schema applied.
// A single connection keeps every statement on the same memory database.
func Open(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 gormlogger.Default.LogMode(gormlogger.Silent),
		NowFunc:                func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := conn.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := migrate.ApplySQLite(context.Background(), conn); err != nil {
		t.Fatalf("apply schema: %v", err)
	}
	return conn
}

// Fixture is a customer, a vendor, one listing and the chat thread between them.
type Fixture struct {
	Customer models.UserProfile
	Vendor   models.Vendor
	Listing  models.Listing
	Thread   models.ChatThread
}

// MustSeed creates a fixture whose listing is priced at listingPrice.
func MustSeed(t *testing.T, conn *gorm.DB, listingPrice string) Fixture {
	t.Helper()
	customer := MustCreateUserProfile(t, conn, "Asha Rao")
	vendor := MustCreateVendor(t, conn)
	listing := MustCreateListing(t, conn, vendor.ID, listingPrice)
	thread := MustCreateThread(t, conn, customer.ID, vendor.ID, &listing.ID)
	return Fixture{Customer: customer, Vendor: vendor, Listing: listing, Thread: thread}
}

func MustCreateUserProfile(t *testing.T, conn *gorm.DB, name string) models.UserProfile {
	t.Helper()
	email := fmt.Sprintf("eh_test_%s@example.com", uuid.NewString()[:8])
	phone := "+91-9000000000"
	profile := models.UserProfile{ID: uuid.New(), Email: &email, Phone: &phone}
	if name != "" {
		profile.FullName = &name
	}
	if err := conn.Create(&profile).Error; err != nil {
		t.Fatalf("create user profile: %v", err)
	}
	return profile
}

func MustCreateVendor(t *testing.T, conn *gorm.DB) models.Vendor {
	t.Helper()
	vendor := models.Vendor{
		ID:           uuid.New(),
		UserID:       uuid.New(),
		BusinessName: "Marigold Decor",
		IsVerified:   true,
		IsActive:     true,
	}
	if err := conn.Create(&vendor).Error; err != nil {
		t.Fatalf("create vendor: %v", err)
	}
	return vendor
}

func MustCreateListing(t *testing.T, conn *gorm.DB, vendorID uuid.UUID, price string) models.Listing {
	t.Helper()
	listing := models.Listing{
		ID:          uuid.New(),
		VendorID:    vendorID,
		Name:        "Wedding Stage Package",
		ListingType: enums.ItemTypePackage,
		Price:       decimal.RequireFromString(price),
		IsActive:    true,
	}
	if err := conn.Create(&listing).Error; err != nil {
		t.Fatalf("create listing: %v", err)
	}
	return listing
}

func MustCreateThread(t *testing.T, conn *gorm.DB, userID, vendorID uuid.UUID, listingID *uuid.UUID) models.ChatThread {
	t.Helper()
	thread := models.ChatThread{
		ID:        uuid.New(),
		UserID:    userID,
		VendorID:  vendorID,
		ListingID: listingID,
	}
	if err := conn.Create(&thread).Error; err != nil {
		t.Fatalf("create chat thread: %v", err)
	}
	return thread
}
