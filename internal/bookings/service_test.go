package bookings

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/eventhub/eventhub-backend/internal/catalog"
	"github.com/eventhub/eventhub-backend/internal/leads"
	"github.com/eventhub/eventhub-backend/internal/notifications"
	"github.com/eventhub/eventhub-backend/internal/testdb"
	"github.com/eventhub/eventhub-backend/pkg/auth"
	"github.com/eventhub/eventhub-backend/pkg/db"
	"github.com/eventhub/eventhub-backend/pkg/db/models"
	"github.com/eventhub/eventhub-backend/pkg/enums"
	pkgerrors "github.com/eventhub/eventhub-backend/pkg/errors"
	"github.com/eventhub/eventhub-backend/pkg/outbox"
)

var fixedNow = time.Date(2026, 10, 16, 10, 0, 0, 0, time.UTC)

type recordingNotifier struct {
	notes []notifications.Notification
}

func (r *recordingNotifier) Notify(_ context.Context, notes ...notifications.Notification) {
	r.notes = append(r.notes, notes...)
}

func newTestService(t *testing.T, conn *gorm.DB, notifier notifications.Dispatcher) Service {
	t.Helper()
	store := catalog.NewRepository(conn)
	ledger, err := leads.NewService(leads.ServiceParams{Repository: leads.NewRepository(conn), Catalog: store})
	require.NoError(t, err)
	svc, err := NewService(ServiceParams{
		Repository: NewRepository(conn),
		Catalog:    store,
		DB:         db.NewFromConn(conn),
		Outbox:     outbox.NewService(outbox.NewRepository(conn), nil),
		Leads:      ledger,
		Notifier:   notifier,
		Now:        func() time.Time { return fixedNow },
	})
	require.NoError(t, err)
	return svc
}

func acceptedOffer(fx testdb.Fixture, offered string) *models.Offer {
	eventType := "wedding"
	eventDate := time.Date(2026, 12, 20, 0, 0, 0, 0, time.UTC)
	return &models.Offer{
		ID:            uuid.New(),
		ThreadID:      fx.Thread.ID,
		ListingID:     fx.Listing.ID,
		UserID:        fx.Customer.ID,
		VendorID:      fx.Vendor.ID,
		OfferedPrice:  decimal.RequireFromString(offered),
		OriginalPrice: fx.Listing.Price,
		Status:        enums.OfferStatusAccepted,
		EventDetails:  models.EventDetails{EventType: &eventType, EventDate: &eventDate},
	}
}

func convert(t *testing.T, conn *gorm.DB, svc Service, fx testdb.Fixture, offer *models.Offer) *models.Order {
	t.Helper()
	var order *models.Order
	err := conn.Transaction(func(tx *gorm.DB) error {
		var err error
		order, err = svc.ConvertAcceptedOffer(context.Background(), tx, ConvertInput{
			Offer:    offer,
			Listing:  &fx.Listing,
			Customer: &fx.Customer,
		})
		return err
	})
	require.NoError(t, err)
	return order
}

func TestConvertAcceptedOfferBuildsOrder(t *testing.T) {
	conn := testdb.Open(t)
	fx := testdb.MustSeed(t, conn, "10000")
	svc := newTestService(t, conn, nil)

	offer := acceptedOffer(fx, "8500")
	order := convert(t, conn, svc, fx, offer)

	assert.Equal(t, "EVT-2026-000001", order.OrderNumber)
	require.NotNil(t, offer.OrderID)
	assert.Equal(t, order.ID, *offer.OrderID)

	var stored models.Order
	require.NoError(t, conn.Where("id = ?", order.ID).First(&stored).Error)
	assert.True(t, stored.BaseAmount.Equal(decimal.RequireFromString("8500")))
	assert.True(t, stored.DiscountAmount.Equal(decimal.RequireFromString("1500")))
	assert.True(t, stored.PlatformFee.Equal(decimal.RequireFromString("425")))
	assert.True(t, stored.TaxAmount.Equal(decimal.RequireFromString("1530")))
	assert.True(t, stored.TotalAmount.Equal(decimal.RequireFromString("10455")), stored.TotalAmount.String())
	assert.True(t, stored.TokenAmount.Equal(decimal.RequireFromString("2614")), stored.TokenAmount.String())
	assert.True(t, stored.BalanceAmount.Equal(stored.TotalAmount))
	assert.True(t, stored.TokenPaid.IsZero())
	assert.Equal(t, enums.OrderStatusPending, stored.Status)
	assert.Equal(t, enums.OrderPaymentPending, stored.PaymentStatus)
	assert.True(t, stored.AwaitingTokenPayment)
	assert.Equal(t, enums.ItemTypePackage, stored.ItemType)
	require.NotNil(t, stored.CustomerName)
	assert.Equal(t, "Asha Rao", *stored.CustomerName)
	require.NotNil(t, stored.Notes)
	assert.Equal(t, "Order created from accepted offer. Original price: 10000.00, Negotiated price: 8500.00", *stored.Notes)
	require.NotNil(t, stored.EventDate)
	assert.Equal(t, "2026-12-20", stored.EventDate.Format(time.DateOnly))

	var payments []models.Payment
	require.NoError(t, conn.Where("order_id = ?", order.ID).Find(&payments).Error)
	require.Len(t, payments, 1)
	assert.Equal(t, enums.PaymentTypeToken, payments[0].PaymentType)
	assert.Equal(t, enums.PaymentStatusPending, payments[0].Status)
	assert.Nil(t, payments[0].PaymentMethod)
	assert.Nil(t, payments[0].TransactionID)
	assert.True(t, payments[0].Amount.Equal(decimal.RequireFromString("2614")))

	var timeline []models.OrderTimeline
	require.NoError(t, conn.Where("order_id = ?", order.ID).Find(&timeline).Error)
	require.Len(t, timeline, 1)
	assert.Equal(t, StageCreatedFromOffer, timeline[0].Stage)
	assert.Equal(t, enums.TimelineStatusPending, timeline[0].Status)

	var thread models.ChatThread
	require.NoError(t, conn.Where("id = ?", fx.Thread.ID).First(&thread).Error)
	require.NotNil(t, thread.OrderID)
	assert.Equal(t, order.ID, *thread.OrderID)

	var events int64
	require.NoError(t, conn.Model(&models.OutboxEvent{}).Where("event_type = ?", enums.EventOrderCreated).Count(&events).Error)
	assert.EqualValues(t, 1, events)
}

func TestConvertAllocatesSequentialOrderNumbers(t *testing.T) {
	conn := testdb.Open(t)
	fx := testdb.MustSeed(t, conn, "10000")
	svc := newTestService(t, conn, nil)

	first := convert(t, conn, svc, fx, acceptedOffer(fx, "9000"))
	second := convert(t, conn, svc, fx, acceptedOffer(fx, "9100"))

	assert.Equal(t, "EVT-2026-000001", first.OrderNumber)
	assert.Equal(t, "EVT-2026-000002", second.OrderNumber)
}

func TestConvertRollsBackWithCaller(t *testing.T) {
	conn := testdb.Open(t)
	fx := testdb.MustSeed(t, conn, "10000")
	svc := newTestService(t, conn, nil)

	boom := errors.New("offer update failed")
	err := conn.Transaction(func(tx *gorm.DB) error {
		if _, err := svc.ConvertAcceptedOffer(context.Background(), tx, ConvertInput{
			Offer:    acceptedOffer(fx, "8500"),
			Listing:  &fx.Listing,
			Customer: &fx.Customer,
		}); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	for _, model := range []any{&models.Order{}, &models.Payment{}, &models.OrderTimeline{}, &models.OutboxEvent{}} {
		var count int64
		require.NoError(t, conn.Model(model).Count(&count).Error)
		assert.Zero(t, count, "%T should be empty after rollback", model)
	}
	var thread models.ChatThread
	require.NoError(t, conn.Where("id = ?", fx.Thread.ID).First(&thread).Error)
	assert.Nil(t, thread.OrderID)

	order := convert(t, conn, svc, fx, acceptedOffer(fx, "8500"))
	assert.Equal(t, "EVT-2026-000001", order.OrderNumber, "rolled back sequence value is reused")
}

func TestConvertRejectsMismatchedListing(t *testing.T) {
	conn := testdb.Open(t)
	fx := testdb.MustSeed(t, conn, "10000")
	svc := newTestService(t, conn, nil)
	other := testdb.MustCreateListing(t, conn, fx.Vendor.ID, "5000")

	err := conn.Transaction(func(tx *gorm.DB) error {
		_, err := svc.ConvertAcceptedOffer(context.Background(), tx, ConvertInput{
			Offer:    acceptedOffer(fx, "8500"),
			Listing:  &other,
			Customer: &fx.Customer,
		})
		return err
	})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestGetChecksParticipants(t *testing.T) {
	conn := testdb.Open(t)
	fx := testdb.MustSeed(t, conn, "10000")
	svc := newTestService(t, conn, nil)
	order := convert(t, conn, svc, fx, acceptedOffer(fx, "8500"))

	detail, err := svc.Get(context.Background(), auth.Actor{UserID: fx.Customer.ID, Role: enums.ActorRoleCustomer}, order.ID)
	require.NoError(t, err)
	assert.Equal(t, order.OrderNumber, detail.Order.OrderNumber)
	require.Len(t, detail.Timeline, 1)
	require.NotNil(t, detail.Order.EventDate)
	assert.Equal(t, "2026-12-20", *detail.Order.EventDate)

	vendorID := fx.Vendor.ID
	_, err = svc.Get(context.Background(), auth.Actor{UserID: uuid.New(), VendorID: &vendorID, Role: enums.ActorRoleVendor}, order.ID)
	require.NoError(t, err)

	_, err = svc.Get(context.Background(), auth.Actor{UserID: uuid.New(), Role: enums.ActorRoleCustomer}, order.ID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	_, err = svc.Get(context.Background(), auth.Actor{UserID: fx.Customer.ID, Role: enums.ActorRoleCustomer}, uuid.New())
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func markTokenPaid(t *testing.T, conn *gorm.DB, orderID uuid.UUID) {
	t.Helper()
	require.NoError(t, conn.Model(&models.Order{}).Where("id = ?", orderID).Updates(map[string]any{
		"awaiting_token_payment": false,
		"payment_status":         enums.OrderPaymentPartial,
	}).Error)
}

func TestVendorConfirm(t *testing.T) {
	conn := testdb.Open(t)
	fx := testdb.MustSeed(t, conn, "10000")
	notifier := &recordingNotifier{}
	svc := newTestService(t, conn, notifier)
	order := convert(t, conn, svc, fx, acceptedOffer(fx, "8500"))
	ctx := context.Background()

	_, err := svc.VendorConfirm(ctx, fx.Vendor.ID, order.ID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodePayment), "unpaid order cannot be confirmed: %v", err)

	markTokenPaid(t, conn, order.ID)

	_, err = svc.VendorConfirm(ctx, uuid.New(), order.ID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeBusinessRule))

	confirmed, err := svc.VendorConfirm(ctx, fx.Vendor.ID, order.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusConfirmed, confirmed.Status)
	require.NotNil(t, confirmed.ConfirmedAt)

	require.Len(t, notifier.notes, 1)
	assert.Equal(t, enums.NotificationOrderConfirmed, notifier.notes[0].Kind)
	assert.Equal(t, fx.Customer.ID, notifier.notes[0].RecipientID)

	_, err = svc.VendorConfirm(ctx, fx.Vendor.ID, order.ID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeBusinessRule), "second confirm is rejected")

	var stages []string
	require.NoError(t, conn.Model(&models.OrderTimeline{}).Where("order_id = ?", order.ID).Order("created_at").Pluck("stage", &stages).Error)
	assert.Contains(t, stages, StageConfirmed)
}

func TestVendorComplete(t *testing.T) {
	conn := testdb.Open(t)
	fx := testdb.MustSeed(t, conn, "10000")
	svc := newTestService(t, conn, &recordingNotifier{})
	order := convert(t, conn, svc, fx, acceptedOffer(fx, "8500"))
	ctx := context.Background()

	_, err := svc.VendorComplete(ctx, fx.Vendor.ID, order.ID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeBusinessRule), "pending order cannot complete")

	require.NoError(t, conn.Model(&models.Order{}).Where("id = ?", order.ID).Update("status", enums.OrderStatusConfirmed).Error)
	_, err = svc.VendorComplete(ctx, fx.Vendor.ID, order.ID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeBusinessRule), "event date in the future")

	require.NoError(t, conn.Model(&models.Order{}).Where("id = ?", order.ID).Update("event_date", fixedNow.AddDate(0, 0, -1)).Error)
	completed, err := svc.VendorComplete(ctx, fx.Vendor.ID, order.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusCompleted, completed.Status)
	require.NotNil(t, completed.CompletedAt)
}
