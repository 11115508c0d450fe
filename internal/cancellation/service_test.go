package cancellation

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/eventhub/eventhub-backend/internal/bookings"
	"github.com/eventhub/eventhub-backend/internal/catalog"
	"github.com/eventhub/eventhub-backend/internal/leads"
	"github.com/eventhub/eventhub-backend/internal/notifications"
	"github.com/eventhub/eventhub-backend/internal/payments"
	"github.com/eventhub/eventhub-backend/internal/testdb"
	"github.com/eventhub/eventhub-backend/pkg/db"
	"github.com/eventhub/eventhub-backend/pkg/db/models"
	"github.com/eventhub/eventhub-backend/pkg/enums"
	pkgerrors "github.com/eventhub/eventhub-backend/pkg/errors"
	"github.com/eventhub/eventhub-backend/pkg/outbox"
)

var eventDate = time.Date(2026, 12, 20, 0, 0, 0, 0, time.UTC)

type recordingNotifier struct {
	notes []notifications.Notification
}

func (r *recordingNotifier) Notify(_ context.Context, notes ...notifications.Notification) {
	r.notes = append(r.notes, notes...)
}

type harness struct {
	conn     *gorm.DB
	fx       testdb.Fixture
	now      time.Time
	svc      Service
	notifier *recordingNotifier
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	conn := testdb.Open(t)
	h := &harness{
		conn:     conn,
		fx:       testdb.MustSeed(t, conn, "10000"),
		now:      time.Date(2026, 10, 16, 10, 0, 0, 0, time.UTC),
		notifier: &recordingNotifier{},
	}
	ledger, err := leads.NewService(leads.ServiceParams{Repository: leads.NewRepository(conn), Catalog: catalog.NewRepository(conn)})
	require.NoError(t, err)
	h.svc, err = NewService(ServiceParams{
		Orders:   bookings.NewRepository(conn),
		Payments: payments.NewRepository(conn),
		Leads:    ledger,
		DB:       db.NewFromConn(conn),
		Outbox:   outbox.NewService(outbox.NewRepository(conn), nil),
		Notifier: h.notifier,
		Now:      func() time.Time { return h.now },
	})
	require.NoError(t, err)
	return h
}

// paidOrder converts an accepted 8500 offer and completes its token payment
// of 2614.00.
func (h *harness) paidOrder(t *testing.T, date *time.Time) models.Order {
	t.Helper()
	store := catalog.NewRepository(h.conn)
	ledger, err := leads.NewService(leads.ServiceParams{Repository: leads.NewRepository(h.conn), Catalog: store})
	require.NoError(t, err)
	converter, err := bookings.NewService(bookings.ServiceParams{
		Repository: bookings.NewRepository(h.conn),
		Catalog:    store,
		DB:         db.NewFromConn(h.conn),
		Outbox:     outbox.NewService(outbox.NewRepository(h.conn), nil),
		Leads:      ledger,
		Now:        func() time.Time { return h.now },
	})
	require.NoError(t, err)

	offer := &models.Offer{
		ID:            uuid.New(),
		ThreadID:      h.fx.Thread.ID,
		ListingID:     h.fx.Listing.ID,
		UserID:        h.fx.Customer.ID,
		VendorID:      h.fx.Vendor.ID,
		OfferedPrice:  decimal.RequireFromString("8500"),
		OriginalPrice: h.fx.Listing.Price,
		Status:        enums.OfferStatusAccepted,
		EventDetails:  models.EventDetails{EventDate: date},
	}
	var order *models.Order
	require.NoError(t, h.conn.Transaction(func(tx *gorm.DB) error {
		var err error
		order, err = converter.ConvertAcceptedOffer(context.Background(), tx, bookings.ConvertInput{
			Offer:    offer,
			Listing:  &h.fx.Listing,
			Customer: &h.fx.Customer,
		})
		return err
	}))

	lead := models.Lead{
		ID:       uuid.New(),
		VendorID: h.fx.Vendor.ID,
		UserID:   h.fx.Customer.ID,
		Name:     "Asha Rao",
		Status:   enums.LeadStatusConverted,
		Source:   enums.LeadSourceOffer,
		OrderID:  &order.ID,
	}
	require.NoError(t, h.conn.Create(&lead).Error)

	completed := h.now.Add(-time.Hour)
	require.NoError(t, h.conn.Model(&models.Payment{}).
		Where("order_id = ? AND payment_type = ?", order.ID, enums.PaymentTypeToken).
		Updates(map[string]any{
			"status":         enums.PaymentStatusCompleted,
			"transaction_id": "TXN_PAID_" + order.ID.String(),
			"payment_method": enums.PaymentMethodCard,
			"completed_at":   completed,
		}).Error)
	require.NoError(t, h.conn.Model(&models.Order{}).Where("id = ?", order.ID).Updates(map[string]any{
		"status":                 enums.OrderStatusConfirmed,
		"payment_status":         enums.OrderPaymentPartial,
		"awaiting_token_payment": false,
		"token_paid":             order.TokenAmount,
	}).Error)

	var stored models.Order
	require.NoError(t, h.conn.First(&stored, "id = ?", order.ID).Error)
	return stored
}

func assertCode(t *testing.T, err error, code pkgerrors.Code) {
	t.Helper()
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, code), "expected %s, got %v", code, err)
}

func TestEstimateTiers(t *testing.T) {
	h := newHarness(t)
	date := eventDate
	order := h.paidOrder(t, &date)
	ctx := context.Background()

	cases := []struct {
		daysBefore int
		percent    int
		amount     string
	}{
		{31, 100, "2614.00"},
		{30, 50, "1307.00"},
		{15, 50, "1307.00"},
		{14, 0, "0.00"},
	}
	for _, tc := range cases {
		h.now = eventDate.AddDate(0, 0, -tc.daysBefore).Add(9 * time.Hour)
		estimate, err := h.svc.Estimate(ctx, order.ID, h.fx.Customer.ID)
		require.NoError(t, err)
		assert.Equal(t, tc.percent, estimate.RefundPercentage, "days=%d", tc.daysBefore)
		assert.Equal(t, tc.amount, estimate.RefundAmount.StringFixed(2), "days=%d", tc.daysBefore)
		require.NotNil(t, estimate.DaysUntilEvent)
		assert.Equal(t, tc.daysBefore, *estimate.DaysUntilEvent)
		assert.Equal(t, "2614.00", estimate.OriginalAmount.StringFixed(2))
		require.NotNil(t, estimate.EventDate)
		assert.Equal(t, "2026-12-20", *estimate.EventDate)
	}

	var count int64
	require.NoError(t, h.conn.Model(&models.Payment{}).Where("payment_type = ?", enums.PaymentTypeRefund).Count(&count).Error)
	assert.Zero(t, count, "estimate is read-only")

	_, err := h.svc.Estimate(ctx, order.ID, uuid.New())
	assertCode(t, err, pkgerrors.CodeNotFound)
}

func TestCancelRefundsAndClosesOrder(t *testing.T) {
	h := newHarness(t)
	h.now = eventDate.AddDate(0, 0, -20)
	date := eventDate
	order := h.paidOrder(t, &date)

	refund, err := h.svc.Cancel(context.Background(), CancelInput{
		OrderID: order.ID,
		UserID:  h.fx.Customer.ID,
		Reason:  "Venue changed",
	})
	require.NoError(t, err)
	assert.Equal(t, 50, refund.RefundPercentage)
	assert.Equal(t, "1307.00", refund.RefundAmount.StringFixed(2))
	assert.Equal(t, "50% refund (15-30 days before event)", refund.RefundPolicy)
	require.NotNil(t, refund.PaymentID)

	var payment models.Payment
	require.NoError(t, h.conn.First(&payment, "id = ?", *refund.PaymentID).Error)
	assert.Equal(t, enums.PaymentTypeRefund, payment.PaymentType)
	assert.Equal(t, enums.PaymentStatusCompleted, payment.Status)
	require.NotNil(t, payment.TransactionID)
	assert.Contains(t, *payment.TransactionID, "REF_")
	require.NotNil(t, payment.PaymentMethod)
	assert.Equal(t, enums.PaymentMethodCard, *payment.PaymentMethod)

	var stored models.Order
	require.NoError(t, h.conn.First(&stored, "id = ?", order.ID).Error)
	assert.Equal(t, enums.OrderStatusCancelled, stored.Status)
	assert.Equal(t, enums.OrderPaymentRefunded, stored.PaymentStatus)
	assert.False(t, stored.AwaitingTokenPayment)
	require.NotNil(t, stored.CancelledAt)
	require.NotNil(t, stored.Notes)
	assert.Contains(t, *stored.Notes, "Cancelled by customer: Venue changed")

	var lead models.Lead
	require.NoError(t, h.conn.First(&lead, "order_id = ?", order.ID).Error)
	assert.Equal(t, enums.LeadStatusDeclined, lead.Status)

	var timeline models.OrderTimeline
	require.NoError(t, h.conn.Where("order_id = ? AND stage = ?", order.ID, bookings.StageCancelled).First(&timeline).Error)
	assert.Equal(t, enums.TimelineStatusCompleted, timeline.Status)

	require.Len(t, h.notifier.notes, 2)
	assert.Equal(t, enums.NotificationOrderCancelled, h.notifier.notes[0].Kind)

	_, err = h.svc.Cancel(context.Background(), CancelInput{OrderID: order.ID, UserID: h.fx.Customer.ID})
	assertCode(t, err, pkgerrors.CodeBusinessRule)
}

func TestCancelWithoutEventDateRefundsInFull(t *testing.T) {
	h := newHarness(t)
	order := h.paidOrder(t, nil)

	refund, err := h.svc.Cancel(context.Background(), CancelInput{OrderID: order.ID, UserID: h.fx.Customer.ID})
	require.NoError(t, err)
	assert.Equal(t, 100, refund.RefundPercentage)
	assert.Equal(t, "2614.00", refund.RefundAmount.StringFixed(2))
	assert.Equal(t, "Full refund (no event date)", refund.RefundPolicy)
	assert.Nil(t, refund.DaysUntilEvent)
	assert.Nil(t, refund.EventDate)
}

func TestCancelGuards(t *testing.T) {
	h := newHarness(t)
	date := eventDate
	order := h.paidOrder(t, &date)
	ctx := context.Background()

	_, err := h.svc.Cancel(ctx, CancelInput{OrderID: order.ID, UserID: uuid.New()})
	assertCode(t, err, pkgerrors.CodeBusinessRule)
	_, err = h.svc.Cancel(ctx, CancelInput{OrderID: uuid.New(), UserID: h.fx.Customer.ID})
	assertCode(t, err, pkgerrors.CodeNotFound)

	require.NoError(t, h.conn.Model(&models.Payment{}).
		Where("order_id = ?", order.ID).
		Update("status", enums.PaymentStatusFailed).Error)
	_, err = h.svc.Cancel(ctx, CancelInput{OrderID: order.ID, UserID: h.fx.Customer.ID})
	assertCode(t, err, pkgerrors.CodePayment)

	var stored models.Order
	require.NoError(t, h.conn.First(&stored, "id = ?", order.ID).Error)
	assert.Equal(t, enums.OrderStatusConfirmed, stored.Status, "failed cancellation changes nothing")
}

func TestSummarizeCapsRefundAtPaidAmount(t *testing.T) {
	token := models.Payment{Amount: decimal.RequireFromString("1000"), PaymentType: enums.PaymentTypeToken, Status: enums.PaymentStatusCompleted}
	earlier := models.Payment{Amount: decimal.RequireFromString("800"), PaymentType: enums.PaymentTypeRefund, Status: enums.PaymentStatusCompleted}
	pending := models.Payment{Amount: decimal.RequireFromString("500"), PaymentType: enums.PaymentTypePartial, Status: enums.PaymentStatusPending}

	ledger, err := summarize([]models.Payment{token, earlier, pending})
	require.NoError(t, err)
	assert.Equal(t, "200.00", ledger.refundable.StringFixed(2))

	h := &service{now: func() time.Time { return eventDate.AddDate(0, 0, -60) }, loc: time.UTC}
	date := eventDate
	refund := h.refundFor(&models.Order{EventDetails: models.EventDetails{EventDate: &date}}, ledger)
	assert.Equal(t, "200.00", refund.RefundAmount.StringFixed(2))
}
