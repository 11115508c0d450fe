package cron

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/eventhub/eventhub-backend/internal/bookings"
	"github.com/eventhub/eventhub-backend/internal/catalog"
	"github.com/eventhub/eventhub-backend/internal/leads"
	"github.com/eventhub/eventhub-backend/internal/notifications"
	"github.com/eventhub/eventhub-backend/internal/testdb"
	"github.com/eventhub/eventhub-backend/pkg/db"
	"github.com/eventhub/eventhub-backend/pkg/db/models"
	"github.com/eventhub/eventhub-backend/pkg/enums"
	"github.com/eventhub/eventhub-backend/pkg/outbox"
)

var cronNow = time.Date(2026, 10, 16, 10, 0, 0, 0, time.UTC)

type recordingNotifier struct {
	notes []notifications.Notification
}

func (r *recordingNotifier) Notify(_ context.Context, notes ...notifications.Notification) {
	r.notes = append(r.notes, notes...)
}

type lifecycleHarness struct {
	conn     *gorm.DB
	fx       testdb.Fixture
	notifier *recordingNotifier
	params   LifecycleJobParams
}

func newLifecycleHarness(t *testing.T) *lifecycleHarness {
	t.Helper()
	conn := testdb.Open(t)
	ledger, err := leads.NewService(leads.ServiceParams{
		Repository: leads.NewRepository(conn),
		Catalog:    catalog.NewRepository(conn),
	})
	if err != nil {
		t.Fatalf("lead ledger: %v", err)
	}
	h := &lifecycleHarness{
		conn:     conn,
		fx:       testdb.MustSeed(t, conn, "10000"),
		notifier: &recordingNotifier{},
	}
	h.params = LifecycleJobParams{
		Logger:   testLogger(),
		DB:       db.NewFromConn(conn),
		Store:    NewOrderStore(conn),
		Outbox:   outbox.NewService(outbox.NewRepository(conn), nil),
		Leads:    ledger,
		Notifier: h.notifier,
	}
	return h
}

func (h *lifecycleHarness) order(t *testing.T, status enums.OrderStatus, eventDate *time.Time, createdAt time.Time, awaiting bool) models.Order {
	t.Helper()
	order := models.Order{
		ID:                   uuid.New(),
		OrderNumber:          "EVT-2026-" + uuid.NewString()[:6],
		UserID:               h.fx.Customer.ID,
		VendorID:             h.fx.Vendor.ID,
		ListingID:            h.fx.Listing.ID,
		ItemType:             enums.ItemTypePackage,
		EventDetails:         models.EventDetails{EventDate: eventDate},
		BaseAmount:           decimal.RequireFromString("10000"),
		TotalAmount:          decimal.RequireFromString("10455"),
		TokenAmount:          decimal.RequireFromString("2614"),
		BalanceAmount:        decimal.RequireFromString("10455"),
		PaymentStatus:        enums.OrderPaymentPending,
		Status:               status,
		AwaitingTokenPayment: awaiting,
		CreatedAt:            createdAt,
	}
	if err := h.conn.Create(&order).Error; err != nil {
		t.Fatalf("create order: %v", err)
	}
	return order
}

func (h *lifecycleHarness) reload(t *testing.T, id uuid.UUID) models.Order {
	t.Helper()
	var order models.Order
	if err := h.conn.First(&order, "id = ?", id).Error; err != nil {
		t.Fatalf("reload order: %v", err)
	}
	return order
}

func (h *lifecycleHarness) timeline(t *testing.T, id uuid.UUID) []models.OrderTimeline {
	t.Helper()
	var rows []models.OrderTimeline
	if err := h.conn.Where("order_id = ?", id).Find(&rows).Error; err != nil {
		t.Fatalf("load timeline: %v", err)
	}
	return rows
}

func (h *lifecycleHarness) stateEvents(t *testing.T, id uuid.UUID) int64 {
	t.Helper()
	var count int64
	if err := h.conn.Model(&models.OutboxEvent{}).
		Where("aggregate_id = ? AND event_type = ?", id, enums.EventOrderStateChanged).
		Count(&count).Error; err != nil {
		t.Fatalf("count events: %v", err)
	}
	return count
}

func asTransitionJob(t *testing.T, job Job, err error) *transitionJob {
	t.Helper()
	if err != nil {
		t.Fatalf("build job: %v", err)
	}
	typed, ok := job.(*transitionJob)
	if !ok {
		t.Fatalf("expected transitionJob, got %T", job)
	}
	typed.now = func() time.Time { return cronNow }
	return typed
}

func datePtr(days int) *time.Time {
	d := time.Date(2026, 10, 16, 0, 0, 0, 0, time.UTC).AddDate(0, 0, days)
	return &d
}

func TestExpireUnpaidCancelsStaleOrdersOnce(t *testing.T) {
	h := newLifecycleHarness(t)
	stale := h.order(t, enums.OrderStatusPending, datePtr(60), cronNow.Add(-25*time.Hour), true)
	fresh := h.order(t, enums.OrderStatusPending, datePtr(60), cronNow.Add(-2*time.Hour), true)
	direct := h.order(t, enums.OrderStatusPending, datePtr(60), cronNow.Add(-72*time.Hour), false)

	placeholder := models.Payment{
		ID:          uuid.New(),
		OrderID:     stale.ID,
		UserID:      stale.UserID,
		VendorID:    stale.VendorID,
		Amount:      stale.TokenAmount,
		PaymentType: enums.PaymentTypeToken,
		Status:      enums.PaymentStatusPending,
	}
	if err := h.conn.Create(&placeholder).Error; err != nil {
		t.Fatalf("create payment: %v", err)
	}
	lead := models.Lead{
		ID:       uuid.New(),
		VendorID: h.fx.Vendor.ID,
		UserID:   h.fx.Customer.ID,
		Name:     "Asha Rao",
		Status:   enums.LeadStatusConverted,
		Source:   enums.LeadSourceOffer,
		OrderID:  &stale.ID,
	}
	if err := h.conn.Create(&lead).Error; err != nil {
		t.Fatalf("create lead: %v", err)
	}

	jobBuilt, jobErr := NewExpireUnpaidJob(h.params)
	job := asTransitionJob(t, jobBuilt, jobErr)
	if job.Name() != "order-expire-unpaid" {
		t.Fatalf("unexpected job name %s", job.Name())
	}
	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	expired := h.reload(t, stale.ID)
	if expired.Status != enums.OrderStatusCancelled {
		t.Fatalf("expected stale order cancelled, got %s", expired.Status)
	}
	if expired.AwaitingTokenPayment {
		t.Fatal("expected awaiting flag cleared")
	}
	if expired.CancelledAt == nil {
		t.Fatal("expected cancelled_at set")
	}
	if got := h.reload(t, fresh.ID).Status; got != enums.OrderStatusPending {
		t.Fatalf("fresh order should stay pending, got %s", got)
	}
	if got := h.reload(t, direct.ID).Status; got != enums.OrderStatusPending {
		t.Fatalf("order not awaiting a token should stay pending, got %s", got)
	}

	var payment models.Payment
	if err := h.conn.First(&payment, "id = ?", placeholder.ID).Error; err != nil {
		t.Fatalf("reload payment: %v", err)
	}
	if payment.Status != enums.PaymentStatusPending {
		t.Fatalf("expected placeholder left pending for a late callback, got %s", payment.Status)
	}
	var storedLead models.Lead
	if err := h.conn.First(&storedLead, "id = ?", lead.ID).Error; err != nil {
		t.Fatalf("reload lead: %v", err)
	}
	if storedLead.Status != enums.LeadStatusDeclined {
		t.Fatalf("expected lead declined, got %s", storedLead.Status)
	}

	rows := h.timeline(t, stale.ID)
	if len(rows) != 1 || rows[0].Stage != bookings.StageExpired {
		t.Fatalf("expected one expiry timeline row, got %+v", rows)
	}
	if got := h.stateEvents(t, stale.ID); got != 1 {
		t.Fatalf("expected one state event, got %d", got)
	}
	if len(h.notifier.notes) != 1 || h.notifier.notes[0].Kind != enums.NotificationOrderExpired {
		t.Fatalf("expected one expiry notification, got %+v", h.notifier.notes)
	}
	if h.notifier.notes[0].RecipientID != h.fx.Customer.ID {
		t.Fatal("expiry notification should go to the customer")
	}

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("second Run: %v", err)
	}
	if rows := h.timeline(t, stale.ID); len(rows) != 1 {
		t.Fatalf("re-run should not append timeline rows, got %d", len(rows))
	}
	if got := h.stateEvents(t, stale.ID); got != 1 {
		t.Fatalf("re-run should not emit events, got %d", got)
	}
	if len(h.notifier.notes) != 1 {
		t.Fatalf("re-run should not notify, got %d notes", len(h.notifier.notes))
	}
}

type failingEmitter struct {
	next   outboxEmitter
	failOn uuid.UUID
}

func (f failingEmitter) Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error {
	if event.AggregateID == f.failOn {
		return errors.New("outbox unavailable")
	}
	return f.next.Emit(ctx, tx, event)
}

func TestTransitionFailureIsolatedToOneOrder(t *testing.T) {
	h := newLifecycleHarness(t)
	first := h.order(t, enums.OrderStatusPending, datePtr(60), cronNow.Add(-30*time.Hour), true)
	broken := h.order(t, enums.OrderStatusPending, datePtr(60), cronNow.Add(-28*time.Hour), true)
	last := h.order(t, enums.OrderStatusPending, datePtr(60), cronNow.Add(-26*time.Hour), true)

	h.params.Outbox = failingEmitter{next: h.params.Outbox, failOn: broken.ID}
	jobBuilt, jobErr := NewExpireUnpaidJob(h.params)
	job := asTransitionJob(t, jobBuilt, jobErr)
	err := job.Run(context.Background())
	if err == nil {
		t.Fatal("expected the failed order to be reported")
	}
	if !strings.Contains(err.Error(), broken.ID.String()) {
		t.Fatalf("error should name the failed order, got %v", err)
	}

	for _, id := range []uuid.UUID{first.ID, last.ID} {
		if got := h.reload(t, id).Status; got != enums.OrderStatusCancelled {
			t.Fatalf("order %s should still expire, got %s", id, got)
		}
		if rows := h.timeline(t, id); len(rows) != 1 {
			t.Fatalf("expected one timeline row for %s, got %d", id, len(rows))
		}
	}
	stuck := h.reload(t, broken.ID)
	if stuck.Status != enums.OrderStatusPending || !stuck.AwaitingTokenPayment {
		t.Fatalf("failed order should roll back, got %s awaiting=%v", stuck.Status, stuck.AwaitingTokenPayment)
	}
	if rows := h.timeline(t, broken.ID); len(rows) != 0 {
		t.Fatalf("failed order should have no timeline rows, got %d", len(rows))
	}
	if len(h.notifier.notes) != 2 {
		t.Fatalf("expected notifications for the two moved orders, got %d", len(h.notifier.notes))
	}

	h.params.Outbox = h.params.Outbox.(failingEmitter).next
	retryBuilt, retryErr := NewExpireUnpaidJob(h.params)
	retry := asTransitionJob(t, retryBuilt, retryErr)
	if err := retry.Run(context.Background()); err != nil {
		t.Fatalf("retry Run: %v", err)
	}
	if got := h.reload(t, broken.ID).Status; got != enums.OrderStatusCancelled {
		t.Fatalf("next cycle should expire the order, got %s", got)
	}
	if got := h.stateEvents(t, first.ID); got != 1 {
		t.Fatalf("moved orders should not be touched again, got %d events", got)
	}
}

func TestExpireUnpaidHonoursConfiguredTTL(t *testing.T) {
	h := newLifecycleHarness(t)
	order := h.order(t, enums.OrderStatusPending, nil, cronNow.Add(-3*time.Hour), true)

	h.params.UnpaidTTL = 2 * time.Hour
	jobBuilt, jobErr := NewExpireUnpaidJob(h.params)
	job := asTransitionJob(t, jobBuilt, jobErr)
	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got := h.reload(t, order.ID).Status; got != enums.OrderStatusCancelled {
		t.Fatalf("expected order cancelled after short ttl, got %s", got)
	}
}

func TestPromoteInProgressOnEventDay(t *testing.T) {
	h := newLifecycleHarness(t)
	today := h.order(t, enums.OrderStatusConfirmed, datePtr(0), cronNow.Add(-48*time.Hour), false)
	tomorrow := h.order(t, enums.OrderStatusConfirmed, datePtr(1), cronNow.Add(-48*time.Hour), false)
	pending := h.order(t, enums.OrderStatusPending, datePtr(0), cronNow.Add(-2*time.Hour), true)

	jobBuilt, jobErr := NewPromoteInProgressJob(h.params)
	job := asTransitionJob(t, jobBuilt, jobErr)
	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if got := h.reload(t, today.ID).Status; got != enums.OrderStatusInProgress {
		t.Fatalf("expected in_progress, got %s", got)
	}
	if got := h.reload(t, tomorrow.ID).Status; got != enums.OrderStatusConfirmed {
		t.Fatalf("tomorrow's event should stay confirmed, got %s", got)
	}
	if got := h.reload(t, pending.ID).Status; got != enums.OrderStatusPending {
		t.Fatalf("unconfirmed order should not start, got %s", got)
	}
	rows := h.timeline(t, today.ID)
	if len(rows) != 1 || rows[0].Stage != bookings.StageInProgress {
		t.Fatalf("expected in-progress timeline row, got %+v", rows)
	}
	if len(h.notifier.notes) != 0 {
		t.Fatalf("promotion sends no notifications, got %d", len(h.notifier.notes))
	}

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("second Run: %v", err)
	}
	if rows := h.timeline(t, today.ID); len(rows) != 1 {
		t.Fatalf("re-run should be a no-op, got %d timeline rows", len(rows))
	}
}

func TestPromoteUsesConfiguredTimezone(t *testing.T) {
	h := newLifecycleHarness(t)
	// 20:00 UTC on the 16th is already the 17th in Kolkata.
	order := h.order(t, enums.OrderStatusConfirmed, datePtr(1), cronNow.Add(-48*time.Hour), false)

	kolkata, err := time.LoadLocation("Asia/Kolkata")
	if err != nil {
		t.Skipf("timezone data unavailable: %v", err)
	}
	h.params.Location = kolkata
	jobBuilt, jobErr := NewPromoteInProgressJob(h.params)
	job := asTransitionJob(t, jobBuilt, jobErr)
	job.now = func() time.Time { return time.Date(2026, 10, 16, 20, 0, 0, 0, time.UTC) }
	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got := h.reload(t, order.ID).Status; got != enums.OrderStatusInProgress {
		t.Fatalf("expected local event day to promote, got %s", got)
	}
}

func TestAutoCompleteClosesLongFinishedEvents(t *testing.T) {
	h := newLifecycleHarness(t)
	old := h.order(t, enums.OrderStatusInProgress, datePtr(-31), cronNow.Add(-60*24*time.Hour), false)
	recent := h.order(t, enums.OrderStatusInProgress, datePtr(-30), cronNow.Add(-60*24*time.Hour), false)

	jobBuilt, jobErr := NewAutoCompleteJob(h.params)
	job := asTransitionJob(t, jobBuilt, jobErr)
	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	completed := h.reload(t, old.ID)
	if completed.Status != enums.OrderStatusCompleted {
		t.Fatalf("expected completed, got %s", completed.Status)
	}
	if completed.CompletedAt == nil {
		t.Fatal("expected completed_at set")
	}
	if got := h.reload(t, recent.ID).Status; got != enums.OrderStatusInProgress {
		t.Fatalf("event 30 days ago should stay in progress, got %s", got)
	}
	if got := h.stateEvents(t, old.ID); got != 1 {
		t.Fatalf("expected one state event, got %d", got)
	}
	if len(h.notifier.notes) != 1 || h.notifier.notes[0].Kind != enums.NotificationOrderCompleted {
		t.Fatalf("expected completion notification, got %+v", h.notifier.notes)
	}
}

func TestTransitionJobRequiresDependencies(t *testing.T) {
	if _, err := NewPromoteInProgressJob(LifecycleJobParams{}); err == nil {
		t.Fatal("expected missing logger error")
	}
	if _, err := NewPromoteInProgressJob(LifecycleJobParams{Logger: testLogger()}); err == nil {
		t.Fatal("expected missing db error")
	}
	if _, err := NewExpireUnpaidJob(LifecycleJobParams{Logger: testLogger()}); err == nil {
		t.Fatal("expected missing lead ledger error")
	}
}
