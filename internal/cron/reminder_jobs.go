package cron

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/multierr"

	"github.com/eventhub/eventhub-backend/internal/bookings"
	"github.com/eventhub/eventhub-backend/internal/notifications"
	"github.com/eventhub/eventhub-backend/internal/pricing"
	"github.com/eventhub/eventhub-backend/pkg/db/models"
	"github.com/eventhub/eventhub-backend/pkg/enums"
	"github.com/eventhub/eventhub-backend/pkg/logger"
	"github.com/eventhub/eventhub-backend/pkg/metrics"
)

const (
	upcomingReminderDays   = 7
	overdueAfterDays       = 7
	defaultReminderDedupe  = 48 * time.Hour
	reminderKindUpcoming   = "upcoming"
	reminderKindCompletion = "completion"
	reminderKindOverdue    = "overdue"
)

// ReminderJobParams configure the notification-only order jobs.
type ReminderJobParams struct {
	Logger    *logger.Logger
	Store     OrderStore
	Dedupe    reminderStore
	Notifier  notifications.Dispatcher
	Metrics   *metrics.CronJobMetrics
	Location  *time.Location
	DedupeTTL time.Duration
}

type reminderRule struct {
	name   string
	kind   string
	filter func(today time.Time) OrderFilter
	build  func(order models.Order) []notifications.Notification
}

type reminderJob struct {
	rule     reminderRule
	logg     *logger.Logger
	store    OrderStore
	dedupe   reminderStore
	notifier notifications.Dispatcher
	metrics  *metrics.CronJobMetrics
	loc      *time.Location
	ttl      time.Duration
	now      func() time.Time
}

// NewUpcomingReminderJob reminds both parties a week before a confirmed event.
func NewUpcomingReminderJob(params ReminderJobParams) (Job, error) {
	return newReminderJob(params, reminderRule{
		name: "order-upcoming-reminder",
		kind: reminderKindUpcoming,
		filter: func(today time.Time) OrderFilter {
			day := today.AddDate(0, 0, upcomingReminderDays)
			return OrderFilter{Status: enums.OrderStatusConfirmed, EventDate: &day}
		},
		build: func(order models.Order) []notifications.Notification {
			message := fmt.Sprintf("Booking %s is scheduled for %s.", order.OrderNumber, formatEventDate(order))
			return []notifications.Notification{
				{
					Kind:        enums.NotificationOrderUpcoming,
					RecipientID: order.VendorID,
					Role:        enums.ActorRoleVendor,
					Title:       "Upcoming event in 7 days",
					Message:     message,
					OrderID:     &order.ID,
					Link:        bookings.OrderLink(&order),
				},
				{
					Kind:        enums.NotificationOrderUpcoming,
					RecipientID: order.UserID,
					Role:        enums.ActorRoleCustomer,
					Title:       "Your event is in 7 days",
					Message:     message,
					OrderID:     &order.ID,
					Link:        bookings.OrderLink(&order),
				},
			}
		},
	})
}

// NewCompletionReminderJob asks vendors to close out yesterday's events.
func NewCompletionReminderJob(params ReminderJobParams) (Job, error) {
	return newReminderJob(params, reminderRule{
		name: "order-completion-reminder",
		kind: reminderKindCompletion,
		filter: func(today time.Time) OrderFilter {
			day := today.AddDate(0, 0, -1)
			return OrderFilter{Status: enums.OrderStatusInProgress, EventDate: &day}
		},
		build: func(order models.Order) []notifications.Notification {
			return []notifications.Notification{{
				Kind:        enums.NotificationOrderCompletionDue,
				RecipientID: order.VendorID,
				Role:        enums.ActorRoleVendor,
				Title:       "Mark the event as completed",
				Message:     fmt.Sprintf("The event for booking %s took place on %s. Mark it completed once delivered.", order.OrderNumber, formatEventDate(order)),
				OrderID:     &order.ID,
				Link:        bookings.OrderLink(&order),
			}}
		},
	})
}

// NewOverdueReminderJob flags in-progress orders whose event passed over a week ago.
func NewOverdueReminderJob(params ReminderJobParams) (Job, error) {
	return newReminderJob(params, reminderRule{
		name: "order-overdue-reminder",
		kind: reminderKindOverdue,
		filter: func(today time.Time) OrderFilter {
			cutoff := today.AddDate(0, 0, -overdueAfterDays)
			return OrderFilter{Status: enums.OrderStatusInProgress, EventBefore: &cutoff}
		},
		build: func(order models.Order) []notifications.Notification {
			return []notifications.Notification{{
				Kind:        enums.NotificationOrderOverdue,
				RecipientID: order.VendorID,
				Role:        enums.ActorRoleVendor,
				Title:       "Booking completion overdue",
				Message:     fmt.Sprintf("Booking %s is still in progress. Mark it completed to settle the balance.", order.OrderNumber),
				OrderID:     &order.ID,
				Link:        bookings.OrderLink(&order),
			}}
		},
	})
}

func newReminderJob(params ReminderJobParams, rule reminderRule) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Store == nil {
		return nil, fmt.Errorf("order store required")
	}
	if params.Notifier == nil {
		return nil, fmt.Errorf("notifier required")
	}
	loc := params.Location
	if loc == nil {
		loc = time.UTC
	}
	ttl := params.DedupeTTL
	if ttl <= 0 {
		ttl = defaultReminderDedupe
	}
	return &reminderJob{
		rule:     rule,
		logg:     params.Logger,
		store:    params.Store,
		dedupe:   params.Dedupe,
		notifier: params.Notifier,
		metrics:  params.Metrics,
		loc:      loc,
		ttl:      ttl,
		now:      time.Now,
	}, nil
}

func (j *reminderJob) Name() string { return j.rule.name }

func (j *reminderJob) Run(ctx context.Context) error {
	today := pricing.Today(j.now(), j.loc)
	orders, err := j.store.Find(ctx, j.rule.filter(today))
	if err != nil {
		return fmt.Errorf("%s: select orders: %w", j.rule.name, err)
	}

	day := today.Format(time.DateOnly)
	var (
		sent int64
		errs error
	)
	for _, order := range orders {
		fresh, err := j.claim(ctx, order, day)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("order %s: %w", order.ID, err))
			continue
		}
		if !fresh {
			continue
		}
		j.notifier.Notify(ctx, j.rule.build(order)...)
		sent++
	}

	j.metrics.AddRows(j.rule.name, sent)
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"candidates": len(orders),
		"sent":       sent,
	})
	j.logg.Info(logCtx, "order reminders dispatched")
	return errs
}

// claim reports whether this reminder has not gone out for the order today.
// Without a dedupe store every run notifies.
func (j *reminderJob) claim(ctx context.Context, order models.Order, day string) (bool, error) {
	if j.dedupe == nil {
		return true, nil
	}
	key := j.dedupe.ReminderKey(j.rule.kind, order.ID.String(), day)
	return j.dedupe.SetNX(ctx, key, order.OrderNumber, j.ttl)
}

func formatEventDate(order models.Order) string {
	if order.EventDate == nil {
		return "the scheduled date"
	}
	return pricing.DateOnly(*order.EventDate).Format("02 Jan 2006")
}
