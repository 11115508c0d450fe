package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/eventhub/eventhub-backend/internal/bookings"
	"github.com/eventhub/eventhub-backend/internal/notifications"
	"github.com/eventhub/eventhub-backend/internal/pricing"
	"github.com/eventhub/eventhub-backend/pkg/db/models"
	"github.com/eventhub/eventhub-backend/pkg/enums"
	"github.com/eventhub/eventhub-backend/pkg/logger"
	"github.com/eventhub/eventhub-backend/pkg/metrics"
	"github.com/eventhub/eventhub-backend/pkg/outbox"
)

const (
	autoCompleteAfterDays = 30
	defaultUnpaidOrderTTL = 24 * time.Hour
)

// LifecycleJobParams configure the jobs that move orders between statuses.
type LifecycleJobParams struct {
	Logger    *logger.Logger
	DB        txRunner
	Store     OrderStore
	Outbox    outboxEmitter
	Leads     orderLeadCloser
	Notifier  notifications.Dispatcher
	Metrics   *metrics.CronJobMetrics
	Location  *time.Location
	UnpaidTTL time.Duration
}

// transitionRule describes one set-based status change.
type transitionRule struct {
	name    string
	reason  string
	stage   string
	to      enums.OrderStatus
	filter  func(now, today time.Time) OrderFilter
	updates func(now time.Time) map[string]any
	inTx    func(ctx context.Context, tx *gorm.DB, orderID uuid.UUID) error
	notify  func(order models.Order) []notifications.Notification
}

type transitionJob struct {
	rule     transitionRule
	logg     *logger.Logger
	db       txRunner
	store    OrderStore
	outbox   outboxEmitter
	notifier notifications.Dispatcher
	metrics  *metrics.CronJobMetrics
	loc      *time.Location
	now      func() time.Time
}

// NewPromoteInProgressJob moves confirmed orders to in_progress on their event day.
func NewPromoteInProgressJob(params LifecycleJobParams) (Job, error) {
	return newTransitionJob(params, transitionRule{
		name:   "order-promote-in-progress",
		reason: "event_day",
		stage:  bookings.StageInProgress,
		to:     enums.OrderStatusInProgress,
		filter: func(_, today time.Time) OrderFilter {
			return OrderFilter{Status: enums.OrderStatusConfirmed, EventDate: &today}
		},
		updates: func(time.Time) map[string]any {
			return map[string]any{"status": enums.OrderStatusInProgress}
		},
	})
}

// NewAutoCompleteJob completes orders left in progress long after their event.
func NewAutoCompleteJob(params LifecycleJobParams) (Job, error) {
	return newTransitionJob(params, transitionRule{
		name:   "order-auto-complete",
		reason: "auto_completed",
		stage:  bookings.StageCompleted,
		to:     enums.OrderStatusCompleted,
		filter: func(_, today time.Time) OrderFilter {
			cutoff := today.AddDate(0, 0, -autoCompleteAfterDays)
			return OrderFilter{Status: enums.OrderStatusInProgress, EventBefore: &cutoff}
		},
		updates: func(now time.Time) map[string]any {
			return map[string]any{"status": enums.OrderStatusCompleted, "completed_at": now}
		},
		notify: func(order models.Order) []notifications.Notification {
			return []notifications.Notification{{
				Kind:        enums.NotificationOrderCompleted,
				RecipientID: order.UserID,
				Role:        enums.ActorRoleCustomer,
				Title:       "Event completed",
				Message:     "Booking " + order.OrderNumber + " has been marked as completed.",
				OrderID:     &order.ID,
				Link:        bookings.OrderLink(&order),
			}}
		},
	})
}

// NewExpireUnpaidJob cancels orders whose token payment never arrived.
func NewExpireUnpaidJob(params LifecycleJobParams) (Job, error) {
	if params.Leads == nil {
		return nil, fmt.Errorf("lead ledger required")
	}
	if params.Store == nil {
		return nil, fmt.Errorf("order store required")
	}
	ttl := params.UnpaidTTL
	if ttl <= 0 {
		ttl = defaultUnpaidOrderTTL
	}
	return newTransitionJob(params, transitionRule{
		name:   "order-expire-unpaid",
		reason: "token_payment_timeout",
		stage:  bookings.StageExpired,
		to:     enums.OrderStatusCancelled,
		filter: func(now, _ time.Time) OrderFilter {
			awaiting := true
			cutoff := now.Add(-ttl)
			return OrderFilter{Status: enums.OrderStatusPending, AwaitingToken: &awaiting, CreatedBefore: &cutoff}
		},
		updates: func(now time.Time) map[string]any {
			return map[string]any{
				"status":                 enums.OrderStatusCancelled,
				"awaiting_token_payment": false,
				"cancelled_at":           now,
			}
		},
		// Token payments stay pending so a late gateway callback is still recorded.
		inTx: func(ctx context.Context, tx *gorm.DB, orderID uuid.UUID) error {
			return params.Leads.MarkDeclinedForOrder(ctx, tx, orderID)
		},
		notify: func(order models.Order) []notifications.Notification {
			return []notifications.Notification{{
				Kind:        enums.NotificationOrderExpired,
				RecipientID: order.UserID,
				Role:        enums.ActorRoleCustomer,
				Title:       "Booking expired",
				Message:     "Booking " + order.OrderNumber + " expired because the token payment was not received.",
				OrderID:     &order.ID,
				Link:        bookings.OrderLink(&order),
			}}
		},
	})
}

func newTransitionJob(params LifecycleJobParams, rule transitionRule) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.DB == nil {
		return nil, fmt.Errorf("db runner required")
	}
	if params.Store == nil {
		return nil, fmt.Errorf("order store required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox service required")
	}
	notifier := params.Notifier
	if notifier == nil {
		notifier = notifications.Noop{}
	}
	loc := params.Location
	if loc == nil {
		loc = time.UTC
	}
	return &transitionJob{
		rule:     rule,
		logg:     params.Logger,
		db:       params.DB,
		store:    params.Store,
		outbox:   params.Outbox,
		notifier: notifier,
		metrics:  params.Metrics,
		loc:      loc,
		now:      time.Now,
	}, nil
}

func (j *transitionJob) Name() string { return j.rule.name }

// Run moves each matching order in its own transaction. A failing order is
// reported and skipped; the rest of the batch still commits.
func (j *transitionJob) Run(ctx context.Context) error {
	now := j.now().UTC()
	today := pricing.Today(now, j.loc)
	filter := j.rule.filter(now, today)

	candidates, err := j.store.Find(ctx, filter)
	if err != nil {
		return fmt.Errorf("%s: select orders: %w", j.rule.name, err)
	}

	var (
		affected int64
		failed   int
		errs     error
	)
	for i := range candidates {
		order := candidates[i]
		moved, err := j.transition(ctx, &order, filter, now)
		if err != nil {
			failed++
			errs = multierr.Append(errs, fmt.Errorf("order %s: %w", order.ID, err))
			continue
		}
		if !moved {
			continue
		}
		affected++
		if j.rule.notify != nil {
			j.notifier.Notify(ctx, j.rule.notify(order)...)
		}
	}

	j.metrics.AddRows(j.rule.name, affected)
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"candidates":    len(candidates),
		"rows_affected": affected,
		"failed":        failed,
		"target_status": string(j.rule.to),
	})
	if errs != nil {
		j.logg.Error(logCtx, "order transition finished with failures", errs)
		return fmt.Errorf("%s: %w", j.rule.name, errs)
	}
	j.logg.Info(logCtx, "order transition complete")
	return nil
}

// transition reports false when the order no longer matches the filter.
func (j *transitionJob) transition(ctx context.Context, order *models.Order, filter OrderFilter, now time.Time) (bool, error) {
	from := order.Status
	var moved bool
	err := j.db.WithTx(ctx, func(tx *gorm.DB) error {
		n, err := j.store.Transition(ctx, tx, order.ID, filter, j.rule.updates(now))
		if err != nil {
			return fmt.Errorf("update order: %w", err)
		}
		if n == 0 {
			return nil
		}
		if j.rule.inTx != nil {
			if err := j.rule.inTx(ctx, tx, order.ID); err != nil {
				return err
			}
		}
		if err := j.store.AppendTimeline(ctx, tx, bookings.CompletedStage(order, j.rule.stage, nil, now)); err != nil {
			return fmt.Errorf("append timeline: %w", err)
		}
		event := bookings.StateChangedEvent(order, from, j.rule.to, j.rule.reason, now, outbox.SystemActor())
		if err := j.outbox.Emit(ctx, tx, event); err != nil {
			return fmt.Errorf("emit order state change: %w", err)
		}
		moved = true
		return nil
	})
	if err != nil || !moved {
		return false, err
	}
	order.Status = j.rule.to
	return true, nil
}
