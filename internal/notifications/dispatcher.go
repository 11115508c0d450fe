// Package notifications turns booking milestones into notification_requested
// outbox events. Delivery (push, email, in-app) belongs to the notification
// service that consumes the notification topic.
package notifications

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/eventhub/eventhub-backend/pkg/enums"
	pkgerrors "github.com/eventhub/eventhub-backend/pkg/errors"
	"github.com/eventhub/eventhub-backend/pkg/logger"
	"github.com/eventhub/eventhub-backend/pkg/outbox"
	"github.com/eventhub/eventhub-backend/pkg/outbox/payloads"
)

// Notification is one message for one recipient. Vendor notifications carry
// the vendor id as recipient; the consumer fans out to the vendor's users.
type Notification struct {
	Kind        enums.NotificationKind
	RecipientID uuid.UUID
	Role        enums.ActorRole
	Title       string
	Message     string
	OrderID     *uuid.UUID
	OfferID     *uuid.UUID
	Link        string
}

// Dispatcher is fire-and-forget: failures are logged, never returned, so a
// notification problem can never undo a committed booking change.
type Dispatcher interface {
	Notify(ctx context.Context, notes ...Notification)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// OutboxDispatcher writes each batch of notifications in its own small transaction.
type OutboxDispatcher struct {
	tx      txRunner
	emitter outbox.Emitter
	logg    *logger.Logger
}

func NewDispatcher(tx txRunner, emitter outbox.Emitter, logg *logger.Logger) (*OutboxDispatcher, error) {
	if tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "transaction runner required")
	}
	if emitter == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "outbox emitter required")
	}
	if logg == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "logger required")
	}
	return &OutboxDispatcher{tx: tx, emitter: emitter, logg: logg}, nil
}

func (d *OutboxDispatcher) Notify(ctx context.Context, notes ...Notification) {
	valid := make([]Notification, 0, len(notes))
	for _, note := range notes {
		if note.RecipientID == uuid.Nil || !note.Kind.IsValid() {
			d.logg.Warn(d.logg.WithField(ctx, "kind", note.Kind), "notification.skipped_invalid")
			continue
		}
		valid = append(valid, note)
	}
	if len(valid) == 0 {
		return
	}

	err := d.tx.WithTx(ctx, func(tx *gorm.DB) error {
		for _, note := range valid {
			if err := d.emitter.Emit(ctx, tx, eventFor(note)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		logCtx := d.logg.WithFields(ctx, map[string]any{
			"kind":      valid[0].Kind,
			"count":     len(valid),
			"recipient": valid[0].RecipientID.String(),
		})
		d.logg.Error(logCtx, "notification.dispatch_failed", err)
	}
}

func eventFor(note Notification) outbox.DomainEvent {
	return outbox.DomainEvent{
		EventType:     enums.EventNotificationRequested,
		AggregateType: enums.AggregateNotification,
		AggregateID:   aggregateID(note),
		Actor:         outbox.SystemActor(),
		Data: payloads.NotificationRequestedEvent{
			Kind:        note.Kind,
			RecipientID: note.RecipientID,
			Role:        note.Role,
			Title:       note.Title,
			Message:     note.Message,
			OrderID:     note.OrderID,
			OfferID:     note.OfferID,
			Link:        note.Link,
		},
	}
}

// aggregateID keys the event on the booking it describes so consumers can
// order notifications per order or offer.
func aggregateID(note Notification) uuid.UUID {
	if note.OrderID != nil && *note.OrderID != uuid.Nil {
		return *note.OrderID
	}
	if note.OfferID != nil && *note.OfferID != uuid.Nil {
		return *note.OfferID
	}
	return note.RecipientID
}

// Noop drops every notification. Used by workers started without an outbox.
type Noop struct{}

func (Noop) Notify(context.Context, ...Notification) {}
