package bookings

import (
	"time"

	"github.com/eventhub/eventhub-backend/pkg/db/models"
	"github.com/eventhub/eventhub-backend/pkg/enums"
	"github.com/eventhub/eventhub-backend/pkg/outbox"
	"github.com/eventhub/eventhub-backend/pkg/outbox/payloads"
)

// StateChangedEvent builds the order_state_changed event shared by every
// service that moves an order between statuses.
func StateChangedEvent(order *models.Order, from, to enums.OrderStatus, reason string, at time.Time, actor *outbox.ActorRef) outbox.DomainEvent {
	return outbox.DomainEvent{
		EventType:     enums.EventOrderStateChanged,
		AggregateType: enums.AggregateOrder,
		AggregateID:   order.ID,
		Actor:         actor,
		OccurredAt:    at,
		Data: payloads.OrderStateChangedEvent{
			OrderID:    order.ID,
			UserID:     order.UserID,
			VendorID:   order.VendorID,
			FromStatus: from,
			ToStatus:   to,
			Reason:     reason,
			ChangedAt:  at,
		},
	}
}

// CompletedStage is a timeline row for a milestone that has already happened.
func CompletedStage(order *models.Order, stage string, notes *string, at time.Time) *models.OrderTimeline {
	return &models.OrderTimeline{
		OrderID:     order.ID,
		Stage:       stage,
		Status:      enums.TimelineStatusCompleted,
		Notes:       notes,
		CompletedAt: &at,
	}
}

// OrderLink is the client route notifications point at.
func OrderLink(order *models.Order) string {
	return "/orders/" + order.ID.String()
}
