package enums

import "fmt"

// OutboxAggregateType maps to outbox_events.aggregate_type.
type OutboxAggregateType string

const (
	AggregateOffer        OutboxAggregateType = "offer"
	AggregateOrder        OutboxAggregateType = "order"
	AggregatePayment      OutboxAggregateType = "payment"
	AggregateLead         OutboxAggregateType = "lead"
	AggregateNotification OutboxAggregateType = "notification"
)

var validAggregateTypes = []OutboxAggregateType{
	AggregateOffer,
	AggregateOrder,
	AggregatePayment,
	AggregateLead,
	AggregateNotification,
}

// IsValid reports whether the value matches a known aggregate type.
func (a OutboxAggregateType) IsValid() bool {
	for _, candidate := range validAggregateTypes {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseOutboxAggregateType converts raw input into OutboxAggregateType.
func ParseOutboxAggregateType(value string) (OutboxAggregateType, error) {
	for _, candidate := range validAggregateTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid aggregate type %q", value)
}

// OutboxEventType maps to outbox_events.event_type.
type OutboxEventType string

const (
	EventOfferStateChanged     OutboxEventType = "offer_state_changed"
	EventOrderCreated          OutboxEventType = "order_created"
	EventOrderStateChanged     OutboxEventType = "order_state_changed"
	EventPaymentCompleted      OutboxEventType = "payment_completed"
	EventPaymentFailed         OutboxEventType = "payment_failed"
	EventPaymentRefunded       OutboxEventType = "payment_refunded"
	EventNotificationRequested OutboxEventType = "notification_requested"
)

var validOutboxEventTypes = []OutboxEventType{
	EventOfferStateChanged,
	EventOrderCreated,
	EventOrderStateChanged,
	EventPaymentCompleted,
	EventPaymentFailed,
	EventPaymentRefunded,
	EventNotificationRequested,
}

// IsValid reports whether the value matches a known event type.
func (e OutboxEventType) IsValid() bool {
	for _, candidate := range validOutboxEventTypes {
		if candidate == e {
			return true
		}
	}
	return false
}

// ParseOutboxEventType converts raw input into OutboxEventType.
func ParseOutboxEventType(value string) (OutboxEventType, error) {
	for _, candidate := range validOutboxEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid event type %q", value)
}
