package payloads

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/eventhub/eventhub-backend/pkg/enums"
)

// OfferStateChangedEvent is emitted on every negotiation transition.
type OfferStateChangedEvent struct {
	OfferID      uuid.UUID         `json:"offer_id"`
	ThreadID     uuid.UUID         `json:"thread_id"`
	ListingID    uuid.UUID         `json:"listing_id"`
	UserID       uuid.UUID         `json:"user_id"`
	VendorID     uuid.UUID         `json:"vendor_id"`
	FromStatus   enums.OfferStatus `json:"from_status,omitempty"`
	ToStatus     enums.OfferStatus `json:"to_status"`
	OfferedPrice decimal.Decimal   `json:"offered_price"`
	CounterPrice *decimal.Decimal  `json:"counter_price,omitempty"`
	OrderID      *uuid.UUID        `json:"order_id,omitempty"`
}

// OrderCreatedEvent is emitted when an accepted offer becomes an order.
type OrderCreatedEvent struct {
	OrderID     uuid.UUID       `json:"order_id"`
	OrderNumber string          `json:"order_number"`
	OfferID     *uuid.UUID      `json:"offer_id,omitempty"`
	UserID      uuid.UUID       `json:"user_id"`
	VendorID    uuid.UUID       `json:"vendor_id"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	TokenAmount decimal.Decimal `json:"token_amount"`
	EventDate   *time.Time      `json:"event_date,omitempty"`
}

// OrderStateChangedEvent covers confirmation, progress, completion,
// cancellation and expiry.
type OrderStateChangedEvent struct {
	OrderID    uuid.UUID         `json:"order_id"`
	UserID     uuid.UUID         `json:"user_id"`
	VendorID   uuid.UUID         `json:"vendor_id"`
	FromStatus enums.OrderStatus `json:"from_status,omitempty"`
	ToStatus   enums.OrderStatus `json:"to_status"`
	Reason     string            `json:"reason,omitempty"`
	ChangedAt  time.Time         `json:"changed_at"`
}

// PaymentEvent is shared by the completed, failed and refunded payment events.
type PaymentEvent struct {
	PaymentID     uuid.UUID           `json:"payment_id"`
	OrderID       uuid.UUID           `json:"order_id"`
	UserID        uuid.UUID           `json:"user_id"`
	VendorID      uuid.UUID           `json:"vendor_id"`
	PaymentType   enums.PaymentType   `json:"payment_type"`
	Status        enums.PaymentStatus `json:"status"`
	Amount        decimal.Decimal     `json:"amount"`
	TransactionID string              `json:"transaction_id,omitempty"`
	FailureReason string              `json:"failure_reason,omitempty"`
}

// NotificationRequestedEvent asks the notification service to alert one recipient.
type NotificationRequestedEvent struct {
	Kind        enums.NotificationKind `json:"kind"`
	RecipientID uuid.UUID              `json:"recipient_id"`
	Role        enums.ActorRole        `json:"role"`
	Title       string                 `json:"title"`
	Message     string                 `json:"message"`
	OrderID     *uuid.UUID             `json:"order_id,omitempty"`
	OfferID     *uuid.UUID             `json:"offer_id,omitempty"`
	Link        string                 `json:"link,omitempty"`
}
