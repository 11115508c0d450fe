package enums

import "fmt"

// NotificationKind names the message template a dispatcher should render.
type NotificationKind string

const (
	NotificationOfferReceived        NotificationKind = "offer_received"
	NotificationOfferCountered       NotificationKind = "offer_countered"
	NotificationOfferRecountered     NotificationKind = "offer_recountered"
	NotificationOfferAccepted        NotificationKind = "offer_accepted"
	NotificationOfferRejected        NotificationKind = "offer_rejected"
	NotificationOfferWithdrawn       NotificationKind = "offer_withdrawn"
	NotificationTokenPaymentReceived NotificationKind = "token_payment_received"
	NotificationOrderConfirmed       NotificationKind = "order_confirmed"
	NotificationOrderUpcoming        NotificationKind = "order_upcoming"
	NotificationOrderCompletionDue   NotificationKind = "order_completion_due"
	NotificationOrderOverdue         NotificationKind = "order_overdue"
	NotificationOrderCompleted       NotificationKind = "order_completed"
	NotificationOrderCancelled       NotificationKind = "order_cancelled"
	NotificationOrderExpired         NotificationKind = "order_expired"
)

var validNotificationKinds = []NotificationKind{
	NotificationOfferReceived,
	NotificationOfferCountered,
	NotificationOfferRecountered,
	NotificationOfferAccepted,
	NotificationOfferRejected,
	NotificationOfferWithdrawn,
	NotificationTokenPaymentReceived,
	NotificationOrderConfirmed,
	NotificationOrderUpcoming,
	NotificationOrderCompletionDue,
	NotificationOrderOverdue,
	NotificationOrderCompleted,
	NotificationOrderCancelled,
	NotificationOrderExpired,
}

// String implements fmt.Stringer.
func (n NotificationKind) String() string {
	return string(n)
}

// IsValid reports whether the value is a known NotificationKind.
func (n NotificationKind) IsValid() bool {
	for _, candidate := range validNotificationKinds {
		if candidate == n {
			return true
		}
	}
	return false
}

// ParseNotificationKind converts raw input into a NotificationKind.
func ParseNotificationKind(value string) (NotificationKind, error) {
	for _, candidate := range validNotificationKinds {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid notification kind %q", value)
}
