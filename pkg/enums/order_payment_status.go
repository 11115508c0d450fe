package enums

import "fmt"

// OrderPaymentStatus summarises how much of an order has been paid.
type OrderPaymentStatus string

const (
	OrderPaymentPending  OrderPaymentStatus = "pending"
	OrderPaymentPartial  OrderPaymentStatus = "partial"
	OrderPaymentPaid     OrderPaymentStatus = "paid"
	OrderPaymentRefunded OrderPaymentStatus = "refunded"
)

var validOrderPaymentStatuses = []OrderPaymentStatus{
	OrderPaymentPending,
	OrderPaymentPartial,
	OrderPaymentPaid,
	OrderPaymentRefunded,
}

// String implements fmt.Stringer.
func (o OrderPaymentStatus) String() string {
	return string(o)
}

// IsValid reports whether the value is a known OrderPaymentStatus.
func (o OrderPaymentStatus) IsValid() bool {
	for _, candidate := range validOrderPaymentStatuses {
		if candidate == o {
			return true
		}
	}
	return false
}

// ParseOrderPaymentStatus converts raw input into a OrderPaymentStatus.
func ParseOrderPaymentStatus(value string) (OrderPaymentStatus, error) {
	for _, candidate := range validOrderPaymentStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid order payment status %q", value)
}
