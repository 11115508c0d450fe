package enums

import "fmt"

// OfferStatus is the negotiation state of an offer.
type OfferStatus string

const (
	OfferStatusPending   OfferStatus = "pending"
	OfferStatusCountered OfferStatus = "countered"
	OfferStatusAccepted  OfferStatus = "accepted"
	OfferStatusRejected  OfferStatus = "rejected"
	OfferStatusWithdrawn OfferStatus = "withdrawn"
)

var validOfferStatuses = []OfferStatus{
	OfferStatusPending,
	OfferStatusCountered,
	OfferStatusAccepted,
	OfferStatusRejected,
	OfferStatusWithdrawn,
}

// String implements fmt.Stringer.
func (o OfferStatus) String() string {
	return string(o)
}

// IsValid reports whether the value is a known OfferStatus.
func (o OfferStatus) IsValid() bool {
	for _, candidate := range validOfferStatuses {
		if candidate == o {
			return true
		}
	}
	return false
}

// ParseOfferStatus converts raw input into a OfferStatus.
func ParseOfferStatus(value string) (OfferStatus, error) {
	for _, candidate := range validOfferStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid offer status %q", value)
}

// IsActive reports whether the offer still occupies its thread/listing slot.
func (o OfferStatus) IsActive() bool {
	return o == OfferStatusPending || o == OfferStatusCountered
}

// IsTerminal reports whether no further transition is possible.
func (o OfferStatus) IsTerminal() bool {
	return o == OfferStatusAccepted || o == OfferStatusRejected || o == OfferStatusWithdrawn
}
