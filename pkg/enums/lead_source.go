package enums

import "fmt"

// LeadSource records how a lead entered the vendor pipeline.
type LeadSource string

const (
	LeadSourceInquiry     LeadSource = "inquiry"
	LeadSourceOffer       LeadSource = "offer"
	LeadSourceChat        LeadSource = "chat"
	LeadSourceDirectOrder LeadSource = "direct_order"
)

var validLeadSources = []LeadSource{
	LeadSourceInquiry,
	LeadSourceOffer,
	LeadSourceChat,
	LeadSourceDirectOrder,
}

// String implements fmt.Stringer.
func (l LeadSource) String() string {
	return string(l)
}

// IsValid reports whether the value is a known LeadSource.
func (l LeadSource) IsValid() bool {
	for _, candidate := range validLeadSources {
		if candidate == l {
			return true
		}
	}
	return false
}

// ParseLeadSource converts raw input into a LeadSource.
func ParseLeadSource(value string) (LeadSource, error) {
	for _, candidate := range validLeadSources {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid lead source %q", value)
}

// ConfirmsOnTokenPayment reports whether a completed token payment confirms the order
// without an explicit vendor confirmation.
func (l LeadSource) ConfirmsOnTokenPayment() bool {
	return l == LeadSourceOffer || l == LeadSourceChat
}
