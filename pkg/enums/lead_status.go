package enums

import "fmt"

// LeadStatus is the vendor-facing CRM state of a lead.
type LeadStatus string

const (
	LeadStatusNew       LeadStatus = "new"
	LeadStatusOpen      LeadStatus = "open"
	LeadStatusQuoted    LeadStatus = "quoted"
	LeadStatusAccepted  LeadStatus = "accepted"
	LeadStatusDeclined  LeadStatus = "declined"
	LeadStatusConverted LeadStatus = "converted"
	LeadStatusWithdrawn LeadStatus = "withdrawn"
)

var validLeadStatuses = []LeadStatus{
	LeadStatusNew,
	LeadStatusOpen,
	LeadStatusQuoted,
	LeadStatusAccepted,
	LeadStatusDeclined,
	LeadStatusConverted,
	LeadStatusWithdrawn,
}

// String implements fmt.Stringer.
func (l LeadStatus) String() string {
	return string(l)
}

// IsValid reports whether the value is a known LeadStatus.
func (l LeadStatus) IsValid() bool {
	for _, candidate := range validLeadStatuses {
		if candidate == l {
			return true
		}
	}
	return false
}

// ParseLeadStatus converts raw input into a LeadStatus.
func ParseLeadStatus(value string) (LeadStatus, error) {
	for _, candidate := range validLeadStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid lead status %q", value)
}

// ReopensOnNewOffer reports whether a fresh offer resets the lead back to new.
func (l LeadStatus) ReopensOnNewOffer() bool {
	return l == LeadStatusDeclined || l == LeadStatusWithdrawn || l == LeadStatusConverted
}
