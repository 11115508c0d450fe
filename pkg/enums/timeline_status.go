package enums

import "fmt"

type TimelineStatus string

const (
	TimelineStatusPending   TimelineStatus = "pending"
	TimelineStatusCompleted TimelineStatus = "completed"
	TimelineStatusCancelled TimelineStatus = "cancelled"
)

var validTimelineStatuses = []TimelineStatus{
	TimelineStatusPending,
	TimelineStatusCompleted,
	TimelineStatusCancelled,
}

// String implements fmt.Stringer.
func (t TimelineStatus) String() string {
	return string(t)
}

// IsValid reports whether the value is a known TimelineStatus.
func (t TimelineStatus) IsValid() bool {
	for _, candidate := range validTimelineStatuses {
		if candidate == t {
			return true
		}
	}
	return false
}

// ParseTimelineStatus converts raw input into a TimelineStatus.
func ParseTimelineStatus(value string) (TimelineStatus, error) {
	for _, candidate := range validTimelineStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid timeline status %q", value)
}
