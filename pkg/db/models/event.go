package models

import "time"

// EventDetails is the event snapshot copied from offer to lead to order.
type EventDetails struct {
	EventType    *string    `gorm:"column:event_type"`
	EventDate    *time.Time `gorm:"column:event_date;type:date"`
	EventTime    *string    `gorm:"column:event_time"`
	VenueAddress *string    `gorm:"column:venue_address"`
	GuestCount   *int       `gorm:"column:guest_count"`
}
