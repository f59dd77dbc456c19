package models

import (
	"time"

	"github.com/bnb-reservations/backend/internal/availability"
)

// UnavailablePeriod is a blackout: dates the host has closed, either by hand
// or through an imported calendar feed.
type UnavailablePeriod struct {
	ID         string    `json:"id"`
	StartDate  time.Time `json:"start_date"`
	EndDate    time.Time `json:"end_date"`
	Reason     string    `json:"reason"`
	CalendarID *string   `json:"calendar_id,omitempty"`
	EventUID   *string   `json:"event_uid,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Range returns the blocked dates.
func (u *UnavailablePeriod) Range() availability.DateRange {
	return availability.DateRange{Start: u.StartDate, End: u.EndDate}
}

// Imported returns true if the period came from a calendar subscription.
func (u *UnavailablePeriod) Imported() bool {
	return u.CalendarID != nil
}
