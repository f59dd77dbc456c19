// Package availability decides whether a candidate date range can be booked
// against the existing bookings and host blackout periods of a room.
//
// The package holds no state and performs no I/O. The same Check runs as the
// advisory pre-check behind the booking form and again as the authoritative
// check inside the booking transaction.
package availability

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidRange is returned when a range has its start after its end.
var ErrInvalidRange = errors.New("invalid date range: start is after end")

// DateRange is a closed interval of instants. Both ends are inclusive, so a
// booking ending on a date blocks another booking starting on that same date.
type DateRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// NewDateRange returns a range after checking start <= end.
func NewDateRange(start, end time.Time) (DateRange, error) {
	r := DateRange{Start: start, End: end}
	if err := r.Validate(); err != nil {
		return DateRange{}, err
	}
	return r, nil
}

// Validate reports ErrInvalidRange when Start is after End.
func (r DateRange) Validate() error {
	if r.Start.After(r.End) {
		return fmt.Errorf("%w (%s > %s)", ErrInvalidRange,
			r.Start.Format(time.RFC3339), r.End.Format(time.RFC3339))
	}
	return nil
}

// Overlaps reports whether two ranges share at least one instant.
func Overlaps(a, b DateRange) bool {
	return !a.Start.After(b.End) && !b.Start.After(a.End)
}

// Booking is an existing reservation as seen by the engine.
type Booking struct {
	ID    string
	Range DateRange
}

// Unavailable is a host-declared blackout period.
type Unavailable struct {
	ID     string
	Range  DateRange
	Reason string
}

// Query is a candidate range plus the booking to ignore, if any. The
// exclusion lets an edited booking be checked without colliding with its own
// stored dates.
type Query struct {
	Candidate        DateRange
	ExcludeBookingID string
}

// Verdict is the outcome of a check.
type Verdict string

const (
	VerdictAvailable Verdict = "available"
	VerdictConflict  Verdict = "conflict"
)

// Source identifies what kind of record caused a conflict.
type Source string

const (
	SourceBooking     Source = "booking"
	SourceUnavailable Source = "unavailable"
)

// Conflict describes the first record that overlaps the candidate.
type Conflict struct {
	Source        Source    `json:"source"`
	Range         DateRange `json:"range"`
	BookingID     string    `json:"booking_id,omitempty"`
	UnavailableID string    `json:"unavailable_id,omitempty"`
	Reason        string    `json:"reason,omitempty"`
}

// Message is the text shown to a guest whose dates were rejected.
func (c Conflict) Message() string {
	if c.Source == SourceUnavailable {
		if c.Reason != "" {
			return fmt.Sprintf("Sorry, the selected dates are not available (%s).", c.Reason)
		}
		return "Sorry, the selected dates are blocked by the host."
	}
	return "Sorry, the selected dates are not available."
}

// Result is the answer to a Query.
type Result struct {
	Verdict  Verdict   `json:"verdict"`
	Conflict *Conflict `json:"conflict,omitempty"`
}

// Available reports whether the verdict is available.
func (r Result) Available() bool {
	return r.Verdict == VerdictAvailable
}

// Check decides whether q.Candidate is free.
//
// Every range is validated before any comparison is made. Bookings are
// scanned in the order given, then unavailable periods; the first overlap is
// reported. The booking whose ID equals q.ExcludeBookingID is skipped.
func Check(q Query, bookings []Booking, unavailable []Unavailable) (Result, error) {
	if err := q.Candidate.Validate(); err != nil {
		return Result{}, err
	}
	for _, b := range bookings {
		if err := b.Range.Validate(); err != nil {
			return Result{}, fmt.Errorf("booking %s: %w", b.ID, err)
		}
	}
	for _, u := range unavailable {
		if err := u.Range.Validate(); err != nil {
			return Result{}, fmt.Errorf("unavailable period %s: %w", u.ID, err)
		}
	}

	for _, b := range bookings {
		if q.ExcludeBookingID != "" && b.ID == q.ExcludeBookingID {
			continue
		}
		if Overlaps(q.Candidate, b.Range) {
			return Result{
				Verdict: VerdictConflict,
				Conflict: &Conflict{
					Source:    SourceBooking,
					Range:     b.Range,
					BookingID: b.ID,
				},
			}, nil
		}
	}

	for _, u := range unavailable {
		if Overlaps(q.Candidate, u.Range) {
			return Result{
				Verdict: VerdictConflict,
				Conflict: &Conflict{
					Source:        SourceUnavailable,
					Range:         u.Range,
					UnavailableID: u.ID,
					Reason:        u.Reason,
				},
			}, nil
		}
	}

	return Result{Verdict: VerdictAvailable}, nil
}
