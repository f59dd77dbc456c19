package availability

import (
	"fmt"
	"strings"
	"time"
)

// DateLayout is the calendar-date form used by booking forms and query strings.
const DateLayout = "2006-01-02"

// ParseDate accepts a plain calendar date (read as midnight UTC) or an
// RFC 3339 timestamp (converted to UTC).
func ParseDate(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, fmt.Errorf("empty date")
	}
	if t, err := time.Parse(DateLayout, value); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing date %q: expected YYYY-MM-DD or RFC 3339", value)
	}
	return t.UTC(), nil
}

// ParseRange parses both ends and validates their order.
func ParseRange(start, end string) (DateRange, error) {
	s, err := ParseDate(start)
	if err != nil {
		return DateRange{}, fmt.Errorf("start: %w", err)
	}
	e, err := ParseDate(end)
	if err != nil {
		return DateRange{}, fmt.Errorf("end: %w", err)
	}
	return NewDateRange(s, e)
}

// StartOfDay truncates t to midnight UTC of its calendar date.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Nights counts whole calendar days between the ends of r.
func Nights(r DateRange) int {
	return int(StartOfDay(r.End).Sub(StartOfDay(r.Start)).Hours() / 24)
}
