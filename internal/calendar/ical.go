// Package calendar imports external iCal feeds as blackout periods and
// exports the room's occupancy as an iCal feed.
package calendar

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"

	"github.com/bnb-reservations/backend/internal/availability"
	"github.com/bnb-reservations/backend/internal/storage/models"
)

const maxFeedLine = 1 << 20

// Parser downloads and parses iCal/ICS calendar feeds.
type Parser struct {
	httpClient *http.Client
	logger     logrus.FieldLogger

	mu       sync.Mutex
	breakers map[string]*gobreaker.CircuitBreaker
}

// NewParser creates a new iCal parser. Each download is bounded by timeout.
func NewParser(timeout time.Duration, logger logrus.FieldLogger) *Parser {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Parser{
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
		breakers:   make(map[string]*gobreaker.CircuitBreaker),
	}
}

// breaker returns the circuit breaker guarding one feed URL. A feed that
// keeps failing is skipped until the breaker half-opens again.
func (p *Parser) breaker(url string) *gobreaker.CircuitBreaker {
	p.mu.Lock()
	defer p.mu.Unlock()

	if cb, ok := p.breakers[url]; ok {
		return cb
	}
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        url,
		MaxRequests: 1,
		Timeout:     10 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures > 2
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			p.logger.WithFields(logrus.Fields{
				"feed": name,
				"from": from.String(),
				"to":   to.String(),
			}).Warn("feed circuit breaker changed state")
		},
	})
	p.breakers[url] = cb
	return cb
}

// FetchAndParse downloads and parses an iCal feed from a URL.
func (p *Parser) FetchAndParse(ctx context.Context, url string) ([]models.CalendarEvent, error) {
	out, err := p.breaker(url).Execute(func() (interface{}, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, fmt.Errorf("building request: %w", err)
		}
		req.Header.Set("Accept", "text/calendar")

		resp, err := p.httpClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("fetching calendar: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("calendar returned status %d", resp.StatusCode)
		}

		return p.Parse(resp.Body)
	})
	if err != nil {
		return nil, err
	}
	return out.([]models.CalendarEvent), nil
}

// Parse reads and parses iCal data from a reader.
func (p *Parser) Parse(r io.Reader) ([]models.CalendarEvent, error) {
	var events []models.CalendarEvent
	var current *models.CalendarEvent
	var pending string

	flush := func() {
		if pending != "" && current != nil {
			setEventField(current, pending)
		}
		pending = ""
	}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxFeedLine)
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")

		// Folded continuation line
		if strings.HasPrefix(line, " ") || strings.HasPrefix(line, "\t") {
			if pending != "" {
				pending += line[1:]
			}
			continue
		}
		flush()

		name, _, value, ok := splitContentLine(line)
		if !ok {
			continue
		}

		switch name {
		case "BEGIN":
			if value == "VEVENT" {
				current = &models.CalendarEvent{}
			}
		case "END":
			if value == "VEVENT" && current != nil {
				if finishEvent(current) {
					events = append(events, *current)
				}
				current = nil
			}
		case "UID", "SUMMARY", "DESCRIPTION", "LOCATION", "DTSTART", "DTEND":
			if current != nil {
				pending = line
			}
		}
	}
	flush()

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading calendar: %w", err)
	}

	return events, nil
}

// splitContentLine splits "NAME;PARAM=X:VALUE" into its parts.
func splitContentLine(line string) (name string, params map[string]string, value string, ok bool) {
	colon := strings.Index(line, ":")
	if colon == -1 {
		return "", nil, "", false
	}

	head := line[:colon]
	value = line[colon+1:]

	parts := strings.Split(head, ";")
	name = strings.ToUpper(parts[0])
	for _, p := range parts[1:] {
		k, v, found := strings.Cut(p, "=")
		if !found {
			continue
		}
		if params == nil {
			params = make(map[string]string)
		}
		params[strings.ToUpper(k)] = strings.Trim(v, `"`)
	}
	return name, params, value, true
}

func setEventField(event *models.CalendarEvent, line string) {
	name, params, value, ok := splitContentLine(line)
	if !ok {
		return
	}

	switch name {
	case "UID":
		event.UID = unescape(value)
	case "SUMMARY":
		event.Summary = unescape(value)
	case "DESCRIPTION":
		event.Description = unescape(value)
	case "LOCATION":
		event.Location = unescape(value)
	case "DTSTART":
		event.Start, event.AllDay = parseDateTime(value, params)
	case "DTEND":
		event.End, _ = parseDateTime(value, params)
	}
}

func unescape(value string) string {
	r := strings.NewReplacer(`\n`, "\n", `\N`, "\n", `\,`, ",", `\;`, ";", `\\`, `\`)
	return r.Replace(value)
}

// parseDateTime parses an iCal date or date-time value and reports whether
// it is a date-only value.
func parseDateTime(value string, params map[string]string) (time.Time, bool) {
	value = strings.TrimSpace(value)

	if params["VALUE"] == "DATE" || len(value) == 8 {
		t, err := time.Parse("20060102", value)
		if err != nil {
			return time.Time{}, false
		}
		return t, true
	}

	if strings.HasSuffix(value, "Z") {
		if t, err := time.Parse("20060102T150405Z", value); err == nil {
			return t.UTC(), false
		}
	}

	loc := time.UTC
	if tzid := params["TZID"]; tzid != "" {
		if l, err := time.LoadLocation(tzid); err == nil {
			loc = l
		}
	}

	formats := []string{
		"20060102T150405",
		"2006-01-02T15:04:05",
		"2006-01-02",
	}
	for _, format := range formats {
		if t, err := time.ParseInLocation(format, value, loc); err == nil {
			return t.UTC(), format == "2006-01-02"
		}
	}

	return time.Time{}, false
}

// finishEvent fills in a missing DTEND and reports whether the event is usable.
func finishEvent(e *models.CalendarEvent) bool {
	if e.UID == "" || e.Start.IsZero() {
		return false
	}
	if e.End.IsZero() {
		if e.AllDay {
			e.End = e.Start.AddDate(0, 0, 1)
		} else {
			e.End = e.Start
		}
	}
	return !e.End.Before(e.Start)
}

// EventRange converts an event to the inclusive day range it occupies.
// An all-day DTEND is exclusive, so a one-night stay from the 1st to the 2nd
// blocks only the 1st.
func EventRange(e models.CalendarEvent) availability.DateRange {
	start := availability.StartOfDay(e.Start)

	var end time.Time
	switch {
	case e.AllDay:
		end = availability.StartOfDay(e.End).AddDate(0, 0, -1)
	case e.End.After(e.Start):
		end = availability.StartOfDay(e.End.Add(-time.Nanosecond))
	default:
		end = availability.StartOfDay(e.End)
	}

	if end.Before(start) {
		end = start
	}
	return availability.DateRange{Start: start, End: end}
}

// FilterFutureEvents returns only events that haven't ended before today.
func FilterFutureEvents(events []models.CalendarEvent, now time.Time) []models.CalendarEvent {
	today := availability.StartOfDay(now)

	var future []models.CalendarEvent
	for _, e := range events {
		if !EventRange(e).End.Before(today) {
			future = append(future, e)
		}
	}
	return future
}
