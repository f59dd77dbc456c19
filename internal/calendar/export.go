package calendar

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/bnb-reservations/backend/internal/storage"
	"github.com/bnb-reservations/backend/internal/storage/models"
)

const (
	icalDate     = "20060102"
	icalDateTime = "20060102T150405Z"
	productID    = "-//bnb-reservations//availability//EN"
)

// Exporter publishes booked and blocked dates as an iCal feed that other
// booking channels can subscribe to.
type Exporter struct {
	rooms       *storage.RoomRepository
	bookings    *storage.BookingRepository
	unavailable *storage.UnavailableRepository
	now         func() time.Time
}

// NewExporter creates a feed exporter.
func NewExporter(rooms *storage.RoomRepository, bookings *storage.BookingRepository, unavailable *storage.UnavailableRepository) *Exporter {
	return &Exporter{
		rooms:       rooms,
		bookings:    bookings,
		unavailable: unavailable,
		now:         time.Now,
	}
}

// Write renders the feed for the default room to w. Guest details are never
// included.
func (e *Exporter) Write(ctx context.Context, w io.Writer) error {
	room, err := e.rooms.GetDefault(ctx)
	if err != nil {
		return err
	}
	name := "Room"
	if room != nil {
		name = room.Title
	}

	bookings, err := e.bookings.ListByRoom(ctx, models.DefaultRoomID)
	if err != nil {
		return err
	}
	periods, err := e.unavailable.List(ctx, time.Time{})
	if err != nil {
		return err
	}

	stamp := e.now().UTC().Format(icalDateTime)
	iw := &icalWriter{w: bufio.NewWriter(w)}

	iw.line("BEGIN:VCALENDAR")
	iw.line("VERSION:2.0")
	iw.line("PRODID:" + productID)
	iw.line("CALSCALE:GREGORIAN")
	iw.line("METHOD:PUBLISH")
	iw.line("X-WR-CALNAME:" + escape(name))

	for _, b := range bookings {
		iw.event("booking-"+b.ID, "Booked", b.StartDate, b.EndDate, stamp)
	}
	for _, p := range periods {
		// Imported periods are not echoed back to the channels they came from.
		if p.Imported() {
			continue
		}
		summary := "Unavailable"
		if p.Reason != "" {
			summary = "Unavailable: " + p.Reason
		}
		iw.event("unavailable-"+p.ID, summary, p.StartDate, p.EndDate, stamp)
	}

	iw.line("END:VCALENDAR")
	return iw.flush()
}

type icalWriter struct {
	w   *bufio.Writer
	err error
}

// event writes an all-day VEVENT. The inclusive end date becomes an
// exclusive DTEND.
func (iw *icalWriter) event(uid, summary string, start, end time.Time, stamp string) {
	iw.line("BEGIN:VEVENT")
	iw.line("UID:" + uid + "@bnb-reservations")
	iw.line("DTSTAMP:" + stamp)
	iw.line("DTSTART;VALUE=DATE:" + start.UTC().Format(icalDate))
	iw.line("DTEND;VALUE=DATE:" + end.UTC().AddDate(0, 0, 1).Format(icalDate))
	iw.line("SUMMARY:" + escape(summary))
	iw.line("TRANSP:OPAQUE")
	iw.line("END:VEVENT")
}

// line writes one content line folded at 75 octets.
func (iw *icalWriter) line(s string) {
	if iw.err != nil {
		return
	}
	for len(s) > 75 {
		cut := 75
		// Never split a UTF-8 sequence.
		for cut > 0 && s[cut]&0xC0 == 0x80 {
			cut--
		}
		if _, iw.err = iw.w.WriteString(s[:cut] + "\r\n "); iw.err != nil {
			return
		}
		s = s[cut:]
	}
	_, iw.err = iw.w.WriteString(s + "\r\n")
}

func (iw *icalWriter) flush() error {
	if iw.err != nil {
		return fmt.Errorf("writing calendar: %w", iw.err)
	}
	if err := iw.w.Flush(); err != nil {
		return fmt.Errorf("writing calendar: %w", err)
	}
	return nil
}

func escape(s string) string {
	r := strings.NewReplacer(`\`, `\\`, ";", `\;`, ",", `\,`, "\n", `\n`)
	return r.Replace(s)
}
