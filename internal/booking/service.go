// Package booking creates, edits and cancels reservations. Every write runs
// the availability check again under a per-room lock inside a storage
// transaction, so two guests racing for the same dates cannot both commit.
package booking

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/bnb-reservations/backend/internal/auth"
	"github.com/bnb-reservations/backend/internal/availability"
	"github.com/bnb-reservations/backend/internal/storage"
	"github.com/bnb-reservations/backend/internal/storage/models"
	"github.com/bnb-reservations/backend/internal/validation"
	"github.com/bnb-reservations/backend/internal/websocket"
)

var (
	// ErrNotFound is returned for unknown booking IDs.
	ErrNotFound = errors.New("booking not found")

	// ErrForbidden is returned when the caller neither owns the booking nor is the host.
	ErrForbidden = errors.New("not allowed to access this booking")
)

// ConflictError is returned when the requested dates are taken.
type ConflictError struct {
	Conflict availability.Conflict
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("dates conflict with %s (%s to %s)", e.Conflict.Source,
		e.Conflict.Range.Start.Format(availability.DateLayout),
		e.Conflict.Range.End.Format(availability.DateLayout))
}

// Input holds the guest-editable fields of a booking.
type Input struct {
	Range       availability.DateRange `json:"-" validate:"-"`
	Package     string                 `json:"package" validate:"required,oneof=bed+room maddress+room maddress"`
	BringsCar   bool                   `json:"brings_car"`
	PlateNumber string                 `json:"plate_number" validate:"required_if=BringsCar true,max=20"`
	Notes       string                 `json:"notes" validate:"max=1000"`
	AcceptTerms bool                   `json:"accept_terms"`
}

// Service implements the booking operations.
type Service struct {
	db          *storage.DB
	bookings    *storage.BookingRepository
	unavailable *storage.UnavailableRepository
	locks       *RoomLocks
	events      *websocket.EventBroadcaster
	logger      logrus.FieldLogger
	roomID      string
	now         func() time.Time
}

// NewService creates a booking service for the site's room. events may be nil.
func NewService(
	db *storage.DB,
	bookings *storage.BookingRepository,
	unavailable *storage.UnavailableRepository,
	events *websocket.EventBroadcaster,
	logger logrus.FieldLogger,
) *Service {
	return &Service{
		db:          db,
		bookings:    bookings,
		unavailable: unavailable,
		locks:       NewRoomLocks(),
		events:      events,
		logger:      logger.WithField("component", "booking"),
		roomID:      models.DefaultRoomID,
		now:         time.Now,
	}
}

// Precheck runs the availability check without locking. The answer is
// advisory: the dates may be taken before the guest submits.
func (s *Service) Precheck(ctx context.Context, q availability.Query) (availability.Result, error) {
	if err := q.Candidate.Validate(); err != nil {
		return availability.Result{}, err
	}

	bookings, err := s.bookings.Ranges(ctx, s.roomID)
	if err != nil {
		return availability.Result{}, err
	}
	unavailable, err := s.unavailable.Ranges(ctx)
	if err != nil {
		return availability.Result{}, err
	}

	return availability.Check(q, bookings, unavailable)
}

// Occupancy is the set of blocked ranges published for client-side checks.
type Occupancy struct {
	Booked      []availability.DateRange `json:"booked"`
	Unavailable []UnavailableRange       `json:"unavailable"`
}

// UnavailableRange is a blackout with its public reason.
type UnavailableRange struct {
	availability.DateRange
	Reason string `json:"reason,omitempty"`
}

// Occupancy lists blocked ranges ending today or later. Booking owners are
// not disclosed.
func (s *Service) Occupancy(ctx context.Context) (*Occupancy, error) {
	today := availability.StartOfDay(s.now())

	bookings, err := s.bookings.Ranges(ctx, s.roomID)
	if err != nil {
		return nil, err
	}
	periods, err := s.unavailable.List(ctx, today)
	if err != nil {
		return nil, err
	}

	out := &Occupancy{
		Booked:      []availability.DateRange{},
		Unavailable: []UnavailableRange{},
	}
	for _, b := range bookings {
		if !b.Range.End.Before(today) {
			out.Booked = append(out.Booked, b.Range)
		}
	}
	for i := range periods {
		out.Unavailable = append(out.Unavailable, UnavailableRange{DateRange: periods[i].Range(), Reason: periods[i].Reason})
	}
	return out, nil
}

// Create books the room for the caller.
func (s *Service) Create(ctx context.Context, p auth.Principal, in Input) (*models.Booking, error) {
	if !p.Authenticated() {
		return nil, ErrForbidden
	}
	if err := s.validate(in, true); err != nil {
		return nil, err
	}

	b := &models.Booking{
		UserID: p.UserID,
		RoomID: s.roomID,
	}
	apply(b, in)

	err := s.commit(ctx, availability.Query{Candidate: in.Range}, nil, func(tx *sql.Tx) error {
		return s.bookings.WithTx(tx).Create(ctx, b)
	})
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"booking_id": b.ID,
		"user_id":    b.UserID,
		"start":      b.StartDate.Format(availability.DateLayout),
		"end":        b.EndDate.Format(availability.DateLayout),
	}).Info("booking created")
	s.events.BookingChanged(websocket.TypeBookingCreated, *b)

	return b, nil
}

// Update changes the dates and details of an existing booking. The booking's
// own stored dates are ignored by the availability check.
func (s *Service) Update(ctx context.Context, p auth.Principal, id string, in Input) (*models.Booking, error) {
	if err := s.validate(in, false); err != nil {
		return nil, err
	}

	var b *models.Booking
	q := availability.Query{Candidate: in.Range, ExcludeBookingID: id}
	load := func(tx *sql.Tx) error {
		var err error
		b, err = s.bookings.WithTx(tx).GetByID(ctx, id)
		if err != nil {
			return err
		}
		if b == nil {
			return ErrNotFound
		}
		if !p.CanManage(b.UserID) {
			return ErrForbidden
		}
		return nil
	}
	err := s.commit(ctx, q, load, func(tx *sql.Tx) error {
		apply(b, in)
		return s.bookings.WithTx(tx).Update(ctx, b)
	})
	if err != nil {
		return nil, err
	}

	s.logger.WithField("booking_id", id).Info("booking updated")
	s.events.BookingChanged(websocket.TypeBookingUpdated, *b)

	return b, nil
}

// Cancel deletes a booking.
func (s *Service) Cancel(ctx context.Context, p auth.Principal, id string) error {
	b, err := s.bookings.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if b == nil {
		return ErrNotFound
	}
	if !p.CanManage(b.UserID) {
		return ErrForbidden
	}

	if err := s.bookings.Delete(ctx, id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return ErrNotFound
		}
		return err
	}

	s.logger.WithField("booking_id", id).Info("booking cancelled")
	s.events.BookingChanged(websocket.TypeBookingCancelled, *b)
	return nil
}

// Get returns a booking with its guest's details.
func (s *Service) Get(ctx context.Context, p auth.Principal, id string) (*models.BookingWithGuest, error) {
	b, err := s.bookings.GetWithGuest(ctx, id)
	if err != nil {
		return nil, err
	}
	if b == nil {
		return nil, ErrNotFound
	}
	if !p.CanManage(b.UserID) {
		return nil, ErrForbidden
	}
	return b, nil
}

// List returns the caller's bookings, or every booking for the host.
func (s *Service) List(ctx context.Context, p auth.Principal) ([]models.BookingWithGuest, error) {
	if p.IsHost() {
		return s.bookings.ListWithGuests(ctx, time.Time{})
	}
	if !p.Authenticated() {
		return nil, ErrForbidden
	}

	own, err := s.bookings.ListByUser(ctx, p.UserID)
	if err != nil {
		return nil, err
	}
	out := make([]models.BookingWithGuest, 0, len(own))
	for _, b := range own {
		out = append(out, models.BookingWithGuest{Booking: b})
	}
	return out, nil
}

// Upcoming returns bookings that end today or later.
func (s *Service) Upcoming(ctx context.Context) ([]models.BookingWithGuest, error) {
	return s.bookings.ListWithGuests(ctx, availability.StartOfDay(s.now()))
}

// commit runs the authoritative availability check and write under the room
// lock and a single transaction. load, when set, runs first in the same
// transaction; its error is returned before any availability check.
func (s *Service) commit(ctx context.Context, q availability.Query, load, write func(tx *sql.Tx) error) error {
	unlock := s.locks.Lock(s.roomID)
	defer unlock()

	return s.db.Transaction(ctx, func(tx *sql.Tx) error {
		if load != nil {
			if err := load(tx); err != nil {
				return err
			}
		}

		bookings, err := s.bookings.WithTx(tx).Ranges(ctx, s.roomID)
		if err != nil {
			return err
		}
		unavailable, err := s.unavailable.WithTx(tx).Ranges(ctx)
		if err != nil {
			return err
		}

		res, err := availability.Check(q, bookings, unavailable)
		if err != nil {
			return err
		}
		if !res.Available() {
			return &ConflictError{Conflict: *res.Conflict}
		}

		return write(tx)
	})
}

func (s *Service) validate(in Input, creating bool) error {
	if err := in.Range.Validate(); err != nil {
		return err
	}
	if in.Range.Start.IsZero() || in.Range.End.IsZero() {
		return validation.Field("start_date", "is required")
	}

	verr := &validation.Error{}
	if err := validation.Struct(in); err != nil {
		if !errors.As(err, &verr) {
			return err
		}
	}
	if in.BringsCar && strings.TrimSpace(in.PlateNumber) == "" {
		verr.Add("plate_number", "is required")
	}
	if creating && !in.AcceptTerms {
		verr.Add("accept_terms", "must be accepted")
	}
	return verr.OrNil()
}

func apply(b *models.Booking, in Input) {
	b.StartDate = in.Range.Start.UTC()
	b.EndDate = in.Range.End.UTC()
	b.Package = in.Package
	b.Notes = strings.TrimSpace(in.Notes)
	if in.BringsCar {
		b.PlateNumber = strings.ToUpper(strings.TrimSpace(in.PlateNumber))
	} else {
		b.PlateNumber = models.NoCar
	}
}
