// Package guestbook manages the messages guests leave after a stay.
package guestbook

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/sirupsen/logrus"

	"github.com/bnb-reservations/backend/internal/auth"
	"github.com/bnb-reservations/backend/internal/storage"
	"github.com/bnb-reservations/backend/internal/storage/models"
	"github.com/bnb-reservations/backend/internal/validation"
)

var (
	ErrNotFound  = errors.New("guestbook entry not found")
	ErrForbidden = errors.New("not allowed to change this entry")

	// ErrNoStay is returned when a guest without any booking tries to post.
	ErrNoStay = errors.New("only guests with a booking can write in the guestbook")
)

// Input is the editable part of an entry.
type Input struct {
	Message string `json:"message"`
	Rating  int    `json:"rating" validate:"gte=1,lte=5"`
}

// Service implements guestbook operations.
type Service struct {
	entries  *storage.GuestEntryRepository
	bookings *storage.BookingRepository
	logger   logrus.FieldLogger
}

// NewService creates a guestbook service.
func NewService(entries *storage.GuestEntryRepository, bookings *storage.BookingRepository, logger logrus.FieldLogger) *Service {
	return &Service{
		entries:  entries,
		bookings: bookings,
		logger:   logger.WithField("component", "guestbook"),
	}
}

// List returns every entry, newest first.
func (s *Service) List(ctx context.Context) ([]models.GuestEntryWithAuthor, error) {
	entries, err := s.entries.ListWithAuthors(ctx)
	if err != nil {
		return nil, err
	}
	if entries == nil {
		entries = []models.GuestEntryWithAuthor{}
	}
	return entries, nil
}

// Create posts a new entry. Guests need at least one booking; the host may
// always post.
func (s *Service) Create(ctx context.Context, p auth.Principal, in Input) (*models.GuestEntry, error) {
	if !p.Authenticated() {
		return nil, ErrForbidden
	}
	msg, err := check(in)
	if err != nil {
		return nil, err
	}

	if !p.IsHost() {
		n, err := s.bookings.CountByUser(ctx, p.UserID)
		if err != nil {
			return nil, err
		}
		if n == 0 {
			return nil, ErrNoStay
		}
	}

	e := &models.GuestEntry{UserID: p.UserID, Message: msg, Rating: in.Rating}
	if err := s.entries.Create(ctx, e); err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{"entry_id": e.ID, "user_id": e.UserID}).Info("guestbook entry created")
	return e, nil
}

// Update edits an entry owned by the caller, or any entry for the host.
func (s *Service) Update(ctx context.Context, p auth.Principal, id string, in Input) (*models.GuestEntry, error) {
	msg, err := check(in)
	if err != nil {
		return nil, err
	}

	e, err := s.owned(ctx, p, id)
	if err != nil {
		return nil, err
	}

	e.Message = msg
	e.Rating = in.Rating
	if err := s.entries.Update(ctx, e); err != nil {
		return nil, err
	}
	return e, nil
}

// Delete removes an entry owned by the caller, or any entry for the host.
func (s *Service) Delete(ctx context.Context, p auth.Principal, id string) error {
	if _, err := s.owned(ctx, p, id); err != nil {
		return err
	}
	if err := s.entries.Delete(ctx, id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return ErrNotFound
		}
		return err
	}

	s.logger.WithField("entry_id", id).Info("guestbook entry deleted")
	return nil
}

func (s *Service) owned(ctx context.Context, p auth.Principal, id string) (*models.GuestEntry, error) {
	e, err := s.entries.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if e == nil {
		return nil, ErrNotFound
	}
	if !p.CanManage(e.UserID) {
		return nil, ErrForbidden
	}
	return e, nil
}

func check(in Input) (string, error) {
	verr := &validation.Error{}
	if err := validation.Struct(in); err != nil && !errors.As(err, &verr) {
		return "", err
	}

	msg := strings.TrimSpace(in.Message)
	switch n := utf8.RuneCountInString(msg); {
	case n == 0:
		verr.Add("message", "is required")
	case n > models.GuestEntryMaxMessage:
		verr.Add("message", fmt.Sprintf("must be at most %d characters", models.GuestEntryMaxMessage))
	}

	return msg, verr.OrNil()
}
