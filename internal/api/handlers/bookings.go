package handlers

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/bnb-reservations/backend/internal/auth"
	"github.com/bnb-reservations/backend/internal/booking"
)

// BookingRequest is the booking form. Dates are inclusive YYYY-MM-DD values.
type BookingRequest struct {
	StartDate   string `json:"start_date"`
	EndDate     string `json:"end_date"`
	Package     string `json:"package"`
	BringsCar   bool   `json:"brings_car"`
	PlateNumber string `json:"plate_number"`
	Notes       string `json:"notes"`
	AcceptTerms bool   `json:"accept_terms"`
}

func bookingInput(w http.ResponseWriter, r *http.Request) (booking.Input, bool) {
	var req BookingRequest
	if !decode(w, r, &req) {
		return booking.Input{}, false
	}

	dates, ok := parseRange(w, req.StartDate, req.EndDate)
	if !ok {
		return booking.Input{}, false
	}

	return booking.Input{
		Range:       dates,
		Package:     req.Package,
		BringsCar:   req.BringsCar,
		PlateNumber: req.PlateNumber,
		Notes:       req.Notes,
		AcceptTerms: req.AcceptTerms,
	}, true
}

// ListBookings returns the caller's bookings, or all bookings for the host.
func ListBookings(svc *booking.Service, logger logrus.FieldLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := svc.List(r.Context(), auth.PrincipalFrom(r.Context()))
		if err != nil {
			writeServiceError(w, r, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, list)
	}
}

// CreateBooking books the room. Taken dates answer 409 with the first
// conflicting range.
func CreateBooking(svc *booking.Service, logger logrus.FieldLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		in, ok := bookingInput(w, r)
		if !ok {
			return
		}

		b, err := svc.Create(r.Context(), auth.PrincipalFrom(r.Context()), in)
		if err != nil {
			writeServiceError(w, r, logger, err)
			return
		}

		writeJSON(w, http.StatusCreated, b)
	}
}

// GetBooking returns one booking with guest details.
func GetBooking(svc *booking.Service, logger logrus.FieldLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		b, err := svc.Get(r.Context(), auth.PrincipalFrom(r.Context()), mux.Vars(r)["id"])
		if err != nil {
			writeServiceError(w, r, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, b)
	}
}

// UpdateBooking changes dates and details of a booking.
func UpdateBooking(svc *booking.Service, logger logrus.FieldLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		in, ok := bookingInput(w, r)
		if !ok {
			return
		}

		b, err := svc.Update(r.Context(), auth.PrincipalFrom(r.Context()), mux.Vars(r)["id"], in)
		if err != nil {
			writeServiceError(w, r, logger, err)
			return
		}

		writeJSON(w, http.StatusOK, b)
	}
}

// CancelBooking deletes a booking.
func CancelBooking(svc *booking.Service, logger logrus.FieldLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := svc.Cancel(r.Context(), auth.PrincipalFrom(r.Context()), mux.Vars(r)["id"]); err != nil {
			writeServiceError(w, r, logger, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
