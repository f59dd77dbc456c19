package handlers

import (
	"errors"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/bnb-reservations/backend/internal/api/middleware"
	"github.com/bnb-reservations/backend/internal/availability"
	"github.com/bnb-reservations/backend/internal/booking"
)

// AvailabilityResponse is the advisory answer for a date range.
type AvailabilityResponse struct {
	Available bool             `json:"available"`
	Verdict   string           `json:"verdict"`
	Message   string           `json:"message,omitempty"`
	Conflict  *ConflictDetails `json:"conflict,omitempty"`
}

// CheckAvailability answers whether start..end (both inclusive) is free.
// exclude skips one booking, so a guest editing a stay does not collide
// with it.
func CheckAvailability(svc *booking.Service, logger logrus.FieldLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()

		candidate, ok := parseRange(w, q.Get("start"), q.Get("end"))
		if !ok {
			return
		}

		res, err := svc.Precheck(r.Context(), availability.Query{
			Candidate:        candidate,
			ExcludeBookingID: q.Get("exclude"),
		})
		if err != nil {
			writeServiceError(w, r, logger, err)
			return
		}

		resp := AvailabilityResponse{
			Available: res.Available(),
			Verdict:   string(res.Verdict),
		}
		if res.Conflict != nil {
			details := conflictDetails(*res.Conflict)
			resp.Conflict = &details
			resp.Message = res.Conflict.Message()
		}

		writeJSON(w, http.StatusOK, resp)
	}
}

// ListOccupiedRanges returns booked and blocked ranges from today on, for
// client-side checks while a guest picks dates.
func ListOccupiedRanges(svc *booking.Service, logger logrus.FieldLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		occ, err := svc.Occupancy(r.Context())
		if err != nil {
			writeServiceError(w, r, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, occ)
	}
}

// parseRange parses two date strings, writing a 400 on failure.
func parseRange(w http.ResponseWriter, start, end string) (availability.DateRange, bool) {
	fields := map[string]string{}
	if start == "" {
		fields["start"] = "is required"
	}
	if end == "" {
		fields["end"] = "is required"
	}
	if len(fields) > 0 {
		middleware.WriteErrorWithDetails(w, http.StatusBadRequest, middleware.ErrValidation, "Both dates are required", fields)
		return availability.DateRange{}, false
	}

	r, err := availability.ParseRange(start, end)
	if errors.Is(err, availability.ErrInvalidRange) {
		middleware.WriteError(w, http.StatusBadRequest, middleware.ErrInvalidRange, "The start date must not be after the end date")
		return availability.DateRange{}, false
	}
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, middleware.ErrBadRequest, "Dates must be formatted as YYYY-MM-DD")
		return availability.DateRange{}, false
	}
	return r, true
}
