package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/bnb-reservations/backend/internal/api/middleware"
	"github.com/bnb-reservations/backend/internal/auth"
	"github.com/bnb-reservations/backend/internal/availability"
	"github.com/bnb-reservations/backend/internal/booking"
	"github.com/bnb-reservations/backend/internal/guestbook"
	"github.com/bnb-reservations/backend/internal/storage"
	"github.com/bnb-reservations/backend/internal/validation"
)

const maxBodyBytes = 1 << 20

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// decode reads a JSON body into v and writes a 400 on failure.
func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, middleware.ErrBadRequest, "Invalid request body")
		return false
	}
	return true
}

// ConflictDetails describes the first booking or blackout that blocks a range.
type ConflictDetails struct {
	Source string `json:"source"`
	Start  string `json:"start"`
	End    string `json:"end"`
	Reason string `json:"reason,omitempty"`
}

func conflictDetails(c availability.Conflict) ConflictDetails {
	return ConflictDetails{
		Source: string(c.Source),
		Start:  c.Range.Start.Format(availability.DateLayout),
		End:    c.Range.End.Format(availability.DateLayout),
		Reason: c.Reason,
	}
}

// writeServiceError maps domain errors to API errors. Anything unknown is
// logged and answered with 500.
func writeServiceError(w http.ResponseWriter, r *http.Request, logger logrus.FieldLogger, err error) {
	var (
		verr     *validation.Error
		conflict *booking.ConflictError
	)

	switch {
	case errors.As(err, &verr):
		middleware.WriteErrorWithDetails(w, http.StatusBadRequest, middleware.ErrValidation, "Please check the highlighted fields", verr.Fields)

	case errors.Is(err, availability.ErrInvalidRange):
		middleware.WriteError(w, http.StatusBadRequest, middleware.ErrInvalidRange, "The start date must not be after the end date")

	case errors.As(err, &conflict):
		middleware.WriteErrorWithDetails(w, http.StatusConflict, middleware.ErrConflict, conflict.Conflict.Message(), conflictDetails(conflict.Conflict))

	case errors.Is(err, booking.ErrNotFound), errors.Is(err, guestbook.ErrNotFound), errors.Is(err, storage.ErrNotFound):
		middleware.WriteError(w, http.StatusNotFound, middleware.ErrNotFound, "Not found")

	case errors.Is(err, booking.ErrForbidden), errors.Is(err, guestbook.ErrForbidden):
		middleware.WriteError(w, http.StatusForbidden, middleware.ErrForbidden, "You are not allowed to do that")

	case errors.Is(err, guestbook.ErrNoStay):
		middleware.WriteError(w, http.StatusForbidden, middleware.ErrForbidden, "Only guests who have booked can write in the guestbook")

	case errors.Is(err, auth.ErrInvalidCredentials):
		middleware.WriteError(w, http.StatusUnauthorized, middleware.ErrUnauthorized, "Wrong mail or password")

	case errors.Is(err, storage.ErrDuplicateMail):
		middleware.WriteErrorWithDetails(w, http.StatusConflict, middleware.ErrConflict, "This mail address is already registered",
			map[string]string{"mail": "is already registered"})

	case errors.Is(err, auth.ErrPasswordTooShort):
		middleware.WriteErrorWithDetails(w, http.StatusBadRequest, middleware.ErrValidation, err.Error(),
			map[string]string{"password": err.Error()})

	default:
		logger.WithFields(logrus.Fields{
			"request_id": middleware.RequestIDFromContext(r.Context()),
			"path":       r.URL.Path,
		}).WithError(err).Error("request failed")
		middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, "An unexpected error occurred")
	}
}
