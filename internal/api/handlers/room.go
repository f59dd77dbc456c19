package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/bnb-reservations/backend/internal/api/middleware"
	"github.com/bnb-reservations/backend/internal/availability"
	"github.com/bnb-reservations/backend/internal/booking"
	"github.com/bnb-reservations/backend/internal/storage"
	"github.com/bnb-reservations/backend/internal/storage/models"
	"github.com/bnb-reservations/backend/internal/validation"
	"github.com/bnb-reservations/backend/internal/websocket"
)

// RoomRequest edits the room listing.
type RoomRequest struct {
	Title       string `json:"title" validate:"notblank,max=200"`
	Description string `json:"description" validate:"max=5000"`
}

// GetRoom returns the room listing.
func GetRoom(rooms *storage.RoomRepository, logger logrus.FieldLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		room, err := rooms.GetDefault(r.Context())
		if err != nil {
			writeServiceError(w, r, logger, err)
			return
		}
		if room == nil {
			middleware.WriteError(w, http.StatusNotFound, middleware.ErrNotFound, "Room not found")
			return
		}
		writeJSON(w, http.StatusOK, room)
	}
}

// UpdateRoom edits the room title and description.
func UpdateRoom(rooms *storage.RoomRepository, logger logrus.FieldLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req RoomRequest
		if !decode(w, r, &req) {
			return
		}
		if err := validation.Struct(req); err != nil {
			writeServiceError(w, r, logger, err)
			return
		}

		room, err := rooms.GetDefault(r.Context())
		if err != nil {
			writeServiceError(w, r, logger, err)
			return
		}
		if room == nil {
			middleware.WriteError(w, http.StatusNotFound, middleware.ErrNotFound, "Room not found")
			return
		}

		room.Title = strings.TrimSpace(req.Title)
		room.Description = strings.TrimSpace(req.Description)
		if err := rooms.Update(r.Context(), room); err != nil {
			writeServiceError(w, r, logger, err)
			return
		}

		writeJSON(w, http.StatusOK, room)
	}
}

// UnavailableRequest creates a blackout period. Dates are inclusive.
type UnavailableRequest struct {
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
	Reason    string `json:"reason" validate:"max=200"`
}

// ListUnavailable returns blackout periods ending today or later.
func ListUnavailable(periods *storage.UnavailableRepository, logger logrus.FieldLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := periods.List(r.Context(), availability.StartOfDay(time.Now()))
		if err != nil {
			writeServiceError(w, r, logger, err)
			return
		}
		if list == nil {
			list = []models.UnavailablePeriod{}
		}
		writeJSON(w, http.StatusOK, list)
	}
}

// CreateUnavailable blocks a range of dates. Existing bookings in the range
// are kept; the host resolves them by hand.
func CreateUnavailable(periods *storage.UnavailableRepository, events *websocket.EventBroadcaster, logger logrus.FieldLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req UnavailableRequest
		if !decode(w, r, &req) {
			return
		}
		if err := validation.Struct(req); err != nil {
			writeServiceError(w, r, logger, err)
			return
		}
		dates, ok := parseRange(w, req.StartDate, req.EndDate)
		if !ok {
			return
		}

		period := &models.UnavailablePeriod{
			StartDate: dates.Start,
			EndDate:   dates.End,
			Reason:    strings.TrimSpace(req.Reason),
		}
		if err := periods.Create(r.Context(), period); err != nil {
			writeServiceError(w, r, logger, err)
			return
		}

		logger.WithField("unavailable_id", period.ID).Info("dates blocked")
		events.UnavailableChanged(websocket.TypeUnavailableCreated, *period)
		writeJSON(w, http.StatusCreated, period)
	}
}

// DeleteUnavailable removes a blackout period.
func DeleteUnavailable(periods *storage.UnavailableRepository, events *websocket.EventBroadcaster, logger logrus.FieldLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := mux.Vars(r)["id"]

		period, err := periods.GetByID(r.Context(), id)
		if err != nil {
			writeServiceError(w, r, logger, err)
			return
		}
		if period == nil {
			middleware.WriteError(w, http.StatusNotFound, middleware.ErrNotFound, "Period not found")
			return
		}

		if err := periods.Delete(r.Context(), id); err != nil {
			writeServiceError(w, r, logger, err)
			return
		}

		events.UnavailableChanged(websocket.TypeUnavailableDeleted, *period)
		w.WriteHeader(http.StatusNoContent)
	}
}

// DashboardResponse is the host overview.
type DashboardResponse struct {
	Room        *models.Room                  `json:"room"`
	Upcoming    []models.BookingWithGuest     `json:"upcoming"`
	Unavailable []models.UnavailablePeriod    `json:"unavailable"`
	Calendars   []models.CalendarSubscription `json:"calendars"`
}

// Dashboard returns the room, upcoming bookings with guest details and
// blackout periods.
func Dashboard(
	rooms *storage.RoomRepository,
	bookings *booking.Service,
	periods *storage.UnavailableRepository,
	calendars *storage.CalendarRepository,
	logger logrus.FieldLogger,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		room, err := rooms.GetDefault(ctx)
		if err != nil {
			writeServiceError(w, r, logger, err)
			return
		}
		upcoming, err := bookings.Upcoming(ctx)
		if err != nil {
			writeServiceError(w, r, logger, err)
			return
		}
		blocked, err := periods.List(ctx, availability.StartOfDay(time.Now()))
		if err != nil {
			writeServiceError(w, r, logger, err)
			return
		}
		subs, err := calendars.List(ctx)
		if err != nil {
			writeServiceError(w, r, logger, err)
			return
		}

		resp := DashboardResponse{
			Room:        room,
			Upcoming:    upcoming,
			Unavailable: blocked,
			Calendars:   subs,
		}
		if resp.Upcoming == nil {
			resp.Upcoming = []models.BookingWithGuest{}
		}
		if resp.Unavailable == nil {
			resp.Unavailable = []models.UnavailablePeriod{}
		}
		if resp.Calendars == nil {
			resp.Calendars = []models.CalendarSubscription{}
		}

		writeJSON(w, http.StatusOK, resp)
	}
}
