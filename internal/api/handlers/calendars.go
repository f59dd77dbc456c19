package handlers

import (
	"bytes"
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/bnb-reservations/backend/internal/api/middleware"
	"github.com/bnb-reservations/backend/internal/calendar"
	"github.com/bnb-reservations/backend/internal/storage"
	"github.com/bnb-reservations/backend/internal/storage/models"
	"github.com/bnb-reservations/backend/internal/validation"
)

// CalendarRequest creates or updates a calendar subscription.
type CalendarRequest struct {
	Name            string `json:"name" validate:"notblank,max=100"`
	URL             string `json:"url" validate:"required,url,max=2000"`
	SyncIntervalMin int    `json:"sync_interval_min" validate:"omitempty,gte=5,lte=1440"`
	Enabled         bool   `json:"enabled"`
}

// CalendarResponse adds the next scheduled sync to a subscription.
type CalendarResponse struct {
	models.CalendarSubscription
	NextSyncAt *string `json:"next_sync_at,omitempty"`
}

func calendarResponse(cal models.CalendarSubscription, scheduler *calendar.Scheduler) CalendarResponse {
	resp := CalendarResponse{CalendarSubscription: cal}
	if scheduler != nil {
		if next := scheduler.NextRun(cal.ID); next != nil {
			s := next.UTC().Format("2006-01-02T15:04:05Z07:00")
			resp.NextSyncAt = &s
		}
	}
	return resp
}

// ListCalendars returns all calendar subscriptions.
func ListCalendars(calendars *storage.CalendarRepository, scheduler *calendar.Scheduler, logger logrus.FieldLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := calendars.List(r.Context())
		if err != nil {
			writeServiceError(w, r, logger, err)
			return
		}

		out := make([]CalendarResponse, 0, len(list))
		for _, cal := range list {
			out = append(out, calendarResponse(cal, scheduler))
		}
		writeJSON(w, http.StatusOK, out)
	}
}

// CreateCalendar adds a new calendar subscription. An interval of zero uses
// the site default.
func CreateCalendar(calendars *storage.CalendarRepository, settings *storage.SettingsRepository, scheduler *calendar.Scheduler, logger logrus.FieldLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CalendarRequest
		if !decode(w, r, &req) {
			return
		}
		if err := validation.Struct(req); err != nil {
			writeServiceError(w, r, logger, err)
			return
		}

		if req.SyncIntervalMin == 0 {
			req.SyncIntervalMin = defaultSyncInterval(r, settings)
		}

		cal := &models.CalendarSubscription{
			Name:            strings.TrimSpace(req.Name),
			URL:             strings.TrimSpace(req.URL),
			SyncIntervalMin: req.SyncIntervalMin,
			Enabled:         req.Enabled,
		}
		if err := calendars.Create(r.Context(), cal); err != nil {
			writeServiceError(w, r, logger, err)
			return
		}

		if scheduler != nil && cal.Enabled {
			scheduler.ScheduleCalendar(*cal)
		}

		writeJSON(w, http.StatusCreated, calendarResponse(*cal, scheduler))
	}
}

// GetCalendar returns a single calendar by ID.
func GetCalendar(calendars *storage.CalendarRepository, scheduler *calendar.Scheduler, logger logrus.FieldLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cal, err := calendars.GetByID(r.Context(), mux.Vars(r)["id"])
		if err != nil {
			writeServiceError(w, r, logger, err)
			return
		}
		if cal == nil {
			middleware.WriteError(w, http.StatusNotFound, middleware.ErrNotFound, "Calendar not found")
			return
		}
		writeJSON(w, http.StatusOK, calendarResponse(*cal, scheduler))
	}
}

// UpdateCalendar updates an existing calendar and reschedules it.
func UpdateCalendar(calendars *storage.CalendarRepository, settings *storage.SettingsRepository, scheduler *calendar.Scheduler, logger logrus.FieldLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CalendarRequest
		if !decode(w, r, &req) {
			return
		}
		if err := validation.Struct(req); err != nil {
			writeServiceError(w, r, logger, err)
			return
		}

		cal, err := calendars.GetByID(r.Context(), mux.Vars(r)["id"])
		if err != nil {
			writeServiceError(w, r, logger, err)
			return
		}
		if cal == nil {
			middleware.WriteError(w, http.StatusNotFound, middleware.ErrNotFound, "Calendar not found")
			return
		}

		if req.SyncIntervalMin == 0 {
			req.SyncIntervalMin = defaultSyncInterval(r, settings)
		}
		cal.Name = strings.TrimSpace(req.Name)
		cal.URL = strings.TrimSpace(req.URL)
		cal.SyncIntervalMin = req.SyncIntervalMin
		cal.Enabled = req.Enabled

		if err := calendars.Update(r.Context(), cal); err != nil {
			writeServiceError(w, r, logger, err)
			return
		}

		if scheduler != nil {
			scheduler.ScheduleCalendar(*cal)
		}

		writeJSON(w, http.StatusOK, calendarResponse(*cal, scheduler))
	}
}

// DeleteCalendar removes a calendar subscription together with the periods
// it imported.
func DeleteCalendar(calendars *storage.CalendarRepository, scheduler *calendar.Scheduler, logger logrus.FieldLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := mux.Vars(r)["id"]

		if err := calendars.Delete(r.Context(), id); err != nil {
			writeServiceError(w, r, logger, err)
			return
		}

		if scheduler != nil {
			scheduler.UnscheduleCalendar(id)
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

// SyncCalendar triggers a background sync. The outcome arrives over the
// WebSocket as calendar.sync_completed or calendar.sync_error.
func SyncCalendar(calendars *storage.CalendarRepository, scheduler *calendar.Scheduler, logger logrus.FieldLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cal, err := calendars.GetByID(r.Context(), mux.Vars(r)["id"])
		if err != nil {
			writeServiceError(w, r, logger, err)
			return
		}
		if cal == nil {
			middleware.WriteError(w, http.StatusNotFound, middleware.ErrNotFound, "Calendar not found")
			return
		}

		scheduler.TriggerSync(cal.ID)
		writeJSON(w, http.StatusAccepted, map[string]string{"status": models.SyncStatusSyncing})
	}
}

// ExportCalendar serves booked and blocked dates as an iCal feed.
func ExportCalendar(exporter *calendar.Exporter, logger logrus.FieldLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var buf bytes.Buffer
		if err := exporter.Write(r.Context(), &buf); err != nil {
			writeServiceError(w, r, logger, err)
			return
		}

		w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
		w.Header().Set("Content-Disposition", `inline; filename="availability.ics"`)
		w.Header().Set("Cache-Control", "no-cache")
		w.Write(buf.Bytes())
	}
}

func defaultSyncInterval(r *http.Request, settings *storage.SettingsRepository) int {
	s, err := settings.Get(r.Context())
	if err != nil {
		return 15
	}
	n := parseInterval(s.DefaultSyncIntervalMin)
	if n < models.MinSyncIntervalMin {
		return 15
	}
	return n
}
