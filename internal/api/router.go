// Package api provides HTTP routing and handlers for the REST API.
package api

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/bnb-reservations/backend/internal/api/handlers"
	"github.com/bnb-reservations/backend/internal/api/middleware"
	"github.com/bnb-reservations/backend/internal/auth"
	"github.com/bnb-reservations/backend/internal/booking"
	"github.com/bnb-reservations/backend/internal/calendar"
	"github.com/bnb-reservations/backend/internal/guestbook"
	"github.com/bnb-reservations/backend/internal/storage"
	"github.com/bnb-reservations/backend/internal/websocket"
)

// Deps are the services and repositories the routes need.
type Deps struct {
	DB     *storage.DB
	Hub    *websocket.Hub
	Events *websocket.EventBroadcaster
	Logger logrus.FieldLogger

	Auth      *auth.Service
	Policy    *auth.Policy
	Bookings  *booking.Service
	Guestbook *guestbook.Service

	Rooms       *storage.RoomRepository
	Unavailable *storage.UnavailableRepository
	Calendars   *storage.CalendarRepository
	Settings    *storage.SettingsRepository

	Exporter  *calendar.Exporter
	Scheduler *calendar.Scheduler

	CORSOrigins []string

	// StaticDir, when set, is served for every non-API path.
	StaticDir string
}

// NewRouter creates and configures the HTTP handler with all API routes.
func NewRouter(d Deps) http.Handler {
	log := d.Logger
	r := mux.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Logging(log))
	r.Use(middleware.ErrorRecovery(log))

	api := r.PathPrefix("/api").Subrouter()
	api.Use(middleware.Authenticate(d.Auth, log))
	api.Use(middleware.Authorize(d.Policy, log))

	// Health and live updates
	api.HandleFunc("/health", handlers.HealthCheck(d.DB, d.Hub)).Methods("GET")
	api.HandleFunc("/ws", handlers.WebSocketUpgrade(d.Hub, d.CORSOrigins, log)).Methods("GET")

	// Accounts
	api.HandleFunc("/auth/signup", handlers.SignUp(d.Auth, log)).Methods("POST")
	api.HandleFunc("/auth/signin", handlers.SignIn(d.Auth, log)).Methods("POST")
	api.HandleFunc("/auth/signout", handlers.SignOut()).Methods("POST")
	api.HandleFunc("/me", handlers.GetMe(d.Auth, log)).Methods("GET")
	api.HandleFunc("/me", handlers.UpdateMe(d.Auth, log)).Methods("PUT")

	// Availability
	api.HandleFunc("/availability", handlers.CheckAvailability(d.Bookings, log)).Methods("GET")
	api.HandleFunc("/availability/ranges", handlers.ListOccupiedRanges(d.Bookings, log)).Methods("GET")

	// Room and blackout periods
	api.HandleFunc("/room", handlers.GetRoom(d.Rooms, log)).Methods("GET")
	api.HandleFunc("/room", handlers.UpdateRoom(d.Rooms, log)).Methods("PUT")
	api.HandleFunc("/unavailable", handlers.ListUnavailable(d.Unavailable, log)).Methods("GET")
	api.HandleFunc("/unavailable", handlers.CreateUnavailable(d.Unavailable, d.Events, log)).Methods("POST")
	api.HandleFunc("/unavailable/{id}", handlers.DeleteUnavailable(d.Unavailable, d.Events, log)).Methods("DELETE")
	api.HandleFunc("/dashboard", handlers.Dashboard(d.Rooms, d.Bookings, d.Unavailable, d.Calendars, log)).Methods("GET")

	// Bookings
	api.HandleFunc("/bookings", handlers.ListBookings(d.Bookings, log)).Methods("GET")
	api.HandleFunc("/bookings", handlers.CreateBooking(d.Bookings, log)).Methods("POST")
	api.HandleFunc("/bookings/{id}", handlers.GetBooking(d.Bookings, log)).Methods("GET")
	api.HandleFunc("/bookings/{id}", handlers.UpdateBooking(d.Bookings, log)).Methods("PUT")
	api.HandleFunc("/bookings/{id}", handlers.CancelBooking(d.Bookings, log)).Methods("DELETE")

	// Guestbook
	api.HandleFunc("/guestbook", handlers.ListGuestbook(d.Guestbook, log)).Methods("GET")
	api.HandleFunc("/guestbook", handlers.CreateGuestbookEntry(d.Guestbook, log)).Methods("POST")
	api.HandleFunc("/guestbook/{id}", handlers.UpdateGuestbookEntry(d.Guestbook, log)).Methods("PUT")
	api.HandleFunc("/guestbook/{id}", handlers.DeleteGuestbookEntry(d.Guestbook, log)).Methods("DELETE")

	// Calendar feeds
	api.HandleFunc("/calendar.ics", handlers.ExportCalendar(d.Exporter, log)).Methods("GET")
	api.HandleFunc("/calendars", handlers.ListCalendars(d.Calendars, d.Scheduler, log)).Methods("GET")
	api.HandleFunc("/calendars", handlers.CreateCalendar(d.Calendars, d.Settings, d.Scheduler, log)).Methods("POST")
	api.HandleFunc("/calendars/{id}", handlers.GetCalendar(d.Calendars, d.Scheduler, log)).Methods("GET")
	api.HandleFunc("/calendars/{id}", handlers.UpdateCalendar(d.Calendars, d.Settings, d.Scheduler, log)).Methods("PUT")
	api.HandleFunc("/calendars/{id}", handlers.DeleteCalendar(d.Calendars, d.Scheduler, log)).Methods("DELETE")
	api.HandleFunc("/calendars/{id}/sync", handlers.SyncCalendar(d.Calendars, d.Scheduler, log)).Methods("POST")

	// Settings
	api.HandleFunc("/settings", handlers.GetSettings(d.Settings, log)).Methods("GET")
	api.HandleFunc("/settings", handlers.UpdateSettings(d.Settings, log)).Methods("PUT")

	// Serve static frontend files
	if d.StaticDir != "" {
		r.PathPrefix("/").Handler(http.FileServer(http.Dir(d.StaticDir)))
	}

	return middleware.CORS(d.CORSOrigins)(r)
}
