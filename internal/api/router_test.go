package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/bnb-reservations/backend/internal/api/middleware"
	"github.com/bnb-reservations/backend/internal/auth"
	"github.com/bnb-reservations/backend/internal/booking"
	"github.com/bnb-reservations/backend/internal/calendar"
	"github.com/bnb-reservations/backend/internal/guestbook"
	"github.com/bnb-reservations/backend/internal/storage"
	"github.com/bnb-reservations/backend/internal/websocket"
)

const (
	hostMail     = "host@example.com"
	hostPassword = "host-secret"
)

type testServer struct {
	*httptest.Server
	t *testing.T
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	db, err := storage.NewDB(filepath.Join(t.TempDir(), "api.db"))
	if err != nil {
		t.Fatalf("opening database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := storage.RunMigrations(db, logger); err != nil {
		t.Fatalf("running migrations: %v", err)
	}

	tokens, err := auth.NewTokenIssuer([]byte("test-secret-test-secret-test-sec"), time.Hour)
	if err != nil {
		t.Fatalf("creating token issuer: %v", err)
	}
	policy, err := auth.NewPolicy()
	if err != nil {
		t.Fatalf("creating policy: %v", err)
	}

	rooms := storage.NewRoomRepository(db)
	bookings := storage.NewBookingRepository(db)
	unavailable := storage.NewUnavailableRepository(db)
	calendars := storage.NewCalendarRepository(db)
	settings := storage.NewSettingsRepository(db)

	authService := auth.NewService(storage.NewUserRepository(db), tokens, logger)
	if err := authService.EnsureHost(context.Background(), "Host", hostMail, hostPassword); err != nil {
		t.Fatalf("ensuring host: %v", err)
	}

	hub := websocket.NewHub(logger)
	go hub.Run()
	t.Cleanup(hub.Stop)
	events := websocket.NewEventBroadcaster(hub)

	syncService := calendar.NewSyncService(db, calendars, unavailable, calendar.NewParser(time.Second, logger), logger)

	handler := NewRouter(Deps{
		DB:          db,
		Hub:         hub,
		Events:      events,
		Logger:      logger,
		Auth:        authService,
		Policy:      policy,
		Bookings:    booking.NewService(db, bookings, unavailable, events, logger),
		Guestbook:   guestbook.NewService(storage.NewGuestEntryRepository(db), bookings, logger),
		Rooms:       rooms,
		Unavailable: unavailable,
		Calendars:   calendars,
		Settings:    settings,
		Exporter:    calendar.NewExporter(rooms, bookings, unavailable),
		Scheduler:   calendar.NewScheduler(syncService, calendars, events, 15, logger),
	})

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return &testServer{Server: srv, t: t}
}

// do sends a JSON request and returns the status and decoded body.
func (s *testServer) do(method, path, token string, body any) (int, map[string]any) {
	s.t.Helper()

	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			s.t.Fatalf("encoding body: %v", err)
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequest(method, s.URL+path, reader)
	if err != nil {
		s.t.Fatalf("building request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		s.t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(resp.Body)
	out := map[string]any{}
	if len(raw) > 0 && raw[0] == '{' {
		if err := json.Unmarshal(raw, &out); err != nil {
			s.t.Fatalf("decoding %s %s response: %v", method, path, err)
		}
	}
	return resp.StatusCode, out
}

func (s *testServer) signUp(name, mail string) string {
	s.t.Helper()
	status, body := s.do("POST", "/api/auth/signup", "", map[string]any{
		"name": name, "mail": mail, "phone": "+41 79 000 00 00", "password": "guest-secret",
	})
	if status != http.StatusCreated {
		s.t.Fatalf("signup status = %d, body %v", status, body)
	}
	return body["token"].(string)
}

func (s *testServer) signIn(mail, password string) string {
	s.t.Helper()
	status, body := s.do("POST", "/api/auth/signin", "", map[string]any{"mail": mail, "password": password})
	if status != http.StatusOK {
		s.t.Fatalf("signin status = %d, body %v", status, body)
	}
	return body["token"].(string)
}

func bookingBody(start, end string) map[string]any {
	return map[string]any{
		"start_date":   start,
		"end_date":     end,
		"package":      "bed+room",
		"accept_terms": true,
	}
}

func TestRouter_Health(t *testing.T) {
	s := newTestServer(t)

	status, body := s.do("GET", "/api/health", "", nil)
	if status != http.StatusOK {
		t.Fatalf("status = %d", status)
	}
	if body["status"] != "healthy" || body["db_connected"] != true {
		t.Errorf("body = %v", body)
	}
}

func TestRouter_SignUpAndMe(t *testing.T) {
	s := newTestServer(t)
	token := s.signUp("Jane", "jane@example.com")

	status, me := s.do("GET", "/api/me", token, nil)
	if status != http.StatusOK {
		t.Fatalf("me status = %d", status)
	}
	if me["mail"] != "jane@example.com" || me["role"] != "guest" {
		t.Errorf("me = %v", me)
	}
	if _, leaked := me["password_hash"]; leaked {
		t.Error("password hash must not be serialised")
	}

	status, body := s.do("POST", "/api/auth/signup", "", map[string]any{
		"name": "Jane again", "mail": "JANE@example.com", "password": "guest-secret",
	})
	if status != http.StatusConflict {
		t.Errorf("duplicate signup status = %d, body %v", status, body)
	}

	status, _ = s.do("POST", "/api/auth/signin", "", map[string]any{"mail": "jane@example.com", "password": "wrong-pass"})
	if status != http.StatusUnauthorized {
		t.Errorf("wrong password status = %d", status)
	}

	s.signIn("jane@example.com", "guest-secret")
}

func TestRouter_SignUpValidation(t *testing.T) {
	s := newTestServer(t)

	status, body := s.do("POST", "/api/auth/signup", "", map[string]any{"name": " ", "mail": "not-a-mail", "password": "x"})
	if status != http.StatusBadRequest {
		t.Fatalf("status = %d", status)
	}
	if body["error"] != middleware.ErrValidation {
		t.Errorf("error = %v", body["error"])
	}
	fields, _ := body["details"].(map[string]any)
	for _, f := range []string{"name", "mail", "password"} {
		if _, ok := fields[f]; !ok {
			t.Errorf("missing field error for %q in %v", f, fields)
		}
	}
}

func TestRouter_Access(t *testing.T) {
	s := newTestServer(t)
	guest := s.signUp("Jane", "jane@example.com")

	tests := []struct {
		name   string
		method string
		path   string
		token  string
		want   int
	}{
		{"anonymous reads availability", "GET", "/api/availability?start=2099-01-01&end=2099-01-02", "", http.StatusOK},
		{"anonymous lists bookings", "GET", "/api/bookings", "", http.StatusUnauthorized},
		{"anonymous reads settings", "GET", "/api/settings", "", http.StatusUnauthorized},
		{"guest reads settings", "GET", "/api/settings", guest, http.StatusForbidden},
		{"guest reads dashboard", "GET", "/api/dashboard", guest, http.StatusForbidden},
		{"garbage token is anonymous", "GET", "/api/me", "garbage", http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, _ := s.do(tt.method, tt.path, tt.token, nil)
			if status != tt.want {
				t.Errorf("status = %d, want %d", status, tt.want)
			}
		})
	}
}

func TestRouter_AvailabilityValidation(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		query string
		want  string
	}{
		{"start=2099-01-05&end=2099-01-01", middleware.ErrInvalidRange},
		{"start=2099-01-05", middleware.ErrValidation},
		{"start=05.01.2099&end=2099-01-06", middleware.ErrBadRequest},
	}

	for _, tt := range tests {
		status, body := s.do("GET", "/api/availability?"+tt.query, "", nil)
		if status != http.StatusBadRequest {
			t.Errorf("%s: status = %d", tt.query, status)
		}
		if body["error"] != tt.want {
			t.Errorf("%s: error = %v, want %s", tt.query, body["error"], tt.want)
		}
	}
}

func TestRouter_BookingLifecycle(t *testing.T) {
	s := newTestServer(t)
	jane := s.signUp("Jane", "jane@example.com")
	john := s.signUp("John", "john@example.com")

	status, created := s.do("POST", "/api/bookings", jane, bookingBody("2099-06-10", "2099-06-12"))
	if status != http.StatusCreated {
		t.Fatalf("create status = %d, body %v", status, created)
	}
	id := created["id"].(string)

	// The last night is shared, so this overlaps.
	status, body := s.do("POST", "/api/bookings", john, bookingBody("2099-06-12", "2099-06-14"))
	if status != http.StatusConflict {
		t.Fatalf("overlapping create status = %d", status)
	}
	details, _ := body["details"].(map[string]any)
	if details["source"] != "booking" || details["start"] != "2099-06-10" || details["end"] != "2099-06-12" {
		t.Errorf("conflict details = %v", details)
	}

	status, avail := s.do("GET", "/api/availability?start=2099-06-11&end=2099-06-11", "", nil)
	if status != http.StatusOK || avail["available"] != false || avail["verdict"] != "conflict" {
		t.Errorf("availability = %d %v", status, avail)
	}

	status, avail = s.do("GET", "/api/availability?start=2099-06-11&end=2099-06-13&exclude="+id, "", nil)
	if status != http.StatusOK || avail["available"] != true {
		t.Errorf("availability excluding own booking = %d %v", status, avail)
	}

	// Moving the booking onto its own dates must not collide with itself.
	status, body = s.do("PUT", "/api/bookings/"+id, jane, bookingBody("2099-06-11", "2099-06-13"))
	if status != http.StatusOK {
		t.Fatalf("update status = %d, body %v", status, body)
	}

	status, _ = s.do("GET", "/api/bookings/"+id, john, nil)
	if status != http.StatusForbidden {
		t.Errorf("foreign get status = %d", status)
	}
	status, _ = s.do("DELETE", "/api/bookings/"+id, john, nil)
	if status != http.StatusForbidden {
		t.Errorf("foreign cancel status = %d", status)
	}

	// Both updates ask for dates held by another booking; ownership and
	// existence are answered before availability.
	if status, body := s.do("POST", "/api/bookings", john, bookingBody("2099-07-01", "2099-07-03")); status != http.StatusCreated {
		t.Fatalf("john's booking status = %d, body %v", status, body)
	}
	status, _ = s.do("PUT", "/api/bookings/"+id, john, bookingBody("2099-07-02", "2099-07-02"))
	if status != http.StatusForbidden {
		t.Errorf("foreign update onto taken dates status = %d", status)
	}
	status, _ = s.do("PUT", "/api/bookings/does-not-exist", john, bookingBody("2099-06-11", "2099-06-12"))
	if status != http.StatusNotFound {
		t.Errorf("unknown booking update status = %d", status)
	}

	status, _ = s.do("DELETE", "/api/bookings/"+id, jane, nil)
	if status != http.StatusNoContent {
		t.Fatalf("cancel status = %d", status)
	}

	status, body = s.do("POST", "/api/bookings", john, bookingBody("2099-06-12", "2099-06-14"))
	if status != http.StatusCreated {
		t.Errorf("create after cancel status = %d, body %v", status, body)
	}
}

func TestRouter_BookingValidation(t *testing.T) {
	s := newTestServer(t)
	jane := s.signUp("Jane", "jane@example.com")

	req := bookingBody("2099-06-10", "2099-06-12")
	req["package"] = "suite"
	req["brings_car"] = true
	req["accept_terms"] = false

	status, body := s.do("POST", "/api/bookings", jane, req)
	if status != http.StatusBadRequest {
		t.Fatalf("status = %d", status)
	}
	fields, _ := body["details"].(map[string]any)
	for _, f := range []string{"package", "plate_number", "accept_terms"} {
		if _, ok := fields[f]; !ok {
			t.Errorf("missing field error for %q in %v", f, fields)
		}
	}

	status, body = s.do("POST", "/api/bookings", jane, bookingBody("2099-06-12", "2099-06-10"))
	if status != http.StatusBadRequest || body["error"] != middleware.ErrInvalidRange {
		t.Errorf("reversed range = %d %v", status, body)
	}
}

func TestRouter_BlackoutBlocksBooking(t *testing.T) {
	s := newTestServer(t)
	host := s.signIn(hostMail, hostPassword)
	jane := s.signUp("Jane", "jane@example.com")

	status, period := s.do("POST", "/api/unavailable", host, map[string]any{
		"start_date": "2099-08-01", "end_date": "2099-08-05", "reason": "Renovation",
	})
	if status != http.StatusCreated {
		t.Fatalf("create blackout status = %d, body %v", status, period)
	}

	status, body := s.do("POST", "/api/bookings", jane, bookingBody("2099-08-05", "2099-08-07"))
	if status != http.StatusConflict {
		t.Fatalf("status = %d", status)
	}
	details, _ := body["details"].(map[string]any)
	if details["source"] != "unavailable" || details["reason"] != "Renovation" {
		t.Errorf("details = %v", details)
	}
	if msg, _ := body["message"].(string); !strings.Contains(msg, "Renovation") {
		t.Errorf("message = %q", msg)
	}

	status, _ = s.do("DELETE", "/api/unavailable/"+period["id"].(string), host, nil)
	if status != http.StatusNoContent {
		t.Fatalf("delete blackout status = %d", status)
	}

	status, _ = s.do("POST", "/api/bookings", jane, bookingBody("2099-08-05", "2099-08-07"))
	if status != http.StatusCreated {
		t.Errorf("create after blackout removed status = %d", status)
	}
}

func TestRouter_Guestbook(t *testing.T) {
	s := newTestServer(t)
	jane := s.signUp("Jane", "jane@example.com")
	entry := map[string]any{"message": "Lovely stay", "rating": 5}

	status, _ := s.do("POST", "/api/guestbook", jane, entry)
	if status != http.StatusForbidden {
		t.Fatalf("entry without booking status = %d", status)
	}

	if status, _ := s.do("POST", "/api/bookings", jane, bookingBody("2099-03-01", "2099-03-02")); status != http.StatusCreated {
		t.Fatalf("booking status = %d", status)
	}

	status, created := s.do("POST", "/api/guestbook", jane, entry)
	if status != http.StatusCreated {
		t.Fatalf("entry status = %d, body %v", status, created)
	}

	status, body := s.do("POST", "/api/guestbook", jane, map[string]any{"message": "", "rating": 9})
	if status != http.StatusBadRequest {
		t.Errorf("invalid entry status = %d, body %v", status, body)
	}

	john := s.signUp("John", "john@example.com")
	status, _ = s.do("DELETE", "/api/guestbook/"+created["id"].(string), john, nil)
	if status != http.StatusForbidden {
		t.Errorf("foreign delete status = %d", status)
	}

	resp, err := http.Get(s.URL + "/api/guestbook")
	if err != nil {
		t.Fatalf("listing guestbook: %v", err)
	}
	defer resp.Body.Close()
	var entries []map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&entries); err != nil {
		t.Fatalf("decoding guestbook: %v", err)
	}
	if len(entries) != 1 || entries[0]["author_name"] != "Jane" {
		t.Errorf("entries = %v", entries)
	}
}

func TestRouter_CalendarExport(t *testing.T) {
	s := newTestServer(t)
	jane := s.signUp("Jane", "jane@example.com")
	if status, _ := s.do("POST", "/api/bookings", jane, bookingBody("2099-09-01", "2099-09-03")); status != http.StatusCreated {
		t.Fatalf("booking status = %d", status)
	}

	resp, err := http.Get(s.URL + "/api/calendar.ics")
	if err != nil {
		t.Fatalf("fetching feed: %v", err)
	}
	defer resp.Body.Close()

	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/calendar") {
		t.Errorf("content type = %q", ct)
	}
	raw, _ := io.ReadAll(resp.Body)
	feed := string(raw)
	for _, want := range []string{"BEGIN:VCALENDAR", "DTSTART;VALUE=DATE:20990901", "DTEND;VALUE=DATE:20990904", "SUMMARY:Booked"} {
		if !strings.Contains(feed, want) {
			t.Errorf("feed missing %q:\n%s", want, feed)
		}
	}
	if strings.Contains(feed, "jane@example.com") {
		t.Error("feed must not expose guest details")
	}
}

func TestRouter_HostCalendarsAndSettings(t *testing.T) {
	s := newTestServer(t)
	host := s.signIn(hostMail, hostPassword)

	status, body := s.do("POST", "/api/calendars", host, map[string]any{"name": "Channel", "url": "not a url"})
	if status != http.StatusBadRequest {
		t.Errorf("invalid calendar status = %d, body %v", status, body)
	}

	status, cal := s.do("POST", "/api/calendars", host, map[string]any{
		"name": "Channel", "url": "https://example.com/feed.ics", "enabled": false,
	})
	if status != http.StatusCreated {
		t.Fatalf("create calendar status = %d, body %v", status, cal)
	}
	if cal["sync_interval_min"] != float64(15) || cal["sync_status"] != "pending" {
		t.Errorf("calendar = %v", cal)
	}

	status, _ = s.do("DELETE", "/api/calendars/"+cal["id"].(string), host, nil)
	if status != http.StatusNoContent {
		t.Errorf("delete calendar status = %d", status)
	}
	status, _ = s.do("GET", "/api/calendars/"+cal["id"].(string), host, nil)
	if status != http.StatusNotFound {
		t.Errorf("get deleted calendar status = %d", status)
	}

	status, body = s.do("PUT", "/api/settings", host, map[string]any{"checkin_time": "3pm"})
	if status != http.StatusBadRequest {
		t.Errorf("invalid settings status = %d, body %v", status, body)
	}
	status, body = s.do("PUT", "/api/settings", host, map[string]any{"default_sync_interval_min": "2"})
	if status != http.StatusBadRequest {
		t.Errorf("short interval status = %d, body %v", status, body)
	}

	status, settings := s.do("PUT", "/api/settings", host, map[string]any{"checkin_time": "14:30"})
	if status != http.StatusOK {
		t.Fatalf("update settings status = %d, body %v", status, settings)
	}
	if settings["checkin_time"] != "14:30" || settings["checkout_time"] != "11:00" {
		t.Errorf("settings = %v", settings)
	}
}

func TestRouter_RequestIDEchoed(t *testing.T) {
	s := newTestServer(t)

	req, _ := http.NewRequest("GET", s.URL+"/api/health", nil)
	req.Header.Set(middleware.RequestIDHeader, "req-123")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	resp.Body.Close()

	if got := resp.Header.Get(middleware.RequestIDHeader); got != "req-123" {
		t.Errorf("request id = %q", got)
	}
}
