package middleware

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sirupsen/logrus"

	"github.com/bnb-reservations/backend/internal/auth"
	"github.com/bnb-reservations/backend/internal/storage/models"
)

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

type stubAuthn map[string]auth.Principal

func (s stubAuthn) Authenticate(_ context.Context, token string) (auth.Principal, error) {
	p, ok := s[token]
	if !ok {
		return auth.Anonymous(), auth.ErrInvalidToken
	}
	return p, nil
}

func TestRequestID(t *testing.T) {
	var seen string
	h := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = RequestIDFromContext(r.Context())
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if seen == "" || rec.Header().Get(RequestIDHeader) != seen {
		t.Fatalf("expected generated request id, got %q / %q", seen, rec.Header().Get(RequestIDHeader))
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	h.ServeHTTP(httptest.NewRecorder(), req)
	if seen != "abc-123" {
		t.Fatalf("expected incoming request id, got %q", seen)
	}
}

func TestErrorRecovery(t *testing.T) {
	h := ErrorRecovery(quietLogger())(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
	var body ErrorResponse
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decoding body: %v", err)
	}
	if body.Error != ErrInternalError {
		t.Fatalf("error code = %q", body.Error)
	}
}

func TestAuthenticateAndAuthorize(t *testing.T) {
	policy, err := auth.NewPolicy()
	if err != nil {
		t.Fatalf("creating policy: %v", err)
	}

	authn := stubAuthn{
		"guest-token": {UserID: "g", Role: models.RoleGuest},
		"host-token":  {UserID: "h", Role: models.RoleHost},
	}

	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	h := Authenticate(authn, quietLogger())(Authorize(policy, quietLogger())(ok))

	tests := []struct {
		name   string
		method string
		path   string
		header string
		cookie string
		want   int
	}{
		{"anonymous public", http.MethodGet, "/api/availability", "", "", http.StatusNoContent},
		{"anonymous booking", http.MethodPost, "/api/bookings", "", "", http.StatusUnauthorized},
		{"bad token is anonymous", http.MethodPost, "/api/bookings", "Bearer nope", "", http.StatusUnauthorized},
		{"guest booking via bearer", http.MethodPost, "/api/bookings", "Bearer guest-token", "", http.StatusNoContent},
		{"guest booking via cookie", http.MethodPost, "/api/bookings", "", "guest-token", http.StatusNoContent},
		{"guest dashboard", http.MethodGet, "/api/dashboard", "Bearer guest-token", "", http.StatusForbidden},
		{"host dashboard", http.MethodGet, "/api/dashboard", "Bearer host-token", "", http.StatusNoContent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			if tt.cookie != "" {
				req.AddCookie(&http.Cookie{Name: SessionCookie, Value: tt.cookie})
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			if rec.Code != tt.want {
				t.Fatalf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}
}

func TestCORS(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})

	if h := CORS(nil)(next); h == nil {
		t.Fatal("expected passthrough handler")
	}

	h := CORS([]string{"https://bnb.example"})(next)
	req := httptest.NewRequest(http.MethodGet, "/api/room", nil)
	req.Header.Set("Origin", "https://bnb.example")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "https://bnb.example" {
		t.Fatalf("allow origin = %q", got)
	}
}

func TestWriteErrorWithDetails(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteErrorWithDetails(rec, http.StatusConflict, ErrConflict, "taken", map[string]string{"source": "booking"})

	var body struct {
		Error   string            `json:"error"`
		Details map[string]string `json:"details"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decoding: %v", err)
	}
	if rec.Code != http.StatusConflict || body.Error != ErrConflict || body.Details["source"] != "booking" {
		t.Fatalf("unexpected response %d %+v", rec.Code, body)
	}
}
