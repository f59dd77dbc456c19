package auth

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/bnb-reservations/backend/internal/storage"
	"github.com/bnb-reservations/backend/internal/storage/models"
)

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("pass123")
	if err != nil {
		t.Fatalf("HashPassword failed: %v", err)
	}
	if hash == "" || hash == "pass123" {
		t.Fatal("expected a bcrypt hash")
	}
	if err := VerifyPassword(hash, "pass123"); err != nil {
		t.Fatalf("VerifyPassword should succeed: %v", err)
	}
	if err := VerifyPassword(hash, "wrong-pass"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestTokenIssuer_RoundTrip(t *testing.T) {
	issuer, err := NewTokenIssuer([]byte("test-secret"), time.Hour)
	if err != nil {
		t.Fatalf("creating issuer: %v", err)
	}

	token, expires, err := issuer.Issue(Principal{UserID: "u-1", Role: models.RoleGuest})
	if err != nil {
		t.Fatalf("issuing token: %v", err)
	}
	if time.Until(expires) <= 0 {
		t.Fatalf("expected expiry in the future, got %s", expires)
	}

	p, err := issuer.Verify(token)
	if err != nil {
		t.Fatalf("verifying token: %v", err)
	}
	if p.UserID != "u-1" || p.Role != models.RoleGuest {
		t.Fatalf("unexpected principal %+v", p)
	}
}

func TestTokenIssuer_RejectsExpiredAndForeign(t *testing.T) {
	issuer, _ := NewTokenIssuer([]byte("test-secret"), time.Hour)
	token, _, err := issuer.Issue(Principal{UserID: "u-1", Role: models.RoleHost})
	if err != nil {
		t.Fatalf("issuing token: %v", err)
	}

	issuer.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	if _, err := issuer.Verify(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected expired token to fail, got %v", err)
	}

	other, _ := NewTokenIssuer([]byte("other-secret"), time.Hour)
	if _, err := other.Verify(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected foreign token to fail, got %v", err)
	}

	if _, err := issuer.Verify("not.a.token"); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected garbage to fail, got %v", err)
	}
}

func TestPolicy_Allowed(t *testing.T) {
	policy, err := NewPolicy()
	if err != nil {
		t.Fatalf("creating policy: %v", err)
	}

	tests := []struct {
		role, path, method string
		want               bool
	}{
		{RoleAnonymous, "/api/availability", "GET", true},
		{RoleAnonymous, "/api/auth/signin", "POST", true},
		{RoleAnonymous, "/api/bookings", "POST", false},
		{RoleAnonymous, "/api/calendar.ics", "GET", true},
		{"", "/api/guestbook", "GET", true},
		{models.RoleGuest, "/api/bookings", "POST", true},
		{models.RoleGuest, "/api/bookings/abc", "DELETE", true},
		{models.RoleGuest, "/api/health", "GET", true},
		{models.RoleGuest, "/api/unavailable", "POST", false},
		{models.RoleGuest, "/api/dashboard", "GET", false},
		{models.RoleGuest, "/api/calendars", "GET", false},
		{models.RoleHost, "/api/unavailable/xyz", "DELETE", true},
		{models.RoleHost, "/api/calendars/xyz/sync", "POST", true},
		{models.RoleHost, "/api/bookings", "GET", true},
		{models.RoleHost, "/api/room", "PUT", true},
		{models.RoleHost, "/api/room", "DELETE", false},
	}

	for _, tt := range tests {
		got, err := policy.Allowed(tt.role, tt.path, tt.method)
		if err != nil {
			t.Fatalf("Allowed(%s, %s, %s) error: %v", tt.role, tt.path, tt.method, err)
		}
		if got != tt.want {
			t.Errorf("Allowed(%q, %s, %s) = %v, want %v", tt.role, tt.path, tt.method, got, tt.want)
		}
	}
}

func newTestService(t *testing.T) *Service {
	t.Helper()
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	db, err := storage.NewDB(filepath.Join(t.TempDir(), "auth.db"))
	if err != nil {
		t.Fatalf("opening database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := storage.RunMigrations(db, logger); err != nil {
		t.Fatalf("running migrations: %v", err)
	}

	issuer, err := NewTokenIssuer([]byte("test-secret"), time.Hour)
	if err != nil {
		t.Fatalf("creating issuer: %v", err)
	}
	return NewService(storage.NewUserRepository(db), issuer, logger)
}

func TestService_SignUpSignIn(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	if _, err := svc.SignUp(ctx, SignUpInput{Name: "Ida", Mail: "ida@example.com", Password: "12345"}); !errors.Is(err, ErrPasswordTooShort) {
		t.Fatalf("expected ErrPasswordTooShort, got %v", err)
	}

	session, err := svc.SignUp(ctx, SignUpInput{Name: " Ida ", Mail: "Ida@Example.com", Password: "123456"})
	if err != nil {
		t.Fatalf("sign up: %v", err)
	}
	if session.User.Role != models.RoleGuest || session.User.Name != "Ida" {
		t.Fatalf("unexpected user %+v", session.User)
	}

	if _, err := svc.SignUp(ctx, SignUpInput{Name: "Ida", Mail: "ida@example.com", Password: "123456"}); !errors.Is(err, storage.ErrDuplicateMail) {
		t.Fatalf("expected ErrDuplicateMail, got %v", err)
	}

	if _, err := svc.SignIn(ctx, "ida@example.com", "wrong-password"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if _, err := svc.SignIn(ctx, "nobody@example.com", "123456"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for unknown mail, got %v", err)
	}

	signed, err := svc.SignIn(ctx, "IDA@example.com", "123456")
	if err != nil {
		t.Fatalf("sign in: %v", err)
	}

	p, err := svc.Authenticate(ctx, signed.Token)
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if p.UserID != session.User.ID || p.IsHost() {
		t.Fatalf("unexpected principal %+v", p)
	}
}

func TestService_EnsureHostPromotesExisting(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	session, err := svc.SignUp(ctx, SignUpInput{Name: "Owner", Mail: "owner@example.com", Password: "guestpass"})
	if err != nil {
		t.Fatalf("sign up: %v", err)
	}

	if err := svc.EnsureHost(ctx, "Owner", "owner@example.com", "hostpass"); err != nil {
		t.Fatalf("ensure host: %v", err)
	}

	// The old token now resolves to the host role.
	p, err := svc.Authenticate(ctx, session.Token)
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if !p.IsHost() {
		t.Fatalf("expected host principal, got %+v", p)
	}

	if _, err := svc.SignIn(ctx, "owner@example.com", "hostpass"); err != nil {
		t.Fatalf("expected new host password to work: %v", err)
	}
}

func TestService_UpdateProfile(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	session, err := svc.SignUp(ctx, SignUpInput{Name: "Bo", Mail: "bo@example.com", Password: "123456"})
	if err != nil {
		t.Fatalf("sign up: %v", err)
	}

	user, err := svc.UpdateProfile(ctx, session.User.ID, ProfileInput{Phone: "+45 12345678"})
	if err != nil {
		t.Fatalf("update profile: %v", err)
	}
	if user.Phone != "+45 12345678" || user.Name != "Bo" {
		t.Fatalf("unexpected user %+v", user)
	}

	if _, err := svc.UpdateProfile(ctx, session.User.ID, ProfileInput{Password: "abc"}); !errors.Is(err, ErrPasswordTooShort) {
		t.Fatalf("expected ErrPasswordTooShort, got %v", err)
	}
}

func TestPrincipal_CanManage(t *testing.T) {
	guest := Principal{UserID: "u-1", Role: models.RoleGuest}
	if !guest.CanManage("u-1") || guest.CanManage("u-2") {
		t.Fatal("guest should manage only own records")
	}
	host := Principal{UserID: "h", Role: models.RoleHost}
	if !host.CanManage("u-2") {
		t.Fatal("host should manage any record")
	}
	if Anonymous().CanManage("") {
		t.Fatal("anonymous must not manage ownerless records")
	}

	ctx := WithPrincipal(context.Background(), guest)
	if PrincipalFrom(ctx) != guest || PrincipalFrom(context.Background()).Role != RoleAnonymous {
		t.Fatal("principal context round trip failed")
	}
}
