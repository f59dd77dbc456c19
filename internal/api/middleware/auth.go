package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/bnb-reservations/backend/internal/auth"
)

// SessionCookie holds the session token for browser clients.
const SessionCookie = "bnb_session"

// Authenticator resolves a session token to a principal.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (auth.Principal, error)
}

// Authenticate attaches the caller's principal to the request context. A
// missing, expired or unknown token leaves the request anonymous.
func Authenticate(authn Authenticator, logger logrus.FieldLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p := auth.Anonymous()
			if token := sessionToken(r); token != "" {
				resolved, err := authn.Authenticate(r.Context(), token)
				if err == nil {
					p = resolved
				} else {
					logger.WithField("request_id", RequestIDFromContext(r.Context())).
						WithError(err).Debug("ignoring session token")
				}
			}
			next.ServeHTTP(w, r.WithContext(auth.WithPrincipal(r.Context(), p)))
		})
	}
}

// Authorize rejects requests the policy does not allow for the caller's role.
// Anonymous callers get 401, signed-in callers 403.
func Authorize(policy *auth.Policy, logger logrus.FieldLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p := auth.PrincipalFrom(r.Context())

			ok, err := policy.Allowed(p.Role, r.URL.Path, r.Method)
			if err != nil {
				logger.WithError(err).Error("evaluating access policy")
				WriteError(w, http.StatusInternalServerError, ErrInternalError, "Failed to check permissions")
				return
			}
			if !ok {
				if !p.Authenticated() {
					WriteError(w, http.StatusUnauthorized, ErrUnauthorized, "Please sign in to continue")
					return
				}
				WriteError(w, http.StatusForbidden, ErrForbidden, "You are not allowed to do that")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func sessionToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		if token, ok := strings.CutPrefix(h, "Bearer "); ok {
			return strings.TrimSpace(token)
		}
	}
	if c, err := r.Cookie(SessionCookie); err == nil {
		return c.Value
	}
	return ""
}
