package handlers

import (
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/bnb-reservations/backend/internal/api/middleware"
	"github.com/bnb-reservations/backend/internal/auth"
	"github.com/bnb-reservations/backend/internal/validation"
)

// SignUpRequest is the sign-up form.
type SignUpRequest struct {
	Name     string `json:"name" validate:"notblank,max=100"`
	Mail     string `json:"mail" validate:"required,email,max=254"`
	Phone    string `json:"phone" validate:"max=40"`
	Password string `json:"password" validate:"required,min=6,max=72"`
}

// SignInRequest is the sign-in form.
type SignInRequest struct {
	Mail     string `json:"mail" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// ProfileRequest edits the caller's account. Empty fields stay unchanged.
type ProfileRequest struct {
	Name     string `json:"name" validate:"max=100"`
	Mail     string `json:"mail" validate:"omitempty,email,max=254"`
	Phone    string `json:"phone" validate:"max=40"`
	Password string `json:"password" validate:"omitempty,min=6,max=72"`
}

// SignUp creates a guest account and starts a session.
func SignUp(svc *auth.Service, logger logrus.FieldLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req SignUpRequest
		if !decode(w, r, &req) {
			return
		}
		if err := validation.Struct(req); err != nil {
			writeServiceError(w, r, logger, err)
			return
		}

		session, err := svc.SignUp(r.Context(), auth.SignUpInput{
			Name:     req.Name,
			Mail:     req.Mail,
			Phone:    req.Phone,
			Password: req.Password,
		})
		if err != nil {
			writeServiceError(w, r, logger, err)
			return
		}

		setSessionCookie(w, r, session)
		writeJSON(w, http.StatusCreated, session)
	}
}

// SignIn checks credentials and starts a session.
func SignIn(svc *auth.Service, logger logrus.FieldLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req SignInRequest
		if !decode(w, r, &req) {
			return
		}
		if err := validation.Struct(req); err != nil {
			writeServiceError(w, r, logger, err)
			return
		}

		session, err := svc.SignIn(r.Context(), req.Mail, req.Password)
		if err != nil {
			writeServiceError(w, r, logger, err)
			return
		}

		setSessionCookie(w, r, session)
		writeJSON(w, http.StatusOK, session)
	}
}

// SignOut clears the session cookie. Tokens are stateless, so a copied
// bearer token stays valid until it expires.
func SignOut() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		http.SetCookie(w, &http.Cookie{
			Name:     middleware.SessionCookie,
			Value:    "",
			Path:     "/",
			MaxAge:   -1,
			HttpOnly: true,
			Secure:   r.TLS != nil,
			SameSite: http.SameSiteLaxMode,
		})
		w.WriteHeader(http.StatusNoContent)
	}
}

// GetMe returns the signed-in account.
func GetMe(svc *auth.Service, logger logrus.FieldLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p := auth.PrincipalFrom(r.Context())

		user, err := svc.User(r.Context(), p.UserID)
		if err != nil {
			writeServiceError(w, r, logger, err)
			return
		}
		if user == nil {
			middleware.WriteError(w, http.StatusNotFound, middleware.ErrNotFound, "Account not found")
			return
		}

		writeJSON(w, http.StatusOK, user)
	}
}

// UpdateMe edits the signed-in account.
func UpdateMe(svc *auth.Service, logger logrus.FieldLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req ProfileRequest
		if !decode(w, r, &req) {
			return
		}
		if err := validation.Struct(req); err != nil {
			writeServiceError(w, r, logger, err)
			return
		}

		p := auth.PrincipalFrom(r.Context())
		user, err := svc.UpdateProfile(r.Context(), p.UserID, auth.ProfileInput{
			Name:     req.Name,
			Mail:     req.Mail,
			Phone:    req.Phone,
			Password: req.Password,
		})
		if err != nil {
			writeServiceError(w, r, logger, err)
			return
		}

		writeJSON(w, http.StatusOK, user)
	}
}

func setSessionCookie(w http.ResponseWriter, r *http.Request, s *auth.Session) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookie,
		Value:    s.Token,
		Path:     "/",
		Expires:  time.Unix(s.ExpiresAt, 0),
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})
}
