package handlers

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/bnb-reservations/backend/internal/auth"
	"github.com/bnb-reservations/backend/internal/guestbook"
)

// ListGuestbook returns all entries, newest first.
func ListGuestbook(svc *guestbook.Service, logger logrus.FieldLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		entries, err := svc.List(r.Context())
		if err != nil {
			writeServiceError(w, r, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, entries)
	}
}

// CreateGuestbookEntry posts a new entry.
func CreateGuestbookEntry(svc *guestbook.Service, logger logrus.FieldLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in guestbook.Input
		if !decode(w, r, &in) {
			return
		}

		entry, err := svc.Create(r.Context(), auth.PrincipalFrom(r.Context()), in)
		if err != nil {
			writeServiceError(w, r, logger, err)
			return
		}
		writeJSON(w, http.StatusCreated, entry)
	}
}

// UpdateGuestbookEntry edits an entry.
func UpdateGuestbookEntry(svc *guestbook.Service, logger logrus.FieldLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in guestbook.Input
		if !decode(w, r, &in) {
			return
		}

		entry, err := svc.Update(r.Context(), auth.PrincipalFrom(r.Context()), mux.Vars(r)["id"], in)
		if err != nil {
			writeServiceError(w, r, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, entry)
	}
}

// DeleteGuestbookEntry removes an entry.
func DeleteGuestbookEntry(svc *guestbook.Service, logger logrus.FieldLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := svc.Delete(r.Context(), auth.PrincipalFrom(r.Context()), mux.Vars(r)["id"]); err != nil {
			writeServiceError(w, r, logger, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
