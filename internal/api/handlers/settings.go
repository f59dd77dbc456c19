package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/bnb-reservations/backend/internal/storage"
	"github.com/bnb-reservations/backend/internal/storage/models"
	"github.com/bnb-reservations/backend/internal/validation"
)

// SettingsRequest updates site settings. Empty fields are left unchanged.
type SettingsRequest struct {
	CheckinTime            string `json:"checkin_time" validate:"omitempty,datetime=15:04"`
	CheckoutTime           string `json:"checkout_time" validate:"omitempty,datetime=15:04"`
	DefaultSyncIntervalMin string `json:"default_sync_interval_min" validate:"omitempty,numeric"`
}

// GetSettings returns all settings.
func GetSettings(settings *storage.SettingsRepository, logger logrus.FieldLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, err := settings.Get(r.Context())
		if err != nil {
			writeServiceError(w, r, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, s)
	}
}

// UpdateSettings updates settings.
func UpdateSettings(settings *storage.SettingsRepository, logger logrus.FieldLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req SettingsRequest
		if !decode(w, r, &req) {
			return
		}

		verr := &validation.Error{}
		if err := validation.Struct(req); err != nil {
			writeServiceError(w, r, logger, err)
			return
		}
		if v := strings.TrimSpace(req.DefaultSyncIntervalMin); v != "" && parseInterval(v) < models.MinSyncIntervalMin {
			verr.Add("default_sync_interval_min", "must be at least "+strconv.Itoa(models.MinSyncIntervalMin))
		}
		if err := verr.OrNil(); err != nil {
			writeServiceError(w, r, logger, err)
			return
		}

		if err := settings.Save(r.Context(), models.Settings{
			CheckinTime:            req.CheckinTime,
			CheckoutTime:           req.CheckoutTime,
			DefaultSyncIntervalMin: strings.TrimSpace(req.DefaultSyncIntervalMin),
		}); err != nil {
			writeServiceError(w, r, logger, err)
			return
		}

		s, err := settings.Get(r.Context())
		if err != nil {
			writeServiceError(w, r, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, s)
	}
}

func parseInterval(v string) int {
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return 0
	}
	return n
}
