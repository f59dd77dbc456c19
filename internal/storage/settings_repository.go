package storage

import (
	"context"
	"fmt"

	"github.com/bnb-reservations/backend/internal/storage/models"
)

// SettingsRepository stores key/value site settings.
type SettingsRepository struct {
	BaseRepository
}

// NewSettingsRepository creates a new settings repository.
func NewSettingsRepository(db *DB) *SettingsRepository {
	return &SettingsRepository{
		BaseRepository: NewBaseRepository(db),
	}
}

// All returns every stored setting.
func (r *SettingsRepository) All(ctx context.Context) (map[string]string, error) {
	rows, err := r.Q().QueryContext(ctx, "SELECT key, value FROM settings")
	if err != nil {
		return nil, fmt.Errorf("querying settings: %w", err)
	}
	defer rows.Close()

	settings := make(map[string]string)
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, fmt.Errorf("scanning setting: %w", err)
		}
		settings[key] = value
	}

	return settings, rows.Err()
}

// Get returns the typed settings.
func (r *SettingsRepository) Get(ctx context.Context) (models.Settings, error) {
	all, err := r.All(ctx)
	if err != nil {
		return models.Settings{}, err
	}

	return models.Settings{
		CheckinTime:            all[models.SettingCheckinTime],
		CheckoutTime:           all[models.SettingCheckoutTime],
		DefaultSyncIntervalMin: all[models.SettingDefaultSyncIntervalMin],
	}, nil
}

// Save writes the non-empty fields of s.
func (r *SettingsRepository) Save(ctx context.Context, s models.Settings) error {
	values := map[string]string{
		models.SettingCheckinTime:            s.CheckinTime,
		models.SettingCheckoutTime:           s.CheckoutTime,
		models.SettingDefaultSyncIntervalMin: s.DefaultSyncIntervalMin,
	}

	for key, value := range values {
		if value == "" {
			continue
		}
		_, err := r.Q().ExecContext(ctx, `
			INSERT INTO settings (key, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
			ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP
		`, key, value)
		if err != nil {
			return fmt.Errorf("saving setting %s: %w", key, err)
		}
	}

	return nil
}
