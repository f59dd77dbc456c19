package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/bnb-reservations/backend/internal/storage/models"
)

// CalendarRepository provides data access for imported calendar subscriptions.
type CalendarRepository struct {
	BaseRepository
}

// NewCalendarRepository creates a new calendar repository.
func NewCalendarRepository(db *DB) *CalendarRepository {
	return &CalendarRepository{
		BaseRepository: NewBaseRepository(db),
	}
}

// Create inserts a new calendar subscription.
func (r *CalendarRepository) Create(ctx context.Context, cal *models.CalendarSubscription) error {
	cal.ID = GenerateID()
	cal.CreatedAt = r.Now()
	cal.UpdatedAt = r.Now()
	cal.SyncStatus = models.SyncStatusPending

	_, err := r.Q().ExecContext(ctx, `
		INSERT INTO calendar_subscriptions (
			id, name, url, sync_interval_min, sync_status, enabled, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`,
		cal.ID, cal.Name, cal.URL, cal.SyncIntervalMin,
		cal.SyncStatus, cal.Enabled, cal.CreatedAt, cal.UpdatedAt,
	)

	if err != nil {
		return fmt.Errorf("inserting calendar: %w", err)
	}

	return nil
}

// GetByID retrieves a calendar by its ID.
func (r *CalendarRepository) GetByID(ctx context.Context, id string) (*models.CalendarSubscription, error) {
	cal := &models.CalendarSubscription{}

	err := r.Q().QueryRowContext(ctx, `
		SELECT `+calendarColumns+` FROM calendar_subscriptions WHERE id = ?
	`, id).Scan(scanCalendar(cal)...)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying calendar: %w", err)
	}

	return cal, nil
}

// List retrieves all calendar subscriptions.
func (r *CalendarRepository) List(ctx context.Context) ([]models.CalendarSubscription, error) {
	return r.list(ctx, `ORDER BY name`)
}

// ListEnabled retrieves enabled subscriptions, least recently synced first.
func (r *CalendarRepository) ListEnabled(ctx context.Context) ([]models.CalendarSubscription, error) {
	return r.list(ctx, `WHERE enabled = 1 ORDER BY last_sync_at ASC NULLS FIRST`)
}

func (r *CalendarRepository) list(ctx context.Context, clause string) ([]models.CalendarSubscription, error) {
	rows, err := r.Q().QueryContext(ctx, `SELECT `+calendarColumns+` FROM calendar_subscriptions `+clause)
	if err != nil {
		return nil, fmt.Errorf("querying calendars: %w", err)
	}
	defer rows.Close()

	var calendars []models.CalendarSubscription
	for rows.Next() {
		var cal models.CalendarSubscription
		if err := rows.Scan(scanCalendar(&cal)...); err != nil {
			return nil, fmt.Errorf("scanning calendar: %w", err)
		}
		calendars = append(calendars, cal)
	}

	return calendars, rows.Err()
}

// Update updates an existing calendar.
func (r *CalendarRepository) Update(ctx context.Context, cal *models.CalendarSubscription) error {
	cal.UpdatedAt = r.Now()

	result, err := r.Q().ExecContext(ctx, `
		UPDATE calendar_subscriptions SET
			name = ?, url = ?, sync_interval_min = ?, enabled = ?, updated_at = ?
		WHERE id = ?
	`,
		cal.Name, cal.URL, cal.SyncIntervalMin, cal.Enabled, cal.UpdatedAt, cal.ID,
	)

	if err != nil {
		return fmt.Errorf("updating calendar: %w", err)
	}

	return checkAffected(result)
}

// UpdateSyncStatus records the outcome of a sync. LastSyncAt only moves on success.
func (r *CalendarRepository) UpdateSyncStatus(ctx context.Context, id string, status string, syncError *string) error {
	now := r.Now()
	var lastSyncAt *time.Time
	if status == models.SyncStatusSuccess {
		lastSyncAt = &now
	}

	_, err := r.Q().ExecContext(ctx, `
		UPDATE calendar_subscriptions SET
			sync_status = ?, sync_error = ?, last_sync_at = COALESCE(?, last_sync_at), updated_at = ?
		WHERE id = ?
	`, status, syncError, lastSyncAt, now, id)

	if err != nil {
		return fmt.Errorf("updating sync status: %w", err)
	}

	return nil
}

// Delete removes a calendar by ID.
func (r *CalendarRepository) Delete(ctx context.Context, id string) error {
	result, err := r.Q().ExecContext(ctx, "DELETE FROM calendar_subscriptions WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting calendar: %w", err)
	}

	return checkAffected(result)
}

const calendarColumns = `id, name, url, sync_interval_min, last_sync_at, sync_status,
	sync_error, enabled, created_at, updated_at`

func scanCalendar(cal *models.CalendarSubscription) []any {
	return []any{
		&cal.ID, &cal.Name, &cal.URL, &cal.SyncIntervalMin,
		&cal.LastSyncAt, &cal.SyncStatus, &cal.SyncError,
		&cal.Enabled, &cal.CreatedAt, &cal.UpdatedAt,
	}
}
