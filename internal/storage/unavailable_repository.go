package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/bnb-reservations/backend/internal/availability"
	"github.com/bnb-reservations/backend/internal/storage/models"
)

// UnavailableRepository provides data access for blackout periods.
type UnavailableRepository struct {
	BaseRepository
}

// NewUnavailableRepository creates a new unavailable period repository.
func NewUnavailableRepository(db *DB) *UnavailableRepository {
	return &UnavailableRepository{
		BaseRepository: NewBaseRepository(db),
	}
}

// WithTx returns a repository whose queries run inside tx.
func (r *UnavailableRepository) WithTx(tx *sql.Tx) *UnavailableRepository {
	return &UnavailableRepository{BaseRepository: r.bind(tx)}
}

const unavailableColumns = `id, start_date, end_date, reason, calendar_id, event_uid, created_at, updated_at`

// Create inserts a new unavailable period.
func (r *UnavailableRepository) Create(ctx context.Context, u *models.UnavailablePeriod) error {
	u.ID = GenerateID()
	u.CreatedAt = r.Now()
	u.UpdatedAt = r.Now()

	_, err := r.Q().ExecContext(ctx, `
		INSERT INTO unavailable_periods (`+unavailableColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`,
		u.ID, u.StartDate.UTC(), u.EndDate.UTC(), u.Reason, u.CalendarID, u.EventUID, u.CreatedAt, u.UpdatedAt,
	)

	if err != nil {
		return fmt.Errorf("inserting unavailable period: %w", err)
	}

	return nil
}

// GetByID retrieves an unavailable period by its ID.
func (r *UnavailableRepository) GetByID(ctx context.Context, id string) (*models.UnavailablePeriod, error) {
	return r.getOne(ctx, "id = ?", id)
}

// GetByEventUID retrieves the period imported from a calendar event.
func (r *UnavailableRepository) GetByEventUID(ctx context.Context, calendarID, eventUID string) (*models.UnavailablePeriod, error) {
	return r.getOne(ctx, "calendar_id = ? AND event_uid = ?", calendarID, eventUID)
}

func (r *UnavailableRepository) getOne(ctx context.Context, where string, args ...any) (*models.UnavailablePeriod, error) {
	u := &models.UnavailablePeriod{}

	err := r.Q().QueryRowContext(ctx, `
		SELECT `+unavailableColumns+` FROM unavailable_periods WHERE `+where, args...).Scan(scanUnavailable(u)...)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying unavailable period: %w", err)
	}

	return u, nil
}

// List returns unavailable periods ending on or after from, ordered by start.
// A zero from returns every period.
func (r *UnavailableRepository) List(ctx context.Context, from time.Time) ([]models.UnavailablePeriod, error) {
	query := `SELECT ` + unavailableColumns + ` FROM unavailable_periods`
	var args []any
	if !from.IsZero() {
		query += ` WHERE end_date >= ?`
		args = append(args, from.UTC())
	}
	query += ` ORDER BY start_date, id`

	rows, err := r.Q().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying unavailable periods: %w", err)
	}
	defer rows.Close()

	var periods []models.UnavailablePeriod
	for rows.Next() {
		var u models.UnavailablePeriod
		if err := rows.Scan(scanUnavailable(&u)...); err != nil {
			return nil, fmt.Errorf("scanning unavailable period: %w", err)
		}
		periods = append(periods, u)
	}

	return periods, rows.Err()
}

// Ranges returns all unavailable periods in the form the availability engine takes.
func (r *UnavailableRepository) Ranges(ctx context.Context) ([]availability.Unavailable, error) {
	periods, err := r.List(ctx, time.Time{})
	if err != nil {
		return nil, err
	}

	out := make([]availability.Unavailable, 0, len(periods))
	for i := range periods {
		out = append(out, availability.Unavailable{
			ID:     periods[i].ID,
			Range:  periods[i].Range(),
			Reason: periods[i].Reason,
		})
	}
	return out, nil
}

// Update saves the dates and reason of a period.
func (r *UnavailableRepository) Update(ctx context.Context, u *models.UnavailablePeriod) error {
	u.UpdatedAt = r.Now()

	result, err := r.Q().ExecContext(ctx, `
		UPDATE unavailable_periods SET start_date = ?, end_date = ?, reason = ?, updated_at = ?
		WHERE id = ?
	`, u.StartDate.UTC(), u.EndDate.UTC(), u.Reason, u.UpdatedAt, u.ID)
	if err != nil {
		return fmt.Errorf("updating unavailable period: %w", err)
	}

	return checkAffected(result)
}

// Delete removes a period by ID.
func (r *UnavailableRepository) Delete(ctx context.Context, id string) error {
	result, err := r.Q().ExecContext(ctx, "DELETE FROM unavailable_periods WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting unavailable period: %w", err)
	}

	return checkAffected(result)
}

// DeleteImportedExcept removes periods imported from calendarID whose event
// UID is not in keep, and returns how many were removed.
func (r *UnavailableRepository) DeleteImportedExcept(ctx context.Context, calendarID string, keep []string) (int, error) {
	query := "DELETE FROM unavailable_periods WHERE calendar_id = ?"
	args := []any{calendarID}
	if len(keep) > 0 {
		query += " AND event_uid NOT IN (?" + strings.Repeat(", ?", len(keep)-1) + ")"
		for _, uid := range keep {
			args = append(args, uid)
		}
	}

	result, err := r.Q().ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("deleting stale imported periods: %w", err)
	}

	n, _ := result.RowsAffected()
	return int(n), nil
}

func scanUnavailable(u *models.UnavailablePeriod) []any {
	return []any{
		&u.ID, &u.StartDate, &u.EndDate, &u.Reason, &u.CalendarID, &u.EventUID, &u.CreatedAt, &u.UpdatedAt,
	}
}
