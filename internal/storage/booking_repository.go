package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/bnb-reservations/backend/internal/availability"
	"github.com/bnb-reservations/backend/internal/storage/models"
)

// BookingRepository provides data access for bookings.
type BookingRepository struct {
	BaseRepository
}

// NewBookingRepository creates a new booking repository.
func NewBookingRepository(db *DB) *BookingRepository {
	return &BookingRepository{
		BaseRepository: NewBaseRepository(db),
	}
}

// WithTx returns a repository whose queries run inside tx.
func (r *BookingRepository) WithTx(tx *sql.Tx) *BookingRepository {
	return &BookingRepository{BaseRepository: r.bind(tx)}
}

const bookingColumns = `b.id, b.user_id, b.room_id, b.start_date, b.end_date, b.package,
	b.plate_number, b.notes, b.created_at, b.updated_at`

// Create inserts a new booking.
func (r *BookingRepository) Create(ctx context.Context, b *models.Booking) error {
	b.ID = GenerateID()
	b.CreatedAt = r.Now()
	b.UpdatedAt = r.Now()

	_, err := r.Q().ExecContext(ctx, `
		INSERT INTO bookings (
			id, user_id, room_id, start_date, end_date, package, plate_number, notes, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		b.ID, b.UserID, b.RoomID, b.StartDate.UTC(), b.EndDate.UTC(), b.Package,
		b.PlateNumber, b.Notes, b.CreatedAt, b.UpdatedAt,
	)

	if err != nil {
		return fmt.Errorf("inserting booking: %w", err)
	}

	return nil
}

// GetByID retrieves a booking by its ID.
func (r *BookingRepository) GetByID(ctx context.Context, id string) (*models.Booking, error) {
	b := &models.Booking{}

	err := r.Q().QueryRowContext(ctx, `
		SELECT `+bookingColumns+` FROM bookings b WHERE b.id = ?
	`, id).Scan(scanBooking(b)...)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying booking: %w", err)
	}

	return b, nil
}

// GetWithGuest retrieves a booking joined with the guest's details.
func (r *BookingRepository) GetWithGuest(ctx context.Context, id string) (*models.BookingWithGuest, error) {
	b := &models.BookingWithGuest{}

	err := r.Q().QueryRowContext(ctx, `
		SELECT `+bookingColumns+`, u.name, u.mail, u.phone
		FROM bookings b JOIN users u ON u.id = b.user_id
		WHERE b.id = ?
	`, id).Scan(append(scanBooking(&b.Booking), &b.GuestName, &b.GuestMail, &b.GuestPhone)...)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying booking: %w", err)
	}

	return b, nil
}

// ListByRoom returns every booking of a room ordered by start date.
func (r *BookingRepository) ListByRoom(ctx context.Context, roomID string) ([]models.Booking, error) {
	rows, err := r.Q().QueryContext(ctx, `
		SELECT `+bookingColumns+` FROM bookings b
		WHERE b.room_id = ?
		ORDER BY b.start_date, b.id
	`, roomID)
	if err != nil {
		return nil, fmt.Errorf("querying bookings: %w", err)
	}
	defer rows.Close()

	return collectBookings(rows)
}

// ListByUser returns a guest's bookings, latest first.
func (r *BookingRepository) ListByUser(ctx context.Context, userID string) ([]models.Booking, error) {
	rows, err := r.Q().QueryContext(ctx, `
		SELECT `+bookingColumns+` FROM bookings b
		WHERE b.user_id = ?
		ORDER BY b.start_date DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("querying bookings: %w", err)
	}
	defer rows.Close()

	return collectBookings(rows)
}

// ListWithGuests returns bookings ending on or after from, joined with guest
// details and ordered by arrival. A zero from returns all bookings.
func (r *BookingRepository) ListWithGuests(ctx context.Context, from time.Time) ([]models.BookingWithGuest, error) {
	query := `
		SELECT ` + bookingColumns + `, u.name, u.mail, u.phone
		FROM bookings b JOIN users u ON u.id = b.user_id`
	var args []any
	if !from.IsZero() {
		query += ` WHERE b.end_date >= ?`
		args = append(args, from.UTC())
	}
	query += ` ORDER BY b.start_date, b.id`

	rows, err := r.Q().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying bookings: %w", err)
	}
	defer rows.Close()

	var bookings []models.BookingWithGuest
	for rows.Next() {
		var b models.BookingWithGuest
		if err := rows.Scan(append(scanBooking(&b.Booking), &b.GuestName, &b.GuestMail, &b.GuestPhone)...); err != nil {
			return nil, fmt.Errorf("scanning booking: %w", err)
		}
		bookings = append(bookings, b)
	}

	return bookings, rows.Err()
}

// CountByUser returns how many bookings a user holds.
func (r *BookingRepository) CountByUser(ctx context.Context, userID string) (int, error) {
	var n int
	if err := r.Q().QueryRowContext(ctx, "SELECT COUNT(*) FROM bookings WHERE user_id = ?", userID).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting bookings: %w", err)
	}
	return n, nil
}

// Ranges returns a room's bookings in the form the availability engine takes.
func (r *BookingRepository) Ranges(ctx context.Context, roomID string) ([]availability.Booking, error) {
	bookings, err := r.ListByRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}

	out := make([]availability.Booking, 0, len(bookings))
	for i := range bookings {
		out = append(out, availability.Booking{ID: bookings[i].ID, Range: bookings[i].Range()})
	}
	return out, nil
}

// Update saves the editable fields of a booking.
func (r *BookingRepository) Update(ctx context.Context, b *models.Booking) error {
	b.UpdatedAt = r.Now()

	result, err := r.Q().ExecContext(ctx, `
		UPDATE bookings SET
			start_date = ?, end_date = ?, package = ?, plate_number = ?, notes = ?, updated_at = ?
		WHERE id = ?
	`,
		b.StartDate.UTC(), b.EndDate.UTC(), b.Package, b.PlateNumber, b.Notes, b.UpdatedAt, b.ID,
	)
	if err != nil {
		return fmt.Errorf("updating booking: %w", err)
	}

	return checkAffected(result)
}

// Delete removes a booking by ID.
func (r *BookingRepository) Delete(ctx context.Context, id string) error {
	result, err := r.Q().ExecContext(ctx, "DELETE FROM bookings WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting booking: %w", err)
	}

	return checkAffected(result)
}

func scanBooking(b *models.Booking) []any {
	return []any{
		&b.ID, &b.UserID, &b.RoomID, &b.StartDate, &b.EndDate, &b.Package,
		&b.PlateNumber, &b.Notes, &b.CreatedAt, &b.UpdatedAt,
	}
}

func collectBookings(rows *sql.Rows) ([]models.Booking, error) {
	var bookings []models.Booking
	for rows.Next() {
		var b models.Booking
		if err := rows.Scan(scanBooking(&b)...); err != nil {
			return nil, fmt.Errorf("scanning booking: %w", err)
		}
		bookings = append(bookings, b)
	}
	return bookings, rows.Err()
}
