package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/bnb-reservations/backend/internal/storage/models"
)

// GuestEntryRepository provides data access for guestbook entries.
type GuestEntryRepository struct {
	BaseRepository
}

// NewGuestEntryRepository creates a new guestbook repository.
func NewGuestEntryRepository(db *DB) *GuestEntryRepository {
	return &GuestEntryRepository{
		BaseRepository: NewBaseRepository(db),
	}
}

// Create inserts a new entry.
func (r *GuestEntryRepository) Create(ctx context.Context, e *models.GuestEntry) error {
	e.ID = GenerateID()
	e.CreatedAt = r.Now()
	e.UpdatedAt = e.CreatedAt

	_, err := r.Q().ExecContext(ctx, `
		INSERT INTO guest_entries (id, user_id, message, rating, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, e.ID, e.UserID, e.Message, e.Rating, e.CreatedAt, e.UpdatedAt)
	if err != nil {
		return fmt.Errorf("inserting guest entry: %w", err)
	}

	return nil
}

// GetByID retrieves an entry by its ID.
func (r *GuestEntryRepository) GetByID(ctx context.Context, id string) (*models.GuestEntry, error) {
	e := &models.GuestEntry{}

	err := r.Q().QueryRowContext(ctx, `
		SELECT id, user_id, message, rating, created_at, updated_at
		FROM guest_entries WHERE id = ?
	`, id).Scan(&e.ID, &e.UserID, &e.Message, &e.Rating, &e.CreatedAt, &e.UpdatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying guest entry: %w", err)
	}

	return e, nil
}

// ListWithAuthors returns all entries, newest first, with author name and role.
func (r *GuestEntryRepository) ListWithAuthors(ctx context.Context) ([]models.GuestEntryWithAuthor, error) {
	rows, err := r.Q().QueryContext(ctx, `
		SELECT e.id, e.user_id, e.message, e.rating, e.created_at, e.updated_at, u.name, u.role
		FROM guest_entries e JOIN users u ON u.id = e.user_id
		ORDER BY e.created_at DESC, e.id
	`)
	if err != nil {
		return nil, fmt.Errorf("querying guest entries: %w", err)
	}
	defer rows.Close()

	var entries []models.GuestEntryWithAuthor
	for rows.Next() {
		var e models.GuestEntryWithAuthor
		if err := rows.Scan(
			&e.ID, &e.UserID, &e.Message, &e.Rating, &e.CreatedAt, &e.UpdatedAt,
			&e.AuthorName, &e.AuthorRole,
		); err != nil {
			return nil, fmt.Errorf("scanning guest entry: %w", err)
		}
		entries = append(entries, e)
	}

	return entries, rows.Err()
}

// Update saves the message and rating of an entry.
func (r *GuestEntryRepository) Update(ctx context.Context, e *models.GuestEntry) error {
	e.UpdatedAt = r.Now()

	result, err := r.Q().ExecContext(ctx, `
		UPDATE guest_entries SET message = ?, rating = ?, updated_at = ? WHERE id = ?
	`, e.Message, e.Rating, e.UpdatedAt, e.ID)
	if err != nil {
		return fmt.Errorf("updating guest entry: %w", err)
	}

	return checkAffected(result)
}

// Delete removes an entry by ID.
func (r *GuestEntryRepository) Delete(ctx context.Context, id string) error {
	result, err := r.Q().ExecContext(ctx, "DELETE FROM guest_entries WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting guest entry: %w", err)
	}

	return checkAffected(result)
}
