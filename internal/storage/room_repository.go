package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/bnb-reservations/backend/internal/storage/models"
)

// RoomRepository provides data access for rooms.
type RoomRepository struct {
	BaseRepository
}

// NewRoomRepository creates a new room repository.
func NewRoomRepository(db *DB) *RoomRepository {
	return &RoomRepository{
		BaseRepository: NewBaseRepository(db),
	}
}

// GetByID retrieves a room by its ID.
func (r *RoomRepository) GetByID(ctx context.Context, id string) (*models.Room, error) {
	room := &models.Room{}

	err := r.Q().QueryRowContext(ctx, `
		SELECT id, title, description, created_at, updated_at
		FROM rooms WHERE id = ?
	`, id).Scan(&room.ID, &room.Title, &room.Description, &room.CreatedAt, &room.UpdatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying room: %w", err)
	}

	return room, nil
}

// GetDefault returns the site's room.
func (r *RoomRepository) GetDefault(ctx context.Context) (*models.Room, error) {
	return r.GetByID(ctx, models.DefaultRoomID)
}

// Update saves the room's title and description.
func (r *RoomRepository) Update(ctx context.Context, room *models.Room) error {
	room.UpdatedAt = r.Now()

	result, err := r.Q().ExecContext(ctx, `
		UPDATE rooms SET title = ?, description = ?, updated_at = ? WHERE id = ?
	`, room.Title, room.Description, room.UpdatedAt, room.ID)
	if err != nil {
		return fmt.Errorf("updating room: %w", err)
	}

	return checkAffected(result)
}
