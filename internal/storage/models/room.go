package models

import "time"

// DefaultRoomID is the room seeded by the initial migration.
const DefaultRoomID = "default"

// Room is the rentable unit. The site currently offers a single room.
type Room struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
