package models

import "time"

// Guestbook limits.
const (
	GuestEntryMaxMessage = 1000
	GuestEntryMinRating  = 1
	GuestEntryMaxRating  = 5
)

// GuestEntry is a guestbook message left by a user.
type GuestEntry struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Message   string    `json:"message"`
	Rating    int       `json:"rating"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// GuestEntryWithAuthor is a guestbook entry joined with its author.
type GuestEntryWithAuthor struct {
	GuestEntry
	AuthorName string `json:"author_name"`
	AuthorRole string `json:"author_role"`
}
