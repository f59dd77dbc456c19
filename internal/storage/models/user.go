package models

import "time"

// Roles a user can hold.
const (
	RoleGuest = "guest"
	RoleHost  = "host"
)

// User is an account that can sign in.
type User struct {
	ID           string    `json:"id"`
	Mail         string    `json:"mail"`
	Name         string    `json:"name"`
	Phone        string    `json:"phone"`
	PasswordHash string    `json:"-"`
	Role         string    `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// IsHost returns true for the property owner.
func (u *User) IsHost() bool {
	return u.Role == RoleHost
}
