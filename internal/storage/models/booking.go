package models

import (
	"time"

	"github.com/bnb-reservations/backend/internal/availability"
)

// Packages a guest can book.
const (
	PackageBedAndRoom      = "bed+room"
	PackageMattressAndRoom = "maddress+room"
	PackageMattress        = "maddress"
)

// NoCar is stored as the plate number of guests who do not bring a car.
const NoCar = "No car"

// Booking is a guest reservation of a room. StartDate and EndDate are both
// occupied days.
type Booking struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	RoomID      string    `json:"room_id"`
	StartDate   time.Time `json:"start_date"`
	EndDate     time.Time `json:"end_date"`
	Package     string    `json:"package"`
	PlateNumber string    `json:"plate_number"`
	Notes       string    `json:"notes"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Range returns the booked dates.
func (b *Booking) Range() availability.DateRange {
	return availability.DateRange{Start: b.StartDate, End: b.EndDate}
}

// Nights returns the number of nights between arrival and departure.
func (b *Booking) Nights() int {
	return availability.Nights(b.Range())
}

// BookingWithGuest adds the guest's contact details for the host dashboard
// and the confirmation view.
type BookingWithGuest struct {
	Booking
	GuestName  string `json:"guest_name"`
	GuestMail  string `json:"guest_mail"`
	GuestPhone string `json:"guest_phone"`
}

// IsValidPackage reports whether p is one of the offered packages.
func IsValidPackage(p string) bool {
	switch p {
	case PackageBedAndRoom, PackageMattressAndRoom, PackageMattress:
		return true
	}
	return false
}
