package domain

import "time"

// Doctor is the professional profile created when a user registers as a
// doctor. UserID and the owning User.DoctorID cross-reference each other;
// both are written exactly once at registration.
type Doctor struct {
	ID             string
	UserID         string
	FirstName      string
	LastName       string
	Email          string
	Gender         Gender
	ProfilePicture string

	Description string
	Experience  string
	Price       float64

	CreatedAt time.Time
	UpdatedAt time.Time
}
