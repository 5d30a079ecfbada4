package domain

import "time"

type BookingStatus string

const (
	BookingStatusScheduled BookingStatus = "scheduled"
	BookingStatusCheckedIn BookingStatus = "checked_in"
	BookingStatusCancelled BookingStatus = "cancelled"
	BookingStatusCompleted BookingStatus = "completed"
)

// Terminal statuses never transition back to scheduled.
func (s BookingStatus) Terminal() bool {
	switch s {
	case BookingStatusCheckedIn, BookingStatusCancelled, BookingStatusCompleted:
		return true
	}
	return false
}

type Booking struct {
	ID          string
	UserID      string
	PetID       string
	ServiceType string
	Date        time.Time
	TimeSlot    string
	Status      BookingStatus
	PriceCents  int64
	PaymentID   string

	// At most one active token hash exists per booking; issuing a new
	// token overwrites these fields, which is the revocation mechanism.
	QRTokenHash      string
	QRTokenIssuedAt  time.Time
	QRTokenExpiresAt time.Time

	CheckedInAt       time.Time
	CheckInVerifiedBy string

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (b *Booking) HasActiveToken(now time.Time) bool {
	return b.QRTokenHash != "" && now.Before(b.QRTokenExpiresAt)
}
