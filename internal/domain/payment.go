package domain

import "time"

type PaymentStatus string

const (
	PaymentStatusSucceeded PaymentStatus = "succeeded"
	PaymentStatusRefunded  PaymentStatus = "refunded"
)

type Payment struct {
	ID          string
	BookingID   string
	IntentRef   string
	AmountCents int64
	Status      PaymentStatus
	RefundID    string
	RefundCents int64
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
