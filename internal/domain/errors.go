package domain

import (
	"errors"
	"fmt"
	"time"
)

var ErrNotFound = errors.New("not found")

type RejectionCode string

const (
	CodeAlreadyTerminal   RejectionCode = "ALREADY_TERMINAL"
	CodeAlreadyCheckedIn  RejectionCode = "ALREADY_CHECKED_IN"
	CodeWindowTooClose    RejectionCode = "WINDOW_TOO_CLOSE"
	CodeTooEarly          RejectionCode = "TOO_EARLY"
	CodeActiveTokenExists RejectionCode = "ACTIVE_TOKEN_EXISTS"
	CodeTokenExpired      RejectionCode = "TOKEN_EXPIRED"
	CodeTokenMismatch     RejectionCode = "TOKEN_MISMATCH"
	CodeInvalidToken      RejectionCode = "INVALID_TOKEN"
	CodeRefundFailed      RejectionCode = "REFUND_FAILED"
	CodeValidationFailed  RejectionCode = "VALIDATION_FAILED"
)

// Rejection is an expected policy outcome, not an infrastructure fault.
// It carries enough structured data for the caller to render a specific
// message: the terminal state hit, remaining hours, token timestamps.
type Rejection struct {
	Code           RejectionCode
	State          BookingStatus
	HoursRemaining float64
	ValidFrom      time.Time
	IssuedAt       time.Time
	ExpiresAt      time.Time
	CheckedInAt    time.Time
	Detail         string
}

func (r *Rejection) Error() string {
	if r.Detail != "" {
		return fmt.Sprintf("%s: %s", r.Code, r.Detail)
	}
	return string(r.Code)
}

func AsRejection(err error) (*Rejection, bool) {
	var r *Rejection
	if errors.As(err, &r) {
		return r, true
	}
	return nil, false
}
