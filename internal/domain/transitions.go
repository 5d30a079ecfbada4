package domain

import "time"

// Policy windows. Cancellation carries a refund obligation and needs the
// longer buffer; reschedule keeps the slot filled so needs less.
const (
	CancelWindow     = 24 * time.Hour
	RescheduleWindow = 12 * time.Hour
)

// GuardCancel checks scheduled status first, then the timing window.
// The first failing guard wins.
func GuardCancel(b *Booking, now time.Time, window time.Duration) error {
	if b.Status != BookingStatusScheduled {
		return &Rejection{Code: CodeAlreadyTerminal, State: b.Status}
	}
	if remaining := b.Date.Sub(now); remaining < window {
		return &Rejection{Code: CodeWindowTooClose, HoursRemaining: remaining.Hours()}
	}
	return nil
}

// GuardReschedule checks the window against the original booking date.
func GuardReschedule(b *Booking, now time.Time, window time.Duration) error {
	if b.Status != BookingStatusScheduled {
		return &Rejection{Code: CodeAlreadyTerminal, State: b.Status}
	}
	if remaining := b.Date.Sub(now); remaining < window {
		return &Rejection{Code: CodeWindowTooClose, HoursRemaining: remaining.Hours()}
	}
	return nil
}

// GuardComplete allows completion from scheduled or checked_in.
func GuardComplete(b *Booking) error {
	if b.Status == BookingStatusCancelled || b.Status == BookingStatusCompleted {
		return &Rejection{Code: CodeAlreadyTerminal, State: b.Status}
	}
	return nil
}

// GuardCheckIn validates a scan against the booking it resolved to.
// The duplicate check precedes the expiry check: a second scan of a
// checked-in booking must report ALREADY_CHECKED_IN even when the token
// expired in between.
func GuardCheckIn(b *Booking, tokenHash string, now time.Time) error {
	if b.Status == BookingStatusCheckedIn {
		return &Rejection{Code: CodeAlreadyCheckedIn, CheckedInAt: b.CheckedInAt}
	}
	if b.Status != BookingStatusScheduled {
		return &Rejection{Code: CodeAlreadyTerminal, State: b.Status}
	}
	if b.QRTokenHash == "" || b.QRTokenHash != tokenHash {
		return &Rejection{Code: CodeTokenMismatch}
	}
	if now.After(b.QRTokenExpiresAt) {
		return &Rejection{Code: CodeTokenExpired, ExpiresAt: b.QRTokenExpiresAt}
	}
	return nil
}
