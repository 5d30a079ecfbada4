package domain

import "time"

type ScanOutcome string

const (
	ScanOutcomeValidated ScanOutcome = "validated"
	ScanOutcomeDuplicate ScanOutcome = "duplicate"
	ScanOutcomeExpired   ScanOutcome = "expired"
	ScanOutcomeRejected  ScanOutcome = "rejected"
)

// CheckinAudit is an append-only record of one scan attempt. Rows are
// never updated or deleted; rejected attempts are recorded too.
type CheckinAudit struct {
	ID        string
	BookingID string
	TokenHash string
	Outcome   ScanOutcome
	ScannedBy string
	Location  string
	CreatedAt time.Time
}
