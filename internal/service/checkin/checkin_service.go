package checkin

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/gopawz/booking/internal/domain"
	"github.com/gopawz/booking/internal/qrtoken"
	"github.com/gopawz/booking/internal/repository"
)

type CheckinUseCase interface {
	IssueToken(ctx context.Context, bookingID string, forceRegenerate bool) (*IssueResult, error)
	TokenStatus(ctx context.Context, bookingID string) (*TokenStatus, error)
	Scan(ctx context.Context, input ScanInput) (*ScanResult, error)
}

type Cache interface {
	AcquireScanLock(ctx context.Context, bookingID string, ttl time.Duration) (bool, error)
	ReleaseScanLock(ctx context.Context, bookingID string) error
}

type IssueResult struct {
	Token     string
	QRCode    string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

type TokenStatus struct {
	BookingStatus  domain.BookingStatus
	CanIssue       bool
	IssueOpensAt   time.Time
	HasActiveToken bool
	IssuedAt       time.Time
	ExpiresAt      time.Time
	CheckedInAt    time.Time
}

type ScanInput struct {
	Token     string
	ScannedBy string
	Location  string
}

type ScanResult struct {
	Booking *domain.Booking
	Pet     *domain.Pet
}

type CheckinService struct {
	bookings       repository.BookingRepository
	audits         repository.AuditRepository
	pets           repository.PetRepository
	cache          Cache
	checkInBaseURL string
	scanLockTTL    time.Duration
	now            func() time.Time
}

type CheckinServiceOption func(*CheckinService)

func WithScanLockTTL(ttl time.Duration) CheckinServiceOption {
	return func(s *CheckinService) {
		if ttl > 0 {
			s.scanLockTTL = ttl
		}
	}
}

func WithClock(now func() time.Time) CheckinServiceOption {
	return func(s *CheckinService) {
		s.now = now
	}
}

func NewCheckinService(
	bookings repository.BookingRepository,
	audits repository.AuditRepository,
	pets repository.PetRepository,
	cache Cache,
	checkInBaseURL string,
	opts ...CheckinServiceOption,
) *CheckinService {
	service := &CheckinService{
		bookings:       bookings,
		audits:         audits,
		pets:           pets,
		cache:          cache,
		checkInBaseURL: checkInBaseURL,
		scanLockTTL:    10 * time.Second,
		now:            time.Now,
	}
	for _, opt := range opts {
		opt(service)
	}
	return service
}

// IssueToken mints a fresh token for the booking if policy allows. An
// unexpired prior token soft-blocks with ACTIVE_TOKEN_EXISTS unless
// forceRegenerate is set; regeneration overwrites the stored hash, which
// invalidates the old code.
func (s *CheckinService) IssueToken(ctx context.Context, bookingID string, forceRegenerate bool) (*IssueResult, error) {
	booking, err := s.bookings.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}

	now := s.now()

	switch booking.Status {
	case domain.BookingStatusCheckedIn:
		return nil, &domain.Rejection{Code: domain.CodeAlreadyCheckedIn, CheckedInAt: booking.CheckedInAt}
	case domain.BookingStatusCancelled, domain.BookingStatusCompleted:
		return nil, &domain.Rejection{Code: domain.CodeAlreadyTerminal, State: booking.Status}
	}

	if !qrtoken.CanIssue(booking.Date, now) {
		return nil, &domain.Rejection{Code: domain.CodeTooEarly, ValidFrom: qrtoken.IssueOpensAt(booking.Date)}
	}

	if booking.HasActiveToken(now) && !forceRegenerate {
		return nil, &domain.Rejection{
			Code:      domain.CodeActiveTokenExists,
			IssuedAt:  booking.QRTokenIssuedAt,
			ExpiresAt: booking.QRTokenExpiresAt,
		}
	}

	token, err := qrtoken.Generate(booking.Date, now)
	if err != nil {
		return nil, err
	}

	if _, err := s.bookings.SetToken(ctx, booking.ID, token.Hash, token.IssuedAt, token.ExpiresAt); err != nil {
		return nil, err
	}

	qrCode, err := qrtoken.RenderDataURL(s.checkInBaseURL + "/check-in/" + token.Value)
	if err != nil {
		return nil, err
	}

	return &IssueResult{
		Token:     token.Value,
		QRCode:    qrCode,
		IssuedAt:  token.IssuedAt,
		ExpiresAt: token.ExpiresAt,
	}, nil
}

func (s *CheckinService) TokenStatus(ctx context.Context, bookingID string) (*TokenStatus, error) {
	booking, err := s.bookings.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	status := &TokenStatus{
		BookingStatus:  booking.Status,
		CanIssue:       booking.Status == domain.BookingStatusScheduled && qrtoken.CanIssue(booking.Date, now),
		IssueOpensAt:   qrtoken.IssueOpensAt(booking.Date),
		HasActiveToken: booking.HasActiveToken(now),
		CheckedInAt:    booking.CheckedInAt,
	}
	if booking.QRTokenHash != "" {
		status.IssuedAt = booking.QRTokenIssuedAt
		status.ExpiresAt = booking.QRTokenExpiresAt
	}
	return status, nil
}

// Scan resolves a presented token to its booking, re-validates, and
// applies the scheduled -> checked_in transition. Every attempt that
// resolves to a booking leaves an audit row, winners and losers alike.
func (s *CheckinService) Scan(ctx context.Context, input ScanInput) (*ScanResult, error) {
	hash := qrtoken.Hash(input.Token)

	booking, err := s.bookings.GetByTokenHash(ctx, hash)
	if errors.Is(err, domain.ErrNotFound) {
		// No booking to attach an audit row to.
		log.Printf("scan with unknown token hash by %s at %s", input.ScannedBy, input.Location)
		return nil, &domain.Rejection{Code: domain.CodeInvalidToken}
	}
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if ok, err := s.cache.AcquireScanLock(ctx, booking.ID, s.scanLockTTL); err == nil && ok {
			defer func() {
				_ = s.cache.ReleaseScanLock(context.WithoutCancel(ctx), booking.ID)
			}()
		}
		// Lock contention is not fatal: the conditional update below
		// still serializes the transition.
	}

	now := s.now()
	if err := domain.GuardCheckIn(booking, hash, now); err != nil {
		s.audit(ctx, booking.ID, hash, outcomeFor(err), input)
		return nil, err
	}

	updated, ok, err := s.bookings.CheckIn(ctx, booking.ID, input.ScannedBy, now)
	if err != nil {
		return nil, err
	}
	if !ok {
		// Lost the race: someone else moved the booking first.
		current, err := s.bookings.GetByID(ctx, booking.ID)
		if err != nil {
			return nil, err
		}
		var rejection error
		if current.Status == domain.BookingStatusCheckedIn {
			rejection = &domain.Rejection{Code: domain.CodeAlreadyCheckedIn, CheckedInAt: current.CheckedInAt}
		} else {
			rejection = &domain.Rejection{Code: domain.CodeAlreadyTerminal, State: current.Status}
		}
		s.audit(ctx, booking.ID, hash, outcomeFor(rejection), input)
		return nil, rejection
	}

	s.audit(ctx, updated.ID, hash, domain.ScanOutcomeValidated, input)

	pet, err := s.pets.GetByID(ctx, updated.PetID)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	return &ScanResult{Booking: updated, Pet: pet}, nil
}

func (s *CheckinService) audit(ctx context.Context, bookingID, hash string, outcome domain.ScanOutcome, input ScanInput) {
	entry := &domain.CheckinAudit{
		ID:        uuid.NewString(),
		BookingID: bookingID,
		TokenHash: hash,
		Outcome:   outcome,
		ScannedBy: input.ScannedBy,
		Location:  input.Location,
	}
	if err := s.audits.Insert(ctx, entry); err != nil {
		log.Printf("WARNING: failed to write audit entry for booking %s: %v", bookingID, err)
	}
}

func outcomeFor(err error) domain.ScanOutcome {
	rejection, ok := domain.AsRejection(err)
	if !ok {
		return domain.ScanOutcomeRejected
	}
	switch rejection.Code {
	case domain.CodeAlreadyCheckedIn:
		return domain.ScanOutcomeDuplicate
	case domain.CodeTokenExpired:
		return domain.ScanOutcomeExpired
	default:
		return domain.ScanOutcomeRejected
	}
}

var _ CheckinUseCase = (*CheckinService)(nil)
