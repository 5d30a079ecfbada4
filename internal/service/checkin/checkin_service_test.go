package checkin

import (
	"context"
	"testing"
	"time"

	"github.com/gopawz/booking/internal/domain"
	"github.com/gopawz/booking/internal/qrtoken"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type MockBookingRepository struct {
	mock.Mock
}

func (m *MockBookingRepository) Create(ctx context.Context, booking *domain.Booking) error {
	args := m.Called(ctx, booking)
	return args.Error(0)
}

func (m *MockBookingRepository) GetByID(ctx context.Context, id string) (*domain.Booking, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Booking), args.Error(1)
}

func (m *MockBookingRepository) GetByTokenHash(ctx context.Context, hash string) (*domain.Booking, error) {
	args := m.Called(ctx, hash)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Booking), args.Error(1)
}

func (m *MockBookingRepository) SetToken(ctx context.Context, id, hash string, issuedAt, expiresAt time.Time) (*domain.Booking, error) {
	args := m.Called(ctx, id, hash, issuedAt, expiresAt)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Booking), args.Error(1)
}

func (m *MockBookingRepository) CheckIn(ctx context.Context, id, verifiedBy string, at time.Time) (*domain.Booking, bool, error) {
	args := m.Called(ctx, id, verifiedBy, at)
	if args.Get(0) == nil {
		return nil, args.Bool(1), args.Error(2)
	}
	return args.Get(0).(*domain.Booking), args.Bool(1), args.Error(2)
}

func (m *MockBookingRepository) UpdateStatusIf(ctx context.Context, id string, expected, next domain.BookingStatus) (*domain.Booking, bool, error) {
	args := m.Called(ctx, id, expected, next)
	if args.Get(0) == nil {
		return nil, args.Bool(1), args.Error(2)
	}
	return args.Get(0).(*domain.Booking), args.Bool(1), args.Error(2)
}

func (m *MockBookingRepository) Reschedule(ctx context.Context, id string, date time.Time, timeSlot string) (*domain.Booking, bool, error) {
	args := m.Called(ctx, id, date, timeSlot)
	if args.Get(0) == nil {
		return nil, args.Bool(1), args.Error(2)
	}
	return args.Get(0).(*domain.Booking), args.Bool(1), args.Error(2)
}

func (m *MockBookingRepository) ListScheduledBetween(ctx context.Context, from, to time.Time) ([]domain.Booking, error) {
	args := m.Called(ctx, from, to)
	return args.Get(0).([]domain.Booking), args.Error(1)
}

type MockAuditRepository struct {
	mock.Mock
}

func (m *MockAuditRepository) Insert(ctx context.Context, entry *domain.CheckinAudit) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *MockAuditRepository) ListByBooking(ctx context.Context, bookingID string) ([]domain.CheckinAudit, error) {
	args := m.Called(ctx, bookingID)
	return args.Get(0).([]domain.CheckinAudit), args.Error(1)
}

type MockPetRepository struct {
	mock.Mock
}

func (m *MockPetRepository) GetByID(ctx context.Context, id string) (*domain.Pet, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Pet), args.Error(1)
}

type MockCache struct {
	mock.Mock
}

func (m *MockCache) AcquireScanLock(ctx context.Context, bookingID string, ttl time.Duration) (bool, error) {
	args := m.Called(ctx, bookingID, ttl)
	return args.Bool(0), args.Error(1)
}

func (m *MockCache) ReleaseScanLock(ctx context.Context, bookingID string) error {
	args := m.Called(ctx, bookingID)
	return args.Error(0)
}

var (
	bookingDate = time.Date(2025, 1, 10, 10, 0, 0, 0, time.UTC)
	issueTime   = time.Date(2025, 1, 9, 11, 0, 0, 0, time.UTC) // 23h before
)

func fixedClock(at time.Time) CheckinServiceOption {
	return WithClock(func() time.Time { return at })
}

func scheduledBooking() *domain.Booking {
	return &domain.Booking{
		ID:         "booking-1",
		UserID:     "user-1",
		PetID:      "pet-1",
		Status:     domain.BookingStatusScheduled,
		Date:       bookingDate,
		PriceCents: 6000,
	}
}

func TestIssueToken_Success(t *testing.T) {
	bookings := &MockBookingRepository{}
	audits := &MockAuditRepository{}
	pets := &MockPetRepository{}

	booking := scheduledBooking()
	bookings.On("GetByID", mock.Anything, "booking-1").Return(booking, nil)
	bookings.On("SetToken", mock.Anything, "booking-1", mock.Anything, issueTime, bookingDate.Add(-30*time.Minute)).
		Return(booking, nil)

	service := NewCheckinService(bookings, audits, pets, nil, "https://gopawz.example", fixedClock(issueTime))

	result, err := service.IssueToken(context.Background(), "booking-1", false)

	assert.NoError(t, err)
	assert.NotEmpty(t, result.Token)
	assert.Equal(t, qrtoken.Hash(result.Token), bookings.Calls[1].Arguments.String(2))
	assert.Equal(t, issueTime, result.IssuedAt)
	assert.Equal(t, time.Date(2025, 1, 10, 9, 30, 0, 0, time.UTC), result.ExpiresAt)
	assert.Contains(t, result.QRCode, "data:image/png;base64,")
	bookings.AssertExpectations(t)
}

func TestIssueToken_TooEarly(t *testing.T) {
	bookings := &MockBookingRepository{}

	booking := scheduledBooking()
	bookings.On("GetByID", mock.Anything, "booking-1").Return(booking, nil)

	tooEarly := bookingDate.Add(-24*time.Hour - time.Second)
	service := NewCheckinService(bookings, &MockAuditRepository{}, &MockPetRepository{}, nil, "https://gopawz.example", fixedClock(tooEarly))

	result, err := service.IssueToken(context.Background(), "booking-1", false)

	assert.Nil(t, result)
	rejection, ok := domain.AsRejection(err)
	assert.True(t, ok)
	assert.Equal(t, domain.CodeTooEarly, rejection.Code)
	assert.Equal(t, bookingDate.Add(-24*time.Hour), rejection.ValidFrom)
	bookings.AssertNotCalled(t, "SetToken", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestIssueToken_AfterSessionStart(t *testing.T) {
	bookings := &MockBookingRepository{}

	booking := scheduledBooking()
	bookings.On("GetByID", mock.Anything, "booking-1").Return(booking, nil)

	service := NewCheckinService(bookings, &MockAuditRepository{}, &MockPetRepository{}, nil, "https://gopawz.example", fixedClock(bookingDate))

	_, err := service.IssueToken(context.Background(), "booking-1", false)

	rejection, ok := domain.AsRejection(err)
	assert.True(t, ok)
	assert.Equal(t, domain.CodeTooEarly, rejection.Code)
}

func TestIssueToken_TerminalStates(t *testing.T) {
	cases := []struct {
		status domain.BookingStatus
		code   domain.RejectionCode
	}{
		{domain.BookingStatusCheckedIn, domain.CodeAlreadyCheckedIn},
		{domain.BookingStatusCancelled, domain.CodeAlreadyTerminal},
		{domain.BookingStatusCompleted, domain.CodeAlreadyTerminal},
	}

	for _, tc := range cases {
		bookings := &MockBookingRepository{}
		booking := scheduledBooking()
		booking.Status = tc.status
		bookings.On("GetByID", mock.Anything, "booking-1").Return(booking, nil)

		service := NewCheckinService(bookings, &MockAuditRepository{}, &MockPetRepository{}, nil, "https://gopawz.example", fixedClock(issueTime))

		_, err := service.IssueToken(context.Background(), "booking-1", false)

		rejection, ok := domain.AsRejection(err)
		assert.True(t, ok)
		assert.Equal(t, tc.code, rejection.Code)
	}
}

func TestIssueToken_ActiveTokenSoftBlock(t *testing.T) {
	bookings := &MockBookingRepository{}

	booking := scheduledBooking()
	booking.QRTokenHash = "existing-hash"
	booking.QRTokenIssuedAt = issueTime.Add(-time.Hour)
	booking.QRTokenExpiresAt = bookingDate.Add(-30 * time.Minute)
	bookings.On("GetByID", mock.Anything, "booking-1").Return(booking, nil)

	service := NewCheckinService(bookings, &MockAuditRepository{}, &MockPetRepository{}, nil, "https://gopawz.example", fixedClock(issueTime))

	_, err := service.IssueToken(context.Background(), "booking-1", false)

	rejection, ok := domain.AsRejection(err)
	assert.True(t, ok)
	assert.Equal(t, domain.CodeActiveTokenExists, rejection.Code)
	assert.Equal(t, booking.QRTokenIssuedAt, rejection.IssuedAt)
	assert.Equal(t, booking.QRTokenExpiresAt, rejection.ExpiresAt)
}

func TestIssueToken_ForceRegenerate(t *testing.T) {
	bookings := &MockBookingRepository{}

	booking := scheduledBooking()
	booking.QRTokenHash = "existing-hash"
	booking.QRTokenIssuedAt = issueTime.Add(-time.Hour)
	booking.QRTokenExpiresAt = bookingDate.Add(-30 * time.Minute)
	bookings.On("GetByID", mock.Anything, "booking-1").Return(booking, nil)
	bookings.On("SetToken", mock.Anything, "booking-1", mock.Anything, issueTime, bookingDate.Add(-30*time.Minute)).
		Return(booking, nil)

	service := NewCheckinService(bookings, &MockAuditRepository{}, &MockPetRepository{}, nil, "https://gopawz.example", fixedClock(issueTime))

	result, err := service.IssueToken(context.Background(), "booking-1", true)

	assert.NoError(t, err)
	assert.NotEqual(t, "existing-hash", qrtoken.Hash(result.Token))
	bookings.AssertExpectations(t)
}

func TestTokenStatus(t *testing.T) {
	bookings := &MockBookingRepository{}

	booking := scheduledBooking()
	booking.QRTokenHash = "hash"
	booking.QRTokenIssuedAt = issueTime
	booking.QRTokenExpiresAt = bookingDate.Add(-30 * time.Minute)
	bookings.On("GetByID", mock.Anything, "booking-1").Return(booking, nil)

	service := NewCheckinService(bookings, &MockAuditRepository{}, &MockPetRepository{}, nil, "https://gopawz.example", fixedClock(issueTime.Add(time.Hour)))

	status, err := service.TokenStatus(context.Background(), "booking-1")

	assert.NoError(t, err)
	assert.Equal(t, domain.BookingStatusScheduled, status.BookingStatus)
	assert.True(t, status.CanIssue)
	assert.True(t, status.HasActiveToken)
	assert.Equal(t, issueTime, status.IssuedAt)
	assert.Equal(t, bookingDate.Add(-24*time.Hour), status.IssueOpensAt)
}

func validTokenBooking(token string) *domain.Booking {
	booking := scheduledBooking()
	booking.QRTokenHash = qrtoken.Hash(token)
	booking.QRTokenIssuedAt = issueTime
	booking.QRTokenExpiresAt = bookingDate.Add(-30 * time.Minute)
	return booking
}

func TestScan_Validated(t *testing.T) {
	bookings := &MockBookingRepository{}
	audits := &MockAuditRepository{}
	pets := &MockPetRepository{}

	scanTime := time.Date(2025, 1, 10, 9, 0, 0, 0, time.UTC)
	token := "raw-token-value"
	booking := validTokenBooking(token)
	hash := qrtoken.Hash(token)

	checkedIn := *booking
	checkedIn.Status = domain.BookingStatusCheckedIn
	checkedIn.CheckedInAt = scanTime
	checkedIn.CheckInVerifiedBy = "staff-7"

	bookings.On("GetByTokenHash", mock.Anything, hash).Return(booking, nil)
	bookings.On("CheckIn", mock.Anything, "booking-1", "staff-7", scanTime).Return(&checkedIn, true, nil)
	audits.On("Insert", mock.Anything, mock.MatchedBy(func(e *domain.CheckinAudit) bool {
		return e.Outcome == domain.ScanOutcomeValidated && e.BookingID == "booking-1" && e.TokenHash == hash
	})).Return(nil)
	pets.On("GetByID", mock.Anything, "pet-1").Return(&domain.Pet{ID: "pet-1", Name: "Biscuit"}, nil)

	service := NewCheckinService(bookings, audits, pets, nil, "https://gopawz.example", fixedClock(scanTime))

	result, err := service.Scan(context.Background(), ScanInput{Token: token, ScannedBy: "staff-7", Location: "van-2"})

	assert.NoError(t, err)
	assert.Equal(t, domain.BookingStatusCheckedIn, result.Booking.Status)
	assert.Equal(t, scanTime, result.Booking.CheckedInAt)
	assert.Equal(t, "Biscuit", result.Pet.Name)
	audits.AssertExpectations(t)
	bookings.AssertExpectations(t)
}

func TestScan_DuplicateAfterCheckIn(t *testing.T) {
	bookings := &MockBookingRepository{}
	audits := &MockAuditRepository{}

	scanTime := time.Date(2025, 1, 10, 9, 10, 0, 0, time.UTC)
	token := "raw-token-value"
	booking := validTokenBooking(token)
	booking.Status = domain.BookingStatusCheckedIn
	booking.CheckedInAt = scanTime.Add(-10 * time.Minute)

	bookings.On("GetByTokenHash", mock.Anything, qrtoken.Hash(token)).Return(booking, nil)
	audits.On("Insert", mock.Anything, mock.MatchedBy(func(e *domain.CheckinAudit) bool {
		return e.Outcome == domain.ScanOutcomeDuplicate
	})).Return(nil)

	service := NewCheckinService(bookings, audits, &MockPetRepository{}, nil, "https://gopawz.example", fixedClock(scanTime))

	result, err := service.Scan(context.Background(), ScanInput{Token: token, ScannedBy: "staff-7"})

	assert.Nil(t, result)
	rejection, ok := domain.AsRejection(err)
	assert.True(t, ok)
	assert.Equal(t, domain.CodeAlreadyCheckedIn, rejection.Code)
	assert.Equal(t, booking.CheckedInAt, rejection.CheckedInAt)
	audits.AssertExpectations(t)
	bookings.AssertNotCalled(t, "CheckIn", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestScan_Expired(t *testing.T) {
	bookings := &MockBookingRepository{}
	audits := &MockAuditRepository{}

	token := "raw-token-value"
	booking := validTokenBooking(token)
	scanTime := booking.QRTokenExpiresAt.Add(time.Second)

	bookings.On("GetByTokenHash", mock.Anything, qrtoken.Hash(token)).Return(booking, nil)
	audits.On("Insert", mock.Anything, mock.MatchedBy(func(e *domain.CheckinAudit) bool {
		return e.Outcome == domain.ScanOutcomeExpired
	})).Return(nil)

	service := NewCheckinService(bookings, audits, &MockPetRepository{}, nil, "https://gopawz.example", fixedClock(scanTime))

	_, err := service.Scan(context.Background(), ScanInput{Token: token, ScannedBy: "staff-7"})

	rejection, ok := domain.AsRejection(err)
	assert.True(t, ok)
	assert.Equal(t, domain.CodeTokenExpired, rejection.Code)
	audits.AssertExpectations(t)
}

func TestScan_UnknownToken(t *testing.T) {
	bookings := &MockBookingRepository{}
	audits := &MockAuditRepository{}

	bookings.On("GetByTokenHash", mock.Anything, mock.Anything).Return(nil, domain.ErrNotFound)

	service := NewCheckinService(bookings, audits, &MockPetRepository{}, nil, "https://gopawz.example", fixedClock(time.Now()))

	_, err := service.Scan(context.Background(), ScanInput{Token: "bogus", ScannedBy: "staff-7"})

	rejection, ok := domain.AsRejection(err)
	assert.True(t, ok)
	assert.Equal(t, domain.CodeInvalidToken, rejection.Code)
	// No booking to attach an audit entry to.
	audits.AssertNotCalled(t, "Insert", mock.Anything, mock.Anything)
}

func TestScan_LostRace(t *testing.T) {
	bookings := &MockBookingRepository{}
	audits := &MockAuditRepository{}

	scanTime := time.Date(2025, 1, 10, 9, 0, 0, 0, time.UTC)
	token := "raw-token-value"
	booking := validTokenBooking(token)

	winner := *booking
	winner.Status = domain.BookingStatusCheckedIn
	winner.CheckedInAt = scanTime

	bookings.On("GetByTokenHash", mock.Anything, qrtoken.Hash(token)).Return(booking, nil)
	// Both readers observed scheduled; the conditional update rejects the
	// second writer.
	bookings.On("CheckIn", mock.Anything, "booking-1", "staff-8", scanTime).Return(nil, false, nil)
	bookings.On("GetByID", mock.Anything, "booking-1").Return(&winner, nil)
	audits.On("Insert", mock.Anything, mock.MatchedBy(func(e *domain.CheckinAudit) bool {
		return e.Outcome == domain.ScanOutcomeDuplicate
	})).Return(nil)

	service := NewCheckinService(bookings, audits, &MockPetRepository{}, nil, "https://gopawz.example", fixedClock(scanTime))

	_, err := service.Scan(context.Background(), ScanInput{Token: token, ScannedBy: "staff-8"})

	rejection, ok := domain.AsRejection(err)
	assert.True(t, ok)
	assert.Equal(t, domain.CodeAlreadyCheckedIn, rejection.Code)
	audits.AssertExpectations(t)
}

func TestScan_ScanLockContentionFallsThroughToCAS(t *testing.T) {
	bookings := &MockBookingRepository{}
	audits := &MockAuditRepository{}
	cache := &MockCache{}

	scanTime := time.Date(2025, 1, 10, 9, 0, 0, 0, time.UTC)
	token := "raw-token-value"
	booking := validTokenBooking(token)

	winner := *booking
	winner.Status = domain.BookingStatusCheckedIn
	winner.CheckedInAt = scanTime

	cache.On("AcquireScanLock", mock.Anything, "booking-1", mock.Anything).Return(false, nil)
	bookings.On("GetByTokenHash", mock.Anything, qrtoken.Hash(token)).Return(booking, nil)
	bookings.On("CheckIn", mock.Anything, "booking-1", "staff-8", scanTime).Return(nil, false, nil)
	bookings.On("GetByID", mock.Anything, "booking-1").Return(&winner, nil)
	audits.On("Insert", mock.Anything, mock.Anything).Return(nil)

	service := NewCheckinService(bookings, audits, &MockPetRepository{}, cache, "https://gopawz.example", fixedClock(scanTime))

	_, err := service.Scan(context.Background(), ScanInput{Token: token, ScannedBy: "staff-8"})

	rejection, ok := domain.AsRejection(err)
	assert.True(t, ok)
	assert.Equal(t, domain.CodeAlreadyCheckedIn, rejection.Code)
	cache.AssertExpectations(t)
}
