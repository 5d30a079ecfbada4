package lifecycle

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/gopawz/booking/internal/domain"
	"github.com/gopawz/booking/internal/kafka"
	"github.com/gopawz/booking/internal/payments"
	"github.com/gopawz/booking/internal/repository"
)

type LifecycleUseCase interface {
	CreateBooking(ctx context.Context, input CreateBookingInput) (*domain.Booking, error)
	GetBooking(ctx context.Context, id string) (*BookingDetail, error)
	Cancel(ctx context.Context, id string) (*CancelResult, error)
	Reschedule(ctx context.Context, id string, date time.Time, timeSlot string) (*domain.Booking, error)
	Complete(ctx context.Context, id, mediaURL string) (*domain.Booking, error)
	CheckinHistory(ctx context.Context, id string) ([]domain.CheckinAudit, error)
	SendReminders(ctx context.Context) ([]domain.Booking, error)
}

type PaymentsProvider interface {
	Refund(ctx context.Context, paymentIntentRef string) (*payments.Refund, error)
}

type Producer interface {
	PublishWithRetry(ctx context.Context, topic, key string, value interface{}, maxRetries int) error
}

// Transient broker errors get a few attempts before a notification is
// given up on.
const publishRetries = 3

type ReminderCache interface {
	MarkReminderSent(ctx context.Context, bookingID string, ttl time.Duration) (bool, error)
}

type CreateBookingInput struct {
	UserID      string    `json:"user_id"`
	PetID       string    `json:"pet_id"`
	ServiceType string    `json:"service_type"`
	Date        time.Time `json:"date"`
	TimeSlot    string    `json:"time_slot"`
	PriceCents  int64     `json:"price_cents"`
	PaymentID   string    `json:"payment_id"`
}

type BookingDetail struct {
	Booking *domain.Booking
	Pet     *domain.Pet
}

type CancelResult struct {
	Booking *domain.Booking
	Refund  *payments.Refund
}

type LifecycleService struct {
	bookings           repository.BookingRepository
	payments           repository.PaymentRepository
	pets               repository.PetRepository
	users              repository.UserRepository
	audits             repository.AuditRepository
	provider           PaymentsProvider
	producer           Producer
	cache              ReminderCache
	notificationsTopic string
	cancelWindow       time.Duration
	rescheduleWindow   time.Duration
	reminderLead       time.Duration
	now                func() time.Time
}

type LifecycleServiceOption func(*LifecycleService)

func WithPolicyWindows(cancel, reschedule time.Duration) LifecycleServiceOption {
	return func(s *LifecycleService) {
		if cancel > 0 {
			s.cancelWindow = cancel
		}
		if reschedule > 0 {
			s.rescheduleWindow = reschedule
		}
	}
}

func WithReminderLead(lead time.Duration) LifecycleServiceOption {
	return func(s *LifecycleService) {
		if lead > 0 {
			s.reminderLead = lead
		}
	}
}

func WithClock(now func() time.Time) LifecycleServiceOption {
	return func(s *LifecycleService) {
		s.now = now
	}
}

func NewLifecycleService(
	bookings repository.BookingRepository,
	paymentRepo repository.PaymentRepository,
	pets repository.PetRepository,
	users repository.UserRepository,
	audits repository.AuditRepository,
	provider PaymentsProvider,
	producer Producer,
	cache ReminderCache,
	notificationsTopic string,
	opts ...LifecycleServiceOption,
) *LifecycleService {
	service := &LifecycleService{
		bookings:           bookings,
		payments:           paymentRepo,
		pets:               pets,
		users:              users,
		audits:             audits,
		provider:           provider,
		producer:           producer,
		cache:              cache,
		notificationsTopic: notificationsTopic,
		cancelWindow:       domain.CancelWindow,
		rescheduleWindow:   domain.RescheduleWindow,
		reminderLead:       24 * time.Hour,
		now:                time.Now,
	}
	for _, opt := range opts {
		opt(service)
	}
	return service
}

func (s *LifecycleService) CreateBooking(ctx context.Context, input CreateBookingInput) (*domain.Booking, error) {
	if input.UserID == "" || input.PetID == "" || input.ServiceType == "" || input.TimeSlot == "" {
		return nil, &domain.Rejection{Code: domain.CodeValidationFailed, Detail: "user, pet, service type and time slot are required"}
	}
	if input.PriceCents < 0 {
		return nil, &domain.Rejection{Code: domain.CodeValidationFailed, Detail: "price must not be negative"}
	}
	if !input.Date.After(s.now()) {
		return nil, &domain.Rejection{Code: domain.CodeValidationFailed, Detail: "booking date must be in the future"}
	}

	booking := &domain.Booking{
		ID:          uuid.NewString(),
		UserID:      input.UserID,
		PetID:       input.PetID,
		ServiceType: input.ServiceType,
		Date:        input.Date,
		TimeSlot:    input.TimeSlot,
		PriceCents:  input.PriceCents,
		PaymentID:   input.PaymentID,
	}

	if err := s.bookings.Create(ctx, booking); err != nil {
		return nil, err
	}

	s.notify(ctx, booking, kafka.NotificationEvent{Kind: kafka.NotificationBookingConfirmed})
	return booking, nil
}

func (s *LifecycleService) GetBooking(ctx context.Context, id string) (*BookingDetail, error) {
	booking, err := s.bookings.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	pet, err := s.pets.GetByID(ctx, booking.PetID)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}
	return &BookingDetail{Booking: booking, Pet: pet}, nil
}

// Cancel resolves the refund before any state change: a refund failure
// aborts the whole operation and the booking stays scheduled. Notification
// failure after the transition never rolls it back.
func (s *LifecycleService) Cancel(ctx context.Context, id string) (*CancelResult, error) {
	booking, err := s.bookings.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := domain.GuardCancel(booking, s.now(), s.cancelWindow); err != nil {
		return nil, err
	}

	var refund *payments.Refund
	if booking.PaymentID != "" {
		refund, err = s.refundPayment(ctx, booking.PaymentID)
		if err != nil {
			return nil, err
		}
	}
	// A booking with no linked payment (free or comp session) cancels
	// without a refund step.

	updated, ok, err := s.bookings.UpdateStatusIf(ctx, booking.ID, domain.BookingStatusScheduled, domain.BookingStatusCancelled)
	if err != nil {
		return nil, err
	}
	if !ok {
		current, err := s.bookings.GetByID(ctx, booking.ID)
		if err != nil {
			return nil, err
		}
		return nil, &domain.Rejection{Code: domain.CodeAlreadyTerminal, State: current.Status}
	}

	event := kafka.NotificationEvent{Kind: kafka.NotificationCancelled}
	if refund != nil {
		event.RefundCents = refund.AmountCents
	}
	s.notify(ctx, updated, event)

	return &CancelResult{Booking: updated, Refund: refund}, nil
}

// refundPayment is idempotent per payment: an already-refunded row
// short-circuits and reuses the prior refund instead of hitting the
// provider again.
func (s *LifecycleService) refundPayment(ctx context.Context, paymentID string) (*payments.Refund, error) {
	payment, err := s.payments.GetByID(ctx, paymentID)
	if err != nil {
		return nil, err
	}

	if payment.Status == domain.PaymentStatusRefunded {
		return &payments.Refund{ID: payment.RefundID, AmountCents: payment.RefundCents, Status: string(payment.Status)}, nil
	}

	refund, err := s.provider.Refund(ctx, payment.IntentRef)
	if err != nil {
		return nil, &domain.Rejection{Code: domain.CodeRefundFailed, Detail: err.Error()}
	}

	if _, err := s.payments.MarkRefunded(ctx, payment.ID, refund.ID, refund.AmountCents); err != nil {
		return nil, err
	}
	return refund, nil
}

func (s *LifecycleService) Reschedule(ctx context.Context, id string, date time.Time, timeSlot string) (*domain.Booking, error) {
	if timeSlot == "" {
		return nil, &domain.Rejection{Code: domain.CodeValidationFailed, Detail: "time slot is required"}
	}
	if !date.After(s.now()) {
		return nil, &domain.Rejection{Code: domain.CodeValidationFailed, Detail: "new date must be in the future"}
	}

	booking, err := s.bookings.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	// Window is measured against the original date.
	if err := domain.GuardReschedule(booking, s.now(), s.rescheduleWindow); err != nil {
		return nil, err
	}

	oldDate := booking.Date
	updated, ok, err := s.bookings.Reschedule(ctx, booking.ID, date, timeSlot)
	if err != nil {
		return nil, err
	}
	if !ok {
		// Lost a race with a scan or another transition between the guard
		// read and the write.
		current, err := s.bookings.GetByID(ctx, booking.ID)
		if err != nil {
			return nil, err
		}
		if current.Status == domain.BookingStatusCheckedIn {
			return nil, &domain.Rejection{Code: domain.CodeAlreadyCheckedIn, CheckedInAt: current.CheckedInAt}
		}
		return nil, &domain.Rejection{Code: domain.CodeAlreadyTerminal, State: current.Status}
	}

	s.notify(ctx, updated, kafka.NotificationEvent{Kind: kafka.NotificationRescheduled, OldDate: oldDate})
	return updated, nil
}

func (s *LifecycleService) Complete(ctx context.Context, id, mediaURL string) (*domain.Booking, error) {
	booking, err := s.bookings.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := domain.GuardComplete(booking); err != nil {
		return nil, err
	}

	updated, ok, err := s.bookings.UpdateStatusIf(ctx, booking.ID, booking.Status, domain.BookingStatusCompleted)
	if err != nil {
		return nil, err
	}
	if !ok {
		current, err := s.bookings.GetByID(ctx, booking.ID)
		if err != nil {
			return nil, err
		}
		if err := domain.GuardComplete(current); err != nil {
			return nil, err
		}
		updated, ok, err = s.bookings.UpdateStatusIf(ctx, current.ID, current.Status, domain.BookingStatusCompleted)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, &domain.Rejection{Code: domain.CodeAlreadyTerminal, State: current.Status}
		}
	}

	s.notify(ctx, updated, kafka.NotificationEvent{Kind: kafka.NotificationCompleted, MediaURL: mediaURL})
	return updated, nil
}

func (s *LifecycleService) CheckinHistory(ctx context.Context, id string) ([]domain.CheckinAudit, error) {
	if _, err := s.bookings.GetByID(ctx, id); err != nil {
		return nil, err
	}
	return s.audits.ListByBooking(ctx, id)
}

// SendReminders publishes a reminder for each scheduled booking starting
// within the lead window. Redis dedupes across overlapping sweeps.
func (s *LifecycleService) SendReminders(ctx context.Context) ([]domain.Booking, error) {
	now := s.now()
	upcoming, err := s.bookings.ListScheduledBetween(ctx, now, now.Add(s.reminderLead))
	if err != nil {
		return nil, err
	}

	var reminded []domain.Booking
	for i := range upcoming {
		booking := &upcoming[i]
		if s.cache != nil {
			first, err := s.cache.MarkReminderSent(ctx, booking.ID, s.reminderLead)
			if err != nil {
				log.Printf("reminder dedupe check failed for booking %s: %v", booking.ID, err)
			} else if !first {
				continue
			}
		}
		s.notify(ctx, booking, kafka.NotificationEvent{Kind: kafka.NotificationReminder})
		reminded = append(reminded, *booking)
	}
	return reminded, nil
}

// notify is best-effort: failures are logged, never propagated, and never
// roll back the transition that triggered them.
func (s *LifecycleService) notify(ctx context.Context, booking *domain.Booking, event kafka.NotificationEvent) {
	if s.producer == nil || s.notificationsTopic == "" {
		return
	}

	event.BookingID = booking.ID
	event.Date = booking.Date
	event.TimeSlot = booking.TimeSlot

	if pet, err := s.pets.GetByID(ctx, booking.PetID); err == nil {
		event.PetName = pet.Name
	}
	if user, err := s.users.GetByID(ctx, booking.UserID); err == nil {
		event.Email = user.Email
		event.Phone = user.Phone
	}

	if err := s.producer.PublishWithRetry(ctx, s.notificationsTopic, booking.ID, event, publishRetries); err != nil {
		log.Printf("WARNING: failed to publish %s event for booking %s: %v", event.Kind, booking.ID, err)
	}
}

var _ LifecycleUseCase = (*LifecycleService)(nil)
