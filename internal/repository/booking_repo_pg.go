package repository

import (
	"context"
	"errors"
	"time"

	"github.com/gopawz/booking/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type BookingRepository interface {
	Create(ctx context.Context, booking *domain.Booking) error
	GetByID(ctx context.Context, id string) (*domain.Booking, error)
	GetByTokenHash(ctx context.Context, hash string) (*domain.Booking, error)
	SetToken(ctx context.Context, id, hash string, issuedAt, expiresAt time.Time) (*domain.Booking, error)
	CheckIn(ctx context.Context, id, verifiedBy string, at time.Time) (*domain.Booking, bool, error)
	UpdateStatusIf(ctx context.Context, id string, expected, next domain.BookingStatus) (*domain.Booking, bool, error)
	Reschedule(ctx context.Context, id string, date time.Time, timeSlot string) (*domain.Booking, bool, error)
	ListScheduledBetween(ctx context.Context, from, to time.Time) ([]domain.Booking, error)
}

const bookingColumns = `id, user_id, pet_id, service_type, date, time_slot, status, price_cents,
	COALESCE(payment_id, ''), COALESCE(qr_token_hash, ''),
	COALESCE(qr_token_issued_at, 'epoch'::timestamptz), COALESCE(qr_token_expires_at, 'epoch'::timestamptz),
	COALESCE(checked_in_at, 'epoch'::timestamptz), COALESCE(check_in_verified_by, ''),
	created_at, updated_at`

type PGBookingRepository struct {
	db *pgxpool.Pool
}

func NewBookingRepository(db *pgxpool.Pool) BookingRepository {
	return &PGBookingRepository{db: db}
}

func (r *PGBookingRepository) Create(ctx context.Context, booking *domain.Booking) error {
	booking.Status = domain.BookingStatusScheduled
	return r.db.QueryRow(ctx, `INSERT INTO bookings (id, user_id, pet_id, service_type, date, time_slot, status, price_cents, payment_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NULLIF($9, ''))
		RETURNING created_at, updated_at`,
		booking.ID, booking.UserID, booking.PetID, booking.ServiceType, booking.Date, booking.TimeSlot, booking.Status, booking.PriceCents, booking.PaymentID).
		Scan(&booking.CreatedAt, &booking.UpdatedAt)
}

func (r *PGBookingRepository) GetByID(ctx context.Context, id string) (*domain.Booking, error) {
	row := r.db.QueryRow(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id=$1`, id)
	return scanBooking(row)
}

func (r *PGBookingRepository) GetByTokenHash(ctx context.Context, hash string) (*domain.Booking, error) {
	row := r.db.QueryRow(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE qr_token_hash=$1`, hash)
	return scanBooking(row)
}

// SetToken overwrites the active token fields; the prior token (if any)
// stops resolving, which is the revocation mechanism.
func (r *PGBookingRepository) SetToken(ctx context.Context, id, hash string, issuedAt, expiresAt time.Time) (*domain.Booking, error) {
	row := r.db.QueryRow(ctx, `UPDATE bookings SET qr_token_hash=$1, qr_token_issued_at=$2, qr_token_expires_at=$3, updated_at=now()
		WHERE id=$4 RETURNING `+bookingColumns, hash, issuedAt, expiresAt, id)
	return scanBooking(row)
}

// CheckIn is the compare-and-swap transition scheduled -> checked_in.
// The status predicate is part of the single UPDATE statement, so of two
// concurrent scanners only one writer gets a row back.
func (r *PGBookingRepository) CheckIn(ctx context.Context, id, verifiedBy string, at time.Time) (*domain.Booking, bool, error) {
	row := r.db.QueryRow(ctx, `UPDATE bookings SET status=$1, checked_in_at=$2, check_in_verified_by=$3, updated_at=now()
		WHERE id=$4 AND status=$5 RETURNING `+bookingColumns,
		domain.BookingStatusCheckedIn, at, verifiedBy, id, domain.BookingStatusScheduled)
	booking, err := scanBooking(row)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return booking, true, nil
}

func (r *PGBookingRepository) UpdateStatusIf(ctx context.Context, id string, expected, next domain.BookingStatus) (*domain.Booking, bool, error) {
	row := r.db.QueryRow(ctx, `UPDATE bookings SET status=$1, updated_at=now()
		WHERE id=$2 AND status=$3 RETURNING `+bookingColumns, next, id, expected)
	booking, err := scanBooking(row)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return booking, true, nil
}

// Reschedule moves the booking and clears its token fields: a token
// minted for the old start time no longer matches the new one. The
// status predicate makes it a compare-and-swap like CheckIn, so a scan
// that lands first cannot be dragged back to scheduled.
func (r *PGBookingRepository) Reschedule(ctx context.Context, id string, date time.Time, timeSlot string) (*domain.Booking, bool, error) {
	row := r.db.QueryRow(ctx, `UPDATE bookings SET date=$1, time_slot=$2,
		qr_token_hash=NULL, qr_token_issued_at=NULL, qr_token_expires_at=NULL, updated_at=now()
		WHERE id=$3 AND status=$4 RETURNING `+bookingColumns, date, timeSlot, id, domain.BookingStatusScheduled)
	booking, err := scanBooking(row)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return booking, true, nil
}

func (r *PGBookingRepository) ListScheduledBetween(ctx context.Context, from, to time.Time) ([]domain.Booking, error) {
	rows, err := r.db.Query(ctx, `SELECT `+bookingColumns+` FROM bookings
		WHERE status=$1 AND date >= $2 AND date < $3 ORDER BY date`, domain.BookingStatusScheduled, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var bookings []domain.Booking
	for rows.Next() {
		booking, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		bookings = append(bookings, *booking)
	}
	return bookings, rows.Err()
}

func scanBooking(row pgx.Row) (*domain.Booking, error) {
	var b domain.Booking
	err := row.Scan(&b.ID, &b.UserID, &b.PetID, &b.ServiceType, &b.Date, &b.TimeSlot, &b.Status, &b.PriceCents,
		&b.PaymentID, &b.QRTokenHash, &b.QRTokenIssuedAt, &b.QRTokenExpiresAt,
		&b.CheckedInAt, &b.CheckInVerifiedBy, &b.CreatedAt, &b.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}

var _ BookingRepository = (*PGBookingRepository)(nil)
