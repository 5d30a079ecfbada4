package repository

import (
	"context"
	"errors"

	"github.com/gopawz/booking/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PaymentRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Payment, error)
	MarkRefunded(ctx context.Context, id, refundID string, amountCents int64) (*domain.Payment, error)
}

type PGPaymentRepository struct {
	db *pgxpool.Pool
}

func NewPaymentRepository(db *pgxpool.Pool) PaymentRepository {
	return &PGPaymentRepository{db: db}
}

func (r *PGPaymentRepository) GetByID(ctx context.Context, id string) (*domain.Payment, error) {
	row := r.db.QueryRow(ctx, `SELECT id, booking_id, intent_ref, amount_cents, status,
		COALESCE(refund_id, ''), COALESCE(refund_cents, 0), created_at, updated_at
		FROM payments WHERE id=$1`, id)
	return scanPayment(row)
}

func (r *PGPaymentRepository) MarkRefunded(ctx context.Context, id, refundID string, amountCents int64) (*domain.Payment, error) {
	row := r.db.QueryRow(ctx, `UPDATE payments SET status=$1, refund_id=$2, refund_cents=$3, updated_at=now()
		WHERE id=$4 RETURNING id, booking_id, intent_ref, amount_cents, status,
		COALESCE(refund_id, ''), COALESCE(refund_cents, 0), created_at, updated_at`,
		domain.PaymentStatusRefunded, refundID, amountCents, id)
	return scanPayment(row)
}

func scanPayment(row pgx.Row) (*domain.Payment, error) {
	var p domain.Payment
	err := row.Scan(&p.ID, &p.BookingID, &p.IntentRef, &p.AmountCents, &p.Status, &p.RefundID, &p.RefundCents, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

var _ PaymentRepository = (*PGPaymentRepository)(nil)
