package repository

import (
	"context"

	"github.com/gopawz/booking/internal/domain"
	"github.com/jackc/pgx/v5/pgxpool"
)

// AuditRepository is append-only: scan attempts are inserted exactly once
// and never updated or deleted.
type AuditRepository interface {
	Insert(ctx context.Context, entry *domain.CheckinAudit) error
	ListByBooking(ctx context.Context, bookingID string) ([]domain.CheckinAudit, error)
}

type PGAuditRepository struct {
	db *pgxpool.Pool
}

func NewAuditRepository(db *pgxpool.Pool) AuditRepository {
	return &PGAuditRepository{db: db}
}

func (r *PGAuditRepository) Insert(ctx context.Context, entry *domain.CheckinAudit) error {
	return r.db.QueryRow(ctx, `INSERT INTO checkin_audit (id, booking_id, token_hash, outcome, scanned_by, location)
		VALUES ($1, $2, $3, $4, $5, $6) RETURNING created_at`,
		entry.ID, entry.BookingID, entry.TokenHash, entry.Outcome, entry.ScannedBy, entry.Location).
		Scan(&entry.CreatedAt)
}

func (r *PGAuditRepository) ListByBooking(ctx context.Context, bookingID string) ([]domain.CheckinAudit, error) {
	rows, err := r.db.Query(ctx, `SELECT id, booking_id, token_hash, outcome, scanned_by, location, created_at
		FROM checkin_audit WHERE booking_id=$1 ORDER BY created_at`, bookingID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []domain.CheckinAudit
	for rows.Next() {
		var e domain.CheckinAudit
		if err := rows.Scan(&e.ID, &e.BookingID, &e.TokenHash, &e.Outcome, &e.ScannedBy, &e.Location, &e.CreatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

var _ AuditRepository = (*PGAuditRepository)(nil)
