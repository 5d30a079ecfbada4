package repository

import (
	"context"
	"errors"

	"github.com/gopawz/booking/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PetRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Pet, error)
}

type UserRepository interface {
	GetByID(ctx context.Context, id string) (*domain.User, error)
}

type PGPetRepository struct {
	db *pgxpool.Pool
}

func NewPetRepository(db *pgxpool.Pool) PetRepository {
	return &PGPetRepository{db: db}
}

func (r *PGPetRepository) GetByID(ctx context.Context, id string) (*domain.Pet, error) {
	row := r.db.QueryRow(ctx, `SELECT id, user_id, name, breed, COALESCE(age, 0), COALESCE(weight, 0), COALESCE(notes, ''), created_at
		FROM pets WHERE id=$1`, id)
	var p domain.Pet
	err := row.Scan(&p.ID, &p.UserID, &p.Name, &p.Breed, &p.AgeYears, &p.WeightLbs, &p.Notes, &p.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

type PGUserRepository struct {
	db *pgxpool.Pool
}

func NewUserRepository(db *pgxpool.Pool) UserRepository {
	return &PGUserRepository{db: db}
}

func (r *PGUserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	row := r.db.QueryRow(ctx, `SELECT id, email, name, COALESCE(phone, ''), created_at FROM users WHERE id=$1`, id)
	var u domain.User
	err := row.Scan(&u.ID, &u.Email, &u.Name, &u.Phone, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

var (
	_ PetRepository  = (*PGPetRepository)(nil)
	_ UserRepository = (*PGUserRepository)(nil)
)
