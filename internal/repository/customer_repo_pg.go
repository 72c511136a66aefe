package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hoangnv-dev/hotelhold/internal/domain"
)

// CustomerRepository is the account boundary: lookups plus on-the-fly guest
// creation for no-account bookings.
type CustomerRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Customer, error)
	GetOrCreateGuest(ctx context.Context, email, fullName, phone string) (*domain.Customer, error)
}

type PGCustomerRepository struct {
	db *pgxpool.Pool
}

func NewCustomerRepository(db *pgxpool.Pool) CustomerRepository {
	return &PGCustomerRepository{db: db}
}

func (r *PGCustomerRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Customer, error) {
	row := r.db.QueryRow(ctx, `SELECT id, full_name, email, phone, guest, created_at FROM customers WHERE id=$1`, id)

	var c domain.Customer
	if err := row.Scan(&c.ID, &c.FullName, &c.Email, &c.Phone, &c.Guest, &c.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &c, nil
}

func (r *PGCustomerRepository) GetOrCreateGuest(ctx context.Context, email, fullName, phone string) (*domain.Customer, error) {
	row := r.db.QueryRow(ctx, `SELECT id, full_name, email, phone, guest, created_at FROM customers WHERE email=$1`, email)

	var c domain.Customer
	err := row.Scan(&c.ID, &c.FullName, &c.Email, &c.Phone, &c.Guest, &c.CreatedAt)
	if err == nil {
		return &c, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}

	c = domain.Customer{
		ID:       uuid.New(),
		FullName: fullName,
		Email:    email,
		Phone:    phone,
		Guest:    true,
	}
	if err := r.db.QueryRow(ctx, `INSERT INTO customers (id, full_name, email, phone, guest)
		VALUES ($1, $2, $3, $4, $5) RETURNING created_at`,
		c.ID, c.FullName, c.Email, c.Phone, c.Guest).Scan(&c.CreatedAt); err != nil {
		return nil, err
	}
	return &c, nil
}

var _ CustomerRepository = (*PGCustomerRepository)(nil)
