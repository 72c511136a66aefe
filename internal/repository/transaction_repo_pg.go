package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hoangnv-dev/hotelhold/internal/domain"
)

type TransactionRepository interface {
	// Create inserts a transaction. The reference column is unique; a second
	// insert with the same reference fails with domain.ErrConflict, which is
	// what deduplicates replayed gateway deliveries.
	Create(ctx context.Context, txn *domain.Transaction) error
	GetByReference(ctx context.Context, reference string) (*domain.Transaction, error)
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Transaction, error)
	// UpdateStatusIf performs a compare-and-swap on the transaction status.
	// Concurrent deliveries of the same gateway event race on this swap and
	// only the winner credits the booking.
	UpdateStatusIf(ctx context.Context, id uuid.UUID, from, to domain.TransactionStatus) (bool, error)
	ListByBooking(ctx context.Context, bookingID uuid.UUID) ([]domain.Transaction, error)
}

type PGTransactionRepository struct {
	db *pgxpool.Pool
}

func NewTransactionRepository(db *pgxpool.Pool) TransactionRepository {
	return &PGTransactionRepository{db: db}
}

func (r *PGTransactionRepository) Create(ctx context.Context, txn *domain.Transaction) error {
	err := r.db.QueryRow(ctx, `INSERT INTO transactions (id, booking_id, type, status, amount, method, reference)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at, updated_at`,
		txn.ID, txn.BookingID, txn.Type, txn.Status, txn.Amount, txn.Method, txn.Reference).
		Scan(&txn.CreatedAt, &txn.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return domain.ErrConflict
		}
		return err
	}
	return nil
}

func (r *PGTransactionRepository) GetByReference(ctx context.Context, reference string) (*domain.Transaction, error) {
	return r.scanOne(r.db.QueryRow(ctx, `SELECT id, booking_id, type, status, amount, method, reference, created_at, updated_at
		FROM transactions WHERE reference=$1`, reference))
}

func (r *PGTransactionRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Transaction, error) {
	return r.scanOne(r.db.QueryRow(ctx, `SELECT id, booking_id, type, status, amount, method, reference, created_at, updated_at
		FROM transactions WHERE id=$1`, id))
}

func (r *PGTransactionRepository) scanOne(row pgx.Row) (*domain.Transaction, error) {
	var t domain.Transaction
	if err := row.Scan(&t.ID, &t.BookingID, &t.Type, &t.Status, &t.Amount, &t.Method, &t.Reference, &t.CreatedAt, &t.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrTransactionNotFound
		}
		return nil, err
	}
	return &t, nil
}

func (r *PGTransactionRepository) UpdateStatusIf(ctx context.Context, id uuid.UUID, from, to domain.TransactionStatus) (bool, error) {
	cmd, err := r.db.Exec(ctx, `UPDATE transactions SET status=$1, updated_at=now()
		WHERE id=$2 AND status=$3`, to, id, from)
	if err != nil {
		return false, err
	}
	return cmd.RowsAffected() == 1, nil
}

func (r *PGTransactionRepository) ListByBooking(ctx context.Context, bookingID uuid.UUID) ([]domain.Transaction, error) {
	rows, err := r.db.Query(ctx, `SELECT id, booking_id, type, status, amount, method, reference, created_at, updated_at
		FROM transactions WHERE booking_id=$1 ORDER BY created_at`, bookingID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var txns []domain.Transaction
	for rows.Next() {
		var t domain.Transaction
		if err := rows.Scan(&t.ID, &t.BookingID, &t.Type, &t.Status, &t.Amount, &t.Method, &t.Reference, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, err
		}
		txns = append(txns, t)
	}
	return txns, rows.Err()
}

var _ TransactionRepository = (*PGTransactionRepository)(nil)
