package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hoangnv-dev/hotelhold/internal/domain"
)

type BookingRepository interface {
	Create(ctx context.Context, booking *domain.Booking) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Booking, error)
	// UpdateStatusIf performs a compare-and-swap on the booking status. When
	// markReleased is set the hold-released marker is written in the same
	// statement; exactly one caller can win the swap.
	UpdateStatusIf(ctx context.Context, id uuid.UUID, from, to domain.BookingStatus, markReleased bool) (bool, error)
	FindExpiredPending(ctx context.Context, deadline time.Time, limit int) ([]domain.Booking, error)
	CountCommittedRooms(ctx context.Context, roomTypeID uuid.UUID, checkIn, checkOut time.Time) (int, error)
	AdjustDeposit(ctx context.Context, id uuid.UUID, delta int64) error
	AddService(ctx context.Context, svc *domain.BookingService) error
}

type PGBookingRepository struct {
	db *pgxpool.Pool
}

func NewBookingRepository(db *pgxpool.Pool) BookingRepository {
	return &PGBookingRepository{db: db}
}

func (r *PGBookingRepository) Create(ctx context.Context, booking *domain.Booking) error {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if err := tx.QueryRow(ctx, `INSERT INTO bookings (id, customer_id, status, check_in, check_out, total_amount, deposit_amount, lock_token, hold_released, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING created_at, updated_at`,
		booking.ID, booking.CustomerID, booking.Status, booking.CheckIn, booking.CheckOut,
		booking.TotalAmount, booking.DepositAmount, booking.LockToken, booking.HoldReleased, booking.ExpiresAt).
		Scan(&booking.CreatedAt, &booking.UpdatedAt); err != nil {
		return fmt.Errorf("insert booking: %w", err)
	}

	for _, room := range booking.Rooms {
		if _, err := tx.Exec(ctx, `INSERT INTO booking_rooms (id, booking_id, room_id, room_type_id, price_at_booking)
			VALUES ($1, $2, $3, $4, $5)`,
			room.ID, room.BookingID, room.RoomID, room.RoomTypeID, room.PriceAtBooking); err != nil {
			return fmt.Errorf("insert booking room %s: %w", room.RoomID, err)
		}
	}

	return tx.Commit(ctx)
}

func (r *PGBookingRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Booking, error) {
	row := r.db.QueryRow(ctx, `SELECT id, customer_id, status, check_in, check_out, total_amount, deposit_amount, lock_token, hold_released, expires_at, created_at, updated_at
		FROM bookings WHERE id=$1`, id)

	var b domain.Booking
	if err := row.Scan(&b.ID, &b.CustomerID, &b.Status, &b.CheckIn, &b.CheckOut,
		&b.TotalAmount, &b.DepositAmount, &b.LockToken, &b.HoldReleased, &b.ExpiresAt, &b.CreatedAt, &b.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrBookingNotFound
		}
		return nil, err
	}

	rooms, err := r.db.Query(ctx, `SELECT id, booking_id, room_id, room_type_id, price_at_booking
		FROM booking_rooms WHERE booking_id=$1`, id)
	if err != nil {
		return nil, err
	}
	defer rooms.Close()
	for rooms.Next() {
		var room domain.BookingRoom
		if err := rooms.Scan(&room.ID, &room.BookingID, &room.RoomID, &room.RoomTypeID, &room.PriceAtBooking); err != nil {
			return nil, err
		}
		b.Rooms = append(b.Rooms, room)
	}
	if err := rooms.Err(); err != nil {
		return nil, err
	}

	services, err := r.db.Query(ctx, `SELECT id, booking_id, service_id, price_at_booking, quantity
		FROM booking_services WHERE booking_id=$1`, id)
	if err != nil {
		return nil, err
	}
	defer services.Close()
	for services.Next() {
		var svc domain.BookingService
		if err := services.Scan(&svc.ID, &svc.BookingID, &svc.ServiceID, &svc.PriceAtBooking, &svc.Quantity); err != nil {
			return nil, err
		}
		b.Services = append(b.Services, svc)
	}
	return &b, services.Err()
}

func (r *PGBookingRepository) UpdateStatusIf(ctx context.Context, id uuid.UUID, from, to domain.BookingStatus, markReleased bool) (bool, error) {
	cmd, err := r.db.Exec(ctx, `UPDATE bookings
		SET status=$1, hold_released = hold_released OR $2, updated_at=now()
		WHERE id=$3 AND status=$4`, to, markReleased, id, from)
	if err != nil {
		return false, err
	}
	return cmd.RowsAffected() == 1, nil
}

func (r *PGBookingRepository) FindExpiredPending(ctx context.Context, deadline time.Time, limit int) ([]domain.Booking, error) {
	rows, err := r.db.Query(ctx, `SELECT id, customer_id, status, check_in, check_out, total_amount, deposit_amount, lock_token, hold_released, expires_at, created_at, updated_at
		FROM bookings WHERE status=$1 AND expires_at <= $2 LIMIT $3`,
		domain.BookingStatusPending, deadline, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var expired []domain.Booking
	for rows.Next() {
		var b domain.Booking
		if err := rows.Scan(&b.ID, &b.CustomerID, &b.Status, &b.CheckIn, &b.CheckOut,
			&b.TotalAmount, &b.DepositAmount, &b.LockToken, &b.HoldReleased, &b.ExpiresAt, &b.CreatedAt, &b.UpdatedAt); err != nil {
			return nil, err
		}
		expired = append(expired, b)
	}
	return expired, rows.Err()
}

func (r *PGBookingRepository) CountCommittedRooms(ctx context.Context, roomTypeID uuid.UUID, checkIn, checkOut time.Time) (int, error) {
	var count int
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM booking_rooms br
		JOIN bookings b ON b.id = br.booking_id
		WHERE br.room_type_id = $1
		  AND b.status <> $2
		  AND b.check_in < $3 AND b.check_out > $4`,
		roomTypeID, domain.BookingStatusCancelled, checkOut, checkIn).Scan(&count)
	if err != nil {
		return 0, err
	}
	return count, nil
}

func (r *PGBookingRepository) AdjustDeposit(ctx context.Context, id uuid.UUID, delta int64) error {
	cmd, err := r.db.Exec(ctx, `UPDATE bookings
		SET deposit_amount = deposit_amount + $1, updated_at = now()
		WHERE id=$2 AND deposit_amount + $1 >= 0`, delta, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrRefundExceedsPaid
	}
	return nil
}

func (r *PGBookingRepository) AddService(ctx context.Context, svc *domain.BookingService) error {
	_, err := r.db.Exec(ctx, `INSERT INTO booking_services (id, booking_id, service_id, price_at_booking, quantity)
		VALUES ($1, $2, $3, $4, $5)`,
		svc.ID, svc.BookingID, svc.ServiceID, svc.PriceAtBooking, svc.Quantity)
	return err
}

var _ BookingRepository = (*PGBookingRepository)(nil)
