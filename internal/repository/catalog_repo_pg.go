package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hoangnv-dev/hotelhold/internal/domain"
)

// CatalogRepository is the read-only room and service catalog. Rates and
// capacities are managed elsewhere; the core only looks them up.
type CatalogRepository interface {
	GetRoomType(ctx context.Context, id uuid.UUID) (*domain.RoomType, error)
	GetService(ctx context.Context, id uuid.UUID) (*domain.HotelService, error)
	// FindFreeRooms returns up to qty physical rooms of the type with no
	// non-cancelled booking overlapping [checkIn, checkOut).
	FindFreeRooms(ctx context.Context, roomTypeID uuid.UUID, checkIn, checkOut time.Time, qty int) ([]domain.Room, error)
}

type PGCatalogRepository struct {
	db *pgxpool.Pool
}

func NewCatalogRepository(db *pgxpool.Pool) CatalogRepository {
	return &PGCatalogRepository{db: db}
}

func (r *PGCatalogRepository) GetRoomType(ctx context.Context, id uuid.UUID) (*domain.RoomType, error) {
	row := r.db.QueryRow(ctx, `SELECT id, name, capacity, price_cents, created_at, updated_at
		FROM room_types WHERE id=$1`, id)

	var rt domain.RoomType
	if err := row.Scan(&rt.ID, &rt.Name, &rt.Capacity, &rt.PriceCents, &rt.CreatedAt, &rt.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrRoomTypeNotFound
		}
		return nil, err
	}
	return &rt, nil
}

func (r *PGCatalogRepository) GetService(ctx context.Context, id uuid.UUID) (*domain.HotelService, error) {
	row := r.db.QueryRow(ctx, `SELECT id, name, price_cents FROM services WHERE id=$1`, id)

	var svc domain.HotelService
	if err := row.Scan(&svc.ID, &svc.Name, &svc.PriceCents); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &svc, nil
}

func (r *PGCatalogRepository) FindFreeRooms(ctx context.Context, roomTypeID uuid.UUID, checkIn, checkOut time.Time, qty int) ([]domain.Room, error) {
	rows, err := r.db.Query(ctx, `SELECT rm.id, rm.room_type_id, rm.number, rm.created_at, rm.updated_at
		FROM rooms rm
		WHERE rm.room_type_id = $1
		  AND NOT EXISTS (
			SELECT 1 FROM booking_rooms br
			JOIN bookings b ON b.id = br.booking_id
			WHERE br.room_id = rm.id
			  AND b.status <> $2
			  AND b.check_in < $3 AND b.check_out > $4
		  )
		ORDER BY rm.number
		LIMIT $5`,
		roomTypeID, domain.BookingStatusCancelled, checkOut, checkIn, qty)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rooms []domain.Room
	for rows.Next() {
		var rm domain.Room
		if err := rows.Scan(&rm.ID, &rm.RoomTypeID, &rm.Number, &rm.CreatedAt, &rm.UpdatedAt); err != nil {
			return nil, err
		}
		rooms = append(rooms, rm)
	}
	return rooms, rows.Err()
}

var _ CatalogRepository = (*PGCatalogRepository)(nil)
