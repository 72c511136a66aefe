package inventory

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/hoangnv-dev/hotelhold/internal/domain"
	"github.com/hoangnv-dev/hotelhold/internal/store"
)

// CatalogReader is the read-only room catalog boundary.
type CatalogReader interface {
	GetRoomType(ctx context.Context, id uuid.UUID) (*domain.RoomType, error)
}

// CommittedCounter reports how many rooms of a type are already held by
// non-cancelled bookings over an overlapping date range. This is the source of
// truth the cached counters are recomputed from.
type CommittedCounter interface {
	CountCommittedRooms(ctx context.Context, roomTypeID uuid.UUID, checkIn, checkOut time.Time) (int, error)
}

// Ledger tracks remaining unreserved rooms per (room type, date range). The
// counters are a TTL-bound cache: an expired entry means unknown, never zero,
// and is recomputed from committed bookings plus catalog capacity.
type Ledger struct {
	store    store.Store
	catalog  CatalogReader
	bookings CommittedCounter
	cacheTTL time.Duration
}

func NewLedger(s store.Store, catalog CatalogReader, bookings CommittedCounter, cacheTTL time.Duration) *Ledger {
	return &Ledger{store: s, catalog: catalog, bookings: bookings, cacheTTL: cacheTTL}
}

func entryKey(roomTypeID uuid.UUID, checkIn, checkOut time.Time) string {
	return fmt.Sprintf("inv:%s:%s:%s",
		roomTypeID, checkIn.Format("2006-01-02"), checkOut.Format("2006-01-02"))
}

// GetAvailable returns the cached remaining count, recomputing and re-seeding
// the cache when the entry has expired.
func (l *Ledger) GetAvailable(ctx context.Context, roomTypeID uuid.UUID, checkIn, checkOut time.Time) (int, error) {
	key := entryKey(roomTypeID, checkIn, checkOut)

	cached, found, err := l.store.GetInt(ctx, key)
	if err != nil {
		return 0, err
	}
	if found {
		return int(cached), nil
	}
	return l.reseed(ctx, roomTypeID, checkIn, checkOut)
}

func (l *Ledger) reseed(ctx context.Context, roomTypeID uuid.UUID, checkIn, checkOut time.Time) (int, error) {
	roomType, err := l.catalog.GetRoomType(ctx, roomTypeID)
	if err != nil {
		return 0, err
	}

	committed, err := l.bookings.CountCommittedRooms(ctx, roomTypeID, checkIn, checkOut)
	if err != nil {
		return 0, fmt.Errorf("count committed rooms: %w", err)
	}

	remaining := roomType.Capacity - committed
	if remaining < 0 {
		remaining = 0
	}

	key := entryKey(roomTypeID, checkIn, checkOut)
	if err := l.store.SetInt(ctx, key, int64(remaining), l.cacheTTL); err != nil {
		return 0, err
	}
	return remaining, nil
}

// TryReserve atomically checks and decrements the remaining count. On a false
// return the caller must not acquire any lock for the attempt.
func (l *Ledger) TryReserve(ctx context.Context, roomTypeID uuid.UUID, checkIn, checkOut time.Time, qty int) (bool, error) {
	if qty <= 0 {
		return false, domain.ErrInvalidQuantity
	}

	key := entryKey(roomTypeID, checkIn, checkOut)

	// Two passes: the first may find the entry expired, in which case it is
	// recomputed from committed bookings and the decrement retried once.
	for attempt := 0; attempt < 2; attempt++ {
		ok, found, err := l.store.DecrIfAtLeast(ctx, key, int64(qty))
		if err != nil {
			return false, err
		}
		if found {
			return ok, nil
		}
		if _, err := l.reseed(ctx, roomTypeID, checkIn, checkOut); err != nil {
			return false, err
		}
	}
	return false, nil
}

// Release gives qty rooms back after a cancellation or expiry, clamped to the
// type's physical capacity.
func (l *Ledger) Release(ctx context.Context, roomTypeID uuid.UUID, checkIn, checkOut time.Time, qty int) error {
	if qty <= 0 {
		return domain.ErrInvalidQuantity
	}

	roomType, err := l.catalog.GetRoomType(ctx, roomTypeID)
	if err != nil {
		return err
	}

	key := entryKey(roomTypeID, checkIn, checkOut)
	return l.store.IncrClamp(ctx, key, int64(qty), int64(roomType.Capacity))
}
