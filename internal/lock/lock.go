package lock

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/hoangnv-dev/hotelhold/internal/store"
)

// Key identifies the resource a hold serializes on: one physical room over a
// date range.
type Key struct {
	RoomID   uuid.UUID
	CheckIn  time.Time
	CheckOut time.Time
}

func (k Key) String() string {
	return fmt.Sprintf("hold:room:%s:%s:%s",
		k.RoomID, k.CheckIn.Format("2006-01-02"), k.CheckOut.Format("2006-01-02"))
}

// NewToken returns an opaque owner token for a set of lock acquisitions.
func NewToken() string {
	return uuid.NewString()
}

// ReservationLock serializes competing hold attempts on the same room and date
// range. Entries expire via TTL even when never released, so a crashed holder
// cannot pin a room forever.
type ReservationLock struct {
	store store.Store
	ttl   time.Duration
}

func New(s store.Store, ttl time.Duration) *ReservationLock {
	return &ReservationLock{store: s, ttl: ttl}
}

// Acquire succeeds only when no unexpired entry exists for the key.
func (l *ReservationLock) Acquire(ctx context.Context, key Key, token string) (bool, error) {
	return l.store.SetNX(ctx, key.String(), token, l.ttl)
}

// Release removes the entry only when it still belongs to token. A false
// return means the lock expired and may have been reacquired by someone else;
// deleting it anyway would break the new holder.
func (l *ReservationLock) Release(ctx context.Context, key Key, token string) (bool, error) {
	return l.store.CompareAndDelete(ctx, key.String(), token)
}

// BulkRelease releases every key best-effort, continuing past individual
// failures. Used when cancelling a multi-room booking.
func (l *ReservationLock) BulkRelease(ctx context.Context, keys []Key, token string) {
	for _, key := range keys {
		if _, err := l.Release(ctx, key, token); err != nil {
			log.Printf("release lock %s: %v", key, err)
		}
	}
}
