package store

import (
	"context"
	"time"
)

// Store is the shared backend behind the reservation locks and the inventory
// ledger. It is handed to each component explicitly; tests and single-node
// deployments use Memory, multi-instance deployments use Redis. Every method
// is atomic with respect to the others.
type Store interface {
	// SetNX creates key=value with a TTL only when no live entry exists.
	SetNX(ctx context.Context, key, value string, ttl time.Duration) (bool, error)

	// CompareAndDelete removes key only when its current value equals value.
	// Returns false when the key is absent, expired, or owned by another value.
	CompareAndDelete(ctx context.Context, key, value string) (bool, error)

	// GetInt reads a counter. found is false when the entry is absent or
	// expired, which callers must treat as unknown, never as zero.
	GetInt(ctx context.Context, key string) (value int64, found bool, err error)

	// SetInt seeds a counter with a TTL, overwriting any live entry.
	SetInt(ctx context.Context, key string, value int64, ttl time.Duration) error

	// DecrIfAtLeast decrements the counter by qty only when its current value
	// is at least qty. found reports whether a live entry existed at all.
	DecrIfAtLeast(ctx context.Context, key string, qty int64) (ok bool, found bool, err error)

	// IncrClamp increments the counter by qty, clamping the result at max.
	// A missing entry is left missing; the next read recomputes it.
	IncrClamp(ctx context.Context, key string, qty, max int64) error
}
