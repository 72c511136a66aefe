package domain

import (
	"time"

	"github.com/google/uuid"
)

// Customer may or may not have an account; Guest marks walk-in or no-account
// bookings created on the fly.
type Customer struct {
	ID        uuid.UUID
	FullName  string
	Email     string
	Phone     string
	Guest     bool
	CreatedAt time.Time
}
