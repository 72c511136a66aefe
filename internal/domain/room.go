package domain

import (
	"time"

	"github.com/google/uuid"
)

// RoomType is catalog data: capacity is the number of physical rooms of this
// type, PriceCents the current nightly rate. Both are read-only to the core.
type RoomType struct {
	ID         uuid.UUID
	Name       string
	Capacity   int
	PriceCents int64
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

type Room struct {
	ID         uuid.UUID
	RoomTypeID uuid.UUID
	Number     string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// HotelService is a billable extra from the catalog.
type HotelService struct {
	ID         uuid.UUID
	Name       string
	PriceCents int64
}
