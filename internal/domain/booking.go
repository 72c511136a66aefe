package domain

import (
	"time"

	"github.com/google/uuid"
)

type BookingStatus string

const (
	BookingStatusPending             BookingStatus = "PENDING"
	BookingStatusPendingConfirmation BookingStatus = "PENDING_CONFIRMATION"
	BookingStatusConfirmed           BookingStatus = "CONFIRMED"
	BookingStatusCheckedIn           BookingStatus = "CHECKED_IN"
	BookingStatusCompleted           BookingStatus = "COMPLETED"
	BookingStatusCancelled           BookingStatus = "CANCELLED"
)

// allowedTransitions is the full lifecycle table. Completed and Cancelled are
// terminal.
var allowedTransitions = map[BookingStatus][]BookingStatus{
	BookingStatusPending:             {BookingStatusPendingConfirmation, BookingStatusCancelled},
	BookingStatusPendingConfirmation: {BookingStatusConfirmed, BookingStatusCancelled},
	BookingStatusConfirmed:           {BookingStatusCheckedIn, BookingStatusCancelled},
	BookingStatusCheckedIn:           {BookingStatusCompleted},
	BookingStatusCompleted:           nil,
	BookingStatusCancelled:           nil,
}

func (s BookingStatus) CanTransitionTo(next BookingStatus) bool {
	for _, allowed := range allowedTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

func (s BookingStatus) IsTerminal() bool {
	return s == BookingStatusCompleted || s == BookingStatusCancelled
}

// Booking is the aggregate for one stay. Room entries carry the nightly price
// snapshotted at booking time; ExpiresAt is meaningful only while the booking
// is Pending. HoldReleased marks that locks and inventory for this booking
// were already given back, so cancel and expiry cannot release twice.
type Booking struct {
	ID            uuid.UUID
	CustomerID    uuid.UUID
	Status        BookingStatus
	CheckIn       time.Time
	CheckOut      time.Time
	TotalAmount   int64
	DepositAmount int64
	LockToken     string
	HoldReleased  bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
	ExpiresAt     time.Time
	Rooms         []BookingRoom
	Services      []BookingService
}

// BookingRoom pins one physical room for the booking's date range.
type BookingRoom struct {
	ID             uuid.UUID
	BookingID      uuid.UUID
	RoomID         uuid.UUID
	RoomTypeID     uuid.UUID
	PriceAtBooking int64
}

// BookingService records a consumed hotel service (minibar, laundry, ...) with
// the price snapshotted at consumption time.
type BookingService struct {
	ID             uuid.UUID
	BookingID      uuid.UUID
	ServiceID      uuid.UUID
	PriceAtBooking int64
	Quantity       int
}

// Nights returns the stay length of the half-open [CheckIn, CheckOut) range in
// whole days.
func (b *Booking) Nights() int {
	return int(b.CheckOut.Sub(b.CheckIn).Hours() / 24)
}
