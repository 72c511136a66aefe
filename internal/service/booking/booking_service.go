package booking

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/hoangnv-dev/hotelhold/internal/domain"
	"github.com/hoangnv-dev/hotelhold/internal/inventory"
	"github.com/hoangnv-dev/hotelhold/internal/lock"
	"github.com/hoangnv-dev/hotelhold/internal/repository"
	"github.com/hoangnv-dev/hotelhold/internal/service/checkout"
)

type BookingUseCase interface {
	CreateBooking(ctx context.Context, input CreateBookingInput) (*domain.Booking, error)
	GetBooking(ctx context.Context, id uuid.UUID) (*domain.Booking, error)
	AdvanceToPendingConfirmation(ctx context.Context, id uuid.UUID) (*domain.Booking, error)
	ConfirmBooking(ctx context.Context, id uuid.UUID) (*domain.Booking, error)
	CheckInBooking(ctx context.Context, id uuid.UUID) (*domain.Booking, error)
	AddServiceCharge(ctx context.Context, id, serviceID uuid.UUID, quantity int) (*domain.Booking, error)
	CheckoutBooking(ctx context.Context, id uuid.UUID) (*domain.Booking, *checkout.Invoice, error)
	CancelBooking(ctx context.Context, id uuid.UUID) (*domain.Booking, error)
	SweepExpired(ctx context.Context) (int, error)
}

type Producer interface {
	Publish(ctx context.Context, topic, key string, value interface{}) error
}

type CreateBookingInput struct {
	RoomTypeID uuid.UUID
	Quantity   int
	CheckIn    time.Time
	CheckOut   time.Time
	CustomerID uuid.UUID // zero value: resolve or create a guest customer
	GuestEmail string
	GuestName  string
	GuestPhone string
}

// Service drives the booking lifecycle. Every status mutation goes through the
// repository's compare-and-swap, so a late payment and the expiry sweep can
// never both win on the same booking.
type Service struct {
	bookings         repository.BookingRepository
	catalog          repository.CatalogRepository
	customers        repository.CustomerRepository
	locks            *lock.ReservationLock
	ledger           *inventory.Ledger
	producer         Producer
	eventsTopic      string
	holdWindow       time.Duration
	thresholdPercent int
	sweepBatchSize   int
}

type Option func(*Service)

func WithSweepBatchSize(n int) Option {
	return func(s *Service) { s.sweepBatchSize = n }
}

func NewService(
	bookings repository.BookingRepository,
	catalog repository.CatalogRepository,
	customers repository.CustomerRepository,
	locks *lock.ReservationLock,
	ledger *inventory.Ledger,
	producer Producer,
	eventsTopic string,
	holdWindow time.Duration,
	thresholdPercent int,
	opts ...Option,
) *Service {
	s := &Service{
		bookings:         bookings,
		catalog:          catalog,
		customers:        customers,
		locks:            locks,
		ledger:           ledger,
		producer:         producer,
		eventsTopic:      eventsTopic,
		holdWindow:       holdWindow,
		thresholdPercent: thresholdPercent,
		sweepBatchSize:   100,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) CreateBooking(ctx context.Context, input CreateBookingInput) (*domain.Booking, error) {
	checkIn := input.CheckIn.Truncate(24 * time.Hour)
	checkOut := input.CheckOut.Truncate(24 * time.Hour)
	if !checkOut.After(checkIn) {
		return nil, domain.ErrInvalidDateRange
	}
	if input.Quantity <= 0 {
		return nil, domain.ErrInvalidQuantity
	}

	customerID := input.CustomerID
	if customerID == uuid.Nil {
		guest, err := s.customers.GetOrCreateGuest(ctx, input.GuestEmail, input.GuestName, input.GuestPhone)
		if err != nil {
			return nil, fmt.Errorf("resolve guest customer: %w", err)
		}
		customerID = guest.ID
	}

	roomType, err := s.catalog.GetRoomType(ctx, input.RoomTypeID)
	if err != nil {
		return nil, err
	}

	// Inventory first: a failed reserve must leave no lock behind.
	reserved, err := s.ledger.TryReserve(ctx, input.RoomTypeID, checkIn, checkOut, input.Quantity)
	if err != nil {
		return nil, err
	}
	if !reserved {
		return nil, domain.ErrInsufficientInventory
	}

	rooms, err := s.catalog.FindFreeRooms(ctx, input.RoomTypeID, checkIn, checkOut, input.Quantity)
	if err == nil && len(rooms) < input.Quantity {
		err = domain.ErrInsufficientInventory
	}
	if err != nil {
		s.restoreInventory(ctx, input.RoomTypeID, checkIn, checkOut, input.Quantity)
		return nil, err
	}

	token := lock.NewToken()
	var held []lock.Key
	for _, room := range rooms {
		key := lock.Key{RoomID: room.ID, CheckIn: checkIn, CheckOut: checkOut}
		ok, err := s.locks.Acquire(ctx, key, token)
		if err == nil && !ok {
			err = domain.ErrRoomLocked
		}
		if err != nil {
			s.locks.BulkRelease(ctx, held, token)
			s.restoreInventory(ctx, input.RoomTypeID, checkIn, checkOut, input.Quantity)
			return nil, err
		}
		held = append(held, key)
	}

	now := time.Now()
	booking := &domain.Booking{
		ID:         uuid.New(),
		CustomerID: customerID,
		Status:     domain.BookingStatusPending,
		CheckIn:    checkIn,
		CheckOut:   checkOut,
		LockToken:  token,
		ExpiresAt:  now.Add(s.holdWindow),
	}
	nights := int64(booking.Nights())
	for _, room := range rooms {
		booking.Rooms = append(booking.Rooms, domain.BookingRoom{
			ID:             uuid.New(),
			BookingID:      booking.ID,
			RoomID:         room.ID,
			RoomTypeID:     room.RoomTypeID,
			PriceAtBooking: roomType.PriceCents,
		})
		booking.TotalAmount += roomType.PriceCents * nights
	}

	if err := s.bookings.Create(ctx, booking); err != nil {
		s.locks.BulkRelease(ctx, held, token)
		s.restoreInventory(ctx, input.RoomTypeID, checkIn, checkOut, input.Quantity)
		return nil, fmt.Errorf("create booking: %w", err)
	}

	s.publish(ctx, "booking_created", booking)
	return booking, nil
}

func (s *Service) GetBooking(ctx context.Context, id uuid.UUID) (*domain.Booking, error) {
	return s.bookings.GetByID(ctx, id)
}

// AdvanceToPendingConfirmation is the payment-side half of the critical race:
// it only succeeds when the booking is still Pending, so it is mutually
// exclusive with the expiry sweep's Pending->Cancelled swap.
func (s *Service) AdvanceToPendingConfirmation(ctx context.Context, id uuid.UUID) (*domain.Booking, error) {
	booking, err := s.transition(ctx, id, domain.BookingStatusPending, domain.BookingStatusPendingConfirmation, false)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, "booking_pending_confirmation", booking)
	return booking, nil
}

// ConfirmBooking requires the deposit threshold to be met. Confirmation keeps
// the inventory decrement committed but the room locks are no longer needed.
func (s *Service) ConfirmBooking(ctx context.Context, id uuid.UUID) (*domain.Booking, error) {
	current, err := s.bookings.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !s.meetsDepositThreshold(current) {
		return nil, fmt.Errorf("deposit %d below threshold for total %d: %w",
			current.DepositAmount, current.TotalAmount, domain.ErrConflict)
	}

	booking, err := s.transition(ctx, id, domain.BookingStatusPendingConfirmation, domain.BookingStatusConfirmed, false)
	if err != nil {
		return nil, err
	}
	s.locks.BulkRelease(ctx, lockKeys(booking), booking.LockToken)
	s.publish(ctx, "booking_confirmed", booking)
	return booking, nil
}

func (s *Service) CheckInBooking(ctx context.Context, id uuid.UUID) (*domain.Booking, error) {
	booking, err := s.transition(ctx, id, domain.BookingStatusConfirmed, domain.BookingStatusCheckedIn, false)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, "booking_checked_in", booking)
	return booking, nil
}

// AddServiceCharge records consumption of a catalog service with the price
// snapshotted now; allowed while the guest can still incur charges.
func (s *Service) AddServiceCharge(ctx context.Context, id, serviceID uuid.UUID, quantity int) (*domain.Booking, error) {
	if quantity <= 0 {
		return nil, domain.ErrInvalidQuantity
	}

	booking, err := s.bookings.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if booking.Status != domain.BookingStatusConfirmed && booking.Status != domain.BookingStatusCheckedIn {
		return nil, domain.ErrInvalidTransition
	}

	svc, err := s.catalog.GetService(ctx, serviceID)
	if err != nil {
		return nil, err
	}

	if err := s.bookings.AddService(ctx, &domain.BookingService{
		ID:             uuid.New(),
		BookingID:      id,
		ServiceID:      serviceID,
		PriceAtBooking: svc.PriceCents,
		Quantity:       quantity,
	}); err != nil {
		return nil, fmt.Errorf("add service charge: %w", err)
	}
	return s.bookings.GetByID(ctx, id)
}

// CheckoutBooking completes the stay and derives the final bill from the
// committed room and service snapshots.
func (s *Service) CheckoutBooking(ctx context.Context, id uuid.UUID) (*domain.Booking, *checkout.Invoice, error) {
	booking, err := s.transition(ctx, id, domain.BookingStatusCheckedIn, domain.BookingStatusCompleted, false)
	if err != nil {
		return nil, nil, err
	}

	invoice := checkout.Calculate(booking, actualNights(booking, time.Now()))
	s.publish(ctx, "booking_completed", booking)
	return booking, &invoice, nil
}

// CancelBooking is the explicit (user or staff) cancellation. It converges on
// the same guarded swap as the expiry sweep; whoever wins releases the hold.
func (s *Service) CancelBooking(ctx context.Context, id uuid.UUID) (*domain.Booking, error) {
	current, err := s.bookings.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if current.Status.IsTerminal() {
		return nil, domain.ErrInvalidTransition
	}
	if !current.Status.CanTransitionTo(domain.BookingStatusCancelled) {
		return nil, domain.ErrInvalidTransition
	}

	booking, err := s.transition(ctx, id, current.Status, domain.BookingStatusCancelled, true)
	if err != nil {
		return nil, err
	}
	if !current.HoldReleased {
		s.releaseHold(ctx, booking)
	}
	s.publish(ctx, "booking_cancelled", booking)
	return booking, nil
}

// SweepExpired force-cancels Pending bookings past their deadline. A booking
// advanced by a concurrent payment loses the swap and is skipped.
func (s *Service) SweepExpired(ctx context.Context) (int, error) {
	expired, err := s.bookings.FindExpiredPending(ctx, time.Now(), s.sweepBatchSize)
	if err != nil {
		return 0, fmt.Errorf("find expired bookings: %w", err)
	}

	cancelled := 0
	for _, b := range expired {
		won, err := s.bookings.UpdateStatusIf(ctx, b.ID, domain.BookingStatusPending, domain.BookingStatusCancelled, true)
		if err != nil {
			log.Printf("expire booking %s: %v", b.ID, err)
			continue
		}
		if !won {
			continue
		}

		// The expired scan returns bare rows; the release set needs the
		// booked rooms, so load the full aggregate.
		released, err := s.bookings.GetByID(ctx, b.ID)
		if err != nil {
			log.Printf("load cancelled booking %s: %v", b.ID, err)
			continue
		}
		if !b.HoldReleased {
			s.releaseHold(ctx, released)
		}
		s.publish(ctx, "booking_expired", released)
		cancelled++
	}
	return cancelled, nil
}

// transition performs one guarded status swap and returns the fresh booking.
func (s *Service) transition(ctx context.Context, id uuid.UUID, from, to domain.BookingStatus, markReleased bool) (*domain.Booking, error) {
	if !from.CanTransitionTo(to) {
		return nil, domain.ErrInvalidTransition
	}

	won, err := s.bookings.UpdateStatusIf(ctx, id, from, to, markReleased)
	if err != nil {
		return nil, fmt.Errorf("update booking status: %w", err)
	}
	if !won {
		return nil, domain.ErrInvalidTransition
	}
	return s.bookings.GetByID(ctx, id)
}

// releaseHold gives back every lock and inventory decrement for a cancelled
// booking. Callers guarantee single invocation through the hold-released
// marker written by the winning status swap.
func (s *Service) releaseHold(ctx context.Context, booking *domain.Booking) {
	s.locks.BulkRelease(ctx, lockKeys(booking), booking.LockToken)

	for typeID, qty := range roomsPerType(booking) {
		if err := s.ledger.Release(ctx, typeID, booking.CheckIn, booking.CheckOut, qty); err != nil {
			log.Printf("restore inventory for booking %s type %s: %v", booking.ID, typeID, err)
		}
	}
}

func (s *Service) restoreInventory(ctx context.Context, roomTypeID uuid.UUID, checkIn, checkOut time.Time, qty int) {
	if err := s.ledger.Release(ctx, roomTypeID, checkIn, checkOut, qty); err != nil {
		log.Printf("restore inventory for type %s: %v", roomTypeID, err)
	}
}

func (s *Service) meetsDepositThreshold(b *domain.Booking) bool {
	return b.DepositAmount*100 >= b.TotalAmount*int64(s.thresholdPercent)
}

func (s *Service) publish(ctx context.Context, eventType string, booking *domain.Booking) {
	if s.producer == nil || s.eventsTopic == "" {
		return
	}
	event := BookingEvent{
		Type:      eventType,
		BookingID: booking.ID.String(),
		Status:    string(booking.Status),
		CheckIn:   booking.CheckIn,
		CheckOut:  booking.CheckOut,
		Total:     booking.TotalAmount,
		ExpiresAt: booking.ExpiresAt,
	}
	if err := s.producer.Publish(ctx, s.eventsTopic, event.BookingID, event); err != nil {
		log.Printf("publish %s for booking %s: %v", eventType, booking.ID, err)
	}
}

type BookingEvent struct {
	Type      string    `json:"type"`
	BookingID string    `json:"booking_id"`
	Status    string    `json:"status"`
	CheckIn   time.Time `json:"check_in"`
	CheckOut  time.Time `json:"check_out"`
	Total     int64     `json:"total"`
	ExpiresAt time.Time `json:"expires_at"`
}

func lockKeys(b *domain.Booking) []lock.Key {
	keys := make([]lock.Key, 0, len(b.Rooms))
	for _, room := range b.Rooms {
		keys = append(keys, lock.Key{RoomID: room.RoomID, CheckIn: b.CheckIn, CheckOut: b.CheckOut})
	}
	return keys
}

func roomsPerType(b *domain.Booking) map[uuid.UUID]int {
	perType := make(map[uuid.UUID]int)
	for _, room := range b.Rooms {
		perType[room.RoomTypeID]++
	}
	return perType
}

func actualNights(b *domain.Booking, checkoutAt time.Time) int {
	nights := int(checkoutAt.Truncate(24*time.Hour).Sub(b.CheckIn.Truncate(24*time.Hour)).Hours() / 24)
	if nights < 1 {
		nights = 1
	}
	return nights
}

var _ BookingUseCase = (*Service)(nil)
