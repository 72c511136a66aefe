package email

import (
	"context"
	"log"

	"github.com/hoangnv-dev/hotelhold/internal/service/booking"
)

// Sender delivers booking notifications. Fire-and-forget: delivery failures
// never affect booking state.
type Sender struct{}

func NewSender() *Sender {
	return &Sender{}
}

func (s *Sender) Send(_ context.Context, event booking.BookingEvent) error {
	log.Printf("notify booking %s: %s (status %s)", event.BookingID, event.Type, event.Status)
	return nil
}
