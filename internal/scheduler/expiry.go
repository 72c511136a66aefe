package scheduler

import (
	"context"
	"log"
	"time"
)

// Sweeper cancels expired pending bookings; implemented by the booking service.
type Sweeper interface {
	SweepExpired(ctx context.Context) (int, error)
}

// ExpiryScheduler runs the sweep on a fixed interval. Cancelling the context
// stops scheduling new cycles; an in-flight cycle finishes before Run returns.
type ExpiryScheduler struct {
	sweeper  Sweeper
	interval time.Duration
}

func NewExpiryScheduler(sweeper Sweeper, interval time.Duration) *ExpiryScheduler {
	return &ExpiryScheduler{sweeper: sweeper, interval: interval}
}

func (s *ExpiryScheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	log.Printf("expiry scheduler started, sweeping every %s", s.interval)

	for {
		select {
		case <-ctx.Done():
			log.Println("expiry scheduler stopped")
			return
		case <-ticker.C:
			// The sweep runs on a detached context so shutdown does not abort
			// a half-finished release.
			sweepCtx, cancel := context.WithTimeout(context.Background(), s.interval)
			cancelled, err := s.sweeper.SweepExpired(sweepCtx)
			cancel()
			if err != nil {
				log.Printf("expiry sweep: %v", err)
				continue
			}
			if cancelled > 0 {
				log.Printf("expired %d bookings", cancelled)
			}
		}
	}
}
