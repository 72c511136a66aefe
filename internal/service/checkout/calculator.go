// Package checkout derives the final bill from a booking's committed room and
// service snapshots. Pure computation: identical inputs always yield identical
// output.
package checkout

import "github.com/hoangnv-dev/hotelhold/internal/domain"

type Invoice struct {
	RoomSubtotal    int64 `json:"room_subtotal"`
	ServiceSubtotal int64 `json:"service_subtotal"`
	Total           int64 `json:"total"`
	DepositPaid     int64 `json:"deposit_paid"`
	AmountDue       int64 `json:"amount_due"`
}

// Calculate bills each room at its booked nightly rate times the actual nights
// stayed, plus consumed services at their snapshotted prices.
func Calculate(b *domain.Booking, actualNights int) Invoice {
	var inv Invoice

	for _, room := range b.Rooms {
		inv.RoomSubtotal += room.PriceAtBooking * int64(actualNights)
	}
	for _, svc := range b.Services {
		inv.ServiceSubtotal += svc.PriceAtBooking * int64(svc.Quantity)
	}

	inv.Total = inv.RoomSubtotal + inv.ServiceSubtotal
	inv.DepositPaid = b.DepositAmount
	inv.AmountDue = inv.Total - inv.DepositPaid
	return inv
}
