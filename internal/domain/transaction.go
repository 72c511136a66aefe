package domain

import (
	"time"

	"github.com/google/uuid"
)

type TransactionStatus string

const (
	TransactionStatusPending   TransactionStatus = "PENDING"
	TransactionStatusPaid      TransactionStatus = "PAID"
	TransactionStatusRefunding TransactionStatus = "REFUNDING"
	TransactionStatusRefunded  TransactionStatus = "REFUNDED"
)

type TransactionType string

const (
	TransactionTypeDeposit TransactionType = "DEPOSIT"
	TransactionTypePayment TransactionType = "PAYMENT"
	TransactionTypeRefund  TransactionType = "REFUND"
)

// Transaction records a single monetary movement against a booking. Reference
// is the external order code (gateway) or receipt number (front desk) and is
// unique, which is what makes webhook replays a no-op.
type Transaction struct {
	ID        uuid.UUID
	BookingID uuid.UUID
	Type      TransactionType
	Status    TransactionStatus
	Amount    int64
	Method    string
	Reference string
	CreatedAt time.Time
	UpdatedAt time.Time
}
