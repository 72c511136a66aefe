package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"github.com/google/uuid"

	"github.com/hoangnv-dev/hotelhold/internal/domain"
	"github.com/hoangnv-dev/hotelhold/internal/gateway"
	"github.com/hoangnv-dev/hotelhold/internal/repository"
)

// Lifecycle is the slice of the booking service the coordinator needs to push
// a paid booking forward.
type Lifecycle interface {
	AdvanceToPendingConfirmation(ctx context.Context, id uuid.UUID) (*domain.Booking, error)
}

type PaymentUseCase interface {
	CreatePaymentLink(ctx context.Context, bookingID uuid.UUID, amount int64) (string, error)
	RecordDeposit(ctx context.Context, bookingID uuid.UUID, amount int64, method, reference string) (*domain.Transaction, error)
	HandleGatewayWebhook(ctx context.Context, body []byte, signature string) error
	RefundDeposit(ctx context.Context, transactionID uuid.UUID, amount int64) (*domain.Transaction, error)
	ProcessRefund(ctx context.Context, transactionID uuid.UUID) (*domain.Transaction, error)
}

// Service reconciles manual and gateway payment events against bookings.
// External references are unique, so replayed webhook deliveries credit at
// most once.
type Service struct {
	bookings  repository.BookingRepository
	txns      repository.TransactionRepository
	lifecycle Lifecycle
	gateway   gateway.Client
	threshold int // percent of total required to advance past Pending
}

func NewService(
	bookings repository.BookingRepository,
	txns repository.TransactionRepository,
	lifecycle Lifecycle,
	gw gateway.Client,
	thresholdPercent int,
) *Service {
	return &Service{
		bookings:  bookings,
		txns:      txns,
		lifecycle: lifecycle,
		gateway:   gw,
		threshold: thresholdPercent,
	}
}

// CreatePaymentLink registers a pending deposit transaction under a fresh
// order code and asks the gateway for a checkout URL. The webhook later flips
// the transaction to paid by that code.
func (s *Service) CreatePaymentLink(ctx context.Context, bookingID uuid.UUID, amount int64) (string, error) {
	if amount <= 0 {
		return "", domain.ErrInvalidAmount
	}

	booking, err := s.bookings.GetByID(ctx, bookingID)
	if err != nil {
		return "", err
	}
	if booking.Status != domain.BookingStatusPending && booking.Status != domain.BookingStatusPendingConfirmation {
		return "", domain.ErrInvalidTransition
	}
	if booking.DepositAmount+amount > booking.TotalAmount {
		return "", domain.ErrDepositExceedsTotal
	}

	orderCode := uuid.NewString()
	txn := &domain.Transaction{
		ID:        uuid.New(),
		BookingID: bookingID,
		Type:      domain.TransactionTypeDeposit,
		Status:    domain.TransactionStatusPending,
		Amount:    amount,
		Method:    "gateway",
		Reference: orderCode,
	}
	if err := s.txns.Create(ctx, txn); err != nil {
		return "", fmt.Errorf("create pending transaction: %w", err)
	}

	description := fmt.Sprintf("deposit for booking %s", bookingID)
	url, err := s.gateway.CreatePaymentLink(ctx, orderCode, amount, description)
	if err != nil {
		return "", err
	}
	return url, nil
}

// RecordDeposit books a front-desk or bank-transfer deposit. Valid only while
// the booking is Pending or PendingConfirmation.
func (s *Service) RecordDeposit(ctx context.Context, bookingID uuid.UUID, amount int64, method, reference string) (*domain.Transaction, error) {
	if amount <= 0 {
		return nil, domain.ErrInvalidAmount
	}

	booking, err := s.bookings.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if booking.Status != domain.BookingStatusPending && booking.Status != domain.BookingStatusPendingConfirmation {
		return nil, domain.ErrInvalidTransition
	}
	if booking.DepositAmount+amount > booking.TotalAmount {
		return nil, domain.ErrDepositExceedsTotal
	}

	txn := &domain.Transaction{
		ID:        uuid.New(),
		BookingID: bookingID,
		Type:      domain.TransactionTypeDeposit,
		Status:    domain.TransactionStatusPaid,
		Amount:    amount,
		Method:    method,
		Reference: reference,
	}
	if err := s.txns.Create(ctx, txn); err != nil {
		return nil, err
	}

	if err := s.credit(ctx, booking, amount); err != nil {
		return nil, err
	}
	return txn, nil
}

type webhookPayload struct {
	OrderCode string `json:"order_code"`
	Amount    int64  `json:"amount"`
	Success   bool   `json:"success"`
}

// HandleGatewayWebhook verifies the provider signature, maps the order code to
// its pending transaction and credits the booking. The Pending->Paid flip is a
// compare-and-swap, so replayed and concurrent deliveries credit at most once.
func (s *Service) HandleGatewayWebhook(ctx context.Context, body []byte, signature string) error {
	if err := s.gateway.VerifyWebhook(body, signature); err != nil {
		return err
	}

	var payload webhookPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return fmt.Errorf("decode webhook payload: %w: %w", domain.ErrExternal, err)
	}
	if !payload.Success {
		log.Printf("gateway reported failed payment for order %s", payload.OrderCode)
		return nil
	}

	txn, err := s.txns.GetByReference(ctx, payload.OrderCode)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("order %s: %w", payload.OrderCode, domain.ErrUnknownReference)
		}
		return err
	}
	if txn.Status != domain.TransactionStatusPending {
		// Duplicate delivery after a successful credit: no-op.
		return nil
	}

	booking, err := s.bookings.GetByID(ctx, txn.BookingID)
	if err != nil {
		return err
	}
	if booking.DepositAmount+txn.Amount > booking.TotalAmount {
		return fmt.Errorf("order %s: %w", payload.OrderCode, domain.ErrDepositExceedsTotal)
	}

	won, err := s.txns.UpdateStatusIf(ctx, txn.ID, domain.TransactionStatusPending, domain.TransactionStatusPaid)
	if err != nil {
		return err
	}
	if !won {
		// A concurrent delivery of the same event already credited.
		return nil
	}
	return s.credit(ctx, booking, txn.Amount)
}

// credit adds the paid amount to the booking and, once the deposit threshold
// is met, attempts the guarded Pending->PendingConfirmation transition. Losing
// that swap to the expiry sweep is not an error here; the caller sees the
// refreshed booking state.
func (s *Service) credit(ctx context.Context, booking *domain.Booking, amount int64) error {
	if err := s.bookings.AdjustDeposit(ctx, booking.ID, amount); err != nil {
		return fmt.Errorf("credit deposit: %w", err)
	}

	paid := booking.DepositAmount + amount
	if booking.Status == domain.BookingStatusPending && paid*100 >= booking.TotalAmount*int64(s.threshold) {
		if _, err := s.lifecycle.AdvanceToPendingConfirmation(ctx, booking.ID); err != nil {
			if errors.Is(err, domain.ErrConflict) {
				log.Printf("booking %s no longer pending, payment recorded without transition", booking.ID)
				return nil
			}
			return err
		}
	}
	return nil
}

// RefundDeposit starts giving money back: the paid amount decreases right away
// and the transaction sits in Refunding until the transfer settles.
func (s *Service) RefundDeposit(ctx context.Context, transactionID uuid.UUID, amount int64) (*domain.Transaction, error) {
	if amount <= 0 {
		return nil, domain.ErrInvalidAmount
	}

	txn, err := s.txns.GetByID(ctx, transactionID)
	if err != nil {
		return nil, err
	}
	if amount > txn.Amount {
		return nil, domain.ErrRefundExceedsPaid
	}

	won, err := s.txns.UpdateStatusIf(ctx, txn.ID, domain.TransactionStatusPaid, domain.TransactionStatusRefunding)
	if err != nil {
		return nil, err
	}
	if !won {
		return nil, fmt.Errorf("transaction %s is not paid: %w", txn.ID, domain.ErrConflict)
	}

	if err := s.bookings.AdjustDeposit(ctx, txn.BookingID, -amount); err != nil {
		// Give the transaction back so the refund can be retried.
		if _, uerr := s.txns.UpdateStatusIf(ctx, txn.ID, domain.TransactionStatusRefunding, domain.TransactionStatusPaid); uerr != nil {
			log.Printf("restore transaction %s after failed refund: %v", txn.ID, uerr)
		}
		return nil, err
	}
	return s.txns.GetByID(ctx, transactionID)
}

// ProcessRefund settles a refund in flight.
func (s *Service) ProcessRefund(ctx context.Context, transactionID uuid.UUID) (*domain.Transaction, error) {
	txn, err := s.txns.GetByID(ctx, transactionID)
	if err != nil {
		return nil, err
	}

	won, err := s.txns.UpdateStatusIf(ctx, txn.ID, domain.TransactionStatusRefunding, domain.TransactionStatusRefunded)
	if err != nil {
		return nil, err
	}
	if !won {
		return nil, fmt.Errorf("transaction %s is not refunding: %w", txn.ID, domain.ErrConflict)
	}
	return s.txns.GetByID(ctx, transactionID)
}

var _ PaymentUseCase = (*Service)(nil)
