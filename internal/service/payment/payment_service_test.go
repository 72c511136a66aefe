package payment

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hoangnv-dev/hotelhold/internal/domain"
	"github.com/hoangnv-dev/hotelhold/internal/gateway"
)

type fakeBookings struct {
	mu       sync.Mutex
	bookings map[uuid.UUID]*domain.Booking
}

func newFakeBookings(bookings ...*domain.Booking) *fakeBookings {
	r := &fakeBookings{bookings: make(map[uuid.UUID]*domain.Booking)}
	for _, b := range bookings {
		clone := *b
		r.bookings[b.ID] = &clone
	}
	return r
}

func (r *fakeBookings) Create(_ context.Context, b *domain.Booking) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	clone := *b
	r.bookings[b.ID] = &clone
	return nil
}

func (r *fakeBookings) GetByID(_ context.Context, id uuid.UUID) (*domain.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.bookings[id]
	if !ok {
		return nil, domain.ErrBookingNotFound
	}
	clone := *b
	return &clone, nil
}

func (r *fakeBookings) UpdateStatusIf(_ context.Context, id uuid.UUID, from, to domain.BookingStatus, markReleased bool) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.bookings[id]
	if !ok || b.Status != from {
		return false, nil
	}
	b.Status = to
	if markReleased {
		b.HoldReleased = true
	}
	return true, nil
}

func (r *fakeBookings) FindExpiredPending(context.Context, time.Time, int) ([]domain.Booking, error) {
	return nil, nil
}

func (r *fakeBookings) CountCommittedRooms(context.Context, uuid.UUID, time.Time, time.Time) (int, error) {
	return 0, nil
}

func (r *fakeBookings) AdjustDeposit(_ context.Context, id uuid.UUID, delta int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.bookings[id]
	if !ok {
		return domain.ErrBookingNotFound
	}
	if b.DepositAmount+delta < 0 {
		return domain.ErrRefundExceedsPaid
	}
	b.DepositAmount += delta
	return nil
}

func (r *fakeBookings) AddService(context.Context, *domain.BookingService) error {
	return nil
}

// fakeTxns enforces reference uniqueness the way the postgres constraint does.
type fakeTxns struct {
	mu   sync.Mutex
	txns map[uuid.UUID]*domain.Transaction
}

func newFakeTxns() *fakeTxns {
	return &fakeTxns{txns: make(map[uuid.UUID]*domain.Transaction)}
}

func (r *fakeTxns) Create(_ context.Context, txn *domain.Transaction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.txns {
		if existing.Reference == txn.Reference {
			return fmt.Errorf("duplicate reference %s: %w", txn.Reference, domain.ErrConflict)
		}
	}
	clone := *txn
	r.txns[txn.ID] = &clone
	return nil
}

func (r *fakeTxns) GetByReference(_ context.Context, reference string) (*domain.Transaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, txn := range r.txns {
		if txn.Reference == reference {
			clone := *txn
			return &clone, nil
		}
	}
	return nil, domain.ErrTransactionNotFound
}

func (r *fakeTxns) GetByID(_ context.Context, id uuid.UUID) (*domain.Transaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	txn, ok := r.txns[id]
	if !ok {
		return nil, domain.ErrTransactionNotFound
	}
	clone := *txn
	return &clone, nil
}

func (r *fakeTxns) UpdateStatusIf(_ context.Context, id uuid.UUID, from, to domain.TransactionStatus) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	txn, ok := r.txns[id]
	if !ok || txn.Status != from {
		return false, nil
	}
	txn.Status = to
	return true, nil
}

func (r *fakeTxns) ListByBooking(_ context.Context, bookingID uuid.UUID) ([]domain.Transaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Transaction
	for _, txn := range r.txns {
		if txn.BookingID == bookingID {
			out = append(out, *txn)
		}
	}
	return out, nil
}

// fakeLifecycle advances the booking through the same guarded swap the real
// service uses, so the webhook path sees realistic win/lose outcomes.
type fakeLifecycle struct {
	bookings *fakeBookings
	calls    int
}

func (l *fakeLifecycle) AdvanceToPendingConfirmation(ctx context.Context, id uuid.UUID) (*domain.Booking, error) {
	l.calls++
	won, err := l.bookings.UpdateStatusIf(ctx, id, domain.BookingStatusPending, domain.BookingStatusPendingConfirmation, false)
	if err != nil {
		return nil, err
	}
	if !won {
		return nil, domain.ErrInvalidTransition
	}
	return l.bookings.GetByID(ctx, id)
}

// fakeGateway signs and verifies with the real checksum scheme but never
// leaves the process.
type fakeGateway struct {
	key       string
	linkErr   error
	lastOrder string
}

func (g *fakeGateway) CreatePaymentLink(_ context.Context, orderCode string, _ int64, _ string) (string, error) {
	if g.linkErr != nil {
		return "", g.linkErr
	}
	g.lastOrder = orderCode
	return "https://pay.example.com/" + orderCode, nil
}

func (g *fakeGateway) VerifyWebhook(body []byte, signature string) error {
	if gateway.Sign(g.key, body) != signature {
		return domain.ErrBadSignature
	}
	return nil
}

type paymentEnv struct {
	service   *Service
	bookings  *fakeBookings
	txns      *fakeTxns
	lifecycle *fakeLifecycle
	gateway   *fakeGateway
	booking   *domain.Booking
}

func newPaymentEnv(t *testing.T, status domain.BookingStatus, total int64) *paymentEnv {
	t.Helper()

	booking := &domain.Booking{
		ID:          uuid.New(),
		Status:      status,
		TotalAmount: total,
	}
	bookings := newFakeBookings(booking)
	txns := newFakeTxns()
	lifecycle := &fakeLifecycle{bookings: bookings}
	gw := &fakeGateway{key: "checksum-secret"}

	return &paymentEnv{
		service:   NewService(bookings, txns, lifecycle, gw, 30),
		bookings:  bookings,
		txns:      txns,
		lifecycle: lifecycle,
		gateway:   gw,
		booking:   booking,
	}
}

func (e *paymentEnv) signedWebhook(t *testing.T, orderCode string, amount int64, success bool) ([]byte, string) {
	t.Helper()
	body, err := json.Marshal(map[string]interface{}{
		"order_code": orderCode,
		"amount":     amount,
		"success":    success,
	})
	require.NoError(t, err)
	return body, gateway.Sign(e.gateway.key, body)
}

func TestCreatePaymentLink(t *testing.T) {
	env := newPaymentEnv(t, domain.BookingStatusPending, 1_000_000)

	url, err := env.service.CreatePaymentLink(context.Background(), env.booking.ID, 300_000)
	require.NoError(t, err)
	assert.Contains(t, url, env.gateway.lastOrder)

	txn, err := env.txns.GetByReference(context.Background(), env.gateway.lastOrder)
	require.NoError(t, err)
	assert.Equal(t, domain.TransactionStatusPending, txn.Status)
	assert.Equal(t, int64(300_000), txn.Amount)

	_, err = env.service.CreatePaymentLink(context.Background(), env.booking.ID, 0)
	assert.ErrorIs(t, err, domain.ErrInvalidAmount)
}

func TestCreatePaymentLink_StatusGuard(t *testing.T) {
	env := newPaymentEnv(t, domain.BookingStatusCancelled, 1_000_000)

	_, err := env.service.CreatePaymentLink(context.Background(), env.booking.ID, 300_000)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
	assert.Empty(t, env.gateway.lastOrder, "no gateway call for a dead booking")
}

func TestRecordDeposit_MeetingThresholdAdvancesBooking(t *testing.T) {
	env := newPaymentEnv(t, domain.BookingStatusPending, 1_000_000)

	// 30% of 1,000,000 is 300,000.
	txn, err := env.service.RecordDeposit(context.Background(), env.booking.ID, 300_000, "cash", "receipt-1")
	require.NoError(t, err)
	assert.Equal(t, domain.TransactionStatusPaid, txn.Status)

	got, err := env.bookings.GetByID(context.Background(), env.booking.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(300_000), got.DepositAmount)
	assert.Equal(t, domain.BookingStatusPendingConfirmation, got.Status)
}

func TestRecordDeposit_BelowThresholdStaysPending(t *testing.T) {
	env := newPaymentEnv(t, domain.BookingStatusPending, 1_000_000)

	_, err := env.service.RecordDeposit(context.Background(), env.booking.ID, 100_000, "cash", "receipt-1")
	require.NoError(t, err)

	got, err := env.bookings.GetByID(context.Background(), env.booking.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.BookingStatusPending, got.Status)
	assert.Zero(t, env.lifecycle.calls)

	// A second partial payment pushes it over the line.
	_, err = env.service.RecordDeposit(context.Background(), env.booking.ID, 200_000, "cash", "receipt-2")
	require.NoError(t, err)

	got, err = env.bookings.GetByID(context.Background(), env.booking.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(300_000), got.DepositAmount)
	assert.Equal(t, domain.BookingStatusPendingConfirmation, got.Status)
}

func TestRecordDeposit_Rejections(t *testing.T) {
	env := newPaymentEnv(t, domain.BookingStatusCompleted, 1_000_000)

	_, err := env.service.RecordDeposit(context.Background(), env.booking.ID, 100_000, "cash", "receipt-1")
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)

	_, err = env.service.RecordDeposit(context.Background(), env.booking.ID, -5, "cash", "receipt-2")
	assert.ErrorIs(t, err, domain.ErrInvalidAmount)

	_, err = env.service.RecordDeposit(context.Background(), uuid.New(), 100_000, "cash", "receipt-3")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestHandleGatewayWebhook_CreditsOnce(t *testing.T) {
	env := newPaymentEnv(t, domain.BookingStatusPending, 1_000_000)

	_, err := env.service.CreatePaymentLink(context.Background(), env.booking.ID, 300_000)
	require.NoError(t, err)

	body, sig := env.signedWebhook(t, env.gateway.lastOrder, 300_000, true)
	require.NoError(t, env.service.HandleGatewayWebhook(context.Background(), body, sig))

	got, err := env.bookings.GetByID(context.Background(), env.booking.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(300_000), got.DepositAmount)
	assert.Equal(t, domain.BookingStatusPendingConfirmation, got.Status)

	// Replayed delivery: same body, same signature, no second credit.
	require.NoError(t, env.service.HandleGatewayWebhook(context.Background(), body, sig))

	got, err = env.bookings.GetByID(context.Background(), env.booking.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(300_000), got.DepositAmount)
}

func TestHandleGatewayWebhook_ConcurrentDeliveriesCreditOnce(t *testing.T) {
	for i := 0; i < 50; i++ {
		env := newPaymentEnv(t, domain.BookingStatusPending, 1_000_000)

		_, err := env.service.CreatePaymentLink(context.Background(), env.booking.ID, 300_000)
		require.NoError(t, err)
		body, sig := env.signedWebhook(t, env.gateway.lastOrder, 300_000, true)

		var wg sync.WaitGroup
		wg.Add(2)
		for j := 0; j < 2; j++ {
			go func() {
				defer wg.Done()
				_ = env.service.HandleGatewayWebhook(context.Background(), body, sig)
			}()
		}
		wg.Wait()

		got, err := env.bookings.GetByID(context.Background(), env.booking.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(300_000), got.DepositAmount, "only the swap winner may credit")
	}
}

func TestHandleGatewayWebhook_BadSignature(t *testing.T) {
	env := newPaymentEnv(t, domain.BookingStatusPending, 1_000_000)

	body, _ := env.signedWebhook(t, "order-1", 300_000, true)
	err := env.service.HandleGatewayWebhook(context.Background(), body, "deadbeef")
	assert.ErrorIs(t, err, domain.ErrBadSignature)

	got, err := env.bookings.GetByID(context.Background(), env.booking.ID)
	require.NoError(t, err)
	assert.Zero(t, got.DepositAmount)
}

func TestHandleGatewayWebhook_UnknownOrderCode(t *testing.T) {
	env := newPaymentEnv(t, domain.BookingStatusPending, 1_000_000)

	body, sig := env.signedWebhook(t, "no-such-order", 300_000, true)
	err := env.service.HandleGatewayWebhook(context.Background(), body, sig)
	assert.ErrorIs(t, err, domain.ErrUnknownReference)
}

func TestHandleGatewayWebhook_FailedPaymentIsIgnored(t *testing.T) {
	env := newPaymentEnv(t, domain.BookingStatusPending, 1_000_000)

	_, err := env.service.CreatePaymentLink(context.Background(), env.booking.ID, 300_000)
	require.NoError(t, err)

	body, sig := env.signedWebhook(t, env.gateway.lastOrder, 300_000, false)
	require.NoError(t, env.service.HandleGatewayWebhook(context.Background(), body, sig))

	txn, err := env.txns.GetByReference(context.Background(), env.gateway.lastOrder)
	require.NoError(t, err)
	assert.Equal(t, domain.TransactionStatusPending, txn.Status)
}

func TestHandleGatewayWebhook_LostSwapIsNotAnError(t *testing.T) {
	env := newPaymentEnv(t, domain.BookingStatusPending, 1_000_000)

	_, err := env.service.CreatePaymentLink(context.Background(), env.booking.ID, 300_000)
	require.NoError(t, err)

	// Expiry sweep wins first.
	won, err := env.bookings.UpdateStatusIf(context.Background(), env.booking.ID,
		domain.BookingStatusPending, domain.BookingStatusCancelled, true)
	require.NoError(t, err)
	require.True(t, won)

	body, sig := env.signedWebhook(t, env.gateway.lastOrder, 300_000, true)
	require.NoError(t, env.service.HandleGatewayWebhook(context.Background(), body, sig))

	got, err := env.bookings.GetByID(context.Background(), env.booking.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.BookingStatusCancelled, got.Status)
	assert.Equal(t, int64(300_000), got.DepositAmount, "payment is recorded even when the booking already died")
}

func TestRecordDeposit_CannotExceedTotal(t *testing.T) {
	env := newPaymentEnv(t, domain.BookingStatusPending, 1_000_000)

	_, err := env.service.RecordDeposit(context.Background(), env.booking.ID, 1_200_000, "cash", "receipt-1")
	assert.ErrorIs(t, err, domain.ErrDepositExceedsTotal)

	got, err := env.bookings.GetByID(context.Background(), env.booking.ID)
	require.NoError(t, err)
	assert.Zero(t, got.DepositAmount)

	// Cumulative payments are capped too; paying up to the exact total is fine.
	_, err = env.service.RecordDeposit(context.Background(), env.booking.ID, 800_000, "cash", "receipt-2")
	require.NoError(t, err)

	_, err = env.service.RecordDeposit(context.Background(), env.booking.ID, 300_000, "cash", "receipt-3")
	assert.ErrorIs(t, err, domain.ErrDepositExceedsTotal)

	_, err = env.service.RecordDeposit(context.Background(), env.booking.ID, 200_000, "cash", "receipt-4")
	require.NoError(t, err)

	got, err = env.bookings.GetByID(context.Background(), env.booking.ID)
	require.NoError(t, err)
	assert.Equal(t, env.booking.TotalAmount, got.DepositAmount)
}

func TestCreatePaymentLink_CannotExceedTotal(t *testing.T) {
	env := newPaymentEnv(t, domain.BookingStatusPending, 1_000_000)

	_, err := env.service.CreatePaymentLink(context.Background(), env.booking.ID, 1_200_000)
	assert.ErrorIs(t, err, domain.ErrDepositExceedsTotal)
	assert.Empty(t, env.gateway.lastOrder)
}

func TestHandleGatewayWebhook_CannotExceedTotal(t *testing.T) {
	env := newPaymentEnv(t, domain.BookingStatusPending, 1_000_000)

	// A link issued within the cap can still overrun it if other payments
	// land before the gateway settles.
	_, err := env.service.CreatePaymentLink(context.Background(), env.booking.ID, 400_000)
	require.NoError(t, err)
	_, err = env.service.RecordDeposit(context.Background(), env.booking.ID, 800_000, "cash", "receipt-1")
	require.NoError(t, err)

	body, sig := env.signedWebhook(t, env.gateway.lastOrder, 400_000, true)
	err = env.service.HandleGatewayWebhook(context.Background(), body, sig)
	assert.ErrorIs(t, err, domain.ErrDepositExceedsTotal)

	txn, err := env.txns.GetByReference(context.Background(), env.gateway.lastOrder)
	require.NoError(t, err)
	assert.Equal(t, domain.TransactionStatusPending, txn.Status, "rejected settlement leaves the transaction pending")

	got, err := env.bookings.GetByID(context.Background(), env.booking.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(800_000), got.DepositAmount)
}

func TestRefundDeposit(t *testing.T) {
	env := newPaymentEnv(t, domain.BookingStatusPendingConfirmation, 1_000_000)

	txn, err := env.service.RecordDeposit(context.Background(), env.booking.ID, 300_000, "cash", "receipt-1")
	require.NoError(t, err)

	_, err = env.service.RefundDeposit(context.Background(), txn.ID, 400_000)
	assert.ErrorIs(t, err, domain.ErrRefundExceedsPaid)

	refunding, err := env.service.RefundDeposit(context.Background(), txn.ID, 200_000)
	require.NoError(t, err)
	assert.Equal(t, domain.TransactionStatusRefunding, refunding.Status)

	got, err := env.bookings.GetByID(context.Background(), env.booking.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(100_000), got.DepositAmount)

	// Only paid transactions can start a refund.
	_, err = env.service.RefundDeposit(context.Background(), txn.ID, 50_000)
	assert.ErrorIs(t, err, domain.ErrConflict)
}

func TestProcessRefund(t *testing.T) {
	env := newPaymentEnv(t, domain.BookingStatusPendingConfirmation, 1_000_000)

	txn, err := env.service.RecordDeposit(context.Background(), env.booking.ID, 300_000, "cash", "receipt-1")
	require.NoError(t, err)

	_, err = env.service.ProcessRefund(context.Background(), txn.ID)
	assert.ErrorIs(t, err, domain.ErrConflict, "cannot settle a refund that never started")

	_, err = env.service.RefundDeposit(context.Background(), txn.ID, 300_000)
	require.NoError(t, err)

	done, err := env.service.ProcessRefund(context.Background(), txn.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TransactionStatusRefunded, done.Status)
}
