package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/eventix/ticketing/internal/model"
	"github.com/eventix/ticketing/internal/queue"
	"github.com/eventix/ticketing/internal/repository"
)

type captureNotifier struct {
	mu     sync.Mutex
	events []queue.TicketConfirmedEvent
}

func (n *captureNotifier) PublishTicketConfirmed(ctx context.Context, ev queue.TicketConfirmedEvent) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, ev)
	return nil
}

type paymentFixture struct {
	store    *memStore
	clock    *stepClock
	notifier *captureNotifier
	payments *PaymentService
	ticket   *model.Ticket
	userID   uint64
}

func newPaymentFixture(t *testing.T) *paymentFixture {
	t.Helper()
	store := newMemStore()
	clk := newStepClock(testNow)
	occID := store.addOccurrence(10, "25.00", testNow.Add(24*time.Hour))

	reservations := NewReservationService(store, clk, 10*time.Minute)
	ticket, err := reservations.Reserve(context.Background(), 7, occID)
	require.NoError(t, err)

	notifier := &captureNotifier{}
	return &paymentFixture{
		store:    store,
		clock:    clk,
		notifier: notifier,
		payments: NewPaymentService(store, store, clk, notifier),
		ticket:   ticket,
		userID:   7,
	}
}

func TestStartPayment(t *testing.T) {
	ctx := context.Background()

	t.Run("creates a pending payment with the ticket price", func(t *testing.T) {
		f := newPaymentFixture(t)

		p, err := f.payments.Start(ctx, f.userID, f.ticket.ID, model.MethodCreditCard)
		require.NoError(t, err)
		require.Equal(t, model.PaymentPending, p.Status)
		require.Equal(t, "25.00", p.Amount.StringFixed(2))
		require.NotEmpty(t, p.TransactionID)
	})

	t.Run("only one payment per ticket", func(t *testing.T) {
		f := newPaymentFixture(t)

		_, err := f.payments.Start(ctx, f.userID, f.ticket.ID, model.MethodCreditCard)
		require.NoError(t, err)
		_, err = f.payments.Start(ctx, f.userID, f.ticket.ID, model.MethodPayPal)
		require.ErrorIs(t, err, repository.ErrPaymentExists)
	})

	t.Run("only the owner may pay", func(t *testing.T) {
		f := newPaymentFixture(t)
		_, err := f.payments.Start(ctx, 99, f.ticket.ID, model.MethodCreditCard)
		require.ErrorIs(t, err, repository.ErrForbidden)
	})

	t.Run("expired hold cancels the ticket", func(t *testing.T) {
		f := newPaymentFixture(t)
		f.clock.Advance(11 * time.Minute)

		_, err := f.payments.Start(ctx, f.userID, f.ticket.ID, model.MethodCreditCard)
		require.ErrorIs(t, err, repository.ErrHoldExpired)
		require.Equal(t, model.TicketCancelled, f.store.tickets[f.ticket.ID].Status)
	})

	t.Run("cancelled ticket cannot start a payment", func(t *testing.T) {
		f := newPaymentFixture(t)
		reservations := NewReservationService(f.store, f.clock, 10*time.Minute)
		require.NoError(t, reservations.Cancel(ctx, f.userID, f.ticket.ID))

		_, err := f.payments.Start(ctx, f.userID, f.ticket.ID, model.MethodCreditCard)
		require.ErrorIs(t, err, repository.ErrTicketAlreadyResolved)
	})
}

func TestRecordGatewayResult(t *testing.T) {
	ctx := context.Background()

	start := func(t *testing.T, f *paymentFixture) *model.Payment {
		t.Helper()
		p, err := f.payments.Start(ctx, f.userID, f.ticket.ID, model.MethodCreditCard)
		require.NoError(t, err)
		return p
	}

	t.Run("paid confirms ticket and publishes", func(t *testing.T) {
		f := newPaymentFixture(t)
		p := start(t, f)

		require.NoError(t, f.payments.RecordGatewayResult(ctx, p.TransactionID, true))
		require.Equal(t, model.PaymentPaid, f.store.payments[p.ID].Status)
		require.Equal(t, model.TicketConfirmed, f.store.tickets[f.ticket.ID].Status)

		require.Len(t, f.notifier.events, 1)
		require.Equal(t, p.TransactionID, f.notifier.events[0].TransactionID)
		require.Equal(t, f.userID, f.notifier.events[0].UserID)
	})

	t.Run("failed marks payment failed and releases the ticket", func(t *testing.T) {
		f := newPaymentFixture(t)
		p := start(t, f)

		require.NoError(t, f.payments.RecordGatewayResult(ctx, p.TransactionID, false))
		require.Equal(t, model.PaymentFailed, f.store.payments[p.ID].Status)
		require.Equal(t, model.TicketCancelled, f.store.tickets[f.ticket.ID].Status)
		require.Empty(t, f.notifier.events)
	})

	t.Run("replaying the same outcome is a no-op", func(t *testing.T) {
		f := newPaymentFixture(t)
		p := start(t, f)

		require.NoError(t, f.payments.RecordGatewayResult(ctx, p.TransactionID, true))
		require.NoError(t, f.payments.RecordGatewayResult(ctx, p.TransactionID, true))

		require.Equal(t, model.PaymentPaid, f.store.payments[p.ID].Status)
		require.Equal(t, model.TicketConfirmed, f.store.tickets[f.ticket.ID].Status)
		// The replay does not publish a second event.
		require.Len(t, f.notifier.events, 1)
	})

	t.Run("conflicting outcome is rejected and changes nothing", func(t *testing.T) {
		f := newPaymentFixture(t)
		p := start(t, f)

		require.NoError(t, f.payments.RecordGatewayResult(ctx, p.TransactionID, true))
		err := f.payments.RecordGatewayResult(ctx, p.TransactionID, false)
		require.ErrorIs(t, err, repository.ErrPaymentConflict)

		require.Equal(t, model.PaymentPaid, f.store.payments[p.ID].Status)
		require.Equal(t, model.TicketConfirmed, f.store.tickets[f.ticket.ID].Status)
	})

	t.Run("unknown transaction", func(t *testing.T) {
		f := newPaymentFixture(t)
		err := f.payments.RecordGatewayResult(ctx, "no-such-txn", true)
		require.ErrorIs(t, err, repository.ErrPaymentNotFound)
	})

	t.Run("paid arriving after expiry cancel leaves payment pending", func(t *testing.T) {
		f := newPaymentFixture(t)
		p := start(t, f)

		// Hold expires and the sweeper cancels the ticket before the
		// gateway reports success.
		f.clock.Advance(11 * time.Minute)
		n, err := f.store.CancelOverdue(ctx, f.clock.Now())
		require.NoError(t, err)
		require.Equal(t, int64(1), n)

		err = f.payments.RecordGatewayResult(ctx, p.TransactionID, true)
		require.ErrorIs(t, err, repository.ErrTicketAlreadyResolved)

		require.Equal(t, model.PaymentPending, f.store.payments[p.ID].Status)
		require.Equal(t, model.TicketCancelled, f.store.tickets[f.ticket.ID].Status)
		require.Empty(t, f.notifier.events)
	})

	t.Run("paid ticket survives a later sweep", func(t *testing.T) {
		f := newPaymentFixture(t)
		p := start(t, f)

		require.NoError(t, f.payments.RecordGatewayResult(ctx, p.TransactionID, true))
		f.clock.Advance(time.Hour)

		n, err := f.store.CancelOverdue(ctx, f.clock.Now())
		require.NoError(t, err)
		require.Zero(t, n)
		require.Equal(t, model.TicketConfirmed, f.store.tickets[f.ticket.ID].Status)
	})
}
