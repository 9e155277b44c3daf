package service

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/eventix/ticketing/internal/clock"
	"github.com/eventix/ticketing/internal/model"
	"github.com/eventix/ticketing/internal/monitoring"
	"github.com/eventix/ticketing/internal/queue"
	"github.com/eventix/ticketing/internal/repository"
)

// PaymentStore is the payment storage surface of the state machine.
// *repository.PaymentRepo satisfies it.
type PaymentStore interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
	Create(ctx context.Context, p *model.Payment) error
	GetByTransactionForUpdate(ctx context.Context, transactionID string) (*model.Payment, error)
	ResolvePending(ctx context.Context, paymentID uint64, status string) (bool, error)
}

// PaymentTicketStore is the slice of the ticket store the state machine
// needs to move tickets alongside payments.  *repository.TicketRepo
// satisfies it.
type PaymentTicketStore interface {
	LockTicket(ctx context.Context, ticketID uint64) (*repository.TicketLock, error)
	ConfirmIfReserved(ctx context.Context, ticketID uint64) (bool, error)
	CancelIfReserved(ctx context.Context, ticketID uint64) (bool, error)
	GetByIDForUser(ctx context.Context, ticketID, userID uint64) (*repository.TicketDetail, error)
}

// Notifier publishes confirmation events to the broker.  *queue.Publisher
// satisfies it.
type Notifier interface {
	PublishTicketConfirmed(ctx context.Context, event queue.TicketConfirmedEvent) error
}

// PaymentService implements the payment state machine: starting a PENDING
// payment for a reserved ticket and resolving it exactly once from
// gateway callbacks.  Ticket and payment always move in the same
// transaction, so no commit can leave a PAID payment on a non-confirmed
// ticket or vice versa.
type PaymentService struct {
	payments PaymentStore
	tickets  PaymentTicketStore
	clock    clock.Clock
	notifier Notifier
}

// NewPaymentService builds a PaymentService.  notifier may be nil, in
// which case confirmation events are dropped.
func NewPaymentService(payments PaymentStore, tickets PaymentTicketStore, clk clock.Clock, notifier Notifier) *PaymentService {
	return &PaymentService{payments: payments, tickets: tickets, clock: clk, notifier: notifier}
}

// Start creates a PENDING payment for the user's RESERVED ticket and
// returns it with a freshly generated transaction ID for the gateway.
//
// Starting a payment on a ticket whose hold deadline has already passed
// cancels the ticket and returns ErrHoldExpired; the cancellation is
// committed so the slot frees up without waiting for the sweeper.
func (s *PaymentService) Start(ctx context.Context, userID, ticketID uint64, method string) (*model.Payment, error) {
	var (
		payment *model.Payment
		expired bool
	)
	err := s.payments.WithTx(ctx, func(ctx context.Context) error {
		t, err := s.tickets.LockTicket(ctx, ticketID)
		if err != nil {
			return err
		}
		if t.UserID != userID {
			return repository.ErrForbidden
		}
		if t.Status != model.TicketReserved {
			return repository.ErrTicketAlreadyResolved
		}
		if !s.clock.Now().Before(t.HoldExpiresAt) {
			// Commit the cancellation, then report the expiry.
			expired = true
			_, err := s.tickets.CancelIfReserved(ctx, ticketID)
			return err
		}
		payment = &model.Payment{
			TicketID:      ticketID,
			Amount:        t.Price,
			Method:        method,
			Status:        model.PaymentPending,
			TransactionID: uuid.NewString(),
		}
		return s.payments.Create(ctx, payment)
	})
	if err != nil {
		return nil, err
	}
	if expired {
		return nil, repository.ErrHoldExpired
	}
	return payment, nil
}

// RecordGatewayResult applies a gateway callback for transactionID.
//
// The payment row is read FOR UPDATE, so concurrent callbacks for the
// same transaction serialize.  A callback repeating the recorded terminal
// outcome is a no-op; one contradicting it returns ErrPaymentConflict.  A
// successful outcome confirms the ticket in the same transaction; if the
// ticket already left the RESERVED state (hold expiry won the race) the
// whole transaction rolls back and ErrTicketAlreadyResolved is returned,
// leaving the payment PENDING for out-of-band reconciliation.  A failed
// outcome marks the payment FAILED and releases the ticket.
func (s *PaymentService) RecordGatewayResult(ctx context.Context, transactionID string, succeeded bool) error {
	outcome := model.PaymentFailed
	if succeeded {
		outcome = model.PaymentPaid
	}

	var (
		replay   bool
		ticketID uint64
		ownerID  uint64
		method   string
	)
	err := s.payments.WithTx(ctx, func(ctx context.Context) error {
		p, err := s.payments.GetByTransactionForUpdate(ctx, transactionID)
		if err != nil {
			return err
		}
		if p.Status == outcome {
			replay = true
			return nil
		}
		if p.Status != model.PaymentPending {
			return repository.ErrPaymentConflict
		}

		t, err := s.tickets.LockTicket(ctx, p.TicketID)
		if err != nil {
			return err
		}
		if outcome == model.PaymentPaid {
			ok, err := s.tickets.ConfirmIfReserved(ctx, p.TicketID)
			if err != nil {
				return err
			}
			if !ok {
				return repository.ErrTicketAlreadyResolved
			}
		} else {
			if _, err := s.tickets.CancelIfReserved(ctx, p.TicketID); err != nil {
				return err
			}
		}

		ok, err := s.payments.ResolvePending(ctx, p.ID, outcome)
		if err != nil {
			return err
		}
		if !ok {
			return repository.ErrPaymentConflict
		}
		ticketID, ownerID, method = p.TicketID, t.UserID, p.Method
		return nil
	})
	monitoring.PaymentCallbacksTotal.WithLabelValues(callbackOutcome(err, replay, succeeded)).Inc()
	if err != nil {
		return err
	}
	if succeeded && !replay {
		s.publishConfirmed(ctx, ticketID, ownerID, method, transactionID)
	}
	return nil
}

func callbackOutcome(err error, replay, succeeded bool) string {
	switch {
	case err == nil && replay:
		return "replay"
	case err == nil && succeeded:
		return "paid"
	case err == nil:
		return "failed"
	case errors.Is(err, repository.ErrPaymentNotFound):
		return "not_found"
	case errors.Is(err, repository.ErrPaymentConflict):
		return "conflict"
	case errors.Is(err, repository.ErrTicketAlreadyResolved):
		return "late"
	default:
		return "error"
	}
}

// publishConfirmed emits the ticket.confirmed event.  Broker problems are
// logged and swallowed: the payment has committed and the response to the
// gateway must not depend on the broker.
func (s *PaymentService) publishConfirmed(ctx context.Context, ticketID, ownerID uint64, method, transactionID string) {
	if s.notifier == nil {
		return
	}
	d, err := s.tickets.GetByIDForUser(ctx, ticketID, ownerID)
	if err != nil {
		log.Printf("payment: load confirmed ticket %d for publish: %v", ticketID, err)
		return
	}
	_ = s.notifier.PublishTicketConfirmed(ctx, queue.TicketConfirmedEvent{
		TicketID:      ticketID,
		UserID:        ownerID,
		EventID:       d.EventID,
		EventTitle:    d.EventTitle,
		VenueName:     d.VenueName,
		EventDate:     d.EventDate.Format("2006-01-02"),
		Amount:        d.Price.StringFixed(2),
		Method:        method,
		TransactionID: transactionID,
		ConfirmedAt:   s.clock.Now().UTC().Format(time.RFC3339),
	})
}
