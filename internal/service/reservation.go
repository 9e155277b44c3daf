// Package service contains the transactional cores of the platform: the
// reservation engine and the payment state machine.  Services own
// transaction boundaries and speak to storage through narrow interfaces so
// the concurrency-sensitive logic can be exercised against in-memory
// stores in tests.
package service

import (
	"context"
	"errors"
	"time"

	"github.com/eventix/ticketing/internal/clock"
	"github.com/eventix/ticketing/internal/model"
	"github.com/eventix/ticketing/internal/monitoring"
	"github.com/eventix/ticketing/internal/repository"
)

// ReservationStore is the storage surface the reservation engine needs.
// *repository.TicketRepo satisfies it.
type ReservationStore interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
	LockOccurrence(ctx context.Context, eventVenueID uint64) (*repository.OccurrenceLock, error)
	CountActive(ctx context.Context, eventVenueID uint64) (int64, error)
	AttendeeExists(ctx context.Context, userID, eventID uint64) (bool, error)
	CreateAttendee(ctx context.Context, userID, eventID uint64) (uint64, error)
	CreateTicket(ctx context.Context, t *model.Ticket) error
	LockTicket(ctx context.Context, ticketID uint64) (*repository.TicketLock, error)
	CancelIfReserved(ctx context.Context, ticketID uint64) (bool, error)
}

// ReservationService implements ticket reservation and cancellation.  All
// decisions are made inside a single transaction under the occurrence row
// lock, which is what makes the no-oversell guarantee hold under
// concurrent purchases.
type ReservationService struct {
	store   ReservationStore
	clock   clock.Clock
	holdTTL time.Duration
}

// NewReservationService builds a ReservationService.  holdTTL is how long
// a ticket may stay RESERVED without a successful payment.
func NewReservationService(store ReservationStore, clk clock.Clock, holdTTL time.Duration) *ReservationService {
	return &ReservationService{store: store, clock: clk, holdTTL: holdTTL}
}

// Reserve allocates one ticket for the user on the given occurrence.
//
// Inside one transaction it locks the occurrence row, recomputes
// availability from the live ticket count, rejects closed events, full
// occurrences and repeat registrations, and only then inserts the
// attendance record and the RESERVED ticket.  Concurrent calls for the
// same occurrence serialize on the row lock, so the capacity check each
// of them sees is exact.
func (s *ReservationService) Reserve(ctx context.Context, userID, eventVenueID uint64) (*model.Ticket, error) {
	var ticket *model.Ticket
	err := s.store.WithTx(ctx, func(ctx context.Context) error {
		occ, err := s.store.LockOccurrence(ctx, eventVenueID)
		if err != nil {
			return err
		}
		now := s.clock.Now()
		if !now.Before(occ.EventStartsAt) {
			return repository.ErrEventClosed
		}

		taken, err := s.store.CountActive(ctx, occ.ID)
		if err != nil {
			return err
		}
		available := int64(occ.Capacity) - taken
		if available < 0 {
			return repository.ErrCapacityCorrupt
		}
		if available == 0 {
			return repository.ErrCapacityExceeded
		}

		exists, err := s.store.AttendeeExists(ctx, userID, occ.EventID)
		if err != nil {
			return err
		}
		if exists {
			return repository.ErrAlreadyRegistered
		}
		attendeeID, err := s.store.CreateAttendee(ctx, userID, occ.EventID)
		if err != nil {
			return err
		}

		ticket = &model.Ticket{
			AttendeeID:    attendeeID,
			EventVenueID:  occ.ID,
			Price:         occ.Price,
			Status:        model.TicketReserved,
			HoldExpiresAt: now.Add(s.holdTTL).UTC(),
		}
		return s.store.CreateTicket(ctx, ticket)
	})
	monitoring.ReservationsTotal.WithLabelValues(reserveOutcome(err)).Inc()
	if err != nil {
		return nil, err
	}
	return ticket, nil
}

func reserveOutcome(err error) string {
	switch {
	case err == nil:
		return "reserved"
	case errors.Is(err, repository.ErrCapacityExceeded):
		return "sold_out"
	case errors.Is(err, repository.ErrAlreadyRegistered):
		return "already_registered"
	case errors.Is(err, repository.ErrEventClosed):
		return "closed"
	default:
		return "error"
	}
}

// Cancel releases a RESERVED ticket owned by the user.  A ticket that has
// already been confirmed or cancelled is not touched; the caller gets
// ErrTicketAlreadyResolved.
func (s *ReservationService) Cancel(ctx context.Context, userID, ticketID uint64) error {
	return s.store.WithTx(ctx, func(ctx context.Context) error {
		t, err := s.store.LockTicket(ctx, ticketID)
		if err != nil {
			return err
		}
		if t.UserID != userID {
			return repository.ErrForbidden
		}
		ok, err := s.store.CancelIfReserved(ctx, ticketID)
		if err != nil {
			return err
		}
		if !ok {
			return repository.ErrTicketAlreadyResolved
		}
		return nil
	})
}
