package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/eventix/ticketing/internal/clock"
	"github.com/eventix/ticketing/internal/model"
	"github.com/eventix/ticketing/internal/repository"
)

var testNow = time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)

func newReservationService(store *memStore) *ReservationService {
	return NewReservationService(store, clock.NewFixed(testNow), 10*time.Minute)
}

func TestReserve(t *testing.T) {
	ctx := context.Background()

	t.Run("creates a reserved ticket with the occurrence price", func(t *testing.T) {
		store := newMemStore()
		occID := store.addOccurrence(100, "49.90", testNow.Add(24*time.Hour))
		svc := newReservationService(store)

		ticket, err := svc.Reserve(ctx, 7, occID)
		require.NoError(t, err)
		require.Equal(t, model.TicketReserved, ticket.Status)
		require.Equal(t, "49.90", ticket.Price.StringFixed(2))
		require.Equal(t, testNow.Add(10*time.Minute), ticket.HoldExpiresAt)
	})

	t.Run("unknown occurrence", func(t *testing.T) {
		store := newMemStore()
		svc := newReservationService(store)

		_, err := svc.Reserve(ctx, 7, 999)
		require.ErrorIs(t, err, repository.ErrOccurrenceNotFound)
	})

	t.Run("rejects second ticket for the same event", func(t *testing.T) {
		store := newMemStore()
		occID := store.addOccurrence(100, "10.00", testNow.Add(24*time.Hour))
		svc := newReservationService(store)

		_, err := svc.Reserve(ctx, 7, occID)
		require.NoError(t, err)
		_, err = svc.Reserve(ctx, 7, occID)
		require.ErrorIs(t, err, repository.ErrAlreadyRegistered)
	})

	t.Run("rejects reservations once the event started", func(t *testing.T) {
		store := newMemStore()
		occID := store.addOccurrence(100, "10.00", testNow.Add(-time.Minute))
		svc := newReservationService(store)

		_, err := svc.Reserve(ctx, 7, occID)
		require.ErrorIs(t, err, repository.ErrEventClosed)
	})

	t.Run("rejects at exact start time", func(t *testing.T) {
		store := newMemStore()
		occID := store.addOccurrence(100, "10.00", testNow)
		svc := newReservationService(store)

		_, err := svc.Reserve(ctx, 7, occID)
		require.ErrorIs(t, err, repository.ErrEventClosed)
	})

	t.Run("capacity one admits exactly one of two users", func(t *testing.T) {
		store := newMemStore()
		occID := store.addOccurrence(1, "10.00", testNow.Add(24*time.Hour))
		svc := newReservationService(store)

		_, err := svc.Reserve(ctx, 1, occID)
		require.NoError(t, err)
		_, err = svc.Reserve(ctx, 2, occID)
		require.ErrorIs(t, err, repository.ErrCapacityExceeded)
	})

	t.Run("cancelled tickets free their slot", func(t *testing.T) {
		store := newMemStore()
		occID := store.addOccurrence(1, "10.00", testNow.Add(24*time.Hour))
		svc := newReservationService(store)

		ticket, err := svc.Reserve(ctx, 1, occID)
		require.NoError(t, err)
		require.NoError(t, svc.Cancel(ctx, 1, ticket.ID))

		_, err = svc.Reserve(ctx, 2, occID)
		require.NoError(t, err)
	})

	t.Run("surfaces corrupt capacity instead of clamping", func(t *testing.T) {
		store := newMemStore()
		occID := store.addOccurrence(5, "10.00", testNow.Add(24*time.Hour))
		svc := newReservationService(store)
		for u := uint64(1); u <= 5; u++ {
			_, err := svc.Reserve(ctx, u, occID)
			require.NoError(t, err)
		}
		// Shrink the capacity under the sold count.
		store.occurrences[occID].Capacity = 3

		_, err := svc.Reserve(ctx, 99, occID)
		require.ErrorIs(t, err, repository.ErrCapacityCorrupt)
	})
}

func TestReserveConcurrent(t *testing.T) {
	const capacity = 5
	const users = 40

	store := newMemStore()
	occID := store.addOccurrence(capacity, "10.00", testNow.Add(24*time.Hour))
	svc := newReservationService(store)

	var wg sync.WaitGroup
	errs := make([]error, users)
	for i := 0; i < users; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.Reserve(context.Background(), uint64(i+1), occID)
		}(i)
	}
	wg.Wait()

	var won, soldOut int
	for _, err := range errs {
		switch {
		case err == nil:
			won++
		case errors.Is(err, repository.ErrCapacityExceeded):
			soldOut++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	require.Equal(t, capacity, won)
	require.Equal(t, users-capacity, soldOut)

	n, err := store.CountActive(context.Background(), occID)
	require.NoError(t, err)
	require.Equal(t, int64(capacity), n)
}

func TestCancel(t *testing.T) {
	ctx := context.Background()

	t.Run("only the owner may cancel", func(t *testing.T) {
		store := newMemStore()
		occID := store.addOccurrence(10, "10.00", testNow.Add(24*time.Hour))
		svc := newReservationService(store)

		ticket, err := svc.Reserve(ctx, 1, occID)
		require.NoError(t, err)

		require.ErrorIs(t, svc.Cancel(ctx, 2, ticket.ID), repository.ErrForbidden)
		require.NoError(t, svc.Cancel(ctx, 1, ticket.ID))
	})

	t.Run("cancelling twice reports resolved", func(t *testing.T) {
		store := newMemStore()
		occID := store.addOccurrence(10, "10.00", testNow.Add(24*time.Hour))
		svc := newReservationService(store)

		ticket, err := svc.Reserve(ctx, 1, occID)
		require.NoError(t, err)
		require.NoError(t, svc.Cancel(ctx, 1, ticket.ID))
		require.ErrorIs(t, svc.Cancel(ctx, 1, ticket.ID), repository.ErrTicketAlreadyResolved)
	})

	t.Run("unknown ticket", func(t *testing.T) {
		store := newMemStore()
		svc := newReservationService(store)
		require.ErrorIs(t, svc.Cancel(ctx, 1, 42), repository.ErrTicketNotFound)
	})
}
