// Package worker contains the background hold-expiry sweeper.
package worker

import (
	"context"
	"log"
	"time"

	"github.com/eventix/ticketing/internal/clock"
	"github.com/eventix/ticketing/internal/monitoring"
)

// ExpiryStore cancels overdue reserved tickets.  *repository.TicketRepo
// satisfies it.
type ExpiryStore interface {
	CancelOverdue(ctx context.Context, cutoff time.Time) (int64, error)
}

// Sweeper periodically cancels RESERVED tickets whose hold deadline has
// passed without payment, releasing their capacity.  The cancellation is
// a single conditional statement keyed on the RESERVED state, so a sweep
// running concurrently with a paid callback can never cancel a ticket the
// callback already confirmed.
type Sweeper struct {
	store    ExpiryStore
	clock    clock.Clock
	interval time.Duration
}

// NewSweeper builds a Sweeper running every interval.
func NewSweeper(store ExpiryStore, clk clock.Clock, interval time.Duration) *Sweeper {
	return &Sweeper{store: store, clock: clk, interval: interval}
}

// Run sweeps once immediately and then on every tick until ctx is
// cancelled.  Sweep errors are logged and do not stop the loop.
func (s *Sweeper) Run(ctx context.Context) {
	s.sweep(ctx)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

// Sweep cancels every overdue hold once and returns how many tickets it
// released.
func (s *Sweeper) Sweep(ctx context.Context) (int64, error) {
	n, err := s.store.CancelOverdue(ctx, s.clock.Now())
	if err != nil {
		return 0, err
	}
	monitoring.TicketsExpiredTotal.Add(float64(n))
	return n, nil
}

func (s *Sweeper) sweep(ctx context.Context) {
	n, err := s.Sweep(ctx)
	if err != nil {
		log.Printf("sweeper: cancel overdue holds: %v", err)
		return
	}
	if n > 0 {
		log.Printf("sweeper: released %d expired hold(s)", n)
	}
}
