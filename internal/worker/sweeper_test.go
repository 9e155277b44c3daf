package worker

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/eventix/ticketing/internal/clock"
)

// fakeExpiryStore records the cutoffs it was asked to sweep and returns a
// scripted count per call.
type fakeExpiryStore struct {
	mu      sync.Mutex
	cutoffs []time.Time
	counts  []int64
	calls   int
}

func (s *fakeExpiryStore) CancelOverdue(ctx context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cutoffs = append(s.cutoffs, cutoff)
	n := int64(0)
	if s.calls < len(s.counts) {
		n = s.counts[s.calls]
	}
	s.calls++
	return n, nil
}

func TestSweep(t *testing.T) {
	now := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	store := &fakeExpiryStore{counts: []int64{3}}
	s := NewSweeper(store, clock.NewFixed(now), time.Minute)

	n, err := s.Sweep(context.Background())
	require.NoError(t, err)
	require.Equal(t, int64(3), n)
	require.Equal(t, []time.Time{now}, store.cutoffs)
}

func TestRunStopsOnCancel(t *testing.T) {
	store := &fakeExpiryStore{}
	s := NewSweeper(store, clock.NewSystem(), time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()

	// Let at least the immediate sweep run, then stop.
	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop after context cancellation")
	}

	store.mu.Lock()
	defer store.mu.Unlock()
	require.GreaterOrEqual(t, store.calls, 1)
}
