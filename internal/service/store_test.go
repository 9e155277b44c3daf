package service

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/eventix/ticketing/internal/clock"
	"github.com/eventix/ticketing/internal/model"
	"github.com/eventix/ticketing/internal/repository"
)

// memStore is an in-memory stand-in for the MySQL repositories.  WithTx
// holds one big lock for the whole transaction, mirroring how concurrent
// reservations serialize on the occurrence row lock, and restores a
// snapshot when the transaction function fails, mirroring rollback.
type memStore struct {
	mu sync.Mutex

	occurrences map[uint64]*repository.OccurrenceLock
	attendees   map[uint64][2]uint64 // attendeeID -> (userID, eventID)
	tickets     map[uint64]*model.Ticket
	payments    map[uint64]*model.Payment
	byTxn       map[string]uint64 // transactionID -> paymentID
	nextID      uint64
}

func newMemStore() *memStore {
	return &memStore{
		occurrences: make(map[uint64]*repository.OccurrenceLock),
		attendees:   make(map[uint64][2]uint64),
		tickets:     make(map[uint64]*model.Ticket),
		payments:    make(map[uint64]*model.Payment),
		byTxn:       make(map[string]uint64),
	}
}

func (s *memStore) addOccurrence(capacity uint32, price string, startsAt time.Time) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	id := s.nextID
	p, _ := decimal.NewFromString(price)
	s.occurrences[id] = &repository.OccurrenceLock{
		ID: id, EventID: id + 1000, VenueID: id + 2000,
		Capacity: capacity, Price: p, EventStartsAt: startsAt.UTC(),
	}
	return id
}

func (s *memStore) snapshot() *memStore {
	c := newMemStore()
	c.nextID = s.nextID
	for k, v := range s.occurrences {
		occ := *v
		c.occurrences[k] = &occ
	}
	for k, v := range s.attendees {
		c.attendees[k] = v
	}
	for k, v := range s.tickets {
		t := *v
		c.tickets[k] = &t
	}
	for k, v := range s.payments {
		p := *v
		c.payments[k] = &p
	}
	for k, v := range s.byTxn {
		c.byTxn[k] = v
	}
	return c
}

func (s *memStore) restore(c *memStore) {
	s.occurrences = c.occurrences
	s.attendees = c.attendees
	s.tickets = c.tickets
	s.payments = c.payments
	s.byTxn = c.byTxn
	s.nextID = c.nextID
}

func (s *memStore) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := s.snapshot()
	if err := fn(ctx); err != nil {
		s.restore(snap)
		return err
	}
	return nil
}

func (s *memStore) LockOccurrence(ctx context.Context, eventVenueID uint64) (*repository.OccurrenceLock, error) {
	occ, ok := s.occurrences[eventVenueID]
	if !ok {
		return nil, repository.ErrOccurrenceNotFound
	}
	o := *occ
	return &o, nil
}

func (s *memStore) CountActive(ctx context.Context, eventVenueID uint64) (int64, error) {
	var n int64
	for _, t := range s.tickets {
		if t.EventVenueID == eventVenueID && t.Status != model.TicketCancelled {
			n++
		}
	}
	return n, nil
}

func (s *memStore) AttendeeExists(ctx context.Context, userID, eventID uint64) (bool, error) {
	for _, a := range s.attendees {
		if a[0] == userID && a[1] == eventID {
			return true, nil
		}
	}
	return false, nil
}

func (s *memStore) CreateAttendee(ctx context.Context, userID, eventID uint64) (uint64, error) {
	for _, a := range s.attendees {
		if a[0] == userID && a[1] == eventID {
			return 0, repository.ErrAlreadyRegistered
		}
	}
	s.nextID++
	s.attendees[s.nextID] = [2]uint64{userID, eventID}
	return s.nextID, nil
}

func (s *memStore) CreateTicket(ctx context.Context, t *model.Ticket) error {
	s.nextID++
	t.ID = s.nextID
	c := *t
	s.tickets[t.ID] = &c
	return nil
}

func (s *memStore) LockTicket(ctx context.Context, ticketID uint64) (*repository.TicketLock, error) {
	t, ok := s.tickets[ticketID]
	if !ok {
		return nil, repository.ErrTicketNotFound
	}
	a := s.attendees[t.AttendeeID]
	return &repository.TicketLock{
		ID: t.ID, UserID: a[0], EventID: a[1],
		Status: t.Status, Price: t.Price, HoldExpiresAt: t.HoldExpiresAt,
	}, nil
}

func (s *memStore) transition(ticketID uint64, to string) (bool, error) {
	t, ok := s.tickets[ticketID]
	if !ok || t.Status != model.TicketReserved {
		return false, nil
	}
	t.Status = to
	return true, nil
}

func (s *memStore) ConfirmIfReserved(ctx context.Context, ticketID uint64) (bool, error) {
	return s.transition(ticketID, model.TicketConfirmed)
}

func (s *memStore) CancelIfReserved(ctx context.Context, ticketID uint64) (bool, error) {
	return s.transition(ticketID, model.TicketCancelled)
}

func (s *memStore) CancelOverdue(ctx context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for _, t := range s.tickets {
		if t.Status != model.TicketReserved || t.HoldExpiresAt.After(cutoff) {
			continue
		}
		if p := s.paymentForTicket(t.ID); p != nil && p.Status == model.PaymentPaid {
			continue
		}
		t.Status = model.TicketCancelled
		n++
	}
	return n, nil
}

func (s *memStore) paymentForTicket(ticketID uint64) *model.Payment {
	for _, p := range s.payments {
		if p.TicketID == ticketID {
			return p
		}
	}
	return nil
}

func (s *memStore) GetByIDForUser(ctx context.Context, ticketID, userID uint64) (*repository.TicketDetail, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tickets[ticketID]
	if !ok {
		return nil, repository.ErrTicketNotFound
	}
	a := s.attendees[t.AttendeeID]
	if a[0] != userID {
		return nil, repository.ErrForbidden
	}
	occ := s.occurrences[t.EventVenueID]
	return &repository.TicketDetail{
		ID: t.ID, Status: t.Status, Price: t.Price, HoldExpiresAt: t.HoldExpiresAt,
		EventID: occ.EventID, EventTitle: "event", VenueID: occ.VenueID, VenueName: "venue",
	}, nil
}

// Payment store methods.

func (s *memStore) Create(ctx context.Context, p *model.Payment) error {
	if s.paymentForTicket(p.TicketID) != nil {
		return repository.ErrPaymentExists
	}
	s.nextID++
	p.ID = s.nextID
	c := *p
	s.payments[p.ID] = &c
	s.byTxn[p.TransactionID] = p.ID
	return nil
}

func (s *memStore) GetByTransactionForUpdate(ctx context.Context, transactionID string) (*model.Payment, error) {
	id, ok := s.byTxn[transactionID]
	if !ok {
		return nil, repository.ErrPaymentNotFound
	}
	p := *s.payments[id]
	return &p, nil
}

func (s *memStore) ResolvePending(ctx context.Context, paymentID uint64, status string) (bool, error) {
	p, ok := s.payments[paymentID]
	if !ok || p.Status != model.PaymentPending {
		return false, nil
	}
	p.Status = status
	return true, nil
}

// stepClock is a settable clock for exercising hold expiry.
type stepClock struct {
	mu  sync.Mutex
	now time.Time
}

func newStepClock(t time.Time) *stepClock { return &stepClock{now: t.UTC()} }

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *stepClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

var _ clock.Clock = (*stepClock)(nil)
