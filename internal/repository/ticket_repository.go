package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/eventix/ticketing/internal/model"
	"github.com/shopspring/decimal"
)

// TicketRepo is the store behind the reservation engine.  Allocation
// primitives (occurrence lock, active count, conditional transitions) are
// context-transaction aware: when called inside WithTx they join the
// enclosing transaction, which is how the engine keeps its capacity check
// and inserts atomic.
type TicketRepo struct {
	db *sql.DB
}

// NewTicketRepo returns a new TicketRepo bound to the given database.
func NewTicketRepo(db *sql.DB) *TicketRepo { return &TicketRepo{db: db} }

// WithTx runs fn inside a transaction against this repository's database.
func (r *TicketRepo) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return WithTx(ctx, r.db, fn)
}

// OccurrenceLock carries the row data the reservation engine needs while
// holding the occurrence lock: the capacity ceiling, the current price
// and the event's start time for the closed-event check.
type OccurrenceLock struct {
	ID            uint64
	EventID       uint64
	VenueID       uint64
	Capacity      uint32
	Price         decimal.Decimal
	EventStartsAt time.Time
}

// LockOccurrence reads one event_venues row FOR UPDATE, serializing all
// concurrent reservations for the same occurrence on this row lock.  It
// must be called inside a transaction; the lock is released at
// commit/rollback time.
func (r *TicketRepo) LockOccurrence(ctx context.Context, eventVenueID uint64) (*OccurrenceLock, error) {
	const q = `SELECT ev.id, ev.event_id, ev.venue_id, v.capacity, ev.price, e.starts_at
			   FROM event_venues ev
			   JOIN venues v ON v.id = ev.venue_id
			   JOIN events e ON e.id = ev.event_id
			   WHERE ev.id = ?
			   FOR UPDATE`
	var l OccurrenceLock
	var price string
	err := dbtx(ctx, r.db).QueryRowContext(ctx, q, eventVenueID).
		Scan(&l.ID, &l.EventID, &l.VenueID, &l.Capacity, &price, &l.EventStartsAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrOccurrenceNotFound
	}
	if err != nil {
		return nil, err
	}
	if l.Price, err = decimal.NewFromString(price); err != nil {
		return nil, err
	}
	l.EventStartsAt = l.EventStartsAt.UTC()
	return &l, nil
}

// CountActive returns the number of tickets holding capacity (RESERVED or
// CONFIRMED) for an occurrence.  Read under the occurrence lock it is the
// authoritative input to the availability computation.
func (r *TicketRepo) CountActive(ctx context.Context, eventVenueID uint64) (int64, error) {
	var n int64
	err := dbtx(ctx, r.db).QueryRowContext(ctx,
		`SELECT COUNT(*) FROM tickets WHERE event_venue_id = ? AND status IN ('RESERVED','CONFIRMED')`,
		eventVenueID).Scan(&n)
	return n, err
}

// AttendeeExists reports whether the user already has an attendance
// record for the event.
func (r *TicketRepo) AttendeeExists(ctx context.Context, userID, eventID uint64) (bool, error) {
	var one int
	err := dbtx(ctx, r.db).QueryRowContext(ctx,
		`SELECT 1 FROM event_attendees WHERE user_id = ? AND event_id = ? LIMIT 1`,
		userID, eventID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// CreateAttendee inserts the attendance record and returns its ID.  The
// unique (user, event) key is the last line of defense against double
// registration; a duplicate maps to ErrAlreadyRegistered.
func (r *TicketRepo) CreateAttendee(ctx context.Context, userID, eventID uint64) (uint64, error) {
	res, err := dbtx(ctx, r.db).ExecContext(ctx,
		`INSERT INTO event_attendees (user_id, event_id) VALUES (?, ?)`,
		userID, eventID)
	if err != nil {
		if isDuplicateKey(err) {
			return 0, ErrAlreadyRegistered
		}
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// CreateTicket inserts a ticket row and populates the generated ID.
func (r *TicketRepo) CreateTicket(ctx context.Context, t *model.Ticket) error {
	res, err := dbtx(ctx, r.db).ExecContext(ctx,
		`INSERT INTO tickets (attendee_id, event_venue_id, price, status, hold_expires_at) VALUES (?, ?, ?, ?, ?)`,
		t.AttendeeID, t.EventVenueID, t.Price.StringFixed(2), t.Status, t.HoldExpiresAt.UTC())
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	t.ID = uint64(id)
	return nil
}

// TicketLock is the view of a ticket read under lock for a state
// transition: the owner for authorization and the current status for the
// conditional update.
type TicketLock struct {
	ID            uint64
	UserID        uint64
	EventID       uint64
	Status        string
	Price         decimal.Decimal
	HoldExpiresAt time.Time
}

// LockTicket reads a ticket row FOR UPDATE together with its owner.
func (r *TicketRepo) LockTicket(ctx context.Context, ticketID uint64) (*TicketLock, error) {
	const q = `SELECT t.id, a.user_id, a.event_id, t.status, t.price, t.hold_expires_at
			   FROM tickets t
			   JOIN event_attendees a ON a.id = t.attendee_id
			   WHERE t.id = ?
			   FOR UPDATE`
	var l TicketLock
	var price string
	err := dbtx(ctx, r.db).QueryRowContext(ctx, q, ticketID).
		Scan(&l.ID, &l.UserID, &l.EventID, &l.Status, &price, &l.HoldExpiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrTicketNotFound
	}
	if err != nil {
		return nil, err
	}
	if l.Price, err = decimal.NewFromString(price); err != nil {
		return nil, err
	}
	l.HoldExpiresAt = l.HoldExpiresAt.UTC()
	return &l, nil
}

// ConfirmIfReserved performs the conditional transition RESERVED→CONFIRMED.
// It reports false when the ticket was no longer RESERVED, meaning a
// concurrent writer (expiry sweep or cancel) resolved it first.
func (r *TicketRepo) ConfirmIfReserved(ctx context.Context, ticketID uint64) (bool, error) {
	return r.transitionFromReserved(ctx, ticketID, model.TicketConfirmed)
}

// CancelIfReserved performs the conditional transition RESERVED→CANCELLED,
// releasing the ticket's capacity slot.  It reports false when the ticket
// had already left the RESERVED state.
func (r *TicketRepo) CancelIfReserved(ctx context.Context, ticketID uint64) (bool, error) {
	return r.transitionFromReserved(ctx, ticketID, model.TicketCancelled)
}

func (r *TicketRepo) transitionFromReserved(ctx context.Context, ticketID uint64, to string) (bool, error) {
	res, err := dbtx(ctx, r.db).ExecContext(ctx,
		`UPDATE tickets SET status = ? WHERE id = ? AND status = 'RESERVED'`,
		to, ticketID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// CancelOverdue cancels, in one conditional statement, every RESERVED
// ticket whose hold deadline is at or before cutoff and which has no PAID
// payment.  Because the statement is keyed on the prior state it is safe
// to run concurrently with the gateway callback handler: whichever writer
// commits first wins and the other observes zero affected rows for that
// ticket.  It returns the number of tickets cancelled.
func (r *TicketRepo) CancelOverdue(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE tickets t
		 LEFT JOIN payments p ON p.ticket_id = t.id AND p.status = 'PAID'
		 SET t.status = 'CANCELLED'
		 WHERE t.status = 'RESERVED' AND t.hold_expires_at <= ? AND p.id IS NULL`,
		cutoff.UTC())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// TicketDetail is the read projection returned to attendees: the ticket
// with its event, venue, date and payment summary.
type TicketDetail struct {
	ID            uint64          `json:"id"`
	Status        string          `json:"status"`
	Price         decimal.Decimal `json:"price"`
	HoldExpiresAt time.Time       `json:"hold_expires_at"`
	EventID       uint64          `json:"event_id"`
	EventTitle    string          `json:"event_title"`
	VenueID       uint64          `json:"venue_id"`
	VenueName     string          `json:"venue_name"`
	EventDate     time.Time       `json:"event_date"`
	PaymentStatus *string         `json:"payment_status,omitempty"`
	TransactionID *string         `json:"transaction_id,omitempty"`
}

const ticketDetailQuery = `SELECT t.id, t.status, t.price, t.hold_expires_at,
	   e.id, e.title, v.id, v.name, ev.event_date, a.user_id,
	   p.status, p.transaction_id
FROM tickets t
JOIN event_attendees a ON a.id = t.attendee_id
JOIN event_venues ev ON ev.id = t.event_venue_id
JOIN events e ON e.id = ev.event_id
JOIN venues v ON v.id = ev.venue_id
LEFT JOIN payments p ON p.ticket_id = t.id`

func scanTicketDetail(row interface{ Scan(...any) error }) (*TicketDetail, uint64, error) {
	var d TicketDetail
	var ownerID uint64
	var price string
	var payStatus, txnID sql.NullString
	err := row.Scan(&d.ID, &d.Status, &price, &d.HoldExpiresAt,
		&d.EventID, &d.EventTitle, &d.VenueID, &d.VenueName, &d.EventDate, &ownerID,
		&payStatus, &txnID)
	if err != nil {
		return nil, 0, err
	}
	if d.Price, err = decimal.NewFromString(price); err != nil {
		return nil, 0, err
	}
	if payStatus.Valid {
		s := payStatus.String
		d.PaymentStatus = &s
	}
	if txnID.Valid {
		s := txnID.String
		d.TransactionID = &s
	}
	return &d, ownerID, nil
}

// GetByIDForUser returns a single ticket detail, enforcing ownership.  It
// returns ErrTicketNotFound when no ticket matches and ErrForbidden when
// the ticket belongs to a different user.
func (r *TicketRepo) GetByIDForUser(ctx context.Context, ticketID, userID uint64) (*TicketDetail, error) {
	row := r.db.QueryRowContext(ctx, ticketDetailQuery+` WHERE t.id = ?`, ticketID)
	d, ownerID, err := scanTicketDetail(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrTicketNotFound
	}
	if err != nil {
		return nil, err
	}
	if ownerID != userID {
		return nil, ErrForbidden
	}
	return d, nil
}

// ListByUser returns all of a user's tickets, newest first.
func (r *TicketRepo) ListByUser(ctx context.Context, userID uint64) ([]TicketDetail, error) {
	rows, err := r.db.QueryContext(ctx,
		ticketDetailQuery+` WHERE a.user_id = ? ORDER BY t.created_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	details := make([]TicketDetail, 0)
	for rows.Next() {
		d, _, err := scanTicketDetail(rows)
		if err != nil {
			return nil, err
		}
		details = append(details, *d)
	}
	return details, rows.Err()
}
