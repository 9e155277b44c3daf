package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/eventix/ticketing/internal/model"
	"github.com/shopspring/decimal"
)

// OccurrenceRepo manages event_venues rows: one occurrence of an event at
// a venue on a date.  The reservation engine locks these rows through
// TicketRepo; this repository covers catalog CRUD and the read-only
// availability projection.
type OccurrenceRepo struct {
	db *sql.DB
}

// NewOccurrenceRepo returns a new OccurrenceRepo bound to the database.
func NewOccurrenceRepo(db *sql.DB) *OccurrenceRepo { return &OccurrenceRepo{db: db} }

// Create inserts an occurrence after verifying the referenced event and
// venue exist.  The unique (event, venue, date) key maps to
// ErrDuplicateOccurrence.
func (r *OccurrenceRepo) Create(ctx context.Context, o *model.EventVenue) error {
	var exists int
	if err := r.db.QueryRowContext(ctx, `SELECT 1 FROM events WHERE id = ?`, o.EventID).Scan(&exists); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrEventNotFound
		}
		return err
	}
	if err := r.db.QueryRowContext(ctx, `SELECT 1 FROM venues WHERE id = ?`, o.VenueID).Scan(&exists); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrVenueNotFound
		}
		return err
	}
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO event_venues (event_id, venue_id, event_date, price) VALUES (?, ?, ?, ?)`,
		o.EventID, o.VenueID, o.EventDate.UTC().Format("2006-01-02"), o.Price.StringFixed(2))
	if err != nil {
		if isDuplicateKey(err) {
			return ErrDuplicateOccurrence
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	o.ID = uint64(id)
	return nil
}

// GetByID returns an occurrence or ErrOccurrenceNotFound.
func (r *OccurrenceRepo) GetByID(ctx context.Context, id uint64) (*model.EventVenue, error) {
	var o model.EventVenue
	var price string
	err := dbtx(ctx, r.db).QueryRowContext(ctx,
		`SELECT id, event_id, venue_id, event_date, price, created_at, updated_at FROM event_venues WHERE id = ?`, id).
		Scan(&o.ID, &o.EventID, &o.VenueID, &o.EventDate, &price, &o.CreatedAt, &o.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrOccurrenceNotFound
	}
	if err != nil {
		return nil, err
	}
	o.Price, err = decimal.NewFromString(price)
	if err != nil {
		return nil, err
	}
	return &o, nil
}

// ListByEvent returns all occurrences of an event ordered by date.
func (r *OccurrenceRepo) ListByEvent(ctx context.Context, eventID uint64) ([]model.EventVenue, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, event_id, venue_id, event_date, price, created_at, updated_at
		 FROM event_venues WHERE event_id = ? ORDER BY event_date`, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := make([]model.EventVenue, 0)
	for rows.Next() {
		var o model.EventVenue
		var price string
		if err := rows.Scan(&o.ID, &o.EventID, &o.VenueID, &o.EventDate, &price, &o.CreatedAt, &o.UpdatedAt); err != nil {
			return nil, err
		}
		if o.Price, err = decimal.NewFromString(price); err != nil {
			return nil, err
		}
		items = append(items, o)
	}
	return items, rows.Err()
}

// Delete removes an occurrence unless tickets in RESERVED or CONFIRMED
// state still reference it.
func (r *OccurrenceRepo) Delete(ctx context.Context, id uint64) error {
	var active int64
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM tickets WHERE event_venue_id = ? AND status IN ('RESERVED','CONFIRMED')`, id).
		Scan(&active)
	if err != nil {
		return err
	}
	if active > 0 {
		return ErrConflict
	}
	res, err := r.db.ExecContext(ctx, `DELETE FROM event_venues WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrOccurrenceNotFound
	}
	return nil
}

// Availability is the public capacity projection for one occurrence.
type Availability struct {
	EventVenueID uint64          `json:"event_venue_id"`
	EventID      uint64          `json:"event_id"`
	VenueID      uint64          `json:"venue_id"`
	EventDate    time.Time       `json:"event_date"`
	Price        decimal.Decimal `json:"price"`
	Capacity     uint32          `json:"capacity"`
	Taken        uint32          `json:"taken"`
	Available    uint32          `json:"available"`
}

// GetAvailability computes remaining capacity for an occurrence outside
// any allocation transaction.  It is a snapshot for display; the
// reservation engine recomputes the same figure under lock before
// allocating.
func (r *OccurrenceRepo) GetAvailability(ctx context.Context, id uint64) (*Availability, error) {
	var a Availability
	var price string
	err := r.db.QueryRowContext(ctx,
		`SELECT ev.id, ev.event_id, ev.venue_id, ev.event_date, ev.price, v.capacity,
		        (SELECT COUNT(*) FROM tickets t WHERE t.event_venue_id = ev.id AND t.status IN ('RESERVED','CONFIRMED'))
		 FROM event_venues ev
		 JOIN venues v ON v.id = ev.venue_id
		 WHERE ev.id = ?`, id).
		Scan(&a.EventVenueID, &a.EventID, &a.VenueID, &a.EventDate, &price, &a.Capacity, &a.Taken)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrOccurrenceNotFound
	}
	if err != nil {
		return nil, err
	}
	if a.Price, err = decimal.NewFromString(price); err != nil {
		return nil, err
	}
	if a.Taken > a.Capacity {
		return nil, ErrCapacityCorrupt
	}
	a.Available = a.Capacity - a.Taken
	return &a, nil
}
