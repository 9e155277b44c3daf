package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/eventix/ticketing/internal/model"
)

// VenueRepo provides CRUD operations for venues.  A venue's capacity is
// the ceiling for every occurrence hosted there, so capacity updates are
// restricted: shrinking below the active ticket count of any occurrence
// is refused.
type VenueRepo struct {
	db *sql.DB
}

// NewVenueRepo returns a new VenueRepo bound to the given database.
func NewVenueRepo(db *sql.DB) *VenueRepo { return &VenueRepo{db: db} }

// Create inserts a venue and populates the generated ID.
func (r *VenueRepo) Create(ctx context.Context, v *model.Venue) error {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO venues (name, address, capacity) VALUES (?, ?, ?)`,
		v.Name, v.Address, v.Capacity)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	v.ID = uint64(id)
	return r.db.QueryRowContext(ctx,
		`SELECT created_at, updated_at FROM venues WHERE id = ?`, v.ID).
		Scan(&v.CreatedAt, &v.UpdatedAt)
}

// GetByID returns a venue or ErrVenueNotFound.
func (r *VenueRepo) GetByID(ctx context.Context, id uint64) (*model.Venue, error) {
	var v model.Venue
	err := dbtx(ctx, r.db).QueryRowContext(ctx,
		`SELECT id, name, address, capacity, created_at, updated_at FROM venues WHERE id = ?`, id).
		Scan(&v.ID, &v.Name, &v.Address, &v.Capacity, &v.CreatedAt, &v.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrVenueNotFound
	}
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// List returns all venues ordered by name.
func (r *VenueRepo) List(ctx context.Context) ([]model.Venue, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, address, capacity, created_at, updated_at FROM venues ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	venues := make([]model.Venue, 0)
	for rows.Next() {
		var v model.Venue
		if err := rows.Scan(&v.ID, &v.Name, &v.Address, &v.Capacity, &v.CreatedAt, &v.UpdatedAt); err != nil {
			return nil, err
		}
		venues = append(venues, v)
	}
	return venues, rows.Err()
}

// Update overwrites name, address and capacity.  Shrinking capacity below
// the highest active ticket count among the venue's occurrences would
// retroactively oversell them, so the update runs in a transaction that
// checks the ceiling first and returns ErrConflict when violated.
func (r *VenueRepo) Update(ctx context.Context, v *model.Venue) error {
	return WithTx(ctx, r.db, func(ctx context.Context) error {
		tx := dbtx(ctx, r.db)
		var maxActive sql.NullInt64
		err := tx.QueryRowContext(ctx,
			`SELECT MAX(cnt) FROM (
			   SELECT COUNT(t.id) AS cnt FROM event_venues ev
			   LEFT JOIN tickets t ON t.event_venue_id = ev.id AND t.status IN ('RESERVED','CONFIRMED')
			   WHERE ev.venue_id = ?
			   GROUP BY ev.id
			 ) x`, v.ID).Scan(&maxActive)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return err
		}
		if maxActive.Valid && maxActive.Int64 > int64(v.Capacity) {
			return ErrConflict
		}
		res, err := tx.ExecContext(ctx,
			`UPDATE venues SET name = ?, address = ?, capacity = ? WHERE id = ?`,
			v.Name, v.Address, v.Capacity, v.ID)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			if _, err := r.GetByID(ctx, v.ID); err != nil {
				return err
			}
		}
		return nil
	})
}

// Delete removes a venue unless one of its occurrences still has active
// tickets.
func (r *VenueRepo) Delete(ctx context.Context, id uint64) error {
	var active int64
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM tickets t
		 JOIN event_venues ev ON ev.id = t.event_venue_id
		 WHERE ev.venue_id = ? AND t.status IN ('RESERVED','CONFIRMED')`, id).Scan(&active)
	if err != nil {
		return err
	}
	if active > 0 {
		return ErrConflict
	}
	res, err := r.db.ExecContext(ctx, `DELETE FROM venues WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrVenueNotFound
	}
	return nil
}
