package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/eventix/ticketing/internal/model"
)

// EventRepo provides CRUD operations for events.  Events are created and
// maintained by organizers; the public browse endpoints read through the
// same repository.
type EventRepo struct {
	db *sql.DB
}

// NewEventRepo returns a new EventRepo bound to the given database.
func NewEventRepo(db *sql.DB) *EventRepo { return &EventRepo{db: db} }

// Create inserts a new event and populates the generated ID and
// timestamps on the provided model.  The caller validates the time
// window; the repository only persists it.
func (r *EventRepo) Create(ctx context.Context, e *model.Event) error {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO events (title, description, starts_at, ends_at) VALUES (?, ?, ?, ?)`,
		e.Title, e.Description, e.StartsAt.UTC(), e.EndsAt.UTC())
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	e.ID = uint64(id)
	return r.db.QueryRowContext(ctx,
		`SELECT created_at, updated_at FROM events WHERE id = ?`, e.ID).
		Scan(&e.CreatedAt, &e.UpdatedAt)
}

// GetByID returns a single event or ErrEventNotFound.
func (r *EventRepo) GetByID(ctx context.Context, id uint64) (*model.Event, error) {
	var e model.Event
	var desc sql.NullString
	err := dbtx(ctx, r.db).QueryRowContext(ctx,
		`SELECT id, title, description, starts_at, ends_at, created_at, updated_at FROM events WHERE id = ?`, id).
		Scan(&e.ID, &e.Title, &desc, &e.StartsAt, &e.EndsAt, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrEventNotFound
		}
		return nil, err
	}
	e.Description = desc.String
	return &e, nil
}

// Update overwrites the mutable fields of an event.  ErrEventNotFound is
// returned when no row matches.
func (r *EventRepo) Update(ctx context.Context, e *model.Event) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE events SET title = ?, description = ?, starts_at = ?, ends_at = ? WHERE id = ?`,
		e.Title, e.Description, e.StartsAt.UTC(), e.EndsAt.UTC(), e.ID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		// Rows-affected is also 0 on a no-change update; treat a
		// still-existing row as success.
		if _, err := r.GetByID(ctx, e.ID); err != nil {
			return err
		}
	}
	return nil
}

// Delete removes an event.  Deletion cascades to occurrences, attendees
// and tickets at the schema level, so it is refused while any ticket in
// RESERVED or CONFIRMED state exists.
func (r *EventRepo) Delete(ctx context.Context, id uint64) error {
	var active int64
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM tickets t
		 JOIN event_attendees a ON a.id = t.attendee_id
		 WHERE a.event_id = ? AND t.status IN ('RESERVED','CONFIRMED')`, id).Scan(&active)
	if err != nil {
		return err
	}
	if active > 0 {
		return ErrConflict
	}
	res, err := r.db.ExecContext(ctx, `DELETE FROM events WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrEventNotFound
	}
	return nil
}

// List returns events ordered by start time.  When upcomingOnly is set,
// events whose start time has passed are filtered out.  An optional
// case-insensitive title substring filter narrows the result.
func (r *EventRepo) List(ctx context.Context, titleFilter string, upcomingOnly bool) ([]model.Event, error) {
	q := `SELECT id, title, description, starts_at, ends_at, created_at, updated_at FROM events`
	var conds []string
	var args []any
	if upcomingOnly {
		conds = append(conds, `starts_at > UTC_TIMESTAMP()`)
	}
	if f := strings.TrimSpace(titleFilter); f != "" {
		conds = append(conds, `LOWER(title) LIKE ?`)
		args = append(args, "%"+strings.ToLower(f)+"%")
	}
	if len(conds) > 0 {
		q += ` WHERE ` + strings.Join(conds, ` AND `)
	}
	q += ` ORDER BY starts_at`
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	events := make([]model.Event, 0)
	for rows.Next() {
		var e model.Event
		var desc sql.NullString
		if err := rows.Scan(&e.ID, &e.Title, &desc, &e.StartsAt, &e.EndsAt, &e.CreatedAt, &e.UpdatedAt); err != nil {
			return nil, err
		}
		e.Description = desc.String
		events = append(events, e)
	}
	return events, rows.Err()
}
