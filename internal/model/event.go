package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Event represents something that can be attended: a concert, a talk, a
// festival.  An event has a single time window and may run at several
// venues on several dates via EventVenue occurrences.
//
// Fields:
//  ID          – primary key identifier.
//  Title       – display title of the event.
//  Description – optional free-form text.
//  StartsAt    – when the event begins.
//  EndsAt      – when the event ends (must be after StartsAt).
//  CreatedAt   – creation timestamp.
//  UpdatedAt   – last update timestamp.
type Event struct {
	ID          uint64    // events.id
	Title       string    // events.title
	Description string    // events.description
	StartsAt    time.Time // events.starts_at
	EndsAt      time.Time // events.ends_at
	CreatedAt   time.Time // events.created_at
	UpdatedAt   time.Time // events.updated_at
}

// Venue is a physical location with a fixed capacity.  The capacity is
// the ceiling for every occurrence hosted at the venue.
type Venue struct {
	ID        uint64    // venues.id
	Name      string    // venues.name
	Address   string    // venues.address
	Capacity  uint32    // venues.capacity (positive)
	CreatedAt time.Time // venues.created_at
	UpdatedAt time.Time // venues.updated_at
}

// EventVenue is one occurrence of an event at a venue on a date.  The
// (event, venue, date) triple is unique.  Price is what a ticket for
// this occurrence costs at reservation time.
type EventVenue struct {
	ID        uint64          // event_venues.id
	EventID   uint64          // event_venues.event_id
	VenueID   uint64          // event_venues.venue_id
	EventDate time.Time       // event_venues.event_date (date only)
	Price     decimal.Decimal // event_venues.price
	CreatedAt time.Time       // event_venues.created_at
	UpdatedAt time.Time       // event_venues.updated_at
}
