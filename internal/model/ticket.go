package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Ticket lifecycle states.  RESERVED tickets count against capacity and
// auto-cancel when their hold deadline passes unpaid; CONFIRMED tickets
// count against capacity permanently; CANCELLED tickets free their slot.
const (
	TicketReserved  = "RESERVED"
	TicketConfirmed = "CONFIRMED"
	TicketCancelled = "CANCELLED"
)

// EventAttendee records that a user attends an event.  The (user, event)
// pair is unique: a user holds at most one attendance record, and hence
// at most one ticket, per event.
//
// Fields:
//  ID        – primary key identifier.
//  UserID    – attending user.
//  EventID   – attended event.
//  CreatedAt – creation timestamp.
type EventAttendee struct {
	ID        uint64    // event_attendees.id
	UserID    uint64    // event_attendees.user_id
	EventID   uint64    // event_attendees.event_id
	CreatedAt time.Time // event_attendees.created_at
}

// Ticket is owned 1:1 by an EventAttendee and admits them to a specific
// occurrence (EventVenue).  A ticket is created RESERVED inside the same
// transaction as its attendee; the hold deadline bounds how long it may
// stay RESERVED without a successful payment.
//
// Fields:
//  ID            – primary key identifier.
//  AttendeeID    – owning attendance record (unique).
//  EventVenueID  – occurrence this ticket admits to.
//  Price         – price captured at reservation time.
//  Status        – RESERVED, CONFIRMED or CANCELLED.
//  HoldExpiresAt – deadline after which an unpaid RESERVED ticket cancels.
//  CreatedAt     – creation timestamp.
//  UpdatedAt     – last update timestamp.
type Ticket struct {
	ID            uint64          // tickets.id
	AttendeeID    uint64          // tickets.attendee_id
	EventVenueID  uint64          // tickets.event_venue_id
	Price         decimal.Decimal // tickets.price
	Status        string          // tickets.status
	HoldExpiresAt time.Time       // tickets.hold_expires_at
	CreatedAt     time.Time       // tickets.created_at
	UpdatedAt     time.Time       // tickets.updated_at
}
