// Package repository implements data access over MySQL.  This file defines
// the sentinel errors shared between repositories, the services that
// orchestrate them and the HTTP handlers that translate them into status
// codes.  Consistency conflicts (capacity, duplicate registration, payment
// outcome mismatch) are ordinary values here, never panics: the reservation
// and payment flows branch on them with errors.Is.
package repository

import "errors"

// ErrForbidden is returned when the caller attempts an operation on a
// resource they do not own.  Handlers translate this into HTTP 403.
var ErrForbidden = errors.New("forbidden")

// ErrBusy is returned when a transaction gives up waiting for a row lock
// (MySQL error 1205).  The operation did not happen and is safe to retry.
var ErrBusy = errors.New("busy")

// ErrEmailExists is returned on registration with a taken email address.
var ErrEmailExists = errors.New("email already exists")

// ErrMobileExists is returned on registration with a taken mobile number.
var ErrMobileExists = errors.New("mobile already exists")

// ErrConflict is returned when a delete or update cannot proceed because of
// dependent state, such as removing an occurrence that still has active
// tickets.  Handlers translate this into HTTP 409.
var ErrConflict = errors.New("conflict")

// Catalog lookups.
var (
	ErrEventNotFound      = errors.New("event not found")
	ErrVenueNotFound      = errors.New("venue not found")
	ErrOccurrenceNotFound = errors.New("occurrence not found")

	// ErrDuplicateOccurrence means the (event, venue, date) triple already
	// exists.
	ErrDuplicateOccurrence = errors.New("occurrence already exists")
)

// Reservation conflicts.
var (
	// ErrEventClosed means the event's start time has passed; no further
	// reservations are accepted.
	ErrEventClosed = errors.New("event closed")

	// ErrCapacityExceeded means the occurrence has no remaining capacity.
	ErrCapacityExceeded = errors.New("capacity exceeded")

	// ErrAlreadyRegistered means the user already holds an attendance
	// record (and hence a ticket) for the event.
	ErrAlreadyRegistered = errors.New("already registered for event")

	// ErrCapacityCorrupt reports a negative computed availability.  It can
	// only arise from a prior consistency bug and must be surfaced, never
	// clamped away.
	ErrCapacityCorrupt = errors.New("negative available capacity")
)

// Ticket and payment transitions.
var (
	ErrTicketNotFound = errors.New("ticket not found")

	// ErrTicketAlreadyResolved means the ticket left the RESERVED state
	// before the requested transition, e.g. a paid callback arriving after
	// the hold-expiry sweep already cancelled it.
	ErrTicketAlreadyResolved = errors.New("ticket already resolved")

	// ErrHoldExpired means a payment was started after the ticket's hold
	// deadline passed; the ticket is cancelled in the same step.
	ErrHoldExpired = errors.New("reservation hold expired")

	ErrPaymentNotFound = errors.New("payment not found")

	// ErrPaymentExists means the ticket already has a payment attached.
	ErrPaymentExists = errors.New("payment already exists for ticket")

	// ErrPaymentConflict means a gateway callback reported an outcome that
	// contradicts the recorded terminal state of the payment.
	ErrPaymentConflict = errors.New("conflicting payment outcome")
)
