// Package queue defines message payloads exchanged over the message broker,
// the publisher for them and the background consumer.
package queue

// TicketConfirmedEvent is published when a payment callback confirms a
// ticket. It contains enough information for downstream consumers to log,
// notify, or trigger analytics without querying the primary database.
type TicketConfirmedEvent struct {
	TicketID      uint64 `json:"ticket_id"`
	UserID        uint64 `json:"user_id"`
	EventID       uint64 `json:"event_id"`
	EventTitle    string `json:"event_title"`
	VenueName     string `json:"venue_name"`
	EventDate     string `json:"event_date"`
	Amount        string `json:"amount"`
	Method        string `json:"method"`
	TransactionID string `json:"transaction_id"`
	ConfirmedAt   string `json:"confirmed_at"`
}
