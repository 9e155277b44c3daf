package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Payment states.  PENDING payments resolve to exactly one of the two
// terminal states via the gateway callback.
const (
	PaymentPending = "PENDING"
	PaymentPaid    = "PAID"
	PaymentFailed  = "FAILED"
)

// Payment methods, matching the gateway's two-letter codes.
const (
	MethodCreditCard   = "CC"
	MethodPayPal       = "PP"
	MethodBankTransfer = "BT"
	MethodOther        = "OT"
)

// Payment is owned 1:1 by a Ticket.  TransactionID is globally unique and
// doubles as the idempotency key for gateway callbacks: replaying the
// same (transaction, outcome) pair is a no-op, a conflicting outcome is
// rejected.
type Payment struct {
	ID            uint64          // payments.id
	TicketID      uint64          // payments.ticket_id
	Amount        decimal.Decimal // payments.amount
	Method        string          // payments.method
	Status        string          // payments.status
	TransactionID string          // payments.transaction_id (unique)
	CreatedAt     time.Time       // payments.created_at
	UpdatedAt     time.Time       // payments.updated_at
}

// ValidMethod reports whether m is one of the accepted payment methods.
func ValidMethod(m string) bool {
	switch m {
	case MethodCreditCard, MethodPayPal, MethodBankTransfer, MethodOther:
		return true
	}
	return false
}
