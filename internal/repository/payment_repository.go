package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/eventix/ticketing/internal/model"
	"github.com/shopspring/decimal"
)

// PaymentRepo stores payment attempts.  Like TicketRepo its write paths
// join the context transaction so the payment state machine can move the
// payment and its ticket in one atomic step.
type PaymentRepo struct {
	db *sql.DB
}

// NewPaymentRepo returns a new PaymentRepo bound to the given database.
func NewPaymentRepo(db *sql.DB) *PaymentRepo { return &PaymentRepo{db: db} }

// WithTx runs fn inside a transaction against this repository's database.
func (r *PaymentRepo) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return WithTx(ctx, r.db, fn)
}

// Create inserts a PENDING payment for a ticket.  The unique ticket_id
// key enforces one payment attempt per ticket; a duplicate on it maps to
// ErrPaymentExists.  A duplicate on the transaction_id key would mean a
// generated UUID collided, which is surfaced as a plain error.
func (r *PaymentRepo) Create(ctx context.Context, p *model.Payment) error {
	res, err := dbtx(ctx, r.db).ExecContext(ctx,
		`INSERT INTO payments (ticket_id, transaction_id, amount, method, status) VALUES (?, ?, ?, ?, ?)`,
		p.TicketID, p.TransactionID, p.Amount.StringFixed(2), p.Method, p.Status)
	if err != nil {
		if isDuplicateKey(err) {
			return ErrPaymentExists
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	p.ID = uint64(id)
	return nil
}

// GetByTransactionForUpdate reads a payment by its gateway transaction ID
// FOR UPDATE.  Locking here serializes concurrent callbacks for the same
// transaction so idempotency checks and the resolve update cannot
// interleave.
func (r *PaymentRepo) GetByTransactionForUpdate(ctx context.Context, transactionID string) (*model.Payment, error) {
	const q = `SELECT id, ticket_id, transaction_id, amount, method, status, created_at, updated_at
	           FROM payments WHERE transaction_id = ? FOR UPDATE`
	return r.scanPayment(dbtx(ctx, r.db).QueryRowContext(ctx, q, transactionID))
}

// GetByTicket returns the payment attached to a ticket, if any.
func (r *PaymentRepo) GetByTicket(ctx context.Context, ticketID uint64) (*model.Payment, error) {
	const q = `SELECT id, ticket_id, transaction_id, amount, method, status, created_at, updated_at
	           FROM payments WHERE ticket_id = ?`
	return r.scanPayment(dbtx(ctx, r.db).QueryRowContext(ctx, q, ticketID))
}

func (r *PaymentRepo) scanPayment(row *sql.Row) (*model.Payment, error) {
	var p model.Payment
	var amount string
	err := row.Scan(&p.ID, &p.TicketID, &p.TransactionID, &amount, &p.Method, &p.Status, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrPaymentNotFound
	}
	if err != nil {
		return nil, err
	}
	if p.Amount, err = decimal.NewFromString(amount); err != nil {
		return nil, err
	}
	return &p, nil
}

// ResolvePending performs the conditional transition PENDING→{PAID,FAILED}.
// It reports false when the payment had already been resolved, which the
// state machine uses to detect replayed or conflicting callbacks.
func (r *PaymentRepo) ResolvePending(ctx context.Context, paymentID uint64, status string) (bool, error) {
	res, err := dbtx(ctx, r.db).ExecContext(ctx,
		`UPDATE payments SET status = ? WHERE id = ? AND status = 'PENDING'`,
		status, paymentID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}
