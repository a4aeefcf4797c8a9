package database

import (
	"context"
	"fmt"
	"hash/fnv"

	"github.com/jmoiron/sqlx"

	"github.com/MrJamesThe3rd/tally/internal/billing"
)

const (
	CustomerColumns = `id, name, type, parent_company_id, bill_to_parent, custom_product_pricing, created_at, updated_at`
	InvoiceColumns  = `id, invoice_number, customer_id, quote_id, date, due_date, items, shipping, status, notes, created_at, updated_at`
	QuoteColumns    = `id, quote_number, customer_id, date, valid_until, items, shipping, status, notes, created_at, updated_at`
	PaymentColumns  = `id, customer_id, date, total_amount, method, reference, allocations, created_at, updated_at`
)

// LoadSnapshot reads every customer, invoice and payment through q. Run it
// inside a transaction when the snapshot must agree with later writes.
func LoadSnapshot(ctx context.Context, q sqlx.QueryerContext) (*billing.Snapshot, error) {
	var customers []CustomerModel
	if err := sqlx.SelectContext(ctx, q, &customers, `SELECT `+CustomerColumns+` FROM customers ORDER BY name ASC`); err != nil {
		return nil, fmt.Errorf("loading customers: %w", err)
	}

	var invoices []InvoiceModel
	if err := sqlx.SelectContext(ctx, q, &invoices, `SELECT `+InvoiceColumns+` FROM invoices ORDER BY date ASC, created_at ASC`); err != nil {
		return nil, fmt.Errorf("loading invoices: %w", err)
	}

	var payments []PaymentModel
	if err := sqlx.SelectContext(ctx, q, &payments, `SELECT `+PaymentColumns+` FROM payments ORDER BY date ASC, created_at ASC`); err != nil {
		return nil, fmt.Errorf("loading payments: %w", err)
	}

	return &billing.Snapshot{
		Customers: ToDomainList(customers, (*CustomerModel).ToDomain),
		Invoices:  ToDomainList(invoices, (*InvoiceModel).ToDomain),
		Payments:  ToDomainList(payments, (*PaymentModel).ToDomain),
	}, nil
}

// LockLedger takes the transaction-scoped advisory lock that serializes every
// write touching invoice balances or statuses.
func LockLedger(ctx context.Context, tx *sqlx.Tx) error {
	h := fnv.New64a()
	h.Write([]byte("ledger"))

	if _, err := tx.ExecContext(ctx, "SELECT pg_advisory_xact_lock($1)", int64(h.Sum64())); err != nil {
		return fmt.Errorf("acquiring ledger lock: %w", err)
	}

	return nil
}
