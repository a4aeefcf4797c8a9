package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/MrJamesThe3rd/tally/internal/billing"
	"github.com/MrJamesThe3rd/tally/internal/database"
	"github.com/MrJamesThe3rd/tally/internal/invoice"
)

type Store struct {
	db *sqlx.DB
}

func New(db *sqlx.DB) *Store {
	return &Store{db: db}
}

func (s *Store) CreateInvoice(ctx context.Context, inv *billing.Invoice) error {
	return createInvoice(ctx, s.db, inv)
}

func createInvoice(ctx context.Context, e sqlx.ExtContext, inv *billing.Invoice) error {
	m := database.InvoiceModelFromDomain(inv)

	query := `
		INSERT INTO invoices (customer_id, quote_id, date, due_date, items, shipping, status, notes, created_at)
		VALUES (:customer_id, :quote_id, :date, :due_date, :items, :shipping, :status, :notes, NOW())
		RETURNING id, created_at
	`

	rows, err := sqlx.NamedQueryContext(ctx, e, query, &m)
	if err != nil {
		return fmt.Errorf("creating invoice: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		return fmt.Errorf("creating invoice: no row returned")
	}

	if err := rows.Scan(&inv.ID, &inv.CreatedAt); err != nil {
		return fmt.Errorf("scanning created invoice: %w", err)
	}

	return nil
}

func (s *Store) GetInvoice(ctx context.Context, id uuid.UUID) (*billing.Invoice, error) {
	var m database.InvoiceModel

	query := `SELECT ` + database.InvoiceColumns + ` FROM invoices WHERE id = $1`
	if err := s.db.GetContext(ctx, &m, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, billing.ErrNotFound
		}

		return nil, fmt.Errorf("getting invoice: %w", err)
	}

	inv := m.ToDomain()

	return &inv, nil
}

func (s *Store) ListInvoices(ctx context.Context, filter invoice.ListFilter) ([]billing.Invoice, error) {
	query := `SELECT ` + database.InvoiceColumns + ` FROM invoices WHERE TRUE`

	var args []any

	argIdx := 1

	if filter.CustomerID != nil {
		query += fmt.Sprintf(" AND customer_id = $%d", argIdx)

		args = append(args, *filter.CustomerID)
		argIdx++
	}

	if filter.Status != nil {
		query += fmt.Sprintf(" AND status = $%d", argIdx)

		args = append(args, string(*filter.Status))
		argIdx++
	}

	if filter.QuoteID != nil {
		query += fmt.Sprintf(" AND quote_id = $%d", argIdx)

		args = append(args, *filter.QuoteID)
	}

	query += " ORDER BY date DESC, created_at DESC"

	var rows []database.InvoiceModel
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("listing invoices: %w", err)
	}

	return database.ToDomainList(rows, (*database.InvoiceModel).ToDomain), nil
}

// UpdateInvoice rewrites the content of a draft. Finalized invoices are
// never touched.
func (s *Store) UpdateInvoice(ctx context.Context, inv *billing.Invoice) error {
	m := database.InvoiceModelFromDomain(inv)

	query := `
		UPDATE invoices
		SET customer_id = :customer_id, date = :date, due_date = :due_date, items = :items,
			shipping = :shipping, notes = :notes, updated_at = NOW()
		WHERE id = :id AND status = 'DRAFT'
	`

	res, err := s.db.NamedExecContext(ctx, query, &m)
	if err != nil {
		return fmt.Errorf("updating invoice: %w", err)
	}

	return expectOne(res)
}

func (s *Store) DeleteInvoice(ctx context.Context, id uuid.UUID) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM invoices WHERE id = $1 AND status = 'DRAFT'`, id)
	if err != nil {
		return fmt.Errorf("deleting invoice: %w", err)
	}

	return expectOne(res)
}

func (s *Store) FinalizeInvoice(ctx context.Context, id uuid.UUID) (*billing.Invoice, error) {
	return finalizeInvoice(ctx, s.db, id)
}

// finalizeInvoice draws the next number from the sequence in the same
// statement that leaves DRAFT, so a number is only consumed by a real
// finalization.
func finalizeInvoice(ctx context.Context, q sqlx.QueryerContext, id uuid.UUID) (*billing.Invoice, error) {
	query := `
		UPDATE invoices
		SET status = 'FINALIZED',
			invoice_number = 'INV-' || lpad(nextval('invoice_number_seq')::text, 6, '0'),
			updated_at = NOW()
		WHERE id = $1 AND status = 'DRAFT'
		RETURNING ` + database.InvoiceColumns

	var m database.InvoiceModel
	if err := sqlx.GetContext(ctx, q, &m, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, billing.ErrNotFound
		}

		return nil, fmt.Errorf("finalizing invoice: %w", err)
	}

	inv := m.ToDomain()

	return &inv, nil
}

func (s *Store) CreateQuote(ctx context.Context, q *billing.Quote) error {
	m := database.QuoteModelFromDomain(q)

	query := `
		INSERT INTO quotes (quote_number, customer_id, date, valid_until, items, shipping, status, notes, created_at)
		VALUES ('Q-' || lpad(nextval('quote_number_seq')::text, 6, '0'),
			:customer_id, :date, :valid_until, :items, :shipping, :status, :notes, NOW())
		RETURNING id, quote_number, created_at
	`

	rows, err := s.db.NamedQueryContext(ctx, query, &m)
	if err != nil {
		return fmt.Errorf("creating quote: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		return fmt.Errorf("creating quote: no row returned")
	}

	if err := rows.Scan(&q.ID, &q.QuoteNumber, &q.CreatedAt); err != nil {
		return fmt.Errorf("scanning created quote: %w", err)
	}

	return nil
}

func (s *Store) GetQuote(ctx context.Context, id uuid.UUID) (*billing.Quote, error) {
	var m database.QuoteModel

	query := `SELECT ` + database.QuoteColumns + ` FROM quotes WHERE id = $1`
	if err := s.db.GetContext(ctx, &m, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, billing.ErrNotFound
		}

		return nil, fmt.Errorf("getting quote: %w", err)
	}

	q := m.ToDomain()

	return &q, nil
}

func (s *Store) ListQuotes(ctx context.Context, customerID *uuid.UUID) ([]billing.Quote, error) {
	query := `SELECT ` + database.QuoteColumns + ` FROM quotes`

	var args []any
	if customerID != nil {
		query += ` WHERE customer_id = $1`

		args = append(args, *customerID)
	}

	query += ` ORDER BY date DESC, created_at DESC`

	var rows []database.QuoteModel
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("listing quotes: %w", err)
	}

	return database.ToDomainList(rows, (*database.QuoteModel).ToDomain), nil
}

func (s *Store) UpdateQuoteStatus(ctx context.Context, id uuid.UUID, status billing.QuoteStatus) error {
	return updateQuoteStatus(ctx, s.db, id, status)
}

func updateQuoteStatus(ctx context.Context, e sqlx.ExecerContext, id uuid.UUID, status billing.QuoteStatus) error {
	res, err := e.ExecContext(ctx, `UPDATE quotes SET status = $1, updated_at = NOW() WHERE id = $2`, string(status), id)
	if err != nil {
		return fmt.Errorf("updating quote status: %w", err)
	}

	return expectOne(res)
}

type convertTx struct {
	tx *sqlx.Tx
}

func (s *Store) BeginConvert(ctx context.Context) (invoice.ConvertTx, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning convert tx: %w", err)
	}

	return &convertTx{tx: tx}, nil
}

func (c *convertTx) Commit() error   { return c.tx.Commit() }
func (c *convertTx) Rollback() error { return c.tx.Rollback() }

// LockQuote takes a row lock on the quote so concurrent conversions of the
// same quote serialize, then looks for an invoice already issued from it.
func (c *convertTx) LockQuote(ctx context.Context, quoteID uuid.UUID) (*billing.Invoice, error) {
	var locked uuid.UUID
	if err := c.tx.GetContext(ctx, &locked, `SELECT id FROM quotes WHERE id = $1 FOR UPDATE`, quoteID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, billing.ErrNotFound
		}

		return nil, fmt.Errorf("locking quote: %w", err)
	}

	var m database.InvoiceModel

	query := `SELECT ` + database.InvoiceColumns + ` FROM invoices WHERE quote_id = $1 LIMIT 1`
	if err := c.tx.GetContext(ctx, &m, query, quoteID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}

		return nil, fmt.Errorf("finding converted invoice: %w", err)
	}

	inv := m.ToDomain()

	return &inv, nil
}

func (c *convertTx) CreateInvoice(ctx context.Context, inv *billing.Invoice) error {
	return createInvoice(ctx, c.tx, inv)
}

func (c *convertTx) FinalizeInvoice(ctx context.Context, id uuid.UUID) (*billing.Invoice, error) {
	return finalizeInvoice(ctx, c.tx, id)
}

func (c *convertTx) UpdateQuoteStatus(ctx context.Context, id uuid.UUID, status billing.QuoteStatus) error {
	return updateQuoteStatus(ctx, c.tx, id, status)
}

func expectOne(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking affected rows: %w", err)
	}

	if n == 0 {
		return billing.ErrNotFound
	}

	return nil
}
