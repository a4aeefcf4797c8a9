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
	"github.com/MrJamesThe3rd/tally/internal/payment"
)

type Store struct {
	db *sqlx.DB
}

func New(db *sqlx.DB) *Store {
	return &Store{db: db}
}

func (s *Store) GetPayment(ctx context.Context, id uuid.UUID) (*billing.Payment, error) {
	var m database.PaymentModel

	query := `SELECT ` + database.PaymentColumns + ` FROM payments WHERE id = $1`
	if err := s.db.GetContext(ctx, &m, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, billing.ErrNotFound
		}

		return nil, fmt.Errorf("getting payment: %w", err)
	}

	p := m.ToDomain()

	return &p, nil
}

func (s *Store) ListPayments(ctx context.Context, filter payment.ListFilter) ([]billing.Payment, error) {
	query := `SELECT ` + database.PaymentColumns + ` FROM payments WHERE TRUE`

	var args []any

	argIdx := 1

	if filter.CustomerID != nil {
		query += fmt.Sprintf(" AND customer_id = $%d", argIdx)

		args = append(args, *filter.CustomerID)
		argIdx++
	}

	if filter.StartDate != nil {
		query += fmt.Sprintf(" AND date >= $%d", argIdx)

		args = append(args, database.NewDate(*filter.StartDate))
		argIdx++
	}

	if filter.EndDate != nil {
		query += fmt.Sprintf(" AND date <= $%d", argIdx)

		args = append(args, database.NewDate(*filter.EndDate))
	}

	query += " ORDER BY date ASC, created_at ASC"

	var rows []database.PaymentModel
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("listing payments: %w", err)
	}

	return database.ToDomainList(rows, (*database.PaymentModel).ToDomain), nil
}

type ledgerTx struct {
	tx *sqlx.Tx
}

func (s *Store) BeginLedger(ctx context.Context) (payment.LedgerTx, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning ledger tx: %w", err)
	}

	if err := database.LockLedger(ctx, tx); err != nil {
		tx.Rollback()
		return nil, err
	}

	return &ledgerTx{tx: tx}, nil
}

func (ltx *ledgerTx) Commit() error   { return ltx.tx.Commit() }
func (ltx *ledgerTx) Rollback() error { return ltx.tx.Rollback() }

func (ltx *ledgerTx) Snapshot(ctx context.Context) (*billing.Snapshot, error) {
	return database.LoadSnapshot(ctx, ltx.tx)
}

func (ltx *ledgerTx) CreatePayment(ctx context.Context, p *billing.Payment) error {
	m := database.PaymentModelFromDomain(p)

	query := `
		INSERT INTO payments (customer_id, date, total_amount, method, reference, allocations, created_at)
		VALUES (:customer_id, :date, :total_amount, :method, :reference, :allocations, NOW())
		RETURNING id, created_at
	`

	rows, err := sqlx.NamedQueryContext(ctx, ltx.tx, query, &m)
	if err != nil {
		return fmt.Errorf("creating payment: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		return fmt.Errorf("creating payment: no row returned")
	}

	if err := rows.Scan(&p.ID, &p.CreatedAt); err != nil {
		return fmt.Errorf("scanning created payment: %w", err)
	}

	return nil
}

func (ltx *ledgerTx) UpdatePayment(ctx context.Context, p *billing.Payment) error {
	m := database.PaymentModelFromDomain(p)

	query := `
		UPDATE payments
		SET customer_id = :customer_id, date = :date, total_amount = :total_amount,
			method = :method, reference = :reference, allocations = :allocations, updated_at = NOW()
		WHERE id = :id
	`

	res, err := sqlx.NamedExecContext(ctx, ltx.tx, query, &m)
	if err != nil {
		return fmt.Errorf("updating payment: %w", err)
	}

	return expectOne(res)
}

func (ltx *ledgerTx) DeletePayment(ctx context.Context, id uuid.UUID) error {
	res, err := ltx.tx.ExecContext(ctx, `DELETE FROM payments WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("deleting payment: %w", err)
	}

	return expectOne(res)
}

func (ltx *ledgerTx) UpdateInvoiceStatus(ctx context.Context, id uuid.UUID, status billing.InvoiceStatus) error {
	query := `
		UPDATE invoices
		SET status = $1, updated_at = NOW()
		WHERE id = $2
	`

	res, err := ltx.tx.ExecContext(ctx, query, string(status), id)
	if err != nil {
		return fmt.Errorf("updating invoice status: %w", err)
	}

	return expectOne(res)
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
