package payment

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/tally/internal/billing"
	"github.com/MrJamesThe3rd/tally/internal/ledger"
)

//go:generate mockgen -source=service.go -destination=repository_mock.go -package=payment
type Repository interface {
	GetPayment(ctx context.Context, id uuid.UUID) (*billing.Payment, error)
	ListPayments(ctx context.Context, filter ListFilter) ([]billing.Payment, error)

	BeginLedger(ctx context.Context) (LedgerTx, error)
}

// LedgerTx is one serialized unit of work over payments and invoice statuses.
// Nothing it writes is visible until Commit.
type LedgerTx interface {
	Snapshot(ctx context.Context) (*billing.Snapshot, error)
	CreatePayment(ctx context.Context, p *billing.Payment) error
	UpdatePayment(ctx context.Context, p *billing.Payment) error
	DeletePayment(ctx context.Context, id uuid.UUID) error
	UpdateInvoiceStatus(ctx context.Context, id uuid.UUID, status billing.InvoiceStatus) error
	Commit() error
	Rollback() error
}

type ListFilter struct {
	CustomerID *uuid.UUID
	StartDate  *time.Time
	EndDate    *time.Time
}

type Service struct {
	repo   Repository
	ledger *ledger.Ledger
}

func NewService(repo Repository, l *ledger.Ledger) *Service {
	return &Service{repo: repo, ledger: l}
}

type Params struct {
	CustomerID  uuid.UUID
	Date        time.Time
	TotalAmount float64
	Method      string
	Reference   string
	Allocations []billing.PaymentAllocation
}

// Result is a written payment and the invoice statuses that changed with it.
type Result struct {
	Payment       billing.Payment
	StatusChanges []ledger.StatusChange
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*billing.Payment, error) {
	return s.repo.GetPayment(ctx, id)
}

func (s *Service) List(ctx context.Context, filter ListFilter) ([]billing.Payment, error) {
	return s.repo.ListPayments(ctx, filter)
}

// Record validates and stores a new payment, then recomputes the status of
// every invoice it is allocated to. A payment submitted for a child that bills
// to its parent is recorded against the parent.
func (s *Service) Record(ctx context.Context, params Params) (*Result, error) {
	ltx, err := s.repo.BeginLedger(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin ledger: %w", err)
	}
	defer ltx.Rollback()

	snap, err := ltx.Snapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("load snapshot: %w", err)
	}

	p := ledger.RecordPayment(s.details(params, snap), params.Allocations)

	if err := s.ledger.ValidatePayment(ledger.PaymentCheck{
		Payment:   p,
		Customers: snap.Customers,
		Invoices:  snap.Invoices,
		Payments:  snap.Payments,
	}); err != nil {
		return nil, err
	}

	if err := ltx.CreatePayment(ctx, &p); err != nil {
		return nil, fmt.Errorf("create payment: %w", err)
	}

	after := ledger.ReplacePayment(snap.Payments, p)

	changes, err := s.apply(ctx, ltx, snap.Invoices, after, ledger.TouchedInvoices(nil, &p))
	if err != nil {
		return nil, err
	}

	if err := ltx.Commit(); err != nil {
		return nil, fmt.Errorf("commit payment: %w", err)
	}

	slog.Info("payment recorded", "payment_id", p.ID, "customer_id", p.CustomerID, "amount", p.TotalAmount, "status_changes", len(changes))

	return &Result{Payment: p, StatusChanges: changes}, nil
}

// Edit replaces a payment's header and allocations. Balances are checked with
// the payment's own previous allocations excluded, and statuses are
// recomputed for the union of old and new invoices.
func (s *Service) Edit(ctx context.Context, id uuid.UUID, params Params) (*Result, error) {
	ltx, err := s.repo.BeginLedger(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin ledger: %w", err)
	}
	defer ltx.Rollback()

	snap, err := ltx.Snapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("load snapshot: %w", err)
	}

	before, ok := findPayment(snap.Payments, id)
	if !ok {
		return nil, billing.ErrNotFound
	}

	p := ledger.RecordPayment(s.details(params, snap), params.Allocations)
	p.ID = before.ID
	p.CreatedAt = before.CreatedAt

	if err := s.ledger.ValidatePayment(ledger.PaymentCheck{
		Payment:   p,
		Customers: snap.Customers,
		Invoices:  snap.Invoices,
		Payments:  snap.Payments,
	}); err != nil {
		return nil, err
	}

	if err := ltx.UpdatePayment(ctx, &p); err != nil {
		return nil, fmt.Errorf("update payment: %w", err)
	}

	after := ledger.ReplacePayment(snap.Payments, p)

	changes, err := s.apply(ctx, ltx, snap.Invoices, after, ledger.TouchedInvoices(before, &p))
	if err != nil {
		return nil, err
	}

	if err := ltx.Commit(); err != nil {
		return nil, fmt.Errorf("commit payment: %w", err)
	}

	slog.Info("payment edited", "payment_id", p.ID, "amount", p.TotalAmount, "status_changes", len(changes))

	return &Result{Payment: p, StatusChanges: changes}, nil
}

// Delete removes a payment and recomputes the invoices it was allocated to.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) ([]ledger.StatusChange, error) {
	ltx, err := s.repo.BeginLedger(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin ledger: %w", err)
	}
	defer ltx.Rollback()

	snap, err := ltx.Snapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("load snapshot: %w", err)
	}

	before, ok := findPayment(snap.Payments, id)
	if !ok {
		return nil, billing.ErrNotFound
	}

	if err := ltx.DeletePayment(ctx, id); err != nil {
		return nil, fmt.Errorf("delete payment: %w", err)
	}

	after := ledger.OtherPayments(snap.Payments, id)

	changes, err := s.apply(ctx, ltx, snap.Invoices, after, ledger.TouchedInvoices(before, nil))
	if err != nil {
		return nil, err
	}

	if err := ltx.Commit(); err != nil {
		return nil, fmt.Errorf("commit payment deletion: %w", err)
	}

	slog.Info("payment deleted", "payment_id", id, "status_changes", len(changes))

	return changes, nil
}

// details routes the payment to the bill-payer of the submitted customer.
// Unknown customers are left as submitted for ValidatePayment to reject.
func (s *Service) details(params Params, snap *billing.Snapshot) ledger.PaymentDetails {
	customerID := params.CustomerID

	if c, ok := billing.FindCustomer(snap.Customers, customerID); ok {
		payer := ledger.BillPayer(c, snap.Customers)
		if payer.ID != customerID {
			slog.Debug("payment redirected to bill-payer", "customer_id", customerID, "bill_payer_id", payer.ID)
		}

		customerID = payer.ID
	}

	return ledger.PaymentDetails{
		CustomerID:  customerID,
		Date:        params.Date,
		TotalAmount: params.TotalAmount,
		Method:      params.Method,
		Reference:   params.Reference,
	}
}

func (s *Service) apply(ctx context.Context, ltx LedgerTx, invoices []billing.Invoice, payments []billing.Payment, touched []uuid.UUID) ([]ledger.StatusChange, error) {
	changes := s.ledger.Reconcile(invoices, payments, touched)

	for _, c := range changes {
		if err := ltx.UpdateInvoiceStatus(ctx, c.InvoiceID, c.To); err != nil {
			return nil, fmt.Errorf("update invoice %s status: %w", c.InvoiceID, err)
		}
	}

	return changes, nil
}

func findPayment(payments []billing.Payment, id uuid.UUID) (*billing.Payment, bool) {
	for i := range payments {
		if payments[i].ID == id {
			return &payments[i], true
		}
	}

	return nil, false
}
