package invoice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/tally/internal/billing"
	"github.com/MrJamesThe3rd/tally/internal/ledger"
	"github.com/MrJamesThe3rd/tally/internal/payment"
	"github.com/MrJamesThe3rd/tally/internal/pricing"
)

//go:generate mockgen -source=service.go -destination=repository_mock.go -package=invoice
type Repository interface {
	CreateInvoice(ctx context.Context, inv *billing.Invoice) error
	GetInvoice(ctx context.Context, id uuid.UUID) (*billing.Invoice, error)
	ListInvoices(ctx context.Context, filter ListFilter) ([]billing.Invoice, error)
	UpdateInvoice(ctx context.Context, inv *billing.Invoice) error
	DeleteInvoice(ctx context.Context, id uuid.UUID) error
	FinalizeInvoice(ctx context.Context, id uuid.UUID) (*billing.Invoice, error)

	CreateQuote(ctx context.Context, q *billing.Quote) error
	GetQuote(ctx context.Context, id uuid.UUID) (*billing.Quote, error)
	ListQuotes(ctx context.Context, customerID *uuid.UUID) ([]billing.Quote, error)
	UpdateQuoteStatus(ctx context.Context, id uuid.UUID, status billing.QuoteStatus) error

	BeginConvert(ctx context.Context) (ConvertTx, error)
}

// ConvertTx turns a quote into a finalized invoice atomically. LockQuote
// holds the quote until commit and returns the invoice already issued from
// it, nil when there is none.
type ConvertTx interface {
	LockQuote(ctx context.Context, quoteID uuid.UUID) (*billing.Invoice, error)
	CreateInvoice(ctx context.Context, inv *billing.Invoice) error
	FinalizeInvoice(ctx context.Context, id uuid.UUID) (*billing.Invoice, error)
	UpdateQuoteStatus(ctx context.Context, id uuid.UUID, status billing.QuoteStatus) error
	Commit() error
	Rollback() error
}

// Pricer snapshots the unit price of a line when it is added.
type Pricer interface {
	ResolvePrice(ctx context.Context, productID, customerID uuid.UUID) (*pricing.Resolution, error)
}

type CustomerFinder interface {
	GetCustomer(ctx context.Context, id uuid.UUID) (*billing.Customer, error)
}

// PaymentLister feeds the paid and balance figures of invoice views.
type PaymentLister interface {
	ListPayments(ctx context.Context, filter payment.ListFilter) ([]billing.Payment, error)
}

type ListFilter struct {
	CustomerID *uuid.UUID
	Status     *billing.InvoiceStatus
	QuoteID    *uuid.UUID
}

type Service struct {
	repo      Repository
	customers CustomerFinder
	pricer    Pricer
	payments  PaymentLister
	ledger    *ledger.Ledger
	now       func() time.Time
}

type Option func(*Service)

// WithClock replaces time.Now as the source of "today".
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func NewService(repo Repository, customers CustomerFinder, pricer Pricer, payments PaymentLister, l *ledger.Ledger, opts ...Option) *Service {
	s := &Service{
		repo:      repo,
		customers: customers,
		pricer:    pricer,
		payments:  payments,
		ledger:    l,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	return s
}

// LineParams describes a line to add. UnitPrice and Description, when set,
// replace the resolved values. ID names a line already on the draft; such a
// line keeps its frozen unit price unless UnitPrice is given.
type LineParams struct {
	ID          *uuid.UUID
	ProductID   uuid.UUID
	Quantity    float64
	Description string
	UnitPrice   *float64
}

type DraftParams struct {
	CustomerID uuid.UUID
	Date       time.Time
	DueDate    *time.Time
	Lines      []LineParams
	Shipping   *float64
	Notes      string
}

// View is an invoice with its derived amounts.
type View struct {
	billing.Invoice
	Subtotal   float64
	Tax        float64
	Total      float64
	Paid       float64
	BalanceDue float64
}

func (s *Service) CreateDraft(ctx context.Context, params DraftParams) (*billing.Invoice, error) {
	inv, err := s.buildDraft(ctx, params, nil)
	if err != nil {
		return nil, err
	}

	if err := s.repo.CreateInvoice(ctx, inv); err != nil {
		return nil, fmt.Errorf("creating invoice: %w", err)
	}

	return inv, nil
}

// UpdateDraft replaces the content of a draft. Only lines that are new to the
// draft are priced; kept lines retain their unit price.
func (s *Service) UpdateDraft(ctx context.Context, id uuid.UUID, params DraftParams) (*billing.Invoice, error) {
	existing, err := s.repo.GetInvoice(ctx, id)
	if err != nil {
		return nil, err
	}

	if existing.Status != billing.InvoiceDraft {
		return nil, billing.Invalid(billing.CodeInvalidState, "invoice %s is %s and can no longer be edited", existing.InvoiceNumber, existing.Status)
	}

	inv, err := s.buildDraft(ctx, params, existing.Items)
	if err != nil {
		return nil, err
	}

	inv.ID = existing.ID
	inv.CreatedAt = existing.CreatedAt

	if err := s.repo.UpdateInvoice(ctx, inv); err != nil {
		return nil, fmt.Errorf("updating invoice: %w", err)
	}

	return inv, nil
}

func (s *Service) DeleteDraft(ctx context.Context, id uuid.UUID) error {
	inv, err := s.repo.GetInvoice(ctx, id)
	if err != nil {
		return err
	}

	if inv.Status != billing.InvoiceDraft {
		return billing.Invalid(billing.CodeInvalidState, "only draft invoices can be deleted")
	}

	return s.repo.DeleteInvoice(ctx, id)
}

// Finalize moves a draft to FINALIZED and assigns its permanent number.
func (s *Service) Finalize(ctx context.Context, id uuid.UUID) (*billing.Invoice, error) {
	inv, err := s.repo.GetInvoice(ctx, id)
	if err != nil {
		return nil, err
	}

	if inv.Status != billing.InvoiceDraft {
		return nil, billing.Invalid(billing.CodeInvalidState, "invoice %s is already finalized", inv.InvoiceNumber)
	}

	if len(inv.Items) == 0 {
		return nil, billing.Invalid(billing.CodeMissingField, "an invoice needs at least one line to be finalized")
	}

	finalized, err := s.repo.FinalizeInvoice(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("finalizing invoice: %w", err)
	}

	slog.Info("invoice finalized", "invoice_id", id, "invoice_number", finalized.InvoiceNumber)

	return finalized, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*View, error) {
	inv, err := s.repo.GetInvoice(ctx, id)
	if err != nil {
		return nil, err
	}

	payments, err := s.payments.ListPayments(ctx, payment.ListFilter{})
	if err != nil {
		return nil, fmt.Errorf("listing payments: %w", err)
	}

	v := s.view(*inv, payments)

	return &v, nil
}

func (s *Service) List(ctx context.Context, filter ListFilter) ([]View, error) {
	invoices, err := s.repo.ListInvoices(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("listing invoices: %w", err)
	}

	payments, err := s.payments.ListPayments(ctx, payment.ListFilter{})
	if err != nil {
		return nil, fmt.Errorf("listing payments: %w", err)
	}

	views := make([]View, len(invoices))
	for i := range invoices {
		views[i] = s.view(invoices[i], payments)
	}

	return views, nil
}

func (s *Service) view(inv billing.Invoice, payments []billing.Payment) View {
	return View{
		Invoice:    inv,
		Subtotal:   billing.Round2(s.ledger.Subtotal(&inv)),
		Tax:        billing.Round2(s.ledger.Tax(&inv)),
		Total:      billing.Round2(s.ledger.Total(&inv)),
		Paid:       billing.Round2(ledger.Paid(inv.ID, payments)),
		BalanceDue: s.ledger.BalanceDue(&inv, payments),
	}
}

func (s *Service) buildDraft(ctx context.Context, params DraftParams, existing []billing.LineItem) (*billing.Invoice, error) {
	items, err := s.priceLines(ctx, params.CustomerID, params.Lines, existing)
	if err != nil {
		return nil, err
	}

	if params.Shipping != nil && *params.Shipping < 0 {
		return nil, billing.Invalid(billing.CodeInvalidAmount, "shipping cannot be negative")
	}

	date := params.Date
	if date.IsZero() {
		date = s.now()
	}

	var due *time.Time
	if params.DueDate != nil {
		d := billing.Day(*params.DueDate)
		if d.Before(billing.Day(date)) {
			return nil, billing.Invalid(billing.CodeInvalidState, "due date cannot be before the invoice date")
		}

		due = &d
	}

	return &billing.Invoice{
		CustomerID: params.CustomerID,
		Date:       billing.Day(date),
		DueDate:    due,
		Items:      items,
		Shipping:   params.Shipping,
		Status:     billing.InvoiceDraft,
		Notes:      strings.TrimSpace(params.Notes),
	}, nil
}

// priceLines freezes each line's unit price. Later price changes never
// reach lines already built: a line matching an existing item by ID and
// product keeps that item's ID and unit price.
func (s *Service) priceLines(ctx context.Context, customerID uuid.UUID, lines []LineParams, existing []billing.LineItem) ([]billing.LineItem, error) {
	if _, err := s.customers.GetCustomer(ctx, customerID); err != nil {
		if errors.Is(err, billing.ErrNotFound) {
			return nil, billing.Invalid(billing.CodeUnknownCustomer, "customer %s does not exist", customerID)
		}

		return nil, fmt.Errorf("getting customer: %w", err)
	}

	items := make([]billing.LineItem, 0, len(lines))

	for i, l := range lines {
		if l.Quantity <= 0 {
			return nil, billing.Invalid(billing.CodeInvalidAmount, "line %d: quantity must be greater than zero", i+1)
		}

		item := billing.LineItem{
			ID:          uuid.New(),
			ProductID:   l.ProductID,
			Description: strings.TrimSpace(l.Description),
			Quantity:    l.Quantity,
		}

		if kept, ok := findLine(existing, l); ok {
			item.ID = kept.ID
			if item.Description == "" {
				item.Description = kept.Description
			}

			if l.UnitPrice == nil {
				item.UnitPrice = kept.UnitPrice
				items = append(items, item)

				continue
			}
		}

		if l.UnitPrice != nil {
			if *l.UnitPrice < 0 {
				return nil, billing.Invalid(billing.CodeInvalidAmount, "line %d: unit price cannot be negative", i+1)
			}

			item.UnitPrice = *l.UnitPrice
		}

		if l.UnitPrice == nil || item.Description == "" {
			res, err := s.pricer.ResolvePrice(ctx, l.ProductID, customerID)
			if err != nil {
				return nil, err
			}

			if item.Description == "" {
				item.Description = res.Description
			}

			if l.UnitPrice == nil {
				if !res.HasPrice {
					return nil, billing.Invalid(billing.CodeNoPrice, "line %d: %s has no effective price", i+1, res.Description)
				}

				item.UnitPrice = res.UnitPrice
			}
		}

		items = append(items, item)
	}

	return items, nil
}

func findLine(items []billing.LineItem, l LineParams) (*billing.LineItem, bool) {
	if l.ID == nil {
		return nil, false
	}

	for i := range items {
		if items[i].ID == *l.ID && items[i].ProductID == l.ProductID {
			return &items[i], true
		}
	}

	return nil, false
}
