package invoice

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/tally/internal/billing"
)

type QuoteParams struct {
	CustomerID uuid.UUID
	Date       time.Time
	ValidUntil *time.Time
	Lines      []LineParams
	Shipping   *float64
	Notes      string
}

// QuoteView is a quote with its derived amounts.
type QuoteView struct {
	billing.Quote
	Subtotal float64
	Tax      float64
	Total    float64
}

func (s *Service) CreateQuote(ctx context.Context, params QuoteParams) (*billing.Quote, error) {
	items, err := s.priceLines(ctx, params.CustomerID, params.Lines, nil)
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

	q := &billing.Quote{
		CustomerID: params.CustomerID,
		Date:       billing.Day(date),
		Items:      items,
		Shipping:   params.Shipping,
		Status:     billing.QuoteDraft,
		Notes:      strings.TrimSpace(params.Notes),
	}

	if params.ValidUntil != nil {
		until := billing.Day(*params.ValidUntil)
		q.ValidUntil = &until
	}

	if err := s.repo.CreateQuote(ctx, q); err != nil {
		return nil, fmt.Errorf("creating quote: %w", err)
	}

	return q, nil
}

func (s *Service) GetQuote(ctx context.Context, id uuid.UUID) (*QuoteView, error) {
	q, err := s.repo.GetQuote(ctx, id)
	if err != nil {
		return nil, err
	}

	v := s.quoteView(*q)

	return &v, nil
}

func (s *Service) ListQuotes(ctx context.Context, customerID *uuid.UUID) ([]QuoteView, error) {
	quotes, err := s.repo.ListQuotes(ctx, customerID)
	if err != nil {
		return nil, fmt.Errorf("listing quotes: %w", err)
	}

	views := make([]QuoteView, len(quotes))
	for i := range quotes {
		views[i] = s.quoteView(quotes[i])
	}

	return views, nil
}

func (s *Service) AcceptQuote(ctx context.Context, id uuid.UUID) error {
	return s.decide(ctx, id, billing.QuoteAccepted)
}

func (s *Service) RejectQuote(ctx context.Context, id uuid.UUID) error {
	return s.decide(ctx, id, billing.QuoteRejected)
}

func (s *Service) decide(ctx context.Context, id uuid.UUID, status billing.QuoteStatus) error {
	q, err := s.repo.GetQuote(ctx, id)
	if err != nil {
		return err
	}

	if q.Status != billing.QuoteDraft {
		return billing.Invalid(billing.CodeInvalidState, "quote %s is already %s", q.QuoteNumber, q.Status)
	}

	return s.repo.UpdateQuoteStatus(ctx, id, status)
}

// ConvertQuote issues a finalized invoice carrying the quote's lines at the
// quoted prices and marks the quote accepted. A quote converts at most once.
func (s *Service) ConvertQuote(ctx context.Context, id uuid.UUID, dueDate *time.Time) (*billing.Invoice, error) {
	q, err := s.repo.GetQuote(ctx, id)
	if err != nil {
		return nil, err
	}

	if q.Status == billing.QuoteRejected {
		return nil, billing.Invalid(billing.CodeInvalidState, "quote %s was rejected and cannot be converted", q.QuoteNumber)
	}

	if len(q.Items) == 0 {
		return nil, billing.Invalid(billing.CodeMissingField, "quote %s has no lines", q.QuoteNumber)
	}

	today := billing.Day(s.now())

	var due *time.Time
	if dueDate != nil {
		d := billing.Day(*dueDate)
		if d.Before(today) {
			return nil, billing.Invalid(billing.CodeInvalidState, "due date cannot be before the invoice date")
		}

		due = &d
	}

	items := make([]billing.LineItem, len(q.Items))
	for i, item := range q.Items {
		item.ID = uuid.New()
		items[i] = item
	}

	inv := &billing.Invoice{
		CustomerID: q.CustomerID,
		QuoteID:    &q.ID,
		Date:       today,
		DueDate:    due,
		Items:      items,
		Shipping:   q.Shipping,
		Status:     billing.InvoiceDraft,
		Notes:      q.Notes,
	}

	cvt, err := s.repo.BeginConvert(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin convert: %w", err)
	}
	defer cvt.Rollback()

	existing, err := cvt.LockQuote(ctx, q.ID)
	if err != nil {
		return nil, fmt.Errorf("checking prior conversion: %w", err)
	}

	if existing != nil {
		return nil, billing.Invalid(billing.CodeInvalidState, "quote %s was already converted to invoice %s", q.QuoteNumber, existing.InvoiceNumber)
	}

	if err := cvt.CreateInvoice(ctx, inv); err != nil {
		return nil, fmt.Errorf("creating invoice: %w", err)
	}

	finalized, err := cvt.FinalizeInvoice(ctx, inv.ID)
	if err != nil {
		return nil, fmt.Errorf("finalizing invoice: %w", err)
	}

	if q.Status != billing.QuoteAccepted {
		if err := cvt.UpdateQuoteStatus(ctx, q.ID, billing.QuoteAccepted); err != nil {
			return nil, fmt.Errorf("accepting quote: %w", err)
		}
	}

	if err := cvt.Commit(); err != nil {
		return nil, fmt.Errorf("commit convert: %w", err)
	}

	slog.Info("quote converted", "quote_number", q.QuoteNumber, "invoice_number", finalized.InvoiceNumber)

	return finalized, nil
}

func (s *Service) quoteView(q billing.Quote) QuoteView {
	return QuoteView{
		Quote:    q,
		Subtotal: billing.Round2(s.ledger.Subtotal(&q)),
		Tax:      billing.Round2(s.ledger.Tax(&q)),
		Total:    billing.Round2(s.ledger.Total(&q)),
	}
}
