package view

import (
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/tally/internal/billing"
	"github.com/MrJamesThe3rd/tally/internal/invoice"
	"github.com/MrJamesThe3rd/tally/internal/statement"
)

func TestParseAmount(t *testing.T) {
	cases := map[string]float64{
		"115":     115,
		"115,50":  115.5,
		" 20.005": 20.01,
	}

	for in, want := range cases {
		got, err := parseAmount(in)
		if err != nil {
			t.Fatalf("parseAmount(%q): %v", in, err)
		}

		if got != want {
			t.Errorf("parseAmount(%q) = %v, want %v", in, got, want)
		}
	}

	for _, in := range []string{"", "abc", "0", "-5"} {
		if _, err := parseAmount(in); err == nil {
			t.Errorf("parseAmount(%q) should fail", in)
		}
	}
}

func TestOpenInvoices(t *testing.T) {
	older, newer, paid, other := uuid.New(), uuid.New(), uuid.New(), uuid.New()

	view := func(id uuid.UUID, day int, due float64) invoice.View {
		return invoice.View{
			Invoice:    billing.Invoice{ID: id, Date: time.Date(2026, 3, day, 0, 0, 0, 0, time.UTC)},
			BalanceDue: due,
		}
	}

	st := &statement.Statement{Transactions: []statement.Transaction{
		{Kind: statement.KindInvoice, ID: newer},
		{Kind: statement.KindPayment, ID: uuid.New()},
		{Kind: statement.KindInvoice, ID: paid},
		{Kind: statement.KindInvoice, ID: older},
	}}

	open := openInvoices(st, []invoice.View{
		view(newer, 20, 50),
		view(paid, 10, 0.004),
		view(other, 1, 99),
		view(older, 5, 115),
	})

	if len(open) != 2 {
		t.Fatalf("expected 2 open invoices, got %d", len(open))
	}

	if open[0].ID != older || open[1].ID != newer {
		t.Errorf("expected oldest first, got %v then %v", open[0].ID, open[1].ID)
	}
}
