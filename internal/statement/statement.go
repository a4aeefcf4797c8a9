// Package statement builds customer statements: a chronological stream of
// invoices and payments with a running balance, and an aging analysis of
// what is still outstanding.
package statement

import (
	"cmp"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/tally/internal/billing"
	"github.com/MrJamesThe3rd/tally/internal/ledger"
)

// Kind tells invoice rows from payment rows.
type Kind string

const (
	KindInvoice Kind = "invoice"
	KindPayment Kind = "payment"
)

// Transaction is one statement row. Balance is the running balance right
// after this row in chronological order.
type Transaction struct {
	Kind       Kind
	ID         uuid.UUID
	CustomerID uuid.UUID
	Date       time.Time
	Reference  string
	Debit      float64
	Credit     float64
	Balance    float64
}

// Aging buckets outstanding invoice balances by days past due.
type Aging struct {
	Current     float64
	Days30      float64
	Days60      float64
	Days90      float64
	Days120Plus float64
}

// Total is the sum of all buckets.
func (a Aging) Total() float64 {
	return a.Current + a.Days30 + a.Days60 + a.Days90 + a.Days120Plus
}

// Overdue is the sum of every bucket except Current.
func (a Aging) Overdue() float64 {
	return a.Days30 + a.Days60 + a.Days90 + a.Days120Plus
}

func (a *Aging) add(daysOverdue int, amount float64) {
	switch {
	case daysOverdue <= 0:
		a.Current += amount
	case daysOverdue <= 30:
		a.Days30 += amount
	case daysOverdue <= 60:
		a.Days60 += amount
	case daysOverdue <= 90:
		a.Days90 += amount
	default:
		a.Days120Plus += amount
	}
}

func (a Aging) rounded() Aging {
	return Aging{
		Current:     billing.Round2(a.Current),
		Days30:      billing.Round2(a.Days30),
		Days60:      billing.Round2(a.Days60),
		Days90:      billing.Round2(a.Days90),
		Days120Plus: billing.Round2(a.Days120Plus),
	}
}

// Statement is the derived view of a customer's account. Transactions are
// ordered most recent first.
type Statement struct {
	Customer       billing.Customer
	ChildCustomers []billing.Customer
	Transactions   []Transaction
	Aging          Aging
	TotalBalance   float64
}

// Engine builds statements using the ledger's totals.
type Engine struct {
	ledger *ledger.Ledger
}

func NewEngine(l *ledger.Ledger) *Engine {
	return &Engine{ledger: l}
}

// Build assembles the statement of customerID as of today. It returns nil when
// the customer is unknown.
func (e *Engine) Build(customerID uuid.UUID, customers []billing.Customer, invoices []billing.Invoice, payments []billing.Payment, today time.Time) *Statement {
	customer, ok := billing.FindCustomer(customers, customerID)
	if !ok {
		return nil
	}

	var children []billing.Customer

	for _, c := range customers {
		if c.ParentCompanyID != nil && *c.ParentCompanyID == customerID && c.BillToParent {
			children = append(children, c)
		}
	}

	scope := ledger.BillingScope(customerID, customers)

	var scoped []billing.Invoice

	for _, inv := range invoices {
		if scope[inv.CustomerID] && inv.Status != billing.InvoiceDraft {
			scoped = append(scoped, inv)
		}
	}

	var received []billing.Payment

	for _, p := range payments {
		if p.CustomerID == customerID {
			received = append(received, p)
		}
	}

	transactions, balance := e.runningBalance(scoped, received)
	slices.Reverse(transactions)

	return &Statement{
		Customer:       *customer,
		ChildCustomers: children,
		Transactions:   transactions,
		Aging:          e.age(scoped, payments, today),
		TotalBalance:   billing.Round2(balance),
	}
}

type entry struct {
	date    time.Time
	invoice *billing.Invoice
	payment *billing.Payment
}

// runningBalance merges invoices and payments in ascending date order and
// accumulates the balance. Same-day invoices precede same-day payments.
func (e *Engine) runningBalance(invoices []billing.Invoice, payments []billing.Payment) ([]Transaction, float64) {
	entries := make([]entry, 0, len(invoices)+len(payments))
	for i := range invoices {
		entries = append(entries, entry{date: billing.Day(invoices[i].Date), invoice: &invoices[i]})
	}

	for i := range payments {
		entries = append(entries, entry{date: billing.Day(payments[i].Date), payment: &payments[i]})
	}

	slices.SortStableFunc(entries, func(a, b entry) int {
		if c := a.date.Compare(b.date); c != 0 {
			return c
		}

		return cmp.Compare(rank(a), rank(b))
	})

	var balance float64

	transactions := make([]Transaction, 0, len(entries))

	for _, en := range entries {
		if en.invoice != nil {
			total := e.ledger.Total(en.invoice)
			balance += total
			transactions = append(transactions, Transaction{
				Kind:       KindInvoice,
				ID:         en.invoice.ID,
				CustomerID: en.invoice.CustomerID,
				Date:       en.date,
				Reference:  en.invoice.InvoiceNumber,
				Debit:      total,
				Balance:    balance,
			})

			continue
		}

		balance -= en.payment.TotalAmount
		transactions = append(transactions, Transaction{
			Kind:       KindPayment,
			ID:         en.payment.ID,
			CustomerID: en.payment.CustomerID,
			Date:       en.date,
			Reference:  en.payment.Reference,
			Credit:     en.payment.TotalAmount,
			Balance:    balance,
		})
	}

	return transactions, balance
}

func rank(e entry) int {
	if e.invoice != nil {
		return 0
	}

	return 1
}

// age buckets the balance due of each scoped invoice. It is computed
// independently from the running balance.
func (e *Engine) age(invoices []billing.Invoice, payments []billing.Payment, today time.Time) Aging {
	var aging Aging

	for i := range invoices {
		inv := &invoices[i]

		due := e.ledger.BalanceDue(inv, payments)
		// Skipped residues leave TotalBalance above Aging.Total() by at most AgingEpsilon per invoice.
		if due <= billing.AgingEpsilon {
			continue
		}

		aging.add(billing.DaysBetween(inv.AgingDate(), today), due)
	}

	return aging.rounded()
}
