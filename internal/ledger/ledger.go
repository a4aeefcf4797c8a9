// Package ledger turns invoices and payments into totals, balances and
// invoice statuses, and guards the invariants of payment allocation.
//
// Every function here is pure: it works on snapshots supplied by the caller
// and never performs I/O.
package ledger

import (
	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/tally/internal/billing"
)

// DefaultVATRate is the flat VAT rate applied when none is configured.
const DefaultVATRate = 0.15

// Ledger carries the process-wide VAT rate.
type Ledger struct {
	vatRate float64
}

func New(vatRate float64) *Ledger {
	return &Ledger{vatRate: vatRate}
}

func (l *Ledger) VATRate() float64 { return l.vatRate }

// Subtotal is the sum of the line amounts plus shipping, before tax.
func (l *Ledger) Subtotal(doc billing.Document) float64 {
	var items float64
	for _, it := range doc.LineItems() {
		items += it.Quantity * it.UnitPrice
	}

	return items + doc.ShippingAmount()
}

// Tax is the VAT charged on the subtotal.
func (l *Ledger) Tax(doc billing.Document) float64 {
	return l.Subtotal(doc) * l.vatRate
}

// Total is the grand total of a document. It is not rounded; rounding is left
// to display and to balance calculations.
func (l *Ledger) Total(doc billing.Document) float64 {
	return l.Subtotal(doc) * (1 + l.vatRate)
}

// Paid sums every allocation referencing the invoice across all payments.
func Paid(invoiceID uuid.UUID, payments []billing.Payment) float64 {
	var paid float64

	for _, p := range payments {
		for _, a := range p.Allocations {
			if a.InvoiceID == invoiceID {
				paid += a.Amount
			}
		}
	}

	return paid
}

// BalanceDue is what remains to be paid on an invoice, rounded to cents.
func (l *Ledger) BalanceDue(inv *billing.Invoice, payments []billing.Payment) float64 {
	return billing.Round2(l.Total(inv) - Paid(inv.ID, payments))
}

// DeriveStatus computes the status an invoice should carry given the
// payments recorded against it. Drafts stay drafts: payments never finalize
// an invoice.
func (l *Ledger) DeriveStatus(inv *billing.Invoice, payments []billing.Payment) billing.InvoiceStatus {
	paid := Paid(inv.ID, payments)
	balance := billing.Round2(l.Total(inv) - paid)

	switch {
	case balance <= billing.Epsilon && paid > 0:
		return billing.InvoicePaid
	case paid > 0:
		return billing.InvoicePartiallyPaid
	case inv.Status != billing.InvoiceDraft:
		return billing.InvoiceFinalized
	default:
		return inv.Status
	}
}

// OtherPayments returns the snapshot without the payment being edited, so
// balances are not double counted during an edit.
func OtherPayments(payments []billing.Payment, exclude uuid.UUID) []billing.Payment {
	others := make([]billing.Payment, 0, len(payments))
	for _, p := range payments {
		if p.ID == exclude {
			continue
		}

		others = append(others, p)
	}

	return others
}

// BillPayer returns the customer that pays for c: its parent when c bills to
// parent, otherwise c itself.
func BillPayer(c *billing.Customer, customers []billing.Customer) *billing.Customer {
	if !c.BillToParent || c.ParentCompanyID == nil {
		return c
	}

	parent, ok := billing.FindCustomer(customers, *c.ParentCompanyID)
	if !ok {
		return c
	}

	return parent
}

// BillingScope is the set of customer ids whose invoices are billed to
// customerID: the customer and its bill-to-parent children, one level deep.
func BillingScope(customerID uuid.UUID, customers []billing.Customer) map[uuid.UUID]bool {
	scope := map[uuid.UUID]bool{customerID: true}

	for _, c := range customers {
		if c.ParentCompanyID != nil && *c.ParentCompanyID == customerID && c.BillToParent {
			scope[c.ID] = true
		}
	}

	return scope
}
