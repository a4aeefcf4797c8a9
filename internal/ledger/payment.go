package ledger

import (
	"time"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/tally/internal/billing"
)

// PaymentDetails are the header fields of a payment being recorded.
type PaymentDetails struct {
	CustomerID  uuid.UUID
	Date        time.Time
	TotalAmount float64
	Method      string
	Reference   string
}

// RecordPayment builds a payment from its header and allocations. Zero-amount
// allocations are dropped. The caller validates with ValidatePayment first.
func RecordPayment(details PaymentDetails, allocations []billing.PaymentAllocation) billing.Payment {
	kept := make([]billing.PaymentAllocation, 0, len(allocations))
	for _, a := range allocations {
		if a.Amount == 0 {
			continue
		}

		kept = append(kept, a)
	}

	return billing.Payment{
		CustomerID:  details.CustomerID,
		Date:        billing.Day(details.Date),
		TotalAmount: details.TotalAmount,
		Method:      details.Method,
		Reference:   details.Reference,
		Allocations: kept,
	}
}

// PaymentCheck is everything ValidatePayment needs. Payment.ID is the id of
// the payment being edited, or uuid.Nil for a new payment.
type PaymentCheck struct {
	Payment   billing.Payment
	Customers []billing.Customer
	Invoices  []billing.Invoice
	Payments  []billing.Payment
}

// ValidatePayment enforces the allocation invariants. It returns a
// *billing.ValidationError describing the first violation found.
func (l *Ledger) ValidatePayment(c PaymentCheck) error {
	p := c.Payment

	if _, ok := billing.FindCustomer(c.Customers, p.CustomerID); !ok {
		return billing.Invalid(billing.CodeUnknownCustomer, "customer %s does not exist", p.CustomerID)
	}

	if p.TotalAmount <= 0 {
		return billing.Invalid(billing.CodeInvalidAmount, "payment amount must be greater than zero")
	}

	var allocated float64

	perInvoice := make(map[uuid.UUID]float64, len(p.Allocations))
	order := make([]uuid.UUID, 0, len(p.Allocations))

	for _, a := range p.Allocations {
		if a.Amount < 0 {
			return billing.Invalid(billing.CodeNegativeAllocation, "allocation to invoice %s is negative", a.InvoiceID)
		}

		if _, seen := perInvoice[a.InvoiceID]; !seen {
			order = append(order, a.InvoiceID)
		}

		perInvoice[a.InvoiceID] += a.Amount
		allocated += a.Amount
	}

	if !billing.AmountsEqual(allocated, p.TotalAmount) {
		return billing.Invalid(billing.CodeUnallocatedAmount,
			"allocations total %.2f but payment amount is %.2f (unallocated %.2f)",
			allocated, p.TotalAmount, p.TotalAmount-allocated)
	}

	scope := BillingScope(p.CustomerID, c.Customers)
	others := OtherPayments(c.Payments, p.ID)

	for _, id := range order {
		amount := perInvoice[id]
		if amount == 0 {
			continue
		}

		inv, ok := billing.FindInvoice(c.Invoices, id)
		if !ok {
			return billing.Invalid(billing.CodeUnknownInvoice, "invoice %s does not exist", id)
		}

		if inv.Status == billing.InvoiceDraft {
			return billing.Invalid(billing.CodeInvoiceNotOpen, "invoice %s is a draft and cannot receive payments", label(inv))
		}

		if !scope[inv.CustomerID] {
			return billing.Invalid(billing.CodeInvoiceWrongCustomer, "invoice %s is not billed to this customer", label(inv))
		}

		balance := l.BalanceDue(inv, others)
		if amount > balance+billing.Epsilon {
			return billing.Invalid(billing.CodeOverAllocation,
				"allocation of %.2f to invoice %s exceeds its balance due of %.2f", amount, label(inv), balance)
		}
	}

	return nil
}

func label(inv *billing.Invoice) string {
	if inv.InvoiceNumber != "" {
		return inv.InvoiceNumber
	}

	return inv.ID.String()
}

// StatusChange is a recomputed invoice status that differs from the stored one.
type StatusChange struct {
	InvoiceID uuid.UUID
	From      billing.InvoiceStatus
	To        billing.InvoiceStatus
}

// TouchedInvoices returns the union of invoice ids referenced by the old and
// new allocation sets, in first-seen order. Either payment may be nil.
func TouchedInvoices(before, after *billing.Payment) []uuid.UUID {
	seen := make(map[uuid.UUID]bool)

	var ids []uuid.UUID

	for _, p := range []*billing.Payment{before, after} {
		if p == nil {
			continue
		}

		for _, a := range p.Allocations {
			if seen[a.InvoiceID] {
				continue
			}

			seen[a.InvoiceID] = true
			ids = append(ids, a.InvoiceID)
		}
	}

	return ids
}

// Reconcile recomputes the status of each touched invoice against the
// payments snapshot and returns the ones that changed.
func (l *Ledger) Reconcile(invoices []billing.Invoice, payments []billing.Payment, touched []uuid.UUID) []StatusChange {
	var changes []StatusChange

	for _, id := range touched {
		inv, ok := billing.FindInvoice(invoices, id)
		if !ok {
			continue
		}

		next := l.DeriveStatus(inv, payments)
		if next == inv.Status {
			continue
		}

		changes = append(changes, StatusChange{InvoiceID: id, From: inv.Status, To: next})
	}

	return changes
}

// ReplacePayment returns a copy of the snapshot with p inserted, or replacing
// the payment with the same id.
func ReplacePayment(payments []billing.Payment, p billing.Payment) []billing.Payment {
	out := OtherPayments(payments, p.ID)
	return append(out, p)
}
