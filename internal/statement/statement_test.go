package statement_test

import (
	"math/rand/v2"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrJamesThe3rd/tally/internal/billing"
	"github.com/MrJamesThe3rd/tally/internal/ledger"
	"github.com/MrJamesThe3rd/tally/internal/statement"
)

func date(y, m, d int) time.Time {
	return time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
}

// invoice returns a finalized invoice totalling 115 at 15% VAT.
func invoice(customerID uuid.UUID, on time.Time) billing.Invoice {
	return billing.Invoice{
		ID:            uuid.New(),
		InvoiceNumber: "INV-" + uuid.NewString()[:6],
		CustomerID:    customerID,
		Date:          on,
		Status:        billing.InvoiceFinalized,
		Items:         []billing.LineItem{{ID: uuid.New(), Quantity: 1, UnitPrice: 100}},
	}
}

func dueOn(inv billing.Invoice, due time.Time) billing.Invoice {
	inv.DueDate = &due
	return inv
}

func payment(customerID uuid.UUID, on time.Time, invoiceID uuid.UUID, amount float64) billing.Payment {
	return billing.Payment{
		ID:          uuid.New(),
		CustomerID:  customerID,
		Date:        on,
		TotalAmount: amount,
		Reference:   "TRF",
		Allocations: []billing.PaymentAllocation{{InvoiceID: invoiceID, Amount: amount}},
	}
}

func TestEngine_Build_AgingBuckets(t *testing.T) {
	engine := statement.NewEngine(ledger.New(0.15))
	today := date(2026, 5, 1)
	c := billing.Customer{ID: uuid.New(), Name: "Acme", Type: billing.CustomerB2B}

	invoices := []billing.Invoice{
		dueOn(invoice(c.ID, date(2026, 1, 1)), today),                    // 0 days
		dueOn(invoice(c.ID, date(2026, 1, 1)), today.AddDate(0, 0, 5)),   // not yet due
		dueOn(invoice(c.ID, date(2026, 1, 1)), today.AddDate(0, 0, -30)), // 30
		dueOn(invoice(c.ID, date(2026, 1, 1)), today.AddDate(0, 0, -31)), // 31
		dueOn(invoice(c.ID, date(2026, 1, 1)), today.AddDate(0, 0, -61)), // 61
		dueOn(invoice(c.ID, date(2026, 1, 1)), today.AddDate(0, 0, -91)), // 91
	}

	st := engine.Build(c.ID, []billing.Customer{c}, invoices, nil, today)
	require.NotNil(t, st)

	assert.Equal(t, statement.Aging{
		Current:     230,
		Days30:      115,
		Days60:      115,
		Days90:      115,
		Days120Plus: 115,
	}, st.Aging)
	assert.Equal(t, 690.0, st.TotalBalance)
	assert.InDelta(t, st.TotalBalance, st.Aging.Total(), billing.AgingEpsilon)
}

func TestEngine_Build_AgesFromInvoiceDateWithoutDueDate(t *testing.T) {
	engine := statement.NewEngine(ledger.New(0.15))
	c := billing.Customer{ID: uuid.New(), Type: billing.CustomerB2B}

	st := engine.Build(c.ID, []billing.Customer{c}, []billing.Invoice{invoice(c.ID, date(2026, 3, 1))}, nil, date(2026, 4, 15))
	require.NotNil(t, st)

	assert.Equal(t, 115.0, st.Aging.Days60)
	assert.Equal(t, 115.0, st.Aging.Overdue())
}

func TestEngine_Build_ParentMergesBillToParentChildren(t *testing.T) {
	engine := statement.NewEngine(ledger.New(0.15))

	parent := billing.Customer{ID: uuid.New(), Name: "Holding", Type: billing.CustomerB2B}
	child := billing.Customer{ID: uuid.New(), Name: "Store", Type: billing.CustomerB2B, ParentCompanyID: &parent.ID, BillToParent: true}
	independent := billing.Customer{ID: uuid.New(), Name: "Branch", Type: billing.CustomerB2B, ParentCompanyID: &parent.ID}
	customers := []billing.Customer{parent, child, independent}

	parentInv := invoice(parent.ID, date(2026, 1, 10))
	childInv := invoice(child.ID, date(2026, 1, 12))
	branchInv := invoice(independent.ID, date(2026, 1, 11))
	draft := invoice(parent.ID, date(2026, 1, 11))
	draft.Status = billing.InvoiceDraft

	// Same-day payment must be listed after the invoice it follows.
	paid := payment(parent.ID, date(2026, 1, 12), childInv.ID, 50)
	branchPaid := payment(independent.ID, date(2026, 1, 13), branchInv.ID, 115)

	st := engine.Build(parent.ID, customers,
		[]billing.Invoice{parentInv, childInv, branchInv, draft},
		[]billing.Payment{paid, branchPaid},
		date(2026, 1, 20))
	require.NotNil(t, st)

	assert.Equal(t, []billing.Customer{child}, st.ChildCustomers)
	require.Len(t, st.Transactions, 3)

	// Most recent first.
	assert.Equal(t, statement.KindPayment, st.Transactions[0].Kind)
	assert.Equal(t, paid.ID, st.Transactions[0].ID)
	assert.InDelta(t, 180, st.Transactions[0].Balance, 1e-9)
	assert.Equal(t, 50.0, st.Transactions[0].Credit)

	assert.Equal(t, childInv.ID, st.Transactions[1].ID)
	assert.Equal(t, child.ID, st.Transactions[1].CustomerID)
	assert.InDelta(t, 230, st.Transactions[1].Balance, 1e-9)

	assert.Equal(t, parentInv.ID, st.Transactions[2].ID)
	assert.InDelta(t, 115, st.Transactions[2].Debit, 1e-9)
	assert.InDelta(t, 115, st.Transactions[2].Balance, 1e-9)

	assert.Equal(t, 180.0, st.TotalBalance)
	assert.Equal(t, 180.0, st.Aging.Days30)
	assert.InDelta(t, st.TotalBalance, st.Aging.Total(), billing.AgingEpsilon)
}

func TestEngine_Build_PaidInvoicesDropOutOfAging(t *testing.T) {
	engine := statement.NewEngine(ledger.New(0.15))
	c := billing.Customer{ID: uuid.New(), Type: billing.CustomerB2B}

	inv := invoice(c.ID, date(2026, 1, 1))
	inv.Status = billing.InvoicePaid

	st := engine.Build(c.ID, []billing.Customer{c},
		[]billing.Invoice{inv},
		[]billing.Payment{payment(c.ID, date(2026, 1, 5), inv.ID, 115)},
		date(2026, 6, 1))
	require.NotNil(t, st)

	assert.Equal(t, statement.Aging{}, st.Aging)
	assert.Equal(t, 0.0, st.TotalBalance)
	assert.Len(t, st.Transactions, 2)
}

func TestEngine_Build_UnknownCustomer(t *testing.T) {
	engine := statement.NewEngine(ledger.New(0.15))

	assert.Nil(t, engine.Build(uuid.New(), nil, nil, nil, date(2026, 1, 1)))
}

func TestSummarize(t *testing.T) {
	statements := []*statement.Statement{
		{TotalBalance: 300, Aging: statement.Aging{Current: 100, Days30: 200}},
		{TotalBalance: 50, Aging: statement.Aging{Current: 50}},
		{TotalBalance: 0},
		nil,
	}

	got := statement.Summarize(statements)

	assert.Equal(t, 350.0, got.TotalOutstanding)
	assert.Equal(t, 150.0, got.TotalCurrent)
	assert.Equal(t, 200.0, got.TotalOverdue)
	assert.Equal(t, 2, got.CustomersWithDebt)
	assert.Equal(t, 1, got.CustomersOverdue)
	assert.Equal(t, statement.Aging{Current: 150, Days30: 200}, got.Aging)
}

func TestRoots(t *testing.T) {
	parent := billing.Customer{ID: uuid.New(), Name: "Holding"}
	missing := uuid.New()

	customers := []billing.Customer{
		parent,
		{ID: uuid.New(), Name: "Billed", ParentCompanyID: &parent.ID, BillToParent: true},
		{ID: uuid.New(), Name: "Branch", ParentCompanyID: &parent.ID},
		{ID: uuid.New(), Name: "Orphan", ParentCompanyID: &missing, BillToParent: true},
	}

	var names []string
	for _, c := range statement.Roots(customers) {
		names = append(names, c.Name)
	}

	assert.Equal(t, []string{"Holding", "Branch", "Orphan"}, names)
}

func split(customerID uuid.UUID, on time.Time, allocations ...billing.PaymentAllocation) billing.Payment {
	var total float64
	for _, a := range allocations {
		total += a.Amount
	}

	return billing.Payment{
		ID:          uuid.New(),
		CustomerID:  customerID,
		Date:        on,
		TotalAmount: billing.Round2(total),
		Allocations: allocations,
	}
}

func TestEngine_Build_BalanceMatchesAging(t *testing.T) {
	today := date(2026, 5, 1)

	parent := billing.Customer{ID: uuid.New(), Name: "Holding", Type: billing.CustomerB2B}
	child := billing.Customer{ID: uuid.New(), Name: "Store", Type: billing.CustomerB2B, ParentCompanyID: &parent.ID, BillToParent: true}
	customers := []billing.Customer{parent, child}

	old := dueOn(invoice(parent.ID, date(2026, 1, 5)), date(2026, 1, 20))
	mid := dueOn(invoice(parent.ID, date(2026, 3, 1)), date(2026, 3, 15))
	recent := invoice(parent.ID, date(2026, 4, 25))
	childOld := dueOn(invoice(child.ID, date(2026, 2, 1)), date(2026, 2, 10))
	childNew := invoice(child.ID, date(2026, 4, 28))

	odd := invoice(parent.ID, date(2026, 2, 14))
	odd.Items = []billing.LineItem{
		{ID: uuid.New(), Quantity: 3, UnitPrice: 33.33},
		{ID: uuid.New(), Quantity: 0.5, UnitPrice: 19.99},
	}
	odd.Shipping = new(7.5)

	alloc := func(inv billing.Invoice, amount float64) billing.PaymentAllocation {
		return billing.PaymentAllocation{InvoiceID: inv.ID, Amount: amount}
	}

	tests := []struct {
		name     string
		invoices []billing.Invoice
		payments []billing.Payment
		want     float64
	}{
		{
			name:     "PartialPaymentsAtSeveralAges",
			invoices: []billing.Invoice{old, mid, recent},
			payments: []billing.Payment{
				payment(parent.ID, date(2026, 2, 1), old.ID, 40),
				payment(parent.ID, date(2026, 3, 20), mid.ID, 100),
				payment(parent.ID, date(2026, 4, 26), old.ID, 25.5),
			},
			want: 345 - 165.5,
		},
		{
			name:     "OnePaymentSplitAcrossInvoices",
			invoices: []billing.Invoice{old, mid, recent},
			payments: []billing.Payment{
				split(parent.ID, date(2026, 4, 1), alloc(old, 115), alloc(mid, 60), alloc(recent, 0.99)),
			},
			want: 345 - 175.99,
		},
		{
			name:     "BillToParentChildrenPaidByParent",
			invoices: []billing.Invoice{old, childOld, childNew},
			payments: []billing.Payment{
				split(parent.ID, date(2026, 3, 1), alloc(childOld, 115), alloc(old, 15)),
				payment(parent.ID, date(2026, 4, 30), childNew.ID, 57.5),
			},
			want: 345 - 187.5,
		},
		{
			name:     "PaidOffInvoicesMixedWithOpenOnes",
			invoices: []billing.Invoice{old, mid, recent, childOld},
			payments: []billing.Payment{
				payment(parent.ID, date(2026, 1, 30), old.ID, 115),
				split(parent.ID, date(2026, 3, 10), alloc(mid, 115), alloc(childOld, 115)),
			},
			want: 115,
		},
		{
			name:     "FractionalLinesAndShipping",
			invoices: []billing.Invoice{odd, mid},
			payments: []billing.Payment{
				split(parent.ID, date(2026, 3, 2), alloc(odd, 50), alloc(mid, 0.01)),
			},
			want: billing.Round2((3*33.33+0.5*19.99+7.5)*1.15) + 115 - 50.01,
		},
		{
			name:     "EverythingPaid",
			invoices: []billing.Invoice{old, childNew},
			payments: []billing.Payment{
				split(parent.ID, date(2026, 4, 30), alloc(old, 115), alloc(childNew, 115)),
			},
			want: 0,
		},
	}

	engine := statement.NewEngine(ledger.New(0.15))

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := engine.Build(parent.ID, customers, tt.invoices, tt.payments, today)
			require.NotNil(t, st)

			assert.InDelta(t, tt.want, st.TotalBalance, 1e-6)
			assert.InDelta(t, st.TotalBalance, st.Aging.Total(), billing.AgingEpsilon)
			require.NotEmpty(t, st.Transactions)
			assert.InDelta(t, st.TotalBalance, st.Transactions[0].Balance, billing.AgingEpsilon)
		})
	}
}

// Random ledgers whose payments never over-allocate must reconcile too.
func TestEngine_Build_BalanceMatchesAging_Generated(t *testing.T) {
	rng := rand.New(rand.NewPCG(2026, 5))
	l := ledger.New(0.15)
	engine := statement.NewEngine(l)
	today := date(2026, 5, 1)

	// Multiples of 0.20 keep every VAT-inclusive total on whole cents.
	amount := func(lo, hi int) float64 { return float64(20*(lo+rng.IntN(hi-lo+1))) / 100 }

	for round := range 200 {
		parent := billing.Customer{ID: uuid.New(), Type: billing.CustomerB2B}
		child := billing.Customer{ID: uuid.New(), Type: billing.CustomerB2C, ParentCompanyID: &parent.ID, BillToParent: true}
		customers := []billing.Customer{parent, child}

		var invoices []billing.Invoice

		for range 1 + rng.IntN(6) {
			owner := parent.ID
			if rng.IntN(3) == 0 {
				owner = child.ID
			}

			inv := invoice(owner, date(2026, 1, 1).AddDate(0, 0, rng.IntN(120)))
			inv.Items = []billing.LineItem{{ID: uuid.New(), Quantity: float64(1 + rng.IntN(5)), UnitPrice: amount(1, 2500)}}

			if rng.IntN(2) == 0 {
				inv = dueOn(inv, inv.Date.AddDate(0, 0, rng.IntN(60)))
			}

			if rng.IntN(3) == 0 {
				inv.Shipping = new(amount(0, 125))
			}

			invoices = append(invoices, inv)
		}

		var payments []billing.Payment

		for range rng.IntN(5) {
			var allocations []billing.PaymentAllocation

			for _, i := range rng.Perm(len(invoices))[:1+rng.IntN(len(invoices))] {
				due := l.BalanceDue(&invoices[i], payments)
				if due <= 0 {
					continue
				}

				paid := due
				if rng.IntN(2) == 0 && due > 1 {
					paid = billing.Round2(due * rng.Float64() * 0.9)
				}

				if paid <= 0 {
					continue
				}

				allocations = append(allocations, billing.PaymentAllocation{InvoiceID: invoices[i].ID, Amount: paid})
			}

			if len(allocations) > 0 {
				payments = append(payments, split(parent.ID, date(2026, 1, 1).AddDate(0, 0, rng.IntN(120)), allocations...))
			}
		}

		st := engine.Build(parent.ID, customers, invoices, payments, today)
		require.NotNil(t, st)

		if !assert.InDelta(t, st.TotalBalance, st.Aging.Total(), billing.AgingEpsilon, "round %d", round) {
			return
		}
	}
}
