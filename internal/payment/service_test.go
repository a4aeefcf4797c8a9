package payment_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/MrJamesThe3rd/tally/internal/billing"
	"github.com/MrJamesThe3rd/tally/internal/ledger"
	"github.com/MrJamesThe3rd/tally/internal/payment"
)

func date(y, m, d int) time.Time {
	return time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
}

// invoiceOf builds a finalized invoice whose VAT-inclusive total is total.
func invoiceOf(customerID uuid.UUID, total float64, status billing.InvoiceStatus) billing.Invoice {
	return billing.Invoice{
		ID:            uuid.New(),
		InvoiceNumber: "INV-" + uuid.NewString()[:6],
		CustomerID:    customerID,
		Date:          date(2026, 1, 10),
		Items:         []billing.LineItem{{Quantity: 1, UnitPrice: total / 1.15}},
		Status:        status,
	}
}

type fixture struct {
	ctrl *gomock.Controller
	repo *payment.MockRepository
	ltx  *payment.MockLedgerTx
	svc  *payment.Service
}

func newFixture(t *testing.T, snap *billing.Snapshot) *fixture {
	t.Helper()

	ctrl := gomock.NewController(t)
	repo := payment.NewMockRepository(ctrl)
	ltx := payment.NewMockLedgerTx(ctrl)

	repo.EXPECT().BeginLedger(gomock.Any()).Return(ltx, nil)
	ltx.EXPECT().Snapshot(gomock.Any()).Return(snap, nil)
	ltx.EXPECT().Rollback().Return(nil)

	return &fixture{
		ctrl: ctrl,
		repo: repo,
		ltx:  ltx,
		svc:  payment.NewService(repo, ledger.New(ledger.DefaultVATRate)),
	}
}

func TestService_Record(t *testing.T) {
	customerID := uuid.New()
	inv := invoiceOf(customerID, 1000, billing.InvoiceFinalized)
	snap := &billing.Snapshot{
		Customers: []billing.Customer{{ID: customerID, Type: billing.CustomerB2B}},
		Invoices:  []billing.Invoice{inv},
	}

	f := newFixture(t, snap)
	defer f.ctrl.Finish()

	f.ltx.EXPECT().
		CreatePayment(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, p *billing.Payment) error {
			p.ID = uuid.New()
			return nil
		})
	f.ltx.EXPECT().UpdateInvoiceStatus(gomock.Any(), inv.ID, billing.InvoicePaid).Return(nil)
	f.ltx.EXPECT().Commit().Return(nil)

	got, err := f.svc.Record(context.Background(), payment.Params{
		CustomerID:  customerID,
		Date:        date(2026, 2, 1),
		TotalAmount: 1000,
		Method:      "transfer",
		Allocations: []billing.PaymentAllocation{{InvoiceID: inv.ID, Amount: 1000}},
	})
	require.NoError(t, err)

	assert.NotEqual(t, uuid.Nil, got.Payment.ID)
	require.Len(t, got.StatusChanges, 1)
	assert.Equal(t, billing.InvoiceFinalized, got.StatusChanges[0].From)
	assert.Equal(t, billing.InvoicePaid, got.StatusChanges[0].To)
}

func TestService_Record_ValidationFailureWritesNothing(t *testing.T) {
	customerID := uuid.New()
	inv := invoiceOf(customerID, 500, billing.InvoiceFinalized)

	type testCase struct {
		name     string
		params   payment.Params
		wantCode billing.Code
	}

	tests := []testCase{
		{
			name: "OverAllocation",
			params: payment.Params{
				CustomerID:  customerID,
				TotalAmount: 600,
				Allocations: []billing.PaymentAllocation{{InvoiceID: inv.ID, Amount: 600}},
			},
			wantCode: billing.CodeOverAllocation,
		},
		{
			name: "Unallocated",
			params: payment.Params{
				CustomerID:  customerID,
				TotalAmount: 500,
				Allocations: []billing.PaymentAllocation{{InvoiceID: inv.ID, Amount: 300}},
			},
			wantCode: billing.CodeUnallocatedAmount,
		},
		{
			name: "UnknownCustomer",
			params: payment.Params{
				CustomerID:  uuid.New(),
				TotalAmount: 100,
				Allocations: []billing.PaymentAllocation{{InvoiceID: inv.ID, Amount: 100}},
			},
			wantCode: billing.CodeUnknownCustomer,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, &billing.Snapshot{
				Customers: []billing.Customer{{ID: customerID}},
				Invoices:  []billing.Invoice{inv},
			})
			defer f.ctrl.Finish()

			got, err := f.svc.Record(context.Background(), tt.params)
			assert.Nil(t, got)

			ve, ok := billing.AsValidation(err)
			require.True(t, ok)
			assert.Equal(t, tt.wantCode, ve.Code)
		})
	}
}

func TestService_Record_ChildPaymentGoesToBillPayer(t *testing.T) {
	parentID := uuid.New()
	childID := uuid.New()
	inv := invoiceOf(childID, 200, billing.InvoiceFinalized)

	f := newFixture(t, &billing.Snapshot{
		Customers: []billing.Customer{
			{ID: parentID},
			{ID: childID, ParentCompanyID: &parentID, BillToParent: true},
		},
		Invoices: []billing.Invoice{inv},
	})
	defer f.ctrl.Finish()

	f.ltx.EXPECT().
		CreatePayment(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, p *billing.Payment) error {
			assert.Equal(t, parentID, p.CustomerID)
			p.ID = uuid.New()
			return nil
		})
	f.ltx.EXPECT().UpdateInvoiceStatus(gomock.Any(), inv.ID, billing.InvoicePartiallyPaid).Return(nil)
	f.ltx.EXPECT().Commit().Return(nil)

	got, err := f.svc.Record(context.Background(), payment.Params{
		CustomerID:  childID,
		TotalAmount: 50,
		Allocations: []billing.PaymentAllocation{{InvoiceID: inv.ID, Amount: 50}},
	})
	require.NoError(t, err)
	assert.Equal(t, parentID, got.Payment.CustomerID)
}

func TestService_Record_CommitError(t *testing.T) {
	customerID := uuid.New()
	inv := invoiceOf(customerID, 100, billing.InvoiceFinalized)

	f := newFixture(t, &billing.Snapshot{
		Customers: []billing.Customer{{ID: customerID}},
		Invoices:  []billing.Invoice{inv},
	})
	defer f.ctrl.Finish()

	f.ltx.EXPECT().CreatePayment(gomock.Any(), gomock.Any()).Return(nil)
	f.ltx.EXPECT().UpdateInvoiceStatus(gomock.Any(), inv.ID, billing.InvoicePaid).Return(nil)
	f.ltx.EXPECT().Commit().Return(errors.New("serialization failure"))

	_, err := f.svc.Record(context.Background(), payment.Params{
		CustomerID:  customerID,
		TotalAmount: 100,
		Allocations: []billing.PaymentAllocation{{InvoiceID: inv.ID, Amount: 100}},
	})
	assert.Error(t, err)
}

func TestService_Edit_PaidBackToPartial(t *testing.T) {
	customerID := uuid.New()
	inv := invoiceOf(customerID, 1000, billing.InvoicePaid)
	existing := billing.Payment{
		ID:          uuid.New(),
		CustomerID:  customerID,
		Date:        date(2026, 2, 1),
		TotalAmount: 1000,
		Allocations: []billing.PaymentAllocation{{InvoiceID: inv.ID, Amount: 1000}},
	}

	f := newFixture(t, &billing.Snapshot{
		Customers: []billing.Customer{{ID: customerID}},
		Invoices:  []billing.Invoice{inv},
		Payments:  []billing.Payment{existing},
	})
	defer f.ctrl.Finish()

	f.ltx.EXPECT().
		UpdatePayment(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, p *billing.Payment) error {
			assert.Equal(t, existing.ID, p.ID)
			assert.InDelta(t, 400.0, p.TotalAmount, 1e-9)
			return nil
		})
	f.ltx.EXPECT().UpdateInvoiceStatus(gomock.Any(), inv.ID, billing.InvoicePartiallyPaid).Return(nil)
	f.ltx.EXPECT().Commit().Return(nil)

	got, err := f.svc.Edit(context.Background(), existing.ID, payment.Params{
		CustomerID:  customerID,
		Date:        date(2026, 2, 1),
		TotalAmount: 400,
		Allocations: []billing.PaymentAllocation{{InvoiceID: inv.ID, Amount: 400}},
	})
	require.NoError(t, err)
	require.Len(t, got.StatusChanges, 1)
	assert.Equal(t, billing.InvoicePartiallyPaid, got.StatusChanges[0].To)
}

func TestService_Edit_RecomputesOldAndNewInvoices(t *testing.T) {
	customerID := uuid.New()
	first := invoiceOf(customerID, 1000, billing.InvoicePaid)
	second := invoiceOf(customerID, 1000, billing.InvoiceFinalized)
	existing := billing.Payment{
		ID:          uuid.New(),
		CustomerID:  customerID,
		TotalAmount: 1000,
		Allocations: []billing.PaymentAllocation{{InvoiceID: first.ID, Amount: 1000}},
	}

	f := newFixture(t, &billing.Snapshot{
		Customers: []billing.Customer{{ID: customerID}},
		Invoices:  []billing.Invoice{first, second},
		Payments:  []billing.Payment{existing},
	})
	defer f.ctrl.Finish()

	f.ltx.EXPECT().UpdatePayment(gomock.Any(), gomock.Any()).Return(nil)
	f.ltx.EXPECT().UpdateInvoiceStatus(gomock.Any(), first.ID, billing.InvoiceFinalized).Return(nil)
	f.ltx.EXPECT().UpdateInvoiceStatus(gomock.Any(), second.ID, billing.InvoicePartiallyPaid).Return(nil)
	f.ltx.EXPECT().Commit().Return(nil)

	got, err := f.svc.Edit(context.Background(), existing.ID, payment.Params{
		CustomerID:  customerID,
		TotalAmount: 400,
		Allocations: []billing.PaymentAllocation{{InvoiceID: second.ID, Amount: 400}},
	})
	require.NoError(t, err)
	assert.Len(t, got.StatusChanges, 2)
}

func TestService_Edit_CanReuseOwnAllocation(t *testing.T) {
	customerID := uuid.New()
	inv := invoiceOf(customerID, 1000, billing.InvoicePaid)
	existing := billing.Payment{
		ID:          uuid.New(),
		CustomerID:  customerID,
		TotalAmount: 1000,
		Allocations: []billing.PaymentAllocation{{InvoiceID: inv.ID, Amount: 1000}},
	}

	f := newFixture(t, &billing.Snapshot{
		Customers: []billing.Customer{{ID: customerID}},
		Invoices:  []billing.Invoice{inv},
		Payments:  []billing.Payment{existing},
	})
	defer f.ctrl.Finish()

	f.ltx.EXPECT().UpdatePayment(gomock.Any(), gomock.Any()).Return(nil)
	f.ltx.EXPECT().Commit().Return(nil)

	got, err := f.svc.Edit(context.Background(), existing.ID, payment.Params{
		CustomerID:  customerID,
		TotalAmount: 1000,
		Reference:   "corrected reference",
		Allocations: []billing.PaymentAllocation{{InvoiceID: inv.ID, Amount: 1000}},
	})
	require.NoError(t, err)
	assert.Empty(t, got.StatusChanges)
}

func TestService_Edit_NotFound(t *testing.T) {
	f := newFixture(t, &billing.Snapshot{})
	defer f.ctrl.Finish()

	_, err := f.svc.Edit(context.Background(), uuid.New(), payment.Params{TotalAmount: 1})
	assert.ErrorIs(t, err, billing.ErrNotFound)
}

func TestService_Delete(t *testing.T) {
	customerID := uuid.New()
	inv := invoiceOf(customerID, 1000, billing.InvoicePartiallyPaid)
	existing := billing.Payment{
		ID:          uuid.New(),
		CustomerID:  customerID,
		TotalAmount: 400,
		Allocations: []billing.PaymentAllocation{{InvoiceID: inv.ID, Amount: 400}},
	}

	f := newFixture(t, &billing.Snapshot{
		Customers: []billing.Customer{{ID: customerID}},
		Invoices:  []billing.Invoice{inv},
		Payments:  []billing.Payment{existing},
	})
	defer f.ctrl.Finish()

	f.ltx.EXPECT().DeletePayment(gomock.Any(), existing.ID).Return(nil)
	f.ltx.EXPECT().UpdateInvoiceStatus(gomock.Any(), inv.ID, billing.InvoiceFinalized).Return(nil)
	f.ltx.EXPECT().Commit().Return(nil)

	changes, err := f.svc.Delete(context.Background(), existing.ID)
	require.NoError(t, err)
	require.Len(t, changes, 1)
	assert.Equal(t, billing.InvoiceFinalized, changes[0].To)
}

func TestService_Delete_StatusWriteErrorAborts(t *testing.T) {
	customerID := uuid.New()
	inv := invoiceOf(customerID, 1000, billing.InvoicePartiallyPaid)
	existing := billing.Payment{
		ID:          uuid.New(),
		CustomerID:  customerID,
		TotalAmount: 400,
		Allocations: []billing.PaymentAllocation{{InvoiceID: inv.ID, Amount: 400}},
	}

	f := newFixture(t, &billing.Snapshot{
		Customers: []billing.Customer{{ID: customerID}},
		Invoices:  []billing.Invoice{inv},
		Payments:  []billing.Payment{existing},
	})
	defer f.ctrl.Finish()

	f.ltx.EXPECT().DeletePayment(gomock.Any(), existing.ID).Return(nil)
	f.ltx.EXPECT().UpdateInvoiceStatus(gomock.Any(), inv.ID, billing.InvoiceFinalized).Return(errors.New("db error"))

	_, err := f.svc.Delete(context.Background(), existing.ID)
	assert.Error(t, err)
}

func TestService_List(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	customerID := uuid.New()
	filter := payment.ListFilter{CustomerID: &customerID}

	repo := payment.NewMockRepository(ctrl)
	repo.EXPECT().ListPayments(gomock.Any(), filter).Return([]billing.Payment{{ID: uuid.New()}}, nil)

	svc := payment.NewService(repo, ledger.New(ledger.DefaultVATRate))
	got, err := svc.List(context.Background(), filter)
	require.NoError(t, err)
	assert.Len(t, got, 1)
}
