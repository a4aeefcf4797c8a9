package invoice_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/MrJamesThe3rd/tally/internal/billing"
	"github.com/MrJamesThe3rd/tally/internal/invoice"
	"github.com/MrJamesThe3rd/tally/internal/ledger"
	"github.com/MrJamesThe3rd/tally/internal/payment"
	"github.com/MrJamesThe3rd/tally/internal/pricing"
)

var today = time.Date(2026, 4, 15, 9, 30, 0, 0, time.UTC)

type mocks struct {
	repo      *invoice.MockRepository
	customers *invoice.MockCustomerFinder
	pricer    *invoice.MockPricer
	payments  *invoice.MockPaymentLister
}

func newService(t *testing.T) (*invoice.Service, mocks) {
	t.Helper()

	ctrl := gomock.NewController(t)
	m := mocks{
		repo:      invoice.NewMockRepository(ctrl),
		customers: invoice.NewMockCustomerFinder(ctrl),
		pricer:    invoice.NewMockPricer(ctrl),
		payments:  invoice.NewMockPaymentLister(ctrl),
	}

	svc := invoice.NewService(m.repo, m.customers, m.pricer, m.payments, ledger.New(ledger.DefaultVATRate),
		invoice.WithClock(func() time.Time { return today }))

	return svc, m
}

func ptr[T any](v T) *T { return &v }

func TestService_CreateDraft(t *testing.T) {
	customerID := uuid.New()
	hose := uuid.New()
	tap := uuid.New()

	type testCase struct {
		name      string
		params    invoice.DraftParams
		setupMock func(m mocks)
		verify    func(t *testing.T, inv *billing.Invoice)
		wantCode  billing.Code
	}

	tests := []testCase{
		{
			name: "SnapshotsResolvedPrices",
			params: invoice.DraftParams{
				CustomerID: customerID,
				Lines: []invoice.LineParams{
					{ProductID: hose, Quantity: 2},
					{ProductID: tap, Quantity: 1, UnitPrice: ptr(5.0), Description: "Tap, discounted"},
				},
				Shipping: ptr(50.0),
			},
			setupMock: func(m mocks) {
				m.customers.EXPECT().GetCustomer(gomock.Any(), customerID).Return(&billing.Customer{ID: customerID}, nil)
				m.pricer.EXPECT().ResolvePrice(gomock.Any(), hose, customerID).
					Return(&pricing.Resolution{Description: "Hose", UnitPrice: 100, HasPrice: true}, nil)
				m.repo.EXPECT().CreateInvoice(gomock.Any(), gomock.Any()).Return(nil)
			},
			verify: func(t *testing.T, inv *billing.Invoice) {
				require.Len(t, inv.Items, 2)
				assert.Equal(t, "Hose", inv.Items[0].Description)
				assert.InDelta(t, 100.0, inv.Items[0].UnitPrice, 1e-9)
				assert.Equal(t, "Tap, discounted", inv.Items[1].Description)
				assert.InDelta(t, 5.0, inv.Items[1].UnitPrice, 1e-9)
				assert.Equal(t, billing.InvoiceDraft, inv.Status)
				assert.Equal(t, billing.Day(today), inv.Date)
				assert.Empty(t, inv.InvoiceNumber)
			},
		},
		{
			name:   "UnknownCustomer",
			params: invoice.DraftParams{CustomerID: customerID},
			setupMock: func(m mocks) {
				m.customers.EXPECT().GetCustomer(gomock.Any(), customerID).Return(nil, billing.ErrNotFound)
			},
			wantCode: billing.CodeUnknownCustomer,
		},
		{
			name: "NoEffectivePrice",
			params: invoice.DraftParams{
				CustomerID: customerID,
				Lines:      []invoice.LineParams{{ProductID: hose, Quantity: 1}},
			},
			setupMock: func(m mocks) {
				m.customers.EXPECT().GetCustomer(gomock.Any(), customerID).Return(&billing.Customer{ID: customerID}, nil)
				m.pricer.EXPECT().ResolvePrice(gomock.Any(), hose, customerID).
					Return(&pricing.Resolution{Description: "Hose"}, nil)
			},
			wantCode: billing.CodeNoPrice,
		},
		{
			name: "ZeroQuantity",
			params: invoice.DraftParams{
				CustomerID: customerID,
				Lines:      []invoice.LineParams{{ProductID: hose}},
			},
			setupMock: func(m mocks) {
				m.customers.EXPECT().GetCustomer(gomock.Any(), customerID).Return(&billing.Customer{ID: customerID}, nil)
			},
			wantCode: billing.CodeInvalidAmount,
		},
		{
			name: "DueBeforeDate",
			params: invoice.DraftParams{
				CustomerID: customerID,
				Date:       time.Date(2026, 4, 10, 0, 0, 0, 0, time.UTC),
				DueDate:    ptr(time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)),
			},
			setupMock: func(m mocks) {
				m.customers.EXPECT().GetCustomer(gomock.Any(), customerID).Return(&billing.Customer{ID: customerID}, nil)
			},
			wantCode: billing.CodeInvalidState,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, m := newService(t)
			if tt.setupMock != nil {
				tt.setupMock(m)
			}

			got, err := svc.CreateDraft(context.Background(), tt.params)

			if tt.wantCode != "" {
				ve, ok := billing.AsValidation(err)
				require.True(t, ok, "expected validation error, got %v", err)
				assert.Equal(t, tt.wantCode, ve.Code)
				assert.Nil(t, got)

				return
			}

			require.NoError(t, err)
			tt.verify(t, got)
		})
	}
}

func TestService_UpdateDraft_RejectsFinalized(t *testing.T) {
	svc, m := newService(t)

	id := uuid.New()
	m.repo.EXPECT().GetInvoice(gomock.Any(), id).
		Return(&billing.Invoice{ID: id, InvoiceNumber: "INV-000001", Status: billing.InvoiceFinalized}, nil)

	_, err := svc.UpdateDraft(context.Background(), id, invoice.DraftParams{})

	ve, ok := billing.AsValidation(err)
	require.True(t, ok)
	assert.Equal(t, billing.CodeInvalidState, ve.Code)
}

func TestService_UpdateDraft_KeepsFrozenPrices(t *testing.T) {
	svc, m := newService(t)

	id, customerID := uuid.New(), uuid.New()
	hose, tap := uuid.New(), uuid.New()
	lineID := uuid.New()

	m.repo.EXPECT().GetInvoice(gomock.Any(), id).Return(&billing.Invoice{
		ID:         id,
		CustomerID: customerID,
		Status:     billing.InvoiceDraft,
		Items: []billing.LineItem{
			{ID: lineID, ProductID: hose, Description: "Hose", Quantity: 1, UnitPrice: 100},
		},
	}, nil)
	m.customers.EXPECT().GetCustomer(gomock.Any(), customerID).Return(&billing.Customer{ID: customerID}, nil)
	m.pricer.EXPECT().ResolvePrice(gomock.Any(), tap, customerID).
		Return(&pricing.Resolution{Description: "Tap", UnitPrice: 20, HasPrice: true}, nil)
	m.repo.EXPECT().UpdateInvoice(gomock.Any(), gomock.Any()).Return(nil)

	got, err := svc.UpdateDraft(context.Background(), id, invoice.DraftParams{
		CustomerID: customerID,
		Lines: []invoice.LineParams{
			{ID: &lineID, ProductID: hose, Quantity: 3},
			{ProductID: tap, Quantity: 1},
		},
		Notes: "deliver on Monday",
	})
	require.NoError(t, err)

	require.Len(t, got.Items, 2)
	assert.Equal(t, lineID, got.Items[0].ID)
	assert.Equal(t, "Hose", got.Items[0].Description)
	assert.InDelta(t, 100.0, got.Items[0].UnitPrice, 1e-9)
	assert.InDelta(t, 3.0, got.Items[0].Quantity, 1e-9)
	assert.InDelta(t, 20.0, got.Items[1].UnitPrice, 1e-9)
	assert.NotEqual(t, lineID, got.Items[1].ID)
}

func TestService_UpdateDraft_ExplicitPriceOverridesKeptLine(t *testing.T) {
	svc, m := newService(t)

	id, customerID, hose, lineID := uuid.New(), uuid.New(), uuid.New(), uuid.New()

	m.repo.EXPECT().GetInvoice(gomock.Any(), id).Return(&billing.Invoice{
		ID:         id,
		CustomerID: customerID,
		Status:     billing.InvoiceDraft,
		Items:      []billing.LineItem{{ID: lineID, ProductID: hose, Description: "Hose", Quantity: 1, UnitPrice: 100}},
	}, nil)
	m.customers.EXPECT().GetCustomer(gomock.Any(), customerID).Return(&billing.Customer{ID: customerID}, nil)
	m.repo.EXPECT().UpdateInvoice(gomock.Any(), gomock.Any()).Return(nil)

	got, err := svc.UpdateDraft(context.Background(), id, invoice.DraftParams{
		CustomerID: customerID,
		Lines:      []invoice.LineParams{{ID: &lineID, ProductID: hose, Quantity: 1, UnitPrice: ptr(90.0)}},
	})
	require.NoError(t, err)

	require.Len(t, got.Items, 1)
	assert.Equal(t, lineID, got.Items[0].ID)
	assert.Equal(t, "Hose", got.Items[0].Description)
	assert.InDelta(t, 90.0, got.Items[0].UnitPrice, 1e-9)
}

func TestService_DeleteDraft(t *testing.T) {
	t.Run("Draft", func(t *testing.T) {
		svc, m := newService(t)

		id := uuid.New()
		m.repo.EXPECT().GetInvoice(gomock.Any(), id).Return(&billing.Invoice{ID: id, Status: billing.InvoiceDraft}, nil)
		m.repo.EXPECT().DeleteInvoice(gomock.Any(), id).Return(nil)

		require.NoError(t, svc.DeleteDraft(context.Background(), id))
	})

	t.Run("Paid", func(t *testing.T) {
		svc, m := newService(t)

		id := uuid.New()
		m.repo.EXPECT().GetInvoice(gomock.Any(), id).Return(&billing.Invoice{ID: id, Status: billing.InvoicePaid}, nil)

		err := svc.DeleteDraft(context.Background(), id)

		ve, ok := billing.AsValidation(err)
		require.True(t, ok)
		assert.Equal(t, billing.CodeInvalidState, ve.Code)
	})
}

func TestService_Finalize(t *testing.T) {
	id := uuid.New()
	items := []billing.LineItem{{Quantity: 1, UnitPrice: 10}}

	type testCase struct {
		name      string
		setupMock func(m mocks)
		wantCode  billing.Code
		wantNum   string
	}

	tests := []testCase{
		{
			name: "AssignsNumber",
			setupMock: func(m mocks) {
				m.repo.EXPECT().GetInvoice(gomock.Any(), id).Return(&billing.Invoice{ID: id, Items: items, Status: billing.InvoiceDraft}, nil)
				m.repo.EXPECT().FinalizeInvoice(gomock.Any(), id).
					Return(&billing.Invoice{ID: id, InvoiceNumber: "INV-000042", Items: items, Status: billing.InvoiceFinalized}, nil)
			},
			wantNum: "INV-000042",
		},
		{
			name: "AlreadyFinalized",
			setupMock: func(m mocks) {
				m.repo.EXPECT().GetInvoice(gomock.Any(), id).Return(&billing.Invoice{ID: id, Items: items, Status: billing.InvoiceFinalized}, nil)
			},
			wantCode: billing.CodeInvalidState,
		},
		{
			name: "NoLines",
			setupMock: func(m mocks) {
				m.repo.EXPECT().GetInvoice(gomock.Any(), id).Return(&billing.Invoice{ID: id, Status: billing.InvoiceDraft}, nil)
			},
			wantCode: billing.CodeMissingField,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, m := newService(t)
			tt.setupMock(m)

			got, err := svc.Finalize(context.Background(), id)

			if tt.wantCode != "" {
				ve, ok := billing.AsValidation(err)
				require.True(t, ok)
				assert.Equal(t, tt.wantCode, ve.Code)

				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.wantNum, got.InvoiceNumber)
			assert.Equal(t, billing.InvoiceFinalized, got.Status)
		})
	}
}

func TestService_Get_DerivedAmounts(t *testing.T) {
	svc, m := newService(t)

	id := uuid.New()
	inv := &billing.Invoice{
		ID:       id,
		Items:    []billing.LineItem{{Quantity: 2, UnitPrice: 100}},
		Shipping: ptr(50.0),
		Status:   billing.InvoicePartiallyPaid,
	}

	m.repo.EXPECT().GetInvoice(gomock.Any(), id).Return(inv, nil)
	m.payments.EXPECT().ListPayments(gomock.Any(), payment.ListFilter{}).Return([]billing.Payment{
		{Allocations: []billing.PaymentAllocation{{InvoiceID: id, Amount: 87.5}}},
		{Allocations: []billing.PaymentAllocation{{InvoiceID: uuid.New(), Amount: 999}}},
	}, nil)

	got, err := svc.Get(context.Background(), id)
	require.NoError(t, err)

	assert.InDelta(t, 250.0, got.Subtotal, 1e-9)
	assert.InDelta(t, 37.5, got.Tax, 1e-9)
	assert.InDelta(t, 287.5, got.Total, 1e-9)
	assert.InDelta(t, 87.5, got.Paid, 1e-9)
	assert.InDelta(t, 200.0, got.BalanceDue, 1e-9)
}

func TestService_ConvertQuote(t *testing.T) {
	quoteID := uuid.New()
	customerID := uuid.New()
	quote := &billing.Quote{
		ID:          quoteID,
		QuoteNumber: "Q-000007",
		CustomerID:  customerID,
		Items:       []billing.LineItem{{ID: uuid.New(), Quantity: 3, UnitPrice: 20}},
		Status:      billing.QuoteDraft,
	}

	t.Run("IssuesFinalizedInvoice", func(t *testing.T) {
		svc, m := newService(t)
		cvt := invoice.NewMockConvertTx(gomock.NewController(t))

		invID := uuid.New()

		m.repo.EXPECT().GetQuote(gomock.Any(), quoteID).Return(quote, nil)
		m.repo.EXPECT().BeginConvert(gomock.Any()).Return(cvt, nil)
		cvt.EXPECT().LockQuote(gomock.Any(), quoteID).Return(nil, nil)
		cvt.EXPECT().
			CreateInvoice(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, inv *billing.Invoice) error {
				assert.Equal(t, customerID, inv.CustomerID)
				assert.Equal(t, &quoteID, inv.QuoteID)
				assert.InDelta(t, 20.0, inv.Items[0].UnitPrice, 1e-9)
				assert.NotEqual(t, quote.Items[0].ID, inv.Items[0].ID)
				inv.ID = invID
				return nil
			})
		cvt.EXPECT().FinalizeInvoice(gomock.Any(), invID).
			Return(&billing.Invoice{ID: invID, InvoiceNumber: "INV-000100", Status: billing.InvoiceFinalized}, nil)
		cvt.EXPECT().UpdateQuoteStatus(gomock.Any(), quoteID, billing.QuoteAccepted).Return(nil)
		cvt.EXPECT().Commit().Return(nil)
		cvt.EXPECT().Rollback().Return(nil)

		got, err := svc.ConvertQuote(context.Background(), quoteID, nil)
		require.NoError(t, err)
		assert.Equal(t, "INV-000100", got.InvoiceNumber)
	})

	t.Run("Rejected", func(t *testing.T) {
		svc, m := newService(t)

		rejected := *quote
		rejected.Status = billing.QuoteRejected
		m.repo.EXPECT().GetQuote(gomock.Any(), quoteID).Return(&rejected, nil)

		_, err := svc.ConvertQuote(context.Background(), quoteID, nil)

		ve, ok := billing.AsValidation(err)
		require.True(t, ok)
		assert.Equal(t, billing.CodeInvalidState, ve.Code)
	})

	t.Run("AlreadyConverted", func(t *testing.T) {
		svc, m := newService(t)

		cvt := invoice.NewMockConvertTx(gomock.NewController(t))

		m.repo.EXPECT().GetQuote(gomock.Any(), quoteID).Return(quote, nil)
		m.repo.EXPECT().BeginConvert(gomock.Any()).Return(cvt, nil)
		cvt.EXPECT().LockQuote(gomock.Any(), quoteID).Return(&billing.Invoice{InvoiceNumber: "INV-000099"}, nil)
		cvt.EXPECT().Rollback().Return(nil)

		_, err := svc.ConvertQuote(context.Background(), quoteID, nil)

		ve, ok := billing.AsValidation(err)
		require.True(t, ok)
		assert.Contains(t, ve.Message, "INV-000099")
	})
}

func TestService_DecideQuote(t *testing.T) {
	id := uuid.New()

	t.Run("Accept", func(t *testing.T) {
		svc, m := newService(t)
		m.repo.EXPECT().GetQuote(gomock.Any(), id).Return(&billing.Quote{ID: id, Status: billing.QuoteDraft}, nil)
		m.repo.EXPECT().UpdateQuoteStatus(gomock.Any(), id, billing.QuoteAccepted).Return(nil)

		require.NoError(t, svc.AcceptQuote(context.Background(), id))
	})

	t.Run("RejectAfterAccept", func(t *testing.T) {
		svc, m := newService(t)
		m.repo.EXPECT().GetQuote(gomock.Any(), id).Return(&billing.Quote{ID: id, Status: billing.QuoteAccepted}, nil)

		err := svc.RejectQuote(context.Background(), id)

		ve, ok := billing.AsValidation(err)
		require.True(t, ok)
		assert.Equal(t, billing.CodeInvalidState, ve.Code)
	})
}

func TestService_CreateQuote(t *testing.T) {
	svc, m := newService(t)

	customerID := uuid.New()
	productID := uuid.New()

	m.customers.EXPECT().GetCustomer(gomock.Any(), customerID).Return(&billing.Customer{ID: customerID}, nil)
	m.pricer.EXPECT().ResolvePrice(gomock.Any(), productID, customerID).
		Return(&pricing.Resolution{Description: "Hose", UnitPrice: 80, HasPrice: true}, nil)
	m.repo.EXPECT().
		CreateQuote(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, q *billing.Quote) error {
			q.ID = uuid.New()
			q.QuoteNumber = "Q-000001"
			return nil
		})

	got, err := svc.CreateQuote(context.Background(), invoice.QuoteParams{
		CustomerID: customerID,
		ValidUntil: ptr(time.Date(2026, 5, 15, 12, 0, 0, 0, time.UTC)),
		Lines:      []invoice.LineParams{{ProductID: productID, Quantity: 1}},
	})
	require.NoError(t, err)

	assert.Equal(t, billing.QuoteDraft, got.Status)
	assert.Equal(t, time.Date(2026, 5, 15, 0, 0, 0, 0, time.UTC), *got.ValidUntil)
	assert.InDelta(t, 80.0, got.Items[0].UnitPrice, 1e-9)
}
