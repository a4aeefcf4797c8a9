package statement_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/MrJamesThe3rd/tally/internal/billing"
	handler "github.com/MrJamesThe3rd/tally/internal/http/statement"
	"github.com/MrJamesThe3rd/tally/internal/ledger"
	"github.com/MrJamesThe3rd/tally/internal/statement"
)

func newRouter(t *testing.T, snap *billing.Snapshot) http.Handler {
	t.Helper()

	repo := statement.NewMockRepository(gomock.NewController(t))
	repo.EXPECT().Snapshot(gomock.Any()).Return(snap, nil)

	clock := func() time.Time { return time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC) }
	svc := statement.NewService(repo, statement.NewEngine(ledger.New(0.15)), statement.WithClock(clock))

	r := chi.NewRouter()
	r.Route("/statements", handler.NewHandler(svc).Routes)

	return r
}

func snapshot() (*billing.Snapshot, billing.Customer) {
	c := billing.Customer{ID: uuid.New(), Name: "Acme", Type: billing.CustomerB2B}
	inv := billing.Invoice{
		ID:            uuid.New(),
		InvoiceNumber: "INV-000001",
		CustomerID:    c.ID,
		Date:          time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		Status:        billing.InvoiceFinalized,
		Items:         []billing.LineItem{{Quantity: 1, UnitPrice: 100}},
	}

	return &billing.Snapshot{Customers: []billing.Customer{c}, Invoices: []billing.Invoice{inv}}, c
}

func TestHandler_Get(t *testing.T) {
	snap, c := snapshot()
	router := newRouter(t, snap)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/statements/"+c.ID.String(), nil))

	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		TotalBalance float64 `json:"total_balance"`
		Aging        struct {
			Days30 float64 `json:"days30"`
		} `json:"aging"`
		Transactions []struct {
			Kind string `json:"kind"`
			Date string `json:"date"`
		} `json:"transactions"`
		ChildCustomers []any `json:"child_customers"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

	assert.Equal(t, 115.0, resp.TotalBalance)
	assert.Equal(t, 115.0, resp.Aging.Days30)
	require.Len(t, resp.Transactions, 1)
	assert.Equal(t, "invoice", resp.Transactions[0].Kind)
	assert.Equal(t, "2026-03-01", resp.Transactions[0].Date)
	assert.NotNil(t, resp.ChildCustomers)
}

func TestHandler_Get_UnknownCustomer(t *testing.T) {
	snap, _ := snapshot()
	router := newRouter(t, snap)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/statements/"+uuid.NewString(), nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandler_Summary(t *testing.T) {
	snap, _ := snapshot()
	router := newRouter(t, snap)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/statements/summary", nil))

	require.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 115.0, resp["total_outstanding"])
	assert.Equal(t, 115.0, resp["total_overdue"])
	assert.Equal(t, 1.0, resp["customers_overdue"])
}

func TestHandler_Export(t *testing.T) {
	snap, c := snapshot()

	t.Run("CSV", func(t *testing.T) {
		router := newRouter(t, snap)

		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/statements/"+c.ID.String()+"/export", nil))

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "text/csv; charset=utf-8", rec.Header().Get("Content-Type"))
		assert.Contains(t, rec.Header().Get("Content-Disposition"), "_Acme.csv")
		assert.True(t, strings.HasPrefix(rec.Body.String(), "Date,Type,Reference,Debit,Credit,Balance\n"))
		assert.Contains(t, rec.Body.String(), "2026-03-01,invoice,INV-000001,115.00,0.00,115.00")
	})

	t.Run("Text", func(t *testing.T) {
		router := newRouter(t, snap)

		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/statements/"+c.ID.String()+"/export?format=text", nil))

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "Balance due: 115.00 €")
	})
}
