package product_test

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
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
	handler "github.com/MrJamesThe3rd/tally/internal/http/product"
	"github.com/MrJamesThe3rd/tally/internal/importer"
	"github.com/MrJamesThe3rd/tally/internal/importer/pricelist"
	"github.com/MrJamesThe3rd/tally/internal/product"
)

type mocks struct {
	ctrl      *gomock.Controller
	repo      *product.MockRepository
	customers *product.MockCustomerLister
}

func newRouter(t *testing.T) (http.Handler, mocks) {
	t.Helper()

	ctrl := gomock.NewController(t)
	m := mocks{
		ctrl:      ctrl,
		repo:      product.NewMockRepository(ctrl),
		customers: product.NewMockCustomerLister(ctrl),
	}

	clock := func() time.Time { return time.Date(2026, 4, 1, 10, 0, 0, 0, time.UTC) }
	svc := product.NewService(m.repo, m.customers, product.WithClock(clock))
	imports := importer.NewService(map[importer.Source]importer.Importer{
		importer.SourcePriceList: pricelist.NewParser(),
	})

	r := chi.NewRouter()
	r.Route("/products", handler.NewHandler(svc, imports).Routes)

	return r, m
}

func TestHandler_Create(t *testing.T) {
	router, m := newRouter(t)

	m.repo.EXPECT().CreateProduct(gomock.Any(), gomock.Any()).DoAndReturn(func(_ any, p *billing.Product) error {
		p.ID = uuid.New()
		return nil
	})

	body := `{"item_code":"HOSE-10","name":"Hose","price":{"effective_date":"2026-01-01","retail":10,"consumer":12.5}}`
	req := httptest.NewRequest(http.MethodPost, "/products/", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)

	var resp struct {
		ItemCode string `json:"item_code"`
		Prices   []struct {
			EffectiveDate string `json:"effective_date"`
		} `json:"prices"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "HOSE-10", resp.ItemCode)
	require.Len(t, resp.Prices, 1)
	assert.Equal(t, "2026-01-01", resp.Prices[0].EffectiveDate)
}

func TestHandler_ResolvePrice(t *testing.T) {
	productID := uuid.New()

	t.Run("Resolved", func(t *testing.T) {
		router, m := newRouter(t)
		c := billing.Customer{ID: uuid.New(), Type: billing.CustomerB2C}

		m.repo.EXPECT().GetProduct(gomock.Any(), productID).Return(&billing.Product{
			ID:       productID,
			ItemCode: "TAP-1",
			Name:     "Tap",
			Prices:   []billing.Price{{EffectiveDate: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), Retail: 10, Consumer: 14}},
		}, nil)
		m.customers.EXPECT().ListCustomers(gomock.Any()).Return([]billing.Customer{c}, nil)

		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet,
			"/products/"+productID.String()+"/price?customer_id="+c.ID.String(), nil))

		require.Equal(t, http.StatusOK, rec.Code)

		var resp map[string]any
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, 14.0, resp["unit_price"])
		assert.Equal(t, "standard", resp["source"])
	})

	t.Run("MissingCustomer", func(t *testing.T) {
		router, _ := newRouter(t)

		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/products/"+productID.String()+"/price", nil))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestHandler_ImportPrices(t *testing.T) {
	router, m := newRouter(t)
	itx := product.NewMockImportTx(m.ctrl)

	hose := billing.Product{ID: uuid.New(), ItemCode: "HOSE-10"}

	m.repo.EXPECT().BeginImport(gomock.Any()).Return(itx, nil)
	itx.EXPECT().ProductsByCode(gomock.Any(), []string{"HOSE-10", "GHOST"}).
		Return(map[string]billing.Product{"HOSE-10": hose}, nil)
	itx.EXPECT().AppendPrice(gomock.Any(), hose.ID, gomock.Any()).Return(nil)
	itx.EXPECT().Commit().Return(nil)
	itx.EXPECT().Rollback().Return(nil)

	csv := "Item Code;Effective Date;Retail;Consumer\nHOSE-10;2026-05-01;10.50;12.00\nGHOST;2026-05-01;1.00;2.00\n"

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", "prices.csv")
	require.NoError(t, err)
	_, err = fw.Write([]byte(csv))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/products/import", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp struct {
		Parsed       int      `json:"parsed"`
		Applied      int      `json:"applied"`
		UnknownCodes []string `json:"unknown_codes"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 2, resp.Parsed)
	assert.Equal(t, 1, resp.Applied)
	assert.Equal(t, []string{"GHOST"}, resp.UnknownCodes)
}
