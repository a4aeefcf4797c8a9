package product

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/tally/internal/billing"
	"github.com/MrJamesThe3rd/tally/internal/importer"
	"github.com/MrJamesThe3rd/tally/internal/pricing"
)

//go:generate mockgen -source=service.go -destination=repository_mock.go -package=product
type Repository interface {
	CreateProduct(ctx context.Context, p *billing.Product) error
	GetProduct(ctx context.Context, id uuid.UUID) (*billing.Product, error)
	ListProducts(ctx context.Context) ([]billing.Product, error)
	UpdateProduct(ctx context.Context, p *billing.Product) error
	AppendPrice(ctx context.Context, id uuid.UUID, price billing.Price) error

	BeginImport(ctx context.Context) (ImportTx, error)
}

// ImportTx applies a whole price list or nothing.
type ImportTx interface {
	ProductsByCode(ctx context.Context, codes []string) (map[string]billing.Product, error)
	AppendPrice(ctx context.Context, id uuid.UUID, price billing.Price) error
	Commit() error
	Rollback() error
}

// CustomerLister provides the customer snapshot used for override lookups.
type CustomerLister interface {
	ListCustomers(ctx context.Context) ([]billing.Customer, error)
}

type Service struct {
	repo      Repository
	customers CustomerLister
	now       func() time.Time
}

type Option func(*Service)

// WithClock replaces time.Now as the source of "today".
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func NewService(repo Repository, customers CustomerLister, opts ...Option) *Service {
	s := &Service{repo: repo, customers: customers, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}

	return s
}

type Params struct {
	ItemCode    string
	Name        string
	Description string
}

type PriceParams struct {
	EffectiveDate time.Time
	Retail        float64
	Consumer      float64
}

func (s *Service) Create(ctx context.Context, params Params, initial *PriceParams) (*billing.Product, error) {
	if err := validate(params); err != nil {
		return nil, err
	}

	p := &billing.Product{
		ItemCode:    strings.TrimSpace(params.ItemCode),
		Name:        strings.TrimSpace(params.Name),
		Description: strings.TrimSpace(params.Description),
		Prices:      []billing.Price{},
	}

	if initial != nil {
		price, err := newPrice(*initial)
		if err != nil {
			return nil, err
		}

		p.Prices = append(p.Prices, price)
	}

	if err := s.repo.CreateProduct(ctx, p); err != nil {
		return nil, fmt.Errorf("creating product: %w", err)
	}

	return p, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*billing.Product, error) {
	return s.repo.GetProduct(ctx, id)
}

func (s *Service) List(ctx context.Context) ([]billing.Product, error) {
	return s.repo.ListProducts(ctx)
}

// Update changes the descriptive fields. Prices are only ever appended with
// AddPrice.
func (s *Service) Update(ctx context.Context, id uuid.UUID, params Params) (*billing.Product, error) {
	if err := validate(params); err != nil {
		return nil, err
	}

	p, err := s.repo.GetProduct(ctx, id)
	if err != nil {
		return nil, err
	}

	p.ItemCode = strings.TrimSpace(params.ItemCode)
	p.Name = strings.TrimSpace(params.Name)
	p.Description = strings.TrimSpace(params.Description)

	if err := s.repo.UpdateProduct(ctx, p); err != nil {
		return nil, fmt.Errorf("updating product: %w", err)
	}

	return p, nil
}

func (s *Service) AddPrice(ctx context.Context, id uuid.UUID, params PriceParams) (*billing.Price, error) {
	price, err := newPrice(params)
	if err != nil {
		return nil, err
	}

	if err := s.repo.AppendPrice(ctx, id, price); err != nil {
		return nil, fmt.Errorf("adding price: %w", err)
	}

	return &price, nil
}

// ResolvePrice resolves the unit price of a product for a customer as of today.
func (s *Service) ResolvePrice(ctx context.Context, productID, customerID uuid.UUID) (*pricing.Resolution, error) {
	p, err := s.repo.GetProduct(ctx, productID)
	if err != nil {
		if errors.Is(err, billing.ErrNotFound) {
			return nil, billing.Invalid(billing.CodeUnknownProduct, "product %s does not exist", productID)
		}

		return nil, fmt.Errorf("getting product: %w", err)
	}

	customers, err := s.customers.ListCustomers(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing customers: %w", err)
	}

	c, ok := billing.FindCustomer(customers, customerID)
	if !ok {
		return nil, billing.Invalid(billing.CodeUnknownCustomer, "customer %s does not exist", customerID)
	}

	res := pricing.ResolveUnitPrice(p, c, customers, billing.Day(s.now()))

	return &res, nil
}

type ImportResult struct {
	Applied      int
	UnknownCodes []string
}

// ImportPrices appends a price to every product named in rows. Unknown item
// codes are reported and the rest of the list is applied in one transaction.
func (s *Service) ImportPrices(ctx context.Context, rows []importer.PriceRow) (*ImportResult, error) {
	if len(rows) == 0 {
		return &ImportResult{}, nil
	}

	codes := make([]string, 0, len(rows))
	for _, r := range rows {
		codes = append(codes, r.ItemCode)
	}

	itx, err := s.repo.BeginImport(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin import: %w", err)
	}
	defer itx.Rollback()

	products, err := itx.ProductsByCode(ctx, codes)
	if err != nil {
		return nil, fmt.Errorf("find products: %w", err)
	}

	result := &ImportResult{}
	seen := make(map[string]bool)

	for _, r := range rows {
		p, ok := products[r.ItemCode]
		if !ok {
			if !seen[r.ItemCode] {
				result.UnknownCodes = append(result.UnknownCodes, r.ItemCode)
				seen[r.ItemCode] = true
			}

			continue
		}

		price, err := newPrice(PriceParams{EffectiveDate: r.EffectiveDate, Retail: r.Retail, Consumer: r.Consumer})
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", r.Line, err)
		}

		if err := itx.AppendPrice(ctx, p.ID, price); err != nil {
			return nil, fmt.Errorf("append price for %s: %w", r.ItemCode, err)
		}

		result.Applied++
	}

	if err := itx.Commit(); err != nil {
		return nil, fmt.Errorf("commit import: %w", err)
	}

	slog.Info("price list imported", "applied", result.Applied, "unknown", len(result.UnknownCodes))

	return result, nil
}

func validate(params Params) error {
	if strings.TrimSpace(params.ItemCode) == "" {
		return billing.Invalid(billing.CodeMissingField, "item code is required")
	}

	if strings.TrimSpace(params.Name) == "" {
		return billing.Invalid(billing.CodeMissingField, "product name is required")
	}

	return nil
}

func newPrice(params PriceParams) (billing.Price, error) {
	if params.EffectiveDate.IsZero() {
		return billing.Price{}, billing.Invalid(billing.CodeMissingField, "effective date is required")
	}

	if params.Retail < 0 || params.Consumer < 0 {
		return billing.Price{}, billing.Invalid(billing.CodeInvalidAmount, "prices cannot be negative")
	}

	return billing.Price{
		ID:            uuid.New(),
		EffectiveDate: billing.Day(params.EffectiveDate),
		Retail:        params.Retail,
		Consumer:      params.Consumer,
	}, nil
}
