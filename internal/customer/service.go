package customer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/tally/internal/billing"
	"github.com/MrJamesThe3rd/tally/internal/ledger"
)

//go:generate mockgen -source=service.go -destination=repository_mock.go -package=customer
type Repository interface {
	CreateCustomer(ctx context.Context, c *billing.Customer) error
	GetCustomer(ctx context.Context, id uuid.UUID) (*billing.Customer, error)
	ListCustomers(ctx context.Context) ([]billing.Customer, error)
	UpdateCustomer(ctx context.Context, c *billing.Customer) error
}

// ProductFinder checks that an override points at a real product.
type ProductFinder interface {
	GetProduct(ctx context.Context, id uuid.UUID) (*billing.Product, error)
}

// LedgerReader reads the invoices and payments a hierarchy change could strand.
type LedgerReader interface {
	Snapshot(ctx context.Context) (*billing.Snapshot, error)
}

type Service struct {
	repo     Repository
	products ProductFinder
	books    LedgerReader
}

func NewService(repo Repository, products ProductFinder, books LedgerReader) *Service {
	return &Service{repo: repo, products: products, books: books}
}

type Params struct {
	Name            string
	Type            billing.CustomerType
	ParentCompanyID *uuid.UUID
	BillToParent    bool
}

// OverrideParams upserts a customer price override. Price is appended to the
// override's price list when set.
type OverrideParams struct {
	ProductID         uuid.UUID
	CustomItemCode    string
	CustomDescription string
	Price             *PriceParams
}

type PriceParams struct {
	EffectiveDate time.Time
	Retail        float64
	Consumer      float64
}

func (s *Service) Create(ctx context.Context, params Params) (*billing.Customer, error) {
	if err := s.validate(ctx, uuid.Nil, params); err != nil {
		return nil, err
	}

	c := &billing.Customer{
		Name:                 strings.TrimSpace(params.Name),
		Type:                 params.Type,
		ParentCompanyID:      params.ParentCompanyID,
		BillToParent:         params.BillToParent,
		CustomProductPricing: []billing.CustomerProductPrice{},
	}
	if err := s.repo.CreateCustomer(ctx, c); err != nil {
		return nil, fmt.Errorf("creating customer: %w", err)
	}

	return c, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*billing.Customer, error) {
	return s.repo.GetCustomer(ctx, id)
}

func (s *Service) List(ctx context.Context) ([]billing.Customer, error) {
	return s.repo.ListCustomers(ctx)
}

func (s *Service) Update(ctx context.Context, id uuid.UUID, params Params) (*billing.Customer, error) {
	c, err := s.repo.GetCustomer(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := s.validate(ctx, id, params); err != nil {
		return nil, err
	}

	if params.ParentCompanyID != nil {
		all, err := s.repo.ListCustomers(ctx)
		if err != nil {
			return nil, fmt.Errorf("listing customers: %w", err)
		}

		for _, other := range all {
			if other.ParentCompanyID != nil && *other.ParentCompanyID == id {
				return nil, billing.Invalid(billing.CodeInvalidHierarchy,
					"%s has subsidiaries and cannot become a subsidiary itself", c.Name)
			}
		}
	}

	if err := s.checkBillPayerChange(ctx, c, params); err != nil {
		return nil, err
	}

	c.Name = strings.TrimSpace(params.Name)
	c.Type = params.Type
	c.ParentCompanyID = params.ParentCompanyID
	c.BillToParent = params.BillToParent

	if err := s.repo.UpdateCustomer(ctx, c); err != nil {
		return nil, fmt.Errorf("updating customer: %w", err)
	}

	return c, nil
}

// checkBillPayerChange rejects a hierarchy edit that would move invoices
// already holding payments to a bill-payer that did not make them. Payments
// stay with the customer that recorded them.
func (s *Service) checkBillPayerChange(ctx context.Context, c *billing.Customer, params Params) error {
	if c.BillToParent == params.BillToParent && sameID(c.ParentCompanyID, params.ParentCompanyID) {
		return nil
	}

	snap, err := s.books.Snapshot(ctx)
	if err != nil {
		return fmt.Errorf("reading ledger: %w", err)
	}

	next := *c
	next.ParentCompanyID = params.ParentCompanyID
	next.BillToParent = params.BillToParent

	before := ledger.BillPayer(c, snap.Customers).ID
	after := ledger.BillPayer(&next, snap.Customers).ID

	if before == after {
		return nil
	}

	moved := make(map[uuid.UUID]string)

	for _, inv := range snap.Invoices {
		if inv.CustomerID == c.ID && inv.Status != billing.InvoiceDraft {
			moved[inv.ID] = inv.InvoiceNumber
		}
	}

	for _, p := range snap.Payments {
		if p.CustomerID == after {
			continue
		}

		for _, a := range p.Allocations {
			number, ok := moved[a.InvoiceID]
			if !ok || a.Amount == 0 {
				continue
			}

			return billing.Invalid(billing.CodeInvalidHierarchy,
				"invoice %s already holds payments from its current bill-payer; %s cannot change who it bills to", number, c.Name)
		}
	}

	return nil
}

func sameID(a, b *uuid.UUID) bool {
	if a == nil || b == nil {
		return a == b
	}

	return *a == *b
}

// validate checks a customer's fields. self is the id of the customer being
// updated, uuid.Nil on create.
func (s *Service) validate(ctx context.Context, self uuid.UUID, params Params) error {
	if strings.TrimSpace(params.Name) == "" {
		return billing.Invalid(billing.CodeMissingField, "customer name is required")
	}

	if params.Type != billing.CustomerB2B && params.Type != billing.CustomerB2C {
		return billing.Invalid(billing.CodeMissingField, "customer type must be B2B or B2C")
	}

	if params.ParentCompanyID == nil {
		if params.BillToParent {
			return billing.Invalid(billing.CodeInvalidHierarchy, "bill to parent requires a parent company")
		}

		return nil
	}

	if *params.ParentCompanyID == self {
		return billing.Invalid(billing.CodeInvalidHierarchy, "a customer cannot be its own parent")
	}

	parent, err := s.repo.GetCustomer(ctx, *params.ParentCompanyID)
	if err != nil {
		if errors.Is(err, billing.ErrNotFound) {
			return billing.Invalid(billing.CodeUnknownCustomer, "parent company %s does not exist", *params.ParentCompanyID)
		}

		return fmt.Errorf("getting parent company: %w", err)
	}

	if parent.ParentCompanyID != nil {
		return billing.Invalid(billing.CodeInvalidHierarchy, "%s is already a subsidiary and cannot have subsidiaries", parent.Name)
	}

	return nil
}

// SetOverride creates or updates the customer's override for a product.
// Existing prices are kept; a new price is appended.
func (s *Service) SetOverride(ctx context.Context, customerID uuid.UUID, params OverrideParams) (*billing.CustomerProductPrice, error) {
	c, err := s.repo.GetCustomer(ctx, customerID)
	if err != nil {
		return nil, err
	}

	if _, err := s.products.GetProduct(ctx, params.ProductID); err != nil {
		if errors.Is(err, billing.ErrNotFound) {
			return nil, billing.Invalid(billing.CodeUnknownProduct, "product %s does not exist", params.ProductID)
		}

		return nil, fmt.Errorf("getting product: %w", err)
	}

	if params.Price != nil && (params.Price.Retail < 0 || params.Price.Consumer < 0) {
		return nil, billing.Invalid(billing.CodeInvalidAmount, "prices cannot be negative")
	}

	override, ok := c.Override(params.ProductID)
	if !ok {
		c.CustomProductPricing = append(c.CustomProductPricing, billing.CustomerProductPrice{
			ID:        uuid.New(),
			ProductID: params.ProductID,
			Prices:    []billing.Price{},
		})
		override = &c.CustomProductPricing[len(c.CustomProductPricing)-1]
	}

	override.CustomItemCode = strings.TrimSpace(params.CustomItemCode)
	override.CustomDescription = strings.TrimSpace(params.CustomDescription)

	if params.Price != nil {
		override.Prices = append(override.Prices, billing.Price{
			ID:            uuid.New(),
			EffectiveDate: billing.Day(params.Price.EffectiveDate),
			Retail:        params.Price.Retail,
			Consumer:      params.Price.Consumer,
		})
	}

	if c.Type == billing.CustomerB2C {
		slog.Warn("override stored for consumer customer will not be applied", "customer_id", c.ID, "product_id", params.ProductID)
	}

	if err := s.repo.UpdateCustomer(ctx, c); err != nil {
		return nil, fmt.Errorf("saving override: %w", err)
	}

	return override, nil
}

// RestoreOverride removes the customer's override for a product so pricing
// falls back to the parent's override or the standard list.
func (s *Service) RestoreOverride(ctx context.Context, customerID, productID uuid.UUID) error {
	c, err := s.repo.GetCustomer(ctx, customerID)
	if err != nil {
		return err
	}

	kept := make([]billing.CustomerProductPrice, 0, len(c.CustomProductPricing))
	for _, o := range c.CustomProductPricing {
		if o.ProductID != productID {
			kept = append(kept, o)
		}
	}

	if len(kept) == len(c.CustomProductPricing) {
		return billing.ErrNotFound
	}

	c.CustomProductPricing = kept

	if err := s.repo.UpdateCustomer(ctx, c); err != nil {
		return fmt.Errorf("removing override: %w", err)
	}

	return nil
}
