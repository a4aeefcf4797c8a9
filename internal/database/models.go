package database

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/tally/internal/billing"
)

// JSON stores a value in a JSONB column.
type JSON[T any] struct {
	V T
}

func (j JSON[T]) Value() (driver.Value, error) {
	b, err := json.Marshal(j.V)
	if err != nil {
		return nil, fmt.Errorf("encoding json column: %w", err)
	}

	return string(b), nil
}

func (j *JSON[T]) Scan(src any) error {
	var b []byte

	switch v := src.(type) {
	case nil:
		var zero T
		j.V = zero

		return nil
	case []byte:
		b = v
	case string:
		b = []byte(v)
	default:
		return fmt.Errorf("unsupported json column type %T", src)
	}

	return json.Unmarshal(b, &j.V)
}

// Date is a calendar day stored in a DATE column. It is written as
// YYYY-MM-DD so the server time zone never shifts the day.
type Date struct {
	time.Time
}

func NewDate(t time.Time) Date { return Date{Time: billing.Day(t)} }

func NewDatePtr(t *time.Time) *Date {
	if t == nil {
		return nil
	}

	d := NewDate(*t)

	return &d
}

func (d Date) Value() (driver.Value, error) {
	return billing.FormatDay(d.Time), nil
}

func (d *Date) Scan(src any) error {
	switch v := src.(type) {
	case time.Time:
		d.Time = billing.Day(v)
	case string:
		t, err := billing.ParseDay(v)
		if err != nil {
			return fmt.Errorf("parsing date column: %w", err)
		}

		d.Time = t
	default:
		return fmt.Errorf("unsupported date column type %T", src)
	}

	return nil
}

// Ptr returns the day as a *time.Time, nil for a nil Date.
func (d *Date) Ptr() *time.Time {
	if d == nil {
		return nil
	}

	t := d.Time

	return &t
}

// CustomerModel is a row of the customers table.
type CustomerModel struct {
	ID                   uuid.UUID                            `db:"id"`
	Name                 string                               `db:"name"`
	Type                 string                               `db:"type"`
	ParentCompanyID      *uuid.UUID                           `db:"parent_company_id"`
	BillToParent         bool                                 `db:"bill_to_parent"`
	CustomProductPricing JSON[[]billing.CustomerProductPrice] `db:"custom_product_pricing"`
	CreatedAt            time.Time                            `db:"created_at"`
	UpdatedAt            *time.Time                           `db:"updated_at"`
}

func (m *CustomerModel) ToDomain() billing.Customer {
	return billing.Customer{
		ID:                   m.ID,
		Name:                 m.Name,
		Type:                 billing.CustomerType(m.Type),
		ParentCompanyID:      m.ParentCompanyID,
		BillToParent:         m.BillToParent,
		CustomProductPricing: nonNil(m.CustomProductPricing.V),
		CreatedAt:            m.CreatedAt,
		UpdatedAt:            m.UpdatedAt,
	}
}

func CustomerModelFromDomain(c *billing.Customer) CustomerModel {
	return CustomerModel{
		ID:                   c.ID,
		Name:                 c.Name,
		Type:                 string(c.Type),
		ParentCompanyID:      c.ParentCompanyID,
		BillToParent:         c.BillToParent,
		CustomProductPricing: JSON[[]billing.CustomerProductPrice]{V: nonNil(c.CustomProductPricing)},
	}
}

// ProductModel is a row of the products table.
type ProductModel struct {
	ID          uuid.UUID             `db:"id"`
	ItemCode    string                `db:"item_code"`
	Name        string                `db:"name"`
	Description string                `db:"description"`
	Prices      JSON[[]billing.Price] `db:"prices"`
	CreatedAt   time.Time             `db:"created_at"`
	UpdatedAt   *time.Time            `db:"updated_at"`
}

func (m *ProductModel) ToDomain() billing.Product {
	return billing.Product{
		ID:          m.ID,
		ItemCode:    m.ItemCode,
		Name:        m.Name,
		Description: m.Description,
		Prices:      nonNil(m.Prices.V),
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
}

func ProductModelFromDomain(p *billing.Product) ProductModel {
	return ProductModel{
		ID:          p.ID,
		ItemCode:    p.ItemCode,
		Name:        p.Name,
		Description: p.Description,
		Prices:      JSON[[]billing.Price]{V: nonNil(p.Prices)},
	}
}

// InvoiceModel is a row of the invoices table.
type InvoiceModel struct {
	ID            uuid.UUID                `db:"id"`
	InvoiceNumber *string                  `db:"invoice_number"`
	CustomerID    uuid.UUID                `db:"customer_id"`
	QuoteID       *uuid.UUID               `db:"quote_id"`
	Date          Date                     `db:"date"`
	DueDate       *Date                    `db:"due_date"`
	Items         JSON[[]billing.LineItem] `db:"items"`
	Shipping      *float64                 `db:"shipping"`
	Status        string                   `db:"status"`
	Notes         string                   `db:"notes"`
	CreatedAt     time.Time                `db:"created_at"`
	UpdatedAt     *time.Time               `db:"updated_at"`
}

func (m *InvoiceModel) ToDomain() billing.Invoice {
	inv := billing.Invoice{
		ID:         m.ID,
		CustomerID: m.CustomerID,
		QuoteID:    m.QuoteID,
		Date:       m.Date.Time,
		DueDate:    m.DueDate.Ptr(),
		Items:      nonNil(m.Items.V),
		Shipping:   m.Shipping,
		Status:     billing.InvoiceStatus(m.Status),
		Notes:      m.Notes,
		CreatedAt:  m.CreatedAt,
		UpdatedAt:  m.UpdatedAt,
	}

	if m.InvoiceNumber != nil {
		inv.InvoiceNumber = *m.InvoiceNumber
	}

	return inv
}

func InvoiceModelFromDomain(inv *billing.Invoice) InvoiceModel {
	m := InvoiceModel{
		ID:         inv.ID,
		CustomerID: inv.CustomerID,
		QuoteID:    inv.QuoteID,
		Date:       NewDate(inv.Date),
		DueDate:    NewDatePtr(inv.DueDate),
		Items:      JSON[[]billing.LineItem]{V: nonNil(inv.Items)},
		Shipping:   inv.Shipping,
		Status:     string(inv.Status),
		Notes:      inv.Notes,
	}

	if inv.InvoiceNumber != "" {
		m.InvoiceNumber = &inv.InvoiceNumber
	}

	return m
}

// QuoteModel is a row of the quotes table.
type QuoteModel struct {
	ID          uuid.UUID                `db:"id"`
	QuoteNumber string                   `db:"quote_number"`
	CustomerID  uuid.UUID                `db:"customer_id"`
	Date        Date                     `db:"date"`
	ValidUntil  *Date                    `db:"valid_until"`
	Items       JSON[[]billing.LineItem] `db:"items"`
	Shipping    *float64                 `db:"shipping"`
	Status      string                   `db:"status"`
	Notes       string                   `db:"notes"`
	CreatedAt   time.Time                `db:"created_at"`
	UpdatedAt   *time.Time               `db:"updated_at"`
}

func (m *QuoteModel) ToDomain() billing.Quote {
	return billing.Quote{
		ID:          m.ID,
		QuoteNumber: m.QuoteNumber,
		CustomerID:  m.CustomerID,
		Date:        m.Date.Time,
		ValidUntil:  m.ValidUntil.Ptr(),
		Items:       nonNil(m.Items.V),
		Shipping:    m.Shipping,
		Status:      billing.QuoteStatus(m.Status),
		Notes:       m.Notes,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
}

func QuoteModelFromDomain(q *billing.Quote) QuoteModel {
	return QuoteModel{
		ID:          q.ID,
		QuoteNumber: q.QuoteNumber,
		CustomerID:  q.CustomerID,
		Date:        NewDate(q.Date),
		ValidUntil:  NewDatePtr(q.ValidUntil),
		Items:       JSON[[]billing.LineItem]{V: nonNil(q.Items)},
		Shipping:    q.Shipping,
		Status:      string(q.Status),
		Notes:       q.Notes,
	}
}

// PaymentModel is a row of the payments table.
type PaymentModel struct {
	ID          uuid.UUID                         `db:"id"`
	CustomerID  uuid.UUID                         `db:"customer_id"`
	Date        Date                              `db:"date"`
	TotalAmount float64                           `db:"total_amount"`
	Method      string                            `db:"method"`
	Reference   string                            `db:"reference"`
	Allocations JSON[[]billing.PaymentAllocation] `db:"allocations"`
	CreatedAt   time.Time                         `db:"created_at"`
	UpdatedAt   *time.Time                        `db:"updated_at"`
}

func (m *PaymentModel) ToDomain() billing.Payment {
	return billing.Payment{
		ID:          m.ID,
		CustomerID:  m.CustomerID,
		Date:        m.Date.Time,
		TotalAmount: m.TotalAmount,
		Method:      m.Method,
		Reference:   m.Reference,
		Allocations: nonNil(m.Allocations.V),
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
}

func PaymentModelFromDomain(p *billing.Payment) PaymentModel {
	return PaymentModel{
		ID:          p.ID,
		CustomerID:  p.CustomerID,
		Date:        NewDate(p.Date),
		TotalAmount: p.TotalAmount,
		Method:      p.Method,
		Reference:   p.Reference,
		Allocations: JSON[[]billing.PaymentAllocation]{V: nonNil(p.Allocations)},
	}
}

// ToDomainList converts rows with their ToDomain method.
func ToDomainList[M any, D any](rows []M, conv func(*M) D) []D {
	out := make([]D, len(rows))
	for i := range rows {
		out[i] = conv(&rows[i])
	}

	return out
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}

	return s
}
