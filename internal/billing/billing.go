package billing

import (
	"time"

	"github.com/google/uuid"
)

// CustomerType selects which price tier applies to a customer.
type CustomerType string

const (
	CustomerB2B CustomerType = "B2B"
	CustomerB2C CustomerType = "B2C"
)

// InvoiceStatus represents the lifecycle state of an invoice.
type InvoiceStatus string

const (
	InvoiceDraft         InvoiceStatus = "DRAFT"
	InvoiceFinalized     InvoiceStatus = "FINALIZED"
	InvoicePartiallyPaid InvoiceStatus = "PARTIALLY_PAID"
	InvoicePaid          InvoiceStatus = "PAID"
)

// QuoteStatus represents the lifecycle state of a quote.
type QuoteStatus string

const (
	QuoteDraft    QuoteStatus = "DRAFT"
	QuoteAccepted QuoteStatus = "ACCEPTED"
	QuoteRejected QuoteStatus = "REJECTED"
)

// Price is one entry of a time-stamped price list. Prices are never edited;
// a new price is appended instead.
type Price struct {
	ID            uuid.UUID `json:"id"`
	EffectiveDate time.Time `json:"effective_date"`
	Retail        float64   `json:"retail"`
	Consumer      float64   `json:"consumer"`
}

// Product is a sellable item with its standard price list.
type Product struct {
	ID          uuid.UUID
	ItemCode    string
	Name        string
	Description string
	Prices      []Price
	CreatedAt   time.Time
	UpdatedAt   *time.Time
}

// CustomerProductPrice replaces a product's standard B2B price list for one
// customer (and, through inheritance, that customer's children).
type CustomerProductPrice struct {
	ID                uuid.UUID `json:"id"`
	ProductID         uuid.UUID `json:"product_id"`
	CustomItemCode    string    `json:"custom_item_code,omitempty"`
	CustomDescription string    `json:"custom_description,omitempty"`
	Prices            []Price   `json:"prices"`
}

// Customer is a billed party. Customers form a two-level tree through
// ParentCompanyID.
type Customer struct {
	ID                   uuid.UUID
	Name                 string
	Type                 CustomerType
	ParentCompanyID      *uuid.UUID
	BillToParent         bool
	CustomProductPricing []CustomerProductPrice
	CreatedAt            time.Time
	UpdatedAt            *time.Time
}

// Override returns the customer's own override for the product, if any.
func (c *Customer) Override(productID uuid.UUID) (*CustomerProductPrice, bool) {
	for i := range c.CustomProductPricing {
		if c.CustomProductPricing[i].ProductID == productID {
			return &c.CustomProductPricing[i], true
		}
	}

	return nil, false
}

// LineItem is a priced line on an invoice or quote. UnitPrice is a snapshot
// taken when the line was added and never follows later price changes.
type LineItem struct {
	ID          uuid.UUID `json:"id"`
	ProductID   uuid.UUID `json:"product_id"`
	Description string    `json:"description"`
	Quantity    float64   `json:"quantity"`
	UnitPrice   float64   `json:"unit_price"`
}

// Document is anything whose total can be calculated.
type Document interface {
	LineItems() []LineItem
	ShippingAmount() float64
}

// Invoice is a bill raised against a customer.
type Invoice struct {
	ID            uuid.UUID
	InvoiceNumber string
	CustomerID    uuid.UUID
	QuoteID       *uuid.UUID
	Date          time.Time
	DueDate       *time.Time
	Items         []LineItem
	Shipping      *float64
	Status        InvoiceStatus
	Notes         string
	CreatedAt     time.Time
	UpdatedAt     *time.Time
}

func (i *Invoice) LineItems() []LineItem { return i.Items }

func (i *Invoice) ShippingAmount() float64 {
	if i.Shipping == nil {
		return 0
	}

	return *i.Shipping
}

// AgingDate is the day aging is measured from: the due date when set,
// otherwise the invoice date.
func (i *Invoice) AgingDate() time.Time {
	if i.DueDate != nil {
		return Day(*i.DueDate)
	}

	return Day(i.Date)
}

// Quote is structurally an invoice that never takes part in payment allocation.
type Quote struct {
	ID          uuid.UUID
	QuoteNumber string
	CustomerID  uuid.UUID
	Date        time.Time
	ValidUntil  *time.Time
	Items       []LineItem
	Shipping    *float64
	Status      QuoteStatus
	Notes       string
	CreatedAt   time.Time
	UpdatedAt   *time.Time
}

func (q *Quote) LineItems() []LineItem { return q.Items }

func (q *Quote) ShippingAmount() float64 {
	if q.Shipping == nil {
		return 0
	}

	return *q.Shipping
}

// PaymentAllocation is the part of a payment applied to one invoice.
type PaymentAllocation struct {
	InvoiceID uuid.UUID `json:"invoice_id"`
	Amount    float64   `json:"amount"`
}

// Payment is money received from a bill-payer, spread across invoices.
type Payment struct {
	ID          uuid.UUID
	CustomerID  uuid.UUID
	Date        time.Time
	TotalAmount float64
	Method      string
	Reference   string
	Allocations []PaymentAllocation
	CreatedAt   time.Time
	UpdatedAt   *time.Time
}

// FindCustomer looks a customer up by id in a snapshot.
func FindCustomer(customers []Customer, id uuid.UUID) (*Customer, bool) {
	for i := range customers {
		if customers[i].ID == id {
			return &customers[i], true
		}
	}

	return nil, false
}

// FindInvoice looks an invoice up by id in a snapshot.
func FindInvoice(invoices []Invoice, id uuid.UUID) (*Invoice, bool) {
	for i := range invoices {
		if invoices[i].ID == id {
			return &invoices[i], true
		}
	}

	return nil, false
}

// Snapshot is a consistent read of the ledger entities.
type Snapshot struct {
	Customers []Customer
	Invoices  []Invoice
	Payments  []Payment
}
