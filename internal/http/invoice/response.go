package invoice

import (
	"time"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/tally/internal/billing"
	"github.com/MrJamesThe3rd/tally/internal/http/render"
	"github.com/MrJamesThe3rd/tally/internal/invoice"
)

type lineResponse struct {
	ID          uuid.UUID `json:"id"`
	ProductID   uuid.UUID `json:"product_id"`
	Description string    `json:"description"`
	Quantity    float64   `json:"quantity"`
	UnitPrice   float64   `json:"unit_price"`
}

type invoiceResponse struct {
	ID            uuid.UUID             `json:"id"`
	InvoiceNumber string                `json:"invoice_number,omitempty"`
	CustomerID    uuid.UUID             `json:"customer_id"`
	QuoteID       *uuid.UUID            `json:"quote_id,omitempty"`
	Date          render.Date           `json:"date"`
	DueDate       *render.Date          `json:"due_date,omitempty"`
	Items         []lineResponse        `json:"items"`
	Shipping      *float64              `json:"shipping,omitempty"`
	Status        billing.InvoiceStatus `json:"status"`
	Notes         string                `json:"notes,omitempty"`
	Subtotal      float64               `json:"subtotal"`
	Tax           float64               `json:"tax"`
	Total         float64               `json:"total"`
	Paid          float64               `json:"paid"`
	BalanceDue    float64               `json:"balance_due"`
	CreatedAt     time.Time             `json:"created_at"`
	UpdatedAt     *time.Time            `json:"updated_at,omitempty"`
}

type quoteResponse struct {
	ID          uuid.UUID           `json:"id"`
	QuoteNumber string              `json:"quote_number"`
	CustomerID  uuid.UUID           `json:"customer_id"`
	Date        render.Date         `json:"date"`
	ValidUntil  *render.Date        `json:"valid_until,omitempty"`
	Items       []lineResponse      `json:"items"`
	Shipping    *float64            `json:"shipping,omitempty"`
	Status      billing.QuoteStatus `json:"status"`
	Notes       string              `json:"notes,omitempty"`
	Subtotal    float64             `json:"subtotal"`
	Tax         float64             `json:"tax"`
	Total       float64             `json:"total"`
	CreatedAt   time.Time           `json:"created_at"`
}

func toLines(items []billing.LineItem) []lineResponse {
	resp := make([]lineResponse, len(items))
	for i, it := range items {
		resp[i] = lineResponse(it)
	}

	return resp
}

func toInvoice(v *invoice.View) invoiceResponse {
	return invoiceResponse{
		ID:            v.ID,
		InvoiceNumber: v.InvoiceNumber,
		CustomerID:    v.CustomerID,
		QuoteID:       v.QuoteID,
		Date:          render.Date(v.Date),
		DueDate:       render.DatePtr(v.DueDate),
		Items:         toLines(v.Items),
		Shipping:      v.Shipping,
		Status:        v.Status,
		Notes:         v.Notes,
		Subtotal:      v.Subtotal,
		Tax:           v.Tax,
		Total:         v.Total,
		Paid:          v.Paid,
		BalanceDue:    v.BalanceDue,
		CreatedAt:     v.CreatedAt,
		UpdatedAt:     v.UpdatedAt,
	}
}

func toInvoiceList(views []invoice.View) []invoiceResponse {
	resp := make([]invoiceResponse, len(views))
	for i := range views {
		resp[i] = toInvoice(&views[i])
	}

	return resp
}

func toQuote(v *invoice.QuoteView) quoteResponse {
	return quoteResponse{
		ID:          v.ID,
		QuoteNumber: v.QuoteNumber,
		CustomerID:  v.CustomerID,
		Date:        render.Date(v.Date),
		ValidUntil:  render.DatePtr(v.ValidUntil),
		Items:       toLines(v.Items),
		Shipping:    v.Shipping,
		Status:      v.Status,
		Notes:       v.Notes,
		Subtotal:    v.Subtotal,
		Tax:         v.Tax,
		Total:       v.Total,
		CreatedAt:   v.CreatedAt,
	}
}

func toQuoteList(views []invoice.QuoteView) []quoteResponse {
	resp := make([]quoteResponse, len(views))
	for i := range views {
		resp[i] = toQuote(&views[i])
	}

	return resp
}
