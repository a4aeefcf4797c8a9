package payment

import (
	"time"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/tally/internal/billing"
	"github.com/MrJamesThe3rd/tally/internal/http/render"
	"github.com/MrJamesThe3rd/tally/internal/ledger"
)

type allocationDTO struct {
	InvoiceID uuid.UUID `json:"invoice_id"`
	Amount    float64   `json:"amount"`
}

type paymentResponse struct {
	ID          uuid.UUID       `json:"id"`
	CustomerID  uuid.UUID       `json:"customer_id"`
	Date        render.Date     `json:"date"`
	TotalAmount float64         `json:"total_amount"`
	Method      string          `json:"method,omitempty"`
	Reference   string          `json:"reference,omitempty"`
	Allocations []allocationDTO `json:"allocations"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   *time.Time      `json:"updated_at,omitempty"`
}

type statusChangeResponse struct {
	InvoiceID uuid.UUID             `json:"invoice_id"`
	From      billing.InvoiceStatus `json:"from"`
	To        billing.InvoiceStatus `json:"to"`
}

type resultResponse struct {
	Payment       paymentResponse        `json:"payment"`
	StatusChanges []statusChangeResponse `json:"status_changes"`
}

func toResponse(p *billing.Payment) paymentResponse {
	allocs := make([]allocationDTO, len(p.Allocations))
	for i, a := range p.Allocations {
		allocs[i] = allocationDTO(a)
	}

	return paymentResponse{
		ID:          p.ID,
		CustomerID:  p.CustomerID,
		Date:        render.Date(p.Date),
		TotalAmount: p.TotalAmount,
		Method:      p.Method,
		Reference:   p.Reference,
		Allocations: allocs,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

func toResponseList(payments []billing.Payment) []paymentResponse {
	resp := make([]paymentResponse, len(payments))
	for i := range payments {
		resp[i] = toResponse(&payments[i])
	}

	return resp
}

func toChanges(changes []ledger.StatusChange) []statusChangeResponse {
	resp := make([]statusChangeResponse, len(changes))
	for i, c := range changes {
		resp[i] = statusChangeResponse(c)
	}

	return resp
}
