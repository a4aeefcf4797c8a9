package statement

import (
	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/tally/internal/http/render"
	"github.com/MrJamesThe3rd/tally/internal/statement"
)

type agingResponse struct {
	Current     float64 `json:"current"`
	Days30      float64 `json:"days30"`
	Days60      float64 `json:"days60"`
	Days90      float64 `json:"days90"`
	Days120Plus float64 `json:"days120plus"`
}

type transactionResponse struct {
	Kind       statement.Kind `json:"kind"`
	ID         uuid.UUID      `json:"id"`
	CustomerID uuid.UUID      `json:"customer_id"`
	Date       render.Date    `json:"date"`
	Reference  string         `json:"reference"`
	Debit      float64        `json:"debit"`
	Credit     float64        `json:"credit"`
	Balance    float64        `json:"balance"`
}

type customerRef struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
}

type statementResponse struct {
	Customer       customerRef           `json:"customer"`
	ChildCustomers []customerRef         `json:"child_customers"`
	Transactions   []transactionResponse `json:"transactions"`
	Aging          agingResponse         `json:"aging"`
	TotalBalance   float64               `json:"total_balance"`
}

// overviewResponse is one line of the statements list.
type overviewResponse struct {
	Customer     customerRef   `json:"customer"`
	Aging        agingResponse `json:"aging"`
	TotalBalance float64       `json:"total_balance"`
}

type summaryResponse struct {
	TotalOutstanding  float64       `json:"total_outstanding"`
	TotalCurrent      float64       `json:"total_current"`
	TotalOverdue      float64       `json:"total_overdue"`
	CustomersOverdue  int           `json:"customers_overdue"`
	CustomersWithDebt int           `json:"customers_with_debt"`
	Aging             agingResponse `json:"aging"`
}

func toStatement(st *statement.Statement) statementResponse {
	children := make([]customerRef, len(st.ChildCustomers))
	for i, c := range st.ChildCustomers {
		children[i] = customerRef{ID: c.ID, Name: c.Name}
	}

	txs := make([]transactionResponse, len(st.Transactions))
	for i, t := range st.Transactions {
		txs[i] = transactionResponse{
			Kind:       t.Kind,
			ID:         t.ID,
			CustomerID: t.CustomerID,
			Date:       render.Date(t.Date),
			Reference:  t.Reference,
			Debit:      t.Debit,
			Credit:     t.Credit,
			Balance:    t.Balance,
		}
	}

	return statementResponse{
		Customer:       customerRef{ID: st.Customer.ID, Name: st.Customer.Name},
		ChildCustomers: children,
		Transactions:   txs,
		Aging:          agingResponse(st.Aging),
		TotalBalance:   st.TotalBalance,
	}
}

func toOverviews(statements []*statement.Statement) []overviewResponse {
	resp := make([]overviewResponse, len(statements))
	for i, st := range statements {
		resp[i] = overviewResponse{
			Customer:     customerRef{ID: st.Customer.ID, Name: st.Customer.Name},
			Aging:        agingResponse(st.Aging),
			TotalBalance: st.TotalBalance,
		}
	}

	return resp
}

func toSummary(s *statement.Summary) summaryResponse {
	return summaryResponse{
		TotalOutstanding:  s.TotalOutstanding,
		TotalCurrent:      s.TotalCurrent,
		TotalOverdue:      s.TotalOverdue,
		CustomersOverdue:  s.CustomersOverdue,
		CustomersWithDebt: s.CustomersWithDebt,
		Aging:             agingResponse(s.Aging),
	}
}
