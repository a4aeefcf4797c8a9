package customer

import (
	"time"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/tally/internal/billing"
	"github.com/MrJamesThe3rd/tally/internal/http/render"
)

type priceResponse struct {
	ID            uuid.UUID   `json:"id"`
	EffectiveDate render.Date `json:"effective_date"`
	Retail        float64     `json:"retail"`
	Consumer      float64     `json:"consumer"`
}

type overrideResponse struct {
	ID                uuid.UUID       `json:"id"`
	ProductID         uuid.UUID       `json:"product_id"`
	CustomItemCode    string          `json:"custom_item_code,omitempty"`
	CustomDescription string          `json:"custom_description,omitempty"`
	Prices            []priceResponse `json:"prices"`
}

type customerResponse struct {
	ID                   uuid.UUID            `json:"id"`
	Name                 string               `json:"name"`
	Type                 billing.CustomerType `json:"type"`
	ParentCompanyID      *uuid.UUID           `json:"parent_company_id,omitempty"`
	BillToParent         bool                 `json:"bill_to_parent"`
	CustomProductPricing []overrideResponse   `json:"custom_product_pricing"`
	CreatedAt            time.Time            `json:"created_at"`
	UpdatedAt            *time.Time           `json:"updated_at,omitempty"`
}

func toPrices(prices []billing.Price) []priceResponse {
	resp := make([]priceResponse, len(prices))
	for i, p := range prices {
		resp[i] = priceResponse{
			ID:            p.ID,
			EffectiveDate: render.Date(p.EffectiveDate),
			Retail:        p.Retail,
			Consumer:      p.Consumer,
		}
	}

	return resp
}

func toOverride(o *billing.CustomerProductPrice) overrideResponse {
	return overrideResponse{
		ID:                o.ID,
		ProductID:         o.ProductID,
		CustomItemCode:    o.CustomItemCode,
		CustomDescription: o.CustomDescription,
		Prices:            toPrices(o.Prices),
	}
}

func toResponse(c *billing.Customer) customerResponse {
	overrides := make([]overrideResponse, len(c.CustomProductPricing))
	for i := range c.CustomProductPricing {
		overrides[i] = toOverride(&c.CustomProductPricing[i])
	}

	return customerResponse{
		ID:                   c.ID,
		Name:                 c.Name,
		Type:                 c.Type,
		ParentCompanyID:      c.ParentCompanyID,
		BillToParent:         c.BillToParent,
		CustomProductPricing: overrides,
		CreatedAt:            c.CreatedAt,
		UpdatedAt:            c.UpdatedAt,
	}
}

func toResponseList(customers []billing.Customer) []customerResponse {
	resp := make([]customerResponse, len(customers))
	for i := range customers {
		resp[i] = toResponse(&customers[i])
	}

	return resp
}
