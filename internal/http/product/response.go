package product

import (
	"time"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/tally/internal/billing"
	"github.com/MrJamesThe3rd/tally/internal/http/render"
	"github.com/MrJamesThe3rd/tally/internal/pricing"
	"github.com/MrJamesThe3rd/tally/internal/product"
)

type priceResponse struct {
	ID            uuid.UUID   `json:"id"`
	EffectiveDate render.Date `json:"effective_date"`
	Retail        float64     `json:"retail"`
	Consumer      float64     `json:"consumer"`
}

type productResponse struct {
	ID          uuid.UUID       `json:"id"`
	ItemCode    string          `json:"item_code"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Prices      []priceResponse `json:"prices"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   *time.Time      `json:"updated_at,omitempty"`
}

type resolutionResponse struct {
	ItemCode    string         `json:"item_code"`
	Description string         `json:"description"`
	UnitPrice   float64        `json:"unit_price"`
	HasPrice    bool           `json:"has_price"`
	Source      pricing.Source `json:"source"`
	Note        string         `json:"note,omitempty"`
}

type importResponse struct {
	Parsed       int      `json:"parsed"`
	Applied      int      `json:"applied"`
	UnknownCodes []string `json:"unknown_codes"`
}

func toPrice(p billing.Price) priceResponse {
	return priceResponse{
		ID:            p.ID,
		EffectiveDate: render.Date(p.EffectiveDate),
		Retail:        p.Retail,
		Consumer:      p.Consumer,
	}
}

func toResponse(p *billing.Product) productResponse {
	prices := make([]priceResponse, len(p.Prices))
	for i, price := range p.Prices {
		prices[i] = toPrice(price)
	}

	return productResponse{
		ID:          p.ID,
		ItemCode:    p.ItemCode,
		Name:        p.Name,
		Description: p.Description,
		Prices:      prices,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

func toResponseList(products []billing.Product) []productResponse {
	resp := make([]productResponse, len(products))
	for i := range products {
		resp[i] = toResponse(&products[i])
	}

	return resp
}

func toResolution(r *pricing.Resolution) resolutionResponse {
	return resolutionResponse{
		ItemCode:    r.ItemCode,
		Description: r.Description,
		UnitPrice:   r.UnitPrice,
		HasPrice:    r.HasPrice,
		Source:      r.Source,
		Note:        r.Note,
	}
}

func toImport(parsed int, res *product.ImportResult) importResponse {
	unknown := res.UnknownCodes
	if unknown == nil {
		unknown = []string{}
	}

	return importResponse{Parsed: parsed, Applied: res.Applied, UnknownCodes: unknown}
}
