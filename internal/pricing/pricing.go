// Package pricing resolves the unit price a customer pays for a product on a
// given day, honoring customer and parent-company overrides.
package pricing

import (
	"time"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/tally/internal/billing"
)

// Source records which price list a resolution came from.
type Source string

const (
	SourceStandard         Source = "standard"
	SourceCustomerOverride Source = "customer_override"
	SourceParentOverride   Source = "parent_override"
)

// Resolution is the outcome of resolving a product price for a customer.
// HasPrice is false when no price is effective yet; UnitPrice is then 0 but
// should be shown as N/A rather than as a zero amount.
type Resolution struct {
	Description string
	ItemCode    string
	UnitPrice   float64
	HasPrice    bool
	Source      Source
	Note        string
}

// CurrentPrice returns the price with the latest effective date on or before
// today. When several prices share that date, the one inserted last wins.
func CurrentPrice(prices []billing.Price, today time.Time) (*billing.Price, bool) {
	day := billing.Day(today)

	var current *billing.Price

	for i := range prices {
		p := &prices[i]
		if billing.Day(p.EffectiveDate).After(day) {
			continue
		}

		if current == nil || !billing.Day(p.EffectiveDate).Before(billing.Day(current.EffectiveDate)) {
			current = p
		}
	}

	return current, current != nil
}

// FindOverride returns the override applying to the customer for a product:
// the customer's own, else its parent's. Inheritance stops at one level.
func FindOverride(productID uuid.UUID, customer *billing.Customer, customers []billing.Customer) (*billing.CustomerProductPrice, Source, bool) {
	if o, ok := customer.Override(productID); ok {
		return o, SourceCustomerOverride, true
	}

	if customer.ParentCompanyID == nil {
		return nil, SourceStandard, false
	}

	parent, ok := billing.FindCustomer(customers, *customer.ParentCompanyID)
	if !ok {
		return nil, SourceStandard, false
	}

	if o, ok := parent.Override(productID); ok {
		return o, SourceParentOverride, true
	}

	return nil, SourceStandard, false
}

// ResolveUnitPrice computes the description, item code and unit price to put
// on a new line item.
func ResolveUnitPrice(product *billing.Product, customer *billing.Customer, customers []billing.Customer, today time.Time) Resolution {
	res := Resolution{
		Description: product.Description,
		ItemCode:    product.ItemCode,
		Source:      SourceStandard,
	}

	if res.Description == "" {
		res.Description = product.Name
	}

	standard, ok := CurrentPrice(product.Prices, today)
	if ok {
		res.HasPrice = true
		res.UnitPrice = standard.Consumer

		if customer.Type == billing.CustomerB2B {
			res.UnitPrice = standard.Retail
		}
	} else {
		res.Note = "no effective standard price"
	}

	if customer.Type != billing.CustomerB2B {
		return res
	}

	override, source, ok := FindOverride(product.ID, customer, customers)
	if !ok {
		return res
	}

	res.Source = source

	if override.CustomItemCode != "" {
		res.ItemCode = override.CustomItemCode
	}

	if override.CustomDescription != "" {
		res.Description = override.CustomDescription
	}

	custom, ok := CurrentPrice(override.Prices, today)
	if !ok {
		res.Note = "override has no effective price, using standard price"
		return res
	}

	res.UnitPrice = custom.Retail
	res.HasPrice = true
	res.Note = ""

	if source == SourceParentOverride {
		res.Note = "inherited from parent company"
	}

	return res
}
