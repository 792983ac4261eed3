// Package policy adapts the storefront's pricing and inventory rules so an
// export shows a client the same numbers the storefront would.
package policy

import (
	"math"
	"strings"

	"github.com/rpattn/catalog-export/internal/domain"
)

// Quote is a client's price for one product in the base currency.
type Quote struct {
	Price           float64
	DiscountPercent float64
}

// Availability is a client's view of a product's stock.
type Availability struct {
	Available int64
	Preorder  int64
}

// Pricing computes personalised prices.
type Pricing interface {
	Quote(product *domain.Product, user *domain.ClientUser) Quote
}

// Stock computes personalised availability.
type Stock interface {
	Availability(product *domain.Product, user *domain.ClientUser) Availability
}

// DiscountPricing applies the client's category discount, falling back to the
// client's general discount.
type DiscountPricing struct{}

// Quote implements Pricing.
func (DiscountPricing) Quote(product *domain.Product, user *domain.ClientUser) Quote {
	if product == nil {
		return Quote{}
	}
	if user == nil {
		return Quote{Price: product.BasePrice}
	}
	percent := user.DiscountPercent
	if product.CategoryID != nil {
		if override, ok := user.CategoryDiscounts[*product.CategoryID]; ok {
			percent = override
		}
	}
	percent = math.Max(0, math.Min(100, percent))
	return Quote{
		Price:           Round2(product.BasePrice * (1 - percent/100)),
		DiscountPercent: percent,
	}
}

// RegionalStock counts stock held in warehouses of the client's region. A
// client without a region sees every warehouse.
type RegionalStock struct{}

// Availability implements Stock.
func (RegionalStock) Availability(product *domain.Product, user *domain.ClientUser) Availability {
	var out Availability
	if product == nil {
		return out
	}
	region := ""
	if user != nil {
		region = strings.TrimSpace(user.Region)
	}
	for _, s := range product.Stocks {
		if region != "" && !strings.EqualFold(strings.TrimSpace(s.Warehouse.Region), region) {
			continue
		}
		out.Available += s.Quantity
		out.Preorder += s.Preorder
	}
	return out
}

// Round2 rounds a money amount to cents.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}
