package domain

import "strings"

// Currency is one row of the currency table. Prices are stored in the base
// currency; Rate is the number of base units one unit of this currency costs.
type Currency struct {
	ID     int64   `json:"id"`
	Code   string  `json:"code"`
	Symbol string  `json:"symbol"`
	Rate   float64 `json:"rate"`
	IsBase bool    `json:"is_base"`
}

// FromBase converts an amount expressed in the base currency.
func (c Currency) FromBase(amount float64) float64 {
	if c.IsBase || c.Rate <= 0 {
		return amount
	}
	return amount / c.Rate
}

// ClientUser is the storefront customer whose prices and stock an export shows.
type ClientUser struct {
	ID                int64             `json:"id"`
	Name              string            `json:"name"`
	Region            string            `json:"region"`
	DiscountPercent   float64           `json:"discount_percent"`
	CategoryDiscounts map[int64]float64 `json:"category_discounts,omitempty"`
}

// ExportContext carries the audience parameters of one run. It is passed by
// value into every resolution call and never changes during a run.
type ExportContext struct {
	Currency   Currency
	ClientUser *ClientUser
}

// HasClient reports whether personalised fields can be resolved.
func (c ExportContext) HasClient() bool {
	return c.ClientUser != nil
}

// Money is a resolved price: the base-currency amount and its conversion into
// the context currency.
type Money struct {
	Base     float64
	Amount   float64
	Currency Currency
}

// CurrencyTable is an immutable snapshot of the currency table.
type CurrencyTable struct {
	byID   map[int64]Currency
	byCode map[string]Currency
	base   Currency
}

// NewCurrencyTable indexes currencies by id and upper-cased code.
func NewCurrencyTable(currencies []Currency) CurrencyTable {
	table := CurrencyTable{
		byID:   make(map[int64]Currency, len(currencies)),
		byCode: make(map[string]Currency, len(currencies)),
		base:   Currency{Code: "BASE", Rate: 1, IsBase: true},
	}
	for _, c := range currencies {
		table.byID[c.ID] = c
		table.byCode[strings.ToUpper(strings.TrimSpace(c.Code))] = c
		if c.IsBase {
			table.base = c
		}
	}
	return table
}

// ByID looks a currency up by primary key.
func (t CurrencyTable) ByID(id int64) (Currency, bool) {
	c, ok := t.byID[id]
	return c, ok
}

// ByCode looks a currency up by ISO code, case-insensitively.
func (t CurrencyTable) ByCode(code string) (Currency, bool) {
	c, ok := t.byCode[strings.ToUpper(strings.TrimSpace(code))]
	return c, ok
}

// Base returns the base currency, or a rate-1 placeholder when none is flagged.
func (t CurrencyTable) Base() Currency {
	return t.base
}
