package domain

import "time"

// Product is one catalog record with the relations an export can reach.
// Relations are hydrated per chunk by the catalog repository; a nil pointer
// means the relation is absent.
type Product struct {
	ID          int64     `json:"id"`
	SKU         string    `json:"sku"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	BasePrice   float64   `json:"base_price"`
	OldPrice    *float64  `json:"old_price,omitempty"`
	Quantity    int64     `json:"quantity"`
	Status      string    `json:"status"`
	IsNew       bool      `json:"is_new"`
	IsActive    bool      `json:"is_active"`
	BrandID     *int64    `json:"brand_id,omitempty"`
	CategoryID  *int64    `json:"category_id,omitempty"`
	ModelID     *int64    `json:"model_id,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	Brand        *Brand           `json:"brand,omitempty"`
	Category     *Category        `json:"category,omitempty"`
	Model        *ProductModel    `json:"model,omitempty"`
	Certificates []Certificate    `json:"certificates,omitempty"`
	Stocks       []Stock          `json:"stocks,omitempty"`
	Barcodes     []string         `json:"barcodes,omitempty"`
	Attributes   map[int64]string `json:"attributes,omitempty"`
}

// Brand is the manufacturer a product belongs to.
type Brand struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Category is the catalog section a product is listed under.
type Category struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// ProductModel is the model line of a product.
type ProductModel struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Certificate is a compliance certificate attached to a product.
type Certificate struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Warehouse holds stock for a sales region.
type Warehouse struct {
	ID     int64  `json:"id"`
	Name   string `json:"name"`
	Region string `json:"region"`
}

// Stock is the quantity of one product held in one warehouse.
type Stock struct {
	Warehouse Warehouse `json:"warehouse"`
	Quantity  int64     `json:"quantity"`
	Preorder  int64     `json:"preorder"`
}

// CategoryAttribute describes a per-category dynamic attribute.
type CategoryAttribute struct {
	ID         int64     `json:"id"`
	CategoryID int64     `json:"category_id"`
	Name       string    `json:"name"`
	Type       FieldType `json:"type"`
}

// CertificateIDs returns the ids of the attached certificates in order.
func (p *Product) CertificateIDs() []int64 {
	ids := make([]int64, 0, len(p.Certificates))
	for _, c := range p.Certificates {
		ids = append(ids, c.ID)
	}
	return ids
}

// WarehouseIDs returns the ids of warehouses that hold a stock row.
func (p *Product) WarehouseIDs() []int64 {
	ids := make([]int64, 0, len(p.Stocks))
	for _, s := range p.Stocks {
		ids = append(ids, s.Warehouse.ID)
	}
	return ids
}
