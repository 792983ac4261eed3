package repository

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/rpattn/catalog-export/internal/db"
	"github.com/rpattn/catalog-export/internal/domain"
)

const selectProductChunk = `
SELECT id, sku, name, description, base_price, old_price, quantity, status,
       is_new, is_active, brand_id, category_id, model_id, created_at, updated_at
FROM products
WHERE id > $1
ORDER BY id
LIMIT $2`

const selectCertificates = `
SELECT pc.product_id, c.id, c.name
FROM product_certificates pc
JOIN certificates c ON c.id = pc.certificate_id
WHERE pc.product_id = ANY($1)
ORDER BY pc.product_id, c.id`

const selectStocks = `
SELECT ps.product_id, w.id, w.name, w.region, ps.quantity, ps.preorder
FROM product_stocks ps
JOIN warehouses w ON w.id = ps.warehouse_id
WHERE ps.product_id = ANY($1)
ORDER BY ps.product_id, w.id`

const selectBarcodes = `
SELECT product_id, barcode
FROM barcodes
WHERE product_id = ANY($1)
ORDER BY product_id, id`

const selectAttributeValues = `
SELECT product_id, attribute_id, value
FROM product_attribute_values
WHERE product_id = ANY($1)`

// catalogRepository implements CatalogRepository. Single-valued relations
// (brand, category, model) are left to the per-run relation loaders; the
// multi-valued ones are joined here with one query per chunk each.
type catalogRepository struct {
	pool db.Pool
}

// NewCatalogRepository creates a new product catalog reader
func NewCatalogRepository(pool db.Pool) CatalogRepository {
	return &catalogRepository{pool: pool}
}

// ListChunk returns the next keyset page of products.
func (r *catalogRepository) ListChunk(ctx context.Context, afterID int64, limit int) ([]domain.Product, error) {
	if limit <= 0 {
		return []domain.Product{}, nil
	}
	rows, err := r.pool.Query(ctx, selectProductChunk, afterID, limit)
	if err != nil {
		return nil, eris.Wrap(err, "repository: list products")
	}
	defer rows.Close()

	products := make([]domain.Product, 0, limit)
	for rows.Next() {
		var p domain.Product
		if err := rows.Scan(
			&p.ID, &p.SKU, &p.Name, &p.Description, &p.BasePrice, &p.OldPrice,
			&p.Quantity, &p.Status, &p.IsNew, &p.IsActive,
			&p.BrandID, &p.CategoryID, &p.ModelID, &p.CreatedAt, &p.UpdatedAt,
		); err != nil {
			return nil, eris.Wrap(err, "repository: scan product")
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "repository: iterate products")
	}
	rows.Close()

	if len(products) == 0 {
		return products, nil
	}
	if err := r.hydrate(ctx, products); err != nil {
		return nil, err
	}
	return products, nil
}

func (r *catalogRepository) hydrate(ctx context.Context, products []domain.Product) error {
	ids := make([]int64, len(products))
	index := make(map[int64]*domain.Product, len(products))
	for i := range products {
		ids[i] = products[i].ID
		index[products[i].ID] = &products[i]
	}

	if err := r.loadCertificates(ctx, ids, index); err != nil {
		return err
	}
	if err := r.loadStocks(ctx, ids, index); err != nil {
		return err
	}
	if err := r.loadBarcodes(ctx, ids, index); err != nil {
		return err
	}
	return r.loadAttributes(ctx, ids, index)
}

func (r *catalogRepository) loadCertificates(ctx context.Context, ids []int64, index map[int64]*domain.Product) error {
	rows, err := r.pool.Query(ctx, selectCertificates, ids)
	if err != nil {
		return eris.Wrap(err, "repository: load certificates")
	}
	defer rows.Close()
	for rows.Next() {
		var productID int64
		var c domain.Certificate
		if err := rows.Scan(&productID, &c.ID, &c.Name); err != nil {
			return eris.Wrap(err, "repository: scan certificate")
		}
		if p, ok := index[productID]; ok {
			p.Certificates = append(p.Certificates, c)
		}
	}
	return eris.Wrap(rows.Err(), "repository: iterate certificates")
}

func (r *catalogRepository) loadStocks(ctx context.Context, ids []int64, index map[int64]*domain.Product) error {
	rows, err := r.pool.Query(ctx, selectStocks, ids)
	if err != nil {
		return eris.Wrap(err, "repository: load stocks")
	}
	defer rows.Close()
	for rows.Next() {
		var productID int64
		var s domain.Stock
		if err := rows.Scan(&productID, &s.Warehouse.ID, &s.Warehouse.Name, &s.Warehouse.Region, &s.Quantity, &s.Preorder); err != nil {
			return eris.Wrap(err, "repository: scan stock")
		}
		if p, ok := index[productID]; ok {
			p.Stocks = append(p.Stocks, s)
		}
	}
	return eris.Wrap(rows.Err(), "repository: iterate stocks")
}

func (r *catalogRepository) loadBarcodes(ctx context.Context, ids []int64, index map[int64]*domain.Product) error {
	rows, err := r.pool.Query(ctx, selectBarcodes, ids)
	if err != nil {
		return eris.Wrap(err, "repository: load barcodes")
	}
	defer rows.Close()
	for rows.Next() {
		var productID int64
		var barcode string
		if err := rows.Scan(&productID, &barcode); err != nil {
			return eris.Wrap(err, "repository: scan barcode")
		}
		if p, ok := index[productID]; ok {
			p.Barcodes = append(p.Barcodes, barcode)
		}
	}
	return eris.Wrap(rows.Err(), "repository: iterate barcodes")
}

func (r *catalogRepository) loadAttributes(ctx context.Context, ids []int64, index map[int64]*domain.Product) error {
	rows, err := r.pool.Query(ctx, selectAttributeValues, ids)
	if err != nil {
		return eris.Wrap(err, "repository: load attribute values")
	}
	defer rows.Close()
	for rows.Next() {
		var productID, attributeID int64
		var value string
		if err := rows.Scan(&productID, &attributeID, &value); err != nil {
			return eris.Wrap(err, "repository: scan attribute value")
		}
		p, ok := index[productID]
		if !ok {
			continue
		}
		if p.Attributes == nil {
			p.Attributes = make(map[int64]string)
		}
		p.Attributes[attributeID] = value
	}
	return eris.Wrap(rows.Err(), "repository: iterate attribute values")
}
