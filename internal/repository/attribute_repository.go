package repository

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/rpattn/catalog-export/internal/db"
	"github.com/rpattn/catalog-export/internal/domain"
)

type attributeRepository struct {
	pool db.Pool
}

// NewAttributeRepository creates a new category attribute reader
func NewAttributeRepository(pool db.Pool) AttributeRepository {
	return &attributeRepository{pool: pool}
}

// List returns every category attribute definition ordered by id.
func (r *attributeRepository) List(ctx context.Context) ([]domain.CategoryAttribute, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, category_id, name, type FROM category_attributes ORDER BY id`)
	if err != nil {
		return nil, eris.Wrap(err, "repository: list category attributes")
	}
	defer rows.Close()

	attributes := []domain.CategoryAttribute{}
	for rows.Next() {
		var attr domain.CategoryAttribute
		var fieldType string
		if err := rows.Scan(&attr.ID, &attr.CategoryID, &attr.Name, &fieldType); err != nil {
			return nil, eris.Wrap(err, "repository: scan category attribute")
		}
		attr.Type = domain.FieldType(fieldType)
		attributes = append(attributes, attr)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "repository: iterate category attributes")
	}
	return attributes, nil
}
