package repository

import (
	"context"
	"fmt"

	"github.com/rotisserie/eris"

	"github.com/rpattn/catalog-export/internal/db"
)

var relationTables = map[RelationKind]string{
	RelationBrand:    "brands",
	RelationCategory: "categories",
	RelationModel:    "product_models",
}

type relationRepository struct {
	pool db.Pool
}

// NewRelationRepository creates a reader for brand, category and model names
func NewRelationRepository(pool db.Pool) RelationRepository {
	return &relationRepository{pool: pool}
}

// NamesByIDs returns id -> name for the ids that exist. Missing ids are absent
// from the map.
func (r *relationRepository) NamesByIDs(ctx context.Context, kind RelationKind, ids []int64) (map[int64]string, error) {
	table, ok := relationTables[kind]
	if !ok {
		return nil, eris.Errorf("repository: unknown relation %q", kind)
	}
	names := make(map[int64]string, len(ids))
	if len(ids) == 0 {
		return names, nil
	}

	rows, err := r.pool.Query(ctx, fmt.Sprintf(`SELECT id, name FROM %s WHERE id = ANY($1)`, table), ids)
	if err != nil {
		return nil, eris.Wrapf(err, "repository: load %s names", kind)
	}
	defer rows.Close()
	for rows.Next() {
		var id int64
		var name string
		if err := rows.Scan(&id, &name); err != nil {
			return nil, eris.Wrapf(err, "repository: scan %s name", kind)
		}
		names[id] = name
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrapf(err, "repository: iterate %s names", kind)
	}
	return names, nil
}
