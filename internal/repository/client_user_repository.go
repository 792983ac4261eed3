package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"

	"github.com/rpattn/catalog-export/internal/db"
	"github.com/rpattn/catalog-export/internal/domain"
)

type clientUserRepository struct {
	pool db.Pool
}

// NewClientUserRepository creates a new client user reader
func NewClientUserRepository(pool db.Pool) ClientUserRepository {
	return &clientUserRepository{pool: pool}
}

// GetByID loads a client user together with the per-category discount overrides.
func (r *clientUserRepository) GetByID(ctx context.Context, id int64) (domain.ClientUser, error) {
	var user domain.ClientUser
	err := r.pool.QueryRow(ctx,
		`SELECT id, name, region, discount_percent FROM client_users WHERE id = $1`, id,
	).Scan(&user.ID, &user.Name, &user.Region, &user.DiscountPercent)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ClientUser{}, ErrNotFound
		}
		return domain.ClientUser{}, eris.Wrap(err, "repository: get client user")
	}

	rows, err := r.pool.Query(ctx,
		`SELECT category_id, discount_percent FROM client_category_discounts WHERE user_id = $1`, id,
	)
	if err != nil {
		return domain.ClientUser{}, eris.Wrap(err, "repository: load category discounts")
	}
	defer rows.Close()
	for rows.Next() {
		var categoryID int64
		var percent float64
		if err := rows.Scan(&categoryID, &percent); err != nil {
			return domain.ClientUser{}, eris.Wrap(err, "repository: scan category discount")
		}
		if user.CategoryDiscounts == nil {
			user.CategoryDiscounts = make(map[int64]float64)
		}
		user.CategoryDiscounts[categoryID] = percent
	}
	if err := rows.Err(); err != nil {
		return domain.ClientUser{}, eris.Wrap(err, "repository: iterate category discounts")
	}
	return user, nil
}
