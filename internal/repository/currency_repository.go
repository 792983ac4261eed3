package repository

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/rpattn/catalog-export/internal/db"
	"github.com/rpattn/catalog-export/internal/domain"
)

type currencyRepository struct {
	pool db.Pool
}

// NewCurrencyRepository creates a new currency table reader
func NewCurrencyRepository(pool db.Pool) CurrencyRepository {
	return &currencyRepository{pool: pool}
}

// List returns every currency ordered by id.
func (r *currencyRepository) List(ctx context.Context) ([]domain.Currency, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, code, symbol, rate, is_base FROM currencies ORDER BY id`)
	if err != nil {
		return nil, eris.Wrap(err, "repository: list currencies")
	}
	defer rows.Close()

	currencies := []domain.Currency{}
	for rows.Next() {
		var c domain.Currency
		if err := rows.Scan(&c.ID, &c.Code, &c.Symbol, &c.Rate, &c.IsBase); err != nil {
			return nil, eris.Wrap(err, "repository: scan currency")
		}
		currencies = append(currencies, c)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "repository: iterate currencies")
	}
	return currencies, nil
}
