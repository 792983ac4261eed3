package repository

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/rpattn/catalog-export/internal/domain"
)

// ErrNotFound is returned when a lookup matches no row.
var ErrNotFound = eris.New("record not found")

// ProfileRepository reads export profiles and records downloads.
type ProfileRepository interface {
	GetByHash(ctx context.Context, hash string) (domain.ExportProfile, error)
	MarkDownloaded(ctx context.Context, id int64, at time.Time) error
}

// ProfileWriter stores new export profiles for the import command.
type ProfileWriter interface {
	Create(ctx context.Context, profile domain.ExportProfile) (domain.ExportProfile, error)
}

// CatalogRepository reads hydrated products in primary-key order.
type CatalogRepository interface {
	// ListChunk returns up to limit products with id > afterID, ascending.
	ListChunk(ctx context.Context, afterID int64, limit int) ([]domain.Product, error)
}

// CurrencyRepository reads the currency table.
type CurrencyRepository interface {
	List(ctx context.Context) ([]domain.Currency, error)
}

// ClientUserRepository reads storefront customers with their discounts.
type ClientUserRepository interface {
	GetByID(ctx context.Context, id int64) (domain.ClientUser, error)
}

// AttributeRepository reads category attribute definitions.
type AttributeRepository interface {
	List(ctx context.Context) ([]domain.CategoryAttribute, error)
}

// RelationKind names a single-valued product relation.
type RelationKind string

const (
	RelationBrand    RelationKind = "brand"
	RelationCategory RelationKind = "category"
	RelationModel    RelationKind = "model"
)

// RelationRepository batch-loads relation names by id.
type RelationRepository interface {
	NamesByIDs(ctx context.Context, kind RelationKind, ids []int64) (map[int64]string, error)
}
