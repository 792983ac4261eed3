// Package relationloader batches and caches brand, category and model lookups
// for the lifetime of one export run.
package relationloader

import (
	"context"
	"strconv"
	"time"

	"github.com/graph-gophers/dataloader"
	"github.com/rotisserie/eris"

	"github.com/rpattn/catalog-export/internal/domain"
	"github.com/rpattn/catalog-export/internal/repository"
)

type ctxKey string

const loadersKey ctxKey = "relationLoaders"

// Loaders holds one dataloader per single-valued relation. The dataloader
// cache lives as long as the Loaders value, so a run that reuses it across
// chunks looks each brand up once.
type Loaders struct {
	byKind map[repository.RelationKind]*dataloader.Loader
}

// New creates fresh loaders backed by repo.
func New(repo repository.RelationRepository) *Loaders {
	l := &Loaders{byKind: make(map[repository.RelationKind]*dataloader.Loader, 3)}
	for _, kind := range []repository.RelationKind{
		repository.RelationBrand,
		repository.RelationCategory,
		repository.RelationModel,
	} {
		l.byKind[kind] = dataloader.NewBatchedLoader(batchFn(repo, kind), dataloader.WithWait(5*time.Millisecond))
	}
	return l
}

func batchFn(repo repository.RelationRepository, kind repository.RelationKind) dataloader.BatchFunc {
	return func(ctx context.Context, keys dataloader.Keys) []*dataloader.Result {
		ids := make([]int64, len(keys))
		for i, k := range keys {
			id, err := strconv.ParseInt(k.String(), 10, 64)
			if err != nil {
				return failAll(len(keys), eris.Wrapf(err, "relationloader: invalid %s key", kind))
			}
			ids[i] = id
		}

		names, err := repo.NamesByIDs(ctx, kind, ids)
		if err != nil {
			return failAll(len(keys), err)
		}

		// Results must follow key order; missing rows load as nil.
		results := make([]*dataloader.Result, len(keys))
		for i, id := range ids {
			if name, ok := names[id]; ok {
				results[i] = &dataloader.Result{Data: name}
			} else {
				results[i] = &dataloader.Result{Data: nil}
			}
		}
		return results
	}
}

func failAll(n int, err error) []*dataloader.Result {
	results := make([]*dataloader.Result, n)
	for i := range results {
		results[i] = &dataloader.Result{Error: err}
	}
	return results
}

// WithLoaders attaches loaders to ctx.
func WithLoaders(ctx context.Context, l *Loaders) context.Context {
	return context.WithValue(ctx, loadersKey, l)
}

// FromContext returns the loaders attached to ctx, if any.
func FromContext(ctx context.Context) *Loaders {
	if l, ok := ctx.Value(loadersKey).(*Loaders); ok {
		return l
	}
	return nil
}

// Hydrate fills Brand, Category and Model on every product that carries the
// matching id. Ids whose row is gone leave the relation nil.
func (l *Loaders) Hydrate(ctx context.Context, products []domain.Product) error {
	names, err := l.load(ctx, repository.RelationBrand, products, func(p *domain.Product) *int64 { return p.BrandID })
	if err != nil {
		return err
	}
	for i := range products {
		if name, ok := lookup(names, products[i].BrandID); ok {
			products[i].Brand = &domain.Brand{ID: *products[i].BrandID, Name: name}
		}
	}

	names, err = l.load(ctx, repository.RelationCategory, products, func(p *domain.Product) *int64 { return p.CategoryID })
	if err != nil {
		return err
	}
	for i := range products {
		if name, ok := lookup(names, products[i].CategoryID); ok {
			products[i].Category = &domain.Category{ID: *products[i].CategoryID, Name: name}
		}
	}

	names, err = l.load(ctx, repository.RelationModel, products, func(p *domain.Product) *int64 { return p.ModelID })
	if err != nil {
		return err
	}
	for i := range products {
		if name, ok := lookup(names, products[i].ModelID); ok {
			products[i].Model = &domain.ProductModel{ID: *products[i].ModelID, Name: name}
		}
	}
	return nil
}

func (l *Loaders) load(
	ctx context.Context,
	kind repository.RelationKind,
	products []domain.Product,
	idOf func(*domain.Product) *int64,
) (map[int64]string, error) {
	seen := make(map[int64]struct{})
	var keys dataloader.Keys
	for i := range products {
		id := idOf(&products[i])
		if id == nil {
			continue
		}
		if _, dup := seen[*id]; dup {
			continue
		}
		seen[*id] = struct{}{}
		keys = append(keys, dataloader.StringKey(strconv.FormatInt(*id, 10)))
	}
	names := make(map[int64]string, len(keys))
	if len(keys) == 0 {
		return names, nil
	}

	values, errs := l.byKind[kind].LoadMany(ctx, keys)()
	for i, key := range keys {
		if i < len(errs) && errs[i] != nil {
			return nil, eris.Wrapf(errs[i], "relationloader: load %s %s", kind, key.String())
		}
		name, ok := values[i].(string)
		if !ok {
			continue
		}
		id, _ := strconv.ParseInt(key.String(), 10, 64)
		names[id] = name
	}
	return names, nil
}

func lookup(names map[int64]string, id *int64) (string, bool) {
	if id == nil {
		return "", false
	}
	name, ok := names[*id]
	return name, ok
}
