package relationloader

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rpattn/catalog-export/internal/domain"
	"github.com/rpattn/catalog-export/internal/repository"
)

type fakeRelations struct {
	mu    sync.Mutex
	names map[repository.RelationKind]map[int64]string
	calls map[repository.RelationKind][][]int64
	err   error
}

func (f *fakeRelations) NamesByIDs(_ context.Context, kind repository.RelationKind, ids []int64) (map[int64]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.calls == nil {
		f.calls = make(map[repository.RelationKind][][]int64)
	}
	sorted := append([]int64(nil), ids...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	f.calls[kind] = append(f.calls[kind], sorted)
	if f.err != nil {
		return nil, f.err
	}
	out := make(map[int64]string)
	for _, id := range ids {
		if name, ok := f.names[kind][id]; ok {
			out[id] = name
		}
	}
	return out, nil
}

func id(v int64) *int64 { return &v }

func TestHydrate_FillsRelationsAndBatches(t *testing.T) {
	repo := &fakeRelations{names: map[repository.RelationKind]map[int64]string{
		repository.RelationBrand:    {1: "Bosch", 2: "Makita"},
		repository.RelationCategory: {7: "Дрели"},
	}}
	loaders := New(repo)

	products := []domain.Product{
		{ID: 1, BrandID: id(1), CategoryID: id(7)},
		{ID: 2, BrandID: id(2), CategoryID: id(7)},
		{ID: 3, BrandID: id(1), ModelID: id(99)},
		{ID: 4},
	}
	require.NoError(t, loaders.Hydrate(context.Background(), products))

	require.NotNil(t, products[0].Brand)
	assert.Equal(t, "Bosch", products[0].Brand.Name)
	assert.Equal(t, "Makita", products[1].Brand.Name)
	assert.Equal(t, "Дрели", products[1].Category.Name)
	assert.Nil(t, products[2].Model, "missing model row stays nil")
	assert.Nil(t, products[3].Brand)

	require.Len(t, repo.calls[repository.RelationBrand], 1)
	assert.Equal(t, []int64{1, 2}, repo.calls[repository.RelationBrand][0])
}

func TestHydrate_CachesAcrossChunks(t *testing.T) {
	repo := &fakeRelations{names: map[repository.RelationKind]map[int64]string{
		repository.RelationBrand: {1: "Bosch", 3: "DeWalt"},
	}}
	loaders := New(repo)

	first := []domain.Product{{ID: 1, BrandID: id(1)}}
	second := []domain.Product{{ID: 2, BrandID: id(1)}, {ID: 3, BrandID: id(3)}}
	require.NoError(t, loaders.Hydrate(context.Background(), first))
	require.NoError(t, loaders.Hydrate(context.Background(), second))

	assert.Equal(t, "Bosch", second[0].Brand.Name)
	assert.Equal(t, "DeWalt", second[1].Brand.Name)
	require.Len(t, repo.calls[repository.RelationBrand], 2)
	assert.Equal(t, []int64{3}, repo.calls[repository.RelationBrand][1])
}

func TestHydrate_PropagatesErrors(t *testing.T) {
	repo := &fakeRelations{err: errors.New("db down")}
	products := []domain.Product{{ID: 1, BrandID: id(1)}}

	err := New(repo).Hydrate(context.Background(), products)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "db down")
}

func TestContextRoundTrip(t *testing.T) {
	assert.Nil(t, FromContext(context.Background()))

	loaders := New(&fakeRelations{})
	ctx := WithLoaders(context.Background(), loaders)
	assert.Same(t, loaders, FromContext(ctx))
}
