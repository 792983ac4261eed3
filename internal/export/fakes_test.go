package export

import (
	"context"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/rpattn/catalog-export/internal/domain"
	"github.com/rpattn/catalog-export/internal/fields"
	"github.com/rpattn/catalog-export/internal/repository"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

type fakeCatalog struct {
	mu       sync.Mutex
	products []domain.Product
	calls    int
}

func newFakeCatalog(products ...domain.Product) *fakeCatalog {
	sorted := append([]domain.Product(nil), products...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })
	return &fakeCatalog{products: sorted}
}

func (f *fakeCatalog) ListChunk(_ context.Context, afterID int64, limit int) ([]domain.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	out := []domain.Product{}
	for _, p := range f.products {
		if p.ID <= afterID {
			continue
		}
		if len(out) == limit {
			break
		}
		out = append(out, p)
	}
	return out, nil
}

type fakeProfiles struct {
	mu      sync.Mutex
	byHash  map[string]domain.ExportProfile
	stamped map[int64]time.Time
}

func newFakeProfiles(profiles ...domain.ExportProfile) *fakeProfiles {
	f := &fakeProfiles{byHash: map[string]domain.ExportProfile{}, stamped: map[int64]time.Time{}}
	for _, p := range profiles {
		f.byHash[p.Hash] = p
	}
	return f
}

func (f *fakeProfiles) GetByHash(_ context.Context, hash string) (domain.ExportProfile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.byHash[hash]
	if !ok {
		return domain.ExportProfile{}, repository.ErrNotFound
	}
	return p, nil
}

func (f *fakeProfiles) MarkDownloaded(_ context.Context, id int64, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stamped[id] = at
	return nil
}

func (f *fakeProfiles) setActive(hash string, active bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p := f.byHash[hash]
	p.IsActive = active
	f.byHash[hash] = p
}

func (f *fakeProfiles) stampedAt(id int64) (time.Time, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	at, ok := f.stamped[id]
	return at, ok
}

type fakeCurrencies []domain.Currency

func (f fakeCurrencies) List(context.Context) ([]domain.Currency, error) {
	return append([]domain.Currency(nil), f...), nil
}

type fakeUsers map[int64]domain.ClientUser

func (f fakeUsers) GetByID(_ context.Context, id int64) (domain.ClientUser, error) {
	u, ok := f[id]
	if !ok {
		return domain.ClientUser{}, repository.ErrNotFound
	}
	return u, nil
}

type fakeRelations map[repository.RelationKind]map[int64]string

func (f fakeRelations) NamesByIDs(_ context.Context, kind repository.RelationKind, ids []int64) (map[int64]string, error) {
	out := map[int64]string{}
	for _, id := range ids {
		if name, ok := f[kind][id]; ok {
			out[id] = name
		}
	}
	return out, nil
}

var testCurrencies = fakeCurrencies{
	{ID: 1, Code: "RUB", Symbol: "₽", Rate: 1, IsBase: true},
	{ID: 2, Code: "USD", Symbol: "$", Rate: 100},
}

func id64(v int64) *int64 { return &v }

func str(v string) *string { return &v }

func catalogFixture() []domain.Product {
	created := time.Date(2024, 2, 1, 9, 0, 0, 0, time.UTC)
	return []domain.Product{
		{
			ID: 1, SKU: "DR-1", Name: "Дрель", BasePrice: 100, IsNew: true, IsActive: true,
			BrandID: id64(1), CategoryID: id64(3), CreatedAt: created,
			Certificates: []domain.Certificate{{ID: 5, Name: "EAC"}, {ID: 6, Name: "ISO 9001"}},
			Stocks: []domain.Stock{
				{Warehouse: domain.Warehouse{ID: 1, Name: "Москва", Region: "msk"}, Quantity: 4, Preorder: 1},
				{Warehouse: domain.Warehouse{ID: 2, Name: "Казань", Region: "kzn"}, Quantity: 7},
			},
		},
		{ID: 2, SKU: "SW-2", Name: "Пила", BasePrice: 50, IsNew: true, IsActive: true, CreatedAt: created},
		{ID: 3, SKU: "SD-3", Name: "Шуруповёрт", BasePrice: 150, IsNew: false, IsActive: true, BrandID: id64(2), CreatedAt: created},
	}
}

func testRegistry(attrs ...domain.CategoryAttribute) *fields.Registry {
	return fields.NewRegistry(nil, nil, attrs)
}

var testRelations = fakeRelations{
	repository.RelationBrand:    {1: "Bosch", 2: "Makita"},
	repository.RelationCategory: {3: "Дрели"},
}

func newTestService(catalog *fakeCatalog, profiles *fakeProfiles, registry *fields.Registry, opts ...Option) *Service {
	users := fakeUsers{
		4: {ID: 4, Name: "ООО Ромашка", Region: "msk", DiscountPercent: 10, CategoryDiscounts: map[int64]float64{3: 20}},
	}
	return NewService(profiles, catalog, testCurrencies, users, testRelations, registry, opts...)
}
